package compiler

import (
	"strings"
	"testing"

	"github.com/falkordb/go-sparql-adapter/pkg/algebra"
	"github.com/falkordb/go-sparql-adapter/pkg/rdf"
)

func mustContain(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected Cypher to contain %q, got:\n%s", needle, haystack)
	}
}

func TestCompileBGPConcreteTriple(t *testing.T) {
	knows := rdf.NewNamedNode("http://ex.org/knows")
	patterns := []algebra.TriplePattern{
		{
			Subject:   algebra.IRITerm(rdf.NewNamedNode("http://ex.org/alice")),
			Predicate: algebra.IRITerm(knows),
			Object:    algebra.IRITerm(rdf.NewNamedNode("http://ex.org/bob")),
		},
	}
	plan, err := CompileBGP(patterns, nil)
	if err != nil {
		t.Fatalf("CompileBGP: %v", err)
	}
	mustContain(t, plan.Cypher, "uri: $p1")
	mustContain(t, plan.Cypher, "knows")
}

func TestCompileBGPClosedChainMutualFriends(t *testing.T) {
	knows := rdf.NewNamedNode("http://ex.org/knows")
	x, y := algebra.VarTermNamed("x"), algebra.VarTermNamed("y")
	patterns := []algebra.TriplePattern{
		{Subject: x, Predicate: algebra.IRITerm(knows), Object: y},
		{Subject: y, Predicate: algebra.IRITerm(knows), Object: x},
	}
	plan, err := CompileBGP(patterns, []string{"x", "y"})
	if err != nil {
		t.Fatalf("CompileBGP: %v", err)
	}
	if len(plan.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(plan.Columns))
	}
	for _, c := range plan.Columns {
		if c.Type != 0 { // codec.NodeUri == 0
			t.Fatalf("expected both x and y to decode as NodeUri, got %v for %s", c.Type, c.Variable)
		}
	}
	mustContain(t, plan.Cypher, "-[:`http://ex.org/knows`]->")
}

func TestCompileBGPRDFTypeConcreteBecomesLabelMatch(t *testing.T) {
	patterns := []algebra.TriplePattern{
		{
			Subject:   algebra.IRITerm(rdf.NewNamedNode("http://ex.org/alice")),
			Predicate: algebra.IRITerm(rdf.RDFType),
			Object:    algebra.IRITerm(rdf.NewNamedNode("http://ex.org/Person")),
		},
	}
	plan, err := CompileBGP(patterns, nil)
	if err != nil {
		t.Fatalf("CompileBGP: %v", err)
	}
	mustContain(t, plan.Cypher, "`http://ex.org/Person`")
	if strings.Contains(plan.Cypher, "-[:") {
		t.Fatalf("rdf:type with a concrete object must not compile to a relationship: %s", plan.Cypher)
	}
}

func TestCompileBGPAmbiguousObjectProducesTwoWayUnion(t *testing.T) {
	patterns := []algebra.TriplePattern{
		{
			Subject:   algebra.VarTermNamed("s"),
			Predicate: algebra.IRITerm(rdf.NewNamedNode("http://ex.org/hasValue")),
			Object:    algebra.VarTermNamed("v"),
		},
	}
	plan, err := CompileBGP(patterns, []string{"v"})
	if err != nil {
		t.Fatalf("CompileBGP: %v", err)
	}
	if strings.Count(plan.Cypher, "UNION ALL") != 1 {
		t.Fatalf("expected exactly one UNION ALL for a 2-way ambiguous branch, got:\n%s", plan.Cypher)
	}
}

func TestCompileBGPAmbiguousPropertyBranchProjectsDatatypeSidecar(t *testing.T) {
	patterns := []algebra.TriplePattern{
		{
			Subject:   algebra.VarTermNamed("s"),
			Predicate: algebra.IRITerm(rdf.NewNamedNode("http://ex.org/hasValue")),
			Object:    algebra.VarTermNamed("v"),
		},
	}
	plan, err := CompileBGP(patterns, []string{"v"})
	if err != nil {
		t.Fatalf("CompileBGP: %v", err)
	}
	mustContain(t, plan.Cypher, "hasValue__datatype")
	if len(plan.Columns) != 1 || plan.Columns[0].Variable != "v" {
		t.Fatalf("expected a single v column, got %v", plan.Columns)
	}
}

func TestCompileBGPTooManyAmbiguousVarsFallsBack(t *testing.T) {
	knows := rdf.NewNamedNode("http://ex.org/knows")
	hub := algebra.VarTermNamed("hub")
	patterns := []algebra.TriplePattern{
		{Subject: hub, Predicate: algebra.IRITerm(knows), Object: algebra.VarTermNamed("hub2")},
		{Subject: algebra.VarTermNamed("hub2"), Predicate: algebra.IRITerm(knows), Object: hub},
	}
	for _, name := range []string{"a1", "a2", "a3", "a4", "a5"} {
		patterns = append(patterns, algebra.TriplePattern{
			Subject:   hub,
			Predicate: algebra.IRITerm(rdf.NewNamedNode("http://ex.org/" + name)),
			Object:    algebra.VarTermNamed(name),
		})
	}
	if _, err := CompileBGP(patterns, nil); err == nil {
		t.Fatal("expected fallback error for more than 4 ambiguous variables")
	}
}

func TestCompileFilterAppendsToEveryUnionBranch(t *testing.T) {
	patterns := []algebra.TriplePattern{
		{
			Subject:   algebra.VarTermNamed("s"),
			Predicate: algebra.IRITerm(rdf.NewNamedNode("http://ex.org/hasValue")),
			Object:    algebra.VarTermNamed("v"),
		},
	}
	expr := &algebra.BinaryExpression{
		Left:     &algebra.VariableExpression{Variable: algebra.NewVariable("v")},
		Operator: algebra.OpEqual,
		Right:    &algebra.LiteralExpression{Literal: rdf.NewIntegerLiteral(5)},
	}
	plan, err := CompileFilter(patterns, []string{"v"}, expr)
	if err != nil {
		t.Fatalf("CompileFilter: %v", err)
	}
	branches := strings.Split(plan.Cypher, " UNION ALL ")
	if len(branches) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(branches))
	}
	for _, branch := range branches {
		mustContain(t, branch, "WHERE")
	}
}

func TestCompileOptionalLeavesUnboundColumnNullable(t *testing.T) {
	knows := rdf.NewNamedNode("http://ex.org/knows")
	email := rdf.NewNamedNode("http://ex.org/email")
	required := []algebra.TriplePattern{
		{
			Subject:   algebra.VarTermNamed("s"),
			Predicate: algebra.IRITerm(knows),
			Object:    algebra.VarTermNamed("friend"),
		},
	}
	optional := []algebra.TriplePattern{
		{
			Subject:   algebra.VarTermNamed("friend"),
			Predicate: algebra.IRITerm(email),
			Object:    algebra.VarTermNamed("friendEmail"),
		},
	}
	plan, err := CompileOptional(required, optional, []string{"s", "friend", "friendEmail"})
	if err != nil {
		t.Fatalf("CompileOptional: %v", err)
	}
	mustContain(t, plan.Cypher, "OPTIONAL MATCH")
}

func TestCompileGroupByRDFTypeUsesLabelUnwind(t *testing.T) {
	inner := []algebra.TriplePattern{
		{
			Subject:   algebra.VarTermNamed("s"),
			Predicate: algebra.IRITerm(rdf.RDFType),
			Object:    algebra.VarTermNamed("t"),
		},
	}
	plan, err := CompileGroup(inner, []*algebra.Variable{algebra.NewVariable("t")}, []algebra.Aggregation{
		{Func: algebra.AggCountStar, Out: algebra.NewVariable("n")},
	})
	if err != nil {
		t.Fatalf("CompileGroup: %v", err)
	}
	mustContain(t, plan.Cypher, "UNWIND labels(")
	mustContain(t, plan.Cypher, "count(*) AS `n`")
}

func TestCompileBGPPredicateVariableSingleTripleUnion(t *testing.T) {
	patterns := []algebra.TriplePattern{
		{
			Subject:   algebra.IRITerm(rdf.NewNamedNode("http://ex.org/alice")),
			Predicate: algebra.VarTermNamed("p"),
			Object:    algebra.VarTermNamed("o"),
		},
	}
	plan, err := CompileBGP(patterns, []string{"p", "o"})
	if err != nil {
		t.Fatalf("CompileBGP: %v", err)
	}
	if strings.Count(plan.Cypher, "UNION ALL") != 2 {
		t.Fatalf("expected a 3-way union (2 UNION ALL joins), got:\n%s", plan.Cypher)
	}
}

func TestCompileBGPPredicateVariableWithLiteralObjectSkipsEdgeBranch(t *testing.T) {
	patterns := []algebra.TriplePattern{
		{
			Subject:   algebra.IRITerm(rdf.NewNamedNode("http://ex.org/alice")),
			Predicate: algebra.VarTermNamed("p"),
			Object:    algebra.LiteralTerm(rdf.NewLiteral("hello")),
		},
	}
	plan, err := CompileBGP(patterns, []string{"p"})
	if err != nil {
		t.Fatalf("CompileBGP: %v", err)
	}
	mustContain(t, plan.Cypher, "WHERE false")
}
