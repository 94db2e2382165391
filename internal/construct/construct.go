// Package construct implements SPARQL CONSTRUCT and DESCRIBE
// (SPEC_FULL.md §4, spec.md §6). A CONSTRUCT query's WHERE clause
// pushes down through the Pattern Compiler exactly like a SELECT BGP;
// the construct template is then instantiated locally against each
// returned binding row, since the template itself is not a pattern
// the store can evaluate.
//
// Grounded on the teacher's executor.executeConstruct /
// executeDescribe: both collect bindings from an ordinary iterator,
// instantiate a fixed template per binding, skip rows that leave a
// template variable unbound, and deduplicate by a string key built
// from (subject, predicate, object). DESCRIBE is the same shape with
// a one-pattern template of `<resource> ?p ?o` per resource, the
// Concise Bounded Description the teacher also implements.
//
// A blank node written directly in a CONSTRUCT template is scoped to
// one solution (SPARQL 1.1 §16.2.2): the same template label mints one
// fresh node shared across every triple of that row and a different
// one in the next, via rdf.NewSessionBlankNode.
package construct

import (
	"context"
	"fmt"

	"github.com/falkordb/go-sparql-adapter/internal/codec"
	"github.com/falkordb/go-sparql-adapter/internal/compiler"
	"github.com/falkordb/go-sparql-adapter/internal/store"
	"github.com/falkordb/go-sparql-adapter/pkg/algebra"
	"github.com/falkordb/go-sparql-adapter/pkg/rdf"
)

// TemplateTriple is one triple pattern from a CONSTRUCT template, each
// position either a bound term or a WHERE-clause variable name.
type TemplateTriple struct {
	Subject   algebra.Term
	Predicate algebra.Term
	Object    algebra.Term
}

// Execute runs wherePatterns through the Pattern Compiler, then
// instantiates template once per returned binding, deduplicating the
// result set (spec.md §6 "CONSTRUCT... execution via the algebra
// dispatch path").
func Execute(ctx context.Context, facade *store.Facade, wherePatterns []algebra.TriplePattern, template []TemplateTriple) ([]*rdf.Triple, error) {
	outputVars := templateVars(template)

	plan, err := compiler.CompileBGP(wherePatterns, outputVars)
	if err != nil {
		return nil, err
	}

	result, err := facade.QueryReadOnly(ctx, plan.Cypher, plan.Params)
	if err != nil {
		return nil, err
	}

	slotTypes := make([]codec.ColumnType, len(plan.Columns))
	for i, col := range plan.Columns {
		slotTypes[i] = col.Type
	}

	seen := make(map[string]bool)
	var triples []*rdf.Triple
	for _, row := range result.Rows {
		terms, err := codec.DecodeRow(row, slotTypes)
		if err != nil {
			return nil, err
		}
		binding := bindRow(plan.Columns, terms)
		// A template blank node is scoped to one solution: the same
		// template label mints one fresh blank node shared by every
		// triple in this row, but a different one in the next row.
		freshBlanks := make(map[string]*rdf.BlankNode)

		for _, tt := range template {
			triple, ok := instantiate(tt, binding, freshBlanks)
			if !ok {
				// Leaves a template variable unbound in this row; skip
				// just this triple, not the whole binding.
				continue
			}
			key := fmt.Sprintf("%s|%s|%s", triple.Subject.String(), triple.Predicate.String(), triple.Object.String())
			if seen[key] {
				continue
			}
			seen[key] = true
			triples = append(triples, triple)
		}
	}
	return triples, nil
}

// Describe runs the Concise Bounded Description for each resource:
// every triple with that resource as subject (spec.md §6 "DESCRIBE").
func Describe(ctx context.Context, facade *store.Facade, resources []*rdf.NamedNode) ([]*rdf.Triple, error) {
	seen := make(map[string]bool)
	var triples []*rdf.Triple
	for _, resource := range resources {
		wherePatterns := []algebra.TriplePattern{
			{
				Subject:   algebra.IRITerm(resource),
				Predicate: algebra.VarTermNamed("p"),
				Object:    algebra.VarTermNamed("o"),
			},
		}
		template := []TemplateTriple{
			{
				Subject:   algebra.IRITerm(resource),
				Predicate: algebra.VarTermNamed("p"),
				Object:    algebra.VarTermNamed("o"),
			},
		}
		found, err := Execute(ctx, facade, wherePatterns, template)
		if err != nil {
			return nil, err
		}
		for _, triple := range found {
			key := fmt.Sprintf("%s|%s|%s", triple.Subject.String(), triple.Predicate.String(), triple.Object.String())
			if seen[key] {
				continue
			}
			seen[key] = true
			triples = append(triples, triple)
		}
	}
	return triples, nil
}

func templateVars(template []TemplateTriple) []string {
	seen := make(map[string]bool)
	var vars []string
	add := func(t algebra.Term) {
		if t.IsVariable() && !seen[t.Var.Name] {
			seen[t.Var.Name] = true
			vars = append(vars, t.Var.Name)
		}
	}
	for _, tt := range template {
		add(tt.Subject)
		add(tt.Predicate)
		add(tt.Object)
	}
	return vars
}

func bindRow(columns []compiler.ColumnPlan, terms []rdf.Term) map[string]rdf.Term {
	binding := make(map[string]rdf.Term, len(columns))
	for i, col := range columns {
		binding[col.Variable] = terms[i]
	}
	return binding
}

// instantiate resolves tt's three positions against binding. A
// position bound to a constant passes through unchanged; a position
// bound to a WHERE-clause variable resolves from binding, and the
// whole triple is rejected if that variable's slot is nil (unbound or
// decoded to the reserved Resource label).
func instantiate(tt TemplateTriple, binding map[string]rdf.Term, freshBlanks map[string]*rdf.BlankNode) (*rdf.Triple, bool) {
	subject, ok := resolveNode(tt.Subject, binding, freshBlanks)
	if !ok {
		return nil, false
	}
	predicateTerm, ok := resolveNode(tt.Predicate, binding, freshBlanks)
	if !ok {
		return nil, false
	}
	predicate, ok := predicateTerm.(*rdf.NamedNode)
	if !ok {
		return nil, false
	}
	object, ok := resolveNode(tt.Object, binding, freshBlanks)
	if !ok {
		return nil, false
	}
	return rdf.NewTriple(subject, predicate, object), true
}

func resolveNode(t algebra.Term, binding map[string]rdf.Term, freshBlanks map[string]*rdf.BlankNode) (rdf.Term, bool) {
	if t.IsVariable() {
		bound, ok := binding[t.Var.Name]
		if !ok || bound == nil {
			return nil, false
		}
		return bound, true
	}
	if t.Blank != nil {
		fresh, ok := freshBlanks[t.Blank.ID]
		if !ok {
			fresh = rdf.NewSessionBlankNode()
			freshBlanks[t.Blank.ID] = fresh
		}
		return fresh, true
	}
	return t.RDFTerm(), true
}
