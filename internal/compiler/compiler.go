// Package compiler implements the Pattern Compiler (spec.md §4.4), the
// heart of the core: it turns BGP / FILTER / OPTIONAL / UNION / GROUP
// algebra shapes into a single parameterized Cypher statement plus a
// column-type descriptor, using the Variable Analyzer, Expression
// Translator, and Geospatial Translator. Every entry point is total —
// it returns either a Plan or an *errs.Untranslatable, never a panic.
package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/falkordb/go-sparql-adapter/internal/analyzer"
	"github.com/falkordb/go-sparql-adapter/internal/codec"
	"github.com/falkordb/go-sparql-adapter/internal/errs"
	"github.com/falkordb/go-sparql-adapter/internal/exprtranslate"
	"github.com/falkordb/go-sparql-adapter/pkg/algebra"
	"github.com/falkordb/go-sparql-adapter/pkg/rdf"
)

// maxAmbiguousBranchVars bounds the 2^N branch explosion for
// multi-triple BGPs carrying AMBIGUOUS variables (spec.md §4.4.a).
const maxAmbiguousBranchVars = 4

// ColumnPlan names one RETURN column and how the Triple Codec should
// decode it.
type ColumnPlan struct {
	Variable string
	Type     codec.ColumnType
}

// Plan is a fully compiled statement: Cypher text, its parameter map,
// and the column descriptor DecodeRow needs.
type Plan struct {
	Cypher  string
	Params  map[string]any
	Columns []ColumnPlan
}

// binding describes how a bound variable reads back as a Cypher
// expression, and what kind of RDF term it decodes to.
type binding struct {
	expr    string
	colType codec.ColumnType
}

// builder accumulates MATCH patterns, WHERE clauses, parameters, and
// variable bindings for one BGP compilation.
type builder struct {
	aliasOf      map[string]string // "var:name" | "const:uri" -> node alias
	nodeSeq      int
	paramSeq     int
	paramSuffix  string
	params       map[string]any
	matchParts   []string
	extraLabels  map[string][]string // alias -> extra label names applied via SET-less label match
	whereParts   []string
	withParts    []string // UNWIND-style pipeline stages that must precede RETURN
	bindings     map[string]binding
	usedFallback bool // set when a predicate-variable row required a distinct pipeline
}

func newBuilder(paramSuffix string) *builder {
	return &builder{
		aliasOf:     make(map[string]string),
		extraLabels: make(map[string][]string),
		params:      make(map[string]any),
		bindings:    make(map[string]binding),
		paramSuffix: paramSuffix,
	}
}

func (b *builder) newParam(value any) string {
	b.paramSeq++
	name := fmt.Sprintf("p%s%d", b.paramSuffix, b.paramSeq)
	b.params[name] = value
	return name
}

func nodeKey(t algebra.Term) (string, error) {
	switch {
	case t.IsVariable():
		return "var:" + t.Var.Name, nil
	case t.IRI != nil:
		return "const:" + t.IRI.IRI, nil
	case t.Blank != nil:
		return "const:" + rdf.BlankNodePrefix + t.Blank.ID, nil
	default:
		return "", fmt.Errorf("term is a literal, cannot be a node position")
	}
}

// nodeAlias returns the Cypher alias for t, creating it (and its
// `{uri: $p}` constraint, if t is concrete) on first use.
func (b *builder) nodeAlias(t algebra.Term) (string, error) {
	key, err := nodeKey(t)
	if err != nil {
		return "", err
	}
	if alias, ok := b.aliasOf[key]; ok {
		return alias, nil
	}

	alias := fmt.Sprintf("n%d", b.nodeSeq)
	b.nodeSeq++
	b.aliasOf[key] = alias

	if t.IsVariable() {
		b.matchParts = append(b.matchParts, fmt.Sprintf("(%s:%s)", alias, codec.ResourceLabel))
		b.bindings[t.Var.Name] = binding{expr: alias + ".uri", colType: codec.NodeUri}
		return alias, nil
	}

	uri := concreteURI(t)
	param := b.newParam(uri)
	b.matchParts = append(b.matchParts, fmt.Sprintf("(%s:%s {uri: $%s})", alias, codec.ResourceLabel, param))
	return alias, nil
}

func concreteURI(t algebra.Term) string {
	if t.IRI != nil {
		return t.IRI.IRI
	}
	return rdf.BlankNodePrefix + t.Blank.ID
}

// literalPropertyExpr projects a literal property alongside its
// __datatype sidecar as a two-element list, so the decoded cell still
// carries the sidecar even though it is read back through a single
// RETURN column. codec.DecodeRow unpacks the pair and threads the
// second element into BuildLiteral's datatypeIRI argument (spec.md §3
// "Literal encoding").
func literalPropertyExpr(subjAlias, predIRI string) string {
	return fmt.Sprintf("[%s.`%s`, %s.`%s`]", subjAlias, predIRI, subjAlias, predIRI+codec.DatatypeSidecarSuffix)
}

// dynamicLiteralPropertyExpr is literalPropertyExpr for the
// variable-predicate property branch, where the property key itself is
// a bound Cypher expression (keyExpr) rather than a literal name.
func dynamicLiteralPropertyExpr(subjAlias, keyExpr string) string {
	return fmt.Sprintf("[%s[%s], %s[%s + '%s']]", subjAlias, keyExpr, subjAlias, keyExpr, codec.DatatypeSidecarSuffix)
}

func (b *builder) addExtraLabel(alias, label string) {
	for _, existing := range b.extraLabels[alias] {
		if existing == label {
			return
		}
	}
	b.extraLabels[alias] = append(b.extraLabels[alias], label)
}

// render folds any accumulated extra labels into their node's MATCH
// pattern and returns the final MATCH clause text.
func (b *builder) renderMatch() string {
	parts := make([]string, len(b.matchParts))
	copy(parts, b.matchParts)
	for alias, labels := range b.extraLabels {
		for i, part := range parts {
			marker := "(" + alias + ":"
			if strings.HasPrefix(part, marker) || strings.Contains(part, marker) {
				for _, l := range labels {
					part = strings.Replace(part, alias+":", fmt.Sprintf("%s:`%s`:", alias, l), 1)
				}
				parts[i] = part
			}
		}
	}
	return strings.Join(parts, ", ")
}

// ambiguousMode fixes how an AMBIGUOUS variable is treated for one
// branch: "edge" (resource endpoint) or "property" (literal value).
type ambiguousMode string

const (
	modeEdge     ambiguousMode = "edge"
	modeProperty ambiguousMode = "property"
)

// compilePatterns lowers patterns into the builder's MATCH/WHERE/bind
// state. fixed supplies the resolved mode for every AMBIGUOUS
// variable present; an AMBIGUOUS variable absent from fixed is an
// error (the caller must branch before calling this).
func (b *builder) compilePatterns(patterns []algebra.TriplePattern, roles *analyzer.Result, fixed map[string]ambiguousMode) error {
	for _, p := range patterns {
		if p.Predicate.IsVariable() {
			return fmt.Errorf("predicate variable %s only supported in single-triple BGPs", p.Predicate.Var)
		}
		predIRI := p.Predicate.IRI.IRI
		isRDFType := p.Predicate.IRI.Equals(rdf.RDFType)

		switch {
		case p.Object.Literal != nil:
			if err := b.compileLiteralEquality(p, predIRI); err != nil {
				return err
			}
		case isRDFType && p.Object.IsVariable():
			if err := b.compileTypeEnumeration(p); err != nil {
				return err
			}
		case isRDFType && (p.Object.IRI != nil):
			subjAlias, err := b.nodeAlias(p.Subject)
			if err != nil {
				return err
			}
			b.addExtraLabel(subjAlias, p.Object.IRI.IRI)
		case p.Object.IsVariable():
			if err := b.compileObjectVariable(p, predIRI, roles, fixed); err != nil {
				return err
			}
		case p.Object.IRI != nil || p.Object.Blank != nil:
			subjAlias, err := b.nodeAlias(p.Subject)
			if err != nil {
				return err
			}
			objAlias, err := b.nodeAlias(p.Object)
			if err != nil {
				return err
			}
			b.matchParts = append(b.matchParts, fmt.Sprintf("(%s)-[:`%s`]->(%s)", subjAlias, predIRI, objAlias))
		default:
			return fmt.Errorf("unrecognized object position in triple pattern")
		}
	}
	return nil
}

func (b *builder) compileLiteralEquality(p algebra.TriplePattern, predIRI string) error {
	subjAlias, err := b.nodeAlias(p.Subject)
	if err != nil {
		return err
	}
	valueParam := b.newParam(p.Object.Literal.Value)
	cond := fmt.Sprintf("%s.`%s` = $%s", subjAlias, predIRI, valueParam)
	if p.Object.Literal.Datatype != nil && !rdf.IsPrimitiveDatatype(p.Object.Literal.Datatype.IRI) {
		dtParam := b.newParam(p.Object.Literal.Datatype.IRI)
		cond += fmt.Sprintf(" AND %s.`%s` = $%s", subjAlias, predIRI+codec.DatatypeSidecarSuffix, dtParam)
	}
	b.whereParts = append(b.whereParts, cond)
	return nil
}

// compileTypeEnumeration handles `?s rdf:type ?t`: enumerate s's
// labels, excluding the reserved Resource label.
func (b *builder) compileTypeEnumeration(p algebra.TriplePattern) error {
	subjAlias, err := b.nodeAlias(p.Subject)
	if err != nil {
		return err
	}
	typeVar := p.Object.Var.Name
	labelAlias := "t_" + typeVar
	b.withParts = append(b.withParts, fmt.Sprintf(
		"UNWIND labels(%s) AS %s WITH %s WHERE %s <> '%s'",
		subjAlias, labelAlias, labelAlias, labelAlias, codec.ResourceLabel,
	))
	b.bindings[typeVar] = binding{expr: labelAlias, colType: codec.TypeLabel}
	return nil
}

func (b *builder) compileObjectVariable(p algebra.TriplePattern, predIRI string, roles *analyzer.Result, fixed map[string]ambiguousMode) error {
	varName := p.Object.Var.Name
	role := roles.Role(varName)

	switch role {
	case analyzer.NODE:
		subjAlias, err := b.nodeAlias(p.Subject)
		if err != nil {
			return err
		}
		objAlias, err := b.nodeAlias(p.Object)
		if err != nil {
			return err
		}
		b.matchParts = append(b.matchParts, fmt.Sprintf("(%s)-[:`%s`]->(%s)", subjAlias, predIRI, objAlias))
		return nil
	case analyzer.AMBIGUOUS:
		mode, ok := fixed[varName]
		if !ok {
			return fmt.Errorf("ambiguous variable %s requires branch resolution before compilation", p.Object.Var)
		}
		if mode == modeEdge {
			subjAlias, err := b.nodeAlias(p.Subject)
			if err != nil {
				return err
			}
			objAlias, err := b.nodeAlias(p.Object)
			if err != nil {
				return err
			}
			b.matchParts = append(b.matchParts, fmt.Sprintf("(%s)-[:`%s`]->(%s)", subjAlias, predIRI, objAlias))
			return nil
		}
		subjAlias, err := b.nodeAlias(p.Subject)
		if err != nil {
			return err
		}
		b.whereParts = append(b.whereParts, fmt.Sprintf("%s.`%s` IS NOT NULL", subjAlias, predIRI))
		b.bindings[varName] = binding{expr: literalPropertyExpr(subjAlias, predIRI), colType: codec.LiteralValue}
		return nil
	default:
		return fmt.Errorf("variable %s in object position classified %s, expected NODE or AMBIGUOUS", p.Object.Var, role)
	}
}

func ambiguousVarNames(roles *analyzer.Result) []string {
	var names []string
	for _, name := range roles.Variables() {
		if roles.Role(name) == analyzer.AMBIGUOUS {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func hasNodeVarRelationship(patterns []algebra.TriplePattern, roles *analyzer.Result) bool {
	for _, p := range patterns {
		if p.Predicate.IsVariable() {
			continue
		}
		if p.Subject.IsVariable() && roles.Role(p.Subject.Var.Name) == analyzer.NODE &&
			p.Object.IsVariable() && roles.Role(p.Object.Var.Name) == analyzer.NODE {
			return true
		}
	}
	return false
}

// CompileBGP compiles a Basic Graph Pattern (spec.md §4.4.a). outputVars
// names the variables the caller needs projected; it need not be every
// variable in patterns.
func CompileBGP(patterns []algebra.TriplePattern, outputVars []string) (*Plan, error) {
	builders, err := compileToBuilders(patterns)
	if err != nil {
		return nil, err
	}
	return finishAndUnion(builders, outputVars)
}

// compileToBuilders lowers patterns into one builder per independent
// UNION branch the BGP requires: one for a plain BGP, two for a
// single-triple AMBIGUOUS object, three for a single-triple variable
// predicate, or 2^N for a multi-triple BGP with N AMBIGUOUS variables.
// Every returned builder still needs finish() called on it — callers
// that need to splice in a FILTER fragment (CompileFilter) do so
// against each builder's raw bindings before finishing.
func compileToBuilders(patterns []algebra.TriplePattern) ([]*builder, error) {
	if len(patterns) == 0 {
		return nil, errs.NewUntranslatable("BGP", "empty pattern")
	}

	roles := analyzer.Analyze(patterns)

	if len(patterns) == 1 {
		p := patterns[0]
		if p.Predicate.IsVariable() {
			return variablePredicateBuilders(p)
		}
		if p.Object.IsVariable() && roles.Role(p.Object.Var.Name) == analyzer.AMBIGUOUS {
			return ambiguousSingleTripleBuilders(p, roles)
		}
	} else {
		for _, p := range patterns {
			if p.Predicate.IsVariable() {
				return nil, errs.NewUntranslatable("BGP", "predicate variable only supported in single-triple BGPs")
			}
		}
	}

	ambiguous := ambiguousVarNames(roles)
	if len(ambiguous) > 0 {
		if !hasNodeVarRelationship(patterns, roles) {
			return nil, errs.NewUntranslatable("BGP", "ambiguous variable with no accompanying node relationship")
		}
		if len(ambiguous) > maxAmbiguousBranchVars {
			return nil, errs.NewUntranslatable("BGP", fmt.Sprintf("%d ambiguous variables exceeds the %d-variable branch cap", len(ambiguous), maxAmbiguousBranchVars))
		}
		return ambiguousBranchBuilders(patterns, roles, ambiguous)
	}

	b := newBuilder("")
	if err := b.compilePatterns(patterns, roles, nil); err != nil {
		return nil, errs.NewUntranslatable("BGP", err.Error())
	}
	return []*builder{b}, nil
}

// finishAndUnion finishes every builder and combines more than one
// into a single UNION ALL plan.
func finishAndUnion(builders []*builder, outputVars []string) (*Plan, error) {
	plans := make([]*Plan, len(builders))
	for i, b := range builders {
		plan, err := b.finish(outputVars)
		if err != nil {
			return nil, err
		}
		plans[i] = plan
	}
	if len(plans) == 1 {
		return plans[0], nil
	}
	return unionAll(plans)
}

// finish projects outputVars from the builder's accumulated bindings
// and renders the final Cypher text.
func (b *builder) finish(outputVars []string) (*Plan, error) {
	return b.finishWithKeyword(outputVars, "RETURN")
}

// finishWithKeyword is finish, but lets the caller end the statement
// with WITH instead of RETURN so a further clause (GROUP BY's
// aggregation RETURN) can be appended afterward, referencing the
// projected columns by their backtick-quoted names.
func (b *builder) finishWithKeyword(outputVars []string, keyword string) (*Plan, error) {
	columns := make([]ColumnPlan, 0, len(outputVars))
	projExprs := make([]string, 0, len(outputVars))
	for _, v := range outputVars {
		bind, ok := b.bindings[v]
		if !ok {
			return nil, errs.NewUntranslatable("BGP", fmt.Sprintf("output variable %s never bound", v))
		}
		columns = append(columns, ColumnPlan{Variable: v, Type: bind.colType})
		projExprs = append(projExprs, fmt.Sprintf("%s AS `%s`", bind.expr, v))
	}

	var sb strings.Builder
	sb.WriteString("MATCH ")
	sb.WriteString(b.renderMatch())
	if len(b.whereParts) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.whereParts, " AND "))
	}
	for _, w := range b.withParts {
		sb.WriteString(" ")
		sb.WriteString(w)
	}
	sb.WriteString(" ")
	sb.WriteString(keyword)
	sb.WriteString(" ")
	if len(projExprs) == 0 {
		sb.WriteString("1")
	} else {
		sb.WriteString(strings.Join(projExprs, ", "))
	}

	return &Plan{Cypher: sb.String(), Params: b.params, Columns: columns}, nil
}

// ambiguousSingleTripleBuilders builds the two branches (edge /
// property) for a single triple whose object is AMBIGUOUS (spec.md
// §4.4.a, last row).
func ambiguousSingleTripleBuilders(p algebra.TriplePattern, roles *analyzer.Result) ([]*builder, error) {
	return unionOfModeBuilders(p, roles, []ambiguousMode{modeEdge, modeProperty})
}

func unionOfModeBuilders(p algebra.TriplePattern, roles *analyzer.Result, modes []ambiguousMode) ([]*builder, error) {
	varName := p.Object.Var.Name
	builders := make([]*builder, 0, len(modes))
	for i, mode := range modes {
		b := newBuilder(fmt.Sprintf("b%d_", i))
		if err := b.compilePatterns([]algebra.TriplePattern{p}, roles, map[string]ambiguousMode{varName: mode}); err != nil {
			return nil, errs.NewUntranslatable("BGP", err.Error())
		}
		builders = append(builders, b)
	}
	return builders, nil
}

// ambiguousBranchBuilders builds the 2^N branches for a multi-triple
// BGP carrying up to maxAmbiguousBranchVars AMBIGUOUS variables
// (spec.md §4.4.a).
func ambiguousBranchBuilders(patterns []algebra.TriplePattern, roles *analyzer.Result, ambiguous []string) ([]*builder, error) {
	combos := branchCombinations(ambiguous)
	builders := make([]*builder, 0, len(combos))
	for i, combo := range combos {
		b := newBuilder(fmt.Sprintf("b%d_", i))
		if err := b.compilePatterns(patterns, roles, combo); err != nil {
			return nil, errs.NewUntranslatable("BGP", err.Error())
		}
		builders = append(builders, b)
	}
	return builders, nil
}

func branchCombinations(vars []string) []map[string]ambiguousMode {
	n := len(vars)
	combos := make([]map[string]ambiguousMode, 0, 1<<uint(n))
	for mask := 0; mask < (1 << uint(n)); mask++ {
		combo := make(map[string]ambiguousMode, n)
		for i, v := range vars {
			if mask&(1<<uint(i)) != 0 {
				combo[v] = modeEdge
			} else {
				combo[v] = modeProperty
			}
		}
		combos = append(combos, combo)
	}
	return combos
}

func unionAll(plans []*Plan) (*Plan, error) {
	if len(plans) == 0 {
		return nil, errs.NewUntranslatable("BGP", "no branches produced")
	}
	cypherParts := make([]string, len(plans))
	params := make(map[string]any)
	for i, p := range plans {
		cypherParts[i] = p.Cypher
		for k, v := range p.Params {
			params[k] = v
		}
	}
	return &Plan{
		Cypher:  strings.Join(cypherParts, " UNION ALL "),
		Params:  params,
		Columns: plans[0].Columns,
	}, nil
}

// variablePredicateBuilders builds the three branches (edge /
// property / label-as-rdf:type) for a single triple whose predicate is
// a variable (spec.md §4.4.a).
func variablePredicateBuilders(p algebra.TriplePattern) ([]*builder, error) {
	subjVarName, subjIsVar := termVarName(p.Subject)
	predVarName := p.Predicate.Var.Name
	objVarName, objIsVar := termVarName(p.Object)

	// A concrete literal object can never be an edge target; that
	// branch contributes no rows rather than a relationship pattern
	// (which would have no literal endpoint to match against).
	edgeBuilder := newBuilder("b0_")
	if p.Object.Literal != nil {
		subjAlias, aliasErr := edgeBuilder.nodeAlias(p.Subject)
		if aliasErr != nil {
			return nil, errs.NewUntranslatable("BGP", aliasErr.Error())
		}
		edgeBuilder.whereParts = append(edgeBuilder.whereParts, "false")
		if subjIsVar {
			edgeBuilder.bindings[subjVarName] = binding{expr: subjAlias + ".uri", colType: codec.NodeUri}
		}
		edgeBuilder.bindings[predVarName] = binding{expr: "null", colType: codec.PredicateName}
	} else {
		subjPattern, subjAlias := edgeBuilder.nodePatternText(p.Subject, "n0")
		relAlias := "r0"
		objPattern, objAlias := edgeBuilder.nodePatternText(p.Object, "o0")
		edgeBuilder.matchParts = []string{fmt.Sprintf("(%s)-[%s]->(%s)", subjPattern, relAlias, objPattern)}
		if subjIsVar {
			edgeBuilder.bindings[subjVarName] = binding{expr: subjAlias + ".uri", colType: codec.NodeUri}
		}
		edgeBuilder.bindings[predVarName] = binding{expr: "type(" + relAlias + ")", colType: codec.PredicateName}
		if objIsVar {
			edgeBuilder.bindings[objVarName] = binding{expr: objAlias + ".uri", colType: codec.NodeUri}
		}
	}

	propBuilder := newBuilder("b1_")
	subjAlias2, err := propBuilder.nodeAlias(p.Subject)
	if err != nil {
		return nil, errs.NewUntranslatable("BGP", err.Error())
	}
	keyAlias := "k1"
	propBuilder.withParts = []string{fmt.Sprintf(
		"UNWIND [%s IN keys(%s) WHERE NOT %s ENDS WITH '%s'] AS %s",
		keyAlias, subjAlias2, keyAlias, codec.DatatypeSidecarSuffix, keyAlias,
	)}
	if subjIsVar {
		propBuilder.bindings[subjVarName] = binding{expr: subjAlias2 + ".uri", colType: codec.NodeUri}
	}
	propBuilder.bindings[predVarName] = binding{expr: keyAlias, colType: codec.PredicateName}
	propExpr := fmt.Sprintf("%s[%s]", subjAlias2, keyAlias)
	if objIsVar {
		propBuilder.bindings[objVarName] = binding{expr: dynamicLiteralPropertyExpr(subjAlias2, keyAlias), colType: codec.LiteralValue}
	} else if p.Object.Literal != nil {
		param := propBuilder.newParam(p.Object.Literal.Value)
		propBuilder.whereParts = append(propBuilder.whereParts, fmt.Sprintf("%s = $%s", propExpr, param))
	}

	labelBuilder := newBuilder("b2_")
	subjAlias3, err := labelBuilder.nodeAlias(p.Subject)
	if err != nil {
		return nil, errs.NewUntranslatable("BGP", err.Error())
	}
	labelAlias := "l2"
	labelBuilder.withParts = []string{fmt.Sprintf(
		"UNWIND labels(%s) AS %s WITH %s, %s WHERE %s <> '%s'",
		subjAlias3, labelAlias, subjAlias3, labelAlias, labelAlias, codec.ResourceLabel,
	)}
	rdfTypeParam := labelBuilder.newParam(rdf.RDFType.IRI)
	if subjIsVar {
		labelBuilder.bindings[subjVarName] = binding{expr: subjAlias3 + ".uri", colType: codec.NodeUri}
	}
	labelBuilder.bindings[predVarName] = binding{expr: "$" + rdfTypeParam, colType: codec.PredicateName}
	if objIsVar {
		labelBuilder.bindings[objVarName] = binding{expr: labelAlias, colType: codec.TypeLabel}
	}

	return []*builder{edgeBuilder, propBuilder, labelBuilder}, nil
}

func termVarName(t algebra.Term) (string, bool) {
	if t.IsVariable() {
		return t.Var.Name, true
	}
	return "", false
}

// nodePatternText renders a standalone node-pattern fragment (the text
// that goes inside a Cypher `(...)`) for t, using alias as its name.
// Unlike nodeAlias it does not consult or update b.aliasOf and does
// not append to b.matchParts: it is used by the variable-predicate
// edge branch, which inlines the pattern directly into a single
// relationship MATCH rather than a standalone node MATCH.
func (b *builder) nodePatternText(t algebra.Term, alias string) (patternText string, aliasOut string) {
	if t.IsVariable() {
		return fmt.Sprintf("%s:%s", alias, codec.ResourceLabel), alias
	}
	param := b.newParam(concreteURI(t))
	return fmt.Sprintf("%s:%s {uri: $%s}", alias, codec.ResourceLabel, param), alias
}

// CompileFilter translates expr against each underlying branch's raw
// variable bindings and appends the resulting condition to that
// branch's own WHERE clause before it is finished (spec.md §4.4.b).
// It must not reuse CompileBGP's already-finished Plan: a RETURN-alias
// name like `` `v` `` is not in scope for a WHERE clause that has to
// precede that same RETURN, so the filter has to be translated against
// the pre-RETURN Cypher expressions each builder already tracks.
func CompileFilter(patterns []algebra.TriplePattern, outputVars []string, expr algebra.Expression) (*Plan, error) {
	builders, err := compileToBuilders(patterns)
	if err != nil {
		return nil, err
	}

	for _, b := range builders {
		vars := make(map[string]exprtranslate.VarBinding, len(b.bindings))
		for name, bind := range b.bindings {
			vars[name] = exprtranslate.VarBinding{CypherExpr: bind.expr}
		}
		ctx := exprtranslate.NewContext(vars, b.paramSuffix+"f_")
		fragment, filterParams, err := exprtranslate.Translate(ctx, expr)
		if err != nil {
			return nil, err
		}
		b.whereParts = append(b.whereParts, fragment)
		for k, v := range filterParams {
			b.params[k] = v
		}
	}

	return finishAndUnion(builders, outputVars)
}

// CompileOptional compiles required BGP followed by an OPTIONAL MATCH
// for optionalPatterns (spec.md §4.4.c): LEFT_JOIN / SPARQL OPTIONAL.
func CompileOptional(required, optional []algebra.TriplePattern, outputVars []string) (*Plan, error) {
	roles := analyzer.Analyze(append(append([]algebra.TriplePattern{}, required...), optional...))

	b := newBuilder("")
	if err := b.compilePatterns(required, roles, nil); err != nil {
		return nil, errs.NewUntranslatable("OPTIONAL", err.Error())
	}
	requiredMatch := b.renderMatch()
	requiredWhere := b.whereParts

	var optionalClauses []string
	for _, p := range optional {
		if p.Predicate.IsVariable() {
			return nil, errs.NewUntranslatable("OPTIONAL", "predicate variable not supported inside OPTIONAL")
		}
		predIRI := p.Predicate.IRI.IRI

		switch {
		case p.Object.Literal != nil:
			subjAlias, err := b.nodeAlias(p.Subject)
			if err != nil {
				return nil, errs.NewUntranslatable("OPTIONAL", err.Error())
			}
			optionalClauses = append(optionalClauses, fmt.Sprintf("OPTIONAL MATCH (%s) WHERE %s.`%s` IS NOT NULL", subjAlias, subjAlias, predIRI))
		case p.Object.IsVariable():
			varName := p.Object.Var.Name
			role := roles.Role(varName)
			subjAlias, err := b.nodeAlias(p.Subject)
			if err != nil {
				return nil, errs.NewUntranslatable("OPTIONAL", err.Error())
			}
			switch role {
			case analyzer.NODE:
				objAlias, err := b.nodeAlias(p.Object)
				if err != nil {
					return nil, errs.NewUntranslatable("OPTIONAL", err.Error())
				}
				optionalClauses = append(optionalClauses, fmt.Sprintf("OPTIONAL MATCH (%s)-[:`%s`]->(%s)", subjAlias, predIRI, objAlias))
			default:
				b.bindings[varName] = binding{expr: literalPropertyExpr(subjAlias, predIRI), colType: codec.LiteralValue}
				optionalClauses = append(optionalClauses, fmt.Sprintf("OPTIONAL MATCH (%s) WHERE %s.`%s` IS NOT NULL", subjAlias, subjAlias, predIRI))
			}
		default:
			return nil, errs.NewUntranslatable("OPTIONAL", "unrecognized optional triple shape")
		}
	}

	columns := make([]ColumnPlan, 0, len(outputVars))
	returnExprs := make([]string, 0, len(outputVars))
	for _, v := range outputVars {
		bind, ok := b.bindings[v]
		if !ok {
			return nil, errs.NewUntranslatable("OPTIONAL", fmt.Sprintf("output variable %s never bound", v))
		}
		columns = append(columns, ColumnPlan{Variable: v, Type: bind.colType})
		returnExprs = append(returnExprs, fmt.Sprintf("%s AS `%s`", bind.expr, v))
	}

	var sb strings.Builder
	sb.WriteString("MATCH ")
	sb.WriteString(requiredMatch)
	if len(requiredWhere) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(requiredWhere, " AND "))
	}
	for _, clause := range optionalClauses {
		sb.WriteString(" ")
		sb.WriteString(clause)
	}
	sb.WriteString(" RETURN ")
	sb.WriteString(strings.Join(returnExprs, ", "))

	return &Plan{Cypher: sb.String(), Params: b.params, Columns: columns}, nil
}

// CompileUnion compiles left and right independently as BGPs and
// combines them with UNION ALL, renaming the right branch's
// parameters to avoid collisions (spec.md §4.4.d). Both branches must
// share outputVars.
func CompileUnion(left, right []algebra.TriplePattern, outputVars []string) (*Plan, error) {
	leftPlan, err := CompileBGP(left, outputVars)
	if err != nil {
		return nil, err
	}
	rightPlan, err := CompileBGP(right, outputVars)
	if err != nil {
		return nil, err
	}
	// Longest name first, so renaming $p1 never rewrites part of $p10.
	names := make([]string, 0, len(rightPlan.Params))
	for k := range rightPlan.Params {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	renamed := make(map[string]any, len(names))
	rightCypher := rightPlan.Cypher
	for _, k := range names {
		rightCypher = strings.ReplaceAll(rightCypher, "$"+k, "$u_"+k)
		renamed["u_"+k] = rightPlan.Params[k]
	}
	rightPlan = &Plan{Cypher: rightCypher, Params: renamed, Columns: rightPlan.Columns}
	return unionAll([]*Plan{leftPlan, rightPlan})
}

// CompileGroup compiles a GROUP BY / aggregation over a BGP inner
// shape (spec.md §4.4.e). Non-BGP inner shapes must be rejected by the
// caller before reaching this function — pass the inner BGP's patterns
// directly.
func CompileGroup(innerPatterns []algebra.TriplePattern, groupVars []*algebra.Variable, aggs []algebra.Aggregation) (*Plan, error) {
	groupNames := make([]string, len(groupVars))
	for i, v := range groupVars {
		groupNames[i] = v.Name
	}

	needed := append([]string{}, groupNames...)
	for _, a := range aggs {
		if a.Var != nil {
			needed = append(needed, a.Var.Name)
		}
	}
	needed = dedupe(needed)

	// GROUP BY's inner shape must be a plain BGP (spec.md §4.4.e:
	// "Non-BGP inner shapes fail"); a predicate-variable or
	// ambiguous-variable BGP compiles to a UNION ALL of independent
	// branches, which GROUP BY cannot aggregate across cleanly.
	roles := analyzer.Analyze(innerPatterns)
	for _, p := range innerPatterns {
		if p.Predicate.IsVariable() {
			return nil, errs.NewUntranslatable("GROUP", "predicate variable not supported as a GROUP BY inner shape")
		}
	}
	// An rdf:type object variable is AMBIGUOUS to the analyzer but
	// compiles to the labels UNWIND (compileTypeEnumeration), so it is
	// the one ambiguous shape GROUP BY accepts.
	typeVars := make(map[string]bool)
	for _, p := range innerPatterns {
		if p.Predicate.IRI != nil && p.Predicate.IRI.Equals(rdf.RDFType) && p.Object.IsVariable() {
			typeVars[p.Object.Var.Name] = true
		}
	}
	for _, name := range ambiguousVarNames(roles) {
		if !typeVars[name] {
			return nil, errs.NewUntranslatable("GROUP", "ambiguous variable not supported as a GROUP BY inner shape")
		}
	}

	b := newBuilder("")
	if err := b.compilePatterns(innerPatterns, roles, nil); err != nil {
		return nil, errs.NewUntranslatable("GROUP", err.Error())
	}
	inner, err := b.finishWithKeyword(needed, "WITH")
	if err != nil {
		return nil, err
	}

	returnExprs := make([]string, 0, len(groupNames)+len(aggs))
	columns := make([]ColumnPlan, 0, len(groupNames)+len(aggs))
	for _, name := range groupNames {
		returnExprs = append(returnExprs, fmt.Sprintf("`%s`", name))
		columns = append(columns, colFor(inner, name))
	}
	for _, a := range aggs {
		expr, col, err := aggregateExpr(a)
		if err != nil {
			return nil, err
		}
		returnExprs = append(returnExprs, expr)
		columns = append(columns, col)
	}

	cypher := inner.Cypher + " RETURN " + strings.Join(returnExprs, ", ")

	return &Plan{Cypher: cypher, Params: inner.Params, Columns: columns}, nil
}

func colFor(plan *Plan, name string) ColumnPlan {
	for _, c := range plan.Columns {
		if c.Variable == name {
			return c
		}
	}
	return ColumnPlan{Variable: name, Type: codec.LiteralValue}
}

func aggregateExpr(a algebra.Aggregation) (string, ColumnPlan, error) {
	outName := a.Out.Name
	distinct := ""
	if a.Distinct {
		distinct = "DISTINCT "
	}
	switch a.Func {
	case algebra.AggCountStar:
		return fmt.Sprintf("count(*) AS `%s`", outName), ColumnPlan{Variable: outName, Type: codec.LiteralValue}, nil
	case algebra.AggCount:
		return fmt.Sprintf("count(%s`%s`) AS `%s`", distinct, a.Var.Name, outName), ColumnPlan{Variable: outName, Type: codec.LiteralValue}, nil
	case algebra.AggSum:
		return fmt.Sprintf("sum(%s`%s`) AS `%s`", distinct, a.Var.Name, outName), ColumnPlan{Variable: outName, Type: codec.LiteralValue}, nil
	case algebra.AggAvg:
		return fmt.Sprintf("avg(%s`%s`) AS `%s`", distinct, a.Var.Name, outName), ColumnPlan{Variable: outName, Type: codec.LiteralValue}, nil
	case algebra.AggMin:
		return fmt.Sprintf("min(%s`%s`) AS `%s`", distinct, a.Var.Name, outName), ColumnPlan{Variable: outName, Type: codec.LiteralValue}, nil
	case algebra.AggMax:
		return fmt.Sprintf("max(%s`%s`) AS `%s`", distinct, a.Var.Name, outName), ColumnPlan{Variable: outName, Type: codec.LiteralValue}, nil
	default:
		return "", ColumnPlan{}, errs.NewUntranslatable("GROUP", fmt.Sprintf("unrecognized aggregate function %d", a.Func))
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
