// Package exprtranslate implements the Expression Translator
// (spec.md §4.3): it compiles the supported subset of SPARQL filter
// expressions into a Cypher boolean fragment plus a parameter map, and
// reports errs.Untranslatable for anything outside that subset.
//
// Supported: comparison (=, !=, <, <=, >, >=), logical (AND, OR, NOT),
// numeric/string/boolean literals, and bound variables that resolve to
// an indexed property or node URI in the enclosing BGP plan (spec.md
// §4.3). Unsupported: regex, str, bound, isURI, lang, datatype,
// arithmetic, and any function call other than the recognized
// GeoSPARQL subset (delegated to internal/geo).
package exprtranslate

import (
	"fmt"

	"github.com/falkordb/go-sparql-adapter/internal/errs"
	"github.com/falkordb/go-sparql-adapter/internal/geo"
	"github.com/falkordb/go-sparql-adapter/pkg/algebra"
	"github.com/falkordb/go-sparql-adapter/pkg/rdf"
)

// VarBinding describes how a bound SPARQL variable reads in Cypher:
// either a property accessor (`n.\`age\``) or a node's URI
// (`n.uri`).
type VarBinding struct {
	CypherExpr string
}

// Context carries the variable → Cypher-expression map built by the
// Pattern Compiler for the surrounding BGP, plus a counter used to
// mint collision-free parameter names across nested expressions.
type Context struct {
	Vars      map[string]VarBinding
	ParamSeq  *int
	ParamBase string // prefix for parameter names, e.g. branch suffix
}

// NewContext creates an expression-translation context scoped to one
// compiled BGP.
func NewContext(vars map[string]VarBinding, paramBase string) *Context {
	seq := 0
	return &Context{Vars: vars, ParamSeq: &seq, ParamBase: paramBase}
}

func (c *Context) nextParam() string {
	*c.ParamSeq++
	return fmt.Sprintf("%sf%d", c.ParamBase, *c.ParamSeq)
}

// Translate compiles expr into a Cypher boolean fragment. On success
// it returns the fragment and the parameters it references. On
// failure it returns errs.Untranslatable and the caller must fall
// back — translation never panics and never returns malformed Cypher.
func Translate(ctx *Context, expr algebra.Expression) (fragment string, params map[string]any, err error) {
	switch e := expr.(type) {
	case *algebra.BinaryExpression:
		return translateBinary(ctx, e)
	case *algebra.UnaryExpression:
		return translateUnary(ctx, e)
	case *algebra.VariableExpression:
		return translateVariable(ctx, e)
	case *algebra.LiteralExpression:
		return translateLiteral(ctx, e)
	case *algebra.FunctionCallExpression:
		return translateFunctionCall(ctx, e)
	default:
		return "", nil, errs.NewUntranslatable("FILTER", fmt.Sprintf("unknown expression node %T", expr))
	}
}

func translateBinary(ctx *Context, e *algebra.BinaryExpression) (string, map[string]any, error) {
	op, ok := cypherBinaryOp(e.Operator)
	if !ok {
		return "", nil, errs.NewUntranslatable("FILTER", fmt.Sprintf("unsupported operator %s", e.Operator))
	}

	left, leftParams, err := Translate(ctx, e.Left)
	if err != nil {
		return "", nil, err
	}
	right, rightParams, err := Translate(ctx, e.Right)
	if err != nil {
		return "", nil, err
	}

	params := merge(leftParams, rightParams)
	return fmt.Sprintf("(%s %s %s)", left, op, right), params, nil
}

func cypherBinaryOp(op algebra.Operator) (string, bool) {
	switch op {
	case algebra.OpAnd:
		return "AND", true
	case algebra.OpOr:
		return "OR", true
	case algebra.OpEqual:
		return "=", true
	case algebra.OpNotEqual:
		return "<>", true
	case algebra.OpLessThan:
		return "<", true
	case algebra.OpLessThanOrEqual:
		return "<=", true
	case algebra.OpGreaterThan:
		return ">", true
	case algebra.OpGreaterThanOrEqual:
		return ">=", true
	default:
		// Arithmetic (+ - * /) is only disallowed inside BIND per
		// spec.md §4.3; as a bare comparison operand it is still
		// outside the supported subset for this core.
		return "", false
	}
}

func translateUnary(ctx *Context, e *algebra.UnaryExpression) (string, map[string]any, error) {
	if e.Operator != algebra.OpNot {
		return "", nil, errs.NewUntranslatable("FILTER", fmt.Sprintf("unsupported unary operator %s", e.Operator))
	}
	operand, params, err := Translate(ctx, e.Operand)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("NOT (%s)", operand), params, nil
}

func translateVariable(ctx *Context, e *algebra.VariableExpression) (string, map[string]any, error) {
	binding, ok := ctx.Vars[e.Variable.Name]
	if !ok {
		return "", nil, errs.NewUntranslatable("FILTER", fmt.Sprintf("variable %s not bound in surrounding pattern", e.Variable))
	}
	return binding.CypherExpr, nil, nil
}

func translateLiteral(ctx *Context, e *algebra.LiteralExpression) (string, map[string]any, error) {
	name := ctx.nextParam()
	value, err := literalValue(e.Literal)
	if err != nil {
		return "", nil, err
	}
	return "$" + name, map[string]any{name: value}, nil
}

func literalValue(term rdf.Term) (any, error) {
	lit, ok := term.(*rdf.Literal)
	if !ok {
		return nil, errs.NewUntranslatable("FILTER", fmt.Sprintf("non-literal constant %T", term))
	}
	if lit.Datatype == nil {
		return lit.Value, nil
	}
	switch lit.Datatype.IRI {
	case rdf.XSDInteger.IRI, rdf.XSDDecimal.IRI, rdf.XSDDouble.IRI:
		var f float64
		if _, err := fmt.Sscanf(lit.Value, "%g", &f); err != nil {
			return nil, errs.NewUntranslatable("FILTER", fmt.Sprintf("malformed numeric literal %q", lit.Value))
		}
		return f, nil
	case rdf.XSDBoolean.IRI:
		return lit.Value == "true", nil
	default:
		return lit.Value, nil
	}
}

// translateFunctionCall recognizes only the GeoSPARQL function family
// named in spec.md §4.4.f; every other function call is
// untranslatable (REGEX, STR-as-function-syntax, etc. included).
func translateFunctionCall(ctx *Context, e *algebra.FunctionCallExpression) (string, map[string]any, error) {
	switch e.Function {
	case "geof:distance":
		return translateGeofDistance(ctx, e)
	case "geof:sfWithin", "geof:sfContains", "geof:sfIntersects":
		return translateGeofRelation(ctx, e)
	default:
		return "", nil, errs.NewUntranslatable("FILTER", fmt.Sprintf("unsupported function %s", e.Function))
	}
}

func translateGeofDistance(ctx *Context, e *algebra.FunctionCallExpression) (string, map[string]any, error) {
	if len(e.Arguments) != 2 {
		return "", nil, errs.NewUntranslatable("FILTER", "geof:distance requires exactly two geometry arguments")
	}
	exprA, paramsA, err := geoOperandExpr(ctx, e.Arguments[0])
	if err != nil {
		return "", nil, err
	}
	exprB, paramsB, err := geoOperandExpr(ctx, e.Arguments[1])
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("distance(%s, %s)", exprA, exprB), merge(paramsA, paramsB), nil
}

// geoOperand is one resolved geof:* argument: a Cypher expression that
// evaluates to a point value, or a parsed bounding box. Exactly one of
// the two is set.
type geoOperand struct {
	point *string
	bbox  *geo.BBox
}

// translateGeofRelation compiles sfWithin/sfContains/sfIntersects
// against the point/bounding-box primitives the Geospatial Translator
// exposes (spec.md §4.4.f, §4.5): a point argument tested against a
// bounding-box argument becomes the BBox pushdown's four-comparison
// fragment; two point arguments can only satisfy any of the three
// predicates by coinciding, so that case degenerates to an exact
// distance-zero test. Two non-point geometries (bbox vs bbox) are
// outside what this representation can express.
func translateGeofRelation(ctx *Context, e *algebra.FunctionCallExpression) (string, map[string]any, error) {
	if len(e.Arguments) != 2 {
		return "", nil, errs.NewUntranslatable("FILTER", fmt.Sprintf("%s requires exactly two geometry arguments", e.Function))
	}

	a, aParams, err := resolveGeoOperand(ctx, e.Arguments[0])
	if err != nil {
		return "", nil, err
	}
	b, bParams, err := resolveGeoOperand(ctx, e.Arguments[1])
	if err != nil {
		return "", nil, err
	}
	params := merge(aParams, bParams)

	// sfContains(A, B) ("A contains B") is sfWithin(B, A) ("B is
	// within A") with the operands swapped.
	if e.Function == "geof:sfContains" {
		a, b = b, a
	}
	// Normalize so the bounding-box operand, if any, is always b: a
	// caller's argument order otherwise leaves it in either position
	// for sfIntersects.
	if a.bbox != nil && b.point != nil {
		a, b = b, a
	}

	switch {
	case a.point != nil && b.bbox != nil:
		name := ctx.nextParam()
		fragment, bboxParams := geo.BoundingBoxCypher(*a.point+".latitude", *a.point+".longitude", name, *b.bbox)
		return fragment, merge(params, bboxParams), nil
	case a.point != nil && b.point != nil:
		name := ctx.nextParam()
		fragment, distParams := geo.DistanceCypher(*a.point, *b.point, "=", 0, name)
		return fragment, merge(params, distParams), nil
	default:
		return "", nil, errs.NewUntranslatable("FILTER", fmt.Sprintf("%s between two non-point geometries is not supported", e.Function))
	}
}

// resolveGeoOperand resolves one geof:* argument to a point expression
// or a bounding box: a bound variable always reads back as a point
// (spec.md §4.5's single-value property storage has no bbox shape of
// its own), while a WKT literal resolves per ParseWKT's POINT-vs-bbox
// split.
func resolveGeoOperand(ctx *Context, arg algebra.Expression) (geoOperand, map[string]any, error) {
	switch a := arg.(type) {
	case *algebra.VariableExpression:
		binding, ok := ctx.Vars[a.Variable.Name]
		if !ok {
			return geoOperand{}, nil, errs.NewUntranslatable("FILTER", fmt.Sprintf("variable %s not bound", a.Variable))
		}
		expr := binding.CypherExpr
		return geoOperand{point: &expr}, nil, nil
	case *algebra.LiteralExpression:
		lit, ok := a.Literal.(*rdf.Literal)
		if !ok {
			return geoOperand{}, nil, errs.NewUntranslatable("FILTER", "geof argument must be a WKT literal or bound variable")
		}
		parsed, err := geo.ParseWKT(lit.Value)
		if err != nil {
			return geoOperand{}, nil, errs.NewUntranslatable("FILTER", err.Error())
		}
		if parsed.BBox != nil {
			return geoOperand{bbox: parsed.BBox}, nil, nil
		}
		name := ctx.nextParam()
		fragment, params := geo.PointCypher(name, *parsed.Point)
		return geoOperand{point: &fragment}, params, nil
	default:
		return geoOperand{}, nil, errs.NewUntranslatable("FILTER", fmt.Sprintf("unsupported geof argument %T", arg))
	}
}

// geoOperandExpr resolves a geof:* function argument to a Cypher
// `point({...})` expression: either a bound variable holding a point
// property, or a literal WKT string parsed via internal/geo.
func geoOperandExpr(ctx *Context, arg algebra.Expression) (string, map[string]any, error) {
	switch a := arg.(type) {
	case *algebra.VariableExpression:
		binding, ok := ctx.Vars[a.Variable.Name]
		if !ok {
			return "", nil, errs.NewUntranslatable("FILTER", fmt.Sprintf("variable %s not bound", a.Variable))
		}
		return binding.CypherExpr, nil, nil
	case *algebra.LiteralExpression:
		lit, ok := a.Literal.(*rdf.Literal)
		if !ok {
			return "", nil, errs.NewUntranslatable("FILTER", "geof argument must be a WKT literal or bound variable")
		}
		geom, err := geo.ParseWKT(lit.Value)
		if err != nil {
			return "", nil, errs.NewUntranslatable("FILTER", err.Error())
		}
		name := ctx.nextParam()
		fragment, params := geo.PointCypher(name, geom.RepresentativePoint())
		return fragment, params, nil
	default:
		return "", nil, errs.NewUntranslatable("FILTER", fmt.Sprintf("unsupported geof argument %T", arg))
	}
}

func merge(maps ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
