package exprtranslate

import (
	"strings"
	"testing"

	"github.com/falkordb/go-sparql-adapter/internal/errs"
	"github.com/falkordb/go-sparql-adapter/pkg/algebra"
	"github.com/falkordb/go-sparql-adapter/pkg/rdf"
)

func mustContain(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}

func TestTranslateBinaryEqualityBindsParam(t *testing.T) {
	ctx := NewContext(map[string]VarBinding{"v": {CypherExpr: "s.`http://ex.org/age`"}}, "")
	expr := &algebra.BinaryExpression{
		Left:     &algebra.VariableExpression{Variable: algebra.NewVariable("v")},
		Operator: algebra.OpEqual,
		Right:    &algebra.LiteralExpression{Literal: rdf.NewIntegerLiteral(30)},
	}
	fragment, params, err := Translate(ctx, expr)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	mustContain(t, fragment, "s.`http://ex.org/age` = $")
	if len(params) != 1 {
		t.Fatalf("expected one bound param, got %v", params)
	}
}

func TestTranslateUnboundVariableIsUntranslatable(t *testing.T) {
	ctx := NewContext(map[string]VarBinding{}, "")
	expr := &algebra.VariableExpression{Variable: algebra.NewVariable("missing")}
	_, _, err := Translate(ctx, expr)
	if _, ok := err.(*errs.Untranslatable); !ok {
		t.Fatalf("expected Untranslatable, got %v", err)
	}
}

func geoLiteral(wkt string) *algebra.LiteralExpression {
	return &algebra.LiteralExpression{Literal: rdf.NewLiteral(wkt)}
}

func TestTranslateGeofSfWithinPointInBBoxProjectsFourComparisons(t *testing.T) {
	ctx := NewContext(map[string]VarBinding{
		"p": {CypherExpr: "point({latitude: s.`http://ex.org/lat`, longitude: s.`http://ex.org/lon`})"},
	}, "")
	expr := &algebra.FunctionCallExpression{
		Function: "geof:sfWithin",
		Arguments: []algebra.Expression{
			&algebra.VariableExpression{Variable: algebra.NewVariable("p")},
			geoLiteral("POLYGON((0 0, 0 2, 2 2, 2 0, 0 0))"),
		},
	}
	fragment, params, err := Translate(ctx, expr)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	mustContain(t, fragment, ".latitude >= $")
	mustContain(t, fragment, ".longitude >= $")
	if len(params) != 4 {
		t.Fatalf("expected 4 bbox params, got %v", params)
	}
}

func TestTranslateGeofSfContainsSwapsOperands(t *testing.T) {
	ctx := NewContext(map[string]VarBinding{
		"p": {CypherExpr: "point({latitude: s.`http://ex.org/lat`, longitude: s.`http://ex.org/lon`})"},
	}, "")
	expr := &algebra.FunctionCallExpression{
		Function: "geof:sfContains",
		Arguments: []algebra.Expression{
			geoLiteral("POLYGON((0 0, 0 2, 2 2, 2 0, 0 0))"),
			&algebra.VariableExpression{Variable: algebra.NewVariable("p")},
		},
	}
	fragment, _, err := Translate(ctx, expr)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	mustContain(t, fragment, ".latitude >= $")
}

func TestTranslateGeofSfIntersectsTwoPointsTestsCoincidence(t *testing.T) {
	ctx := NewContext(map[string]VarBinding{
		"p": {CypherExpr: "point({latitude: s.`http://ex.org/lat`, longitude: s.`http://ex.org/lon`})"},
	}, "")
	expr := &algebra.FunctionCallExpression{
		Function: "geof:sfIntersects",
		Arguments: []algebra.Expression{
			&algebra.VariableExpression{Variable: algebra.NewVariable("p")},
			geoLiteral("POINT(1 2)"),
		},
	}
	fragment, params, err := Translate(ctx, expr)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	mustContain(t, fragment, "distance(")
	mustContain(t, fragment, "= $")
	if len(params) != 3 {
		t.Fatalf("expected the literal point's lat/lon plus the zero threshold, got %v", params)
	}
}

func TestTranslateGeofSfWithinTwoBBoxesIsUntranslatable(t *testing.T) {
	ctx := NewContext(map[string]VarBinding{}, "")
	expr := &algebra.FunctionCallExpression{
		Function: "geof:sfWithin",
		Arguments: []algebra.Expression{
			geoLiteral("POLYGON((0 0, 0 1, 1 1, 1 0, 0 0))"),
			geoLiteral("POLYGON((0 0, 0 2, 2 2, 2 0, 0 0))"),
		},
	}
	_, _, err := Translate(ctx, expr)
	if _, ok := err.(*errs.Untranslatable); !ok {
		t.Fatalf("expected Untranslatable for bbox-vs-bbox, got %v", err)
	}
}
