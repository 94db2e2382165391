// Package escape implements the Cypher Escape Hatch (spec.md §4.8):
// executes a caller-supplied Cypher fragment verbatim and projects its
// columns onto SPARQL variables in declaration order, for queries the
// Pattern Compiler cannot express. The host SPARQL engine
// is responsible for parsing the embedded string; this package only
// runs it and decodes the result.
package escape

import (
	"context"
	"fmt"

	"github.com/falkordb/go-sparql-adapter/internal/errs"
	"github.com/falkordb/go-sparql-adapter/internal/store"
	"github.com/falkordb/go-sparql-adapter/pkg/rdf"
)

// Execute runs cypher against the store and binds its result columns,
// in declaration order, to vars. len(vars) must equal the number of
// columns cypher returns; a mismatch is reported as errs.StoreProtocol.
func Execute(ctx context.Context, facade *store.Facade, cypher string, params map[string]any, vars []string) ([]map[string]rdf.Term, error) {
	result, err := facade.Query(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	if len(result.Columns) != len(vars) {
		return nil, &errs.StoreProtocol{Detail: "escape hatch column count does not match the declared variable list"}
	}

	rows := make([]map[string]rdf.Term, 0, len(result.Rows))
	for _, row := range result.Rows {
		binding := make(map[string]rdf.Term, len(vars))
		for i, name := range vars {
			binding[name] = decodeDefault(row[i])
		}
		rows = append(rows, binding)
	}
	return rows, nil
}

// decodeDefault applies the Escape Hatch's default column-decoding
// rule (spec.md §4.8): a string that looks like a resource reference
// (it has a scheme, or is a blank-node id) decodes as a URI; anything
// else decodes as a literal. A nil cell (a NULL Cypher value) decodes
// to a nil Term, left unbound.
func decodeDefault(cell any) rdf.Term {
	if cell == nil {
		return nil
	}
	if s, ok := cell.(string); ok && looksLikeResourceReference(s) {
		if rdf.IsBlankURI(s) {
			return rdf.NewBlankNode(s[len(rdf.BlankNodePrefix):])
		}
		return rdf.NewNamedNode(s)
	}
	return defaultLiteral(cell)
}

func defaultLiteral(cell any) rdf.Term {
	switch v := cell.(type) {
	case string:
		return rdf.NewLiteral(v)
	case bool:
		return rdf.NewBooleanLiteral(v)
	case int64:
		return rdf.NewIntegerLiteral(v)
	case int:
		return rdf.NewIntegerLiteral(int64(v))
	case float64:
		return rdf.NewDoubleLiteral(v)
	default:
		return rdf.NewLiteral(fmt.Sprintf("%v", v))
	}
}

// looksLikeResourceReference reports whether s starts with a URI
// scheme (e.g. "http:", "urn:") or the blank-node prefix.
func looksLikeResourceReference(s string) bool {
	if rdf.IsBlankURI(s) {
		return true
	}
	colon := -1
	for i, r := range s {
		if r == ':' {
			colon = i
			break
		}
		if !isSchemeChar(r) {
			return false
		}
	}
	return colon > 0
}

func isSchemeChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '+' || r == '-' || r == '.'
}
