// Package codec implements the Triple Codec (spec.md §4.1): the
// canonical, bidirectional mapping between RDF triples and the
// property-graph encoding described in spec.md §3. EncodeAdd and
// EncodeDelete turn a Triple into a StatementSpec the Store Facade can
// run; DecodeRow turns a Cypher result row back into RDF terms.
//
// Grounded on the teacher's internal/store/store.go upsert-vs-delete
// triple handling and internal/encoding/encoder.go's per-datatype
// switch, adapted from binary KV encodings to Cypher statement specs.
package codec

import (
	"fmt"
	"strconv"

	"github.com/falkordb/go-sparql-adapter/internal/errs"
	"github.com/falkordb/go-sparql-adapter/pkg/rdf"
)

// Shape tags which of the three property-graph write shapes (spec.md
// §3) a StatementSpec encodes.
type Shape int

const (
	// ShapeTypeLabel adds or removes an extra node label for an
	// rdf:type triple.
	ShapeTypeLabel Shape = iota
	// ShapeLiteralProperty sets or removes a literal-valued property
	// (plus its __datatype sidecar when the datatype isn't primitive).
	ShapeLiteralProperty
	// ShapeEdge upserts or removes a directed, predicate-labeled edge
	// between two resource nodes.
	ShapeEdge
)

// DatatypeSidecarSuffix is appended to a predicate IRI to name the
// sidecar property holding a non-primitive literal's datatype IRI
// (spec.md §3 "Literal encoding").
const DatatypeSidecarSuffix = "__datatype"

// ResourceLabel is the label every resource node carries in addition
// to its rdf:type labels. It is reserved: EncodeAdd/EncodeDelete never
// emit it as a type label, and decode_row never reports it as a
// bound rdf:type object (spec.md §3 invariant 4).
const ResourceLabel = "Resource"

// StatementSpec is a parameterized Cypher statement plus the shape
// that produced it, so the Transaction Buffer can bucket Adds/Deletes
// by shape before flushing (spec.md §4.7).
type StatementSpec struct {
	Shape      Shape
	Cypher     string
	Params     map[string]any
	Descriptor []ColumnType // result column tags, for read-shaped specs; nil for writes
}

// ColumnType tags a Cypher result column so DecodeRow knows how to
// turn its value back into an RDF term (spec.md §4.1).
type ColumnType int

const (
	NodeUri ColumnType = iota
	LiteralValue
	PredicateName
	TypeLabel
)

func datatypeProperty(predicateIRI string) string {
	return predicateIRI + DatatypeSidecarSuffix
}

// EncodeAdd returns the StatementSpec that writes t into the property
// graph, upserting both endpoint nodes (spec.md §3 invariant 2: at
// most one edge per (s, p, o); writes are match-or-create).
func EncodeAdd(t *rdf.Triple) (*StatementSpec, error) {
	if t.Predicate.Equals(rdf.RDFType) {
		objIRI, ok := t.Object.(*rdf.NamedNode)
		if !ok {
			return nil, &errs.StoreProtocol{Detail: "rdf:type object must be an IRI"}
		}
		if objIRI.IRI == ResourceLabel {
			return nil, fmt.Errorf("codec: %q is a reserved label and cannot be asserted as a type", ResourceLabel)
		}
		return &StatementSpec{
			Shape:  ShapeTypeLabel,
			Cypher: fmt.Sprintf("MERGE (s:%s {uri: $subject}) SET s:`%s`", ResourceLabel, objIRI.IRI),
			Params: map[string]any{"subject": subjectURI(t.Subject)},
		}, nil
	}

	switch obj := t.Object.(type) {
	case *rdf.Literal:
		props := map[string]any{"subject": subjectURI(t.Subject), "value": obj.Value}
		setClauses := fmt.Sprintf("s.`%s` = $value", t.Predicate.IRI)
		if obj.Datatype != nil && !rdf.IsPrimitiveDatatype(obj.Datatype.IRI) {
			props["datatype"] = obj.Datatype.IRI
			setClauses += fmt.Sprintf(", s.`%s` = $datatype", datatypeProperty(t.Predicate.IRI))
		}
		return &StatementSpec{
			Shape:  ShapeLiteralProperty,
			Cypher: fmt.Sprintf("MERGE (s:%s {uri: $subject}) SET %s", ResourceLabel, setClauses),
			Params: props,
		}, nil
	case *rdf.NamedNode, *rdf.BlankNode:
		return &StatementSpec{
			Shape: ShapeEdge,
			Cypher: fmt.Sprintf(
				"MERGE (s:%s {uri: $subject}) MERGE (o:%s {uri: $object}) MERGE (s)-[:`%s`]->(o)",
				ResourceLabel, ResourceLabel, t.Predicate.IRI,
			),
			Params: map[string]any{"subject": subjectURI(t.Subject), "object": subjectURI(obj)},
		}, nil
	default:
		return nil, &errs.StoreProtocol{Detail: fmt.Sprintf("unrecognized object term %T", t.Object)}
	}
}

// EncodeDelete returns the StatementSpec that removes t's
// corresponding edge, property, or label. It never deletes nodes
// (spec.md §3 "Lifecycles": orphan nodes are left in place).
func EncodeDelete(t *rdf.Triple) (*StatementSpec, error) {
	if t.Predicate.Equals(rdf.RDFType) {
		objIRI, ok := t.Object.(*rdf.NamedNode)
		if !ok {
			return nil, &errs.StoreProtocol{Detail: "rdf:type object must be an IRI"}
		}
		return &StatementSpec{
			Shape:  ShapeTypeLabel,
			Cypher: fmt.Sprintf("MATCH (s:%s {uri: $subject}) REMOVE s:`%s`", ResourceLabel, objIRI.IRI),
			Params: map[string]any{"subject": subjectURI(t.Subject)},
		}, nil
	}

	switch obj := t.Object.(type) {
	case *rdf.Literal:
		removeClauses := fmt.Sprintf("s.`%s`", t.Predicate.IRI)
		if obj.Datatype != nil && !rdf.IsPrimitiveDatatype(obj.Datatype.IRI) {
			removeClauses += fmt.Sprintf(", s.`%s`", datatypeProperty(t.Predicate.IRI))
		}
		return &StatementSpec{
			Shape:  ShapeLiteralProperty,
			Cypher: fmt.Sprintf("MATCH (s:%s {uri: $subject}) REMOVE %s", ResourceLabel, removeClauses),
			Params: map[string]any{"subject": subjectURI(t.Subject)},
		}, nil
	case *rdf.NamedNode, *rdf.BlankNode:
		return &StatementSpec{
			Shape: ShapeEdge,
			Cypher: fmt.Sprintf(
				"MATCH (s:%s {uri: $subject})-[r:`%s`]->(o:%s {uri: $object}) DELETE r",
				ResourceLabel, t.Predicate.IRI, ResourceLabel,
			),
			Params: map[string]any{"subject": subjectURI(t.Subject), "object": subjectURI(obj)},
		}, nil
	default:
		return nil, &errs.StoreProtocol{Detail: fmt.Sprintf("unrecognized object term %T", t.Object)}
	}
}

func subjectURI(t rdf.Term) string {
	switch s := t.(type) {
	case *rdf.NamedNode:
		return s.IRI
	case *rdf.BlankNode:
		return rdf.BlankNodePrefix + s.ID
	default:
		return t.String()
	}
}

// DecodeRow turns one Cypher result row into an RDF term per column,
// following slotTypes positionally. A NULL cell (from an OPTIONAL
// MATCH branch that didn't match) decodes to a nil Term: the Pattern
// Compiler leaves that variable unbound in the produced binding
// (spec.md §4.1).
func DecodeRow(row []any, slotTypes []ColumnType) ([]rdf.Term, error) {
	if len(row) != len(slotTypes) {
		return nil, &errs.StoreProtocol{Detail: fmt.Sprintf("row has %d columns, expected %d", len(row), len(slotTypes))}
	}
	terms := make([]rdf.Term, len(row))
	for i, cell := range row {
		if cell == nil {
			continue
		}
		term, err := decodeCell(cell, slotTypes[i])
		if err != nil {
			return nil, err
		}
		terms[i] = term
	}
	return terms, nil
}

func decodeCell(cell any, colType ColumnType) (rdf.Term, error) {
	switch colType {
	case NodeUri:
		uri, ok := cell.(string)
		if !ok {
			return nil, &errs.StoreProtocol{Detail: fmt.Sprintf("NodeUri column held %T, expected string", cell)}
		}
		if rdf.IsBlankURI(uri) {
			return rdf.NewBlankNode(uri[len(rdf.BlankNodePrefix):]), nil
		}
		return rdf.NewNamedNode(uri), nil
	case PredicateName:
		name, ok := cell.(string)
		if !ok {
			return nil, &errs.StoreProtocol{Detail: fmt.Sprintf("PredicateName column held %T, expected string", cell)}
		}
		return rdf.NewNamedNode(name), nil
	case TypeLabel:
		label, ok := cell.(string)
		if !ok {
			return nil, &errs.StoreProtocol{Detail: fmt.Sprintf("TypeLabel column held %T, expected string", cell)}
		}
		if label == ResourceLabel {
			return nil, nil // reserved label, never surfaced as rdf:type (spec.md §3 invariant 4)
		}
		return rdf.NewNamedNode(label), nil
	case LiteralValue:
		// The Pattern Compiler projects a literal property as
		// [value, datatypeIRI] so the __datatype sidecar survives the
		// single-column RETURN slot (spec.md §3 "Literal encoding").
		// A bare GROUP BY aggregate instead lands here as a plain
		// scalar, not a pair, and decodes with no sidecar.
		if pair, ok := cell.([]any); ok && len(pair) == 2 {
			if pair[0] == nil {
				return nil, nil // OPTIONAL branch left the property unbound
			}
			var datatypeIRI *string
			if dt, ok := pair[1].(string); ok {
				datatypeIRI = &dt
			}
			return BuildLiteral(pair[0], datatypeIRI), nil
		}
		return BuildLiteral(cell, nil), nil
	default:
		return nil, &errs.StoreProtocol{Detail: fmt.Sprintf("unknown column type %d", colType)}
	}
}

// BuildLiteral reconstructs a typed literal from a decoded Cypher
// value and its optional sidecar __datatype IRI (spec.md §4.1). When
// datatypeIRI is nil, the native Cypher type of value picks the
// primitive XSD datatype.
func BuildLiteral(value any, datatypeIRI *string) *rdf.Literal {
	if datatypeIRI != nil {
		return rdf.NewLiteralWithDatatype(stringifyLiteralValue(value), rdf.NewNamedNode(*datatypeIRI))
	}

	switch v := value.(type) {
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

func stringifyLiteralValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
