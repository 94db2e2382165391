// Package model is the exposed RDF/SPARQL surface (spec.md §6): a
// standard RDF Model/Graph API — add triple, delete triple, find
// triples matching a pattern, size, contains, begin/commit/abort write
// transaction — layered over the Store Facade, the Triple Codec, and
// the Transaction Buffer.
//
// Grounded on the teacher's store.TripleStore (InsertTriple,
// DeleteTriple, ContainsQuad, Count), re-pointed at the Cypher
// property-graph encoding instead of the KV quad indexes: adding one
// triple is one codec.EncodeAdd statement run through the Store
// Facade rather than six quad-index writes, and FindTriples walks a
// pattern match instead of scanning an SPOG range.
package model

import (
	"context"
	"fmt"

	"github.com/falkordb/go-sparql-adapter/internal/codec"
	"github.com/falkordb/go-sparql-adapter/internal/compiler"
	"github.com/falkordb/go-sparql-adapter/internal/store"
	"github.com/falkordb/go-sparql-adapter/internal/txbuffer"
	"github.com/falkordb/go-sparql-adapter/pkg/algebra"
	"github.com/falkordb/go-sparql-adapter/pkg/config"
	"github.com/falkordb/go-sparql-adapter/pkg/rdf"
)

// wildcard names the anonymous variable FindTriples substitutes for
// every unbound position of the caller's pattern.
const (
	wildcardSubject   = "__s"
	wildcardPredicate = "__p"
	wildcardObject    = "__o"
)

// Model is the triplestore handle returned by Open. It is safe for
// concurrent reads; writes outside an explicit Transaction are each
// their own single-statement commit (spec.md §5: "single-triple
// add/delete... is its own implicit one-statement transaction").
type Model struct {
	facade *store.Facade
}

// Open connects to the configured store and bootstraps the Resource
// index (spec.md §3: "one index, Resource.uri"; SPEC_FULL.md §4 "Index
// bootstrap"). Index creation is idempotent: an "already indexed"
// reply is swallowed by the driver.
func Open(ctx context.Context, cfg config.Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	facade := store.New(cfg.BuildDriver(), cfg.GraphName)
	if err := facade.EnsureResourceIndex(ctx); err != nil {
		return nil, err
	}
	return &Model{facade: facade}, nil
}

// AddTriple encodes and writes t as its own implicit transaction.
func (m *Model) AddTriple(ctx context.Context, t *rdf.Triple) error {
	spec, err := codec.EncodeAdd(t)
	if err != nil {
		return err
	}
	_, err = m.facade.Query(ctx, spec.Cypher, spec.Params)
	return err
}

// DeleteTriple encodes and writes t's removal as its own implicit
// transaction. Per spec.md §3 "Lifecycles", this never deletes the
// endpoint nodes themselves, only the edge, property, or label.
func (m *Model) DeleteTriple(ctx context.Context, t *rdf.Triple) error {
	spec, err := codec.EncodeDelete(t)
	if err != nil {
		return err
	}
	_, err = m.facade.Query(ctx, spec.Cypher, spec.Params)
	return err
}

// ContainsTriple reports whether t (ground, no variables) is present.
func (m *Model) ContainsTriple(ctx context.Context, t *rdf.Triple) (bool, error) {
	cypher, params, descriptor := containsQuery(t)
	result, err := m.facade.QueryReadOnly(ctx, cypher, params)
	if err != nil {
		return false, err
	}
	_ = descriptor
	return len(result.Rows) > 0, nil
}

// Size returns the total number of triples the encoding currently
// represents: one per literal property set, one per extra type label,
// one per edge.
func (m *Model) Size(ctx context.Context) (int64, error) {
	cypher := fmt.Sprintf(
		"MATCH (s:%s) WITH s, [k IN keys(s) WHERE k <> 'uri' AND NOT k ENDS WITH '__datatype'] AS props, "+
			"[l IN labels(s) WHERE l <> '%s'] AS types "+
			"RETURN sum(size(props)) + sum(size(types)) AS propCount",
		codec.ResourceLabel, codec.ResourceLabel,
	)
	result, err := m.facade.QueryReadOnly(ctx, cypher, nil)
	if err != nil {
		return 0, err
	}
	var nodeTotal int64
	if len(result.Rows) > 0 {
		nodeTotal = toInt64(result.Rows[0][0])
	}

	edgeCypher := "MATCH ()-[r]->() RETURN count(r) AS edgeCount"
	edgeResult, err := m.facade.QueryReadOnly(ctx, edgeCypher, nil)
	if err != nil {
		return 0, err
	}
	var edgeTotal int64
	if len(edgeResult.Rows) > 0 {
		edgeTotal = toInt64(edgeResult.Rows[0][0])
	}

	return nodeTotal + edgeTotal, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// containsQuery builds a ground-triple existence check, dispatching on
// the same three shapes the Triple Codec writes.
func containsQuery(t *rdf.Triple) (string, map[string]any, []codec.ColumnType) {
	if t.Predicate.Equals(rdf.RDFType) {
		objIRI, ok := t.Object.(*rdf.NamedNode)
		if !ok {
			return "RETURN false LIMIT 0", nil, nil
		}
		cypher := fmt.Sprintf("MATCH (s:%s:`%s` {uri: $subject}) RETURN s.uri LIMIT 1", codec.ResourceLabel, objIRI.IRI)
		return cypher, map[string]any{"subject": subjectURI(t.Subject)}, []codec.ColumnType{codec.NodeUri}
	}

	switch obj := t.Object.(type) {
	case *rdf.Literal:
		cypher := fmt.Sprintf("MATCH (s:%s {uri: $subject}) WHERE s.`%s` = $value RETURN s.uri LIMIT 1", codec.ResourceLabel, t.Predicate.IRI)
		return cypher, map[string]any{"subject": subjectURI(t.Subject), "value": obj.Value}, []codec.ColumnType{codec.NodeUri}
	case *rdf.NamedNode, *rdf.BlankNode:
		cypher := fmt.Sprintf(
			"MATCH (s:%s {uri: $subject})-[:`%s`]->(o:%s {uri: $object}) RETURN s.uri LIMIT 1",
			codec.ResourceLabel, t.Predicate.IRI, codec.ResourceLabel,
		)
		return cypher, map[string]any{"subject": subjectURI(t.Subject), "object": subjectURI(obj)}, []codec.ColumnType{codec.NodeUri}
	default:
		return "RETURN false LIMIT 0", nil, nil
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

// FindTriples returns every triple matching the given pattern; a nil
// subject, predicate, or object is a wildcard (spec.md §6: "find
// triples matching a pattern"). Ground positions are passed through
// unchanged; wildcard positions are compiled as SPARQL variables and
// decoded back from the matching Cypher result column.
func (m *Model) FindTriples(ctx context.Context, subject rdf.Term, predicate *rdf.NamedNode, object rdf.Term) ([]*rdf.Triple, error) {
	pattern := algebra.TriplePattern{
		Subject:   termOrWildcard(subject, wildcardSubject),
		Predicate: predicateOrWildcard(predicate, wildcardPredicate),
		Object:    termOrWildcard(object, wildcardObject),
	}

	var outputVars []string
	if subject == nil {
		outputVars = append(outputVars, wildcardSubject)
	}
	if predicate == nil {
		outputVars = append(outputVars, wildcardPredicate)
	}
	if object == nil {
		outputVars = append(outputVars, wildcardObject)
	}

	plan, err := compiler.CompileBGP([]algebra.TriplePattern{pattern}, outputVars)
	if err != nil {
		return nil, err
	}

	result, err := m.facade.QueryReadOnly(ctx, plan.Cypher, plan.Params)
	if err != nil {
		return nil, err
	}

	slotTypes := make([]codec.ColumnType, len(plan.Columns))
	for i, col := range plan.Columns {
		slotTypes[i] = col.Type
	}

	triples := make([]*rdf.Triple, 0, len(result.Rows))
	for _, row := range result.Rows {
		terms, err := codec.DecodeRow(row, slotTypes)
		if err != nil {
			return nil, err
		}
		if predicate == nil {
			if i := columnIndex(plan.Columns, wildcardPredicate); i >= 0 && terms[i] == nil {
				// A NULL predicate column (the edge branch's
				// placeholder when the object is a literal) cannot
				// form a triple; skip the whole row. A reserved
				// Resource type label decodes to a nil object and is
				// skipped by the object check below (spec.md §3
				// invariant 4).
				continue
			}
		}
		if object == nil {
			if i := columnIndex(plan.Columns, wildcardObject); i >= 0 && terms[i] == nil {
				continue
			}
		}
		triples = append(triples, assembleTriple(plan.Columns, terms, subject, predicate, object))
	}
	return triples, nil
}

func termOrWildcard(t rdf.Term, varName string) algebra.Term {
	if t == nil {
		return algebra.VarTermNamed(varName)
	}
	switch v := t.(type) {
	case *rdf.NamedNode:
		return algebra.IRITerm(v)
	case *rdf.BlankNode:
		return algebra.BlankTerm(v)
	case *rdf.Literal:
		return algebra.LiteralTerm(v)
	default:
		return algebra.VarTermNamed(varName)
	}
}

func predicateOrWildcard(p *rdf.NamedNode, varName string) algebra.Term {
	if p == nil {
		return algebra.VarTermNamed(varName)
	}
	return algebra.IRITerm(p)
}

func columnIndex(columns []compiler.ColumnPlan, variable string) int {
	for i, col := range columns {
		if col.Variable == variable {
			return i
		}
	}
	return -1
}

// assembleTriple rebuilds a full triple from a decoded row, filling
// wildcard positions from the row and ground positions from the
// pattern the caller supplied.
func assembleTriple(columns []compiler.ColumnPlan, terms []rdf.Term, subject rdf.Term, predicate *rdf.NamedNode, object rdf.Term) *rdf.Triple {
	t := &rdf.Triple{Subject: subject, Predicate: predicate, Object: object}
	if i := columnIndex(columns, wildcardSubject); i >= 0 && terms[i] != nil {
		t.Subject = terms[i]
	}
	if i := columnIndex(columns, wildcardPredicate); i >= 0 && terms[i] != nil {
		if iri, ok := terms[i].(*rdf.NamedNode); ok {
			t.Predicate = iri
		}
	}
	if i := columnIndex(columns, wildcardObject); i >= 0 && terms[i] != nil {
		t.Object = terms[i]
	}
	return t
}

// Transaction is a scoped write transaction over Model, backed by the
// Transaction Buffer (spec.md §4.7).
type Transaction struct {
	tx *txbuffer.Transaction
}

// BeginTransaction opens a buffered write transaction (spec.md §6:
// "begin/commit/abort write transaction").
func (m *Model) BeginTransaction() *Transaction {
	return &Transaction{tx: txbuffer.Begin(m.facade)}
}

// Add buffers t for the next Commit.
func (tx *Transaction) Add(t *rdf.Triple) error {
	return tx.tx.Add(t)
}

// Delete buffers t's removal for the next Commit.
func (tx *Transaction) Delete(t *rdf.Triple) error {
	return tx.tx.Delete(t)
}

// Commit flushes every buffered write and releases the transaction.
func (tx *Transaction) Commit(ctx context.Context) error {
	defer tx.tx.End()
	return tx.tx.Commit(ctx)
}

// Abort discards every buffered write and releases the transaction.
func (tx *Transaction) Abort() error {
	defer tx.tx.End()
	return tx.tx.Abort()
}
