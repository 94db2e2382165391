// Package algebra is the "Consumed: SPARQL algebra" collaborator from
// spec.md §6. The generic SPARQL parser and its algebra representation
// are explicitly out of scope for this module (spec.md §1) — a host
// SPARQL engine is assumed to hand the Algebra Executor trees built
// from these types. This package therefore defines only the shapes,
// not a parser: it is the closed sum type the Polymorphic algebra
// dispatch design note (spec.md §9) asks the executor to switch on,
// modeled on the teacher's own closed QueryPlan sum type
// (optimizer.QueryPlan / *ScanPlan / *FilterPlan / ...).
package algebra

import "github.com/falkordb/go-sparql-adapter/pkg/rdf"

// Variable is a SPARQL variable name, without the leading "?".
type Variable struct {
	Name string
}

func NewVariable(name string) *Variable { return &Variable{Name: name} }

func (v *Variable) String() string { return "?" + v.Name }

// Term is a triple-pattern position: exactly one of IRI, Blank,
// Literal, or Var is non-nil.
type Term struct {
	IRI     *rdf.NamedNode
	Blank   *rdf.BlankNode
	Literal *rdf.Literal
	Var     *Variable
}

func IRITerm(iri *rdf.NamedNode) Term        { return Term{IRI: iri} }
func BlankTerm(b *rdf.BlankNode) Term         { return Term{Blank: b} }
func LiteralTerm(l *rdf.Literal) Term         { return Term{Literal: l} }
func VarTerm(v *Variable) Term                { return Term{Var: v} }
func VarTermNamed(name string) Term           { return Term{Var: NewVariable(name)} }

// IsVariable reports whether the position is an unbound variable.
func (t Term) IsVariable() bool { return t.Var != nil }

// RDFTerm returns the bound RDF term, or nil if the position is a
// variable.
func (t Term) RDFTerm() rdf.Term {
	switch {
	case t.IRI != nil:
		return t.IRI
	case t.Blank != nil:
		return t.Blank
	case t.Literal != nil:
		return t.Literal
	default:
		return nil
	}
}

// TriplePattern is a single BGP triple, each position possibly a
// variable (spec.md §6: "leaf triple patterns with (subject,
// predicate, object) each being one of {IRI, blank, literal,
// variable}").
type TriplePattern struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// BGP is a conjunction of triple patterns (Basic Graph Pattern).
type BGP struct {
	Patterns []TriplePattern
}

// Node is the closed sum type over recognized algebra shapes
// (spec.md §6, §9). Exactly one of the embedded fields is non-nil;
// Kind reports which.
type Node struct {
	Kind   Kind
	BGP    *BGP
	Filter *FilterNode
	Join   *LeftJoinNode
	Union  *UnionNode
	Group  *GroupNode
}

type Kind int

const (
	KindBGP Kind = iota
	KindFilter
	KindLeftJoin
	KindUnion
	KindGroup
	KindOther // anything else — always a fallback, never compiled
)

// FilterNode is FILTER(inner, expr).
type FilterNode struct {
	Inner Node
	Expr  Expression
}

// LeftJoinNode is LEFT_JOIN(left, right) — SPARQL OPTIONAL.
type LeftJoinNode struct {
	Left  Node
	Right Node
}

// UnionNode is UNION(left, right).
type UnionNode struct {
	Left  Node
	Right Node
}

// GroupNode is GROUP(inner, groupVars, aggregators).
type GroupNode struct {
	Inner        Node
	GroupVars    []*Variable
	Aggregations []Aggregation
}

// AggregateFunc enumerates the aggregator kinds spec.md §4.4.e names.
type AggregateFunc int

const (
	AggCount AggregateFunc = iota
	AggCountStar
	AggSum
	AggAvg
	AggMin
	AggMax
)

// Aggregation is one aggregator spec: `AggFunc([DISTINCT] Var) AS Out`.
type Aggregation struct {
	Func     AggregateFunc
	Var      *Variable // nil for COUNT(*)
	Distinct bool
	Out      *Variable
}

func NewBGPNode(patterns ...TriplePattern) Node {
	return Node{Kind: KindBGP, BGP: &BGP{Patterns: patterns}}
}

func NewFilterNode(inner Node, expr Expression) Node {
	return Node{Kind: KindFilter, Filter: &FilterNode{Inner: inner, Expr: expr}}
}

func NewLeftJoinNode(left, right Node) Node {
	return Node{Kind: KindLeftJoin, Join: &LeftJoinNode{Left: left, Right: right}}
}

func NewUnionNode(left, right Node) Node {
	return Node{Kind: KindUnion, Union: &UnionNode{Left: left, Right: right}}
}

func NewGroupNode(inner Node, groupVars []*Variable, aggs []Aggregation) Node {
	return Node{Kind: KindGroup, Group: &GroupNode{Inner: inner, GroupVars: groupVars, Aggregations: aggs}}
}
