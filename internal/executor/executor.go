// Package executor implements the Algebra Executor (spec.md §4.6): a
// dispatcher invoked by the host SPARQL engine for each algebra node.
// It is stateless across calls (spec.md §4.6 "States"); it only holds
// a reference to the Store Facade and the compiler it calls. Grounded
// on the teacher's executor.Execute / createIterator switch — a closed
// dispatch over a sum type, one branch per recognized shape, anything
// else an explicit error — adapted from the teacher's QueryPlan sum
// type to pkg/algebra.Node.
package executor

import (
	"context"
	"log"

	"github.com/falkordb/go-sparql-adapter/internal/compiler"
	"github.com/falkordb/go-sparql-adapter/internal/errs"
	"github.com/falkordb/go-sparql-adapter/internal/store"
	"github.com/falkordb/go-sparql-adapter/internal/tracing"
	"github.com/falkordb/go-sparql-adapter/pkg/algebra"
)

// InferenceMode tells the executor whether the store sits behind a
// backward-chaining reasoner; SPEC_FULL.md §4 ("Reasoner pass-through
// guard") requires skipping pushdown entirely in that case, since the
// reasoner's inferred triples are invisible to a compiled MATCH.
type InferenceMode int

const (
	// Forward is the default: the store holds exactly the asserted
	// triples, so pushdown is always attempted.
	Forward InferenceMode = iota
	// Backward means a reasoner materializes additional triples the
	// compiled Cypher cannot see; every node falls back.
	Backward
)

// FallbackFunc is the host SPARQL engine's default (non-pushdown)
// execution path for one algebra node, invoked when pushdown is not
// applicable (spec.md §4.6 step 4).
type FallbackFunc func(ctx context.Context, node algebra.Node) (Result, error)

// Result is the row stream a compiled statement (or a fallback)
// produces: one []any per binding, alongside the column descriptor
// needed to decode it with the Triple Codec.
type Result struct {
	Columns []compiler.ColumnPlan
	Rows    [][]any
}

// Executor dispatches algebra nodes to the Pattern Compiler and Store
// Facade, falling back to the host engine on any Untranslatable error.
type Executor struct {
	Facade        *store.Facade
	Fallback      FallbackFunc
	Tracer        tracing.Tracer
	InferenceMode InferenceMode
}

// New builds an Executor. tracer may be tracing.NoopTracer() when
// tracing.enabled is false.
func New(facade *store.Facade, fallback FallbackFunc, tracer tracing.Tracer) *Executor {
	return &Executor{Facade: facade, Fallback: fallback, Tracer: tracer, InferenceMode: Forward}
}

// Execute dispatches node per spec.md §4.6. Recognized nodes: BGP,
// FILTER, OPTIONAL (left join), UNION, GROUP BY; anything else
// (algebra.KindOther) always falls back.
func (e *Executor) Execute(ctx context.Context, node algebra.Node, outputVars []string) (Result, error) {
	if e.InferenceMode == Backward {
		return e.fallback(ctx, node, "BACKWARD", "store sits behind a backward-chaining reasoner; pushdown is skipped for every node")
	}

	plan, kind, err := e.compile(node, outputVars)
	if err != nil {
		if untrans, ok := err.(*errs.Untranslatable); ok {
			return e.fallback(ctx, node, untrans.Kind, untrans.Reason)
		}
		return e.fallback(ctx, node, kind, err.Error())
	}

	result, err := e.Facade.Query(ctx, plan.Cypher, plan.Params)
	if err != nil {
		return Result{}, err
	}
	return Result{Columns: plan.Columns, Rows: result.Rows}, nil
}

// compile dispatches node to the matching Pattern Compiler entry
// point. kind is returned even on error, to label the fallback log.
func (e *Executor) compile(node algebra.Node, outputVars []string) (*compiler.Plan, string, error) {
	switch node.Kind {
	case algebra.KindBGP:
		plan, err := compiler.CompileBGP(node.BGP.Patterns, outputVars)
		return plan, "BGP", err
	case algebra.KindFilter:
		if node.Filter.Inner.Kind != algebra.KindBGP {
			return nil, "FILTER", errs.NewUntranslatable("FILTER", "inner shape must be a plain BGP")
		}
		plan, err := compiler.CompileFilter(node.Filter.Inner.BGP.Patterns, outputVars, node.Filter.Expr)
		return plan, "FILTER", err
	case algebra.KindLeftJoin:
		if node.Join.Left.Kind != algebra.KindBGP || node.Join.Right.Kind != algebra.KindBGP {
			return nil, "OPTIONAL", errs.NewUntranslatable("OPTIONAL", "both sides must be plain BGPs")
		}
		plan, err := compiler.CompileOptional(node.Join.Left.BGP.Patterns, node.Join.Right.BGP.Patterns, outputVars)
		return plan, "OPTIONAL", err
	case algebra.KindUnion:
		if node.Union.Left.Kind != algebra.KindBGP || node.Union.Right.Kind != algebra.KindBGP {
			return nil, "UNION", errs.NewUntranslatable("UNION", "both sides must be plain BGPs")
		}
		plan, err := compiler.CompileUnion(node.Union.Left.BGP.Patterns, node.Union.Right.BGP.Patterns, outputVars)
		return plan, "UNION", err
	case algebra.KindGroup:
		if node.Group.Inner.Kind != algebra.KindBGP {
			return nil, "GROUP", errs.NewUntranslatable("GROUP", "inner shape must be a plain BGP")
		}
		plan, err := compiler.CompileGroup(node.Group.Inner.BGP.Patterns, node.Group.GroupVars, node.Group.Aggregations)
		return plan, "GROUP", err
	default:
		return nil, "OTHER", errs.NewUntranslatable("OTHER", "node kind is not a recognized pushdown shape")
	}
}

// fallback logs the WARN pattern spec.md §4.6 specifies, records the
// trace span event, and delegates to the host engine.
func (e *Executor) fallback(ctx context.Context, node algebra.Node, kind, reason string) (Result, error) {
	log.Printf("%s pushdown optimization not applicable, using fallback implementation: %s", kind, reason)
	e.Tracer.RecordFallback(ctx, kind, reason)
	return e.Fallback(ctx, node)
}
