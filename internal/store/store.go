// Package store implements the Store Facade (spec.md §4.9): a narrow,
// typed interface over falkordbconn that the Algebra Executor, the
// Transaction Buffer, and the Cypher Escape Hatch all depend on
// instead of talking to the Redis client directly. Grounded on the
// teacher's store.TripleStore, which wraps a pluggable storage.Storage
// behind a handful of named operations rather than exposing the raw
// KV transaction type to callers.
package store

import (
	"context"
	"fmt"

	"github.com/falkordb/go-sparql-adapter/falkordbconn"
	"github.com/falkordb/go-sparql-adapter/internal/codec"
	"github.com/falkordb/go-sparql-adapter/internal/errs"
)

// ResourceIndexLabel/ResourceIndexProperty name the one invariant index
// spec.md §3 requires: a uniqueness index on Resource.uri.
const (
	ResourceIndexLabel    = codec.ResourceLabel
	ResourceIndexProperty = "uri"
)

// Statement is one Cypher text plus its parameters, the unit Multi
// executes sequentially.
type Statement struct {
	Cypher string
	Params map[string]any
}

// Facade is the Store Facade (spec.md §4.9): Query, Multi,
// EnsureIndex, over a pooled falkordbconn.Driver.
type Facade struct {
	driver *falkordbconn.Driver
	graph  string
}

// New builds a Facade bound to one graph name; pool management itself
// lives in the driver's redis.UniversalClient (spec.md §4.9: "the
// facade hands out and reclaims pooled connections around each call").
func New(driver *falkordbconn.Driver, graph string) *Facade {
	return &Facade{driver: driver, graph: graph}
}

// Query runs one read-write statement and returns its rows (spec.md
// §4.9: "query(graph, cypher, params) → RowStream"). A nil driver
// reply (network failure, auth failure) is reported as
// errs.StoreUnavailable so the Algebra Executor can distinguish it
// from a result set that is merely empty.
func (f *Facade) Query(ctx context.Context, cypher string, params map[string]any) (*falkordbconn.Result, error) {
	result, err := f.driver.Query(ctx, f.graph, cypher, params)
	if err != nil {
		return nil, &errs.StoreUnavailable{Err: err}
	}
	return result, nil
}

// QueryReadOnly is Query's read-only counterpart, routed through
// GRAPH.RO_QUERY so the store itself rejects any accidental write.
func (f *Facade) QueryReadOnly(ctx context.Context, cypher string, params map[string]any) (*falkordbconn.Result, error) {
	result, err := f.driver.QueryReadOnly(ctx, f.graph, cypher, params)
	if err != nil {
		return nil, &errs.StoreUnavailable{Err: err}
	}
	return result, nil
}

// Multi runs statements sequentially, best-effort (spec.md §4.9:
// "multi(graph, [(cypher, params)…]) — best-effort sequential
// execution"). It stops and returns the first error; the caller (the
// Transaction Buffer) decides what a partial failure means.
func (f *Facade) Multi(ctx context.Context, statements []Statement) error {
	for i, stmt := range statements {
		if _, err := f.Query(ctx, stmt.Cypher, stmt.Params); err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
	}
	return nil
}

// EnsureIndex is idempotent; FalkorDB's "already indexed" error is
// swallowed by falkordbconn.Driver.EnsureIndex (spec.md §4.9).
func (f *Facade) EnsureIndex(ctx context.Context, label, property string) error {
	if err := f.driver.EnsureIndex(ctx, f.graph, label, property); err != nil {
		return &errs.StoreUnavailable{Err: err}
	}
	return nil
}

// EnsureResourceIndex bootstraps the one invariant index spec.md §3
// requires, called once from pkg/model.Open (SPEC_FULL.md §4 "Index
// bootstrap").
func (f *Facade) EnsureResourceIndex(ctx context.Context) error {
	return f.EnsureIndex(ctx, ResourceIndexLabel, ResourceIndexProperty)
}
