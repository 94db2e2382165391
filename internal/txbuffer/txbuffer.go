// Package txbuffer implements the Transaction Buffer (spec.md §4.7): a
// scoped WRITE transaction whose lifecycle is begin → (add|delete)* →
// commit|abort → end. Writes are buffered in memory and only reach the
// store on commit, grouped by shape into three batched UNWIND flushes.
//
// Grounded on the teacher's store.TripleStore.InsertQuad /
// insertQuadInTxn pair: the teacher opens one storage.Transaction,
// performs every index write inside it, and defers Rollback so an
// early return always releases the transaction. This package keeps
// that begin/defer-release shape but buffers codec.StatementSpec
// values instead of writing straight through, since FalkorDB's wire
// protocol has no multi-statement transaction of its own to piggyback
// on (spec.md §4.7: "the backing store is not transactional across
// batches").
package txbuffer

import (
	"context"
	"fmt"

	"github.com/falkordb/go-sparql-adapter/internal/codec"
	"github.com/falkordb/go-sparql-adapter/internal/errs"
	"github.com/falkordb/go-sparql-adapter/internal/store"
	"github.com/falkordb/go-sparql-adapter/pkg/rdf"
)

// MaxBatchSize caps how many buffered operations one UNWIND flush
// carries (spec.md §4.7: "batches of up to 1,000 operations").
const MaxBatchSize = 1000

// bucket names the three shape-grouped flush streams, in the fixed
// order spec.md §4.7 requires: literal properties and type labels
// materialize the nodes an edge upsert might need, so edges flush
// last.
type bucket int

const (
	bucketLiteralProperty bucket = iota
	bucketTypeLabel
	bucketEdge
	bucketCount
)

func (b bucket) name() string {
	switch b {
	case bucketLiteralProperty:
		return "literal-property"
	case bucketTypeLabel:
		return "type-label"
	case bucketEdge:
		return "edge-upsert"
	default:
		return "unknown"
	}
}

func bucketFor(shape codec.Shape) bucket {
	switch shape {
	case codec.ShapeLiteralProperty:
		return bucketLiteralProperty
	case codec.ShapeTypeLabel:
		return bucketTypeLabel
	case codec.ShapeEdge:
		return bucketEdge
	default:
		return bucketEdge
	}
}

// state is the transaction's lifecycle position; any call outside
// the begin → (add|delete)* → commit|abort → end sequence is a
// programmer error the buffer rejects rather than silently ignores.
type state int

const (
	stateOpen state = iota
	stateCommitted
	stateAborted
	stateEnded
)

// Transaction buffers codec.StatementSpec values grouped by bucket
// until commit flushes them against the Store Facade.
type Transaction struct {
	facade  *store.Facade
	buckets [bucketCount][]codec.StatementSpec
	state   state
}

// Begin opens a new buffered transaction (spec.md §4.7). The
// transaction is confined to the goroutine that calls it (spec.md §5:
// "the Transaction Buffer is confined to the thread that called
// begin").
func Begin(facade *store.Facade) *Transaction {
	return &Transaction{facade: facade, state: stateOpen}
}

// Add buffers t's EncodeAdd statement for the next commit.
func (tx *Transaction) Add(t *rdf.Triple) error {
	if tx.state != stateOpen {
		return fmt.Errorf("txbuffer: Add called outside an open transaction")
	}
	spec, err := codec.EncodeAdd(t)
	if err != nil {
		return err
	}
	b := bucketFor(spec.Shape)
	tx.buckets[b] = append(tx.buckets[b], *spec)
	return nil
}

// Delete buffers t's EncodeDelete statement for the next commit.
func (tx *Transaction) Delete(t *rdf.Triple) error {
	if tx.state != stateOpen {
		return fmt.Errorf("txbuffer: Delete called outside an open transaction")
	}
	spec, err := codec.EncodeDelete(t)
	if err != nil {
		return err
	}
	b := bucketFor(spec.Shape)
	tx.buckets[b] = append(tx.buckets[b], *spec)
	return nil
}

// Commit flushes the three buckets in fixed order (properties, labels,
// then edges), batching each bucket's statements into UNWIND
// statements of at most MaxBatchSize rows apiece. A driver error during
// any batch aborts the commit; batches already flushed are not rolled
// back — the caller receives an *errs.PartialCommit naming the bucket
// and batch index so it can reconcile (spec.md §4.7).
func (tx *Transaction) Commit(ctx context.Context) error {
	if tx.state != stateOpen {
		return fmt.Errorf("txbuffer: Commit called outside an open transaction")
	}

	for _, b := range []bucket{bucketLiteralProperty, bucketTypeLabel, bucketEdge} {
		// Predicate names are baked into each statement's Cypher text
		// (Cypher property/label names cannot themselves be bound
		// parameters), so only statements sharing identical Cypher can
		// share one UNWIND batch — group by template before chunking.
		batchIndex := 0
		for _, group := range groupByTemplate(tx.buckets[b]) {
			for _, batch := range chunk(group, MaxBatchSize) {
				if err := tx.flushBatch(ctx, batch); err != nil {
					tx.state = stateAborted
					return &errs.PartialCommit{Bucket: b.name(), BatchIndex: batchIndex, Err: err}
				}
				batchIndex++
			}
		}
	}

	tx.state = stateCommitted
	return nil
}

// flushBatch sends one batch as a single UNWIND statement. Every
// statement in batch was grouped by identical Cypher text beforehand,
// so their parameter maps are collected into a $rows list and that
// shared Cypher text is rewritten once to iterate it.
func (tx *Transaction) flushBatch(ctx context.Context, batch []codec.StatementSpec) error {
	if len(batch) == 0 {
		return nil
	}
	if len(batch) == 1 {
		_, err := tx.facade.Query(ctx, batch[0].Cypher, batch[0].Params)
		return err
	}

	rows := make([]map[string]any, len(batch))
	for i, spec := range batch {
		rows[i] = spec.Params
	}
	cypher := unwindRows(batch[0].Cypher, batch[0].Params)
	_, err := tx.facade.Query(ctx, cypher, map[string]any{"rows": rows})
	return err
}

// unwindRows rewrites a single-row parameterized statement into an
// UNWIND $rows AS row form, referencing each original $name parameter
// as row.name.
func unwindRows(cypher string, sampleParams map[string]any) string {
	rewritten := cypher
	for name := range sampleParams {
		rewritten = replaceParam(rewritten, name, "row."+name)
	}
	return fmt.Sprintf("UNWIND $rows AS row %s", rewritten)
}

func replaceParam(cypher, name, replacement string) string {
	needle := "$" + name
	out := make([]byte, 0, len(cypher))
	for i := 0; i < len(cypher); {
		if i+len(needle) <= len(cypher) && cypher[i:i+len(needle)] == needle {
			boundaryOK := i+len(needle) == len(cypher) || !isIdentByte(cypher[i+len(needle)])
			if boundaryOK {
				out = append(out, replacement...)
				i += len(needle)
				continue
			}
		}
		out = append(out, cypher[i])
		i++
	}
	return string(out)
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Abort discards the buffer without touching the store (spec.md §4.7:
// "On abort, the buffer is discarded").
func (tx *Transaction) Abort() error {
	if tx.state != stateOpen {
		return fmt.Errorf("txbuffer: Abort called outside an open transaction")
	}
	tx.state = stateAborted
	return nil
}

// End releases the transaction regardless of outcome (spec.md §4.7).
// Calling End twice, or calling it on a transaction that never
// committed or aborted, is a no-op past the first call.
func (tx *Transaction) End() {
	if tx.state == stateOpen {
		tx.state = stateAborted
	}
	tx.state = stateEnded
}

// groupByTemplate partitions specs into runs that share identical
// Cypher text, preserving first-seen order.
func groupByTemplate(specs []codec.StatementSpec) [][]codec.StatementSpec {
	if len(specs) == 0 {
		return nil
	}
	order := make([]string, 0)
	groups := make(map[string][]codec.StatementSpec)
	for _, spec := range specs {
		if _, ok := groups[spec.Cypher]; !ok {
			order = append(order, spec.Cypher)
		}
		groups[spec.Cypher] = append(groups[spec.Cypher], spec)
	}
	out := make([][]codec.StatementSpec, len(order))
	for i, cypher := range order {
		out[i] = groups[cypher]
	}
	return out
}

func chunk(specs []codec.StatementSpec, size int) [][]codec.StatementSpec {
	if len(specs) == 0 {
		return nil
	}
	var out [][]codec.StatementSpec
	for i := 0; i < len(specs); i += size {
		end := i + size
		if end > len(specs) {
			end = len(specs)
		}
		out = append(out, specs[i:end])
	}
	return out
}
