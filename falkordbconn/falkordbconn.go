// Package falkordbconn is the Cypher driver the Store Facade is built
// on (spec.md §6: "Consumed: Cypher driver"). FalkorDB speaks the Redis
// wire protocol: a client issues GRAPH.QUERY / GRAPH.RO_QUERY and reads
// back a [header, rows, statistics] reply. This package wraps
// github.com/redis/go-redis/v9's UniversalClient the way the pack's
// rag-store-falkordb.go wraps redis.NewClient, but parameterizes
// queries with FalkorDB's "CYPHER k=v ..." prefix instead of string
// interpolation, and returns already-typed Go values per row instead of
// the raw RESP reply.
package falkordbconn

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Driver is a thin, typed wrapper over a pooled Redis client issuing
// FalkorDB's graph commands.
type Driver struct {
	client redis.UniversalClient
}

// NewDriver wraps an existing client. The Store Facade owns connection
// pool configuration (spec.md §4.9); this constructor just accepts
// whatever *redis.Client / *redis.ClusterClient / *redis.Ring the
// caller built — mirroring redis.UniversalClient's role in the pack's
// FalkorDBGraph.
func NewDriver(client redis.UniversalClient) *Driver {
	return &Driver{client: client}
}

// Open is a convenience constructor for the common single-node case,
// grounded on the pack's NewFalkorDBGraph(addr string).
func Open(addr string) *Driver {
	return NewDriver(redis.NewClient(&redis.Options{Addr: addr}))
}

// Close releases the underlying client's connections.
func (d *Driver) Close() error {
	return d.client.Close()
}

// Result is one GRAPH.QUERY / GRAPH.RO_QUERY reply: column names plus
// the decoded rows (spec.md §4.9: "rows are positional... values are
// either primitives, null, or node/edge proxies").
type Result struct {
	Columns []string
	Rows    [][]any
}

// Query runs cypher against graph with params substituted via
// FalkorDB's CYPHER-prefix parameter syntax, using GRAPH.QUERY (a
// read-write statement).
func (d *Driver) Query(ctx context.Context, graph, cypher string, params map[string]any) (*Result, error) {
	return d.run(ctx, "GRAPH.QUERY", graph, cypher, params)
}

// QueryReadOnly is Query's GRAPH.RO_QUERY counterpart: the store
// rejects any write inside the statement.
func (d *Driver) QueryReadOnly(ctx context.Context, graph, cypher string, params map[string]any) (*Result, error) {
	return d.run(ctx, "GRAPH.RO_QUERY", graph, cypher, params)
}

func (d *Driver) run(ctx context.Context, command, graph, cypher string, params map[string]any) (*Result, error) {
	full := withParamPrefix(cypher, params)
	reply, err := d.client.Do(ctx, command, graph, full).Result()
	if err != nil {
		return nil, fmt.Errorf("falkordbconn: %s failed: %w", command, err)
	}
	return parseReply(reply)
}

// EnsureIndex issues CREATE INDEX FOR (n:label) ON (n.property),
// swallowing the "already indexed" error FalkorDB returns on repeat
// calls (spec.md §4.9: "idempotent; swallows 'already exists'").
func (d *Driver) EnsureIndex(ctx context.Context, graph, label, property string) error {
	cypher := fmt.Sprintf("CREATE INDEX FOR (n:`%s`) ON (n.`%s`)", label, property)
	_, err := d.Query(ctx, graph, cypher, nil)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "already indexed") {
		return nil
	}
	return err
}

// withParamPrefix renders FalkorDB's "CYPHER k1=v1 k2=v2 ..." parameter
// header. Keys are sorted for deterministic output (useful for tests
// and logs); FalkorDB does not require any particular order.
func withParamPrefix(cypher string, params map[string]any) string {
	if len(params) == 0 {
		return cypher
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("CYPHER ")
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(literalText(params[k]))
		sb.WriteString(" ")
	}
	sb.WriteString(cypher)
	return sb.String()
}

// literalText renders v as a Cypher literal for the "CYPHER k=v ..."
// parameter header. The Transaction Buffer's batched UNWIND flush
// (internal/txbuffer, spec.md §4.7) passes a "rows" parameter shaped
// []map[string]any — a list of maps — so list and map values must
// render as Cypher list/map literals, not a quoted Go %v string, or
// the server receives a single string where it expects a list.
func literalText(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case []map[string]any:
		items := make([]string, len(val))
		for i, row := range val {
			items[i] = mapLiteralText(row)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case []any:
		items := make([]string, len(val))
		for i, e := range val {
			items[i] = literalText(e)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		return mapLiteralText(val)
	default:
		return strconv.Quote(fmt.Sprintf("%v", val))
	}
}

// mapLiteralText renders m as a Cypher map literal, with keys sorted
// for deterministic output.
func mapLiteralText(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, literalText(m[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// parseReply decodes a GRAPH.QUERY / GRAPH.RO_QUERY RESP reply. A
// result-producing query replies with a 3-element array: [header,
// rows, statistics]; a write-only statement with no RETURN replies
// with just [statistics] (one element). Header entries are either the
// bare column name (verbose protocol) or a [type, name] pair (compact
// protocol); either form is accepted.
func parseReply(reply any) (*Result, error) {
	top, ok := reply.([]any)
	if !ok || len(top) == 0 {
		return &Result{}, nil
	}
	if len(top) < 3 {
		// Statistics only: a write with no projected columns.
		return &Result{}, nil
	}

	headerRaw, ok := top[0].([]any)
	if !ok {
		return nil, fmt.Errorf("falkordbconn: unexpected header shape %T", top[0])
	}
	columns := make([]string, len(headerRaw))
	for i, h := range headerRaw {
		columns[i] = columnName(h)
	}

	rowsRaw, ok := top[1].([]any)
	if !ok {
		return nil, fmt.Errorf("falkordbconn: unexpected rows shape %T", top[1])
	}
	rows := make([][]any, len(rowsRaw))
	for i, r := range rowsRaw {
		cells, ok := r.([]any)
		if !ok {
			return nil, fmt.Errorf("falkordbconn: unexpected row shape %T", r)
		}
		decoded := make([]any, len(cells))
		for j, c := range cells {
			decoded[j] = decodeValue(c)
		}
		rows[i] = decoded
	}

	return &Result{Columns: columns, Rows: rows}, nil
}

func columnName(h any) string {
	switch v := h.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case []any:
		if len(v) == 2 {
			return columnName(v[1])
		}
		if len(v) == 1 {
			return columnName(v[0])
		}
	}
	return fmt.Sprintf("%v", h)
}

// decodeValue normalizes one scalar cell. Node and edge values surface
// as []any (FalkorDB's compact entity encoding); this driver leaves
// them as NodeProxy/EdgeProxy so a caller working outside the Pattern
// Compiler's scalar-only projections can still inspect them (spec.md
// §4.9: "node/edge proxies that expose labels, properties, and
// endpoints").
func decodeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case []any:
		if p, ok := asNodeProxy(val); ok {
			return p
		}
		if p, ok := asEdgeProxy(val); ok {
			return p
		}
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = decodeValue(e)
		}
		return out
	default:
		return v
	}
}

// NodeProxy exposes a raw node value's labels and properties without
// requiring the caller to know FalkorDB's compact wire encoding.
type NodeProxy struct {
	ID         int64
	Labels     []string
	Properties map[string]any
}

// EdgeProxy exposes a raw edge value's type, endpoints, and properties.
type EdgeProxy struct {
	ID         int64
	Type       string
	SourceID   int64
	TargetID   int64
	Properties map[string]any
}

func asNodeProxy(v []any) (*NodeProxy, bool) {
	if len(v) != 3 {
		return nil, false
	}
	id, ok := asInt64(v[0])
	if !ok {
		return nil, false
	}
	labelsRaw, ok := v[1].([]any)
	if !ok {
		return nil, false
	}
	labels := make([]string, len(labelsRaw))
	for i, l := range labelsRaw {
		labels[i] = fmt.Sprintf("%v", decodeValue(l))
	}
	props, ok := decodePropertyList(v[2])
	if !ok {
		return nil, false
	}
	return &NodeProxy{ID: id, Labels: labels, Properties: props}, true
}

func asEdgeProxy(v []any) (*EdgeProxy, bool) {
	if len(v) != 5 {
		return nil, false
	}
	id, ok := asInt64(v[0])
	if !ok {
		return nil, false
	}
	typeName, ok := v[1].(string)
	if !ok {
		if b, isBytes := v[1].([]byte); isBytes {
			typeName = string(b)
		} else {
			return nil, false
		}
	}
	src, ok := asInt64(v[2])
	if !ok {
		return nil, false
	}
	dst, ok := asInt64(v[3])
	if !ok {
		return nil, false
	}
	props, ok := decodePropertyList(v[4])
	if !ok {
		return nil, false
	}
	return &EdgeProxy{ID: id, Type: typeName, SourceID: src, TargetID: dst, Properties: props}, true
}

func decodePropertyList(v any) (map[string]any, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	props := make(map[string]any, len(list))
	for _, entry := range list {
		pair, ok := entry.([]any)
		if !ok || len(pair) != 2 {
			return nil, false
		}
		key := fmt.Sprintf("%v", decodeValue(pair[0]))
		props[key] = decodeValue(pair[1])
	}
	return props, true
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
