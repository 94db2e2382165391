package falkordbconn

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/alicebob/miniredis/v2/server"
)

func TestWithParamPrefixSortsKeysAndQuotesStrings(t *testing.T) {
	got := withParamPrefix("MATCH (n) RETURN n", map[string]any{
		"b": int64(2),
		"a": "hello",
	})
	want := `CYPHER a="hello" b=2 MATCH (n) RETURN n`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWithParamPrefixNoParamsLeavesCypherUntouched(t *testing.T) {
	got := withParamPrefix("RETURN 1", nil)
	if got != "RETURN 1" {
		t.Fatalf("expected cypher unchanged, got %q", got)
	}
}

func TestLiteralTextEncodesPrimitives(t *testing.T) {
	cases := map[any]string{
		nil:         "null",
		"x":         `"x"`,
		true:        "true",
		int64(7):    "7",
		3.5:         "3.5",
	}
	for in, want := range cases {
		if got := literalText(in); got != want {
			t.Fatalf("literalText(%v): got %q, want %q", in, got, want)
		}
	}
}

func TestLiteralTextEncodesRowsAsListOfMaps(t *testing.T) {
	rows := []map[string]any{
		{"subject": "http://ex.org/alice", "value": int64(30)},
	}
	got := literalText(rows)
	want := `[{subject: "http://ex.org/alice", value: 30}]`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWithParamPrefixRendersRowsParamAsCypherList(t *testing.T) {
	got := withParamPrefix("UNWIND $rows AS row RETURN row", map[string]any{
		"rows": []map[string]any{{"age": int64(30)}},
	})
	want := `CYPHER rows=[{age: 30}] UNWIND $rows AS row RETURN row`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParseReplyDecodesHeaderAndRows(t *testing.T) {
	reply := []any{
		[]any{"uri", "age"},
		[]any{
			[]any{"http://ex.org/alice", int64(30)},
		},
		[]any{"Query internal execution time: 0.1 milliseconds"},
	}
	result, err := parseReply(reply)
	if err != nil {
		t.Fatalf("parseReply: %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "uri" || result.Columns[1] != "age" {
		t.Fatalf("unexpected columns: %v", result.Columns)
	}
	if len(result.Rows) != 1 || result.Rows[0][0] != "http://ex.org/alice" {
		t.Fatalf("unexpected rows: %v", result.Rows)
	}
}

func TestParseReplyStatisticsOnlyReturnsEmptyResult(t *testing.T) {
	reply := []any{[]any{"Nodes created: 1"}}
	result, err := parseReply(reply)
	if err != nil {
		t.Fatalf("parseReply: %v", err)
	}
	if len(result.Columns) != 0 || len(result.Rows) != 0 {
		t.Fatalf("expected empty result for a write-only reply, got %+v", result)
	}
}

func TestDriverQuerySendsCypherPrefixAndDecodesRows(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	defer m.Close()

	var gotQuery string
	m.Server().Register("GRAPH.QUERY", func(c *server.Peer, cmd string, args []string) {
		if len(args) != 2 {
			c.WriteError("wrong number of arguments")
			return
		}
		gotQuery = args[1]
		c.WriteLen(3)
		c.WriteLen(1)
		c.WriteBulk("uri")
		c.WriteLen(1)
		c.WriteLen(1)
		c.WriteBulk("http://ex.org/alice")
		c.WriteLen(1)
		c.WriteBulk("Cached execution: 0")
	})

	driver := Open(m.Addr())
	defer driver.Close()

	result, err := driver.Query(context.Background(), "mygraph", "MATCH (n {uri: $u}) RETURN n.uri", map[string]any{"u": "http://ex.org/alice"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !strings.Contains(gotQuery, `u="http://ex.org/alice"`) {
		t.Fatalf("expected parameter prefix in forwarded query, got %q", gotQuery)
	}
	if len(result.Rows) != 1 || result.Rows[0][0] != "http://ex.org/alice" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestEnsureIndexSwallowsAlreadyIndexedError(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	defer m.Close()

	m.Server().Register("GRAPH.QUERY", func(c *server.Peer, cmd string, args []string) {
		c.WriteError("Label already indexed")
	})

	driver := Open(m.Addr())
	defer driver.Close()

	if err := driver.EnsureIndex(context.Background(), "mygraph", "Resource", "uri"); err != nil {
		t.Fatalf("expected already-indexed error to be swallowed, got %v", err)
	}
}
