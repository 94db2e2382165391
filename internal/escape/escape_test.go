package escape

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/alicebob/miniredis/v2/server"

	"github.com/falkordb/go-sparql-adapter/falkordbconn"
	"github.com/falkordb/go-sparql-adapter/internal/store"
	"github.com/falkordb/go-sparql-adapter/pkg/rdf"
)

func newTestFacade(t *testing.T, handler func(c *server.Peer, cmd string, args []string)) (*store.Facade, *miniredis.Miniredis) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	m.Server().Register("GRAPH.QUERY", handler)
	driver := falkordbconn.Open(m.Addr())
	return store.New(driver, "testgraph"), m
}

func TestExecuteDecodesURIAndLiteralColumns(t *testing.T) {
	f, m := newTestFacade(t, func(c *server.Peer, cmd string, args []string) {
		c.WriteLen(3)
		c.WriteLen(2)
		c.WriteBulk("s")
		c.WriteBulk("name")
		c.WriteLen(1)
		c.WriteLen(2)
		c.WriteBulk("http://ex.org/alice")
		c.WriteBulk("Alice")
		c.WriteLen(0)
	})
	defer m.Close()

	rows, err := Execute(context.Background(), f, "MATCH (s:Resource) RETURN s.uri, s.name", nil, []string{"s", "name"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if _, ok := rows[0]["s"].(*rdf.NamedNode); !ok {
		t.Fatalf("expected ?s to decode as a NamedNode, got %T", rows[0]["s"])
	}
	if _, ok := rows[0]["name"].(*rdf.Literal); !ok {
		t.Fatalf("expected ?name to decode as a Literal, got %T", rows[0]["name"])
	}
}

func TestExecuteRejectsColumnCountMismatch(t *testing.T) {
	f, m := newTestFacade(t, func(c *server.Peer, cmd string, args []string) {
		c.WriteLen(3)
		c.WriteLen(1)
		c.WriteBulk("s")
		c.WriteLen(0)
		c.WriteLen(0)
	})
	defer m.Close()

	_, err := Execute(context.Background(), f, "MATCH (s:Resource) RETURN s.uri", nil, []string{"s", "extra"})
	if err == nil {
		t.Fatal("expected a column-count mismatch to fail")
	}
}

func TestLooksLikeResourceReferenceRecognizesBlankNodes(t *testing.T) {
	if !looksLikeResourceReference("_:b0") {
		t.Fatal("expected a blank-node id to be recognized as a resource reference")
	}
	if looksLikeResourceReference("Alice") {
		t.Fatal("expected a plain literal string not to be recognized as a resource reference")
	}
}
