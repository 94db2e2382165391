package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/alicebob/miniredis/v2/server"

	"github.com/falkordb/go-sparql-adapter/falkordbconn"
)

func newTestFacade(t *testing.T, handler func(c *server.Peer, cmd string, args []string)) (*Facade, *miniredis.Miniredis) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	m.Server().Register("GRAPH.QUERY", handler)
	m.Server().Register("GRAPH.RO_QUERY", handler)
	driver := falkordbconn.Open(m.Addr())
	return New(driver, "testgraph"), m
}

func TestFacadeQueryReturnsRows(t *testing.T) {
	f, m := newTestFacade(t, func(c *server.Peer, cmd string, args []string) {
		c.WriteLen(3)
		c.WriteLen(1)
		c.WriteBulk("uri")
		c.WriteLen(1)
		c.WriteLen(1)
		c.WriteBulk("http://ex.org/alice")
		c.WriteLen(0)
	})
	defer m.Close()

	result, err := f.Query(context.Background(), "MATCH (n) RETURN n.uri", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
}

func TestFacadeMultiStopsOnFirstError(t *testing.T) {
	calls := 0
	f, m := newTestFacade(t, func(c *server.Peer, cmd string, args []string) {
		calls++
		if calls == 2 {
			c.WriteError("boom")
			return
		}
		c.WriteLen(0)
	})
	defer m.Close()

	err := f.Multi(context.Background(), []Statement{
		{Cypher: "RETURN 1"},
		{Cypher: "RETURN 2"},
		{Cypher: "RETURN 3"},
	})
	if err == nil {
		t.Fatal("expected Multi to surface the second statement's error")
	}
	if calls != 2 {
		t.Fatalf("expected Multi to stop after the failing statement, ran %d", calls)
	}
}

func TestFacadeEnsureResourceIndexSwallowsAlreadyIndexed(t *testing.T) {
	f, m := newTestFacade(t, func(c *server.Peer, cmd string, args []string) {
		c.WriteError("Attribute 'uri' is already indexed")
	})
	defer m.Close()

	if err := f.EnsureResourceIndex(context.Background()); err != nil {
		t.Fatalf("expected already-indexed error to be swallowed, got %v", err)
	}
}
