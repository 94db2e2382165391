package model

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/alicebob/miniredis/v2/server"

	"github.com/falkordb/go-sparql-adapter/falkordbconn"
	"github.com/falkordb/go-sparql-adapter/internal/store"
	"github.com/falkordb/go-sparql-adapter/pkg/rdf"
)

func newTestModel(t *testing.T, handler func(c *server.Peer, cmd string, args []string)) (*Model, *miniredis.Miniredis) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	m.Server().Register("GRAPH.QUERY", handler)
	m.Server().Register("GRAPH.RO_QUERY", handler)
	driver := falkordbconn.Open(m.Addr())
	return &Model{facade: store.New(driver, "testgraph")}, m
}

func TestAddTripleWritesLiteralProperty(t *testing.T) {
	var seenCypher string
	model, m := newTestModel(t, func(c *server.Peer, cmd string, args []string) {
		if len(args) == 2 {
			seenCypher = args[1]
		}
		c.WriteLen(0)
	})
	defer m.Close()

	triple := rdf.NewTriple(rdf.NewNamedNode("http://ex.org/alice"), rdf.NewNamedNode("http://ex.org/age"), rdf.NewIntegerLiteral(30))
	if err := model.AddTriple(context.Background(), triple); err != nil {
		t.Fatalf("AddTriple: %v", err)
	}
	if seenCypher == "" {
		t.Fatal("expected AddTriple to issue a statement")
	}
}

func TestContainsTripleReportsPresence(t *testing.T) {
	model, m := newTestModel(t, func(c *server.Peer, cmd string, args []string) {
		c.WriteLen(3)
		c.WriteLen(1)
		c.WriteBulk("uri")
		c.WriteLen(1)
		c.WriteLen(1)
		c.WriteBulk("http://ex.org/alice")
		c.WriteLen(0)
	})
	defer m.Close()

	triple := rdf.NewTriple(rdf.NewNamedNode("http://ex.org/alice"), rdf.NewNamedNode("http://ex.org/age"), rdf.NewIntegerLiteral(30))
	found, err := model.ContainsTriple(context.Background(), triple)
	if err != nil {
		t.Fatalf("ContainsTriple: %v", err)
	}
	if !found {
		t.Fatal("expected ContainsTriple to report true")
	}
}

func TestFindTriplesWithWildcardObjectDecodesRows(t *testing.T) {
	model, m := newTestModel(t, func(c *server.Peer, cmd string, args []string) {
		c.WriteLen(3)
		c.WriteLen(1)
		c.WriteBulk("__o")
		c.WriteLen(1)
		c.WriteLen(1)
		c.WriteBulk("30")
		c.WriteLen(0)
	})
	defer m.Close()

	triples, err := model.FindTriples(context.Background(), rdf.NewNamedNode("http://ex.org/alice"), rdf.NewNamedNode("http://ex.org/age"), nil)
	if err != nil {
		t.Fatalf("FindTriples: %v", err)
	}
	if len(triples) != 1 {
		t.Fatalf("expected 1 triple, got %d", len(triples))
	}
}

func TestBeginTransactionAddAndCommit(t *testing.T) {
	flushed := 0
	model, m := newTestModel(t, func(c *server.Peer, cmd string, args []string) {
		flushed++
		c.WriteLen(0)
	})
	defer m.Close()

	tx := model.BeginTransaction()
	triple := rdf.NewTriple(rdf.NewNamedNode("http://ex.org/alice"), rdf.NewNamedNode("http://ex.org/age"), rdf.NewIntegerLiteral(30))
	if err := tx.Add(triple); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if flushed != 0 {
		t.Fatal("Add must not touch the store before Commit")
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if flushed == 0 {
		t.Fatal("expected Commit to flush the buffered write")
	}
}
