package construct

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/alicebob/miniredis/v2/server"

	"github.com/falkordb/go-sparql-adapter/falkordbconn"
	"github.com/falkordb/go-sparql-adapter/internal/store"
	"github.com/falkordb/go-sparql-adapter/pkg/algebra"
	"github.com/falkordb/go-sparql-adapter/pkg/rdf"
)

func newTestFacade(t *testing.T, handler func(c *server.Peer, cmd string, args []string)) (*store.Facade, *miniredis.Miniredis) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	m.Server().Register("GRAPH.RO_QUERY", handler)
	driver := falkordbconn.Open(m.Addr())
	return store.New(driver, "testgraph"), m
}

func TestExecuteInstantiatesTemplatePerBindingAndDedupes(t *testing.T) {
	f, m := newTestFacade(t, func(c *server.Peer, cmd string, args []string) {
		c.WriteLen(3)
		c.WriteLen(1)
		c.WriteBulk("name")
		c.WriteLen(2)
		c.WriteLen(1)
		c.WriteBulk("Alice")
		c.WriteLen(1)
		c.WriteBulk("Alice")
		c.WriteLen(0)
	})
	defer m.Close()

	wherePatterns := []algebra.TriplePattern{
		{
			Subject:   algebra.IRITerm(rdf.NewNamedNode("http://ex.org/alice")),
			Predicate: algebra.IRITerm(rdf.NewNamedNode("http://ex.org/name")),
			Object:    algebra.VarTermNamed("name"),
		},
	}
	template := []TemplateTriple{
		{
			Subject:   algebra.IRITerm(rdf.NewNamedNode("http://ex.org/alice")),
			Predicate: algebra.IRITerm(rdf.NewNamedNode("http://ex.org/label")),
			Object:    algebra.VarTermNamed("name"),
		},
	}

	triples, err := Execute(context.Background(), f, wherePatterns, template)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(triples) != 1 {
		t.Fatalf("expected duplicate bindings to collapse into 1 triple, got %d", len(triples))
	}
}

func TestDescribeCollectsSubjectTriples(t *testing.T) {
	f, m := newTestFacade(t, func(c *server.Peer, cmd string, args []string) {
		c.WriteLen(3)
		c.WriteLen(2)
		c.WriteBulk("p")
		c.WriteBulk("o")
		c.WriteLen(1)
		c.WriteLen(2)
		c.WriteBulk("http://ex.org/knows")
		c.WriteBulk("http://ex.org/bob")
		c.WriteLen(0)
	})
	defer m.Close()

	triples, err := Describe(context.Background(), f, []*rdf.NamedNode{rdf.NewNamedNode("http://ex.org/alice")})
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if len(triples) != 1 {
		t.Fatalf("expected 1 described triple, got %d", len(triples))
	}
}
