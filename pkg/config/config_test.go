package config

import (
	"testing"

	"github.com/falkordb/go-sparql-adapter/falkordbconn"
)

func TestValidateRequiresGraphName(t *testing.T) {
	c := Config{Host: "localhost", Port: 6379}
	if err := c.Validate(); err == nil {
		t.Fatal("expected missing graphName to fail validation")
	}
}

func TestValidateRequiresHostAndPortWithoutDriver(t *testing.T) {
	c := Config{GraphName: "g"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected missing host/port to fail validation")
	}
}

func TestValidateAcceptsExplicitDriverWithoutHostPort(t *testing.T) {
	c := Config{GraphName: "g", Driver: falkordbconn.NewDriver(nil)}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected an explicit driver to bypass host/port, got %v", err)
	}
}

func TestValidateAcceptsCompleteHostPortConfig(t *testing.T) {
	c := Config{Host: "localhost", Port: 6379, GraphName: "g"}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}
