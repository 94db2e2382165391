// Package config holds the four knobs spec.md §6 enumerates as the
// adapter's complete configuration surface: host, port, graphName,
// and tracing.enabled, plus an explicit driver override for advanced
// deployments (auth, TLS, pool tuning). Grounded on the teacher's
// server.NewServer constructor-injection style (internal/server),
// which takes its dependencies as explicit fields rather than reading
// a config struct off disk.
package config

import (
	"fmt"

	"github.com/falkordb/go-sparql-adapter/falkordbconn"
)

// Config is the adapter's full configuration surface (spec.md §6:
// "a faithful implementation must recognize exactly these knobs").
type Config struct {
	// Host and Port locate the FalkorDB instance. Ignored when Driver
	// is set.
	Host string
	Port int

	// GraphName is the named graph every Store Facade call addresses.
	GraphName string

	// TracingEnabled turns the observability layer on or off.
	TracingEnabled bool

	// Driver bypasses Host/Port when set, for advanced cases (auth,
	// TLS, pool tuning) the host/port pair cannot express.
	Driver *falkordbconn.Driver
}

// Validate rejects configurations that cannot be turned into a working
// Facade: GraphName is always required, and either Driver or a
// (Host, Port) pair must locate the store. Host and Port are not
// checked when Driver is set.
func (c Config) Validate() error {
	if c.GraphName == "" {
		return fmt.Errorf("config: graphName is required")
	}
	if c.Driver != nil {
		return nil
	}
	if c.Host == "" {
		return fmt.Errorf("config: host is required when no explicit driver is set")
	}
	if c.Port <= 0 {
		return fmt.Errorf("config: port must be positive when no explicit driver is set")
	}
	return nil
}

// BuildDriver returns Driver if set, otherwise opens a new one against
// Host/Port.
func (c Config) BuildDriver() *falkordbconn.Driver {
	if c.Driver != nil {
		return c.Driver
	}
	return falkordbconn.Open(fmt.Sprintf("%s:%d", c.Host, c.Port))
}
