// Package ask implements SPARQL ASK (SPEC_FULL.md §4, spec.md §6
// "SPARQL SELECT/ASK/CONSTRUCT/DESCRIBE execution via the algebra
// dispatch path"). An ASK query compiles the same way a SELECT BGP
// does; only the last mile differs, since the caller needs a boolean
// rather than a bound variable.
//
// Grounded on the teacher's executor.AskResult / executeAsk: the
// teacher builds the same iterator a SELECT would and asks it for one
// result (`iter.Next()`); this appends LIMIT 1 to the Pattern
// Compiler's statement instead, pushed down rather than iterator-driven.
package ask

import (
	"context"
	"fmt"

	"github.com/falkordb/go-sparql-adapter/internal/compiler"
	"github.com/falkordb/go-sparql-adapter/internal/store"
	"github.com/falkordb/go-sparql-adapter/pkg/algebra"
)

// Execute compiles patterns (with an optional filter expr, nil if
// absent) and reports whether at least one match exists.
func Execute(ctx context.Context, facade *store.Facade, patterns []algebra.TriplePattern, filter algebra.Expression) (bool, error) {
	// An ASK query projects no variable; compiling with an empty
	// outputVars list makes the Pattern Compiler emit a bare "RETURN 1"
	// existence probe instead of a variable binding.
	var plan *compiler.Plan
	var err error
	if filter != nil {
		plan, err = compiler.CompileFilter(patterns, nil, filter)
	} else {
		plan, err = compiler.CompileBGP(patterns, nil)
	}
	if err != nil {
		return false, err
	}

	cypher := fmt.Sprintf("%s LIMIT 1", plan.Cypher)
	result, err := facade.QueryReadOnly(ctx, cypher, plan.Params)
	if err != nil {
		return false, err
	}
	return len(result.Rows) > 0, nil
}
