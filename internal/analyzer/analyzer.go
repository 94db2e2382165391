// Package analyzer implements the Variable Analyzer (spec.md §4.2): a
// pure, deterministic classification of every variable in a BGP into
// NODE, PREDICATE, or AMBIGUOUS, used by the Pattern Compiler to
// decide whether an object position can be treated as an edge
// endpoint, requires a properties/edges UNION, or must fall back.
package analyzer

import "github.com/falkordb/go-sparql-adapter/pkg/algebra"

// Role is a variable's classification within one BGP.
type Role int

const (
	// AMBIGUOUS: appears only in object position. May bind to a
	// resource (edge target) or a literal (property value).
	AMBIGUOUS Role = iota
	// NODE: appears as subject at least once. The subject rule
	// dominates — a variable that is ever a subject is NODE
	// regardless of its other occurrences.
	NODE
	// PREDICATE: appears in predicate position, never as subject.
	PREDICATE
)

func (r Role) String() string {
	switch r {
	case NODE:
		return "NODE"
	case PREDICATE:
		return "PREDICATE"
	default:
		return "AMBIGUOUS"
	}
}

// Result is the per-variable classification of one BGP.
type Result struct {
	roles map[string]Role
}

// Role returns the classification of variable name. Variables never
// mentioned in the BGP report AMBIGUOUS as their zero value; callers
// should only query names that occur in the BGP.
func (r *Result) Role(name string) Role {
	return r.roles[name]
}

// Variables returns every variable name classified by this result.
func (r *Result) Variables() []string {
	names := make([]string, 0, len(r.roles))
	for name := range r.roles {
		names = append(names, name)
	}
	return names
}

// CountByRole returns how many variables in the result carry role.
func (r *Result) CountByRole(role Role) int {
	n := 0
	for _, got := range r.roles {
		if got == role {
			n++
		}
	}
	return n
}

// Analyze classifies every variable occurring in patterns. It performs
// no I/O and is deterministic: calling it twice on the same input
// produces the same Result.
func Analyze(patterns []algebra.TriplePattern) *Result {
	roles := make(map[string]Role)

	// Pass 1: predicate-position variables default to PREDICATE.
	for _, p := range patterns {
		if p.Predicate.IsVariable() {
			name := p.Predicate.Var.Name
			if _, seen := roles[name]; !seen {
				roles[name] = PREDICATE
			}
		}
	}

	// Pass 2: object-position variables default to AMBIGUOUS unless
	// already classified as something stronger.
	for _, p := range patterns {
		if p.Object.IsVariable() {
			name := p.Object.Var.Name
			if cur, seen := roles[name]; !seen {
				roles[name] = AMBIGUOUS
			} else if cur == PREDICATE {
				// Occurs both as a predicate elsewhere and as an
				// object here; object position alone doesn't change a
				// PREDICATE classification unless it's later also a
				// subject (pass 3 promotes to NODE).
				_ = cur
			}
		}
	}

	// Pass 3: subject-position variables are always NODE. The subject
	// rule dominates every other occurrence.
	for _, p := range patterns {
		if p.Subject.IsVariable() {
			roles[p.Subject.Var.Name] = NODE
		}
	}

	return &Result{roles: roles}
}
