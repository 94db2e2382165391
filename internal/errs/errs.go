// Package errs defines the error kinds from spec.md §7. Pure
// components (the analyzer and translators) only ever return
// Untranslatable; everything else propagates from the Store Facade
// and the Transaction Buffer up to the host SPARQL engine unchanged.
package errs

import "fmt"

// Untranslatable is returned by the Pattern/Expression/Geospatial
// Translator when a pattern falls outside the supported subset. The
// Algebra Executor converts it into a fallback and a WARN log; it is
// never surfaced to the caller.
type Untranslatable struct {
	Kind   string // "BGP", "FILTER", "OPTIONAL", "UNION", "GROUP"
	Reason string
}

func (e *Untranslatable) Error() string {
	return fmt.Sprintf("%s pushdown optimization not applicable: %s", e.Kind, e.Reason)
}

func NewUntranslatable(kind, reason string) *Untranslatable {
	return &Untranslatable{Kind: kind, Reason: reason}
}

// StoreUnavailable is a network or authentication failure against the
// backing store. Transactions in flight are aborted.
type StoreUnavailable struct {
	Err error
}

func (e *StoreUnavailable) Error() string {
	return fmt.Sprintf("store unavailable: %v", e.Err)
}

func (e *StoreUnavailable) Unwrap() error { return e.Err }

// StoreProtocol means the store returned an unexpected shape (missing
// column, wrong type): a version mismatch or encoding violation.
type StoreProtocol struct {
	Detail string
}

func (e *StoreProtocol) Error() string {
	return fmt.Sprintf("store protocol violation: %s", e.Detail)
}

// PartialCommit means a batch inside a multi-batch commit failed after
// earlier batches already succeeded; the store is left non-atomic.
type PartialCommit struct {
	Bucket     string
	BatchIndex int
	Err        error
}

func (e *PartialCommit) Error() string {
	return fmt.Sprintf("partial commit: bucket %q batch %d failed: %v", e.Bucket, e.BatchIndex, e.Err)
}

func (e *PartialCommit) Unwrap() error { return e.Err }

// UnsupportedDatatype means an incoming literal's datatype cannot be
// encoded and no metadata fallback applies.
type UnsupportedDatatype struct {
	DatatypeIRI string
}

func (e *UnsupportedDatatype) Error() string {
	return fmt.Sprintf("unsupported datatype: %s", e.DatatypeIRI)
}

// InvalidWKT is geospatial input that could not be parsed as WKT. It
// is surfaced only when geospatial pushdown was requested explicitly;
// otherwise the caller downgrades it to Untranslatable.
type InvalidWKT struct {
	Input string
	Err   error
}

func (e *InvalidWKT) Error() string {
	return fmt.Sprintf("invalid WKT %q: %v", e.Input, e.Err)
}

func (e *InvalidWKT) Unwrap() error { return e.Err }
