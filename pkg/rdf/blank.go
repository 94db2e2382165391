package rdf

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// NewSessionBlankNode mints a fresh blank node identifier scoped to
// the calling process, for callers that don't already have a stable
// source identifier to hash (spec.md §3: blank-node `uri` is always
// `_:` + an identifier). Grounded on the pack's use of google/uuid for
// session-scoped identifiers (roach88-nysm's go.mod).
func NewSessionBlankNode() *BlankNode {
	return NewBlankNode(uuid.NewString())
}

// NewDeterministicBlankNode derives a stable blank node identifier
// from sourceKey (e.g. an upstream document's own node id), so the
// same source always round-trips to the same blank node across
// reinsertion. Grounded on the teacher's TermEncoder.Hash128, which
// hashes term text with xxh3 for its own interned identifiers.
func NewDeterministicBlankNode(sourceKey string) *BlankNode {
	hash := xxh3.Hash128([]byte(sourceKey))
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], hash.Hi)
	binary.BigEndian.PutUint64(buf[8:16], hash.Lo)
	return NewBlankNode(hex.EncodeToString(buf[:]))
}
