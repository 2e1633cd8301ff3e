// Package gitobj implements a content-addressed Git object database: the
// value layer (blob/tree/commit/tag framing and hashing), a two-tier
// loose+packed object store, a two-tier loose+packed-refs reference layer,
// and a checkout engine that materializes a commit's tree onto disk.
package gitobj

import (
	"encoding/hex"
	"fmt"
)

// hashSize is the width in bytes of the digest this package assumes
// throughout: a 20-byte SHA-1, per spec invariant 1. The digest algorithm
// is a parameter of Digest, but the on-disk framing (two-hex-char loose
// object directories, 20-byte ref-delta bases, packed-refs hex fields) is
// fixed to this width.
const hashSize = 20

// Hash is a fixed-width, content-derived object identifier: the 20-byte
// binary form of the SHA-1 digest Git computes over an object's canonical
// framing. The zero Hash never names a real object and is safe to use as a
// map sentinel or an "empty tree" placeholder.
type Hash [hashSize]byte

// ParseHash decodes the canonical 40-character lowercase hex form of a Hash.
// It returns ErrMalformedHeader-independent error when s is not exactly 40
// hex characters.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != hashSize*2 {
		return h, fmt.Errorf("gitobj: hash %q: want %d hex chars, got %d", s, hashSize*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("gitobj: hash %q: %w", s, err)
	}
	copy(h[:], b)
	return h, nil
}

// String returns the lowercase hex form of h.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// IsZero reports whether h is the all-zero sentinel hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// ShortHash is a hex prefix of a Hash, shorter than the full 40 characters,
// used for human-readable object references. A ShortHash of length 40 is
// still accepted by resolution paths that take one; it is simply not
// ambiguous.
type ShortHash string

// Len reports the number of hex characters in s.
func (s ShortHash) Len() int { return len(s) }

// IsFull reports whether s carries a complete hash-length prefix.
func (s ShortHash) IsFull() bool { return len(s) == hashSize*2 }

// Full parses s as a complete Hash. Callers must check IsFull first.
func (s ShortHash) Full() (Hash, error) { return ParseHash(string(s)) }
