package gitobj

import "crypto/sha1" //nolint:gosec // Git object identity is defined as SHA-1; this is a format requirement, not a security boundary.

// Digest computes the content-address of an object's canonical inflated
// framing. It is a parameter so that a future digest transition has a seam,
// but every on-disk format this package writes (loose object paths,
// ref-delta bases, packed-refs entries) is fixed at a 20-byte hash per
// spec invariant 1; a Digest implementation must produce exactly that
// width.
//
// No third-party SHA-1 package appears anywhere in the retrieved reference
// corpus; every implementation that touches Git's object identity — the
// teacher included — reaches for crypto/sha1 directly, so sha1Digest does
// the same rather than inventing a dependency the format does not need.
type Digest interface {
	// Sum returns the 20-byte digest of data.
	Sum(data []byte) Hash
}

// sha1Digest is the default Digest: stdlib crypto/sha1.
type sha1Digest struct{}

// NewSHA1Digest returns the canonical Digest implementation.
func NewSHA1Digest() Digest { return sha1Digest{} }

func (sha1Digest) Sum(data []byte) Hash { return Hash(sha1.Sum(data)) }
