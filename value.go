package gitobj

import (
	"bytes"
	"fmt"
	"strconv"
)

// Value is the sum type over Git's four object kinds. Concrete
// implementations are Blob, Tree, Commit, and Tag. Values are immutable
// once constructed; callers must not mutate the slices a Value returns.
type Value interface {
	// Kind reports which of {Blob, Tree, Commit, Tag} this value is.
	Kind() ObjectKind
}

// Blob is an opaque byte sequence: a file's content.
type Blob struct {
	Data []byte
}

// Kind implements Value.
func (Blob) Kind() ObjectKind { return KindBlob }

// codec bundles the two external collaborators the value layer depends on:
// Digest for content-addressing and ZCodec for the on-disk wire format.
// Store constructs one and threads it through Loose/Packed so the whole
// object database shares a single digest/compression policy.
type codec struct {
	digest Digest
	zcodec ZCodec
}

func newCodec(d Digest, z ZCodec) *codec { return &codec{digest: d, zcodec: z} }

// serializeBody dispatches to the kind-specific ObjectCodec encoder.
func (c *codec) serializeBody(v Value) ([]byte, error) {
	switch t := v.(type) {
	case Blob:
		return t.Data, nil
	case Tree:
		return encodeTree(t), nil
	case Commit:
		return encodeCommit(t), nil
	case Tag:
		return encodeTag(t), nil
	default:
		return nil, fmt.Errorf("%w: unknown Value implementation %T", ErrMalformedBody, v)
	}
}

// SerializeInflated produces "<kind> <size>\0<body>", the exact byte
// sequence Digest hashes and Loose stores deflated (spec invariant 1).
func (c *codec) SerializeInflated(v Value) ([]byte, error) {
	body, err := c.serializeBody(v)
	if err != nil {
		return nil, err
	}
	header := fmt.Sprintf("%s %d\x00", v.Kind(), len(body))
	out := make([]byte, 0, len(header)+len(body))
	out = append(out, header...)
	out = append(out, body...)
	return out, nil
}

// ParseInflated reads the "<kind> <size>\0<body>" framing and dispatches to
// the kind-specific ObjectCodec decoder.
func (c *codec) ParseInflated(data []byte) (Value, error) {
	sp := bytes.IndexByte(data, ' ')
	if sp < 0 {
		return nil, fmt.Errorf("%w: no space after kind", ErrMalformedHeader)
	}
	kind, err := ParseKind(string(data[:sp]))
	if err != nil {
		return nil, err
	}

	rest := data[sp+1:]
	nul := bytes.IndexByte(rest, 0)
	if nul < 0 {
		return nil, fmt.Errorf("%w: no NUL after size", ErrMalformedHeader)
	}

	size, err := strconv.Atoi(string(rest[:nul]))
	if err != nil || size < 0 {
		return nil, fmt.Errorf("%w: non-integer size %q", ErrMalformedHeader, rest[:nul])
	}

	body := rest[nul+1:]
	if len(body) != size {
		return nil, fmt.Errorf("%w: header declares %d bytes, body has %d", ErrSizeMismatch, size, len(body))
	}

	switch kind {
	case KindBlob:
		return Blob{Data: append([]byte(nil), body...)}, nil
	case KindTree:
		return decodeTree(body)
	case KindCommit:
		return decodeCommit(body)
	case KindTag:
		return decodeTag(body)
	default:
		return nil, fmt.Errorf("%w: unhandled kind %v", ErrMalformedHeader, kind)
	}
}

// SerializeDeflated deflates the inflated framing at the given zlib level
// (0-9, or -1 for the zlib default); this is exactly what a loose object
// file holds on disk.
func (c *codec) SerializeDeflated(v Value, level int) ([]byte, error) {
	inflated, err := c.SerializeInflated(v)
	if err != nil {
		return nil, err
	}
	return c.zcodec.Deflate(inflated, level)
}

// ParseDeflated inflates data and parses the result.
func (c *codec) ParseDeflated(data []byte) (Value, error) {
	inflated, err := c.zcodec.Inflate(data)
	if err != nil {
		return nil, err
	}
	return c.ParseInflated(inflated)
}

// HashOf returns Digest(SerializeInflated(v)) — an object's content
// address, per spec invariant 1.
func (c *codec) HashOf(v Value) (Hash, error) {
	inflated, err := c.SerializeInflated(v)
	if err != nil {
		return Hash{}, err
	}
	return c.digest.Sum(inflated), nil
}
