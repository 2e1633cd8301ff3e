package gitobj

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePackEntryHeaderSmall(t *testing.T) {
	// type=3 (blob), size=5, fits in the single header byte (4 size bits).
	data := []byte{0b0011_0101}
	typ, size, n := parsePackEntryHeader(data)
	assert.Equal(t, packObjBlob, typ)
	assert.Equal(t, uint64(5), size)
	assert.Equal(t, 1, n)
}

func TestParsePackEntryHeaderMultiByte(t *testing.T) {
	// First byte: continuation bit set, type=3, low 4 size bits = 0xf.
	// Second byte: no continuation, 7 more size bits = 1 -> total size = 0xf | (1<<4) = 31.
	data := []byte{0b1011_1111, 0b0000_0001}
	typ, size, n := parsePackEntryHeader(data)
	assert.Equal(t, packObjBlob, typ)
	assert.Equal(t, uint64(31), size)
	assert.Equal(t, 2, n)
}

func TestDecodeDeltaVarInt(t *testing.T) {
	v, n := decodeDeltaVarInt([]byte{0x05})
	assert.Equal(t, uint64(5), v)
	assert.Equal(t, 1, n)

	v, n = decodeDeltaVarInt([]byte{0x80 | 0x01, 0x01})
	assert.Equal(t, uint64(1|1<<7), v)
	assert.Equal(t, 2, n)
}

func TestApplyDeltaCopyAndInsert(t *testing.T) {
	base := []byte("hello world")

	const want = "there hello world"
	var delta bytes.Buffer
	delta.WriteByte(byte(len(base))) // source size varint
	delta.WriteByte(byte(len(want)))

	// insert "there " (6 bytes)
	insert := []byte("there ")
	delta.WriteByte(byte(len(insert)))
	delta.Write(insert)

	// copy all of base (offset 0, size 11): op byte with bit 0x10 (size byte 0) set only,
	// since 11 < 256 and offset is 0 (no offset bytes emitted).
	delta.WriteByte(0x80 | 0x10)
	delta.WriteByte(byte(len(base)))

	out, err := applyDelta(base, delta.Bytes())
	require.NoError(t, err)
	assert.Equal(t, want, string(out))
}

func TestApplyDeltaRejectsBaseSizeMismatch(t *testing.T) {
	base := []byte("abc")
	delta := []byte{99, 0} // claims source size 99, doesn't match base
	_, err := applyDelta(base, delta)
	assert.Error(t, err)
}

func TestParseOfsDeltaHeader(t *testing.T) {
	// A single-byte offset of 10 (no continuation, no +1 bias needed).
	payload := append([]byte{10}, []byte("rest")...)
	base, rest, err := parseOfsDeltaHeader(payload, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), base)
	assert.Equal(t, "rest", string(rest))
}

func TestInflateZlibPrefixIgnoresTrailingBytes(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	withTrailer := append(buf.Bytes(), []byte("next-entry-garbage")...)
	out, err := inflateZlibPrefix(withTrailer)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(out))
}
