package gitobj

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestPackIndex constructs a minimal, well-formed version-2 pack index
// covering the given (hash, offset, crc) triples. Entries must be supplied
// in sorted-by-hash order, matching what a real index always has.
func buildTestPackIndex(t *testing.T, entries []struct {
	hash   Hash
	offset uint64
	crc    uint32
}) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(packIndexMagic[:])
	binary.Write(&buf, binary.BigEndian, uint32(2))

	var fanout [256]uint32
	for _, e := range entries {
		fanout[e.hash[0]]++
	}
	running := uint32(0)
	for i := range fanout {
		running += fanout[i]
		fanout[i] = running
	}
	for _, v := range fanout {
		binary.Write(&buf, binary.BigEndian, v)
	}
	for _, e := range entries {
		buf.Write(e.hash[:])
	}
	for _, e := range entries {
		binary.Write(&buf, binary.BigEndian, e.crc)
	}
	for _, e := range entries {
		binary.Write(&buf, binary.BigEndian, uint32(e.offset))
	}
	buf.Write(make([]byte, 20)) // pack checksum
	buf.Write(make([]byte, 20)) // index checksum
	return buf.Bytes()
}

func TestParsePackIndexFindOffset(t *testing.T) {
	var h1, h2 Hash
	h1[0], h1[19] = 0x01, 0xaa
	h2[0], h2[19] = 0x01, 0xbb

	data := buildTestPackIndex(t, []struct {
		hash   Hash
		offset uint64
		crc    uint32
	}{
		{hash: h1, offset: 12, crc: 111},
		{hash: h2, offset: 500, crc: 222},
	})

	idx, err := ParsePackIndex(data)
	require.NoError(t, err)

	off, crc, found := idx.FindOffset(h1)
	require.True(t, found)
	assert.Equal(t, uint64(12), off)
	assert.Equal(t, uint32(111), crc)

	_, _, found = idx.FindOffset(h2)
	assert.True(t, found)

	var missing Hash
	missing[0] = 0x02
	_, _, found = idx.FindOffset(missing)
	assert.False(t, found)
}

func TestParsePackIndexRejectsBadMagic(t *testing.T) {
	data := make([]byte, 8+packIndexFanoutBytes+40)
	_, err := ParsePackIndex(data)
	assert.Error(t, err)
}

func TestPackIndexKeys(t *testing.T) {
	var h1 Hash
	h1[0] = 0x05
	data := buildTestPackIndex(t, []struct {
		hash   Hash
		offset uint64
		crc    uint32
	}{{hash: h1, offset: 0, crc: 1}})

	idx, err := ParsePackIndex(data)
	require.NoError(t, err)
	assert.Equal(t, []Hash{h1}, idx.Keys())
}
