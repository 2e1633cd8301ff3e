package gitobj

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexSerializeParseRoundTrip(t *testing.T) {
	digest := NewSHA1Digest()
	var h Hash
	h[0] = 0xab

	idx := &Index{Entries: []IndexEntry{
		{Mode: ModeNormal, Size: 42, Hash: h, Name: "a.txt"},
		{Mode: ModeExec, Size: 7, Hash: h, Name: "bin/tool"},
	}}

	data := idx.Serialize(digest)
	assert.Equal(t, "DIRC", string(data[0:4]))

	parsed, err := ParseIndex(data, digest)
	require.NoError(t, err)
	require.Len(t, parsed.Entries, 2)
	assert.Equal(t, "a.txt", parsed.Entries[0].Name)
	assert.Equal(t, ModeNormal, parsed.Entries[0].Mode)
	assert.Equal(t, "bin/tool", parsed.Entries[1].Name)
	assert.Equal(t, ModeExec, parsed.Entries[1].Mode)
	assert.Equal(t, h, parsed.Entries[1].Hash)
}

func TestIndexRejectsBadChecksum(t *testing.T) {
	digest := NewSHA1Digest()
	idx := &Index{Entries: []IndexEntry{{Mode: ModeNormal, Name: "x"}}}
	data := idx.Serialize(digest)
	data[len(data)-1] ^= 0xff // corrupt the trailing checksum

	_, err := ParseIndex(data, digest)
	assert.Error(t, err)
}

func TestIndexEmpty(t *testing.T) {
	digest := NewSHA1Digest()
	idx := &Index{}
	data := idx.Serialize(digest)

	parsed, err := ParseIndex(data, digest)
	require.NoError(t, err)
	assert.Empty(t, parsed.Entries)
}
