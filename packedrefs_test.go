package gitobj

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackedRefsParse(t *testing.T) {
	data := []byte("# pack-refs with: peeled fully-peeled sorted\n" +
		"da39a3ee5e6b4b0d3255bfef95601890afd80709 refs/heads/main\n" +
		"e69de29bb2d1d6434b8b29ae775ad8c2e48c5391 refs/tags/v1\n" +
		"^da39a3ee5e6b4b0d3255bfef95601890afd80709\n")

	var p PackedRefs
	entries, err := p.Parse(data)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, PackedRefComment, entries[0].Kind)
	assert.Equal(t, "refs/heads/main", entries[1].Ref)
	assert.Equal(t, "refs/tags/v1", entries[2].Ref)
	assert.True(t, entries[2].HasPeel)
	assert.Equal(t, entries[1].Hash, entries[2].Peeled)
}

func TestPackedRefsFind(t *testing.T) {
	var p PackedRefs
	h, _ := ParseHash("da39a3ee5e6b4b0d3255bfef95601890afd80709")
	entries := []PackedRefLine{{Kind: PackedRefEntry, Hash: h, Ref: "refs/heads/main"}}

	got, ok := p.Find(entries, "refs/heads/main")
	require.True(t, ok)
	assert.Equal(t, h, got)

	_, ok = p.Find(entries, "refs/heads/missing")
	assert.False(t, ok)
}

func TestPackedRefsSerializeRoundTrip(t *testing.T) {
	var p PackedRefs
	data := []byte("# header\n" +
		"da39a3ee5e6b4b0d3255bfef95601890afd80709 refs/heads/main\n")

	entries, err := p.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, data, p.Serialize(entries))
}

func TestPackedRefsSkipsMalformedLines(t *testing.T) {
	var p PackedRefs

	// A peel line with no preceding entry is skipped, not an error.
	entries, err := p.Parse([]byte("^da39a3ee5e6b4b0d3255bfef95601890afd80709\n"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	// A genuine entry surrounding a corrupted line still parses; only the
	// bad line is dropped (spec.md §4.G: "ignores unparseable lines").
	data := []byte("da39a3ee5e6b4b0d3255bfef95601890afd80709 refs/heads/main\n" +
		"not-a-valid-line-at-all\n" +
		"e69de29bb2d1d6434b8b29ae775ad8c2e48c5391 refs/tags/v1\n")
	entries, err = p.Parse(data)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "refs/heads/main", entries[0].Ref)
	assert.Equal(t, "refs/tags/v1", entries[1].Ref)
}
