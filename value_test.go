package gitobj

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec() *codec {
	return newCodec(NewSHA1Digest(), NewZlibCodec())
}

func TestBlobRoundTrip(t *testing.T) {
	c := newTestCodec()
	blob := Blob{Data: []byte("hello world\n")}

	inflated, err := c.SerializeInflated(blob)
	require.NoError(t, err)
	assert.Equal(t, "blob 12\x00hello world\n", string(inflated))

	v, err := c.ParseInflated(inflated)
	require.NoError(t, err)
	assert.Equal(t, blob, v)
}

func TestHashOfKnownBlob(t *testing.T) {
	c := newTestCodec()
	// "blob 0\0" hashes to the well-known empty-blob SHA-1.
	h, err := c.HashOf(Blob{})
	require.NoError(t, err)
	assert.Equal(t, "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", h.String())
}

func TestSerializeDeflatedRoundTrip(t *testing.T) {
	c := newTestCodec()
	blob := Blob{Data: []byte("some content")}

	deflated, err := c.SerializeDeflated(blob, -1)
	require.NoError(t, err)

	v, err := c.ParseDeflated(deflated)
	require.NoError(t, err)
	assert.Equal(t, blob, v)
}

func TestParseInflatedRejectsSizeMismatch(t *testing.T) {
	c := newTestCodec()
	_, err := c.ParseInflated([]byte("blob 99\x00short"))
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestParseInflatedRejectsUnknownKind(t *testing.T) {
	c := newTestCodec()
	_, err := c.ParseInflated([]byte("widget 0\x00"))
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestTreeRoundTrip(t *testing.T) {
	c := newTestCodec()
	blobHash, err := c.HashOf(Blob{Data: []byte("x")})
	require.NoError(t, err)

	tree := Tree{Entries: []TreeEntry{
		{Name: "file.txt", Mode: ModeNormal, Hash: blobHash},
		{Name: "sub", Mode: ModeDir, Hash: blobHash},
	}}

	inflated, err := c.SerializeInflated(tree)
	require.NoError(t, err)

	v, err := c.ParseInflated(inflated)
	require.NoError(t, err)
	assert.Equal(t, tree, v)
}

func TestTreeSortEntries(t *testing.T) {
	tree := Tree{Entries: []TreeEntry{
		{Name: "foo.txt", Mode: ModeNormal},
		{Name: "foo", Mode: ModeDir},
	}}
	tree.SortEntries()
	// "foo/" sorts after "foo.txt" because '.' < '/'.
	require.Len(t, tree.Entries, 2)
	assert.Equal(t, "foo.txt", tree.Entries[0].Name)
	assert.Equal(t, "foo", tree.Entries[1].Name)
}

func TestCommitRoundTrip(t *testing.T) {
	c := newTestCodec()
	var treeHash, parentHash Hash
	treeHash[0] = 1
	parentHash[0] = 2

	commit := Commit{
		Tree:    treeHash,
		Parents: []Hash{parentHash},
		Author:    Signature{Name: "A", Email: "a@example.com", Seconds: 1000, Offset: "+0000"},
		Committer: Signature{Name: "A", Email: "a@example.com", Seconds: 1000, Offset: "+0000"},
		Message:   "initial commit\n",
	}

	inflated, err := c.SerializeInflated(commit)
	require.NoError(t, err)

	v, err := c.ParseInflated(inflated)
	require.NoError(t, err)
	assert.Equal(t, commit, v)
}

func TestCommitWithExtraHeaders(t *testing.T) {
	c := newTestCodec()
	commit := Commit{
		Author:       Signature{Name: "A", Email: "a@example.com", Seconds: 1, Offset: "-0700"},
		Committer:    Signature{Name: "A", Email: "a@example.com", Seconds: 1, Offset: "-0700"},
		ExtraHeaders: []HeaderLine{{Key: "gpgsig", Value: "line one\nline two"}},
		Message:      "signed\n",
	}

	inflated, err := c.SerializeInflated(commit)
	require.NoError(t, err)

	v, err := c.ParseInflated(inflated)
	require.NoError(t, err)
	got := v.(Commit)
	require.Len(t, got.ExtraHeaders, 1)
	assert.Equal(t, "line one\nline two", got.ExtraHeaders[0].Value)
}

func TestTagRoundTrip(t *testing.T) {
	c := newTestCodec()
	var target Hash
	target[0] = 9

	tag := Tag{
		Target:     target,
		TargetKind: KindCommit,
		Name:       "v1.0.0",
		Tagger:     Signature{Name: "T", Email: "t@example.com", Seconds: 5, Offset: "+0100"},
		Message:    "release\n",
	}

	inflated, err := c.SerializeInflated(tag)
	require.NoError(t, err)

	v, err := c.ParseInflated(inflated)
	require.NoError(t, err)
	assert.Equal(t, tag, v)
}
