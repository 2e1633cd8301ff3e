package gitobj

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReferences(t *testing.T) (*References, *FsIO) {
	t.Helper()
	fsio, err := NewFsIO(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fsio.Mkdir(fsio.Join(".git", "refs", "heads")))
	return newReferences(fsio, ".git", defaultRefChaseDepth), fsio
}

func TestReferencesWriteThenRead(t *testing.T) {
	r, _ := newTestReferences(t)
	h, err := ParseHash("da39a3ee5e6b4b0d3255bfef95601890afd80709")
	require.NoError(t, err)

	require.NoError(t, r.Write("refs/heads/main", h))

	got, ok, err := r.Read("refs/heads/main")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, h, got)
}

func TestReferencesExistsAndRemove(t *testing.T) {
	r, _ := newTestReferences(t)
	h, _ := ParseHash("da39a3ee5e6b4b0d3255bfef95601890afd80709")
	require.NoError(t, r.Write("refs/heads/main", h))

	ok, err := r.Exists("refs/heads/main")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, r.Remove("refs/heads/main"))
	ok, err = r.Exists("refs/heads/main")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReferencesReadMissing(t *testing.T) {
	r, _ := newTestReferences(t)
	_, ok, err := r.Read("refs/heads/nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReferencesHeadSymbolic(t *testing.T) {
	r, fsio := newTestReferences(t)
	h, _ := ParseHash("e69de29bb2d1d6434b8b29ae775ad8c2e48c5391")
	require.NoError(t, r.Write("refs/heads/main", h))
	require.NoError(t, fsio.WriteFile(fsio.Join(".git", "HEAD"), fsio.Join(".git", "tmp"), []byte("ref: refs/heads/main\n")))

	got, ok, err := r.ReadHead()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, h, got)
}

func TestReferencesHeadDetached(t *testing.T) {
	r, fsio := newTestReferences(t)
	h, _ := ParseHash("e69de29bb2d1d6434b8b29ae775ad8c2e48c5391")
	require.NoError(t, fsio.WriteFile(fsio.Join(".git", "HEAD"), fsio.Join(".git", "tmp"), []byte(h.String()+"\n")))

	got, ok, err := r.ReadHead()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, h, got)
}

func TestReferencesDetectsSymbolicCycle(t *testing.T) {
	r, fsio := newTestReferences(t)
	// a -> b -> a, a cycle that should hit the bounded depth check.
	require.NoError(t, fsio.WriteFile(fsio.Join(".git", "refs", "heads", "a"), fsio.Join(".git", "tmp"), []byte("ref: refs/heads/b\n")))
	require.NoError(t, fsio.WriteFile(fsio.Join(".git", "refs", "heads", "b"), fsio.Join(".git", "tmp"), []byte("ref: refs/heads/a\n")))

	_, _, err := r.Read("refs/heads/a")
	assert.ErrorIs(t, err, ErrMalformedReference)
}

func TestReferencesList(t *testing.T) {
	r, _ := newTestReferences(t)
	h, _ := ParseHash("da39a3ee5e6b4b0d3255bfef95601890afd80709")
	require.NoError(t, r.Write("refs/heads/main", h))
	require.NoError(t, r.Write("refs/heads/dev", h))

	names, err := r.List("refs/heads")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"refs/heads/main", "refs/heads/dev"}, names)
}
