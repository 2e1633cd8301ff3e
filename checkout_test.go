package gitobj

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(t.TempDir())
	require.NoError(t, err)
	return repo
}

func buildSimpleCommit(t *testing.T, s *Store) Hash {
	t.Helper()
	blobHash, err := s.Write(Blob{Data: []byte("file contents\n")})
	require.NoError(t, err)

	tree := Tree{Entries: []TreeEntry{
		{Name: "hello.txt", Mode: ModeNormal, Hash: blobHash},
	}}
	tree.SortEntries()
	treeHash, err := s.Write(tree)
	require.NoError(t, err)

	commit := Commit{
		Tree:      treeHash,
		Author:    Signature{Name: "T", Email: "t@example.com", Seconds: 1, Offset: "+0000"},
		Committer: Signature{Name: "T", Email: "t@example.com", Seconds: 1, Offset: "+0000"},
		Message:   "initial\n",
	}
	commitHash, err := s.Write(commit)
	require.NoError(t, err)
	return commitHash
}

func TestCheckoutIterBlobs(t *testing.T) {
	repo := newTestRepository(t)
	commitHash := buildSimpleCommit(t, repo.Store)

	var seen []string
	err := repo.Out.IterBlobs(commitHash, func(path string, mode TreeEntryMode, blobHash Hash) error {
		seen = append(seen, path)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello.txt"}, seen)
}

func TestCheckoutLoadFilesystemWritesFiles(t *testing.T) {
	repo := newTestRepository(t)
	commitHash := buildSimpleCommit(t, repo.Store)

	idx, err := repo.Out.LoadFilesystem(commitHash, nil)
	require.NoError(t, err)
	require.Len(t, idx.Entries, 1)
	assert.Equal(t, "hello.txt", idx.Entries[0].Name)

	data, err := repo.Store.fsio.ReadFile("hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "file contents\n", string(data))
}

func TestCheckoutWriteIndexPersists(t *testing.T) {
	repo := newTestRepository(t)
	commitHash := buildSimpleCommit(t, repo.Store)

	idx, err := repo.Out.LoadFilesystem(commitHash, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Out.WriteIndex(idx, commitHash, repo.Digest()))

	raw, err := repo.Store.fsio.ReadFile(repo.Store.fsio.Join(".git", "index"))
	require.NoError(t, err)

	parsed, err := ParseIndex(raw, repo.Digest())
	require.NoError(t, err)
	require.Len(t, parsed.Entries, 1)
	assert.Equal(t, "hello.txt", parsed.Entries[0].Name)
}

func TestCheckoutWriteIndexSkipsUnchangedFiles(t *testing.T) {
	repo := newTestRepository(t)
	commitHash := buildSimpleCommit(t, repo.Store)

	idx, err := repo.Out.LoadFilesystem(commitHash, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Out.WriteIndex(idx, commitHash, repo.Digest()))

	st, ok := repo.Store.fsio.Stat("hello.txt")
	require.True(t, ok)
	firstMTime := st.ModTime

	// Re-running write_index against the same commit and the index just
	// written must not touch the already-checked-out file (spec.md §4.I
	// entry_of_file, property P10): its mtime stays exactly what it was.
	require.NoError(t, repo.Out.WriteIndex(nil, commitHash, repo.Digest()))

	st, ok = repo.Store.fsio.Stat("hello.txt")
	require.True(t, ok)
	assert.Equal(t, firstMTime, st.ModTime)
}

func TestCheckoutNestedDirectories(t *testing.T) {
	repo := newTestRepository(t)
	s := repo.Store

	innerBlob, err := s.Write(Blob{Data: []byte("inner\n")})
	require.NoError(t, err)
	innerTree := Tree{Entries: []TreeEntry{{Name: "f.txt", Mode: ModeNormal, Hash: innerBlob}}}
	innerTreeHash, err := s.Write(innerTree)
	require.NoError(t, err)

	outerTree := Tree{Entries: []TreeEntry{{Name: "sub", Mode: ModeDir, Hash: innerTreeHash}}}
	outerTreeHash, err := s.Write(outerTree)
	require.NoError(t, err)

	commit := Commit{
		Tree:      outerTreeHash,
		Author:    Signature{Name: "T", Email: "t@example.com", Seconds: 1, Offset: "+0000"},
		Committer: Signature{Name: "T", Email: "t@example.com", Seconds: 1, Offset: "+0000"},
		Message:   "nested\n",
	}
	commitHash, err := s.Write(commit)
	require.NoError(t, err)

	idx, err := repo.Out.LoadFilesystem(commitHash, nil)
	require.NoError(t, err)
	require.Len(t, idx.Entries, 1)
	assert.Equal(t, "sub/f.txt", idx.Entries[0].Name)
}
