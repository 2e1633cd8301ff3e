package gitobj

import (
	"fmt"
	"log"
	"os"
	"path"
	"time"
)

// createFileMaxRetries bounds how many times Checkout.createFile retries a
// write that failed because a concurrent process holds the destination path
// (e.g. an antivirus scanner or another checkout racing this one), per
// spec.md §4.I/§9. Retries are logged via the standard library log package;
// no structured logging library appears anywhere in the retrieved corpus
// (see SPEC_FULL.md §7), so this is the one place SPEC_FULL.md's ambient logging
// section actually fires.
const createFileMaxRetries = 10

// Checkout materializes a commit's tree onto the working directory next to
// .git, walking the tree the same way Loose walks objects/: recursively,
// writing each blob to its path and skipping files whose stat info already
// matches what the index or a previous checkout recorded (spec.md §4.I).
type Checkout struct {
	store  *Store
	fsio   *FsIO
	dotGit string
	refs   *References
}

func newCheckout(store *Store, fsio *FsIO, dotGit string, refs *References) *Checkout {
	return &Checkout{store: store, fsio: fsio, dotGit: dotGit, refs: refs}
}

// workDir is the directory a checkout writes into: the parent of dotGit.
func (c *Checkout) workDir() string { return path.Dir(c.dotGit) }

// BlobVisitor is called once per blob a tree walk reaches, with the path
// (relative to the tree root, using '/' separators) and the entry's mode
// and content hash.
type BlobVisitor func(filePath string, mode TreeEntryMode, blobHash Hash) error

// IterBlobs walks the tree reachable from commitHash's root tree,
// depth-first, calling f for every blob (skipping submodule gitlinks, which
// have no blob content of their own).
func (c *Checkout) IterBlobs(commitHash Hash, f BlobVisitor) error {
	v, err := c.store.ReadExn(ShortHash(commitHash.String()))
	if err != nil {
		return err
	}
	commit, ok := v.(Commit)
	if !ok {
		return fmt.Errorf("%w: %s is not a commit", ErrSchemaViolation, commitHash)
	}
	return c.iterTree(commit.Tree, "", f)
}

func (c *Checkout) iterTree(treeHash Hash, prefix string, f BlobVisitor) error {
	v, err := c.store.ReadExn(ShortHash(treeHash.String()))
	if err != nil {
		return err
	}
	tree, ok := v.(Tree)
	if !ok {
		return fmt.Errorf("%w: %s is not a tree", ErrSchemaViolation, treeHash)
	}

	for _, e := range tree.Entries {
		entryPath := e.Name
		if prefix != "" {
			entryPath = prefix + "/" + e.Name
		}
		switch e.Mode {
		case ModeDir:
			if err := c.iterTree(e.Hash, entryPath, f); err != nil {
				return err
			}
		case ModeCommit:
			continue // submodule gitlink: no blob content in this object database.
		default:
			if err := f(entryPath, e.Mode, e.Hash); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadFilesystem checks out commitHash's full tree onto the working
// directory, returning the resulting Index (unwritten; call WriteIndex to
// persist it). prevIndex, if non-nil, is consulted by entryOfFile so a file
// whose blob hash and stat_info both already match is left untouched
// (spec.md §4.I entry_of_file, property P10) rather than rewritten.
func (c *Checkout) LoadFilesystem(commitHash Hash, prevIndex *Index) (*Index, error) {
	prevByName := make(map[string]IndexEntry)
	if prevIndex != nil {
		for _, e := range prevIndex.Entries {
			prevByName[e.Name] = e
		}
	}

	var entries []IndexEntry
	err := c.IterBlobs(commitHash, func(filePath string, mode TreeEntryMode, blobHash Hash) error {
		entry, err := c.entryOfFile(filePath, mode, blobHash, prevByName)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Index{Entries: entries}, nil
}

// entryOfFile returns filePath's IndexEntry, writing blobHash's content to
// the working directory first unless prevByName already has an entry for
// filePath whose hash and stat_info both match what's currently on disk
// (spec.md §4.I entry_of_file, property P10): rewriting is then skipped
// entirely, leaving the file's mtime untouched.
func (c *Checkout) entryOfFile(filePath string, mode TreeEntryMode, blobHash Hash, prevByName map[string]IndexEntry) (IndexEntry, error) {
	fullPath := c.fsio.Join(c.workDir(), filePath)

	if prev, ok := prevByName[filePath]; ok && prev.Hash == blobHash {
		if st, statOK := c.fsio.Stat(fullPath); statOK && statInfoOf(prev).Equal(normalizeStatMode(st)) {
			return prev, nil
		}
	}

	v, err := c.store.ReadExn(ShortHash(blobHash.String()))
	if err != nil {
		return IndexEntry{}, err
	}
	blob, ok := v.(Blob)
	if !ok {
		return IndexEntry{}, fmt.Errorf("%w: %s is not a blob", ErrSchemaViolation, blobHash)
	}

	if err := c.createFile(fullPath, mode, blob.Data); err != nil {
		return IndexEntry{}, err
	}

	st, ok := c.fsio.Stat(fullPath)
	if !ok {
		return IndexEntry{}, fmt.Errorf("gitobj: stat %q immediately after writing it", fullPath)
	}

	return IndexEntry{
		MTimeSeconds: st.ModTime / int64(time.Second),
		MTimeNanos:   st.ModTime % int64(time.Second),
		Mode:         mode,
		Size:         uint32(len(blob.Data)),
		Hash:         blobHash,
		Name:         filePath,
	}, nil
}

// statInfoOf recovers the StatInfo an IndexEntry was built from, so it can
// be compared against a fresh Stat via StatInfo.Equal. Only the permission
// bits of Mode are kept (via normalizeStatMode's mask): TreeEntryMode's
// high bits encode Git's own object-type tag (100000, 120000, ...), which
// has no equivalent in os.FileMode's bit layout for a regular file.
func statInfoOf(e IndexEntry) StatInfo {
	return StatInfo{
		Size:    int64(e.Size),
		ModTime: e.MTimeSeconds*int64(time.Second) + e.MTimeNanos,
		Mode:    os.FileMode(e.Mode) & os.ModePerm,
	}
}

// normalizeStatMode masks st down to the permission bits a freshly-written
// file and a stored IndexEntry can actually be compared on.
func normalizeStatMode(st StatInfo) StatInfo {
	st.Mode &= os.ModePerm
	return st
}

// createFile writes data to path, retrying up to createFileMaxRetries times
// on failure — spec.md §4.I calls this out explicitly, since checkout runs
// against a working directory other processes (editors, virus scanners,
// build tools) may transiently be touching.
func (c *Checkout) createFile(path string, mode TreeEntryMode, data []byte) error {
	var lastErr error
	for attempt := 0; attempt < createFileMaxRetries; attempt++ {
		var err error
		if mode == ModeLink {
			err = c.fsio.Symlink(string(data), path)
			if err != nil {
				// Not every filesystem/platform supports symlinks; fall
				// back to writing the link target as a regular file
				// rather than failing the whole checkout, per spec.md §9.
				log.Printf("gitobj: checkout: symlink %q failed, writing link target as a regular file: %v", path, err)
				err = c.fsio.WriteFile(path, c.fsio.Join(c.dotGit, "tmp"), data)
			}
		} else {
			err = c.fsio.WriteFile(path, c.fsio.Join(c.dotGit, "tmp"), data)
		}

		if err == nil {
			// WriteFile's temp file is created 0600; set the permission bits
			// the tree mode implies so statInfoOf's comparison can match.
			switch mode {
			case ModeExec:
				_ = c.fsio.Chmod(path, 0o755)
			case ModeNormal:
				_ = c.fsio.Chmod(path, 0o644)
			}
			return nil
		}

		lastErr = err
		log.Printf("gitobj: checkout: attempt %d/%d writing %q failed: %v", attempt+1, createFileMaxRetries, path, err)
	}
	return fmt.Errorf("gitobj: checkout: giving up writing %q after %d attempts: %w", path, createFileMaxRetries, lastErr)
}

// WriteIndex persists idx to .git/index. If idx is nil, it reads the
// current on-disk index (or treats a missing one as empty), checks out
// head against it — so unchanged files are left untouched, per
// LoadFilesystem's stat-skip behavior — and writes the resulting index,
// matching spec.md §4.I's write_index(t, maybe_index, head) operation.
func (c *Checkout) WriteIndex(idx *Index, head Hash, digest Digest) error {
	if idx == nil {
		prev, err := c.readCurrentIndex(digest)
		if err != nil {
			return err
		}
		fresh, err := c.LoadFilesystem(head, prev)
		if err != nil {
			return err
		}
		idx = fresh
	}
	data := idx.Serialize(digest)
	return c.fsio.WriteFile(c.fsio.Join(c.dotGit, "index"), c.fsio.Join(c.dotGit, "tmp"), data)
}

// readCurrentIndex reads and parses .git/index, returning nil (not an
// error) if it does not yet exist — the "or empty" half of write_index's
// "read current index (or empty)" (spec.md §4.I).
func (c *Checkout) readCurrentIndex(digest Digest) (*Index, error) {
	path := c.fsio.Join(c.dotGit, "index")
	if !c.fsio.FileExists(path) {
		return nil, nil
	}
	data, err := c.fsio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseIndex(data, digest)
}
