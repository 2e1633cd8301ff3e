package gitobj

import (
	"bytes"
	"fmt"
	"sort"
)

// TreeEntryMode is the permission mode Git records for a tree entry. Unlike
// a raw Unix mode, only five combinations are meaningful to Git itself.
type TreeEntryMode uint32

const (
	// ModeNormal is a regular, non-executable file (100644).
	ModeNormal TreeEntryMode = 0o100644
	// ModeExec is an executable file (100755).
	ModeExec TreeEntryMode = 0o100755
	// ModeLink is a symbolic link whose blob content is the link target (120000).
	ModeLink TreeEntryMode = 0o120000
	// ModeDir is a sub-tree (040000).
	ModeDir TreeEntryMode = 0o040000
	// ModeCommit is a submodule gitlink, pointing at a commit in another repository (160000).
	ModeCommit TreeEntryMode = 0o160000
)

// String renders m the way Git writes it in a tree entry: no leading zero
// padding beyond what the mode itself requires.
func (m TreeEntryMode) String() string { return fmt.Sprintf("%o", uint32(m)) }

// parseTreeMode maps the ASCII octal digits Git stores back to a
// TreeEntryMode, rejecting anything that is not one of the five modes Git
// itself ever writes.
func parseTreeMode(raw []byte) (TreeEntryMode, error) {
	var v uint32
	for _, b := range raw {
		if b < '0' || b > '7' {
			return 0, fmt.Errorf("%w: invalid octal digit %q in tree mode", ErrMalformedBody, b)
		}
		v = v<<3 | uint32(b-'0')
	}
	m := TreeEntryMode(v)
	switch m {
	case ModeNormal, ModeExec, ModeLink, ModeDir, ModeCommit:
		return m, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized tree entry mode %o", ErrMalformedBody, v)
	}
}

// TreeEntry is one "<mode> <name>\0<hash>" record inside a Tree. Name
// excludes NUL and '/' per spec §3.1.
type TreeEntry struct {
	Name string
	Mode TreeEntryMode
	Hash Hash
}

// Tree is an ordered directory listing. Entries are serialized in the order
// they appear in the slice; callers are responsible for supplying them in
// Git's canonical name-sorted order if they want output byte-identical to
// what Git itself would produce for the same directory.
type Tree struct {
	Entries []TreeEntry
}

// Kind implements Value.
func (Tree) Kind() ObjectKind { return KindTree }

// SortEntries reorders t.Entries into Git's canonical tree order: entries
// are compared by name, with directory entries compared as if their name
// carried a trailing '/'. This matters because a directory "foo" sorts
// before "foo.txt" under a plain byte comparison but after it under Git's
// rule ('.' < '/').
func (t *Tree) SortEntries() {
	sort.SliceStable(t.Entries, func(i, j int) bool {
		return treeSortKey(t.Entries[i]) < treeSortKey(t.Entries[j])
	})
}

func treeSortKey(e TreeEntry) string {
	if e.Mode == ModeDir {
		return e.Name + "/"
	}
	return e.Name
}

func encodeTree(t Tree) []byte {
	var buf bytes.Buffer
	for _, e := range t.Entries {
		fmt.Fprintf(&buf, "%s %s\x00", e.Mode, e.Name)
		buf.Write(e.Hash[:])
	}
	return buf.Bytes()
}

func decodeTree(body []byte) (Tree, error) {
	var entries []TreeEntry
	rest := body
	for len(rest) > 0 {
		sp := bytes.IndexByte(rest, ' ')
		if sp < 0 {
			return Tree{}, fmt.Errorf("%w: tree entry missing space after mode", ErrMalformedBody)
		}
		mode, err := parseTreeMode(rest[:sp])
		if err != nil {
			return Tree{}, err
		}
		rest = rest[sp+1:]

		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return Tree{}, fmt.Errorf("%w: tree entry missing NUL after name", ErrMalformedBody)
		}
		name := string(rest[:nul])
		rest = rest[nul+1:]

		if len(rest) < hashSize {
			return Tree{}, fmt.Errorf("%w: tree entry truncated hash", ErrMalformedBody)
		}
		var h Hash
		copy(h[:], rest[:hashSize])
		rest = rest[hashSize:]

		entries = append(entries, TreeEntry{Name: name, Mode: mode, Hash: h})
	}
	return Tree{Entries: entries}, nil
}
