package gitobj

import "fmt"

// ObjectKind enumerates the four kinds of objects a Git object database
// stores. The zero value, KindInvalid, never names a real value and is
// reported as an error by ParseKind.
type ObjectKind byte

const (
	// KindInvalid marks an unrecognized or unset object kind.
	KindInvalid ObjectKind = iota

	// KindBlob is an opaque byte sequence: file content.
	KindBlob

	// KindTree is an ordered directory listing of name/mode/hash entries.
	KindTree

	// KindCommit ties a tree snapshot to its parents and authorship.
	KindCommit

	// KindTag is a named, signed pointer at another object.
	KindTag
)

var kindNames = [...]string{
	KindInvalid: "",
	KindBlob:    "blob",
	KindTree:    "tree",
	KindCommit:  "commit",
	KindTag:     "tag",
}

// String returns the canonical lowercase Git spelling of k, or "" for
// KindInvalid.
func (k ObjectKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return ""
}

// ParseKind maps a canonical lowercase kind name to its ObjectKind.
func ParseKind(name string) (ObjectKind, error) {
	switch name {
	case "blob":
		return KindBlob, nil
	case "tree":
		return KindTree, nil
	case "commit":
		return KindCommit, nil
	case "tag":
		return KindTag, nil
	default:
		return KindInvalid, fmt.Errorf("%w: unknown object kind %q", ErrMalformedHeader, name)
	}
}
