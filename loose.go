package gitobj

import (
	"fmt"
	"strings"
)

// Loose reads and writes the one-object-per-file representation Git keeps
// under objects/<xx>/<38-hex>, deflated. Writes are idempotent: since the
// path is entirely determined by the object's own hash, writing a value
// whose file already exists is a no-op (spec.md invariant 3 / property P3).
type Loose struct {
	fsio     *FsIO
	files    *FileCache
	codec    *codec
	level    int
	dotGit   string // path, relative to fsio's root, of the ".git" directory
	tempDir  string
}

func newLoose(fsio *FsIO, files *FileCache, c *codec, level int, dotGit string) *Loose {
	return &Loose{
		fsio:    fsio,
		files:   files,
		codec:   c,
		level:   level,
		dotGit:  dotGit,
		tempDir: fsio.Join(dotGit, "tmp"),
	}
}

func (l *Loose) objectsDir() string { return l.fsio.Join(l.dotGit, "objects") }

func (l *Loose) pathFor(h Hash) string {
	hex := h.String()
	return l.fsio.Join(l.objectsDir(), hex[:2], hex[2:])
}

// Exists reports whether the loose object file for h is present.
func (l *Loose) Exists(h Hash) bool { return l.fsio.FileExists(l.pathFor(h)) }

// Read returns the decoded Value stored at the (possibly short) hash sh.
// ok is false when nothing matches; err is non-nil for ErrAmbiguous or a
// codec failure.
func (l *Loose) Read(sh ShortHash) (Value, bool, error) {
	data, ok, err := l.ReadInflated(sh)
	if err != nil || !ok {
		return nil, ok, err
	}
	v, err := l.codec.ParseInflated(data)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// ReadInflated returns the inflated "<kind> <size>\0<body>" bytes stored at
// the (possibly short) hash sh.
func (l *Loose) ReadInflated(sh ShortHash) ([]byte, bool, error) {
	path, ok, err := l.resolvePath(sh)
	if err != nil || !ok {
		return nil, ok, err
	}

	handle, err := l.files.Read(path)
	if err != nil {
		return nil, false, nil //nolint:nilerr // a read failure after resolvePath found the file means it vanished; treat as a miss, matching the other tiers' cache-miss-falls-through policy (spec.md §7).
	}

	inflated, err := l.codec.zcodec.Inflate(handle.Data())
	if err != nil {
		return nil, false, err
	}
	return inflated, true, nil
}

func (l *Loose) resolvePath(sh ShortHash) (string, bool, error) {
	if sh.IsFull() {
		h, err := sh.Full()
		if err != nil {
			return "", false, err
		}
		path := l.pathFor(h)
		if !l.fsio.FileExists(path) {
			return "", false, nil
		}
		return path, true, nil
	}
	return l.resolveShort(string(sh))
}

// resolveShort implements spec.md §4.D's two-stage directory-then-file
// fan-out search: first narrow to the objects/<prefix> directory (or
// directories, if the prefix is shorter than 2 hex chars), then, within the
// matching directory, narrow to files whose name matches the remaining
// suffix.
func (l *Loose) resolveShort(prefix string) (string, bool, error) {
	if len(prefix) == 0 {
		return "", false, fmt.Errorf("gitobj: empty short hash")
	}

	dirPrefixLen := min(len(prefix), 2)
	dirs, err := l.fsio.Directories(l.objectsDir())
	if err != nil {
		return "", false, err
	}

	var matchDirs []string
	for _, d := range dirs {
		if d == "info" || d == "pack" {
			continue
		}
		if strings.HasPrefix(d, prefix[:dirPrefixLen]) {
			matchDirs = append(matchDirs, d)
		}
	}

	if len(prefix) <= 2 {
		if len(matchDirs) > 1 {
			return "", false, ErrAmbiguous
		}
		if len(matchDirs) == 0 {
			return "", false, nil
		}
		files, err := l.fsio.Files(l.fsio.Join(l.objectsDir(), matchDirs[0]))
		if err != nil {
			return "", false, err
		}
		switch len(files) {
		case 0:
			return "", false, nil
		case 1:
			return l.fsio.Join(l.objectsDir(), matchDirs[0], files[0]), true, nil
		default:
			return "", false, ErrAmbiguous
		}
	}

	if len(matchDirs) > 1 {
		return "", false, ErrAmbiguous
	}
	if len(matchDirs) == 0 {
		return "", false, nil
	}

	suffix := prefix[2:]
	files, err := l.fsio.Files(l.fsio.Join(l.objectsDir(), matchDirs[0]))
	if err != nil {
		return "", false, err
	}

	var matches []string
	for _, f := range files {
		if strings.HasPrefix(f, suffix) {
			matches = append(matches, f)
		}
	}
	switch len(matches) {
	case 0:
		return "", false, nil
	case 1:
		return l.fsio.Join(l.objectsDir(), matchDirs[0], matches[0]), true, nil
	default:
		return "", false, ErrAmbiguous
	}
}

// Write computes v's hash, deflates its canonical framing, and writes it to
// objects/<xx>/<38-hex> if that file does not already exist.
func (l *Loose) Write(v Value) (Hash, error) {
	h, err := l.codec.HashOf(v)
	if err != nil {
		return Hash{}, err
	}
	if l.Exists(h) {
		return h, nil
	}

	deflated, err := l.codec.SerializeDeflated(v, l.level)
	if err != nil {
		return Hash{}, err
	}
	if err := l.fsio.WriteFile(l.pathFor(h), l.tempDir, deflated); err != nil {
		return Hash{}, err
	}
	return h, nil
}

// WriteInflated writes a caller-supplied, already-framed inflated buffer
// (as opposed to a decoded Value). The hash is the digest of the buffer
// itself.
func (l *Loose) WriteInflated(inflated []byte) (Hash, error) {
	h := l.codec.digest.Sum(inflated)
	if l.Exists(h) {
		return h, nil
	}
	deflated, err := l.codec.zcodec.Deflate(inflated, l.level)
	if err != nil {
		return Hash{}, err
	}
	if err := l.fsio.WriteFile(l.pathFor(h), l.tempDir, deflated); err != nil {
		return Hash{}, err
	}
	return h, nil
}

// List enumerates every loose object hash, skipping the "info" and "pack"
// sub-directories of objects/ (spec.md §4.D).
func (l *Loose) List() ([]Hash, error) {
	dirs, err := l.fsio.Directories(l.objectsDir())
	if err != nil {
		return nil, err
	}

	var out []Hash
	for _, d := range dirs {
		if d == "info" || d == "pack" {
			continue
		}
		files, err := l.fsio.Files(l.fsio.Join(l.objectsDir(), d))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			h, err := ParseHash(d + f)
			if err != nil {
				continue // not a well-formed object file name; skip it.
			}
			out = append(out, h)
		}
	}
	return out, nil
}
