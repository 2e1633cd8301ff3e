package gitobj

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// PackedRefLineKind distinguishes the three line shapes a packed-refs file
// can contain (spec.md §4.G).
type PackedRefLineKind int

const (
	// PackedRefBlank is a blank line, preserved verbatim on re-serialize.
	PackedRefBlank PackedRefLineKind = iota
	// PackedRefComment is a "# ..." line, including the conventional
	// "# pack-refs with: ..." header.
	PackedRefComment
	// PackedRefEntry is a "<40-hex> <ref-name>" line, optionally followed
	// by a "^<40-hex>" peeled-tag line.
	PackedRefEntry
)

// PackedRefLine is one line of a packed-refs file.
type PackedRefLine struct {
	Kind PackedRefLineKind

	// Set when Kind == PackedRefComment.
	Comment string

	// Set when Kind == PackedRefEntry.
	Hash Hash
	Ref  string
	// Peeled is the annotated tag's target commit hash, when this entry's
	// ref is a tag and the file records its peeled form (a "^..." line
	// immediately following).
	Peeled   Hash
	HasPeel bool
}

// PackedRefs parses and serializes the packed-refs file: the flat-file
// index of refs Git consults when a loose ref under refs/ has been rolled
// up, to avoid one file per ref (spec.md §4.G). It is grounded on the
// teacher's line-oriented config/attributes parsers (line-by-line bufio
// scanning with a small per-line dispatch), generalized to this format's
// three line kinds.
type PackedRefs struct{}

// Parse reads a packed-refs file's contents into an ordered list of lines.
// It preserves order and ignores any line it cannot parse (spec.md §4.G) —
// a single line corrupted by e.g. a concurrent rewrite does not fail every
// ref lookup in the repository.
func (PackedRefs) Parse(data []byte) ([]PackedRefLine, error) {
	var out []PackedRefLine
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			out = append(out, PackedRefLine{Kind: PackedRefBlank})

		case strings.HasPrefix(line, "#"):
			out = append(out, PackedRefLine{Kind: PackedRefComment, Comment: line})

		case strings.HasPrefix(line, "^"):
			if len(out) == 0 || out[len(out)-1].Kind != PackedRefEntry {
				continue // peeled line with no preceding entry; skip it.
			}
			h, err := ParseHash(line[1:])
			if err != nil {
				continue // unparseable peeled hash; skip it.
			}
			out[len(out)-1].Peeled = h
			out[len(out)-1].HasPeel = true

		default:
			sp := strings.IndexByte(line, ' ')
			if sp < 0 {
				continue // missing the hash/ref separator; skip it.
			}
			h, err := ParseHash(line[:sp])
			if err != nil {
				continue // unparseable hash; skip it.
			}
			out = append(out, PackedRefLine{Kind: PackedRefEntry, Hash: h, Ref: line[sp+1:]})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("gitobj: reading packed-refs: %w", err)
	}
	return out, nil
}

// Find returns the hash recorded for ref, if entries contains it.
func (PackedRefs) Find(entries []PackedRefLine, ref string) (Hash, bool) {
	for _, e := range entries {
		if e.Kind == PackedRefEntry && e.Ref == ref {
			return e.Hash, true
		}
	}
	return Hash{}, false
}

// References returns every ref name entries records, in file order.
func (PackedRefs) References(entries []PackedRefLine) []string {
	var out []string
	for _, e := range entries {
		if e.Kind == PackedRefEntry {
			out = append(out, e.Ref)
		}
	}
	return out
}

// Serialize re-renders entries as a packed-refs file, byte-for-byte
// reproducible from what Parse produced (spec invariant P1 extends to this
// format too).
func (PackedRefs) Serialize(entries []PackedRefLine) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		switch e.Kind {
		case PackedRefBlank:
			buf.WriteByte('\n')
		case PackedRefComment:
			buf.WriteString(e.Comment)
			buf.WriteByte('\n')
		case PackedRefEntry:
			fmt.Fprintf(&buf, "%s %s\n", e.Hash, e.Ref)
			if e.HasPeel {
				fmt.Fprintf(&buf, "^%s\n", e.Peeled)
			}
		}
	}
	return buf.Bytes()
}
