package gitobj

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// indexMagic opens every version-2 git index file.
var indexMagic = [4]byte{'D', 'I', 'R', 'C'}

const indexVersion = 2

// indexEntryFlagNameMask masks the low 12 bits of an entry's flags field,
// which hold the entry's name length (capped at 0xfff; longer names are
// still stored in full, just not length-prefixed exactly).
const indexEntryFlagNameMask = 0x0fff

// IndexEntry is one staged file in the index. This package implements the
// base version-2 entry layout only: no extended flags, no name compression,
// no split-index, per SPEC_FULL.md §4.J.
type IndexEntry struct {
	CTimeSeconds, CTimeNanos int64
	MTimeSeconds, MTimeNanos int64
	Dev, Ino                 uint32
	Mode                     TreeEntryMode
	UID, GID                 uint32
	Size                     uint32
	Hash                     Hash
	Stage                    uint8 // 0-3; nonzero only for unmerged entries
	Name                     string
}

// Index is the parsed form of .git/index: the ordered list of staged
// entries that form the next commit's tree, plus a stat cache letting
// Checkout tell a modified working-tree file from an untouched one without
// rehashing its content. The binary layout is adapted from the fixed-width
// struct parsing this package already uses for pack-index tables
// (packindex.go), applied to the index format's own fan-out-free, flat
// sorted-by-name entry list.
type Index struct {
	Entries []IndexEntry
}

// ParseIndex decodes a version-2 .git/index file. The trailing 20-byte
// checksum is validated against data's own content via digest (a mismatch
// is returned as an error) but is not itself returned.
func ParseIndex(data []byte, digest Digest) (*Index, error) {
	if len(data) < 12+20 {
		return nil, fmt.Errorf("gitobj: index too short (%d bytes)", len(data))
	}
	if [4]byte(data[0:4]) != indexMagic {
		return nil, fmt.Errorf("gitobj: index missing DIRC signature")
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version != indexVersion {
		return nil, fmt.Errorf("gitobj: unsupported index version %d (only version 2 is supported)", version)
	}
	count := binary.BigEndian.Uint32(data[8:12])

	checksum := data[len(data)-20:]
	got := digest.Sum(data[:len(data)-20])
	if !bytes.Equal(got[:], checksum) {
		return nil, fmt.Errorf("gitobj: index checksum mismatch")
	}

	idx := &Index{Entries: make([]IndexEntry, 0, count)}
	pos := 12
	for i := uint32(0); i < count; i++ {
		entry, consumed, err := parseIndexEntry(data, pos)
		if err != nil {
			return nil, fmt.Errorf("gitobj: index entry %d: %w", i, err)
		}
		idx.Entries = append(idx.Entries, entry)
		pos += consumed
	}
	return idx, nil
}

const fixedIndexEntryFields = 4*2 + 4*2 + 4*6 + hashSize + 2 // times + dev/ino/mode/uid/gid/size + hash + flags

// treeEntryModeFromIndexMode recovers a TreeEntryMode from a raw 32-bit
// index mode word. Regular files store their executable bit in the
// permission bits (100644 vs 100755), which a plain type-bits mask would
// collapse together; every other entry type (dir, symlink, gitlink) has no
// permission variation and its full value already matches a TreeEntryMode
// constant.
func treeEntryModeFromIndexMode(rawMode uint32) TreeEntryMode {
	switch rawMode & 0o170000 {
	case 0o100000:
		if rawMode&0o111 != 0 {
			return ModeExec
		}
		return ModeNormal
	default:
		return TreeEntryMode(rawMode)
	}
}

func parseIndexEntry(data []byte, pos int) (IndexEntry, int, error) {
	start := pos
	if pos+fixedIndexEntryFields > len(data) {
		return IndexEntry{}, 0, fmt.Errorf("truncated fixed fields")
	}

	readU32 := func() uint32 {
		v := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4
		return v
	}

	var e IndexEntry
	e.CTimeSeconds = int64(readU32())
	e.CTimeNanos = int64(readU32())
	e.MTimeSeconds = int64(readU32())
	e.MTimeNanos = int64(readU32())
	e.Dev = readU32()
	e.Ino = readU32()
	rawMode := readU32()
	e.Mode = treeEntryModeFromIndexMode(rawMode)
	e.UID = readU32()
	e.GID = readU32()
	e.Size = readU32()

	if pos+hashSize > len(data) {
		return IndexEntry{}, 0, fmt.Errorf("truncated hash")
	}
	copy(e.Hash[:], data[pos:pos+hashSize])
	pos += hashSize

	if pos+2 > len(data) {
		return IndexEntry{}, 0, fmt.Errorf("truncated flags")
	}
	flags := binary.BigEndian.Uint16(data[pos : pos+2])
	pos += 2
	e.Stage = uint8((flags >> 12) & 0x3)
	nameLen := int(flags & indexEntryFlagNameMask)

	nameStart := pos
	if nameLen < indexEntryFlagNameMask {
		if nameStart+nameLen > len(data) {
			return IndexEntry{}, 0, fmt.Errorf("truncated name")
		}
		e.Name = string(data[nameStart : nameStart+nameLen])
		pos = nameStart + nameLen
	} else {
		nul := bytes.IndexByte(data[nameStart:], 0)
		if nul < 0 {
			return IndexEntry{}, 0, fmt.Errorf("unterminated long name")
		}
		e.Name = string(data[nameStart : nameStart+nul])
		pos = nameStart + nul
	}

	// Entries are NUL-padded, with at least one NUL, to the next 8-byte
	// boundary measured from the start of this entry.
	consumed := pos - start
	pad := 8 - (consumed % 8)
	if pad == 0 {
		pad = 8
	}
	pos += pad

	return e, pos - start, nil
}

// Serialize re-encodes entries into a version-2 index file in slice order,
// appending the trailing SHA-1 checksum via digest. It does not sort them;
// the index format expects entries sorted by Name, so callers supply them
// in that order.
func (idx *Index) Serialize(digest Digest) []byte {
	var buf bytes.Buffer
	buf.Write(indexMagic[:])
	writeU32(&buf, indexVersion)
	writeU32(&buf, uint32(len(idx.Entries)))

	for _, e := range idx.Entries {
		start := buf.Len()
		writeU32(&buf, uint32(e.CTimeSeconds))
		writeU32(&buf, uint32(e.CTimeNanos))
		writeU32(&buf, uint32(e.MTimeSeconds))
		writeU32(&buf, uint32(e.MTimeNanos))
		writeU32(&buf, e.Dev)
		writeU32(&buf, e.Ino)
		writeU32(&buf, uint32(e.Mode))
		writeU32(&buf, e.UID)
		writeU32(&buf, e.GID)
		writeU32(&buf, e.Size)
		buf.Write(e.Hash[:])

		nameLen := len(e.Name)
		flagLen := nameLen
		if flagLen > indexEntryFlagNameMask {
			flagLen = indexEntryFlagNameMask
		}
		flags := uint16(e.Stage&0x3)<<12 | uint16(flagLen)
		writeU16(&buf, flags)
		buf.WriteString(e.Name)

		consumed := buf.Len() - start
		pad := 8 - (consumed % 8)
		if pad == 0 {
			pad = 8
		}
		buf.Write(make([]byte, pad))
	}

	sum := digest.Sum(buf.Bytes())
	buf.Write(sum[:])
	return buf.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}
