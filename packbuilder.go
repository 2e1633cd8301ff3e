package gitobj

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"slices"
)

// packFileHeaderLen is "PACK" + 4-byte version + 4-byte object count.
const packFileHeaderLen = 12

var packFileMagic = [4]byte{'P', 'A', 'C', 'K'}

// packIndexEntry is one object's record while building a PackIndex from a
// raw pack's bytes: the pieces ParsePackIndex reads back out, computed here
// by walking the pack forward instead of backward through an existing idx.
type packIndexEntry struct {
	hash   Hash
	offset uint64
	crc    uint32
}

// buildPackIndexEntries walks every entry in a raw pack sequentially,
// resolving each one's full hash (chasing deltas through recurse when a
// base lies outside this pack) and recording its offset and CRC-32 — the
// three columns a .idx file's tables hold. Adapted from the teacher's
// pack-verification walk in store.go, which performs the same linear scan
// to validate a pack's checksum before trusting it.
func buildPackIndexEntries(pack []byte, c *codec, recurse RecurseFunc) ([]packIndexEntry, error) {
	if len(pack) < packFileHeaderLen+20 {
		return nil, fmt.Errorf("gitobj: pack too short (%d bytes)", len(pack))
	}
	if [4]byte(pack[0:4]) != packFileMagic {
		return nil, fmt.Errorf("gitobj: missing PACK signature")
	}
	count := binary.BigEndian.Uint32(pack[8:12])

	reader := newPackReader(c.zcodec)
	entries := make([]packIndexEntry, 0, count)

	// A synthetic index over entries discovered so far, so ofs-delta/
	// ref-delta bases already walked in this same pack resolve locally
	// instead of always falling through to recurse.
	local := &localOffsetIndex{}

	off := uint64(packFileHeaderLen)
	for i := uint32(0); i < count; i++ {
		start := off
		typ, entryLen, err := packEntrySpan(pack, off)
		if err != nil {
			return nil, fmt.Errorf("gitobj: entry %d at offset %d: %w", i, off, err)
		}

		data, kind, err := reader.readWithContext(pack, local.packIndex(), start, newDeltaCtx(defaultMaxDeltaDepth), localThenRecurse(local, pack, c, recurse))
		if err != nil {
			return nil, fmt.Errorf("gitobj: resolving entry %d at offset %d: %w", i, start, err)
		}
		_ = typ

		h := c.digest.Sum(frame(kind, data))
		crc := crc32.ChecksumIEEE(pack[start : start+entryLen])

		entries = append(entries, packIndexEntry{hash: h, offset: start, crc: crc})
		local.add(h, start)
		off += entryLen
	}

	return entries, nil
}

// localOffsetIndex is a minimal, append-only stand-in for *PackIndex used
// only while building a pack's own index: it lets packReader resolve a
// ref-delta base by hash against objects already walked in this pack
// before falling through to the caller's recurse function.
type localOffsetIndex struct {
	byHash map[Hash]uint64
}

func (l *localOffsetIndex) add(h Hash, off uint64) {
	if l.byHash == nil {
		l.byHash = make(map[Hash]uint64)
	}
	l.byHash[h] = off
}

// packIndex supplies the *PackIndex argument readWithContext requires. It
// is empty: readWithContext calls FindOffset only for ref-delta bases, and
// this index never matches, so those bases fall through to
// localThenRecurse, which consults byHash. Ofs-delta bases need no index;
// readWithContext finds them by offset arithmetic.
func (l *localOffsetIndex) packIndex() *PackIndex {
	return &PackIndex{} // fan-out left zeroed; FindOffset never used for ofs-delta.
}

func localThenRecurse(l *localOffsetIndex, pack []byte, c *codec, recurse RecurseFunc) RecurseFunc {
	return func(h Hash) ([]byte, ObjectKind, bool, error) {
		if off, ok := l.byHash[h]; ok {
			reader := newPackReader(c.zcodec)
			data, kind, err := reader.Read(pack, &PackIndex{}, off, recurse)
			if err != nil {
				return nil, KindInvalid, false, err
			}
			return data, kind, true, nil
		}
		return recurse(h)
	}
}

// packEntrySpan returns an entry's packObjType and its total on-disk length
// (variable header + optional delta-base prefix + deflate stream), so the
// caller can both CRC the exact entry bytes and advance to the next one.
func packEntrySpan(pack []byte, off uint64) (packObjType, uint64, error) {
	typ, _, hdrLen := parsePackEntryHeader(pack[off:])
	if hdrLen <= 0 {
		return 0, 0, fmt.Errorf("cannot parse entry header")
	}
	pos := off + uint64(hdrLen)

	switch typ {
	case packObjRefDelta:
		pos += hashSize
	case packObjOfsDelta:
		for {
			if pos >= uint64(len(pack)) {
				return 0, 0, fmt.Errorf("truncated ofs-delta offset")
			}
			b := pack[pos]
			pos++
			if b&0x80 == 0 {
				break
			}
		}
	}

	n, err := zlibStreamLen(pack[pos:])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrMalformedCompression, err)
	}
	return typ, (pos + uint64(n)) - off, nil
}

// zlibStreamLen returns the number of bytes src's leading zlib stream
// consumes, by inflating through a byte-counting reader rather than
// assuming the stream runs to the end of src (it doesn't — another pack
// entry or the trailing checksum follows).
func zlibStreamLen(src []byte) (int, error) {
	cr := &countingReader{r: bytes.NewReader(src)}
	zr, err := zlib.NewReader(cr)
	if err != nil {
		return 0, err
	}
	defer zr.Close()
	if _, err := io.Copy(io.Discard, zr); err != nil {
		return 0, err
	}
	return cr.n, nil
}

type countingReader struct {
	r *bytes.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

// ReadByte makes countingReader an io.ByteReader, so zlib/flate read from
// it directly instead of through a read-ahead bufio.Reader whose buffering
// would be counted as consumed stream bytes.
func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

// SerializePackIndex builds a version-2 .idx file from entries (which need
// not be pre-sorted), ready to be written alongside the pack they describe.
// packChecksum is the describing pack's own trailing SHA-1, copied into the
// idx's penultimate trailer field; digest computes the idx's own trailing
// self-checksum over everything written before it.
func SerializePackIndex(entries []packIndexEntry, packChecksum Hash, digest Digest) []byte {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b packIndexEntry) int { return bytes.Compare(a.hash[:], b.hash[:]) })

	var buf bytes.Buffer
	buf.Write(packIndexMagic[:])
	writeU32(&buf, 2)

	var fanout [packIndexFanoutEntries]uint32
	for _, e := range sorted {
		for b := int(e.hash[0]); b < packIndexFanoutEntries; b++ {
			fanout[b]++
		}
	}
	for _, v := range fanout {
		writeU32(&buf, v)
	}

	for _, e := range sorted {
		buf.Write(e.hash[:])
	}
	for _, e := range sorted {
		writeU32(&buf, e.crc)
	}

	var large []uint64
	for _, e := range sorted {
		if e.offset > 0x7fffffff {
			writeU32(&buf, packIndexLargeOffsetBit|uint32(len(large)))
			large = append(large, e.offset)
		} else {
			writeU32(&buf, uint32(e.offset))
		}
	}
	for _, off := range large {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], off)
		buf.Write(b[:])
	}

	buf.Write(packChecksum[:])
	selfSum := digest.Sum(buf.Bytes())
	buf.Write(selfSum[:])

	return buf.Bytes()
}
