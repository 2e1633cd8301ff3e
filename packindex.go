package gitobj

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"
)

// packIndexMagic is the 4-byte signature that opens a version-2 pack index
// file. Version-1 indices (which lack this signature and the fan-out table
// immediately follows byte 0) predate every pack this package's writers
// produce and every pack the test fixtures in the retrieved corpus use; it
// is intentionally unsupported, a scoped-down simplification of the
// PackIndex collaborator spec.md leaves external.
var packIndexMagic = [4]byte{0xff, 't', 'O', 'c'}

const (
	packIndexFanoutEntries = 256
	packIndexFanoutBytes   = packIndexFanoutEntries * 4
	packIndexLargeOffsetBit = 1 << 31
)

// PackIndex is the parsed form of a single pack's .idx file: a fan-out
// table plus sorted object IDs, each with its byte offset and CRC-32
// within the companion .pack file. It is adapted from the teacher's idx.go
// fan-out/binary-search algorithm, ported from mmap.ReaderAt-backed parsing
// to ordinary bounds-checked []byte indexing, since this package's
// FileCache hands out owned byte slices rather than long-lived mmap
// windows (spec.md §9).
type PackIndex struct {
	fanout [packIndexFanoutEntries]uint32
	oids   []Hash
	offsets []uint64
	crcs   []uint32
}

// ParsePackIndex parses a version-2 .idx file.
func ParsePackIndex(data []byte) (*PackIndex, error) {
	if len(data) < 8+packIndexFanoutBytes+20+20 {
		return nil, fmt.Errorf("gitobj: pack index too short (%d bytes)", len(data))
	}
	if [4]byte(data[0:4]) != packIndexMagic {
		return nil, fmt.Errorf("gitobj: pack index missing v2 magic (only v2 indices are supported)")
	}
	if v := binary.BigEndian.Uint32(data[4:8]); v != 2 {
		return nil, fmt.Errorf("gitobj: unsupported pack index version %d (only v2 is supported)", v)
	}

	idx := &PackIndex{}
	pos := 8
	for i := 0; i < packIndexFanoutEntries; i++ {
		idx.fanout[i] = binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4
	}
	for i := 1; i < packIndexFanoutEntries; i++ {
		if idx.fanout[i] < idx.fanout[i-1] {
			return nil, fmt.Errorf("gitobj: pack index fan-out table is not monotonic")
		}
	}

	count := int(idx.fanout[packIndexFanoutEntries-1])

	idx.oids = make([]Hash, count)
	for i := 0; i < count; i++ {
		if pos+hashSize > len(data) {
			return nil, fmt.Errorf("gitobj: pack index truncated in object-ID table")
		}
		copy(idx.oids[i][:], data[pos:pos+hashSize])
		pos += hashSize
	}

	idx.crcs = make([]uint32, count)
	for i := 0; i < count; i++ {
		if pos+4 > len(data) {
			return nil, fmt.Errorf("gitobj: pack index truncated in CRC table")
		}
		idx.crcs[i] = binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4
	}

	rawOffsets := make([]uint32, count)
	var largeCount int
	for i := 0; i < count; i++ {
		if pos+4 > len(data) {
			return nil, fmt.Errorf("gitobj: pack index truncated in offset table")
		}
		rawOffsets[i] = binary.BigEndian.Uint32(data[pos : pos+4])
		if rawOffsets[i]&packIndexLargeOffsetBit != 0 {
			largeCount++
		}
		pos += 4
	}

	largeOffsets := make([]uint64, largeCount)
	for i := 0; i < largeCount; i++ {
		if pos+8 > len(data) {
			return nil, fmt.Errorf("gitobj: pack index truncated in large-offset table")
		}
		largeOffsets[i] = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	}

	idx.offsets = make([]uint64, count)
	for i, raw := range rawOffsets {
		if raw&packIndexLargeOffsetBit != 0 {
			li := raw &^ packIndexLargeOffsetBit
			if int(li) >= len(largeOffsets) {
				return nil, fmt.Errorf("gitobj: pack index large-offset index out of range")
			}
			idx.offsets[i] = largeOffsets[li]
		} else {
			idx.offsets[i] = uint64(raw)
		}
	}

	return idx, nil
}

// FindOffset looks up h and returns its byte offset and CRC-32 within the
// companion pack, via the fan-out table followed by a binary search over
// the bucket it selects.
func (idx *PackIndex) FindOffset(h Hash) (offset uint64, crc uint32, found bool) {
	first := h[0]
	start := uint32(0)
	if first > 0 {
		start = idx.fanout[first-1]
	}
	end := idx.fanout[first]
	if start == end {
		return 0, 0, false
	}

	bucket := idx.oids[start:end]
	i, ok := slices.BinarySearchFunc(bucket, h, func(a, b Hash) int { return bytes.Compare(a[:], b[:]) })
	if !ok {
		return 0, 0, false
	}
	abs := int(start) + i
	return idx.offsets[abs], idx.crcs[abs], true
}

// Keys returns every object ID this index covers.
func (idx *PackIndex) Keys() []Hash {
	out := make([]Hash, len(idx.oids))
	copy(out, idx.oids)
	return out
}
