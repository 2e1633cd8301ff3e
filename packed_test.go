package gitobj

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestPack encodes a single non-delta blob entry as a minimal pack:
// the 12-byte "PACK" header, one type+size+zlib entry, and a dummy 20-byte
// trailer (this package's pack reader never validates the trailer, so a
// zero trailer is accepted).
func buildTestPack(t *testing.T, body []byte) (pack []byte, entryOffset uint64) {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("PACK")
	buf.Write([]byte{0, 0, 0, 2}) // version 2
	buf.Write([]byte{0, 0, 0, 1}) // 1 object

	entryOffset = uint64(buf.Len())
	// header byte: type=blob(3), size bits = len(body) (assumed < 16 for this helper).
	require.Less(t, len(body), 16)
	buf.WriteByte(byte(packObjBlob)<<4 | byte(len(body)))

	var zbuf bytes.Buffer
	w := zlib.NewWriter(&zbuf)
	_, err := w.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	buf.Write(zbuf.Bytes())

	buf.Write(make([]byte, 20)) // trailer checksum, unchecked
	return buf.Bytes(), entryOffset
}

func newTestPacked(t *testing.T) (*Packed, *FsIO) {
	t.Helper()
	fsio, err := NewFsIO(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fsio.Mkdir(fsio.Join(".git", "objects", "pack")))
	files := NewFileCache(fsio)
	return newPacked(fsio, files, NewZlibCodec(), ".git", defaultIndexLRUCapacity, defaultKeysLRUCapacity), fsio
}

func noopRecurse(Hash) ([]byte, ObjectKind, bool, error) {
	return nil, KindInvalid, false, nil
}

func TestPackedReadInPack(t *testing.T) {
	p, _ := newTestPacked(t)

	body := []byte("packed blob")
	packData, offset := buildTestPack(t, body)

	var h Hash
	h[0] = 0x42
	idxData := buildTestPackIndex(t, []struct {
		hash   Hash
		offset uint64
		crc    uint32
	}{{hash: h, offset: offset, crc: 0}})

	require.NoError(t, p.WritePack("pack-test", packData))
	require.NoError(t, p.WriteIndex("pack-test", idxData))

	data, kind, ok, err := p.ReadInPack("pack-test", h, noopRecurse)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindBlob, kind)
	assert.Equal(t, body, data)
}

func TestPackedListAndMem(t *testing.T) {
	p, _ := newTestPacked(t)
	body := []byte("x")
	packData, offset := buildTestPack(t, body)
	var h Hash
	h[3] = 0x07
	idxData := buildTestPackIndex(t, []struct {
		hash   Hash
		offset uint64
		crc    uint32
	}{{hash: h, offset: offset, crc: 0}})

	require.NoError(t, p.WritePack("pack-a", packData))
	require.NoError(t, p.WriteIndex("pack-a", idxData))

	names, err := p.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"pack-a"}, names)

	found, err := p.Mem(h)
	require.NoError(t, err)
	assert.True(t, found)

	var missing Hash
	missing[0] = 0xff
	found, err = p.Mem(missing)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPackedListEmptyDir(t *testing.T) {
	p, _ := newTestPacked(t)
	names, err := p.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}
