package cache

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelradiosity/core"
	"voxelradiosity/radiosity"
)

func testRecord(digest string) *Record {
	return &Record{
		Version: Version,
		Digest:  digest,
		Extents: [][]radiosity.Extent{
			{{Start: 1, Coefficients: []float32{0.5, 0.25}}, {Start: 7, Coefficients: []float32{1e-5}}},
			nil,
			{{Start: 0, Coefficients: []float32{0.125}}},
		},
	}
}

func TestEncodeDecode(t *testing.T) {
	rec := testRecord("abc")
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rec))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, rec.Version, got.Version)
	assert.Equal(t, rec.Digest, got.Digest)
	require.Len(t, got.Extents, 3)
	assert.Equal(t, rec.Extents[0], got.Extents[0])
	assert.Empty(t, got.Extents[1])
	assert.Equal(t, rec.Extents[2], got.Extents[2])
}

func TestDecodeCorrupt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, testRecord("abc")))
	data := buf.Bytes()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("NOPE"), data[4:]...)},
		{"truncated header", data[:8]},
		{"truncated body", data[:len(data)-3]},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tc.data))
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func corruptSizes(compressed, raw uint32, body []byte) []byte {
	var buf bytes.Buffer
	buf.Write(magic[:])
	binary.Write(&buf, binary.LittleEndian, [3]uint32{formatVersion, compressed, raw})
	buf.Write(body)
	return buf.Bytes()
}

func TestDecodeUntrustedSizes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"huge compressed size", corruptSizes(0xFFFFFFF0, 0xFFFFFFF0, []byte{1, 2, 3})},
		{"huge uncompressed size", corruptSizes(3, 0xFFFFFFF0, []byte{1, 2, 3})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			_, err := Decode(bytes.NewReader(tc.data))
			runtime.ReadMemStats(&after)

			assert.ErrorIs(t, err, ErrCorrupt)
			assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
		})
	}
}

func TestLoadValidity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ff.cache")
	require.NoError(t, Save(path, testRecord("d1")))

	extents, err := Load(path, "d1")
	require.NoError(t, err)
	assert.Len(t, extents, 3)

	_, err = Load(path, "d2")
	assert.ErrorIs(t, err, ErrStale)

	old := testRecord("d1")
	old.Version = "voxelradiosity-ff-v0"
	require.NoError(t, Save(path, old))
	_, err = Load(path, "d1")
	assert.ErrorIs(t, err, ErrStale)

	_, err = Load(filepath.Join(dir, "missing"), "d1")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveFailedPublishLeavesTargetAlone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ff.cache")
	// a non-empty directory cannot be replaced by rename
	require.NoError(t, os.MkdirAll(filepath.Join(path, "keep"), 0o755))

	err := Save(path, testRecord("d1"))
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(path, "keep"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(path + ".tmp")
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestDigest(t *testing.T) {
	a := core.RoomScene(8, 6, 8)
	b := core.RoomScene(8, 6, 8)
	assert.Equal(t, Digest(a), Digest(b))
	assert.Len(t, Digest(a), 64)

	g := core.NewVoxelGrid(8, 6, 8)
	g.Fill(core.VoxelCoord{}, core.VoxelCoord{X: 7, Y: 0, Z: 7}, true)
	assert.NotEqual(t, Digest(a), Digest(core.NewScene(g)))
}
