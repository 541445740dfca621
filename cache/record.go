// Package cache persists compressed form factors between runs. A record is
// only reused when both its version tag and its scene digest match.
package cache

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	lzf "github.com/zhuyie/golzf"
	"golang.org/x/crypto/blake2b"

	"voxelradiosity/core"
	"voxelradiosity/logger"
	"voxelradiosity/radiosity"
)

// Version tags the form factor algorithm. Bump it whenever the generator or
// compressor output changes.
const Version = "voxelradiosity-ff-v1"

const formatVersion uint32 = 1

// lzfMaxExpansion bounds decompressed/compressed: a 3 byte back reference
// expands to at most 264 bytes
const lzfMaxExpansion = 88

var magic = [4]byte{'V', 'X', 'R', 'C'}

var (
	// ErrStale means the record was built for another version or scene
	ErrStale = errors.New("cache: stale record")
	// ErrCorrupt means the file could not be decoded
	ErrCorrupt = errors.New("cache: corrupt record")
)

// Record is the persisted form of a finished compression
type Record struct {
	Version string
	Digest  string
	Extents [][]radiosity.Extent
}

// Digest hashes the scene geometry: grid size, occupancy and plane list
func Digest(s *core.Scene) string {
	h, _ := blake2b.New256(nil)
	size := s.Grid.Size()
	binary.Write(h, binary.LittleEndian, [3]int32{int32(size.X), int32(size.Y), int32(size.Z)})

	cells := s.Grid.Cells()
	packed := make([]byte, (len(cells)+7)/8)
	for i, solid := range cells {
		if solid {
			packed[i/8] |= 1 << (i % 8)
		}
	}
	h.Write(packed)

	binary.Write(h, binary.LittleEndian, uint32(len(s.Planes)))
	for _, p := range s.Planes {
		binary.Write(h, binary.LittleEndian, [4]int32{int32(p.Cell.X), int32(p.Cell.Y), int32(p.Cell.Z), int32(p.Dir)})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Encode writes rec: magic, format version, the LZF body sizes, then the
// compressed body
func Encode(w io.Writer, rec *Record) error {
	var body bytes.Buffer
	writeString(&body, rec.Version)
	writeString(&body, rec.Digest)
	binary.Write(&body, binary.LittleEndian, uint32(len(rec.Extents)))
	for _, row := range rec.Extents {
		binary.Write(&body, binary.LittleEndian, uint32(len(row)))
		for _, e := range row {
			binary.Write(&body, binary.LittleEndian, [2]uint32{e.Start, uint32(len(e.Coefficients))})
			binary.Write(&body, binary.LittleEndian, e.Coefficients)
		}
	}

	raw := body.Bytes()
	if uint64(len(raw)) > math.MaxUint32 {
		return fmt.Errorf("cache: record too large (%d bytes)", len(raw))
	}
	compressed := make([]byte, len(raw)+len(raw)/16+64)
	n, err := lzf.Compress(raw, compressed)
	if err != nil {
		return fmt.Errorf("cache: compress: %w", err)
	}

	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	header := [3]uint32{formatVersion, uint32(n), uint32(len(raw))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	_, err = w.Write(compressed[:n])
	return err
}

// Decode reads a record written by Encode
func Decode(r io.Reader) (*Record, error) {
	var m [4]byte
	if _, err := io.ReadFull(r, m[:]); err != nil || m != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if header[0] != formatVersion {
		return nil, fmt.Errorf("%w: format version %d", ErrStale, header[0])
	}

	// the header is untrusted: read what is really there before sizing
	// anything from it
	compressed, err := io.ReadAll(io.LimitReader(r, int64(header[1])))
	if err != nil {
		return nil, fmt.Errorf("%w: body: %v", ErrCorrupt, err)
	}
	if len(compressed) != int(header[1]) {
		return nil, fmt.Errorf("%w: body: %d of %d bytes", ErrCorrupt, len(compressed), header[1])
	}
	if uint64(header[2]) > uint64(len(compressed))*lzfMaxExpansion {
		return nil, fmt.Errorf("%w: uncompressed size %d too large for %d byte body", ErrCorrupt, header[2], len(compressed))
	}
	raw := make([]byte, header[2])
	n, err := lzf.Decompress(compressed, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrCorrupt, err)
	}
	if n != len(raw) {
		return nil, fmt.Errorf("%w: wrong uncompressed size", ErrCorrupt)
	}

	rec, err := decodeBody(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return rec, nil
}

func decodeBody(r *bytes.Reader) (*Record, error) {
	rec := &Record{}
	var err error
	if rec.Version, err = readString(r); err != nil {
		return nil, err
	}
	if rec.Digest, err = readString(r); err != nil {
		return nil, err
	}

	var planes uint32
	if err := binary.Read(r, binary.LittleEndian, &planes); err != nil {
		return nil, err
	}
	// every plane needs at least its extent count
	if int64(planes)*4 > int64(r.Len()) {
		return nil, errors.New("plane count exceeds body")
	}
	rec.Extents = make([][]radiosity.Extent, planes)
	for i := range rec.Extents {
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return nil, err
		}
		if int64(count)*8 > int64(r.Len()) {
			return nil, errors.New("extent count exceeds body")
		}
		row := make([]radiosity.Extent, count)
		for k := range row {
			var se [2]uint32
			if err := binary.Read(r, binary.LittleEndian, &se); err != nil {
				return nil, err
			}
			if int64(se[1])*4 > int64(r.Len()) {
				return nil, errors.New("extent length exceeds body")
			}
			row[k].Start = se[0]
			row[k].Coefficients = make([]float32, se[1])
			if err := binary.Read(r, binary.LittleEndian, row[k].Coefficients); err != nil {
				return nil, err
			}
		}
		rec.Extents[i] = row
	}
	if r.Len() != 0 {
		return nil, errors.New("trailing bytes")
	}
	return rec, nil
}

func writeString(w io.Writer, s string) {
	binary.Write(w, binary.LittleEndian, uint32(len(s)))
	io.WriteString(w, s)
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if int64(n) > int64(r.Len()) {
		return "", errors.New("string length exceeds body")
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// Load reads the record at path and returns its extents if it was written
// by this Version for a scene with the given digest. Every failure is an
// error; callers treat all of them as a cache miss.
func Load(path, digest string) ([][]radiosity.Extent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, err := Decode(f)
	if err != nil {
		return nil, err
	}
	if rec.Version != Version {
		return nil, fmt.Errorf("%w: version %q, want %q", ErrStale, rec.Version, Version)
	}
	if rec.Digest != digest {
		return nil, fmt.Errorf("%w: digest %.12s, want %.12s", ErrStale, rec.Digest, digest)
	}
	return rec.Extents, nil
}

// Save publishes rec at path atomically: the record is written and synced to
// path.tmp, then renamed over path. If any step fails the previous file at
// path is left untouched.
func Save(path string, rec *Record) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := Encode(f, rec); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cache: publish %s: %w", path, err)
	}
	logger.Logger().Debug("cache record written", "path", path, "planes", len(rec.Extents))
	return nil
}
