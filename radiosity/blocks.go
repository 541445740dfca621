package radiosity

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrUnpackable reports extents that cannot be laid out as blocks. It means
// the compressor produced something inconsistent and the build must stop.
var ErrUnpackable = errors.New("radiosity: extent cannot be packed into blocks")

// BlockWidths are the lane counts, largest first
var BlockWidths = [4]int{16, 8, 4, 1}

// Accumulator is the packed coupling row of one plane
type Accumulator interface {
	// Accumulate returns sum_j ff[j]*channel[j] for each channel and the
	// number of multiplications performed
	Accumulate(r, g, b []float32) (mgl32.Vec3, int)
	// Len returns the number of stored coefficients
	Len() int
}

// splitExtent greedily cuts a run at target start of length n into blocks.
// A width-w block needs w remaining entries and a start aligned to w.
func splitExtent(start uint32, n int, emit func(width int, target uint32, offset int)) int {
	off := 0
	for off < n {
		t := start + uint32(off)
		for _, w := range BlockWidths {
			if n-off >= w && t%uint32(w) == 0 {
				emit(w, t, off)
				off += w
				break
			}
		}
	}
	return off
}

func checkExtents(extents []Extent, planes int) error {
	for _, e := range extents {
		if len(e.Coefficients) == 0 || int(e.End()) > planes {
			return fmt.Errorf("%w: start %d len %d with %d planes", ErrUnpackable, e.Start, len(e.Coefficients), planes)
		}
	}
	return nil
}

// Blocks holds full-precision coefficients in parallel arrays per width
type Blocks struct {
	Start16 []uint32
	Coef16  [][16]float32
	Start8  []uint32
	Coef8   [][8]float32
	Start4  []uint32
	Coef4   [][4]float32
	Start1  []uint32
	Coef1   []float32
}

// PackBlocks lays out one plane's extents as blocks
func PackBlocks(extents []Extent, planes int) (*Blocks, error) {
	if err := checkExtents(extents, planes); err != nil {
		return nil, err
	}
	b := &Blocks{}
	for _, e := range extents {
		c := e.Coefficients
		n := splitExtent(e.Start, len(c), func(w int, t uint32, off int) {
			switch w {
			case 16:
				b.Start16 = append(b.Start16, t)
				b.Coef16 = append(b.Coef16, [16]float32(c[off:off+16]))
			case 8:
				b.Start8 = append(b.Start8, t)
				b.Coef8 = append(b.Coef8, [8]float32(c[off:off+8]))
			case 4:
				b.Start4 = append(b.Start4, t)
				b.Coef4 = append(b.Coef4, [4]float32(c[off:off+4]))
			default:
				b.Start1 = append(b.Start1, t)
				b.Coef1 = append(b.Coef1, c[off])
			}
		})
		if n != len(c) {
			return nil, fmt.Errorf("%w: split %d of %d", ErrUnpackable, n, len(c))
		}
	}
	return b, nil
}

// Len returns the number of stored coefficients
func (b *Blocks) Len() int {
	return 16*len(b.Coef16) + 8*len(b.Coef8) + 4*len(b.Coef4) + len(b.Coef1)
}

// Accumulate implements Accumulator
func (b *Blocks) Accumulate(r, g, bl []float32) (mgl32.Vec3, int) {
	var acc mgl32.Vec3
	for k, t := range b.Start16 {
		dot(&acc, b.Coef16[k][:], r, g, bl, t)
	}
	for k, t := range b.Start8 {
		dot(&acc, b.Coef8[k][:], r, g, bl, t)
	}
	for k, t := range b.Start4 {
		dot(&acc, b.Coef4[k][:], r, g, bl, t)
	}
	for k, t := range b.Start1 {
		c := b.Coef1[k]
		acc[0] += c * r[t]
		acc[1] += c * g[t]
		acc[2] += c * bl[t]
	}
	return acc, 3 * b.Len()
}

// dot accumulates one block. Slicing the channels to the block width up
// front lets the compiler drop bounds checks in the lane loop.
func dot(acc *mgl32.Vec3, c []float32, r, g, b []float32, t uint32) {
	n := len(c)
	rr := r[t : int(t)+n]
	gg := g[t : int(t)+n]
	bb := b[t : int(t)+n]
	var sr, sg, sb float32
	for l := 0; l < n; l++ {
		sr += c[l] * rr[l]
		sg += c[l] * gg[l]
		sb += c[l] * bb[l]
	}
	acc[0] += sr
	acc[1] += sg
	acc[2] += sb
}

// QuantizedBlocks stores 1-byte bucket codes instead of floats, with the
// plane's own BucketTable for dequantization
type QuantizedBlocks struct {
	Table   *BucketTable
	Start16 []uint32
	Code16  [][16]uint8
	Start8  []uint32
	Code8   [][8]uint8
	Start4  []uint32
	Code4   [][4]uint8
	Start1  []uint32
	Code1   []uint8
}

// PackQuantized lays out one plane's extents as quantized blocks
func PackQuantized(extents []Extent, planes int) (*QuantizedBlocks, error) {
	if err := checkExtents(extents, planes); err != nil {
		return nil, err
	}
	var all []float32
	for _, e := range extents {
		all = append(all, e.Coefficients...)
	}
	q := &QuantizedBlocks{Table: NewBucketTable(all)}
	for _, e := range extents {
		c := e.Coefficients
		n := splitExtent(e.Start, len(c), func(w int, t uint32, off int) {
			switch w {
			case 16:
				var codes [16]uint8
				q.encode(codes[:], c[off:off+16])
				q.Start16 = append(q.Start16, t)
				q.Code16 = append(q.Code16, codes)
			case 8:
				var codes [8]uint8
				q.encode(codes[:], c[off:off+8])
				q.Start8 = append(q.Start8, t)
				q.Code8 = append(q.Code8, codes)
			case 4:
				var codes [4]uint8
				q.encode(codes[:], c[off:off+4])
				q.Start4 = append(q.Start4, t)
				q.Code4 = append(q.Code4, codes)
			default:
				q.Start1 = append(q.Start1, t)
				q.Code1 = append(q.Code1, q.Table.Bucket(c[off]))
			}
		})
		if n != len(c) {
			return nil, fmt.Errorf("%w: split %d of %d", ErrUnpackable, n, len(c))
		}
	}
	return q, nil
}

func (q *QuantizedBlocks) encode(dst []uint8, src []float32) {
	for i, v := range src {
		dst[i] = q.Table.Bucket(v)
	}
}

// Len returns the number of stored coefficients
func (q *QuantizedBlocks) Len() int {
	return 16*len(q.Code16) + 8*len(q.Code8) + 4*len(q.Code4) + len(q.Code1)
}

// Accumulate implements Accumulator, dequantizing each lane through the table
func (q *QuantizedBlocks) Accumulate(r, g, b []float32) (mgl32.Vec3, int) {
	var acc mgl32.Vec3
	var lanes [16]float32
	tab := &q.Table.Values
	for k, t := range q.Start16 {
		for l, code := range q.Code16[k] {
			lanes[l] = tab[code]
		}
		dot(&acc, lanes[:16], r, g, b, t)
	}
	for k, t := range q.Start8 {
		for l, code := range q.Code8[k] {
			lanes[l] = tab[code]
		}
		dot(&acc, lanes[:8], r, g, b, t)
	}
	for k, t := range q.Start4 {
		for l, code := range q.Code4[k] {
			lanes[l] = tab[code]
		}
		dot(&acc, lanes[:4], r, g, b, t)
	}
	for k, t := range q.Start1 {
		c := tab[q.Code1[k]]
		acc[0] += c * r[t]
		acc[1] += c * g[t]
		acc[2] += c * b[t]
	}
	return acc, 3 * q.Len()
}

// Pack packs every plane, quantized or not
func Pack(extents [][]Extent, quantize bool) ([]Accumulator, error) {
	out := make([]Accumulator, len(extents))
	for i, row := range extents {
		var (
			acc Accumulator
			err error
		)
		if quantize {
			acc, err = PackQuantized(row, len(extents))
		} else {
			acc, err = PackBlocks(row, len(extents))
		}
		if err != nil {
			return nil, fmt.Errorf("plane %d: %w", i, err)
		}
		out[i] = acc
	}
	return out, nil
}
