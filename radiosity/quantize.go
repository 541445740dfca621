package radiosity

import (
	"github.com/chewxy/math32"
)

// Buckets is the number of quantization levels
const Buckets = 256

// BucketTable maps 1-byte codes to coefficients. Thresholds are evenly spaced
// in -log2 space over the observed coefficient range of one plane.
type BucketTable struct {
	lo     float32 // -log2 of the largest coefficient
	step   float32
	Values [Buckets]float32
}

// NewBucketTable builds the table for one plane's coefficients
func NewBucketTable(coeffs []float32) *BucketTable {
	t := &BucketTable{}
	first := true
	var lo, hi float32
	for _, c := range coeffs {
		if c <= 0 {
			continue
		}
		x := -math32.Log2(c)
		if first {
			lo, hi, first = x, x, false
			continue
		}
		lo = math32.Min(lo, x)
		hi = math32.Max(hi, x)
	}
	t.lo = lo
	t.step = (hi - lo) / (Buckets - 1)

	t.Values[0] = math32.Exp2(-t.Threshold(0))
	for k := 1; k < Buckets; k++ {
		mid := (t.Threshold(k-1) + t.Threshold(k)) / 2
		t.Values[k] = math32.Exp2(-mid)
	}
	return t
}

// Threshold returns t_k in -log2 space
func (t *BucketTable) Threshold(k int) float32 {
	return t.lo + t.step*float32(k)
}

// Bucket returns the smallest k whose threshold is >= -log2(ff)
func (t *BucketTable) Bucket(ff float32) uint8 {
	if ff <= 0 {
		return Buckets - 1
	}
	x := -math32.Log2(ff)
	if t.step == 0 || x <= t.lo {
		return 0
	}
	k := int(math32.Ceil((x - t.lo) / t.step))
	if k > Buckets-1 {
		k = Buckets - 1
	}
	// the division can land one bucket off
	for k < Buckets-1 && t.Threshold(k) < x {
		k++
	}
	for k > 0 && t.Threshold(k-1) >= x {
		k--
	}
	return uint8(k)
}

// Value dequantizes code k
func (t *BucketTable) Value(k uint8) float32 {
	return t.Values[k]
}
