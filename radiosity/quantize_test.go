package radiosity

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestBucketWithinAdjacentThresholds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	coeffs := make([]float32, 2000)
	for i := range coeffs {
		coeffs[i] = math32.Exp2(-rng.Float32()*20) * 0.3
	}
	tab := NewBucketTable(coeffs)

	for _, ff := range coeffs {
		k := int(tab.Bucket(ff))
		v := tab.Value(uint8(k))
		x := -math32.Log2(ff)

		assert.GreaterOrEqual(t, tab.Threshold(k)+1e-5, x)
		lower := math32.Exp2(-tab.Threshold(k))
		assert.GreaterOrEqual(t, v, lower*(1-1e-5))
		if k > 0 {
			assert.Less(t, tab.Threshold(k-1), x+1e-5)
			upper := math32.Exp2(-tab.Threshold(k - 1))
			assert.LessOrEqual(t, v, upper*(1+1e-5))
		}
		assert.Greater(t, v, float32(0))
	}
}

func TestBucketTableExtremes(t *testing.T) {
	coeffs := []float32{0.5, 0.25, 1.0 / 1024}
	tab := NewBucketTable(coeffs)

	assert.Equal(t, uint8(0), tab.Bucket(0.5))
	assert.Equal(t, uint8(Buckets-1), tab.Bucket(1.0/1024))
	assert.InDelta(t, 0.5, tab.Value(0), 1e-6)
	assert.Equal(t, uint8(Buckets-1), tab.Bucket(0))
}

func TestBucketTableSingleValue(t *testing.T) {
	tab := NewBucketTable([]float32{0.125, 0.125})
	assert.Equal(t, uint8(0), tab.Bucket(0.125))
	assert.InDelta(t, 0.125, tab.Value(0), 1e-7)

	empty := NewBucketTable(nil)
	assert.Equal(t, uint8(0), empty.Bucket(0.3))
}
