package core

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOccluded(t *testing.T) {
	g := NewVoxelGrid(8, 8, 8)
	g.Set(VoxelCoord{4, 4, 4}, true)

	tests := []struct {
		name string
		a, b VoxelCoord
		want bool
	}{
		{"axis aligned through wall", VoxelCoord{0, 4, 4}, VoxelCoord{7, 4, 4}, true},
		{"axis aligned beside wall", VoxelCoord{0, 3, 4}, VoxelCoord{7, 3, 4}, false},
		{"diagonal through wall", VoxelCoord{1, 1, 1}, VoxelCoord{7, 7, 7}, true},
		{"target is solid", VoxelCoord{0, 4, 4}, VoxelCoord{4, 4, 4}, false},
		{"same cell", VoxelCoord{2, 2, 2}, VoxelCoord{2, 2, 2}, false},
		{"neighbours", VoxelCoord{3, 4, 4}, VoxelCoord{5, 4, 4}, true},
		{"outside grid is empty", VoxelCoord{-3, 0, 0}, VoxelCoord{10, 0, 0}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, g.Occluded(tc.a, tc.b))
			assert.Equal(t, tc.want, g.Occluded(tc.b, tc.a))
		})
	}
}

func TestOccludedIsSymmetricAndDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g := NewVoxelGrid(12, 12, 12)
	for i := 0; i < 300; i++ {
		g.Set(VoxelCoord{rng.Intn(12), rng.Intn(12), rng.Intn(12)}, true)
	}
	randCell := func() VoxelCoord {
		return VoxelCoord{rng.Intn(14) - 1, rng.Intn(14) - 1, rng.Intn(14) - 1}
	}

	for i := 0; i < 2000; i++ {
		a, b := randCell(), randCell()
		first := g.Occluded(a, b)
		assert.Equal(t, first, g.Occluded(a, b), "repeat %v %v", a, b)
		assert.Equal(t, first, g.Occluded(b, a), "swapped %v %v", a, b)
	}
}

func TestOccludedWithinClipsAtBounds(t *testing.T) {
	g := NewVoxelGrid(4, 4, 4)
	lo, hi := g.Bounds()

	// a light far outside the grid is reached once the walk leaves it
	assert.False(t, g.OccludedWithin(VoxelCoord{1, 1, 1}, VoxelCoord{1, 100, 1}, lo, hi))

	g.Set(VoxelCoord{1, 2, 1}, true)
	assert.True(t, g.OccludedWithin(VoxelCoord{1, 1, 1}, VoxelCoord{1, 100, 1}, lo, hi))
	assert.False(t, g.OccludedWithin(VoxelCoord{1, 1, 1}, VoxelCoord{1, -100, 1}, lo, hi))
}

func TestOccludedWithinMatchesUnclippedInside(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := NewVoxelGrid(10, 10, 10)
	for i := 0; i < 150; i++ {
		g.Set(VoxelCoord{rng.Intn(10), rng.Intn(10), rng.Intn(10)}, true)
	}
	lo, hi := g.Bounds()
	for i := 0; i < 500; i++ {
		a := VoxelCoord{rng.Intn(10), rng.Intn(10), rng.Intn(10)}
		b := VoxelCoord{rng.Intn(10), rng.Intn(10), rng.Intn(10)}
		assert.Equal(t, g.walk(a, b, false, 0, 0), g.OccludedWithin(a, b, lo, hi))
	}
}
