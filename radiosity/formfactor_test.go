package radiosity

import (
	"context"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelradiosity/core"
)

func plane(x, y, z int, d core.Direction) core.Plane {
	return core.Plane{Cell: core.VoxelCoord{X: x, Y: y, Z: z}, Dir: d}
}

func TestComputeFacingPlanes(t *testing.T) {
	floor := plane(0, 0, 0, core.DirPosY)
	ceiling := plane(0, 5, 0, core.DirNegY)

	ff, ok := Compute(floor, ceiling)
	require.True(t, ok)
	assert.InDelta(t, 1/(math32.Pi*25), ff, 1e-9)

	back, ok := Compute(ceiling, floor)
	require.True(t, ok)
	assert.Equal(t, ff, back)
}

func TestComputeRejects(t *testing.T) {
	tests := []struct {
		name string
		a, b core.Plane
	}{
		{"same voxel", plane(1, 1, 1, core.DirPosX), plane(1, 1, 1, core.DirPosY)},
		{"same direction", plane(0, 0, 0, core.DirPosY), plane(0, 3, 0, core.DirPosY)},
		{"back to back y", plane(0, 0, 0, core.DirNegY), plane(0, 4, 0, core.DirPosY)},
		{"back to back y swapped", plane(0, 4, 0, core.DirPosY), plane(0, 0, 0, core.DirNegY)},
		{"level y pair", plane(0, 2, 0, core.DirNegY), plane(3, 2, 0, core.DirPosY)},
		{"back to back x", plane(0, 0, 0, core.DirNegX), plane(3, 0, 0, core.DirPosX)},
		{"back to back z", plane(0, 0, 5, core.DirPosZ), plane(0, 0, 2, core.DirNegZ)},
		{"coplanar floor", plane(0, 0, 0, core.DirPosY), plane(4, 0, 0, core.DirPosY)},
		{"far away", plane(0, 0, 0, core.DirPosY), plane(0, 1000, 0, core.DirNegY)},
		{"perpendicular facing away", plane(0, 0, 0, core.DirPosY), plane(3, 0, 0, core.DirPosX)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := Compute(tc.a, tc.b)
			assert.False(t, ok)
		})
	}
}

func TestNormalCullCases(t *testing.T) {
	// facing each other across a gap survives, back to back is culled
	assert.False(t, normalCulled(plane(5, 0, 0, core.DirNegX), plane(1, 0, 0, core.DirPosX)))
	assert.True(t, normalCulled(plane(1, 0, 0, core.DirNegX), plane(1, 0, 0, core.DirPosX)))
	assert.False(t, normalCulled(plane(1, 0, 0, core.DirPosX), plane(5, 0, 0, core.DirNegX)))
	assert.True(t, normalCulled(plane(5, 0, 0, core.DirPosX), plane(5, 0, 0, core.DirNegX)))

	assert.False(t, normalCulled(plane(0, 9, 0, core.DirNegY), plane(0, 8, 0, core.DirPosY)))
	assert.True(t, normalCulled(plane(0, 8, 0, core.DirNegY), plane(0, 8, 0, core.DirPosY)))
	assert.False(t, normalCulled(plane(0, 0, 1, core.DirPosZ), plane(0, 0, 2, core.DirNegZ)))
	assert.True(t, normalCulled(plane(0, 0, 2, core.DirPosZ), plane(0, 0, 1, core.DirNegZ)))

	// different axes are never normal culled
	assert.False(t, normalCulled(plane(0, 0, 0, core.DirNegX), plane(0, 0, 0, core.DirPosY)))
}

func TestGeneratorReciprocity(t *testing.T) {
	scene := core.RoomScene(8, 6, 8)
	gen := NewGenerator(scene.Grid, scene.Planes, 4)

	ffs, err := gen.All(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, ffs)

	type pair struct{ s, t uint32 }
	seen := make(map[pair]float32, len(ffs))
	for _, f := range ffs {
		_, dup := seen[pair{f.Source, f.Target}]
		require.False(t, dup, "duplicate %d->%d", f.Source, f.Target)
		seen[pair{f.Source, f.Target}] = f.Value
		assert.GreaterOrEqual(t, f.Value, float32(Threshold))
	}
	for p, v := range seen {
		back, ok := seen[pair{p.t, p.s}]
		require.True(t, ok, "missing %d->%d", p.t, p.s)
		assert.Equal(t, v, back)
	}
}

func TestGeneratorVisibilityCull(t *testing.T) {
	// two facing walls with a blocker in between
	g := core.NewVoxelGrid(7, 1, 1)
	g.Set(core.VoxelCoord{X: 0}, true)
	g.Set(core.VoxelCoord{X: 6}, true)
	planes := []core.Plane{plane(0, 0, 0, core.DirPosX), plane(6, 0, 0, core.DirNegX)}

	ffs, err := NewGenerator(g, planes, 1).All(t.Context())
	require.NoError(t, err)
	assert.Len(t, ffs, 2)

	g.Set(core.VoxelCoord{X: 3}, true)
	ffs, err = NewGenerator(g, planes, 1).All(t.Context())
	require.NoError(t, err)
	assert.Empty(t, ffs)
}

func TestGeneratorConvexCubeHasNoCoupling(t *testing.T) {
	scene := core.CubeScene(4)
	ffs, err := NewGenerator(scene.Grid, scene.Planes, 2).All(t.Context())
	require.NoError(t, err)
	assert.Empty(t, ffs)
}

func TestGeneratorStreamCancel(t *testing.T) {
	scene := core.RoomScene(8, 6, 8)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := NewGenerator(scene.Grid, scene.Planes, 2).All(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
