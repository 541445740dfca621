package core

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Scene is the static geometry the solver works on: the grid, its exposed
// planes and the per-plane base emission of emissive surfaces.
type Scene struct {
	Grid     *VoxelGrid
	Planes   []Plane
	Vertices []mgl32.Vec3
	Emission []mgl32.Vec3 // base emission, one per plane
}

// Emitter marks every plane facing Dir whose cell lies in the inclusive box
// [Min, Max] as emitting Color
type Emitter struct {
	Min, Max VoxelCoord
	Dir      Direction
	Color    mgl32.Vec3
}

// NewScene extracts the planes of g
func NewScene(g *VoxelGrid) *Scene {
	planes, vertices := ExtractPlanes(g)
	return &Scene{
		Grid:     g,
		Planes:   planes,
		Vertices: vertices,
		Emission: make([]mgl32.Vec3, len(planes)),
	}
}

// Len returns the plane count
func (s *Scene) Len() int {
	return len(s.Planes)
}

// AddEmitter applies e and returns how many planes it matched
func (s *Scene) AddEmitter(e Emitter) int {
	n := 0
	for i, p := range s.Planes {
		c := p.Cell
		if p.Dir != e.Dir ||
			c.X < e.Min.X || c.Y < e.Min.Y || c.Z < e.Min.Z ||
			c.X > e.Max.X || c.Y > e.Max.Y || c.Z > e.Max.Z {
			continue
		}
		s.Emission[i] = s.Emission[i].Add(e.Color)
		n++
	}
	return n
}

// Diffuse returns the per-plane material color: stripes of the given width
// along X alternating between a and b
func (s *Scene) Diffuse(a, b mgl32.Vec3, width int) []mgl32.Vec3 {
	if width <= 0 {
		width = 1
	}
	out := make([]mgl32.Vec3, len(s.Planes))
	for i, p := range s.Planes {
		if floorDiv(p.Cell.X, width)%2 == 0 {
			out[i] = a
		} else {
			out[i] = b
		}
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// DemoScene builds one of the built-in scenes: "room", "cube" or "single"
func DemoScene(name string) (*Scene, error) {
	switch name {
	case "room":
		return RoomScene(16, 12, 16), nil
	case "cube":
		return CubeScene(8), nil
	case "single":
		g := NewVoxelGrid(1, 1, 1)
		g.Set(VoxelCoord{}, true)
		return NewScene(g), nil
	}
	return nil, fmt.Errorf("unknown demo scene %q", name)
}

// RoomScene is a closed box with a pillar in the middle and an emissive
// panel in the ceiling
func RoomScene(sx, sy, sz int) *Scene {
	g := NewVoxelGrid(sx, sy, sz)
	g.Fill(VoxelCoord{0, 0, 0}, VoxelCoord{sx - 1, 0, sz - 1}, true)           // floor
	g.Fill(VoxelCoord{0, sy - 1, 0}, VoxelCoord{sx - 1, sy - 1, sz - 1}, true) // ceiling
	g.Fill(VoxelCoord{0, 0, 0}, VoxelCoord{0, sy - 1, sz - 1}, true)
	g.Fill(VoxelCoord{sx - 1, 0, 0}, VoxelCoord{sx - 1, sy - 1, sz - 1}, true)
	g.Fill(VoxelCoord{0, 0, 0}, VoxelCoord{sx - 1, sy - 1, 0}, true)
	g.Fill(VoxelCoord{0, 0, sz - 1}, VoxelCoord{sx - 1, sy - 1, sz - 1}, true)

	// pillar
	cx, cz := sx/2-1, sz/2-1
	g.Fill(VoxelCoord{cx, 1, cz}, VoxelCoord{cx + 1, sy / 2, cz + 1}, true)

	s := NewScene(g)
	s.AddEmitter(Emitter{
		Min:   VoxelCoord{sx/2 - 2, sy - 1, 1},
		Max:   VoxelCoord{sx/2 + 1, sy - 1, 3},
		Dir:   DirNegY,
		Color: mgl32.Vec3{4, 4, 3.5},
	})
	return s
}

// CubeScene is a solid n³ block. Its faces are all convex, so no pair of
// planes couples.
func CubeScene(n int) *Scene {
	g := NewVoxelGrid(n, n, n)
	g.Fill(VoxelCoord{}, VoxelCoord{n - 1, n - 1, n - 1}, true)
	return NewScene(g)
}
