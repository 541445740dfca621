package core

import (
	"cmp"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane is an exposed unit face of a solid voxel. Its index in the plane
// list is the solver's degree of freedom.
type Plane struct {
	Cell     VoxelCoord
	Dir      Direction
	Vertices [4]uint32 // indices into the shared vertex list
}

// Normal returns the integer face normal
func (p Plane) Normal() VoxelCoord {
	return p.Dir.Normal()
}

// Front is the empty cell the face looks into
func (p Plane) Front() VoxelCoord {
	return p.Cell.Add(p.Dir.Normal())
}

// Center is the world-space center of the face
func (p Plane) Center() mgl32.Vec3 {
	return p.Cell.Center().Add(p.Dir.NormalVec().Mul(0.5))
}

// cornerOffsets are counter-clockwise seen from outside the face
var cornerOffsets = [6][4]VoxelCoord{
	DirPosX: {{1, 0, 1}, {1, 0, 0}, {1, 1, 0}, {1, 1, 1}},
	DirNegX: {{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}},
	DirPosY: {{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}},
	DirNegY: {{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
	DirPosZ: {{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
	DirNegZ: {{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}},
}

// sortKey orders faces within a direction group. The innermost key runs
// along the face so neighbouring faces get consecutive indices.
func sortKey(d Direction, c VoxelCoord) [3]int {
	if d.Axis() == 0 {
		return [3]int{c.Y, c.X, c.Z}
	}
	return [3]int{c.Y, c.Z, c.X}
}

// faceExposed reports whether the face of solid cell c in direction d
// borders an empty or out-of-grid cell. The grid has no underside, so
// bottom-layer voxels never get a downward face.
func faceExposed(g *VoxelGrid, c VoxelCoord, d Direction) bool {
	n := c.Add(d.Normal())
	if d == DirNegY && n.Y < 0 {
		return false
	}
	return !g.IsSolid(n)
}

// ExtractPlanes converts the grid into its exposed faces. Planes are grouped
// by direction (in Directions order) and sorted within each group.
func ExtractPlanes(g *VoxelGrid) ([]Plane, []mgl32.Vec3) {
	var groups [6][]VoxelCoord
	size := g.Size()
	for z := 0; z < size.Z; z++ {
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				c := VoxelCoord{x, y, z}
				if !g.IsSolid(c) {
					continue
				}
				for _, d := range Directions {
					if faceExposed(g, c, d) {
						groups[d] = append(groups[d], c)
					}
				}
			}
		}
	}

	var planes []Plane
	var vertices []mgl32.Vec3
	for _, d := range Directions {
		cells := groups[d]
		slices.SortFunc(cells, func(a, b VoxelCoord) int {
			ka, kb := sortKey(d, a), sortKey(d, b)
			for i := range ka {
				if c := cmp.Compare(ka[i], kb[i]); c != 0 {
					return c
				}
			}
			return 0
		})
		for _, c := range cells {
			p := Plane{Cell: c, Dir: d}
			for k, off := range cornerOffsets[d] {
				p.Vertices[k] = uint32(len(vertices))
				vertices = append(vertices, c.Add(off).Vec3())
			}
			planes = append(planes, p)
		}
	}
	return planes, vertices
}
