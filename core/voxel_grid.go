package core

// VoxelGrid is a dense solid/empty occupancy grid. It is immutable once the
// scene has been built.
type VoxelGrid struct {
	size  VoxelCoord
	solid []bool
}

// NewVoxelGrid creates an empty grid of the given dimensions
func NewVoxelGrid(sx, sy, sz int) *VoxelGrid {
	if sx < 0 || sy < 0 || sz < 0 {
		sx, sy, sz = 0, 0, 0
	}
	return &VoxelGrid{
		size:  VoxelCoord{sx, sy, sz},
		solid: make([]bool, sx*sy*sz),
	}
}

// Size returns the grid dimensions
func (g *VoxelGrid) Size() VoxelCoord {
	return g.size
}

// Len returns the number of cells
func (g *VoxelGrid) Len() int {
	return len(g.solid)
}

// InBounds reports whether c lies inside the grid
func (g *VoxelGrid) InBounds(c VoxelCoord) bool {
	return c.X >= 0 && c.Y >= 0 && c.Z >= 0 &&
		c.X < g.size.X && c.Y < g.size.Y && c.Z < g.size.Z
}

// addr linearizes c; caller checks bounds
func (g *VoxelGrid) addr(c VoxelCoord) int {
	return c.X + (c.Y+c.Z*g.size.Y)*g.size.X
}

// Set marks a cell solid or empty. Out of bounds cells are ignored.
func (g *VoxelGrid) Set(c VoxelCoord, solid bool) {
	if !g.InBounds(c) {
		return
	}
	g.solid[g.addr(c)] = solid
}

// Fill sets every cell of the inclusive box [min, max]
func (g *VoxelGrid) Fill(min, max VoxelCoord, solid bool) {
	for z := min.Z; z <= max.Z; z++ {
		for y := min.Y; y <= max.Y; y++ {
			for x := min.X; x <= max.X; x++ {
				g.Set(VoxelCoord{x, y, z}, solid)
			}
		}
	}
}

// IsSolid reports whether c is solid. Cells outside the grid are empty.
func (g *VoxelGrid) IsSolid(c VoxelCoord) bool {
	if !g.InBounds(c) {
		return false
	}
	return g.solid[g.addr(c)]
}

// SolidCount returns the number of solid cells
func (g *VoxelGrid) SolidCount() int {
	n := 0
	for _, s := range g.solid {
		if s {
			n++
		}
	}
	return n
}

// Cells returns the raw occupancy in X-fastest, then Y, then Z order
func (g *VoxelGrid) Cells() []bool {
	return g.solid
}
