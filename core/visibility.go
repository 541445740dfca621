package core

// Bounds returns the inclusive min and max cell of the grid
func (g *VoxelGrid) Bounds() (VoxelCoord, VoxelCoord) {
	return VoxelCoord{}, VoxelCoord{g.size.X - 1, g.size.Y - 1, g.size.Z - 1}
}

// Occluded reports whether a solid voxel lies on the digital line between a
// and b. Neither endpoint is tested. The endpoints are put in a fixed order
// first, so Occluded(a, b) == Occluded(b, a) for every pair.
func (g *VoxelGrid) Occluded(a, b VoxelCoord) bool {
	if b.Less(a) {
		a, b = b, a
	}
	return g.walk(a, b, false, 0, 0)
}

// OccludedWithin walks from `from`, which must be inside [lo, hi], toward
// `to`. The walk ends unoccluded as soon as the dominant-axis coordinate
// leaves [lo, hi], since nothing outside the bounds can block it.
func (g *VoxelGrid) OccludedWithin(from, to, lo, hi VoxelCoord) bool {
	dom := dominantAxis(absDelta(from, to))
	return g.walk(from, to, true, lo.Axis(dom), hi.Axis(dom))
}

func absDelta(a, b VoxelCoord) [3]int {
	return [3]int{iabs(b.X - a.X), iabs(b.Y - a.Y), iabs(b.Z - a.Z)}
}

// dominantAxis picks the axis with the largest extent, lowest index on ties
func dominantAxis(d [3]int) int {
	switch {
	case d[0] >= d[1] && d[0] >= d[2]:
		return 0
	case d[1] >= d[2]:
		return 1
	default:
		return 2
	}
}

// walk is a 3D Bresenham traversal. The axes are permuted so the dominant
// one is stepped every iteration; two error terms decide the other steps.
func (g *VoxelGrid) walk(from, to VoxelCoord, clip bool, lo, hi int) bool {
	p := [3]int{from.X, from.Y, from.Z}
	t := [3]int{to.X, to.Y, to.Z}
	d := absDelta(from, to)
	var s [3]int
	for i := range s {
		s[i] = isign(t[i] - p[i])
	}

	x := dominantAxis(d)
	y, z := (x+1)%3, (x+2)%3

	e1 := 2*d[y] - d[x]
	e2 := 2*d[z] - d[x]
	for i := 0; i < d[x]; i++ {
		if e1 > 0 {
			p[y] += s[y]
			e1 -= 2 * d[x]
		}
		if e2 > 0 {
			p[z] += s[z]
			e2 -= 2 * d[x]
		}
		e1 += 2 * d[y]
		e2 += 2 * d[z]
		p[x] += s[x]

		if i == d[x]-1 {
			break // final point is the target itself
		}
		if clip && (p[x] < lo || p[x] > hi) {
			return false
		}
		if g.IsSolid(VoxelCoord{p[0], p[1], p[2]}) {
			return true
		}
	}
	return false
}

func iabs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func isign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
