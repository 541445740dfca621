// Package radiosity computes plane-to-plane form factors and compresses the
// resulting sparse matrix into extents and fixed-width blocks.
package radiosity

import (
	"context"
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/chewxy/math32"

	"voxelradiosity/core"
)

// Threshold drops couplings too small to matter
const Threshold = 5e-6

// FormFactor is one entry of the sparse coupling matrix
type FormFactor struct {
	Source uint32
	Target uint32
	Value  float32
}

// normalCulled rejects opposite-facing pairs on the same axis that sit
// back to back. The six cases are kept explicit.
func normalCulled(a, b core.Plane) bool {
	switch {
	case a.Dir == core.DirNegX && b.Dir == core.DirPosX:
		return a.Cell.X < b.Cell.X+1
	case a.Dir == core.DirPosX && b.Dir == core.DirNegX:
		return b.Cell.X < a.Cell.X+1
	case a.Dir == core.DirNegY && b.Dir == core.DirPosY:
		return a.Cell.Y < b.Cell.Y+1
	case a.Dir == core.DirPosY && b.Dir == core.DirNegY:
		return b.Cell.Y < a.Cell.Y+1
	case a.Dir == core.DirNegZ && b.Dir == core.DirPosZ:
		return a.Cell.Z < b.Cell.Z+1
	case a.Dir == core.DirPosZ && b.Dir == core.DirNegZ:
		return b.Cell.Z < a.Cell.Z+1
	}
	return false
}

// Compute returns the unoccluded form factor between two planes, or false
// if the pair is culled or falls below Threshold. Visibility is not tested.
func Compute(a, b core.Plane) (float32, bool) {
	if a.Cell == b.Cell || a.Dir == b.Dir {
		return 0, false
	}
	if normalCulled(a, b) {
		return 0, false
	}

	delta := a.Cell.Sub(b.Cell).Vec3()
	dist2 := delta.Dot(delta)
	d := delta.Mul(1 / math32.Sqrt(dist2))

	na, nb := a.Dir.NormalVec(), b.Dir.NormalVec()
	ff := math32.Max(0, -na.Dot(d)) * math32.Max(0, nb.Dot(d)) / (math32.Pi * dist2)
	if ff < Threshold {
		return 0, false
	}
	return ff, true
}

// Batch is the output of one generator row
type Batch struct {
	Row         int
	FormFactors []FormFactor
}

// Generator computes form factors for every unordered plane pair
type Generator struct {
	grid    *core.VoxelGrid
	planes  []core.Plane
	workers int
}

// NewGenerator creates a generator. workers <= 0 means one per CPU.
func NewGenerator(grid *core.VoxelGrid, planes []core.Plane, workers int) *Generator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Generator{grid: grid, planes: planes, workers: workers}
}

// Rows returns the number of outer-loop rows
func (g *Generator) Rows() int {
	return len(g.planes)
}

// Row couples plane i with every plane j > i. Each surviving pair is emitted
// in both directions with the same coefficient.
func (g *Generator) Row(i int) []FormFactor {
	var out []FormFactor
	pi := g.planes[i]
	from := pi.Front()
	for j := i + 1; j < len(g.planes); j++ {
		pj := g.planes[j]
		ff, ok := Compute(pi, pj)
		if !ok {
			continue
		}
		// trace between the empty cells in front of each face
		if g.grid.Occluded(from, pj.Front()) {
			continue
		}
		out = append(out,
			FormFactor{Source: uint32(i), Target: uint32(j), Value: ff},
			FormFactor{Source: uint32(j), Target: uint32(i), Value: ff},
		)
	}
	return out
}

// Stream computes every row on a worker pool and sends each finished row on
// out, in completion order. out is closed when all rows are done or ctx is
// cancelled.
func (g *Generator) Stream(ctx context.Context, out chan<- Batch) {
	defer close(out)

	pool := pond.NewPool(g.workers)
	defer pool.StopAndWait()

	var wg sync.WaitGroup
	for i := range g.planes {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			b := Batch{Row: i, FormFactors: g.Row(i)}
			select {
			case out <- b:
			case <-ctx.Done():
			}
		})
	}
	wg.Wait()
}

// All runs Stream to completion and returns every form factor
func (g *Generator) All(ctx context.Context) ([]FormFactor, error) {
	ch := make(chan Batch, g.workers)
	go g.Stream(ctx, ch)

	var all []FormFactor
	for b := range ch {
		all = append(all, b.FormFactors...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return all, nil
}
