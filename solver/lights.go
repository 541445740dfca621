package solver

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"voxelradiosity/core"
)

// pointLight caches, per plane, the irradiance a unit-color light delivers.
// Moving the light re-traces it; a color change only rescales. While
// lighting is off a move only marks the weights stale.
type pointLight struct {
	position mgl32.Vec3
	color    mgl32.Vec3
	weight   []float32
	stale    bool
}

// maxLightCoord bounds light cells so far-away positions stay valid ints
const maxLightCoord = 1 << 24

// lighting owns the emission and diffuse arrays. Only the solver goroutine
// uses it.
type lighting struct {
	scene       *core.Scene
	stripeWidth int
	stripeA     mgl32.Vec3
	stripeB     mgl32.Vec3
	enabled     bool
	lights      map[int]*pointLight

	diffuse  []mgl32.Vec3
	emission []mgl32.Vec3
}

func newLighting(scene *core.Scene, opts Options) *lighting {
	l := &lighting{
		scene:       scene,
		stripeWidth: opts.StripeWidth,
		stripeA:     opts.StripeA,
		stripeB:     opts.StripeB,
		enabled:     opts.Lighting,
		lights:      make(map[int]*pointLight),
		emission:    make([]mgl32.Vec3, scene.Len()),
	}
	l.diffuse = scene.Diffuse(l.stripeA, l.stripeB, l.stripeWidth)
	for _, in := range opts.Lights {
		l.setLight(in)
	}
	l.recompute()
	return l
}

// apply coalesces a batch of inputs, keeping only the latest value per light
// and per setting, and reports whether emission changed
func (l *lighting) apply(inputs []Input) bool {
	if len(inputs) == 0 {
		return false
	}
	var (
		lights  = make(map[int]SetPointLight)
		order   []int
		stripes *SetStripeColors
		enable  *EnableLighting
	)
	for _, in := range inputs {
		switch ev := in.(type) {
		case SetPointLight:
			if _, ok := lights[ev.ID]; !ok {
				order = append(order, ev.ID)
			}
			lights[ev.ID] = ev
		case SetStripeColors:
			stripes = &ev
		case EnableLighting:
			enable = &ev
		}
	}

	if enable != nil {
		l.enabled = enable.Enabled
	}
	for _, id := range order {
		l.setLight(lights[id])
	}
	if l.enabled {
		for _, pl := range l.lights {
			if pl.stale {
				l.trace(pl)
			}
		}
	}
	if stripes != nil {
		l.stripeA, l.stripeB = stripes.A, stripes.B
		l.diffuse = l.scene.Diffuse(l.stripeA, l.stripeB, l.stripeWidth)
	}
	l.recompute()
	return true
}

func (l *lighting) setLight(ev SetPointLight) {
	pl, ok := l.lights[ev.ID]
	if !ok {
		pl = &pointLight{weight: make([]float32, l.scene.Len())}
		l.lights[ev.ID] = pl
	}
	pl.color = ev.Color
	if ok && pl.position == ev.Position && !pl.stale {
		return
	}
	pl.position = ev.Position
	if !l.enabled {
		pl.stale = true
		return
	}
	l.trace(pl)
}

func lightCell(pos mgl32.Vec3) core.VoxelCoord {
	var c [3]int
	for a := range c {
		v := pos[a]
		if v != v { // NaN
			v = 0
		}
		c[a] = int(math32.Floor(math32.Max(-maxLightCoord, math32.Min(maxLightCoord, v))))
	}
	return core.VoxelCoord{X: c[0], Y: c[1], Z: c[2]}
}

// trace fills the weight cache of one light
func (l *lighting) trace(pl *pointLight) {
	g := l.scene.Grid
	lo, hi := g.Bounds()
	cell := lightCell(pl.position)
	inside := g.InBounds(cell)
	pl.stale = false

	for i, p := range l.scene.Planes {
		pl.weight[i] = 0
		toLight := pl.position.Sub(p.Center())
		dist2 := toLight.Dot(toLight)
		if dist2 == 0 {
			continue
		}
		cos := p.Dir.NormalVec().Dot(toLight) / math32.Sqrt(dist2)
		if !(cos > 0) { // also drops NaN from non-finite positions
			continue
		}
		// walks start from whichever end is inside the grid and stop at its
		// bounds; a face looking out of the grid at an outside light is lit
		front := p.Front()
		if front != cell {
			var blocked bool
			switch {
			case inside:
				blocked = g.OccludedWithin(cell, front, lo, hi)
			case g.InBounds(front):
				blocked = g.OccludedWithin(front, cell, lo, hi)
			}
			if blocked {
				continue
			}
		}
		pl.weight[i] = cos / math32.Max(1, dist2)
	}
}

// recompute rebuilds emission from base emission and cached irradiance
func (l *lighting) recompute() {
	base := l.scene.Emission
	for i := range l.emission {
		if !l.enabled {
			l.emission[i] = mgl32.Vec3{}
			continue
		}
		var irr mgl32.Vec3
		for _, pl := range l.lights {
			irr = irr.Add(pl.color.Mul(pl.weight[i]))
		}
		d := l.diffuse[i]
		l.emission[i] = base[i].Add(mgl32.Vec3{d[0] * irr[0], d[1] * irr[1], d[2] * irr[2]})
	}
}
