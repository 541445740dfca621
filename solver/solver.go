// Package solver runs the radiosity build pipeline and the steady-state
// Jacobi iteration on a background goroutine.
package solver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"voxelradiosity/cache"
	"voxelradiosity/core"
	"voxelradiosity/logger"
	"voxelradiosity/radiosity"
)

// Options configures a Solver
type Options struct {
	Workers            int    // 0 means one per CPU
	Quantize           bool   // use 8-bit bucketed blocks
	CachePath          string // empty disables the cache
	PreviewInterval    time.Duration
	IdleTimeout        time.Duration
	ConvergenceEpsilon float32
	MaxIterations      int // 0 means run until the receiver closes

	StripeWidth int
	StripeA     mgl32.Vec3
	StripeB     mgl32.Vec3
	Lighting    bool
	Lights      []SetPointLight
}

// DefaultOptions returns the settings used when nothing is configured
func DefaultOptions() Options {
	return Options{
		PreviewInterval:    time.Second,
		IdleTimeout:        50 * time.Millisecond,
		ConvergenceEpsilon: 1e-5,
		StripeWidth:        4,
		StripeA:            mgl32.Vec3{0.8, 0.8, 0.8},
		StripeB:            mgl32.Vec3{0.8, 0.3, 0.3},
		Lighting:           true,
	}
}

// Solver owns the scene, the radiosity double buffer and the background
// goroutine that builds form factors and iterates
type Solver struct {
	scene  *core.Scene
	opts   Options
	digest string

	buf    *DoubleBuffer
	lights *lighting

	inputs chan Input
	box    *mailbox

	// Thread control
	running atomic.Bool
	wg      sync.WaitGroup
	stopped chan struct{}
	err     error
}

// New creates a solver for scene. The returned Receiver is the consumer's end
// of the event stream; closing it stops the solver.
func New(scene *core.Scene, opts Options) (*Solver, *Receiver) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.PreviewInterval <= 0 {
		opts.PreviewInterval = time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 50 * time.Millisecond
	}
	s := &Solver{
		scene:   scene,
		opts:    opts,
		digest:  cache.Digest(scene),
		buf:     NewDoubleBuffer(scene.Len()),
		lights:  newLighting(scene, opts),
		inputs:  make(chan Input, 64),
		box:     newMailbox(),
		stopped: make(chan struct{}),
	}
	return s, &Receiver{box: s.box}
}

// Buffer returns the shared front/back buffer
func (s *Solver) Buffer() *DoubleBuffer {
	return s.buf
}

// Scene returns the scene being solved
func (s *Solver) Scene() *core.Scene {
	return s.scene
}

// Digest returns the scene digest used to key the cache
func (s *Solver) Digest() string {
	return s.digest
}

// Start begins the solver goroutine
func (s *Solver) Start() {
	s.running.Store(true)
	s.wg.Add(1)
	go s.run()
}

// Running reports whether the solver goroutine is still going
func (s *Solver) Running() bool {
	return s.running.Load()
}

// Send queues an input for the next iteration. It returns false once the
// solver has stopped.
func (s *Solver) Send(in Input) bool {
	select {
	case <-s.stopped:
		return false
	default:
	}
	select {
	case s.inputs <- in:
		return true
	case <-s.stopped:
		return false
	}
}

// TrySend is Send without blocking. It returns false when the input queue
// is full or the solver has stopped.
func (s *Solver) TrySend(in Input) bool {
	select {
	case <-s.stopped:
		return false
	default:
	}
	select {
	case s.inputs <- in:
		return true
	default:
		return false
	}
}

// PendingInput holds the latest value of an input until TrySend accepts
// it, so a caller that must not block can retry on its next tick
type PendingInput struct {
	in Input
}

// Set replaces whatever is pending
func (p *PendingInput) Set(in Input) {
	p.in = in
}

// Flush tries to hand the pending input to s and reports whether nothing
// is left pending
func (p *PendingInput) Flush(s *Solver) bool {
	if p.in == nil {
		return true
	}
	if s.TrySend(p.in) {
		p.in = nil
		return true
	}
	return false
}

// Wait blocks until the solver goroutine exits and returns the error that
// stopped it. A closed receiver or reaching MaxIterations is not an error.
func (s *Solver) Wait() error {
	s.wg.Wait()
	return s.err
}

func (s *Solver) run() {
	defer s.wg.Done()
	defer s.running.Store(false)
	defer close(s.stopped)
	defer s.box.finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.Logger()
	var st stage = tryLoad{}
	for st != nil {
		next, err := st.step(ctx, s)
		if errors.Is(err, ErrDisconnected) {
			log.Info("receiver closed, solver stopping")
			return
		}
		if err != nil {
			log.Error("solver stopped", "stage", fmt.Sprintf("%T", st), "err", err)
			s.box.send(StatusUpdate{Text: "solver stopped: " + err.Error()})
			s.err = err
			return
		}
		st = next
	}
	log.Info("solver finished", "iterations", s.buf.Iteration())
}

func (s *Solver) emit(ev Event) error {
	return s.box.send(ev)
}

func (s *Solver) status(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	logger.Logger().Info(text)
	return s.emit(StatusUpdate{Text: text})
}

// drainInputs collects every queued input. With wait > 0 and nothing queued
// it blocks up to wait for the first one.
func (s *Solver) drainInputs(wait time.Duration) ([]Input, error) {
	var out []Input
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case in := <-s.inputs:
			out = append(out, in)
		case <-timer.C:
			return nil, nil
		case <-s.box.done:
			return nil, ErrDisconnected
		}
	}
	for {
		select {
		case in := <-s.inputs:
			out = append(out, in)
		default:
			return out, nil
		}
	}
}

// applyInputs drains pending inputs into the lighting state and reports
// whether emission changed
func (s *Solver) applyInputs(wait time.Duration) (bool, error) {
	inputs, err := s.drainInputs(wait)
	if err != nil {
		return false, err
	}
	return s.lights.apply(inputs), nil
}

// iterate runs one Jacobi step over the packed rows: back = emission +
// diffuse * (coupling x front). It returns the multiplication count and the
// largest per-channel change.
func (s *Solver) iterate(ctx context.Context, rows []radiosity.Accumulator) (int, float32, error) {
	front, back := s.buf.front, s.buf.back
	emission, diffuse := s.lights.emission, s.lights.diffuse

	n := len(rows)
	chunk := max(1, (n+s.opts.Workers*4-1)/(s.opts.Workers*4))
	chunks := (n + chunk - 1) / chunk
	mults := make([]int, chunks)
	deltas := make([]float32, chunks)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for c := range chunks {
		lo, hi := c*chunk, min(n, (c+1)*chunk)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				acc, m := rows[i].Accumulate(front.R, front.G, front.B)
				mults[c] += m
				deltas[c] = max(deltas[c], store(back, front, i, emission[i], diffuse[i], acc))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	var total int
	var delta float32
	for c := range chunks {
		total += mults[c]
		delta = max(delta, deltas[c])
	}
	return total, delta, nil
}

// iterateRaw is the preview step used while form factors are still being
// generated: the same update, straight from the unsorted triples
func (s *Solver) iterateRaw(ffs []radiosity.FormFactor) int {
	front, back := s.buf.front, s.buf.back
	emission, diffuse := s.lights.emission, s.lights.diffuse

	acc := make([]mgl32.Vec3, len(emission))
	for _, f := range ffs {
		j := f.Target
		a := &acc[f.Source]
		a[0] += f.Value * front.R[j]
		a[1] += f.Value * front.G[j]
		a[2] += f.Value * front.B[j]
	}
	for i := range acc {
		store(back, front, i, emission[i], diffuse[i], acc[i])
	}
	return 3 * len(ffs)
}

func store(back, front *Channels, i int, e, d, acc mgl32.Vec3) float32 {
	r := e[0] + d[0]*acc[0]
	g := e[1] + d[1]*acc[1]
	b := e[2] + d[2]*acc[2]
	back.R[i], back.G[i], back.B[i] = r, g, b
	return max(abs32(r-front.R[i]), abs32(g-front.G[i]), abs32(b-front.B[i]))
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
