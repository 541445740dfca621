package solver

import (
	"context"
	"errors"
	"os"
	"time"

	"voxelradiosity/cache"
	"voxelradiosity/logger"
	"voxelradiosity/radiosity"
)

// stage is one state of the build pipeline. step does a bounded amount of
// work and returns the next stage, or nil when the solver is done.
type stage interface {
	step(ctx context.Context, s *Solver) (stage, error)
}

// tryLoad reads the cache record, falling back to a full build on any error
type tryLoad struct{}

func (tryLoad) step(ctx context.Context, s *Solver) (stage, error) {
	if s.opts.CachePath == "" {
		return &buildFormFactors{}, s.status("cache disabled, building form factors")
	}
	extents, err := cache.Load(s.opts.CachePath, s.digest)
	switch {
	case err == nil:
		return &generateSimdExtents{extents: extents}, s.status("cache hit: %d form factors", radiosity.CountCoefficients(extents))
	case errors.Is(err, os.ErrNotExist):
		return &buildFormFactors{}, s.status("cache miss: no record at %s", s.opts.CachePath)
	default:
		logger.Logger().Warn("ignoring cache record", "path", s.opts.CachePath, "err", err)
		return &buildFormFactors{}, s.status("cache miss: %v", err)
	}
}

// buildFormFactors streams generator batches. It loops on itself, running a
// preview iteration on the partial result every PreviewInterval.
type buildFormFactors struct {
	batches <-chan radiosity.Batch
	rows    int
	done    int
	ffs     []radiosity.FormFactor
	started time.Time
}

func (b *buildFormFactors) step(ctx context.Context, s *Solver) (stage, error) {
	if b.batches == nil {
		gen := radiosity.NewGenerator(s.scene.Grid, s.scene.Planes, s.opts.Workers)
		ch := make(chan radiosity.Batch, s.opts.Workers)
		go gen.Stream(ctx, ch)
		b.batches, b.rows, b.started = ch, gen.Rows(), time.Now()
	}

	timer := time.NewTimer(s.opts.PreviewInterval)
	defer timer.Stop()
	for {
		select {
		case batch, ok := <-b.batches:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				logger.Logger().Info("form factors generated", "count", len(b.ffs), "elapsed", time.Since(b.started))
				return &postprocess{ffs: b.ffs}, s.status("generated %d form factors in %v", len(b.ffs), time.Since(b.started).Round(time.Millisecond))
			}
			b.ffs = append(b.ffs, batch.FormFactors...)
			b.done++
		case <-timer.C:
			return b, b.preview(s)
		}
	}
}

func (b *buildFormFactors) preview(s *Solver) error {
	if _, err := s.applyInputs(0); err != nil {
		return err
	}
	start := time.Now()
	mults := s.iterateRaw(b.ffs)
	s.buf.swap()
	if err := s.status("building form factors: %d%%", 100*b.done/max(1, b.rows)); err != nil {
		return err
	}
	return s.emit(IterationDone{Iteration: s.buf.Iteration(), Multiplications: mults, Duration: time.Since(start)})
}

// postprocess sorts and compresses the triples and persists them. A failed
// write is logged and the run goes on without a cache.
type postprocess struct {
	ffs []radiosity.FormFactor
}

func (p *postprocess) step(ctx context.Context, s *Solver) (stage, error) {
	extents := radiosity.Compress(p.ffs, s.scene.Len())
	if s.opts.CachePath != "" {
		rec := &cache.Record{Version: cache.Version, Digest: s.digest, Extents: extents}
		if err := cache.Save(s.opts.CachePath, rec); err != nil {
			logger.Logger().Warn("cache write failed", "path", s.opts.CachePath, "err", err)
		}
	}
	var count int
	for _, row := range extents {
		count += len(row)
	}
	return &generateSimdExtents{extents: extents}, s.status("compressed %d form factors into %d extents", len(p.ffs), count)
}

// generateSimdExtents packs extents into blocks and signals Ready
type generateSimdExtents struct {
	extents [][]radiosity.Extent
}

func (g *generateSimdExtents) step(ctx context.Context, s *Solver) (stage, error) {
	rows, err := radiosity.Pack(g.extents, s.opts.Quantize)
	if err != nil {
		return nil, err
	}
	logger.Logger().Info("blocks packed", "planes", len(rows), "quantized", s.opts.Quantize)
	return &steadyState{rows: rows}, s.emit(Ready{})
}

// steadyState iterates forever. Once an iteration changes nothing by more
// than ConvergenceEpsilon it waits for input instead of spinning.
type steadyState struct {
	rows       []radiosity.Accumulator
	iterations int
	converged  bool
}

func (st *steadyState) step(ctx context.Context, s *Solver) (stage, error) {
	var wait time.Duration
	if st.converged {
		wait = s.opts.IdleTimeout
	}
	changed, err := s.applyInputs(wait)
	if err != nil {
		return nil, err
	}
	if st.converged && !changed {
		return st, nil
	}

	start := time.Now()
	mults, delta, err := s.iterate(ctx, st.rows)
	if err != nil {
		return nil, err
	}
	s.buf.swap()
	elapsed := time.Since(start)
	logger.Logger().Debug("iteration done", "iteration", s.buf.Iteration(), "mults", mults, "elapsed", elapsed, "delta", delta)
	if err := s.emit(IterationDone{Iteration: s.buf.Iteration(), Multiplications: mults, Duration: elapsed}); err != nil {
		return nil, err
	}

	st.iterations++
	if s.opts.MaxIterations > 0 && st.iterations >= s.opts.MaxIterations {
		return nil, nil
	}
	st.converged = delta <= s.opts.ConvergenceEpsilon
	if st.converged && s.opts.MaxIterations > 0 {
		// a bounded run has nothing left to wait for
		return nil, nil
	}
	return st, nil
}
