package solver

import (
	"sync"
	"sync/atomic"
)

// Channels holds one float per plane for each color channel
type Channels struct {
	R, G, B []float32
}

func newChannels(n int) *Channels {
	return &Channels{R: make([]float32, n), G: make([]float32, n), B: make([]float32, n)}
}

// DoubleBuffer is the shared radiosity solution. The solver writes the back
// buffer without holding any lock and only takes the write lock to swap.
// Readers hold the read lock while they look at the front buffer.
type DoubleBuffer struct {
	mu        sync.RWMutex
	front     *Channels
	back      *Channels
	iteration atomic.Uint64
}

// NewDoubleBuffer allocates both buffers for n planes
func NewDoubleBuffer(n int) *DoubleBuffer {
	return &DoubleBuffer{front: newChannels(n), back: newChannels(n)}
}

// Len returns the plane count
func (d *DoubleBuffer) Len() int {
	return len(d.front.R)
}

// Iteration returns how many swaps have happened
func (d *DoubleBuffer) Iteration() uint64 {
	return d.iteration.Load()
}

// Read calls fn with the front buffer under the read lock. fn must not keep
// the slices after it returns.
func (d *DoubleBuffer) Read(fn func(r, g, b []float32)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.front.R, d.front.G, d.front.B)
}

// Snapshot copies the front buffer and returns it with its iteration number
func (d *DoubleBuffer) Snapshot() (uint64, Channels) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c := Channels{
		R: append([]float32(nil), d.front.R...),
		G: append([]float32(nil), d.front.G...),
		B: append([]float32(nil), d.front.B...),
	}
	return d.iteration.Load(), c
}

// swap publishes the back buffer. Only the solver goroutine calls it, and
// only that goroutine touches front and back outside the lock.
func (d *DoubleBuffer) swap() {
	d.mu.Lock()
	d.front, d.back = d.back, d.front
	d.iteration.Add(1)
	d.mu.Unlock()
}
