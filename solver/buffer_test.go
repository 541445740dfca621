package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoubleBufferSwap(t *testing.T) {
	d := NewDoubleBuffer(3)
	assert.Equal(t, 3, d.Len())
	assert.Zero(t, d.Iteration())

	d.back.R[1], d.back.G[1], d.back.B[1] = 1, 2, 3
	d.Read(func(r, g, b []float32) {
		assert.Equal(t, []float32{0, 0, 0}, r)
	})

	d.swap()
	assert.Equal(t, uint64(1), d.Iteration())
	d.Read(func(r, g, b []float32) {
		require.Len(t, r, 3)
		assert.Equal(t, float32(1), r[1])
		assert.Equal(t, float32(2), g[1])
		assert.Equal(t, float32(3), b[1])
	})

	iter, snap := d.Snapshot()
	assert.Equal(t, uint64(1), iter)
	snap.R[1] = 42
	d.Read(func(r, g, b []float32) {
		assert.Equal(t, float32(1), r[1], "snapshot must not alias the front buffer")
	})
}

func TestMailboxKeepsOrder(t *testing.T) {
	m := newMailbox()
	r := &Receiver{box: m}
	for i := range 1000 {
		require.NoError(t, m.send(IterationDone{Iteration: uint64(i)}))
	}
	m.finish()

	var got []uint64
	for ev := range r.Events() {
		got = append(got, ev.(IterationDone).Iteration)
	}
	require.Len(t, got, 1000)
	for i, it := range got {
		assert.Equal(t, uint64(i), it)
	}
}

func TestMailboxDisconnect(t *testing.T) {
	m := newMailbox()
	r := &Receiver{box: m}
	require.NoError(t, m.send(Ready{}))

	r.Close()
	r.Close()
	assert.ErrorIs(t, m.send(Ready{}), ErrDisconnected)

	// the forwarder exits and closes the channel
	for range r.Events() {
	}
}
