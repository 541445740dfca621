package solver

import (
	"errors"
	"sync"

	"github.com/gammazero/deque"
)

// ErrDisconnected means the consumer closed its Receiver
var ErrDisconnected = errors.New("solver: receiver closed")

// mailbox is an unbounded ordered queue between the solver and its consumer.
// send never blocks; a forwarding goroutine feeds the consumer's channel.
type mailbox struct {
	mu     sync.Mutex
	queue  deque.Deque[Event]
	notify chan struct{}
	out    chan Event

	done      chan struct{} // closed by the consumer
	closeOnce sync.Once
	finished  chan struct{} // closed by the solver after its last send
}

func newMailbox() *mailbox {
	m := &mailbox{
		notify:   make(chan struct{}, 1),
		out:      make(chan Event),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go m.forward()
	return m
}

func (m *mailbox) send(ev Event) error {
	select {
	case <-m.done:
		return ErrDisconnected
	default:
	}
	m.mu.Lock()
	m.queue.PushBack(ev)
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

func (m *mailbox) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

// forward delivers queued events in order until the consumer disconnects,
// or the solver has finished and the queue is empty
func (m *mailbox) forward() {
	defer close(m.out)
	for {
		m.mu.Lock()
		if m.queue.Len() == 0 {
			m.mu.Unlock()
			select {
			case <-m.notify:
			case <-m.done:
				return
			case <-m.finished:
				if m.pending() == 0 {
					return
				}
			}
			continue
		}
		ev := m.queue.PopFront()
		m.mu.Unlock()

		select {
		case m.out <- ev:
		case <-m.done:
			return
		}
	}
}

func (m *mailbox) finish() {
	close(m.finished)
}

func (m *mailbox) disconnect() {
	m.closeOnce.Do(func() { close(m.done) })
}

// Receiver is the consumer's end of the solver's event stream
type Receiver struct {
	box *mailbox
}

// Events returns the event channel. It is closed once the solver has stopped
// and every queued event was delivered, or after Close.
func (r *Receiver) Events() <-chan Event {
	return r.box.out
}

// Close disconnects the consumer. The solver notices on its next send and
// stops.
func (r *Receiver) Close() {
	r.box.disconnect()
}
