// Package governor bounds how many rendering engines run at once.
//
// Admission is strictly first-come-first-served: a newcomer never overtakes a
// queued waiter, even when a slot happens to be free at the moment it
// arrives. One mutex guards both the slot counter and the wait queue, and
// every engine run must hold a Ticket, so Stats().InFlight is the single
// source of truth for how many engine processes may exist.
package governor

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Sentinel errors for admission.
var (
	ErrQueueTimeout = errors.New("timed out waiting for an engine slot")
	ErrClosed       = errors.New("governor closed")
)

// Ticket is the permission to run one engine subprocess.
type Ticket struct {
	id         uint64
	enqueuedAt time.Time
	admittedAt time.Time

	mu       sync.Mutex
	released bool
}

// ID returns the admission sequence number (1-based, in admission order).
func (t *Ticket) ID() uint64 { return t.id }

// Waited returns how long the ticket holder queued before admission.
func (t *Ticket) Waited() time.Duration { return t.admittedAt.Sub(t.enqueuedAt) }

// Stats is a point-in-time snapshot of the governor.
type Stats struct {
	Capacity int
	InFlight int
	Waiting  int
	Admitted uint64
	Rejected uint64
}

type waiter struct {
	ready      chan struct{}
	enqueuedAt time.Time
	ticket     *Ticket
	err        error
}

// Governor hands out a bounded number of Tickets in FIFO order.
type Governor struct {
	capacity int
	now      func() time.Time

	mu       sync.Mutex
	inFlight int
	waiters  list.List // of *waiter
	seq      uint64
	admitted uint64
	rejected uint64
	closed   bool
}

// New creates a governor with capacity slots. Values below 1 become 1.
func New(capacity int) *Governor {
	if capacity < 1 {
		capacity = 1
	}
	return &Governor{capacity: capacity, now: time.Now}
}

// Admit blocks until a slot is free or ctx ends.
// A context that is already done is rejected without taking a slot.
func (g *Governor) Admit(ctx context.Context) (*Ticket, error) {
	if err := ctx.Err(); err != nil {
		g.mu.Lock()
		g.rejected++
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrQueueTimeout, err)
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}

	now := g.now()
	if g.inFlight < g.capacity && g.waiters.Len() == 0 {
		t := g.grantLocked(now, now)
		g.mu.Unlock()
		return t, nil
	}

	w := &waiter{ready: make(chan struct{}), enqueuedAt: now}
	elem := g.waiters.PushBack(w)
	g.mu.Unlock()

	select {
	case <-w.ready:
		return w.ticket, w.err
	case <-ctx.Done():
	}

	g.mu.Lock()
	select {
	case <-w.ready:
		if w.err != nil {
			g.mu.Unlock()
			return nil, w.err
		}
		// Granted while we were giving up: hand the slot to the next waiter.
		w.ticket.mu.Lock()
		w.ticket.released = true
		w.ticket.mu.Unlock()
		g.inFlight--
		g.admitted--
		g.dispatchLocked()
	default:
		g.waiters.Remove(elem)
	}
	g.rejected++
	g.mu.Unlock()

	return nil, fmt.Errorf("%w: %v", ErrQueueTimeout, ctx.Err())
}

// Release frees the ticket's slot and admits the next waiter.
// Releasing the same ticket twice is a no-op.
func (g *Governor) Release(t *Ticket) {
	if t == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		return
	}
	t.released = true
	t.mu.Unlock()

	g.inFlight--
	g.dispatchLocked()
}

// Close rejects queued and future admissions with ErrClosed.
// Tickets already handed out stay valid until released.
func (g *Governor) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.closed = true
	for e := g.waiters.Front(); e != nil; e = g.waiters.Front() {
		w := g.waiters.Remove(e).(*waiter)
		w.err = ErrClosed
		close(w.ready)
	}
}

// Capacity returns the maximum number of concurrent tickets.
func (g *Governor) Capacity() int {
	return g.capacity
}

// Stats returns a snapshot of the counters.
func (g *Governor) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Stats{
		Capacity: g.capacity,
		InFlight: g.inFlight,
		Waiting:  g.waiters.Len(),
		Admitted: g.admitted,
		Rejected: g.rejected,
	}
}

// dispatchLocked grants free slots to waiters in arrival order.
func (g *Governor) dispatchLocked() {
	if g.closed {
		return
	}
	now := g.now()
	for g.inFlight < g.capacity && g.waiters.Len() > 0 {
		w := g.waiters.Remove(g.waiters.Front()).(*waiter)
		w.ticket = g.grantLocked(w.enqueuedAt, now)
		close(w.ready)
	}
}

func (g *Governor) grantLocked(enqueuedAt, now time.Time) *Ticket {
	g.inFlight++
	g.admitted++
	g.seq++
	return &Ticket{id: g.seq, enqueuedAt: enqueuedAt, admittedAt: now}
}
