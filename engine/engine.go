// Package engine implements the discrete-event core described in the
// simulator's Event Engine component: a simulated clock plus a min-heap of
// scheduled callbacks, with lazy cancellation and FIFO tie-break at equal
// timestamps.
package engine

import (
	"container/heap"

	"github.com/arqlab/srarq/simtime"
)

// Handle lets a caller cancel a previously scheduled event. Canceling twice
// is a no-op; canceling an event that has already fired is also a no-op.
type Handle struct {
	timer *timer
}

// Cancel marks the event as canceled. A canceled event is still popped off
// the heap in its turn, but its handler is skipped — there is no guarantee
// of prompt removal from the underlying heap.
func (h Handle) Cancel() {
	if h.timer != nil {
		h.timer.canceled = true
	}
}

type timer struct {
	expireAt simtime.VirtualTime
	seq      uint64 // insertion sequence, breaks ties at equal timestamps (FIFO)
	handler  func()
	canceled bool
	index    int
}

type timerQueue []*timer

func (tq timerQueue) Len() int { return len(tq) }

func (tq timerQueue) Less(i, j int) bool {
	if tq[i].expireAt != tq[j].expireAt {
		return tq[i].expireAt.Before(tq[j].expireAt)
	}
	return tq[i].seq < tq[j].seq
}

func (tq timerQueue) Swap(i, j int) {
	tq[i], tq[j] = tq[j], tq[i]
	tq[i].index = i
	tq[j].index = j
}

func (tq *timerQueue) Push(x interface{}) {
	t := x.(*timer)
	t.index = len(*tq)
	*tq = append(*tq, t)
}

func (tq *timerQueue) Pop() interface{} {
	old := *tq
	n := len(old)
	t := old[n-1]
	t.index = -1
	*tq = old[:n-1]
	return t
}

// Engine owns the simulated clock and the pending-event heap. An Engine must
// not be shared across goroutines; each simulation run constructs its own,
// which is what makes simulation.Run safe to call in parallel across cores.
type Engine struct {
	now     simtime.VirtualTime
	queue   timerQueue
	nextSeq uint64
}

// New returns an Engine with the clock at simtime.Zero.
func New() *Engine {
	return &Engine{now: simtime.Zero}
}

// Now returns the engine's current simulated time.
func (e *Engine) Now() simtime.VirtualTime {
	return e.now
}

// Schedule enqueues handler to run at Now()+delay. delay must be
// nonnegative. The returned Handle may be used to cancel the event before it
// fires.
func (e *Engine) Schedule(delay simtime.VirtualTime, handler func()) Handle {
	if delay < 0 {
		panic("engine: negative delay")
	}
	t := &timer{
		expireAt: e.now + delay,
		seq:      e.nextSeq,
		handler:  handler,
	}
	e.nextSeq++
	heap.Push(&e.queue, t)
	return Handle{timer: t}
}

// RunStep pops the earliest pending event. If it was canceled, it is
// discarded and RunStep returns true without advancing any externally
// observable state beyond the heap itself. Otherwise the clock advances to
// the event's timestamp and its handler runs to completion before RunStep
// returns. RunStep returns false when the queue is empty.
func (e *Engine) RunStep() bool {
	if len(e.queue) == 0 {
		return false
	}
	t := heap.Pop(&e.queue).(*timer)
	if t.canceled {
		return true
	}
	if t.expireAt.Before(e.now) {
		panic("engine: time moved backwards")
	}
	e.now = t.expireAt
	t.handler()
	return true
}

// Pending reports whether any event remains in the queue, canceled or not.
func (e *Engine) Pending() bool {
	return len(e.queue) > 0
}
