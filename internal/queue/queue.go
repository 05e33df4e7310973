// ABOUTME: Unbounded FIFO handoff queue with a soft monitoring threshold
// ABOUTME: Enqueue never blocks; Dequeue blocks until a value or Stop
package queue

import (
	"log/slog"
	"sync"
)

const (
	DefaultAlias     = "Input queue of media resampler filter"
	DefaultThreshold = 100
)

// Queue hands values from producers to a single consumer in FIFO order.
// Crossing the threshold never drops values; it is reported through the
// logger and the OnThreshold callback so producers can throttle.
type Queue[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []T

	stopped   bool
	alias     string
	threshold int
	above     bool
	exceeded  uint64

	onThreshold func(size int)
	logger      *slog.Logger
}

// New creates an empty queue. A nil logger uses slog.Default().
func New[T any](logger *slog.Logger) *Queue[T] {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue[T]{
		alias:     DefaultAlias,
		threshold: DefaultThreshold,
		logger:    logger,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// SetAlias sets the name used when reporting threshold crossings
func (q *Queue[T]) SetAlias(alias string) {
	q.mu.Lock()
	q.alias = alias
	q.mu.Unlock()
}

// SetThreshold sets the soft depth limit. Values <= 0 disable reporting.
func (q *Queue[T]) SetThreshold(n int) {
	q.mu.Lock()
	q.threshold = n
	q.above = n > 0 && len(q.items) > n
	q.mu.Unlock()
}

// OnThreshold registers fn to be called each time the depth rises above
// the threshold. fn runs on the producer's goroutine and must not call
// back into the queue.
func (q *Queue[T]) OnThreshold(fn func(size int)) {
	q.mu.Lock()
	q.onThreshold = fn
	q.mu.Unlock()
}

// Enqueue appends v. It returns false, leaving v with the caller, when the
// queue has been stopped.
func (q *Queue[T]) Enqueue(v T) bool {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return false
	}

	q.items = append(q.items, v)
	size := len(q.items)

	var notify func(int)
	if q.threshold > 0 && size > q.threshold && !q.above {
		q.above = true
		q.exceeded++
		notify = q.onThreshold
		q.logger.Warn("queue threshold exceeded",
			"queue", q.alias, "size", size, "threshold", q.threshold)
	}
	q.mu.Unlock()

	q.cond.Signal()

	if notify != nil {
		notify(size)
	}
	return true
}

// Dequeue blocks until a value is available. It returns false once the
// queue is stopped, even if values remain.
func (q *Queue[T]) Dequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.stopped {
		q.cond.Wait()
	}

	var zero T
	if q.stopped {
		return zero, false
	}

	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]

	if q.above && len(q.items) <= q.threshold {
		q.above = false
	}
	return v, true
}

// Stop wakes all blocked Dequeue calls and rejects further values
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Stopped reports whether Stop has been called
func (q *Queue[T]) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

// Size returns the current depth
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Exceeded returns how many times the depth has risen above the threshold
func (q *Queue[T]) Exceeded() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.exceeded
}

// Clear discards every queued value and returns how many were dropped
func (q *Queue[T]) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	q.items = nil
	q.above = false
	return n
}

// Drain removes and returns every queued value
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	q.above = false
	return items
}
