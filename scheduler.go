package actionz

import (
	"container/heap"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
)

// Metric keys for the Scheduler.
const (
	SchedulerTicksTotal   = metricz.Key("scheduler.ticks.total")
	SchedulerTimersActive = metricz.Key("scheduler.timers.active")
	SchedulerQueueDepth   = metricz.Key("scheduler.queue.depth")
)

// timerEntry is one pending Delay callback, ordered by fireAt and then by a
// monotonic sequence number so timers scheduled for the same instant run in
// registration order.
type timerEntry struct {
	fireAt   time.Time
	seq      uint64
	fn       func()
	canceled bool
	index    int
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].fireAt.Equal(h[j].fireAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].fireAt.Before(h[j].fireAt)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *timerHeap) Push(x interface{}) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Timer is a handle to a scheduled Delay callback. Cancel prevents the
// callback from running if it hasn't fired yet; it is a no-op otherwise.
type Timer struct {
	entry *timerEntry
	sched *Scheduler
}

// Cancel prevents this timer's callback from firing.
func (t *Timer) Cancel() {
	if t == nil || t.entry == nil {
		return
	}
	t.sched.mu.Lock()
	t.entry.canceled = true
	t.sched.mu.Unlock()
}

// Scheduler is a single-threaded cooperative run loop: a FIFO microtask
// queue plus a timer heap. Actions never block a goroutine waiting on
// external events - instead they register a callback with NextTick or
// Delay and return, and the Scheduler invokes that callback when its turn
// comes. Run drains the queue and fires due timers until both are empty.
//
// This is the mechanism behind every combinator in this package that looks
// concurrent (Fork, Any, Tee, Timeout, Gen): their branches are ordinary
// callbacks interleaved on this one loop, never goroutines racing on
// separate stacks.
type Scheduler struct {
	mu      sync.Mutex
	queue   []func()
	timers  timerHeap
	clock   clockz.Clock
	seq     uint64
	metrics *metricz.Registry
}

// NewScheduler creates a Scheduler driven by clock. Pass clockz.RealClock
// for production use and a clockz fake clock in tests to advance virtual
// time deterministically.
func NewScheduler(clock clockz.Clock) *Scheduler {
	if clock == nil {
		clock = clockz.RealClock
	}
	metrics := metricz.New()
	metrics.Counter(SchedulerTicksTotal)
	metrics.Gauge(SchedulerTimersActive)
	metrics.Gauge(SchedulerQueueDepth)
	return &Scheduler{
		clock:   clock,
		metrics: metrics,
	}
}

// NextTick enqueues fn to run on a future turn of Run, after every task
// currently queued ahead of it. This breaks a continuation chain across a
// scheduler turn, which the Orchestrator uses to bound trampoline depth.
func (s *Scheduler) NextTick(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	s.metrics.Gauge(SchedulerQueueDepth).Set(float64(len(s.queue)))
	s.mu.Unlock()
}

// Delay schedules fn to run after d has elapsed on the scheduler's clock.
// The returned Timer can cancel the callback before it fires.
func (s *Scheduler) Delay(d time.Duration, fn func()) *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	entry := &timerEntry{
		fireAt: s.clock.Now().Add(d),
		seq:    s.seq,
		fn:     fn,
	}
	heap.Push(&s.timers, entry)
	s.metrics.Gauge(SchedulerTimersActive).Set(float64(len(s.timers)))
	return &Timer{entry: entry, sched: s}
}

// Run drains the microtask queue and fires due timers until neither has any
// pending work, blocking on the clock between timers as needed. It returns
// once the scheduler is quiescent: no queued microtasks and no pending
// timers. Actions scheduled by a running task are picked up in the same
// call if they arrive before quiescence.
func (s *Scheduler) Run() {
	for {
		s.drainQueue()

		s.mu.Lock()
		if len(s.timers) == 0 {
			s.mu.Unlock()
			return
		}
		next := s.timers[0]
		wait := next.fireAt.Sub(s.clock.Now())
		s.mu.Unlock()

		if wait > 0 {
			<-s.clock.After(wait)
		}

		s.fireDueTimers()
	}
}

// drainQueue runs every microtask currently queued, including ones enqueued
// by tasks that ran earlier in the same drain.
func (s *Scheduler) drainQueue() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.metrics.Gauge(SchedulerQueueDepth).Set(float64(len(s.queue)))
		s.mu.Unlock()

		s.metrics.Counter(SchedulerTicksTotal).Inc()
		fn()
	}
}

// fireDueTimers pops and runs every timer whose fireAt is not after now.
func (s *Scheduler) fireDueTimers() {
	now := s.clock.Now()
	for {
		s.mu.Lock()
		if len(s.timers) == 0 || s.timers[0].fireAt.After(now) {
			s.mu.Unlock()
			return
		}
		entry := heap.Pop(&s.timers).(*timerEntry)
		s.metrics.Gauge(SchedulerTimersActive).Set(float64(len(s.timers)))
		s.mu.Unlock()

		if entry.canceled {
			continue
		}
		s.metrics.Counter(SchedulerTicksTotal).Inc()
		entry.fn()
	}
}

// Metrics returns the scheduler's metrics registry.
func (s *Scheduler) Metrics() *metricz.Registry {
	return s.metrics
}
