package actionz

import (
	"context"
	"strconv"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
)

// Metric keys for Atomic.
const (
	AtomicAcceptedTotal = metricz.Key("atomic.accepted.total")
	AtomicQueuedTotal    = metricz.Key("atomic.queued.total")
	AtomicPausedTotal    = metricz.Key("atomic.paused.total")
	AtomicQueueDepth     = metricz.Key("atomic.queue.depth")
)

// atomicWaiter is one entry parked in an Atomic region's waiter queue.
type atomicWaiter[T any] struct {
	input T
	ok    Cont[T]
	fail  Cont[*IOError[T]]
}

// Atomic serializes every call into action: at most one invocation of
// action is ever in flight. While action is busy, further calls are
// buffered in a FIFO waiter queue; a call that would bring that queue to
// capacity entries (so at most capacity-1 calls wait) is not enqueued:
// Atomic delivers a fresh PauseCondition to that caller's failure
// continuation, so an upstream generator can trap it and pause production,
// and keeps the paused call aside, re-admitting it with its original input
// and continuations once buffer space reopens.
//
// This is the bounded-backpressure primitive the generator family (Gen's
// PauseCondition handling) and Pipeline (a Chain of per-stage Atomics) are
// built on.
type Atomic[T any] struct {
	name     Name
	action   Action[T]
	capacity int
	busy     bool
	waiters  []atomicWaiter[T]
	paused   []func()
	metrics  *metricz.Registry
}

// NewAtomic creates an Atomic region around action with the given waiter
// queue capacity.
func NewAtomic[T any](name Name, action Action[T], capacity int) *Atomic[T] {
	if capacity <= 0 {
		capacity = 1
	}
	metrics := metricz.New()
	metrics.Counter(AtomicAcceptedTotal)
	metrics.Counter(AtomicQueuedTotal)
	metrics.Counter(AtomicPausedTotal)
	metrics.Gauge(AtomicQueueDepth)
	return &Atomic[T]{name: name, action: action, capacity: capacity, metrics: metrics}
}

// Name implements Action.
func (a *Atomic[T]) Name() Name { return a.name }

// Call implements Action.
func (a *Atomic[T]) Call(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
	if !a.busy {
		a.busy = true
		a.metrics.Counter(AtomicAcceptedTotal).Inc()
		a.dispatch(o, input, ok, fail)
		return
	}

	if len(a.waiters)+1 >= a.capacity {
		a.metrics.Counter(AtomicPausedTotal).Inc()
		pc := &PauseCondition{Name: a.name, Capacity: a.capacity, Pending: len(a.waiters)}
		resumed := false
		a.paused = append(a.paused, func() {
			if resumed {
				return
			}
			resumed = true
			a.Call(o, input, ok, fail)
		})
		capitan.Warn(context.Background(), SignalAtomicPaused, FieldName.Field(a.name), FieldCapacity.Field(a.capacity), FieldPending.Field(len(a.waiters)))
		fail(o, newIOError(a.name, input, pc, o.getClock()))
		return
	}

	a.metrics.Counter(AtomicQueuedTotal).Inc()
	a.waiters = append(a.waiters, atomicWaiter[T]{input: input, ok: ok, fail: fail})
	a.metrics.Gauge(AtomicQueueDepth).Set(float64(len(a.waiters)))
}

func (a *Atomic[T]) dispatch(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
	Call(o, a.action, input,
		func(o *Orchestrator, out T) {
			a.done(o)
			ok(o, out)
		},
		func(o *Orchestrator, ioErr *IOError[T]) {
			a.done(o)
			fail(o, ioErr)
		},
	)
}

// done is invoked when the in-flight call to action settles. It advances the
// waiter queue, then resumes any outstanding PauseCondition once the queue
// has drained below capacity, exactly in that order per the "outgoing
// success is delivered after scheduling the next work item" rule.
func (a *Atomic[T]) done(o *Orchestrator) {
	if len(a.waiters) > 0 {
		next := a.waiters[0]
		a.waiters = a.waiters[1:]
		a.metrics.Gauge(AtomicQueueDepth).Set(float64(len(a.waiters)))
		a.dispatch(o, next.input, next.ok, next.fail)
	} else {
		a.busy = false
	}

	if len(a.waiters) < a.capacity && len(a.paused) > 0 {
		resume := a.paused[0]
		a.paused = a.paused[1:]
		capitan.Info(context.Background(), SignalAtomicResumed, FieldName.Field(a.name), FieldPending.Field(len(a.waiters)))
		resume()
	}

	if len(a.waiters) == 0 && len(a.paused) == 0 && !a.busy {
		capitan.Info(context.Background(), SignalAtomicDrained, FieldName.Field(a.name))
	}
}

// Metrics returns this Atomic region's metrics registry.
func (a *Atomic[T]) Metrics() *metricz.Registry {
	return a.metrics
}

// Pipeline composes actions into a Chain of independently buffered Atomic
// stages, each with the given per-stage capacity: Pipeline(actions, cap) is
// semantically Chain(actions.map(a => Atomic(a, cap))). Each stage
// serializes its own throughput independently, so multiple producers
// feeding the same Pipeline get per-input result routing while every stage
// still enforces its own backpressure bound.
func Pipeline[T any](name Name, capacity int, actions ...Action[T]) *Chain[T] {
	stages := make([]Action[T], len(actions))
	for i, action := range actions {
		stageName := name + ".stage" + strconv.Itoa(i)
		capitan.Info(context.Background(), SignalPipelineStage, FieldName.Field(name), FieldStage.Field(stageName), FieldCapacity.Field(capacity))
		stages[i] = NewAtomic(stageName, action, capacity)
	}
	return NewChain(name, stages...)
}
