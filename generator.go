package actionz

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
)

// Metric keys for the generator family.
const (
	GenEmittedTotal   = metricz.Key("gen.emitted.total")
	GenPausedTotal    = metricz.Key("gen.paused.total")
	GenExhaustedTotal = metricz.Key("gen.exhausted.total")
)

// Producer yields the next value of a generator's stream. A false second
// return marks end-of-stream: Gen stops without delivering a final value.
type Producer[T any] func() (T, bool)

// Gen repeatedly calls producer and feeds each value into downstream,
// continuing the loop once downstream's own success continuation fires.
// End-of-stream (producer's second return false) stops the generator
// without another delivery; Gen's own success continuation is never called
// in that case, since a generator is a source with no single final value.
//
// Gen owns the dispatch to downstream directly (rather than relying on
// Chain/Seq to thread continuations through it) specifically so it can
// install its own failure handler in front of downstream: when that handler
// recognizes a PauseCondition (via IsPause), Gen transitions to paused and
// simply stops emitting, instead of forwarding the pause to its own outer
// failure continuation. Any other failure from downstream is forwarded to
// Gen's own failure continuation unchanged.
//
// Gen does not itself call ioErr.Resume, and Atomic does not either: once
// capacity reopens, Atomic's done() re-dispatches the paused call's original
// (input, ok, fail) triple directly. Because that ok is Gen's own success
// continuation for the paused value, the generation loop advances again
// from there. If downstream never completes the paused value, Gen stays
// stopped.
//
// Gen also enforces a burst budget: after budget consecutive synchronous
// emissions it yields by rescheduling the next emission via
// Scheduler.Delay(delayBetween, ...) instead of calling straight through,
// so a fast producer can't starve the scheduler's timer queue forever.
func Gen[T any](name Name, producer Producer[T], downstream Action[T], budget int, delayBetween time.Duration) Action[T] {
	metrics := metricz.New()
	metrics.Counter(GenEmittedTotal)
	metrics.Counter(GenPausedTotal)
	metrics.Counter(GenExhaustedTotal)
	if budget <= 0 {
		budget = 50
	}

	return NewActionFunc(name, func(o *Orchestrator, _ T, ok Cont[T], fail Cont[*IOError[T]]) {
		var loop func(burst int)
		loop = func(burst int) {
			value, more := producer()
			if !more {
				metrics.Counter(GenExhaustedTotal).Inc()
				capitan.Info(context.Background(), SignalGenExhausted, FieldName.Field(name))
				return
			}
			metrics.Counter(GenEmittedTotal).Inc()

			Call(o, downstream, value, func(o *Orchestrator, out T) {
				ok(o, out)
				if burst+1 >= budget {
					o.Scheduler().Delay(delayBetween, func() { loop(0) })
					return
				}
				loop(burst + 1)
			}, func(o *Orchestrator, ioErr *IOError[T]) {
				if IsPause(ioErr.Err) {
					metrics.Counter(GenPausedTotal).Inc()
					capitan.Warn(context.Background(), SignalGenPaused, FieldName.Field(name), FieldBudget.Field(budget))
					return
				}
				fail(o, ioErr)
			})
		}
		loop(0)
	})
}

// Pause returns an action that immediately delivers a fresh PauseCondition
// to the failure continuation - used to signal backpressure explicitly from
// inside a hand-written action.
func Pause[T any](name Name) Action[T] {
	return NewActionFunc(name, func(o *Orchestrator, input T, _ Cont[T], fail Cont[*IOError[T]]) {
		pc := &PauseCondition{Name: name}
		fail(o, newIOError(name, input, pc, o.getClock()))
	})
}

// Spray returns a Gen action that emits each element of items once, in
// order, then stops.
func Spray[T any](name Name, items []T, downstream Action[T], budget int, delayBetween time.Duration) Action[T] {
	i := 0
	producer := func() (T, bool) {
		if i >= len(items) {
			var zero T
			return zero, false
		}
		v := items[i]
		i++
		return v, true
	}
	return Gen(name, producer, downstream, budget, delayBetween)
}

// Cycle returns a Gen action that emits the elements of items repeatedly,
// forever, wrapping back to the start after the last element.
func Cycle[T any](name Name, items []T, downstream Action[T], budget int, delayBetween time.Duration) Action[T] {
	i := 0
	producer := func() (T, bool) {
		if len(items) == 0 {
			var zero T
			return zero, false
		}
		v := items[i%len(items)]
		i++
		return v, true
	}
	return Gen(name, producer, downstream, budget, delayBetween)
}

// EnumFrom returns a Gen action over the numeric sequence from, from+step,
// from+2*step, .... If to is nil the sequence is infinite; otherwise it
// stops once a value would pass to (inclusive, in the direction of step).
func EnumFrom(name Name, from, step int, to *int, downstream Action[int], budget int, delayBetween time.Duration) Action[int] {
	current := from
	started := false
	producer := func() (int, bool) {
		if started {
			current += step
		}
		started = true
		if to != nil {
			if step >= 0 && current > *to {
				return 0, false
			}
			if step < 0 && current < *to {
				return 0, false
			}
		}
		return current, true
	}
	return Gen(name, producer, downstream, budget, delayBetween)
}

// CollectUntil accumulates successive inputs into an internal list. On each
// activation: if test(input) holds, the accumulated list (not including the
// triggering input) is delivered to sink and the combinator stops accepting
// further input; otherwise input is appended and forwarded unchanged to the
// success continuation. The running list is not exposed to callers; only
// sink receives it.
//
// sink's signature (Cont[[]T], not Cont[T]) reflects that CollectUntil's
// terminal output is genuinely a different type than its input - an
// adaptation forced by Action[T] being deliberately single-typed, mirroring
// the teacher connectors it is grounded on.
func CollectUntil[T any](name Name, test func(T) bool, sink Cont[[]T]) Action[T] {
	c := &collector[T]{test: test, sink: sink}
	return NewActionFunc(name, c.call)
}

type collector[T any] struct {
	acc  []T
	test func(T) bool
	sink Cont[[]T]
	done bool
}

func (c *collector[T]) call(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
	if c.done {
		return
	}
	if c.test(input) {
		c.done = true
		result := make([]T, len(c.acc))
		copy(result, c.acc)
		c.sink(o, result)
		return
	}
	c.acc = append(c.acc, input)
	ok(o, input)
}

// Snapshot returns a defensive copy of the items accumulated so far.
func (c *collector[T]) Snapshot() []T {
	out := make([]T, len(c.acc))
	copy(out, c.acc)
	return out
}
