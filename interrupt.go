package actionz

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
)

// Metric keys for interruption.
const (
	InterruptArmedTotal = metricz.Key("interrupt.armed.total")
	InterruptFiredTotal = metricz.Key("interrupt.fired.total")
)

// InterruptHandle pairs an interruptible action with a separate Action that,
// when called on any Orchestrator, runs every registered cleanup in
// installation order and then delivers an ErrInterrupted failure into the
// protected action's own continuation chain. Firing Interrupt more than once
// is a no-op after the first - guarded by a done flag so post-completion
// interrupts never double-fire cleanups or double-deliver the interruption.
type InterruptHandle[T any] struct {
	name     Name
	mu       sync.Mutex
	done     bool
	cleanups []func()
	fail     Cont[*IOError[T]]
	input    T
	metrics  *metricz.Registry
}

// Interruptible wraps builder - a function that receives an onInterrupt
// registration callback and returns the low-level action to run - producing
// both the runnable Action and the InterruptHandle that can cancel it.
// onInterrupt registers a zero-argument cleanup; cleanups run in
// installation order when Interrupt fires.
func Interruptible[T any](name Name, builder func(onInterrupt func(cleanup func())) Action[T]) (Action[T], *InterruptHandle[T]) {
	metrics := metricz.New()
	metrics.Counter(InterruptArmedTotal)
	metrics.Counter(InterruptFiredTotal)

	handle := &InterruptHandle[T]{name: name, metrics: metrics}
	metrics.Counter(InterruptArmedTotal).Inc()
	capitan.Info(context.Background(), SignalInterruptArmed, FieldName.Field(name))

	inner := builder(func(cleanup func()) {
		handle.mu.Lock()
		handle.cleanups = append(handle.cleanups, cleanup)
		handle.mu.Unlock()
	})

	action := NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		handle.mu.Lock()
		handle.fail = fail
		handle.input = input
		handle.mu.Unlock()

		Call(o, inner, input,
			func(o *Orchestrator, out T) {
				handle.mu.Lock()
				handle.done = true
				handle.mu.Unlock()
				ok(o, out)
			},
			func(o *Orchestrator, ioErr *IOError[T]) {
				handle.mu.Lock()
				handle.done = true
				handle.mu.Unlock()
				fail(o, ioErr)
			},
		)
	})

	return action, handle
}

// Interrupt returns an action that - when called on any Orchestrator - runs
// every cleanup registered via onInterrupt in installation order, then
// delivers ErrInterrupted to the protected action's failure continuation.
// Calling the returned action again after the first successful fire (or
// after the protected action already completed on its own) is a no-op.
func (h *InterruptHandle[T]) Interrupt() Action[T] {
	return NewActionFunc(h.name+".interrupt", func(o *Orchestrator, _ T, ok Cont[T], _ Cont[*IOError[T]]) {
		h.mu.Lock()
		if h.done {
			h.mu.Unlock()
			ok(o, h.input)
			return
		}
		h.done = true
		cleanups := make([]func(), len(h.cleanups))
		copy(cleanups, h.cleanups)
		fail := h.fail
		input := h.input
		h.mu.Unlock()

		h.metrics.Counter(InterruptFiredTotal).Inc()
		capitan.Warn(context.Background(), SignalInterruptFired, FieldName.Field(h.name), FieldReason.Field("interrupted"))

		for _, cleanup := range cleanups {
			cleanup()
		}

		o.Scheduler().NextTick(func() {
			if fail != nil {
				fail(o, newIOError(h.name, input, ErrInterrupted, o.getClock()))
			}
		})
		ok(o, input)
	})
}

// Interruption is a fan-out cancellation table: any number of independent
// sequences can Mark themselves in with a handler, and a single call to
// Fire runs every registered handler. Unlike InterruptHandle, which cancels
// one action, Interruption cancels an open-ended set of registrants keyed
// by an opaque id.
type Interruption struct {
	reason   string
	mu       sync.Mutex
	handlers map[int]func()
	nextID   int
}

// NewInterruption creates an empty fan-out cancellation table tagged with
// reason (surfaced on the capitan signal emitted when Fire runs).
func NewInterruption(reason string) *Interruption {
	return &Interruption{reason: reason, handlers: make(map[int]func())}
}

// Mark registers handler in the shared table under a fresh id at the moment
// Mark itself is called, and returns an action that forwards its own input
// unchanged to the success continuation; running that action registers
// nothing further. The returned unregister function removes the handler (e.g.
// once its owning sequence completes normally, to avoid calling a cleanup
// for work that already finished).
func (in *Interruption) Mark(name Name, handler func()) (Action[any], func()) {
	in.mu.Lock()
	id := in.nextID
	in.nextID++
	in.handlers[id] = handler
	in.mu.Unlock()

	unregister := func() {
		in.mu.Lock()
		delete(in.handlers, id)
		in.mu.Unlock()
	}

	action := NewActionFunc(name, func(o *Orchestrator, input any, ok Cont[any], _ Cont[*IOError[any]]) {
		ok(o, input)
	})
	return action, unregister
}

// Fire runs every currently registered handler, in registration order, and
// clears the table.
func (in *Interruption) Fire() {
	in.mu.Lock()
	handlers := make([]func(), 0, len(in.handlers))
	for id := 0; id < in.nextID; id++ {
		if h, ok := in.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	in.handlers = make(map[int]func())
	in.mu.Unlock()

	capitan.Warn(context.Background(), SignalInterruptFired, FieldReason.Field(in.reason))
	for _, h := range handlers {
		h()
	}
}
