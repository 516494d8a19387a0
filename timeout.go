package actionz

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for Timeout.
const (
	TimeoutTriggeredTotal = metricz.Key("timeout.triggered.total")
	TimeoutCompletedTotal = metricz.Key("timeout.completed.total")
	TimeoutProcessSpan    = tracez.Key("timeout.process")

	TimeoutEventTriggered hookz.Key = "timeout.triggered"
)

// TimeoutEvent is emitted via hookz whenever the watchdog fires before the
// guarded action completes.
type TimeoutEvent struct {
	Name      Name
	Duration  time.Duration
	Timestamp time.Time
}

// TimeoutHandler runs when a Timeout's watchdog fires before the guarded
// action completes. It receives restart, a closure that re-invokes the
// entire Timeout action from the original input with the same outer
// continuations - the mechanism by which an ontimeout handler can
// "synthesize a restart" per the timeout semantics this combinator
// implements. A handler that does not call restart and instead calls ok or
// fail directly settles the Timeout action with that outcome.
type TimeoutHandler[T any] func(o *Orchestrator, restart func(), ok Cont[T], fail Cont[*IOError[T]])

// Timeout starts a watchdog concurrently with action: if the watchdog fires
// first (after duration, measured on the orchestrator's clock), ontimeout
// runs and decides the outcome - including, via restart, re-running the
// whole guarded operation from scratch. If action completes first (success
// or failure), the watchdog is suppressed and action's outcome is delivered
// to the outer continuations directly.
//
// Cancellation here is continuation-level only: action itself is never
// preempted. A slow action that ignores its suspension points keeps running
// in the background even after the watchdog has already delivered to
// ontimeout.
func Timeout[T any](name Name, action Action[T], duration time.Duration, ontimeout TimeoutHandler[T]) Action[T] {
	metrics := metricz.New()
	metrics.Counter(TimeoutTriggeredTotal)
	metrics.Counter(TimeoutCompletedTotal)
	tracer := tracez.New()
	hooks := hookz.New[TimeoutEvent]()

	var self Action[T]
	self = NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		_, span := tracer.StartSpan(context.Background(), TimeoutProcessSpan)
		settled := false

		timer := o.Scheduler().Delay(duration, func() {
			if settled {
				return
			}
			settled = true
			metrics.Counter(TimeoutTriggeredTotal).Inc()
			span.SetTag(tracez.Tag("timeout.fired"), "true")
			span.Finish()

			capitan.Warn(context.Background(), SignalTimeoutTriggered, FieldName.Field(name), FieldDuration.Field(duration.Seconds()))
			_ = hooks.Emit(context.Background(), TimeoutEventTriggered, TimeoutEvent{ //nolint:errcheck
				Name: name, Duration: duration, Timestamp: o.getClock().Now(),
			})

			ontimeout(o, func() {
				Call(o, self, input, ok, fail)
			}, ok, fail)
		})

		Call(o, action, input,
			func(o *Orchestrator, out T) {
				if settled {
					return
				}
				settled = true
				timer.Cancel()
				metrics.Counter(TimeoutCompletedTotal).Inc()
				span.SetTag(tracez.Tag("timeout.fired"), "false")
				span.Finish()
				ok(o, out)
			},
			func(o *Orchestrator, ioErr *IOError[T]) {
				if settled {
					return
				}
				settled = true
				timer.Cancel()
				metrics.Counter(TimeoutCompletedTotal).Inc()
				span.SetTag(tracez.Tag("timeout.fired"), "false")
				span.Finish()
				fail(o, ioErr)
			},
		)
	})
	return self
}
