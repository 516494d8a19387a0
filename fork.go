package actionz

import (
	"context"
	"strconv"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for Fork, Tee, and Any.
const (
	ForkProcessedTotal = metricz.Key("fork.processed.total")
	ForkAllFailedTotal = metricz.Key("fork.all_failed.total")
	ForkProcessSpan    = tracez.Key("fork.process")

	TeeDispatchedTotal = metricz.Key("tee.dispatched.total")
	TeeFailuresTotal   = metricz.Key("tee.failures.total")
	TeeEventFailed     hookz.Key = "tee.failed"

	AnyProcessedTotal = metricz.Key("any.processed.total")
	AnyAllFailedTotal = metricz.Key("any.all_failed.total")
	AnyProcessSpan    = tracez.Key("any.process")
)

// TeeEvent is emitted via hookz whenever a Tee'd branch fails. Because Tee's
// dispatched work is isolated from the main sequence, this hook is the only
// way to observe those failures.
type TeeEvent struct {
	Name      Name
	Error     error
	Timestamp time.Time
}

// Fork launches every action simultaneously - each on its own scheduler
// tick, so they interleave rather than run on separate OS threads - against
// an isolated Clone of input. Once every branch has reported, reducer is
// called with the original input, the index-ordered results, and the
// index-ordered errors (a nil entry in errs marks a branch that succeeded; a
// failed branch leaves its results entry at the zero value);
// its return value is delivered to the success continuation. If reducer is
// nil, Fork simply forwards the original input on success, matching a
// fire-and-forget join over side-effecting branches. If every branch failed,
// Fork instead delivers a representative failure (the first branch's error,
// path-prefixed with Fork's name) to the failure continuation.
func Fork[T Cloner[T]](name Name, reducer func(original T, results []T, errs []*IOError[T]) T, actions ...Action[T]) Action[T] {
	metrics := metricz.New()
	metrics.Counter(ForkProcessedTotal)
	metrics.Counter(ForkAllFailedTotal)
	tracer := tracez.New()

	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		metrics.Counter(ForkProcessedTotal).Inc()
		start := o.getClock().Now()
		_, span := tracer.StartSpan(context.Background(), ForkProcessSpan)

		n := len(actions)
		if n == 0 {
			span.Finish()
			ok(o, input)
			return
		}

		results := make([]T, n)
		errs := make([]*IOError[T], n)
		remaining := n

		finalize := func(o *Orchestrator) {
			span.SetTag(tracez.Tag("fork.branch_count"), strconv.Itoa(n))
			span.Finish()

			failedCount := 0
			for _, e := range errs {
				if e != nil {
					failedCount++
				}
			}
			capitan.Info(context.Background(), SignalForkCompleted,
				FieldName.Field(name),
				FieldProcessorCount.Field(n),
				FieldErrorCount.Field(failedCount),
				FieldDuration.Field(o.getClock().Since(start).Seconds()),
			)

			if failedCount == n {
				metrics.Counter(ForkAllFailedTotal).Inc()
				var rep *IOError[T]
				for _, e := range errs {
					if e != nil {
						rep = e
						break
					}
				}
				rep.Path = append([]Name{name}, rep.Path...)
				fail(o, rep)
				return
			}

			if reducer != nil {
				ok(o, reducer(input, results, errs))
				return
			}
			ok(o, input)
		}

		for i, action := range actions {
			i, action := i, action
			clone := input.Clone()
			o.Scheduler().NextTick(func() {
				Call(o, action, clone,
					func(o *Orchestrator, out T) {
						results[i] = out
						remaining--
						if remaining == 0 {
							finalize(o)
						}
					},
					func(o *Orchestrator, ioErr *IOError[T]) {
						errs[i] = ioErr
						remaining--
						if remaining == 0 {
							finalize(o)
						}
					},
				)
			})
		}
	})
}

// Tee dispatches action on the next scheduler tick with drained
// continuations (its result is observed only via hooks, never joined back
// into the caller's flow) and synchronously forwards input unchanged to the
// success continuation. A failure inside the tee'd action is isolated: it
// never reaches the caller's failure continuation, only TeeEvent observers.
func Tee[T any](name Name, action Action[T]) Action[T] {
	metrics := metricz.New()
	metrics.Counter(TeeDispatchedTotal)
	metrics.Counter(TeeFailuresTotal)
	hooks := hookz.New[TeeEvent]()

	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
		metrics.Counter(TeeDispatchedTotal).Inc()
		capitan.Info(context.Background(), SignalTeeDispatched, FieldName.Field(name))

		o.Scheduler().NextTick(func() {
			Call(o, action, input,
				func(o *Orchestrator, _ T) {},
				func(o *Orchestrator, ioErr *IOError[T]) {
					metrics.Counter(TeeFailuresTotal).Inc()
					_ = hooks.Emit(context.Background(), TeeEventFailed, TeeEvent{ //nolint:errcheck
						Name: name, Error: ioErr.Err, Timestamp: ioErr.Timestamp,
					})
				},
			)
		})
		ok(o, input)
	})
}

// Any launches every action simultaneously, as Fork does, but delivers the
// output of whichever branch succeeds first; the remaining branches'
// eventual results are discarded. Ties (multiple branches completing on the
// same scheduler turn) are broken by submission order. If every branch
// fails, Any delivers a representative failure to the failure continuation.
func Any[T Cloner[T]](name Name, actions ...Action[T]) Action[T] {
	metrics := metricz.New()
	metrics.Counter(AnyProcessedTotal)
	metrics.Counter(AnyAllFailedTotal)
	tracer := tracez.New()

	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		metrics.Counter(AnyProcessedTotal).Inc()
		_, span := tracer.StartSpan(context.Background(), AnyProcessSpan)

		n := len(actions)
		if n == 0 {
			span.Finish()
			fail(o, newIOError(name, input, ErrNoProcessors, o.getClock()))
			return
		}

		errs := make([]*IOError[T], n)
		remaining := n
		done := false

		for i, action := range actions {
			i, action := i, action
			clone := input.Clone()
			o.Scheduler().NextTick(func() {
				if done {
					return
				}
				Call(o, action, clone,
					func(o *Orchestrator, out T) {
						if done {
							return
						}
						done = true
						span.SetTag(tracez.Tag("any.winner"), action.Name())
						span.Finish()
						capitan.Info(context.Background(), SignalAnyWinner, FieldName.Field(name), FieldWinnerName.Field(action.Name()))
						ok(o, out)
					},
					func(o *Orchestrator, ioErr *IOError[T]) {
						if done {
							return
						}
						errs[i] = ioErr
						remaining--
						if remaining == 0 {
							metrics.Counter(AnyAllFailedTotal).Inc()
							span.Finish()
							done = true
							rep := errs[0]
							rep.Path = append([]Name{name}, rep.Path...)
							fail(o, rep)
						}
					},
				)
			})
		}
	})
}

