package actionz

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for Alt.
const (
	AltAttemptsTotal  = metricz.Key("alt.attempts.total")
	AltExhaustedTotal = metricz.Key("alt.exhausted.total")
	AltProcessSpan    = tracez.Key("alt.process")

	AltEventActivated hookz.Key = "alt.activated"
	AltEventExhausted hookz.Key = "alt.exhausted"
)

// AltEvent is emitted via hookz when Alt falls through to a later candidate,
// or exhausts every candidate without success.
type AltEvent struct {
	Name      Name
	Attempt   int
	Total     int
	Error     error
	Timestamp time.Time
}

// Alt tries each action in turn against the same input, proceeding with the
// first success. Unlike Any/Fork, candidates are never dispatched
// concurrently: the second candidate is only invoked once the first has
// reported failure. If every candidate fails, Alt delivers a representative
// failure (the last candidate's error, path-prefixed with Alt's name) to the
// failure continuation.
func Alt[T any](name Name, actions ...Action[T]) Action[T] {
	metrics := metricz.New()
	metrics.Counter(AltAttemptsTotal)
	metrics.Counter(AltExhaustedTotal)
	tracer := tracez.New()
	hooks := hookz.New[AltEvent]()

	var tryFrom func(o *Orchestrator, i int, input T, ok Cont[T], fail Cont[*IOError[T]])
	tryFrom = func(o *Orchestrator, i int, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		if i >= len(actions) {
			metrics.Counter(AltExhaustedTotal).Inc()
			_ = hooks.Emit(context.Background(), AltEventExhausted, AltEvent{ //nolint:errcheck
				Name: name, Total: len(actions), Timestamp: o.getClock().Now(),
			})
			fail(o, newIOError(name, input, ErrNoProcessors, o.getClock()))
			return
		}

		metrics.Counter(AltAttemptsTotal).Inc()
		_, span := tracer.StartSpan(context.Background(), AltProcessSpan)
		span.SetTag(tracez.Tag("alt.attempt"), actions[i].Name())

		Call(o, actions[i], input,
			func(o *Orchestrator, out T) {
				span.SetTag(tracez.Tag("alt.success"), "true")
				span.Finish()
				ok(o, out)
			},
			func(o *Orchestrator, ioErr *IOError[T]) {
				span.SetTag(tracez.Tag("alt.success"), "false")
				span.Finish()

				if i+1 < len(actions) {
					capitan.Info(context.Background(), SignalAltAttempt,
						FieldName.Field(name), FieldAttempt.Field(i+2))
					_ = hooks.Emit(context.Background(), AltEventActivated, AltEvent{ //nolint:errcheck
						Name: name, Attempt: i + 1, Total: len(actions), Error: ioErr.Err, Timestamp: ioErr.Timestamp,
					})
					tryFrom(o, i+1, input, ok, fail)
					return
				}

				capitan.Warn(context.Background(), SignalAltExhausted, FieldName.Field(name))
				ioErr.Path = append([]Name{name}, ioErr.Path...)
				fail(o, ioErr)
			},
		)
	}

	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		if len(actions) == 0 {
			fail(o, newIOError(name, input, ErrNoProcessors, o.getClock()))
			return
		}
		tryFrom(o, 0, input, ok, fail)
	})
}
