package actionz

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
)

// Metric keys for the resilience family.
const (
	ApplyFailuresTotal   = metricz.Key("apply.failures.total")
	EffectFailuresTotal  = metricz.Key("effect.failures.total")
	EnrichAttemptsTotal  = metricz.Key("enrich.attempts.total")
	EnrichSwallowedTotal = metricz.Key("enrich.swallowed.total")
	MutateAppliedTotal   = metricz.Key("mutate.applied.total")
	RetryAttemptsTotal   = metricz.Key("retry.attempts.total")
	RetryExhaustedTotal  = metricz.Key("retry.exhausted.total")
)

// Apply bridges an ordinary fallible Go function - one that returns (T,
// error) rather than threading continuations itself - into the Action
// interface. It is the adapter of first resort for wrapping existing
// business logic (validation, parsing, a database call) without rewriting
// it in continuation-passing style.
func Apply[T any](name Name, fn func(T) (T, error)) Action[T] {
	metrics := metricz.New()
	metrics.Counter(ApplyFailuresTotal)
	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		result, err := fn(input)
		if err != nil {
			metrics.Counter(ApplyFailuresTotal).Inc()
			ioErr := newIOError(name, input, err, o.getClock())
			ioErr.Resume = func(substitute T) { ok(o, substitute) }
			fail(o, ioErr)
			return
		}
		ok(o, result)
	})
}

// Effect bridges a fallible side-effecting function - one that inspects
// input without transforming it - into the Action interface. On success
// the original input passes through unchanged; on failure the input is
// still available on the IOError for a Catch handler to inspect or resume.
func Effect[T any](name Name, fn func(T) error) Action[T] {
	metrics := metricz.New()
	metrics.Counter(EffectFailuresTotal)
	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		if err := fn(input); err != nil {
			metrics.Counter(EffectFailuresTotal).Inc()
			ioErr := newIOError(name, input, err, o.getClock())
			ioErr.Resume = func(T) { ok(o, input) }
			fail(o, ioErr)
			return
		}
		ok(o, input)
	})
}

// Enrich attempts a best-effort transformation: if fn fails, the original
// input passes through unchanged rather than failing the sequence. Use
// Enrich for optional enhancements (geocoding, metadata lookups) where
// failure to enrich should never block processing.
func Enrich[T any](name Name, fn func(T) (T, error)) Action[T] {
	metrics := metricz.New()
	metrics.Counter(EnrichAttemptsTotal)
	metrics.Counter(EnrichSwallowedTotal)
	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
		metrics.Counter(EnrichAttemptsTotal).Inc()
		enriched, err := fn(input)
		if err != nil {
			metrics.Counter(EnrichSwallowedTotal).Inc()
			capitan.Info(context.Background(), SignalEnrichSwallowed, FieldName.Field(name), FieldError.Field(err.Error()))
			ok(o, input)
			return
		}
		ok(o, enriched)
	})
}

// Mutate conditionally transforms input: when condition holds, transformer
// runs and its result is forwarded; otherwise input passes through
// unchanged. transformer cannot fail - for a conditional fallible
// transformation, compose Cond with Apply instead.
func Mutate[T any](name Name, condition func(T) bool, transformer func(T) T) Action[T] {
	metrics := metricz.New()
	metrics.Counter(MutateAppliedTotal)
	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
		if condition(input) {
			metrics.Counter(MutateAppliedTotal).Inc()
			ok(o, transformer(input))
			return
		}
		ok(o, input)
	})
}

// Retry calls action up to maxAttempts times against the same input,
// stopping at the first success. delay, if non-zero, is the base wait
// between attempts and doubles after each failure (exponential backoff);
// a zero delay retries immediately. All waiting happens via the
// orchestrator's scheduler, never a blocking sleep.
func Retry[T any](name Name, action Action[T], maxAttempts int, delay time.Duration) Action[T] {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	metrics := metricz.New()
	metrics.Counter(RetryAttemptsTotal)
	metrics.Counter(RetryExhaustedTotal)

	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		var attempt func(n int, wait time.Duration)
		attempt = func(n int, wait time.Duration) {
			metrics.Counter(RetryAttemptsTotal).Inc()
			capitan.Info(context.Background(), SignalRetryAttempt, FieldName.Field(name), FieldAttempt.Field(n))

			Call(o, action, input, ok, func(o *Orchestrator, ioErr *IOError[T]) {
				if n >= maxAttempts {
					metrics.Counter(RetryExhaustedTotal).Inc()
					ioErr.Path = append([]Name{name}, ioErr.Path...)
					fail(o, ioErr)
					return
				}
				next := func() { attempt(n+1, wait*2) }
				if wait <= 0 {
					o.Scheduler().NextTick(next)
					return
				}
				o.Scheduler().Delay(wait, next)
			})
		}
		attempt(1, delay)
	})
}

// CircuitBreaker wraps action with a three-state breaker: closed (requests
// pass through), open (requests fail immediately without calling action),
// and half-open (requests are let through again to test recovery; the next
// success closes the circuit and the next failure reopens it; concurrent
// requests are not limited to a single probe). The circuit opens after
// failureThreshold consecutive
// failures and attempts recovery after resetTimeout has elapsed.
//
// Like Atomic, Sync and Clock, CircuitBreaker carries no
// mutex: its state machine is only ever touched from orchestrator callbacks
// on the single cooperative scheduler.
type CircuitBreaker[T any] struct {
	name             Name
	action           Action[T]
	failureThreshold int
	resetTimeout     time.Duration
	state            string
	failures         int
	openedAt         time.Time
	metrics          *metricz.Registry
}

const (
	breakerClosed   = "closed"
	breakerOpen     = "open"
	breakerHalfOpen = "half-open"
)

// NewCircuitBreaker creates a closed CircuitBreaker around action.
func NewCircuitBreaker[T any](name Name, action Action[T], failureThreshold int, resetTimeout time.Duration) *CircuitBreaker[T] {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	metrics := metricz.New()
	metrics.Counter(metricz.Key("breaker.opened.total"))
	metrics.Counter(metricz.Key("breaker.rejected.total"))
	return &CircuitBreaker[T]{
		name: name, action: action, failureThreshold: failureThreshold,
		resetTimeout: resetTimeout, state: breakerClosed, metrics: metrics,
	}
}

// Action returns the breaker as an Action[T] to compose into a Chain.
func (b *CircuitBreaker[T]) Action() Action[T] {
	return NewActionFunc(b.name, func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		if b.state == breakerOpen {
			if o.getClock().Now().Sub(b.openedAt) >= b.resetTimeout {
				b.state = breakerHalfOpen
				capitan.Info(context.Background(), SignalBreakerHalfOpen, FieldName.Field(b.name))
			} else {
				b.metrics.Counter(metricz.Key("breaker.rejected.total")).Inc()
				capitan.Warn(context.Background(), SignalBreakerRejected, FieldName.Field(b.name))
				fail(o, newIOError(b.name, input, ErrBreakerOpen, o.getClock()))
				return
			}
		}

		Call(o, b.action, input,
			func(o *Orchestrator, out T) {
				if b.state == breakerHalfOpen {
					b.state = breakerClosed
					capitan.Info(context.Background(), SignalBreakerClosed, FieldName.Field(b.name))
				}
				b.failures = 0
				ok(o, out)
			},
			func(o *Orchestrator, ioErr *IOError[T]) {
				b.failures++
				if b.state == breakerHalfOpen || b.failures >= b.failureThreshold {
					b.state = breakerOpen
					b.openedAt = o.getClock().Now()
					b.metrics.Counter(metricz.Key("breaker.opened.total")).Inc()
					capitan.Warn(context.Background(), SignalBreakerOpened, FieldName.Field(b.name), FieldCount.Field(b.failures))
				}
				ioErr.Path = append([]Name{b.name}, ioErr.Path...)
				fail(o, ioErr)
			},
		)
	})
}

// Metrics returns this breaker's metrics registry.
func (b *CircuitBreaker[T]) Metrics() *metricz.Registry { return b.metrics }

// RateLimiter enforces a token-bucket limit in front of action: each call
// consumes one token, refilled continuously at ratePerSecond up to burst.
// When no token is available, Wait mode parks the call (via the
// scheduler) until one refills; Drop mode fails immediately.
type RateLimiter[T any] struct {
	name    Name
	action  Action[T]
	rate    float64
	burst   float64
	tokens  float64
	last    time.Time
	drop    bool
	metrics *metricz.Registry
}

// NewRateLimiter creates a RateLimiter starting with a full token bucket.
func NewRateLimiter[T any](name Name, action Action[T], ratePerSecond float64, burst int, drop bool) *RateLimiter[T] {
	metrics := metricz.New()
	metrics.Counter(metricz.Key("ratelimiter.limited.total"))
	return &RateLimiter[T]{
		name: name, action: action, rate: ratePerSecond, burst: float64(burst),
		tokens: float64(burst), drop: drop, metrics: metrics,
	}
}

func (r *RateLimiter[T]) refill(now time.Time) {
	if r.last.IsZero() {
		r.last = now
		return
	}
	elapsed := now.Sub(r.last).Seconds()
	r.tokens += elapsed * r.rate
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
	r.last = now
}

// Action returns the limiter as an Action[T] to compose into a Chain.
func (r *RateLimiter[T]) Action() Action[T] {
	var call func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]])
	call = func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		r.refill(o.getClock().Now())
		if r.tokens >= 1 {
			r.tokens--
			Call(o, r.action, input, ok, fail)
			return
		}

		r.metrics.Counter(metricz.Key("ratelimiter.limited.total")).Inc()
		capitan.Warn(context.Background(), SignalRateLimited, FieldName.Field(r.name))

		if r.drop {
			fail(o, newIOError(r.name, input, ErrRateLimited, o.getClock()))
			return
		}

		wait := time.Duration((1 - r.tokens) / r.rate * float64(time.Second))
		o.Scheduler().Delay(wait, func() { call(o, input, ok, fail) })
	}
	return NewActionFunc(r.name, call)
}

// Metrics returns this limiter's metrics registry.
func (r *RateLimiter[T]) Metrics() *metricz.Registry { return r.metrics }
