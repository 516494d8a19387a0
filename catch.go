package actionz

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for Catch.
const (
	CatchProcessedTotal = metricz.Key("catch.processed.total")
	CatchHandledTotal   = metricz.Key("catch.handled.total")
	CatchRolledBackTotal = metricz.Key("catch.rolled_back.total")
	CatchRestartedTotal = metricz.Key("catch.restarted.total")

	CatchProtectedSpan = tracez.Key("catch.protected")
	CatchHandlerSpan   = tracez.Key("catch.handler")

	CatchTagHasError = tracez.Tag("catch.has_error")

	CatchEventRaised    hookz.Key = "catch.raised"
	CatchEventForwarded hookz.Key = "catch.forwarded"
	CatchEventRestarted hookz.Key = "catch.restarted"
)

// CatchEvent is emitted via hookz whenever a Catch block's protected region
// fails, so external observers can track recovery patterns without
// instrumenting every handler individually.
type CatchEvent struct {
	Name      Name
	Error     error
	Restarted bool
	Timestamp time.Time
}

// CatchHandler is invoked when the region protected by Catch fails. Unlike a
// plain Action, a handler is wired directly into the outer success/failure
// continuations: calling ok "resumes forward" past the Catch (the failure is
// swallowed), calling fail "rolls back" to whatever installed the outer
// failure continuation. The IOError it receives carries the Restart
// continuation re-entering the whole protected region, and, if the point of
// failure was a Raise, the Resume continuation re-entering the success path
// at the raise site.
type CatchHandler[T any] func(o *Orchestrator, ioErr *IOError[T], ok Cont[T], fail Cont[*IOError[T]])

// Forgive returns a CatchHandler that discards the error and forwards the
// input present at the point of failure to the success continuation -
// "swallow the error, continue with what we had."
func Forgive[T any]() CatchHandler[T] {
	return func(o *Orchestrator, ioErr *IOError[T], ok Cont[T], _ Cont[*IOError[T]]) {
		ok(o, ioErr.InputData)
	}
}

// catchAction implements Action for Catch so Restart can close over the
// action itself (needed to re-enter the whole protected region, including
// the Catch's own bookkeeping, rather than just the bare protected action).
type catchAction[T any] struct {
	name      Name
	protected Action[T]
	handler   CatchHandler[T]
	metrics   *metricz.Registry
	tracer    *tracez.Tracer
	hooks     *hookz.Hooks[CatchEvent]
}

// Catch wraps protected with an error handler. While protected runs
// uninterrupted on success, any failure - whether from protected directly or
// from anything nested inside it - is routed to handler instead of the
// outer failure continuation. handler decides the ultimate disposition:
// forward (ok), rollback (fail), or - via the IOError's Restart - re-run the
// entire protected region from its original input.
func Catch[T any](name Name, protected Action[T], handler CatchHandler[T]) Action[T] {
	metrics := metricz.New()
	metrics.Counter(CatchProcessedTotal)
	metrics.Counter(CatchHandledTotal)
	metrics.Counter(CatchRolledBackTotal)
	metrics.Counter(CatchRestartedTotal)

	return &catchAction[T]{
		name:      name,
		protected: protected,
		handler:   handler,
		metrics:   metrics,
		tracer:    tracez.New(),
		hooks:     hookz.New[CatchEvent](),
	}
}

func (c *catchAction[T]) Name() Name { return c.name }

func (c *catchAction[T]) Call(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
	c.metrics.Counter(CatchProcessedTotal).Inc()
	ctx, span := c.tracer.StartSpan(context.Background(), CatchProtectedSpan)

	Call(o, c.protected, input, func(o *Orchestrator, out T) {
		span.SetTag(CatchTagHasError, "false")
		span.Finish()
		ok(o, out)
	}, func(o *Orchestrator, ioErr *IOError[T]) {
		span.SetTag(CatchTagHasError, "true")
		span.Finish()

		c.metrics.Counter(CatchHandledTotal).Inc()
		capitan.Info(ctx, SignalCatchHandled, FieldName.Field(c.name), FieldHandlerName.Field(c.name))
		_ = c.hooks.Emit(ctx, CatchEventRaised, CatchEvent{ //nolint:errcheck
			Name:      c.name,
			Error:     ioErr.Err,
			Timestamp: ioErr.Timestamp,
		})

		if ioErr.Restart == nil {
			ioErr.Restart = func() {
				c.metrics.Counter(CatchRestartedTotal).Inc()
				capitan.Info(ctx, SignalCatchHandled, FieldName.Field(c.name), FieldRecovery.Field("restart"))
				_ = c.hooks.Emit(ctx, CatchEventRestarted, CatchEvent{ //nolint:errcheck
					Name: c.name, Error: ioErr.Err, Restarted: true, Timestamp: ioErr.Timestamp,
				})
				c.Call(o, input, ok, fail)
			}
		}
		// Always rebind Rollback to this Catch's own outer fail, even if a
		// nested Raise or Catch already installed one - "nearest enclosing
		// Catch" means this handler's rollback target wins over whatever a
		// deeper layer pointed at (otherwise a nested Rollback closure can
		// end up pointing back at this same failure handler, looping).
		ioErr.Rollback = func() {
			c.metrics.Counter(CatchRolledBackTotal).Inc()
			capitan.Info(ctx, SignalCatchHandled, FieldName.Field(c.name), FieldRecovery.Field("rollback"))
			fail(o, ioErr)
		}

		_, handlerSpan := c.tracer.StartSpan(ctx, CatchHandlerSpan)
		defer handlerSpan.Finish()

		c.handler(o, ioErr,
			func(o *Orchestrator, out T) {
				_ = c.hooks.Emit(ctx, CatchEventForwarded, CatchEvent{ //nolint:errcheck
					Name: c.name, Error: ioErr.Err, Timestamp: ioErr.Timestamp,
				})
				ok(o, out)
			},
			fail,
		)
	})
}

// Metrics returns this Catch's metrics registry.
func (c *catchAction[T]) Metrics() *metricz.Registry { return c.metrics }

// Tracer returns this Catch's tracer.
func (c *catchAction[T]) Tracer() *tracez.Tracer { return c.tracer }

// Close releases this Catch's observability resources.
func (c *catchAction[T]) Close() error {
	c.tracer.Close()
	c.hooks.Close()
	return nil
}

// OnRaised registers a handler fired whenever the protected region fails and
// control enters the Catch handler.
func (c *catchAction[T]) OnRaised(handler func(context.Context, CatchEvent) error) error {
	_, err := c.hooks.Hook(CatchEventRaised, handler)
	return err
}

// Raise returns an action that always fails with cause, wrapped into an
// IOError whose Resume continuation re-enters the success path at this raise
// site with a caller-supplied substitute, and whose Rollback continuation
// delivers unchanged to the failure continuation in effect at the raise
// site. Use Raise instead of Fail when the failure should be recoverable by
// an enclosing Catch via resume, not just caught and rolled back.
func Raise[T any](name Name, cause error) Action[T] {
	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		ioErr := newIOError(name, input, cause, o.getClock())
		ioErr.Resume = func(substitute T) {
			capitan.Info(context.Background(), SignalCatchResumed, FieldName.Field(name), FieldRecovery.Field("resume"))
			ok(o, substitute)
		}
		ioErr.Rollback = func() { fail(o, ioErr) }
		capitan.Warn(context.Background(), SignalRaiseFired, FieldName.Field(name), FieldError.Field(cause.Error()))
		fail(o, ioErr)
	})
}

// Finally runs protected, then always runs cleanup with protected's original
// input before proceeding - on success, before calling ok; on failure,
// before calling fail. cleanup's own output is discarded. On the failure
// path, the IOError's Resume is rebound (installed even when the failure
// carried none) so that a caller resuming
// from an enclosing Catch re-enters after this Finally boundary, with
// cleanup already having run, rather than back at the raw raise site.
//
// cleanup is not expected to fail; if it does, the resulting failure is
// dropped and the original disposition (ok or fail) proceeds regardless -
// this mirrors the "undefined, document it" treatment of cleanup failure.
func Finally[T any](name Name, protected, cleanup Action[T]) Action[T] {
	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		runCleanup := func(o *Orchestrator, after func(o *Orchestrator)) {
			Call(o, cleanup, input,
				func(o *Orchestrator, _ T) { after(o) },
				func(o *Orchestrator, _ *IOError[T]) { after(o) },
			)
		}

		Call(o, protected, input,
			func(o *Orchestrator, out T) {
				runCleanup(o, func(o *Orchestrator) { ok(o, out) })
			},
			func(o *Orchestrator, ioErr *IOError[T]) {
				ioErr.Resume = func(substitute T) {
					runCleanup(o, func(o *Orchestrator) { ok(o, substitute) })
				}
				runCleanup(o, func(o *Orchestrator) { fail(o, ioErr) })
			},
		)
	})
}

// Try is sugar for a one-shot Catch whose handler runs onfail purely for
// effect (logging, compensation) and then always rejoins the surrounding
// success continuation with the input present at the point of failure.
func Try[T any](name Name, action Action[T], onfail func(o *Orchestrator, ioErr *IOError[T])) Action[T] {
	return Catch(name, action, func(o *Orchestrator, ioErr *IOError[T], ok Cont[T], _ Cont[*IOError[T]]) {
		onfail(o, ioErr)
		ok(o, ioErr.InputData)
	})
}
