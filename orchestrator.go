package actionz

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for the Orchestrator.
const (
	OrchestratorCallsTotal = metricz.Key("orchestrator.calls.total")
	OrchestratorBounces    = metricz.Key("orchestrator.bounces.total")

	OrchestratorCallSpan = tracez.Key("orchestrator.call")
	OrchestratorTagAction = tracez.Tag("orchestrator.action")

	OrchestratorEventBounce hookz.Key = "orchestrator.bounce"

	SignalOrchestratorBounced capitan.Signal = "orchestrator.bounced"
)

// defaultMaxDepth is the recursion bound applied when NewOrchestrator is not
// given an explicit WithMaxDepth option.
const defaultMaxDepth = 50

// OrchestratorEvent is emitted via hookz whenever a call is bounced off the
// synchronous stack onto the scheduler's next tick because the recursion
// bound was reached.
type OrchestratorEvent struct {
	Name  Name
	Depth int
}

// Orchestrator is the engine that calls actions. It bounds the depth of
// synchronous continuation chains (rescheduling onto the Scheduler once the
// bound is hit, so a long seq or a chatty generator can't blow the Go call
// stack), recovers from host panics raised inside an action's Call, and
// carries the observability stack every stateful combinator in this
// package is built against.
type Orchestrator struct {
	mu       sync.Mutex
	depth    int
	maxDepth int

	scheduler *Scheduler
	clock     clockz.Clock

	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[OrchestratorEvent]
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithMaxDepth overrides the default recursion bound (50).
func WithMaxDepth(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// WithClock overrides the clock used for IOError timestamps; the scheduler
// itself is always constructed with its own clock via NewScheduler.
func WithClock(clock clockz.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// NewOrchestrator creates an Orchestrator bound to scheduler.
func NewOrchestrator(scheduler *Scheduler, opts ...Option) *Orchestrator {
	metrics := metricz.New()
	metrics.Counter(OrchestratorCallsTotal)
	metrics.Counter(OrchestratorBounces)

	o := &Orchestrator{
		maxDepth:  defaultMaxDepth,
		scheduler: scheduler,
		clock:     clockz.RealClock,
		metrics:   metrics,
		tracer:    tracez.New(),
		hooks:     hookz.New[OrchestratorEvent](),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Scheduler returns the scheduler this orchestrator dispatches onto.
func (o *Orchestrator) Scheduler() *Scheduler {
	return o.scheduler
}

// getClock returns the orchestrator's clock, used by IOError construction
// and any combinator that needs "now" without importing clockz directly.
func (o *Orchestrator) getClock() clockz.Clock {
	return o.clock
}

// Metrics returns the orchestrator's metrics registry.
func (o *Orchestrator) Metrics() *metricz.Registry {
	return o.metrics
}

// Tracer returns the orchestrator's tracer.
func (o *Orchestrator) Tracer() *tracez.Tracer {
	return o.tracer
}

// OnBounce registers a handler fired whenever a call bounces off the
// synchronous stack due to the recursion bound.
func (o *Orchestrator) OnBounce(handler func(context.Context, OrchestratorEvent) error) error {
	_, err := o.hooks.Hook(OrchestratorEventBounce, handler)
	return err
}

// Close releases the orchestrator's observability resources.
func (o *Orchestrator) Close() error {
	o.tracer.Close()
	o.hooks.Close()
	return nil
}

// Call invokes action with input, bounding recursion depth and recovering
// from host panics. This is the one entry point every combinator in this
// package uses instead of calling action.Call directly, so the depth bound
// and panic containment apply uniformly no matter how deeply actions are
// nested.
//
// When the current synchronous chain has already recursed maxDepth calls
// deep, Call reschedules itself onto the orchestrator's scheduler via
// NextTick and returns immediately; the chain continues on a future turn of
// Scheduler.Run with depth reset to zero. This is the trampoline spec.md's
// design notes call for: continuations as trait-objects bounced through a
// scheduler queue rather than a raw, unbounded Go call stack.
func Call[T any](o *Orchestrator, action Action[T], input T, ok Cont[T], fail Cont[*IOError[T]]) {
	o.mu.Lock()
	o.depth++
	depth := o.depth
	o.mu.Unlock()

	if depth > o.maxDepth {
		o.mu.Lock()
		o.depth--
		o.mu.Unlock()

		o.metrics.Counter(OrchestratorBounces).Inc()
		event := OrchestratorEvent{Name: action.Name(), Depth: depth}
		_ = o.hooks.Emit(context.Background(), OrchestratorEventBounce, event) //nolint:errcheck
		capitan.Info(context.Background(), SignalOrchestratorBounced,
			FieldName.Field(action.Name()),
		)

		o.scheduler.NextTick(func() {
			Call(o, action, input, ok, fail)
		})
		return
	}

	defer func() {
		o.mu.Lock()
		o.depth--
		o.mu.Unlock()
	}()
	defer recoverFromPanic(o, action.Name(), input, fail)

	o.metrics.Counter(OrchestratorCallsTotal).Inc()

	ctx, span := o.tracer.StartSpan(context.Background(), OrchestratorCallSpan)
	span.SetTag(OrchestratorTagAction, action.Name())
	defer span.Finish()
	_ = ctx

	action.Call(o, input, ok, fail)
}

// Trace wraps action so every call logs a structured signal and emits a
// dedicated span around it, without changing its success/failure semantics.
// This is the tracing decorator spec.md keeps in scope even though the rest
// of the sample application built on the core is excluded: a thin,
// self-contained logging layer any action can be wrapped in.
func Trace[T any](action Action[T]) Action[T] {
	name := action.Name()
	tracer := tracez.New()
	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		ctx, span := tracer.StartSpan(context.Background(), tracez.Key("trace."+name))
		capitan.Info(ctx, SignalTraceEnter, FieldName.Field(name))

		wrappedOk := func(o *Orchestrator, out T) {
			span.SetTag(tracez.Tag("trace.outcome"), "success")
			span.Finish()
			capitan.Info(ctx, SignalTraceExit, FieldName.Field(name), FieldOutcome.Field("success"))
			ok(o, out)
		}
		wrappedFail := func(o *Orchestrator, err *IOError[T]) {
			span.SetTag(tracez.Tag("trace.outcome"), "failure")
			span.Finish()
			capitan.Warn(ctx, SignalTraceExit, FieldName.Field(name), FieldOutcome.Field("failure"), FieldError.Field(err.Error()))
			fail(o, err)
		}
		Call(o, action, input, wrappedOk, wrappedFail)
	})
}
