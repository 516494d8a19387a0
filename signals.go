package actionz

import "github.com/zoobzio/capitan"

// Signal constants for actionz connector events.
// Signals follow the pattern: <connector-type>.<event>.
const (
	// Orchestrator/Trace signals.
	SignalTraceEnter capitan.Signal = "trace.enter"
	SignalTraceExit  capitan.Signal = "trace.exit"

	// Catch/restart signals.
	SignalCatchHandled  capitan.Signal = "catch.handled"
	SignalCatchResumed  capitan.Signal = "catch.resumed"
	SignalCatchRolledBack capitan.Signal = "catch.rolled-back"
	SignalCatchRestarted capitan.Signal = "catch.restarted"
	SignalRaiseFired    capitan.Signal = "raise.fired"

	// Fork/Tee/Any/Alt signals.
	SignalForkCompleted capitan.Signal = "fork.completed"
	SignalTeeDispatched capitan.Signal = "tee.dispatched"
	SignalAnyWinner     capitan.Signal = "any.winner"
	SignalAltAttempt    capitan.Signal = "alt.attempt"
	SignalAltExhausted  capitan.Signal = "alt.exhausted"

	// Timeout signals.
	SignalTimeoutTriggered capitan.Signal = "timeout.triggered"

	// Sync (join barrier) signals.
	SignalSyncAcquired capitan.Signal = "sync.acquired"
	SignalSyncWaiting  capitan.Signal = "sync.waiting"
	SignalSyncReleased capitan.Signal = "sync.released"

	// Interruption signals.
	SignalInterruptArmed     capitan.Signal = "interrupt.armed"
	SignalInterruptFired     capitan.Signal = "interrupt.fired"

	// Atomic/Pipeline backpressure signals.
	SignalAtomicPaused   capitan.Signal = "atomic.paused"
	SignalAtomicResumed  capitan.Signal = "atomic.resumed"
	SignalAtomicDrained  capitan.Signal = "atomic.drained"
	SignalPipelineStage  capitan.Signal = "pipeline.stage"

	// Channel signals.
	SignalChanSend capitan.Signal = "chan.send"
	SignalChanRecv capitan.Signal = "chan.recv"

	// Generator/stream signals.
	SignalGenPaused    capitan.Signal = "gen.paused"
	SignalGenExhausted capitan.Signal = "gen.exhausted"
	SignalClockTick    capitan.Signal = "clock.tick"
	SignalDebounceFired capitan.Signal = "debounce.fired"

	// Data-flow signals.
	SignalCondMatched   capitan.Signal = "cond.matched"
	SignalCondUnmatched capitan.Signal = "cond.unmatched"
	SignalFilterSkipped capitan.Signal = "filter.skipped"
	SignalLogEmitted    capitan.Signal = "log.emitted"

	// Resilience signals (Retry, Backoff, Enrich, CircuitBreaker, RateLimiter).
	SignalRetryAttempt      capitan.Signal = "retry.attempt"
	SignalRetryExhausted    capitan.Signal = "retry.exhausted"
	SignalEnrichSwallowed   capitan.Signal = "enrich.swallowed"
	SignalBreakerOpened     capitan.Signal = "breaker.opened"
	SignalBreakerClosed     capitan.Signal = "breaker.closed"
	SignalBreakerHalfOpen   capitan.Signal = "breaker.half-open"
	SignalBreakerRejected   capitan.Signal = "breaker.rejected"
	SignalRateLimited       capitan.Signal = "ratelimiter.limited"
)

// Common field keys using capitan primitive types.
// All keys use primitive types to avoid custom struct serialization.
var (
	// Common fields.
	FieldName     = capitan.NewStringKey("name")     // Action/connector instance name
	FieldError    = capitan.NewStringKey("error")    // Error message
	FieldDuration = capitan.NewFloat64Key("duration") // Elapsed seconds
	FieldOutcome  = capitan.NewStringKey("outcome")  // "success" | "failure"
	FieldCount    = capitan.NewIntKey("count")       // Generic count field

	// Fork/Any/Alt/Tee fields.
	FieldProcessorCount = capitan.NewIntKey("processor_count")
	FieldErrorCount     = capitan.NewIntKey("error_count")
	FieldWinnerName     = capitan.NewStringKey("winner_name")
	FieldAttempt        = capitan.NewIntKey("attempt")

	// Catch/restart fields.
	FieldHandlerName = capitan.NewStringKey("handler_name")
	FieldRecovery    = capitan.NewStringKey("recovery") // "resume" | "rollback" | "restart"

	// Sync fields.
	FieldWaiters = capitan.NewIntKey("waiters")

	// Interrupt fields.
	FieldReason = capitan.NewStringKey("reason")

	// Atomic/Pipeline fields.
	FieldCapacity = capitan.NewIntKey("capacity")
	FieldPending  = capitan.NewIntKey("pending")
	FieldStage    = capitan.NewStringKey("stage")

	// Channel fields.
	FieldQueueDepth = capitan.NewIntKey("queue_depth")

	// Generator fields.
	FieldBudget = capitan.NewIntKey("budget")
	FieldTick   = capitan.NewIntKey("tick")

	// Cond/Filter fields.
	FieldCase = capitan.NewStringKey("case")
)
