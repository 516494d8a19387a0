package actionz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zoobzio/clockz"
)

// IOError provides rich context about an action failure, plus the recovery
// continuations a Catch handler needs to resume, rollback, or restart the
// protected region. It wraps the underlying error with information about
// where and when the failure occurred, what input was being processed, and
// the complete path of action names the failure has bubbled through.
type IOError[T any] struct {
	Timestamp time.Time
	InputData T
	Err       error
	Path      []Name
	Duration  time.Duration
	Timeout   bool
	Canceled  bool

	// Resume continues the protected region as if the failed step had
	// succeeded with substitute. Nil if the point of failure offers no
	// resumption (e.g. the input has already been consumed irreversibly).
	Resume func(substitute T)

	// Rollback abandons the protected region and unwinds directly to the
	// continuation installed by the nearest enclosing Catch, without
	// re-running anything. Raise sets it to its own failure continuation at
	// the raise site and each enclosing Catch rebinds it to its outer
	// failure continuation; it is nil on a failure that passed through
	// neither.
	Rollback func()

	// Restart re-runs the protected action from its original input,
	// exactly as if Call were invoked again from scratch. Nil if the
	// action that failed does not support restart (see Catch).
	Restart func()
}

// newIOError constructs an IOError with only the core fields populated; set
// the Path/Resume/Rollback/Restart fields at the call site or let Catch
// attach the recovery continuations.
func newIOError[T any](name Name, input T, err error, clock clockz.Clock) *IOError[T] {
	return &IOError[T]{
		Timestamp: clock.Now(),
		InputData: input,
		Err:       err,
		Path:      []Name{name},
		Timeout:   errors.Is(err, context.DeadlineExceeded),
		Canceled:  errors.Is(err, context.Canceled),
	}
}

// Error implements the error interface, providing a detailed message.
func (e *IOError[T]) Error() string {
	if e == nil {
		return "<nil>"
	}
	path := strings.Join(e.Path, " -> ")
	if path == "" {
		path = "unknown"
	}
	if e.Timeout {
		return fmt.Sprintf("%s timed out after %v: %v", path, e.Duration, e.Err)
	}
	if e.Canceled {
		return fmt.Sprintf("%s canceled after %v: %v", path, e.Duration, e.Err)
	}
	return fmt.Sprintf("%s failed after %v: %v", path, e.Duration, e.Err)
}

// Unwrap returns the underlying error, supporting errors.Is and errors.As
// against the wrapped cause.
func (e *IOError[T]) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTimeout reports whether the failure has Timeout set or wraps
// context.DeadlineExceeded. The Timeout combinator produces no such failure:
// when its watchdog fires it hands control to the ontimeout handler instead.
func (e *IOError[T]) IsTimeout() bool {
	if e == nil {
		return false
	}
	return e.Timeout || errors.Is(e.Err, context.DeadlineExceeded)
}

// IsCanceled reports whether the failure was caused by interruption
// (ErrInterrupted) or by context cancellation.
func (e *IOError[T]) IsCanceled() bool {
	if e == nil {
		return false
	}
	return e.Canceled || errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, ErrInterrupted)
}

// prependPath wraps err into this action's path, reusing an existing
// IOError[T] if the failure already bubbled up from a nested action, or
// constructing a fresh one otherwise. This mirrors the path-prepending
// every stateful combinator performs when forwarding a child's failure.
func prependPath[T any](name Name, input T, err error, clock clockz.Clock) *IOError[T] {
	var ioErr *IOError[T]
	if errors.As(err, &ioErr) {
		ioErr.Path = append([]Name{name}, ioErr.Path...)
		return ioErr
	}
	return newIOError(name, input, err, clock)
}

// PauseCondition is a distinguished failure value signaling backpressure
// rather than a true error: the callee cannot currently accept more work
// (an Atomic region's buffer is full, or a hand-written action raised one
// via Pause). It is
// delivered on the same failure continuation as any other error so existing
// Catch handlers see it, but IsPause lets callers distinguish "try later"
// from "this failed."
type PauseCondition struct {
	Name     Name
	Capacity int
	Pending  int
}

// Error implements the error interface.
func (p *PauseCondition) Error() string {
	return fmt.Sprintf("%s: buffer full (%d/%d)", p.Name, p.Pending, p.Capacity)
}

// IsPause reports whether err (or an IOError wrapping it) signals
// backpressure rather than a genuine failure.
func IsPause(err error) bool {
	var pc *PauseCondition
	return errors.As(err, &pc)
}

var (
	// ErrIndexOutOfBounds is returned by Chain modification methods
	// (RemoveAt, Replace) when given an out-of-range index.
	ErrIndexOutOfBounds = errors.New("actionz: index out of bounds")
	// ErrEmptyChain is returned by Shift/Pop on an empty Chain.
	ErrEmptyChain = errors.New("actionz: chain is empty")
	// ErrNoProcessors is returned by combinators that require at least one
	// branch (Any, Alt, Cond with no matching case and no default). An empty
	// Fork does not return it; it forwards its input unchanged.
	ErrNoProcessors = errors.New("actionz: no actions provided")
	// ErrInterrupted is the cause wrapped into an IOError when an
	// interruptible action is interrupted before completion.
	ErrInterrupted = errors.New("actionz: interrupted")
	// ErrMaxDepthExceeded names the condition of hitting the orchestrator's
	// recursion bound. No code in this package returns or wraps it: a
	// trampoline bounce never reaches user code as a failure, and is
	// reported through the orchestrator's bounce metric, hook and signal.
	ErrMaxDepthExceeded = errors.New("actionz: maximum call depth exceeded")
	// ErrBreakerOpen is returned by CircuitBreaker while its circuit is open.
	ErrBreakerOpen = errors.New("actionz: circuit breaker open")
	// ErrRateLimited is returned by RateLimiter in drop mode when no token
	// is available.
	ErrRateLimited = errors.New("actionz: rate limited")
)
