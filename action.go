package actionz

// Name is a type alias for action and connector names.
// Using this type encourages storing names as constants rather than
// scattering inline strings throughout call sites.
type Name = string

// Cont is a continuation: a callback the orchestrator invokes with a value
// of type V, running on the orchestrator's own call stack (or rescheduled
// onto the scheduler when the recursion bound is reached).
//
// Success continuations are Cont[T]; failure continuations are Cont[*IOError[T]].
// Using a single continuation shape for both cases - rather than dispatching on
// an error return value - is what makes sequencing, forking, and error recovery
// compose uniformly: a continuation is just "the next thing to call."
type Cont[V any] func(o *Orchestrator, value V)

// Action defines the interface for any component that can be called with a
// value of type T and a pair of continuations. Action is the foundation of
// actionz - every adapter, combinator, and connector implements it.
//
// Unlike a synchronous Process(ctx, T) (T, error) contract, Call never returns
// a result directly. Most actions invoke exactly one of ok or fail, possibly
// after suspending on the orchestrator's scheduler (a timer, a channel, a
// paused generator); a few document otherwise (Filter and CollectUntil may
// invoke neither, Gen invokes ok once per emitted value). This is what lets
// actions represent suspension without blocking a goroutine per in-flight
// call.
type Action[T any] interface {
	Call(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]])
	Name() Name
}

// ActionFunc is a function adapter that implements Action. It allows any
// function with the Call signature to be used directly as an Action without
// declaring a wrapper type.
type ActionFunc[T any] struct {
	fn   func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]])
	name Name
}

// NewActionFunc wraps fn as an Action[T] under the given name.
func NewActionFunc[T any](name Name, fn func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]])) ActionFunc[T] {
	return ActionFunc[T]{name: name, fn: fn}
}

// Call implements the Action interface.
func (a ActionFunc[T]) Call(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
	a.fn(o, input, ok, fail)
}

// Name returns the name of the action.
func (a ActionFunc[T]) Name() Name {
	return a.name
}

// Cloner is an interface for types that can create deep copies of themselves.
// Implementing this interface is required to use a type with Fork or
// Any, providing a type-safe and performant alternative to reflection-based
// copying. The Clone method must return a value where modifications to the
// copy do not affect the original.
type Cloner[T any] interface {
	Clone() T
}

// Pass returns an action that invokes ok with its input unchanged. It is the
// identity action, useful as a default branch or a placeholder slot in a
// dynamically built Chain.
func Pass[T any](name Name) Action[T] {
	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
		ok(o, input)
	})
}

// Fail returns an action that always invokes fail with the given error,
// wrapped as an IOError whose path starts at this action's name.
func Fail[T any](name Name, err error) Action[T] {
	return NewActionFunc(name, func(o *Orchestrator, input T, _ Cont[T], fail Cont[*IOError[T]]) {
		fail(o, newIOError(name, input, err, o.getClock()))
	})
}

// Supply returns an action that ignores its input and always succeeds with
// value, regardless of what was passed in. Useful as the head of a Chain
// that doesn't need a real input, or for injecting a constant downstream.
func Supply[T any](name Name, value T) Action[T] {
	return NewActionFunc(name, func(o *Orchestrator, _ T, ok Cont[T], _ Cont[*IOError[T]]) {
		ok(o, value)
	})
}
