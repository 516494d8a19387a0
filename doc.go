// Package actionz provides a small, composable kernel for building and running
// asynchronous, side-effectful computations ("actions") on top of a single-threaded
// cooperative scheduler.
//
// # Overview
//
// An action is not a function that returns a value - it is a function that is
// *called* with a continuation. Instead of `(T, error)`, an Action[T] receives
// two continuations: one to invoke on success, one to invoke on failure. This
// continuation-passing shape lets actionz represent suspension (an action that
// pauses on a timer or a channel) without goroutines-per-step and without
// threading context.Context cancellation through every call.
//
// The library is built around a single, uniform interface:
//
//	type Action[T any] interface {
//	    Call(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]])
//	    Name() Name
//	}
//
// Key components:
//   - Actions: individual steps created with adapter functions (Apply, Effect, Supply, ...)
//   - Orchestrator: the engine that calls actions, bounds recursion depth, and recovers panics
//   - Scheduler: the microtask queue and timer heap actions suspend onto
//   - Combinators: compose actions into chains, forks, races, pipelines, and channels
//
// Design philosophy:
//   - Actions are immutable values (small structs wrapping a function plus a name)
//   - Connectors (Chain, Atomic, Pipeline, Chan) are mutable pointers with runtime state
//   - Execution is single-threaded and cooperative: "concurrency" among fork/any/tee
//     branches means interleaving on the scheduler, never simultaneous OS-thread execution
//
// Everything implements Action[T], enabling seamless composition while maintaining
// type safety through Go generics.
//
// # Adapter Functions
//
// Apply - operations that can fail:
//
//	parse := actionz.Apply("parse", func(raw Data) (Data, error) {
//	    return raw.Normalize()
//	})
//
// Effect - side effects without modifying data:
//
//	logger := actionz.Effect("log", func(d Data) error {
//	    log.Printf("processing: %+v", d)
//	    return nil
//	})
//
// Supply - ignores its input and always produces a fixed value:
//
//	zero := actionz.Supply[int]("zero", 0)
//
// # Error Handling
//
// actionz provides rich error information through the IOError[T] type, and a
// first-class recovery model: a Catch handler can Resume (continue the protected
// region with a substitute value), Rollback (unwind to this handler's continuation
// without retrying), or Restart (re-run the protected action from its original
// input). See IOError for details.
//
// # Choosing the Right Combinator
//
//   - Seq / Chain: default choice for step-by-step processing
//   - Cond: conditional routing based on data
//   - Filter: conditional processing (run or drop)
//   - Fork: parallel independent operations that must all complete (requires Cloner[T])
//   - Any: first success wins among several alternatives
//   - Alt: primary/backup failover
//   - Tee: fire-and-forget background work
//   - Timeout: operations that might hang
//   - Catch: error observation and recovery without changing flow
//   - Atomic / Pipeline: backpressured, bounded-buffer stages
//   - Chan: CSP-style rendezvous between producer and consumer actions
//   - Gen / Spray / Cycle / Clock: generator family for streams of values
package actionz
