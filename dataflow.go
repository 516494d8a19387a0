package actionz

import (
	"context"
	"reflect"
	"strconv"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
)

// Metric keys for the data-flow family.
const (
	MapAppliedTotal     = metricz.Key("map.applied.total")
	FilterPassedTotal   = metricz.Key("filter.passed.total")
	FilterSkippedTotal  = metricz.Key("filter.skipped.total")
	ReduceAppliedTotal  = metricz.Key("reduce.applied.total")
	ProbeObservedTotal  = metricz.Key("probe.observed.total")
	CondDispatchedTotal = metricz.Key("cond.dispatched.total")
	CondUnmatchedTotal  = metricz.Key("cond.unmatched.total")
)

// Map returns an action that applies fn to its input and forwards the
// result unchanged to the success continuation. fn cannot fail - if the
// transformation might fail, build it with Apply-style error handling
// inside a hand-written Action instead.
func Map[T any](name Name, fn func(T) T) Action[T] {
	metrics := metricz.New()
	metrics.Counter(MapAppliedTotal)
	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
		metrics.Counter(MapAppliedTotal).Inc()
		ok(o, fn(input))
	})
}

// Filter returns an action that forwards input to the success continuation
// only when predicate holds. When predicate is false the input is dropped
// silently: neither ok nor fail is invoked, and the sequence containing
// this Filter simply goes quiet for that activation.
func Filter[T any](name Name, predicate func(T) bool) Action[T] {
	metrics := metricz.New()
	metrics.Counter(FilterPassedTotal)
	metrics.Counter(FilterSkippedTotal)
	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
		if !predicate(input) {
			metrics.Counter(FilterSkippedTotal).Inc()
			capitan.Info(context.Background(), SignalFilterSkipped, FieldName.Field(name))
			return
		}
		metrics.Counter(FilterPassedTotal).Inc()
		ok(o, input)
	})
}

// Reduce returns an action that folds successive inputs into an
// accumulator: each activation calls fn with the accumulator so far (seeded
// with init on the first call) and the new input, forwards the updated
// accumulator to the success continuation, and retains it for the next
// activation. Unlike Map, Reduce is stateful across calls by design - it
// exists to summarize a stream of activations (e.g. from Gen or Chan), not
// to transform one value in isolation.
func Reduce[T any](name Name, fn func(acc, input T) T, init T) Action[T] {
	metrics := metricz.New()
	metrics.Counter(ReduceAppliedTotal)
	acc := init
	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
		acc = fn(acc, input)
		metrics.Counter(ReduceAppliedTotal).Inc()
		ok(o, acc)
	})
}

// Add returns an action that shallow-merges the keys of patch on top of
// input's own keys (patch wins on conflicts) and forwards the merged map to
// the success continuation. Add only operates on map[string]any records -
// generalizing it to arbitrary structs would require reflection-based field
// merging that the examples never reach for; a record-oriented combinator
// for a map-typed T matches how this connector family is actually used.
func Add(name Name, patch map[string]any) Action[map[string]any] {
	return NewActionFunc(name, func(o *Orchestrator, input map[string]any, ok Cont[map[string]any], _ Cont[*IOError[map[string]any]]) {
		merged := make(map[string]any, len(input)+len(patch))
		for k, v := range input {
			merged[k] = v
		}
		for k, v := range patch {
			merged[k] = v
		}
		ok(o, merged)
	})
}

// Probe returns an action that calls observe for its side effects, ignores
// whatever observe does (including a panic, which is swallowed rather than
// propagated), and always forwards its original input unchanged to the
// success continuation. Probe exists for logging/metrics taps that must
// never be able to fail or alter the sequence they're attached to.
func Probe[T any](name Name, observe func(T)) Action[T] {
	metrics := metricz.New()
	metrics.Counter(ProbeObservedTotal)
	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
		func() {
			defer func() { _ = recover() }()
			observe(input)
		}()
		metrics.Counter(ProbeObservedTotal).Inc()
		ok(o, input)
	})
}

// Log returns a Probe that writes a structured signal carrying input's
// string form via fmt-free capitan fields, without otherwise touching the
// sequence - a convenience alias for Probe's single most common use.
func Log[T any](name Name, render func(T) string) Action[T] {
	return Probe(name, func(input T) {
		capitan.Info(context.Background(), SignalLogEmitted, FieldName.Field(name), FieldError.Field(render(input)))
	})
}

// Delay returns an action that forwards input to the success continuation
// after d has elapsed on the scheduler's clock, without otherwise changing
// it. Unlike Timeout, Delay never fails - it is pure scheduling latency.
func Delay[T any](name Name, d time.Duration) Action[T] {
	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
		o.Scheduler().Delay(d, func() {
			ok(o, input)
		})
	})
}

// Pattern is a branch test for Cond. A Pattern is one of:
//   - a func(T) bool, used as-is as a predicate
//   - a map[string]any, matched recursively against a map[string]any input:
//     every declared key must be present in the input and its value must
//     match the corresponding sub-pattern (matched the same way, recursively);
//     extra keys on the input are ignored
//   - any other value, matched by reflect.DeepEqual against the input
type Pattern = any

// CondCase pairs a Pattern with the action to dispatch to when it matches.
type CondCase[T any] struct {
	When Pattern
	Then Action[T]
}

// Cond returns an action that evaluates cases in order and dispatches to
// the first one whose pattern matches the input. If none match, def (the
// default action) is dispatched if non-nil; otherwise Cond fails with
// ErrNoProcessors.
func Cond[T any](name Name, cases []CondCase[T], def Action[T]) Action[T] {
	metrics := metricz.New()
	metrics.Counter(CondDispatchedTotal)
	metrics.Counter(CondUnmatchedTotal)

	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		for i, c := range cases {
			if matchPattern(c.When, input) {
				metrics.Counter(CondDispatchedTotal).Inc()
				capitan.Info(context.Background(), SignalCondMatched, FieldName.Field(name), FieldCase.Field(strconv.Itoa(i)))
				Call(o, c.Then, input, ok, func(o *Orchestrator, ioErr *IOError[T]) {
					ioErr.Path = append([]Name{name}, ioErr.Path...)
					fail(o, ioErr)
				})
				return
			}
		}

		metrics.Counter(CondUnmatchedTotal).Inc()
		capitan.Info(context.Background(), SignalCondUnmatched, FieldName.Field(name))

		if def != nil {
			Call(o, def, input, ok, func(o *Orchestrator, ioErr *IOError[T]) {
				ioErr.Path = append([]Name{name}, ioErr.Path...)
				fail(o, ioErr)
			})
			return
		}
		fail(o, newIOError(name, input, ErrNoProcessors, o.getClock()))
	})
}

// matchPattern implements the recursive pattern-matching rules Cond uses to
// pick a branch: a predicate function is called directly, a record pattern
// requires every declared key to be present and recursively matching in a
// candidate record (ignoring extra candidate keys), and anything else falls
// back to a deep-equality comparison.
//
// A predicate Pattern is stored as func(T) bool for whatever T the enclosing
// Cond[T] was instantiated with, not func(any) bool - a plain type assertion
// would never match it. reflect.Call bridges that gap generically, without
// Cond having to special-case every T it might be instantiated with.
func matchPattern(pattern Pattern, candidate any) bool {
	if record, isRecord := pattern.(map[string]any); isRecord {
		candidateRecord, ok := candidate.(map[string]any)
		if !ok {
			return false
		}
		for key, subPattern := range record {
			value, present := candidateRecord[key]
			if !present {
				return false
			}
			if !matchPattern(subPattern, value) {
				return false
			}
		}
		return true
	}

	if pv := reflect.ValueOf(pattern); pv.Kind() == reflect.Func {
		pt := pv.Type()
		if pt.NumIn() == 1 && pt.NumOut() == 1 && pt.Out(0).Kind() == reflect.Bool {
			var arg reflect.Value
			if candidate == nil {
				arg = reflect.Zero(pt.In(0))
			} else {
				arg = reflect.ValueOf(candidate)
			}
			return pv.Call([]reflect.Value{arg})[0].Bool()
		}
	}

	return reflect.DeepEqual(pattern, candidate)
}
