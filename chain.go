package actionz

import (
	"fmt"
	"sync"

	"github.com/zoobzio/metricz"
)

// Metric keys for Chain.
const (
	ChainCallsTotal = metricz.Key("chain.calls.total")
	ChainLength     = metricz.Key("chain.length")
)

// Send returns an action that ignores its inbound input and instead calls
// action with the fixed value x.
func Send[T any](name Name, x T, action Action[T]) Action[T] {
	return NewActionFunc(name, func(o *Orchestrator, _ T, ok Cont[T], fail Cont[*IOError[T]]) {
		Call(o, action, x, ok, fail)
	})
}

// Bind returns an action that unconditionally dispatches action on
// orchestrator target instead of the orchestrator it is called with. This
// lets a sequence cross into a child orchestrator (e.g. one carrying a
// different clock or a lower max depth) for one step.
func Bind[T any](name Name, target *Orchestrator, action Action[T]) Action[T] {
	return NewActionFunc(name, func(_ *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		Call(target, action, input, ok, fail)
	})
}

// Branch invokes action with fixed continuations ok and fail, ignoring
// whatever continuations the enclosing sequence would have supplied. It is
// an escape hatch for installing a sub-chain that never rejoins the outer
// success/failure wiring directly.
func Branch[T any](name Name, action Action[T], ok Cont[T], fail Cont[*IOError[T]]) Action[T] {
	return NewActionFunc(name, func(o *Orchestrator, input T, _ Cont[T], _ Cont[*IOError[T]]) {
		Call(o, action, input, ok, fail)
	})
}

// Seq composes a with b: a's success continuation becomes "run b, then the
// outer success continuation"; a's own failure continuation is the outer
// failure continuation, unchanged. The continuation passed into a is
// materialized lazily at call time rather than eagerly nested, so chains of
// any length cost one closure allocation per link as execution proceeds,
// not an up-front recursive structure.
func Seq[T any](name Name, a, b Action[T]) Action[T] {
	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		Call(o, a, input, func(o *Orchestrator, out T) {
			Call(o, b, out, ok, fail)
		}, fail)
	})
}

// Chain is a dynamically modifiable, named sequence of actions run left
// to right (foldSeq nests them via Seq from the right). An empty Chain behaves as Pass; a single-action Chain
// behaves exactly as that action.
type Chain[T any] struct {
	name    Name
	mu      sync.RWMutex
	actions []Action[T]
	metrics *metricz.Registry
}

// NewChain creates a Chain over the given actions, evaluated left to right.
func NewChain[T any](name Name, actions ...Action[T]) *Chain[T] {
	metrics := metricz.New()
	metrics.Counter(ChainCallsTotal)
	metrics.Gauge(ChainLength)
	metrics.Gauge(ChainLength).Set(float64(len(actions)))
	return &Chain[T]{
		name:    name,
		actions: actions,
		metrics: metrics,
	}
}

// Name implements Action.
func (c *Chain[T]) Name() Name { return c.name }

// Call implements Action: folds the current snapshot of actions via Seq and
// invokes the fold with input/ok/fail.
func (c *Chain[T]) Call(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
	c.mu.RLock()
	actions := make([]Action[T], len(c.actions))
	copy(actions, c.actions)
	c.mu.RUnlock()

	c.metrics.Counter(ChainCallsTotal).Inc()

	if len(actions) == 0 {
		ok(o, input)
		return
	}
	folded := foldSeq(c.name, actions)
	Call(o, folded, input, ok, fail)
}

// foldSeq folds actions right-to-left so the resulting action's Call runs
// them left-to-right via nested Seq wrappers, matching the "right-fold"
// seq form the ambiguous sources disagree on - see DESIGN.md.
func foldSeq[T any](name Name, actions []Action[T]) Action[T] {
	if len(actions) == 1 {
		return actions[0]
	}
	acc := actions[len(actions)-1]
	for i := len(actions) - 2; i >= 0; i-- {
		acc = Seq(name, actions[i], acc)
	}
	return acc
}

// Len returns the current number of actions in the chain.
func (c *Chain[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.actions)
}

// Push appends action to the end of the chain.
func (c *Chain[T]) Push(action Action[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, action)
	c.metrics.Gauge(ChainLength).Set(float64(len(c.actions)))
}

// Unshift prepends action to the front of the chain.
func (c *Chain[T]) Unshift(action Action[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append([]Action[T]{action}, c.actions...)
	c.metrics.Gauge(ChainLength).Set(float64(len(c.actions)))
}

// Pop removes and returns the last action in the chain.
func (c *Chain[T]) Pop() (Action[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.actions) == 0 {
		var zero Action[T]
		return zero, ErrEmptyChain
	}
	last := c.actions[len(c.actions)-1]
	c.actions = c.actions[:len(c.actions)-1]
	c.metrics.Gauge(ChainLength).Set(float64(len(c.actions)))
	return last, nil
}

// Shift removes and returns the first action in the chain.
func (c *Chain[T]) Shift() (Action[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.actions) == 0 {
		var zero Action[T]
		return zero, ErrEmptyChain
	}
	first := c.actions[0]
	c.actions = c.actions[1:]
	c.metrics.Gauge(ChainLength).Set(float64(len(c.actions)))
	return first, nil
}

// Names returns the names of the actions currently in the chain, in order.
func (c *Chain[T]) Names() []Name {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]Name, len(c.actions))
	for i, a := range c.actions {
		names[i] = a.Name()
	}
	return names
}

// RemoveAt removes the action at index i.
func (c *Chain[T]) RemoveAt(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.actions) {
		return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfBounds, i, len(c.actions))
	}
	c.actions = append(c.actions[:i], c.actions[i+1:]...)
	c.metrics.Gauge(ChainLength).Set(float64(len(c.actions)))
	return nil
}

// Replace swaps the action at index i for replacement.
func (c *Chain[T]) Replace(i int, replacement Action[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.actions) {
		return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfBounds, i, len(c.actions))
	}
	c.actions[i] = replacement
	return nil
}

// After inserts addition immediately after the action named after.
func (c *Chain[T]) After(after Name, addition Action[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := indexOfName(c.actions, after)
	if idx < 0 {
		return fmt.Errorf("actionz: action %q not found in chain %q", after, c.name)
	}
	c.insertAt(idx+1, addition)
	return nil
}

// Before inserts addition immediately before the action named before.
func (c *Chain[T]) Before(before Name, addition Action[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := indexOfName(c.actions, before)
	if idx < 0 {
		return fmt.Errorf("actionz: action %q not found in chain %q", before, c.name)
	}
	c.insertAt(idx, addition)
	return nil
}

func (c *Chain[T]) insertAt(i int, action Action[T]) {
	c.actions = append(c.actions, action)
	copy(c.actions[i+1:], c.actions[i:])
	c.actions[i] = action
	c.metrics.Gauge(ChainLength).Set(float64(len(c.actions)))
}

func indexOfName[T any](actions []Action[T], name Name) int {
	for i, a := range actions {
		if a.Name() == name {
			return i
		}
	}
	return -1
}

// Metrics returns the chain's metrics registry.
func (c *Chain[T]) Metrics() *metricz.Registry {
	return c.metrics
}
