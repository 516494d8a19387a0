package actionz

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
)

// Metric keys for Clock and Debounce.
const (
	ClockTicksTotal    = metricz.Key("clock.ticks.total")
	DebounceFiredTotal = metricz.Key("debounce.fired.total")
	DebounceResetTotal = metricz.Key("debounce.reset.total")
)

// Clock repeatedly calls downstream every interval, on the orchestrator's
// scheduler, until Stop is called. It is a control action over three inputs:
// Start begins ticking, Stop halts it, and Reset zeroes the tick counter for
// the next tick. Unlike Gen (which is driven by a Producer pulling values
// synchronously), Clock is purely time-driven: the value passed to
// downstream on each tick is tickFn(i), where i is the auto-incrementing
// counter since construction or the last Reset.
type Clock[T any] struct {
	name     Name
	interval time.Duration
	tickFn   func(tick int) T
	tick     int
	timer    *Timer
	running  bool
	metrics  *metricz.Registry
}

// NewClock creates a stopped Clock ticking every interval once started.
// tickFn computes the value delivered downstream from the tick counter.
func NewClock[T any](name Name, interval time.Duration, tickFn func(tick int) T) *Clock[T] {
	metrics := metricz.New()
	metrics.Counter(ClockTicksTotal)
	return &Clock[T]{name: name, interval: interval, tickFn: tickFn, metrics: metrics}
}

// Tick returns the number of times the clock has fired since construction
// or the last Reset.
func (c *Clock[T]) Tick() int {
	return c.tick
}

// Start returns an action that begins ticking against downstream every
// interval, starting after the first interval elapses (not immediately).
// Calling Start while already running restarts the interval from now.
func (c *Clock[T]) Start(downstream Action[T]) Action[T] {
	return NewActionFunc(c.name+".start", func(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
		c.running = true
		if c.timer != nil {
			c.timer.Cancel()
		}
		var schedule func()
		schedule = func() {
			c.timer = o.Scheduler().Delay(c.interval, func() {
				if !c.running {
					return
				}
				c.tick++
				c.metrics.Counter(ClockTicksTotal).Inc()
				capitan.Info(context.Background(), SignalClockTick, FieldName.Field(c.name), FieldTick.Field(c.tick))
				Call(o, downstream, c.tickFn(c.tick), func(*Orchestrator, T) {}, func(*Orchestrator, *IOError[T]) {})
				schedule()
			})
		}
		schedule()
		ok(o, input)
	})
}

// Stop returns an action that halts ticking; the clock can be restarted
// with Start afterward. The tick counter is left untouched - only Reset
// zeroes it.
func (c *Clock[T]) Stop() Action[T] {
	return NewActionFunc(c.name+".stop", func(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
		c.running = false
		if c.timer != nil {
			c.timer.Cancel()
		}
		ok(o, input)
	})
}

// Reset returns an action that zeroes the tick counter, so the next tick
// after Reset delivers tickFn(1) again. Reset does not start or stop
// ticking; it only affects what the counter reads on the next fire.
func (c *Clock[T]) Reset() Action[T] {
	return NewActionFunc(c.name+".reset", func(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
		c.tick = 0
		ok(o, input)
	})
}

// Debounce returns an action that forwards its input to downstream only
// after quiet has elapsed with no further activation; each new activation
// within the quiet window cancels the pending delivery and restarts the
// timer with the latest input. Debounce's own success continuation fires
// immediately on every activation (debouncing applies only to downstream),
// so upstream sequencing is never stalled by a quiet period in progress.
func Debounce[T any](name Name, quiet time.Duration, downstream Action[T]) Action[T] {
	metrics := metricz.New()
	metrics.Counter(DebounceFiredTotal)
	metrics.Counter(DebounceResetTotal)

	var timer *Timer
	return NewActionFunc(name, func(o *Orchestrator, input T, ok Cont[T], fail Cont[*IOError[T]]) {
		if timer != nil {
			timer.Cancel()
			metrics.Counter(DebounceResetTotal).Inc()
			capitan.Info(context.Background(), SignalDebounceFired, FieldName.Field(name), FieldReason.Field("reset"))
		}
		timer = o.Scheduler().Delay(quiet, func() {
			metrics.Counter(DebounceFiredTotal).Inc()
			capitan.Info(context.Background(), SignalDebounceFired, FieldName.Field(name), FieldReason.Field("fired"))
			Call(o, downstream, input, func(*Orchestrator, T) {}, func(*Orchestrator, *IOError[T]) {})
		})
		ok(o, input)
	})
}
