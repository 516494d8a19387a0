package actionz

import (
	"context"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
)

// Metric keys for Chan.
const (
	ChanSentTotal     = metricz.Key("chan.sent.total")
	ChanReceivedTotal = metricz.Key("chan.received.total")
	ChanParkedTotal   = metricz.Key("chan.parked.total")
	ChanQueueDepth    = metricz.Key("chan.queue.depth")
)

// Chan is a FIFO rendezvous primitive between independent action sequences:
// a queue of unclaimed items and a queue of waiting receivers. Delivery
// always happens via the scheduler's next tick, so receipt is asynchronous
// with respect to the send that produced it even when a receiver is already
// waiting.
//
// Order guarantee: the k-th item delivered to a given receiver sequence is
// the k-th item sent at the time that receiver was dequeued from the
// waiter queue. With multiple independent receivers pulling from the same
// Chan, per-receiver ordering across interleaved receives is undefined -
// only the overall multiset of sent values equals the multiset received.
type Chan[T any] struct {
	name    Name
	items   []T
	waiters []Cont[T]
	metrics *metricz.Registry
}

// NewChan creates an empty channel.
func NewChan[T any](name Name) *Chan[T] {
	metrics := metricz.New()
	metrics.Counter(ChanSentTotal)
	metrics.Counter(ChanReceivedTotal)
	metrics.Counter(ChanParkedTotal)
	metrics.Gauge(ChanQueueDepth)
	return &Chan[T]{name: name, metrics: metrics}
}

// Send returns an action that enqueues its input onto the channel, flushes
// any waiting receiver against it on the next scheduler tick, and
// immediately forwards its input unchanged to its own success continuation
// (sending never blocks the sender).
func (c *Chan[T]) Send() Action[T] {
	return NewActionFunc(c.name+".send", func(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
		c.metrics.Counter(ChanSentTotal).Inc()
		c.items = append(c.items, input)
		c.metrics.Gauge(ChanQueueDepth).Set(float64(len(c.items)))
		capitan.Info(context.Background(), SignalChanSend, FieldName.Field(c.name), FieldQueueDepth.Field(len(c.items)))
		c.flush(o)
		ok(o, input)
	})
}

// Recv returns an action that ignores its input: if an item is already
// queued, it is delivered to the success continuation on the next scheduler
// tick; otherwise the success continuation is parked as a waiter until a
// matching Send arrives.
func (c *Chan[T]) Recv() Action[T] {
	return NewActionFunc(c.name+".recv", func(o *Orchestrator, _ T, ok Cont[T], _ Cont[*IOError[T]]) {
		c.waiters = append(c.waiters, ok)
		c.metrics.Counter(ChanParkedTotal).Inc()
		c.flush(o)
	})
}

// flush pairs waiters and items front-to-front, delivering each pairing on
// its own scheduler tick.
func (c *Chan[T]) flush(o *Orchestrator) {
	for len(c.items) > 0 && len(c.waiters) > 0 {
		item := c.items[0]
		c.items = c.items[1:]
		waiter := c.waiters[0]
		c.waiters = c.waiters[1:]
		c.metrics.Gauge(ChanQueueDepth).Set(float64(len(c.items)))

		o.Scheduler().NextTick(func() {
			c.metrics.Counter(ChanReceivedTotal).Inc()
			capitan.Info(context.Background(), SignalChanRecv, FieldName.Field(c.name))
			waiter(o, item)
		})
	}
}

// Len returns the number of items currently queued, unclaimed by any
// waiting receiver.
func (c *Chan[T]) Len() int {
	return len(c.items)
}

// Waiting returns the number of receivers currently parked.
func (c *Chan[T]) Waiting() int {
	return len(c.waiters)
}

// Metrics returns this channel's metrics registry.
func (c *Chan[T]) Metrics() *metricz.Registry {
	return c.metrics
}
