package actionz

import (
	"context"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
)

// Metric keys for Sync.
const (
	SyncWaitsTotal     = metricz.Key("sync.waits.total")
	SyncReleasedTotal  = metricz.Key("sync.released.total")
)

// Sync is a single-shot join barrier: Now parks its caller until N
// completions of Later have been observed, then fires with whatever input
// Now itself was called with. Because every action in this package runs on
// one cooperative scheduler, the waiter count and recorded continuation need
// no lock - they are only ever touched from callbacks running on the
// orchestrator's own turn.
//
// Sync fires at most once. Calling Now a second time after it has already
// fired panics, as does calling Later more than N times before Now has been
// called - a programming error in the combinator graph. Once the gate has
// fired, further Later calls just pass their input through. When the action
// is invoked through the package-level Call, that Call's panic recovery
// delivers the panic to the failure continuation as an IOError.
type Sync[T any] struct {
	name     Name
	n        int
	pending  int
	now      Cont[T]
	input    T
	haveNow  bool
	fired    bool
	metrics  *metricz.Registry
}

// NewSync creates a Sync gate that releases once Later has been called n
// times.
func NewSync[T any](name Name, n int) *Sync[T] {
	metrics := metricz.New()
	metrics.Counter(SyncWaitsTotal)
	metrics.Counter(SyncReleasedTotal)
	return &Sync[T]{name: name, n: n, pending: n, metrics: metrics}
}

// Now returns the action that records the success continuation and the
// input to deliver once the gate releases, then parks (no continuation is
// invoked immediately, unless all n Later calls have already arrived).
func (s *Sync[T]) Now() Action[T] {
	return NewActionFunc(s.name+".now", func(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
		if s.fired {
			panic("actionz: Sync.Now called after the gate already fired")
		}
		s.metrics.Counter(SyncWaitsTotal).Inc()
		s.now = ok
		s.input = input
		s.haveNow = true
		if s.pending <= 0 {
			s.release(o)
			return
		}
		capitan.Info(context.Background(), SignalSyncAcquired, FieldName.Field(s.name), FieldWaiters.Field(s.pending))
	})
}

// Later returns the action that counts down one pending release. Its own
// input, success, and failure continuations are unused beyond completing
// immediately with its input unchanged - it exists purely to be composed
// into N independent sequences, each calling it once they reach the join
// point.
func (s *Sync[T]) Later() Action[T] {
	return NewActionFunc(s.name+".later", func(o *Orchestrator, input T, ok Cont[T], _ Cont[*IOError[T]]) {
		if s.fired {
			ok(o, input)
			return
		}
		s.pending--
		if s.pending < 0 {
			panic("actionz: Sync.Later called more times than configured")
		}
		if s.pending == 0 && s.haveNow {
			s.release(o)
		} else {
			capitan.Info(context.Background(), SignalSyncWaiting, FieldName.Field(s.name), FieldWaiters.Field(s.pending))
		}
		ok(o, input)
	})
}

func (s *Sync[T]) release(o *Orchestrator) {
	s.fired = true
	s.metrics.Counter(SyncReleasedTotal).Inc()
	capitan.Info(context.Background(), SignalSyncReleased, FieldName.Field(s.name), FieldWaiters.Field(s.n))
	now := s.now
	input := s.input
	now(o, input)
}

// Metrics returns this Sync gate's metrics registry.
func (s *Sync[T]) Metrics() *metricz.Registry {
	return s.metrics
}
