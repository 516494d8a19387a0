package actionz

import (
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestTimeoutCompletesBeforeWatchdog(t *testing.T) {
	o := newTestOrchestrator()
	action := Timeout("guarded", Apply("double", func(n int) (int, error) { return n * 2, nil }), time.Hour, nil)

	var got int
	Call(o, action, 5, func(_ *Orchestrator, out int) { got = out }, func(_ *Orchestrator, err *IOError[int]) {
		t.Fatalf("unexpected failure: %v", err)
	})
	if got != 10 {
		t.Errorf("expected 10, got %d", got)
	}
}

func TestTimeoutFiresWatchdog(t *testing.T) {
	clock := clockz.NewFakeClock()
	sched := NewScheduler(clock)
	o := NewOrchestrator(sched, WithClock(clock))

	never := NewActionFunc("never", func(o *Orchestrator, input int, ok Cont[int], fail Cont[*IOError[int]]) {
		// never settles on its own within the test
	})

	timedOut := false
	action := Timeout("guarded", never, 50*time.Millisecond, func(o *Orchestrator, _ func(), ok Cont[int], _ Cont[*IOError[int]]) {
		timedOut = true
		ok(o, -1)
	})

	var got int
	Call(o, action, 5, func(_ *Orchestrator, out int) { got = out }, func(_ *Orchestrator, err *IOError[int]) {
		t.Errorf("unexpected failure: %v", err)
	})

	done := make(chan struct{})
	go func() {
		sched.Run()
		close(done)
	}()

	clock.BlockUntilReady()
	clock.Advance(50 * time.Millisecond)
	clock.BlockUntilReady()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler never quiesced")
	}

	if !timedOut {
		t.Error("expected watchdog to fire")
	}
	if got != -1 {
		t.Errorf("expected ontimeout's result -1, got %d", got)
	}
}

func TestTimeoutRestartReentersGuardedRegion(t *testing.T) {
	clock := clockz.NewFakeClock()
	sched := NewScheduler(clock)
	o := NewOrchestrator(sched, WithClock(clock))

	attempts := 0
	flaky := NewActionFunc("flaky", func(o *Orchestrator, input int, ok Cont[int], fail Cont[*IOError[int]]) {
		attempts++
		if attempts == 1 {
			// First attempt never settles, forcing the watchdog to fire.
			return
		}
		ok(o, input*10)
	})

	action := Timeout("guarded", flaky, 10*time.Millisecond, func(o *Orchestrator, restart func(), _ Cont[int], _ Cont[*IOError[int]]) {
		restart()
	})

	var got int
	Call(o, action, 3, func(_ *Orchestrator, out int) { got = out }, func(_ *Orchestrator, err *IOError[int]) {
		t.Errorf("unexpected failure: %v", err)
	})

	done := make(chan struct{})
	go func() {
		sched.Run()
		close(done)
	}()

	clock.BlockUntilReady()
	clock.Advance(10 * time.Millisecond)
	clock.BlockUntilReady()
	// The restarted attempt settles synchronously inside the first
	// watchdog's fire, but it also registered (and immediately canceled) a
	// second watchdog timer that still sits in the heap until its own
	// deadline passes - advance past it so the scheduler can discard it and
	// reach quiescence.
	clock.Advance(10 * time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler never quiesced")
	}

	if attempts != 2 {
		t.Errorf("expected 2 attempts (one timed out, one restarted), got %d", attempts)
	}
	if got != 30 {
		t.Errorf("expected 30, got %d", got)
	}
}
