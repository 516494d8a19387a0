package actionz

import (
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestSchedulerNextTickRunsInFIFOOrder(t *testing.T) {
	sched := NewScheduler(nil)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		sched.NextTick(func() { order = append(order, i) })
	}

	sched.Run()

	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order 0..4, got %v", order)
		}
	}
}

func TestSchedulerNextTickEnqueuedDuringDrainRunsSameCall(t *testing.T) {
	sched := NewScheduler(nil)
	var order []string
	sched.NextTick(func() {
		order = append(order, "first")
		sched.NextTick(func() { order = append(order, "second") })
	})

	sched.Run()

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected tasks enqueued mid-drain to still run within the same Run call, got %v", order)
	}
}

func TestSchedulerDelayFiresAfterDuration(t *testing.T) {
	clock := clockz.NewFakeClock()
	sched := NewScheduler(clock)

	fired := false
	sched.Delay(10*time.Millisecond, func() { fired = true })

	clock.Advance(10 * time.Millisecond)
	sched.fireDueTimers()

	if !fired {
		t.Error("expected the delayed callback to fire once its duration elapsed")
	}
}

func TestSchedulerDelayDoesNotFireEarly(t *testing.T) {
	clock := clockz.NewFakeClock()
	sched := NewScheduler(clock)

	fired := false
	sched.Delay(10*time.Millisecond, func() { fired = true })

	clock.Advance(5 * time.Millisecond)
	sched.fireDueTimers()

	if fired {
		t.Error("expected the delayed callback not to fire before its duration elapses")
	}
}

func TestSchedulerCancelPreventsCallback(t *testing.T) {
	clock := clockz.NewFakeClock()
	sched := NewScheduler(clock)

	fired := false
	timer := sched.Delay(10*time.Millisecond, func() { fired = true })
	timer.Cancel()

	clock.Advance(10 * time.Millisecond)
	sched.fireDueTimers()

	if fired {
		t.Error("expected a canceled timer's callback never to run")
	}
}

func TestSchedulerCancelOnNilTimerIsNoop(t *testing.T) {
	var timer *Timer
	timer.Cancel() // must not panic
}

func TestSchedulerDelayOrderingAtSameInstant(t *testing.T) {
	clock := clockz.NewFakeClock()
	sched := NewScheduler(clock)

	var order []int
	sched.Delay(10*time.Millisecond, func() { order = append(order, 1) })
	sched.Delay(10*time.Millisecond, func() { order = append(order, 2) })
	sched.Delay(10*time.Millisecond, func() { order = append(order, 3) })

	clock.Advance(10 * time.Millisecond)
	sched.fireDueTimers()

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("expected timers scheduled for the same instant to fire in registration order, got %v", order)
	}
}

func TestSchedulerRunReturnsOnceQuiescent(t *testing.T) {
	sched := NewScheduler(nil)
	done := make(chan struct{})
	go func() {
		sched.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return immediately on an empty scheduler")
	}
}
