package actionz

import "testing"

func TestSyncReleasesOnceLaterReachesCount(t *testing.T) {
	o := newTestOrchestrator()
	gate := NewSync[string]("gate", 2)

	var released string
	Call(o, gate.Now(), "payload", func(_ *Orchestrator, out string) { released = out }, func(_ *Orchestrator, err *IOError[string]) {
		t.Fatalf("unexpected failure: %v", err)
	})
	if released != "" {
		t.Fatal("expected gate to stay parked before Later has fired enough times")
	}

	Call(o, gate.Later(), "", func(_ *Orchestrator, _ string) {}, func(_ *Orchestrator, _ *IOError[string]) {})
	if released != "" {
		t.Fatal("expected gate to still be parked after only one Later")
	}

	Call(o, gate.Later(), "", func(_ *Orchestrator, _ string) {}, func(_ *Orchestrator, _ *IOError[string]) {})
	if released != "payload" {
		t.Errorf("expected gate to release with 'payload', got %q", released)
	}
}

func TestSyncReleasesImmediatelyWhenZero(t *testing.T) {
	o := newTestOrchestrator()
	gate := NewSync[int]("gate", 0)

	var got int
	Call(o, gate.Now(), 42, func(_ *Orchestrator, out int) { got = out }, func(_ *Orchestrator, err *IOError[int]) {
		t.Fatalf("unexpected failure: %v", err)
	})
	if got != 42 {
		t.Errorf("expected immediate release with 42, got %d", got)
	}
}

func TestSyncLaterAfterFireIsNoop(t *testing.T) {
	o := newTestOrchestrator()
	gate := NewSync[int]("gate", 1)

	Call(o, gate.Now(), 1, func(_ *Orchestrator, _ int) {}, func(_ *Orchestrator, _ *IOError[int]) {})
	Call(o, gate.Later(), 1, func(_ *Orchestrator, _ int) {}, func(_ *Orchestrator, _ *IOError[int]) {})

	// A second Later call after the gate has already fired must not panic.
	var got int
	Call(o, gate.Later(), 7, func(_ *Orchestrator, out int) { got = out }, func(_ *Orchestrator, _ *IOError[int]) {})
	if got != 7 {
		t.Errorf("expected post-fire Later to just pass through, got %d", got)
	}
}

func TestSyncNowTwicePanics(t *testing.T) {
	o := newTestOrchestrator()
	gate := NewSync[int]("gate", 1)
	Call(o, gate.Now(), 1, func(_ *Orchestrator, _ int) {}, func(_ *Orchestrator, _ *IOError[int]) {})
	Call(o, gate.Later(), 1, func(_ *Orchestrator, _ int) {}, func(_ *Orchestrator, _ *IOError[int]) {})

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected a second Now() call to panic")
		}
	}()
	// Invoke the action directly: the package-level Call would recover the
	// panic into the failure continuation.
	gate.Now().Call(o, 2, func(_ *Orchestrator, _ int) {}, func(_ *Orchestrator, _ *IOError[int]) {})
}
