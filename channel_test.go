package actionz

import "testing"

func TestChanSendBeforeRecvDeliversOnNextTick(t *testing.T) {
	o := newTestOrchestrator()
	ch := NewChan[string]("ch")

	Call(o, ch.Send(), "hello", func(_ *Orchestrator, out string) {
		if out != "hello" {
			t.Errorf("expected Send to forward its input unchanged, got %q", out)
		}
	}, func(_ *Orchestrator, err *IOError[string]) {
		t.Fatalf("unexpected failure: %v", err)
	})

	var received string
	Call(o, ch.Recv(), "", func(_ *Orchestrator, out string) { received = out }, func(_ *Orchestrator, err *IOError[string]) {
		t.Fatalf("unexpected failure: %v", err)
	})

	if received != "" {
		t.Fatal("expected delivery to be deferred to the next scheduler tick")
	}

	runToQuiescence(o)

	if received != "hello" {
		t.Errorf("expected 'hello' delivered after quiescence, got %q", received)
	}
}

func TestChanRecvBeforeSendParksThenDelivers(t *testing.T) {
	o := newTestOrchestrator()
	ch := NewChan[int]("ch")

	var received int
	var gotValue bool
	Call(o, ch.Recv(), 0, func(_ *Orchestrator, out int) {
		received = out
		gotValue = true
	}, func(_ *Orchestrator, err *IOError[int]) {
		t.Fatalf("unexpected failure: %v", err)
	})

	if ch.Waiting() != 1 {
		t.Fatalf("expected one parked receiver, got %d", ch.Waiting())
	}

	Call(o, ch.Send(), 42, func(_ *Orchestrator, _ int) {}, func(_ *Orchestrator, err *IOError[int]) {
		t.Fatalf("unexpected failure: %v", err)
	})

	runToQuiescence(o)

	if !gotValue || received != 42 {
		t.Errorf("expected parked receiver to eventually get 42, got %d (delivered=%v)", received, gotValue)
	}
}

func TestChanFIFOPairing(t *testing.T) {
	o := newTestOrchestrator()
	ch := NewChan[int]("ch")

	var got []int
	for i := 0; i < 3; i++ {
		Call(o, ch.Send(), i, func(_ *Orchestrator, _ int) {}, func(_ *Orchestrator, _ *IOError[int]) {})
	}
	for i := 0; i < 3; i++ {
		Call(o, ch.Recv(), 0, func(_ *Orchestrator, out int) { got = append(got, out) }, func(_ *Orchestrator, _ *IOError[int]) {})
	}

	runToQuiescence(o)

	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Errorf("expected items delivered front-to-front in order, got %v", got)
	}
}

func TestChanLenAndWaitingAccounting(t *testing.T) {
	o := newTestOrchestrator()
	ch := NewChan[int]("ch")

	Call(o, ch.Send(), 1, func(_ *Orchestrator, _ int) {}, func(_ *Orchestrator, _ *IOError[int]) {})
	Call(o, ch.Send(), 2, func(_ *Orchestrator, _ int) {}, func(_ *Orchestrator, _ *IOError[int]) {})

	if ch.Len() != 2 {
		t.Errorf("expected 2 unclaimed items, got %d", ch.Len())
	}
	if ch.Waiting() != 0 {
		t.Errorf("expected 0 waiters, got %d", ch.Waiting())
	}
}
