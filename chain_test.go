package actionz

import (
	"errors"
	"testing"
)

func appendAction(tag string) Action[[]string] {
	return NewActionFunc(tag, func(o *Orchestrator, input []string, ok Cont[[]string], _ Cont[*IOError[[]string]]) {
		ok(o, append(append([]string{}, input...), tag))
	})
}

func TestSeqOrder(t *testing.T) {
	o := newTestOrchestrator()
	chain := Seq("ab", appendAction("a"), appendAction("b"))

	var got []string
	Call(o, chain, nil, func(_ *Orchestrator, out []string) { got = out }, func(_ *Orchestrator, err *IOError[[]string]) {
		t.Fatalf("unexpected failure: %v", err)
	})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected [a b], got %v", got)
	}
}

func TestChainFoldOrderLeftToRight(t *testing.T) {
	o := newTestOrchestrator()
	chain := NewChain("abc", appendAction("a"), appendAction("b"), appendAction("c"))

	var got []string
	Call(o, chain, nil, func(_ *Orchestrator, out []string) { got = out }, func(_ *Orchestrator, err *IOError[[]string]) {
		t.Fatalf("unexpected failure: %v", err)
	})
	want := []string{"a", "b", "c"}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestChainEmptyActsAsPass(t *testing.T) {
	o := newTestOrchestrator()
	chain := NewChain[[]string]("empty")

	var got []string
	called := false
	Call(o, chain, []string{"seed"}, func(_ *Orchestrator, out []string) {
		called = true
		got = out
	}, func(_ *Orchestrator, err *IOError[[]string]) {
		t.Fatalf("unexpected failure: %v", err)
	})
	if !called || len(got) != 1 || got[0] != "seed" {
		t.Errorf("expected passthrough of [seed], got %v", got)
	}
}

func TestChainMutation(t *testing.T) {
	chain := NewChain("m", appendAction("a"), appendAction("c"))

	chain.Push(appendAction("d"))
	chain.Unshift(appendAction("z"))
	if err := chain.After("a", appendAction("b")); err != nil {
		t.Fatalf("After failed: %v", err)
	}

	names := chain.Names()
	want := []string{"z", "a", "b", "c", "d"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}

	popped, err := chain.Pop()
	if err != nil || popped.Name() != "d" {
		t.Fatalf("expected to pop 'd', got %v err=%v", popped, err)
	}

	shifted, err := chain.Shift()
	if err != nil || shifted.Name() != "z" {
		t.Fatalf("expected to shift 'z', got %v err=%v", shifted, err)
	}
}

func TestChainEmptyPopShiftErrors(t *testing.T) {
	chain := NewChain[int]("empty")
	if _, err := chain.Pop(); !errors.Is(err, ErrEmptyChain) {
		t.Errorf("expected ErrEmptyChain, got %v", err)
	}
	if _, err := chain.Shift(); !errors.Is(err, ErrEmptyChain) {
		t.Errorf("expected ErrEmptyChain, got %v", err)
	}
}

func TestChainIndexOutOfBounds(t *testing.T) {
	chain := NewChain("c", appendAction("a"))
	if err := chain.RemoveAt(5); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Errorf("expected ErrIndexOutOfBounds, got %v", err)
	}
	if err := chain.Replace(5, appendAction("x")); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Errorf("expected ErrIndexOutOfBounds, got %v", err)
	}
}

func TestSend(t *testing.T) {
	o := newTestOrchestrator()
	action := Send("send-five", 5, Apply("double", func(n int) (int, error) { return n * 2, nil }))

	var got int
	Call(o, action, 999, func(_ *Orchestrator, out int) { got = out }, func(_ *Orchestrator, err *IOError[int]) {
		t.Fatalf("unexpected failure: %v", err)
	})
	if got != 10 {
		t.Errorf("expected 10 (ignoring inbound 999), got %d", got)
	}
}

func TestBind(t *testing.T) {
	target := newTestOrchestrator()
	caller := newTestOrchestrator()
	action := Bind("bind", target, Pass[int]("inner"))

	var seen *Orchestrator
	Call(caller, action, 1, func(o *Orchestrator, _ int) { seen = o }, func(_ *Orchestrator, err *IOError[int]) {
		t.Fatalf("unexpected failure: %v", err)
	})
	if seen != target {
		t.Error("expected Bind to dispatch on the target orchestrator")
	}
}

func TestBranchIgnoresCallerContinuations(t *testing.T) {
	o := newTestOrchestrator()
	var branchOK bool
	branch := Branch("branch", Pass[int]("inner"),
		func(_ *Orchestrator, _ int) { branchOK = true },
		func(_ *Orchestrator, _ *IOError[int]) {},
	)

	callerCalled := false
	Call(o, branch, 1, func(_ *Orchestrator, _ int) { callerCalled = true }, func(_ *Orchestrator, _ *IOError[int]) { callerCalled = true })

	if !branchOK {
		t.Error("expected branch's own ok to fire")
	}
	if callerCalled {
		t.Error("expected caller's continuations to never fire")
	}
}
