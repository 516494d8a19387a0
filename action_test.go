package actionz

import (
	"errors"
	"testing"

	"github.com/zoobzio/clockz"
)

func newTestOrchestrator() *Orchestrator {
	return NewOrchestrator(NewScheduler(clockz.RealClock))
}

func TestPass(t *testing.T) {
	o := newTestOrchestrator()
	action := Pass[int]("pass")

	var got int
	Call(o, action, 7, func(_ *Orchestrator, out int) { got = out }, func(_ *Orchestrator, err *IOError[int]) {
		t.Fatalf("unexpected failure: %v", err)
	})
	if got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if action.Name() != "pass" {
		t.Errorf("expected name 'pass', got %q", action.Name())
	}
}

func TestFail(t *testing.T) {
	o := newTestOrchestrator()
	cause := errors.New("boom")
	action := Fail[string]("fail", cause)

	var ioErr *IOError[string]
	Call(o, action, "x", func(_ *Orchestrator, out string) {
		t.Fatalf("unexpected success: %v", out)
	}, func(_ *Orchestrator, err *IOError[string]) { ioErr = err })

	if ioErr == nil {
		t.Fatal("expected a failure")
	}
	if !errors.Is(ioErr.Err, cause) {
		t.Errorf("expected wrapped cause, got %v", ioErr.Err)
	}
	if len(ioErr.Path) != 1 || ioErr.Path[0] != "fail" {
		t.Errorf("expected path [fail], got %v", ioErr.Path)
	}
}

func TestSupply(t *testing.T) {
	o := newTestOrchestrator()
	action := Supply("supply", 42)

	var got int
	Call(o, action, 999, func(_ *Orchestrator, out int) { got = out }, func(_ *Orchestrator, err *IOError[int]) {
		t.Fatalf("unexpected failure: %v", err)
	})
	if got != 42 {
		t.Errorf("expected 42 regardless of input, got %d", got)
	}
}

func TestActionFuncName(t *testing.T) {
	action := NewActionFunc("custom", func(o *Orchestrator, input int, ok Cont[int], _ Cont[*IOError[int]]) {
		ok(o, input)
	})
	if action.Name() != "custom" {
		t.Errorf("expected 'custom', got %q", action.Name())
	}
}
