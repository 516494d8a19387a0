package actionz

import (
	"errors"
	"testing"
)

func TestCatchForwardsOnSuccess(t *testing.T) {
	o := newTestOrchestrator()
	action := Catch("guard", Apply("double", func(n int) (int, error) { return n * 2, nil }), Forgive[int]())

	var got int
	Call(o, action, 5, func(_ *Orchestrator, out int) { got = out }, func(_ *Orchestrator, err *IOError[int]) {
		t.Fatalf("unexpected failure: %v", err)
	})
	if got != 10 {
		t.Errorf("expected 10, got %d", got)
	}
}

func TestForgiveSwallowsError(t *testing.T) {
	o := newTestOrchestrator()
	boom := errors.New("boom")
	protected := Apply("fails", func(n int) (int, error) { return 0, boom })
	action := Catch("guard", protected, Forgive[int]())

	var got int
	failed := false
	Call(o, action, 7, func(_ *Orchestrator, out int) { got = out }, func(_ *Orchestrator, _ *IOError[int]) { failed = true })

	if failed {
		t.Fatal("expected Forgive to swallow the error")
	}
	if got != 7 {
		t.Errorf("expected original input 7 forwarded, got %d", got)
	}
}

func TestCatchResume(t *testing.T) {
	o := newTestOrchestrator()
	boom := errors.New("boom")
	protected := Raise[int]("raise", boom)
	action := Catch("guard", protected, func(o *Orchestrator, ioErr *IOError[int], ok Cont[int], _ Cont[*IOError[int]]) {
		ioErr.Resume(99)
	})

	var got int
	Call(o, action, 1, func(_ *Orchestrator, out int) { got = out }, func(_ *Orchestrator, err *IOError[int]) {
		t.Fatalf("unexpected failure: %v", err)
	})
	if got != 99 {
		t.Errorf("expected resumed value 99, got %d", got)
	}
}

func TestCatchRollback(t *testing.T) {
	o := newTestOrchestrator()
	boom := errors.New("boom")
	protected := Raise[int]("raise", boom)
	action := Catch("guard", protected, func(o *Orchestrator, ioErr *IOError[int], _ Cont[int], _ Cont[*IOError[int]]) {
		ioErr.Rollback()
	})

	var rolledBack *IOError[int]
	Call(o, action, 1, func(_ *Orchestrator, out int) {
		t.Fatalf("unexpected success: %v", out)
	}, func(_ *Orchestrator, err *IOError[int]) { rolledBack = err })

	if rolledBack == nil || !errors.Is(rolledBack.Err, boom) {
		t.Errorf("expected rollback to deliver original cause, got %v", rolledBack)
	}
}

func TestCatchRestart(t *testing.T) {
	o := newTestOrchestrator()
	attempts := 0
	protected := Apply("flaky", func(n int) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("not yet")
		}
		return n + 1, nil
	})

	var handler CatchHandler[int]
	handler = func(o *Orchestrator, ioErr *IOError[int], _ Cont[int], _ Cont[*IOError[int]]) {
		ioErr.Restart()
	}
	action := Catch("guard", protected, handler)

	var got int
	Call(o, action, 10, func(_ *Orchestrator, out int) { got = out }, func(_ *Orchestrator, err *IOError[int]) {
		t.Fatalf("unexpected failure after retries: %v", err)
	})
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if got != 11 {
		t.Errorf("expected 11, got %d", got)
	}
}

func TestFinallyRunsCleanupOnSuccessAndFailure(t *testing.T) {
	o := newTestOrchestrator()
	cleanupRuns := 0
	cleanup := Effect("cleanup", func(int) error { cleanupRuns++; return nil })

	t.Run("success path", func(t *testing.T) {
		action := Finally("finally", Pass[int]("ok"), cleanup)
		Call(o, action, 1, func(_ *Orchestrator, _ int) {}, func(_ *Orchestrator, err *IOError[int]) {
			t.Fatalf("unexpected failure: %v", err)
		})
	})

	t.Run("failure path", func(t *testing.T) {
		action := Finally("finally", Fail[int]("boom", errors.New("x")), cleanup)
		Call(o, action, 1, func(_ *Orchestrator, _ int) {}, func(_ *Orchestrator, _ *IOError[int]) {})
	})

	if cleanupRuns != 2 {
		t.Errorf("expected cleanup to run twice, got %d", cleanupRuns)
	}
}

func TestTryAlwaysForwards(t *testing.T) {
	o := newTestOrchestrator()
	observed := false
	action := Try("try", Fail[int]("boom", errors.New("x")), func(_ *Orchestrator, _ *IOError[int]) {
		observed = true
	})

	var got int
	failed := false
	Call(o, action, 3, func(_ *Orchestrator, out int) { got = out }, func(_ *Orchestrator, _ *IOError[int]) { failed = true })

	if failed {
		t.Fatal("expected Try to never fail")
	}
	if !observed {
		t.Error("expected onfail to run")
	}
	if got != 3 {
		t.Errorf("expected original input 3, got %d", got)
	}
}

func TestRaiseThroughSeqIsResumable(t *testing.T) {
	o := newTestOrchestrator()
	action := Seq("wrapper", Raise[int]("raise-site", errors.New("cause")), Pass[int]("never"))

	var ioErr *IOError[int]
	Call(o, action, 1, func(_ *Orchestrator, _ int) {
		t.Fatal("unexpected success")
	}, func(_ *Orchestrator, err *IOError[int]) { ioErr = err })

	if ioErr == nil || ioErr.Resume == nil {
		t.Fatal("expected a resumable IOError from Raise")
	}
}
