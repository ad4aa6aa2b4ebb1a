package process

import (
	"errors"
	"testing"
)

func TestStepExecuteBlockingSuccess(t *testing.T) {
	ran := false
	s := NewStep("mark", func() error {
		ran = true
		return nil
	}, nil)

	if err := s.ExecuteBlocking(); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatal("step did not run")
	}
	if s.State() != Succeeded {
		t.Fatalf("expected Succeeded, got %v", s.State())
	}
}

func TestStepExecuteBlockingFailure(t *testing.T) {
	want := errors.New("boom")
	s := NewStep("fail", func() error { return want }, nil)

	err := s.ExecuteBlocking()
	if err != want {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if s.State() != Failed {
		t.Fatalf("expected Failed, got %v", s.State())
	}
}

func TestStepRollbackIsIdempotent(t *testing.T) {
	calls := 0
	s := NewStep("undoable", func() error { return nil }, func(reason error) error {
		calls++
		return nil
	})
	if err := s.ExecuteBlocking(); err != nil {
		t.Fatal(err)
	}

	s.Rollback(nil)
	s.Rollback(nil)
	s.Rollback(nil)

	if calls != 1 {
		t.Fatalf("expected rollback func to run once, ran %d times", calls)
	}
	if s.State() != RolledBack {
		t.Fatalf("expected RolledBack, got %v", s.State())
	}
}

func TestStepRollbackNeverExecutedIsNoOp(t *testing.T) {
	calls := 0
	s := NewStep("never-run", func() error { return nil }, func(reason error) error {
		calls++
		return nil
	})

	if err := s.Rollback(nil); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatal("rollback function should not run for a step that never executed")
	}
}

func TestStepDoubleStartFails(t *testing.T) {
	s := NewStep("twice", func() error { return nil }, nil)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err == nil {
		t.Fatal("expected second Start to fail")
	}
}
