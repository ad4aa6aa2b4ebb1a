package process

import (
	"errors"
	"testing"
)

func TestSequentialRunsInOrder(t *testing.T) {
	var order []int
	mk := func(i int) Component {
		return NewStep("step", func() error {
			order = append(order, i)
			return nil
		}, nil)
	}
	seq := NewSequential("add-file", mk(0), mk(1), mk(2))

	if err := seq.ExecuteBlocking(); err != nil {
		t.Fatal(err)
	}
	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Fatalf("steps ran out of order: %v", order)
	}
	if seq.State() != Succeeded {
		t.Fatalf("expected Succeeded, got %v", seq.State())
	}
}

func TestSequentialRollsBackOnFailure(t *testing.T) {
	var rolledBack []int
	rollbackStep := func(i int) Component {
		return NewStep("provide", func() error { return nil }, func(reason error) error {
			rolledBack = append(rolledBack, i)
			return nil
		})
	}
	want := errors.New("upload failed")
	failing := NewStep("upload", func() error { return want }, nil)

	seq := NewSequential("add-file", rollbackStep(0), rollbackStep(1), failing, rollbackStep(2))

	err := seq.ExecuteBlocking()
	if err != want {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if seq.State() != RolledBack {
		t.Fatalf("expected RolledBack, got %v", seq.State())
	}
	// only the two steps that ran before the failure are rolled back, in
	// reverse order; the step after the failure never started.
	if len(rolledBack) != 2 || rolledBack[0] != 1 || rolledBack[1] != 0 {
		t.Fatalf("unexpected rollback order: %v", rolledBack)
	}
}

func TestSequentialInvalidProcessState(t *testing.T) {
	seq := NewSequential("op", NewStep("noop", func() error { return nil }, nil))
	if err := seq.Start(); err != nil {
		t.Fatal(err)
	}
	if err := seq.Start(); err == nil {
		t.Fatal("expected InvalidProcessState on double start")
	}
}
