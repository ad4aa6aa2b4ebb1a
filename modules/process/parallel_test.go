package process

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestParallelRunsConcurrently(t *testing.T) {
	var mu sync.Mutex
	var ran int
	mk := func() Component {
		return NewStep("chunk-upload", func() error {
			mu.Lock()
			ran++
			mu.Unlock()
			return nil
		}, nil)
	}
	par := NewParallel("upload-chunks", mk(), mk(), mk())

	if err := par.ExecuteBlocking(); err != nil {
		t.Fatal(err)
	}
	if ran != 3 {
		t.Fatalf("expected 3 children to run, ran %d", ran)
	}
	if par.State() != Succeeded {
		t.Fatalf("expected Succeeded, got %v", par.State())
	}
}

func TestParallelRollsBackSucceededOnFailure(t *testing.T) {
	var mu sync.Mutex
	rolledBack := map[int]bool{}
	ok := func(i int) Component {
		return NewStep("chunk-upload", func() error {
			return nil
		}, func(reason error) error {
			mu.Lock()
			rolledBack[i] = true
			mu.Unlock()
			return nil
		})
	}
	want := errors.New("one chunk failed")
	bad := NewStep("chunk-upload", func() error { return want }, nil)

	par := NewParallel("upload-chunks", ok(0), ok(1), bad, ok(2))

	err := par.ExecuteBlocking()
	if err != want {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if par.State() != RolledBack {
		t.Fatalf("expected RolledBack, got %v", par.State())
	}
	for _, i := range []int{0, 1, 2} {
		if !rolledBack[i] {
			t.Fatalf("child %d should have been rolled back", i)
		}
	}
}

func TestParallelCancelsSiblingsOnFailure(t *testing.T) {
	started := make(chan struct{})

	slow := NewStep("slow", func() error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		return nil
	}, nil)

	fast := NewStep("fast", func() error {
		<-started
		return errors.New("fast failure")
	}, nil)

	par := NewParallel("op", slow, fast)

	if err := par.ExecuteBlocking(); err == nil {
		t.Fatal("expected failure")
	}
	if par.State() != RolledBack {
		t.Fatalf("expected RolledBack, got %v", par.State())
	}
}
