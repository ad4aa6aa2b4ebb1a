package process

import "testing"

func TestEngineExecuteBlocking(t *testing.T) {
	e := NewEngine()
	s := NewStep("noop", func() error { return nil }, nil)

	if err := e.ExecuteBlocking(s); err != nil {
		t.Fatal(err)
	}
	if s.State() != Succeeded {
		t.Fatalf("expected Succeeded, got %v", s.State())
	}
}

func TestEngineStopWaitsForRunningProcesses(t *testing.T) {
	e := NewEngine()
	done := make(chan struct{})
	s := NewStep("slow", func() error {
		<-done
		return nil
	}, nil)

	if err := e.Start(s); err != nil {
		t.Fatal(err)
	}

	stopped := make(chan error, 1)
	go func() { stopped <- e.Stop() }()

	close(done)
	if err := <-stopped; err != nil {
		t.Fatal(err)
	}
}

func TestEngineRejectsStartAfterStop(t *testing.T) {
	e := NewEngine()
	if err := e.Stop(); err != nil {
		t.Fatal(err)
	}
	s := NewStep("noop", func() error { return nil }, nil)
	if err := e.Start(s); err == nil {
		t.Fatal("expected Start after Stop to fail")
	}
}
