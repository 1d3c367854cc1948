package platform

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSupervisorRestartsFailingTask(t *testing.T) {
	var runs atomic.Int32
	restarted := make(chan struct{}, 8)

	s := NewSupervisorWithHooks(
		SupervisorPolicy{InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		SupervisorHooks{OnTaskRestart: func(string, error, int) { restarted <- struct{}{} }},
	)
	defer s.Stop()

	err := s.Start("flaky", func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-restarted:
		case <-time.After(time.Second):
			t.Fatalf("restart %d never happened", i)
		}
	}
	if runs.Load() < 3 {
		t.Fatalf("runs: %d", runs.Load())
	}
}

func TestSupervisorTransientStopsOnCleanExit(t *testing.T) {
	s := NewSupervisor(SupervisorPolicy{InitialBackoff: time.Millisecond})
	defer s.Stop()

	done := make(chan struct{})
	err := s.StartWithPolicy("oneshot", SupervisorRestartTransient, func(ctx context.Context) error {
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	<-done

	deadline := time.After(time.Second)
	for s.Running("oneshot") {
		select {
		case <-deadline:
			t.Fatal("transient task still supervised after clean exit")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestSupervisorMaxRestarts(t *testing.T) {
	failed := make(chan int, 1)
	s := NewSupervisorWithHooks(
		SupervisorPolicy{InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, MaxRestarts: 2},
		SupervisorHooks{OnTaskPermanentFailure: func(_ string, _ error, restarts int) { failed <- restarts }},
	)
	defer s.Stop()

	if err := s.Start("doomed", func(ctx context.Context) error {
		return errors.New("always")
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case restarts := <-failed:
		if restarts != 2 {
			t.Fatalf("permanent failure after %d restarts", restarts)
		}
	case <-time.After(time.Second):
		t.Fatal("task never failed permanently")
	}
}

func TestSupervisorStopCancelsTasks(t *testing.T) {
	s := NewSupervisor(SupervisorPolicy{})
	started := make(chan struct{})
	if err := s.Start("loop", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-started

	s.Stop()
	if s.Running("loop") {
		t.Fatal("task survived Stop")
	}
}

func TestSupervisorRejectsDuplicateNames(t *testing.T) {
	s := NewSupervisor(SupervisorPolicy{})
	defer s.Stop()

	block := func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }
	if err := s.Start("dup", block); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start("dup", block); err == nil {
		t.Fatal("duplicate start accepted")
	}
}
