package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubSweeper struct {
	mu     sync.Mutex
	calls  int
	err    error
	notify chan struct{}
}

func (s *stubSweeper) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
	if s.err != nil {
		return 0, s.err
	}
	return 1, nil
}

func (s *stubSweeper) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestLoop_RunSweepsOnInterval(t *testing.T) {
	sweeper := &stubSweeper{notify: make(chan struct{}, 1)}
	loop := NewLoop(sweeper, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	select {
	case <-sweeper.notify:
	case <-time.After(time.Second):
		t.Fatal("Expected at least one sweep within a second")
	}

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected loop to stop after cancellation")
	}
}

func TestLoop_ContinuesAfterSweepError(t *testing.T) {
	sweeper := &stubSweeper{err: errors.New("boom"), notify: make(chan struct{}, 1)}
	loop := NewLoop(sweeper, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	deadline := time.After(time.Second)
	for sweeper.callCount() < 2 {
		select {
		case <-sweeper.notify:
		case <-deadline:
			t.Fatal("Expected loop to keep sweeping after errors")
		}
	}

	cancel()
	<-done
}

func TestLoop_RunRequiresSweeper(t *testing.T) {
	loop := NewLoop(nil, time.Second, nil)
	if err := loop.Run(context.Background()); err == nil {
		t.Fatal("Expected error for missing sweeper")
	}
}
