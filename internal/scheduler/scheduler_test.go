package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"librarian/internal/scheduler"
)

func newRunning(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	s := scheduler.New(nil)
	s.Start(context.Background())
	t.Cleanup(s.Shutdown)
	return s
}

func TestRunsScheduledTask(t *testing.T) {
	s := newRunning(t)
	done := make(chan struct{})
	if !s.Schedule("once", func(ctx context.Context) error {
		close(done)
		return nil
	}) {
		t.Fatal("Schedule refused")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestReadyTimeOrdering(t *testing.T) {
	s := newRunning(t)

	var mu sync.Mutex
	var order []string
	record := func(name string) scheduler.Func {
		return func(ctx context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	done := make(chan struct{})
	s.Schedule("slow", record("slow"), scheduler.WithDelay(150*time.Millisecond))
	s.Schedule("fast", record("fast"), scheduler.WithDelay(20*time.Millisecond))
	s.Schedule("last", func(ctx context.Context) error {
		close(done)
		return nil
	}, scheduler.WithDelay(300*time.Millisecond))

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("tasks did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "fast" || order[1] != "slow" {
		t.Fatalf("expected later-scheduled smaller delay to run first, got %v", order)
	}
}

func TestTasksNeverOverlap(t *testing.T) {
	s := newRunning(t)

	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		s.Schedule("overlap", func(ctx context.Context) error {
			defer wg.Done()
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			inFlight--
			mu.Unlock()
			return nil
		})
	}
	wg.Wait()
	if maxInFlight != 1 {
		t.Fatalf("tasks overlapped: max in flight %d", maxInFlight)
	}
}

func TestErrorDoesNotStopLoop(t *testing.T) {
	s := newRunning(t)
	done := make(chan struct{})
	s.Schedule("bad", func(ctx context.Context) error {
		return errors.New("boom")
	})
	s.Schedule("good", func(ctx context.Context) error {
		close(done)
		return nil
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler stopped after task error")
	}
}

func TestPeriodicReschedules(t *testing.T) {
	s := newRunning(t)
	runs := make(chan struct{}, 10)
	s.Schedule("tick", func(ctx context.Context) error {
		runs <- struct{}{}
		return nil
	}, scheduler.Periodic(scheduler.EveryInterval(10*time.Millisecond)))

	for i := 0; i < 3; i++ {
		select {
		case <-runs:
		case <-time.After(2 * time.Second):
			t.Fatalf("periodic task ran only %d times", i)
		}
	}
}

func TestShutdownDropsPending(t *testing.T) {
	s := scheduler.New(nil)
	s.Start(context.Background())

	ran := make(chan struct{}, 1)
	s.Schedule("pending", func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	}, scheduler.WithDelay(time.Hour))

	s.Shutdown()
	if s.Schedule("after", func(ctx context.Context) error { return nil }) {
		t.Fatal("Schedule accepted after shutdown")
	}
	select {
	case <-ran:
		t.Fatal("pending task ran despite shutdown")
	case <-time.After(50 * time.Millisecond):
	}
}
