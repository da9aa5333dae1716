// Package scheduler runs deferred and periodic jobs on a single cooperative
// worker.
//
// Tasks never run in parallel with each other, so components can route
// serialized writes through the scheduler instead of taking their own locks.
// Ready tasks run in FIFO order of their ready time: a later-scheduled task
// with a smaller delay may run before an earlier-scheduled one with a larger
// delay.
package scheduler

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"librarian/internal/logging"
)

// Func is a schedulable job body.
type Func func(ctx context.Context) error

// DelayFunc computes the next delay for a periodic job from the previous one.
type DelayFunc func(prev time.Duration) time.Duration

type job struct {
	name     string
	fn       Func
	readyAt  time.Time
	seq      uint64
	delay    time.Duration
	periodic DelayFunc
}

// Option configures a scheduled job.
type Option func(*job)

// WithDelay defers the job's first run.
func WithDelay(d time.Duration) Option {
	return func(j *job) {
		if d > 0 {
			j.delay = d
		}
	}
}

// Periodic re-enqueues the job after each successful completion using next
// to compute the following delay.
func Periodic(next DelayFunc) Option {
	return func(j *job) {
		j.periodic = next
	}
}

// EveryInterval returns a DelayFunc with a fixed period.
func EveryInterval(period time.Duration) DelayFunc {
	return func(time.Duration) time.Duration { return period }
}

// Scheduler owns the worker loop. Construct with New, then Start.
type Scheduler struct {
	logger *slog.Logger

	mu      sync.Mutex
	queue   jobQueue
	seq     uint64
	wake    chan struct{}
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a stopped scheduler.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		logger: logging.NewComponentLogger(logger, "scheduler"),
		wake:   make(chan struct{}, 1),
	}
}

// Start launches the worker loop. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.loop(runCtx)
}

// Shutdown stops the worker. The in-flight task completes; pending tasks are
// dropped. Blocks until the loop exits.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// Schedule enqueues a named job. Returns false when the scheduler has shut
// down.
func (s *Scheduler) Schedule(name string, fn Func, opts ...Option) bool {
	j := &job{name: name, fn: fn}
	for _, opt := range opts {
		opt(j)
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.seq++
	j.seq = s.seq
	j.readyAt = time.Now().Add(j.delay)
	heap.Push(&s.queue, j)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// Pending reports the number of queued jobs, not counting one in flight.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.queue = nil
		close(s.done)
		s.mu.Unlock()
	}()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		var next *job
		if s.queue.Len() > 0 {
			next = s.queue[0]
		}
		s.mu.Unlock()

		if next == nil {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
			}
			continue
		}

		wait := time.Until(next.readyAt)
		if wait > 0 {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			case <-timer.C:
			}
		}

		s.mu.Lock()
		if s.queue.Len() == 0 {
			s.mu.Unlock()
			continue
		}
		j := heap.Pop(&s.queue).(*job)
		s.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		s.run(ctx, j)
	}
}

func (s *Scheduler) run(ctx context.Context, j *job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked", logging.String("task", j.name), logging.Any("panic", r))
			s.requeue(j)
		}
	}()

	if err := j.fn(ctx); err != nil {
		s.logger.Warn("task failed", logging.String("task", j.name), logging.Error(err))
	}
	s.requeue(j)
}

// requeue re-enqueues periodic jobs after completion.
func (s *Scheduler) requeue(j *job) {
	if j.periodic == nil {
		return
	}
	delay := j.periodic(j.delay)
	if delay < 0 {
		delay = 0
	}
	j.delay = delay

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.seq++
	j.seq = s.seq
	j.readyAt = time.Now().Add(delay)
	heap.Push(&s.queue, j)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// jobQueue orders jobs by ready time, then scheduling sequence.
type jobQueue []*job

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	if !q[i].readyAt.Equal(q[j].readyAt) {
		return q[i].readyAt.Before(q[j].readyAt)
	}
	return q[i].seq < q[j].seq
}

func (q jobQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *jobQueue) Push(x any) { *q = append(*q, x.(*job)) }

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
