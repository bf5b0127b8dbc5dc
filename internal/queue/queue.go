// Package queue implements the in-process task queue the import pipeline
// schedules chunks on.
//
// Jobs are fire-and-forget: Submit enqueues and returns immediately, a fixed
// pool of workers executes with no ordering guarantee, and a failed job is
// re-run up to a bounded number of attempts (at-least-once semantics). One
// job's failure never touches its siblings. The queue tracks per-group
// completion counters so callers can report progress for work they no longer
// hold a handle to.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is one independently schedulable, independently retryable unit of work.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Group keys related jobs for status tracking, e.g. one import run.
	Group() string

	Execute(ctx context.Context) error
}

// ErrQueueClosed is returned by Submit after Close.
var ErrQueueClosed = errors.New("queue closed")

// ErrQueueFull is returned by Submit when the buffer is at capacity.
var ErrQueueFull = errors.New("queue full")

// Defaults applied when Config fields are zero.
const (
	DefaultWorkers     = 4
	DefaultBuffer      = 256
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

// Config holds queue tuning knobs.
type Config struct {
	Workers     int
	Buffer      int
	MaxAttempts int
	RetryDelay  time.Duration
}

// GroupStatus is a snapshot of one group's progress.
type GroupStatus struct {
	Submitted int `json:"submitted"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"` // permanently failed (retries exhausted)
}

// Pending reports how many jobs are still queued or running.
func (s GroupStatus) Pending() int {
	return s.Submitted - s.Completed - s.Failed
}

type pendingJob struct {
	job     Job
	attempt int
}

// Queue is a bounded task queue with a fixed worker pool.
type Queue struct {
	cfg  Config
	jobs chan pendingJob
	wg   sync.WaitGroup
	log  *slog.Logger

	mu       sync.Mutex
	closed   bool
	active   int
	retrying int
	groups   map[string]*GroupStatus
}

// New creates a queue. Call Start to launch the workers.
func New(cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBuffer
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	return &Queue{
		cfg:    cfg,
		jobs:   make(chan pendingJob, cfg.Buffer),
		log:    slog.With("component", "queue"),
		groups: make(map[string]*GroupStatus),
	}
}

// Start launches the worker pool. Workers run until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	q.log.Info("task queue started", "workers", q.cfg.Workers, "buffer", q.cfg.Buffer)
}

// Submit enqueues a job without waiting for execution. It fails fast when
// the buffer is full rather than blocking the caller.
func (q *Queue) Submit(job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	st := q.groupLocked(job.Group())
	st.Submitted++
	q.mu.Unlock()

	select {
	case q.jobs <- pendingJob{job: job, attempt: 1}:
		return nil
	default:
		q.mu.Lock()
		st.Submitted--
		q.mu.Unlock()
		return ErrQueueFull
	}
}

// Status returns the progress snapshot for a group, and whether the group is
// known at all.
func (q *Queue) Status(group string) (GroupStatus, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.groups[group]
	if !ok {
		return GroupStatus{}, false
	}
	return *st, true
}

// ActiveCount returns the number of jobs currently executing.
func (q *Queue) ActiveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Close stops accepting submissions. Jobs already queued keep executing
// until the Start context is cancelled; use WaitForDrain to let them finish.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// WaitForDrain blocks until no job is queued or executing, or ctx expires.
// Used for graceful shutdown.
func (q *Queue) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			q.mu.Lock()
			idle := q.active == 0 && q.retrying == 0 && len(q.jobs) == 0
			q.mu.Unlock()
			if idle {
				return nil
			}
		}
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	log := q.log.With("worker", id)

	for {
		select {
		case <-ctx.Done():
			return
		case pending := <-q.jobs:
			q.run(ctx, log, pending)
		}
	}
}

func (q *Queue) run(ctx context.Context, log *slog.Logger, pending pendingJob) {
	q.mu.Lock()
	q.active++
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.active--
		q.mu.Unlock()
	}()

	job := pending.job
	start := time.Now()
	err := q.execute(ctx, job)
	if err == nil {
		q.mu.Lock()
		q.groupLocked(job.Group()).Completed++
		q.mu.Unlock()
		log.Info("job completed",
			"job", job.Name(),
			"attempt", pending.attempt,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}

	if pending.attempt >= q.cfg.MaxAttempts {
		q.mu.Lock()
		q.groupLocked(job.Group()).Failed++
		q.mu.Unlock()
		log.Error("job failed permanently",
			"job", job.Name(),
			"attempts", pending.attempt,
			"error", err,
		)
		return
	}

	log.Warn("job failed, will retry",
		"job", job.Name(),
		"attempt", pending.attempt,
		"error", err,
	)
	q.retry(ctx, pendingJob{job: job, attempt: pending.attempt + 1})
}

// execute shields the worker from panicking jobs: a panic is demoted to an
// error and goes through the normal retry path.
func (q *Queue) execute(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(err, errorFromPanic(r))
		}
	}()
	return job.Execute(ctx)
}

// retry re-enqueues after a delay without occupying the worker slot.
func (q *Queue) retry(ctx context.Context, pending pendingJob) {
	q.mu.Lock()
	q.retrying++
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer func() {
			q.mu.Lock()
			q.retrying--
			q.mu.Unlock()
		}()

		select {
		case <-ctx.Done():
			return
		case <-time.After(q.cfg.RetryDelay):
		}

		select {
		case q.jobs <- pending:
		case <-ctx.Done():
		}
	}()
}

func (q *Queue) groupLocked(group string) *GroupStatus {
	st, ok := q.groups[group]
	if !ok {
		st = &GroupStatus{}
		q.groups[group] = st
	}
	return st
}

func errorFromPanic(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("job panic: %w", err)
	}
	return fmt.Errorf("job panic: %v", r)
}
