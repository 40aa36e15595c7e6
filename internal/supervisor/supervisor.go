// Package supervisor tracks upload runs: at most one live, cancellable task
// per account handle, plus the serialized bulk reupload sweep. Blocking
// storage activity across accounts is bounded by a weighted semaphore sized
// to the configured worker slots.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/dkorchagin/shareup/internal/logging"
	"github.com/dkorchagin/shareup/internal/models"
	"github.com/dkorchagin/shareup/internal/shared"
	"github.com/dkorchagin/shareup/internal/uploader"
)

// RunFunc executes one account's upload run and returns its outcome.
// The orchestrator's Run method satisfies this signature.
type RunFunc func(ctx context.Context, handle, secret, folderName string, sink uploader.ProgressSink) models.Outcome

// Task is one live, cancellable upload run.
type Task struct {
	ID     uuid.UUID
	Handle string

	cancel  context.CancelFunc
	done    chan struct{}
	outcome models.Outcome
}

// Done is closed when the run has finished, whatever the outcome.
func (t *Task) Done() <-chan struct{} { return t.done }

// Outcome is valid once Done is closed.
func (t *Task) Outcome() models.Outcome { return t.outcome }

// Credential pairs an account handle with its secret for bulk dispatch.
type Credential struct {
	Handle string
	Secret string
}

// Result is one account's entry in a bulk-reupload report.
type Result struct {
	Handle  string
	Outcome models.Outcome
	Err     error
}

// Supervisor owns the live-task registry.
type Supervisor struct {
	run   RunFunc
	log   logging.Logger
	sem   *semaphore.Weighted
	delay time.Duration

	mu    sync.Mutex
	tasks map[string]*Task
}

func New(run RunFunc, workerSlots int64, delay time.Duration, log logging.Logger) *Supervisor {
	return &Supervisor{
		run:   run,
		log:   log,
		sem:   semaphore.NewWeighted(workerSlots),
		delay: delay,
		tasks: make(map[string]*Task),
	}
}

// Dispatch starts an upload run for handle and registers it. A second
// dispatch while a run for the same handle is live returns ErrRunActive.
// The run detaches from the caller's context lifetime; only Cancel (or
// supervisor-wide shutdown via the parent it was built with) stops it.
func (s *Supervisor) Dispatch(ctx context.Context, handle, secret, folderName string, sink uploader.ProgressSink) (*Task, error) {
	s.mu.Lock()
	if _, ok := s.tasks[handle]; ok {
		s.mu.Unlock()
		return nil, shared.ErrRunActive
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t := &Task{ID: uuid.New(), Handle: handle, cancel: cancel, done: make(chan struct{})}
	s.tasks[handle] = t
	s.mu.Unlock()

	s.log.Info(ctx, "upload run dispatched", "handle", handle, "task", t.ID.String())

	go func() {
		defer close(t.done)
		defer s.removeIfCurrent(handle, t)
		defer cancel()

		t.outcome = s.execute(runCtx, handle, secret, folderName, sink)
	}()

	return t, nil
}

// execute runs one account under a worker slot, converting panics in the run
// function into an error outcome so one account can never take down the rest.
func (s *Supervisor) execute(ctx context.Context, handle, secret, folderName string, sink uploader.ProgressSink) (outcome models.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error(ctx, "upload run panicked", "handle", handle, "panic", r)
			outcome = models.Outcome{Kind: models.OutcomeUploadFailed, Err: fmt.Errorf("unexpected failure: %v", r)}
		}
	}()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return models.Outcome{Kind: models.OutcomeUploadFailed, Err: err}
	}
	defer s.sem.Release(1)

	return s.run(ctx, handle, secret, folderName, sink)
}

// Cancel requests cancellation of the live task for handle and removes it
// from the registry immediately. Cancellation is cooperative: the underlying
// storage call may still return later, and its result is discarded.
func (s *Supervisor) Cancel(handle string) bool {
	s.mu.Lock()
	t, ok := s.tasks[handle]
	if ok {
		delete(s.tasks, handle)
	}
	s.mu.Unlock()

	if ok {
		t.cancel()
		s.log.Info(context.Background(), "upload run cancelled", "handle", handle, "task", t.ID.String())
	}
	return ok
}

// Live reports the number of registered tasks.
func (s *Supervisor) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// RunAll reuploads every given account strictly sequentially, pausing the
// configured delay between accounts to bound load on the storage API. Each
// account's failure is captured in its Result; the sweep never halts early
// except on context cancellation.
func (s *Supervisor) RunAll(ctx context.Context, creds []Credential, folderName string, sinkFor func(handle string) uploader.ProgressSink) []Result {
	results := make([]Result, 0, len(creds))

	for i, c := range creds {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return results
			}
		}

		t, err := s.Dispatch(ctx, c.Handle, c.Secret, folderName, sinkFor(c.Handle))
		if err != nil {
			s.log.Error(ctx, "bulk dispatch failed", "handle", c.Handle, "error", err)
			results = append(results, Result{Handle: c.Handle, Err: err})
			continue
		}

		<-t.Done()
		results = append(results, Result{Handle: c.Handle, Outcome: t.Outcome()})
	}

	return results
}

func (s *Supervisor) removeIfCurrent(handle string, t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.tasks[handle]; ok && cur == t {
		delete(s.tasks, handle)
	}
}
