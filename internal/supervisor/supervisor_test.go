package supervisor

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkorchagin/shareup/internal/logging"
	"github.com/dkorchagin/shareup/internal/models"
	"github.com/dkorchagin/shareup/internal/shared"
	"github.com/dkorchagin/shareup/internal/uploader"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

// blockingRun returns a RunFunc that blocks until released (or the context
// is cancelled) and records the handles it ran.
type blockingRun struct {
	mu      sync.Mutex
	started chan string
	release chan struct{}
	ran     []string
	outcome models.Outcome
}

func newBlockingRun() *blockingRun {
	return &blockingRun{
		started: make(chan string, 16),
		release: make(chan struct{}),
		outcome: models.Outcome{Kind: models.OutcomeSuccess},
	}
}

func (b *blockingRun) fn(ctx context.Context, handle, secret, folderName string, sink uploader.ProgressSink) models.Outcome {
	b.mu.Lock()
	b.ran = append(b.ran, handle)
	b.mu.Unlock()
	b.started <- handle

	select {
	case <-b.release:
		return b.outcome
	case <-ctx.Done():
		return models.Outcome{Kind: models.OutcomeUploadFailed, Err: ctx.Err()}
	}
}

func TestDispatchRefusesSecondLiveRun(t *testing.T) {
	ctx := context.Background()
	run := newBlockingRun()
	s := New(run.fn, 3, 0, testLogger())

	task, err := s.Dispatch(ctx, "a@example.com", "pw", "Films", uploader.NopSink)
	require.NoError(t, err)
	<-run.started

	_, err = s.Dispatch(ctx, "a@example.com", "pw", "Films", uploader.NopSink)
	assert.ErrorIs(t, err, shared.ErrRunActive)
	assert.Equal(t, 1, s.Live())

	close(run.release)
	<-task.Done()
	assert.Equal(t, models.OutcomeSuccess, task.Outcome().Kind)
	assert.Zero(t, s.Live(), "finished task must leave the registry")
}

func TestDispatchAfterCompletionIsAllowed(t *testing.T) {
	ctx := context.Background()
	done := models.Outcome{Kind: models.OutcomeSuccess}
	s := New(func(context.Context, string, string, string, uploader.ProgressSink) models.Outcome {
		return done
	}, 3, 0, testLogger())

	first, err := s.Dispatch(ctx, "a@example.com", "pw", "Films", uploader.NopSink)
	require.NoError(t, err)
	<-first.Done()

	second, err := s.Dispatch(ctx, "a@example.com", "pw", "Films", uploader.NopSink)
	require.NoError(t, err)
	<-second.Done()
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCancelRemovesImmediatelyAndStopsRun(t *testing.T) {
	ctx := context.Background()
	run := newBlockingRun()
	s := New(run.fn, 3, 0, testLogger())

	task, err := s.Dispatch(ctx, "a@example.com", "pw", "Films", uploader.NopSink)
	require.NoError(t, err)
	<-run.started

	assert.True(t, s.Cancel("a@example.com"))
	assert.Zero(t, s.Live(), "cancel must evict the registry entry before the run finishes")

	<-task.Done()
	assert.ErrorIs(t, task.Outcome().Err, context.Canceled)
}

func TestCancelUnknownHandle(t *testing.T) {
	s := New(newBlockingRun().fn, 3, 0, testLogger())
	assert.False(t, s.Cancel("missing@example.com"))
}

func TestRunAllIsSequentialAndSurvivesFailures(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var order []string
	var concurrent, maxConcurrent int

	s := New(func(_ context.Context, handle, _, _ string, _ uploader.ProgressSink) models.Outcome {
		mu.Lock()
		concurrent++
		if concurrent > maxConcurrent {
			maxConcurrent = concurrent
		}
		order = append(order, handle)
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		concurrent--
		mu.Unlock()

		if handle == "c@example.com" {
			panic("account three exploded")
		}
		return models.Outcome{Kind: models.OutcomeSuccess}
	}, 3, time.Millisecond, testLogger())

	creds := []Credential{
		{Handle: "a@example.com", Secret: "pw"},
		{Handle: "b@example.com", Secret: "pw"},
		{Handle: "c@example.com", Secret: "pw"},
		{Handle: "d@example.com", Secret: "pw"},
	}

	results := s.RunAll(ctx, creds, "Films", func(string) uploader.ProgressSink { return uploader.NopSink })

	require.Len(t, results, 4, "one result per account, the sweep never halts early")
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"}, order)
	assert.Equal(t, 1, maxConcurrent, "bulk reupload runs accounts strictly sequentially")

	assert.Equal(t, models.OutcomeSuccess, results[0].Outcome.Kind)
	assert.Equal(t, models.OutcomeSuccess, results[1].Outcome.Kind)
	assert.Equal(t, models.OutcomeUploadFailed, results[2].Outcome.Kind, "panic is converted to an error outcome")
	assert.Error(t, results[2].Outcome.Err)
	assert.Equal(t, models.OutcomeSuccess, results[3].Outcome.Kind)
	assert.Zero(t, s.Live())
}

func TestRunAllStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := New(func(context.Context, string, string, string, uploader.ProgressSink) models.Outcome {
		cancel()
		return models.Outcome{Kind: models.OutcomeSuccess}
	}, 3, time.Hour, testLogger())

	creds := []Credential{
		{Handle: "a@example.com", Secret: "pw"},
		{Handle: "b@example.com", Secret: "pw"},
	}

	results := s.RunAll(ctx, creds, "Films", func(string) uploader.ProgressSink { return uploader.NopSink })
	assert.Len(t, results, 1, "cancellation between accounts ends the sweep")
}

func TestWorkerSlotsBoundConcurrency(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var concurrent, maxConcurrent int
	proceed := make(chan struct{})

	s := New(func(context.Context, string, string, string, uploader.ProgressSink) models.Outcome {
		mu.Lock()
		concurrent++
		if concurrent > maxConcurrent {
			maxConcurrent = concurrent
		}
		mu.Unlock()

		<-proceed

		mu.Lock()
		concurrent--
		mu.Unlock()
		return models.Outcome{Kind: models.OutcomeSuccess}
	}, 2, 0, testLogger())

	handles := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"}
	tasks := make([]*Task, 0, len(handles))
	for _, h := range handles {
		task, err := s.Dispatch(ctx, h, "pw", "Films", uploader.NopSink)
		require.NoError(t, err)
		tasks = append(tasks, task)
	}

	// give dispatched goroutines time to contend for slots
	time.Sleep(50 * time.Millisecond)
	close(proceed)
	for _, task := range tasks {
		<-task.Done()
	}

	assert.LessOrEqual(t, maxConcurrent, 2, "no more runs in flight than worker slots")
	assert.GreaterOrEqual(t, maxConcurrent, 1)
}
