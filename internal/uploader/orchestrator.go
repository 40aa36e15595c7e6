// Package uploader drives one account's upload run: session acquisition,
// folder resolution, the per-file upload batch, and public-link export.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dkorchagin/shareup/internal/logging"
	"github.com/dkorchagin/shareup/internal/models"
	"github.com/dkorchagin/shareup/internal/session"
	"github.com/dkorchagin/shareup/internal/shared"
	"github.com/dkorchagin/shareup/internal/store"
	"github.com/dkorchagin/shareup/internal/storage"
)

// ProgressSink receives incremental, operator-facing progress of one run.
// Implementations typically edit a single status message in place.
type ProgressSink interface {
	Progress(ctx context.Context, text string)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(ctx context.Context, text string)

func (f ProgressFunc) Progress(ctx context.Context, text string) { f(ctx, text) }

// NopSink discards progress.
var NopSink ProgressSink = ProgressFunc(func(context.Context, string) {})

// Orchestrator runs uploads for single accounts. It borrows sessions from
// the session store and writes terminal outcomes back to the accounts store.
type Orchestrator struct {
	sessions *session.Store
	accounts *store.AccountsStore
	log      logging.Logger

	localDir    string
	callTimeout time.Duration
	maxRetries  uint64
}

func NewOrchestrator(sessions *session.Store, accounts *store.AccountsStore, log logging.Logger,
	localDir string, callTimeout time.Duration, maxRetries uint64) *Orchestrator {
	return &Orchestrator{
		sessions:    sessions,
		accounts:    accounts,
		log:         log,
		localDir:    localDir,
		callTimeout: callTimeout,
		maxRetries:  maxRetries,
	}
}

// Run executes one account's upload run end to end and persists the outcome.
//
// Panics anywhere in the run are caught here and converted into an
// error-status outcome instead of taking down the dispatcher. A run whose
// context was cancelled before it finished is discarded: the outcome is
// returned to the caller but account state is left untouched.
func (o *Orchestrator) Run(ctx context.Context, handle, secret, folderName string, sink ProgressSink) (outcome models.Outcome) {
	log := o.log.With("handle", handle)

	defer func() {
		if r := recover(); r != nil {
			log.Error(ctx, "upload run panicked", "panic", r, "stack", string(debug.Stack()))
			outcome = models.Outcome{Kind: models.OutcomeUploadFailed, Err: fmt.Errorf("unexpected failure: %v", r)}
			o.persist(ctx, handle, outcome)
		}
	}()

	outcome = o.run(ctx, handle, secret, folderName, sink, log)
	o.persist(ctx, handle, outcome)
	return outcome
}

func (o *Orchestrator) run(ctx context.Context, handle, secret, folderName string, sink ProgressSink, log logging.Logger) models.Outcome {
	sink.Progress(ctx, "Signing in…")

	var sess storage.Session
	err := o.call(ctx, func(ctx context.Context) error {
		var err error
		sess, err = o.sessions.GetOrCreate(ctx, handle, secret)
		return err
	})
	if err != nil {
		log.Error(ctx, "authentication failed", "error", err)
		return models.Outcome{Kind: models.OutcomeAuthFailed, Err: err}
	}

	sink.Progress(ctx, fmt.Sprintf("Resolving folder %q…", folderName))

	var folderID string
	err = o.call(ctx, func(ctx context.Context) error {
		var err error
		folderID, err = ResolveFolder(ctx, sess, folderName)
		return err
	})
	if err != nil {
		log.Error(ctx, "folder resolution failed", "folder", folderName, "error", err)
		return models.Outcome{Kind: models.OutcomeFolderFailed, Err: fmt.Errorf("%w: %v", shared.ErrFolderResolution, err)}
	}

	files, err := listLocalFiles(o.localDir)
	if err != nil {
		log.Error(ctx, "reading local directory", "dir", o.localDir, "error", err)
		return models.Outcome{Kind: models.OutcomeNoFiles, Err: err}
	}
	if len(files) == 0 {
		log.Warn(ctx, "local directory is empty", "dir", o.localDir)
		return models.Outcome{Kind: models.OutcomeNoFiles, Err: fmt.Errorf("%w: %s", shared.ErrNoLocalFiles, o.localDir)}
	}

	uploaded, failed := 0, 0
	for i, path := range files {
		if ctx.Err() != nil {
			break
		}

		name := filepath.Base(path)
		sink.Progress(ctx, fmt.Sprintf("Uploading %s (%d/%d)…", name, i+1, len(files)))

		err := o.call(ctx, func(ctx context.Context) error {
			return sess.UploadFile(ctx, path, folderID)
		})
		if err != nil {
			// per-file failures are counted, never abort the batch
			failed++
			log.Error(ctx, "file upload failed", "file", name, "error", err)
			continue
		}
		uploaded++
		log.Info(ctx, "file uploaded", "file", name, "done", uploaded, "total", len(files))
	}

	counts := models.Outcome{Uploaded: uploaded, Failed: failed, Total: len(files)}
	if uploaded == 0 {
		counts.Kind = models.OutcomeUploadFailed
		counts.Err = shared.ErrNothingUploaded
		return counts
	}

	sink.Progress(ctx, "Exporting public link…")

	var link string
	err = o.call(ctx, func(ctx context.Context) error {
		var err error
		link, err = sess.ExportPublicLink(ctx, folderID)
		return err
	})
	if err != nil {
		log.Warn(ctx, "public link export failed", "error", err)
		counts.Kind = models.OutcomePartialSuccess
		counts.Err = fmt.Errorf("%w: %v", shared.ErrLinkExport, err)
		return counts
	}

	counts.Kind = models.OutcomeSuccess
	counts.Link = link
	return counts
}

// persist writes the outcome back to the accounts document. Results arriving
// after cancellation are dropped without mutating account state.
func (o *Orchestrator) persist(ctx context.Context, handle string, outcome models.Outcome) {
	if ctx.Err() != nil {
		o.log.Warn(context.WithoutCancel(ctx), "discarding result of cancelled run", "handle", handle, "outcome", string(outcome.Kind))
		return
	}
	if err := o.accounts.ApplyOutcome(ctx, handle, outcome); err != nil {
		o.log.Error(ctx, "persisting upload outcome", "handle", handle, "error", err)
	}
}

// call runs one blocking storage operation under the per-call timeout,
// retrying transient failures with capped exponential backoff. Auth
// rejections and cancellations are permanent.
func (o *Orchestrator) call(ctx context.Context, op func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(o.maxRetries, retry.WithCappedDuration(5*time.Second, retry.NewExponential(500*time.Millisecond)))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		callCtx := ctx
		if o.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, o.callTimeout)
			defer cancel()
		}

		err := op(callCtx)
		if err == nil {
			return nil
		}
		if errors.Is(err, shared.ErrAuthFailed) || ctx.Err() != nil {
			return err
		}
		return retry.RetryableError(err)
	})
}

// listLocalFiles enumerates regular files directly inside dir, one level,
// sorted by name for a stable upload order.
func listLocalFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
