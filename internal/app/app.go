// Package app wires the stores, the storage provider, the upload supervisor,
// and the chat transport into the operator-facing event loop, and runs it
// until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/dkorchagin/shareup/internal/config"
	"github.com/dkorchagin/shareup/internal/dialog"
	"github.com/dkorchagin/shareup/internal/logging"
	"github.com/dkorchagin/shareup/internal/models"
	"github.com/dkorchagin/shareup/internal/session"
	"github.com/dkorchagin/shareup/internal/shared"
	"github.com/dkorchagin/shareup/internal/storage"
	"github.com/dkorchagin/shareup/internal/store"
	"github.com/dkorchagin/shareup/internal/supervisor"
	"github.com/dkorchagin/shareup/internal/telegram"
	"github.com/dkorchagin/shareup/internal/uploader"
)

type App struct {
	cfg       *config.Config
	log       logging.Logger
	transport telegram.Transport
	settings  *store.SettingsStore
	accounts  *store.AccountsStore
	sessions  *session.Store
	sup       *supervisor.Supervisor

	// dialog state is touched only from the event loop goroutine
	state dialog.State

	wg sync.WaitGroup
}

// NewApp assembles the full application from configuration.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("bot token is required")
	}
	if cfg.OperatorID == 0 {
		return nil, errors.New("operator id is required")
	}

	logger := logging.NewJSON(os.Stdout)

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	transport := telegram.NewClient(cfg.BotToken, logger)
	return newApp(cfg, logger, transport, provider), nil
}

// newApp is the assembly shared with tests, which substitute the transport
// and the provider.
func newApp(cfg *config.Config, log logging.Logger, transport telegram.Transport, provider storage.Provider) *App {
	settings := store.NewSettingsStore(cfg.SettingsFile, log)
	accounts := store.NewAccountsStore(cfg.AccountsFile, log)
	sessions := session.NewStore(provider, log)
	orch := uploader.NewOrchestrator(sessions, accounts, log, cfg.LocalDir, cfg.CallTimeout, cfg.MaxRetries)
	sup := supervisor.New(orch.Run, int64(cfg.WorkerSlots), cfg.InterAccountDelay, log)

	return &App{
		cfg:       cfg,
		log:       log,
		transport: transport,
		settings:  settings,
		accounts:  accounts,
		sessions:  sessions,
		sup:       sup,
	}
}

func newProvider(cfg *config.Config) (storage.Provider, error) {
	opts := storage.S3Options{
		Endpoint:      cfg.StorageEndpoint,
		Region:        cfg.StorageRegion,
		UseSSL:        cfg.StorageUseSSL,
		BucketPrefix:  cfg.BucketPrefix,
		PublicBaseURL: cfg.PublicBaseURL,
		TotalSpace:    cfg.TotalSpaceBytes,
	}
	switch cfg.Provider {
	case "minio":
		return storage.NewMinioProvider(opts), nil
	case "s3":
		return storage.NewS3Provider(opts), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

func (a *App) initSignalHandler(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancel()
	}()
}

// Run drives the event loop until ctx is cancelled or a shutdown signal
// arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.initSignalHandler(cancel)

	if err := os.MkdirAll(a.cfg.LocalDir, 0o755); err != nil {
		return fmt.Errorf("ensure local dir: %w", err)
	}

	a.log.Info(ctx, "starting", "local_dir", a.cfg.LocalDir, "provider", a.cfg.Provider)

	// greet the operator with the current menu on every start
	a.handleEvent(ctx, dialog.StartEvent{})

	for update := range a.transport.Updates(ctx) {
		if update.From != a.cfg.OperatorID {
			a.deny(ctx, update)
			continue
		}
		a.handleEvent(ctx, eventFor(update))
	}

	a.wg.Wait()
	a.log.Info(ctx, "stopped")
	return nil
}

// deny rejects input from any chat but the operator's.
func (a *App) deny(ctx context.Context, u telegram.Update) {
	a.log.Warn(ctx, "rejecting update from unknown user", "from", u.From)
	if u.IsCallback() {
		if err := a.transport.AnswerCallback(ctx, u.CallbackID, "Access denied.", true); err != nil {
			a.log.Warn(ctx, "answer callback failed", "error", err)
		}
		return
	}
	if _, err := a.transport.SendMessage(ctx, u.ChatID, "Access denied.", nil); err != nil {
		a.log.Warn(ctx, "send failed", "error", err)
	}
}

// eventFor maps one transport update to a dialog event.
func eventFor(u telegram.Update) dialog.Event {
	if u.IsCallback() {
		return dialog.CallbackEvent{ID: u.CallbackID, Data: u.CallbackData, MessageID: u.CallbackMessageID}
	}
	switch strings.TrimSpace(u.Text) {
	case "/start":
		return dialog.StartEvent{}
	case "/cancel":
		return dialog.CancelEvent{}
	case "/reset":
		return dialog.ResetEvent{}
	default:
		return dialog.TextEvent{Text: u.Text}
	}
}

func (a *App) handleEvent(ctx context.Context, ev dialog.Event) {
	snap := a.snapshot(ctx)
	next, actions := dialog.Reduce(a.state, ev, snap)
	a.state = next
	for _, act := range actions {
		a.apply(ctx, act)
	}
}

func (a *App) snapshot(ctx context.Context) dialog.Snapshot {
	files, bytes := localStats(a.cfg.LocalDir)
	return dialog.Snapshot{
		Settings:   a.settings.Load(ctx),
		Accounts:   a.accounts.Load(ctx),
		LiveRuns:   a.sup.Live(),
		Sessions:   a.sessions.Count(),
		LocalDir:   a.cfg.LocalDir,
		LocalFiles: files,
		LocalBytes: bytes,
	}
}

func localStats(dir string) (int, int64) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	var files int
	var total int64
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files++
		total += info.Size()
	}
	return files, total
}

func (a *App) apply(ctx context.Context, act dialog.Action) {
	switch act := act.(type) {
	case dialog.Send:
		a.send(ctx, act.Text, act.Keyboard)

	case dialog.Edit:
		a.edit(ctx, act.MessageID, act.Text, act.Keyboard)

	case dialog.Answer:
		if err := a.transport.AnswerCallback(ctx, act.CallbackID, act.Text, act.Alert); err != nil {
			a.log.Warn(ctx, "answer callback failed", "error", err)
		}

	case dialog.SetFolder:
		if err := a.settings.SetFolderName(ctx, act.Name); err != nil {
			a.log.Error(ctx, "persist folder name failed", "error", err)
			a.send(ctx, "Could not save the folder name, try again.", nil)
		}

	case dialog.ResetSettings:
		if err := a.settings.Reset(ctx); err != nil {
			a.log.Error(ctx, "reset settings failed", "error", err)
		}

	case dialog.AddAccount:
		a.addAccount(ctx, act.Handle, act.Secret)

	case dialog.RemoveAccount:
		a.removeAccount(ctx, act.Handle, act.MessageID)

	case dialog.StartRun:
		a.startRun(ctx, act.Handle, act.MessageID)

	case dialog.StartRunAll:
		a.startRunAll(ctx, act.MessageID)
	}
}

func (a *App) send(ctx context.Context, text string, kb dialog.Keyboard) int {
	id, err := a.transport.SendMessage(ctx, a.cfg.OperatorID, text, kb)
	if err != nil {
		a.log.Warn(ctx, "send failed", "error", err)
		return 0
	}
	return id
}

func (a *App) edit(ctx context.Context, messageID int, text string, kb dialog.Keyboard) {
	if err := a.transport.EditMessage(ctx, a.cfg.OperatorID, messageID, text, kb); err != nil {
		a.log.Warn(ctx, "edit failed", "error", err, "message_id", messageID)
	}
}

// messageSink reports run progress by rewriting one status message.
func (a *App) messageSink(messageID int) uploader.ProgressSink {
	return uploader.ProgressFunc(func(ctx context.Context, text string) {
		a.edit(ctx, messageID, text, nil)
	})
}

// addAccount authorizes the new account and, on success, stores it and
// dispatches its first upload run. Authorization talks to the storage API,
// so the whole sequence runs off the event-loop goroutine; the loop stays
// responsive while it is in flight.
func (a *App) addAccount(ctx context.Context, handle, secret string) {
	statusID := a.send(ctx, fmt.Sprintf("Authorizing %s…", handle), nil)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		authCtx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
		defer cancel()
		if _, err := a.sessions.GetOrCreate(authCtx, handle, secret); err != nil {
			a.log.Warn(ctx, "account authorization failed", "handle", handle, "error", err)
			a.edit(ctx, statusID, fmt.Sprintf("❌ Authorization failed for %s.\n%v", handle, err), nil)
			return
		}

		if err := a.accounts.Add(ctx, handle, secret); err != nil {
			a.edit(ctx, statusID, fmt.Sprintf("Could not save account %s: %v", handle, err), nil)
			return
		}

		a.edit(ctx, statusID, fmt.Sprintf("Account %s authorized. Starting first upload…", handle), nil)
		a.dispatch(ctx, handle, secret, statusID)
	}()
}

func (a *App) removeAccount(ctx context.Context, handle string, messageID int) {
	if a.sup.Cancel(handle) {
		a.log.Info(ctx, "cancelled live run for removed account", "handle", handle)
	}
	a.sessions.Invalidate(handle)

	if err := a.accounts.Remove(ctx, handle); err != nil {
		a.edit(ctx, messageID, fmt.Sprintf("Could not remove %s: %v", handle, err), nil)
		return
	}
	a.edit(ctx, messageID, fmt.Sprintf("Account %s removed.", handle), nil)
}

func (a *App) startRun(ctx context.Context, handle string, messageID int) {
	acc, err := a.accounts.Get(ctx, handle)
	if err != nil {
		a.edit(ctx, messageID, fmt.Sprintf("Account %s is no longer configured.", handle), nil)
		return
	}
	a.edit(ctx, messageID, fmt.Sprintf("Starting upload for %s…", handle), nil)
	a.dispatch(ctx, handle, acc.Password, messageID)
}

// dispatch starts one run and reports its terminal outcome into the status
// message once the task finishes.
func (a *App) dispatch(ctx context.Context, handle, secret string, messageID int) {
	folder := a.settings.Load(ctx).Folder()
	task, err := a.sup.Dispatch(ctx, handle, secret, folder, a.messageSink(messageID))
	if err != nil {
		if errors.Is(err, shared.ErrRunActive) {
			a.edit(ctx, messageID, fmt.Sprintf("An upload for %s is already running.", handle), nil)
			return
		}
		a.edit(ctx, messageID, fmt.Sprintf("Could not start the upload for %s: %v", handle, err), nil)
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-task.Done()
		report := reportText(handle, task.Outcome())
		if task.Outcome().Kind == models.OutcomeSuccess {
			if line := a.quotaLine(ctx, handle, secret); line != "" {
				report += "\n" + line
			}
		}
		a.edit(ctx, messageID, report, nil)
	}()
}

// quotaLine renders the account's storage usage. Best effort: any failure
// yields an empty line rather than an error.
func (a *App) quotaLine(ctx context.Context, handle, secret string) string {
	qctx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
	defer cancel()

	sess, err := a.sessions.GetOrCreate(qctx, handle, secret)
	if err != nil {
		return ""
	}
	used, err := sess.QuotaUsed(qctx)
	if err != nil {
		return ""
	}
	total, err := sess.QuotaTotal(qctx)
	if err != nil || total <= 0 {
		return fmt.Sprintf("Storage used: %s", humanize.IBytes(uint64(used)))
	}
	return fmt.Sprintf("Storage used: %s of %s", humanize.IBytes(uint64(used)), humanize.IBytes(uint64(total)))
}

func (a *App) startRunAll(ctx context.Context, messageID int) {
	accounts := a.accounts.Load(ctx)
	handles := lo.Keys(accounts)
	sort.Strings(handles)

	creds := make([]supervisor.Credential, 0, len(handles))
	for _, h := range handles {
		creds = append(creds, supervisor.Credential{Handle: h, Secret: accounts[h].Password})
	}
	folder := a.settings.Load(ctx).Folder()

	a.edit(ctx, messageID, fmt.Sprintf("Reuploading to %d account(s)…", len(creds)), nil)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		sinkFor := func(handle string) uploader.ProgressSink {
			return uploader.ProgressFunc(func(ctx context.Context, text string) {
				a.edit(ctx, messageID, fmt.Sprintf("%s: %s", handle, text), nil)
			})
		}
		results := a.sup.RunAll(ctx, creds, folder, sinkFor)
		a.edit(ctx, messageID, sweepReport(results), nil)
	}()
}

// reportText renders one run's terminal outcome for the operator. Failure
// reports carry the run's original error text, never a bare generic phrase.
func reportText(handle string, o models.Outcome) string {
	switch o.Kind {
	case models.OutcomeSuccess:
		s := fmt.Sprintf("✅ %s: uploaded %d/%d file(s).", handle, o.Uploaded, o.Total)
		if o.Link != "" {
			s += "\n" + o.Link
		}
		return s
	case models.OutcomePartialSuccess:
		return withErr(fmt.Sprintf("⚠️ %s: uploaded %d/%d file(s), but the share link could not be created.", handle, o.Uploaded, o.Total), o.Err)
	case models.OutcomeAuthFailed:
		return withErr(fmt.Sprintf("❌ %s: authorization failed. Re-add the account with fresh credentials.", handle), o.Err)
	case models.OutcomeFolderFailed:
		return withErr(fmt.Sprintf("❌ %s: could not prepare the remote folder.", handle), o.Err)
	case models.OutcomeNoFiles:
		return withErr(fmt.Sprintf("❌ %s: the local directory has no files to upload.", handle), o.Err)
	default:
		return withErr(fmt.Sprintf("❌ %s: upload failed (%d/%d uploaded).", handle, o.Uploaded, o.Total), o.Err)
	}
}

func withErr(text string, err error) string {
	if err == nil {
		return text
	}
	return text + "\n" + err.Error()
}

func sweepReport(results []supervisor.Result) string {
	if len(results) == 0 {
		return "No accounts to reupload."
	}
	var b strings.Builder
	b.WriteString("Reupload finished:\n")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(&b, "❌ %s: %v\n", r.Handle, r.Err)
			continue
		}
		b.WriteString(reportText(r.Handle, r.Outcome))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
