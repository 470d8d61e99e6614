// Package coordinator drives download jobs from the user's intent to a
// terminal state: it checks the server, submits the analysis, tracks the job
// and polls it on a fixed interval until it completes or is cancelled.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ytdlpro/config"
	"ytdlpro/internal/domain"
	"ytdlpro/internal/tracker"
	"ytdlpro/observability"
	"ytdlpro/observability/types"
)

// Config controls polling and cleanup.
type Config struct {
	PollInterval    time.Duration
	PollTimeout     time.Duration
	CompletionGrace time.Duration
}

// FromConfig builds a Config; each poll gets the remote request timeout.
func FromConfig(cc config.CoordinatorConfig, rc config.RemoteConfig) Config {
	return Config{
		PollInterval:    cc.PollInterval,
		PollTimeout:     rc.Timeout,
		CompletionGrace: cc.CompletionGrace,
	}
}

// Coordinator implements the job lifecycle on top of a RemoteClient and a
// Tracker. It never retries on its own.
type Coordinator struct {
	remote   domain.RemoteClient
	jobs     *tracker.Tracker
	notifier domain.Notifier
	cfg      Config
	logger   observability.Logger
	metrics  observability.Metrics

	mu       sync.Mutex
	inflight map[string]struct{}
	removals map[string]*time.Timer
	stop     context.CancelFunc
	loopDone chan struct{}
	closed   bool
	polls    sync.WaitGroup
}

// New creates a coordinator. A nil notifier discards notifications.
func New(
	remote domain.RemoteClient,
	jobs *tracker.Tracker,
	notifier domain.Notifier,
	cfg Config,
	logger observability.Logger,
	metrics observability.Metrics,
) *Coordinator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	if notifier == nil {
		notifier = domain.NotifierFunc(func(context.Context, domain.Notification) {})
	}

	return &Coordinator{
		remote:   remote,
		jobs:     jobs,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		inflight: make(map[string]struct{}),
		removals: make(map[string]*time.Timer),
	}
}

// StartDownload validates the page, checks the server, submits the analysis
// and registers the job. Nothing is registered when any step fails.
func (c *Coordinator) StartDownload(ctx context.Context, kind domain.Kind, desc domain.PageDescriptor, settings domain.Settings) (string, error) {
	const op = "start_download"

	c.metrics.StartOperation(op)
	defer c.metrics.EndOperation(op)

	start := time.Now()
	defer func() {
		c.metrics.RecordDuration(op, time.Since(start).Seconds())
	}()

	if !kind.Valid() || !desc.Supports(kind) {
		c.metrics.RecordError(op, domain.CodeInvalidURL)
		return "", domain.InvalidURL(desc.URL)
	}

	settings = settings.WithDefaults()

	reach := c.remote.CheckReachable(ctx)
	if !reach.Reachable {
		c.metrics.RecordError(op, domain.CodeServerUnreachable)
		c.logger.Warn(ctx, "Refusing to start download, server unreachable", observability.Fields{
			"url":    desc.URL,
			"detail": reach.Detail,
		})
		return "", domain.ServerUnreachable(reach.Detail, nil)
	}

	result, err := c.remote.Analyze(ctx, domain.AnalyzeRequest{
		Kind:           kind,
		URL:            desc.URL,
		Quality:        settings.Quality,
		Format:         settings.Format,
		AudioGuarantee: settings.AudioGuarantee,
	})
	if err != nil {
		c.metrics.RecordError(op, errorType(err))
		c.logger.Error(ctx, "Analysis request failed", err, observability.Fields{
			"url":  desc.URL,
			"kind": kind,
		})
		return "", err
	}

	id := c.jobs.Register(kind, desc.URL)

	title := result.Title
	if title == "" {
		title = desc.Title
	}
	if _, err := c.jobs.Update(id, domain.JobUpdate{
		RemoteID: &result.DownloadID,
		Title:    &title,
		Notify:   &settings.Notifications,
	}); err != nil {
		return "", fmt.Errorf("record job %s: %w", id, err)
	}

	ctx = context.WithValue(ctx, types.JobIDKey, id)
	c.logger.Info(ctx, "Download started", observability.Fields{
		"kind":            kind,
		"url":             desc.URL,
		"remote_id":       result.DownloadID,
		"format_selector": result.FormatSelector,
	})
	c.metrics.RecordSuccess(op)

	if settings.Notifications {
		msg := result.Message
		if result.Command != "" {
			if msg != "" {
				msg += " "
			}
			msg += "Run: " + result.Command
		}
		if msg == "" {
			msg = "Download started"
		}
		c.notifier.Notify(ctx, domain.Notification{
			Kind:    domain.NotifyStarted,
			JobID:   id,
			JobKind: kind,
			Title:   title,
			Message: msg,
		})
	}

	return id, nil
}

// PollOnce refreshes one job from the server. Unknown jobs, locally or
// remotely, are treated as already cleaned up and produce no error.
func (c *Coordinator) PollOnce(ctx context.Context, id string) error {
	const op = "poll"

	rec, err := c.jobs.Get(id)
	if err != nil {
		c.logger.Debug(ctx, "Skipping poll for untracked job", observability.Fields{"job_id": id})
		return nil
	}

	report, err := c.remote.PollStatus(ctx, rec.RemoteID)
	if errors.Is(err, domain.ErrJobNotFound) || (err == nil && report.Status == domain.StatusNotFound) {
		c.forget(id)
		c.metrics.RecordSuccess(op)
		c.logger.Info(ctx, "Server no longer knows job, dropping it", observability.Fields{
			"job_id":    id,
			"remote_id": rec.RemoteID,
		})
		return nil
	}
	if err != nil {
		c.metrics.RecordError(op, errorType(err))
		return fmt.Errorf("poll job %s: %w", id, err)
	}

	update := domain.JobUpdate{Status: &report.Status}
	switch report.Status {
	case domain.StatusDownloading:
		update.Progress = &report.Progress
	case domain.StatusCompleted:
		full := 100.0
		update.Progress = &full
	}
	if report.Speed != "" {
		update.Speed = &report.Speed
	}
	if report.ETA != "" {
		update.ETA = &report.ETA
	}
	if report.ErrorMessage != "" {
		update.Error = &report.ErrorMessage
	}

	updated, err := c.jobs.Update(id, update)
	if err != nil {
		// removed while the poll was in flight
		return nil
	}
	c.metrics.RecordSuccess(op)

	if report.Status.IsTerminal() && rec.Status != report.Status {
		c.finish(ctx, updated)
	}
	return nil
}

// Cancel asks the server to stop the job. The local record is dropped only
// once the server confirms; otherwise it is kept and the error returned.
func (c *Coordinator) Cancel(ctx context.Context, id string) error {
	const op = "cancel"

	rec, err := c.jobs.Get(id)
	if err != nil {
		c.metrics.RecordError(op, domain.CodeJobNotFound)
		return err
	}

	cancelled, err := c.remote.Cancel(ctx, rec.RemoteID)
	if err != nil {
		c.metrics.RecordError(op, errorType(err))
		c.logger.Error(ctx, "Cancel request failed", err, observability.Fields{"job_id": id})
		return err
	}
	if !cancelled {
		c.metrics.RecordError(op, domain.CodeCancelRejected)
		return domain.CancelRejected(id)
	}

	c.forget(id)
	c.metrics.RecordSuccess(op)
	c.logger.Info(ctx, "Download cancelled", observability.Fields{"job_id": id})

	if rec.Notify {
		c.notifier.Notify(ctx, domain.Notification{
			Kind:    domain.NotifyCancelled,
			JobID:   id,
			JobKind: rec.Kind,
			Title:   rec.Title,
			Message: "Download cancelled",
		})
	}
	return nil
}

// Job returns a copy of a tracked job.
func (c *Coordinator) Job(id string) (domain.JobRecord, error) {
	return c.jobs.Get(id)
}

// Jobs returns copies of all tracked jobs.
func (c *Coordinator) Jobs() []domain.JobRecord {
	return c.jobs.List()
}

// finish notifies about a terminal transition and schedules removal after
// the grace period, so a last look by the UI still sees the final state.
func (c *Coordinator) finish(ctx context.Context, rec domain.JobRecord) {
	fields := observability.Fields{"job_id": rec.ID, "status": rec.Status}
	c.logger.Info(ctx, "Job reached terminal state", fields)

	if rec.Notify {
		n := domain.Notification{JobID: rec.ID, JobKind: rec.Kind, Title: rec.Title}
		switch rec.Status {
		case domain.StatusCompleted:
			n.Kind, n.Message = domain.NotifyCompleted, "Download complete"
		case domain.StatusCancelled:
			n.Kind, n.Message = domain.NotifyCancelled, "Download cancelled"
		default:
			n.Kind, n.Message = domain.NotifyFailed, "Download failed"
			if rec.Error != "" {
				n.Message = fmt.Sprintf("Download failed: %s", rec.Error)
			}
		}
		c.notifier.Notify(ctx, n)
	}

	c.scheduleRemoval(rec.ID)
}

func (c *Coordinator) scheduleRemoval(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, pending := c.removals[id]; pending {
		return
	}
	if c.closed || c.cfg.CompletionGrace <= 0 {
		c.jobs.Remove(id)
		return
	}

	c.removals[id] = time.AfterFunc(c.cfg.CompletionGrace, func() {
		c.jobs.Remove(id)
		c.mu.Lock()
		delete(c.removals, id)
		c.mu.Unlock()
	})
}

// forget drops the record and any pending removal timer.
func (c *Coordinator) forget(id string) {
	c.mu.Lock()
	if t, ok := c.removals[id]; ok {
		t.Stop()
		delete(c.removals, id)
	}
	c.mu.Unlock()

	c.jobs.Remove(id)
}

func errorType(err error) string {
	if code := domain.CodeOf(err); code != "" {
		return code
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return "unknown"
}
