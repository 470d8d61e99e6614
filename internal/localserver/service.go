package localserver

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ytdlpro/config"
	"ytdlpro/internal/domain"
	"ytdlpro/observability"
	"ytdlpro/observability/types"

	"github.com/google/uuid"
)

// ErrTaskNotFound is returned for unknown task ids.
var ErrTaskNotFound = errors.New("task not found")

// ServiceConfig bounds the task service.
type ServiceConfig struct {
	MaxConcurrent int
	Retention     time.Duration
	SweepInterval time.Duration
}

// ServiceConfigFrom converts the application config section.
func ServiceConfigFrom(lc config.LocalConfig) ServiceConfig {
	return ServiceConfig{
		MaxConcurrent: lc.MaxConcurrent,
		Retention:     lc.TaskRetention,
		SweepInterval: lc.SweepInterval,
	}
}

// Request describes a download to queue.
type Request struct {
	Kind           domain.Kind
	URL            string
	Quality        string
	Format         string
	AudioGuarantee bool
}

type entry struct {
	Task
	cancel context.CancelFunc
}

// Service queues download tasks and runs at most MaxConcurrent at a time.
type Service struct {
	runner  Runner
	config  ServiceConfig
	logger  observability.Logger
	metrics observability.Metrics
	now     func() time.Time

	mu    sync.RWMutex
	tasks map[string]*entry

	slots chan struct{}
	base  context.Context
	stop  context.CancelFunc
	wg    sync.WaitGroup
}

// NewService creates a task service.
func NewService(runner Runner, cfg ServiceConfig, logger observability.Logger, metrics observability.Metrics) *Service {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}

	base, stop := context.WithCancel(context.Background())
	return &Service{
		runner:  runner,
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		tasks:   make(map[string]*entry),
		slots:   make(chan struct{}, cfg.MaxConcurrent),
		base:    base,
		stop:    stop,
	}
}

// Submit queues req and returns the new task.
func (s *Service) Submit(ctx context.Context, req Request) Task {
	now := s.now()
	runCtx, cancel := context.WithCancel(s.base)

	e := &entry{
		Task: Task{
			ID:             uuid.NewString(),
			Kind:           req.Kind,
			URL:            req.URL,
			Status:         TaskPending,
			FormatSelector: domain.FormatSelector(req.AudioGuarantee, req.Quality),
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		cancel: cancel,
	}

	s.mu.Lock()
	s.tasks[e.ID] = e
	snapshot := e.Task
	s.mu.Unlock()

	s.logger.Info(ctx, "Download queued", observability.Fields{
		"task_id":  e.ID,
		"kind":     string(req.Kind),
		"url":      req.URL,
		"selector": snapshot.FormatSelector,
	})

	job := Job{ID: e.ID, Kind: req.Kind, URL: req.URL, Selector: snapshot.FormatSelector, Format: req.Format}

	s.wg.Add(1)
	go s.run(runCtx, job)

	return snapshot
}

// run waits for a slot, executes the job and records the outcome.
func (s *Service) run(ctx context.Context, job Job) {
	defer s.wg.Done()

	ctx = context.WithValue(ctx, types.JobIDKey, job.ID)

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		s.finish(ctx, job.ID, ctx.Err())
		return
	}
	defer func() { <-s.slots }()

	if !s.transition(job.ID, TaskDownloading) {
		return
	}

	s.metrics.StartOperation("download")
	defer s.metrics.EndOperation("download")

	start := s.now()
	var state progressState
	err := s.runner.Run(ctx, job, func(ev ProgressEvent) {
		s.progress(job.ID, &state, ev)
	})
	s.metrics.RecordDuration("download", s.now().Sub(start).Seconds())

	s.finish(ctx, job.ID, err)
}

func (s *Service) transition(id string, to TaskStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tasks[id]
	if !ok || e.Status.IsFinished() {
		return false
	}
	e.Status = to
	e.UpdatedAt = s.now()
	return true
}

func (s *Service) progress(id string, state *progressState, ev ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tasks[id]
	if !ok || e.Status != TaskDownloading {
		return
	}

	if state.apply(ev) {
		e.Progress = state.overall
	}
	if state.items > 0 {
		e.TotalVideos = state.items
	}
	e.CompletedVideos = state.done
	if ev.File != "" {
		e.CurrentVideo = ev.File
	}
	if ev.Speed != "" {
		e.Speed = ev.Speed
	}
	if ev.ETA != "" {
		e.ETA = ev.ETA
	}
	e.UpdatedAt = s.now()
}

// finish records the outcome of a run. A task cancelled meanwhile keeps
// its cancelled state.
func (s *Service) finish(ctx context.Context, id string, err error) {
	s.mu.Lock()
	e, ok := s.tasks[id]
	if !ok || e.Status.IsFinished() {
		s.mu.Unlock()
		return
	}

	switch {
	case err == nil:
		e.Status = TaskCompleted
		e.Progress = 100
		if e.TotalVideos > 0 {
			e.CompletedVideos = e.TotalVideos
		} else {
			e.CompletedVideos = 1
		}
		e.Speed, e.ETA = "", ""
	case errors.Is(err, context.Canceled):
		e.Status = TaskCancelled
	default:
		e.Status = TaskFailed
		e.ErrorMessage = err.Error()
	}
	e.UpdatedAt = s.now()
	e.cancel()
	status := e.Status
	s.mu.Unlock()

	switch status {
	case TaskCompleted:
		s.metrics.RecordSuccess("download")
		s.logger.Info(ctx, "Download completed", observability.Fields{"task_id": id})
	case TaskCancelled:
		s.metrics.RecordError("download", "cancelled")
		s.logger.Info(ctx, "Download cancelled", observability.Fields{"task_id": id})
	default:
		s.metrics.RecordError("download", "tool_error")
		s.logger.Error(ctx, "Download failed", err, observability.Fields{"task_id": id})
	}
}

// Get returns the task with id.
func (s *Service) Get(id string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return e.Task, nil
}

// List returns all tasks, oldest first.
func (s *Service) List() []Task {
	s.mu.RLock()
	out := make([]Task, 0, len(s.tasks))
	for _, e := range s.tasks {
		out = append(out, e.Task)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Active counts queued and running tasks.
func (s *Service) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.tasks {
		if e.Status.IsActive() {
			n++
		}
	}
	return n
}

// Cancel stops a queued or running task. It reports false for a task that
// already finished.
func (s *Service) Cancel(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	e, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return false, ErrTaskNotFound
	}
	if e.Status.IsFinished() {
		s.mu.Unlock()
		return false, nil
	}
	e.Status = TaskCancelled
	e.Speed, e.ETA = "", ""
	e.UpdatedAt = s.now()
	e.cancel()
	s.mu.Unlock()

	s.metrics.RecordError("download", "cancelled")
	s.logger.Info(ctx, "Download cancelled", observability.Fields{"task_id": id})
	return true, nil
}

// Sweep drops finished tasks last updated before the retention window.
func (s *Service) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.config.Retention)

	s.mu.Lock()
	removed := 0
	for id, e := range s.tasks {
		if e.Status.IsFinished() && e.UpdatedAt.Before(cutoff) {
			delete(s.tasks, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Info(ctx, "Cleaned up old tasks", observability.Fields{"removed": removed})
	}
	return removed
}

// StartSweeper runs Sweep every SweepInterval until ctx ends or the
// service closes.
func (s *Service) StartSweeper(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.config.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.base.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Close cancels every task and waits for the workers to exit.
func (s *Service) Close() error {
	s.stop()
	s.wg.Wait()
	return nil
}
