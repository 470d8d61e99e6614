// Package tracker keeps the in-memory table of jobs between their creation
// and terminal-state cleanup. It is safe for concurrent use.
package tracker

import (
	"sort"
	"sync"
	"time"

	"ytdlpro/internal/domain"

	"github.com/google/uuid"
)

// Tracker owns every JobRecord. Callers only ever receive copies.
type Tracker struct {
	mu    sync.RWMutex
	jobs  map[string]*domain.JobRecord
	now   func() time.Time
	newID func() string
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) { t.newID = gen }
}

// New creates an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		jobs:  make(map[string]*domain.JobRecord),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register inserts a Started record and returns its fresh id.
func (t *Tracker) Register(kind domain.Kind, sourceURL string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.newID()
	for _, taken := t.jobs[id]; taken; _, taken = t.jobs[id] {
		id = t.newID()
	}

	now := t.now()
	t.jobs[id] = &domain.JobRecord{
		ID:        id,
		Kind:      kind,
		SourceURL: sourceURL,
		Status:    domain.StatusStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

// Update merges u into the record and returns the result. Progress never
// moves backwards while the job stays in Downloading.
func (t *Tracker) Update(id string, u domain.JobUpdate) (domain.JobRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.jobs[id]
	if !ok {
		return domain.JobRecord{}, domain.JobNotFound(id)
	}

	if u.Progress != nil && rec.Progress != nil && rec.Status == domain.StatusDownloading {
		next := rec.Status
		if u.Status != nil {
			next = *u.Status
		}
		if next == domain.StatusDownloading && *u.Progress < *rec.Progress {
			u.Progress = nil
		}
	}

	u.Apply(rec, t.now())
	return clone(rec), nil
}

// Get returns a copy of the record.
func (t *Tracker) Get(id string) (domain.JobRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.jobs[id]
	if !ok {
		return domain.JobRecord{}, domain.JobNotFound(id)
	}
	return clone(rec), nil
}

// Remove deletes the record; absent ids are ignored.
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobs, id)
}

// RemoveIf deletes every record matching pred and returns how many went.
func (t *Tracker) RemoveIf(pred func(domain.JobRecord) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, rec := range t.jobs {
		if pred(clone(rec)) {
			delete(t.jobs, id)
			removed++
		}
	}
	return removed
}

// List returns copies of all records, oldest first.
func (t *Tracker) List() []domain.JobRecord {
	t.mu.RLock()
	out := make([]domain.JobRecord, 0, len(t.jobs))
	for _, rec := range t.jobs {
		out = append(out, clone(rec))
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// IDs returns the ids currently tracked, in no particular order.
func (t *Tracker) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.jobs))
	for id := range t.jobs {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of tracked records.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.jobs)
}

func clone(rec *domain.JobRecord) domain.JobRecord {
	c := *rec
	if rec.Progress != nil {
		p := *rec.Progress
		c.Progress = &p
	}
	return c
}
