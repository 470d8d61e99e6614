package tracker

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"ytdlpro/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestTracker_RegisterThenGet(t *testing.T) {
	tests := []struct {
		kind domain.Kind
		url  string
	}{
		{domain.KindPlaylist, "https://youtube.com/playlist?list=PL123"},
		{domain.KindVideo, "https://www.youtube.com/watch?v=abc"},
	}

	tr := New()
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			id := tr.Register(tt.kind, tt.url)

			rec, err := tr.Get(id)
			require.NoError(t, err)
			assert.Equal(t, id, rec.ID)
			assert.Equal(t, domain.StatusStarted, rec.Status)
			assert.Equal(t, tt.kind, rec.Kind)
			assert.Equal(t, tt.url, rec.SourceURL)
			assert.Nil(t, rec.Progress)
			assert.False(t, rec.CreatedAt.IsZero())
		})
	}
}

func TestTracker_UpdateChangesOnlyTargetedFields(t *testing.T) {
	tr := New()
	id := tr.Register(domain.KindVideo, "https://youtu.be/abc")
	_, err := tr.Update(id, domain.JobUpdate{Title: ptr("Song"), Speed: ptr("2MiB/s"), Progress: ptr(40.0)})
	require.NoError(t, err)

	before, err := tr.Get(id)
	require.NoError(t, err)

	after, err := tr.Update(id, domain.JobUpdate{Status: ptr(domain.StatusCompleted)})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, after.Status)
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, before.Speed, after.Speed)
	assert.Equal(t, *before.Progress, *after.Progress)
	assert.Equal(t, before.SourceURL, after.SourceURL)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
}

func TestTracker_UpdateUnknownID(t *testing.T) {
	tr := New()

	_, err := tr.Update("missing", domain.JobUpdate{Status: ptr(domain.StatusCompleted)})
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestTracker_RemoveThenGet(t *testing.T) {
	tr := New()
	id := tr.Register(domain.KindPlaylist, "https://youtube.com/playlist?list=PL1")

	tr.Remove(id)

	_, err := tr.Get(id)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.NotPanics(t, func() { tr.Remove(id) })
	assert.Zero(t, tr.Len())
}

func TestTracker_ProgressIsMonotonicWhileDownloading(t *testing.T) {
	tr := New()
	id := tr.Register(domain.KindVideo, "https://youtu.be/abc")

	_, err := tr.Update(id, domain.JobUpdate{Status: ptr(domain.StatusDownloading), Progress: ptr(60.0)})
	require.NoError(t, err)

	rec, err := tr.Update(id, domain.JobUpdate{Status: ptr(domain.StatusDownloading), Progress: ptr(20.0)})
	require.NoError(t, err)
	assert.Equal(t, 60.0, *rec.Progress)

	rec, err = tr.Update(id, domain.JobUpdate{Progress: ptr(75.0)})
	require.NoError(t, err)
	assert.Equal(t, 75.0, *rec.Progress)
}

func TestTracker_GetReturnsCopy(t *testing.T) {
	tr := New()
	id := tr.Register(domain.KindVideo, "https://youtu.be/abc")
	_, err := tr.Update(id, domain.JobUpdate{Progress: ptr(10.0)})
	require.NoError(t, err)

	rec, _ := tr.Get(id)
	*rec.Progress = 99
	rec.Title = "mutated"

	again, _ := tr.Get(id)
	assert.Equal(t, 10.0, *again.Progress)
	assert.Empty(t, again.Title)
}

func TestTracker_RegisterSkipsLiveIDs(t *testing.T) {
	ids := []string{"dup", "dup", "fresh"}
	n := 0
	tr := New(WithIDGenerator(func() string {
		id := ids[n]
		n++
		return id
	}))

	first := tr.Register(domain.KindVideo, "a")
	second := tr.Register(domain.KindVideo, "b")

	assert.Equal(t, "dup", first)
	assert.Equal(t, "fresh", second)
}

func TestTracker_ListAndRemoveIf(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	tr := New(WithClock(func() time.Time { return clock }))

	old := tr.Register(domain.KindVideo, "old")
	clock = base.Add(time.Hour)
	young := tr.Register(domain.KindVideo, "young")

	list := tr.List()
	require.Len(t, list, 2)
	assert.Equal(t, old, list[0].ID)
	assert.Equal(t, young, list[1].ID)

	removed := tr.RemoveIf(func(r domain.JobRecord) bool { return r.CreatedAt.Before(base.Add(time.Minute)) })
	assert.Equal(t, 1, removed)
	assert.ElementsMatch(t, []string{young}, tr.IDs())
}

func TestTracker_ConcurrentRegistration(t *testing.T) {
	tr := New()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := tr.Register(domain.KindVideo, fmt.Sprintf("https://youtu.be/%d", i))
			_, _ = tr.Update(id, domain.JobUpdate{Status: ptr(domain.StatusDownloading)})
			_, _ = tr.Get(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, tr.Len())
}
