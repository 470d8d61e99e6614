package analysis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ytdlpro/internal/domain"
	"ytdlpro/internal/page"
	"ytdlpro/observability/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watchPage = `<html><head>
<title>Never Gonna Give You Up - YouTube</title>
<meta property="og:title" content="Never Gonna Give You Up">
<meta itemprop="duration" content="PT3M33S">
</head><body>
<span itemprop="author"><link itemprop="name" content="Rick Astley"></span>
</body></html>`

const playlistPage = `<html><head><meta property="og:title" content="Road Trip"></head><body>
<ytd-playlist-video-renderer><a id="video-title" href="/watch?v=aaa&list=PL1">First</a></ytd-playlist-video-renderer>
<ytd-playlist-video-renderer><a id="video-title" href="/watch?v=bbb&list=PL1">Second</a></ytd-playlist-video-renderer>
</body></html>`

type fakeLister struct {
	videos []domain.VideoEntry
	err    error
	gotID  string
}

func (f *fakeLister) ListPlaylist(_ context.Context, id string) ([]domain.VideoEntry, error) {
	f.gotID = id
	return f.videos, f.err
}

func newPageServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestBackend(baseURL string, lister PlaylistLister) *Backend {
	return NewBackend(BackendConfig{
		Timeout:     2 * time.Second,
		Attempts:    1,
		PageBaseURL: baseURL,
	}, lister, mocks.NewQuietLogger(), mocks.NewQuietMetrics())
}

func TestBackend_AnalyzeVideo(t *testing.T) {
	srv := newPageServer(t, http.StatusOK, watchPage)
	b := newTestBackend(srv.URL, &fakeLister{})

	res, err := b.AnalyzeVideo(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)

	assert.Equal(t, "dQw4w9WgXcQ", res.ID)
	assert.Equal(t, "Never Gonna Give You Up", res.Title)
	assert.Equal(t, "Rick Astley", res.Channel)
	assert.Equal(t, "3:33", res.Duration)
}

func TestBackend_AnalyzeVideo_FetchFailure(t *testing.T) {
	srv := newPageServer(t, http.StatusInternalServerError, "")
	b := newTestBackend(srv.URL, &fakeLister{})

	_, err := b.AnalyzeVideo(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	assert.ErrorIs(t, err, domain.ErrAnalysis)
}

func TestBackend_AnalyzeVideo_InvalidURL(t *testing.T) {
	b := newTestBackend("http://unused", &fakeLister{})

	_, err := b.AnalyzeVideo(context.Background(), "https://www.youtube.com/feed/trending")
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
}

func TestBackend_AnalyzePlaylist_UsesListing(t *testing.T) {
	srv := newPageServer(t, http.StatusOK, playlistPage)
	lister := &fakeLister{videos: []domain.VideoEntry{
		{Index: 1, ID: "a"}, {Index: 2, ID: "b"}, {Index: 3, ID: "c"},
	}}
	b := newTestBackend(srv.URL, lister)

	res, err := b.AnalyzePlaylist(context.Background(), "https://www.youtube.com/playlist?list=PL1")
	require.NoError(t, err)

	assert.Equal(t, "PL1", lister.gotID)
	assert.Equal(t, "PL1", res.ID)
	assert.Equal(t, "Road Trip", res.Title)
	assert.Len(t, res.Videos, 3)
}

func TestBackend_AnalyzePlaylist_FallsBackToPageRows(t *testing.T) {
	srv := newPageServer(t, http.StatusOK, playlistPage)
	b := newTestBackend(srv.URL, &fakeLister{err: errors.New("listing blocked")})

	res, err := b.AnalyzePlaylist(context.Background(), "https://www.youtube.com/playlist?list=PL1")
	require.NoError(t, err)

	require.Len(t, res.Videos, 2)
	assert.Equal(t, "aaa", res.Videos[0].ID)
}

func TestBackend_AnalyzePlaylist_PageDownStillLists(t *testing.T) {
	srv := newPageServer(t, http.StatusNotFound, "")
	b := newTestBackend(srv.URL, &fakeLister{videos: []domain.VideoEntry{{Index: 1, ID: "a"}}})

	res, err := b.AnalyzePlaylist(context.Background(), "https://www.youtube.com/playlist?list=PL1")
	require.NoError(t, err)

	assert.Equal(t, page.UnknownPlaylist, res.Title)
	assert.Len(t, res.Videos, 1)
}

func TestBackend_AnalyzePlaylist_BothSourcesFail(t *testing.T) {
	srv := newPageServer(t, http.StatusNotFound, "")
	b := newTestBackend(srv.URL, &fakeLister{err: errors.New("listing blocked")})

	_, err := b.AnalyzePlaylist(context.Background(), "https://www.youtube.com/playlist?list=PL1")
	assert.ErrorIs(t, err, domain.ErrAnalysis)
}
