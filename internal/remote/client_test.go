package remote

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ytdlpro/config"
	"ytdlpro/internal/domain"
	obmocks "ytdlpro/observability/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(baseURL, mode string) *Client {
	return New(ClientConfig{
		BaseURL:             baseURL,
		Mode:                mode,
		Timeout:             2 * time.Second,
		ReachabilityTimeout: 300 * time.Millisecond,
	}, obmocks.NewQuietLogger(), obmocks.NewQuietMetrics())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_CheckReachable(t *testing.T) {
	t.Run("200 is reachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/health", r.URL.Path)
			writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		}))
		defer srv.Close()

		got := newClient(srv.URL, config.ModeLocal).CheckReachable(context.Background())
		assert.True(t, got.Reachable)
		assert.Equal(t, "healthy", got.Detail)
	})

	t.Run("non-2xx is unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		got := newClient(srv.URL, config.ModeLocal).CheckReachable(context.Background())
		assert.False(t, got.Reachable)
		assert.Contains(t, got.Detail, "503")
	})

	t.Run("connection refused is unreachable", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		require.NoError(t, ln.Close())

		got := newClient("http://"+addr, config.ModeLocal).CheckReachable(context.Background())
		assert.False(t, got.Reachable)
	})

	t.Run("hung server is unreachable within the timeout bound", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		start := time.Now()
		got := newClient(srv.URL, config.ModeLocal).CheckReachable(context.Background())
		elapsed := time.Since(start)

		assert.False(t, got.Reachable)
		assert.Less(t, elapsed, 300*time.Millisecond+500*time.Millisecond)
	})
}

func TestClient_Analyze(t *testing.T) {
	t.Run("local playlist route and payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/download/playlist", r.URL.Path)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "https://youtube.com/playlist?list=PL123", body["url"])
			assert.Equal(t, true, body["audioGuarantee"])

			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    map[string]interface{}{"downloadId": "r-1", "status": "queued", "videoCount": 3},
			})
		}))
		defer srv.Close()

		res, err := newClient(srv.URL, config.ModeLocal).Analyze(context.Background(), domain.AnalyzeRequest{
			Kind:           domain.KindPlaylist,
			URL:            "https://youtube.com/playlist?list=PL123",
			Quality:        "best",
			AudioGuarantee: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "r-1", res.DownloadID)
		assert.Equal(t, 3, res.VideoCount)
	})

	t.Run("cloud video route", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/download-video", r.URL.Path)
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data":    map[string]interface{}{"downloadId": "c-1", "status": "analyzed"},
			})
		}))
		defer srv.Close()

		res, err := newClient(srv.URL, config.ModeCloud).Analyze(context.Background(), domain.AnalyzeRequest{
			Kind: domain.KindVideo,
			URL:  "https://youtu.be/abc",
		})
		require.NoError(t, err)
		assert.Equal(t, "c-1", res.DownloadID)
	})

	t.Run("non-2xx is RemoteError with status code", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "Invalid YouTube URL"})
		}))
		defer srv.Close()

		_, err := newClient(srv.URL, config.ModeCloud).Analyze(context.Background(), domain.AnalyzeRequest{
			Kind: domain.KindVideo,
			URL:  "https://youtu.be/abc",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrRemote)
		assert.Equal(t, http.StatusBadRequest, domain.StatusCodeOf(err))
		assert.Contains(t, err.Error(), "Invalid YouTube URL")
	})

	t.Run("2xx with success false is AnalysisError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "error": "playlist is private"})
		}))
		defer srv.Close()

		_, err := newClient(srv.URL, config.ModeLocal).Analyze(context.Background(), domain.AnalyzeRequest{
			Kind: domain.KindPlaylist,
			URL:  "https://youtube.com/playlist?list=PL1",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAnalysis)
		assert.Contains(t, err.Error(), "playlist is private")
	})

	t.Run("slow server is Timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		c := New(ClientConfig{BaseURL: srv.URL, Timeout: 100 * time.Millisecond, ReachabilityTimeout: 50 * time.Millisecond},
			obmocks.NewQuietLogger(), obmocks.NewQuietMetrics())

		_, err := c.Analyze(context.Background(), domain.AnalyzeRequest{Kind: domain.KindVideo, URL: "https://youtu.be/abc"})
		assert.ErrorIs(t, err, domain.ErrTimeout)
	})

	t.Run("refused connection is ServerUnreachable", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		require.NoError(t, ln.Close())

		_, err = newClient("http://"+addr, config.ModeLocal).Analyze(context.Background(),
			domain.AnalyzeRequest{Kind: domain.KindVideo, URL: "https://youtu.be/abc"})
		assert.ErrorIs(t, err, domain.ErrServerUnreachable)
	})
}

func TestClient_PollStatus(t *testing.T) {
	t.Run("local status is parsed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/status/r-1", r.URL.Path)
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"data": map[string]interface{}{
					"id": "r-1", "status": "downloading", "progress": 42.5, "speed": "1.2MiB/s", "eta": "00:10",
				},
			})
		}))
		defer srv.Close()

		rep, err := newClient(srv.URL, config.ModeLocal).PollStatus(context.Background(), "r-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDownloading, rep.Status)
		assert.Equal(t, 42.5, rep.Progress)
		assert.Equal(t, "1.2MiB/s", rep.Speed)
	})

	t.Run("404 is JobNotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "Download not found"})
		}))
		defer srv.Close()

		_, err := newClient(srv.URL, config.ModeLocal).PollStatus(context.Background(), "gone")
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})

	t.Run("unknown status is AnalysisError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]interface{}{"status": "???"}})
		}))
		defer srv.Close()

		_, err := newClient(srv.URL, config.ModeLocal).PollStatus(context.Background(), "r-1")
		assert.ErrorIs(t, err, domain.ErrAnalysis)
	})

	t.Run("cloud mode reports completed without a request", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request to %s", r.URL.Path)
		}))
		defer srv.Close()

		rep, err := newClient(srv.URL, config.ModeCloud).PollStatus(context.Background(), "c-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, rep.Status)
		assert.Equal(t, 100.0, rep.Progress)
	})
}

func TestClient_Cancel(t *testing.T) {
	t.Run("local cancel", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/cancel", r.URL.Path)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "r-1", body["downloadId"])
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]bool{"cancelled": true}})
		}))
		defer srv.Close()

		ok, err := newClient(srv.URL, config.ModeLocal).Cancel(context.Background(), "r-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("server error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "boom"})
		}))
		defer srv.Close()

		ok, err := newClient(srv.URL, config.ModeLocal).Cancel(context.Background(), "r-1")
		assert.False(t, ok)
		assert.ErrorIs(t, err, domain.ErrRemote)
		assert.Equal(t, 500, domain.StatusCodeOf(err))
	})

	t.Run("404 is JobNotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "Download not found"})
		}))
		defer srv.Close()

		_, err := newClient(srv.URL, config.ModeLocal).Cancel(context.Background(), "gone")
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})
}
