// Package localserver is the local-mode REST service. It queues downloads,
// runs them through yt-dlp and answers the status and cancel calls the
// coordinator makes while a job is in flight.
package localserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ytdlpro/internal/domain"
	"ytdlpro/internal/settings"
	"ytdlpro/observability"
	"ytdlpro/observability/types"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodySize = 1 << 20

// Limits are the fixed service limits reported with the settings.
type Limits struct {
	MaxConcurrentDownloads int
	RetryAttempts          int
	DownloadTimeout        time.Duration
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	Tasks    *Service
	Settings settings.Store
	Limits   Limits
	Version  string
	Logger   observability.Logger
	Metrics  observability.Metrics

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(cors)

	r.Get("/", s.handleDashboard)
	r.Get("/dashboard", s.handleDashboard)
	if s.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/download/playlist", s.handleDownload(domain.KindPlaylist))
		r.Post("/download/video", s.handleDownload(domain.KindVideo))
		r.Get("/status/{id}", s.handleStatus)
		r.Get("/downloads", s.handleDownloads)
		r.Post("/cancel", s.handleCancel)
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleUpdateSettings)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs every request with the request id chi assigned.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = context.WithValue(ctx, types.RequestIDKey, id)
			r = r.WithContext(ctx)
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.Metrics.RecordDuration("http_request", time.Since(start).Seconds())
		s.Logger.Info(ctx, "Request completed", observability.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status_code": status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"version":         s.Version,
		"activeDownloads": s.Tasks.Active(),
	})
}

type downloadBody struct {
	URL            string  `json:"url"`
	Quality        *string `json:"quality"`
	Format         *string `json:"format"`
	AudioGuarantee *bool   `json:"audioGuarantee"`
}

func (s *Server) handleDownload(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body downloadBody
		if err := decodeBody(w, r, &body); err != nil {
			s.Metrics.RecordError("submit", "invalid_payload")
			writeErr(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		rawURL := strings.TrimSpace(body.URL)
		if rawURL == "" {
			s.Metrics.RecordError("submit", "missing_url")
			writeErr(w, http.StatusBadRequest, "URL is required")
			return
		}
		if !acceptsURL(kind, rawURL) {
			s.Metrics.RecordError("submit", "invalid_url")
			writeErr(w, http.StatusBadRequest, "Invalid YouTube URL")
			return
		}

		defaults, err := s.Settings.Get(ctx)
		if err != nil {
			s.Logger.Warn(ctx, "Settings unavailable, using defaults", observability.Fields{"error": err.Error()})
			defaults = domain.DefaultSettings()
		}

		req := Request{
			Kind:           kind,
			URL:            rawURL,
			Quality:        defaults.Quality,
			Format:         defaults.Format,
			AudioGuarantee: defaults.AudioGuarantee,
		}
		if body.Quality != nil && strings.TrimSpace(*body.Quality) != "" {
			req.Quality = strings.ToLower(strings.TrimSpace(*body.Quality))
		}
		if body.Format != nil && strings.TrimSpace(*body.Format) != "" {
			req.Format = strings.TrimSpace(*body.Format)
		}
		if body.AudioGuarantee != nil {
			req.AudioGuarantee = *body.AudioGuarantee
		}

		task := s.Tasks.Submit(ctx, req)
		s.Metrics.RecordSuccess("submit")

		writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{
			"downloadId":     task.ID,
			"status":         "queued",
			"formatSelector": task.FormatSelector,
			"command":        domain.CommandHint(task.FormatSelector, rawURL),
		}})
	}
}

func acceptsURL(kind domain.Kind, rawURL string) bool {
	if !domain.LooksLikeYouTube(rawURL) {
		return false
	}
	if kind == domain.KindPlaylist {
		return domain.PlaylistID(rawURL) != ""
	}
	return domain.VideoID(rawURL) != ""
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.Tasks.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: task})
}

func (s *Server) handleDownloads(w http.ResponseWriter, _ *http.Request) {
	tasks := s.Tasks.List()
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{
		"tasks":   tasks,
		"summary": Summarize(tasks),
	}})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DownloadID string `json:"downloadId"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(body.DownloadID) == "" {
		writeErr(w, http.StatusBadRequest, "downloadId is required")
		return
	}

	cancelled, err := s.Tasks.Cancel(r.Context(), body.DownloadID)
	if errors.Is(err, ErrTaskNotFound) {
		writeErr(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]bool{"cancelled": cancelled}})
}

type settingsView struct {
	domain.Settings
	MaxConcurrentDownloads int `json:"maxConcurrentDownloads"`
	RetryAttempts          int `json:"retryAttempts"`
	DownloadTimeout        int `json:"downloadTimeout"`
}

func (s *Server) settingsView(st domain.Settings) settingsView {
	return settingsView{
		Settings:               st,
		MaxConcurrentDownloads: s.Limits.MaxConcurrentDownloads,
		RetryAttempts:          s.Limits.RetryAttempts,
		DownloadTimeout:        int(s.Limits.DownloadTimeout.Seconds()),
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.Settings.Get(r.Context())
	if err != nil {
		s.Logger.Error(r.Context(), "Failed to read settings", err, nil)
		writeErr(w, http.StatusInternalServerError, "Failed to read settings")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: s.settingsView(st)})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := decodeBody(w, r, &patch); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	st, err := s.Settings.Update(r.Context(), patch)
	if errors.Is(err, settings.ErrInvalidSettings) {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.Logger.Error(r.Context(), "Failed to update settings", err, nil)
		writeErr(w, http.StatusInternalServerError, "Failed to update settings")
		return
	}

	s.Logger.Info(r.Context(), "Settings updated", observability.Fields{"quality": st.Quality, "format": st.Format})
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: s.settingsView(st)})
}

// envelope is the {success, data, error} wrapper of every API answer
// except health.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// decodeBody reads a JSON body. An empty body decodes as {}.
func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}
