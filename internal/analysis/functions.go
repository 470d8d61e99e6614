package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ytdlpro/handler"
	"ytdlpro/internal/domain"
	"ytdlpro/internal/settings"
	"ytdlpro/observability"
	"ytdlpro/observability/types"

	"github.com/google/uuid"
)

// Function names, also used as route names.
const (
	FunctionHealth           = "health"
	FunctionDownloadPlaylist = "download-playlist"
	FunctionDownloadVideo    = "download-video"
	FunctionSettings         = "settings"
)

// ServiceName is reported by the health function.
const ServiceName = "YouTube Downloader Pro - Serverless API"

const localSetupNote = "Actual downloading requires a local setup; this API only analyzes."

// HealthWorker answers the health function.
type HealthWorker struct {
	version  string
	platform string
	now      func() time.Time
}

// NewHealthWorker creates a HealthWorker.
func NewHealthWorker(version, platform string) *HealthWorker {
	return &HealthWorker{version: version, platform: platform, now: time.Now}
}

// Name returns the health function name.
func (w *HealthWorker) Name() string { return FunctionHealth }

// Process reports the service status and version.
func (w *HealthWorker) Process(_ context.Context, req handler.Request) (handler.Response, error) {
	return handler.NewSuccessResponse(req.ID, map[string]string{
		"status":    "healthy",
		"timestamp": w.now().UTC().Format(time.RFC3339),
		"version":   w.version,
		"service":   ServiceName,
		"platform":  w.platform,
		"note":      "This is a serverless API for video analysis. Actual downloads require local setup.",
	})
}

// Health always succeeds.
func (w *HealthWorker) Health(context.Context) error { return nil }

// downloadBody is the body of both download functions.
type downloadBody struct {
	URL            string  `json:"url"`
	Quality        *string `json:"quality"`
	Format         *string `json:"format"`
	AudioGuarantee *bool   `json:"audioGuarantee"`
}

// downloadData is the success payload of both download functions.
type downloadData struct {
	DownloadID     string   `json:"downloadId"`
	Status         string   `json:"status"`
	VideoCount     int      `json:"videoCount,omitempty"`
	Title          string   `json:"title,omitempty"`
	Channel        string   `json:"channel,omitempty"`
	Duration       string   `json:"duration,omitempty"`
	Message        string   `json:"message"`
	Command        string   `json:"command"`
	FormatSelector string   `json:"formatSelector"`
	Format         string   `json:"format"`
	AudioGuarantee bool     `json:"audioGuarantee"`
	Note           string   `json:"note"`
	URLs           []string `json:"urls,omitempty"`
}

// previewSize caps the number of video URLs returned with a playlist.
const previewSize = 10

// DownloadWorker answers the download-playlist and download-video functions.
// Analysis happens here; downloading itself is left to the client.
type DownloadWorker struct {
	kind     domain.Kind
	analyzer domain.Analyzer
	logger   observability.Logger
	metrics  observability.Metrics
}

// NewDownloadWorker creates the function for kind.
func NewDownloadWorker(kind domain.Kind, analyzer domain.Analyzer, logger observability.Logger, metrics observability.Metrics) *DownloadWorker {
	return &DownloadWorker{kind: kind, analyzer: analyzer, logger: logger, metrics: metrics}
}

// Name returns the download function name for the worker's kind.
func (w *DownloadWorker) Name() string {
	if w.kind == domain.KindPlaylist {
		return FunctionDownloadPlaylist
	}
	return FunctionDownloadVideo
}

// Process validates the URL, analyzes it and answers with the download plan.
func (w *DownloadWorker) Process(ctx context.Context, req handler.Request) (handler.Response, error) {
	op := w.Name()

	w.metrics.StartOperation(op)
	defer w.metrics.EndOperation(op)

	var body downloadBody
	if err := req.Unmarshal(&body); err != nil {
		w.metrics.RecordError(op, "invalid_payload")
		return handler.NewErrorResponse(req.ID, handler.CodeInvalidPayload, "Invalid JSON body", err.Error()), nil
	}

	rawURL := strings.TrimSpace(body.URL)
	if rawURL == "" {
		w.metrics.RecordError(op, "missing_url")
		return handler.NewErrorResponse(req.ID, handler.CodeInvalidURL, "URL is required", ""), nil
	}
	if !domain.LooksLikeYouTube(rawURL) || !w.acceptsURL(rawURL) {
		w.metrics.RecordError(op, "invalid_url")
		return handler.NewErrorResponse(req.ID, handler.CodeInvalidURL, "Invalid YouTube URL", rawURL), nil
	}

	quality := domain.DefaultQuality
	if body.Quality != nil && strings.TrimSpace(*body.Quality) != "" {
		quality = strings.TrimSpace(*body.Quality)
	}
	format := domain.DefaultFormat
	if body.Format != nil && strings.TrimSpace(*body.Format) != "" {
		format = strings.TrimSpace(*body.Format)
	}
	audioGuarantee := true
	if body.AudioGuarantee != nil {
		audioGuarantee = *body.AudioGuarantee
	}

	selector := domain.FormatSelector(audioGuarantee, quality)
	data := downloadData{
		DownloadID:     uuid.NewString(),
		Status:         "analyzed",
		Command:        domain.CommandHint(selector, rawURL),
		FormatSelector: selector,
		Format:         format,
		AudioGuarantee: audioGuarantee,
		Note:           localSetupNote,
	}

	ctx = context.WithValue(ctx, types.JobIDKey, data.DownloadID)

	if err := w.analyze(ctx, rawURL, &data); err != nil {
		return w.failure(ctx, req.ID, rawURL, err), nil
	}

	w.metrics.RecordSuccess(op)
	w.logger.Info(ctx, "Analysis complete", observability.Fields{
		"url":         rawURL,
		"video_count": data.VideoCount,
		"selector":    selector,
	})

	return handler.NewSuccessResponse(req.ID, data)
}

func (w *DownloadWorker) acceptsURL(rawURL string) bool {
	if w.kind == domain.KindPlaylist {
		return domain.PlaylistID(rawURL) != ""
	}
	return domain.VideoID(rawURL) != ""
}

func (w *DownloadWorker) analyze(ctx context.Context, rawURL string, data *downloadData) error {
	if w.kind == domain.KindPlaylist {
		res, err := w.analyzer.AnalyzePlaylist(ctx, rawURL)
		if err != nil {
			return err
		}
		data.Title = res.Title
		data.VideoCount = len(res.Videos)
		for i, v := range res.Videos {
			if i == previewSize {
				break
			}
			data.URLs = append(data.URLs, v.URL)
		}
		data.Message = fmt.Sprintf("Playlist analyzed: %d videos found.", data.VideoCount)
		return nil
	}

	res, err := w.analyzer.AnalyzeVideo(ctx, rawURL)
	if err != nil {
		return err
	}
	data.Title = res.Title
	data.Channel = res.Channel
	data.Duration = res.Duration
	data.VideoCount = 1
	data.Message = "Video analyzed successfully."
	return nil
}

// failure maps an analysis error to a client response.
func (w *DownloadWorker) failure(ctx context.Context, requestID, rawURL string, err error) handler.Response {
	op := w.Name()
	subject := "video"
	if w.kind == domain.KindPlaylist {
		subject = "playlist"
	}

	errorType := strings.ToLower(domain.CodeOf(err))
	if errorType == "" {
		errorType = "unknown"
	}
	w.metrics.RecordError(op, errorType)
	w.logger.Error(ctx, "Analysis failed", err, observability.Fields{"url": rawURL})

	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		return handler.NewErrorResponse(requestID, handler.CodeInvalidURL, "Invalid YouTube URL", err.Error())
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return handler.NewErrorResponse(requestID, handler.CodeTimeout,
			fmt.Sprintf("Request timeout - %s analysis took too long", subject), err.Error())
	case errors.Is(err, domain.ErrAnalysis):
		return handler.NewErrorResponse(requestID, handler.CodeAnalysisFailed,
			fmt.Sprintf("Failed to analyze %s: %s", subject, err.Error()), "")
	default:
		return handler.NewErrorResponse(requestID, handler.CodeInternal,
			fmt.Sprintf("Analysis error: %s", err.Error()), "")
	}
}

// Health always succeeds.
func (w *DownloadWorker) Health(context.Context) error { return nil }

// SettingsLimits are the server-side values reported with the settings.
type SettingsLimits struct {
	MaxConcurrentDownloads int
	RetryAttempts          int
	DownloadTimeout        time.Duration
	ServerType             string
}

// SettingsWorker answers the settings function with the stored defaults.
type SettingsWorker struct {
	store  settings.Store
	limits SettingsLimits
}

// NewSettingsWorker creates a SettingsWorker.
func NewSettingsWorker(store settings.Store, limits SettingsLimits) *SettingsWorker {
	return &SettingsWorker{store: store, limits: limits}
}

// Name returns the settings function name.
func (w *SettingsWorker) Name() string { return FunctionSettings }

// Process answers with the stored defaults and server limits.
func (w *SettingsWorker) Process(ctx context.Context, req handler.Request) (handler.Response, error) {
	s, err := w.store.Get(ctx)
	if err != nil {
		return handler.Response{}, fmt.Errorf("load settings: %w", err)
	}

	return handler.NewSuccessResponse(req.ID, map[string]interface{}{
		"quality":                s.Quality,
		"format":                 s.Format,
		"audioGuarantee":         s.AudioGuarantee,
		"notifications":          s.Notifications,
		"outputPath":             s.OutputPath,
		"maxConcurrentDownloads": w.limits.MaxConcurrentDownloads,
		"retryAttempts":          w.limits.RetryAttempts,
		"downloadTimeout":        int(w.limits.DownloadTimeout.Seconds()),
		"serverType":             w.limits.ServerType,
		"note":                   "Serverless API provides video analysis. Use local scripts for actual downloading.",
	})
}

// Health checks that the settings store is readable.
func (w *SettingsWorker) Health(ctx context.Context) error {
	_, err := w.store.Get(ctx)
	return err
}
