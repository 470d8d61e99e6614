// Package remote is the HTTP client for the download server. It speaks to
// either the serverless analysis API (cloud mode) or the local REST service
// (local mode) and turns every failure into a typed domain error.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ytdlpro/config"
	"ytdlpro/internal/domain"
	"ytdlpro/observability"
)

const maxBodySize = 1 << 20

// ClientConfig holds remote client configuration
type ClientConfig struct {
	BaseURL             string
	Mode                string
	Timeout             time.Duration
	ReachabilityTimeout time.Duration
	UserAgent           string
}

// FromConfig converts the application config section.
func FromConfig(rc config.RemoteConfig) ClientConfig {
	return ClientConfig{
		BaseURL:             rc.BaseURL,
		Mode:                rc.Mode,
		Timeout:             rc.Timeout,
		ReachabilityTimeout: rc.ReachabilityTimeout,
		UserAgent:           rc.UserAgent,
	}
}

// routes is the path layout of one server flavor. Empty status/cancel
// paths mean the server keeps no job state.
type routes struct {
	health   string
	playlist string
	video    string
	status   string
	cancel   string
}

var (
	cloudRoutes = routes{
		health:   "/api/health",
		playlist: "/api/download-playlist",
		video:    "/api/download-video",
	}
	localRoutes = routes{
		health:   "/api/health",
		playlist: "/api/download/playlist",
		video:    "/api/download/video",
		status:   "/api/status/",
		cancel:   "/api/cancel",
	}
)

// Client implements domain.RemoteClient
type Client struct {
	http    *http.Client
	config  ClientConfig
	routes  routes
	logger  observability.Logger
	metrics observability.Metrics
}

var _ domain.RemoteClient = (*Client)(nil)

// New creates a client. Zero timeouts fall back to 30s and 3s.
func New(cfg ClientConfig, logger observability.Logger, metrics observability.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ReachabilityTimeout <= 0 {
		cfg.ReachabilityTimeout = 3 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ytdlpro/1.0"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	r := localRoutes
	if cfg.Mode == config.ModeCloud {
		r = cloudRoutes
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		config:  cfg,
		routes:  r,
		logger:  logger,
		metrics: metrics,
	}
}

// envelope is the {success, data, error} wrapper every endpoint answers with.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// CheckReachable probes the health route. It never returns an error and
// never waits longer than the reachability timeout.
func (c *Client) CheckReachable(ctx context.Context) domain.Reachability {
	start := time.Now()
	defer func() {
		c.metrics.RecordDuration("check_reachable", time.Since(start).Seconds())
	}()

	status, body, err := c.do(ctx, "check_reachable", http.MethodGet, c.routes.health, nil, c.config.ReachabilityTimeout)
	if err != nil {
		c.metrics.RecordError("check_reachable", domain.CodeOf(err))
		c.logger.Warn(ctx, "Server not reachable", observability.Fields{
			"base_url": c.config.BaseURL,
			"error":    err.Error(),
		})
		return domain.Reachability{Reachable: false, Detail: err.Error()}
	}

	if status < 200 || status > 299 {
		c.metrics.RecordError("check_reachable", "bad_status")
		return domain.Reachability{Reachable: false, Detail: fmt.Sprintf("health check answered %d", status)}
	}

	c.metrics.RecordSuccess("check_reachable")

	var health struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(body, &health)
	return domain.Reachability{Reachable: true, Detail: health.Status}
}

// Analyze submits a playlist or video URL.
func (c *Client) Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalysisResult, error) {
	var path string
	switch req.Kind {
	case domain.KindPlaylist:
		path = c.routes.playlist
	case domain.KindVideo:
		path = c.routes.video
	default:
		return nil, fmt.Errorf("analyze: unknown job kind %q", req.Kind)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("analyze: encode request: %w", err)
	}

	var result domain.AnalysisResult
	if err := c.call(ctx, "analyze", http.MethodPost, path, payload, &result); err != nil {
		return nil, err
	}

	if result.DownloadID == "" {
		c.metrics.RecordError("analyze", domain.CodeAnalysisError)
		return nil, domain.AnalysisError("server response has no downloadId")
	}

	if req.Kind == domain.KindPlaylist {
		c.metrics.RecordVideoCount(string(req.Kind), result.VideoCount)
	}
	return &result, nil
}

// statusData is the status payload of the local service.
type statusData struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	Progress        float64 `json:"progress"`
	Speed           string  `json:"speed"`
	ETA             string  `json:"eta"`
	CurrentVideo    string  `json:"currentVideo"`
	TotalVideos     int     `json:"totalVideos"`
	CompletedVideos int     `json:"completedVideos"`
	ErrorMessage    string  `json:"errorMessage"`
}

// PollStatus fetches the state of a remote job. The cloud API holds no job
// state: its analysis is final, so the job is reported Completed.
func (c *Client) PollStatus(ctx context.Context, remoteID string) (*domain.StatusReport, error) {
	if c.routes.status == "" {
		return &domain.StatusReport{ID: remoteID, Status: domain.StatusCompleted, Progress: 100}, nil
	}

	var data statusData
	path := c.routes.status + url.PathEscape(remoteID)
	if err := c.call(ctx, "poll_status", http.MethodGet, path, nil, &data); err != nil {
		if domain.StatusCodeOf(err) == http.StatusNotFound {
			return nil, domain.JobNotFound(remoteID)
		}
		return nil, err
	}

	status, ok := domain.ParseStatus(data.Status)
	if !ok {
		c.metrics.RecordError("poll_status", "unknown_status")
		return nil, domain.AnalysisError(fmt.Sprintf("unknown job status %q", data.Status))
	}

	return &domain.StatusReport{
		ID:              remoteID,
		Status:          status,
		Progress:        data.Progress,
		Speed:           data.Speed,
		ETA:             data.ETA,
		CurrentVideo:    data.CurrentVideo,
		TotalVideos:     data.TotalVideos,
		CompletedVideos: data.CompletedVideos,
		ErrorMessage:    data.ErrorMessage,
	}, nil
}

// Cancel asks the server to stop a job and reports whether it did.
func (c *Client) Cancel(ctx context.Context, remoteID string) (bool, error) {
	if c.routes.cancel == "" {
		return true, nil
	}

	payload, err := json.Marshal(map[string]string{"downloadId": remoteID})
	if err != nil {
		return false, fmt.Errorf("cancel: encode request: %w", err)
	}

	var data struct {
		Cancelled bool `json:"cancelled"`
	}
	if err := c.call(ctx, "cancel", http.MethodPost, c.routes.cancel, payload, &data); err != nil {
		if domain.StatusCodeOf(err) == http.StatusNotFound {
			return false, domain.JobNotFound(remoteID)
		}
		return false, err
	}
	return data.Cancelled, nil
}

// call performs a request with the full timeout, unwraps the envelope and
// decodes data into out.
func (c *Client) call(ctx context.Context, op, method, path string, payload []byte, out interface{}) error {
	c.metrics.StartOperation(op)
	defer c.metrics.EndOperation(op)

	start := time.Now()
	defer func() {
		c.metrics.RecordDuration(op, time.Since(start).Seconds())
	}()

	status, body, err := c.do(ctx, op, method, path, payload, c.config.Timeout)
	if err != nil {
		c.metrics.RecordError(op, domain.CodeOf(err))
		c.logger.Error(ctx, "Remote call failed", err, observability.Fields{"operation": op, "path": path})
		return err
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if status < 200 || status > 299 {
		err := domain.RemoteError(status, env.Error)
		c.metrics.RecordError(op, domain.CodeRemoteError)
		c.logger.Warn(ctx, "Remote call returned error status", observability.Fields{
			"operation":   op,
			"path":        path,
			"status_code": status,
			"message":     env.Error,
		})
		return err
	}

	if decodeErr != nil {
		c.metrics.RecordError(op, domain.CodeAnalysisError)
		return domain.AnalysisError(fmt.Sprintf("invalid response body: %v", decodeErr))
	}

	if !env.Success {
		c.metrics.RecordError(op, domain.CodeAnalysisError)
		c.logger.Warn(ctx, "Remote call declared failure", observability.Fields{"operation": op, "message": env.Error})
		return domain.AnalysisError(env.Error)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			c.metrics.RecordError(op, domain.CodeAnalysisError)
			return domain.AnalysisError(fmt.Sprintf("invalid response data: %v", err))
		}
	}

	c.metrics.RecordSuccess(op)
	return nil
}

// do sends one request bounded by timeout and returns status and body.
// Transport failures become Timeout or ServerUnreachable errors.
func (c *Client) do(ctx context.Context, op, method, path string, payload []byte, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, classifyTransportError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, classifyTransportError(op, err)
	}

	return resp.StatusCode, data, nil
}

func classifyTransportError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.Timeout(op, err)
	}

	return domain.ServerUnreachable(fmt.Sprintf("%s: request failed", op), err)
}
