// Package analysis implements the cloud analysis API: page and playlist
// analysis backed by YouTube itself, exposed as serverless functions.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ytdlpro/config"
	"ytdlpro/internal/domain"
	"ytdlpro/internal/page"
	"ytdlpro/observability"

	"github.com/gcottom/retry"
)

// BackendConfig configures page fetching.
type BackendConfig struct {
	Timeout   time.Duration
	Attempts  int
	UserAgent string

	// PageBaseURL replaces scheme and host of fetched pages. Empty fetches
	// the page URL itself.
	PageBaseURL string
}

// BackendConfigFrom builds a BackendConfig from the application config.
func BackendConfigFrom(cfg *config.Config) BackendConfig {
	return BackendConfig{
		Timeout:   cfg.Analysis.Timeout,
		Attempts:  cfg.Analysis.Attempts,
		UserAgent: cfg.HTTP.UserAgent,
	}
}

// Backend analyzes pages by fetching them and running the page analyzer;
// playlists are enumerated through a PlaylistLister.
type Backend struct {
	http    *http.Client
	config  BackendConfig
	lister  PlaylistLister
	logger  observability.Logger
	metrics observability.Metrics
}

var _ domain.Analyzer = (*Backend)(nil)

// NewBackend creates a Backend.
func NewBackend(cfg BackendConfig, lister PlaylistLister, logger observability.Logger, metrics observability.Metrics) *Backend {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (compatible; ytdlpro/1.0)"
	}
	if lister == nil {
		lister = YTDLPLister{}
	}

	return &Backend{
		http:    &http.Client{Timeout: cfg.Timeout},
		config:  cfg,
		lister:  lister,
		logger:  logger,
		metrics: metrics,
	}
}

// AnalyzePlaylist lists the playlist's videos and reads its title from the
// playlist page. Either source alone is enough.
func (b *Backend) AnalyzePlaylist(ctx context.Context, rawURL string) (*domain.PlaylistAnalysis, error) {
	const op = "analyze_playlist"

	id := domain.PlaylistID(rawURL)
	if id == "" {
		return nil, domain.InvalidURL(rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		b.metrics.RecordDuration(op, time.Since(start).Seconds())
	}()

	desc, pageErr := b.fetch(ctx, rawURL)
	if pageErr != nil {
		b.logger.Warn(ctx, "Playlist page unavailable, relying on listing", observability.Fields{
			"playlist_id": id,
			"error":       pageErr.Error(),
		})
	}

	videos, listErr := b.lister.ListPlaylist(ctx, id)
	if listErr != nil {
		if pageErr != nil || len(desc.Videos) == 0 {
			b.metrics.RecordError(op, "listing_failed")
			return nil, classify(ctx, "analyze playlist", listErr)
		}
		b.logger.Warn(ctx, "Playlist listing failed, using page rows", observability.Fields{
			"playlist_id": id,
			"error":       listErr.Error(),
		})
		videos = desc.Videos
	}

	title := desc.Title
	if title == "" {
		title = page.UnknownPlaylist
	}

	b.metrics.RecordVideoCount(string(domain.KindPlaylist), len(videos))
	b.metrics.RecordSuccess(op)

	return &domain.PlaylistAnalysis{ID: id, Title: title, Videos: videos}, nil
}

// AnalyzeVideo reads title, channel and duration from the watch page.
func (b *Backend) AnalyzeVideo(ctx context.Context, rawURL string) (*domain.VideoAnalysis, error) {
	const op = "analyze_video"

	id := domain.VideoID(rawURL)
	if id == "" {
		return nil, domain.InvalidURL(rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		b.metrics.RecordDuration(op, time.Since(start).Seconds())
	}()

	desc, err := b.fetch(ctx, rawURL)
	if err != nil {
		b.metrics.RecordError(op, "fetch_failed")
		return nil, classify(ctx, "analyze video", err)
	}

	b.metrics.RecordSuccess(op)
	return &domain.VideoAnalysis{
		ID:       id,
		Title:    desc.Title,
		Channel:  desc.ChannelName,
		Duration: desc.Duration,
	}, nil
}

// fetch downloads and analyzes a page, retrying transient failures.
func (b *Backend) fetch(ctx context.Context, pageURL string) (domain.PageDescriptor, error) {
	res, err := retry.Retry(retry.NewAlgSimpleDefault(), b.config.Attempts, b.fetchPage, ctx, pageURL)
	if err != nil {
		return domain.PageDescriptor{}, err
	}
	return res[0].(domain.PageDescriptor), nil
}

func (b *Backend) fetchPage(ctx context.Context, pageURL string) (domain.PageDescriptor, error) {
	target, err := b.target(pageURL)
	if err != nil {
		return domain.PageDescriptor{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return domain.PageDescriptor{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", b.config.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := b.http.Do(req)
	if err != nil {
		return domain.PageDescriptor{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.PageDescriptor{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return page.Analyze(pageURL, resp.Body), nil
}

func (b *Backend) target(pageURL string) (string, error) {
	if b.config.PageBaseURL == "" {
		return pageURL, nil
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page url: %w", err)
	}
	return strings.TrimRight(b.config.PageBaseURL, "/") + u.RequestURI(), nil
}

// classify turns a backend failure into a domain error.
func classify(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.Timeout(op, err)
	}
	return domain.AnalysisError(fmt.Sprintf("%s: %v", op, err))
}
