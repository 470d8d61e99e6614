package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ytdlpro/config"
	"ytdlpro/internal/coordinator"
	"ytdlpro/internal/domain"
	"ytdlpro/internal/page"
	"ytdlpro/internal/remote"
	"ytdlpro/internal/settings"
	"ytdlpro/internal/tracker"
	"ytdlpro/observability"

	"github.com/prometheus/client_golang/prometheus"
)

const maxPageSize = 8 << 20

type app struct {
	cfg      *config.Config
	provider observability.Provider
	logger   observability.Logger
	stdout   io.Writer
	stderr   io.Writer
}

func newApp(cfg *config.Config, stdout, stderr io.Writer) *app {
	provider := observability.NewProvider(&observability.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		LogLevel:    cfg.LogLevel,
		LogOutput:   stderr,
		Registerer:  prometheus.NewRegistry(),
	})

	return &app{
		cfg:      cfg,
		provider: provider,
		logger:   provider.Logger("cli"),
		stdout:   stdout,
		stderr:   stderr,
	}
}

func (a *app) close() {
	_ = a.provider.Close()
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) analyze(ctx context.Context, args []string) int {
	fs := a.flagSet("analyze")
	noFetch := fs.Bool("no-fetch", false, "classify the URL without downloading the page")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.stderr, "analyze needs exactly one URL")
		return exitUsage
	}

	desc := a.describe(ctx, fs.Arg(0), !*noFetch)

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(desc); err != nil {
		fmt.Fprintf(a.stderr, "encode: %v\n", err)
		return exitFailed
	}
	return exitOK
}

func (a *app) download(ctx context.Context, args []string) int {
	fs := a.flagSet("download")
	server := fs.String("server", "", "server base URL (default REMOTE_BASE_URL)")
	mode := fs.String("mode", "", "server flavor: local or cloud (default REMOTE_MODE)")
	kindFlag := fs.String("kind", "auto", "auto, playlist or video")
	noFetch := fs.Bool("no-fetch", false, "classify the URL without downloading the page")
	patch := bindPatch(fs, false)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.stderr, "download needs exactly one URL")
		return exitUsage
	}
	rawURL := fs.Arg(0)

	st, err := a.loadSettings(ctx, patch(fs))
	if err != nil {
		fmt.Fprintf(a.stderr, "settings: %v\n", err)
		return exitUsage
	}

	rc := a.cfg.Remote
	if *server != "" {
		rc.BaseURL = *server
	}
	if *mode != "" {
		rc.Mode = strings.ToLower(*mode)
	}

	desc := a.describe(ctx, rawURL, !*noFetch)
	kind, ok := pickKind(*kindFlag, desc)
	if !ok {
		fmt.Fprintf(a.stderr, "%s is neither a playlist nor a single video\n", rawURL)
		return exitFailed
	}

	client := remote.New(remote.FromConfig(rc), a.provider.Logger("remote"), a.provider.Metrics("remote"))

	// The coordinator always notifies so follow learns the outcome even
	// after the record is gone. The user's setting only gates printing.
	outcome := make(chan domain.Notification, 1)
	notifier := coordinator.MultiNotifier{terminalNotifier(outcome)}
	if st.Notifications {
		notifier = append(notifier,
			coordinator.NewWriterNotifier(a.stdout),
			coordinator.NewLogNotifier(a.provider.Logger("notifier")))
	}
	st.Notifications = true

	c := coordinator.New(client, tracker.New(), notifier,
		coordinator.FromConfig(a.cfg.Coordinator, rc),
		a.provider.Logger("coordinator"), a.provider.Metrics("coordinator"))
	defer func() { _ = c.Close() }()

	id, err := c.StartDownload(ctx, kind, desc, st)
	if err != nil {
		fmt.Fprintf(a.stderr, "start: %v\n", err)
		return exitFailed
	}

	c.Start(ctx)
	return a.follow(ctx, c, id, outcome)
}

// terminalNotifier forwards the first terminal notification to out.
func terminalNotifier(out chan<- domain.Notification) domain.Notifier {
	return domain.NotifierFunc(func(_ context.Context, n domain.Notification) {
		if n.Kind == domain.NotifyStarted {
			return
		}
		select {
		case out <- n:
		default:
		}
	})
}

func outcomeCode(n domain.Notification) int {
	if n.Kind == domain.NotifyCompleted {
		return exitOK
	}
	return exitFailed
}

// follow prints progress until the job ends. The exit code comes from the
// terminal notification on outcome, so a record removed right after it
// finished still reads as its real result. An interrupt cancels the job on
// the server before returning.
func (a *app) follow(ctx context.Context, c *coordinator.Coordinator, id string, outcome <-chan domain.Notification) int {
	ticker := time.NewTicker(a.cfg.Coordinator.PollInterval)
	defer ticker.Stop()

	var last string
	for {
		select {
		case <-ctx.Done():
			cancelCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Remote.Timeout)
			defer cancel()
			if err := c.Cancel(cancelCtx, id); err != nil && !errors.Is(err, domain.ErrJobNotFound) {
				fmt.Fprintf(a.stderr, "cancel: %v\n", err)
			}
			return exitInterrupted
		case n := <-outcome:
			return outcomeCode(n)
		case <-ticker.C:
		}

		rec, err := c.Job(id)
		if errors.Is(err, domain.ErrJobNotFound) {
			select {
			case n := <-outcome:
				return outcomeCode(n)
			default:
			}
			fmt.Fprintf(a.stderr, "download %s is no longer tracked\n", id)
			return exitFailed
		}
		if err != nil {
			fmt.Fprintf(a.stderr, "job: %v\n", err)
			return exitFailed
		}

		if line := progressLine(rec); line != "" && line != last {
			fmt.Fprintln(a.stderr, line)
			last = line
		}

		if rec.Status.IsTerminal() {
			if rec.Status == domain.StatusCompleted {
				return exitOK
			}
			return exitFailed
		}
	}
}

func progressLine(rec domain.JobRecord) string {
	if rec.Progress == nil {
		return ""
	}
	parts := []string{fmt.Sprintf("%s %5.1f%%", rec.Status, *rec.Progress)}
	if rec.Speed != "" {
		parts = append(parts, rec.Speed)
	}
	if rec.ETA != "" {
		parts = append(parts, "ETA "+rec.ETA)
	}
	return strings.Join(parts, "  ")
}

func pickKind(flagValue string, desc domain.PageDescriptor) (domain.Kind, bool) {
	switch strings.ToLower(flagValue) {
	case "playlist":
		return domain.KindPlaylist, true
	case "video":
		return domain.KindVideo, true
	}
	switch {
	case desc.IsPlaylist:
		return domain.KindPlaylist, true
	case desc.IsSingleVideo:
		return domain.KindVideo, true
	}
	return "", false
}

func (a *app) settings(ctx context.Context, args []string) int {
	fs := a.flagSet("settings")
	patch := bindPatch(fs, true)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	store := settings.New(a.settingsPath())
	p := patch(fs)

	var (
		st  domain.Settings
		err error
	)
	if p == (settings.Patch{}) {
		st, err = store.Get(ctx)
	} else {
		st, err = store.Update(ctx, p)
	}
	if err != nil {
		fmt.Fprintf(a.stderr, "settings: %v\n", err)
		if errors.Is(err, settings.ErrInvalidSettings) {
			return exitUsage
		}
		return exitFailed
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(st)
	return exitOK
}

// loadSettings reads the stored settings and applies the one-off overrides.
func (a *app) loadSettings(ctx context.Context, overrides settings.Patch) (domain.Settings, error) {
	st, err := settings.New(a.settingsPath()).Get(ctx)
	if err != nil {
		a.logger.Warn(ctx, "Stored settings unreadable, using defaults", observability.Fields{"error": err.Error()})
		st = domain.DefaultSettings()
	}
	return overrides.Apply(st)
}

// settingsPath is SETTINGS_FILE or ytdlpro/settings.yaml in the user's
// config directory.
func (a *app) settingsPath() string {
	if a.cfg.Local.SettingsFile != "" {
		return a.cfg.Local.SettingsFile
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ytdlpro", "settings.yaml")
}

// bindPatch registers the settings flags on fs. The returned function
// builds a Patch from the flags that were actually set.
func bindPatch(fs *flag.FlagSet, full bool) func(*flag.FlagSet) settings.Patch {
	quality := fs.String("quality", "", "best or a height such as 720")
	format := fs.String("format", "", "container format, e.g. mp4")
	audio := fs.Bool("audio-guarantee", true, "prefer streams that carry audio")
	notify := fs.Bool("notifications", true, "print notifications")

	var serverURL, output *string
	if full {
		serverURL = fs.String("server-url", "", "default server URL")
		output = fs.String("output", "", "download directory")
	}

	return func(fs *flag.FlagSet) settings.Patch {
		var p settings.Patch
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "quality":
				p.Quality = quality
			case "format":
				p.Format = format
			case "audio-guarantee":
				p.AudioGuarantee = audio
			case "notifications":
				p.Notifications = notify
			case "server-url":
				p.ServerURL = serverURL
			case "output":
				p.OutputPath = output
			}
		})
		return p
	}
}

// describe runs the page analyzer over rawURL, fetching the page unless
// fetch is false. A failed fetch degrades to URL-only classification.
func (a *app) describe(ctx context.Context, rawURL string, fetch bool) domain.PageDescriptor {
	if !fetch {
		return page.Analyze(rawURL, nil)
	}

	body, err := a.fetchPage(ctx, rawURL)
	if err != nil {
		a.logger.Warn(ctx, "Page fetch failed, classifying by URL", observability.Fields{"url": rawURL, "error": err.Error()})
		return page.Analyze(rawURL, nil)
	}
	defer body.Close()

	return page.Analyze(rawURL, io.LimitReader(body, maxPageSize))
}

func (a *app) fetchPage(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	if _, ok := domain.ParseYouTubeURL(rawURL); !ok {
		return nil, domain.InvalidURL(rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.HTTP.Timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("User-Agent", a.cfg.HTTP.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("page answered %d", resp.StatusCode)
	}
	return cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
