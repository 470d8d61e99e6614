package localserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"ytdlpro/internal/domain"
)

// Job is what a runner needs to perform one download.
type Job struct {
	ID       string
	Kind     domain.Kind
	URL      string
	Selector string
	Format   string
}

// Runner performs a download and reports output events while it runs.
// Run returns when the download ends; a cancelled ctx stops it.
type Runner interface {
	Run(ctx context.Context, job Job, report func(ProgressEvent)) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, job Job, report func(ProgressEvent)) error

func (f RunnerFunc) Run(ctx context.Context, job Job, report func(ProgressEvent)) error {
	return f(ctx, job, report)
}

// ExecRunner drives the yt-dlp executable.
type ExecRunner struct {
	ToolPath  string
	OutputDir string
}

// NewExecRunner creates a runner writing into outputDir.
func NewExecRunner(toolPath, outputDir string) *ExecRunner {
	if toolPath == "" {
		toolPath = "yt-dlp"
	}
	if outputDir == "" {
		outputDir = domain.DefaultOutputPath
	}
	return &ExecRunner{ToolPath: toolPath, OutputDir: outputDir}
}

// Args builds the yt-dlp command line for job.
func (r *ExecRunner) Args(job Job) []string {
	args := []string{
		"--newline",
		"--no-colors",
		"--restrict-filenames",
		"-f", job.Selector,
	}

	if job.Kind == domain.KindPlaylist {
		args = append(args,
			"--yes-playlist",
			"-o", filepath.Join(r.OutputDir, "%(playlist_title)s", "%(playlist_index)03d - %(title)s.%(ext)s"),
		)
	} else {
		args = append(args,
			"--no-playlist",
			"-o", filepath.Join(r.OutputDir, "%(title)s.%(ext)s"),
		)
	}

	if job.Format != "" {
		args = append(args, "--merge-output-format", job.Format)
	}

	return append(args, job.URL)
}

// Run starts yt-dlp and feeds every progress line of stdout and stderr to
// report. A failing exit is returned with the last ERROR line yt-dlp printed.
func (r *ExecRunner) Run(ctx context.Context, job Job, report func(ProgressEvent)) error {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.ToolPath, r.Args(job)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", r.ToolPath, err)
	}

	var (
		mu      sync.Mutex
		lastErr string
		wg      sync.WaitGroup
	)
	scan := func(rd io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(rd)
		for scanner.Scan() {
			ev, ok := ParseLine(scanner.Text())
			if !ok {
				continue
			}
			mu.Lock()
			if ev.Error != "" {
				lastErr = ev.Error
			}
			report(ev)
			mu.Unlock()
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	err = cmd.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && lastErr != "" {
			return errors.New(strings.TrimSpace(lastErr))
		}
		return fmt.Errorf("%s failed: %w", r.ToolPath, err)
	}
	return nil
}
