// Command ytdlpro analyzes a YouTube page, starts a download on the
// configured server and follows it to the end.
//
//	ytdlpro analyze  [-no-fetch] <url>
//	ytdlpro download [-server URL] [-mode local|cloud] [-kind auto|playlist|video]
//	                 [-quality Q] [-format F] [-audio-guarantee] [-no-fetch] <url>
//	ytdlpro settings [-quality Q] [-format F] [-audio-guarantee] [-notifications]
//	                 [-server-url URL] [-output DIR]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ytdlpro/config"
)

func main() {
	cfg := loadConfiguration()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}

// loadConfiguration loads and validates the application configuration
func loadConfiguration() *config.Config {
	cfgProvider := config.GetProvider()
	cfgProvider.MustLoad()
	return cfgProvider.MustGet()
}

const usage = `usage: ytdlpro <command> [flags]

commands:
  analyze   describe a YouTube page
  download  start a download and follow it to the end
  settings  show or change the stored download settings
`

// Exit codes.
const (
	exitOK          = 0
	exitFailed      = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func run(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	app := newApp(cfg, stdout, stderr)
	defer app.close()

	switch args[0] {
	case "analyze":
		return app.analyze(ctx, args[1:])
	case "download":
		return app.download(ctx, args[1:])
	case "settings":
		return app.settings(ctx, args[1:])
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return exitOK
	}

	fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
	return exitUsage
}
