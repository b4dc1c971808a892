package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := newApp(runner)

	if err := app.Run(ctx, os.Args); err != nil {
		switch {
		case shared.IsConfigurationError(err):
			logger.Fatal("configuration error, run 'ytmigrate validate' for details", "error", err)
		case errors.Is(err, context.Canceled):
			logger.Warn("interrupted, progress has been saved")
			os.Exit(130)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}

// newApp builds the root command around runner.
func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:    "ytmigrate",
		Usage:   "Migrate Spotify playlists to YouTube Music",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   defaultConfigPath,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging and per-track output",
			},
		},
		Before:   runner.before,
		Commands: runner.register(),
	}
}
