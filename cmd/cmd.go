// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/ytmigrate/internal/formatter"
	"github.com/desertthunder/ytmigrate/internal/server"
	"github.com/urfave/cli/v3"
)

// setupCommand writes the config template and initializes the history database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and initialize the run history database",
		Action: r.Setup,
	}
}

// authCommand handles account authorization
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize accounts and check their state",
		Commands: []*cli.Command{
			{
				Name:  "spotify",
				Usage: "Authorize read access to your Spotify library with OAuth2",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: server.DefaultAuthTimeout,
					},
				},
				Action: r.AuthSpotify,
			},
			{
				Name:   "status",
				Usage:  "Show the Spotify token and YouTube Music proxy state",
				Action: r.AuthStatus,
			},
		},
	}
}

// validateCommand checks that a migration could start
func validateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "validate",
		Usage:  "Check credentials, the Spotify token and the YouTube Music proxy",
		Action: r.Validate,
	}
}

// migrateCommand runs a migration session
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Migrate your Spotify playlists and liked songs to YouTube Music",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Answer yes to every confirmation",
			},
			&cli.StringSliceFlag{
				Name:  "force",
				Usage: "Discard cached state for a playlist (Spotify id or name) and reprocess it",
			},
			&cli.StringFlag{
				Name:  "report-format",
				Usage: "Failed tracks report format (json, csv)",
				Value: string(formatter.JSON),
			},
		},
		Action: r.Migrate,
	}
}

// statusCommand shows stored progress
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show per-playlist progress from the migration state file",
		Action: r.Status,
	}
}

// historyCommand lists past runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List past migration runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// resetCommand clears the cached state of one playlist
func resetCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "reset",
		Usage:     "Forget the destination mapping and track matches of a playlist",
		ArgsUsage: "<playlist>",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "playlist",
				UsageText: "Spotify playlist id or destination playlist name",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Skip the confirmation",
			},
		},
		Action: r.Reset,
	}
}
