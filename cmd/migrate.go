package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytmigrate/internal/formatter"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/repositories"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/state"
	"github.com/desertthunder/ytmigrate/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Migrate runs a full migration session: every owned playlist plus the liked songs, resuming
// from the state file.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig()
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("report-format"))
	if err != nil {
		return err
	}

	source, persistToken, err := r.spotifySource(ctx, config)
	if err != nil {
		return err
	}
	defer persistToken()

	console := r.console(cmd.Bool("yes"))
	store := state.Open(config.Migration.StateFile, shared.WithLogger(r.logger, "component", "state"))

	client := r.destination
	if client == nil {
		client = services.NewYouTubeService(config.Credentials.YouTube)
	}
	destination := services.NewDestination(client, services.DestinationOpts{
		Logger:       shared.WithLogger(r.logger, "service", "youtube"),
		CreateSettle: config.Migration.CreateSettle(),
		OnAuthExpired: func(operation string) {
			console.Notify(tasks.ProgressUpdate{
				Phase:   tasks.FinishRun,
				Level:   tasks.Error,
				Message: fmt.Sprintf("YouTube Music session expired during %s. Refresh %s, restart the proxy and run again to resume.", operation, config.Credentials.YouTube.AuthFile),
			})
		},
	})

	engine := tasks.NewEngine(tasks.EngineOpts{
		Source:    source,
		Catalog:   destination,
		Store:     store,
		Presenter: console,
		Logger:    shared.WithLogger(r.logger, "component", "engine"),
		Config:    config.Migration,
	})

	var history tasks.RunRecorder
	if db, err := shared.OpenHistory(config.Database); err != nil {
		r.logger.Warn("run history unavailable, this run will not be recorded", "error", err)
	} else {
		defer db.Close()
		history = repositories.NewRunRepository(db)
	}

	session := tasks.NewSession(tasks.SessionOpts{
		Source:       source,
		Engine:       engine,
		Store:        store,
		Presenter:    console,
		Logger:       r.logger,
		Force:        cmd.StringSlice("force"),
		ReportPath:   config.Migration.ReportFile,
		ReportFormat: format,
		History:      history,
	})

	summary, err := session.Run(ctx)
	if err != nil {
		return err
	}
	if summary.Status == models.RunCancelled {
		r.logger.Info("migration cancelled by user")
	}
	return nil
}
