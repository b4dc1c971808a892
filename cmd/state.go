package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytmigrate/internal/repositories"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/state"
	"github.com/desertthunder/ytmigrate/internal/ui"
	"github.com/urfave/cli/v3"
)

// Status prints the stored progress of every mapped playlist.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	store := state.Open(config.Migration.StateFile, r.logger)
	r.writePlain("Migration state: %s\n\n", store.Path())
	return r.writePlain("%s", ui.RenderStats(store.Stats()))
}

// Reset forgets a playlist's destination mapping, completion flag and track matches so the next
// migration starts it over.
func (r *Runner) Reset(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("playlist")
	if ref == "" {
		return fmt.Errorf("%w: playlist id or name", shared.ErrMissingArgument)
	}

	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	store := state.Open(config.Migration.StateFile, r.logger)
	id, ok := store.FindPlaylist(ref)
	if !ok {
		return fmt.Errorf("%w: no migrated playlist matches %q", shared.ErrInvalidArgument, ref)
	}

	mapping, _ := store.Mapping(id)
	ok, err = r.console(cmd.Bool("yes")).Confirm(ctx, fmt.Sprintf("Forget everything cached for %s?", mapping.Name))
	if err != nil {
		return err
	}
	if !ok {
		return r.writePlain("Nothing changed\n")
	}

	removed := store.ClearMapping(id)
	if err := store.Save(); err != nil {
		return err
	}

	r.logger.Info("playlist state cleared", "playlist", id, "resolutions", removed)
	return r.writePlain("✓ Cleared %s (%d track matches removed)\n", mapping.Name, removed)
}

// History lists recorded runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	db, err := shared.OpenHistory(config.Database)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	runs, err := repositories.NewRunRepository(db).List(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, true)
	}
	return r.writePlain("%s", ui.RenderRuns(runs))
}
