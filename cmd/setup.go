package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded template when it is missing, then initializes
// the history database and runs its migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); errors.Is(err, fs.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return err
		}
		r.writePlain("✓ Created %s, fill in your Spotify client credentials\n", r.configPath)
	} else {
		r.writePlain("✓ Using existing %s\n", r.configPath)
	}

	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)
	db, err := shared.OpenHistory(config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize history database: %w", err)
	}
	defer db.Close()

	r.writePlain("✓ History database ready at %s\n\n", config.Database.Path)
	r.writePlain("Next steps:\n")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret in %s\n", r.configPath)
	r.writePlain("2. Start the YouTube Music proxy with your browser.json at %s\n", config.Credentials.YouTube.AuthFile)
	r.writePlain("3. Run 'ytmigrate auth spotify', then 'ytmigrate validate'\n")
	return nil
}

// Validate checks everything a migration needs before it starts: the configuration, the cached
// Spotify token and a reachable, authenticated YouTube Music proxy.
func (r *Runner) Validate(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	if err := config.Validate(); err != nil {
		return err
	}
	r.writePlain("✓ Configuration is valid\n")

	token, err := services.LoadToken(config.Credentials.Spotify.TokenPath)
	if err != nil {
		return err
	}
	if token.Valid() {
		r.writePlain("✓ Spotify token found (expires %s)\n", token.Expiry.Local().Format("2006-01-02 15:04"))
	} else {
		r.writePlain("✓ Spotify token found, it will be refreshed on first use\n")
	}

	health, err := services.NewYouTubeService(config.Credentials.YouTube).Health(ctx)
	if err != nil {
		return fmt.Errorf("%w: youtube music proxy at %s: %v", shared.ErrServiceUnavailable, config.Credentials.YouTube.ProxyURL, err)
	}
	if !health.Authenticated {
		return fmt.Errorf("%w: youtube music proxy is not authenticated, check %s", shared.ErrSetupRequired, config.Credentials.YouTube.AuthFile)
	}
	r.writePlain("✓ YouTube Music proxy is up and authenticated (%s)\n", health.Status)
	return nil
}
