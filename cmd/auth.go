package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/desertthunder/ytmigrate/internal/server"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthSpotify performs the OAuth2 authorization code flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization and saves the exchanged
// token to the configured token path.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	spotify, err := services.NewSpotifyService(config.Credentials.Spotify)
	if err != nil {
		return err
	}

	flow := &server.AuthFlow{
		Config:  spotify.OAuthConfig(),
		Addr:    net.JoinHostPort(config.Server.Host, strconv.Itoa(config.Server.Port)),
		Timeout: cmd.Duration("timeout"),
		Logger:  shared.WithLogger(r.logger, "service", "spotify"),
		Open: func(authURL string) error {
			r.writePlain("→ Opening browser for Spotify authorization...\n")
			if err := r.openBrowser(authURL); err != nil {
				r.logger.Warnf("failed to open browser automatically %v", err)
				r.writePlain("⚠ Could not open browser automatically.\nPlease open this URL in your browser:\n%s\n\n", authURL)
			}
			r.writePlain("→ Waiting for authorization...\n")
			return nil
		},
	}

	token, err := flow.Run(ctx)
	if err != nil {
		return err
	}

	if err := services.SaveToken(config.Credentials.Spotify.TokenPath, token); err != nil {
		return err
	}

	r.writePlain("✓ Authorization successful\n")
	r.writePlain("✓ Token saved to %s\n\n", config.Credentials.Spotify.TokenPath)
	r.writePlain("You can now run: ytmigrate migrate\n")
	return nil
}

// AuthStatus reports the cached Spotify token and the proxy's /health response without failing
// on either.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	r.logger.Info("checking auth status")

	token, err := services.LoadToken(config.Credentials.Spotify.TokenPath)
	switch {
	case err != nil:
		r.writePlain("Spotify: ✗ %v\n", err)
	case token.Valid():
		r.writePlain("Spotify: ✓ Authorized (access token expires %s)\n", token.Expiry.Local().Format("2006-01-02 15:04"))
	default:
		r.writePlain("Spotify: ✓ Authorized (access token will be refreshed)\n")
	}

	health, err := services.NewYouTubeService(config.Credentials.YouTube).Health(ctx)
	if err != nil {
		r.writePlain("YouTube Music: ✗ proxy unavailable at %s\n", config.Credentials.YouTube.ProxyURL)
		return nil
	}

	auth := "✗ Not authenticated"
	if health.Authenticated {
		auth = "✓ Authenticated"
	}
	r.writePlain("YouTube Music: %s (proxy status: %s)\n", auth, health.Status)
	return nil
}

// spotifySource builds an authenticated Spotify reader from the cached token. The returned func
// writes the possibly refreshed token back and should run when the command ends.
func (r *Runner) spotifySource(ctx context.Context, config *shared.Config) (services.SourceReader, func(), error) {
	if r.source != nil {
		return r.source, func() {}, nil
	}

	spotify, err := services.NewSpotifyService(config.Credentials.Spotify)
	if err != nil {
		return nil, nil, err
	}

	path := config.Credentials.Spotify.TokenPath
	token, err := services.LoadToken(path)
	if err != nil {
		return nil, nil, err
	}
	if err := spotify.Authenticate(ctx, token); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrSetupRequired, err)
	}

	persist := func() {
		current, err := spotify.Token()
		if err != nil {
			r.logger.Debug("no spotify token to persist", "error", err)
			return
		}
		if current.AccessToken == token.AccessToken {
			return
		}
		if err := services.SaveToken(path, current); err != nil {
			r.logger.Warn("failed to save refreshed spotify token", "error", err)
		}
	}
	return spotify, persist, nil
}
