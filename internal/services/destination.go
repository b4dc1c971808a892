package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

const (
	SearchFilter   = "songs"
	SearchLimit    = 5
	DefaultPrivacy = "PRIVATE"
)

// Outcome classifies the result of a destination call.
type Outcome int

const (
	OK Outcome = iota
	// AuthExpired means the destination session must be renewed. The call should be retried on a later run.
	AuthExpired
	// Failed covers transient and unclassified failures.
	Failed
	// Gone means the catalog positively reported the playlist as missing.
	Gone
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case AuthExpired:
		return "auth_expired"
	case Failed:
		return "failed"
	case Gone:
		return "gone"
	default:
		return "unknown"
	}
}

// authMarkers are substrings that identify an authentication failure in error text from clients
// that do not wrap [shared.ErrTokenExpired].
var authMarkers = []string{"access_token", "unauthorized", "401", "authentication", "expired"}

// Classify maps a client error to an [Outcome]. Typed errors are checked first; the error text is
// only inspected when no sentinel matches.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, shared.ErrTokenExpired), errors.Is(err, shared.ErrNotAuthenticated):
		return AuthExpired
	case errors.Is(err, shared.ErrPlaylistNotFound):
		return Gone
	}

	text := strings.ToLower(err.Error())
	for _, marker := range authMarkers {
		if strings.Contains(text, marker) {
			return AuthExpired
		}
	}
	return Failed
}

// SearchQuery builds the free-text query for a track: title, artists and album separated by spaces.
func SearchQuery(title, artists, album string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{title, artists, album} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// DestinationOpts configures a [Destination].
type DestinationOpts struct {
	Logger *log.Logger
	// CreateSettle is how long to wait after creating a playlist before reading it back.
	CreateSettle time.Duration
	Privacy      string
	// OnAuthExpired is called the first time any call fails with an expired session.
	OnAuthExpired func(operation string)
}

// Destination adapts a [DestinationClient] for the migration engine. Calls never return errors:
// they report an [Outcome], and an expired session is announced once per process.
type Destination struct {
	client        DestinationClient
	logger        *log.Logger
	settle        time.Duration
	privacy       string
	onAuthExpired func(string)
	authWarned    bool
	library       []DestinationPlaylist
	sleep         func(context.Context, time.Duration) error
}

// NewDestination wraps client.
func NewDestination(client DestinationClient, opts DestinationOpts) *Destination {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Privacy == "" {
		opts.Privacy = DefaultPrivacy
	}
	return &Destination{
		client:        client,
		logger:        opts.Logger,
		settle:        opts.CreateSettle,
		privacy:       opts.Privacy,
		onAuthExpired: opts.OnAuthExpired,
		sleep:         sleepContext,
	}
}

func (d *Destination) fail(operation string, err error) Outcome {
	outcome := Classify(err)
	if outcome != AuthExpired {
		d.logger.Warn("destination call failed", "operation", operation, "outcome", outcome, "error", err)
		return outcome
	}

	if d.authWarned {
		d.logger.Debug("destination session expired", "operation", operation)
		return outcome
	}

	d.authWarned = true
	d.logger.Warn("destination session expired, re-authenticate and run again to resume", "operation", operation, "error", err)
	if d.onAuthExpired != nil {
		d.onAuthExpired(operation)
	}
	return outcome
}

// PlaylistExists returns the id of the first library playlist titled exactly title. The library
// listing is fetched on first use and reused afterwards.
func (d *Destination) PlaylistExists(ctx context.Context, title string) (string, Outcome) {
	if d.library == nil {
		playlists, err := d.client.LibraryPlaylists(ctx)
		if err != nil {
			return "", d.fail("list playlists", err)
		}
		d.library = append(make([]DestinationPlaylist, 0, len(playlists)), playlists...)
	}

	for _, p := range d.library {
		if p.Title == title {
			return p.ID, OK
		}
	}
	return "", OK
}

// CreatePlaylist creates a playlist and reads it back. A playlist that cannot be read after the
// settle delay is reported as not created even though the catalog returned an id.
func (d *Destination) CreatePlaylist(ctx context.Context, title, description string) (string, Outcome) {
	id, err := d.client.CreatePlaylist(ctx, title, description, d.privacy)
	if err != nil {
		return "", d.fail("create playlist", err)
	}

	if err := d.sleep(ctx, d.settle); err != nil {
		return "", Failed
	}

	if _, err := d.client.Playlist(ctx, id); err != nil {
		d.logger.Warn("created playlist is not readable", "title", title, "id", id)
		outcome := d.fail("verify created playlist", err)
		if outcome == Gone {
			outcome = Failed
		}
		return "", outcome
	}

	if d.library != nil {
		d.library = append(d.library, DestinationPlaylist{ID: id, Title: title})
	}
	d.logger.Info("created destination playlist", "title", title, "id", id)
	return id, OK
}

// SearchTrack returns the first song result that carries a video id, or nil when none does.
func (d *Destination) SearchTrack(ctx context.Context, title, artists, album string) (*models.DestinationTrack, Outcome) {
	query := SearchQuery(title, artists, album)
	results, err := d.client.Search(ctx, query, SearchFilter, SearchLimit)
	if err != nil {
		return nil, d.fail("search", err)
	}

	for _, r := range results {
		if r.VideoID != "" {
			match := r
			return &match, OK
		}
	}
	return nil, OK
}

// VerifyPlaylist reads the playlist's tracks, reporting whether the read succeeded.
func (d *Destination) VerifyPlaylist(ctx context.Context, playlistID string) ([]models.DestinationTrack, Outcome) {
	playlist, err := d.client.Playlist(ctx, playlistID)
	if err != nil {
		return nil, d.fail("read playlist", err)
	}
	return playlist.Tracks, OK
}

// PlaylistTracks returns the playlist's tracks, or an empty slice when they cannot be read.
func (d *Destination) PlaylistTracks(ctx context.Context, playlistID string) []models.DestinationTrack {
	tracks, _ := d.VerifyPlaylist(ctx, playlistID)
	return tracks
}

// CheckPlaylist reports whether the playlist still exists. Only a definitive not-found is [Gone].
func (d *Destination) CheckPlaylist(ctx context.Context, playlistID string) Outcome {
	_, outcome := d.VerifyPlaylist(ctx, playlistID)
	return outcome
}

// AddTracks appends videoIDs to the playlist. An empty batch trivially succeeds.
func (d *Destination) AddTracks(ctx context.Context, playlistID string, videoIDs []string) Outcome {
	if len(videoIDs) == 0 {
		return OK
	}
	if err := d.client.AddPlaylistItems(ctx, playlistID, videoIDs); err != nil {
		return d.fail("add tracks", err)
	}
	return OK
}
