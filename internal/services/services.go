package services

import (
	"context"
	"iter"

	"github.com/desertthunder/ytmigrate/internal/models"
)

// SourceReader lists the user's playlists and streams their tracks.
type SourceReader interface {
	// CurrentUser returns the authenticated account, used for the ownership filter.
	CurrentUser(ctx context.Context) (*models.User, error)

	// Playlists returns every playlist visible to the user, owned or followed.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// StreamTracks lazily yields the tracks of a playlist, or of the saved tracks when playlistID
	// is [models.LikedSongsID]. Ranging over the sequence again starts from the first track.
	StreamTracks(ctx context.Context, playlistID string) iter.Seq2[models.Track, error]
}

// DestinationClient is the raw destination catalog API. Errors wrap the shared sentinels so that
// callers can classify them.
type DestinationClient interface {
	LibraryPlaylists(ctx context.Context) ([]DestinationPlaylist, error)
	Playlist(ctx context.Context, playlistID string) (*DestinationPlaylist, error)
	CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error)
	Search(ctx context.Context, query, filter string, limit int) ([]models.DestinationTrack, error)
	AddPlaylistItems(ctx context.Context, playlistID string, videoIDs []string) error
}

// DestinationPlaylist is a playlist in the destination library.
type DestinationPlaylist struct {
	ID         string
	Title      string
	TrackCount int
	Tracks     []models.DestinationTrack
}
