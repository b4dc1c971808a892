package models

import (
	"strings"
	"time"
)

const (
	// LikedSongsID is the synthetic playlist id for the user's saved tracks. It is not a catalog id.
	LikedSongsID   = "liked_songs"
	LikedSongsName = "Liked Songs"

	// UnknownCount marks a track count the source did not report.
	UnknownCount = -1
)

// Playlist is a read-only reference to a source playlist.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	OwnerID    string `json:"owner_id,omitempty"`
	TrackCount int    `json:"track_count"`
	Public     bool   `json:"public"`
}

// LikedSongs returns the synthetic playlist entry for the user's saved tracks.
func LikedSongs() Playlist {
	return Playlist{ID: LikedSongsID, Name: LikedSongsName, TrackCount: UnknownCount}
}

func (p Playlist) IsLikedSongs() bool {
	return p.ID == LikedSongsID
}

// Track is a source track entry.
type Track struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	Album   string   `json:"album"`
}

// ArtistLine joins the artist names with ", ".
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// Thumbnail is an image attached to a destination track.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// DestinationTrack is a track as the destination catalog reports it.
type DestinationTrack struct {
	VideoID    string      `json:"video_id"`
	Title      string      `json:"title"`
	Artists    []string    `json:"artists"`
	Album      string      `json:"album,omitempty"`
	Duration   string      `json:"duration,omitempty"`
	Thumbnails []Thumbnail `json:"thumbnails,omitempty"`
}

// User is the authenticated source account.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Owns reports whether the playlist belongs to u, matching the owner against the display name or account id.
func (u User) Owns(p Playlist) bool {
	if p.IsLikedSongs() {
		return true
	}
	for _, owner := range []string{p.Owner, p.OwnerID} {
		if owner == "" {
			continue
		}
		if owner == u.ID || (u.DisplayName != "" && owner == u.DisplayName) {
			return true
		}
	}
	return false
}

// FailedTrack describes a track that could not be resolved, in the failure report format.
type FailedTrack struct {
	Playlist string `json:"playlist"`
	Track    string `json:"track"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
}

// NewFailedTrack builds a report entry for tr in the playlist named playlist.
func NewFailedTrack(playlist string, tr Track) FailedTrack {
	return FailedTrack{Playlist: playlist, Track: tr.Title, Artist: tr.ArtistLine(), Album: tr.Album}
}

// RunStatus is the terminal state of a migration run.
type RunStatus string

const (
	RunCompleted   RunStatus = "completed"
	RunCancelled   RunStatus = "cancelled"
	RunInterrupted RunStatus = "interrupted"
	RunFailed      RunStatus = "failed"
)

// RunSummary aggregates one migration run.
type RunSummary struct {
	RunID              string        `json:"run_id"`
	UserID             string        `json:"user_id,omitempty"`
	Status             RunStatus     `json:"status"`
	PlaylistsTotal     int           `json:"playlists_total"`
	PlaylistsProcessed int           `json:"playlists_processed"`
	PlaylistsCreated   int           `json:"playlists_created"`
	PlaylistsFailed    int           `json:"playlists_failed"`
	PlaylistsSkipped   int           `json:"playlists_skipped"`
	TracksFound        int           `json:"tracks_found"`
	TracksMigrated     int           `json:"tracks_migrated"`
	TracksFailed       int           `json:"tracks_failed"`
	FailedTracks       []FailedTrack `json:"failed_tracks,omitempty"`
	ReportPath         string        `json:"report_path,omitempty"`
	Error              string        `json:"error,omitempty"`
	StartedAt          time.Time     `json:"started_at"`
	FinishedAt         time.Time     `json:"finished_at"`
}

func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
