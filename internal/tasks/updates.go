package tasks

import (
	"fmt"

	"github.com/desertthunder/ytmigrate/internal/models"
)

// ProgressUpdate represents a progress event during a migration.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Level   Level  // Severity, used for styling
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchUser Phase = iota
	FetchPlaylists
	ResolvePlaylist
	CreatePlaylist
	VerifyPlaylist
	FetchTracks
	ProcessChunk
	TrackState
	AddTracks
	CompletePlaylist
	FinishRun
)

func (p Phase) String() string {
	switch p {
	case FetchUser:
		return "fetch_user"
	case FetchPlaylists:
		return "fetch_playlists"
	case ResolvePlaylist:
		return "resolve_playlist"
	case CreatePlaylist:
		return "create_playlist"
	case VerifyPlaylist:
		return "verify_playlist"
	case FetchTracks:
		return "fetch_tracks"
	case ProcessChunk:
		return "process_chunk"
	case TrackState:
		return "track_state"
	case AddTracks:
		return "add_tracks"
	case CompletePlaylist:
		return "complete_playlist"
	case FinishRun:
		return "finish_run"
	default:
		return ""
	}
}

// Level is the severity of a status event.
type Level int

const (
	Info Level = iota
	Warning
	Error
	Success
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Success:
		return "success"
	default:
		return "info"
	}
}

// TrackOutcome is the Data of a [TrackState] update.
type TrackOutcome string

const (
	TrackFound    TrackOutcome = "found"     // matched by search and staged
	TrackExists   TrackOutcome = "exists"    // already in the destination playlist
	TrackCached   TrackOutcome = "cached"    // staged from a previous match
	TrackSkipped  TrackOutcome = "skipped"   // previously not found
	TrackNotFound TrackOutcome = "not_found" // no match
	TrackAuth     TrackOutcome = "auth"      // search blocked by an expired session
)

// TrackEvent is carried by [TrackState] updates.
type TrackEvent struct {
	Track   models.Track
	Outcome TrackOutcome
}

func info(phase Phase, message string) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Level: Info, Message: message}
}

func warning(phase Phase, message string) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Level: Warning, Message: message}
}

func failure(phase Phase, message string) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Level: Error, Message: message}
}

func success(phase Phase, message string) ProgressUpdate {
	return ProgressUpdate{Phase: phase, Level: Success, Message: message}
}

func playlistsUpdate(owned []models.Playlist, skipped int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Level:   Info,
		Step:    len(owned),
		Total:   len(owned) + skipped,
		Message: fmt.Sprintf("Found %d playlists to migrate, skipping %d not owned by you", len(owned), skipped),
		Data:    owned,
	}
}

func playlistStartUpdate(step, total int, p models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolvePlaylist,
		Level:   Info,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Processing %s", p.Name),
		Data:    p,
	}
}

func chunkUpdate(start, end, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ProcessChunk,
		Level:   Info,
		Step:    end,
		Total:   total,
		Message: fmt.Sprintf("Processing tracks %d-%d of %d (%.1f%%)", start+1, end, total, float64(end)/float64(total)*100),
	}
}

func trackUpdate(step, total int, tr models.Track, outcome TrackOutcome) ProgressUpdate {
	level := Info
	switch outcome {
	case TrackNotFound, TrackAuth:
		level = Warning
	}
	return ProgressUpdate{
		Phase:   TrackState,
		Level:   level,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s - %s: %s", tr.Title, tr.ArtistLine(), outcome),
		Data:    TrackEvent{Track: tr, Outcome: outcome},
	}
}

func batchUpdate(added, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Level:   Info,
		Step:    added,
		Total:   total,
		Message: fmt.Sprintf("Added %d of %d tracks to %s", added, total, name),
	}
}
