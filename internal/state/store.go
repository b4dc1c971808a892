package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
)

// ErrUnmapped is returned when a playlist is marked completed before it has a destination.
var ErrUnmapped = errors.New("playlist has no destination mapping")

// Store loads, mutates and persists a [MigrationState] backed by a single JSON file.
type Store struct {
	path   string
	state  *MigrationState
	logger *log.Logger
	now    func() time.Time
}

// Open returns a store for path with its state already loaded. It never fails.
func Open(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{path: path, logger: logger, now: time.Now}
	s.Load()
	return s
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory state with the file contents, or with an empty state when the file is
// missing or unreadable.
func (s *Store) Load() *MigrationState {
	s.state = NewMigrationState()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("no migration state yet, starting fresh", "path", s.path)
		return s.state
	}
	if err != nil {
		s.logger.Warn("could not read migration state, starting fresh", "path", s.path, "error", err)
		return s.state
	}

	loaded := NewMigrationState()
	if err := json.Unmarshal(data, loaded); err != nil {
		s.logger.Warn("migration state is corrupt, starting fresh", "path", s.path, "error", err)
		return s.state
	}

	s.state = loaded
	s.logger.Debug("loaded migration state", "path", s.path,
		"playlists", len(loaded.Playlists), "tracks", len(loaded.Tracks), "completed", len(loaded.Completed))
	return s.state
}

// Save rewrites the whole file. The data is written to a temporary file in the same directory
// and renamed over the target so a crash never leaves a truncated state file.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode migration state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".migration_state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write migration state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync migration state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close migration state: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace migration state: %w", err)
	}
	return nil
}

func (s *Store) IsCompleted(playlistID string) bool {
	return s.state.Completed.Has(playlistID)
}

// MarkCompleted flags a mapped playlist as fully migrated. Marking twice is a no-op.
func (s *Store) MarkCompleted(playlistID string) error {
	if _, ok := s.state.Playlists[playlistID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnmapped, playlistID)
	}
	s.state.Completed.Add(playlistID)
	return nil
}

func (s *Store) Mapping(playlistID string) (PlaylistMapping, bool) {
	m, ok := s.state.Playlists[playlistID]
	return m, ok
}

func (s *Store) SetMapping(playlistID, youtubeID, name string) {
	s.state.Playlists[playlistID] = PlaylistMapping{YouTubeID: youtubeID, Name: name}
}

// ClearMapping drops everything known about a playlist: its mapping, its completion flag and all
// of its track resolutions. It returns the number of resolutions removed.
func (s *Store) ClearMapping(playlistID string) int {
	s.ForgetMapping(playlistID)

	removed := 0
	for key := range s.state.Tracks {
		if key.Playlist == playlistID {
			delete(s.state.Tracks, key)
			removed++
		}
	}
	return removed
}

// ForgetMapping drops the mapping and completion flag but keeps track resolutions, which stay
// valid for a replacement destination playlist.
func (s *Store) ForgetMapping(playlistID string) {
	delete(s.state.Playlists, playlistID)
	s.state.Completed.Remove(playlistID)
}

func (s *Store) Resolution(playlistID, trackID string) (TrackResolution, bool) {
	r, ok := s.state.Tracks[TrackKey{Playlist: playlistID, Track: trackID}]
	return r, ok
}

// SetResolution upserts a track resolution stamped with the current time.
func (s *Store) SetResolution(playlistID, trackID string, status Status, videoID string) {
	s.state.Tracks[TrackKey{Playlist: playlistID, Track: trackID}] = TrackResolution{
		Status:     status,
		VideoID:    videoID,
		ResolvedAt: s.now(),
	}
}

// Stats reports stored progress for every mapped playlist, ordered by name.
func (s *Store) Stats() []PlaylistStats {
	byID := make(map[string]*PlaylistStats, len(s.state.Playlists))
	for id, m := range s.state.Playlists {
		byID[id] = &PlaylistStats{
			ID:        id,
			Name:      m.Name,
			YouTubeID: m.YouTubeID,
			Completed: s.state.Completed.Has(id),
		}
	}

	for key, res := range s.state.Tracks {
		st, ok := byID[key.Playlist]
		if !ok {
			continue
		}
		switch res.Status {
		case Found:
			st.Found++
		case NotFound:
			st.NotFound++
		}
	}

	stats := make([]PlaylistStats, 0, len(byID))
	for _, st := range byID {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Name != stats[j].Name {
			return stats[i].Name < stats[j].Name
		}
		return stats[i].ID < stats[j].ID
	})
	return stats
}

// FindPlaylist looks up a mapped playlist by source id or by destination name.
func (s *Store) FindPlaylist(ref string) (string, bool) {
	if _, ok := s.state.Playlists[ref]; ok {
		return ref, true
	}
	for id, m := range s.state.Playlists {
		if m.Name == ref {
			return id, true
		}
	}
	return "", false
}
