package state

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status is the outcome of resolving one source track.
type Status string

const (
	Found    Status = "found"
	NotFound Status = "not_found"
)

func (s Status) valid() bool {
	return s == Found || s == NotFound
}

// PlaylistMapping links a source playlist to its destination counterpart.
type PlaylistMapping struct {
	YouTubeID string
	Name      string
}

// TrackResolution records how a source track was resolved within one playlist.
type TrackResolution struct {
	Status     Status
	VideoID    string
	ResolvedAt time.Time
}

// TrackKey identifies a resolution by source playlist and source track.
type TrackKey struct {
	Playlist string
	Track    string
}

func (k TrackKey) String() string {
	return k.Playlist + ":" + k.Track
}

// ParseTrackKey splits a "<playlist>:<track>" key at the first colon.
func ParseTrackKey(s string) (TrackKey, bool) {
	playlist, track, ok := strings.Cut(s, ":")
	if !ok || playlist == "" || track == "" {
		return TrackKey{}, false
	}
	return TrackKey{Playlist: playlist, Track: track}, true
}

// Set is an unordered set of playlist ids.
type Set map[string]struct{}

func (s Set) Add(id string)    { s[id] = struct{}{} }
func (s Set) Remove(id string) { delete(s, id) }

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// MigrationState is everything that survives between runs.
type MigrationState struct {
	Playlists map[string]PlaylistMapping
	Tracks    map[TrackKey]TrackResolution
	Completed Set

	// started is the reserved migration_started field, carried through untouched.
	started json.RawMessage
}

// NewMigrationState returns an empty state.
func NewMigrationState() *MigrationState {
	return &MigrationState{
		Playlists: make(map[string]PlaylistMapping),
		Tracks:    make(map[TrackKey]TrackResolution),
		Completed: make(Set),
	}
}

type fileMapping struct {
	YouTubeID string `json:"youtube_id"`
	Name      string `json:"name"`
}

type fileResolution struct {
	Status    string  `json:"status"`
	VideoID   *string `json:"youtube_video_id"`
	Timestamp float64 `json:"timestamp"`
}

type fileState struct {
	Playlists map[string]fileMapping    `json:"playlists"`
	Tracks    map[string]fileResolution `json:"tracks"`
	Completed []string                  `json:"completed_playlists"`
	Started   json.RawMessage           `json:"migration_started"`
}

// MarshalJSON writes the on-disk layout. The completion set is stored as a sorted list.
func (m *MigrationState) MarshalJSON() ([]byte, error) {
	out := fileState{
		Playlists: make(map[string]fileMapping, len(m.Playlists)),
		Tracks:    make(map[string]fileResolution, len(m.Tracks)),
		Completed: m.Completed.Sorted(),
		Started:   m.started,
	}

	for id, mapping := range m.Playlists {
		out.Playlists[id] = fileMapping(mapping)
	}

	for key, res := range m.Tracks {
		entry := fileResolution{Status: string(res.Status), Timestamp: toUnix(res.ResolvedAt)}
		if res.VideoID != "" {
			videoID := res.VideoID
			entry.VideoID = &videoID
		}
		out.Tracks[key.String()] = entry
	}

	return json.Marshal(out)
}

// UnmarshalJSON reads the on-disk layout, dropping entries that cannot be interpreted.
//
// Completion flags without a playlist mapping are discarded so that every completed playlist
// always has a destination.
func (m *MigrationState) UnmarshalJSON(data []byte) error {
	var in fileState
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	fresh := NewMigrationState()
	if len(in.Started) > 0 {
		fresh.started = in.Started
	}

	for id, mapping := range in.Playlists {
		if id == "" || mapping.YouTubeID == "" {
			continue
		}
		fresh.Playlists[id] = PlaylistMapping(mapping)
	}

	for raw, entry := range in.Tracks {
		key, ok := ParseTrackKey(raw)
		status := Status(entry.Status)
		if !ok || !status.valid() {
			continue
		}
		res := TrackResolution{Status: status, ResolvedAt: fromUnix(entry.Timestamp)}
		if entry.VideoID != nil {
			res.VideoID = *entry.VideoID
		}
		fresh.Tracks[key] = res
	}

	for _, id := range in.Completed {
		if _, ok := fresh.Playlists[id]; ok {
			fresh.Completed.Add(id)
		}
	}

	*m = *fresh
	return nil
}

func toUnix(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromUnix(ts float64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// PlaylistStats summarizes stored progress for one mapped playlist.
type PlaylistStats struct {
	ID        string
	Name      string
	YouTubeID string
	Completed bool
	Found     int
	NotFound  int
}

func (s PlaylistStats) String() string {
	return fmt.Sprintf("%s -> %s (found %d, not found %d)", s.Name, s.YouTubeID, s.Found, s.NotFound)
}
