package state

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return Open(filepath.Join(t.TempDir(), "cache", "migration_state.json"), nil)
}

func readRaw(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read state file: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("state file is not valid JSON: %v", err)
	}
	return raw
}

func TestStore(t *testing.T) {
	t.Run("Open", func(t *testing.T) {
		t.Run("missing file yields empty state", func(t *testing.T) {
			s := newTestStore(t)
			if s.IsCompleted("pl1") {
				t.Error("expected nothing completed")
			}
			if _, ok := s.Mapping("pl1"); ok {
				t.Error("expected no mapping")
			}
			if len(s.Stats()) != 0 {
				t.Error("expected no stats")
			}
		})

		t.Run("corrupt file yields empty state", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			if err := os.WriteFile(path, []byte(`{"playlists": {"pl1": `), 0644); err != nil {
				t.Fatal(err)
			}

			s := Open(path, nil)
			if _, ok := s.Mapping("pl1"); ok {
				t.Error("expected corrupt file to be ignored")
			}

			s.SetMapping("pl1", "YT1", "Spot Mix")
			if err := s.Save(); err != nil {
				t.Fatalf("save over corrupt file failed: %v", err)
			}
			if _, ok := Open(path, nil).Mapping("pl1"); !ok {
				t.Error("expected saved mapping after recovery")
			}
		})

		t.Run("wrong shape yields empty state", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			if err := os.WriteFile(path, []byte(`["not", "an", "object"]`), 0644); err != nil {
				t.Fatal(err)
			}
			if len(Open(path, nil).Stats()) != 0 {
				t.Error("expected empty state")
			}
		})
	})

	t.Run("Save and reload", func(t *testing.T) {
		s := newTestStore(t)
		fixed := time.Date(2024, 5, 1, 12, 0, 0, 500_000_000, time.UTC)
		s.now = func() time.Time { return fixed }

		s.SetMapping("pl1", "YT1", "Spot Road Trip")
		s.SetMapping("liked_songs", "YT2", "Liked Songs - Spot")
		s.SetResolution("pl1", "tr1", Found, "vid1")
		s.SetResolution("pl1", "tr2", NotFound, "")
		if err := s.MarkCompleted("pl1"); err != nil {
			t.Fatalf("mark completed: %v", err)
		}
		if err := s.MarkCompleted("pl1"); err != nil {
			t.Fatalf("second mark completed: %v", err)
		}
		if err := s.MarkCompleted("liked_songs"); err != nil {
			t.Fatalf("mark completed: %v", err)
		}

		if err := s.Save(); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		reloaded := Open(s.Path(), nil)
		if !reloaded.IsCompleted("pl1") || !reloaded.IsCompleted("liked_songs") {
			t.Error("expected completion flags to survive reload")
		}

		m, ok := reloaded.Mapping("pl1")
		if !ok || m.YouTubeID != "YT1" || m.Name != "Spot Road Trip" {
			t.Errorf("unexpected mapping %+v", m)
		}

		res, ok := reloaded.Resolution("pl1", "tr1")
		if !ok || res.Status != Found || res.VideoID != "vid1" {
			t.Errorf("unexpected resolution %+v", res)
		}
		if !res.ResolvedAt.Equal(fixed) {
			t.Errorf("expected timestamp %v, got %v", fixed, res.ResolvedAt)
		}

		res, ok = reloaded.Resolution("pl1", "tr2")
		if !ok || res.Status != NotFound || res.VideoID != "" {
			t.Errorf("unexpected resolution %+v", res)
		}
	})

	t.Run("file layout", func(t *testing.T) {
		s := newTestStore(t)
		s.SetMapping("b", "YTB", "Spot B")
		s.SetMapping("a", "YTA", "Spot A")
		s.SetResolution("a", "tr9", NotFound, "")
		s.MarkCompleted("b")
		s.MarkCompleted("a")
		if err := s.Save(); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		raw := readRaw(t, s.Path())
		for _, field := range []string{"playlists", "tracks", "completed_playlists", "migration_started"} {
			if _, ok := raw[field]; !ok {
				t.Errorf("expected top-level field %q", field)
			}
		}

		var completed []string
		json.Unmarshal(raw["completed_playlists"], &completed)
		if len(completed) != 2 || completed[0] != "a" || completed[1] != "b" {
			t.Errorf("expected sorted completion list, got %v", completed)
		}

		var tracks map[string]map[string]any
		json.Unmarshal(raw["tracks"], &tracks)
		entry, ok := tracks["a:tr9"]
		if !ok {
			t.Fatalf("expected key a:tr9, got %v", tracks)
		}
		if entry["status"] != "not_found" {
			t.Errorf("unexpected status %v", entry["status"])
		}
		if v, present := entry["youtube_video_id"]; !present || v != nil {
			t.Errorf("expected null youtube_video_id, got %v", v)
		}

		var playlists map[string]map[string]string
		json.Unmarshal(raw["playlists"], &playlists)
		if playlists["a"]["youtube_id"] != "YTA" || playlists["a"]["name"] != "Spot A" {
			t.Errorf("unexpected playlist entry %v", playlists["a"])
		}

		matches, _ := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), ".migration_state-*"))
		if len(matches) != 0 {
			t.Errorf("temp files left behind: %v", matches)
		}
	})

	t.Run("reads files written by earlier versions", func(t *testing.T) {
		legacy := `{
  "playlists": {
    "pl1": {"youtube_id": "YT1", "name": "Spot Old"},
    "broken": {"youtube_id": "", "name": "Spot Broken"}
  },
  "tracks": {
    "pl1:tr1": {"status": "found", "youtube_video_id": "vid1", "timestamp": 1700000000.25},
    "pl1:tr2": {"status": "not_found", "youtube_video_id": null, "timestamp": 1700000001.0},
    "no-separator": {"status": "found", "youtube_video_id": "x", "timestamp": 1},
    "pl1:tr3": {"status": "maybe", "youtube_video_id": null, "timestamp": 1}
  },
  "completed_playlists": ["pl1", "orphan"],
  "migration_started": 1699999999.5
}`
		path := filepath.Join(t.TempDir(), "migration_state.json")
		if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
			t.Fatal(err)
		}

		s := Open(path, nil)
		if !s.IsCompleted("pl1") {
			t.Error("expected pl1 completed")
		}
		if s.IsCompleted("orphan") {
			t.Error("completion without mapping should be dropped")
		}
		if _, ok := s.Mapping("broken"); ok {
			t.Error("mapping without destination id should be dropped")
		}
		if _, ok := s.Resolution("pl1", "tr3"); ok {
			t.Error("unknown status should be dropped")
		}

		res, ok := s.Resolution("pl1", "tr1")
		if !ok || res.VideoID != "vid1" || res.ResolvedAt.Unix() != 1700000000 {
			t.Errorf("unexpected resolution %+v", res)
		}

		if err := s.Save(); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		raw := readRaw(t, path)
		if string(raw["migration_started"]) != "1699999999.5" {
			t.Errorf("expected migration_started to be preserved, got %s", raw["migration_started"])
		}
	})

	t.Run("MarkCompleted requires mapping", func(t *testing.T) {
		s := newTestStore(t)
		err := s.MarkCompleted("pl1")
		if !errors.Is(err, ErrUnmapped) {
			t.Errorf("expected ErrUnmapped, got %v", err)
		}
		if s.IsCompleted("pl1") {
			t.Error("unmapped playlist must not be completed")
		}
	})

	t.Run("ClearMapping", func(t *testing.T) {
		s := newTestStore(t)
		s.SetMapping("pl1", "YT1", "Spot One")
		s.SetMapping("pl2", "YT2", "Spot Two")
		s.MarkCompleted("pl1")
		s.SetResolution("pl1", "a", Found, "v1")
		s.SetResolution("pl1", "b", NotFound, "")
		s.SetResolution("pl2", "a", Found, "v1")

		if removed := s.ClearMapping("pl1"); removed != 2 {
			t.Errorf("expected 2 resolutions removed, got %d", removed)
		}
		if _, ok := s.Mapping("pl1"); ok {
			t.Error("expected mapping removed")
		}
		if s.IsCompleted("pl1") {
			t.Error("expected completion flag removed")
		}
		if _, ok := s.Resolution("pl1", "b"); ok {
			t.Error("expected pl1 resolutions removed")
		}
		if _, ok := s.Resolution("pl2", "a"); !ok {
			t.Error("other playlist resolutions must survive")
		}
		if _, ok := s.Mapping("pl2"); !ok {
			t.Error("other playlist mapping must survive")
		}
	})

	t.Run("ForgetMapping keeps resolutions", func(t *testing.T) {
		s := newTestStore(t)
		s.SetMapping("pl1", "YT1", "Spot One")
		s.MarkCompleted("pl1")
		s.SetResolution("pl1", "a", Found, "v1")

		s.ForgetMapping("pl1")
		if _, ok := s.Mapping("pl1"); ok || s.IsCompleted("pl1") {
			t.Error("expected mapping and completion removed")
		}
		if _, ok := s.Resolution("pl1", "a"); !ok {
			t.Error("expected resolution to be kept")
		}
	})

	t.Run("SetResolution overwrites", func(t *testing.T) {
		s := newTestStore(t)
		s.SetResolution("pl1", "a", NotFound, "")
		s.SetResolution("pl1", "a", Found, "v2")
		res, _ := s.Resolution("pl1", "a")
		if res.Status != Found || res.VideoID != "v2" {
			t.Errorf("expected upsert, got %+v", res)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		s := newTestStore(t)
		s.SetMapping("pl2", "YT2", "Spot Zed")
		s.SetMapping("pl1", "YT1", "Spot Alpha")
		s.MarkCompleted("pl1")
		s.SetResolution("pl1", "a", Found, "v1")
		s.SetResolution("pl1", "b", Found, "v2")
		s.SetResolution("pl1", "c", NotFound, "")
		s.SetResolution("pl2", "a", NotFound, "")
		s.SetResolution("unmapped", "a", Found, "v")

		stats := s.Stats()
		if len(stats) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(stats))
		}
		if stats[0].Name != "Spot Alpha" || stats[0].Found != 2 || stats[0].NotFound != 1 || !stats[0].Completed {
			t.Errorf("unexpected first entry %+v", stats[0])
		}
		if stats[1].ID != "pl2" || stats[1].Found != 0 || stats[1].NotFound != 1 || stats[1].Completed {
			t.Errorf("unexpected second entry %+v", stats[1])
		}
	})

	t.Run("FindPlaylist", func(t *testing.T) {
		s := newTestStore(t)
		s.SetMapping("pl1", "YT1", "Spot Alpha")

		for _, ref := range []string{"pl1", "Spot Alpha"} {
			if id, ok := s.FindPlaylist(ref); !ok || id != "pl1" {
				t.Errorf("FindPlaylist(%q) = %q, %v", ref, id, ok)
			}
		}
		if _, ok := s.FindPlaylist("nope"); ok {
			t.Error("expected no match")
		}
	})
}

func TestParseTrackKey(t *testing.T) {
	tests := []struct {
		in   string
		want TrackKey
		ok   bool
	}{
		{"pl:tr", TrackKey{"pl", "tr"}, true},
		{"liked_songs:4uLU6hMCjMI75M1A2tKUQC", TrackKey{"liked_songs", "4uLU6hMCjMI75M1A2tKUQC"}, true},
		{"pl:tr:extra", TrackKey{"pl", "tr:extra"}, true},
		{"nocolon", TrackKey{}, false},
		{":tr", TrackKey{}, false},
		{"pl:", TrackKey{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseTrackKey(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseTrackKey(%q) = %+v, %v; want %+v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
		if ok && got.String() != tt.in {
			t.Errorf("round trip of %q gave %q", tt.in, got.String())
		}
	}
}
