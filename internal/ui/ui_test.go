package ui

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/repositories"
	"github.com/desertthunder/ytmigrate/internal/state"
	"github.com/desertthunder/ytmigrate/internal/tasks"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConfirmModel(t *testing.T) {
	tests := []struct {
		name     string
		msg      tea.KeyMsg
		answered bool
		yes      bool
		quits    bool
	}{
		{name: "y answers yes", msg: runes("y"), answered: true, yes: true, quits: true},
		{name: "Y answers yes", msg: runes("Y"), answered: true, yes: true, quits: true},
		{name: "n answers no", msg: runes("n"), answered: true, quits: true},
		{name: "enter defaults to no", msg: tea.KeyMsg{Type: tea.KeyEnter}, answered: true, quits: true},
		{name: "q aborts", msg: runes("q"), quits: true},
		{name: "other keys are ignored", msg: runes("x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, cmd := NewConfirmModel("Continue?").Update(tt.msg)
			m := model.(ConfirmModel)

			yes, ok := m.Answer()
			if ok != tt.answered || yes != tt.yes {
				t.Errorf("Answer() = (%v, %v), want (%v, %v)", yes, ok, tt.yes, tt.answered)
			}
			if (cmd != nil) != tt.quits {
				t.Errorf("expected quit command: %v, got %v", tt.quits, cmd != nil)
			}
		})
	}

	t.Run("View", func(t *testing.T) {
		m := NewConfirmModel("Migrate 3 playlists?")
		view := m.View()
		if !strings.Contains(view, "Migrate 3 playlists?") || !strings.Contains(view, "[y/N]") {
			t.Errorf("unexpected pending view: %q", view)
		}

		answered, _ := m.Update(runes("y"))
		view = answered.View()
		if !strings.Contains(view, "yes") || strings.Contains(view, "[y/N]") {
			t.Errorf("unexpected answered view: %q", view)
		}

		aborted, _ := m.Update(runes("q"))
		if view := aborted.View(); !strings.Contains(view, "aborted") {
			t.Errorf("unexpected aborted view: %q", view)
		}
	})
}

func TestConsole(t *testing.T) {
	track := models.Track{ID: "t1", Title: "Song", Artists: []string{"Artist"}}

	t.Run("Notify prints status lines", func(t *testing.T) {
		var buf bytes.Buffer
		c := NewConsole(ConsoleOpts{Out: &buf})

		c.Notify(tasks.ProgressUpdate{Phase: tasks.FetchUser, Level: tasks.Info, Message: "Fetching Spotify profile"})
		c.Notify(tasks.ProgressUpdate{Phase: tasks.CompletePlaylist, Level: tasks.Warning, Message: "Failed to migrate playlist X"})
		c.Notify(tasks.ProgressUpdate{Phase: tasks.CompletePlaylist, Level: tasks.Success, Message: "Completed X"})

		out := buf.String()
		for _, want := range []string{"Fetching Spotify profile", "Failed to migrate playlist X", "Completed X"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("track events need verbose unless they failed", func(t *testing.T) {
		found := tasks.ProgressUpdate{Phase: tasks.TrackState, Level: tasks.Info, Message: "Song - Artist: found",
			Data: tasks.TrackEvent{Track: track, Outcome: tasks.TrackFound}}
		missing := tasks.ProgressUpdate{Phase: tasks.TrackState, Level: tasks.Warning, Message: "Song - Artist: not_found",
			Data: tasks.TrackEvent{Track: track, Outcome: tasks.TrackNotFound}}

		var quiet bytes.Buffer
		c := NewConsole(ConsoleOpts{Out: &quiet})
		c.Notify(found)
		c.Notify(missing)
		if strings.Contains(quiet.String(), ": found") {
			t.Errorf("found track printed without verbose:\n%s", quiet.String())
		}
		if !strings.Contains(quiet.String(), "not_found") {
			t.Errorf("missing track not printed:\n%s", quiet.String())
		}

		var loud bytes.Buffer
		c = NewConsole(ConsoleOpts{Out: &loud, Verbose: true})
		c.Notify(found)
		if !strings.Contains(loud.String(), ": found") {
			t.Errorf("found track not printed in verbose mode:\n%s", loud.String())
		}
	})

	t.Run("playlist header and list", func(t *testing.T) {
		var buf bytes.Buffer
		c := NewConsole(ConsoleOpts{Out: &buf})

		c.Notify(tasks.ProgressUpdate{
			Phase:   tasks.FetchPlaylists,
			Message: "Found 2 playlists to migrate",
			Data:    []models.Playlist{{ID: "a", Name: "Road Trip", TrackCount: 12}, models.LikedSongs()},
		})
		c.Notify(tasks.ProgressUpdate{
			Phase: tasks.ResolvePlaylist, Step: 1, Total: 2, Message: "Processing Road Trip",
			Data: models.Playlist{ID: "a", Name: "Road Trip"},
		})

		out := buf.String()
		for _, want := range []string{"Road Trip (12 tracks)", "Liked Songs (? tracks)", "[1/2] Processing Road Trip"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("finish renders the summary", func(t *testing.T) {
		var buf bytes.Buffer
		c := NewConsole(ConsoleOpts{Out: &buf})
		c.Notify(tasks.ProgressUpdate{
			Phase:   tasks.FinishRun,
			Level:   tasks.Success,
			Message: "Migration finished",
			Data:    &models.RunSummary{Status: models.RunCompleted, TracksFound: 3, TracksMigrated: 2},
		})
		if out := buf.String(); !strings.Contains(out, "Migration Summary") || !strings.Contains(out, "66.7%") {
			t.Errorf("summary not rendered:\n%s", out)
		}
	})

	t.Run("Confirm with AssumeYes", func(t *testing.T) {
		var buf bytes.Buffer
		c := NewConsole(ConsoleOpts{Out: &buf, In: strings.NewReader(""), AssumeYes: true})

		ok, err := c.Confirm(context.Background(), "Migrate 2 playlists?")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Error("expected yes")
		}
		if !strings.Contains(buf.String(), "Migrate 2 playlists?") {
			t.Errorf("question not echoed: %q", buf.String())
		}
	})

	t.Run("Confirm with a cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := NewConsole(ConsoleOpts{Out: &bytes.Buffer{}, In: strings.NewReader("")})
		if ok, err := c.Confirm(ctx, "Continue?"); err == nil || ok {
			t.Errorf("Confirm() = (%v, %v), want (false, error)", ok, err)
		}
	})
}

func TestRender(t *testing.T) {
	t.Run("SuccessRate", func(t *testing.T) {
		if _, ok := SuccessRate(&models.RunSummary{}); ok {
			t.Error("expected no rate without found tracks")
		}
		rate, ok := SuccessRate(&models.RunSummary{TracksFound: 4, TracksMigrated: 3})
		if !ok || rate != 75 {
			t.Errorf("SuccessRate() = (%v, %v), want (75, true)", rate, ok)
		}
	})

	t.Run("RenderSummary", func(t *testing.T) {
		start := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
		out := RenderSummary(&models.RunSummary{
			Status:             models.RunInterrupted,
			PlaylistsTotal:     4,
			PlaylistsProcessed: 2,
			PlaylistsFailed:    1,
			PlaylistsSkipped:   3,
			ReportPath:         "failed_tracks.json",
			StartedAt:          start,
			FinishedAt:         start.Add(90 * time.Second),
		})
		for _, want := range []string{"interrupted", "2/4", "3 (not owned)", "Playlists failed", "1m30s", "failed_tracks.json"} {
			if !strings.Contains(out, want) {
				t.Errorf("summary missing %q:\n%s", want, out)
			}
		}
		if strings.Contains(out, "Success rate") {
			t.Errorf("success rate shown without found tracks:\n%s", out)
		}
	})

	t.Run("RenderStats", func(t *testing.T) {
		if out := RenderStats(nil); !strings.Contains(out, "No playlists") {
			t.Errorf("unexpected empty output: %q", out)
		}
		out := RenderStats([]state.PlaylistStats{
			{ID: "a", Name: "Road Trip", YouTubeID: "PL1", Completed: true, Found: 2, NotFound: 1},
		})
		if !strings.Contains(out, "Road Trip -> PL1 (found 2, not found 1)") {
			t.Errorf("unexpected stats output: %q", out)
		}
	})

	t.Run("RenderRuns", func(t *testing.T) {
		if out := RenderRuns(nil); !strings.Contains(out, "No runs") {
			t.Errorf("unexpected empty output: %q", out)
		}
		out := RenderRuns([]*repositories.Run{{
			Sequence: 7,
			RunSummary: models.RunSummary{
				RunID: "run-1", Status: models.RunCompleted,
				PlaylistsTotal: 2, PlaylistsProcessed: 2,
				TracksFound: 10, TracksMigrated: 8, TracksFailed: 2,
			},
		}})
		for _, want := range []string{"#7", "completed", "run-1", "playlists 2/2", "tracks 8/10", "failed 2"} {
			if !strings.Contains(out, want) {
				t.Errorf("runs output missing %q:\n%s", want, out)
			}
		}
	})
}
