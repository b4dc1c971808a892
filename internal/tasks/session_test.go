package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/formatter"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
	tu "github.com/desertthunder/ytmigrate/internal/testing"
)

type fakeHistory struct {
	runs []models.RunSummary
	err  error
}

func (h *fakeHistory) Create(ctx context.Context, summary *models.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.runs = append(h.runs, *summary)
	return h.err
}

var library = []models.Playlist{
	{ID: "a", Name: "Mine by name", Owner: "Ada"},
	{ID: "b", Name: "Someone's", Owner: "Grace", OwnerID: "grace"},
	{ID: "c", Name: "Mine by id", Owner: "Ada Lovelace", OwnerID: "user1"},
	{ID: "d", Name: "Editorial", Owner: "Spotify", OwnerID: "spotify"},
	{ID: "e", Name: "Friend's", Owner: "Linus", OwnerID: "linus"},
}

type sessionFixture struct {
	*fixture
	history *fakeHistory
	report  string
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := newFixture(t, shared.MigrationConfig{})
	f.source.All = library
	f.seed("a", 3, "a-t3")
	f.seed("b", 2)
	f.seed("c", 2)
	f.seed(models.LikedSongsID, 1)
	return &sessionFixture{
		fixture: f,
		history: &fakeHistory{},
		report:  filepath.Join(filepath.Dir(f.path), "failed_tracks.json"),
	}
}

func (f *sessionFixture) session(force ...string) *Session {
	return NewSession(SessionOpts{
		Source:     f.source,
		Engine:     f.engine,
		Store:      f.store,
		Presenter:  f.presenter,
		Logger:     log.New(io.Discard),
		Force:      force,
		ReportPath: f.report,
		History:    f.history,
	})
}

func TestSession(t *testing.T) {
	ctx := context.Background()

	t.Run("migrates owned playlists and liked songs", func(t *testing.T) {
		f := newSessionFixture(t)

		summary, err := f.session().Run(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !slices.Equal(f.source.Streams, []string{"a", "c", models.LikedSongsID}) {
			t.Errorf("expected owned playlists then liked songs, got %v", f.source.Streams)
		}
		if len(f.presenter.questions) != 1 {
			t.Errorf("expected a single confirmation, got %v", f.presenter.questions)
		}

		if summary.Status != models.RunCompleted || summary.RunID == "" || summary.UserID != "user1" {
			t.Errorf("unexpected summary %+v", summary)
		}
		if summary.PlaylistsTotal != 3 || summary.PlaylistsSkipped != 3 || summary.PlaylistsProcessed != 3 || summary.PlaylistsCreated != 3 {
			t.Errorf("unexpected playlist counters %+v", summary)
		}
		if summary.TracksFound != 6 || summary.TracksMigrated != 5 || summary.TracksFailed != 1 {
			t.Errorf("unexpected track counters %+v", summary)
		}
		if summary.FinishedAt.Before(summary.StartedAt) {
			t.Error("expected finish time after start time")
		}

		if summary.ReportPath != f.report {
			t.Fatalf("expected report at %s, got %q", f.report, summary.ReportPath)
		}
		var report []models.FailedTrack
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, f.report)), &report); err != nil {
			t.Fatalf("invalid report: %v", err)
		}
		want := models.FailedTrack{Playlist: "Spot Mine by name", Track: "Song 3", Artist: "Artist, Feature", Album: "Album"}
		if len(report) != 1 || report[0] != want {
			t.Errorf("unexpected report %+v", report)
		}

		if len(f.history.runs) != 1 || f.history.runs[0].RunID != summary.RunID {
			t.Errorf("expected the run to be recorded, got %+v", f.history.runs)
		}

		last := f.presenter.updates[len(f.presenter.updates)-1]
		if last.Phase != FinishRun || last.Data != summary {
			t.Errorf("expected the summary as the last event, got %+v", last)
		}
	})

	t.Run("declined confirmation", func(t *testing.T) {
		f := newSessionFixture(t)
		f.presenter.answers = []bool{false}

		summary, err := f.session().Run(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Status != models.RunCancelled {
			t.Errorf("expected cancelled status, got %s", summary.Status)
		}
		if len(f.source.Streams) != 0 || len(f.yt.Created) != 0 {
			t.Error("no playlist work should happen after declining")
		}
		tu.AssertNoFile(t, f.report)
	})

	t.Run("playlist failure does not stop the run", func(t *testing.T) {
		f := newSessionFixture(t)
		f.source.StreamErr = map[string]error{"a": errors.New("HTTP 502")}

		summary, err := f.session().Run(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.PlaylistsFailed != 1 || summary.PlaylistsProcessed != 2 {
			t.Errorf("unexpected counters %+v", summary)
		}
		if !f.store.IsCompleted("c") || !f.store.IsCompleted(models.LikedSongsID) || f.store.IsCompleted("a") {
			t.Error("expected the other playlists to complete")
		}

		var warned bool
		for _, msg := range f.presenter.messages(Warning) {
			if strings.Contains(msg, "Failed to migrate playlist Mine by name") {
				warned = true
			}
		}
		if !warned {
			t.Errorf("expected a warning for the failed playlist, got %v", f.presenter.messages(Warning))
		}
	})

	t.Run("interruption saves and reports", func(t *testing.T) {
		f := newSessionFixture(t)
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		f.presenter.onNotify = func(u ProgressUpdate) {
			if u.Phase == ResolvePlaylist && u.Step == 2 {
				cancel()
			}
		}

		summary, err := f.session().Run(runCtx)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", err)
		}
		if summary.Status != models.RunInterrupted || summary.PlaylistsProcessed != 1 {
			t.Errorf("unexpected summary %+v", summary)
		}
		tu.AssertFileExists(t, f.path)
		tu.AssertFileExists(t, f.report)
		if len(f.history.runs) != 1 || f.history.runs[0].Status != models.RunInterrupted {
			t.Errorf("expected the interrupted run to be recorded, got %+v", f.history.runs)
		}
	})

	t.Run("force asks before reprocessing completed playlists", func(t *testing.T) {
		f := newSessionFixture(t)
		if _, err := f.session().Run(ctx); err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		searched := len(f.yt.Searches)

		f.presenter.questions = nil
		f.presenter.answers = []bool{true, false}
		if _, err := f.session("Mine by name").Run(ctx); err != nil {
			t.Fatalf("second run failed: %v", err)
		}
		if len(f.presenter.questions) != 2 || !strings.Contains(f.presenter.questions[1], "already migrated") {
			t.Errorf("expected a reprocess confirmation, got %v", f.presenter.questions)
		}
		if len(f.yt.Searches) != searched {
			t.Errorf("declined reprocess should reuse the cache, got %v", f.yt.Searches[searched:])
		}

		f.presenter.answers = []bool{true, true}
		if _, err := f.session("a").Run(ctx); err != nil {
			t.Fatalf("third run failed: %v", err)
		}
		if got := len(f.yt.Searches) - searched; got != 3 {
			t.Errorf("expected the forced playlist to be searched again, got %d searches", got)
		}
	})

	t.Run("force on an unfinished playlist does not ask", func(t *testing.T) {
		f := newSessionFixture(t)
		if _, err := f.session("c").Run(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(f.presenter.questions) != 1 {
			t.Errorf("expected only the start confirmation, got %v", f.presenter.questions)
		}
	})

	t.Run("profile failure", func(t *testing.T) {
		f := newSessionFixture(t)
		f.source.UserErr = shared.ErrTokenExpired

		summary, err := f.session().Run(ctx)
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
		if summary.Status != models.RunFailed || summary.Error == "" {
			t.Errorf("unexpected summary %+v", summary)
		}
		if len(f.history.runs) != 1 {
			t.Error("expected failed run to be recorded")
		}
	})

	t.Run("CSV report", func(t *testing.T) {
		f := newSessionFixture(t)
		s := f.session()
		s.reportFormat = formatter.CSV

		summary, err := s.Run(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if filepath.Ext(summary.ReportPath) != ".csv" {
			t.Errorf("expected a CSV report, got %s", summary.ReportPath)
		}
		if content := tu.MustReadFile(t, summary.ReportPath); !strings.HasPrefix(content, "Playlist,Track,Artist,Album\n") {
			t.Errorf("unexpected CSV report %q", content)
		}
	})

	t.Run("no failures, no report", func(t *testing.T) {
		f := newSessionFixture(t)
		f.source.All = nil
		delete(f.source.Tracks, models.LikedSongsID)
		f.seed(models.LikedSongsID, 2)

		summary, err := f.session().Run(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.ReportPath != "" {
			t.Errorf("expected no report, got %s", summary.ReportPath)
		}
		tu.AssertNoFile(t, f.report)
	})
}
