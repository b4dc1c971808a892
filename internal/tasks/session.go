package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/formatter"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/state"
)

// Presenter receives status events and answers yes/no questions.
type Presenter interface {
	Notify(ProgressUpdate)
	Confirm(ctx context.Context, question string) (bool, error)
}

// Discard is a [Presenter] that drops events and answers yes.
type Discard struct{}

func (Discard) Notify(ProgressUpdate)                          {}
func (Discard) Confirm(context.Context, string) (bool, error) { return true, nil }

// RunRecorder stores finished runs in the history database.
type RunRecorder interface {
	Create(ctx context.Context, summary *models.RunSummary) error
}

// SessionOpts configures a [Session].
type SessionOpts struct {
	Source    services.SourceReader
	Engine    *Engine
	Store     *state.Store
	Presenter Presenter
	Logger    *log.Logger
	// Force lists playlists, by source id or name, whose cached state is discarded before migrating.
	Force        []string
	ReportPath   string
	ReportFormat formatter.Format
	// History is optional.
	History RunRecorder
}

// Session runs a full migration: every owned playlist plus the liked songs, one at a time.
type Session struct {
	source       services.SourceReader
	engine       *Engine
	store        *state.Store
	presenter    Presenter
	logger       *log.Logger
	force        []string
	reportPath   string
	reportFormat formatter.Format
	history      RunRecorder
	now          func() time.Time
}

// NewSession creates a session.
func NewSession(opts SessionOpts) *Session {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Presenter == nil {
		opts.Presenter = Discard{}
	}
	if opts.ReportFormat == "" {
		opts.ReportFormat = formatter.JSON
	}
	return &Session{
		source:       opts.Source,
		engine:       opts.Engine,
		store:        opts.Store,
		presenter:    opts.Presenter,
		logger:       opts.Logger,
		force:        opts.Force,
		reportPath:   opts.ReportPath,
		reportFormat: opts.ReportFormat,
		history:      opts.History,
		now:          time.Now,
	}
}

// Run migrates every playlist owned by the current user after a single confirmation. A failed
// playlist is reported and skipped. The summary is returned even when err is not nil; declining the
// confirmation yields a cancelled summary and no error.
func (s *Session) Run(ctx context.Context) (summary *models.RunSummary, err error) {
	summary = &models.RunSummary{
		RunID:     shared.GenerateID(),
		Status:    models.RunCompleted,
		StartedAt: s.now(),
	}
	logger := shared.WithLogger(s.logger, "run", summary.RunID)

	defer func() {
		s.finish(ctx, logger, summary, err)
	}()

	s.presenter.Notify(info(FetchUser, "Fetching Spotify profile"))
	user, err := s.source.CurrentUser(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch spotify profile: %w", err)
	}
	summary.UserID = user.ID

	s.presenter.Notify(info(FetchPlaylists, "Fetching Spotify playlists"))
	all, err := s.source.Playlists(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch spotify playlists: %w", err)
	}

	playlists, skipped := services.OwnedPlaylists(*user, all)
	summary.PlaylistsTotal = len(playlists)
	summary.PlaylistsSkipped = skipped
	s.presenter.Notify(playlistsUpdate(playlists, skipped))

	ok, err := s.presenter.Confirm(ctx, fmt.Sprintf("Migrate %d playlists to YouTube Music?", len(playlists)))
	if err != nil {
		return summary, err
	}
	if !ok {
		summary.Status = models.RunCancelled
		s.presenter.Notify(info(FinishRun, "Migration cancelled"))
		return summary, nil
	}

	for i, p := range playlists {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		s.presenter.Notify(playlistStartUpdate(i+1, len(playlists), p))

		force, err := s.shouldForce(ctx, p)
		if err != nil {
			return summary, err
		}

		result, err := s.engine.MigratePlaylist(ctx, p, force)
		s.collect(summary, result)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			summary.PlaylistsFailed++
			logger.Warn("playlist migration failed", "playlist", p.ID, "error", err)
			s.presenter.Notify(warning(CompletePlaylist, fmt.Sprintf("Failed to migrate playlist %s: %v", p.Name, err)))
			continue
		}
		summary.PlaylistsProcessed++
	}

	return summary, nil
}

// shouldForce reports whether p was requested for reprocessing. An already completed playlist is
// only reprocessed after confirmation.
func (s *Session) shouldForce(ctx context.Context, p models.Playlist) (bool, error) {
	if !s.forced(p) {
		return false, nil
	}
	if !s.store.IsCompleted(p.ID) {
		return true, nil
	}

	ok, err := s.presenter.Confirm(ctx, fmt.Sprintf("%s was already migrated. Discard its cached state and reprocess it?", p.Name))
	if err != nil {
		return false, err
	}
	if !ok {
		s.presenter.Notify(info(ResolvePlaylist, fmt.Sprintf("Keeping cached state for %s", p.Name)))
	}
	return ok, nil
}

func (s *Session) forced(p models.Playlist) bool {
	for _, ref := range s.force {
		if ref == p.ID || ref == p.Name {
			return true
		}
	}
	return false
}

func (s *Session) collect(summary *models.RunSummary, result *PlaylistResult) {
	if result == nil {
		return
	}
	if result.Created {
		summary.PlaylistsCreated++
	}
	summary.TracksFound += result.TracksFound
	summary.TracksMigrated += result.Migrated
	summary.TracksFailed += result.Failed
	summary.FailedTracks = append(summary.FailedTracks, result.FailedTracks...)
}

// finish flushes state and writes the run's artifacts. It runs on every exit path, including
// interruption, so it does not use the caller's possibly cancelled context.
func (s *Session) finish(ctx context.Context, logger *log.Logger, summary *models.RunSummary, runErr error) {
	summary.FinishedAt = s.now()
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		summary.Status = models.RunInterrupted
		summary.Error = runErr.Error()
		s.presenter.Notify(warning(FinishRun, "Migration interrupted, progress has been saved"))
	default:
		summary.Status = models.RunFailed
		summary.Error = runErr.Error()
		s.presenter.Notify(failure(FinishRun, fmt.Sprintf("Migration failed: %v", runErr)))
	}

	if err := s.store.Save(); err != nil {
		logger.Error("failed to save migration state", "error", err)
	}

	if len(summary.FailedTracks) > 0 && s.reportPath != "" {
		path, err := formatter.WriteReport(s.reportPath, s.reportFormat, summary.FailedTracks)
		if err != nil {
			logger.Error("failed to write failed tracks report", "error", err)
		} else {
			summary.ReportPath = path
		}
	}

	if s.history != nil {
		if err := s.history.Create(context.WithoutCancel(ctx), summary); err != nil {
			logger.Error("failed to record run", "error", err)
		}
	}

	logger.Info("run finished", "status", summary.Status, "processed", summary.PlaylistsProcessed, "failed", summary.PlaylistsFailed)
	level := Success
	if summary.Status != models.RunCompleted {
		level = Info
	}
	s.presenter.Notify(ProgressUpdate{Phase: FinishRun, Level: level, Message: "Migration finished", Data: summary})
}
