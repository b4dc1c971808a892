package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// ErrRunNotFound is returned by [RunRepository.Get] for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Run is a stored [models.RunSummary] with its sequence number.
type Run struct {
	Sequence int
	models.RunSummary
}

// RunRepository persists migration run summaries and their failed tracks.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `
	id, sequence, user_id, status, playlists_total, playlists_processed,
	playlists_created, playlists_failed, playlists_skipped, tracks_found,
	tracks_migrated, tracks_failed, error_message, started_at, finished_at
`

// Create inserts a run and its failed tracks. A summary without a run id gets a generated one.
func (r *RunRepository) Create(ctx context.Context, summary *models.RunSummary) error {
	if summary.Status == "" {
		return fmt.Errorf("%w: run status is required", shared.ErrInvalidArgument)
	}
	if summary.RunID == "" {
		summary.RunID = shared.GenerateID()
	}

	sequence, err := NextSequence(ctx, r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var finishedAt any
	if !summary.FinishedAt.IsZero() {
		finishedAt = summary.FinishedAt
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID,
		sequence,
		summary.UserID,
		string(summary.Status),
		summary.PlaylistsTotal,
		summary.PlaylistsProcessed,
		summary.PlaylistsCreated,
		summary.PlaylistsFailed,
		summary.PlaylistsSkipped,
		summary.TracksFound,
		summary.TracksMigrated,
		summary.TracksFailed,
		nullString(summary.Error),
		summary.StartedAt,
		finishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if len(summary.FailedTracks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO run_failures (run_id, position, playlist, track, artist, album)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare failure insert: %w", err)
		}
		defer stmt.Close()

		for i, f := range summary.FailedTracks {
			if _, err := stmt.ExecContext(ctx, summary.RunID, i, f.Playlist, f.Track, f.Artist, f.Album); err != nil {
				return fmt.Errorf("failed to insert failed track: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Get retrieves a run with its failed tracks.
func (r *RunRepository) Get(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	failures, err := r.Failures(ctx, id)
	if err != nil {
		return nil, err
	}
	run.FailedTracks = failures
	return run, nil
}

// List retrieves the most recent runs, newest first. Failed tracks are not loaded. A limit of
// zero or less returns every run.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY sequence DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Failures returns the failed tracks of a run in report order.
func (r *RunRepository) Failures(ctx context.Context, runID string) ([]models.FailedTrack, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT playlist, track, artist, album
		FROM run_failures
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed tracks: %w", err)
	}
	defer rows.Close()

	var failures []models.FailedTrack
	for rows.Next() {
		var f models.FailedTrack
		if err := rows.Scan(&f.Playlist, &f.Track, &f.Artist, &f.Album); err != nil {
			return nil, fmt.Errorf("failed to scan failed track: %w", err)
		}
		failures = append(failures, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return failures, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single row from either [sql.Row] or [sql.Rows] into a [Run]
func scanRun(row scanner) (*Run, error) {
	var (
		run          Run
		status       string
		errorMessage sql.NullString
		startedAt    time.Time
		finishedAt   sql.NullTime
	)

	err := row.Scan(
		&run.RunID, &run.Sequence, &run.UserID, &status,
		&run.PlaylistsTotal, &run.PlaylistsProcessed, &run.PlaylistsCreated,
		&run.PlaylistsFailed, &run.PlaylistsSkipped, &run.TracksFound,
		&run.TracksMigrated, &run.TracksFailed, &errorMessage, &startedAt, &finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Status = models.RunStatus(status)
	run.StartedAt = startedAt
	if errorMessage.Valid {
		run.Error = errorMessage.String
	}
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return &run, nil
}
