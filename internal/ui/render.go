package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/repositories"
	"github.com/desertthunder/ytmigrate/internal/state"
)

// RenderPlaylists lists playlists with their track counts, one per line.
func RenderPlaylists(playlists []models.Playlist) string {
	var b strings.Builder
	for _, p := range playlists {
		count := "? tracks"
		if p.TrackCount != models.UnknownCount {
			count = fmt.Sprintf("%d tracks", p.TrackCount)
		}
		fmt.Fprintf(&b, "  - %s %s\n", p.Name, styles.Help("("+count+")"))
	}
	return b.String()
}

// RenderSummary formats a run summary as a labelled block.
func RenderSummary(s *models.RunSummary) string {
	var b strings.Builder
	b.WriteString(styles.Title("Migration Summary"))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(styles.label.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("Status", statusText(s.Status))
	row("Playlists processed", fmt.Sprintf("%d/%d", s.PlaylistsProcessed, s.PlaylistsTotal))
	row("Playlists created", fmt.Sprint(s.PlaylistsCreated))
	if s.PlaylistsFailed > 0 {
		row("Playlists failed", styles.Err(fmt.Sprint(s.PlaylistsFailed)))
	}
	row("Playlists skipped", fmt.Sprintf("%d (not owned)", s.PlaylistsSkipped))
	row("Tracks found", fmt.Sprint(s.TracksFound))
	row("Tracks migrated", fmt.Sprint(s.TracksMigrated))
	row("Tracks failed", fmt.Sprint(s.TracksFailed))
	if rate, ok := SuccessRate(s); ok {
		row("Success rate", fmt.Sprintf("%.1f%%", rate))
	}
	if d := s.Duration(); d > 0 {
		row("Duration", d.Round(time.Second).String())
	}
	if s.ReportPath != "" {
		row("Failed tracks", s.ReportPath)
	}
	return b.String()
}

// SuccessRate is the share of found tracks that were migrated, in percent.
// ok is false when no tracks were found.
func SuccessRate(s *models.RunSummary) (rate float64, ok bool) {
	if s.TracksFound == 0 {
		return 0, false
	}
	return float64(s.TracksMigrated) / float64(s.TracksFound) * 100, true
}

// RenderStats lists the per-playlist progress kept in the state file.
func RenderStats(stats []state.PlaylistStats) string {
	if len(stats) == 0 {
		return styles.Help("No playlists have been migrated yet.") + "\n"
	}

	var b strings.Builder
	for _, st := range stats {
		mark := styles.Warn("…")
		if st.Completed {
			mark = styles.OK("✓")
		}
		fmt.Fprintf(&b, "%s %s\n", mark, st.String())
	}
	return b.String()
}

// RenderRuns lists stored runs, newest first.
func RenderRuns(runs []*repositories.Run) string {
	if len(runs) == 0 {
		return styles.Help("No runs recorded.") + "\n"
	}

	var b strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&b, "#%d %s %s  %s  playlists %d/%d  tracks %d/%d",
			r.Sequence,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			statusText(r.Status),
			styles.Help(r.RunID),
			r.PlaylistsProcessed, r.PlaylistsTotal,
			r.TracksMigrated, r.TracksFound,
		)
		if r.TracksFailed > 0 {
			fmt.Fprintf(&b, "  failed %d", r.TracksFailed)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func statusText(status models.RunStatus) string {
	switch status {
	case models.RunCompleted:
		return styles.OK(string(status))
	case models.RunFailed:
		return styles.Err(string(status))
	case models.RunInterrupted, models.RunCancelled:
		return styles.Warn(string(status))
	default:
		return string(status)
	}
}
