// package formatter writes the failed tracks report in JSON or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// Format is a report file format.
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
)

// ParseFormat accepts "json" or "csv", case-insensitively. An empty string means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return JSON, nil
	case JSON, CSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown report format %q (want json or csv)", shared.ErrInvalidArgument, s)
	}
}

// ExportToJSON renders failures as an indented JSON array of {playlist, track, artist, album}.
func ExportToJSON(failures []models.FailedTrack) ([]byte, error) {
	if failures == nil {
		failures = []models.FailedTrack{}
	}
	data, err := json.MarshalIndent(failures, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV renders failures with columns: Playlist, Track, Artist, Album
func ExportToCSV(failures []models.FailedTrack) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Playlist", "Track", "Artist", "Album"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, f := range failures {
		if err := writer.Write([]string{f.Playlist, f.Track, f.Artist, f.Album}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportPath adjusts the extension of path to match format.
func ReportPath(path string, format Format) string {
	ext := "." + string(format)
	if strings.EqualFold(filepath.Ext(path), ext) {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// WriteReport writes failures to path in the given format and returns the file written.
//
// Creates the parent directory when missing.
func WriteReport(path string, format Format, failures []models.FailedTrack) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: report path is empty", shared.ErrMissingArgument)
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case CSV:
		data, err = ExportToCSV(failures)
	default:
		format = JSON
		data, err = ExportToJSON(failures)
	}
	if err != nil {
		return "", err
	}

	path = ReportPath(path, format)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
