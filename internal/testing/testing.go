// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"slices"
	"testing"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

// FakeSource is an in-memory [services.SourceReader].
type FakeSource struct {
	User        models.User
	All         []models.Playlist
	Tracks      map[string][]models.Track
	UserErr     error
	PlaylistErr error
	// StreamErr ends the stream of a playlist with an error after its tracks.
	StreamErr map[string]error
	Streams   []string
}

func (f *FakeSource) CurrentUser(ctx context.Context) (*models.User, error) {
	if f.UserErr != nil {
		return nil, f.UserErr
	}
	u := f.User
	return &u, nil
}

func (f *FakeSource) Playlists(ctx context.Context) ([]models.Playlist, error) {
	if f.PlaylistErr != nil {
		return nil, f.PlaylistErr
	}
	return slices.Clone(f.All), nil
}

func (f *FakeSource) StreamTracks(ctx context.Context, playlistID string) iter.Seq2[models.Track, error] {
	f.Streams = append(f.Streams, playlistID)
	return func(yield func(models.Track, error) bool) {
		for _, tr := range f.Tracks[playlistID] {
			if !yield(tr, nil) {
				return
			}
		}
		if err := f.StreamErr[playlistID]; err != nil {
			yield(models.Track{}, err)
		}
	}
}

// FakeYouTube is an in-memory [services.DestinationClient] that records every call.
type FakeYouTube struct {
	Library  []services.DestinationPlaylist
	Contents map[string][]models.DestinationTrack
	// Results maps a search query to its candidates.
	Results map[string][]models.DestinationTrack

	ListErr   error
	CreateErr error
	SearchErr error
	// ReadErr forces Playlist to fail for the given ids.
	ReadErr map[string]error
	// AddErrs is consumed one entry per AddPlaylistItems call; nil entries succeed.
	AddErrs []error
	// OnAddFailure runs after a failed add, e.g. to delete the playlist.
	OnAddFailure func(f *FakeYouTube, playlistID string)

	ListCalls int
	Created   []string
	Searches  []string
	AddCalls  [][]string
	Reads     []string

	nextID int
}

// NewFakeYouTube returns an empty fake library.
func NewFakeYouTube() *FakeYouTube {
	return &FakeYouTube{
		Contents: make(map[string][]models.DestinationTrack),
		Results:  make(map[string][]models.DestinationTrack),
		ReadErr:  make(map[string]error),
	}
}

// AddPlaylist seeds an existing playlist with the given video ids.
func (f *FakeYouTube) AddPlaylist(id, title string, videoIDs ...string) {
	f.Library = append(f.Library, services.DestinationPlaylist{ID: id, Title: title})
	tracks := make([]models.DestinationTrack, 0, len(videoIDs))
	for _, v := range videoIDs {
		tracks = append(tracks, models.DestinationTrack{VideoID: v})
	}
	f.Contents[id] = tracks
}

// Delete removes a playlist so later reads report it as not found.
func (f *FakeYouTube) Delete(id string) {
	delete(f.Contents, id)
}

// VideoIDs returns the video ids currently stored in a playlist.
func (f *FakeYouTube) VideoIDs(id string) []string {
	ids := make([]string, 0, len(f.Contents[id]))
	for _, tr := range f.Contents[id] {
		ids = append(ids, tr.VideoID)
	}
	return ids
}

func (f *FakeYouTube) LibraryPlaylists(ctx context.Context) ([]services.DestinationPlaylist, error) {
	f.ListCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return slices.Clone(f.Library), nil
}

func (f *FakeYouTube) Playlist(ctx context.Context, playlistID string) (*services.DestinationPlaylist, error) {
	f.Reads = append(f.Reads, playlistID)
	if err := f.ReadErr[playlistID]; err != nil {
		return nil, err
	}
	tracks, ok := f.Contents[playlistID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	return &services.DestinationPlaylist{ID: playlistID, Tracks: slices.Clone(tracks)}, nil
}

func (f *FakeYouTube) CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error) {
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.nextID++
	id := fmt.Sprintf("PLfake%d", f.nextID)
	f.Created = append(f.Created, title)
	f.AddPlaylist(id, title)
	return id, nil
}

func (f *FakeYouTube) Search(ctx context.Context, query, filter string, limit int) ([]models.DestinationTrack, error) {
	f.Searches = append(f.Searches, query)
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	results := f.Results[query]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (f *FakeYouTube) AddPlaylistItems(ctx context.Context, playlistID string, videoIDs []string) error {
	f.AddCalls = append(f.AddCalls, slices.Clone(videoIDs))

	var err error
	if len(f.AddErrs) > 0 {
		err, f.AddErrs = f.AddErrs[0], f.AddErrs[1:]
	}
	if err == nil {
		if _, ok := f.Contents[playlistID]; !ok {
			err = fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
	}
	if err != nil {
		if f.OnAddFailure != nil {
			f.OnAddFailure(f, playlistID)
		}
		return err
	}

	for _, v := range videoIDs {
		f.Contents[playlistID] = append(f.Contents[playlistID], models.DestinationTrack{VideoID: v})
	}
	return nil
}

// Song builds a search hit.
func Song(videoID, title string, artists ...string) models.DestinationTrack {
	return models.DestinationTrack{VideoID: videoID, Title: title, Artists: artists}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
