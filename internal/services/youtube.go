// YouTube Music [DestinationClient] implementation
//
// Communicates with the FastAPI proxy server wrapping the ytmusicapi Python library.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
)

const defaultYTBaseURL string = "http://localhost:8080"

// YouTubeImage represents an image/thumbnail from YouTube Music.
type YouTubeImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type youtubeAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music responses.
type YouTubeTrack struct {
	VideoID    string          `json:"videoId"`
	Title      string          `json:"title"`
	Artists    []YouTubeArtist `json:"artists"`
	Album      *youtubeAlbum   `json:"album"`
	Duration   string          `json:"duration"`
	Thumbnails []YouTubeImage  `json:"thumbnails"`
}

func (yt YouTubeTrack) toModel() models.DestinationTrack {
	track := models.DestinationTrack{
		VideoID:  yt.VideoID,
		Title:    yt.Title,
		Artists:  make([]string, 0, len(yt.Artists)),
		Duration: yt.Duration,
	}
	for _, a := range yt.Artists {
		track.Artists = append(track.Artists, a.Name)
	}
	if yt.Album != nil {
		track.Album = yt.Album.Name
	}
	for _, img := range yt.Thumbnails {
		track.Thumbnails = append(track.Thumbnails, models.Thumbnail(img))
	}
	return track
}

// ProxyHealth is the proxy's /health payload.
type ProxyHealth struct {
	Status        string `json:"status"`
	Authenticated bool   `json:"authenticated"`
}

// YouTubeService implements [DestinationClient] for YouTube Music via the proxy.
type YouTubeService struct {
	baseURL    string
	authFile   string
	httpClient *http.Client
}

// NewYouTubeService creates a new YouTube Music client for the configured proxy.
func NewYouTubeService(cfg shared.YouTubeConfig) *YouTubeService {
	baseURL := strings.TrimRight(cfg.ProxyURL, "/")
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YouTubeService{
		baseURL:    baseURL,
		authFile:   cfg.AuthFile,
		httpClient: http.DefaultClient,
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

// doRequest sends a JSON request to the proxy and decodes the JSON response into result.
//
// Failures wrap [shared.ErrTokenExpired] for 401/403, [shared.ErrPlaylistNotFound] for 404 and
// [shared.ErrAPIRequest] otherwise. The proxy's "detail" message is kept in the error text.
func (y *YouTubeService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)

		kind := shared.ErrAPIRequest
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = shared.ErrTokenExpired
		case http.StatusNotFound:
			kind = shared.ErrPlaylistNotFound
		}

		if errResp.Detail != "" {
			return fmt.Errorf("%w: youtube music API error (status %d): %s", kind, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: youtube music API error: status %d", kind, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

// Health calls GET /health on the proxy.
func (y *YouTubeService) Health(ctx context.Context) (*ProxyHealth, error) {
	var health ProxyHealth
	if err := y.doRequest(ctx, http.MethodGet, "/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// LibraryPlaylists retrieves all playlists in the user's library.
//
// Calls GET /api/library/playlists on the proxy.
func (y *YouTubeService) LibraryPlaylists(ctx context.Context) ([]DestinationPlaylist, error) {
	var ytPlaylists []struct {
		PlaylistID string `json:"playlistId"`
		Title      string `json:"title"`
		Count      int    `json:"count"`
	}

	if err := y.doRequest(ctx, http.MethodGet, "/api/library/playlists", nil, &ytPlaylists); err != nil {
		return nil, err
	}

	playlists := make([]DestinationPlaylist, 0, len(ytPlaylists))
	for _, ytp := range ytPlaylists {
		playlists = append(playlists, DestinationPlaylist{ID: ytp.PlaylistID, Title: ytp.Title, TrackCount: ytp.Count})
	}
	return playlists, nil
}

// Playlist retrieves a playlist with its tracks. Entries without a video id are dropped.
//
// Calls GET /api/playlists/{id} on the proxy.
func (y *YouTubeService) Playlist(ctx context.Context, playlistID string) (*DestinationPlaylist, error) {
	var ytPlaylist struct {
		ID         string         `json:"id"`
		Title      string         `json:"title"`
		TrackCount int            `json:"trackCount"`
		Tracks     []YouTubeTrack `json:"tracks"`
	}

	endpoint := "/api/playlists/" + url.PathEscape(playlistID)
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &ytPlaylist); err != nil {
		return nil, err
	}

	playlist := &DestinationPlaylist{ID: ytPlaylist.ID, Title: ytPlaylist.Title, TrackCount: ytPlaylist.TrackCount}
	if playlist.ID == "" {
		playlist.ID = playlistID
	}
	for _, ytt := range ytPlaylist.Tracks {
		if ytt.VideoID == "" {
			continue
		}
		playlist.Tracks = append(playlist.Tracks, ytt.toModel())
	}
	return playlist, nil
}

// CreatePlaylist creates an empty playlist and returns its id.
//
// Calls POST /api/playlists on the proxy.
func (y *YouTubeService) CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error) {
	createReq := struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		PrivacyStatus string `json:"privacy_status"`
	}{title, description, privacy}

	var createResp struct {
		PlaylistID string `json:"playlist_id"`
	}
	if err := y.doRequest(ctx, http.MethodPost, "/api/playlists", createReq, &createResp); err != nil {
		return "", err
	}
	if createResp.PlaylistID == "" {
		return "", fmt.Errorf("%w: create playlist returned no id", shared.ErrAPIRequest)
	}
	return createResp.PlaylistID, nil
}

// Search queries the catalog and returns candidates in catalog order.
//
// Calls GET /api/search?q={query}&filter={filter}&limit={limit} on the proxy.
func (y *YouTubeService) Search(ctx context.Context, query, filter string, limit int) ([]models.DestinationTrack, error) {
	params := url.Values{}
	params.Set("q", query)
	if filter != "" {
		params.Set("filter", filter)
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}

	var results []YouTubeTrack
	if err := y.doRequest(ctx, http.MethodGet, "/api/search?"+params.Encode(), nil, &results); err != nil {
		return nil, err
	}

	tracks := make([]models.DestinationTrack, 0, len(results))
	for _, r := range results {
		tracks = append(tracks, r.toModel())
	}
	return tracks, nil
}

// AddPlaylistItems appends videos to a playlist.
//
// Calls POST /api/playlists/{id}/items on the proxy.
func (y *YouTubeService) AddPlaylistItems(ctx context.Context, playlistID string, videoIDs []string) error {
	addReq := struct {
		VideoIDs []string `json:"video_ids"`
	}{videoIDs}

	endpoint := "/api/playlists/" + url.PathEscape(playlistID) + "/items"
	return y.doRequest(ctx, http.MethodPost, endpoint, addReq, nil)
}
