// Spotify Web API implementation of [SourceReader]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	spotifyPlaylistPage = 50
	spotifySavedPage    = 50
	spotifyTrackPage    = 100

	maxRateLimitRetries = 3
	maxRetryAfter       = 30 * time.Second
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Album   SpotifyAlbum    `json:"album"`
	IsLocal bool            `json:"is_local"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Owner  Owner               `json:"owner"`
	Public bool                `json:"public"`
	Tracks simplePlaylistTrack `json:"tracks"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items []SpotifySimplePlaylist `json:"items"`
	Total int                     `json:"total"`
	Next  *string                 `json:"next"`
}

// SpotifyTrackItem is an entry of a playlist or of the saved tracks. Track is null for
// episodes and items that are no longer available.
type SpotifyTrackItem struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of playlist items or saved tracks.
type SpotifyPaginatedTracks struct {
	Items []SpotifyTrackItem `json:"items"`
	Total int                `json:"total"`
	Next  *string            `json:"next"`
}

// SpotifyService reads playlists and tracks from the Spotify Web API.
// Uses [oauth2] for authentication; the token source refreshes expired access tokens.
type SpotifyService struct {
	config      *oauth2.Config
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
	baseURL     string
	sleep       func(context.Context, time.Duration) error
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(creds shared.SpotifyConfig) (*SpotifyService, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	redirectURI := creds.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"user-library-read",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
		sleep:      sleepContext,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// OAuthConfig exposes the OAuth2 configuration for the authorization code flow.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Authenticate installs token as the credential for all subsequent calls.
func (s *SpotifyService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: empty spotify token", shared.ErrNotAuthenticated)
	}
	s.tokenSource = s.config.TokenSource(ctx, token)
	s.httpClient = oauth2.NewClient(ctx, s.tokenSource)
	return nil
}

// Token returns the current, possibly refreshed, token so callers can persist it.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	if s.tokenSource == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return s.tokenSource.Token()
}

// doRequest performs an authenticated GET against the Spotify API. endpoint is either a path
// relative to the API root or an absolute "next" URL from a paginated response.
//
// Rate limited responses are retried after the server's Retry-After delay.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.tokenSource == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRateLimitRetries {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			if err := s.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		err = decodeSpotify(resp, result)
		resp.Body.Close()
		return err
	}
}

func decodeSpotify(resp *http.Response, result any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error struct {
				Status  int    `json:"status"`
				Message string `json:"message"`
			} `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error.Message

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: spotify API (status %d): %s", shared.ErrTokenExpired, resp.StatusCode, msg)
		case http.StatusNotFound:
			return fmt.Errorf("%w: spotify API (status %d): %s", shared.ErrPlaylistNotFound, resp.StatusCode, msg)
		default:
			return fmt.Errorf("%w: spotify API (status %d): %s", shared.ErrAPIRequest, resp.StatusCode, msg)
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 1 {
		return time.Second
	}
	if d := time.Duration(secs) * time.Second; d < maxRetryAfter {
		return d
	}
	return maxRetryAfter
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*models.User, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &models.User{ID: user.ID, DisplayName: user.DisplayName}, nil
}

// Playlists retrieves all playlists for the authenticated user, following pagination.
func (s *SpotifyService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	next := fmt.Sprintf("/me/playlists?limit=%d", spotifyPlaylistPage)

	for next != "" {
		var page SpotifyPaginatedPlaylists
		if err := s.doRequest(ctx, next, &page); err != nil {
			return nil, err
		}

		for _, sp := range page.Items {
			if sp.ID == "" {
				continue
			}
			playlists = append(playlists, models.Playlist{
				ID:         sp.ID,
				Name:       sp.Name,
				Owner:      sp.Owner.DisplayName,
				OwnerID:    sp.Owner.ID,
				TrackCount: sp.Tracks.Total,
				Public:     sp.Public,
			})
		}

		next = deref(page.Next)
	}

	return playlists, nil
}

// StreamTracks yields the tracks of a playlist page by page. Local files and unavailable items
// carry no catalog id and are skipped. A request failure is yielded once and ends the sequence.
func (s *SpotifyService) StreamTracks(ctx context.Context, playlistID string) iter.Seq2[models.Track, error] {
	first := fmt.Sprintf("/playlists/%s/tracks?limit=%d", url.PathEscape(playlistID), spotifyTrackPage)
	if playlistID == models.LikedSongsID {
		first = fmt.Sprintf("/me/tracks?limit=%d", spotifySavedPage)
	}

	return func(yield func(models.Track, error) bool) {
		next := first
		for next != "" {
			var page SpotifyPaginatedTracks
			if err := s.doRequest(ctx, next, &page); err != nil {
				yield(models.Track{}, err)
				return
			}

			for _, item := range page.Items {
				if item.Track == nil || item.Track.ID == "" || item.Track.IsLocal {
					continue
				}
				if !yield(toTrack(item.Track), nil) {
					return
				}
			}

			next = deref(page.Next)
		}
	}
}

func toTrack(st *SpotifyTrack) models.Track {
	artists := make([]string, 0, len(st.Artists))
	for _, a := range st.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}
	return models.Track{ID: st.ID, Title: st.Name, Artists: artists, Album: st.Album.Name}
}

// OwnedPlaylists keeps the playlists owned by user and appends the liked songs entry.
// skipped counts the playlists that belong to someone else.
func OwnedPlaylists(user models.User, all []models.Playlist) (owned []models.Playlist, skipped int) {
	owned = make([]models.Playlist, 0, len(all)+1)
	for _, p := range all {
		if user.Owns(p) {
			owned = append(owned, p)
		} else {
			skipped++
		}
	}
	return append(owned, models.LikedSongs()), skipped
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
