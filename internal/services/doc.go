// Package services implements the catalog collaborators used by the migration engine.
//
// # Source
//
// [SourceReader] lists the user's playlists and streams their tracks. [SpotifyService]
// implements it over the Spotify Web API with an [oauth2] client that refreshes expired access
// tokens. Tokens are cached on disk with [SaveToken] and [LoadToken].
//
// # Destination
//
// [DestinationClient] is the raw YouTube Music API. [YouTubeService] implements it against the
// ytmusicapi proxy; the auth_file path is sent in the X-Auth-File header on each request.
//
// [Destination] wraps a client for the engine. Its calls report an [Outcome] instead of an error:
//   - [OK] : the call succeeded
//   - [AuthExpired] : the browser session must be renewed, announced once per process
//   - [Failed] : transient or unclassified failure
//   - [Gone] : the catalog answered not-found for the playlist
//
// # Error Handling
//
// Clients wrap the sentinels from the shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : 401/403, reauthorization needed
//   - [shared.ErrPlaylistNotFound] : 404
//   - [shared.ErrAPIRequest] : any other failed request
//
// [Classify] checks these first and falls back to keywords in the error text.
package services
