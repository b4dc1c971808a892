// Package server runs the local HTTP endpoint that completes the Spotify authorization.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [Middleware] wraps handlers
// in reverse order (last added executes first). [BasicRouter] uses [http.ServeMux] internally.
//
// # OAuth Callback
//
// [OAuthHandler] validates the state parameter, exchanges the authorization code for a token and
// sends the result through a channel. It only processes one callback.
//
// [AuthFlow] ties it together for the CLI: it listens on the configured address, opens the
// authorization URL and waits for the callback, the context or the timeout, whichever comes first.
package server
