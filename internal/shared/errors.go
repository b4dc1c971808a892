package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrSetupRequired      = fmt.Errorf("setup required")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Migration errors
	ErrPlaylistCreation = fmt.Errorf("destination playlist could not be created")
	ErrPlaylistGone     = fmt.Errorf("destination playlist no longer exists")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// IsConfigurationError reports whether err means a run cannot start until the user fixes their setup.
func IsConfigurationError(err error) bool {
	for _, target := range []error{ErrMissingConfig, ErrInvalidConfig, ErrMissingCredentials, ErrSetupRequired} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
