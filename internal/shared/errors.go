package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Spotify authorization
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Spotify API and playback
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNoActiveDevice     = fmt.Errorf("no active playback device")

	// Storage
	ErrRecordNotFound = fmt.Errorf("record not found")
	ErrMalformedState = fmt.Errorf("malformed timer state")

	// Command input
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// Process exit codes returned by [ExitCode].
const (
	ExitFailure = 1
	ExitUsage   = 2
	ExitAuth    = 3
	ExitSpotify = 4
)

// ExitCode maps err to the process exit status: bad input, authorization problems and Spotify
// failures each get their own code so scripts can tell them apart. nil maps to 0.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case isAny(err, ErrInvalidFlag, ErrInvalidArgument, ErrMissingArgument, ErrInvalidInput):
		return ExitUsage
	case isAny(err, ErrMissingCredentials, ErrInvalidCredentials, ErrAuthFailed, ErrNotAuthenticated,
		ErrTokenExpired, ErrRefreshFailed, ErrNoRefreshToken):
		return ExitAuth
	case isAny(err, ErrAPIRequest, ErrServiceUnavailable, ErrNoActiveDevice):
		return ExitSpotify
	default:
		return ExitFailure
	}
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
