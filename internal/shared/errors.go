package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrRateLimited        = fmt.Errorf("rate limited by remote API")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrCollectionNotFound = fmt.Errorf("remote collection not found")

	// Catalog and playlist errors
	ErrItemNotFound     = fmt.Errorf("item not found")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrTagNotFound      = fmt.Errorf("tag not found")
	ErrKeyNotFound      = fmt.Errorf("key not found")
	ErrInvalidCriteria  = fmt.Errorf("invalid criteria")
	ErrInvalidTagKey    = fmt.Errorf("invalid tag key")
	ErrLocalOnlyItem    = fmt.Errorf("item is local-only and cannot be resolved remotely")

	// Sync integrity errors
	ErrDataLoss    = fmt.Errorf("data lost during duplicate repair")
	ErrSyncAborted = fmt.Errorf("reconciliation aborted")
	ErrQueueClosed = fmt.Errorf("operation queue closed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
