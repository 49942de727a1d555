package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig        = fmt.Errorf("configuration not found")
	ErrInvalidConfig        = fmt.Errorf("invalid configuration")
	ErrBackendNotConfigured = fmt.Errorf("backend not configured")

	// Authentication and session errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrSessionExpired   = fmt.Errorf("session expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Remote persistence errors
	ErrStorage          = fmt.Errorf("storage upload failed")
	ErrRecord           = fmt.Errorf("record creation failed")
	ErrFetch            = fmt.Errorf("library fetch failed")
	ErrPermissionPolicy = fmt.Errorf("access policy rejection")
	ErrBucketMissing    = fmt.Errorf("storage bucket not found")

	// Playback errors
	ErrPlaybackRejected = fmt.Errorf("playback rejected by host")
	ErrDevice           = fmt.Errorf("device playback error")
	ErrNoTrackLoaded    = fmt.Errorf("no track loaded")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
