package domain

import "errors"

var (
	ErrNotFound = errors.New("resource not found")
	ErrExpired  = errors.New("job has expired")

	// ErrProviderTimeout marks a segmentation call aborted by the client-side
	// deadline, as opposed to a remote rejection.
	ErrProviderTimeout = errors.New("provider request timed out")
)

// ValidationError rejects an upload before any durable state is created.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ConfigError reports a missing or invalid provider configuration. Like
// validation errors it is raised at upload time, before processing starts.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Reason
}
