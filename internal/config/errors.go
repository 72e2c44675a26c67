package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidConcurrency is returned when the batch concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidLimit is returned when an extraction or token limit is negative.
	ErrInvalidLimit = errors.New("invalid limit: must be non-negative")

	// ErrInvalidPort is returned when the server port is outside 1-65535.
	ErrInvalidPort = errors.New("invalid port: must be between 1 and 65535")

	// ErrInvalidTimeout is returned when the request timeout is shorter
	// than MinRequestTimeout or cannot be parsed.
	ErrInvalidTimeout = errors.New("invalid timeout: must be at least 1s")

	// ErrInvalidMaxUploadBytes is returned when the upload cap is not positive.
	ErrInvalidMaxUploadBytes = errors.New("invalid max upload bytes: must be positive")

	// ErrInvalidLogFormat is returned when the log format is not text or json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConflictingReportFormats is returned when more than one of --json,
	// --markdown and --pdf is specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: use only one of --json, --markdown and --pdf")

	// ErrNoBackends is returned when a tier lists no backends.
	ErrNoBackends = errors.New("no backends configured for tier")

	// ErrUnknownBackend is returned when a tier names an undefined backend.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrDuplicateBackend is returned when two backends share a name.
	ErrDuplicateBackend = errors.New("duplicate backend name")

	// ErrInvalidBackend is returned when a backend descriptor fails validation.
	ErrInvalidBackend = errors.New("invalid backend")
)
