package server

import "errors"

var (
	// ErrNoFiles is returned when the upload form has no "files" part.
	ErrNoFiles = errors.New("no files uploaded")

	// ErrNotConfigured is returned when no analyzer is available,
	// typically because no API key was configured.
	ErrNotConfigured = errors.New("analysis backend not configured")
)
