package bootconfig

import "errors"

var (
	// ErrMissingPath is returned when an application entry has no path
	ErrMissingPath = errors.New("path is required")

	// ErrMissingCommand is returned when an application entry has no command
	ErrMissingCommand = errors.New("command is required")
)
