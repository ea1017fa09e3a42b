package exec

import "errors"

var (
	// ErrEmptyCommand is returned when no command line was given
	ErrEmptyCommand = errors.New("empty command")

	// ErrStart is returned when the process could not be started
	ErrStart = errors.New("start command")

	// ErrNonZeroExit is returned when the process exited with a non-zero status
	ErrNonZeroExit = errors.New("command failed")
)
