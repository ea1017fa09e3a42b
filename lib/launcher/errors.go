package launcher

import "errors"

// ErrInvalidEntry is returned for an enabled entry without a path or command
var ErrInvalidEntry = errors.New("invalid application entry")
