package mount

import "errors"

// ErrNotMounted is returned by Mode when nothing is mounted at the mountpoint
var ErrNotMounted = errors.New("not mounted")
