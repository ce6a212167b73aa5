// Package process controls the lifetime of engine subprocess trees.
package process

import "errors"

// ErrInvalidPID is returned for pids that would target the caller's own
// process group or every process the user owns.
var ErrInvalidPID = errors.New("invalid pid")
