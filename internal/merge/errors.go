package merge

import "errors"

// ErrCancelled is returned by a run that was stopped through its
// session. Callers distinguish it from failures with errors.Is; a
// cancelled run is not an error condition worth alerting on.
var ErrCancelled = errors.New("merge cancelled")

// ErrInvalidSettings wraps settings validation failures.
var ErrInvalidSettings = errors.New("invalid merge settings")

// ErrConversion wraps failures of the external encoder: non-zero
// exits, fatal stderr output, or a progress stream that could not be
// read.
var ErrConversion = errors.New("conversion failed")
