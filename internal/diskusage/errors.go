package diskusage

import "errors"

// ErrNotFound is returned when the root of a scan or the target of a deletion does not exist.
var ErrNotFound = errors.New("path not found")
