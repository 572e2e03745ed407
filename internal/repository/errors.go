package repository

import "errors"

// ErrVersionConflict indicates an optimistic-concurrency check failed: the
// record changed between read and write. Callers retry with fresh state.
var ErrVersionConflict = errors.New("record version conflict")
