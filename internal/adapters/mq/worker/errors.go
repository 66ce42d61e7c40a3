package worker

import "errors"

// ErrUnknownKind is returned when a record carries a kind the worker
// does not know how to load.
var ErrUnknownKind = errors.New("unknown record kind")
