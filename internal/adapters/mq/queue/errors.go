package queue

import "errors"

// ErrStopped reports an operation on a queue that was already closed.
var ErrStopped = errors.New("queue stopped")
