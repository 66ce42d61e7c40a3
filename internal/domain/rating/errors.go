package rating

import "errors"

// Sentinel error kinds for this package.
var (
	ErrTooFewDrivers = errors.New("too few classified drivers for rating update")
)
