package predict

import "errors"

// Sentinel error kinds for this package.
var (
	ErrCoefficients = errors.New("invalid coefficient table")
	ErrNoEntrants   = errors.New("no entrants to predict")
)
