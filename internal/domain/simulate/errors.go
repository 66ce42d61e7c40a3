package simulate

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidRace   = errors.New("invalid race parameters")
	ErrEmptyStrategy = errors.New("strategy has no usable stints")
	ErrStrategyLaps  = errors.New("stint laps do not cover the race distance")
	ErrTooManyRuns   = errors.New("run count exceeds the configured maximum")
)
