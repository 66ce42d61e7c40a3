package repository

import "time"

// RankingsOption applies a configuration option to the TreapRankings.
type RankingsOption func(*TreapRankings)

// WithSnapshotInterval sets the interval for periodic ranking snapshots.
func WithSnapshotInterval(interval time.Duration) RankingsOption {
	return func(s *TreapRankings) {
		if interval > 0 {
			s.snapshotInterval = interval
		}
	}
}

// WithTopCacheSize sets how many entries the snapshot top cache keeps.
func WithTopCacheSize(size int) RankingsOption {
	return func(s *TreapRankings) {
		if size > 0 {
			s.topCacheSize = size
		}
	}
}
