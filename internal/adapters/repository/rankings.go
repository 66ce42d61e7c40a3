package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Shivam-Lahoti/F1-Predictor/pkg/metrics"
)

// Treap-based, in-memory driver rankings.
//
// Ordering: rating DESC, then driver code ASC (deterministic). The BST
// comparator treats "less" as "ranks earlier", so in-order traversal
// produces the power rankings from strongest to weakest.

// ratingScale controls fixed-point scaling from float64. Six decimal
// places is plenty for Elo-style ratings.
const ratingScale = 1_000_000

type ratingFP int64

func toFixedPoint(x float64) ratingFP {
	if math.IsNaN(x) {
		return 0
	}
	if math.IsInf(x, 1) {
		return ratingFP(math.MaxInt64)
	}
	if math.IsInf(x, -1) {
		return ratingFP(math.MinInt64)
	}
	scaled := x * ratingScale
	if scaled > float64(math.MaxInt64) {
		return ratingFP(math.MaxInt64)
	}
	if scaled < float64(math.MinInt64) {
		return ratingFP(math.MinInt64)
	}
	return ratingFP(math.Round(scaled))
}

func toFloat(x ratingFP) float64 {
	return float64(x) / ratingScale
}

// RankingEntry is one row of the driver power rankings.
type RankingEntry struct {
	Rank       int     `json:"rank"`
	DriverCode string  `json:"driver_code"`
	Rating     float64 `json:"rating"`
	Races      int     `json:"races"`
	LastDelta  float64 `json:"last_delta"`
}

// Rankings provides read/write access to the driver rating order.
type Rankings interface {
	// SetRating replaces a driver's rating, inserting the driver when
	// unseen. Returns true when the stored rating changed.
	SetRating(ctx context.Context, driverCode string, rating float64, delta float64) (bool, error)

	// Rank returns the current rank and rating for a driver.
	// Returns ErrNotFound for unknown codes.
	Rank(ctx context.Context, driverCode string) (RankingEntry, error)

	// TopN returns the top-N entries ordered by rating desc.
	TopN(ctx context.Context, n int) ([]RankingEntry, error)

	// Count returns the number of rated drivers.
	Count(ctx context.Context) int
}

// ratingRecord stores the fixed-point rating plus per-driver bookkeeping.
type ratingRecord struct {
	rating    ratingFP
	races     int
	lastDelta float64
}

// treap node
type node struct {
	code   string
	rating ratingFP
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aRating, aCode) ranks earlier than (bRating, bCode).
func less(aRating ratingFP, aCode string, bRating ratingFP, bCode string) bool {
	if aRating != bRating {
		return aRating > bRating // higher rating ranks earlier
	}
	return aCode < bCode // tie-breaker by code asc
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// ratingToPriority keeps higher ratings higher in the treap.
func ratingToPriority(rating ratingFP) uint64 {
	const offset = uint64(1) << 63 // shift negatives into uint range
	return uint64(rating) + offset
}

func insert(n *node, code string, rating ratingFP) *node {
	if n == nil {
		return &node{code: code, rating: rating, prio: ratingToPriority(rating), size: 1}
	}
	if less(rating, code, n.rating, n.code) {
		n.left = insert(n.left, code, rating)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, code, rating)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, code string, rating ratingFP) *node {
	if n == nil {
		return nil
	}
	if rating == n.rating && code == n.code {
		// Merge children by rotating highest priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, code, rating)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, code, rating)
		}
	} else if less(rating, code, n.rating, n.code) {
		n.left = deleteNode(n.left, code, rating)
	} else {
		n.right = deleteNode(n.right, code, rating)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, records map[string]ratingRecord, out *[]RankingEntry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, records, out)
	if len(*out) < limit {
		if rec, exists := records[n.code]; exists {
			*out = append(*out, RankingEntry{
				DriverCode: n.code,
				Rating:     toFloat(rec.rating),
				Races:      rec.races,
				LastDelta:  rec.lastDelta,
			})
		}
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, records, out)
	}
}

// collectAll appends all entries in rank order.
func collectAll(n *node, byCode map[string]ratingRecord, out *[]RankingEntry) {
	if n == nil {
		return
	}
	collectAll(n.left, byCode, out)
	if rec, ok := byCode[n.code]; ok {
		*out = append(*out, RankingEntry{
			DriverCode: n.code,
			Rating:     toFloat(rec.rating),
			Races:      rec.races,
			LastDelta:  rec.lastDelta,
		})
	}
	collectAll(n.right, byCode, out)
}

// RankingsSnapshot is an immutable view of the rankings state.
type RankingsSnapshot struct {
	RankByCode   map[string]int
	RatingByCode map[string]float64
	TopCache     []RankingEntry
}

// TreapRankings implements Rankings on a treap.
type TreapRankings struct {
	mu               sync.RWMutex
	root             *node
	byCode           map[string]ratingRecord
	snapshotInterval time.Duration
	topCacheSize     int

	snapshot atomic.Pointer[RankingsSnapshot]

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewTreapRankings constructs a treap-backed rankings store.
func NewTreapRankings(ctx context.Context, opts ...RankingsOption) *TreapRankings {
	s := &TreapRankings{
		snapshotInterval: 1 * time.Second,
		topCacheSize:     100,
		byCode:           make(map[string]ratingRecord),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.stopChan = make(chan struct{})
	s.startPeriodicSnapshots(ctx)
	return s
}

func (s *TreapRankings) startPeriodicSnapshots(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.publishSnapshot()
			}
		}
	}()
}

func (s *TreapRankings) publishSnapshot() {
	start := time.Now()
	s.mu.RLock()
	s.publishSnapshotLocked()
	s.mu.RUnlock()

	ms := float64(time.Since(start).Milliseconds())
	metrics.RecordRankingsSnapshotDuration(ms)
	metrics.IncrementRankingsSnapshotCount()
}

// publishSnapshotLocked rebuilds the snapshot. Assumes at least a read lock.
func (s *TreapRankings) publishSnapshotLocked() {
	topCache := make([]RankingEntry, 0, s.topCacheSize)
	collectTopN(s.root, s.topCacheSize, s.byCode, &topCache)

	rankByCode := make(map[string]int, len(s.byCode))
	ratingByCode := make(map[string]float64, len(s.byCode))

	allEntries := make([]RankingEntry, 0, len(s.byCode))
	collectAll(s.root, s.byCode, &allEntries)
	assignRanksWithTies(allEntries)

	for _, entry := range allEntries {
		rankByCode[entry.DriverCode] = entry.Rank
		ratingByCode[entry.DriverCode] = entry.Rating
	}
	for i := range topCache {
		if rank, exists := rankByCode[topCache[i].DriverCode]; exists {
			topCache[i].Rank = rank
		}
	}

	s.snapshot.Store(&RankingsSnapshot{
		RankByCode:   rankByCode,
		RatingByCode: ratingByCode,
		TopCache:     topCache,
	})
}

// Close stops the snapshot goroutine.
func (s *TreapRankings) Close() error {
	select {
	case <-s.stopChan:
		// already closed
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// SetRating replaces a driver's rating in O(log n) expected time. Ratings
// move both ways, so the stored value is replaced unconditionally.
func (s *TreapRankings) SetRating(ctx context.Context, driverCode string, rating float64, delta float64) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankingsUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	nr := toFixedPoint(rating)

	s.mu.Lock()
	old, existed := s.byCode[driverCode]
	if existed {
		if nr == old.rating {
			// Rating unchanged; still counts the race.
			old.races++
			old.lastDelta = delta
			s.byCode[driverCode] = old
			s.mu.Unlock()
			return false, nil
		}
		s.root = deleteNode(s.root, driverCode, old.rating)
	}
	s.byCode[driverCode] = ratingRecord{
		rating:    nr,
		races:     old.races + 1,
		lastDelta: delta,
	}
	s.root = insert(s.root, driverCode, nr)
	s.mu.Unlock()

	if !existed {
		metrics.UpdateRankedDrivers(s.Count(ctx))
	}
	return true, nil
}

// Rank returns the current rank and rating for a driver in O(n).
func (s *TreapRankings) Rank(ctx context.Context, driverCode string) (RankingEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankingsQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byCode[driverCode]; !ok {
		return RankingEntry{}, ErrNotFound
	}

	allEntries := make([]RankingEntry, 0, len(s.byCode))
	collectAll(s.root, s.byCode, &allEntries)
	sortEntries(allEntries)
	assignRanksWithTies(allEntries)

	for _, entry := range allEntries {
		if entry.DriverCode == driverCode {
			return entry, nil
		}
	}
	return RankingEntry{}, ErrNotFound
}

// TopN returns the top N entries ordered by rating desc.
func (s *TreapRankings) TopN(ctx context.Context, n int) ([]RankingEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankingsQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RankingEntry, 0, n)
	collectTopN(s.root, n, s.byCode, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the total number of rated drivers.
func (s *TreapRankings) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byCode)
}

// sortEntries orders by rating desc, code asc, matching treap order.
func sortEntries(entries []RankingEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Rating != entries[j].Rating {
			return entries[i].Rating > entries[j].Rating
		}
		return entries[i].DriverCode < entries[j].DriverCode
	})
}

// assignRanksWithTies assigns ranks; drivers with equal ratings share one.
func assignRanksWithTies(entries []RankingEntry) {
	if len(entries) == 0 {
		return
	}
	currentRank := 1
	for i := 0; i < len(entries); i++ {
		entries[i].Rank = currentRank
		sameCount := 1
		for j := i + 1; j < len(entries) && entries[j].Rating == entries[i].Rating; j++ {
			entries[j].Rank = currentRank
			sameCount++
		}
		currentRank++
		i += sameCount - 1
	}
}
