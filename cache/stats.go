package cache

import "time"

// Stats is a point-in-time snapshot of the cache counters. All counters are
// monotonically non-decreasing over the life of the cache except Size.
//
// Followers that join an in-flight load count their own miss; the load
// itself is accounted exactly once, by the caller that executed it.
type Stats struct {
	Hits          uint64
	Misses        uint64
	LoadSuccesses uint64
	LoadFailures  uint64
	TotalLoadTime time.Duration
	Evictions     uint64
	Size          int
	Enabled       bool
}

// HitRate returns Hits/(Hits+Misses), or 0.0 when no accesses have occurred.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// MissRate returns 1−HitRate(), or 0.0 when no accesses have occurred.
func (s Stats) MissRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Misses) / float64(total)
}

// AverageLoadDuration returns the mean duration of completed loads,
// successes and failures alike, or 0 when nothing has been loaded.
func (s Stats) AverageLoadDuration() time.Duration {
	loads := s.LoadSuccesses + s.LoadFailures
	if loads == 0 {
		return 0
	}
	return s.TotalLoadTime / time.Duration(loads)
}
