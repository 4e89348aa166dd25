package engine

import "time"

// Clock abstracts wall-clock reads so execution timing is testable.
//
// Timing is reporting only. Ordering never depends on it: sections are
// ordered by the dependency graph, rows by sort keys.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// elapsedMs converts a duration to fractional milliseconds.
func elapsedMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
