// Package clock defines what "a new day" means for usage resets.
package clock

import "time"

// Clock supplies the current time. Injected so rollover logic is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the real wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Fixed is a Clock pinned to a single instant, for tests.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }

// SameDay reports whether a and b fall on the same calendar day, using a's
// location as the midnight boundary. Usage counters reset when this is false.
func SameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.In(a.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
