// Package coretime converts between Core Data timestamps and zoned instants.
//
// Core Data stores instants as floating point seconds since
// 2001-01-01T00:00:00Z. All conversions go through UTC so DST
// transitions never affect the arithmetic.
package coretime

import (
	"math"
	"time"
)

// UnixEpochOffset is the number of seconds between the Unix epoch and the
// Core Data reference date.
const UnixEpochOffset = 978307200

// Decode converts raw Core Data seconds to an instant in loc.
func Decode(raw float64, loc *time.Location) time.Time {
	secs := math.Floor(raw)
	nanos := math.Round((raw - secs) * 1e9)
	t := time.Unix(int64(secs)+UnixEpochOffset, int64(nanos)).UTC()
	if loc == nil {
		return t
	}
	return t.In(loc)
}

// Encode converts an instant to raw Core Data seconds.
func Encode(t time.Time) float64 {
	u := t.UTC()
	return float64(u.Unix()-UnixEpochOffset) + float64(u.Nanosecond())/1e9
}

// DayWindow returns the half-open [start, end) interval in loc of the
// calendar date carried by day. On DST transition days the window is 23 or
// 25 hours long.
func DayWindow(day time.Time, loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	end = start.AddDate(0, 0, 1)
	return start, end
}

// SameDate reports whether a and b fall on the same calendar date in loc.
func SameDate(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
