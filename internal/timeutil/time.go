package timeutil

import (
	"math"
	"strconv"
	"time"
)

// FromMillis converts a duration expressed in (fractional) milliseconds, as
// used by the raw stack format, rounding to the nearest nanosecond.
func FromMillis(ms float64) time.Duration {
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}

// Millis returns the duration as fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// FormatDuration renders a duration with two fractional digits in the
// largest unit that keeps the value at or above one: s, ms, µs or ns.
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return formatUnit(d, time.Second, "s")
	case d >= time.Millisecond:
		return formatUnit(d, time.Millisecond, "ms")
	case d >= time.Microsecond:
		return formatUnit(d, time.Microsecond, "µs")
	}
	return formatUnit(d, time.Nanosecond, "ns")
}

func formatUnit(d, unit time.Duration, suffix string) string {
	return strconv.FormatFloat(float64(d)/float64(unit), 'f', 2, 64) + suffix
}
