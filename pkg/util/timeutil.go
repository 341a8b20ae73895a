package util

import "time"

// Clock returns the current time. Services accept one so tests can pin timestamps.
type Clock func() time.Time

// NowUTC is the default Clock.
func NowUTC() time.Time {
	return time.Now().UTC()
}
