// Package system provides the wall-clock Clock implementation.
package system

import "time"

// Clock reads the real wall clock.
type Clock struct{}

// New returns a system clock.
func New() Clock {
	return Clock{}
}

// Now returns the current local time.
func (Clock) Now() time.Time {
	return time.Now()
}
