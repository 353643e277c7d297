// Package clock abstracts the system time source so window, quota and delay
// decisions are deterministic under test.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Midnight returns the start of the local day containing t. Daily quota
// counting runs from here.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
