// Package policy answers the two questions the run loop asks before touching
// a campaign: is the wall clock inside the campaign's calling window, and how
// much of today's dispatch quota is left. Pure functions, no I/O.
package policy

import (
	"fmt"
	"time"

	"github.com/crmforge/outreach-backend/internal/model"
)

// WithinWindow reports whether now's time of day falls inside the campaign's
// [WindowStart, WindowEnd] range, bounds inclusive. The comparison is a naive
// lexicographic "HH:MM" check against the local clock, matching how windows
// are authored. Known limitation: a window that wraps midnight (e.g.
// 22:00-02:00) always evaluates false, since start > end can never bracket
// the current time lexicographically.
func WithinWindow(c *model.Campaign, now time.Time) bool {
	if c.WindowStart == "" || c.WindowEnd == "" {
		return true
	}
	hhmm := fmt.Sprintf("%02d:%02d", now.Hour(), now.Minute())
	return c.WindowStart <= hhmm && hhmm <= c.WindowEnd
}

// RemainingQuota returns how many more dispatches the campaign may make
// today: max(0, DailyCap - dispatchedToday). dispatchedToday is counted from
// persisted dispatch records since local midnight, so the quota survives
// crashes and restarts.
func RemainingQuota(c *model.Campaign, dispatchedToday int) int {
	remaining := c.DailyCap - dispatchedToday
	if remaining < 0 {
		return 0
	}
	return remaining
}
