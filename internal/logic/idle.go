package logic

import "time"

// IdleTimer decides when the screen should be dimmed for inactivity.
// It is separate from scheduled sleep: while asleep it is suppressed.
type IdleTimer struct {
	dimAfter     time.Duration
	lastActivity time.Time
	suppressed   bool
	dimmed       bool
}

// NewIdleTimer creates a timer that starts counting at now.
// A dimAfter of zero or less disables dimming.
func NewIdleTimer(dimAfter time.Duration, now time.Time) *IdleTimer {
	return &IdleTimer{dimAfter: dimAfter, lastActivity: now}
}

// SetDimAfter changes the inactivity period without resetting activity.
func (t *IdleTimer) SetDimAfter(d time.Duration) {
	t.dimAfter = d
}

// Touch records user activity. It returns true if the screen was dimmed
// and should be restored.
func (t *IdleTimer) Touch(now time.Time) bool {
	t.lastActivity = now
	wasDimmed := t.dimmed
	t.dimmed = false
	return wasDimmed
}

// Check returns true exactly once when the inactivity period has elapsed.
func (t *IdleTimer) Check(now time.Time) bool {
	if t.dimAfter <= 0 || t.suppressed || t.dimmed {
		return false
	}
	if now.Sub(t.lastActivity) < t.dimAfter {
		return false
	}
	t.dimmed = true
	return true
}

// Suppress stops the timer (scheduled sleep owns the display).
func (t *IdleTimer) Suppress() {
	t.suppressed = true
}

// Resume restarts the timer from now with the screen at full brightness.
func (t *IdleTimer) Resume(now time.Time) {
	t.suppressed = false
	t.dimmed = false
	t.lastActivity = now
}

// Dimmed reports whether the idle dim is currently applied.
func (t *IdleTimer) Dimmed() bool {
	return t.dimmed
}
