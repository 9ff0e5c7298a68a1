package logic

import "time"

// SleepTransition is the next instant a rule puts the screen to sleep.
type SleepTransition struct {
	At   time.Time
	Rule ScheduleRule
}

// IsAsleep reports whether any enabled rule's window contains now.
// It never mutates rules; repeated calls with the same arguments agree.
func IsAsleep(rules []ScheduleRule, now time.Time) bool {
	_, ok := ActiveRule(rules, now)
	return ok
}

// ActiveRule returns the first enabled rule whose window contains now.
func ActiveRule(rules []ScheduleRule, now time.Time) (ScheduleRule, bool) {
	for _, r := range rules {
		if r.Enabled && Contains(r, now) {
			return r, true
		}
	}
	return ScheduleRule{}, false
}

// Contains reports whether now falls inside r's window, ignoring Enabled.
// A wrapped window that started yesterday still holds this morning.
func Contains(r ScheduleRule, now time.Time) bool {
	minute := minuteOfDay(now)
	sleep, wake := r.Sleep.Minutes(), r.Wake.Minutes()
	today := now.Weekday()

	switch {
	case sleep == wake:
		return false
	case sleep < wake:
		return r.HasDay(today) && minute >= sleep && minute < wake
	default:
		if minute >= sleep && r.HasDay(today) {
			return true
		}
		return minute < wake && r.HasDay(previousDay(today))
	}
}

// NextWakeTime returns the earliest wake instant among enabled rules whose
// window currently contains now. ok is false when the screen should be awake.
// The result is strictly after now and less than 24h away.
func NextWakeTime(rules []ScheduleRule, now time.Time) (wake time.Time, ok bool) {
	minute := minuteOfDay(now)
	for _, r := range rules {
		if !r.Enabled || !Contains(r, now) {
			continue
		}

		at := r.Wake.On(now)
		if r.Wraps() && minute >= r.Sleep.Minutes() {
			// Evening half of the window: wake is tomorrow morning.
			at = r.Wake.On(dayOffset(now, 1))
		} else if !at.After(now) {
			// Repeated hour on a fall-back night: the wake time on the
			// calendar was resolved to the earlier offset.
			at = sameWallClockIn(at, now)
		}

		if !ok || at.Before(wake) {
			wake, ok = at, true
		}
	}
	return wake, ok
}

// NextSleepTime returns the earliest instant strictly after now at which an
// enabled rule's window begins, with the rule that begins it. Ties go to the
// rule listed first.
func NextSleepTime(rules []ScheduleRule, now time.Time) (next SleepTransition, ok bool) {
	for _, r := range rules {
		if !r.Enabled || len(r.Days) == 0 {
			continue
		}

		at, found := nextSleepForRule(r, now)
		if !found {
			continue
		}
		if !ok || at.Before(next.At) {
			next, ok = SleepTransition{At: at, Rule: r}, true
		}
	}
	return next, ok
}

// nextSleepForRule scans today and the following seven days so that a rule
// whose only day is today, with its sleep time already passed, finds next week.
func nextSleepForRule(r ScheduleRule, now time.Time) (time.Time, bool) {
	for offset := 0; offset <= 7; offset++ {
		day := dayOffset(now, offset)
		if !r.HasDay(day.Weekday()) {
			continue
		}
		at := r.Sleep.On(day)
		if at.After(now) {
			return at, true
		}
	}
	return time.Time{}, false
}

// sameWallClockIn shifts at so its wall clock reads the same under ref's UTC
// offset.
func sameWallClockIn(at, ref time.Time) time.Time {
	_, atOffset := at.Zone()
	_, refOffset := ref.Zone()
	return at.Add(time.Duration(atOffset-refOffset) * time.Second)
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func previousDay(d time.Weekday) time.Weekday {
	return (d + 6) % 7
}

// dayOffset returns noon on the calendar day n days after t. Anchoring at noon
// keeps the date stable across DST shifts.
func dayOffset(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 12, 0, 0, 0, t.Location())
}
