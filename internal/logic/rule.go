package logic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the length of a day in minutes-since-midnight units.
const MinutesPerDay = 24 * 60

var (
	ErrInvalidClock  = errors.New("invalid clock time")
	ErrNoDays        = errors.New("rule has no days")
	ErrInvalidDay    = errors.New("day out of range 0..6")
	ErrZeroWidth     = errors.New("sleep and wake times are equal")
	ErrDuplicateRule = errors.New("duplicate rule id")
)

// ClockTime is a wall-clock time of day with minute resolution.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses an "HH:MM" string (24h clock).
func ParseClock(s string) (ClockTime, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 || !allDigits(h) || !allDigits(m) {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// allDigits rejects the signs strconv.Atoi would otherwise accept.
func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Minutes returns minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the instant this clock time occurs on the calendar day of d,
// in d's location.
func (c ClockTime) On(d time.Time) time.Time {
	y, mo, day := d.Date()
	return time.Date(y, mo, day, c.Hour, c.Minute, 0, 0, d.Location())
}

// ScheduleRule is a recurring sleep window.
// Days names the weekdays on which the window starts. When Wake is earlier
// than Sleep the window wraps midnight and ends on the following day.
type ScheduleRule struct {
	ID      string
	Enabled bool
	Days    []time.Weekday
	Sleep   ClockTime
	Wake    ClockTime
}

// Wraps reports whether the window crosses midnight.
func (r ScheduleRule) Wraps() bool {
	return r.Wake.Minutes() < r.Sleep.Minutes()
}

// HasDay reports whether the window starts on weekday d.
func (r ScheduleRule) HasDay(d time.Weekday) bool {
	for _, day := range r.Days {
		if day == d {
			return true
		}
	}
	return false
}

// NewRule builds a validated rule from its textual form.
func NewRule(id string, enabled bool, days []int, sleep, wake string) (ScheduleRule, error) {
	s, err := ParseClock(sleep)
	if err != nil {
		return ScheduleRule{}, fmt.Errorf("rule %q sleep: %w", id, err)
	}
	w, err := ParseClock(wake)
	if err != nil {
		return ScheduleRule{}, fmt.Errorf("rule %q wake: %w", id, err)
	}

	weekdays := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return ScheduleRule{}, fmt.Errorf("rule %q: %w: %d", id, ErrInvalidDay, d)
		}
		weekdays = append(weekdays, time.Weekday(d))
	}

	r := ScheduleRule{ID: id, Enabled: enabled, Days: weekdays, Sleep: s, Wake: w}
	if err := ValidateRule(r); err != nil {
		return ScheduleRule{}, err
	}
	return r, nil
}

// ValidateRule rejects rules the evaluator cannot handle.
func ValidateRule(r ScheduleRule) error {
	if len(r.Days) == 0 {
		return fmt.Errorf("rule %q: %w", r.ID, ErrNoDays)
	}
	for _, d := range r.Days {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("rule %q: %w: %d", r.ID, ErrInvalidDay, d)
		}
	}
	if r.Sleep.Minutes() == r.Wake.Minutes() {
		return fmt.Errorf("rule %q: %w (%s)", r.ID, ErrZeroWidth, r.Sleep)
	}
	return nil
}

// ValidateRules validates each rule and checks IDs are unique.
func ValidateRules(rules []ScheduleRule) error {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if err := ValidateRule(r); err != nil {
			return err
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateRule, r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}
