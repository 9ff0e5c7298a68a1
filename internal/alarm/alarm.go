// Package alarm provides one-shot wall-clock alarms that fire even when the
// evaluation loop is not ticking, with a fake for tests.
package alarm

import (
	"errors"
	"time"
)

// Tags used by the sleep scheduler.
const (
	TagWake  = "wake"
	TagSleep = "sleep"
)

// ErrInPast is returned when asked to schedule an instant that has passed.
var ErrInPast = errors.New("alarm: instant is in the past")

// Scheduler schedules and cancels one-shot alarms identified by tag.
// Scheduling a tag that is already pending replaces it.
type Scheduler interface {
	ScheduleAt(at time.Time, tag string) error
	Cancel(tag string) error
}

// Source delivers the tags of alarms that have elapsed.
type Source interface {
	Fired() <-chan string
}
