package alarm

import "time"

// Scheduled records a ScheduleAt call.
type Scheduled struct {
	At  time.Time
	Tag string
}

// FakeAlarm records alarm calls for test assertions.
// Alarms never fire on their own; tests call Fire.
type FakeAlarm struct {
	// Scheduled lists every successful ScheduleAt call.
	Scheduled []Scheduled

	// Cancelled lists every Cancel call.
	Cancelled []string

	// Pending maps tag to instant for alarms not yet cancelled or fired.
	Pending map[string]time.Time

	// ScheduleError, if set, is returned by ScheduleAt.
	ScheduleError error

	// CancelError, if set, is returned by Cancel.
	CancelError error

	fired chan string
}

// NewFakeAlarm creates a FakeAlarm.
func NewFakeAlarm() *FakeAlarm {
	return &FakeAlarm{
		Pending: make(map[string]time.Time),
		fired:   make(chan string, firedBuffer),
	}
}

// ScheduleAt records the alarm.
func (f *FakeAlarm) ScheduleAt(at time.Time, tag string) error {
	if f.ScheduleError != nil {
		return f.ScheduleError
	}
	f.Scheduled = append(f.Scheduled, Scheduled{At: at, Tag: tag})
	f.Pending[tag] = at
	return nil
}

// Cancel records the cancellation.
func (f *FakeAlarm) Cancel(tag string) error {
	f.Cancelled = append(f.Cancelled, tag)
	if f.CancelError != nil {
		return f.CancelError
	}
	delete(f.Pending, tag)
	return nil
}

// Fire delivers tag on the Fired channel as if the alarm had elapsed.
func (f *FakeAlarm) Fire(tag string) {
	delete(f.Pending, tag)
	f.fired <- tag
}

// Fired returns the channel of elapsed alarm tags.
func (f *FakeAlarm) Fired() <-chan string {
	return f.fired
}

// WasCancelled reports whether Cancel was called with tag.
func (f *FakeAlarm) WasCancelled(tag string) bool {
	for _, c := range f.Cancelled {
		if c == tag {
			return true
		}
	}
	return false
}

// Reset clears recorded calls.
func (f *FakeAlarm) Reset() {
	f.Scheduled = nil
	f.Cancelled = nil
	f.Pending = make(map[string]time.Time)
	f.ScheduleError = nil
	f.CancelError = nil
}
