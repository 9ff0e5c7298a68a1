// Package logic contains pure business logic for the kiosk screen sleep scheduler.
// This package has NO external dependencies (no display, alarm, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents whether the screen is held asleep by the schedule.
type State string

const (
	StateAwake  State = "AWAKE"
	StateAsleep State = "ASLEEP"
)

// EventType represents an event to be published.
type EventType string

const (
	EventScheduledSleep  EventType = "SCHEDULED_SLEEP"
	EventScheduledWake   EventType = "SCHEDULED_WAKE"
	EventSettingsGesture EventType = "SETTINGS_GESTURE"
)

// Reason explains what caused a transition.
type Reason string

const (
	ReasonSchedule Reason = "schedule" // polling tick found the window boundary
	ReasonAlarm    Reason = "alarm"    // external one-shot alarm fired
	ReasonTouch    Reason = "touch"    // wake-on-touch
	ReasonManual   Reason = "manual"   // explicit wake request
	ReasonDisabled Reason = "disabled" // scheduler turned off mid-sleep
	ReasonStartup  Reason = "startup"  // initial evaluation

	ReasonTouchGesture  Reason = "touch"  // N-tap on the touch screen
	ReasonButtonGesture Reason = "button" // N presses of the hardware button
)

// Event represents a transition or gesture to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Reason    Reason
	State     State
	// RuleID is the rule that caused a sleep, if any.
	RuleID string
	// Next is the next scheduled transition (wake when asleep, sleep when awake).
	// Zero if nothing is scheduled.
	Next time.Time
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Sleeps   int
	Wakes    int
	Gestures int
}

// Add counts a single event.
func (c *EventCounts) Add(t EventType) {
	switch t {
	case EventScheduledSleep:
		c.Sleeps++
	case EventScheduledWake:
		c.Wakes++
	case EventSettingsGesture:
		c.Gestures++
	}
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
}
