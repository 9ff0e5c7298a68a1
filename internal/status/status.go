// Package status provides a thread-safe status tracker for the kiosk-sleep daemon.
// It is read by the HTTP handlers and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/kiosk-sleep/internal/logic"
)

// Schedule mirrors the coordinator snapshot fields shown in status output.
type Schedule struct {
	State         logic.State
	Enabled       bool
	WakeOnTouch   bool
	Dimmed        bool
	RuleID        string
	NextWake      time.Time
	NextSleep     time.Time
	NextSleepRule string
	OverrideUntil time.Time
	Rules         int
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	ConfigPath  string
	TouchDevice string
	ButtonPin   int
	GestureTaps int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Schedule      Schedule
	Started       bool
	Counts        logic.EventCounts
	LastEvent     logic.Event // zero until the first event is published
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	MQTTQueued    int // messages waiting for the broker
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the scheduler state and event counts.
// Called from runLoop after every input it handles.
func (t *Tracker) Update(sched Schedule, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Schedule = sched
	t.snap.Started = true
	t.snap.Counts = counts
	t.mu.Unlock()
}

// RecordEvent remembers the most recent published event.
func (t *Tracker) RecordEvent(e logic.Event) {
	t.mu.Lock()
	t.snap.LastEvent = e
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTQueued sets the number of messages held until the broker is reachable.
func (t *Tracker) SetMQTTQueued(n int) {
	t.mu.Lock()
	t.snap.MQTTQueued = n
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
