package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Screen        string       `json:"screen"`
	Ready         bool         `json:"ready"`
	Schedule      ScheduleJSON `json:"schedule"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	LastEvent     *EventJSON   `json:"last_event,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ScheduleJSON is the JSON representation of the scheduler state.
type ScheduleJSON struct {
	Enabled       bool   `json:"enabled"`
	WakeOnTouch   bool   `json:"wake_on_touch"`
	Dimmed        bool   `json:"dimmed"`
	Rules         int    `json:"rules"`
	RuleID        string `json:"rule_id,omitempty"`
	NextWake      string `json:"next_wake,omitempty"`
	NextSleep     string `json:"next_sleep,omitempty"`
	NextSleepRule string `json:"next_sleep_rule,omitempty"`
	OverrideUntil string `json:"override_until,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Queued    int    `json:"queued"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Sleeps   int `json:"sleeps"`
	Wakes    int `json:"wakes"`
	Gestures int `json:"gestures"`
}

// EventJSON summarises the most recent scheduler event.
type EventJSON struct {
	Type      string `json:"type"`
	Reason    string `json:"reason"`
	RuleID    string `json:"rule_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	ConfigPath  string `json:"config_path,omitempty"`
	TouchDevice string `json:"touch_device,omitempty"`
	ButtonPin   int    `json:"button_pin"`
	GestureTaps int    `json:"gesture_taps"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	screen := string(snap.Schedule.State)
	if screen == "" {
		screen = "UNKNOWN"
	}
	sched := snap.Schedule

	var last *EventJSON
	if e := snap.LastEvent; e.Type != "" {
		last = &EventJSON{
			Type:      string(e.Type),
			Reason:    string(e.Reason),
			RuleID:    e.RuleID,
			Timestamp: formatTime(e.Timestamp),
		}
	}

	return StatusInner{
		Screen: screen,
		Ready:  snap.Started,
		Schedule: ScheduleJSON{
			Enabled:       sched.Enabled,
			WakeOnTouch:   sched.WakeOnTouch,
			Dimmed:        sched.Dimmed,
			Rules:         sched.Rules,
			RuleID:        sched.RuleID,
			NextWake:      formatTime(sched.NextWake),
			NextSleep:     formatTime(sched.NextSleep),
			NextSleepRule: sched.NextSleepRule,
			OverrideUntil: formatTime(sched.OverrideUntil),
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker, Queued: snap.MQTTQueued},
		Counts: CountsJSON{
			Sleeps:   snap.Counts.Sleeps,
			Wakes:    snap.Counts.Wakes,
			Gestures: snap.Counts.Gestures,
		},
		LastEvent: last,
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			ConfigPath:  snap.Config.ConfigPath,
			TouchDevice: snap.Config.TouchDevice,
			ButtonPin:   snap.Config.ButtonPin,
			GestureTaps: snap.Config.GestureTaps,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
