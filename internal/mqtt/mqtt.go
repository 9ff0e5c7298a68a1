// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/kiosk-sleep/internal/logic"
)

// Topic is the MQTT topic for screen sleep, wake and gesture events.
const Topic = "kiosk/screen/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "kiosk/screen/system"

// System event names.
const (
	SystemStartup     = "STARTUP"
	SystemShutdown    = "SHUTDOWN"
	SystemHeartbeat   = "HEARTBEAT"
	SystemReconnected = "RECONNECTED"
	SystemOffline     = "OFFLINE"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a scheduler event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
	// Queued reports how many messages are waiting for a connection.
	Queued() int
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Kiosk KioskPayload `json:"kiosk"`
}

// KioskPayload contains the event details.
type KioskPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason"`
	State     string `json:"state,omitempty"`
	RuleID    string `json:"rule_id,omitempty"`
	Next      string `json:"next,omitempty"`
}

// FormatPayload creates the JSON payload for a scheduler event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Kiosk: KioskPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Reason:    string(event.Reason),
			State:     string(event.State),
			RuleID:    event.RuleID,
		},
	}
	if !event.Next.IsZero() {
		payload.Kiosk.Next = event.Next.UTC().Format(time.RFC3339)
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Event:  event.Event,
			Reason: event.Reason,
		},
	}
	if !event.Timestamp.IsZero() {
		payload.System.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(payload)
}

// willPayload is registered with the broker at connect time and published by
// it if the connection drops without a clean disconnect.
func willPayload() []byte {
	b, _ := FormatSystemPayload(SystemEvent{Event: SystemOffline, Reason: "MQTT_DISCONNECT"})
	return b
}
