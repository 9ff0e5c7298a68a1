package mqtt

import "log/slog"

// queued is a serialized message waiting for the broker connection.
type queued struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while disconnected, oldest first.
//
// A retained message replaces any older retained message for the same topic:
// the broker only keeps the latest one, so replaying a stale STARTUP ahead of
// a later SHUTDOWN would just be overwritten. When full, the oldest message is
// dropped. Not safe for concurrent use; the caller must synchronize.
type outbox struct {
	msgs     []queued
	capacity int
	dropped  int
}

func newOutbox(capacity int) *outbox {
	return &outbox{capacity: capacity}
}

func (o *outbox) add(m queued) {
	if m.retained {
		for i, old := range o.msgs {
			if old.retained && old.topic == m.topic {
				o.msgs = append(o.msgs[:i], o.msgs[i+1:]...)
				break
			}
		}
	}

	if len(o.msgs) == o.capacity {
		if o.dropped == 0 {
			slog.Warn("MQTT outbox full, dropping oldest", slog.Int("capacity", o.capacity))
		}
		o.dropped++
		o.msgs = o.msgs[1:]
	}
	o.msgs = append(o.msgs, m)
}

// takeAll empties the outbox, returning its messages and how many were
// dropped since the last call.
func (o *outbox) takeAll() ([]queued, int) {
	msgs, dropped := o.msgs, o.dropped
	o.msgs, o.dropped = nil, 0
	return msgs, dropped
}

func (o *outbox) len() int {
	return len(o.msgs)
}
