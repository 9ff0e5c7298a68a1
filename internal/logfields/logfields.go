// Package logfields holds canonical slog attribute names so every package
// logs the same keys.
package logfields

import (
	"log/slog"
	"time"
)

const (
	KeyState    = "state"
	KeyReason   = "reason"
	KeyRuleID   = "rule_id"
	KeyAlarmTag = "alarm_tag"
	KeyAt       = "at"
	KeyEvent    = "event"
	KeySource   = "source"
	KeyTopic    = "topic"
	KeyPath     = "path"
	KeyError    = "error"
)

func State(s string) slog.Attr    { return slog.String(KeyState, s) }
func Reason(r string) slog.Attr   { return slog.String(KeyReason, r) }
func RuleID(id string) slog.Attr  { return slog.String(KeyRuleID, id) }
func AlarmTag(t string) slog.Attr { return slog.String(KeyAlarmTag, t) }
func Event(e string) slog.Attr    { return slog.String(KeyEvent, e) }
func Source(s string) slog.Attr   { return slog.String(KeySource, s) }
func Topic(t string) slog.Attr    { return slog.String(KeyTopic, t) }
func Path(p string) slog.Attr     { return slog.String(KeyPath, p) }

// At formats an instant as RFC3339; the zero time logs as an empty string.
func At(t time.Time) slog.Attr {
	if t.IsZero() {
		return slog.String(KeyAt, "")
	}
	return slog.String(KeyAt, t.Format(time.RFC3339))
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
