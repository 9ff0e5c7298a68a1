package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/kiosk-sleep/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"instant": func(t time.Time) string {
		if t.IsZero() {
			return "none"
		}
		return t.Format("Mon 2006-01-02 15:04 MST")
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Kiosk Sleep</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.awake { color: green; font-weight: bold; }
.asleep { color: #558; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Kiosk Sleep</h1>

{{$screen := stateOrUnknown (printf "%s" .Schedule.State)}}
<h2>Screen</h2>
<table>
<tr><th>State</th><td id="screen-state" class="{{if eq $screen "AWAKE"}}awake{{else if eq $screen "ASLEEP"}}asleep{{else}}unknown{{end}}">{{$screen}}</td></tr>
<tr><th>Schedule</th><td>{{if .Schedule.Enabled}}enabled{{else}}disabled{{end}} ({{.Schedule.Rules}} rules)</td></tr>
<tr><th>Wake on touch</th><td>{{if .Schedule.WakeOnTouch}}yes{{else}}no{{end}}</td></tr>
<tr><th>Dimmed</th><td>{{if .Schedule.Dimmed}}yes{{else}}no{{end}}</td></tr>
{{if .Schedule.RuleID}}<tr><th>Held by rule</th><td>{{.Schedule.RuleID}}</td></tr>{{end}}
<tr><th>Next wake</th><td>{{instant .Schedule.NextWake}}</td></tr>
<tr><th>Next sleep</th><td>{{instant .Schedule.NextSleep}}{{if .Schedule.NextSleepRule}} ({{.Schedule.NextSleepRule}}){{end}}</td></tr>
{{if not .Schedule.OverrideUntil.IsZero}}<tr><th>Woken manually until</th><td>{{instant .Schedule.OverrideUntil}}</td></tr>{{end}}
<tr><th>Ready</th><td>{{if .Started}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}{{if .MQTTQueued}} ({{.MQTTQueued}} queued){{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Sleeps</th><td>{{.Counts.Sleeps}}</td></tr>
<tr><th>Wakes</th><td>{{.Counts.Wakes}}</td></tr>
<tr><th>Gestures</th><td>{{.Counts.Gestures}}</td></tr>
{{with .LastEvent}}{{if .Type}}<tr><th>Last event</th><td>{{.Type}} ({{.Reason}}) {{instant .Timestamp}}</td></tr>{{end}}{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Settings</th><td>{{.Config.ConfigPath}}</td></tr>
<tr><th>Touch device</th><td>{{if .Config.TouchDevice}}{{.Config.TouchDevice}}{{else}}none{{end}}</td></tr>
<tr><th>Button pin</th><td>{{if lt .Config.ButtonPin 0}}none{{else}}{{.Config.ButtonPin}}{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
