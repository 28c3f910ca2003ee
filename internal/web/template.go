package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/microwave/internal/entry"
	"github.com/sweeney/microwave/internal/status"
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
	"timer": entry.FormatSeconds,
	"onoff": func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Microwave</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
pre.lcd { background: #1d3b1d; color: #b4f0b4; padding: 8px; display: inline-block; }
</style>
</head>
<body>
<h1>Microwave</h1>

<h2>Display</h2>
<pre class="lcd" id="lcd">{{range .Display}}{{printf "%-16s" .}}
{{end}}</pre>

<h2>Session</h2>
<table>
<tr><th>State</th><td id="state">{{.Session.State}}</td></tr>
<tr><th>Timer</th><td id="timer">{{timer .Session.Remaining}}</td></tr>
<tr><th>Entry</th><td>{{if eq .Session.EntryDigits 0}}__:__{{else}}{{.Session.Entry}}{{end}}{{if .Session.EntryLocked}} (locked){{end}}</td></tr>
<tr><th>Door</th><td id="door">{{.Session.Door}}</td></tr>
<tr><th>Load</th><td id="load">{{.Session.Load}}</td></tr>
<tr><th>Temperature</th><td>{{.Celsius}}&deg;C</td></tr>
</table>

<h2>Outputs</h2>
<table>
<tr><th>Heater</th><td class="{{onoff .Session.Outputs.Heater}}">{{onoff .Session.Outputs.Heater}}</td></tr>
<tr><th>Fan</th><td class="{{onoff .Session.Outputs.Fan}}">{{onoff .Session.Outputs.Fan}}</td></tr>
<tr><th>Lamp</th><td class="{{onoff .Session.Outputs.LED}}">{{onoff .Session.Outputs.LED}}</td></tr>
<tr><th>Buzzer</th><td class="{{onoff .Session.Outputs.Buzzer}}">{{onoff .Session.Outputs.Buzzer}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Started</th><td>{{.Session.Counts.Started}}</td></tr>
<tr><th>Paused</th><td>{{.Session.Counts.Paused}}</td></tr>
<tr><th>Resumed</th><td>{{.Session.Counts.Resumed}}</td></tr>
<tr><th>Cancelled</th><td>{{.Session.Counts.Cancelled}}</td></tr>
<tr><th>Finished</th><td>{{.Session.Counts.Finished}}</td></tr>
<tr><th>Dismissed</th><td>{{.Session.Counts.Dismissed}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Keypad</th><td>{{.Config.Layout}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
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
