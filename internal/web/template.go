package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/weather-sync/internal/weather"
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
	"when": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
	"temp": weather.FormatTemp,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Weather Sync ({{.Config.Role}})</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.connected { color: green; }
.disconnected { color: red; }
.unknown { color: orange; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Weather Sync: {{.Config.Role}}{{if .LiveEnabled}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Channel</h2>
<table>
<tr><th>State</th><td class="{{if eq (stateOrUnknown .ChannelState) "CONNECTED"}}connected{{else if eq (stateOrUnknown .ChannelState) "UNKNOWN"}}unknown{{else}}disconnected{{end}}">{{stateOrUnknown .ChannelState}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
{{if .Config.Node}}<tr><th>Node</th><td>{{.Config.Node}}</td></tr>{{end}}
</table>
{{if ne .Config.Role "face"}}
<h2>Publish</h2>
<table>
<tr><th>Attempts</th><td>{{.Publish.Attempts}}</td></tr>
<tr><th>Last outcome</th><td>{{stateOrUnknown .Publish.LastOutcome}}</td></tr>
<tr><th>Last attempt</th><td>{{when .Publish.LastAttempt}}</td></tr>
<tr><th>Last success</th><td>{{when .Publish.LastSuccess}}</td></tr>
{{if .SyncEnabled}}<tr><th>Next run</th><td>{{when .NextRun}}</td></tr>{{end}}
</table>
{{if .SyncEnabled}}<form method="post" action="/sync"><button type="submit">Sync now</button></form>{{end}}
{{end}}
{{if ne .Config.Role "publisher"}}
<h2>Display</h2>
<table>
<tr><th>Mode</th><td id="mode">{{stateOrUnknown .Display.Mode}}</td></tr>
<tr><th>Synced</th><td>{{if .Display.HaveWeather}}yes{{else}}no{{end}}</td></tr>
<tr><th>Condition</th><td id="condition">{{.Display.Weather.ConditionID}}</td></tr>
<tr><th>High</th><td id="high">{{temp .Display.Weather.High}}</td></tr>
<tr><th>Low</th><td id="low">{{temp .Display.Weather.Low}}</td></tr>
<tr><th>Last applied</th><td>{{when .Display.LastApplied}}</td></tr>
<tr><th>Applied / rejected</th><td>{{.Display.Applied}} / {{.Display.Rejected}}</td></tr>
{{if .LiveEnabled}}<tr><th>Face</th><td id="face-time">-</td></tr>{{end}}
</table>

<h2>Host Signals</h2>
<table>
<tr><th>Display</th><td>{{stateOrUnknown (printf "%s" .Signals.Display)}}</td></tr>
<tr><th>Ambient</th><td>{{stateOrUnknown (printf "%s" .Signals.Ambient)}}</td></tr>
<tr><th>Ready</th><td>{{if .Signals.Baselined}}yes{{else}}no{{end}}</td></tr>
<tr><th>Display on / off</th><td>{{.Signals.Counts.DisplayOn}} / {{.Signals.Counts.DisplayOff}}</td></tr>
<tr><th>Ambient on / off</th><td>{{.Signals.Counts.AmbientOn}} / {{.Signals.Counts.AmbientOff}}</td></tr>
</table>
{{end}}
<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{when .StartTime}}</td></tr>
{{if .Config.SyncInterval}}<tr><th>Sync interval</th><td>{{.Config.SyncInterval}}</td></tr>{{end}}
{{if .Config.PollMs}}<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>{{end}}
{{if .Config.DebounceMs}}<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>{{end}}
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .LiveEnabled}}
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var modeEl = document.getElementById("mode");
  var timeEl = document.getElementById("face-time");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function text(frame, name) {
    for (var i = 0; i < frame.elements.length; i++) {
      if (frame.elements[i].name === name) return frame.elements[i].text;
    }
    return null;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var msg = JSON.parse(ev.data);
        if (msg.type !== "frame") return;
        var f = msg.frame;
        modeEl.textContent = f.mode;
        var t = text(f, "time") || (text(f, "hour") + ":" + text(f, "minute"));
        timeEl.textContent = t + "  " + (text(f, "high") || "");
      } catch (e) {}
    };
  }
  connect();
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, d pageData) error {
	return indexTmpl.Execute(w, d)
}
