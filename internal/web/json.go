package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/weather-sync/internal/face"
	"github.com/sweeney/weather-sync/internal/status"
)

// IndexJSON is the /index.json document: the tracker status plus the
// endpoints this server adds.
type IndexJSON struct {
	status.StatusJSON
	Sync *SyncJSON `json:"sync,omitempty"`
	Live *LiveJSON `json:"live,omitempty"`
}

// SyncJSON reports the publish schedule.
type SyncJSON struct {
	NextRun string `json:"next_run,omitempty"`
}

// LiveJSON reports the websocket frame stream.
type LiveJSON struct {
	Clients int `json:"clients"`
}

// SyncResponse is returned by POST /sync.
type SyncResponse struct {
	Triggered bool   `json:"triggered"`
	NextRun   string `json:"next_run,omitempty"`
}

// FrameMessage is one websocket message on /ws.
type FrameMessage struct {
	Type  string     `json:"type"`
	Frame face.Frame `json:"frame"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatJSON(d pageData) []byte {
	doc := IndexJSON{StatusJSON: status.Build(d.Snapshot)}
	if d.SyncEnabled {
		doc.Sync = &SyncJSON{NextRun: formatTime(d.NextRun)}
	}
	if d.LiveEnabled {
		doc.Live = &LiveJSON{Clients: d.LiveClients}
	}
	data, _ := json.MarshalIndent(doc, "", "  ")
	return data
}

func formatSyncResponse(next time.Time) []byte {
	data, _ := json.Marshal(SyncResponse{Triggered: true, NextRun: formatTime(next)})
	return data
}

func formatFrame(f face.Frame) ([]byte, error) {
	return json.Marshal(FrameMessage{Type: "frame", Frame: f})
}
