package channel

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the JSON wire form of a record on MQTT.
type Envelope struct {
	Path      string  `json:"path"`
	Node      string  `json:"node"`
	Timestamp string  `json:"timestamp"`
	Urgent    bool    `json:"urgent"`
	Data      DataMap `json:"data"`
}

// FormatEnvelope creates the JSON payload for a record.
func FormatEnvelope(rec Record) ([]byte, error) {
	env := Envelope{
		Path:      rec.Address.Path,
		Node:      string(rec.Address.Node),
		Timestamp: rec.Timestamp.UTC().Format(time.RFC3339),
		Urgent:    rec.Urgent,
		Data:      rec.Data,
	}
	return json.Marshal(env)
}

// ParseEnvelope decodes a payload created by FormatEnvelope.
func ParseEnvelope(payload []byte) (Record, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Record{}, fmt.Errorf("parse envelope: %w", err)
	}
	if env.Path == "" {
		return Record{}, fmt.Errorf("parse envelope: missing path")
	}
	rec := Record{
		Address: Address{Node: NodeID(env.Node), Path: env.Path},
		Data:    env.Data,
		Urgent:  env.Urgent,
	}
	if env.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, env.Timestamp)
		if err != nil {
			return Record{}, fmt.Errorf("parse envelope timestamp: %w", err)
		}
		rec.Timestamp = ts
	}
	if rec.Data == nil {
		rec.Data = DataMap{}
	}
	return rec, nil
}
