package models

import "encoding/json"

// CandleRecord is one OHLC(V) bar. Timestamp is unix seconds and is the
// unique key of a record within a series.
type CandleRecord struct {
	Timestamp int64   `json:"ts"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume,omitempty"`
}

// StreamFrame is the wire envelope of one websocket text frame.
// Known types are "ohlc", "ping" and "pong"; anything else is ignored.
// Data stays raw so a bad bar can be dropped without failing the frame.
type StreamFrame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

const (
	FrameOHLC = "ohlc"
	FramePing = "ping"
	FramePong = "pong"
)
