package stream

import (
	"errors"
	"time"
)

// State is the externally observable lifecycle of one logical stream.
// It is owned exclusively by the Manager; transitions are the only way it
// changes.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateError        State = "error"
	StateFailed       State = "failed"
)

var (
	ErrNotConnected    = errors.New("stream: not connected")
	ErrPongTimeout     = errors.New("stream: pong timeout")
	ErrTransportClosed = errors.New("stream: transport closed")
)

// Config holds the tunables of one stream manager. Zero values fall back
// to the defaults below.
type Config struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	JitterRatio       float64
	PingInterval      time.Duration
	PongTimeout       time.Duration
	DialTimeout       time.Duration
	BufferSize        int
}

func (c Config) withDefaults() Config {
	if c.MaxRetries == 0 {
		c.MaxRetries = 12
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = time.Second
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = 1.5
	}
	if c.JitterRatio == 0 {
		c.JitterRatio = 0.3
	}
	if c.PingInterval == 0 {
		c.PingInterval = 25 * time.Second
	}
	if c.PongTimeout == 0 {
		c.PongTimeout = 10 * time.Second
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.BufferSize == 0 {
		c.BufferSize = 1000
	}
	return c
}

// Status is a point-in-time snapshot of the connection lifecycle.
type Status struct {
	State         State
	Attempts      int
	LastConnected time.Time
	Err           error
}

// Event is delivered to an optional diagnostics callback on lifecycle
// changes. The callback is the only diagnostics surface; the manager
// keeps no global debug state.
type Event struct {
	Kind    string
	State   State
	Attempt int
	Err     error
}
