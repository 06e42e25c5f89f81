package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"NovaSignal/internal/domain/models"
	"NovaSignal/internal/domain/repository"
	"NovaSignal/pkg/logger"
	"NovaSignal/pkg/metrics"

	"github.com/google/uuid"
)

// Manager keeps one logical stream alive over an unreliable transport.
// It owns the connection state, the retry context and the live buffer.
//
// Every timer and transport callback is guarded by a generation counter:
// a callback armed for a superseded connection checks its captured
// generation against the current one and no-ops when stale. Exactly one
// transport is active per manager at any time.
type Manager struct {
	feed    string
	session string
	cfg     Config
	policy  Policy
	dial    Dialer
	log     *logger.Logger
	metrics repository.Metrics
	diag    func(Event)
	buffer  *Buffer

	mu            sync.Mutex
	url           string
	state         State
	attempt       int
	lastConnected time.Time
	lastErr       error
	generation    uint64
	transport     Transport
	retryTimer    *time.Timer
	done          chan struct{}
	pong          chan struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithDialer substitutes the transport factory.
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dial = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec repository.Metrics) Option {
	return func(m *Manager) { m.metrics = rec }
}

// WithDiagnostics installs an optional callback invoked on lifecycle
// events. The callback runs on the manager's internal goroutines and must
// not call back into the manager.
func WithDiagnostics(fn func(Event)) Option {
	return func(m *Manager) { m.diag = fn }
}

// NewManager creates a manager for one logical feed.
func NewManager(feed string, cfg Config, opts ...Option) *Manager {
	cfg = cfg.withDefaults()
	m := &Manager{
		feed:    feed,
		session: uuid.NewString(),
		cfg:     cfg,
		policy:  NewPolicy(cfg),
		dial:    NewWebsocketDialer(cfg.DialTimeout, 5*time.Second),
		log:     logger.Nop(),
		metrics: metrics.NewNop(),
		state:   StateDisconnected,
		buffer:  NewBuffer(cfg.BufferSize),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Buffer returns the live record buffer of this feed.
func (m *Manager) Buffer() *Buffer { return m.buffer }

// Status returns a snapshot of the connection lifecycle.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:         m.state,
		Attempts:      m.attempt,
		LastConnected: m.lastConnected,
		Err:           m.lastErr,
	}
}

// SetURL changes the stream target. A changed target closes the old
// transport before the new one is opened, so there is never a dual-open.
// An empty target means "do not connect" and forces disconnected.
func (m *Manager) SetURL(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if target == m.url && m.state != StateDisconnected && m.state != StateFailed {
		return
	}
	m.teardownLocked()
	m.url = target
	if target == "" {
		m.setStateLocked(StateDisconnected)
		return
	}
	m.attempt = 0
	m.lastErr = nil
	m.connectLocked()
}

// Reconnect short-circuits any scheduled retry, closes any live
// transport, resets the retry context and immediately re-enters
// connecting. It is the manual recovery path out of the failed state.
func (m *Manager) Reconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.url == "" {
		m.setStateLocked(StateDisconnected)
		return
	}
	m.teardownLocked()
	m.attempt = 0
	m.lastErr = nil
	m.connectLocked()
}

// Disconnect closes the stream and stops all automatic retries.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.teardownLocked()
	m.attempt = 0
	m.lastErr = nil
	m.setStateLocked(StateDisconnected)
}

// teardownLocked invalidates the current epoch: every pending timer and
// goroutine of the previous transport is cut loose before a new one can
// exist.
func (m *Manager) teardownLocked() {
	m.generation++
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	if m.transport != nil {
		_ = m.transport.Close()
		m.transport = nil
	}
}

func (m *Manager) connectLocked() {
	m.generation++
	gen := m.generation
	m.setStateLocked(StateConnecting)
	t := m.dial(m.url)
	go m.runDial(gen, t)
}

func (m *Manager) runDial(gen uint64, t Transport) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.DialTimeout)
	defer cancel()
	err := t.Connect(ctx)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		_ = t.Close() // superseded while dialing
		return
	}
	if err != nil {
		m.scheduleRetryLocked(err)
		m.mu.Unlock()
		return
	}

	m.transport = t
	m.done = make(chan struct{})
	m.pong = make(chan struct{}, 1)
	done, pong := m.done, m.pong
	m.attempt = 0
	m.lastConnected = time.Now()
	m.lastErr = nil
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	m.log.Info("stream connected",
		logger.String("feed", m.feed),
		logger.String("session", m.session),
	)

	go m.readLoop(gen, t, done)
	go m.heartbeatLoop(gen, t, done, pong)
}

// scheduleRetryLocked records the failure and either arms the next retry
// or enters the terminal failed state once the ceiling is reached.
func (m *Manager) scheduleRetryLocked(cause error) {
	m.lastErr = cause
	if m.policy.Exhausted(m.attempt) {
		m.setStateLocked(StateFailed)
		m.log.Error("stream retries exhausted",
			logger.String("feed", m.feed),
			logger.Int("attempts", m.attempt),
			logger.Error(cause),
		)
		return
	}

	delay := m.policy.Delay(m.attempt)
	m.attempt++
	m.setStateLocked(StateReconnecting)
	m.metrics.RecordReconnect(m.feed)

	gen := m.generation
	m.retryTimer = time.AfterFunc(delay, func() { m.retryFired(gen) })

	m.log.Warn("stream retry scheduled",
		logger.String("feed", m.feed),
		logger.Int("attempt", m.attempt),
		logger.Duration("delay_ms", delay),
		logger.Error(cause),
	)
}

func (m *Manager) retryFired(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation || m.state != StateReconnecting {
		return
	}
	m.retryTimer = nil
	m.connectLocked()
}

func (m *Manager) readLoop(gen uint64, t Transport, done chan struct{}) {
	frames := t.Frames()
	errs := t.Errors()

	for {
		select {
		case <-done:
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			m.transportErrored(gen, err)
		case data, ok := <-frames:
			if !ok {
				m.transportClosed(gen)
				return
			}
			m.handleFrame(gen, t, data)
		}
	}
}

// transportErrored surfaces a transport error. The close event follows
// separately and drives the retry scheduling.
func (m *Manager) transportErrored(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return
	}
	m.lastErr = err
	if m.state == StateConnected || m.state == StateConnecting {
		m.setStateLocked(StateError)
	}
	m.log.Warn("stream transport error",
		logger.String("feed", m.feed),
		logger.Error(err),
	)
}

func (m *Manager) transportClosed(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return
	}
	if m.state == StateDisconnected || m.state == StateFailed {
		return
	}
	cause := m.lastErr
	if cause == nil {
		cause = ErrTransportClosed
	}
	m.teardownLocked()
	m.scheduleRetryLocked(cause)
}

// forceReconnect tears the current transport down and schedules a retry.
// Used by the heartbeat on liveness failure.
func (m *Manager) forceReconnect(gen uint64, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return
	}
	m.emit(Event{Kind: "liveness-failure", State: m.state, Attempt: m.attempt, Err: cause})
	m.teardownLocked()
	m.scheduleRetryLocked(cause)
}

func (m *Manager) handleFrame(gen uint64, t Transport, data []byte) {
	m.mu.Lock()
	stale := gen != m.generation
	m.mu.Unlock()
	if stale {
		return
	}

	var fr models.StreamFrame
	if err := json.Unmarshal(data, &fr); err != nil {
		m.metrics.RecordDroppedRecord("malformed_frame")
		m.log.Warn("dropping malformed frame",
			logger.String("feed", m.feed),
			logger.Error(err),
		)
		return
	}
	m.metrics.RecordFrame(fr.Type)

	switch fr.Type {
	case models.FrameOHLC:
		var raw map[string]any
		if err := json.Unmarshal(fr.Data, &raw); err != nil {
			m.metrics.RecordDroppedRecord("bad_bar")
			return
		}
		rec, ok := models.NormalizeBar(raw)
		if !ok {
			m.metrics.RecordDroppedRecord("invalid_bar")
			m.log.Debug("dropping invalid bar", logger.String("feed", m.feed))
			return
		}
		m.buffer.Append(rec)
	case models.FramePing:
		// The protocol is symmetric: remote probes get an immediate
		// answer regardless of our own ping cycle.
		m.sendFrame(t, models.StreamFrame{Type: models.FramePong, Timestamp: time.Now().UnixMilli()})
	case models.FramePong:
		m.pongReceived(gen)
	default:
		// Unknown frame types are ignored, not errors.
	}
}

func (m *Manager) pongReceived(gen uint64) {
	m.mu.Lock()
	ch := m.pong
	stale := gen != m.generation
	m.mu.Unlock()
	if stale || ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (m *Manager) sendFrame(t Transport, fr models.StreamFrame) error {
	data, err := json.Marshal(fr)
	if err != nil {
		return err
	}
	return t.Send(data)
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	m.metrics.RecordConnectionState(m.feed, string(s))
	m.emit(Event{Kind: "state", State: s, Attempt: m.attempt, Err: m.lastErr})
}

func (m *Manager) emit(ev Event) {
	if m.diag != nil {
		m.diag(ev)
	}
}
