package stream

import (
	"time"

	"NovaSignal/internal/domain/models"
	"NovaSignal/pkg/logger"
)

// heartbeatLoop probes the connection every PingInterval and forces a
// reconnect when the matching pong does not arrive within PongTimeout.
// A half-open TCP connection delivers no read error, so liveness has to
// be proven actively.
func (m *Manager) heartbeatLoop(gen uint64, t Transport, done chan struct{}, pong chan struct{}) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		// Drop any pong that arrived outside a probe window so it cannot
		// satisfy the next probe.
		select {
		case <-pong:
		default:
		}

		fr := models.StreamFrame{Type: models.FramePing, Timestamp: time.Now().UnixMilli()}
		if err := m.sendFrame(t, fr); err != nil {
			m.log.Warn("heartbeat send failed",
				logger.String("feed", m.feed),
				logger.Error(err),
			)
			m.forceReconnect(gen, err)
			return
		}

		timeout := time.NewTimer(m.cfg.PongTimeout)
		select {
		case <-done:
			timeout.Stop()
			return
		case <-pong:
			timeout.Stop()
		case <-timeout.C:
			m.log.Warn("heartbeat pong timeout",
				logger.String("feed", m.feed),
				logger.Duration("timeout_ms", m.cfg.PongTimeout),
			)
			m.forceReconnect(gen, ErrPongTimeout)
			return
		}
	}
}
