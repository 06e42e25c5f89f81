package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"NovaSignal/internal/domain/models"
)

var errDial = errors.New("dial refused")

type fakeTransport struct {
	dialErr error
	frames  chan []byte
	errs    chan error
	once    sync.Once

	mu   sync.Mutex
	sent [][]byte
}

func newFakeTransport(dialErr error) *fakeTransport {
	return &fakeTransport{
		dialErr: dialErr,
		frames:  make(chan []byte, 64),
		errs:    make(chan error, 1),
	}
}

func (f *fakeTransport) Connect(ctx context.Context) error { return f.dialErr }

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeTransport) Frames() <-chan []byte { return f.frames }
func (f *fakeTransport) Errors() <-chan error  { return f.errs }

func (f *fakeTransport) Close() error {
	f.once.Do(func() { close(f.frames) })
	return nil
}

// closeFromServer simulates the remote end dropping the connection.
func (f *fakeTransport) closeFromServer() {
	f.once.Do(func() { close(f.frames) })
}

func (f *fakeTransport) push(data []byte) { f.frames <- data }

func (f *fakeTransport) sentLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeTransport) sentAt(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[i]
}

// fakeDialer scripts the outcome of each dial by its ordinal.
type fakeDialer struct {
	mu    sync.Mutex
	errAt func(n int) error
	dials []*fakeTransport
}

func newFakeDialer(errAt func(n int) error) *fakeDialer {
	return &fakeDialer{errAt: errAt}
}

func (d *fakeDialer) dial(target string) Transport {
	d.mu.Lock()
	defer d.mu.Unlock()
	ft := newFakeTransport(d.errAt(len(d.dials)))
	d.dials = append(d.dials, ft)
	return ft
}

func (d *fakeDialer) setScript(errAt func(n int) error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errAt = errAt
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials)
}

func (d *fakeDialer) transport(i int) *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[i]
}

func alwaysDial(n int) error { return nil }
func neverDial(n int) error  { return errDial }

func testConfig() Config {
	return Config{
		MaxRetries:        3,
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 1.5,
		JitterRatio:       0.1,
		PingInterval:      time.Hour,
		PongTimeout:       time.Hour,
		DialTimeout:       time.Second,
		BufferSize:        10,
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func (m *Manager) waitState(t *testing.T, want State) {
	t.Helper()
	waitFor(t, func() bool { return m.Status().State == want }, "state "+string(want))
}

func TestManagerConnects(t *testing.T) {
	d := newFakeDialer(alwaysDial)
	m := NewManager("btc:crypto:1", testConfig(), WithDialer(d.dial))
	defer m.Disconnect()

	m.SetURL("ws://example/ws")
	m.waitState(t, StateConnected)

	st := m.Status()
	if st.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", st.Attempts)
	}
	if st.LastConnected.IsZero() {
		t.Error("LastConnected not set")
	}
	if st.Err != nil {
		t.Errorf("Err = %v, want nil", st.Err)
	}
}

func TestManagerRetriesThenFails(t *testing.T) {
	d := newFakeDialer(func(n int) error {
		if n == 0 {
			return nil
		}
		return errDial
	})
	m := NewManager("btc:crypto:1", testConfig(), WithDialer(d.dial))
	defer m.Disconnect()

	m.SetURL("ws://example/ws")
	m.waitState(t, StateConnected)

	d.transport(0).closeFromServer()
	m.waitState(t, StateFailed)

	// One successful dial plus exactly MaxRetries reconnection attempts.
	if got := d.count(); got != 4 {
		t.Errorf("dial count = %d, want 4", got)
	}
	st := m.Status()
	if st.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", st.Attempts)
	}
	if st.Err == nil {
		t.Error("Err is nil in failed state")
	}
}

func TestManagerRecoversAndResetsAttempts(t *testing.T) {
	d := newFakeDialer(func(n int) error {
		if n < 2 {
			return errDial
		}
		return nil
	})
	m := NewManager("btc:crypto:1", testConfig(), WithDialer(d.dial))
	defer m.Disconnect()

	m.SetURL("ws://example/ws")
	m.waitState(t, StateConnected)

	if got := d.count(); got != 3 {
		t.Errorf("dial count = %d, want 3", got)
	}
	st := m.Status()
	if st.Attempts != 0 {
		t.Errorf("Attempts after recovery = %d, want 0", st.Attempts)
	}
	if st.Err != nil {
		t.Errorf("Err after recovery = %v, want nil", st.Err)
	}
}

func TestManagerManualReconnectFromFailed(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 1
	d := newFakeDialer(neverDial)
	m := NewManager("btc:crypto:1", cfg, WithDialer(d.dial))
	defer m.Disconnect()

	m.SetURL("ws://example/ws")
	m.waitState(t, StateFailed)

	d.setScript(alwaysDial)
	m.Reconnect()
	m.waitState(t, StateConnected)

	if st := m.Status(); st.Attempts != 0 {
		t.Errorf("Attempts after manual reconnect = %d, want 0", st.Attempts)
	}
}

func TestManagerDisconnectStopsRetries(t *testing.T) {
	d := newFakeDialer(neverDial)
	m := NewManager("btc:crypto:1", testConfig(), WithDialer(d.dial))

	m.SetURL("ws://example/ws")
	m.waitState(t, StateReconnecting)

	m.Disconnect()
	dials := d.count()
	time.Sleep(250 * time.Millisecond)

	if got := m.Status().State; got != StateDisconnected {
		t.Errorf("state = %s, want %s", got, StateDisconnected)
	}
	if d.count() != dials {
		t.Errorf("dial count grew from %d to %d after Disconnect", dials, d.count())
	}
}

func TestManagerEmptyURL(t *testing.T) {
	d := newFakeDialer(alwaysDial)
	m := NewManager("btc:crypto:1", testConfig(), WithDialer(d.dial))

	m.SetURL("")
	if got := m.Status().State; got != StateDisconnected {
		t.Errorf("state = %s, want %s", got, StateDisconnected)
	}
	if d.count() != 0 {
		t.Errorf("dial count = %d, want 0", d.count())
	}
}

func TestManagerPongTimeoutForcesReconnect(t *testing.T) {
	cfg := testConfig()
	cfg.PingInterval = 10 * time.Millisecond
	cfg.PongTimeout = 15 * time.Millisecond

	var mu sync.Mutex
	var causes []error
	d := newFakeDialer(alwaysDial)
	m := NewManager("btc:crypto:1", cfg,
		WithDialer(d.dial),
		WithDiagnostics(func(ev Event) {
			if ev.Kind == "liveness-failure" {
				mu.Lock()
				causes = append(causes, ev.Err)
				mu.Unlock()
			}
		}),
	)
	defer m.Disconnect()

	m.SetURL("ws://example/ws")
	m.waitState(t, StateConnected)

	// No pong ever arrives, so the heartbeat must cycle the connection.
	waitFor(t, func() bool { return d.count() >= 2 }, "reconnect dial")
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(causes) > 0
	}, "liveness failure event")

	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(causes[0], ErrPongTimeout) {
		t.Errorf("cause = %v, want %v", causes[0], ErrPongTimeout)
	}
}

func TestManagerAnswersPing(t *testing.T) {
	d := newFakeDialer(alwaysDial)
	m := NewManager("btc:crypto:1", testConfig(), WithDialer(d.dial))
	defer m.Disconnect()

	m.SetURL("ws://example/ws")
	m.waitState(t, StateConnected)

	ft := d.transport(0)
	ft.push([]byte(`{"type":"ping","timestamp":1700000000000}`))
	waitFor(t, func() bool { return ft.sentLen() >= 1 }, "pong reply")

	var fr models.StreamFrame
	if err := json.Unmarshal(ft.sentAt(0), &fr); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if fr.Type != models.FramePong {
		t.Errorf("reply type = %q, want %q", fr.Type, models.FramePong)
	}
}

func TestManagerBuffersNormalizedRecords(t *testing.T) {
	d := newFakeDialer(alwaysDial)
	m := NewManager("btc:crypto:1", testConfig(), WithDialer(d.dial))
	defer m.Disconnect()

	m.SetURL("ws://example/ws")
	m.waitState(t, StateConnected)

	ft := d.transport(0)
	ft.push([]byte(`{"type":"ohlc","data":{"ts":1700000000,"open":10,"high":12,"low":9,"close":11,"volume":3}}`))
	waitFor(t, func() bool { return m.Buffer().Len() == 1 }, "buffered record")

	got := m.Buffer().Snapshot()[0]
	if got.Timestamp != 1700000000 || got.Close != 11 {
		t.Errorf("record = %+v, want ts=1700000000 close=11", got)
	}
}

func TestManagerDropsBadFrames(t *testing.T) {
	d := newFakeDialer(alwaysDial)
	m := NewManager("btc:crypto:1", testConfig(), WithDialer(d.dial))
	defer m.Disconnect()

	m.SetURL("ws://example/ws")
	m.waitState(t, StateConnected)

	ft := d.transport(0)
	ft.push([]byte(`{not json`))
	ft.push([]byte(`{"type":"snapshot","data":{}}`))
	ft.push([]byte(`{"type":"ohlc","data":{"ts":5,"open":1,"high":2,"low":3,"close":1}}`)) // high < low
	ft.push([]byte(`{"type":"ohlc","data":{"ts":7,"open":1,"high":2,"low":0.5,"close":1}}`))
	waitFor(t, func() bool { return m.Buffer().Len() == 1 }, "single valid record")

	if got := m.Status().State; got != StateConnected {
		t.Errorf("state = %s, want %s", got, StateConnected)
	}
	if ts := m.Buffer().Snapshot()[0].Timestamp; ts != 7 {
		t.Errorf("buffered ts = %d, want 7", ts)
	}
}
