package stream

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport owns one logical streaming connection to one URL. It only
// knows how to open, send, receive raw frames and close; lifecycle policy
// lives in the Manager.
type Transport interface {
	Connect(ctx context.Context) error
	Send(data []byte) error
	Frames() <-chan []byte
	Errors() <-chan error
	Close() error
}

// Dialer creates a Transport for a target URL. Tests substitute a fake.
type Dialer func(target string) Transport

const frameBufferSize = 256

// wsTransport implements Transport over a gorilla websocket connection.
type wsTransport struct {
	target           string
	handshakeTimeout time.Duration
	writeTimeout     time.Duration

	frames chan []byte
	errs   chan error
	done   chan struct{}

	writeMu   sync.Mutex
	conn      *websocket.Conn
	closeOnce sync.Once
}

// NewWebsocketDialer returns the production Dialer.
func NewWebsocketDialer(handshakeTimeout, writeTimeout time.Duration) Dialer {
	return func(target string) Transport {
		return &wsTransport{
			target:           target,
			handshakeTimeout: handshakeTimeout,
			writeTimeout:     writeTimeout,
			frames:           make(chan []byte, frameBufferSize),
			errs:             make(chan error, 1),
			done:             make(chan struct{}),
		}
	}
}

func (t *wsTransport) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: t.handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, t.target, nil)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	t.conn = conn
	t.writeMu.Unlock()

	go t.readLoop(conn)
	return nil
}

func (t *wsTransport) Send(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.conn == nil {
		return ErrNotConnected
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Frames() <-chan []byte { return t.frames }

func (t *wsTransport) Errors() <-chan error { return t.errs }

func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)

		t.writeMu.Lock()
		conn := t.conn
		t.writeMu.Unlock()

		if conn != nil {
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			_ = conn.Close()
		}
	})
	return nil
}

// readLoop feeds raw frames to the frames channel until the connection
// dies. The frames channel closing is the transport's close event; a read
// error is surfaced on the errors channel first.
func (t *wsTransport) readLoop(conn *websocket.Conn) {
	defer close(t.frames)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-t.done:
				// Close() initiated the shutdown; not an error.
			default:
				select {
				case t.errs <- err:
				default:
				}
			}
			return
		}

		select {
		case t.frames <- data:
		case <-t.done:
			return
		}
	}
}
