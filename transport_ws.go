package minimqtt

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketSubprotocol is the MQTT WebSocket subprotocol.
const WebSocketSubprotocol = "mqtt"

// ErrWSMessageType is returned when the broker sends a non-binary WebSocket message.
var ErrWSMessageType = fmt.Errorf("%w: MQTT over WebSocket requires binary messages", ErrProtocol)

// WSConn adapts a WebSocket connection to a byte stream.
//
// A gorilla connection cannot be read again after a read deadline expires,
// so messages are received by a reader goroutine and read deadlines are
// enforced here instead.
type WSConn struct {
	conn *websocket.Conn

	msgs   chan wsMessage
	closed chan struct{}
	once   sync.Once

	mu           sync.Mutex
	readDeadline time.Time

	// deadlineSet wakes a blocked Read to pick up a new read deadline.
	deadlineSet chan struct{}

	buf []byte
	err error
}

type wsMessage struct {
	data []byte
	err  error
}

func newWSConn(conn *websocket.Conn) *WSConn {
	c := &WSConn{
		conn:        conn,
		msgs:        make(chan wsMessage, 1),
		closed:      make(chan struct{}),
		deadlineSet: make(chan struct{}, 1),
	}
	go c.receive()
	return c
}

func (c *WSConn) receive() {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err == nil && messageType != websocket.BinaryMessage {
			err = ErrWSMessageType
		}

		select {
		case c.msgs <- wsMessage{data: data, err: err}:
		case <-c.closed:
			return
		}

		if err != nil {
			return
		}
	}
}

// Read reads data from the current message, waiting for the next message
// until the read deadline.
func (c *WSConn) Read(b []byte) (int, error) {
	for len(c.buf) == 0 {
		if c.err != nil {
			return 0, c.err
		}

		c.mu.Lock()
		deadline := c.readDeadline
		c.mu.Unlock()

		var timer *time.Timer
		var timeout <-chan time.Time
		if !deadline.IsZero() {
			d := time.Until(deadline)
			if d <= 0 {
				return 0, os.ErrDeadlineExceeded
			}
			timer = time.NewTimer(d)
			timeout = timer.C
		}

		var err error
		select {
		case msg := <-c.msgs:
			c.buf, c.err = msg.data, msg.err
		case <-timeout:
			err = os.ErrDeadlineExceeded
		case <-c.deadlineSet:
		case <-c.closed:
			err = net.ErrClosed
		}

		if timer != nil {
			timer.Stop()
		}
		if err != nil {
			return 0, err
		}
	}

	n := copy(b, c.buf)
	c.buf = c.buf[n:]
	return n, nil
}

// Write writes data to the connection as one binary message.
func (c *WSConn) Write(b []byte) (int, error) {
	if err := c.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close closes the connection and stops the reader goroutine.
func (c *WSConn) Close() error {
	err := net.ErrClosed
	c.once.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

func (c *WSConn) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *WSConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// SetDeadline sets the read and write deadlines.
func (c *WSConn) SetDeadline(t time.Time) error {
	if err := c.SetReadDeadline(t); err != nil {
		return err
	}
	return c.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline, also for a Read already blocked.
// A read that times out leaves the connection usable.
func (c *WSConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.readDeadline = t
	c.mu.Unlock()

	select {
	case c.deadlineSet <- struct{}{}:
	default:
	}
	return nil
}

// SetWriteDeadline sets the write deadline.
func (c *WSConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// WSDialer connects to MQTT brokers over WebSocket.
// The address is the full ws:// or wss:// URL.
type WSDialer struct {
	// Dialer is the underlying WebSocket dialer.
	Dialer *websocket.Dialer

	// Header is the HTTP header to send with the handshake.
	Header http.Header
}

// NewWSDialer creates a WebSocket dialer that negotiates the MQTT subprotocol
// and honours the HTTP_PROXY, HTTPS_PROXY and NO_PROXY environment variables.
func NewWSDialer() *WSDialer {
	return &WSDialer{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			Subprotocols:     []string{WebSocketSubprotocol},
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
			HandshakeTimeout: 45 * time.Second,
		},
	}
}

// Dial connects to the WebSocket URL.
func (d *WSDialer) Dial(ctx context.Context, address string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	header := d.Header
	if header == nil {
		header = http.Header{}
	}

	conn, resp, err := dialer.DialContext(ctx, address, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	return newWSConn(conn), nil
}
