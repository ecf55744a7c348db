package minimqtt

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
)

// QUICALPN is the ALPN protocol negotiated for MQTT over QUIC.
const QUICALPN = "mqtt"

// QUICConn carries the MQTT byte stream on the first bidirectional stream
// of a QUIC connection.
type QUICConn struct {
	conn   *quic.Conn
	stream *quic.Stream
	once   sync.Once
}

func (c *QUICConn) Read(b []byte) (int, error)  { return c.stream.Read(b) }
func (c *QUICConn) Write(b []byte) (int, error) { return c.stream.Write(b) }

// Close closes the stream and the QUIC connection.
func (c *QUICConn) Close() error {
	err := net.ErrClosed
	c.once.Do(func() {
		err = c.stream.Close()
		if cerr := c.conn.CloseWithError(0, ""); err == nil {
			err = cerr
		}
	})
	return err
}

func (c *QUICConn) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *QUICConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *QUICConn) SetDeadline(t time.Time) error      { return c.stream.SetDeadline(t) }
func (c *QUICConn) SetReadDeadline(t time.Time) error  { return c.stream.SetReadDeadline(t) }
func (c *QUICConn) SetWriteDeadline(t time.Time) error { return c.stream.SetWriteDeadline(t) }

// QUICDialer connects to MQTT brokers over QUIC. The address is "host:port".
type QUICDialer struct {
	// TLSConfig is the TLS configuration. QUIC requires TLS 1.3; the MQTT
	// ALPN is added when NextProtos is empty.
	TLSConfig *tls.Config

	// QUICConfig is the QUIC configuration. Nil uses quic-go defaults.
	QUICConfig *quic.Config
}

// NewQUICDialer creates a QUIC dialer for the given TLS configuration.
func NewQUICDialer(tlsConfig *tls.Config) *QUICDialer {
	return &QUICDialer{TLSConfig: tlsConfig}
}

// Dial connects to the QUIC address and opens the MQTT stream.
func (d *QUICDialer) Dial(ctx context.Context, address string) (Conn, error) {
	tlsConfig := d.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS13}
	}
	if len(tlsConfig.NextProtos) == 0 {
		tlsConfig = tlsConfig.Clone()
		tlsConfig.NextProtos = []string{QUICALPN}
	}

	conn, err := quic.DialAddr(ctx, address, tlsConfig, d.QUICConfig)
	if err != nil {
		return nil, err
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "failed to open stream")
		return nil, err
	}

	return &QUICConn{conn: conn, stream: stream}, nil
}
