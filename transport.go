package minimqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"os"
	"time"
)

// Conn is the byte stream to the broker. Read deadlines are used as the
// poll timeout, so a read that times out must leave the stream usable.
type Conn interface {
	net.Conn
}

// Dialer establishes connections to a broker.
type Dialer interface {
	// Dial connects to the address with the given context.
	Dial(ctx context.Context, address string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, address string) (Conn, error)

// Dial calls f(ctx, address).
func (f DialerFunc) Dial(ctx context.Context, address string) (Conn, error) {
	return f(ctx, address)
}

// TCPDialer connects to MQTT brokers over TCP.
type TCPDialer struct {
	// Timeout is the maximum time to wait for a connection.
	// Zero means no timeout.
	Timeout time.Duration
}

// Dial connects to the address.
func (d *TCPDialer) Dial(ctx context.Context, address string) (Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	return dialer.DialContext(ctx, "tcp", address)
}

// TLSDialer connects to MQTT brokers over TLS.
type TLSDialer struct {
	// Config is the TLS configuration. Nil uses a TLS 1.2 minimum.
	Config *tls.Config

	// Timeout is the maximum time to wait for a connection.
	// Zero means no timeout.
	Timeout time.Duration
}

// Dial connects to the address.
func (d *TLSDialer) Dial(ctx context.Context, address string) (Conn, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: d.Timeout},
		Config:    tlsConfigOrDefault(d.Config),
	}
	return dialer.DialContext(ctx, "tcp", address)
}

func tlsConfigOrDefault(config *tls.Config) *tls.Config {
	if config != nil {
		return config
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// isTimeout reports whether err is a read or write deadline expiry.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
