package minimqtt

import (
	"context"
	"net"
)

// UnixDialer connects to MQTT brokers over Unix domain sockets.
// The address is the socket file path, for example "/var/run/mqtt.sock".
type UnixDialer struct{}

// Dial connects to the Unix socket at the given path.
func (d *UnixDialer) Dial(ctx context.Context, address string) (Conn, error) {
	var dialer net.Dialer
	return dialer.DialContext(ctx, "unix", address)
}
