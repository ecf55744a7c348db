package minimqtt

import (
	"context"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const brokerTimeout = 5 * time.Second

// fakeBroker is the broker end of an in-memory connection. Scripts run on
// their own goroutine because net.Pipe writes block until the peer reads.
type fakeBroker struct {
	t      *testing.T
	conn   net.Conn
	result chan error
}

// newTestClient returns a client whose dialer hands out one end of a pipe,
// and the fake broker holding the other end.
func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeBroker) {
	t.Helper()

	clientConn, serverConn := net.Pipe()
	broker := &fakeBroker{t: t, conn: serverConn}

	dialer := DialerFunc(func(context.Context, string) (Conn, error) {
		return clientConn, nil
	})

	base := []Option{
		WithDialer(dialer),
		WithClientID("c1"),
		WithPollInterval(10 * time.Millisecond),
		WithConnectTimeout(brokerTimeout),
	}
	c, err := New("broker.test", append(base, opts...)...)
	require.NoError(t, err)

	t.Cleanup(func() {
		serverConn.Close()
		_ = c.Close()
	})

	return c, broker
}

// connectTestClient connects c through the broker with a clean session.
func connectTestClient(t *testing.T, c *Client, b *fakeBroker) {
	t.Helper()

	b.run(func() error {
		return b.acceptConnect(false, ConnectionAccepted)
	})

	_, err := c.Connect(context.Background(), true)
	require.NoError(t, err)
	b.wait()
}

func (b *fakeBroker) run(script func() error) {
	b.result = make(chan error, 1)
	go func() {
		b.result <- script()
	}()
}

func (b *fakeBroker) wait() {
	b.t.Helper()

	select {
	case err := <-b.result:
		require.NoError(b.t, err)
	case <-time.After(brokerTimeout):
		b.t.Fatal("broker script did not finish")
	}
}

func (b *fakeBroker) read() (Packet, error) {
	_ = b.conn.SetReadDeadline(time.Now().Add(brokerTimeout))
	pkt, _, err := ReadPacket(b.conn, 0)
	return pkt, err
}

func (b *fakeBroker) readRaw(n int) ([]byte, error) {
	_ = b.conn.SetReadDeadline(time.Now().Add(brokerTimeout))
	buf := make([]byte, n)
	_, err := io.ReadFull(b.conn, buf)
	return buf, err
}

func (b *fakeBroker) expect(want PacketType) (Packet, error) {
	pkt, err := b.read()
	if err != nil {
		return nil, err
	}
	if pkt.Type() != want {
		return nil, fmt.Errorf("expected %s, got %s", want, pkt.Type())
	}
	return pkt, nil
}

func (b *fakeBroker) write(data ...byte) error {
	_ = b.conn.SetWriteDeadline(time.Now().Add(brokerTimeout))
	_, err := b.conn.Write(data)
	return err
}

func (b *fakeBroker) send(pkt Packet) error {
	var buf bytesBuffer
	if _, err := pkt.Encode(&buf); err != nil {
		return err
	}
	return b.write(buf.Bytes()...)
}

func (b *fakeBroker) acceptConnect(sessionPresent bool, code ReturnCode) error {
	if _, err := b.expect(PacketCONNECT); err != nil {
		return err
	}

	var flags byte
	if sessionPresent {
		flags = 0x01
	}
	return b.write(0x20, 0x02, flags, byte(code))
}

// assertSilent checks that the client wrote nothing.
func (b *fakeBroker) assertSilent() {
	b.t.Helper()

	_ = b.conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	n, err := b.conn.Read(make([]byte, 1))
	require.Zero(b.t, n, "unexpected write from client")
	require.True(b.t, isTimeout(err), "unexpected error: %v", err)
}
