package minimqtt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var errKeepAliveTimeout = errors.New("no PINGRESP within the keep-alive interval")

// connReader records the first error returned by the connection, so read
// failures can be told apart from malformed packet bodies.
type connReader struct {
	r   io.Reader
	err error
}

func (cr *connReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if err != nil && cr.err == nil {
		cr.err = err
	}
	return n, err
}

// Poll waits up to timeout for one packet from the broker.
//
// It returns (nil, nil) when nothing arrived or the packet was a PINGRESP.
// An inbound PUBLISH is delivered to the matching topic handlers, or to the
// OnMessage callback when none match, acknowledged when it is QoS 1, and
// then returned. Any other packet is returned to the caller as is.
func (c *Client) Poll(timeout time.Duration) (Packet, error) {
	if !c.connected {
		return nil, ErrNotConnected
	}

	first, ok, err := c.readFirstByte(timeout)
	if err != nil || !ok {
		return nil, err
	}

	pkt, err := c.readRest(first)
	if err != nil {
		return nil, err
	}

	switch p := pkt.(type) {
	case *PingrespPacket:
		c.pingOutstanding = false
		return nil, nil
	case *PublishPacket:
		if err := c.handlePublish(p); err != nil {
			return nil, err
		}
	}

	return pkt, nil
}

// Loop sends a PINGREQ when the keep-alive interval has passed since the
// last outbound packet, then polls once. The connection is dropped when a
// PINGREQ stays unanswered for a whole interval.
func (c *Client) Loop(ctx context.Context, timeout time.Duration) (Packet, error) {
	if !c.connected {
		return nil, ErrNotConnected
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.keepAliveTick(time.Now()); err != nil {
		return nil, err
	}

	return c.Poll(timeout)
}

func (c *Client) keepAliveTick(now time.Time) error {
	if c.options.keepAlive == 0 {
		return nil
	}
	interval := time.Duration(c.options.keepAlive) * time.Second

	if c.pingOutstanding {
		if now.Sub(c.pingSentAt) > interval {
			return c.fail("keepalive", errKeepAliveTimeout)
		}
		return nil
	}

	if now.Sub(c.lastSend) < interval {
		return nil
	}

	if err := c.writePacket(&PingreqPacket{}); err != nil {
		return err
	}
	c.pingOutstanding = true
	c.pingSentAt = now
	return nil
}

// readFirstByte waits up to timeout for the first byte of the next packet.
// Reports false when the wait expired with nothing read.
func (c *Client) readFirstByte(timeout time.Duration) (byte, bool, error) {
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	var b [1]byte
	n, err := c.conn.Read(b[:])
	if n == 1 {
		return b[0], true, nil
	}
	if err == nil || isTimeout(err) {
		return 0, false, nil
	}

	return 0, false, c.fail("read", err)
}

// readRest reads the remainder of a packet under the read timeout.
//
// A connection failure, or a header that leaves the stream misaligned,
// drops the connection. A malformed body has been consumed in full, so the
// connection stays usable and the protocol error is returned.
func (c *Client) readRest(first byte) (Packet, error) {
	deadline := time.Time{}
	if c.options.readTimeout > 0 {
		deadline = time.Now().Add(c.options.readTimeout)
	}
	_ = c.conn.SetReadDeadline(deadline)

	cr := &connReader{r: c.conn}
	pkt, n, err := readPacketAfter(first, cr, 0)
	if cr.err != nil {
		return nil, c.fail("read", cr.err)
	}

	if err != nil {
		c.logger.Warn("invalid packet from broker", LogFields{LogFieldError: err})

		if errors.Is(err, ErrVarintMalformed) || errors.Is(err, ErrInvalidPacketType) {
			c.dropConnection()
			return nil, err
		}
		if errors.Is(err, ErrProtocol) || errors.Is(err, ErrUnsupportedFeature) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	c.metrics.packetReceived(pkt.Type())
	c.logger.Debug("packet received", LogFields{
		LogFieldPacketType: pkt.Type().String(),
		LogFieldBytes:      n + 1,
	})

	return pkt, nil
}

// nextFirstByte waits for the first byte of the next packet in chunks of the
// poll interval, checking ctx and the acknowledgment timeout between reads.
func (c *Client) nextFirstByte(ctx context.Context, start time.Time, want PacketType) (byte, error) {
	ackTimeout := c.options.ackTimeout

	for {
		if !c.connected {
			return 0, ErrNotConnected
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		wait := c.options.pollInterval
		if ackTimeout > 0 {
			left := ackTimeout - time.Since(start)
			if left <= 0 {
				return 0, fmt.Errorf("%w: no %s within %s", ErrAckTimeout, want, ackTimeout)
			}
			wait = min(wait, left)
		}

		first, ok, err := c.readFirstByte(wait)
		if err != nil {
			return 0, err
		}
		if ok {
			return first, nil
		}
	}
}

// waitFor blocks until the broker sends a packet of type want carrying id.
// Inbound publishes are dispatched while waiting; other packets are ignored.
func (c *Client) waitFor(ctx context.Context, want PacketType, id uint16) (Packet, error) {
	start := time.Now()

	for {
		first, err := c.nextFirstByte(ctx, start, want)
		if err != nil {
			return nil, err
		}

		pkt, err := c.readRest(first)
		if err != nil {
			return nil, err
		}

		switch p := pkt.(type) {
		case *PublishPacket:
			if err := c.handlePublish(p); err != nil {
				return nil, err
			}
			continue
		case *PingrespPacket:
			c.pingOutstanding = false
			continue
		}

		if withID, ok := pkt.(PacketWithID); ok && pkt.Type() == want && withID.GetPacketID() == id {
			c.metrics.ackLatency(want, time.Since(start))
			return pkt, nil
		}

		c.logger.Debug("ignoring packet while waiting for acknowledgment", LogFields{
			LogFieldPacketType: pkt.Type().String(),
			LogFieldPacketID:   id,
		})
	}
}

// handlePublish delivers an inbound message and acknowledges QoS 1.
// Handlers run before the PUBACK is written.
func (c *Client) handlePublish(p *PublishPacket) error {
	if p.QoS == 2 {
		c.logger.Warn("QoS 2 message rejected", LogFields{LogFieldTopic: p.Topic})
		return ErrQoS2NotSupported
	}

	c.metrics.messageReceived(p.QoS)
	c.logger.Debug("message received", LogFields{
		LogFieldTopic:    p.Topic,
		LogFieldQoS:      p.QoS,
		LogFieldPacketID: p.PacketID,
	})

	if msg := applyConsumerInterceptors(c.options.consumerInterceptors, p.ToMessage(), c.logger); msg != nil {
		c.dispatch(msg)
	}

	if p.QoS == 1 && c.connected {
		return c.writePacket(&PubackPacket{PacketID: p.PacketID})
	}

	return nil
}

func (c *Client) dispatch(msg *Message) {
	handlers := c.handlers.match(msg.Topic)
	if len(handlers) == 0 {
		if c.options.onMessage != nil {
			c.options.onMessage(c, msg)
		}
		return
	}

	for _, handler := range handlers {
		handler(c, msg)
	}
}
