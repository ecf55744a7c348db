package minimqtt

import (
	"bytes"
	"fmt"
	"io"
)

// SUBSCRIBE and UNSUBSCRIBE carry reserved flags 0010.
const subscribeFlags byte = 0x02

// SUBSCRIBE packet errors.
var (
	ErrEmptySubscribe  = fmt.Errorf("%w: SUBSCRIBE must carry at least one topic filter", ErrProtocol)
	ErrInvalidPacketID = fmt.Errorf("%w: invalid packet identifier", ErrProtocol)
	ErrTrailingPayload = fmt.Errorf("%w: packet length does not match contents", ErrProtocol)
)

// Subscription is a topic filter and the maximum QoS requested for it.
type Subscription struct {
	Topic string
	QoS   byte
}

// SubscribePacket represents an MQTT SUBSCRIBE packet.
type SubscribePacket struct {
	PacketID      uint16
	Subscriptions []Subscription
}

// Type returns the packet type.
func (p *SubscribePacket) Type() PacketType { return PacketSUBSCRIBE }

// GetPacketID returns the packet identifier.
func (p *SubscribePacket) GetPacketID() uint16 { return p.PacketID }

// Encode writes the packet to the writer.
// Remaining length is 2 + sum of (2 + len(topic) + 1) over all subscriptions.
func (p *SubscribePacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	var buf bytes.Buffer

	buf.Write([]byte{byte(p.PacketID >> 8), byte(p.PacketID)})

	for _, sub := range p.Subscriptions {
		if _, err := encodeString(&buf, sub.Topic); err != nil {
			return 0, err
		}
		buf.WriteByte(sub.QoS)
	}

	header := FixedHeader{
		PacketType:      PacketSUBSCRIBE,
		Flags:           subscribeFlags,
		RemainingLength: uint32(buf.Len()),
	}

	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}

	n, err := w.Write(buf.Bytes())
	return total + n, err
}

// Decode reads the packet from the reader.
func (p *SubscribePacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketSUBSCRIBE {
		return 0, ErrInvalidPacketType
	}
	if header.Flags != subscribeFlags {
		return 0, ErrInvalidPacketFlags
	}

	var totalRead int

	var idBuf [2]byte
	n, err := io.ReadFull(r, idBuf[:])
	totalRead += n
	if err != nil {
		return totalRead, err
	}
	p.PacketID = uint16(idBuf[0])<<8 | uint16(idBuf[1])

	p.Subscriptions = nil
	for totalRead < int(header.RemainingLength) {
		var sub Subscription

		sub.Topic, n, err = decodeString(r)
		totalRead += n
		if err != nil {
			return totalRead, err
		}

		var qosBuf [1]byte
		n, err = io.ReadFull(r, qosBuf[:])
		totalRead += n
		if err != nil {
			return totalRead, err
		}
		sub.QoS = qosBuf[0]

		p.Subscriptions = append(p.Subscriptions, sub)
	}

	if totalRead != int(header.RemainingLength) {
		return totalRead, ErrTrailingPayload
	}

	if len(p.Subscriptions) == 0 {
		return totalRead, ErrEmptySubscribe
	}

	return totalRead, nil
}

// Validate validates the packet contents.
func (p *SubscribePacket) Validate() error {
	if p.PacketID == 0 {
		return ErrInvalidPacketID
	}

	if len(p.Subscriptions) == 0 {
		return ErrNoTopics
	}

	for _, sub := range p.Subscriptions {
		if sub.QoS > 2 {
			return ErrInvalidQoS
		}
		if err := ValidateTopicFilter(sub.Topic); err != nil {
			return err
		}
	}

	return nil
}
