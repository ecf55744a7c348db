package minimqtt

import (
	"io"
	"strings"
)

// Packet is the interface that all MQTT control packets implement.
type Packet interface {
	// Type returns the packet type.
	Type() PacketType

	// Encode writes the packet to the writer.
	// Returns the number of bytes written.
	Encode(w io.Writer) (int, error)

	// Decode reads the packet from the reader.
	// The fixed header should already be decoded.
	// Returns the number of bytes read.
	Decode(r io.Reader, header FixedHeader) (int, error)

	// Validate validates the packet contents.
	Validate() error
}

// PacketWithID is implemented by packets that carry a packet identifier.
type PacketWithID interface {
	Packet

	// GetPacketID returns the packet identifier.
	GetPacketID() uint16
}

// Message represents an application message received from the broker.
type Message struct {
	// Topic is the topic name the message was published to.
	Topic string

	// Payload is the application message payload.
	Payload []byte

	// QoS is the Quality of Service level the message was delivered with.
	QoS byte

	// Retain indicates if this is a retained message.
	Retain bool

	// Duplicate indicates the broker is redelivering the message.
	Duplicate bool

	// PacketID is the packet identifier for QoS 1 deliveries.
	PacketID uint16
}

// Text returns the payload as UTF-8 text. Invalid sequences are replaced
// with the Unicode replacement character.
func (m *Message) Text() string {
	return strings.ToValidUTF8(string(m.Payload), "\uFFFD")
}

// Clone creates a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}

	clone := *m
	if m.Payload != nil {
		clone.Payload = make([]byte, len(m.Payload))
		copy(clone.Payload, m.Payload)
	}

	return &clone
}
