package minimqtt

import (
	"fmt"
	"io"
)

// CONNACK packet errors.
var (
	ErrInvalidConnackFlags  = fmt.Errorf("%w: invalid CONNACK flags", ErrProtocol)
	ErrInvalidConnackLength = fmt.Errorf("%w: CONNACK remaining length must be 2", ErrProtocol)
)

// ConnackPacket represents an MQTT CONNACK packet.
type ConnackPacket struct {
	// SessionPresent indicates the broker resumed a previous session.
	SessionPresent bool

	// ReturnCode is the connection result.
	ReturnCode ReturnCode
}

// Type returns the packet type.
func (p *ConnackPacket) Type() PacketType {
	return PacketCONNACK
}

// Encode writes the packet to the writer.
func (p *ConnackPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	var flags byte
	if p.SessionPresent {
		flags = 0x01
	}

	return w.Write([]byte{byte(PacketCONNACK) << 4, 0x02, flags, byte(p.ReturnCode)})
}

// Decode reads the packet from the reader.
func (p *ConnackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketCONNACK {
		return 0, ErrInvalidPacketType
	}
	if header.RemainingLength != 2 {
		return 0, ErrInvalidConnackLength
	}

	var buf [2]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		return n, err
	}

	// Reserved bits must be 0
	if buf[0]&0xFE != 0 {
		return n, ErrInvalidConnackFlags
	}

	p.SessionPresent = buf[0]&0x01 != 0
	p.ReturnCode = ReturnCode(buf[1])

	return n, nil
}

// Validate validates the packet contents.
func (p *ConnackPacket) Validate() error {
	// A refused connection never has a session
	if !p.ReturnCode.Accepted() && p.SessionPresent {
		return ErrInvalidConnackFlags
	}
	return nil
}
