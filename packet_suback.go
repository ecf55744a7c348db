package minimqtt

import (
	"bytes"
	"fmt"
	"io"
)

// ErrInvalidSubackCode is returned for a granted byte outside {0, 1, 2, 0x80}.
var ErrInvalidSubackCode = fmt.Errorf("%w: invalid SUBACK return code", ErrProtocol)

// SubackPacket represents an MQTT SUBACK packet. ReturnCodes holds one
// granted byte per requested topic, in request order.
type SubackPacket struct {
	PacketID    uint16
	ReturnCodes []byte
}

// Type returns the packet type.
func (p *SubackPacket) Type() PacketType { return PacketSUBACK }

// GetPacketID returns the packet identifier.
func (p *SubackPacket) GetPacketID() uint16 { return p.PacketID }

// Encode writes the packet to the writer.
func (p *SubackPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	buf.Write([]byte{byte(p.PacketID >> 8), byte(p.PacketID)})
	buf.Write(p.ReturnCodes)

	header := FixedHeader{
		PacketType:      PacketSUBACK,
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
func (p *SubackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketSUBACK {
		return 0, ErrInvalidPacketType
	}
	if header.Flags != 0x00 {
		return 0, ErrInvalidPacketFlags
	}
	if header.RemainingLength < 3 {
		return 0, ErrTrailingPayload
	}

	buf := make([]byte, header.RemainingLength)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		return n, err
	}

	p.PacketID = uint16(buf[0])<<8 | uint16(buf[1])
	p.ReturnCodes = buf[2:]

	return n, p.Validate()
}

// Validate validates the packet contents.
func (p *SubackPacket) Validate() error {
	if p.PacketID == 0 {
		return ErrInvalidPacketID
	}

	for _, rc := range p.ReturnCodes {
		switch rc {
		case SubackMaxQoS0, SubackMaxQoS1, SubackMaxQoS2, SubackFailure:
		default:
			return ErrInvalidSubackCode
		}
	}

	return nil
}
