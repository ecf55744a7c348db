package minimqtt

import (
	"fmt"
	"io"
)

// ErrNonEmptyPacket is returned when a packet that has no body declares one.
var ErrNonEmptyPacket = fmt.Errorf("%w: remaining length must be 0", ErrProtocol)

// decodeEmpty checks the header of a packet that consists of the fixed header only.
func decodeEmpty(header FixedHeader, packetType PacketType) error {
	if header.PacketType != packetType {
		return ErrInvalidPacketType
	}
	if header.Flags != 0x00 {
		return ErrInvalidPacketFlags
	}
	if header.RemainingLength != 0 {
		return ErrNonEmptyPacket
	}
	return nil
}

// PingreqPacket represents an MQTT PINGREQ packet.
type PingreqPacket struct{}

// Type returns the packet type.
func (p *PingreqPacket) Type() PacketType { return PacketPINGREQ }

// Encode writes the packet to the writer.
func (p *PingreqPacket) Encode(w io.Writer) (int, error) {
	return w.Write([]byte{byte(PacketPINGREQ) << 4, 0x00})
}

// Decode reads the packet from the reader.
func (p *PingreqPacket) Decode(_ io.Reader, header FixedHeader) (int, error) {
	return 0, decodeEmpty(header, PacketPINGREQ)
}

// Validate validates the packet contents.
func (p *PingreqPacket) Validate() error {
	return nil
}

// PingrespPacket represents an MQTT PINGRESP packet.
type PingrespPacket struct{}

// Type returns the packet type.
func (p *PingrespPacket) Type() PacketType { return PacketPINGRESP }

// Encode writes the packet to the writer.
func (p *PingrespPacket) Encode(w io.Writer) (int, error) {
	return w.Write([]byte{byte(PacketPINGRESP) << 4, 0x00})
}

// Decode reads the packet from the reader.
func (p *PingrespPacket) Decode(_ io.Reader, header FixedHeader) (int, error) {
	return 0, decodeEmpty(header, PacketPINGRESP)
}

// Validate validates the packet contents.
func (p *PingrespPacket) Validate() error {
	return nil
}
