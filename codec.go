package minimqtt

import (
	"fmt"
	"io"
)

// Codec errors.
var (
	ErrPacketTooLarge    = fmt.Errorf("%w: packet exceeds maximum size", ErrProtocol)
	ErrUnknownPacketType = fmt.Errorf("%w: unknown packet type", ErrProtocol)
)

// ReadPacket reads a complete MQTT packet from the reader.
// If maxSize is greater than 0, packets larger than maxSize are discarded
// and ErrPacketTooLarge is returned.
func ReadPacket(r io.Reader, maxSize uint32) (Packet, int, error) {
	var first [1]byte
	n, err := io.ReadFull(r, first[:])
	if err != nil {
		return nil, n, err
	}

	packet, rn, err := readPacketAfter(first[0], r, maxSize)
	return packet, n + rn, err
}

// readPacketAfter reads the rest of a packet whose first byte was already consumed.
// The whole body is consumed even when the packet is rejected, so the stream
// stays aligned on the next packet boundary.
func readPacketAfter(first byte, r io.Reader, maxSize uint32) (Packet, int, error) {
	var header FixedHeader
	n, err := header.decodeAfterFirstByte(first, r)
	if err != nil {
		return nil, n, err
	}

	if maxSize > 0 && header.RemainingLength > maxSize {
		dn, err := io.CopyN(io.Discard, r, int64(header.RemainingLength))
		n += int(dn)
		if err != nil {
			return nil, n, err
		}
		return nil, n, ErrPacketTooLarge
	}

	remaining := make([]byte, header.RemainingLength)
	if header.RemainingLength > 0 {
		rn, err := io.ReadFull(r, remaining)
		n += rn
		if err != nil {
			return nil, n, err
		}
	}

	if err := header.ValidateFlags(); err != nil {
		return nil, n, err
	}

	var packet Packet
	switch header.PacketType {
	case PacketCONNECT:
		packet = &ConnectPacket{}
	case PacketCONNACK:
		packet = &ConnackPacket{}
	case PacketPUBLISH:
		packet = &PublishPacket{}
	case PacketPUBACK:
		packet = &PubackPacket{}
	case PacketPUBREC, PacketPUBREL, PacketPUBCOMP:
		return nil, n, ErrQoS2NotSupported
	case PacketSUBSCRIBE:
		packet = &SubscribePacket{}
	case PacketSUBACK:
		packet = &SubackPacket{}
	case PacketUNSUBSCRIBE:
		packet = &UnsubscribePacket{}
	case PacketUNSUBACK:
		packet = &UnsubackPacket{}
	case PacketPINGREQ:
		packet = &PingreqPacket{}
	case PacketPINGRESP:
		packet = &PingrespPacket{}
	case PacketDISCONNECT:
		packet = &DisconnectPacket{}
	default:
		return nil, n, ErrUnknownPacketType
	}

	reader := getBytesReader(remaining)
	defer putBytesReader(reader)
	if _, err := packet.Decode(reader, header); err != nil {
		return nil, n, err
	}

	return packet, n, nil
}

// WritePacket writes a complete MQTT packet to the writer.
// If maxSize is greater than 0, packets larger than maxSize return ErrPacketTooLarge.
func WritePacket(w io.Writer, packet Packet, maxSize uint32) (int, error) {
	if err := packet.Validate(); err != nil {
		return 0, err
	}

	if maxSize > 0 {
		var buf bytesBuffer
		n, err := packet.Encode(&buf)
		if err != nil {
			return 0, err
		}
		if uint32(n) > maxSize {
			return 0, ErrPacketTooLarge
		}
		return w.Write(buf.Bytes())
	}

	return packet.Encode(w)
}

// bytesReader wraps a byte slice for io.Reader interface.
type bytesReader struct {
	data []byte
	pos  int
}

func (r *bytesReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// bytesBuffer is a simple buffer for encoding.
type bytesBuffer struct {
	data []byte
}

func (b *bytesBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *bytesBuffer) Bytes() []byte {
	return b.data
}
