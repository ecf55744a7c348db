package minimqtt

import (
	"fmt"
	"io"
)

// ErrInvalidAckLength is returned when an acknowledgment does not carry exactly a packet identifier.
var ErrInvalidAckLength = fmt.Errorf("%w: acknowledgment remaining length must be 2", ErrProtocol)

// encodeAck encodes an acknowledgment that carries only a packet identifier
// (PUBACK, UNSUBACK).
func encodeAck(w io.Writer, packetType PacketType, packetID uint16) (int, error) {
	return w.Write([]byte{byte(packetType) << 4, 0x02, byte(packetID >> 8), byte(packetID)})
}

// decodeAck decodes an acknowledgment that carries only a packet identifier.
func decodeAck(r io.Reader, header FixedHeader) (uint16, int, error) {
	if header.Flags != 0x00 {
		return 0, 0, ErrInvalidPacketFlags
	}
	if header.RemainingLength != 2 {
		return 0, 0, ErrInvalidAckLength
	}

	var idBuf [2]byte
	n, err := io.ReadFull(r, idBuf[:])
	if err != nil {
		return 0, n, err
	}

	return uint16(idBuf[0])<<8 | uint16(idBuf[1]), n, nil
}
