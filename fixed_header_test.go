package minimqtt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketTypeString(t *testing.T) {
	assert.Equal(t, "CONNECT", PacketCONNECT.String())
	assert.Equal(t, "UNSUBACK", PacketUNSUBACK.String())
	assert.Equal(t, "UNKNOWN", PacketType(0).String())
	assert.Equal(t, "UNKNOWN", PacketType(15).String())
}

func TestPacketTypeValid(t *testing.T) {
	for pt := PacketCONNECT; pt <= PacketDISCONNECT; pt++ {
		assert.True(t, pt.Valid(), pt.String())
	}
	assert.False(t, PacketType(0).Valid())
	assert.False(t, PacketType(15).Valid())
}

func TestFixedHeaderEncode(t *testing.T) {
	tests := []struct {
		name     string
		header   FixedHeader
		expected []byte
	}{
		{
			name:     "pingreq",
			header:   FixedHeader{PacketType: PacketPINGREQ},
			expected: []byte{0xC0, 0x00},
		},
		{
			name:     "subscribe flags",
			header:   FixedHeader{PacketType: PacketSUBSCRIBE, Flags: 0x02, RemainingLength: 10},
			expected: []byte{0x82, 0x0A},
		},
		{
			name:     "publish two byte length",
			header:   FixedHeader{PacketType: PacketPUBLISH, Flags: 0x03, RemainingLength: 321},
			expected: []byte{0x33, 0xC1, 0x02},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := tt.header.Encode(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf.Bytes())
			assert.Equal(t, tt.header.Size(), n)

			var decoded FixedHeader
			_, err = decoded.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.header, decoded)
		})
	}
}

func TestFixedHeaderEncodeErrors(t *testing.T) {
	var buf bytes.Buffer

	h := FixedHeader{PacketType: PacketType(0)}
	_, err := h.Encode(&buf)
	assert.ErrorIs(t, err, ErrInvalidPacketType)

	h = FixedHeader{PacketType: PacketPUBLISH, RemainingLength: maxVarint + 1}
	_, err = h.Encode(&buf)
	assert.ErrorIs(t, err, ErrVarintTooLarge)
	assert.Zero(t, buf.Len())
}

func TestFixedHeaderDecodeInvalidType(t *testing.T) {
	var h FixedHeader
	_, err := h.Decode(bytes.NewReader([]byte{0xF0, 0x00}))
	assert.ErrorIs(t, err, ErrInvalidPacketType)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestFixedHeaderValidateFlags(t *testing.T) {
	tests := []struct {
		name    string
		header  FixedHeader
		wantErr bool
	}{
		{"publish qos 1 retain", FixedHeader{PacketType: PacketPUBLISH, Flags: 0x03}, false},
		{"publish qos 3", FixedHeader{PacketType: PacketPUBLISH, Flags: 0x06}, true},
		{"subscribe 0x02", FixedHeader{PacketType: PacketSUBSCRIBE, Flags: 0x02}, false},
		{"subscribe 0x00", FixedHeader{PacketType: PacketSUBSCRIBE}, true},
		{"unsubscribe 0x02", FixedHeader{PacketType: PacketUNSUBSCRIBE, Flags: 0x02}, false},
		{"connack 0x00", FixedHeader{PacketType: PacketCONNACK}, false},
		{"connack 0x01", FixedHeader{PacketType: PacketCONNACK, Flags: 0x01}, true},
		{"pingresp 0x08", FixedHeader{PacketType: PacketPINGRESP, Flags: 0x08}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.header.ValidateFlags()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFixedHeaderPublishFlags(t *testing.T) {
	h := FixedHeader{PacketType: PacketPUBLISH, Flags: 0x0B}
	assert.True(t, h.DUP())
	assert.Equal(t, byte(1), h.QoS())
	assert.True(t, h.Retain())

	h.Flags = 0x00
	assert.False(t, h.DUP())
	assert.Zero(t, h.QoS())
	assert.False(t, h.Retain())
}
