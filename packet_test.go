package minimqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageClone(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		var m *Message
		assert.Nil(t, m.Clone())
	})

	t.Run("deep copy", func(t *testing.T) {
		original := &Message{
			Topic:    "a/b",
			Payload:  []byte("data"),
			QoS:      1,
			Retain:   true,
			PacketID: 9,
		}

		clone := original.Clone()
		assert.Equal(t, original, clone)

		clone.Payload[0] = 'X'
		assert.Equal(t, []byte("data"), original.Payload)
	})
}

func TestMessageText(t *testing.T) {
	assert.Equal(t, "hello", (&Message{Payload: []byte("hello")}).Text())
	assert.Equal(t, "a�b", (&Message{Payload: []byte{'a', 0xFF, 'b'}}).Text())
	assert.Empty(t, (&Message{}).Text())
}
