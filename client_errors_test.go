package minimqtt

import (
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCategories(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category error
	}{
		{"not connected", ErrNotConnected, ErrState},
		{"already connected", ErrAlreadyConnected, ErrState},
		{"not subscribed", ErrNotSubscribed, ErrState},
		{"will while online", ErrWillWhileOnline, ErrState},
		{"invalid qos", ErrInvalidQoS, ErrConfiguration},
		{"payload too large", ErrPayloadTooLarge, ErrConfiguration},
		{"client id length", ErrClientIDLength, ErrConfiguration},
		{"password without username", ErrPasswordNoUsername, ErrConfiguration},
		{"no topics", ErrNoTopics, ErrConfiguration},
		{"invalid topic name", ErrInvalidTopicName, ErrConfiguration},
		{"invalid topic filter", ErrInvalidTopicFilter, ErrConfiguration},
		{"qos 2", ErrQoS2NotSupported, ErrUnsupportedFeature},
		{"unknown packet type", ErrUnknownPacketType, ErrProtocol},
		{"invalid suback code", ErrInvalidSubackCode, ErrProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.category)
		})
	}

	categories := []error{ErrConfiguration, ErrState, ErrProtocol, ErrUnsupportedFeature, ErrTransport, ErrAckTimeout}
	for i, a := range categories {
		for _, b := range categories[i+1:] {
			assert.NotErrorIs(t, a, b)
		}
	}
}

func TestNotSubscribedMessage(t *testing.T) {
	assert.Equal(t, "state error: topic must be subscribed to before attempting to unsubscribe", ErrNotSubscribed.Error())
}

func TestConnectError(t *testing.T) {
	err := NewConnectError(RefusedBadUsernamePassword)

	assert.Equal(t, "Connection Refused - Incorrect username/password", err.Error())
	assert.ErrorIs(t, err, ErrProtocol)

	var connErr *ConnectError
	assert.True(t, errors.As(error(err), &connErr))
	assert.Equal(t, RefusedBadUsernamePassword, connErr.ReturnCode)
}

func TestSubscribeError(t *testing.T) {
	err := NewSubscribeError("private/#", SubackFailure)

	assert.Equal(t, `SUBACK failure for topic "private/#"`, err.Error())
	assert.ErrorIs(t, err, ErrProtocol)
	assert.Equal(t, SubackFailure, err.Granted)
}

func TestPayloadTypeError(t *testing.T) {
	err := &PayloadTypeError{Type: reflect.TypeOf(map[string]int{})}

	assert.Equal(t, "invalid message data type: map[string]int", err.Error())
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestTransportError(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		err := NewTransportError("read", io.EOF)

		assert.Equal(t, "read: EOF", err.Error())
		assert.ErrorIs(t, err, ErrTransport)
		assert.ErrorIs(t, err, io.EOF)
		assert.NotErrorIs(t, err, ErrProtocol)
	})

	t.Run("without cause", func(t *testing.T) {
		err := NewTransportError("write", nil)

		assert.Equal(t, "write: transport failure", err.Error())
		assert.ErrorIs(t, err, ErrTransport)
	})
}
