package minimqtt

import (
	"errors"
	"fmt"
	"reflect"
)

// Error categories - check with errors.Is().
var (
	// ErrConfiguration is returned for invalid topics, QoS levels, payloads,
	// credentials or client identifiers. It is detected before any I/O.
	ErrConfiguration = errors.New("configuration error")

	// ErrState is returned when an operation is not allowed in the current
	// connection state, or when unsubscribing from a topic that was never subscribed.
	ErrState = errors.New("state error")

	// ErrProtocol is returned when the broker sends a malformed or unexpected response.
	ErrProtocol = errors.New("protocol error")

	// ErrUnsupportedFeature is returned for QoS 2 publishes, outbound or inbound.
	ErrUnsupportedFeature = errors.New("unsupported feature")

	// ErrTransport is returned when the underlying connection fails.
	ErrTransport = errors.New("transport error")

	// ErrAckTimeout is returned when an acknowledgment does not arrive within
	// the configured acknowledgment timeout.
	ErrAckTimeout = errors.New("acknowledgment timeout")
)

// State errors.
var (
	ErrNotConnected     = fmt.Errorf("%w: not connected", ErrState)
	ErrAlreadyConnected = fmt.Errorf("%w: already connected", ErrState)
	ErrNotSubscribed    = fmt.Errorf("%w: topic must be subscribed to before attempting to unsubscribe", ErrState)
	ErrWillWhileOnline  = fmt.Errorf("%w: last will must be set before connect", ErrState)
)

// Configuration errors.
var (
	ErrInvalidQoS         = fmt.Errorf("%w: invalid QoS level", ErrConfiguration)
	ErrPayloadTooLarge    = fmt.Errorf("%w: payload exceeds maximum size", ErrConfiguration)
	ErrClientIDLength     = fmt.Errorf("%w: client ID must be between 1 and 23 bytes", ErrConfiguration)
	ErrPasswordNoUsername = fmt.Errorf("%w: password requires a username", ErrConfiguration)
	ErrNoTopics           = fmt.Errorf("%w: at least one topic is required", ErrConfiguration)
)

// ErrQoS2NotSupported is returned when QoS 2 is requested for a publish or
// received on an inbound publish.
var ErrQoS2NotSupported = fmt.Errorf("%w: QoS 2 publish is not supported", ErrUnsupportedFeature)

// ConnectError contains the return code of a refused connection.
// Extract with errors.As().
type ConnectError struct {
	err        error
	ReturnCode ReturnCode
}

func (e *ConnectError) Error() string { return e.ReturnCode.String() }
func (e *ConnectError) Unwrap() error { return e.err }

// NewConnectError creates a new ConnectError from a CONNACK return code.
func NewConnectError(code ReturnCode) *ConnectError {
	return &ConnectError{
		err:        ErrProtocol,
		ReturnCode: code,
	}
}

// SubscribeError contains details about a topic the broker refused.
// Extract with errors.As().
type SubscribeError struct {
	err     error
	Topic   string
	Granted byte
}

func (e *SubscribeError) Error() string {
	return fmt.Sprintf("SUBACK failure for topic %q", e.Topic)
}

func (e *SubscribeError) Unwrap() error { return e.err }

// NewSubscribeError creates a new SubscribeError.
func NewSubscribeError(topic string, granted byte) *SubscribeError {
	return &SubscribeError{
		err:     ErrProtocol,
		Topic:   topic,
		Granted: granted,
	}
}

// PayloadTypeError is returned when a publish payload cannot be converted to bytes.
// Extract with errors.As().
type PayloadTypeError struct {
	Type reflect.Type
}

func (e *PayloadTypeError) Error() string {
	if e.Type == nil {
		return "invalid message data type: <nil>"
	}
	return "invalid message data type: " + e.Type.String()
}

func (e *PayloadTypeError) Unwrap() error { return ErrConfiguration }

// TransportError wraps a failure of the underlying connection.
// Extract with errors.As().
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return e.Op + ": " + e.Cause.Error()
	}
	return e.Op + ": transport failure"
}

// Unwrap exposes both the category and the cause, so errors.Is works with
// ErrTransport as well as with net or io errors.
func (e *TransportError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Cause}
}

// NewTransportError creates a new TransportError.
func NewTransportError(op string, cause error) *TransportError {
	return &TransportError{Op: op, Cause: cause}
}
