package minimqtt

import "fmt"

// Will represents an MQTT Last Will and Testament message, published by the
// broker when the client disconnects without sending DISCONNECT.
type Will struct {
	// Topic is the will topic.
	Topic string

	// Payload is the will payload.
	Payload []byte

	// QoS is the quality of service level (0, 1, or 2).
	QoS byte

	// Retain indicates if the will message should be retained.
	Retain bool
}

// Validate checks the will topic, QoS and payload size.
func (w *Will) Validate() error {
	if err := ValidateTopicName(w.Topic); err != nil {
		return fmt.Errorf("will: %w", err)
	}

	if w.QoS > 2 {
		return fmt.Errorf("will: %w", ErrInvalidQoS)
	}

	if len(w.Payload) > maxUint16 {
		return fmt.Errorf("will: %w", ErrBinaryTooLong)
	}

	return nil
}

// apply copies the will into a CONNECT packet.
func (w *Will) apply(pkt *ConnectPacket) {
	if w == nil {
		return
	}

	pkt.WillFlag = true
	pkt.WillTopic = w.Topic
	pkt.WillPayload = w.Payload
	pkt.WillQoS = w.QoS
	pkt.WillRetain = w.Retain
}

// ToMessage converts a Will to a Message.
func (w *Will) ToMessage() *Message {
	return &Message{
		Topic:   w.Topic,
		Payload: w.Payload,
		QoS:     w.QoS,
		Retain:  w.Retain,
	}
}
