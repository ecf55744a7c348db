package minimqtt

import (
	"context"
	"encoding"
	"fmt"
	"reflect"
	"strconv"
)

// Publish sends an application message.
//
// payload may be a []byte, a string, any integer or float type (sent as its
// decimal text), an encoding.TextMarshaler or a fmt.Stringer. QoS 0 returns
// right after the write. QoS 1 blocks until the broker's PUBACK for this
// message arrives, dispatching inbound messages meanwhile. QoS 2 is not
// supported.
func (c *Client) Publish(ctx context.Context, topic string, payload any, qos byte, retain bool) error {
	if !c.connected {
		return ErrNotConnected
	}

	if err := ValidateTopicName(topic); err != nil {
		return err
	}

	data, err := payloadBytes(payload)
	if err != nil {
		return err
	}

	if len(data) > c.options.maxPayloadSize {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(data), c.options.maxPayloadSize)
	}

	if err := checkPublishQoS(qos); err != nil {
		return err
	}

	msg := &Message{Topic: topic, Payload: data, QoS: qos, Retain: retain}
	if len(c.options.producerInterceptors) > 0 {
		msg = applyProducerInterceptors(c.options.producerInterceptors, msg, c.logger)
		if msg == nil {
			c.logger.Debug("publish dropped by interceptor", LogFields{LogFieldTopic: topic})
			return nil
		}
		if err := ValidateTopicName(msg.Topic); err != nil {
			return err
		}
		if err := checkPublishQoS(msg.QoS); err != nil {
			return err
		}
	}

	pkt := &PublishPacket{
		Topic:   msg.Topic,
		Payload: msg.Payload,
		QoS:     msg.QoS,
		Retain:  msg.Retain,
	}

	if pkt.QoS == 0 {
		if err := c.writePacket(pkt); err != nil {
			return err
		}
		c.published(pkt, 0)
		return nil
	}

	id, err := c.ids.Allocate()
	if err != nil {
		return err
	}
	defer func() { _ = c.ids.Release(id) }()
	pkt.PacketID = id

	if err := c.writePacket(pkt); err != nil {
		return err
	}

	if _, err := c.waitFor(ctx, PacketPUBACK, id); err != nil {
		return err
	}

	c.published(pkt, id)
	return nil
}

func checkPublishQoS(qos byte) error {
	switch {
	case qos == 2:
		return ErrQoS2NotSupported
	case qos > 2:
		return ErrInvalidQoS
	}
	return nil
}

func (c *Client) published(pkt *PublishPacket, id uint16) {
	c.metrics.published(pkt.QoS)
	c.logger.Debug("published", LogFields{
		LogFieldTopic:    pkt.Topic,
		LogFieldQoS:      pkt.QoS,
		LogFieldPacketID: id,
	})

	if c.options.onPublish != nil {
		c.options.onPublish(c, id)
	}
}

// payloadBytes converts a publish payload to its wire bytes.
func payloadBytes(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case int:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int8:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int16:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int64:
		return strconv.AppendInt(nil, v, 10), nil
	case uint:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint8:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint16:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint64:
		return strconv.AppendUint(nil, v, 10), nil
	case float32:
		return strconv.AppendFloat(nil, float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
	case encoding.TextMarshaler:
		text, err := v.MarshalText()
		if err != nil {
			return nil, fmt.Errorf("%w: marshal payload: %w", ErrConfiguration, err)
		}
		return text, nil
	case fmt.Stringer:
		return []byte(v.String()), nil
	}

	return nil, &PayloadTypeError{Type: reflect.TypeOf(payload)}
}
