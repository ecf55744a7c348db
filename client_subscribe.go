package minimqtt

import (
	"context"
	"fmt"
)

// SubscribeTopic subscribes to a single topic filter.
func (c *Client) SubscribeTopic(ctx context.Context, topic string, qos byte) error {
	return c.Subscribe(ctx, Subscription{Topic: topic, QoS: qos})
}

// Subscribe sends one SUBSCRIBE for all subs and waits for its SUBACK.
//
// Granted topics are recorded and reported through OnSubscribe, in request
// order. When the broker refuses a topic, the other topics are still
// recorded and a *SubscribeError for the first refused topic is returned.
func (c *Client) Subscribe(ctx context.Context, subs ...Subscription) error {
	if !c.connected {
		return ErrNotConnected
	}

	if len(subs) == 0 {
		return ErrNoTopics
	}

	for _, sub := range subs {
		if err := ValidateTopicFilter(sub.Topic); err != nil {
			return err
		}
		if sub.QoS > 2 {
			return fmt.Errorf("%w: %d for %q", ErrInvalidQoS, sub.QoS, sub.Topic)
		}
	}

	id, err := c.ids.Allocate()
	if err != nil {
		return err
	}
	defer func() { _ = c.ids.Release(id) }()

	if err := c.writePacket(&SubscribePacket{PacketID: id, Subscriptions: subs}); err != nil {
		return err
	}

	resp, err := c.waitFor(ctx, PacketSUBACK, id)
	if err != nil {
		return err
	}

	suback := resp.(*SubackPacket)
	if len(suback.ReturnCodes) != len(subs) {
		return fmt.Errorf("%w: SUBACK has %d return codes for %d topics",
			ErrProtocol, len(suback.ReturnCodes), len(subs))
	}

	var refused error
	for i, sub := range subs {
		granted := suback.ReturnCodes[i]
		if granted == SubackFailure {
			c.logger.Warn("subscription refused", LogFields{LogFieldTopic: sub.Topic})
			if refused == nil {
				refused = NewSubscribeError(sub.Topic, granted)
			}
			continue
		}

		c.subs.add(sub)
		c.metrics.subscriptions(c.subs.len())
		c.saveSubscription(sub)

		c.logger.Info("subscribed", LogFields{LogFieldTopic: sub.Topic, LogFieldQoS: granted})

		if c.options.onSubscribe != nil {
			c.options.onSubscribe(c, sub.Topic, granted)
		}
	}

	return refused
}

// Unsubscribe removes subscriptions. Every topic must have been subscribed
// through this client; otherwise ErrNotSubscribed is returned and nothing
// is sent.
func (c *Client) Unsubscribe(ctx context.Context, topics ...string) error {
	if !c.connected {
		return ErrNotConnected
	}

	if len(topics) == 0 {
		return ErrNoTopics
	}

	for _, topic := range topics {
		if !c.subs.has(topic) {
			return fmt.Errorf("%w: %q", ErrNotSubscribed, topic)
		}
	}

	id, err := c.ids.Allocate()
	if err != nil {
		return err
	}
	defer func() { _ = c.ids.Release(id) }()

	if err := c.writePacket(&UnsubscribePacket{PacketID: id, Topics: topics}); err != nil {
		return err
	}

	if _, err := c.waitFor(ctx, PacketUNSUBACK, id); err != nil {
		return err
	}

	for _, topic := range topics {
		c.subs.remove(topic)
		c.metrics.subscriptions(c.subs.len())
		if store := c.options.sessionStore; store != nil {
			if err := store.DeleteSubscription(c.clientID, topic); err != nil {
				c.logger.Error("failed to delete subscription", LogFields{LogFieldTopic: topic, LogFieldError: err})
			}
		}

		c.logger.Info("unsubscribed", LogFields{LogFieldTopic: topic})

		if c.options.onUnsubscribe != nil {
			c.options.onUnsubscribe(c, topic)
		}
	}

	return nil
}

func (c *Client) saveSubscription(sub Subscription) {
	store := c.options.sessionStore
	if store == nil {
		return
	}

	if err := store.SaveSubscription(c.clientID, sub); err != nil {
		c.logger.Error("failed to save subscription", LogFields{LogFieldTopic: sub.Topic, LogFieldError: err})
	}
}
