package minimqtt

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// Reconnect connects with a persistent session, retrying transport failures
// with a fixed backoff until it succeeds or ctx is done. maxAttempts only
// bounds the attempt counter reported in logs and metrics; the counter wraps
// to zero when it reaches maxAttempts. Errors other than transport failures,
// such as a refused connection, are returned immediately.
//
// With resubscribe set, every recorded subscription is subscribed again with
// its recorded QoS once the connection is up, even if the client was
// already connected.
func (c *Client) Reconnect(ctx context.Context, maxAttempts int, resubscribe bool) error {
	limiter := rate.NewLimiter(rate.Every(c.options.reconnectBackoff), 1)
	attempt := 0

	for !c.connected {
		// Wait fails early when the backoff would outlast the deadline.
		if err := limiter.Wait(ctx); err != nil {
			<-ctx.Done()
			return ctx.Err()
		}

		c.metrics.reconnectAttempt()
		c.logger.Info("reconnecting", LogFields{LogFieldAttempt: attempt})

		_, err := c.Connect(ctx, false)
		if err == nil {
			break
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if !errors.Is(err, ErrTransport) {
			return err
		}

		c.logger.Warn("reconnect failed", LogFields{LogFieldAttempt: attempt, LogFieldError: err})

		attempt++
		if maxAttempts > 0 && attempt >= maxAttempts {
			attempt = 0
		}
	}

	if resubscribe {
		return c.resubscribe(ctx)
	}
	return nil
}

// resubscribe re-issues a SUBSCRIBE per recorded topic, in recording order.
// Topics not yet resubscribed when an error occurs stay recorded.
func (c *Client) resubscribe(ctx context.Context) error {
	subs := c.subs.drain()
	c.metrics.subscriptions(0)

	if store := c.options.sessionStore; store != nil {
		if err := store.ClearSubscriptions(c.clientID); err != nil {
			c.logger.Error("failed to clear stored subscriptions", LogFields{LogFieldError: err})
		}
	}

	for i, sub := range subs {
		if err := c.Subscribe(ctx, sub); err != nil {
			for _, rest := range subs[i:] {
				c.subs.add(rest)
				c.saveSubscription(rest)
			}
			c.metrics.subscriptions(c.subs.len())
			return err
		}
	}

	return nil
}
