package minimqtt

// ProducerInterceptor intercepts messages before they are published.
// Interceptors run in the order they are configured, each receiving the
// message returned by the previous one. Returning nil drops the message:
// Publish then returns nil without writing anything.
type ProducerInterceptor interface {
	// OnSend is called when a message is about to be published.
	// The message is not a copy; use msg.Clone() to preserve the original.
	OnSend(msg *Message) *Message
}

// ConsumerInterceptor intercepts inbound messages before they reach handlers.
// Returning nil drops the message; a QoS 1 message is still acknowledged.
type ConsumerInterceptor interface {
	// OnConsume is called when a message is received.
	// The message is not a copy; use msg.Clone() to preserve the original.
	OnConsume(msg *Message) *Message
}

// ProducerInterceptorFunc adapts a function to ProducerInterceptor.
type ProducerInterceptorFunc func(msg *Message) *Message

func (f ProducerInterceptorFunc) OnSend(msg *Message) *Message { return f(msg) }

// ConsumerInterceptorFunc adapts a function to ConsumerInterceptor.
type ConsumerInterceptorFunc func(msg *Message) *Message

func (f ConsumerInterceptorFunc) OnConsume(msg *Message) *Message { return f(msg) }

// applyProducerInterceptors runs the chain. A panicking interceptor is
// logged and skipped, leaving the message unchanged.
func applyProducerInterceptors(interceptors []ProducerInterceptor, msg *Message, logger Logger) *Message {
	current := msg
	for _, interceptor := range interceptors {
		if current == nil {
			return nil
		}
		current = safeIntercept(logger, "producer", current, interceptor.OnSend)
	}
	return current
}

// applyConsumerInterceptors runs the chain. A panicking interceptor is
// logged and skipped, leaving the message unchanged.
func applyConsumerInterceptors(interceptors []ConsumerInterceptor, msg *Message, logger Logger) *Message {
	current := msg
	for _, interceptor := range interceptors {
		if current == nil {
			return nil
		}
		current = safeIntercept(logger, "consumer", current, interceptor.OnConsume)
	}
	return current
}

func safeIntercept(logger Logger, kind string, msg *Message, fn func(*Message) *Message) (result *Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(kind+" interceptor panic", LogFields{
				LogFieldTopic: msg.Topic,
				LogFieldError: r,
			})
			result = msg
		}
	}()
	return fn(msg)
}
