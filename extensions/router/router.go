// Package router dispatches inbound messages to handlers selected by topic
// filter and message attributes.
package router

import (
	"regexp"
	"slices"
	"sync"

	"github.com/vitalvas/minimqtt"
)

// Condition selects the messages a handler receives. An empty condition
// matches every message.
type Condition struct {
	topicFilter   *string
	qos           *byte
	retained      *bool
	payloadRegexp *regexp.Regexp
}

// ConditionOption configures a Condition.
type ConditionOption func(*Condition)

// WithTopic matches topics against filter, with + and # wildcards.
func WithTopic(filter string) ConditionOption {
	return func(c *Condition) {
		c.topicFilter = &filter
	}
}

// WithQoS matches messages delivered at qos.
func WithQoS(qos byte) ConditionOption {
	return func(c *Condition) {
		c.qos = &qos
	}
}

// WithRetained matches retained (true) or live (false) messages.
func WithRetained(retained bool) ConditionOption {
	return func(c *Condition) {
		c.retained = &retained
	}
}

// WithPayload matches payloads against pattern.
func WithPayload(pattern *regexp.Regexp) ConditionOption {
	return func(c *Condition) {
		c.payloadRegexp = pattern
	}
}

func (c *Condition) matches(msg *minimqtt.Message) bool {
	switch {
	case c.topicFilter != nil && !minimqtt.TopicMatch(*c.topicFilter, msg.Topic):
		return false
	case c.qos != nil && *c.qos != msg.QoS:
		return false
	case c.retained != nil && *c.retained != msg.Retain:
		return false
	case c.payloadRegexp != nil && !c.payloadRegexp.Match(msg.Payload):
		return false
	}
	return true
}

type route struct {
	handler   minimqtt.MessageHandler
	condition Condition
}

// Router holds handlers in registration order. It is safe for concurrent
// registration, though the client calls it from a single goroutine.
type Router struct {
	mu     sync.RWMutex
	routes []route
}

// New creates an empty Router.
func New() *Router {
	return &Router{}
}

// Handle registers handler for messages matching all opts.
//
//	r.Handle(onTemp, router.WithTopic("sensors/+/temperature"))
//	r.Handle(onAlarm, router.WithTopic("alarms/#"), router.WithRetained(false))
func (r *Router) Handle(handler minimqtt.MessageHandler, opts ...ConditionOption) {
	var cond Condition
	for _, opt := range opts {
		opt(&cond)
	}

	r.mu.Lock()
	r.routes = append(r.routes, route{handler: handler, condition: cond})
	r.mu.Unlock()
}

// Route calls every matching handler, in registration order. It reports
// whether any handler matched.
func (r *Router) Route(c *minimqtt.Client, msg *minimqtt.Message) bool {
	if msg == nil {
		return false
	}

	r.mu.RLock()
	var matched []minimqtt.MessageHandler
	for _, rt := range r.routes {
		if rt.condition.matches(msg) {
			matched = append(matched, rt.handler)
		}
	}
	r.mu.RUnlock()

	for _, handler := range matched {
		handler(c, msg)
	}
	return len(matched) > 0
}

// Filters returns the distinct topic filters of all routes, sorted.
func (r *Router) Filters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var filters []string
	for _, rt := range r.routes {
		if f := rt.condition.topicFilter; f != nil && !slices.Contains(filters, *f) {
			filters = append(filters, *f)
		}
	}
	slices.Sort(filters)
	return filters
}

// Subscriptions returns one subscription per filter at qos, ready for
// Client.Subscribe.
func (r *Router) Subscriptions(qos byte) []minimqtt.Subscription {
	filters := r.Filters()
	subs := make([]minimqtt.Subscription, len(filters))
	for i, f := range filters {
		subs[i] = minimqtt.Subscription{Topic: f, QoS: qos}
	}
	return subs
}

// Len returns the number of registered handlers.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// Clear removes all handlers.
func (r *Router) Clear() {
	r.mu.Lock()
	r.routes = nil
	r.mu.Unlock()
}

// MessageHandler returns the router as a client message callback, for use
// with minimqtt.OnMessage.
func (r *Router) MessageHandler() minimqtt.MessageHandler {
	return func(c *minimqtt.Client, msg *minimqtt.Message) {
		r.Route(c, msg)
	}
}
