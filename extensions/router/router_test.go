package router

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/minimqtt"
)

func collect(topics *[]string) minimqtt.MessageHandler {
	return func(_ *minimqtt.Client, msg *minimqtt.Message) {
		*topics = append(*topics, msg.Topic)
	}
}

func TestRouterTopicFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		topics []string
		want   []string
	}{
		{
			name:   "exact",
			filter: "sensors/temperature",
			topics: []string{"sensors/temperature", "sensors/humidity"},
			want:   []string{"sensors/temperature"},
		},
		{
			name:   "single level wildcard",
			filter: "sensors/+/value",
			topics: []string{"sensors/temp/value", "sensors/hum/value", "sensors/temp/other"},
			want:   []string{"sensors/temp/value", "sensors/hum/value"},
		},
		{
			name:   "multi level wildcard includes parent",
			filter: "sensors/#",
			topics: []string{"sensors", "sensors/temp", "sensors/a/b/c", "other/topic"},
			want:   []string{"sensors", "sensors/temp", "sensors/a/b/c"},
		},
		{
			name:   "wildcard skips system topics",
			filter: "#",
			topics: []string{"$SYS/uptime", "app/state"},
			want:   []string{"app/state"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			var got []string
			r.Handle(collect(&got), WithTopic(tt.filter))

			for _, topic := range tt.topics {
				r.Route(nil, &minimqtt.Message{Topic: topic})
			}

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouterConditions(t *testing.T) {
	r := New()

	var qos1, retained, numeric, all []string
	r.Handle(collect(&qos1), WithTopic("data/#"), WithQoS(1))
	r.Handle(collect(&retained), WithRetained(true))
	r.Handle(collect(&numeric), WithPayload(regexp.MustCompile(`^\d+$`)))
	r.Handle(collect(&all))

	r.Route(nil, &minimqtt.Message{Topic: "data/a", QoS: 1, Payload: []byte("12")})
	r.Route(nil, &minimqtt.Message{Topic: "data/b", QoS: 0, Retain: true, Payload: []byte("x")})
	r.Route(nil, &minimqtt.Message{Topic: "other", QoS: 1, Payload: []byte("7")})

	assert.Equal(t, []string{"data/a"}, qos1)
	assert.Equal(t, []string{"data/b"}, retained)
	assert.Equal(t, []string{"data/a", "other"}, numeric)
	assert.Equal(t, []string{"data/a", "data/b", "other"}, all)
}

func TestRouterRouteReportsMatch(t *testing.T) {
	r := New()
	r.Handle(func(*minimqtt.Client, *minimqtt.Message) {}, WithTopic("a"))

	assert.True(t, r.Route(nil, &minimqtt.Message{Topic: "a"}))
	assert.False(t, r.Route(nil, &minimqtt.Message{Topic: "b"}))
	assert.False(t, r.Route(nil, nil))
}

func TestRouterRegistrationOrder(t *testing.T) {
	r := New()

	var order []int
	for i := range 3 {
		r.Handle(func(*minimqtt.Client, *minimqtt.Message) {
			order = append(order, i)
		}, WithTopic("t"))
	}

	r.Route(nil, &minimqtt.Message{Topic: "t"})
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestRouterFiltersAndSubscriptions(t *testing.T) {
	r := New()
	noop := func(*minimqtt.Client, *minimqtt.Message) {}

	r.Handle(noop, WithTopic("b/#"))
	r.Handle(noop, WithTopic("a/+"))
	r.Handle(noop, WithTopic("b/#"), WithQoS(1))
	r.Handle(noop, WithQoS(0))

	assert.Equal(t, 4, r.Len())
	assert.Equal(t, []string{"a/+", "b/#"}, r.Filters())
	assert.Equal(t, []minimqtt.Subscription{
		{Topic: "a/+", QoS: 1},
		{Topic: "b/#", QoS: 1},
	}, r.Subscriptions(1))

	r.Clear()
	assert.Zero(t, r.Len())
	assert.Empty(t, r.Filters())
}

func TestRouterMessageHandler(t *testing.T) {
	r := New()

	var got *minimqtt.Message
	r.Handle(func(_ *minimqtt.Client, msg *minimqtt.Message) {
		got = msg
	}, WithTopic("x/y"))

	handler := r.MessageHandler()
	require.NotNil(t, handler)

	msg := &minimqtt.Message{Topic: "x/y", Payload: []byte("p")}
	handler(nil, msg)
	assert.Same(t, msg, got)
}
