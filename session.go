package minimqtt

// subscriptionSet is the ordered set of topics the client is subscribed to.
// Re-subscribing to a recorded topic updates its QoS and keeps its position.
type subscriptionSet struct {
	subs []Subscription
}

// add records a subscription. Reports whether the topic was new.
func (s *subscriptionSet) add(sub Subscription) bool {
	for i := range s.subs {
		if s.subs[i].Topic == sub.Topic {
			s.subs[i].QoS = sub.QoS
			return false
		}
	}
	s.subs = append(s.subs, sub)
	return true
}

// remove deletes the subscription for topic. Reports whether it was recorded.
func (s *subscriptionSet) remove(topic string) bool {
	for i := range s.subs {
		if s.subs[i].Topic == topic {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return true
		}
	}
	return false
}

func (s *subscriptionSet) has(topic string) bool {
	for i := range s.subs {
		if s.subs[i].Topic == topic {
			return true
		}
	}
	return false
}

func (s *subscriptionSet) len() int {
	return len(s.subs)
}

// list returns a copy of the subscriptions in the order they were recorded.
func (s *subscriptionSet) list() []Subscription {
	out := make([]Subscription, len(s.subs))
	copy(out, s.subs)
	return out
}

// drain empties the set and returns what it held.
func (s *subscriptionSet) drain() []Subscription {
	out := s.subs
	s.subs = nil
	return out
}
