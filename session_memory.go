package minimqtt

import "sync"

// MemorySessionStore keeps subscriptions in memory. State survives
// reconnects of the same process only; it is mainly useful in tests and for
// sharing one store between several clients.
type MemorySessionStore struct {
	mu      sync.Mutex
	clients map[string]*subscriptionSet
}

// NewMemorySessionStore creates an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		clients: make(map[string]*subscriptionSet),
	}
}

func (s *MemorySessionStore) SaveSubscription(clientID string, sub Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.clients[clientID]
	if !ok {
		set = &subscriptionSet{}
		s.clients[clientID] = set
	}
	set.add(sub)
	return nil
}

func (s *MemorySessionStore) DeleteSubscription(clientID, topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.clients[clientID]; ok {
		set.remove(topic)
		if set.len() == 0 {
			delete(s.clients, clientID)
		}
	}
	return nil
}

func (s *MemorySessionStore) LoadSubscriptions(clientID string) ([]Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.clients[clientID]
	if !ok {
		return nil, nil
	}
	return set.list(), nil
}

func (s *MemorySessionStore) ClearSubscriptions(clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.clients, clientID)
	return nil
}
