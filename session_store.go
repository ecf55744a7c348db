package minimqtt

// SessionStore persists the client's subscription set across process restarts.
//
// The store is read once, when the client is created, to seed the subscription
// set that Reconnect re-issues. It is written after every successful SUBACK and
// UNSUBACK. Write errors are logged and do not fail the operation; the
// in-memory set is authoritative.
//
// Persisted state is keyed by client ID, so a store is only useful together
// with a fixed WithClientID.
type SessionStore interface {
	// SaveSubscription stores a granted subscription.
	SaveSubscription(clientID string, sub Subscription) error

	// DeleteSubscription removes a subscription after UNSUBACK.
	DeleteSubscription(clientID, topic string) error

	// LoadSubscriptions returns the stored subscriptions in the order they
	// were first saved.
	LoadSubscriptions(clientID string) ([]Subscription, error)

	// ClearSubscriptions removes every subscription of the client.
	ClearSubscriptions(clientID string) error
}
