package minimqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerSessionStore(t *testing.T) {
	store, err := NewBadgerSessionStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	testSessionStore(t, store)
}

func TestBadgerSessionStoreReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBadgerSessionStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveSubscription("c1", Subscription{Topic: "b", QoS: 1}))
	require.NoError(t, store.SaveSubscription("c1", Subscription{Topic: "a", QoS: 0}))
	require.NoError(t, store.Close())

	store, err = NewBadgerSessionStore(dir)
	require.NoError(t, err)
	defer store.Close()

	subs, err := store.LoadSubscriptions("c1")
	require.NoError(t, err)
	assert.Equal(t, []Subscription{{Topic: "b", QoS: 1}, {Topic: "a", QoS: 0}}, subs)
}

func TestBadgerSessionStorePrefixIsolation(t *testing.T) {
	store, err := NewBadgerSessionStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveSubscription("ab", Subscription{Topic: "x"}))
	require.NoError(t, store.SaveSubscription("a", Subscription{Topic: "bx"}))

	subs, err := store.LoadSubscriptions("a")
	require.NoError(t, err)
	assert.Equal(t, []Subscription{{Topic: "bx"}}, subs)
}
