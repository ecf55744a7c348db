package minimqtt

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
)

// Key layout: "subs" | client ID length (2 bytes) | client ID | topic.
// Value layout: QoS (1 byte) | sequence (8 bytes, big endian).
var badgerSubsPrefix = []byte("subs")

// BadgerSessionStore persists subscriptions in a Badger database, so a
// client restarted with the same client ID can resubscribe.
type BadgerSessionStore struct {
	db *badger.DB

	mu      sync.Mutex
	lastSeq uint64
}

// NewBadgerSessionStore opens (or creates) the database in dir.
func NewBadgerSessionStore(dir string) (*BadgerSessionStore, error) {
	opts := badger.DefaultOptions
	opts.Dir, opts.ValueDir = dir, dir
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	return &BadgerSessionStore{db: db}, nil
}

// Close closes the database.
func (s *BadgerSessionStore) Close() error {
	return s.db.Close()
}

func badgerClientPrefix(clientID string) []byte {
	prefix := make([]byte, 0, len(badgerSubsPrefix)+2+len(clientID))
	prefix = append(prefix, badgerSubsPrefix...)
	prefix = binary.BigEndian.AppendUint16(prefix, uint16(len(clientID)))
	return append(prefix, clientID...)
}

func badgerSubKey(clientID, topic string) []byte {
	return append(badgerClientPrefix(clientID), topic...)
}

// nextSeq returns a strictly increasing sequence number for insertion order.
func (s *BadgerSessionStore) nextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := uint64(time.Now().UnixNano())
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	s.lastSeq = seq
	return seq
}

// SaveSubscription stores sub. Saving a stored topic again updates its QoS
// and keeps its position.
func (s *BadgerSessionStore) SaveSubscription(clientID string, sub Subscription) error {
	key := badgerSubKey(clientID, sub.Topic)

	return s.db.Update(func(txn *badger.Txn) error {
		val := make([]byte, 9)

		item, err := txn.Get(key)
		switch err {
		case nil:
			old, err := item.Value()
			if err != nil {
				return err
			}
			if len(old) == 9 {
				copy(val[1:], old[1:])
			} else {
				binary.BigEndian.PutUint64(val[1:], s.nextSeq())
			}
		case badger.ErrKeyNotFound:
			binary.BigEndian.PutUint64(val[1:], s.nextSeq())
		default:
			return err
		}

		val[0] = sub.QoS
		return txn.Set(key, val)
	})
}

func (s *BadgerSessionStore) DeleteSubscription(clientID, topic string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerSubKey(clientID, topic))
	})
}

// LoadSubscriptions returns the client's subscriptions in the order they were first saved.
func (s *BadgerSessionStore) LoadSubscriptions(clientID string) ([]Subscription, error) {
	type stored struct {
		sub Subscription
		seq uint64
	}
	var found []stored

	prefix := badgerClientPrefix(clientID)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			k := item.Key()
			val, err := item.Value()
			if err != nil {
				return err
			}
			if len(val) != 9 {
				return fmt.Errorf("corrupt subscription record for %q", k[len(prefix):])
			}

			found = append(found, stored{
				sub: Subscription{Topic: string(k[len(prefix):]), QoS: val[0]},
				seq: binary.BigEndian.Uint64(val[1:]),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(found, func(a, b stored) int {
		return cmp.Compare(a.seq, b.seq)
	})

	subs := make([]Subscription, len(found))
	for i, f := range found {
		subs[i] = f.sub
	}
	return subs, nil
}

// ClearSubscriptions deletes every subscription of the client.
func (s *BadgerSessionStore) ClearSubscriptions(clientID string) error {
	prefix := badgerClientPrefix(clientID)

	return s.db.Update(func(txn *badger.Txn) error {
		var keys [][]byte

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().Key()
			keys = append(keys, append([]byte(nil), k...))
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
