// Package store persists each entity collection as a single JSON document
// under a fixed key.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Collection keys.
const (
	KeyTransactions     = "bk_transactions"
	KeyContacts         = "bk_contacts"
	KeyBankTransactions = "bk_bankTransactions"
	KeyCampaignMetadata = "bk_campaignMetadata"
	KeyResources        = "bk_resources"
	KeyParsedRateCard   = "bk_parsedRateCard"
	KeyChatHistory      = "bk_chatHistory"
	KeyZohoConfig       = "bk_zohoConfig"
	KeyEntities         = "bk_entities"
	KeyPreferences      = "bk_preferences"
)

// AllKeys lists every collection key, used by factory reset.
var AllKeys = []string{
	KeyTransactions, KeyContacts, KeyBankTransactions, KeyCampaignMetadata,
	KeyResources, KeyParsedRateCard, KeyChatHistory, KeyZohoConfig,
	KeyEntities, KeyPreferences,
}

// ErrNotFound is returned by a Backend when a key has never been written.
var ErrNotFound = errors.New("key not found")

// Backend is a blob key/value store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Store wraps a Backend and notifies subscribers after every write.
type Store struct {
	backend Backend

	mu     sync.RWMutex
	subs   map[int]func(key string)
	nextID int
}

// New creates a Store on top of backend.
func New(backend Backend) *Store {
	return &Store{
		backend: backend,
		subs:    make(map[int]func(key string)),
	}
}

// Subscribe registers fn to be called with the key of every successful write.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(key string)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(key string) {
	s.mu.RLock()
	fns := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(key)
	}
}

// Delete removes key and notifies subscribers.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("Delete: %s: %w", key, err)
	}
	s.notify(key)
	return nil
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Collection is a typed view of one key.
type Collection[T any] struct {
	store *Store
	key   string
}

// NewCollection binds key to type T.
func NewCollection[T any](s *Store, key string) *Collection[T] {
	return &Collection[T]{store: s, key: key}
}

// Key returns the storage key.
func (c *Collection[T]) Key() string {
	return c.key
}

// Load decodes the stored value. A missing key yields the zero value.
func (c *Collection[T]) Load(ctx context.Context) (T, error) {
	var v T
	data, err := c.store.backend.Get(ctx, c.key)
	if errors.Is(err, ErrNotFound) {
		return v, nil
	}
	if err != nil {
		return v, fmt.Errorf("Load: reading %s: %w", c.key, err)
	}
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("Load: decoding %s: %w", c.key, err)
	}
	return v, nil
}

// Save rewrites the whole collection.
func (c *Collection[T]) Save(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("Save: encoding %s: %w", c.key, err)
	}
	return c.SaveRaw(ctx, data)
}

// SaveRaw writes already encoded JSON.
func (c *Collection[T]) SaveRaw(ctx context.Context, data []byte) error {
	if err := c.store.backend.Put(ctx, c.key, data); err != nil {
		return fmt.Errorf("Save: writing %s: %w", c.key, err)
	}
	c.store.notify(c.key)
	return nil
}

// Subscribe calls fn after every write to this collection.
func (c *Collection[T]) Subscribe(fn func()) func() {
	return c.store.Subscribe(func(key string) {
		if key == c.key {
			fn()
		}
	})
}
