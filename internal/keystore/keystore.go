// Package keystore owns symmetric key material and its lifecycle.
// Raw key bytes never leave this package except through the scoped
// callback passed to Use, and are zeroed on shred.
package keystore

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrKeyNotFound is returned when the referenced key was never provisioned.
	ErrKeyNotFound = errors.New("keystore: key not found")
	// ErrKeyShredded is returned when the key was destroyed by crypto-shredding.
	// Anything encrypted under it is permanently unrecoverable.
	ErrKeyShredded = errors.New("keystore: key shredded")
)

// KeySize is the symmetric key size in bytes (AES-256).
const KeySize = 32

// State describes the lifecycle state of a key.
type State string

const (
	StateActive   State = "ACTIVE"
	StateShredded State = "SHREDDED"
)

// Record is the externally visible metadata for a key. It never carries
// key material.
type Record struct {
	KeyID      uuid.UUID  `json:"key_id"`
	State      State      `json:"state"`
	CreatedAt  time.Time  `json:"created_at"`
	ShreddedAt *time.Time `json:"shredded_at,omitempty"`
}

type entry struct {
	mu     sync.Mutex // serializes Use against Shred for this key
	record Record
	raw    []byte // nil once shredded
}

// Store holds provisioned keys in memory.
type Store struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]*entry
}

func NewStore() *Store {
	return &Store{keys: make(map[uuid.UUID]*entry)}
}

// Provision generates a fresh 256-bit key and returns its id. The raw
// bytes stay inside the store.
func (s *Store) Provision() (uuid.UUID, error) {
	raw := make([]byte, KeySize)
	if _, err := rand.Read(raw); err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	e := &entry{
		record: Record{KeyID: id, State: StateActive, CreatedAt: time.Now().UTC()},
		raw:    raw,
	}

	s.mu.Lock()
	s.keys[id] = e
	s.mu.Unlock()
	return id, nil
}

// Use exposes the raw key bytes to fn for the duration of a single
// cryptographic operation. fn must not retain the slice. Shredding the
// same key blocks until fn returns.
func (s *Store) Use(id uuid.UUID, fn func(raw []byte) error) error {
	s.mu.RLock()
	e, ok := s.keys[id]
	s.mu.RUnlock()
	if !ok {
		return ErrKeyNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record.State == StateShredded {
		return ErrKeyShredded
	}
	return fn(e.raw)
}

// Shred irreversibly destroys the key: the bytes are overwritten with
// zeros and the record is flipped to SHREDDED. Shredding an already
// shredded key is a no-op success.
func (s *Store) Shred(id uuid.UUID) error {
	s.mu.RLock()
	e, ok := s.keys[id]
	s.mu.RUnlock()
	if !ok {
		return ErrKeyNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record.State == StateShredded {
		return nil
	}
	for i := range e.raw {
		e.raw[i] = 0
	}
	e.raw = nil
	now := time.Now().UTC()
	e.record.State = StateShredded
	e.record.ShreddedAt = &now
	return nil
}

// Describe returns the key's metadata.
func (s *Store) Describe(id uuid.UUID) (Record, error) {
	s.mu.RLock()
	e, ok := s.keys[id]
	s.mu.RUnlock()
	if !ok {
		return Record{}, ErrKeyNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record, nil
}
