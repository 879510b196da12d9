package ledger

import (
	"errors"
	"sync"
)

var (
	// ErrBlockNotFound is returned when a requested block index does not exist.
	ErrBlockNotFound = errors.New("ledger: block not found")
	// ErrStoreNotEmpty is returned by Migrate when the destination already holds blocks.
	ErrStoreNotEmpty = errors.New("ledger: destination store not empty")
)

// BlockStore persists committed blocks. Implementations expose no
// update or delete operation; the chain is write-once by construction.
type BlockStore interface {
	// Append persists a new block at the next index. Storage failure
	// must leave the store unchanged.
	Append(b Block) error
	// Block returns the block at the given index, or ErrBlockNotFound.
	Block(index uint64) (Block, error)
	// Count returns the number of persisted blocks.
	Count() (uint64, error)
	// Close releases any underlying resources.
	Close() error
}

// MemStore is an in-memory BlockStore backed by an append-only slice.
type MemStore struct {
	mu     sync.RWMutex
	blocks []Block
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (m *MemStore) Append(b Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks = append(m.blocks, cloneBlock(b))
	return nil
}

func (m *MemStore) Block(index uint64) (Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index >= uint64(len(m.blocks)) {
		return Block{}, ErrBlockNotFound
	}
	return cloneBlock(m.blocks[index]), nil
}

func (m *MemStore) Count() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.blocks)), nil
}

func (m *MemStore) Close() error { return nil }

// cloneBlock copies the metadata map so callers can never mutate a
// committed block through a shared reference.
func cloneBlock(b Block) Block {
	if b.Metadata == nil {
		return b
	}
	meta := make(map[string]string, len(b.Metadata))
	for k, v := range b.Metadata {
		meta[k] = v
	}
	b.Metadata = meta
	return b
}
