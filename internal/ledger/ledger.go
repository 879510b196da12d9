package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPersistence wraps storage I/O failures during append. Append is
	// all-or-nothing: on this error the chain tail is unchanged and the
	// operation is safe to retry.
	ErrPersistence = errors.New("ledger: persistence failure")
	// ErrEmptyAction rejects events with no action label.
	ErrEmptyAction = errors.New("ledger: empty action")
	// ErrInvalidEventType rejects unknown event type labels.
	ErrInvalidEventType = errors.New("ledger: invalid event type")
	// ErrInvalidRange rejects verification ranges outside the chain.
	ErrInvalidRange = errors.New("ledger: invalid range")
)

// IntegrityError reports the first block whose stored hashes do not
// match recomputation. This is a security incident, never auto-repaired.
type IntegrityError struct {
	Index  uint64
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger: integrity violation at index %d: %s", e.Index, e.Reason)
}

// Ledger owns the single logical append point of the chain: the tail
// (last index, last chain hash, last timestamp). All mutation funnels
// through Append under one mutex; readers take a snapshot of the tail
// and never observe a half-written block.
type Ledger struct {
	mu      sync.Mutex
	store   BlockStore
	height  uint64
	tipHash string
	tipTime time.Time

	now func() time.Time
}

// Open loads the chain tail from the store. An empty store starts the
// chain at index 0 with the zero sentinel as predecessor.
func Open(store BlockStore) (*Ledger, error) {
	l := &Ledger{store: store, tipHash: ZeroHash, now: time.Now}
	n, err := store.Count()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if n > 0 {
		last, err := store.Block(n - 1)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		l.tipHash = last.ChainHash
		l.tipTime = last.Timestamp
	}
	l.height = n
	return l, nil
}

// Append seals an event into the next block. The server timestamp is
// assigned here and clamped to never run backwards: monotonicity wins
// over wall-clock accuracy. Concurrent appends are linearized on the
// tail mutex, which is held only across hashing, persist and the tail
// advance.
func (l *Ledger) Append(ev Event) (Block, error) {
	if ev.Action == "" {
		return Block{}, ErrEmptyAction
	}
	if ev.Type == "" {
		ev.Type = EventGeneric
	}
	if !ev.Type.Valid() {
		return Block{}, fmt.Errorf("%w: %q", ErrInvalidEventType, ev.Type)
	}
	if ev.EventID == uuid.Nil {
		ev.EventID = uuid.New()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.now().UTC()
	if ts.Before(l.tipTime) {
		ts = l.tipTime
	}

	dh, err := dataHash(ev.Action, ev.PayloadDigest, ev.Metadata, ts)
	if err != nil {
		return Block{}, err
	}
	b := Block{
		Index:         l.height,
		EventID:       ev.EventID,
		Type:          ev.Type,
		Action:        ev.Action,
		PayloadDigest: ev.PayloadDigest,
		Metadata:      ev.Metadata,
		DataHash:      dh,
		PrevHash:      l.tipHash,
		ChainHash:     chainHash(dh, l.tipHash),
		Timestamp:     ts,
	}

	if err := l.store.Append(b); err != nil {
		// Tail untouched: the failed block is not part of the chain.
		return Block{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	l.height = b.Index + 1
	l.tipHash = b.ChainHash
	l.tipTime = ts
	return b, nil
}

// Height returns the number of committed blocks.
func (l *Ledger) Height() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

// Tip returns the current height and tail chain hash.
func (l *Ledger) Tip() (uint64, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height, l.tipHash
}

// Verify recomputes hashes for blocks in [from, to] and returns an
// *IntegrityError at the first index where recomputation diverges from
// the stored values. Both the data hash (from the stored event fields)
// and the chain linkage are checked.
func (l *Ledger) Verify(from, to uint64) error {
	height := l.Height()
	if height == 0 {
		return nil
	}
	if from > to || to >= height {
		return fmt.Errorf("%w: [%d, %d] with height %d", ErrInvalidRange, from, to, height)
	}

	prev := ZeroHash
	if from > 0 {
		b, err := l.store.Block(from - 1)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		prev = b.ChainHash
	}

	for i := from; i <= to; i++ {
		b, err := l.store.Block(i)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if b.Index != i {
			return &IntegrityError{Index: i, Reason: fmt.Sprintf("stored index %d", b.Index)}
		}
		if b.PrevHash != prev {
			return &IntegrityError{Index: i, Reason: "previous chain hash mismatch"}
		}
		dh, err := dataHash(b.Action, b.PayloadDigest, b.Metadata, b.Timestamp)
		if err != nil {
			return err
		}
		if dh != b.DataHash {
			return &IntegrityError{Index: i, Reason: "data hash mismatch"}
		}
		if chainHash(b.DataHash, prev) != b.ChainHash {
			return &IntegrityError{Index: i, Reason: "chain hash mismatch"}
		}
		prev = b.ChainHash
	}
	return nil
}

// Iterate returns a cursor over the chain as of the current tail. Blocks
// appended after the call are not visited; each call produces an
// independent cursor.
func (l *Ledger) Iterate() *Cursor {
	return &Cursor{store: l.store, limit: l.Height()}
}

// Range returns up to limit blocks starting at from, bounded by the tail
// at call time.
func (l *Ledger) Range(from, limit uint64) ([]Block, error) {
	height := l.Height()
	if from >= height {
		return nil, nil
	}
	end := height
	if limit > 0 && from+limit < end {
		end = from + limit
	}
	out := make([]Block, 0, end-from)
	for i := from; i < end; i++ {
		b, err := l.store.Block(i)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// Cursor walks a snapshot of the chain in index order.
type Cursor struct {
	store BlockStore
	next  uint64
	limit uint64
}

// Next returns the next block in the snapshot. ok is false once the
// snapshot is exhausted.
func (c *Cursor) Next() (b Block, ok bool, err error) {
	if c.next >= c.limit {
		return Block{}, false, nil
	}
	b, err = c.store.Block(c.next)
	if err != nil {
		return Block{}, false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	c.next++
	return b, true, nil
}
