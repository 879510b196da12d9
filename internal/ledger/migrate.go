package ledger

import "fmt"

// Migrate replays every block from a source store into an empty
// destination store, re-checking chain linkage as it copies. This works
// for:
// - Memory -> SQLite (making an ephemeral chain durable)
// - SQLite -> SQLite (relocating the block file)
func Migrate(src, dst BlockStore) (uint64, error) {
	if n, err := dst.Count(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	} else if n > 0 {
		return 0, ErrStoreNotEmpty
	}

	total, err := src.Count()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	prev := ZeroHash
	for i := uint64(0); i < total; i++ {
		b, err := src.Block(i)
		if err != nil {
			return i, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		// A broken source chain must never be copied forward.
		if b.PrevHash != prev || chainHash(b.DataHash, prev) != b.ChainHash {
			return i, &IntegrityError{Index: i, Reason: "chain broken in source store"}
		}
		if err := dst.Append(b); err != nil {
			return i, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		prev = b.ChainHash
	}
	return total, nil
}
