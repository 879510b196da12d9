package keystore

import (
	"bytes"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionAndUse(t *testing.T) {
	s := NewStore()
	id, err := s.Provision()
	require.NoError(t, err)

	var seen []byte
	err = s.Use(id, func(raw []byte) error {
		require.Len(t, raw, KeySize)
		seen = append([]byte(nil), raw...)
		return nil
	})
	require.NoError(t, err)
	assert.NotEqual(t, make([]byte, KeySize), seen, "key must not be all zeros")

	rec, err := s.Describe(id)
	require.NoError(t, err)
	assert.Equal(t, StateActive, rec.State)
	assert.Nil(t, rec.ShreddedAt)
}

func TestUseUnknownKey(t *testing.T) {
	s := NewStore()
	err := s.Use(uuid.New(), func([]byte) error { return nil })
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestShredIsIrreversible(t *testing.T) {
	s := NewStore()
	id, err := s.Provision()
	require.NoError(t, err)

	require.NoError(t, s.Shred(id))

	err = s.Use(id, func([]byte) error { return nil })
	assert.ErrorIs(t, err, ErrKeyShredded)

	rec, err := s.Describe(id)
	require.NoError(t, err)
	assert.Equal(t, StateShredded, rec.State)
	assert.NotNil(t, rec.ShreddedAt)
}

func TestShredIsIdempotent(t *testing.T) {
	s := NewStore()
	id, err := s.Provision()
	require.NoError(t, err)

	require.NoError(t, s.Shred(id))
	first, err := s.Describe(id)
	require.NoError(t, err)

	require.NoError(t, s.Shred(id))
	second, err := s.Describe(id)
	require.NoError(t, err)

	assert.Equal(t, StateShredded, second.State)
	assert.Equal(t, first.ShreddedAt, second.ShreddedAt)
}

func TestShredZeroesKeyBytes(t *testing.T) {
	s := NewStore()
	id, err := s.Provision()
	require.NoError(t, err)

	// Keep a reference to the backing array before shredding.
	var raw []byte
	require.NoError(t, s.Use(id, func(b []byte) error {
		raw = b
		return nil
	}))

	require.NoError(t, s.Shred(id))
	assert.True(t, bytes.Equal(raw, make([]byte, KeySize)), "shred must overwrite key material")
}

func TestConcurrentUseAndShred(t *testing.T) {
	s := NewStore()
	id, err := s.Provision()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Use(id, func(raw []byte) error {
				// The per-key lock must never let us see a half-zeroed key.
				allZero := true
				for _, b := range raw {
					if b != 0 {
						allZero = false
						break
					}
				}
				assert.False(t, allZero)
				return nil
			})
			if err != nil {
				assert.ErrorIs(t, err, ErrKeyShredded)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Shred(id))
	}()
	wg.Wait()
}
