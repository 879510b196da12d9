package engine

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-dev/trust-ledger/internal/keystore"
	"github.com/veritas-dev/trust-ledger/internal/ledger"
	"github.com/veritas-dev/trust-ledger/internal/umbrella"
)

func newTestEngine(t *testing.T) (*Engine, *keystore.Store) {
	t.Helper()
	l, err := ledger.Open(ledger.NewMemStore())
	require.NoError(t, err)
	keys := keystore.NewStore()
	return New(l, umbrella.NewGateway(keys), keys, slog.Default()), keys
}

func TestRecordReturnsReceipt(t *testing.T) {
	e, _ := newTestEngine(t)

	r, err := e.Record(context.Background(), "LOGIN", map[string]string{"user": "a"}, ledger.EventGeneric, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), r.ChainIndex)
	assert.NotEmpty(t, r.LockHash)
	assert.NotZero(t, r.EventID)

	r2, err := e.Record(context.Background(), "LOGIN", map[string]string{"user": "b"}, ledger.EventGeneric, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r2.ChainIndex)
	assert.NotEqual(t, r.EventID, r2.EventID)
	assert.NoError(t, e.Verify(context.Background(), 0, 1))
}

func TestRecordFailsClosed(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Record(context.Background(), "", nil, ledger.EventGeneric, "")
	assert.ErrorIs(t, err, ledger.ErrEmptyAction)
	assert.Equal(t, uint64(0), e.Height(), "no partial record on failure")
}

func TestSealDigestsCiphertextNotPlaintext(t *testing.T) {
	e, _ := newTestEngine(t)

	res, err := e.Seal(context.Background(), "DOCUMENT_DIGITIZATION",
		map[string]string{"document": "passport"}, ledger.EventIngest,
		umbrella.WrapString("name: Jane Roe"))
	require.NoError(t, err)

	blocks, err := e.Chain(context.Background(), 0, 1)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	assert.Equal(t, CiphertextDigest(res.Envelope.Ciphertext), blocks[0].PayloadDigest)
	assert.NotEqual(t, CiphertextDigest([]byte("name: Jane Roe")), blocks[0].PayloadDigest)
	assert.Equal(t, res.Envelope.KeyID.String(), blocks[0].Metadata["key_id"])

	pt, err := e.Decrypt(context.Background(), res.Envelope)
	require.NoError(t, err)
	assert.Equal(t, []byte("name: Jane Roe"), pt)
}

func TestShredKeyIsAuditedAndIrreversible(t *testing.T) {
	e, _ := newTestEngine(t)

	res, err := e.Seal(context.Background(), "SEAL", nil, ledger.EventWormSeal, umbrella.WrapString("secret"))
	require.NoError(t, err)

	shredReceipt, err := e.ShredKey(context.Background(), res.Envelope.KeyID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), shredReceipt.ChainIndex)

	_, err = e.Decrypt(context.Background(), res.Envelope)
	assert.ErrorIs(t, err, keystore.ErrKeyShredded)

	rec, err := e.DescribeKey(res.Envelope.KeyID)
	require.NoError(t, err)
	assert.Equal(t, keystore.StateShredded, rec.State)

	// Idempotent shred still records the shred action.
	again, err := e.ShredKey(context.Background(), res.Envelope.KeyID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), again.ChainIndex)
}

func TestVerifySurfacesViolation(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Record(context.Background(), "A", nil, ledger.EventGeneric, "")
	require.NoError(t, err)

	err = e.Verify(context.Background(), 0, 5)
	assert.ErrorIs(t, err, ledger.ErrInvalidRange)
}
