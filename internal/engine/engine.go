// Package engine is the narrow public surface of the trust core. It
// composes the encryption gateway and the hash-chain ledger and hands
// callers a cryptographic receipt, or fails closed: an unaudited action
// is worse than a rejected one, so no error is ever downgraded into a
// warning or a partial record.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/veritas-dev/trust-ledger/internal/keystore"
	"github.com/veritas-dev/trust-ledger/internal/ledger"
	"github.com/veritas-dev/trust-ledger/internal/umbrella"
)

// Receipt proves that an event was committed to the chain.
type Receipt struct {
	EventID    uuid.UUID `json:"event_id"`
	LockHash   string    `json:"lock_hash"`
	ChainIndex uint64    `json:"chain_index"`
}

// SealResult is the outcome of the full seal flow: the audit receipt
// plus the envelope holding the encrypted payload.
type SealResult struct {
	Receipt  Receipt           `json:"receipt"`
	Envelope umbrella.Envelope `json:"envelope"`
}

// Engine wires the ledger, gateway and keystore behind one entry point.
// Dependencies are injected explicitly; there is no ambient global chain
// state.
type Engine struct {
	ledger  *ledger.Ledger
	gateway *umbrella.Gateway
	keys    *keystore.Store
	log     *slog.Logger
	tracer  trace.Tracer
}

func New(l *ledger.Ledger, g *umbrella.Gateway, keys *keystore.Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		ledger:  l,
		gateway: g,
		keys:    keys,
		log:     log,
		tracer:  otel.Tracer("trust-ledger/engine"),
	}
}

// Record commits a plain audit event. The payload digest is the caller's
// own digest of whatever it wants attested; the chain stores no raw
// caller payload. The event id is generated here, never trusted from the
// caller.
func (e *Engine) Record(ctx context.Context, action string, metadata map[string]string, typ ledger.EventType, payloadDigest string) (Receipt, error) {
	_, span := e.tracer.Start(ctx, "engine.Record",
		trace.WithAttributes(attribute.String("audit.action", action)))
	defer span.End()

	block, err := e.ledger.Append(ledger.Event{
		EventID:       uuid.New(),
		Type:          typ,
		Action:        action,
		PayloadDigest: payloadDigest,
		Metadata:      metadata,
	})
	if err != nil {
		span.RecordError(err)
		e.log.Error("audit_append_failed", "action", action, "err", err)
		return Receipt{}, err
	}

	span.SetAttributes(attribute.Int64("audit.chain_index", int64(block.Index)))
	e.log.Info("audit_committed", "action", action, "index", block.Index, "lock_hash", block.ChainHash)
	return Receipt{EventID: block.EventID, LockHash: block.ChainHash, ChainIndex: block.Index}, nil
}

// Seal runs the full digitization flow: encrypt the sensitive payload
// under a freshly provisioned key, then commit an audit block whose
// payload digest is the digest of the ciphertext, never the plaintext.
// The sealed buffer is wiped by the gateway before this returns.
func (e *Engine) Seal(ctx context.Context, action string, metadata map[string]string, typ ledger.EventType, sensitive umbrella.Plaintext) (SealResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Seal",
		trace.WithAttributes(attribute.String("audit.action", action)))
	defer span.End()

	keyID, err := e.keys.Provision()
	if err != nil {
		span.RecordError(err)
		return SealResult{}, err
	}

	env, err := e.gateway.Encrypt(keyID, sensitive)
	if err != nil {
		span.RecordError(err)
		e.log.Error("seal_encrypt_failed", "action", action, "err", err)
		return SealResult{}, err
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["key_id"] = keyID.String()

	receipt, err := e.Record(ctx, action, meta, typ, CiphertextDigest(env.Ciphertext))
	if err != nil {
		return SealResult{}, err
	}
	return SealResult{Receipt: receipt, Envelope: env}, nil
}

// Decrypt opens an envelope for an authorized reader. Once the key is
// shredded this fails with keystore.ErrKeyShredded forever.
func (e *Engine) Decrypt(ctx context.Context, env umbrella.Envelope) ([]byte, error) {
	_, span := e.tracer.Start(ctx, "engine.Decrypt")
	defer span.End()

	pt, err := e.gateway.Decrypt(env)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return pt, nil
}

// Verify checks chain integrity over [from, to].
func (e *Engine) Verify(ctx context.Context, from, to uint64) error {
	_, span := e.tracer.Start(ctx, "engine.Verify")
	defer span.End()

	if err := e.ledger.Verify(from, to); err != nil {
		span.RecordError(err)
		e.log.Error("chain_verification_failed", "from", from, "to", to, "err", err)
		return err
	}
	return nil
}

// Chain returns a page of committed blocks ordered by index.
func (e *Engine) Chain(ctx context.Context, from, limit uint64) ([]ledger.Block, error) {
	_, span := e.tracer.Start(ctx, "engine.Chain")
	defer span.End()
	return e.ledger.Range(from, limit)
}

// Height returns the number of committed blocks.
func (e *Engine) Height() uint64 { return e.ledger.Height() }

// Tip returns the current height and tail chain hash.
func (e *Engine) Tip() (uint64, string) { return e.ledger.Tip() }

// ProvisionKey creates a fresh encryption key and returns its id.
func (e *Engine) ProvisionKey(ctx context.Context) (uuid.UUID, error) {
	_, span := e.tracer.Start(ctx, "engine.ProvisionKey")
	defer span.End()
	return e.keys.Provision()
}

// ShredKey irreversibly destroys a key, rendering everything encrypted
// under it permanently unrecoverable. Idempotent. The shred itself is
// committed to the chain so key destruction leaves a trace.
func (e *Engine) ShredKey(ctx context.Context, keyID uuid.UUID) (Receipt, error) {
	ctx, span := e.tracer.Start(ctx, "engine.ShredKey",
		trace.WithAttributes(attribute.String("key.id", keyID.String())))
	defer span.End()

	if err := e.keys.Shred(keyID); err != nil {
		span.RecordError(err)
		return Receipt{}, err
	}
	return e.Record(ctx, "KEY_SHREDDED", map[string]string{"key_id": keyID.String()}, ledger.EventWormSeal, "")
}

// DescribeKey returns the key's lifecycle record.
func (e *Engine) DescribeKey(keyID uuid.UUID) (keystore.Record, error) {
	return e.keys.Describe(keyID)
}

// CiphertextDigest is the digest recorded for sealed payloads: a hash of
// the ciphertext, so the chain attests the envelope without ever seeing
// plaintext.
func CiphertextDigest(ciphertext []byte) string {
	sum := sha256.Sum256(ciphertext)
	return hex.EncodeToString(sum[:])
}
