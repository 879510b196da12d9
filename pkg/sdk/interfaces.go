package sdk

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnsealed is returned when the ledger was unreachable and the
	// event was written to the local unsealed buffer instead. The event
	// carries no lock_hash or chain_index until it is resubmitted.
	ErrUnsealed = errors.New("sdk: ledger unreachable, event buffered unsealed")
	// ErrNoBuffer is returned by RecordBuffered when no buffer path was
	// configured.
	ErrNoBuffer = errors.New("sdk: no unsealed buffer configured")
)

// APIError carries the error kind reported by the daemon for a non-2xx
// response.
type APIError struct {
	Status int
	Kind   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sdk: request failed with status %d: %s", e.Status, e.Kind)
}

// RecordRequest is a plain audit event submission. DataHash is the
// caller's own digest of whatever it wants attested.
type RecordRequest struct {
	Action    string            `json:"action"`
	DataHash  string            `json:"data_hash,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	EventType string            `json:"event_type,omitempty"`
}

// Receipt is the cryptographic proof of commitment returned by the
// daemon.
type Receipt struct {
	EventID    string `json:"event_id"`
	LockHash   string `json:"lock_hash"`
	ChainIndex uint64 `json:"chain_index"`
}

// Envelope mirrors the daemon's encrypted output bundle.
type Envelope struct {
	KeyID      string `json:"key_id"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
	Algorithm  string `json:"algorithm"`
}

// SealResponse is the outcome of the seal flow.
type SealResponse struct {
	TraceID    string    `json:"trace_id"`
	ChainIndex uint64    `json:"chain_index"`
	Envelope   Envelope  `json:"envelope"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// VerifyResult reports a chain verification run.
type VerifyResult struct {
	OK     bool   `json:"ok"`
	Height uint64 `json:"height"`
	Tip    string `json:"tip"`
}

// UnsealedEvent is a locally buffered event that never reached the
// ledger. Unsealed is always true so buffered records are
// programmatically distinguishable from sealed ones.
type UnsealedEvent struct {
	RecordRequest
	BufferedAt time.Time `json:"buffered_at"`
	Unsealed   bool      `json:"unsealed"`
}

// Recorder is the minimal surface collaborators need to attest actions.
type Recorder interface {
	Record(ctx context.Context, req RecordRequest) (Receipt, error)
}

// Verifier checks chain integrity.
type Verifier interface {
	VerifyRange(ctx context.Context, from, to uint64) (VerifyResult, error)
}
