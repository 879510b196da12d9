// Package ledger implements the append-only, tamper-evident audit chain.
// Blocks form a hash chain: each block's chain hash binds it to its
// entire prior history through its predecessor's chain hash. There is no
// update or delete operation; committed blocks are final.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ZeroHash is the fixed previous-chain-hash sentinel for block 0.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// EventType classifies the pipeline stage that produced an audit event.
type EventType string

const (
	EventIngest        EventType = "INGEST"
	EventParsing       EventType = "PARSING"
	EventOrchestration EventType = "ORCHESTRATION"
	EventEngineExec    EventType = "ENGINE_EXEC"
	EventCriticVal     EventType = "CRITIC_VAL"
	EventWormSeal      EventType = "WORM_SEAL"
	EventGeneric       EventType = "GENERIC"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventIngest, EventParsing, EventOrchestration, EventEngineExec, EventCriticVal, EventWormSeal, EventGeneric:
		return true
	}
	return false
}

// Event is a caller-supplied record prior to sealing. It is ephemeral:
// consumed by Append and never persisted in raw form. The payload digest
// is the caller's own digest of whatever it wants attested; the ledger
// treats it as opaque. ClientTime is advisory only and never used for
// ordering.
type Event struct {
	EventID       uuid.UUID
	Type          EventType
	Action        string
	PayloadDigest string
	Metadata      map[string]string
	ClientTime    time.Time
}

// Block is the immutable, persisted unit of the chain.
type Block struct {
	Index         uint64            `json:"index"`
	EventID       uuid.UUID         `json:"event_id"`
	Type          EventType         `json:"event_type"`
	Action        string            `json:"action"`
	PayloadDigest string            `json:"payload_digest"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	DataHash      string            `json:"data_hash"`
	PrevHash      string            `json:"previous_chain_hash"`
	ChainHash     string            `json:"chain_hash"`
	Timestamp     time.Time         `json:"server_timestamp"`
}

// dataHash digests the sealed event fields over a deterministic JSON
// encoding. encoding/json writes map keys in sorted order, so the same
// fields always produce the same bytes.
func dataHash(action, payloadDigest string, metadata map[string]string, ts time.Time) (string, error) {
	payload, err := json.Marshal(struct {
		Action        string            `json:"action"`
		PayloadDigest string            `json:"payload_digest"`
		Metadata      map[string]string `json:"metadata"`
		Timestamp     string            `json:"server_timestamp"`
	}{action, payloadDigest, metadata, ts.UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// chainHash binds a block to its predecessor: H(data_hash || prev_chain_hash).
func chainHash(dataHash, prevHash string) string {
	sum := sha256.Sum256([]byte(dataHash + prevHash))
	return hex.EncodeToString(sum[:])
}
