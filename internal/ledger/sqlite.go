package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const createBlocksTable = `
CREATE TABLE IF NOT EXISTS blocks (
	idx            INTEGER PRIMARY KEY,
	event_id       TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	action         TEXT NOT NULL,
	payload_digest TEXT NOT NULL,
	metadata       TEXT NOT NULL,
	data_hash      TEXT NOT NULL,
	prev_hash      TEXT NOT NULL,
	chain_hash     TEXT NOT NULL,
	server_ts      TEXT NOT NULL
);`

// SQLiteStore is a durable BlockStore on a local SQLite file. The store
// only ever issues INSERT and SELECT statements against the blocks
// table; there is no code path that updates or deletes a row.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the block store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single writer keeps inserts strictly ordered; the ledger already
	// serializes appends, so one connection is enough.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createBlocksTable); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(b Block) error {
	meta, err := json.Marshal(b.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO blocks (idx, event_id, event_type, action, payload_digest, metadata, data_hash, prev_hash, chain_hash, server_ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(b.Index), b.EventID.String(), string(b.Type), b.Action, b.PayloadDigest,
		string(meta), b.DataHash, b.PrevHash, b.ChainHash, b.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) Block(index uint64) (Block, error) {
	row := s.db.QueryRow(
		`SELECT idx, event_id, event_type, action, payload_digest, metadata, data_hash, prev_hash, chain_hash, server_ts
		 FROM blocks WHERE idx = ?`, int64(index),
	)
	return scanBlock(row)
}

func (s *SQLiteStore) Count() (uint64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM blocks`).Scan(&n); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func scanBlock(row *sql.Row) (Block, error) {
	var (
		idx                  int64
		eventID, eventType   string
		action, digest, meta string
		dh, ph, ch, ts       string
	)
	err := row.Scan(&idx, &eventID, &eventType, &action, &digest, &meta, &dh, &ph, &ch, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Block{}, ErrBlockNotFound
	}
	if err != nil {
		return Block{}, err
	}

	id, err := uuid.Parse(eventID)
	if err != nil {
		return Block{}, fmt.Errorf("decode event id: %w", err)
	}
	var metadata map[string]string
	if err := json.Unmarshal([]byte(meta), &metadata); err != nil {
		return Block{}, fmt.Errorf("decode metadata: %w", err)
	}
	stamp, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Block{}, fmt.Errorf("decode timestamp: %w", err)
	}
	return Block{
		Index:         uint64(idx),
		EventID:       id,
		Type:          EventType(eventType),
		Action:        action,
		PayloadDigest: digest,
		Metadata:      metadata,
		DataHash:      dh,
		PrevHash:      ph,
		ChainHash:     ch,
		Timestamp:     stamp,
	}, nil
}
