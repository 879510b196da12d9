package sdk

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// UnsealedBuffer is a JSONL file holding events that could not reach the
// ledger. Re-submission is the caller's responsibility; the buffer never
// retries on its own.
type UnsealedBuffer struct {
	mu   sync.Mutex
	path string
}

func NewUnsealedBuffer(path string) (*UnsealedBuffer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &UnsealedBuffer{path: path}, nil
}

// Append writes one unsealed event to the end of the buffer.
func (b *UnsealedBuffer) Append(req RecordRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	file, err := os.OpenFile(b.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)
	return enc.Encode(UnsealedEvent{
		RecordRequest: req,
		BufferedAt:    time.Now().UTC(),
		Unsealed:      true,
	})
}

// Load returns all buffered events in submission order.
func (b *UnsealedBuffer) Load() ([]UnsealedEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load()
}

func (b *UnsealedBuffer) load() ([]UnsealedEvent, error) {
	file, err := os.OpenFile(b.path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var out []UnsealedEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 5*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev UnsealedEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, scanner.Err()
}

// Rewrite atomically replaces the buffer contents with the remaining
// events: write to a temp file, then rename over the original, so a
// crash leaves either the old buffer or the new one, never a torn file.
func (b *UnsealedBuffer) Rewrite(remaining []UnsealedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tmp := b.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)
	for _, ev := range remaining {
		if err := enc.Encode(ev); err != nil {
			file.Close()
			return err
		}
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, b.path)
}

// Len returns the number of buffered events.
func (b *UnsealedBuffer) Len() (int, error) {
	events, err := b.Load()
	if err != nil {
		return 0, err
	}
	return len(events), nil
}
