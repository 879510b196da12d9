// Package sdk is the client-side library for the trust ledger daemon.
// Callers either get a full cryptographic receipt or an error; when the
// daemon is unreachable, events can be parked in a local unsealed buffer
// and resubmitted on caller demand.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
)

// Client talks to the trust ledger daemon over HTTP.
type Client struct {
	base   string
	hc     *http.Client
	buffer *UnsealedBuffer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithUnsealedBuffer enables offline buffering at the given path.
func WithUnsealedBuffer(b *UnsealedBuffer) Option {
	return func(c *Client) { c.buffer = b }
}

// New creates a client for the daemon at base. An empty base falls back
// to TRUST_ADDR, then to the default local daemon address.
func New(base string, opts ...Option) *Client {
	if base == "" {
		base = os.Getenv("TRUST_ADDR")
	}
	if base == "" {
		base = "http://localhost:7400"
	}
	c := &Client{
		base: base,
		hc:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks daemon liveness.
func (c *Client) Ping(ctx context.Context) error {
	var out map[string]any
	return c.do(ctx, http.MethodGet, "/", nil, &out)
}

// Record commits an audit event and returns its receipt.
func (c *Client) Record(ctx context.Context, req RecordRequest) (Receipt, error) {
	var out Receipt
	if err := c.do(ctx, http.MethodPost, "/veritas/log", req, &out); err != nil {
		return Receipt{}, err
	}
	return out, nil
}

// RecordBuffered commits an audit event, falling back to the local
// unsealed buffer when the daemon is unreachable. Buffered events return
// ErrUnsealed: the caller must treat the action as not audited until
// Resubmit succeeds. Daemon-side rejections (4xx/5xx) are never
// buffered; fail-closed means a rejected event stays rejected.
func (c *Client) RecordBuffered(ctx context.Context, req RecordRequest) (Receipt, error) {
	if c.buffer == nil {
		return Receipt{}, ErrNoBuffer
	}
	receipt, err := c.Record(ctx, req)
	if err == nil {
		return receipt, nil
	}

	var ue *url.Error
	if !errors.As(err, &ue) {
		return Receipt{}, err
	}
	if bufErr := c.buffer.Append(req); bufErr != nil {
		return Receipt{}, errors.Join(err, bufErr)
	}
	return Receipt{}, fmt.Errorf("%w: %v", ErrUnsealed, err)
}

// Resubmit drains the unsealed buffer in order, stopping at the first
// failure and keeping the remainder buffered. Returns the number of
// events successfully sealed.
func (c *Client) Resubmit(ctx context.Context) (int, error) {
	if c.buffer == nil {
		return 0, ErrNoBuffer
	}
	events, err := c.buffer.Load()
	if err != nil {
		return 0, err
	}

	sealed := 0
	for _, ev := range events {
		if _, err := c.Record(ctx, ev.RecordRequest); err != nil {
			if rw := c.buffer.Rewrite(events[sealed:]); rw != nil {
				return sealed, errors.Join(err, rw)
			}
			return sealed, err
		}
		sealed++
	}
	return sealed, c.buffer.Rewrite(nil)
}

// Seal encrypts a sensitive payload daemon-side and attests the
// ciphertext digest on the chain.
func (c *Client) Seal(ctx context.Context, plaintext, action string, metadata map[string]string) (SealResponse, error) {
	var out SealResponse
	err := c.do(ctx, http.MethodPost, "/umbrella/seal", map[string]any{
		"plaintext": plaintext,
		"action":    action,
		"metadata":  metadata,
	}, &out)
	if err != nil {
		return SealResponse{}, err
	}
	return out, nil
}

// Decrypt opens an envelope. Fails permanently once the key is shredded.
func (c *Client) Decrypt(ctx context.Context, env Envelope) (string, error) {
	var out struct {
		Plaintext string `json:"plaintext"`
	}
	if err := c.do(ctx, http.MethodPost, "/umbrella/decrypt", env, &out); err != nil {
		return "", err
	}
	return out.Plaintext, nil
}

// VerifyRange checks chain integrity over [from, to].
func (c *Client) VerifyRange(ctx context.Context, from, to uint64) (VerifyResult, error) {
	var out VerifyResult
	path := fmt.Sprintf("/veritas/verify?from=%d&to=%d", from, to)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return VerifyResult{}, err
	}
	return out, nil
}

// Verify checks the whole chain.
func (c *Client) Verify(ctx context.Context) (VerifyResult, error) {
	var out VerifyResult
	if err := c.do(ctx, http.MethodGet, "/veritas/verify", nil, &out); err != nil {
		return VerifyResult{}, err
	}
	return out, nil
}

// ChainPage is one page of committed blocks as raw JSON objects.
type ChainPage struct {
	Height uint64            `json:"height"`
	Blocks []json.RawMessage `json:"blocks"`
}

// Chain fetches a page of blocks ordered by index.
func (c *Client) Chain(ctx context.Context, from, limit uint64) (ChainPage, error) {
	var out ChainPage
	path := fmt.Sprintf("/veritas/chain?from=%d&limit=%d", from, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return ChainPage{}, err
	}
	return out, nil
}

// ProvisionKey creates a fresh encryption key daemon-side.
func (c *Client) ProvisionKey(ctx context.Context) (string, error) {
	var out struct {
		KeyID string `json:"key_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/umbrella/keys", nil, &out); err != nil {
		return "", err
	}
	return out.KeyID, nil
}

// ShredKey irreversibly destroys a key. Idempotent.
func (c *Client) ShredKey(ctx context.Context, keyID string) (Receipt, error) {
	var out struct {
		Receipt Receipt `json:"receipt"`
	}
	if err := c.do(ctx, http.MethodDelete, "/umbrella/keys/"+keyID, nil, &out); err != nil {
		return Receipt{}, err
	}
	return out.Receipt, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var kind struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&kind)
		return &APIError{Status: resp.StatusCode, Kind: kind.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
