// Package umbrella is the encryption gateway: the single boundary across
// which plaintext may exist. Plaintext goes in, an authenticated
// envelope comes out, and the input buffer is wiped before Encrypt
// returns. Key material stays behind the keystore; crypto-shredding a
// key makes every envelope sealed under it permanently undecryptable.
package umbrella

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/veritas-dev/trust-ledger/internal/keystore"
)

// Algorithm tags the AEAD construction used for envelopes.
const Algorithm = "AES-256-GCM"

var (
	// ErrEncryption is returned on a cipher-level failure during seal.
	ErrEncryption = errors.New("umbrella: encryption failure")
	// ErrTagMismatch is returned when an envelope fails authentication,
	// meaning the ciphertext was tampered with or the wrong key was used.
	ErrTagMismatch = errors.New("umbrella: ciphertext authentication failed")
)

// Envelope is the encrypted output bundle. It is safe to persist and to
// hand to readers: without key access the ciphertext is opaque.
type Envelope struct {
	KeyID      uuid.UUID `json:"key_id"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	Algorithm  string    `json:"algorithm"`
}

// Gateway converts plaintext to ciphertext using keys it can only reach
// through the keystore's scoped callback.
type Gateway struct {
	keys *keystore.Store
}

func NewGateway(keys *keystore.Store) *Gateway {
	return &Gateway{keys: keys}
}

// Encrypt seals p under the given key and wipes p's buffer. Returns
// keystore.ErrKeyNotFound or keystore.ErrKeyShredded if the key is
// unusable, ErrEncryption on cipher failure.
func (g *Gateway) Encrypt(keyID uuid.UUID, p Plaintext) (Envelope, error) {
	defer p.wipe()

	var env Envelope
	err := g.keys.Use(keyID, func(raw []byte) error {
		gcm, err := newGCM(raw)
		if err != nil {
			return errors.Join(ErrEncryption, err)
		}
		nonce := make([]byte, gcm.NonceSize())
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return errors.Join(ErrEncryption, err)
		}
		env = Envelope{
			KeyID:      keyID,
			Nonce:      nonce,
			Ciphertext: gcm.Seal(nil, nonce, p.buf, nil),
			Algorithm:  Algorithm,
		}
		return nil
	})
	if err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Decrypt opens an envelope and returns the recovered plaintext.
// Returns keystore.ErrKeyShredded once the key is gone (the
// crypto-shredding contract, not a fault) and ErrTagMismatch when the
// ciphertext does not authenticate.
func (g *Gateway) Decrypt(env Envelope) ([]byte, error) {
	var out []byte
	err := g.keys.Use(env.KeyID, func(raw []byte) error {
		gcm, err := newGCM(raw)
		if err != nil {
			return errors.Join(ErrEncryption, err)
		}
		if len(env.Nonce) != gcm.NonceSize() {
			return ErrTagMismatch
		}
		pt, err := gcm.Open(nil, env.Nonce, env.Ciphertext, nil)
		if err != nil {
			return ErrTagMismatch
		}
		out = pt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
