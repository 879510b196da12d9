// Package api exposes the trust core over HTTP. Responses either carry a
// full receipt or a single error kind; there is no partial-success shape.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veritas-dev/trust-ledger/internal/engine"
	"github.com/veritas-dev/trust-ledger/internal/keystore"
	"github.com/veritas-dev/trust-ledger/internal/ledger"
	"github.com/veritas-dev/trust-ledger/internal/umbrella"
)

const Protocol = "Veritas 2.0"

type Handler struct {
	Engine *engine.Engine
}

// Root reports service identity and liveness.
func (h *Handler) Root(c *gin.Context) {
	height, tip := h.Engine.Tip()
	c.JSON(http.StatusOK, gin.H{
		"system":   "Trust Ledger",
		"status":   "operational",
		"protocol": Protocol,
		"height":   height,
		"tip":      tip,
	})
}

type logRequest struct {
	Action    string            `json:"action" binding:"required"`
	DataHash  string            `json:"data_hash"`
	Metadata  map[string]string `json:"metadata"`
	EventType string            `json:"event_type"`
}

// Log commits an audit event and returns its receipt.
func (h *Handler) Log(c *gin.Context) {
	var req logRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	typ := ledger.EventType(req.EventType)
	if req.EventType == "" {
		typ = ledger.EventGeneric
	}

	receipt, err := h.Engine.Record(c.Request.Context(), req.Action, req.Metadata, typ, req.DataHash)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "committed",
		"event_id":    receipt.EventID,
		"lock_hash":   receipt.LockHash,
		"chain_index": receipt.ChainIndex,
	})
}

// Chain returns a page of blocks ordered by index.
func (h *Handler) Chain(c *gin.Context) {
	from, err := queryUint(c, "from", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, err := queryUint(c, "limit", 100)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	blocks, err := h.Engine.Chain(c.Request.Context(), from, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"height": h.Engine.Height(),
		"blocks": blocks,
	})
}

// Verify recomputes chain hashes over the requested range.
func (h *Handler) Verify(c *gin.Context) {
	height := h.Engine.Height()
	if height == 0 {
		c.JSON(http.StatusOK, gin.H{"ok": true, "height": 0})
		return
	}

	from, err := queryUint(c, "from", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := queryUint(c, "to", height-1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Engine.Verify(c.Request.Context(), from, to); err != nil {
		abortWithError(c, err)
		return
	}
	_, tip := h.Engine.Tip()
	c.JSON(http.StatusOK, gin.H{"ok": true, "height": height, "tip": tip})
}

type sealRequest struct {
	Plaintext string            `json:"plaintext" binding:"required"`
	Action    string            `json:"action"`
	Metadata  map[string]string `json:"metadata"`
}

// Encrypt seals a sensitive payload and commits the matching audit
// block. The encryption itself is an audited action: if the chain append
// fails, the caller gets an error, not an unaudited ciphertext.
func (h *Handler) Encrypt(c *gin.Context) {
	var req sealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action := req.Action
	if action == "" {
		action = "PAYLOAD_ENCRYPTION"
	}

	res, err := h.Engine.Seal(c.Request.Context(), action, req.Metadata, ledger.EventWormSeal, umbrella.WrapString(req.Plaintext))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"envelope": res.Envelope,
		"receipt":  res.Receipt,
	})
}

// Seal is the document digitization flow: encrypt, then attest the
// ciphertext digest on the chain.
func (h *Handler) Seal(c *gin.Context) {
	var req sealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action := req.Action
	if action == "" {
		action = "DOCUMENT_DIGITIZATION"
	}

	res, err := h.Engine.Seal(c.Request.Context(), action, req.Metadata, ledger.EventIngest, umbrella.WrapString(req.Plaintext))
	if err != nil {
		abortWithError(c, err)
		return
	}

	blocks, err := h.Engine.Chain(c.Request.Context(), res.Receipt.ChainIndex, 1)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trace_id":    res.Receipt.LockHash,
		"chain_index": res.Receipt.ChainIndex,
		"envelope":    res.Envelope,
		"status":      "SECURE_ARCHIVED",
		"timestamp":   blocks[0].Timestamp,
	})
}

// Decrypt opens an envelope for an authorized reader.
func (h *Handler) Decrypt(c *gin.Context) {
	var env umbrella.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pt, err := h.Engine.Decrypt(c.Request.Context(), env)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plaintext": string(pt)})
}

// ProvisionKey creates a fresh encryption key.
func (h *Handler) ProvisionKey(c *gin.Context) {
	id, err := h.Engine.ProvisionKey(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	rec, err := h.Engine.DescribeKey(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ShredKey irreversibly destroys a key. Idempotent: shredding twice is
// still a success.
func (h *Handler) ShredKey(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key id"})
		return
	}

	receipt, err := h.Engine.ShredKey(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "shredded",
		"key_id":  id,
		"receipt": receipt,
	})
}

func queryUint(c *gin.Context, name string, def uint64) (uint64, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

// abortWithError maps the core error taxonomy onto HTTP statuses. All
// kinds are fail-closed; only persistence failures are safe to retry.
func abortWithError(c *gin.Context, err error) {
	var ie *ledger.IntegrityError
	switch {
	case errors.As(err, &ie):
		c.JSON(http.StatusConflict, gin.H{"error": "integrity_violation", "at_index": ie.Index, "detail": ie.Reason})
	case errors.Is(err, ledger.ErrPersistence):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence_failure", "retryable": true})
	case errors.Is(err, keystore.ErrKeyShredded):
		c.JSON(http.StatusGone, gin.H{"error": "key_shredded"})
	case errors.Is(err, keystore.ErrKeyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "key_not_found"})
	case errors.Is(err, umbrella.ErrTagMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": "tag_mismatch"})
	case errors.Is(err, ledger.ErrEmptyAction), errors.Is(err, ledger.ErrInvalidEventType), errors.Is(err, ledger.ErrInvalidRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
