package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/veritas-dev/trust-ledger/internal/engine"
	"github.com/veritas-dev/trust-ledger/internal/keystore"
	"github.com/veritas-dev/trust-ledger/internal/ledger"
	"github.com/veritas-dev/trust-ledger/internal/umbrella"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	l, err := ledger.Open(ledger.NewMemStore())
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	keys := keystore.NewStore()
	h := &Handler{Engine: engine.New(l, umbrella.NewGateway(keys), keys, slog.Default())}

	r := gin.New()
	r.GET("/", h.Root)
	r.POST("/veritas/log", h.Log)
	r.GET("/veritas/chain", h.Chain)
	r.GET("/veritas/verify", h.Verify)
	r.POST("/umbrella/encrypt", h.Encrypt)
	r.POST("/umbrella/seal", h.Seal)
	r.POST("/umbrella/decrypt", h.Decrypt)
	r.POST("/umbrella/keys", h.ProvisionKey)
	r.DELETE("/umbrella/keys/:id", h.ShredKey)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if len(w.Body.Bytes()) > 0 {
		json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestRootReportsOperational(t *testing.T) {
	r := setupTestRouter(t)
	w, out := doJSON(t, r, "GET", "/", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if out["status"] != "operational" {
		t.Errorf("expected operational, got %v", out["status"])
	}
	if out["protocol"] != Protocol {
		t.Errorf("unexpected protocol: %v", out["protocol"])
	}
}

func TestLogReturnsReceipt(t *testing.T) {
	r := setupTestRouter(t)

	w, out := doJSON(t, r, "POST", "/veritas/log", map[string]any{
		"action":    "LOGIN",
		"data_hash": "abc123",
		"metadata":  map[string]string{"user": "a"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if out["status"] != "committed" {
		t.Errorf("expected committed, got %v", out["status"])
	}
	if out["chain_index"].(float64) != 0 {
		t.Errorf("expected index 0, got %v", out["chain_index"])
	}
	if out["lock_hash"] == "" {
		t.Error("missing lock_hash")
	}
}

func TestLogRequiresAction(t *testing.T) {
	r := setupTestRouter(t)
	w, _ := doJSON(t, r, "POST", "/veritas/log", map[string]any{"data_hash": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestLogRejectsUnknownEventType(t *testing.T) {
	r := setupTestRouter(t)
	w, _ := doJSON(t, r, "POST", "/veritas/log", map[string]any{
		"action":     "X",
		"event_type": "BOGUS",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestChainAndVerify(t *testing.T) {
	r := setupTestRouter(t)

	for i := 0; i < 5; i++ {
		w, _ := doJSON(t, r, "POST", "/veritas/log", map[string]any{
			"action":   "STEP",
			"metadata": map[string]string{"seq": fmt.Sprint(i)},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("append %d failed: %d", i, w.Code)
		}
	}

	w, out := doJSON(t, r, "GET", "/veritas/chain?from=1&limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	blocks := out["blocks"].([]any)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].(map[string]any)["index"].(float64) != 1 {
		t.Errorf("expected first block index 1, got %v", blocks[0].(map[string]any)["index"])
	}

	w, out = doJSON(t, r, "GET", "/veritas/verify", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if out["ok"] != true {
		t.Errorf("expected ok, got %v", out)
	}
}

func TestVerifyEmptyChain(t *testing.T) {
	r := setupTestRouter(t)
	w, out := doJSON(t, r, "GET", "/veritas/verify", nil)
	if w.Code != http.StatusOK || out["ok"] != true {
		t.Fatalf("expected ok on empty chain, got %d %v", w.Code, out)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	r := setupTestRouter(t)

	w, out := doJSON(t, r, "POST", "/umbrella/encrypt", map[string]any{
		"plaintext": "sensitive document text",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	env := out["envelope"].(map[string]any)
	if env["algorithm"] != umbrella.Algorithm {
		t.Errorf("unexpected algorithm: %v", env["algorithm"])
	}

	w, out = doJSON(t, r, "POST", "/umbrella/decrypt", env)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if out["plaintext"] != "sensitive document text" {
		t.Errorf("round trip failed: %v", out["plaintext"])
	}
}

func TestSealReturnsSecureArchived(t *testing.T) {
	r := setupTestRouter(t)

	w, out := doJSON(t, r, "POST", "/umbrella/seal", map[string]any{
		"plaintext": "page one text",
		"metadata":  map[string]string{"pages": "1"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if out["status"] != "SECURE_ARCHIVED" {
		t.Errorf("expected SECURE_ARCHIVED, got %v", out["status"])
	}
	if out["trace_id"] == "" {
		t.Error("missing trace_id")
	}
}

func TestShredThenDecryptIsGone(t *testing.T) {
	r := setupTestRouter(t)

	_, out := doJSON(t, r, "POST", "/umbrella/encrypt", map[string]any{"plaintext": "secret"})
	env := out["envelope"].(map[string]any)
	keyID := env["key_id"].(string)

	w, _ := doJSON(t, r, "DELETE", "/umbrella/keys/"+keyID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("shred failed: %d", w.Code)
	}

	// Idempotent: second shred is still a success.
	w, _ = doJSON(t, r, "DELETE", "/umbrella/keys/"+keyID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("second shred failed: %d", w.Code)
	}

	w, out = doJSON(t, r, "POST", "/umbrella/decrypt", env)
	if w.Code != http.StatusGone {
		t.Fatalf("expected 410, got %d: %s", w.Code, w.Body.String())
	}
	if out["error"] != "key_shredded" {
		t.Errorf("unexpected error kind: %v", out["error"])
	}
}

func TestDecryptTamperedEnvelope(t *testing.T) {
	r := setupTestRouter(t)

	_, out := doJSON(t, r, "POST", "/umbrella/encrypt", map[string]any{"plaintext": "secret"})
	env := out["envelope"].(map[string]any)
	// Corrupt the base64 ciphertext payload.
	env["ciphertext"] = "dGFtcGVyZWQtY2lwaGVydGV4dA=="

	w, out := doJSON(t, r, "POST", "/umbrella/decrypt", env)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if out["error"] != "tag_mismatch" {
		t.Errorf("unexpected error kind: %v", out["error"])
	}
}

func TestShredUnknownKey(t *testing.T) {
	r := setupTestRouter(t)
	w, _ := doJSON(t, r, "DELETE", "/umbrella/keys/3f1c4c0a-9c52-4f5e-9f6e-111111111111", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
