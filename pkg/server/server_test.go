// Copyright 2025 Certen Protocol

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen/nexus/pkg/mempool"
	"github.com/certen/nexus/pkg/persistence"
	"github.com/certen/nexus/pkg/statestore"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db := dbm.NewMemDB()
	mp, err := mempool.New(db)
	if err != nil {
		t.Fatalf("mempool.New: %v", err)
	}
	store, err := statestore.New(db)
	if err != nil {
		t.Fatalf("statestore.New: %v", err)
	}
	persist := persistence.New(db)
	return New(db, mp, store, persist, 0, nil)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	s.handleHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != "OK" {
		t.Errorf("expected body %q, got %q", "OK", rr.Body.String())
	}
}

func TestHandleSubmitTx_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/tx", nil)
	rr := httptest.NewRecorder()

	s.handleSubmitTx(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestHandleSubmitTx_MalformedBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/tx", strings.NewReader("not json"))
	rr := httptest.NewRecorder()

	s.handleSubmitTx(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestHandleSubmitTx_InitAccount(t *testing.T) {
	s := newTestServer(t)

	req := txRequest{
		Kind:      "init_account",
		AppID:     7,
		Signature: make([]byte, 64),
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	httpReq := httptest.NewRequest(http.MethodPost, "/tx", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	s.handleSubmitTx(rr, httpReq)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["tx_hash"] == "" {
		t.Error("expected non-empty tx_hash")
	}
	if s.mempool.Len() != 1 {
		t.Errorf("expected 1 queued transaction, got %d", s.mempool.Len())
	}
}

func TestHandleSubmitTx_UnknownKind(t *testing.T) {
	s := newTestServer(t)

	req := txRequest{Kind: "not_a_kind", AppID: 1, Signature: make([]byte, 64)}
	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest(http.MethodPost, "/tx", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	s.handleSubmitTx(rr, httpReq)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestHandleSubmitTx_BadSignatureLength(t *testing.T) {
	s := newTestServer(t)

	req := txRequest{Kind: "init_account", AppID: 1, Signature: make([]byte, 10)}
	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest(http.MethodPost, "/tx", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	s.handleSubmitTx(rr, httpReq)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestHandleGetAccount_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/account/1", nil)
	rr := httptest.NewRecorder()

	s.handleGetAccount(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestHandleGetAccount_MissingID(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/account/", nil)
	rr := httptest.NewRecorder()

	s.handleGetAccount(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestHandleGetAccount_NoCommittedState(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/account/1", nil)
	rr := httptest.NewRecorder()

	s.handleGetAccount(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestParseAppAccountID(t *testing.T) {
	decimal, err := parseAppAccountID("42")
	if err != nil {
		t.Fatalf("parsing decimal id: %v", err)
	}
	hexForm, err := parseAppAccountID(decimal.String())
	if err != nil {
		t.Fatalf("parsing hex id: %v", err)
	}
	if decimal != hexForm {
		t.Errorf("decimal and hex forms of the same account id diverged: %s != %s", decimal, hexForm)
	}

	if _, err := parseAppAccountID("not-a-valid-id"); err == nil {
		t.Error("expected an error for a malformed account id")
	}
}

func TestHandleRange_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/range", nil)
	rr := httptest.NewRecorder()

	s.handleRange(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestHandleRange_EmptyStore(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/range", nil)
	rr := httptest.NewRecorder()

	s.handleRange(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, rr.Code)
	}
	var resp rangeResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Headers) != 0 {
		t.Errorf("expected no headers on an empty store, got %d", len(resp.Headers))
	}
}

func TestMux_RoutesRegistered(t *testing.T) {
	s := newTestServer(t)
	mux := s.Mux()

	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, resp.StatusCode)
	}
}
