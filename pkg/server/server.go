// Copyright 2025 Certen Protocol
//
// RPC Server
//
// A thin HTTP/JSON surface over the execution core: it accepts
// transactions into the mempool, serves witnessed account reads against
// the latest committed root, and exposes recent header hashes for
// adapters bootstrapping start_nexus_hash. It never blocks on proving —
// every handler here touches only already-committed state.

package server

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen/nexus/pkg/headerstore"
	"github.com/certen/nexus/pkg/mempool"
	"github.com/certen/nexus/pkg/persistence"
	"github.com/certen/nexus/pkg/statestore"
)

// Server is the RPC surface's dependency bundle. It never touches the
// engine's live HeaderStore, which the engine goroutine owns exclusively;
// /range instead re-reads the persisted "previous_headers" snapshot each
// call, the same record the engine itself reloads on restart.
type Server struct {
	db       dbm.DB
	mempool  *mempool.Pool
	store    *statestore.Store
	persist  *persistence.Coordinator
	capacity int
	logger   *log.Logger
}

// New constructs a Server. capacity must match the Header Store capacity
// the execution engine was constructed with, so /range decodes the
// persisted snapshot correctly.
func New(db dbm.DB, mp *mempool.Pool, store *statestore.Store, persist *persistence.Coordinator, capacity int, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "[server] ", log.LstdFlags)
	}
	if capacity <= 0 {
		capacity = headerstore.DefaultCapacity
	}
	return &Server{db: db, mempool: mp, store: store, persist: persist, capacity: capacity, logger: logger}
}

// Mux builds the http.ServeMux this Server answers on.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/tx", s.handleSubmitTx)
	mux.HandleFunc("/account/", s.handleGetAccount)
	mux.HandleFunc("/range", s.handleRange)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("encoding response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
