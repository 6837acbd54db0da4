// Copyright 2025 Certen Protocol

package server

import (
	"fmt"
	"net/http"

	"github.com/certen/nexus/pkg/persistence"
	"github.com/certen/nexus/pkg/types"
)

type rangeResponse struct {
	Headers []types.H256 `json:"headers"`
}

// handleRange implements GET /range: the hashes of the most recently
// committed headers, newest first, the same sequence adapters use to
// pick a start_nexus_hash for InitAccount.
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	headers, err := persistence.LoadHeaderStore(s.db, s.capacity)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("loading header store: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, rangeResponse{Headers: headers.Hashes()})
}
