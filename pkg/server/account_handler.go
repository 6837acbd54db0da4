// Copyright 2025 Certen Protocol

package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/certen/nexus/pkg/persistence"
	"github.com/certen/nexus/pkg/types"
)

// accountProof is the JSON-friendly rendering of smt.Proof: a slice
// instead of a fixed array so it serializes without padding, and relying
// on H256's own MarshalJSON for the 0x-hex convention.
type accountProof struct {
	Key      types.H256   `json:"key"`
	Siblings []types.H256 `json:"siblings"`
}

// accountWithProof is the GET /account/{app_account_id} response: the
// account (nil if absent), its inclusion/non-inclusion witness against
// the latest committed root, and the nexus header that root belongs to.
type accountWithProof struct {
	Account     *types.AccountState `json:"account"`
	Proof       accountProof        `json:"proof"`
	ValueHash   types.H256          `json:"value_hash"`
	StateRoot   types.H256          `json:"state_root"`
	NexusHeader *types.NexusHeader  `json:"nexus_header"`
}

// handleGetAccount implements GET /account/{app_account_id}. The path
// suffix is either a 32-byte hex digest (the AppAccountId itself) or a
// decimal AppId, which is hashed through AppAccountIDFromAppID the same
// way the STF derives it.
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	idParam := strings.TrimPrefix(r.URL.Path, "/account/")
	if idParam == "" {
		s.writeError(w, http.StatusBadRequest, "missing app_account_id")
		return
	}
	key, err := parseAppAccountID(idParam)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	version, has := s.store.LatestVersion()
	if !has {
		s.writeError(w, http.StatusNotFound, "no committed state yet")
		return
	}

	account, proof, err := s.store.GetWithProof(key, version)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("reading account: %v", err))
		return
	}

	root, err := s.store.Root(version)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("reading root: %v", err))
		return
	}

	headers, err := persistence.LoadHeaderStore(s.db, s.capacity)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("loading header store: %v", err))
		return
	}
	var header *types.NexusHeader
	if h, ok := headers.First(); ok {
		header = &h
	}

	valueHash := types.ZeroH256
	if account != nil {
		valueHash = types.HashBytes(account.EncodeBytes())
	}

	s.writeJSON(w, http.StatusOK, accountWithProof{
		Account:     account,
		Proof:       accountProof{Key: proof.Key, Siblings: proof.Siblings[:]},
		ValueHash:   valueHash,
		StateRoot:   root,
		NexusHeader: header,
	})
}

func parseAppAccountID(s string) (types.AppAccountId, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return types.H256FromHex(s)
	}
	// Fall back to treating the path segment as a decimal AppId and
	// deriving the same key the STF would for InitAccount/SubmitProof.
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return types.AppAccountIDFromAppID(types.AppId(n)), nil
	}
	return types.H256FromHex(s)
}
