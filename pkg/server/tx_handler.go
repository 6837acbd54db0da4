// Copyright 2025 Certen Protocol

package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/certen/nexus/pkg/types"
)

// txRequest is the canonical JSON body POST /tx accepts. Hash/digest
// fields use hexutil's 0x-prefixed hex convention; the proof/signature
// byte fields follow the same convention rather than encoding/json's
// default base64, matching the H256 hex encoding used everywhere else on
// this RPC surface.
type txRequest struct {
	Kind      string        `json:"kind"`
	AppID     uint32        `json:"app_id"`
	Signature hexutil.Bytes `json:"signature"`

	Statement      hexutil.Bytes `json:"statement,omitempty"`
	StartNexusHash hexutil.Bytes `json:"start_nexus_hash,omitempty"`

	Proof     *proofRequest `json:"proof,omitempty"`
	NexusHash hexutil.Bytes `json:"nexus_hash,omitempty"`
	StateRoot hexutil.Bytes `json:"state_root,omitempty"`
	Height    uint32        `json:"height,omitempty"`
}

type proofRequest struct {
	Statement      hexutil.Bytes `json:"statement"`
	StartNexusHash hexutil.Bytes `json:"start_nexus_hash"`
	Height         uint32        `json:"height"`
	Backend        string        `json:"backend"`
	Journal        hexutil.Bytes `json:"journal"`
}

func h256FromBytes(b []byte, field string) (types.H256, error) {
	if len(b) == 0 {
		return types.H256{}, nil
	}
	h, err := types.H256FromBytes(b)
	if err != nil {
		return types.H256{}, fmt.Errorf("%s: %w", field, err)
	}
	return h, nil
}

func backendFromString(s string) (types.ProofBackend, error) {
	switch s {
	case "", "mock":
		return types.BackendMock, nil
	case "no_aggregation":
		return types.BackendNoAggregation, nil
	case "compressed":
		return types.BackendCompressed, nil
	case "groth16":
		return types.BackendGroth16, nil
	default:
		return 0, fmt.Errorf("unknown proof backend %q", s)
	}
}

// toTransaction validates req and converts it into a types.Transaction.
// Any error here rejects the request with a 4xx before the transaction
// ever reaches the mempool.
func (req txRequest) toTransaction() (types.Transaction, error) {
	var tx types.Transaction
	if len(req.Signature) != types.SignatureSize {
		return tx, fmt.Errorf("signature must be %d bytes, got %d", types.SignatureSize, len(req.Signature))
	}
	tx.AppID = types.AppId(req.AppID)
	copy(tx.Signature[:], req.Signature)

	switch req.Kind {
	case "init_account":
		tx.Kind = types.TxInitAccount
		statement, err := h256FromBytes(req.Statement, "statement")
		if err != nil {
			return tx, err
		}
		startHash, err := h256FromBytes(req.StartNexusHash, "start_nexus_hash")
		if err != nil {
			return tx, err
		}
		tx.Statement = statement
		tx.StartNexusHash = startHash
	case "submit_proof":
		tx.Kind = types.TxSubmitProof
		if req.Proof == nil {
			return tx, fmt.Errorf("submit_proof requires a proof field")
		}
		statement, err := h256FromBytes(req.Proof.Statement, "proof.statement")
		if err != nil {
			return tx, err
		}
		proofStart, err := h256FromBytes(req.Proof.StartNexusHash, "proof.start_nexus_hash")
		if err != nil {
			return tx, err
		}
		backend, err := backendFromString(req.Proof.Backend)
		if err != nil {
			return tx, fmt.Errorf("proof.backend: %w", err)
		}
		tx.Proof = types.Proof{
			Statement:      statement,
			StartNexusHash: proofStart,
			Height:         req.Proof.Height,
			Backend:        backend,
			Journal:        req.Proof.Journal,
		}
		nexusHash, err := h256FromBytes(req.NexusHash, "nexus_hash")
		if err != nil {
			return tx, err
		}
		stateRoot, err := h256FromBytes(req.StateRoot, "state_root")
		if err != nil {
			return tx, err
		}
		tx.NexusHash = nexusHash
		tx.StateRoot = stateRoot
		tx.Height = req.Height
	default:
		return tx, fmt.Errorf("unknown transaction kind %q", req.Kind)
	}
	return tx, nil
}

// handleSubmitTx implements POST /tx: decode, validate, and append to the
// mempool. It never waits on a batch being proved — Add only durably
// appends the transaction to the pending queue.
func (s *Server) handleSubmitTx(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req txRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed request body: %v", err))
		return
	}
	tx, err := req.toTransaction()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid transaction: %v", err))
		return
	}
	if err := s.mempool.Add(tx); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("accepting transaction: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"tx_hash": tx.Hash().String()})
}
