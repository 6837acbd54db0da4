// Copyright 2025 Certen Protocol

package types

import (
	"fmt"

	"github.com/certen/nexus/pkg/codec"
)

// TxKind discriminates the two transaction variants the STF understands.
type TxKind byte

const (
	TxInitAccount TxKind = 0
	TxSubmitProof TxKind = 1
)

func (k TxKind) String() string {
	switch k {
	case TxInitAccount:
		return "init_account"
	case TxSubmitProof:
		return "submit_proof"
	default:
		return fmt.Sprintf("unknown(%d)", byte(k))
	}
}

// SignatureSize is the fixed width of a transaction's opaque signature
// field; verification semantics are STF-defined (see SignatureVerifier).
const SignatureSize = 64

// Transaction is the tagged variant the mempool carries and the STF
// applies. Exactly one of InitAccount / SubmitProof is populated,
// according to Kind.
type Transaction struct {
	Kind      TxKind
	AppID     AppId
	Signature [SignatureSize]byte

	// Populated when Kind == TxInitAccount.
	Statement      StatementDigest
	StartNexusHash H256

	// Populated when Kind == TxSubmitProof.
	Proof     Proof
	NexusHash H256
	StateRoot H256
	Height    uint32
}

// AppAccountID returns the state-tree key this transaction addresses.
func (tx Transaction) AppAccountID() AppAccountId {
	return AppAccountIDFromAppID(tx.AppID)
}

// Encode appends the canonical encoding of tx to the encoder. The
// signature is included so that two transactions differing only in
// signature hash to distinct canonical identities.
func (tx Transaction) Encode(enc *codec.Encoder) {
	enc.PutByte(byte(tx.Kind))
	enc.PutUint32(uint32(tx.AppID))
	enc.PutFixed(tx.Signature[:])
	switch tx.Kind {
	case TxInitAccount:
		enc.PutFixed(tx.Statement[:])
		enc.PutFixed(tx.StartNexusHash[:])
	case TxSubmitProof:
		tx.Proof.Encode(enc)
		enc.PutFixed(tx.NexusHash[:])
		enc.PutFixed(tx.StateRoot[:])
		enc.PutUint32(tx.Height)
	}
}

// EncodeBytes returns the canonical byte encoding of tx.
func (tx Transaction) EncodeBytes() []byte {
	enc := codec.NewEncoder()
	tx.Encode(enc)
	return enc.Bytes()
}

// Hash is the canonical identifier used to key the mempool and tx index.
func (tx Transaction) Hash() H256 {
	return HashBytes(tx.EncodeBytes())
}

// DecodeTransaction parses the canonical encoding produced by Encode.
func DecodeTransaction(b []byte) (Transaction, error) {
	dec := codec.NewDecoder(b)
	var tx Transaction
	kind, err := dec.GetByte()
	if err != nil {
		return tx, err
	}
	tx.Kind = TxKind(kind)
	appID, err := dec.GetUint32()
	if err != nil {
		return tx, err
	}
	tx.AppID = AppId(appID)
	sig, err := dec.GetFixed(SignatureSize)
	if err != nil {
		return tx, err
	}
	copy(tx.Signature[:], sig)

	switch tx.Kind {
	case TxInitAccount:
		statement, err := dec.GetFixed(H256Size)
		if err != nil {
			return tx, err
		}
		copy(tx.Statement[:], statement)
		startHash, err := dec.GetFixed(H256Size)
		if err != nil {
			return tx, err
		}
		copy(tx.StartNexusHash[:], startHash)
	case TxSubmitProof:
		proofStatement, err := dec.GetFixed(H256Size)
		if err != nil {
			return tx, err
		}
		proofStartHash, err := dec.GetFixed(H256Size)
		if err != nil {
			return tx, err
		}
		proofHeight, err := dec.GetUint32()
		if err != nil {
			return tx, err
		}
		backend, err := dec.GetByte()
		if err != nil {
			return tx, err
		}
		journal, err := dec.GetBytes()
		if err != nil {
			return tx, err
		}
		copy(tx.Proof.Statement[:], proofStatement)
		copy(tx.Proof.StartNexusHash[:], proofStartHash)
		tx.Proof.Height = proofHeight
		tx.Proof.Backend = ProofBackend(backend)
		tx.Proof.Journal = journal

		nexusHash, err := dec.GetFixed(H256Size)
		if err != nil {
			return tx, err
		}
		copy(tx.NexusHash[:], nexusHash)
		stateRoot, err := dec.GetFixed(H256Size)
		if err != nil {
			return tx, err
		}
		copy(tx.StateRoot[:], stateRoot)
		if tx.Height, err = dec.GetUint32(); err != nil {
			return tx, err
		}
	default:
		return tx, fmt.Errorf("types: unknown transaction kind %d", kind)
	}

	if err := codec.ReadAll(dec); err != nil {
		return tx, err
	}
	return tx, nil
}

// TxStatus records the outcome of a transaction once its containing batch
// commits. Transactions never leave the index once written.
type TxStatus byte

const (
	TxPending    TxStatus = 0
	TxSuccessful TxStatus = 1
	TxFailed     TxStatus = 2
)

func (s TxStatus) String() string {
	switch s {
	case TxPending:
		return "pending"
	case TxSuccessful:
		return "successful"
	case TxFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", byte(s))
	}
}

// TxResult is the per-transaction outcome the STF produces for a batch.
type TxResult struct {
	Status TxStatus
	Reason string // populated only when Status == TxFailed
}

// Encode appends the canonical encoding of r to the encoder.
func (r TxResult) Encode(enc *codec.Encoder) {
	enc.PutByte(byte(r.Status))
	enc.PutBytes([]byte(r.Reason))
}

// DecodeTxResult parses the canonical encoding produced by Encode.
func DecodeTxResult(dec *codec.Decoder) (TxResult, error) {
	var r TxResult
	status, err := dec.GetByte()
	if err != nil {
		return r, err
	}
	r.Status = TxStatus(status)
	reason, err := dec.GetBytes()
	if err != nil {
		return r, err
	}
	r.Reason = string(reason)
	return r, nil
}

// TransactionWithStatus is the persisted record keyed by transaction hash.
type TransactionWithStatus struct {
	Tx        Transaction
	BlockHash H256
	Result    TxResult
}

// Encode appends the canonical encoding of t to the encoder. The
// transaction is length-prefixed rather than inlined so it can be decoded
// on its own via DecodeTransaction.
func (t TransactionWithStatus) Encode(enc *codec.Encoder) {
	enc.PutBytes(t.Tx.EncodeBytes())
	enc.PutFixed(t.BlockHash[:])
	t.Result.Encode(enc)
}

// EncodeBytes returns the canonical byte encoding of t.
func (t TransactionWithStatus) EncodeBytes() []byte {
	enc := codec.NewEncoder()
	t.Encode(enc)
	return enc.Bytes()
}

// DecodeTransactionWithStatus parses the canonical encoding produced by
// Encode.
func DecodeTransactionWithStatus(b []byte) (TransactionWithStatus, error) {
	dec := codec.NewDecoder(b)
	var t TransactionWithStatus
	txBytes, err := dec.GetBytes()
	if err != nil {
		return t, err
	}
	tx, err := DecodeTransaction(txBytes)
	if err != nil {
		return t, err
	}
	t.Tx = tx
	blockHash, err := dec.GetFixed(H256Size)
	if err != nil {
		return t, err
	}
	copy(t.BlockHash[:], blockHash)
	result, err := DecodeTxResult(dec)
	if err != nil {
		return t, err
	}
	t.Result = result
	if err := codec.ReadAll(dec); err != nil {
		return t, err
	}
	return t, nil
}
