// Copyright 2025 Certen Protocol

package proofadapter

import "errors"

var (
	// ErrAssumptionsNotSupported is returned by AddAssumption on a session
	// whose backend does not support recursive composition.
	ErrAssumptionsNotSupported = errors.New("proofadapter: backend does not support assumptions")
	// ErrSessionClosed is returned by any session method called after Prove
	// has already produced a proof.
	ErrSessionClosed = errors.New("proofadapter: session already proved")
	// ErrBackendMismatch is returned by Verify when a proof's embedded
	// backend tag does not match the adapter asked to verify it.
	ErrBackendMismatch = errors.New("proofadapter: proof backend does not match verifier")
	// ErrVerificationFailed is returned by Verify when a proof is
	// well-formed but fails the backend's validity check.
	ErrVerificationFailed = errors.New("proofadapter: proof failed verification")
	// ErrMalformedJournal is returned when a proof's journal cannot be
	// parsed into a header, backend tag, and backend payload.
	ErrMalformedJournal = errors.New("proofadapter: malformed proof journal")
	// ErrUnknownBackend is returned by New for an unrecognized ProofBackend.
	ErrUnknownBackend = errors.New("proofadapter: unknown backend")
)
