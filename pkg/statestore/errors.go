// Copyright 2025 Certen Protocol

package statestore

import "errors"

// Sentinel errors, one named error per failure mode rather than ad-hoc
// string matching.
var (
	// ErrVersionConflict is returned by Commit when the batch's target
	// version is not exactly one past the store's latest committed
	// version; committing is never idempotent.
	ErrVersionConflict = errors.New("statestore: commit version is not latest+1")

	// ErrRootNotFound is returned by Root when no version has been
	// committed yet, or the requested version predates the store's
	// retained history.
	ErrRootNotFound = errors.New("statestore: no committed root for version")

	// ErrStageVersionConflict is returned by Stage when the requested
	// version does not equal the store's latest committed version + 1.
	ErrStageVersionConflict = errors.New("statestore: stage version is not latest+1")
)
