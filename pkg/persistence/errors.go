// Copyright 2025 Certen Protocol

package persistence

import "errors"

var (
	// ErrTxResultNotFound is returned by TxResult lookups for a hash that
	// was never committed.
	ErrTxResultNotFound = errors.New("persistence: transaction result not found")
	// ErrHeaderNotFound is returned by Header lookups for an unknown hash.
	ErrHeaderNotFound = errors.New("persistence: header not found")
)
