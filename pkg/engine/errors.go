// Copyright 2025 Certen Protocol

package engine

import "errors"

var (
	// ErrHeaderMismatch is the fatal invariant breach when a proof's
	// journal does not commit to the header the engine asked it to prove.
	ErrHeaderMismatch = errors.New("engine: proof journal does not match candidate header")
	// ErrNotRunning is returned by Stop when the engine is not running.
	ErrNotRunning = errors.New("engine: not running")
)
