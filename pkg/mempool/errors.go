// Copyright 2025 Certen Protocol

package mempool

import "errors"

var (
	// ErrInvalidCursor is returned by Truncate when cursor does not lie
	// within [head, nextSeq]: it must name a point the pool has actually
	// reached, never one in the past or the future.
	ErrInvalidCursor = errors.New("mempool: cursor out of range")
)
