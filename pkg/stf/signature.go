// Copyright 2025 Certen Protocol

package stf

import "github.com/certen/nexus/pkg/types"

// SignatureVerifier is the STF-defined predicate that decides whether a
// transaction's signature is acceptable. Real signature verification
// depends on account key material Nexus does not yet manage, so it is
// modeled as an interface: a real implementation can be substituted
// without touching the transition rules themselves.
type SignatureVerifier interface {
	Verify(tx types.Transaction) bool
}

// AcceptAllVerifier is the trivial default: every signature is accepted.
// This is the only SignatureVerifier Nexus ships; it exists so the engine
// always has one to call rather than special-casing a nil verifier.
type AcceptAllVerifier struct{}

// Verify always reports true.
func (AcceptAllVerifier) Verify(types.Transaction) bool { return true }
