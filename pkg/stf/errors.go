// Copyright 2025 Certen Protocol

package stf

import "errors"

// Sentinel failure reasons for SubmitProof/InitAccount rejections, one
// named error per failure mode. These failures are recorded against the
// offending transaction as Failed; the rest of the batch still commits.
var (
	ErrStatementMismatch    = errors.New("stf: statement does not match account")
	ErrAccountUninitialized = errors.New("stf: account has not been initialized")
	ErrNonMonotoneHeight    = errors.New("stf: proof height does not exceed account height")
	ErrStartHashMismatch    = errors.New("stf: proof start_nexus_hash does not match account")
	ErrHeightMismatch       = errors.New("stf: transaction height does not match proof height")
	ErrInvalidSignature     = errors.New("stf: signature verification failed")
)
