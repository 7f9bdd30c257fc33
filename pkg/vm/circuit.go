package vm

import (
	"github.com/consensys/gnark/frontend"
)

// =============================================================================
// CIRCUIT DEFINITIONS
//
// The real per-program circuits live inside the external ZK-VM (
// puts "the underlying zero-knowledge VM" out of scope). What this core
// needs is a single concrete Groth16 circuit shape it can compile, prove
// against in tests and verify against in production — a commitment-based
// stand-in for the opaque per-function circuits the VM would otherwise
// supply.
// =============================================================================

// TransitionCircuit proves that a transition's declared commitment is
// consistent with its program, function, inputs and outputs, without
// revealing the private witness binding them together.
type TransitionCircuit struct {
	Commitment frontend.Variable `gnark:",public"`
	Fee        frontend.Variable `gnark:",public"`

	ProgramCommitment  frontend.Variable
	FunctionCommitment frontend.Variable
	InputsCommitment   frontend.Variable
	OutputsCommitment  frontend.Variable
	Blinding           frontend.Variable
}

func (c *TransitionCircuit) Define(api frontend.API) error {
	computed := combineCommitment(api,
		c.ProgramCommitment, c.FunctionCommitment,
		c.InputsCommitment, c.OutputsCommitment, c.Blinding)
	api.AssertIsEqual(c.Commitment, computed)
	api.AssertIsDifferent(c.Blinding, 0)
	return nil
}

// RewardCircuit proves that a coinbase record's commitment correctly
// binds the recipient address and minted amount.
type RewardCircuit struct {
	Commitment frontend.Variable `gnark:",public"`
	Amount     frontend.Variable `gnark:",public"`
	Address    frontend.Variable `gnark:",public"`

	Nonce frontend.Variable
}

func (c *RewardCircuit) Define(api frontend.API) error {
	computed := combineCommitment(api, c.Address, c.Amount, c.Nonce, c.Nonce, c.Nonce)
	api.AssertIsEqual(c.Commitment, computed)
	api.AssertIsDifferent(c.Nonce, 0)
	return nil
}

// combineCommitment is a fixed linear combination over a mixing
// coefficient, the same shape a Pedersen-style commitment
// uses: result = a + b*r + c*r^2 + d*r^3 + e*r^4.
func combineCommitment(api frontend.API, a, b, c, d, e frontend.Variable) frontend.Variable {
	r := frontend.Variable(7)
	result := a
	result = api.Add(result, api.Mul(b, r))
	r2 := api.Mul(r, r)
	result = api.Add(result, api.Mul(c, r2))
	r3 := api.Mul(r2, r)
	result = api.Add(result, api.Mul(d, r3))
	r4 := api.Mul(r3, r)
	result = api.Add(result, api.Mul(e, r4))
	return result
}
