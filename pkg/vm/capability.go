package vm

// Capability is the narrow interface this core calls into the external
// zero-knowledge VM through. A node operator wires in a concrete
// implementation (Groth16Capability, below, or a stub for tests).
type Capability interface {
	// VerifyDeployment checks that a deployed program's verifying keys
	// are well-formed and, when fee is non-nil, that the deployment's
	// fee transition itself verifies against the capability's own
	// protocol-level verifying key (fee transitions are not
	// program-specific, so no external key is supplied for them).
	VerifyDeployment(program Program, keys VerifyingKeySet, fee *Transition) error

	// VerifyExecution checks one transition's proof against the
	// function's verifying key.
	VerifyExecution(transition Transition, key VerifyingKey) error

	// SynthesizeKey derives the verifying key for one function of a
	// program. Returns ErrFunctionNotFound if the function does not
	// exist on the program.
	SynthesizeKey(program Program, function string) (VerifyingKey, error)

	// MintReward constructs a coinbase record addressed to addr worth
	// amount, returning its commitment and ciphertext.
	MintReward(addr Address, amount uint64) (Commitment, Record, error)

	// Decrypt is exercised only by tests exercising end-to-end scenario
	// (cross-account decrypt); the ABCI state machine never
	// calls it.
	Decrypt(record Record, owner Address) ([]byte, error)
}
