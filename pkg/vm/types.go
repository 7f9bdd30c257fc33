// Package vm defines the narrow capability this core consumes from the
// external zero-knowledge VM: proof verification, key synthesis and
// ciphertext/coinbase minting. The VM's own proving internals — circuit
// design per deployed program, ciphertext algebra — are out of scope for
// this core; what lives here is the boundary and one concrete
// Groth16-backed implementation of it.
package vm

import (
	"github.com/ethereum/go-ethereum/common"
)

// Address identifies the owner of a record or a validator's reward
// recipient. Reuses go-ethereum's 20-byte address type rather than
// inventing a parallel one.
type Address = common.Address

// Commitment uniquely identifies a record on the ledger.
type Commitment [32]byte

// SerialNumber is the unlinkable spend tag revealed when a record is
// consumed.
type SerialNumber [32]byte

// Record is an opaque encrypted unspent-output ciphertext, paired with
// the serial number it will eventually be spent with. The core never
// looks inside the ciphertext; only the VM (or, client-side, the owning
// key) can decrypt it. Serial numbers are in general derivable from a
// record only by its owning key — the
// producing party computes it off-chain and the wire format carries it
// alongside the ciphertext so the record store can index it at add
// time without itself understanding the proof system.
type Record struct {
	Commitment Commitment
	Serial     SerialNumber
	Ciphertext []byte
}

// Program is a deployed zero-knowledge program: a stable identifier plus
// its source/bytecode, opaque to this core beyond the identifier.
type Program struct {
	ID        string
	Source    []byte
	Functions []string
}

// VerifyingKey is a gnark-serialized Groth16 verifying key for one
// function of one program, opaque beyond its byte representation.
type VerifyingKey []byte

// VerifyingKeySet maps a function identifier to its verifying key.
type VerifyingKeySet map[string]VerifyingKey

// Origin references where an input record came from: either a prior
// commitment on the ledger or an external state root (state roots are
// not modeled by this core; only the commitment case occurs in
// practice).
type Origin struct {
	Commitment Commitment
}

// Transition is the unit of execution inside an Execution transaction:
// it names a program and function, consumes inputs (by serial number),
// produces outputs (new records), references the origin of each input,
// carries a fee, and a proof of correct execution.
type Transition struct {
	Program  string
	Function string
	Inputs   []SerialNumber
	Outputs  []Record
	Origins  []Origin
	Fee      uint64
	Proof    []byte
}
