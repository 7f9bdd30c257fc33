package tx

import "errors"

// Sentinel errors produced by the transaction validator (error
// taxonomy). Each maps to a nonzero ABCI response code; none of them
// mutate state.
var (
	ErrDuplicateInput  = errors.New("tx: duplicate input within transaction")
	ErrAlreadySpent    = errors.New("tx: input already spent")
	ErrUnknownInput    = errors.New("tx: input serial number unknown")
	ErrDuplicateProgram = errors.New("tx: program already exists")
	ErrEmptyExecution  = errors.New("tx: execution has no transitions")
	ErrProgramNotFound = errors.New("tx: referenced program not found")
	ErrProofInvalid    = errors.New("tx: proof invalid")
	ErrMalformedPayload = errors.New("tx: malformed transaction payload")
)
