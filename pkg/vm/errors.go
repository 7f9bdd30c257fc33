package vm

import "errors"

var (
	ErrFunctionNotFound = errors.New("vm: function not found on program")
	ErrProofInvalid     = errors.New("vm: proof verification failed")
	ErrKeyMalformed     = errors.New("vm: verifying key malformed")
	ErrNotInitialized   = errors.New("vm: capability not initialized")
)
