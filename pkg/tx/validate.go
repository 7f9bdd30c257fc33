package tx

import (
	"fmt"

	"github.com/certen/privacy-ledger/pkg/vm"
)

// RecordStore is the narrow view of the record store the validator
// needs: whether an input serial number is known at all, and whether
// it is still spendable.
type RecordStore interface {
	IsUnspent(serial vm.SerialNumber) bool
	Known(serial vm.SerialNumber) bool
}

// ProgramStore is the narrow view of the program store the validator
// needs: existence checks and verifying-key lookup.
type ProgramStore interface {
	Exists(id string) bool
	Get(id string) (vm.Program, vm.VerifyingKeySet, error)
}

// Validate runs the four-stage transaction validator in the order
// fixed by this order: duplicate inputs, unspent inputs, structural
// checks, cryptographic verification. It performs no state mutation;
// callers (check_tx, deliver_tx) decide what to do with a nil result.
func Validate(t Transaction, records RecordStore, programs ProgramStore, capability vm.Capability) error {
	if err := checkNoDuplicateInputs(t); err != nil {
		return err
	}
	if err := checkInputsUnspent(t, records); err != nil {
		return err
	}
	switch t.Kind {
	case KindDeployment:
		return validateDeployment(t, programs, capability)
	case KindExecution:
		return validateExecution(t, programs, capability)
	default:
		return fmt.Errorf("%w: unknown transaction kind %d", ErrMalformedPayload, t.Kind)
	}
}

func checkNoDuplicateInputs(t Transaction) error {
	seen := make(map[vm.SerialNumber]bool)
	for _, sn := range t.InputSerialNumbers() {
		if seen[sn] {
			return fmt.Errorf("%w: %x", ErrDuplicateInput, sn)
		}
		seen[sn] = true
	}
	return nil
}

func checkInputsUnspent(t Transaction, records RecordStore) error {
	for _, sn := range t.InputSerialNumbers() {
		if !records.Known(sn) {
			return fmt.Errorf("%w: %x", ErrUnknownInput, sn)
		}
		if !records.IsUnspent(sn) {
			return fmt.Errorf("%w: %x", ErrAlreadySpent, sn)
		}
	}
	return nil
}

func validateDeployment(t Transaction, programs ProgramStore, capability vm.Capability) error {
	if t.Program.ID == "" {
		return fmt.Errorf("%w: deployment missing program id", ErrMalformedPayload)
	}
	if programs.Exists(t.Program.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateProgram, t.Program.ID)
	}
	if err := capability.VerifyDeployment(t.Program, t.VerifyingKeys, t.FeeTransition); err != nil {
		return fmt.Errorf("%w: %v", ErrProofInvalid, err)
	}
	return nil
}

func validateExecution(t Transaction, programs ProgramStore, capability vm.Capability) error {
	if len(t.Transitions) == 0 {
		return ErrEmptyExecution
	}
	for _, trans := range t.Transitions {
		_, keys, err := programs.Get(trans.Program)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrProgramNotFound, trans.Program)
		}
		key, ok := keys[trans.Function]
		if !ok {
			return fmt.Errorf("%w: %s.%s", ErrProgramNotFound, trans.Program, trans.Function)
		}
		if err := capability.VerifyExecution(trans, key); err != nil {
			return fmt.Errorf("%w: %s.%s: %v", ErrProofInvalid, trans.Program, trans.Function, err)
		}
	}
	return nil
}
