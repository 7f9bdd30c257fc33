// Package tx defines the Transaction wire type and the deterministic
// transaction validator: a tagged Deployment/Execution sum with a fixed
// validation order.
package tx

import (
	"github.com/certen/privacy-ledger/pkg/vm"
)

// Kind tags which variant of Transaction is populated.
type Kind uint8

const (
	KindDeployment Kind = iota
	KindExecution
)

// Transaction is a tagged sum: either a program Deployment or an
// Execution bundling one or more transitions.
type Transaction struct {
	ID   string
	Kind Kind

	// Deployment fields.
	Program       vm.Program
	VerifyingKeys vm.VerifyingKeySet
	FeeTransition *vm.Transition // optional fee-generating transition

	// Execution fields.
	Transitions []vm.Transition
}

// InputSerialNumbers collects every serial number this transaction
// consumes, in transition order — deterministic, never derived from
// map iteration.
func (t Transaction) InputSerialNumbers() []vm.SerialNumber {
	var out []vm.SerialNumber
	if t.Kind == KindDeployment {
		if t.FeeTransition != nil {
			out = append(out, t.FeeTransition.Inputs...)
		}
		return out
	}
	for _, trans := range t.Transitions {
		out = append(out, trans.Inputs...)
	}
	return out
}

// OutputRecords collects every record this transaction would create,
// in transition order.
func (t Transaction) OutputRecords() []vm.Record {
	var out []vm.Record
	if t.Kind == KindDeployment {
		if t.FeeTransition != nil {
			out = append(out, t.FeeTransition.Outputs...)
		}
		return out
	}
	for _, trans := range t.Transitions {
		out = append(out, trans.Outputs...)
	}
	return out
}

// Fee is the transaction's declared fee: the fee transition's fee for
// a deployment, or the sum of transition fees for an execution.
func (t Transaction) Fee() uint64 {
	if t.Kind == KindDeployment {
		if t.FeeTransition != nil {
			return t.FeeTransition.Fee
		}
		return 0
	}
	var total uint64
	for _, trans := range t.Transitions {
		total += trans.Fee
	}
	return total
}
