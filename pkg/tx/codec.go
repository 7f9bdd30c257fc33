package tx

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/certen/privacy-ledger/pkg/vm"
)

// wireTransaction is the CBOR-serializable shadow of Transaction: the
// VerifyingKeys map and optional pointer fields need an explicit
// omitempty-friendly shape, and CBOR's struct tags live here rather
// than on the domain type.
type wireTransaction struct {
	ID            string            `cbor:"id"`
	Kind          uint8             `cbor:"kind"`
	Program       *wireProgram      `cbor:"program,omitempty"`
	VerifyingKeys map[string][]byte `cbor:"verifying_keys,omitempty"`
	FeeTransition *wireTransition   `cbor:"fee_transition,omitempty"`
	Transitions   []wireTransition  `cbor:"transitions,omitempty"`
}

type wireProgram struct {
	ID        string   `cbor:"id"`
	Source    []byte   `cbor:"source"`
	Functions []string `cbor:"functions"`
}

type wireTransition struct {
	Program  string       `cbor:"program"`
	Function string       `cbor:"function"`
	Inputs   [][32]byte   `cbor:"inputs"`
	Outputs  []wireRecord `cbor:"outputs"`
	Origins  [][32]byte   `cbor:"origins"`
	Fee      uint64       `cbor:"fee"`
	Proof    []byte       `cbor:"proof"`
}

type wireRecord struct {
	Commitment [32]byte `cbor:"commitment"`
	Serial     [32]byte `cbor:"serial"`
	Ciphertext []byte   `cbor:"ciphertext"`
}

// Encode produces the compact binary wire form of a transaction.
func Encode(t Transaction) ([]byte, error) {
	w := wireTransaction{ID: t.ID, Kind: uint8(t.Kind)}

	if t.Kind == KindDeployment {
		w.Program = &wireProgram{ID: t.Program.ID, Source: t.Program.Source, Functions: t.Program.Functions}
		w.VerifyingKeys = make(map[string][]byte, len(t.VerifyingKeys))
		for fn, key := range t.VerifyingKeys {
			w.VerifyingKeys[fn] = key
		}
		if t.FeeTransition != nil {
			wt := toWireTransition(*t.FeeTransition)
			w.FeeTransition = &wt
		}
	} else {
		w.Transitions = make([]wireTransition, len(t.Transitions))
		for i, trans := range t.Transitions {
			w.Transitions[i] = toWireTransition(trans)
		}
	}

	data, err := cbor.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return data, nil
}

// Decode parses the compact binary wire form back into a Transaction.
// Decode failures are always reported as ErrMalformedPayload, never a
// panic on malformed payloads.
func Decode(data []byte) (Transaction, error) {
	var w wireTransaction
	if err := cbor.Unmarshal(data, &w); err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	t := Transaction{ID: w.ID, Kind: Kind(w.Kind)}
	switch t.Kind {
	case KindDeployment:
		if w.Program == nil {
			return Transaction{}, fmt.Errorf("%w: deployment missing program", ErrMalformedPayload)
		}
		t.Program = vm.Program{ID: w.Program.ID, Source: w.Program.Source, Functions: w.Program.Functions}
		t.VerifyingKeys = make(vm.VerifyingKeySet, len(w.VerifyingKeys))
		for fn, key := range w.VerifyingKeys {
			t.VerifyingKeys[fn] = key
		}
		if w.FeeTransition != nil {
			trans := fromWireTransition(*w.FeeTransition)
			t.FeeTransition = &trans
		}
	case KindExecution:
		if len(w.Transitions) == 0 {
			return Transaction{}, fmt.Errorf("%w: %v", ErrMalformedPayload, ErrEmptyExecution)
		}
		t.Transitions = make([]vm.Transition, len(w.Transitions))
		for i, wt := range w.Transitions {
			t.Transitions[i] = fromWireTransition(wt)
		}
	default:
		return Transaction{}, fmt.Errorf("%w: unknown transaction kind %d", ErrMalformedPayload, w.Kind)
	}
	return t, nil
}

func toWireTransition(trans vm.Transition) wireTransition {
	wt := wireTransition{
		Program:  trans.Program,
		Function: trans.Function,
		Fee:      trans.Fee,
		Proof:    trans.Proof,
	}
	for _, in := range trans.Inputs {
		wt.Inputs = append(wt.Inputs, [32]byte(in))
	}
	for _, out := range trans.Outputs {
		wt.Outputs = append(wt.Outputs, wireRecord{Commitment: [32]byte(out.Commitment), Serial: [32]byte(out.Serial), Ciphertext: out.Ciphertext})
	}
	for _, origin := range trans.Origins {
		wt.Origins = append(wt.Origins, [32]byte(origin.Commitment))
	}
	return wt
}

func fromWireTransition(wt wireTransition) vm.Transition {
	trans := vm.Transition{
		Program:  wt.Program,
		Function: wt.Function,
		Fee:      wt.Fee,
		Proof:    wt.Proof,
	}
	for _, in := range wt.Inputs {
		trans.Inputs = append(trans.Inputs, vm.SerialNumber(in))
	}
	for _, out := range wt.Outputs {
		trans.Outputs = append(trans.Outputs, vm.Record{Commitment: vm.Commitment(out.Commitment), Serial: vm.SerialNumber(out.Serial), Ciphertext: out.Ciphertext})
	}
	for _, origin := range wt.Origins {
		trans.Origins = append(trans.Origins, vm.Origin{Commitment: vm.Commitment(origin)})
	}
	return trans
}
