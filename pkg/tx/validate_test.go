package tx

import (
	"errors"
	"testing"

	"github.com/certen/privacy-ledger/pkg/vm"
)

// fakeRecords is a minimal RecordStore: every serial in known is
// treated as existing, and every serial in spent (a subset of known)
// as already spent. A serial absent from a non-nil known is unknown
// entirely; a nil known treats every serial as known.
type fakeRecords struct {
	spent map[vm.SerialNumber]bool
	known map[vm.SerialNumber]bool
}

func (f fakeRecords) IsUnspent(sn vm.SerialNumber) bool { return !f.spent[sn] }

func (f fakeRecords) Known(sn vm.SerialNumber) bool {
	if f.known != nil {
		return f.known[sn]
	}
	return true
}

// fakePrograms is a minimal ProgramStore backed by a map.
type fakePrograms struct {
	progs map[string]vm.VerifyingKeySet
}

func (f fakePrograms) Exists(id string) bool { _, ok := f.progs[id]; return ok }
func (f fakePrograms) Get(id string) (vm.Program, vm.VerifyingKeySet, error) {
	keys, ok := f.progs[id]
	if !ok {
		return vm.Program{}, nil, ErrProgramNotFound
	}
	return vm.Program{ID: id}, keys, nil
}

// fakeCapability always accepts, unless reject is set.
type fakeCapability struct{ reject bool }

func (c fakeCapability) VerifyDeployment(vm.Program, vm.VerifyingKeySet, *vm.Transition) error {
	if c.reject {
		return vm.ErrProofInvalid
	}
	return nil
}
func (c fakeCapability) VerifyExecution(vm.Transition, vm.VerifyingKey) error {
	if c.reject {
		return vm.ErrProofInvalid
	}
	return nil
}
func (c fakeCapability) SynthesizeKey(vm.Program, string) (vm.VerifyingKey, error) {
	return vm.VerifyingKey("vk"), nil
}
func (c fakeCapability) MintReward(vm.Address, uint64) (vm.Commitment, vm.Record, error) {
	return vm.Commitment{}, vm.Record{}, nil
}
func (c fakeCapability) Decrypt(vm.Record, vm.Address) ([]byte, error) { return nil, nil }

func serial(b byte) vm.SerialNumber {
	var sn vm.SerialNumber
	sn[0] = b
	return sn
}

func TestValidate_DuplicateInput(t *testing.T) {
	sn := serial(1)
	trans := Transaction{Kind: KindExecution, Transitions: []vm.Transition{
		{Program: "p", Function: "f", Inputs: []vm.SerialNumber{sn, sn}},
	}}
	err := Validate(trans, fakeRecords{spent: map[vm.SerialNumber]bool{}}, fakePrograms{progs: map[string]vm.VerifyingKeySet{"p": {"f": nil}}}, fakeCapability{})
	if err == nil {
		t.Error("expected ErrDuplicateInput")
	}
}

func TestValidate_AlreadySpentInput(t *testing.T) {
	sn := serial(1)
	trans := Transaction{Kind: KindExecution, Transitions: []vm.Transition{
		{Program: "p", Function: "f", Inputs: []vm.SerialNumber{sn}},
	}}
	records := fakeRecords{spent: map[vm.SerialNumber]bool{sn: true}}
	progs := fakePrograms{progs: map[string]vm.VerifyingKeySet{"p": {"f": nil}}}
	if err := Validate(trans, records, progs, fakeCapability{}); err == nil {
		t.Error("expected ErrAlreadySpent")
	}
}

func TestValidate_UnknownInput(t *testing.T) {
	sn := serial(1)
	trans := Transaction{Kind: KindExecution, Transitions: []vm.Transition{
		{Program: "p", Function: "f", Inputs: []vm.SerialNumber{sn}},
	}}
	records := fakeRecords{known: map[vm.SerialNumber]bool{}}
	progs := fakePrograms{progs: map[string]vm.VerifyingKeySet{"p": {"f": nil}}}
	err := Validate(trans, records, progs, fakeCapability{})
	if !errors.Is(err, ErrUnknownInput) {
		t.Errorf("got %v, want ErrUnknownInput", err)
	}
	if errors.Is(err, ErrAlreadySpent) {
		t.Error("unknown input must not also be reported as ErrAlreadySpent")
	}
}

func TestValidate_ExecutionSuccess(t *testing.T) {
	sn := serial(1)
	trans := Transaction{Kind: KindExecution, Transitions: []vm.Transition{
		{Program: "p", Function: "f", Inputs: []vm.SerialNumber{sn}},
	}}
	records := fakeRecords{spent: map[vm.SerialNumber]bool{}}
	progs := fakePrograms{progs: map[string]vm.VerifyingKeySet{"p": {"f": nil}}}
	if err := Validate(trans, records, progs, fakeCapability{}); err != nil {
		t.Errorf("expected success, got %v", err)
	}
}

func TestValidate_ExecutionUnknownProgram(t *testing.T) {
	trans := Transaction{Kind: KindExecution, Transitions: []vm.Transition{{Program: "missing", Function: "f"}}}
	records := fakeRecords{spent: map[vm.SerialNumber]bool{}}
	progs := fakePrograms{progs: map[string]vm.VerifyingKeySet{}}
	if err := Validate(trans, records, progs, fakeCapability{}); err == nil {
		t.Error("expected ErrProgramNotFound")
	}
}

func TestValidate_ExecutionProofInvalid(t *testing.T) {
	trans := Transaction{Kind: KindExecution, Transitions: []vm.Transition{{Program: "p", Function: "f"}}}
	records := fakeRecords{spent: map[vm.SerialNumber]bool{}}
	progs := fakePrograms{progs: map[string]vm.VerifyingKeySet{"p": {"f": nil}}}
	if err := Validate(trans, records, progs, fakeCapability{reject: true}); err == nil {
		t.Error("expected ErrProofInvalid")
	}
}

func TestValidate_DeploymentDuplicateProgram(t *testing.T) {
	trans := Transaction{Kind: KindDeployment, Program: vm.Program{ID: "p"}}
	records := fakeRecords{spent: map[vm.SerialNumber]bool{}}
	progs := fakePrograms{progs: map[string]vm.VerifyingKeySet{"p": {}}}
	if err := Validate(trans, records, progs, fakeCapability{}); err == nil {
		t.Error("expected ErrDuplicateProgram")
	}
}

func TestValidate_DeploymentSuccess(t *testing.T) {
	trans := Transaction{Kind: KindDeployment, Program: vm.Program{ID: "new-prog"}}
	records := fakeRecords{spent: map[vm.SerialNumber]bool{}}
	progs := fakePrograms{progs: map[string]vm.VerifyingKeySet{}}
	if err := Validate(trans, records, progs, fakeCapability{}); err != nil {
		t.Errorf("expected success, got %v", err)
	}
}

func TestValidate_EmptyExecution(t *testing.T) {
	trans := Transaction{Kind: KindExecution}
	records := fakeRecords{spent: map[vm.SerialNumber]bool{}}
	progs := fakePrograms{progs: map[string]vm.VerifyingKeySet{}}
	if err := Validate(trans, records, progs, fakeCapability{}); err != ErrEmptyExecution {
		t.Errorf("got %v, want %v", err, ErrEmptyExecution)
	}
}
