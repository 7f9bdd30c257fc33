package tx

import (
	"bytes"
	"testing"

	"github.com/certen/privacy-ledger/pkg/vm"
)

func TestEncodeDecode_Deployment(t *testing.T) {
	var c vm.Commitment
	c[0] = 9
	orig := Transaction{
		ID:   "deploy-1",
		Kind: KindDeployment,
		Program: vm.Program{
			ID:        "prog1",
			Source:    []byte("bytecode"),
			Functions: []string{"transfer", "mint"},
		},
		VerifyingKeys: vm.VerifyingKeySet{"transfer": []byte("vk1"), "mint": []byte("vk2")},
		FeeTransition: &vm.Transition{
			Program: "prog1", Function: "fee", Fee: 5,
			Outputs: []vm.Record{{Commitment: c}},
		},
	}

	data, err := Encode(orig)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.ID != orig.ID || got.Kind != orig.Kind {
		t.Fatalf("id/kind mismatch: got %+v", got)
	}
	if got.Program.ID != orig.Program.ID || !bytes.Equal(got.Program.Source, orig.Program.Source) {
		t.Errorf("program mismatch: got %+v", got.Program)
	}
	if len(got.VerifyingKeys) != 2 || string(got.VerifyingKeys["transfer"]) != "vk1" {
		t.Errorf("verifying keys mismatch: got %v", got.VerifyingKeys)
	}
	if got.FeeTransition == nil || got.FeeTransition.Fee != 5 {
		t.Fatalf("fee transition mismatch: got %+v", got.FeeTransition)
	}
	if got.Fee() != 5 {
		t.Errorf("Fee(): got %d, want 5", got.Fee())
	}
}

func TestEncodeDecode_Execution(t *testing.T) {
	var sn vm.SerialNumber
	sn[0] = 1
	orig := Transaction{
		ID:   "exec-1",
		Kind: KindExecution,
		Transitions: []vm.Transition{
			{Program: "p1", Function: "f1", Inputs: []vm.SerialNumber{sn}, Fee: 3},
			{Program: "p1", Function: "f2", Fee: 4},
		},
	}
	data, err := Encode(orig)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Transitions) != 2 {
		t.Fatalf("transitions: got %d, want 2", len(got.Transitions))
	}
	if got.Fee() != 7 {
		t.Errorf("Fee(): got %d, want 7", got.Fee())
	}
	if len(got.InputSerialNumbers()) != 1 || got.InputSerialNumbers()[0] != sn {
		t.Errorf("input serials: got %v", got.InputSerialNumbers())
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode([]byte("not cbor at all \xff\xfe")); err == nil {
		t.Error("expected ErrMalformedPayload for garbage input")
	}
}

func TestDecode_EmptyExecution(t *testing.T) {
	data, err := Encode(Transaction{ID: "x", Kind: KindExecution})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(data); err == nil {
		t.Error("expected decode of a transitionless execution to fail")
	}
}
