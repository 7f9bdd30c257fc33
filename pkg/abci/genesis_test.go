package abci

import (
	"encoding/json"
	"testing"

	"github.com/certen/privacy-ledger/pkg/vm"
)

func TestGenesisRecord_TupleRoundTrip(t *testing.T) {
	var rec vm.Record
	rec.Commitment[0] = 0x42
	rec.Serial[0] = 0x07
	rec.Ciphertext = []byte("ciphertext")

	g := GenesisRecord{Record: rec}
	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		t.Fatalf("expected a JSON array, got %s: %v", data, err)
	}
	if len(tuple) != 2 {
		t.Fatalf("expected a 2-element tuple, got %d elements", len(tuple))
	}

	var decoded GenesisRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Record.Commitment != rec.Commitment {
		t.Errorf("commitment: got %x, want %x", decoded.Record.Commitment, rec.Commitment)
	}
	if decoded.Record.Serial != rec.Serial {
		t.Errorf("serial: got %x, want %x", decoded.Record.Serial, rec.Serial)
	}
}

func TestGenesisRecord_CommitmentMismatchRejected(t *testing.T) {
	var rec vm.Record
	rec.Commitment[0] = 0x01

	var other vm.Commitment
	other[0] = 0x02

	data, err := json.Marshal([2]interface{}{other, rec})
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}

	var decoded GenesisRecord
	if err := json.Unmarshal(data, &decoded); err == nil {
		t.Error("expected a mismatched tuple commitment to be rejected")
	}
}

func TestDecodeGenesis_RecordsArrayShape(t *testing.T) {
	payload := `{
		"records": [[[66], {"Commitment":[66],"Serial":[7],"Ciphertext":null}]],
		"validators": [{"address":"0x0000000000000000000000000000000000000001","power":10}]
	}`
	g, err := DecodeGenesis([]byte(payload))
	if err != nil {
		t.Fatalf("decode genesis: %v", err)
	}
	if len(g.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(g.Records))
	}
	if g.Records[0].Record.Commitment[0] != 66 {
		t.Errorf("commitment byte: got %d, want 66", g.Records[0].Record.Commitment[0])
	}
}
