package abci

import (
	"encoding/json"
	"fmt"

	"github.com/certen/privacy-ledger/pkg/validator"
	"github.com/certen/privacy-ledger/pkg/vm"
)

// GenesisState is the JSON shape fed into init_chain.app_state_bytes
// a list of pre-funded records and the starting validator
// set.
type GenesisState struct {
	Records    []GenesisRecord    `json:"records"`
	Validators []GenesisValidator `json:"validators"`
}

// GenesisRecord is one record to insert directly committed at
// init_chain. Its wire form is the documented two-element array
// [commitment, record], not an object — MarshalJSON/UnmarshalJSON
// implement that shape explicitly since vm.Record already carries its
// own commitment and Go's encoding/json has no tuple-array struct tag.
type GenesisRecord struct {
	Record vm.Record
}

func (g GenesisRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{g.Record.Commitment, g.Record})
}

func (g *GenesisRecord) UnmarshalJSON(data []byte) error {
	var tuple [2]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("abci: decode genesis record: %w", err)
	}
	var commitment vm.Commitment
	if err := json.Unmarshal(tuple[0], &commitment); err != nil {
		return fmt.Errorf("abci: decode genesis record commitment: %w", err)
	}
	var rec vm.Record
	if err := json.Unmarshal(tuple[1], &rec); err != nil {
		return fmt.Errorf("abci: decode genesis record: %w", err)
	}
	if rec.Commitment != commitment {
		return fmt.Errorf("abci: genesis record commitment %x does not match record's own commitment %x", commitment, rec.Commitment)
	}
	g.Record = rec
	return nil
}

// GenesisValidator is one starting validator entry.
type GenesisValidator struct {
	Address vm.Address `json:"address"`
	Power   int64      `json:"power"`
}

// DecodeGenesis parses app_state_bytes into a GenesisState.
func DecodeGenesis(data []byte) (GenesisState, error) {
	var g GenesisState
	if err := json.Unmarshal(data, &g); err != nil {
		return GenesisState{}, fmt.Errorf("abci: decode genesis: %w", err)
	}
	return g, nil
}

func (g GenesisState) validatorEntries() []validator.Entry {
	out := make([]validator.Entry, len(g.Validators))
	for i, v := range g.Validators {
		out[i] = validator.Entry{Address: v.Address, Power: v.Power}
	}
	return out
}
