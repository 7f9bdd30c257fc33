package validator

import (
	"encoding/json"
	"fmt"

	"github.com/certen/privacy-ledger/pkg/store"
	"github.com/certen/privacy-ledger/pkg/vm"
)

var keyValidators = []byte("abci.validators")

type persistedEntry struct {
	Address vm.Address `json:"address"`
	Power   int64      `json:"power"`
}

// SaveToKV persists the current validator list to kv under the fixed
// abci.validators key,
// called after init_chain installs the genesis list — this app never
// produces validator updates after genesis, so that's the only write.
func (s *Set) SaveToKV(kv store.KV) error {
	s.mu.RLock()
	list := append([]Entry(nil), s.validators...)
	s.mu.RUnlock()

	out := make([]persistedEntry, len(list))
	for i, e := range list {
		out[i] = persistedEntry{Address: e.Address, Power: e.Power}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("validator set: marshal: %w", err)
	}
	if err := kv.Set(keyValidators, data); err != nil {
		return fmt.Errorf("validator set: %w", err)
	}
	return nil
}

// LoadFromKV restores a previously persisted validator list, used at
// node startup on every boot after the first (init_chain only runs
// once per chain lifetime; later boots only see info/query/...).
// Returns ok=false if no validator state has been persisted yet.
func LoadFromKV(kv store.KV) (s *Set, ok bool, err error) {
	data, err := kv.Get(keyValidators)
	if err != nil {
		return nil, false, fmt.Errorf("validator set: %w", err)
	}
	if data == nil {
		return nil, false, nil
	}
	var stored []persistedEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, false, fmt.Errorf("validator set: unmarshal: %w", err)
	}
	list := make([]Entry, len(stored))
	for i, e := range stored {
		list[i] = Entry{Address: e.Address, Power: e.Power}
	}
	set := &Set{byAddress: make(map[vm.Address]int64, len(list))}
	set.validators = list
	for _, e := range list {
		set.byAddress[e.Address] = e.Power
	}
	return set, true, nil
}
