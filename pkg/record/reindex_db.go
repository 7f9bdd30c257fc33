package record

import (
	"encoding/json"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen/privacy-ledger/pkg/vm"
)

// ReindexFromDB rebuilds the in-memory committed-layer indexes by
// iterating the backing database directly, used once at node startup
// before the ABCI server starts accepting connections (main.go).
// store.KV has no iteration method (the store only needs point
// Get/Set) so this bypasses it for the one-time prefix scan.
func (s *Store) ReindexFromDB(db dbm.DB) error {
	entries, err := scanRecordEntries(db)
	if err != nil {
		return fmt.Errorf("record store reindex: %w", err)
	}
	s.Reindex(entries)
	return nil
}

func scanRecordEntries(db dbm.DB) ([]ReindexEntry, error) {
	byCommitment := make(map[vm.Commitment]ReindexEntry)

	start, end := prefixRange(keyRecordPrefix)
	it, err := db.Iterator(start, end)
	if err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	defer it.Close()
	for ; it.Valid(); it.Next() {
		var commitment vm.Commitment
		copy(commitment[:], it.Key()[len(keyRecordPrefix):])

		var e entry
		if err := json.Unmarshal(it.Value(), &e); err != nil {
			return nil, fmt.Errorf("decode record %x: %w", commitment, err)
		}
		var serial vm.SerialNumber
		copy(serial[:], e.Serial)
		byCommitment[commitment] = ReindexEntry{Commitment: commitment, Serial: serial}
	}
	if err := it.Error(); err != nil {
		return nil, err
	}

	spentStart, spentEnd := prefixRange(keySpentPrefix)
	spentIt, err := db.Iterator(spentStart, spentEnd)
	if err != nil {
		return nil, fmt.Errorf("iterate spent: %w", err)
	}
	defer spentIt.Close()
	for ; spentIt.Valid(); spentIt.Next() {
		var commitment vm.Commitment
		copy(commitment[:], spentIt.Value())
		if re, ok := byCommitment[commitment]; ok {
			re.Spent = true
			byCommitment[commitment] = re
		}
	}
	if err := spentIt.Error(); err != nil {
		return nil, err
	}

	out := make([]ReindexEntry, 0, len(byCommitment))
	for _, e := range byCommitment {
		out = append(out, e)
	}
	return out, nil
}

// prefixRange returns the (start, end) pair db.Iterator needs to visit
// exactly the keys beginning with prefix.
func prefixRange(prefix []byte) ([]byte, []byte) {
	start := append([]byte{}, prefix...)
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return start, end[:i+1]
		}
	}
	return start, nil
}
