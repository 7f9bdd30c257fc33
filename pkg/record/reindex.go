package record

import "github.com/certen/privacy-ledger/pkg/vm"

// ReindexEntry is one committed record as read back off the backing
// KV's native iterator at startup. store.KV itself has no iteration
// method (the record store only needs point Get/Set in steady state); cometbft-db's
// dbm.DB does, so ReindexFromDB (called by main.go at boot) iterates
// the raw database directly and replays entries here before the ABCI
// server starts accepting connections.
type ReindexEntry struct {
	Commitment vm.Commitment
	Serial     vm.SerialNumber
	Spent      bool
}

// Reindex rebuilds the in-memory committed-layer indexes from a full
// scan of the backing store. Must be called once at startup before any
// other Store method, and never concurrently with it.
func (s *Store) Reindex(entries []ReindexEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.committedBySerial[e.Serial] = e.Commitment
		s.commitmentSerial[e.Commitment] = e.Serial
		if e.Spent {
			s.committedSpent[e.Serial] = true
		}
	}
}
