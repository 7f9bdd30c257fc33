// Package record implements the record store: a two-layer
// committed/staged set of encrypted records indexed by commitment, with
// a serial-number spend index. The staged layer lets deliver_tx
// speculatively add and spend records without touching the KV until
// commit folds the staged set down.
//
// Serial numbers are opaque to this store:
// they are derivable from a record only by its owning key, so every Add
// call must supply the serial number the record will eventually be
// spent with, establishing the auxiliary serial->commitment mapping up
// front.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/certen/privacy-ledger/pkg/store"
	"github.com/certen/privacy-ledger/pkg/vm"
)

var (
	keyRecordPrefix = []byte("record:commitment:")
	keySpentPrefix  = []byte("record:spent:")
)

func recordKey(c vm.Commitment) []byte {
	return append(append([]byte{}, keyRecordPrefix...), c[:]...)
}

func spentKey(sn vm.SerialNumber) []byte {
	return append(append([]byte{}, keySpentPrefix...), sn[:]...)
}

// entry is the JSON-persisted value for one committed record.
type entry struct {
	Ciphertext []byte `json:"ciphertext"`
	Serial     []byte `json:"serial"`
}

type staged struct {
	record vm.Record
}

// Store is the committed+staged record store. Single-writer from the
// consensus connection; Scan/ScanSpent read the committed layer only
// and may run concurrently with staging.
type Store struct {
	mu sync.RWMutex
	kv store.KV

	stagedAdds   map[vm.Commitment]staged
	stagedSpends map[vm.SerialNumber]vm.Commitment

	// In-memory mirrors of the committed layer, rebuilt by Reindex.
	committedBySerial map[vm.SerialNumber]vm.Commitment
	committedSpent    map[vm.SerialNumber]bool
	commitmentSerial  map[vm.Commitment]vm.SerialNumber
}

// New constructs a record store backed by kv.
func New(kv store.KV) *Store {
	return &Store{
		kv:                kv,
		stagedAdds:        make(map[vm.Commitment]staged),
		stagedSpends:      make(map[vm.SerialNumber]vm.Commitment),
		committedBySerial: make(map[vm.SerialNumber]vm.Commitment),
		committedSpent:    make(map[vm.SerialNumber]bool),
		commitmentSerial:  make(map[vm.Commitment]vm.SerialNumber),
	}
}

// Add stages a new unspent record under its commitment, indexed for
// future spends by rec.Serial. Fails if the commitment already exists
// in either layer.
func (s *Store) Add(commitment vm.Commitment, rec vm.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stagedAdds[commitment]; ok {
		return fmt.Errorf("record %x: %w", commitment, store.ErrAlreadyExists)
	}
	if _, ok := s.commitmentSerial[commitment]; ok {
		return fmt.Errorf("record %x: %w", commitment, store.ErrAlreadyExists)
	}

	s.stagedAdds[commitment] = staged{record: rec}
	return nil
}

// AddCommitted inserts a record directly into the committed layer,
// bypassing staging — used at genesis (init_chain) and for reward
// records minted during commit.
func (s *Store) AddCommitted(commitment vm.Commitment, rec vm.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addCommittedLocked(commitment, rec)
}

func (s *Store) addCommittedLocked(commitment vm.Commitment, rec vm.Record) error {
	if _, ok := s.commitmentSerial[commitment]; ok {
		return fmt.Errorf("record %x: %w", commitment, store.ErrAlreadyExists)
	}

	e := entry{Ciphertext: rec.Ciphertext, Serial: rec.Serial[:]}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("record store: marshal: %w", err)
	}
	if err := s.kv.Set(recordKey(commitment), data); err != nil {
		return fmt.Errorf("record store: %w", err)
	}
	s.committedBySerial[rec.Serial] = commitment
	s.commitmentSerial[commitment] = rec.Serial
	return nil
}

// Spend stages a spend of serial. Fails with ErrUnknownInput if the
// serial number does not resolve to any record, or ErrAlreadySpent if
// it has already been consumed (committed or staged this block).
func (s *Store) Spend(serial vm.SerialNumber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unspent, commitment, known := s.isUnspentLocked(serial)
	if !known {
		return ErrUnknownInput
	}
	if !unspent {
		return ErrAlreadySpent
	}
	s.stagedSpends[serial] = commitment
	return nil
}

// IsUnspent reports whether serial refers to a record that is neither
// committed-spent nor staged-spent. Unknown serial numbers return
// false.
func (s *Store) IsUnspent(serial vm.SerialNumber) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unspent, _, _ := s.isUnspentLocked(serial)
	return unspent
}

// Known reports whether serial resolves to any record in this store at
// all, spent or not — distinguishes an unknown serial number from one
// that is merely already spent.
func (s *Store) Known(serial vm.SerialNumber) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, _, known := s.isUnspentLocked(serial)
	return known
}

func (s *Store) isUnspentLocked(serial vm.SerialNumber) (unspent bool, commitment vm.Commitment, known bool) {
	if c, staged := s.stagedSpends[serial]; staged {
		return false, c, true
	}
	// By design, records
	// staged earlier in this block are not resolvable by serial number
	// until commit — only the committed index is consulted here.
	if c, ok := s.committedBySerial[serial]; ok {
		return !s.committedSpent[serial], c, true
	}
	return false, vm.Commitment{}, false
}

// Commit atomically folds every staged add and spend into the
// committed layer and clears staging. On any underlying KV failure the
// commit stops and returns an error; staged state is left as-is so the
// caller can inspect what remains pending.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	commitments := make([]vm.Commitment, 0, len(s.stagedAdds))
	for c := range s.stagedAdds {
		commitments = append(commitments, c)
	}
	sortCommitments(commitments)

	for _, c := range commitments {
		st := s.stagedAdds[c]
		if err := s.addCommittedLocked(c, st.record); err != nil {
			return fmt.Errorf("record store commit: %w", err)
		}
	}

	serials := make([]vm.SerialNumber, 0, len(s.stagedSpends))
	for sn := range s.stagedSpends {
		serials = append(serials, sn)
	}
	sortSerials(serials)

	for _, sn := range serials {
		if err := s.markSpentLocked(sn); err != nil {
			return fmt.Errorf("record store commit: %w", err)
		}
	}

	s.stagedAdds = make(map[vm.Commitment]staged)
	s.stagedSpends = make(map[vm.SerialNumber]vm.Commitment)
	return nil
}

func (s *Store) markSpentLocked(serial vm.SerialNumber) error {
	commitment, ok := s.committedBySerial[serial]
	if !ok {
		return fmt.Errorf("%w: %x", ErrUnknownInput, serial)
	}
	s.committedSpent[serial] = true
	if err := s.kv.Set(spentKey(serial), commitment[:]); err != nil {
		return fmt.Errorf("record store: %w", err)
	}
	return nil
}

// Rollback discards staged mutations for the given commitments and
// serial numbers, used when a deliver_tx's validation fails partway
// through applying effects (a "nested sub-scope, rolled
// back on first error"). The ABCI layer tracks which commitments/
// serials it staged for the in-flight transaction and rolls back
// exactly those on failure, never a partial subset (see pkg/abci).
func (s *Store) Rollback(commitments []vm.Commitment, serials []vm.SerialNumber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range commitments {
		delete(s.stagedAdds, c)
	}
	for _, sn := range serials {
		delete(s.stagedSpends, sn)
	}
}

// Scan enumerates every committed (commitment, record) pair in
// byte-lexicographic commitment order — point-in-time as of the last
// commit, never reflecting in-flight staged adds.
func (s *Store) Scan() ([]vm.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	commitments := make([]vm.Commitment, 0, len(s.commitmentSerial))
	for c := range s.commitmentSerial {
		commitments = append(commitments, c)
	}
	sortCommitments(commitments)

	out := make([]vm.Record, 0, len(commitments))
	for _, c := range commitments {
		raw, err := s.kv.Get(recordKey(c))
		if err != nil {
			return nil, fmt.Errorf("record store scan: %w", err)
		}
		if raw == nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("record store scan: %w", err)
		}
		var serial vm.SerialNumber
		copy(serial[:], e.Serial)
		out = append(out, vm.Record{Commitment: c, Serial: serial, Ciphertext: e.Ciphertext})
	}
	return out, nil
}

// ScanSpent enumerates every committed spent serial number in
// byte-lexicographic order.
func (s *Store) ScanSpent() ([]vm.SerialNumber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]vm.SerialNumber, 0, len(s.committedSpent))
	for sn, spent := range s.committedSpent {
		if spent {
			out = append(out, sn)
		}
	}
	sortSerials(out)
	return out, nil
}

func sortCommitments(cs []vm.Commitment) {
	sort.Slice(cs, func(i, j int) bool { return bytes.Compare(cs[i][:], cs[j][:]) < 0 })
}

func sortSerials(sns []vm.SerialNumber) {
	sort.Slice(sns, func(i, j int) bool { return bytes.Compare(sns[i][:], sns[j][:]) < 0 })
}
