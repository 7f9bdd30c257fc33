// Package program implements the program store: an
// append-only, write-once registry from program id to (program, keys),
// staged like the record store so a deployment can still be rolled
// back if a later step of the same deliver_tx fails.
package program

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/certen/privacy-ledger/pkg/store"
	"github.com/certen/privacy-ledger/pkg/vm"
)

var keyProgramPrefix = []byte("program:")

func programKey(id string) []byte {
	return append(append([]byte{}, keyProgramPrefix...), []byte(id)...)
}

type entry struct {
	Source        []byte            `json:"source"`
	Functions     []string          `json:"functions"`
	VerifyingKeys map[string][]byte `json:"verifying_keys"`
}

// Store is the committed+staged program store.
type Store struct {
	mu  sync.RWMutex
	kv  store.KV
	add map[string]entry

	committed map[string]bool
}

// New constructs a program store backed by kv.
func New(kv store.KV) *Store {
	return &Store{kv: kv, add: make(map[string]entry), committed: make(map[string]bool)}
}

// Reindex registers program ids already present in kv after a restart
// (see record.ReindexEntry's doc comment for why this isn't done
// through the store.KV interface itself).
func (s *Store) Reindex(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.committed[id] = true
	}
}

// Exists reports whether id is present in either the committed or
// staged layer.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.existsLocked(id)
}

func (s *Store) existsLocked(id string) bool {
	if _, ok := s.add[id]; ok {
		return true
	}
	return s.committed[id]
}

// Add stages a new program. Fails with store.ErrAlreadyExists if id is
// already present, committed or staged (write-once:
// program immutability).
func (s *Store) Add(p vm.Program, keys vm.VerifyingKeySet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsLocked(p.ID) {
		return fmt.Errorf("program %q: %w", p.ID, store.ErrAlreadyExists)
	}
	e := entry{Source: p.Source, Functions: p.Functions, VerifyingKeys: make(map[string][]byte, len(keys))}
	for fn, k := range keys {
		e.VerifyingKeys[fn] = k
	}
	s.add[p.ID] = e
	return nil
}

// Get performs a point read of a committed program and its verifying
// keys.
func (s *Store) Get(id string) (vm.Program, vm.VerifyingKeySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.committed[id] {
		return vm.Program{}, nil, store.ErrNotFound
	}
	raw, err := s.kv.Get(programKey(id))
	if err != nil {
		return vm.Program{}, nil, fmt.Errorf("program store: %w", err)
	}
	if raw == nil {
		return vm.Program{}, nil, store.ErrNotFound
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return vm.Program{}, nil, fmt.Errorf("program store: %w", err)
	}
	keys := make(vm.VerifyingKeySet, len(e.VerifyingKeys))
	for fn, k := range e.VerifyingKeys {
		keys[fn] = k
	}
	return vm.Program{ID: id, Source: e.Source, Functions: e.Functions}, keys, nil
}

// List returns every committed program id, in byte-lexicographic
// order, for the app-state digest.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.committed))
	for id := range s.committed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Commit folds every staged program into the committed layer in
// byte-lexicographic id order, then clears staging.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.add))
	for id := range s.add {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		e := s.add[id]
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("program store commit: marshal: %w", err)
		}
		if err := s.kv.Set(programKey(id), data); err != nil {
			return fmt.Errorf("program store commit: %w", err)
		}
		s.committed[id] = true
	}
	s.add = make(map[string]entry)
	return nil
}

// Rollback discards staged programs by id, used when a deliver_tx
// fails after staging a deployment.
func (s *Store) Rollback(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.add, id)
	}
}
