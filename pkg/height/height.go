// Package height implements the height tracker: a single file holding
// the last committed block height as 8-byte big-endian, persisted
// outside the record/program KV so a restart can recover the height
// even before the rest of app state is reindexed.
package height

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
)

// ErrCorrupt is returned when the height file exists but cannot be
// parsed as an 8-byte big-endian integer — a fatal condition at
// startup, never recovered silently.
var ErrCorrupt = fmt.Errorf("height: file corrupt")

// Tracker is a mutex-guarded, file-backed monotonic height counter.
type Tracker struct {
	mu   sync.Mutex
	path string
	cur  int64
}

// Open loads the height file at path, creating it at height 0 if
// missing. Returns ErrCorrupt if the file exists but is not exactly 8
// bytes.
func Open(path string) (*Tracker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("height: open: %w", err)
		}
		t := &Tracker{path: path, cur: 0}
		if err := t.persist(0); err != nil {
			return nil, err
		}
		return t, nil
	}
	if len(data) != 8 {
		return nil, fmt.Errorf("%w: %s: want 8 bytes, got %d", ErrCorrupt, path, len(data))
	}
	return &Tracker{path: path, cur: int64(binary.BigEndian.Uint64(data))}, nil
}

// Height returns the last committed height.
func (t *Tracker) Height() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cur
}

// Increment persists height+1 and returns the new value. Called once
// per commit, after the record store's staged layer has been folded
// (the height file is not written atomically with
// the record store, a known, documented limitation — see DESIGN.md).
func (t *Tracker) Increment() (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := t.cur + 1
	if err := t.persist(next); err != nil {
		return 0, err
	}
	t.cur = next
	return next, nil
}

func (t *Tracker) persist(h int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(h))
	if err := os.WriteFile(t.path, buf[:], 0o600); err != nil {
		return fmt.Errorf("height: write: %w", err)
	}
	return nil
}
