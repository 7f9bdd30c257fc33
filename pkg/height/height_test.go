package height

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesAtZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abci.height")
	tr, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if h := tr.Height(); h != 0 {
		t.Errorf("fresh height: got %d, want 0", h)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected height file to be created: %v", err)
	}
}

func TestIncrement_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abci.height")
	tr, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := tr.Increment(); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if h := tr.Height(); h != 3 {
		t.Errorf("height after 3 increments: got %d, want 3", h)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if h := reopened.Height(); h != 3 {
		t.Errorf("reopened height: got %d, want 3", h)
	}
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abci.height")
	if err := os.WriteFile(path, []byte("short"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected an error opening a corrupt height file")
	}
}
