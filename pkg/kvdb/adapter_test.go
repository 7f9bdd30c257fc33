package kvdb

import (
	"bytes"
	"testing"

	dbm "github.com/cometbft/cometbft-db"
)

func TestKVAdapter_SetGet(t *testing.T) {
	a := NewKVAdapter(dbm.NewMemDB())

	if v, err := a.Get([]byte("missing")); err != nil || v != nil {
		t.Fatalf("missing key: got (%x, %v), want (nil, nil)", v, err)
	}

	if err := a.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := a.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(v, []byte("v")) {
		t.Errorf("got %q, want %q", v, "v")
	}
}

func TestKVAdapter_NilDB(t *testing.T) {
	a := NewKVAdapter(nil)
	if err := a.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("set on nil db: %v", err)
	}
	if v, err := a.Get([]byte("k")); err != nil || v != nil {
		t.Fatalf("get on nil db: got (%x, %v), want (nil, nil)", v, err)
	}
}
