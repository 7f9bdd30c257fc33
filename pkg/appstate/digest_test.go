package appstate

import (
	"bytes"
	"testing"

	"github.com/certen/privacy-ledger/pkg/vm"
)

func commitment(b byte) vm.Commitment {
	var c vm.Commitment
	c[0] = b
	return c
}

func TestDigest_Empty(t *testing.T) {
	if d := Digest(nil, nil); d != nil {
		t.Errorf("empty digest: got %x, want nil", d)
	}
}

func TestDigest_OrderIndependent(t *testing.T) {
	c1, c2, c3 := commitment(1), commitment(2), commitment(3)
	d1 := Digest([]vm.Commitment{c1, c2, c3}, []string{"b", "a"})
	d2 := Digest([]vm.Commitment{c3, c1, c2}, []string{"a", "b"})
	if !bytes.Equal(d1, d2) {
		t.Errorf("digest should not depend on input order: %x != %x", d1, d2)
	}
}

func TestDigest_SensitiveToContent(t *testing.T) {
	c1, c2 := commitment(1), commitment(2)
	d1 := Digest([]vm.Commitment{c1}, nil)
	d2 := Digest([]vm.Commitment{c2}, nil)
	if bytes.Equal(d1, d2) {
		t.Error("digests for different commitment sets should differ")
	}

	d3 := Digest([]vm.Commitment{c1}, []string{"prog"})
	if bytes.Equal(d1, d3) {
		t.Error("adding a program id should change the digest")
	}
}

func TestDigest_Deterministic(t *testing.T) {
	c1 := commitment(1)
	d1 := Digest([]vm.Commitment{c1}, []string{"p"})
	d2 := Digest([]vm.Commitment{c1}, []string{"p"})
	if !bytes.Equal(d1, d2) {
		t.Error("digest of identical input should be identical")
	}
}
