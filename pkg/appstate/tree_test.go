package appstate

import (
	"bytes"
	"crypto/sha256"
	"testing"
)

func leaf(b byte) []byte {
	h := sha256.Sum256([]byte{b})
	return h[:]
}

func TestMerkleRoot_Empty(t *testing.T) {
	if r := merkleRoot(nil); r != nil {
		t.Errorf("got %x, want nil", r)
	}
}

func TestMerkleRoot_SingleLeafIsItsOwnHash(t *testing.T) {
	l := leaf(1)
	r := merkleRoot([][]byte{l})
	if !bytes.Equal(r, hashPair(l, l)) {
		t.Error("single leaf should be hashed with itself, matching odd-level duplication")
	}
}

func TestMerkleRoot_OddLeafCountDuplicatesLast(t *testing.T) {
	a, b, c := leaf(1), leaf(2), leaf(3)
	got := merkleRoot([][]byte{a, b, c})

	level1 := []([]byte){hashPair(a, b), hashPair(c, c)}
	want := hashPair(level1[0], level1[1])

	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestMerkleRoot_OrderSensitive(t *testing.T) {
	a, b := leaf(1), leaf(2)
	r1 := merkleRoot([][]byte{a, b})
	r2 := merkleRoot([][]byte{b, a})
	if bytes.Equal(r1, r2) {
		t.Error("swapping leaf order should change the root")
	}
}

func TestMerkleRoot_Deterministic(t *testing.T) {
	a, b, c := leaf(1), leaf(2), leaf(3)
	r1 := merkleRoot([][]byte{a, b, c})
	r2 := merkleRoot([][]byte{a, b, c})
	if !bytes.Equal(r1, r2) {
		t.Error("same leaves in the same order should produce the same root")
	}
}
