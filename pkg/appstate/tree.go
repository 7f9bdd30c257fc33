package appstate

import "crypto/sha256"

// merkleRoot computes a binary Merkle root over leaves, duplicating the
// last node of a level when its count is odd (standard Merkle
// construction). Leaves are consumed in the order given, so callers
// that need a deterministic digest must sort first — Digest does this.
//
// A pure function rather than a stateful tree type: nothing here needs
// incremental construction or inclusion proofs, only the root of a
// fresh leaf set on every commit.
func merkleRoot(leaves [][]byte) []byte {
	if len(leaves) == 0 {
		return nil
	}
	level := leaves
	for {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hashPair(level[i], level[i+1]))
			} else {
				next = append(next, hashPair(level[i], level[i]))
			}
		}
		level = next
		if len(level) == 1 {
			return level[0]
		}
	}
}

func hashPair(left, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}
