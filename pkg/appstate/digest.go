// Package appstate computes the deterministic app-state digest
// computed at each commit: a Merkle root over sha256 leaves built from
// sorted committed commitments and program ids, so two nodes that
// applied the same transactions in the same order always agree on the
// digest.
package appstate

import (
	"bytes"
	"crypto/sha256"
	"sort"

	"github.com/certen/privacy-ledger/pkg/vm"
)

// Digest computes the app-state root over the given committed
// commitments and program ids. Both inputs are sorted internally, so
// callers may pass them in any order (e.g. straight from a map-backed
// scan) and still get a stable digest. Returns nil if both are empty —
// An empty digest is acceptable when the consensus engine doesn't require one.
func Digest(commitments []vm.Commitment, programIDs []string) []byte {
	leaves := make([][]byte, 0, len(commitments)+len(programIDs))

	sortedCommitments := append([]vm.Commitment(nil), commitments...)
	sort.Slice(sortedCommitments, func(i, j int) bool {
		return bytes.Compare(sortedCommitments[i][:], sortedCommitments[j][:]) < 0
	})
	for _, c := range sortedCommitments {
		h := sha256.Sum256(append([]byte("record:"), c[:]...))
		leaves = append(leaves, h[:])
	}

	sortedIDs := append([]string(nil), programIDs...)
	sort.Strings(sortedIDs)
	for _, id := range sortedIDs {
		h := sha256.Sum256(append([]byte("program:"), []byte(id)...))
		leaves = append(leaves, h[:])
	}

	if len(leaves) == 0 {
		return nil
	}
	return merkleRoot(leaves)
}
