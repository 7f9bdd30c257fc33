// Package validator implements the validator set: a
// mutex-guarded fee/reward accumulator that mints coinbase records for
// the current block's proposer and the previous block's signers.
package validator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/certen/privacy-ledger/pkg/vm"
)

// Entry is one validator's persisted identity: its reward address and
// voting power.
type Entry struct {
	Address vm.Address
	Power   int64
}

// Set is the validator set. CoinbaseAmount is the fixed per-block
// protocol coinbase split among the previous block's signers; it is a
// deployment-time constant, not derived from anywhere else, so it lives
// on the struct rather than a package-level literal.
type Set struct {
	mu sync.RWMutex

	// validators keeps the list in the order SetValidators received it
	// (a slice, not a map), so SaveToKV always persists it in the same
	// order. Reward computation does not iterate it; Rewards orders
	// signers by address instead.
	validators []Entry
	byAddress  map[vm.Address]int64 // address -> power, for lookups

	CoinbaseAmount uint64

	// Per-block working state, reset in Prepare.
	proposer    vm.Address
	hasProposer bool
	signers     []vm.Address
	feePool     uint64
}

// New constructs an empty validator set with the given per-block
// coinbase amount.
func New(coinbaseAmount uint64) *Set {
	return &Set{byAddress: make(map[vm.Address]int64), CoinbaseAmount: coinbaseAmount}
}

// SetValidators installs the genesis validator list, replacing any
// prior contents, used once at genesis.
func (s *Set) SetValidators(list []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validators = append([]Entry(nil), list...)
	s.byAddress = make(map[vm.Address]int64, len(list))
	for _, e := range list {
		s.byAddress[e.Address] = e.Power
	}
}

// Power looks up a validator's voting power; 0 if the address is not a
// known validator.
func (s *Set) Power(addr vm.Address) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byAddress[addr]
}

// Prepare records the current block's proposer and the filtered set of
// previous-block signers, resetting the fee pool. Called once at the
// start of begin_block.
func (s *Set) Prepare(proposer vm.Address, signers []vm.Address, height int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposer = proposer
	s.hasProposer = true
	s.signers = append([]vm.Address(nil), signers...)
	s.feePool = 0
}

// Add accumulates a transaction's declared fee into the current
// block's pool. Called once per successfully delivered transaction.
func (s *Set) Add(fee uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feePool += fee
}

// Reward is one minted payout: a recipient address and an amount, not
// yet turned into a ciphertext record (the caller does that through
// the ZK-VM capability, since this package has no dependency on vm's
// proving internals).
type Reward struct {
	Address vm.Address
	Amount  uint64
}

// Rewards computes this block's payouts: the proposer receives the
// full fee pool; the coinbase amount is split among the previous
// block's signers proportionally to voting power (the reward
// policy). Remainder from integer division is given to the
// lowest-addressed signer so the signer payouts sum to exactly the
// coinbase amount, and signer order is fixed by address so the result
// is deterministic.
func (s *Set) Rewards() ([]Reward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasProposer {
		return nil, fmt.Errorf("validator: rewards called before prepare")
	}

	var out []Reward
	if s.feePool > 0 {
		out = append(out, Reward{Address: s.proposer, Amount: s.feePool})
	}

	if len(s.signers) == 0 || s.CoinbaseAmount == 0 {
		return out, nil
	}

	signers := append([]vm.Address(nil), s.signers...)
	sort.Slice(signers, func(i, j int) bool { return lessAddress(signers[i], signers[j]) })

	var totalPower int64
	powers := make([]int64, len(signers))
	for i, addr := range signers {
		p := s.byAddress[addr]
		powers[i] = p
		totalPower += p
	}
	if totalPower == 0 {
		return out, nil
	}

	var distributed uint64
	for i, addr := range signers {
		share := s.CoinbaseAmount * uint64(powers[i]) / uint64(totalPower)
		if share == 0 {
			continue
		}
		out = append(out, Reward{Address: addr, Amount: share})
		distributed += share
	}
	if remainder := s.CoinbaseAmount - distributed; remainder > 0 && len(signers) > 0 {
		out = append(out, Reward{Address: signers[0], Amount: remainder})
	}
	return out, nil
}

func lessAddress(a, b vm.Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
