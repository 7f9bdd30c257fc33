// Package abci wires the record store, program store, validator set,
// height tracker and ZK-VM capability into CometBFT's
// abcitypes.Application interface: mutex-guarded state, FinalizeBlock
// looping per-tx, and stub snapshot/vote-extension methods since state
// sync is out of scope.
package abci

import (
	"context"
	"fmt"
	"log"
	"sync"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/certen/privacy-ledger/pkg/appstate"
	"github.com/certen/privacy-ledger/pkg/height"
	"github.com/certen/privacy-ledger/pkg/metrics"
	"github.com/certen/privacy-ledger/pkg/program"
	"github.com/certen/privacy-ledger/pkg/query"
	"github.com/certen/privacy-ledger/pkg/record"
	"github.com/certen/privacy-ledger/pkg/store"
	"github.com/certen/privacy-ledger/pkg/tx"
	"github.com/certen/privacy-ledger/pkg/validator"
	"github.com/certen/privacy-ledger/pkg/vm"
)

// state names the coarse application lifecycle
// (Uninitialized -> Initialized -> Ready <-> InBlock). It is recorded
// as the hooks run; no hook reads it or refuses a call because of it.
type state int

const (
	stateUninitialized state = iota
	stateInitialized
	stateReady
	stateInBlock
)

// Application implements abcitypes.Application, the ABCI state machine
// at the center of this node.
type Application struct {
	mu sync.Mutex

	records    *record.Store
	programs   *program.Store
	validators *validator.Set
	heightT    *height.Tracker
	capability vm.Capability
	metrics    *metrics.Metrics
	kv         store.KV

	chainID string
	logger  *log.Logger

	st state

	// per-tx staging bookkeeping, reset at the start of each deliverTx
	// call — a nested sub-scope rolled back on the first error.
	txCommitments []vm.Commitment
	txSerials     []vm.SerialNumber
	txProgramIDs  []string

	// lastDigest is the app-state digest computed by the most recent
	// Commit call. CometBFT v0.38's
	// ResponseCommit carries no Data field — the digest is exposed for
	// tests/queries via LastDigest rather than returned from Commit
	// itself.
	lastDigest []byte
}

// New constructs an Application. The stores and capability must already
// be opened/initialized by the caller (main.go); New performs no I/O.
// kv is the same backing store the record/program stores use, needed
// here only to persist/restore the validator set under the fixed
// "abci.validators" key.
func New(records *record.Store, programs *program.Store, validators *validator.Set, heightT *height.Tracker, capability vm.Capability, m *metrics.Metrics, kv store.KV, chainID string) *Application {
	return &Application{
		records:    records,
		programs:   programs,
		validators: validators,
		heightT:    heightT,
		capability: capability,
		metrics:    m,
		kv:         kv,
		chainID:    chainID,
		logger:     log.New(log.Writer(), "[abci] ", log.LstdFlags),
		st:         stateUninitialized,
	}
}

// Info returns static identity plus the height tracker's last committed
// height.
func (a *Application) Info(ctx context.Context, req *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &abcitypes.ResponseInfo{
		Data:             "privacy-ledger",
		Version:          "1.0.0",
		AppVersion:       1,
		LastBlockHeight:  a.heightT.Height(),
		LastBlockAppHash: nil,
	}, nil
}

// InitChain decodes the genesis payload, inserts genesis records
// directly committed, and installs the starting validator set.
func (a *Application) InitChain(ctx context.Context, req *abcitypes.RequestInitChain) (*abcitypes.ResponseInitChain, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	g, err := DecodeGenesis(req.AppStateBytes)
	if err != nil {
		a.logger.Printf("init_chain: invalid genesis payload: %v", err)
		return nil, err
	}

	for _, r := range g.Records {
		if err := a.records.AddCommitted(r.Record.Commitment, r.Record); err != nil {
			a.logger.Printf("init_chain: failed to add genesis record: %v", err)
			return nil, fmt.Errorf("abci: init_chain: %w", err)
		}
	}
	a.validators.SetValidators(g.validatorEntries())
	if err := a.validators.SaveToKV(a.kv); err != nil {
		a.logger.Printf("init_chain: failed to persist validator set: %v", err)
		return nil, fmt.Errorf("abci: init_chain: %w", err)
	}

	a.st = stateInitialized
	a.logger.Printf("init_chain: loaded %d genesis records, %d validators", len(g.Records), len(g.Validators))
	return &abcitypes.ResponseInitChain{}, nil
}

// Query decodes the query tag and serves GetRecords/GetSpentSerialNumbers.
func (a *Application) Query(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	tag, err := query.DecodeRequest(req.Data)
	if err != nil {
		return &abcitypes.ResponseQuery{Code: 1, Log: err.Error(), Info: err.Error()}, nil
	}

	switch tag {
	case query.GetRecords:
		records, err := a.records.Scan()
		if err != nil {
			return &abcitypes.ResponseQuery{Code: 1, Log: err.Error(), Info: err.Error()}, nil
		}
		data, err := query.EncodeRecords(records)
		if err != nil {
			return &abcitypes.ResponseQuery{Code: 1, Log: err.Error(), Info: err.Error()}, nil
		}
		return &abcitypes.ResponseQuery{Value: data}, nil
	case query.GetSpentSerialNumbers:
		serials, err := a.records.ScanSpent()
		if err != nil {
			return &abcitypes.ResponseQuery{Code: 1, Log: err.Error(), Info: err.Error()}, nil
		}
		data, err := query.EncodeSerialNumbers(serials)
		if err != nil {
			return &abcitypes.ResponseQuery{Code: 1, Log: err.Error(), Info: err.Error()}, nil
		}
		return &abcitypes.ResponseQuery{Value: data}, nil
	default:
		return &abcitypes.ResponseQuery{Code: 1, Log: "unknown query tag"}, nil
	}
}

// CheckTx decodes and validates a transaction without mutating state,
// setting response priority to the declared fee.
func (a *Application) CheckTx(ctx context.Context, req *abcitypes.RequestCheckTx) (*abcitypes.ResponseCheckTx, error) {
	t, err := tx.Decode(req.Tx)
	if err != nil {
		return &abcitypes.ResponseCheckTx{Code: 1, Log: err.Error(), Info: err.Error()}, nil
	}

	a.mu.Lock()
	err = tx.Validate(t, a.records, a.programs, a.capability)
	a.mu.Unlock()
	if err != nil {
		return &abcitypes.ResponseCheckTx{Code: 1, Log: err.Error(), Info: err.Error()}, nil
	}
	return &abcitypes.ResponseCheckTx{Code: 0, Priority: int64(t.Fee())}, nil
}

// FinalizeBlock runs begin_block's bookkeeping then deliver_tx for
// every transaction in the block, under CometBFT v0.38's consolidated
// hook (the original four ABCI connections are now one call, but the
// internal beginBlock/deliverTx staging order is unchanged).
func (a *Application) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st = stateInBlock
	a.beginBlock(req)

	results := make([]*abcitypes.ExecTxResult, len(req.Txs))
	for i, raw := range req.Txs {
		results[i] = a.deliverTx(raw)
	}
	return &abcitypes.ResponseFinalizeBlock{TxResults: results}, nil
}

// beginBlock requires a proposer address (fatal if missing — mirrors
// an invariant that should never break in practice) and filters
// DecidedLastCommit's votes down to validators that
// actually signed and are known to this set.
func (a *Application) beginBlock(req *abcitypes.RequestFinalizeBlock) {
	if len(req.ProposerAddress) == 0 {
		a.logger.Panicf("begin_block: missing proposer address at height %d", req.Height)
	}
	proposer := common.BytesToAddress(req.ProposerAddress)

	var signers []vm.Address
	for _, v := range req.DecidedLastCommit.Votes {
		if v.BlockIdFlag != abcitypes.BLOCK_ID_FLAG_COMMIT {
			continue
		}
		addr := common.BytesToAddress(v.Validator.Address)
		if a.validators.Power(addr) == 0 {
			continue
		}
		signers = append(signers, addr)
	}

	a.validators.Prepare(proposer, signers, req.Height)
}

// deliverTx re-runs the full validator (the proposal may be byzantine)
// and, on success, applies every effect in order: fee accumulation,
// input spends, output adds, program insertion. Any failure rolls back
// this transaction's own staged commitments/serials so deliverTx never
// leaves a half-applied transaction in the store.
func (a *Application) deliverTx(raw []byte) *abcitypes.ExecTxResult {
	t, err := tx.Decode(raw)
	if err != nil {
		a.metrics.TxRejectedTotal.WithLabelValues("malformed").Inc()
		return &abcitypes.ExecTxResult{Code: 1, Log: err.Error(), Info: err.Error()}
	}

	if err := tx.Validate(t, a.records, a.programs, a.capability); err != nil {
		a.metrics.TxRejectedTotal.WithLabelValues("invalid").Inc()
		return &abcitypes.ExecTxResult{Code: 1, Log: err.Error(), Info: err.Error()}
	}

	a.txCommitments = nil
	a.txSerials = nil
	a.txProgramIDs = nil

	a.validators.Add(t.Fee())

	if err := a.applyTransaction(t); err != nil {
		a.records.Rollback(a.txCommitments, a.txSerials)
		a.programs.Rollback(a.txProgramIDs)
		a.metrics.TxRejectedTotal.WithLabelValues("apply_failed").Inc()
		return &abcitypes.ExecTxResult{Code: 1, Log: err.Error(), Info: err.Error()}
	}

	a.metrics.StagedTxTotal.Inc()
	return &abcitypes.ExecTxResult{
		Events: []abcitypes.Event{{
			Type: "app",
			Attributes: []abcitypes.EventAttribute{
				{Key: "tx_id", Value: t.ID, Index: true},
			},
		}},
	}
}

func (a *Application) applyTransaction(t tx.Transaction) error {
	for _, sn := range t.InputSerialNumbers() {
		if err := a.records.Spend(sn); err != nil {
			return fmt.Errorf("abci: spend input: %w", err)
		}
		a.txSerials = append(a.txSerials, sn)
	}

	for _, rec := range t.OutputRecords() {
		if err := a.records.Add(rec.Commitment, rec); err != nil {
			return fmt.Errorf("abci: add output: %w", err)
		}
		a.txCommitments = append(a.txCommitments, rec.Commitment)
	}

	if t.Kind == tx.KindDeployment {
		if err := a.programs.Add(t.Program, t.VerifyingKeys); err != nil {
			return fmt.Errorf("abci: store program: %w", err)
		}
		a.txProgramIDs = append(a.txProgramIDs, t.Program.ID)
	}
	return nil
}

// Commit folds the record store's staged layer, advances the height
// tracker, mints reward records from the validator set and returns the
// deterministic app-state digest.
func (a *Application) Commit(ctx context.Context, req *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.records.Commit(); err != nil {
		a.logger.Printf("commit: record store commit failed: %v", err)
	}
	if err := a.programs.Commit(); err != nil {
		a.logger.Printf("commit: program store commit failed: %v", err)
	}

	h, err := a.heightT.Increment()
	if err != nil {
		a.logger.Printf("commit: height increment failed: %v", err)
	}
	a.metrics.CommittedHeight.Set(float64(h))

	rewards, err := a.validators.Rewards()
	if err != nil {
		a.logger.Printf("commit: rewards computation failed: %v", err)
	}
	for _, r := range rewards {
		commitment, rec, err := a.capability.MintReward(r.Address, r.Amount)
		if err != nil {
			a.logger.Printf("commit: mint reward failed: %v", err)
			continue
		}
		if err := a.records.AddCommitted(commitment, rec); err != nil {
			a.logger.Printf("commit: failed to add reward record: %v", err)
			continue
		}
		a.metrics.RewardTotal.Add(float64(r.Amount))
	}

	committed, err := a.records.Scan()
	if err != nil {
		a.logger.Printf("commit: scan for digest failed: %v", err)
	}
	commitments := make([]vm.Commitment, len(committed))
	for i, r := range committed {
		commitments[i] = r.Commitment
	}
	a.lastDigest = appstate.Digest(commitments, a.programs.List())

	a.st = stateReady
	a.logger.Printf("commit: height %d, %d reward records", h, len(rewards))
	return &abcitypes.ResponseCommit{}, nil
}

// LastDigest returns the app-state digest computed by the most recent
// Commit call. Exercised by tests and by
// operators who want to cross-check state outside of ABCI's own
// consensus hash.
func (a *Application) LastDigest() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastDigest
}

// PrepareProposal accepts the mempool's transaction ordering as-is —
// this core has no reordering policy of its own.
func (a *Application) PrepareProposal(ctx context.Context, req *abcitypes.RequestPrepareProposal) (*abcitypes.ResponsePrepareProposal, error) {
	return &abcitypes.ResponsePrepareProposal{Txs: req.Txs}, nil
}

// ProcessProposal structurally decodes every transaction, rejecting the
// proposal outright if any fails to parse; full validation still
// happens per-transaction in FinalizeBlock.
func (a *Application) ProcessProposal(ctx context.Context, req *abcitypes.RequestProcessProposal) (*abcitypes.ResponseProcessProposal, error) {
	for _, raw := range req.Txs {
		if _, err := tx.Decode(raw); err != nil {
			return &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}, nil
		}
	}
	return &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_ACCEPT}, nil
}

// ExtendVote and VerifyVoteExtension are unused by this core (no vote
// extension data is produced or required).
func (a *Application) ExtendVote(ctx context.Context, req *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (a *Application) VerifyVoteExtension(ctx context.Context, req *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

// State sync snapshots are out of scope; stubbed
// identically: no-op implementations that decline every offer.
func (a *Application) ListSnapshots(ctx context.Context, req *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (a *Application) OfferSnapshot(ctx context.Context, req *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{Result: abcitypes.ResponseOfferSnapshot_ABORT}, nil
}

func (a *Application) LoadSnapshotChunk(ctx context.Context, req *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (a *Application) ApplySnapshotChunk(ctx context.Context, req *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{Result: abcitypes.ResponseApplySnapshotChunk_ABORT}, nil
}
