package vm

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"math/big"
	"os"
	"path/filepath"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// Groth16Capability is the concrete VM capability used outside of tests:
// a BN254/Groth16-backed verifier for transitions and a coinbase minter
// for validator rewards.
type Groth16Capability struct {
	mu sync.RWMutex

	txCS constraint.ConstraintSystem
	txPK groth16.ProvingKey
	txVK groth16.VerifyingKey

	rewardCS constraint.ConstraintSystem
	rewardPK groth16.ProvingKey
	rewardVK groth16.VerifyingKey

	initialized bool
	logger      *log.Logger
}

// NewGroth16Capability constructs an uninitialized capability. Call
// Initialize before use.
func NewGroth16Capability(logger *log.Logger) *Groth16Capability {
	if logger == nil {
		logger = log.New(log.Writer(), "[vm] ", log.LstdFlags)
	}
	return &Groth16Capability{logger: logger}
}

// Initialize compiles the transition and reward circuits and runs a
// fresh, unshared Groth16 trusted setup. Only suitable for a single
// standalone node (tests, local development): every call produces its
// own proving/verifying keys, which a multi-validator deployment must
// not do independently — see ArtifactPaths and InitializeWithArtifacts.
func (g *Groth16Capability) Initialize() error {
	return g.InitializeWithArtifacts(ArtifactPaths{})
}

// ArtifactPaths locates the shared Groth16 proving/verifying keys on
// disk. All four paths empty means "no shared artifact, run a fresh
// setup and don't persist it" (Initialize's behavior).
type ArtifactPaths struct {
	TxProvingKeyPath       string
	TxVerifyingKeyPath     string
	RewardProvingKeyPath   string
	RewardVerifyingKeyPath string
}

func (p ArtifactPaths) empty() bool {
	return p.TxProvingKeyPath == "" && p.TxVerifyingKeyPath == "" &&
		p.RewardProvingKeyPath == "" && p.RewardVerifyingKeyPath == ""
}

// InitializeWithArtifacts compiles both circuits (deterministic, so
// every node arrives at the same constraint system) and then either
// loads the shared proving/verifying keys from paths, or — the first
// time a fleet boots — runs the trusted setup once and writes the
// result to paths so every other validator loads the same keys instead
// of generating their own. Idempotent.
func (g *Groth16Capability) InitializeWithArtifacts(paths ArtifactPaths) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.initialized {
		return nil
	}

	var txCircuit TransitionCircuit
	txCS, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &txCircuit)
	if err != nil {
		return fmt.Errorf("compile transition circuit: %w", err)
	}
	g.txCS = txCS

	var rewardCircuit RewardCircuit
	rewardCS, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &rewardCircuit)
	if err != nil {
		return fmt.Errorf("compile reward circuit: %w", err)
	}
	g.rewardCS = rewardCS

	if paths.empty() {
		if g.txPK, g.txVK, err = groth16.Setup(txCS); err != nil {
			return fmt.Errorf("transition circuit setup: %w", err)
		}
		if g.rewardPK, g.rewardVK, err = groth16.Setup(rewardCS); err != nil {
			return fmt.Errorf("reward circuit setup: %w", err)
		}
		g.initialized = true
		g.logger.Printf("groth16 capability initialized with an unshared trusted setup")
		return nil
	}

	if artifactsExist(paths) {
		g.txPK, g.txVK, err = loadKeyPair(paths.TxProvingKeyPath, paths.TxVerifyingKeyPath)
		if err != nil {
			return fmt.Errorf("load transition circuit keys: %w", err)
		}
		g.rewardPK, g.rewardVK, err = loadKeyPair(paths.RewardProvingKeyPath, paths.RewardVerifyingKeyPath)
		if err != nil {
			return fmt.Errorf("load reward circuit keys: %w", err)
		}
		g.initialized = true
		g.logger.Printf("groth16 capability initialized from shared artifacts")
		return nil
	}

	if g.txPK, g.txVK, err = groth16.Setup(txCS); err != nil {
		return fmt.Errorf("transition circuit setup: %w", err)
	}
	if g.rewardPK, g.rewardVK, err = groth16.Setup(rewardCS); err != nil {
		return fmt.Errorf("reward circuit setup: %w", err)
	}
	if err := saveKeyPair(paths.TxProvingKeyPath, paths.TxVerifyingKeyPath, g.txPK, g.txVK); err != nil {
		return fmt.Errorf("persist transition circuit keys: %w", err)
	}
	if err := saveKeyPair(paths.RewardProvingKeyPath, paths.RewardVerifyingKeyPath, g.rewardPK, g.rewardVK); err != nil {
		return fmt.Errorf("persist reward circuit keys: %w", err)
	}
	g.initialized = true
	g.logger.Printf("groth16 capability initialized a new trusted setup and wrote it to %s / %s", paths.TxProvingKeyPath, paths.TxVerifyingKeyPath)
	return nil
}

func artifactsExist(paths ArtifactPaths) bool {
	for _, p := range []string{paths.TxProvingKeyPath, paths.TxVerifyingKeyPath, paths.RewardProvingKeyPath, paths.RewardVerifyingKeyPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

func loadKeyPair(pkPath, vkPath string) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk := groth16.NewProvingKey(ecc.BN254)
	if err := readFromFile(pkPath, pk); err != nil {
		return nil, nil, fmt.Errorf("read proving key %s: %w", pkPath, err)
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if err := readFromFile(vkPath, vk); err != nil {
		return nil, nil, fmt.Errorf("read verifying key %s: %w", vkPath, err)
	}
	return pk, vk, nil
}

func saveKeyPair(pkPath, vkPath string, pk groth16.ProvingKey, vk groth16.VerifyingKey) error {
	if err := writeToFile(pkPath, pk); err != nil {
		return fmt.Errorf("write proving key %s: %w", pkPath, err)
	}
	if err := writeToFile(vkPath, vk); err != nil {
		return fmt.Errorf("write verifying key %s: %w", vkPath, err)
	}
	return nil
}

func readFromFile(path string, r io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = r.ReadFrom(f)
	return err
}

func writeToFile(path string, w io.WriterTo) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = w.WriteTo(f)
	return err
}

func fieldElement(data ...[]byte) *big.Int {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	sum := h.Sum(nil)
	v := new(big.Int).SetBytes(sum)
	return v.Mod(v, ecc.BN254.ScalarField())
}

// VerifyDeployment checks that every function the program declares has
// a structurally valid verifying key, and — when fee is non-nil — that
// the fee transition verifies against the transition circuit's own
// verifying key.
func (g *Groth16Capability) VerifyDeployment(program Program, keys VerifyingKeySet, fee *Transition) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.initialized {
		return ErrNotInitialized
	}

	for _, fn := range program.Functions {
		key, ok := keys[fn]
		if !ok {
			return fmt.Errorf("%w: missing key for function %q", ErrKeyMalformed, fn)
		}
		vk := groth16.NewVerifyingKey(ecc.BN254)
		if _, err := vk.ReadFrom(bytes.NewReader(key)); err != nil {
			return fmt.Errorf("%w: function %q: %v", ErrKeyMalformed, fn, err)
		}
	}

	if fee != nil {
		if err := g.verifyAgainstTxVK(*fee); err != nil {
			return fmt.Errorf("fee transition: %w", err)
		}
	}
	return nil
}

// verifyAgainstTxVK verifies a transition's proof against the
// capability's own compiled transition verifying key, used for fee
// transitions which have no deployed program of their own.
func (g *Groth16Capability) verifyAgainstTxVK(t Transition) error {
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(t.Proof)); err != nil {
		return fmt.Errorf("%w: malformed proof bytes: %v", ErrProofInvalid, err)
	}
	assignment := TransitionCircuit{
		Commitment: transitionCommitment(t),
		Fee:        t.Fee,
	}
	publicWitness, err := frontend.NewWitness(&assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("build public witness: %w", err)
	}
	if err := groth16.Verify(proof, g.txVK, publicWitness); err != nil {
		return fmt.Errorf("%w: %v", ErrProofInvalid, err)
	}
	return nil
}

// VerifyExecution verifies one transition's proof against the supplied
// verifying key. The public witness is reconstructed deterministically
// from the transition's own fields, matching the TransitionCircuit
// shape the prover used.
func (g *Groth16Capability) VerifyExecution(t Transition, key VerifyingKey) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.initialized {
		return ErrNotInitialized
	}

	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(key)); err != nil {
		return fmt.Errorf("%w: %v", ErrKeyMalformed, err)
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(t.Proof)); err != nil {
		return fmt.Errorf("%w: malformed proof bytes: %v", ErrProofInvalid, err)
	}

	assignment := TransitionCircuit{
		Commitment: transitionCommitment(t),
		Fee:        t.Fee,
	}
	publicWitness, err := frontend.NewWitness(&assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("build public witness: %w", err)
	}

	if err := groth16.Verify(proof, vk, publicWitness); err != nil {
		return fmt.Errorf("%w: %v", ErrProofInvalid, err)
	}
	return nil
}

// transitionCommitment derives the public commitment a transition's
// proof is expected to bind, from its program, function, inputs and
// outputs. A package-level function shared by VerifyExecution and
// verifyAgainstTxVK.
func transitionCommitment(t Transition) *big.Int {
	var inputsBuf, outputsBuf bytes.Buffer
	for _, in := range t.Inputs {
		inputsBuf.Write(in[:])
	}
	for _, out := range t.Outputs {
		outputsBuf.Write(out.Commitment[:])
	}
	programC := fieldElement([]byte(t.Program))
	functionC := fieldElement([]byte(t.Function))
	inputsC := fieldElement(inputsBuf.Bytes())
	outputsC := fieldElement(outputsBuf.Bytes())
	blinding := fieldElement([]byte(t.Program), []byte(t.Function), inputsBuf.Bytes())

	r := big.NewInt(7)
	result := new(big.Int).Set(programC)
	r1 := new(big.Int).Mod(new(big.Int).Mul(functionC, r), ecc.BN254.ScalarField())
	result.Add(result, r1)
	r2 := new(big.Int).Mod(new(big.Int).Mul(r, r), ecc.BN254.ScalarField())
	r2v := new(big.Int).Mod(new(big.Int).Mul(inputsC, r2), ecc.BN254.ScalarField())
	result.Add(result, r2v)
	r3 := new(big.Int).Mod(new(big.Int).Mul(r2, r), ecc.BN254.ScalarField())
	r3v := new(big.Int).Mod(new(big.Int).Mul(outputsC, r3), ecc.BN254.ScalarField())
	result.Add(result, r3v)
	r4 := new(big.Int).Mod(new(big.Int).Mul(r3, r), ecc.BN254.ScalarField())
	r4v := new(big.Int).Mod(new(big.Int).Mul(blinding, r4), ecc.BN254.ScalarField())
	result.Add(result, r4v)
	return result.Mod(result, ecc.BN254.ScalarField())
}

// SynthesizeKey returns the verifying key bytes for a function. All
// functions currently share the same compiled TransitionCircuit, so
// this hands back the capability's single transition verifying key —
// the per-program circuit logic itself lives in the external VM.
func (g *Groth16Capability) SynthesizeKey(program Program, function string) (VerifyingKey, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.initialized {
		return nil, ErrNotInitialized
	}

	found := false
	for _, fn := range program.Functions {
		if fn == function {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrFunctionNotFound
	}

	var buf bytes.Buffer
	if _, err := g.txVK.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize verifying key: %w", err)
	}
	return buf.Bytes(), nil
}

// MintReward deterministically constructs a coinbase record addressed
// to addr worth amount. Deterministic because this is called from
// commit (that path must stay deterministic): the nonce is
// derived from addr and amount rather than drawn from an RNG.
func (g *Groth16Capability) MintReward(addr Address, amount uint64) (Commitment, Record, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.initialized {
		return Commitment{}, Record{}, ErrNotInitialized
	}

	amountBig := new(big.Int).SetUint64(amount)
	addrField := fieldElement(addr.Bytes())
	nonce := fieldElement(addr.Bytes(), amountBig.Bytes(), []byte("reward"))

	r := big.NewInt(7)
	commitment := new(big.Int).Set(addrField)
	commitment.Add(commitment, new(big.Int).Mod(new(big.Int).Mul(amountBig, r), ecc.BN254.ScalarField()))
	r2 := new(big.Int).Mod(new(big.Int).Mul(r, r), ecc.BN254.ScalarField())
	commitment.Add(commitment, new(big.Int).Mod(new(big.Int).Mul(nonce, r2), ecc.BN254.ScalarField()))
	r3 := new(big.Int).Mod(new(big.Int).Mul(r2, r), ecc.BN254.ScalarField())
	commitment.Add(commitment, new(big.Int).Mod(new(big.Int).Mul(nonce, r3), ecc.BN254.ScalarField()))
	r4 := new(big.Int).Mod(new(big.Int).Mul(r3, r), ecc.BN254.ScalarField())
	commitment.Add(commitment, new(big.Int).Mod(new(big.Int).Mul(nonce, r4), ecc.BN254.ScalarField()))
	commitment.Mod(commitment, ecc.BN254.ScalarField())

	assignment := RewardCircuit{
		Commitment: commitment,
		Amount:     amountBig,
		Address:    addrField,
		Nonce:      nonce,
	}
	fullWitness, err := frontend.NewWitness(&assignment, ecc.BN254.ScalarField())
	if err != nil {
		return Commitment{}, Record{}, fmt.Errorf("build reward witness: %w", err)
	}
	proof, err := groth16.Prove(g.rewardCS, g.rewardPK, fullWitness)
	if err != nil {
		return Commitment{}, Record{}, fmt.Errorf("prove reward: %w", err)
	}

	var proofBuf bytes.Buffer
	if _, err := proof.WriteTo(&proofBuf); err != nil {
		return Commitment{}, Record{}, fmt.Errorf("serialize reward proof: %w", err)
	}

	var commitmentBytes Commitment
	commitment.FillBytes(commitmentBytes[:])

	// The ciphertext format is this capability's own concern (the core
	// treats record ciphertext algebra as VM-internal): owner address,
	// amount, and the proof bytes, length-prefixed so Decrypt can peel
	// the recipient back off without touching the proof.
	ciphertext := encodeRewardCiphertext(addr, amountBig.Bytes(), proofBuf.Bytes())
	var serial SerialNumber
	nonce.FillBytes(serial[:])
	record := Record{Commitment: commitmentBytes, Serial: serial, Ciphertext: ciphertext}
	return commitmentBytes, record, nil
}

func encodeRewardCiphertext(addr Address, amount, proof []byte) []byte {
	out := make([]byte, 0, len(addr)+1+len(amount)+len(proof))
	out = append(out, addr.Bytes()...)
	out = append(out, byte(len(amount)))
	out = append(out, amount...)
	out = append(out, proof...)
	return out
}

// Decrypt peels the recipient address and amount back off a reward
// ciphertext, succeeding only when owner matches the address the
// record was minted to. The proof-system internals of a general
// record's ciphertext remain the external VM's concern; this
// implementation only knows the reward format it itself produces.
func (g *Groth16Capability) Decrypt(record Record, owner Address) ([]byte, error) {
	if len(record.Ciphertext) < len(owner)+1 {
		return nil, fmt.Errorf("vm: ciphertext too short to decrypt")
	}
	addrBytes := record.Ciphertext[:len(owner)]
	if !bytes.Equal(addrBytes, owner.Bytes()) {
		return nil, fmt.Errorf("vm: record is not addressed to owner")
	}
	amountLen := int(record.Ciphertext[len(owner)])
	start := len(owner) + 1
	if len(record.Ciphertext) < start+amountLen {
		return nil, fmt.Errorf("vm: malformed ciphertext")
	}
	return record.Ciphertext[start : start+amountLen], nil
}
