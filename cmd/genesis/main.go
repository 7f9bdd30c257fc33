// Command genesis produces the init_chain app_state_bytes JSON payload
// for a new chain: a starting validator set and, optionally, a list of
// pre-funded records minted through the same ZK-VM capability the node
// uses at runtime. Shape: parse flags, do one piece of setup work,
// write an artifact, exit.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/certen/privacy-ledger/pkg/abci"
	"github.com/certen/privacy-ledger/pkg/config"
	"github.com/certen/privacy-ledger/pkg/vm"
)

func main() {
	var (
		out        = flag.String("out", "genesis.json", "path to write the app_state JSON to")
		nodeConfig = flag.String("node-config", "", "load the starting validator list from this node config YAML instead of -validators")
		validators = flag.String("validators", "", "comma-separated address:power validator list (required unless -node-config is set)")
		fund       = flag.String("fund", "", "comma-separated address:amount pre-funded record list (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[genesis] ", log.LstdFlags)

	var vs []abci.GenesisValidator
	var err error
	switch {
	case *nodeConfig != "":
		var nc *config.NodeConfig
		nc, err = config.LoadNodeConfig(*nodeConfig)
		if err != nil {
			logger.Fatalf("load node config %s: %v", *nodeConfig, err)
		}
		vs, err = validatorsFromNodeConfig(nc)
		if err != nil {
			logger.Fatalf("node config %s: %v", *nodeConfig, err)
		}
	case *validators != "":
		vs, err = parseValidators(*validators)
		if err != nil {
			logger.Fatalf("parse validators: %v", err)
		}
	default:
		fmt.Fprintln(os.Stderr, "genesis: one of -validators or -node-config is required")
		os.Exit(1)
	}

	var records []abci.GenesisRecord
	if *fund != "" {
		cap := vm.NewGroth16Capability(logger)
		if err := cap.Initialize(); err != nil {
			logger.Fatalf("initialize ZK-VM capability: %v", err)
		}
		records, err = mintFunding(cap, *fund)
		if err != nil {
			logger.Fatalf("mint funding: %v", err)
		}
	}

	state := abci.GenesisState{Records: records, Validators: vs}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		logger.Fatalf("marshal genesis state: %v", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Fatalf("write %s: %v", *out, err)
	}
	logger.Printf("wrote %s: %d validator(s), %d funded record(s)", *out, len(vs), len(records))
}

func validatorsFromNodeConfig(nc *config.NodeConfig) ([]abci.GenesisValidator, error) {
	if len(nc.Validators) == 0 {
		return nil, fmt.Errorf("no validators listed")
	}
	out := make([]abci.GenesisValidator, len(nc.Validators))
	for i, v := range nc.Validators {
		raw, err := hex.DecodeString(strings.TrimPrefix(v.Address, "0x"))
		if err != nil || len(raw) != len(vm.Address{}) {
			return nil, fmt.Errorf("validator %d: invalid address %q", i, v.Address)
		}
		var addr vm.Address
		copy(addr[:], raw)
		out[i] = abci.GenesisValidator{Address: addr, Power: v.Power}
	}
	return out, nil
}

func parseValidators(spec string) ([]abci.GenesisValidator, error) {
	var out []abci.GenesisValidator
	for _, part := range strings.Split(spec, ",") {
		addr, power, err := splitAddrValue(part)
		if err != nil {
			return nil, fmt.Errorf("validator %q: %w", part, err)
		}
		out = append(out, abci.GenesisValidator{Address: addr, Power: power})
	}
	return out, nil
}

func mintFunding(cap *vm.Groth16Capability, spec string) ([]abci.GenesisRecord, error) {
	var out []abci.GenesisRecord
	for _, part := range strings.Split(spec, ",") {
		addr, amount, err := splitAddrValue(part)
		if err != nil {
			return nil, fmt.Errorf("fund entry %q: %w", part, err)
		}
		_, rec, err := cap.MintReward(addr, uint64(amount))
		if err != nil {
			return nil, fmt.Errorf("mint %q: %w", part, err)
		}
		out = append(out, abci.GenesisRecord{Record: rec})
	}
	return out, nil
}

// splitAddrValue parses one "0x...:N" entry into an address and an
// int64, shared by -validators (power) and -fund (amount).
func splitAddrValue(part string) (vm.Address, int64, error) {
	fields := strings.SplitN(strings.TrimSpace(part), ":", 2)
	if len(fields) != 2 {
		return vm.Address{}, 0, fmt.Errorf("expected address:value, got %q", part)
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(fields[0], "0x"))
	if err != nil || len(raw) != len(vm.Address{}) {
		return vm.Address{}, 0, fmt.Errorf("invalid address %q", fields[0])
	}
	var addr vm.Address
	copy(addr[:], raw)
	value, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return vm.Address{}, 0, fmt.Errorf("invalid value %q", fields[1])
	}
	return addr, value, nil
}
