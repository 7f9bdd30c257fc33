package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID == "" {
		t.Error("expected a non-empty default chain id")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CHAIN_ID", "test-chain")
	t.Setenv("COINBASE_AMOUNT", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != "test-chain" {
		t.Errorf("chain id: got %q, want %q", cfg.ChainID, "test-chain")
	}
	if cfg.CoinbaseAmount != 42 {
		t.Errorf("coinbase amount: got %d, want 42", cfg.CoinbaseAmount)
	}
}

func TestValidate_RejectsEmptyDataDir(t *testing.T) {
	cfg := &Config{ChainID: "x"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for an empty data dir")
	}
}

func TestValidate_RejectsEmptyChainID(t *testing.T) {
	cfg := &Config{DataDir: "./data"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for an empty chain id")
	}
}
