package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadNodeConfig(t *testing.T) {
	t.Setenv("TEST_GENESIS_PATH", "/data/genesis.json")

	path := filepath.Join(t.TempDir(), "node.yaml")
	contents := `
genesis_path: "${TEST_GENESIS_PATH}"
validators:
  - address: "0x0000000000000000000000000000000000000001"
    power: 10
proving:
  tx_proving_key_path: "${UNSET_VAR:-./keys/tx.pk}"
  tx_verifying_key_path: "./keys/tx.vk"
  reward_proving_key_path: "./keys/reward.pk"
  reward_verifying_key_path: "./keys/reward.vk"
  setup_timeout: "30s"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write node config: %v", err)
	}

	cfg, err := LoadNodeConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GenesisPath != "/data/genesis.json" {
		t.Errorf("genesis path: got %q", cfg.GenesisPath)
	}
	if len(cfg.Validators) != 1 || cfg.Validators[0].Power != 10 {
		t.Errorf("validators: got %+v", cfg.Validators)
	}
	if cfg.Proving.TxProvingKeyPath != "./keys/tx.pk" {
		t.Errorf("env default substitution: got %q", cfg.Proving.TxProvingKeyPath)
	}
	if cfg.Proving.SetupTimeout.Duration().String() != "30s" {
		t.Errorf("setup timeout: got %v", cfg.Proving.SetupTimeout.Duration())
	}
}

func TestLoadNodeConfig_MissingFile(t *testing.T) {
	if _, err := LoadNodeConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing node config file")
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	got := substituteEnvVars("value: ${FOO}, fallback: ${MISSING:-default}")
	want := "value: bar, fallback: default"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
