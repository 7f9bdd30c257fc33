// Package config loads this node's runtime configuration: environment
// variables for per-deployment secrets and addresses, plus a YAML node
// file for static deployment data that doesn't belong in the
// environment (genesis path, persisted validator bootstrap list).
// Uses a getEnv*/default-value helper style throughout.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the environment-driven configuration for one node.
type Config struct {
	// Server configuration
	ABCIAddr    string // copied into CometBFT's proxy_app setting; the in-process node reaches the app through a local client
	MetricsAddr string
	HealthAddr  string

	// Storage configuration
	DataDir string // base directory for the KV backend, height file, cometbft home

	// NodeConfigPath points at the YAML file describing this
	// deployment's genesis location and Groth16 artifact paths. Loading
	// it is optional: a node with no node config file runs a standalone,
	// unshared trusted setup (see vm.Groth16Capability.Initialize).
	NodeConfigPath string

	// Chain identification
	ChainID string

	// Per-commit coinbase amount split among the block's validators.
	CoinbaseAmount uint64

	LogLevel string
}

// Load reads configuration from environment variables, applying the
// same safe-default convention: addresses and log level default to
// something runnable locally, while CoinbaseAmount has an explicit
// deployment-time default that operators are expected to override.
func Load() (*Config, error) {
	cfg := &Config{
		ABCIAddr:    getEnv("ABCI_ADDR", "tcp://0.0.0.0:26658"),
		MetricsAddr: getEnv("METRICS_ADDR", "0.0.0.0:9090"),
		HealthAddr:  getEnv("HEALTH_ADDR", "0.0.0.0:8081"),

		DataDir: getEnv("DATA_DIR", "./data"),

		NodeConfigPath: getEnv("NODE_CONFIG_PATH", "./node.yaml"),

		ChainID: getEnv("CHAIN_ID", "privacy-ledger"),

		CoinbaseAmount: getEnvUint64("COINBASE_AMOUNT", 1_000_000),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	return cfg, nil
}

// Validate checks that the loaded configuration is usable.
func (c *Config) Validate() error {
	var errs []string
	if c.DataDir == "" {
		errs = append(errs, "DATA_DIR must not be empty")
	}
	if c.ChainID == "" {
		errs = append(errs, "CHAIN_ID must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if u, err := strconv.ParseUint(value, 10, 64); err == nil {
			return u
		}
	}
	return defaultValue
}
