package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// NodeConfig is the static deployment data that doesn't belong in
// environment variables: genesis location, persisted validator
// bootstrap list, and the ZK-VM trusted-setup artifact paths.
type NodeConfig struct {
	GenesisPath string            `yaml:"genesis_path"`
	Validators  []NodeValidator   `yaml:"validators"`
	Proving     NodeProvingConfig `yaml:"proving"`
}

// NodeValidator is one bootstrap validator entry, readable before
// init_chain has run.
type NodeValidator struct {
	Address string `yaml:"address"`
	Power   int64  `yaml:"power"`
}

// NodeProvingConfig locates the Groth16 trusted-setup artifacts the ZK-VM
// capability loads at startup instead of re-running setup every boot.
type NodeProvingConfig struct {
	TxProvingKeyPath      string   `yaml:"tx_proving_key_path"`
	TxVerifyingKeyPath    string   `yaml:"tx_verifying_key_path"`
	RewardProvingKeyPath  string   `yaml:"reward_proving_key_path"`
	RewardVerifyingKeyPath string  `yaml:"reward_verifying_key_path"`
	SetupTimeout          Duration `yaml:"setup_timeout"`
}

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-(.*?))?\}`)

// LoadNodeConfig reads a YAML node-config file, substituting
// ${VAR_NAME} / ${VAR_NAME:-default} references against the process
// environment before parsing.
func LoadNodeConfig(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read node config %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(data))

	var cfg NodeConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse node config %s: %w", path, err)
	}
	return &cfg, nil
}

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}
