// Copyright 2025 Certen Protocol
//
// Host configuration loader: a flat, yaml.v3-tagged struct tree with
// ${VAR_NAME} / ${VAR_NAME:-default} environment substitution applied to
// the raw file before unmarshaling.

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/certen/nexus/pkg/types"
)

// Config holds all configuration for the Nexus execution core.
type Config struct {
	Storage StorageSettings `yaml:"storage"`
	RPC     RPCSettings     `yaml:"rpc"`
	Engine  EngineSettings  `yaml:"engine"`
	Proof   ProofSettings   `yaml:"proof"`
	Metrics MetricsSettings `yaml:"metrics"`
}

// StorageSettings points at the embedded key-value store backing the
// state tree, mempool, and chain index. Nexus requires only atomic
// batched put and keyed get, provided here by a dbm.DB opened at Path.
type StorageSettings struct {
	Path    string `yaml:"path"`
	Backend string `yaml:"backend"` // "goleveldb" or "memdb"; memdb is test-only
}

// RPCSettings configures the HTTP/JSON surface.
type RPCSettings struct {
	ListenAddr string `yaml:"listen_addr"`
}

// EngineSettings bounds the execution engine's in-memory structures.
type EngineSettings struct {
	HeaderStoreCapacity int      `yaml:"header_store_capacity"`
	HeaderChannelBuffer int      `yaml:"header_channel_buffer"`
	ShutdownGrace       Duration `yaml:"shutdown_grace"`
}

// ProofSettings selects the Proof Adapter backend.
type ProofSettings struct {
	Backend string `yaml:"backend"` // mock | no_aggregation | compressed | groth16
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// Duration wraps time.Duration for YAML unmarshaling so config files
// write "5s", not raw nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

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

// Load reads and parses a Nexus host configuration file, substituting
// ${VAR_NAME} environment references before unmarshaling, then applies
// defaults to any field the file left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	expanded := substituteEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Path == "" {
		c.Storage.Path = "./data/nexus"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "goleveldb"
	}
	if c.RPC.ListenAddr == "" {
		c.RPC.ListenAddr = ":8080"
	}
	if c.Engine.HeaderStoreCapacity == 0 {
		c.Engine.HeaderStoreCapacity = 32
	}
	if c.Engine.HeaderChannelBuffer == 0 {
		c.Engine.HeaderChannelBuffer = 64
	}
	if c.Engine.ShutdownGrace == 0 {
		c.Engine.ShutdownGrace = Duration(30 * time.Second)
	}
	if c.Proof.Backend == "" {
		c.Proof.Backend = "mock"
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
}

// ProofBackend parses Proof.Backend into the types.ProofBackend the Proof
// Adapter constructor expects.
func (p ProofSettings) ProofBackend() (types.ProofBackend, error) {
	switch p.Backend {
	case "mock":
		return types.BackendMock, nil
	case "no_aggregation":
		return types.BackendNoAggregation, nil
	case "compressed":
		return types.BackendCompressed, nil
	case "groth16":
		return types.BackendGroth16, nil
	default:
		return 0, fmt.Errorf("config: unknown proof backend %q", p.Backend)
	}
}
