// Package config loads agentd settings from a YAML file with environment
// overrides. Every field has a working default so an empty config starts a
// usable server (with the deterministic mock embedder and no auth secret,
// which is only acceptable for local development).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "15m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full agentd configuration.
type Config struct {
	// Addr is the listen address of the WebSocket server.
	Addr string `yaml:"addr"`

	// DatabasePath is the SQLite file holding facts and summaries.
	DatabasePath string `yaml:"database_path"`

	// JWTSecret signs handshake tokens. AGENTCORE_JWT_SECRET overrides.
	JWTSecret string `yaml:"jwt_secret"`

	// Model is the completion model identifier.
	Model string `yaml:"model"`

	// BufferSize is the per-chat short-term message window.
	BufferSize int `yaml:"buffer_size"`

	// SummaryThreshold is the approximate token count that triggers a
	// conversation summary write.
	SummaryThreshold int `yaml:"summary_threshold"`

	// FlowTTL is how long an idle guided-flow session survives.
	FlowTTL Duration `yaml:"flow_ttl"`

	Memory    MemoryConfig    `yaml:"memory"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

// MemoryConfig tunes the reinforcement scorer.
type MemoryConfig struct {
	Alpha           float64 `yaml:"alpha"`
	Gamma           float64 `yaml:"gamma"`
	Beta            float64 `yaml:"beta"`
	ReinforceDelta  float64 `yaml:"reinforce_delta"`
	ContradictDelta float64 `yaml:"contradict_delta"`
}

// EmbeddingConfig selects and sizes the embedder.
type EmbeddingConfig struct {
	// Dimensions of the embedding vectors.
	Dimensions int `yaml:"dimensions"`

	// CacheBytes sizes the embedding cache.
	CacheBytes int64 `yaml:"cache_bytes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:             ":8090",
		DatabasePath:     "agentcore.db",
		Model:            "claude-sonnet-4-20250514",
		BufferSize:       12,
		SummaryThreshold: 600,
		FlowTTL:          Duration(15 * time.Minute),
		Memory: MemoryConfig{
			Alpha:           1.0,
			Gamma:           1.2,
			Beta:            2.0,
			ReinforceDelta:  1.0,
			ContradictDelta: 1.5,
		},
		Embedding: EmbeddingConfig{
			Dimensions: 384,
			CacheBytes: 64 << 20,
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AGENTCORE_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("AGENTCORE_DB"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("AGENTCORE_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("AGENTCORE_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("AGENTCORE_SUMMARY_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SummaryThreshold = n
		}
	}
}
