package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "5s" and "5m" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// BackendConfig holds connection settings shared by both remote endpoint families.
type BackendConfig struct {
	BaseURL string `yaml:"base_url,omitempty"` // Base URL of the search backend
	APIKey  string `yaml:"api_key,omitempty"`  // Bearer token, optional
}

// DocumentSearchConfig configures the document endpoint family.
// The document search operates over ingested long-form content and supports
// independent per-document and per-chunk relevance thresholds.
type DocumentSearchConfig struct {
	MinDocumentScore float64 `yaml:"min_document_score,omitempty"`
	MinChunkScore    float64 `yaml:"min_chunk_score,omitempty"`
	RewriteQuery     bool    `yaml:"rewrite_query,omitempty"`
	Rerank           bool    `yaml:"rerank,omitempty"`
}

// MemorySearchConfig configures the memory endpoint family.
// The memory search operates over short structured records and supports a
// single similarity threshold.
type MemorySearchConfig struct {
	MinScore float64 `yaml:"min_score,omitempty"`
	Rerank   bool    `yaml:"rerank,omitempty"`
}

// SearchConfig holds the tuning parameters of the search pipeline. The
// over-fetch and cache values are deliberately configurable rather than
// hard-coded constants.
type SearchConfig struct {
	OverfetchMultiplier int      `yaml:"overfetch_multiplier,omitempty"` // candidates fetched = max(limit*multiplier, floor)
	OverfetchFloor      int      `yaml:"overfetch_floor,omitempty"`
	CallTimeout         Duration `yaml:"call_timeout,omitempty"`  // per backend call
	QueryTimeout        Duration `yaml:"query_timeout,omitempty"` // whole pipeline including one re-fetch
	MaxRetries          uint64   `yaml:"max_retries,omitempty"`   // retries per backend call on transient failures
	InitialBackoff      Duration `yaml:"initial_backoff,omitempty"`
	CacheTTL            Duration `yaml:"cache_ttl,omitempty"`
	CacheSize           int      `yaml:"cache_size,omitempty"`
	CacheDisabled       bool     `yaml:"cache_disabled,omitempty"`
	SharedOwner         string   `yaml:"shared_owner,omitempty"` // reserved owner id for globally visible records
}

// Config is the top-level memsearchd configuration.
type Config struct {
	Backend  BackendConfig        `yaml:"backend,omitempty"`
	Document DocumentSearchConfig `yaml:"document,omitempty"`
	Memory   MemorySearchConfig   `yaml:"memory,omitempty"`
	Search   SearchConfig         `yaml:"search,omitempty"`
}

// Default returns the built-in configuration. User config files are merged
// on top of these values.
func Default() Config {
	return Config{
		Document: DocumentSearchConfig{
			MinDocumentScore: 0.25,
			MinChunkScore:    0.40,
			Rerank:           true,
		},
		Memory: MemorySearchConfig{
			MinScore: 0.35,
			Rerank:   true,
		},
		Search: SearchConfig{
			OverfetchMultiplier: 5,
			OverfetchFloor:      50,
			CallTimeout:         Duration(5 * time.Second),
			QueryTimeout:        Duration(8 * time.Second),
			MaxRetries:          2,
			InitialBackoff:      Duration(250 * time.Millisecond),
			CacheTTL:            Duration(5 * time.Minute),
			CacheSize:           512,
			SharedOwner:         "shared",
		},
	}
}

// GetConfigPath returns the default config file path, expanding ~ to home directory.
// Can be overridden via MEMSEARCH_CONFIG_PATH environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv("MEMSEARCH_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.memsearchd/config.yaml"
	}
	return filepath.Join(homeDir, ".memsearchd", "config.yaml")
}

// Load reads the config file at path and merges it over the defaults.
// A missing file is not an error; the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Config{}

	data, err := os.ReadFile(expandPath(path)) //nolint:gosec // G304: user-specified config path is intentional
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to defaults
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Fill any unset fields from the defaults. File values take precedence.
	defaults := Default()
	if err := mergo.Merge(&cfg, defaults); err != nil {
		return Config{}, fmt.Errorf("failed to merge default config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Search.OverfetchMultiplier < 1 {
		return fmt.Errorf("config: overfetch_multiplier must be >= 1, got %d", c.Search.OverfetchMultiplier)
	}
	if c.Search.OverfetchFloor < 1 {
		return fmt.Errorf("config: overfetch_floor must be >= 1, got %d", c.Search.OverfetchFloor)
	}
	if c.Search.CallTimeout <= 0 {
		return fmt.Errorf("config: call_timeout must be positive, got %s", c.Search.CallTimeout.Std())
	}
	if c.Search.QueryTimeout <= 0 {
		return fmt.Errorf("config: query_timeout must be positive, got %s", c.Search.QueryTimeout.Std())
	}
	if c.Search.SharedOwner == "" {
		return fmt.Errorf("config: shared_owner must not be empty")
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
