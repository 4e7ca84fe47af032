// Package config loads the knowledge-base configuration: defaults merged
// with <home>/.acl/config.yaml, home resolved from ACL_HOME.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StoreDir is the fixed subdirectory of the knowledge-base root holding
// the embedded stores, config and backups.
const StoreDir = ".acl"

// Config is the merged configuration tree.
type Config struct {
	Home   string       `yaml:"home"`
	Search SearchConfig `yaml:"search"`
	Graph  GraphConfig  `yaml:"graph"`
	Scan   ScanConfig   `yaml:"scan"`
	LLM    LLMConfig    `yaml:"llm"`
	Backup BackupConfig `yaml:"backup"`
}

type SearchConfig struct {
	MaxResults int `yaml:"max_results"`
	MaxTokens  int `yaml:"default_max_tokens"`
}

type GraphConfig struct {
	TemporalWindowMinutes  int `yaml:"temporal_window_minutes"`
	SemanticTopK           int `yaml:"semantic_top_k"`
	CandidateLookbackHours int `yaml:"candidate_lookback_hours"`
	MaxCandidates          int `yaml:"max_candidates"`
}

type ScanConfig struct {
	MaxFileSizeKB int      `yaml:"max_file_size_kb"`
	Exclude       []string `yaml:"exclude"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`
}

type BackupConfig struct {
	Provider string `yaml:"provider"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Search: SearchConfig{
			MaxResults: 20,
			MaxTokens:  4000,
		},
		Graph: GraphConfig{
			TemporalWindowMinutes:  30,
			SemanticTopK:           3,
			CandidateLookbackHours: 168,
			MaxCandidates:          200,
		},
		Scan: ScanConfig{
			MaxFileSizeKB: 512,
			Exclude:       []string{".git", "node_modules", "vendor", "dist", "build", "__pycache__", ".venv", "target"},
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Backup: BackupConfig{
			Provider: "local",
		},
	}
}

// ResolveHome resolves the knowledge-base root: ACL_HOME env var, then the
// explicit flag value, then ~/anticlaw.
func ResolveHome(flag string) (string, error) {
	if env := os.Getenv("ACL_HOME"); env != "" {
		return filepath.Clean(env), nil
	}
	if flag != "" {
		return filepath.Clean(flag), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, "anticlaw"), nil
}

// Path returns the config file location for a knowledge-base root.
func Path(home string) string {
	return filepath.Join(home, StoreDir, "config.yaml")
}

// GraphDBPath returns the graph store location for a knowledge-base root.
func GraphDBPath(home string) string {
	return filepath.Join(home, StoreDir, "graph.db")
}

// MetaDBPath returns the search index location for a knowledge-base root.
func MetaDBPath(home string) string {
	return filepath.Join(home, StoreDir, "meta.db")
}

// Load reads the config file for home (if present) over the defaults.
// A missing file is not an error; an unreadable one is.
func Load(home string) (Config, error) {
	cfg := Default()
	cfg.Home = home

	raw, err := os.ReadFile(Path(home))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	// yaml unmarshals over the populated struct, so absent keys keep
	// their defaults.
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Home = home
	return cfg, nil
}

// Save writes the config file, creating the store directory if needed.
func Save(cfg Config) error {
	path := Path(cfg.Home)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
