// Package config loads mnemo's configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the engine's tunable knobs.
type Config struct {
	DBPath             string  `yaml:"db_path"`
	SystemPrompt       string  `yaml:"system_prompt"`
	MemoryDepth        int     `yaml:"memory_depth"`
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
	MaxResults         int     `yaml:"max_results"`
	ChunkTarget        int     `yaml:"chunk_target"`
	ChunkOverlap       int     `yaml:"chunk_overlap"`
	Model              string  `yaml:"model"`
	EmbedProvider      string  `yaml:"embed_provider"`
	EmbedModel         string  `yaml:"embed_model"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DBPath:             filepath.Join(home, ".mnemo", "mnemo.db"),
		SystemPrompt:       "You are a helpful assistant with long-term memory.",
		MemoryDepth:        10,
		RelevanceThreshold: 0.3,
		MaxResults:         6,
		ChunkTarget:        400,
		ChunkOverlap:       50,
	}
}

// DefaultPath is the conventional config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mnemo", "config.yaml")
}

// Load reads the YAML file at path (missing file is fine), then applies
// environment overrides on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MNEMO_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("MNEMO_SYSTEM_PROMPT"); v != "" {
		cfg.SystemPrompt = v
	}
	if v := os.Getenv("MNEMO_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MemoryDepth = n
		}
	}
	if v := os.Getenv("MNEMO_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RelevanceThreshold = f
		}
	}
	if v := os.Getenv("MNEMO_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("MNEMO_EMBED_PROVIDER"); v != "" {
		cfg.EmbedProvider = v
	}
	if v := os.Getenv("MNEMO_EMBED_MODEL"); v != "" {
		cfg.EmbedModel = v
	}
}
