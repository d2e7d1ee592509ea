package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MNEMO_DB", "MNEMO_SYSTEM_PROMPT", "MNEMO_DEPTH", "MNEMO_THRESHOLD",
		"MNEMO_MODEL", "MNEMO_EMBED_PROVIDER", "MNEMO_EMBED_MODEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.MemoryDepth != def.MemoryDepth || cfg.RelevanceThreshold != def.RelevanceThreshold {
		t.Errorf("missing file should yield defaults, got %+v", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("memory_depth: 4\nrelevance_threshold: 0.55\ndb_path: /tmp/custom.db\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MemoryDepth != 4 {
		t.Errorf("expected depth 4, got %d", cfg.MemoryDepth)
	}
	if cfg.RelevanceThreshold != 0.55 {
		t.Errorf("expected threshold 0.55, got %f", cfg.RelevanceThreshold)
	}
	if cfg.DBPath != "/tmp/custom.db" {
		t.Errorf("expected custom db path, got %s", cfg.DBPath)
	}
	// Fields the file omits keep their defaults.
	if cfg.ChunkTarget != Default().ChunkTarget {
		t.Errorf("omitted field lost its default: %d", cfg.ChunkTarget)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("memory_depth: 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MNEMO_DEPTH", "7")
	t.Setenv("MNEMO_DB", "/tmp/env.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MemoryDepth != 7 {
		t.Errorf("env override lost: depth %d", cfg.MemoryDepth)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Errorf("env override lost: db %s", cfg.DBPath)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestLoad_InvalidEnvIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("MNEMO_DEPTH", "not-a-number")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MemoryDepth != Default().MemoryDepth {
		t.Errorf("invalid env value changed depth: %d", cfg.MemoryDepth)
	}
}
