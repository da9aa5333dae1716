package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"librarian/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantSpool := filepath.Join(tempHome, ".local", "share", "librarian", "spool")
	if cfg.Paths.SpoolDir != wantSpool {
		t.Fatalf("unexpected spool dir: got %q want %q", cfg.Paths.SpoolDir, wantSpool)
	}
	if cfg.Spool.Extension != ".zip" {
		t.Fatalf("unexpected spool extension: %q", cfg.Spool.Extension)
	}
	if cfg.Cache.Backend != "in-memory" {
		t.Fatalf("unexpected cache backend: %q", cfg.Cache.Backend)
	}
	if cfg.Tuner.Enabled {
		t.Fatal("expected tuner disabled by default")
	}
	if !strings.HasSuffix(cfg.CatalogDBPath(), "librarian.db") {
		t.Fatalf("unexpected catalog db path: %q", cfg.CatalogDBPath())
	}
}

func TestLoadParsesExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "librarian.toml")
	content := `
[paths]
spooldir = "` + filepath.Join(dir, "spool") + `"
contentdir = "` + filepath.Join(dir, "content") + `"

[spool]
extension = "zip"
max_age_days = 7

[cache]
backend = "scored-in-memory"
max_entries = 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit file to resolve, got %q exists=%v", resolved, exists)
	}
	if cfg.Spool.MaxAgeDays != 7 {
		t.Fatalf("unexpected max age: %d", cfg.Spool.MaxAgeDays)
	}
	if cfg.Spool.Extension != ".zip" {
		t.Fatalf("extension not normalized: %q", cfg.Spool.Extension)
	}
	if cfg.Cache.Backend != "scored-in-memory" || cfg.Cache.MaxEntries != 10 {
		t.Fatalf("cache section not applied: %#v", cfg.Cache)
	}
}

func TestLoadRejectsBadCacheBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "librarian.toml")
	if err := os.WriteFile(path, []byte("[cache]\nbackend = \"redis\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported cache backend")
	}
}

func TestLoadRejectsMemcachedWithoutServers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "librarian.toml")
	if err := os.WriteFile(path, []byte("[cache]\nbackend = \"memcached\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for memcached backend without servers")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SpoolDir = filepath.Join(dir, "spool")
	cfg.Paths.ContentDir = filepath.Join(dir, "content")
	cfg.Paths.CoversDir = filepath.Join(dir, "covers")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Databases.Dir = filepath.Join(dir, "databases")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, sub := range []string{"spool", "content", "covers", "logs", "databases"} {
		if info, err := os.Stat(filepath.Join(dir, sub)); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", sub, err)
		}
	}
}
