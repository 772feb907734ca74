package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsInternallyValid(t *testing.T) {
	cfg := Default()
	if cfg.ProjectRoot == "" {
		t.Fatal("default projectRoot must not be empty")
	}
	if cfg.StoragePath == "" {
		t.Fatal("default storagePath must not be empty")
	}
	if len(cfg.CallbackPatterns) == 0 {
		t.Fatal("expected default callback patterns")
	}
}

func TestLoadFillsUnsetFieldsFromDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tscg.yaml")
	if err := os.WriteFile(path, []byte("projectRoot: ./app\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProjectRoot != "./app" {
		t.Errorf("expected overridden projectRoot, got %q", cfg.ProjectRoot)
	}
	if cfg.StoragePath != Default().StoragePath {
		t.Errorf("expected default storagePath to survive partial override, got %q", cfg.StoragePath)
	}
}

func TestLoadRejectsEmptyProjectRoot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tscg.yaml")
	if err := os.WriteFile(path, []byte("projectRoot: \"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for empty projectRoot")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestHashIsDeterministicAndSensitiveToContent(t *testing.T) {
	a := Default()
	b := Default()
	if a.Hash() != b.Hash() {
		t.Fatal("expected identical configs to hash identically")
	}

	b.ProjectRoot = "./other"
	if a.Hash() == b.Hash() {
		t.Fatal("expected changed config to hash differently")
	}
}
