package vdconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestLoad_ValidFile verifies loading a valid config file.
func TestLoad_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigTOML)

	configTOML := `
languages = ["go", "rust"]
include = ["docs/**"]
watch = true
verbose = true
`
	if err := os.WriteFile(configPath, []byte(configTOML), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := &Config{
		Languages: []string{"go", "rust"},
		Include:   []string{"docs/**"},
		Watch:     true,
		Verbose:   true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load of missing file should fail")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigTOML)
	if err := os.WriteFile(path, []byte("languages = [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load of invalid TOML should fail")
	}
}

func TestDiscover_WalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(root, ConfigTOML)
	if err := os.WriteFile(configPath, []byte(`languages = ["go"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, path, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if path != configPath {
		t.Errorf("Discover path = %s, want %s", path, configPath)
	}
	if diff := cmp.Diff([]string{"go"}, cfg.Languages); diff != "" {
		t.Errorf("languages mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_DefaultsWhenAbsent(t *testing.T) {
	cfg, path, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if path != "" {
		t.Errorf("Discover path = %q, want empty", path)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(configPath, []byte(`languages = ["sh"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfig, configPath)

	cfg, path, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if path != configPath {
		t.Errorf("Discover path = %s, want env override %s", path, configPath)
	}
	if diff := cmp.Diff([]string{"sh"}, cfg.Languages); diff != "" {
		t.Errorf("languages mismatch (-want +got):\n%s", diff)
	}
}
