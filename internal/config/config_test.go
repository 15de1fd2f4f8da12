package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pebble-lang/pebble/internal/config"
)

func TestLoadFindsManifestInAncestorDir(t *testing.T) {
	root := t.TempDir()
	manifestPath := filepath.Join(root, "pebble.toml")
	const manifest = `
[package]
name = "demo"

[run]
main = "src/main.pebble"
`
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	m, ok, err := config.Load(nested)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("expected manifest to be found")
	}
	if m.Config.Package.Name != "demo" {
		t.Fatalf("Package.Name = %q, want demo", m.Config.Package.Name)
	}
	want := filepath.Join(root, "src", "main.pebble")
	if got := m.MainPath(); got != want {
		t.Fatalf("MainPath() = %q, want %q", got, want)
	}
}

func TestLoadReportsNoManifest(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected no manifest to be found in an empty directory")
	}
}

func TestLoadRejectsMissingRunMain(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "pebble.toml")
	const manifest = `
[package]
name = "demo"

[run]
`
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := config.Load(dir); err == nil {
		t.Fatal("expected an error for a manifest missing [run].main")
	}
}
