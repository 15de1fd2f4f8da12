package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRunBuildSucceedsOnValidSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.pebble")
	if err := os.WriteFile(path, []byte(`fn main() { print("hi") }`), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	buildCmd.SetOut(&out)
	if err := runBuild(buildCmd, path); err != nil {
		t.Fatalf("runBuild: %v (output: %s)", err, out.String())
	}
}

func TestRunBuildReportsParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pebble")
	if err := os.WriteFile(path, []byte(`fn main( {`), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	buildCmd.SetOut(&out)
	if err := runBuild(buildCmd, path); err == nil {
		t.Fatal("expected runBuild to report a build failure")
	}
}

func TestResolveSourceUsesPositionalArg(t *testing.T) {
	got, err := resolveSource([]string{"some/file.pebble"})
	if err != nil {
		t.Fatalf("resolveSource: %v", err)
	}
	if got != "some/file.pebble" {
		t.Fatalf("resolveSource = %q, want %q", got, "some/file.pebble")
	}
}
