// Package config loads the optional pebble.toml project manifest, the same
// shape vovakirdan-surge's cmd/surge/project_manifest.go uses for
// surge.toml: a [package] name and a [run] main entry file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const fileName = "pebble.toml"

// Manifest is a located and parsed pebble.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Project
}

// Project is pebble.toml's shape.
type Project struct {
	Package Package `toml:"package"`
	Run     Run     `toml:"run"`
}

type Package struct {
	Name string `toml:"name"`
}

type Run struct {
	Main string `toml:"main"`
}

// Find walks upward from startDir looking for pebble.toml, the way
// vovakirdan-surge's FindSurgeToml locates surge.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, fileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Load locates and parses pebble.toml starting from startDir. ok is false
// (with a nil error) when no manifest exists in startDir or any ancestor.
func Load(startDir string) (*Manifest, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadProject(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

func loadProject(path string) (Project, error) {
	var cfg Project
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Project{}, fmt.Errorf("%s: parse toml: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return Project{}, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Project{}, fmt.Errorf("%s: missing [package].name", path)
	}
	if !meta.IsDefined("run") {
		return Project{}, fmt.Errorf("%s: missing [run]", path)
	}
	if !meta.IsDefined("run", "main") || strings.TrimSpace(cfg.Run.Main) == "" {
		return Project{}, fmt.Errorf("%s: missing [run].main", path)
	}
	return cfg, nil
}

// MainPath resolves [run].main relative to the manifest's directory.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.Root, filepath.FromSlash(strings.TrimSpace(m.Config.Run.Main)))
}
