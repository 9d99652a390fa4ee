package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoadEngineFile loads an external engine config file. Relative names are
// resolved against baseDir. It returns the top-level options and the path
// that was read.
func LoadEngineFile(baseDir, name string) (map[string]any, string, error) {
	path := resolvePathRelativeTo(name, baseDir)

	if _, err := os.Stat(path); err != nil {
		return nil, path, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, path, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return k.Raw(), path, nil
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
