package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config path constants used by the CLI and loaders.
const (
	ConfigFileName   = ".compasseval.yml"
	DefaultOutputDir = ".compasseval/results"
)

// ErrNotFound reports that no config file exists in the searched directories.
var ErrNotFound = errors.New("config file not found")

// FindConfigPath searches upward from a directory for .compasseval.yml.
func FindConfigPath(startDir string) (string, error) {
	dir := strings.TrimSpace(startDir)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve start directory: %w", err)
	}
	dir = abs

	for {
		candidate := filepath.Join(dir, ConfigFileName)
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", fmt.Errorf("config path %q is a directory", candidate)
			}
			return candidate, nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("stat config path %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: no %s in %s or parent directories", ErrNotFound, ConfigFileName, abs)
		}
		dir = parent
	}
}

// Resolve loads the explicit path when given, otherwise the nearest config file,
// otherwise defaults. The returned path is empty when defaults are used.
func Resolve(explicit, startDir string) (Config, string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}
	path, err := FindConfigPath(startDir)
	if errors.Is(err, ErrNotFound) {
		return Default(), "", nil
	}
	if err != nil {
		return Config{}, "", err
	}
	cfg, err := Load(path)
	return cfg, path, err
}
