package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".domainrecon"

// xdgConfigFile is the name of the configuration file inside XDGConfigDir.
const xdgConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads the YAML configuration file at path.
//
// Unknown keys are rejected, so a misspelt setting fails loudly instead of
// being ignored. An empty file yields an empty File. A missing file is
// reported as ErrConfigNotFound; whether that matters is up to the caller.
func LoadConfigFile(path string) (*File, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	defer f.Close()

	var cf File
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid configuration file %s: %w", path, err)
	}

	return &cf, nil
}

// FindConfigFile returns the configuration file to load, or "" if none.
//
// An explicit configPath is returned when it names a regular file.
// Without one, the paths of SearchPaths are tried in order.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if isRegularFile(configPath) {
			return configPath
		}
		return ""
	}

	for _, path := range SearchPaths() {
		if isRegularFile(path) {
			return path
		}
	}
	return ""
}

// SearchPaths lists the implicit configuration file locations, in order:
// .domainrecon in the working directory, config.yaml in the XDG config
// directory and .domainrecon in the home directory.
func SearchPaths() []string {
	paths := make([]string, 0, 3)

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}

	paths = append(paths, filepath.Join(XDGConfigDir(), xdgConfigFile))

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}

	return paths
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
