// Package config loads the optional veld.yaml project configuration and
// resolves defaults from the enclosing Go module.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"
)

// Config represents the optional veld.yaml configuration.
type Config struct {
	Generate GenerateConfig `yaml:"generate"`
}

// GenerateConfig controls generated output.
type GenerateConfig struct {
	// Package is the package name of generated files. Empty means the
	// containing directory's name.
	Package string `yaml:"package,omitempty"`
	// Header controls the "Code generated" comment; nil means on.
	Header *bool `yaml:"header,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root       string
	ModulePath string
	Package    string
	Header     bool
}

// LoadOptional reads veld.yaml if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, "veld.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read veld.yaml: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse veld.yaml: %w", err)
	}
	return &cfg, nil
}

// Resolve loads veld.yaml (if present) and resolves defaults against the
// module rooted at dir.
func Resolve(dir string) (*Resolved, error) {
	modulePath, err := modulePath(dir)
	if err != nil {
		return nil, err
	}
	if err := module.CheckPath(modulePath); err != nil {
		return nil, fmt.Errorf("invalid module path %q: %w", modulePath, err)
	}

	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	pkg := strings.TrimSpace(cfg.Generate.Package)
	if pkg != "" {
		if err := validatePackageName(pkg); err != nil {
			return nil, err
		}
	}

	header := true
	if cfg.Generate.Header != nil {
		header = *cfg.Generate.Header
	}

	return &Resolved{
		Root:       dir,
		ModulePath: modulePath,
		Package:    pkg,
		Header:     header,
	}, nil
}

// FindProjectRoot walks up from the current directory to find go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go module (no go.mod found)")
		}
		dir = parent
	}
}

func modulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

func validatePackageName(pkg string) error {
	for i, r := range pkg {
		switch {
		case r >= 'a' && r <= 'z' || r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return fmt.Errorf("generate.package %q cannot start with a digit", pkg)
			}
		default:
			return fmt.Errorf("generate.package %q is not a valid package name", pkg)
		}
	}
	return nil
}
