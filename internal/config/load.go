package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration, then
// applies the environment overlay (`<root>/.env` plus the process environment).
func Load(explicitPath string, rootDir string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath, rootDir)
	if err != nil {
		return Loaded{}, err
	}

	loaded, err := loadFile(resolvedPath)
	if err != nil {
		return Loaded{}, err
	}

	envPath := ""
	if strings.TrimSpace(rootDir) != "" {
		envPath = filepath.Join(rootDir, ".env")
	}
	env, err := ReadEnv(envPath)
	if err != nil {
		return Loaded{}, err
	}
	if ApplyEnv(&loaded.Config, env) {
		warnings, err := Validate(loaded.Config)
		if err != nil {
			return Loaded{}, fmt.Errorf("environment overlay: %w", err)
		}
		loaded.Warnings = appendUnique(loaded.Warnings, warnings...)
	}
	return loaded, nil
}

func loadFile(resolvedPath string) (Loaded, error) {
	base := Default()
	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Loaded{
				Path:   resolvedPath,
				Config: base,
				Warnings: []Warning{{
					Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
				}},
				Exists: false,
			}, nil
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	cfg, warnings, err := Parse(string(content), base)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}, nil
}

func appendUnique(warnings []Warning, more ...Warning) []Warning {
	for _, w := range more {
		seen := false
		for _, existing := range warnings {
			if existing.Message == w.Message {
				seen = true
				break
			}
		}
		if !seen {
			warnings = append(warnings, w)
		}
	}
	return warnings
}
