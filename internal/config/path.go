package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName     = "asrclient"
	rootConfigFile = "asrclient.jsonc"
)

// ResolvePath applies CLI/root-dir/XDG/home fallback rules for the config location.
func ResolvePath(explicit string, rootDir string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if root := strings.TrimSpace(rootDir); root != "" {
		return filepath.Join(root, "conf", rootConfigFile), nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, appDirName, "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", appDirName, "config.jsonc"), nil
}

// ResolveDataDir returns the directory bare audio and grammar names live in.
// A relative data_dir is taken relative to rootDir.
func (c Config) ResolveDataDir(rootDir string) string {
	dir := strings.TrimSpace(c.DataDir)
	switch {
	case dir == "":
		return filepath.Join(rootDir, "data")
	case filepath.IsAbs(dir):
		return dir
	default:
		return filepath.Join(rootDir, dir)
	}
}

// ResolveProfilesPath returns the profile catalog file, or "" when the
// built-in catalog applies.
func (c Config) ResolveProfilesPath(rootDir string) string {
	path := strings.TrimSpace(c.Session.ProfilesFile)
	if path != "" {
		if filepath.IsAbs(path) || strings.TrimSpace(rootDir) == "" {
			return path
		}
		return filepath.Join(rootDir, path)
	}
	if strings.TrimSpace(rootDir) == "" {
		return ""
	}
	return filepath.Join(rootDir, "conf", "client-profiles.yaml")
}
