package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment overlay keys.
const (
	EnvEngineGRPC     = "ASRCLIENT_ENGINE_GRPC"
	EnvEngineToken    = "ASRCLIENT_ENGINE_TOKEN"
	EnvDefaultProfile = "ASRCLIENT_DEFAULT_PROFILE"
)

var envKeys = []string{EnvEngineGRPC, EnvEngineToken, EnvDefaultProfile}

// ReadEnv returns overlay values from an optional .env file, with the process
// environment taking precedence. A missing file is not an error.
func ReadEnv(path string) (map[string]string, error) {
	values := make(map[string]string)

	if strings.TrimSpace(path) != "" {
		fileValues, err := godotenv.Read(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read env file %q: %w", path, err)
		default:
			for _, key := range envKeys {
				if v, ok := fileValues[key]; ok {
					values[key] = v
				}
			}
		}
	}

	for _, key := range envKeys {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}
	return values, nil
}

// ApplyEnv overlays non-empty env values onto cfg and reports whether any
// field changed.
func ApplyEnv(cfg *Config, env map[string]string) bool {
	changed := false
	set := func(dst *string, key string) {
		v := strings.TrimSpace(env[key])
		if v == "" || v == *dst {
			return
		}
		*dst = v
		changed = true
	}

	set(&cfg.Engine.GRPC, EnvEngineGRPC)
	set(&cfg.Engine.Token, EnvEngineToken)
	set(&cfg.Session.DefaultProfile, EnvDefaultProfile)
	return changed
}
