package config

import (
	"fmt"
	"strings"
)

const maxShellLineBytes = 64 * 1024

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch cfg.Engine.Kind {
	case EngineLoopback, EngineGRPC:
	default:
		return nil, fmt.Errorf("engine.kind must be one of: %s, %s", EngineLoopback, EngineGRPC)
	}
	if cfg.Engine.Kind == EngineGRPC && strings.TrimSpace(cfg.Engine.GRPC) == "" {
		return nil, fmt.Errorf("engine.grpc must not be empty when engine.kind=grpc")
	}
	if strings.TrimSpace(cfg.Engine.HTTP) != "" && !strings.HasPrefix(strings.TrimSpace(cfg.Engine.HealthPath), "/") {
		return nil, fmt.Errorf("engine.health_path must start with '/'")
	}
	if cfg.Engine.DialTimeoutMS <= 0 {
		return nil, fmt.Errorf("engine.dial_timeout_ms must be > 0")
	}
	if cfg.Engine.LatencyMS < 0 {
		return nil, fmt.Errorf("engine.latency_ms must be >= 0")
	}
	if cfg.Engine.Kind == EngineLoopback && strings.TrimSpace(cfg.Engine.Token) != "" {
		warnings = append(warnings, Warning{Message: "engine.token is ignored by the loopback engine"})
	}

	if strings.TrimSpace(cfg.Session.DefaultProfile) == "" {
		return nil, fmt.Errorf("session.default_profile must not be empty")
	}

	if err := validateParams("set_params", cfg.SetParams); err != nil {
		return nil, err
	}
	if err := validateParams("recognize_params", cfg.Recognize); err != nil {
		return nil, err
	}

	if cfg.Shell.MaxLineBytes < 2 || cfg.Shell.MaxLineBytes > maxShellLineBytes {
		return nil, fmt.Errorf("shell.max_line_bytes must be between 2 and %d", maxShellLineBytes)
	}
	if strings.TrimSpace(cfg.Shell.Prompt) == "" {
		warnings = append(warnings, Warning{Message: "shell.prompt is empty; the shell will not print a prompt"})
	}

	if cfg.Log.Priority < 0 || cfg.Log.Priority > 7 {
		return nil, fmt.Errorf("log.priority must be between 0 and 7")
	}
	if cfg.Log.Output < 0 || cfg.Log.Output > 3 {
		return nil, fmt.Errorf("log.output must be between 0 and 3")
	}

	return warnings, nil
}

func validateParams(name string, p RecognitionParams) error {
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		return fmt.Errorf("%s.confidence_threshold must be between 0 and 1", name)
	}
	if p.NBestListLength < 1 {
		return fmt.Errorf("%s.n_best_list_length must be >= 1", name)
	}
	if p.NoInputTimeoutMS < 0 {
		return fmt.Errorf("%s.no_input_timeout_ms must be >= 0", name)
	}
	if p.RecognitionTimeoutMS < 0 {
		return fmt.Errorf("%s.recognition_timeout_ms must be >= 0", name)
	}
	return nil
}
