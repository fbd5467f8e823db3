// Package doctor runs readiness diagnostics for config, data, profiles, the
// recognition engine, and audio input.
package doctor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/estelamoura/unimrcp/internal/audio"
	"github.com/estelamoura/unimrcp/internal/config"
	"github.com/estelamoura/unimrcp/internal/engine/remote"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Options selects what Run inspects.
type Options struct {
	Loaded  config.Loaded
	RootDir string
	// SkipAudio omits the Pulse source check.
	SkipAudio bool
}

type checkFunc func(context.Context) Check

// Run executes every check concurrently. The report keeps a fixed order.
func Run(ctx context.Context, opts Options) Report {
	cfg := opts.Loaded.Config
	checks := []checkFunc{
		func(context.Context) Check { return checkConfig(opts.Loaded) },
		func(context.Context) Check { return checkDataDir(cfg.ResolveDataDir(opts.RootDir)) },
		func(context.Context) Check { return checkProfiles(cfg, cfg.ResolveProfilesPath(opts.RootDir)) },
		func(ctx context.Context) Check { return checkEngineReady(ctx, cfg.Engine) },
		func(ctx context.Context) Check { return checkEngineHealth(ctx, cfg.Engine) },
	}
	if !opts.SkipAudio {
		checks = append(checks, func(ctx context.Context) Check { return checkAudioSelection(ctx, cfg) })
	}

	results := make([]Check, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range checks {
		g.Go(func() error {
			results[i] = check(gctx)
			return nil
		})
	}
	_ = g.Wait()

	return Report{Checks: results}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if n := len(loaded.Warnings); n > 0 {
		message += fmt.Sprintf(" (%d warning(s))", n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

func checkDataDir(dir string) Check {
	info, err := os.Stat(dir)
	if err != nil {
		return Check{Name: "data_dir", Pass: false, Message: err.Error()}
	}
	if !info.IsDir() {
		return Check{Name: "data_dir", Pass: false, Message: fmt.Sprintf("%s is not a directory", dir)}
	}
	return Check{Name: "data_dir", Pass: true, Message: dir}
}

func checkProfiles(cfg config.Config, path string) Check {
	catalog, err := config.LoadCatalog(path)
	if err != nil {
		return Check{Name: "profiles", Pass: false, Message: err.Error()}
	}
	if !catalog.Has(cfg.Session.DefaultProfile) {
		return Check{Name: "profiles", Pass: false, Message: fmt.Sprintf("default profile %q is not in %s", cfg.Session.DefaultProfile, strings.Join(catalog.Names(), ", "))}
	}
	return Check{Name: "profiles", Pass: true, Message: strings.Join(catalog.Names(), ", ")}
}

// checkEngineReady queries the configured engine HTTP ready endpoint.
func checkEngineReady(ctx context.Context, cfg config.EngineConfig) Check {
	base := strings.TrimSpace(cfg.HTTP)
	if base == "" {
		return Check{Name: "engine.ready", Pass: true, Message: "skipped (engine.http is empty)"}
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := strings.TrimRight(base, "/") + cfg.HealthPath
	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return Check{Name: "engine.ready", Pass: false, Message: fmt.Sprintf("build request: %v", err)}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Check{Name: "engine.ready", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Check{Name: "engine.ready", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}

	bodyText := strings.ToLower(strings.TrimSpace(string(body)))
	if bodyText != "" && !strings.Contains(bodyText, "ready") {
		return Check{Name: "engine.ready", Pass: true, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}

	return Check{Name: "engine.ready", Pass: true, Message: fmt.Sprintf("ready at %s", url)}
}

// checkEngineHealth queries the gRPC health service of a remote engine.
func checkEngineHealth(ctx context.Context, cfg config.EngineConfig) Check {
	if cfg.Kind != config.EngineGRPC {
		return Check{Name: "engine.grpc", Pass: true, Message: fmt.Sprintf("skipped (engine.kind is %s)", cfg.Kind)}
	}

	client, err := remote.Dial(ctx, remote.ClientConfig{
		Endpoint:    cfg.GRPC,
		Token:       cfg.Token,
		DialTimeout: time.Duration(cfg.DialTimeoutMS) * time.Millisecond,
	})
	if err != nil {
		return Check{Name: "engine.grpc", Pass: false, Message: err.Error()}
	}
	defer client.Close()

	healthCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	status, err := client.Health(healthCtx)
	if err != nil {
		return Check{Name: "engine.grpc", Pass: false, Message: fmt.Sprintf("health check failed: %v", err)}
	}
	if status != healthpb.HealthCheckResponse_SERVING {
		return Check{Name: "engine.grpc", Pass: false, Message: fmt.Sprintf("%s is %s", cfg.GRPC, status)}
	}
	return Check{Name: "engine.grpc", Pass: true, Message: fmt.Sprintf("serving at %s", cfg.GRPC)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}
