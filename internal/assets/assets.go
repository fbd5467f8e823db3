// Package assets resolves recognition inputs named on the console: audio
// files, live PulseAudio clips and grammars.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/estelamoura/unimrcp/internal/audio"
)

// PulsePrefix marks an audio input recorded live from a PulseAudio source.
const PulsePrefix = "pulse:"

// DefaultClipDuration is used for pulse inputs without an explicit length.
const DefaultClipDuration = 3 * time.Second

const maxClipDuration = 60 * time.Second

// ErrEmptyInput indicates a blank audio input or grammar reference.
var ErrEmptyInput = errors.New("empty asset reference")

// Audio is a loaded recognition input.
type Audio struct {
	// Source is the resolved file path or the Pulse source id.
	Source string
	PCM    []byte
}

// Grammar is a resolved grammar reference. Content is set only for file
// grammars, whose body travels with DEFINE-GRAMMAR.
type Grammar struct {
	URI     string
	Content string
}

// Inline reports whether the grammar body is carried with the request.
func (g Grammar) Inline() bool {
	return g.Content != ""
}

// Resolver maps console references onto the data directory and audio devices.
type Resolver struct {
	DataDir string
	// Device replaces the "default" device of pulse inputs when set.
	Device string

	selectDevice func(ctx context.Context, preference string) (audio.Selection, error)
	record       func(ctx context.Context, device audio.Device, duration time.Duration) ([]byte, error)
}

// NewResolver returns a resolver rooted at dataDir.
func NewResolver(dataDir string) *Resolver {
	return &Resolver{
		DataDir:      dataDir,
		selectDevice: audio.SelectDevice,
		record:       audio.Record,
	}
}

// Path returns the file path for an audio or grammar name. Absolute paths are
// used as-is; bare names live under the data directory.
func (r *Resolver) Path(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || filepath.IsAbs(name) || r.DataDir == "" {
		return name
	}
	return filepath.Join(r.DataDir, name)
}

// LoadAudio reads a recognition input, recording it first for pulse inputs.
func (r *Resolver) LoadAudio(ctx context.Context, input string) (Audio, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Audio{}, ErrEmptyInput
	}

	if strings.HasPrefix(input, PulsePrefix) {
		return r.recordPulse(ctx, input)
	}

	path := r.Path(input)
	pcm, err := os.ReadFile(path)
	if err != nil {
		return Audio{}, fmt.Errorf("read audio input %q: %w", path, err)
	}
	return Audio{Source: path, PCM: pcm}, nil
}

func (r *Resolver) recordPulse(ctx context.Context, input string) (Audio, error) {
	preference, duration, err := ParsePulseInput(input)
	if err != nil {
		return Audio{}, err
	}

	if preference == "default" && strings.TrimSpace(r.Device) != "" {
		preference = strings.TrimSpace(r.Device)
	}
	selection, err := r.selectDevice(ctx, preference)
	if err != nil {
		return Audio{}, fmt.Errorf("select audio source: %w", err)
	}

	pcm, err := r.record(ctx, selection.Device, duration)
	if err != nil {
		return Audio{}, fmt.Errorf("record from %q: %w", selection.Device.ID, err)
	}
	return Audio{Source: selection.Device.ID, PCM: pcm}, nil
}

// ParsePulseInput splits `pulse:<device>[@<seconds>]` into a device
// preference and a clip duration.
func ParsePulseInput(input string) (string, time.Duration, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(input), PulsePrefix)
	if !ok {
		return "", 0, fmt.Errorf("%q is not a pulse input", input)
	}

	device, seconds, hasDuration := strings.Cut(rest, "@")
	device = strings.TrimSpace(device)
	if device == "" {
		device = "default"
	}
	if !hasDuration {
		return device, DefaultClipDuration, nil
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(seconds), 64)
	if err != nil || value <= 0 {
		return "", 0, fmt.Errorf("invalid pulse clip length %q", seconds)
	}
	duration := time.Duration(value * float64(time.Second))
	if duration > maxClipDuration {
		return "", 0, fmt.Errorf("pulse clip length %s exceeds %s", duration, maxClipDuration)
	}
	return device, duration, nil
}

// ResolveGrammar passes scheme URIs (builtin:, http:, session:) through and
// loads file grammars from the data directory.
func (r *Resolver) ResolveGrammar(uri string) (Grammar, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return Grammar{}, ErrEmptyInput
	}
	if hasScheme(uri) {
		return Grammar{URI: uri}, nil
	}

	path := r.Path(uri)
	content, err := os.ReadFile(path)
	if err != nil {
		return Grammar{}, fmt.Errorf("read grammar %q: %w", path, err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return Grammar{}, fmt.Errorf("grammar %q is empty", path)
	}
	return Grammar{URI: "file://" + path, Content: string(content)}, nil
}

// hasScheme matches `scheme:rest` where scheme is a letter followed by
// letters, digits, '+', '-' or '.'. Single letters are treated as drive-less
// paths, never as schemes.
func hasScheme(uri string) bool {
	scheme, _, ok := strings.Cut(uri, ":")
	if !ok || len(scheme) < 2 {
		return false
	}
	for i, r := range scheme {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
