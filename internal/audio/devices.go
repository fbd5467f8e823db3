// Package audio discovers PulseAudio input sources and records PCM clips from them.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const clientName = "asrclient"

// Device describes one Pulse input source usable as a recognition input.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Usable reports whether audio can be recorded from the device.
func (d Device) Usable() bool {
	return d.Available && !d.Muted
}

// Selection is the resolved source plus a warning when a fallback was used.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(clientName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns the Pulse input sources with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceStateString(info.State),
			Available:   sourceAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == defaultSource.ID(),
		})
	}
	return devices, nil
}

// SelectDevice resolves a device preference ("" and "default" mean the
// server default) against the live source list.
func SelectDevice(ctx context.Context, preference string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, preference)
}

// selectDeviceFromList picks the preferred device, falling back to the
// default source when the preferred one is muted or unavailable.
func selectDeviceFromList(devices []Device, preference string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	preference = strings.ToLower(strings.TrimSpace(preference))

	var defaultDevice, preferred *Device
	for i := range devices {
		dev := &devices[i]
		if dev.Default && defaultDevice == nil {
			defaultDevice = dev
		}
		if preferred == nil && preference != "" && preference != "default" && deviceMatches(*dev, preference) {
			preferred = dev
		}
	}

	if preference == "" || preference == "default" {
		if defaultDevice == nil {
			return Selection{}, errors.New("default audio source is unavailable")
		}
		if !defaultDevice.Usable() {
			return Selection{}, fmt.Errorf("default audio source %q is %s", defaultDevice.ID, unusableReason(*defaultDevice))
		}
		return Selection{Device: *defaultDevice}, nil
	}

	if preferred == nil {
		return Selection{}, fmt.Errorf("audio source %q did not match any device", preference)
	}
	if preferred.Usable() {
		return Selection{Device: *preferred}, nil
	}

	reason := unusableReason(*preferred)
	if defaultDevice == nil || !defaultDevice.Usable() {
		return Selection{}, fmt.Errorf("audio source %q is %s and no usable default source", preferred.ID, reason)
	}
	return Selection{
		Device:   *defaultDevice,
		Warning:  fmt.Sprintf("audio source %q is %s; falling back to %q", preferred.ID, reason, defaultDevice.ID),
		Fallback: preferred.ID != defaultDevice.ID,
	}, nil
}

func unusableReason(device Device) string {
	if device.Muted {
		return "muted"
	}
	return "unavailable"
}

// deviceMatches reports whether a lower-case term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

// sourceStateString maps Pulse source state constants to readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps the active port availability to a boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name == source.ActivePortName {
			// PulseAudio values: unknown=0, no=1, yes=2.
			return port.Available != 1
		}
	}
	return true
}
