package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/estelamoura/unimrcp/internal/audio"
	"github.com/stretchr/testify/require"
)

func TestPathResolvesBareNamesUnderDataDir(t *testing.T) {
	r := NewResolver("/srv/asr/data")

	require.Equal(t, "/srv/asr/data/sample.raw", r.Path("sample.raw"))
	require.Equal(t, "/tmp/other.raw", r.Path("/tmp/other.raw"))
	require.Equal(t, "sample.raw", NewResolver("").Path("sample.raw"))
}

func TestLoadAudioReadsFileFromDataDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.raw"), []byte{1, 2, 3, 4}, 0o600))

	got, err := NewResolver(dir).LoadAudio(context.Background(), "sample.raw")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "sample.raw"), got.Source)
	require.Equal(t, []byte{1, 2, 3, 4}, got.PCM)
}

func TestLoadAudioErrors(t *testing.T) {
	r := NewResolver(t.TempDir())

	_, err := r.LoadAudio(context.Background(), "  ")
	require.ErrorIs(t, err, ErrEmptyInput)

	_, err = r.LoadAudio(context.Background(), "missing.raw")
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadAudioRecordsPulseInput(t *testing.T) {
	r := NewResolver(t.TempDir())

	var gotPreference string
	var gotDuration time.Duration
	r.selectDevice = func(_ context.Context, preference string) (audio.Selection, error) {
		gotPreference = preference
		return audio.Selection{Device: audio.Device{ID: "alsa_input.usb"}}, nil
	}
	r.record = func(_ context.Context, device audio.Device, duration time.Duration) ([]byte, error) {
		require.Equal(t, "alsa_input.usb", device.ID)
		gotDuration = duration
		return []byte{9, 9}, nil
	}

	got, err := r.LoadAudio(context.Background(), "pulse:usb@1.5")
	require.NoError(t, err)
	require.Equal(t, "usb", gotPreference)
	require.Equal(t, 1500*time.Millisecond, gotDuration)
	require.Equal(t, "alsa_input.usb", got.Source)
	require.Equal(t, []byte{9, 9}, got.PCM)
}

func TestLoadAudioPulseUsesConfiguredDevice(t *testing.T) {
	r := NewResolver("")
	r.Device = "usb"

	var got []string
	r.selectDevice = func(_ context.Context, preference string) (audio.Selection, error) {
		got = append(got, preference)
		return audio.Selection{Device: audio.Device{ID: "alsa_input." + preference}}, nil
	}
	r.record = func(context.Context, audio.Device, time.Duration) ([]byte, error) {
		return []byte{1}, nil
	}

	for _, input := range []string{"pulse:", "pulse:default@2", "pulse:hdmi"} {
		_, err := r.LoadAudio(context.Background(), input)
		require.NoError(t, err)
	}
	require.Equal(t, []string{"usb", "usb", "hdmi"}, got)
}

func TestLoadAudioPulseSelectionFailure(t *testing.T) {
	r := NewResolver("")
	r.selectDevice = func(context.Context, string) (audio.Selection, error) {
		return audio.Selection{}, errors.New("no audio input devices found")
	}

	_, err := r.LoadAudio(context.Background(), "pulse:")
	require.Error(t, err)
	require.Contains(t, err.Error(), "select audio source")
}

func TestParsePulseInput(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantDevice string
		wantLength time.Duration
		wantErr    bool
	}{
		{name: "default device", input: "pulse:", wantDevice: "default", wantLength: DefaultClipDuration},
		{name: "named device", input: "pulse:headset", wantDevice: "headset", wantLength: DefaultClipDuration},
		{name: "explicit length", input: "pulse:default@2", wantDevice: "default", wantLength: 2 * time.Second},
		{name: "bad length", input: "pulse:mic@abc", wantErr: true},
		{name: "zero length", input: "pulse:mic@0", wantErr: true},
		{name: "too long", input: "pulse:mic@600", wantErr: true},
		{name: "not pulse", input: "sample.raw", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			device, length, err := ParsePulseInput(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantDevice, device)
			require.Equal(t, tc.wantLength, length)
		})
	}
}

func TestResolveGrammarPassesSchemesThrough(t *testing.T) {
	r := NewResolver(t.TempDir())

	for _, uri := range []string{"builtin:lm", "builtin:grammar/digits", "http://example.com/g.grxml", "session:menu"} {
		got, err := r.ResolveGrammar(uri)
		require.NoError(t, err)
		require.Equal(t, uri, got.URI)
		require.False(t, got.Inline())
	}
}

func TestResolveGrammarLoadsFileContent(t *testing.T) {
	dir := t.TempDir()
	body := `<grammar root="yesno"><rule id="yesno"><one-of><item>yes</item><item>no</item></one-of></rule></grammar>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yesno.grxml"), []byte(body), 0o600))

	got, err := NewResolver(dir).ResolveGrammar("yesno.grxml")
	require.NoError(t, err)
	require.True(t, got.Inline())
	require.Equal(t, body, got.Content)
	require.Equal(t, "file://"+filepath.Join(dir, "yesno.grxml"), got.URI)
}

func TestResolveGrammarErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.grxml"), []byte("  \n"), 0o600))
	r := NewResolver(dir)

	_, err := r.ResolveGrammar("")
	require.ErrorIs(t, err, ErrEmptyInput)

	_, err = r.ResolveGrammar("missing.grxml")
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = r.ResolveGrammar("empty.grxml")
	require.ErrorContains(t, err, "is empty")
}
