package audio

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClipBytes(t *testing.T) {
	require.Equal(t, 0, ClipBytes(0))
	require.Equal(t, 0, ClipBytes(-time.Second))
	require.Equal(t, 32000, ClipBytes(time.Second))
	require.Equal(t, 16000, ClipBytes(500*time.Millisecond))
}

func TestClipWriterStopsAtLimit(t *testing.T) {
	clip := newClipWriter(5)

	n, err := clip.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	select {
	case <-clip.full:
		t.Fatal("clip reported full too early")
	default:
	}

	n, err = clip.Write([]byte{4, 5, 6, 7})
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, clip.Bytes())

	select {
	case <-clip.full:
	default:
		t.Fatal("expected clip to report full")
	}

	n, err = clip.Write([]byte{8})
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 0, n)
}

func TestClipWriterBytesReturnsCopy(t *testing.T) {
	clip := newClipWriter(4)
	_, err := clip.Write([]byte{1, 2})
	require.NoError(t, err)

	out := clip.Bytes()
	out[0] = 9
	require.Equal(t, []byte{1, 2}, clip.Bytes())
}

func TestRecordRejectsZeroDuration(t *testing.T) {
	_, err := Record(context.Background(), Device{ID: "mic"}, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duration")
}

func TestRecordFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := Record(context.Background(), Device{ID: "mic"}, time.Second)
	require.Error(t, err)
}
