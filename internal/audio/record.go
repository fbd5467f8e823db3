package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	// SampleRate is the rate of recorded clips (mono, signed 16-bit little endian).
	SampleRate = 16000

	bytesPerSample = 2
	fragmentBytes  = 640 // 20ms
)

// ClipBytes returns the PCM size of a clip of duration d.
func ClipBytes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d.Seconds()*SampleRate) * bytesPerSample
}

// Record captures duration worth of PCM from device.
func Record(ctx context.Context, device Device, duration time.Duration) ([]byte, error) {
	limit := ClipBytes(duration)
	if limit == 0 {
		return nil, errors.New("record duration must be > 0")
	}

	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	source, err := client.SourceByID(device.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve source %q: %w", device.ID, err)
	}

	clip := newClipWriter(limit)
	stream, err := client.NewRecord(
		pulse.NewWriter(clip, pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(fragmentBytes),
		pulse.RecordMediaName("asrclient recognition input"),
	)
	if err != nil {
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	defer stream.Close()

	stream.Start()

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		stream.Stop()
		return nil, ctx.Err()
	case <-clip.full:
	case <-timer.C:
	}
	stream.Stop()

	return clip.Bytes(), nil
}

// clipWriter accumulates PCM up to a fixed size and signals when full.
type clipWriter struct {
	limit int
	full  chan struct{}

	mu     sync.Mutex
	pcm    []byte
	closed bool
}

func newClipWriter(limit int) *clipWriter {
	return &clipWriter{
		limit: limit,
		full:  make(chan struct{}),
		pcm:   make([]byte, 0, limit),
	}
}

// Write implements io.Writer for pulse.NewWriter. Input past the limit is dropped.
func (c *clipWriter) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, io.EOF
	}

	remaining := c.limit - len(c.pcm)
	if len(b) < remaining {
		c.pcm = append(c.pcm, b...)
		return len(b), nil
	}

	c.pcm = append(c.pcm, b[:remaining]...)
	c.closed = true
	close(c.full)
	return len(b), nil
}

// Bytes returns a copy of the recorded PCM.
func (c *clipWriter) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.pcm))
	copy(out, c.pcm)
	return out
}
