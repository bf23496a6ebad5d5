//go:build linux

package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/jfreymuth/pulse"

	"opconsole/internal/domain"
	"opconsole/internal/ports"
)

// PulseCapture records from a PulseAudio (or pipewire-pulse) source over the native protocol.
type PulseCapture struct{}

func NewPulseCapture() (*PulseCapture, error) {
	return &PulseCapture{}, nil
}

func (c *PulseCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cfg = withCaptureDefaults(cfg)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := pulse.NewClient(pulse.ClientApplicationName("opconsole"))
	if err != nil {
		return nil, fmt.Errorf("%w: pulse: %v", domain.ErrDeviceUnavailable, err)
	}

	pr, pw := io.Pipe()
	writer := pulse.Int16Writer(func(buf []int16) (int, error) {
		if len(buf) == 0 {
			return 0, nil
		}
		data := make([]byte, len(buf)*2)
		for i, s := range buf {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
		}
		if _, err := pw.Write(data); err != nil {
			return 0, err
		}
		return len(buf), nil
	})

	opts := []pulse.RecordOption{
		pulse.RecordSampleRate(cfg.SampleRate),
		pulse.RecordLatency(0.05),
	}
	if cfg.Channels == 2 {
		opts = append(opts, pulse.RecordStereo)
	} else {
		opts = append(opts, pulse.RecordMono)
	}
	if cfg.InputDevice != "default" {
		source, err := client.SourceByID(cfg.InputDevice)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: pulse source %q: %v", domain.ErrDeviceUnavailable, cfg.InputDevice, err)
		}
		opts = append(opts, pulse.RecordSource(source))
	}

	stream, err := client.NewRecord(writer, opts...)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: pulse record: %v", domain.ErrDeviceUnavailable, err)
	}
	stream.Start()

	return &pulseSession{client: client, stream: stream, reader: pr, writer: pw}, nil
}

type pulseSession struct {
	client *pulse.Client
	stream *pulse.RecordStream
	reader *io.PipeReader
	writer *io.PipeWriter

	stopOnce sync.Once
	stopErr  error
}

func (s *pulseSession) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *pulseSession) Close() error {
	return s.Stop()
}

func (s *pulseSession) Stop() error {
	s.stopOnce.Do(func() {
		s.stream.Stop()
		s.stopErr = s.stream.Error()
		s.stream.Close()
		_ = s.writer.Close()
		s.client.Close()
	})
	return s.stopErr
}
