package encoder

import (
	"errors"
	"fmt"

	"opconsole/internal/ports"
)

const (
	FormatFLAC = "flac"
	FormatWAV  = "wav"

	bitsPerSample = 16
	blockSize     = 4096
)

var ErrOddSampleData = errors.New("pcm data holds no whole 16-bit frame")

// New returns the encoder for the configured payload format.
func New(format string) (ports.Encoder, error) {
	switch format {
	case "", FormatFLAC:
		return FLAC{}, nil
	case FormatWAV:
		return WAV{}, nil
	default:
		return nil, fmt.Errorf("unsupported audio format %q", format)
	}
}

func normalizeConfig(cfg ports.AudioConfig) ports.AudioConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return cfg
}

// wholeFrames drops a trailing partial frame, left behind when capture is
// killed mid-write. Data too short for a single frame is rejected.
func wholeFrames(pcm []byte, channels int) ([]byte, error) {
	frame := 2 * channels
	if len(pcm) > 0 && len(pcm) < frame {
		return nil, fmt.Errorf("%w: %d bytes for %d channel(s)", ErrOddSampleData, len(pcm), channels)
	}
	return pcm[:len(pcm)-len(pcm)%frame], nil
}
