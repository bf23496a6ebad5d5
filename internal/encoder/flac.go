package encoder

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"

	"opconsole/internal/domain"
	"opconsole/internal/ports"
)

// FLAC encodes s16le PCM into a lossless FLAC stream of verbatim subframes.
type FLAC struct{}

func (FLAC) Encode(pcm []byte, cfg ports.AudioConfig) (domain.AudioPayload, error) {
	cfg = normalizeConfig(cfg)
	if cfg.Channels > 2 {
		return domain.AudioPayload{}, fmt.Errorf("flac: unsupported channel count %d", cfg.Channels)
	}
	pcm, err := wholeFrames(pcm, cfg.Channels)
	if err != nil {
		return domain.AudioPayload{}, err
	}

	var buf bytes.Buffer
	info := &meta.StreamInfo{
		BlockSizeMin:  blockSize,
		BlockSizeMax:  blockSize,
		SampleRate:    uint32(cfg.SampleRate),
		NChannels:     uint8(cfg.Channels),
		BitsPerSample: bitsPerSample,
		NSamples:      uint64(len(pcm) / (2 * cfg.Channels)),
	}
	enc, err := flac.NewEncoder(&buf, info)
	if err != nil {
		return domain.AudioPayload{}, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)

	channels := deinterleave(pcm, cfg.Channels)
	total := len(channels[0])
	for start := 0; start < total; start += blockSize {
		end := min(start+blockSize, total)

		subframes := make([]*frame.Subframe, cfg.Channels)
		for ch := range subframes {
			subframes[ch] = &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   channels[ch][start:end],
				NSamples:  end - start,
			}
		}

		layout := frame.ChannelsMono
		if cfg.Channels == 2 {
			layout = frame.ChannelsLR
		}
		f := &frame.Frame{
			Header: frame.Header{
				BlockSize:     uint16(end - start),
				SampleRate:    uint32(cfg.SampleRate),
				Channels:      layout,
				BitsPerSample: bitsPerSample,
			},
			Subframes: subframes,
		}
		if err := enc.WriteFrame(f); err != nil {
			return domain.AudioPayload{}, fmt.Errorf("writing flac frame: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return domain.AudioPayload{}, fmt.Errorf("closing flac encoder: %w", err)
	}

	return domain.AudioPayload{Data: buf.Bytes(), Extension: "flac", MIMEType: "audio/flac"}, nil
}

// deinterleave splits s16le PCM into per-channel sample slices.
func deinterleave(pcm []byte, channels int) [][]int32 {
	frames := len(pcm) / (2 * channels)
	out := make([][]int32, channels)
	for ch := range out {
		out[ch] = make([]int32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			offset := (i*channels + ch) * 2
			out[ch][i] = int32(int16(binary.LittleEndian.Uint16(pcm[offset:])))
		}
	}
	return out
}
