package encoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/mewkiz/flac"

	"opconsole/internal/ports"
)

func TestNewSelectsFormat(t *testing.T) {
	t.Parallel()

	if enc, err := New(""); err != nil || enc == nil {
		t.Fatalf("expected default flac encoder, got %v %v", enc, err)
	}
	if _, ok := mustNew(t, FormatWAV).(WAV); !ok {
		t.Fatalf("expected wav encoder")
	}
	if _, err := New("mp3"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestFLACEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	samples := make([]int16, blockSize+1000)
	for i := range samples {
		samples[i] = int16((i*37)%2000 - 1000)
	}
	pcm := samplesToPCM(samples)

	payload, err := FLAC{}.Encode(pcm, ports.AudioConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if payload.Extension != "flac" || payload.MIMEType != "audio/flac" {
		t.Fatalf("unexpected payload metadata: %+v", payload)
	}
	if string(payload.Data[:4]) != "fLaC" {
		t.Fatalf("output does not start with FLAC magic")
	}

	stream, err := flac.New(bytes.NewReader(payload.Data))
	if err != nil {
		t.Fatalf("parse flac: %v", err)
	}
	if stream.Info.SampleRate != 16000 || stream.Info.NChannels != 1 {
		t.Fatalf("unexpected stream info: %+v", stream.Info)
	}

	var decoded []int32
	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("parse frame: %v", err)
		}
		decoded = append(decoded, f.Subframes[0].Samples...)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(decoded), len(samples))
	}
	for i := range samples {
		if decoded[i] != int32(samples[i]) {
			t.Fatalf("sample %d: got %d want %d", i, decoded[i], samples[i])
		}
	}
}

func TestFLACEncodeEmpty(t *testing.T) {
	t.Parallel()

	payload, err := FLAC{}.Encode(nil, ports.AudioConfig{})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(payload.Data) < 4 || string(payload.Data[:4]) != "fLaC" {
		t.Fatalf("expected header-only flac stream")
	}
}

func TestEncodeRejectsPCMWithoutWholeFrame(t *testing.T) {
	t.Parallel()

	if _, err := (FLAC{}).Encode([]byte{1}, ports.AudioConfig{}); !errors.Is(err, ErrOddSampleData) {
		t.Fatalf("expected ErrOddSampleData, got %v", err)
	}
	if _, err := (WAV{}).Encode([]byte{1, 2}, ports.AudioConfig{Channels: 2}); !errors.Is(err, ErrOddSampleData) {
		t.Fatalf("expected ErrOddSampleData for stereo, got %v", err)
	}
}

func TestEncodeDropsTrailingPartialFrame(t *testing.T) {
	t.Parallel()

	pcm := samplesToPCM([]int16{7, -7, 9, -9})
	truncated := append(append([]byte{}, pcm...), 0x01, 0x02, 0x03)

	payload, err := WAV{}.Encode(truncated, ports.AudioConfig{SampleRate: 16000, Channels: 2})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if got := binary.LittleEndian.Uint32(payload.Data[40:]); got != uint32(len(pcm)) {
		t.Fatalf("data size = %d, want %d", got, len(pcm))
	}
	if !bytes.Equal(payload.Data[44:], pcm) {
		t.Fatalf("expected only whole frames in body")
	}

	payload, err = FLAC{}.Encode(truncated[:len(pcm)+1], ports.AudioConfig{SampleRate: 16000, Channels: 2})
	if err != nil {
		t.Fatalf("flac encode failed: %v", err)
	}
	stream, err := flac.New(bytes.NewReader(payload.Data))
	if err != nil {
		t.Fatalf("decode flac: %v", err)
	}
	if stream.Info.NSamples != 2 {
		t.Fatalf("expected 2 samples per channel, got %d", stream.Info.NSamples)
	}
}

func TestWAVEncodeHeader(t *testing.T) {
	t.Parallel()

	pcm := samplesToPCM([]int16{1, -1, 2, -2})
	payload, err := WAV{}.Encode(pcm, ports.AudioConfig{SampleRate: 44100, Channels: 2})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	data := payload.Data
	if len(data) != 44+len(pcm) {
		t.Fatalf("unexpected wav size %d", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[36:40]) != "data" {
		t.Fatalf("malformed wav header: %q", data[:44])
	}
	if got := binary.LittleEndian.Uint16(data[22:]); got != 2 {
		t.Fatalf("channels = %d", got)
	}
	if got := binary.LittleEndian.Uint32(data[24:]); got != 44100 {
		t.Fatalf("sample rate = %d", got)
	}
	if got := binary.LittleEndian.Uint32(data[40:]); got != uint32(len(pcm)) {
		t.Fatalf("data size = %d", got)
	}
	if !bytes.Equal(data[44:], pcm) {
		t.Fatalf("pcm body was not copied verbatim")
	}
	if payload.Filename() != "recording.wav" {
		t.Fatalf("unexpected filename %q", payload.Filename())
	}
}

func mustNew(t *testing.T, format string) ports.Encoder {
	t.Helper()
	enc, err := New(format)
	if err != nil {
		t.Fatalf("New(%q): %v", format, err)
	}
	return enc
}

func samplesToPCM(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}
