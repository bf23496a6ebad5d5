package encoder

import (
	"bytes"
	"encoding/binary"

	"opconsole/internal/domain"
	"opconsole/internal/ports"
)

// WAV wraps s16le PCM in a canonical 44-byte RIFF/WAVE header.
type WAV struct{}

func (WAV) Encode(pcm []byte, cfg ports.AudioConfig) (domain.AudioPayload, error) {
	cfg = normalizeConfig(cfg)
	pcm, err := wholeFrames(pcm, cfg.Channels)
	if err != nil {
		return domain.AudioPayload{}, err
	}

	blockAlign := cfg.Channels * bitsPerSample / 8
	byteRate := cfg.SampleRate * blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(cfg.Channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(cfg.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return domain.AudioPayload{Data: buf.Bytes(), Extension: "wav", MIMEType: "audio/wav"}, nil
}
