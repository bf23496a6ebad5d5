package usecase

import (
	"errors"
	"fmt"
	"io"
	"os"

	"opconsole/internal/domain"
	"opconsole/internal/ports"
)

// pumpAudioChunks copies the capture stream into buffer until it ends. It
// returns the read error that ended capture, or nil when the stream was
// stopped or reached EOF. done is closed before it returns.
func pumpAudioChunks(
	audio ports.AudioSession,
	buffer *chunkBuffer,
	chunkSize int,
	events ports.EventSink,
	done chan struct{},
) error {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			buffer.Append(buf[:n])
		}
		if err != nil {
			if isEndOfCapture(err) {
				return nil
			}
			events.RecordingError(domain.ErrorCodeAudioStream, fmt.Sprintf("audio capture error: %v", err))
			return err
		}
	}
}

// isEndOfCapture reports errors produced by a capture stream being stopped.
func isEndOfCapture(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed)
}
