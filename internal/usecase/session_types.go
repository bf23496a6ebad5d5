package usecase

import (
	"sync"

	"opconsole/internal/ports"
)

type activeRecording struct {
	cancel func()
	audio  ports.AudioSession
	buffer *chunkBuffer

	releaseOnce sync.Once
	releaseErr  error
	pumpDone    chan struct{}
}

// release stops the capture session exactly once and waits for the pump to drain.
func (r *activeRecording) release() error {
	r.releaseOnce.Do(func() {
		r.releaseErr = r.audio.Stop()
		r.cancel()
		<-r.pumpDone
	})
	return r.releaseErr
}
