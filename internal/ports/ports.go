package ports

import (
	"context"
	"io"

	"opconsole/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session holding the microphone.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture acquires the microphone.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// Encoder turns raw s16le PCM into an uploadable payload.
type Encoder interface {
	Encode(pcm []byte, cfg AudioConfig) (domain.AudioPayload, error)
}

// UploadOptions are the per-request upload settings.
type UploadOptions struct {
	// ToggleVoice is sent as a query flag when non-nil.
	ToggleVoice *bool
}

// Uploader ships a finished recording to the agent service.
type Uploader interface {
	Upload(ctx context.Context, payload domain.AudioPayload, opts UploadOptions) (domain.UploadResult, error)
}

// Notifier raises a native notification.
type Notifier interface {
	Notify(ctx context.Context, title string, body string) error
}

// WindowController shows or hides the host window.
type WindowController interface {
	SetHidden(hidden bool) error
}

// EventSink receives recorder state/events.
type EventSink interface {
	RecordingPhaseChanged(phase domain.RecordingPhase, reason domain.RecordingReason)
	RecordingError(code domain.ErrorCode, detail string)
}

// ConnectionObserver receives realtime connection transitions and inbound text frames.
type ConnectionObserver interface {
	ConnectionChanged(state domain.ConnectionState)
	HandleFrame(payload []byte)
}
