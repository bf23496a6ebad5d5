package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"opconsole/internal/domain"
	"opconsole/internal/ports"
)

var (
	ErrNotRecording     = errors.New("no active recording")
	ErrAlreadyRecording = errors.New("microphone is already held by an active recording")
	ErrUploadInFlight   = errors.New("previous recording is still being uploaded")
	ErrClosed           = errors.New("recorder is closed")
)

// Config controls recording behavior.
type Config struct {
	Audio     ports.AudioConfig
	ChunkSize int
	Upload    ports.UploadOptions
}

// Recorder owns the microphone and drives a recording from acquisition to upload.
type Recorder struct {
	audio    ports.AudioCapture
	encoder  ports.Encoder
	uploader ports.Uploader
	events   ports.EventSink
	logger   zerolog.Logger
	cfg      Config

	mu      sync.Mutex
	phase   domain.RecordingPhase
	current *activeRecording
	closed  bool
}

func NewRecorder(
	audio ports.AudioCapture,
	encoder ports.Encoder,
	uploader ports.Uploader,
	events ports.EventSink,
	logger zerolog.Logger,
	cfg Config,
) *Recorder {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	return &Recorder{
		audio:    audio,
		encoder:  encoder,
		uploader: uploader,
		events:   events,
		logger:   logger.With().Str("component", "recorder").Logger(),
		cfg:      cfg,
		phase:    domain.RecordingPhaseIdle,
	}
}

// Start requests the microphone and begins buffering audio. The capture
// session outlives ctx; it ends only through Stop, Abort, Close or a capture
// failure.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	switch {
	case r.closed:
		r.mu.Unlock()
		return ErrClosed
	case r.phase.HoldsMicrophone():
		r.mu.Unlock()
		return ErrAlreadyRecording
	case r.phase.Busy():
		r.mu.Unlock()
		return ErrUploadInFlight
	}
	r.phase = domain.RecordingPhaseAcquiring
	r.mu.Unlock()
	r.events.RecordingPhaseChanged(domain.RecordingPhaseAcquiring, domain.RecordingReasonMicRequested)

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	audioSession, err := r.audio.Start(sessionCtx, r.cfg.Audio)
	if err != nil {
		cancel()
		code, reason := classifyCaptureError(err)
		r.logger.Warn().Err(err).Str("reason", string(reason)).Msg("microphone request failed")
		r.setPhase(domain.RecordingPhaseFailed)
		r.events.RecordingError(code, err.Error())
		r.events.RecordingPhaseChanged(domain.RecordingPhaseFailed, reason)
		return err
	}

	active := &activeRecording{
		cancel:   cancel,
		audio:    audioSession,
		buffer:   newChunkBuffer(),
		pumpDone: make(chan struct{}),
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		go pumpAudioChunks(active.audio, active.buffer, r.cfg.ChunkSize, r.events, active.pumpDone)
		_ = active.release()
		active.buffer.Clear()
		return ErrClosed
	}
	r.current = active
	r.phase = domain.RecordingPhaseRecording
	r.mu.Unlock()

	r.logger.Info().Msg("recording started")
	r.events.RecordingPhaseChanged(domain.RecordingPhaseRecording, domain.RecordingReasonRecordingStarted)

	go r.pump(active)
	return nil
}

// pump buffers audio for active and fails the recording if capture breaks
// before Stop or Abort claims it.
func (r *Recorder) pump(active *activeRecording) {
	err := pumpAudioChunks(active.audio, active.buffer, r.cfg.ChunkSize, r.events, active.pumpDone)
	if err == nil {
		return
	}

	r.mu.Lock()
	if r.current != active {
		r.mu.Unlock()
		return
	}
	r.current = nil
	r.phase = domain.RecordingPhaseFailed
	r.mu.Unlock()

	if stopErr := active.release(); stopErr != nil {
		r.logger.Warn().Err(stopErr).Msg("audio capture did not stop cleanly")
	}
	active.buffer.Clear()
	r.logger.Error().Err(err).Msg("audio capture failed during recording")
	r.events.RecordingPhaseChanged(domain.RecordingPhaseFailed, domain.RecordingReasonDeviceError)
}

// Stop releases the microphone, encodes the buffered audio and uploads it.
// It returns ErrNotRecording without side effects unless a recording is active.
func (r *Recorder) Stop(ctx context.Context) (domain.UploadResult, error) {
	r.mu.Lock()
	if r.phase != domain.RecordingPhaseRecording || r.current == nil {
		r.mu.Unlock()
		return domain.UploadResult{}, ErrNotRecording
	}
	active := r.current
	r.current = nil
	r.phase = domain.RecordingPhaseStopped
	r.mu.Unlock()

	if err := active.release(); err != nil {
		r.logger.Warn().Err(err).Msg("audio capture did not stop cleanly")
		r.events.RecordingError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
	}
	r.events.RecordingPhaseChanged(domain.RecordingPhaseStopped, domain.RecordingReasonRecordingStopped)

	pcm := active.buffer.Flush()
	payload, err := r.encoder.Encode(pcm, r.cfg.Audio)
	if err != nil {
		err = fmt.Errorf("encode recording: %w", err)
		r.fail(domain.ErrorCodeEncoding, domain.RecordingReasonEncodingFailed, err)
		return domain.UploadResult{}, err
	}

	r.setPhase(domain.RecordingPhaseUploading)
	r.events.RecordingPhaseChanged(domain.RecordingPhaseUploading, domain.RecordingReasonUploading)
	r.logger.Info().Int("pcm_bytes", len(pcm)).Int("payload_bytes", len(payload.Data)).Str("format", payload.Extension).Msg("uploading recording")

	result, err := r.uploader.Upload(context.WithoutCancel(ctx), payload, r.cfg.Upload)
	if err != nil {
		r.fail(domain.ErrorCodeUpload, domain.RecordingReasonUploadFailed, err)
		return domain.UploadResult{}, err
	}

	r.setPhase(domain.RecordingPhaseSucceeded)
	r.logger.Info().Int("status", result.StatusCode).Msg("recording uploaded")
	r.events.RecordingPhaseChanged(domain.RecordingPhaseSucceeded, domain.RecordingReasonUploadSucceeded)
	return result, nil
}

// Abort releases the microphone and discards the buffered audio without uploading.
func (r *Recorder) Abort() error {
	r.mu.Lock()
	if r.phase != domain.RecordingPhaseRecording || r.current == nil {
		r.mu.Unlock()
		return ErrNotRecording
	}
	active := r.current
	r.current = nil
	r.phase = domain.RecordingPhaseIdle
	r.mu.Unlock()

	r.discard(active)
	return nil
}

// Close releases the microphone if held and rejects later recordings.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	active := r.current
	r.current = nil
	if r.phase.HoldsMicrophone() {
		r.phase = domain.RecordingPhaseIdle
	}
	r.mu.Unlock()

	if active != nil {
		r.discard(active)
	}
	return nil
}

// Phase returns the current recording phase.
func (r *Recorder) Phase() domain.RecordingPhase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *Recorder) discard(active *activeRecording) {
	if err := active.release(); err != nil {
		r.logger.Warn().Err(err).Msg("audio capture did not stop cleanly")
	}
	active.buffer.Clear()
	r.logger.Info().Msg("recording discarded")
	r.events.RecordingPhaseChanged(domain.RecordingPhaseIdle, domain.RecordingReasonDiscarded)
}

func (r *Recorder) fail(code domain.ErrorCode, reason domain.RecordingReason, err error) {
	r.logger.Error().Err(err).Str("reason", string(reason)).Msg("recording failed")
	r.setPhase(domain.RecordingPhaseFailed)
	r.events.RecordingError(code, err.Error())
	r.events.RecordingPhaseChanged(domain.RecordingPhaseFailed, reason)
}

func (r *Recorder) setPhase(phase domain.RecordingPhase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = phase
}

func classifyCaptureError(err error) (domain.ErrorCode, domain.RecordingReason) {
	if errors.Is(err, domain.ErrPermissionDenied) {
		return domain.ErrorCodePermission, domain.RecordingReasonPermissionDenied
	}
	return domain.ErrorCodeDevice, domain.RecordingReasonDeviceError
}
