package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"opconsole/internal/agent"
	"opconsole/internal/bootstrap"
	"opconsole/internal/domain"
	"opconsole/internal/usecase"
)

const eventState = "opconsole:state"

// StatusView is what the frontend renders.
type StatusView struct {
	Snapshot agent.Snapshot `json:"snapshot"`
	Text     string         `json:"text"`
	Message  string         `json:"message,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// App is the Wails application root.
type App struct {
	ctx context.Context

	services    *bootstrap.Services
	bootErr     error
	unsubscribe func()
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(bootstrap.Options{Window: wailsWindow{ctx: ctx}})
	if err != nil {
		a.bootErr = err
		a.emit(a.GetStatus())
		return
	}

	a.services = services
	a.unsubscribe = services.Store.Subscribe(func(snap agent.Snapshot) {
		a.emit(statusView(snap))
	})
	a.emit(statusView(services.Store.Snapshot()))

	go func() {
		if err := services.Connection.Open(ctx); err != nil {
			services.Logger.Warn().Err(err).Msg("agent connection unavailable")
		}
	}()
}

func (a *App) shutdown(_ context.Context) {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.services != nil {
		if err := a.services.Close(); err != nil {
			a.services.Logger.Warn().Err(err).Msg("shutdown incomplete")
		}
	}
}

// StartRecording acquires the microphone and starts buffering audio.
func (a *App) StartRecording() (StatusView, error) {
	if err := a.requireReady(); err != nil {
		return StatusView{}, err
	}
	if err := a.services.Recorder.Start(a.ctx); err != nil {
		return a.GetStatus(), err
	}
	return a.GetStatus(), nil
}

// StopRecording ends capture and uploads the recording. Calling it while not
// recording does nothing.
func (a *App) StopRecording() (domain.UploadResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.UploadResult{}, err
	}
	result, err := a.services.Recorder.Stop(a.ctx)
	if errors.Is(err, usecase.ErrNotRecording) {
		return domain.UploadResult{}, nil
	}
	return result, err
}

// AbortRecording discards an in-progress recording.
func (a *App) AbortRecording() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.services.Recorder.Abort(); err != nil && !errors.Is(err, usecase.ErrNotRecording) {
		return err
	}
	return nil
}

// GetStatus returns the current projection.
func (a *App) GetStatus() StatusView {
	if a.services == nil {
		view := statusView(agent.Snapshot{Recording: domain.RecordingPhaseIdle})
		if a.bootErr != nil {
			view.Text = "Startup failed"
			view.Error = a.bootErr.Error()
		}
		return view
	}
	return statusView(a.services.Store.Snapshot())
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	if a.services == nil {
		return map[string]string{}
	}

	cfg := a.services.Config
	return map[string]string{
		"agentURL":         cfg.Agent.WebSocketURL,
		"uploadURL":        cfg.Upload.URL,
		"protocol":         cfg.Agent.Protocol,
		"captureBackend":   cfg.Audio.Backend,
		"audioInput":       cfg.Audio.InputDevice,
		"audioInputFormat": cfg.Audio.InputFormat,
		"audioFormat":      cfg.Audio.Format,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) emit(view StatusView) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventState, view)
}

func statusView(snap agent.Snapshot) StatusView {
	return StatusView{
		Snapshot: snap,
		Text:     agent.StatusText(snap),
		Message:  recordingReasonMessage(snap.RecordingReason),
		Error:    snap.RecordingError,
	}
}

func recordingReasonMessage(reason domain.RecordingReason) string {
	switch reason {
	case domain.RecordingReasonMicRequested:
		return "Requesting microphone"
	case domain.RecordingReasonRecordingStarted:
		return "Recording started"
	case domain.RecordingReasonPermissionDenied:
		return "Microphone permission denied"
	case domain.RecordingReasonDeviceError:
		return "Microphone unavailable"
	case domain.RecordingReasonRecordingStopped:
		return "Recording stopped"
	case domain.RecordingReasonEncodingFailed:
		return "Could not encode recording"
	case domain.RecordingReasonUploading:
		return "Sending recording to agent"
	case domain.RecordingReasonUploadSucceeded:
		return "Recording sent to agent"
	case domain.RecordingReasonUploadFailed:
		return "Recording upload failed"
	case domain.RecordingReasonDiscarded:
		return "Recording discarded"
	default:
		return ""
	}
}

// wailsWindow executes set_hidden commands against the main window.
type wailsWindow struct {
	ctx context.Context
}

func (w wailsWindow) SetHidden(hidden bool) error {
	if hidden {
		runtime.WindowHide(w.ctx)
	} else {
		runtime.WindowShow(w.ctx)
	}
	return nil
}
