package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// RecordingPhase models the microphone capture lifecycle.
type RecordingPhase string

const (
	RecordingPhaseIdle      RecordingPhase = "idle"
	RecordingPhaseAcquiring RecordingPhase = "acquiring"
	RecordingPhaseRecording RecordingPhase = "recording"
	RecordingPhaseStopped   RecordingPhase = "stopped"
	RecordingPhaseUploading RecordingPhase = "uploading"
	RecordingPhaseSucceeded RecordingPhase = "succeeded"
	RecordingPhaseFailed    RecordingPhase = "failed"
)

// HoldsMicrophone reports whether the phase owns (or is acquiring) the microphone.
func (p RecordingPhase) HoldsMicrophone() bool {
	return p == RecordingPhaseAcquiring || p == RecordingPhaseRecording
}

// Busy reports whether a finished recording is still being processed.
func (p RecordingPhase) Busy() bool {
	return p == RecordingPhaseStopped || p == RecordingPhaseUploading
}

// RecordingReason provides a structured reason for recording transitions.
type RecordingReason string

const (
	RecordingReasonMicRequested     RecordingReason = "mic_requested"
	RecordingReasonRecordingStarted RecordingReason = "recording_started"
	RecordingReasonPermissionDenied RecordingReason = "permission_denied"
	RecordingReasonDeviceError      RecordingReason = "device_error"
	RecordingReasonRecordingStopped RecordingReason = "recording_stopped"
	RecordingReasonEncodingFailed   RecordingReason = "encoding_failed"
	RecordingReasonUploading        RecordingReason = "uploading"
	RecordingReasonUploadSucceeded  RecordingReason = "upload_succeeded"
	RecordingReasonUploadFailed     RecordingReason = "upload_failed"
	RecordingReasonDiscarded        RecordingReason = "recording_discarded"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodePermission  ErrorCode = "permission"
	ErrorCodeDevice      ErrorCode = "device"
	ErrorCodeAudioStop   ErrorCode = "audio_stop"
	ErrorCodeAudioStream ErrorCode = "audio_stream"
	ErrorCodeEncoding    ErrorCode = "encoding"
	ErrorCodeUpload      ErrorCode = "upload"
	ErrorCodeConnection  ErrorCode = "connection"
)

var (
	// ErrPermissionDenied is returned when the host refuses microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceUnavailable is returned when the capture device cannot be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
)

// ConnectionPhase models the realtime connection lifecycle.
type ConnectionPhase string

const (
	ConnectionPhaseConnecting ConnectionPhase = "connecting"
	ConnectionPhaseOpen       ConnectionPhase = "open"
	ConnectionPhaseClosed     ConnectionPhase = "closed"
	ConnectionPhaseErrored    ConnectionPhase = "errored"
)

// ConnectionState is the observable state of the realtime connection.
type ConnectionState struct {
	Phase     ConnectionPhase `json:"phase"`
	LastError string          `json:"lastError,omitempty"`
}

// ActionKind identifies an action log entry.
type ActionKind string

const (
	ActionKindToolCall      ActionKind = "tool_call"
	ActionKindToolResult    ActionKind = "tool_result"
	ActionKindAgentResponse ActionKind = "agent_response"
)

// ActionLogEntry is one item of the agent activity log.
type ActionLogEntry struct {
	ID        string          `json:"id"`
	Kind      ActionKind      `json:"type"`
	Tool      string          `json:"tool,omitempty"`
	Args      json.RawMessage `json:"args,omitempty"`
	Result    string          `json:"result,omitempty"`
	Response  string          `json:"response,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// AudioPayload is a finished, encoded recording.
type AudioPayload struct {
	Data      []byte
	Extension string
	MIMEType  string
}

// Filename returns the upload filename for the payload.
func (p AudioPayload) Filename() string {
	return "recording." + p.Extension
}

// UploadResult is returned once a recording has been accepted by the agent service.
type UploadResult struct {
	Transcript string `json:"transcript,omitempty"`
	Result     string `json:"result,omitempty"`
	Filename   string `json:"filename,omitempty"`
	StatusCode int    `json:"statusCode"`
}

// RawText renders a JSON string as its value and any other JSON verbatim.
func RawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
