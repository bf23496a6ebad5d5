package agent

import (
	"fmt"

	"opconsole/internal/domain"
)

const StatusReady = "Ready"

// StatusText derives the one-line status shown by the shells.
// Precedence: error, then disconnected, then recording, then latest content.
func StatusText(snap Snapshot) string {
	if snap.Error != "" {
		return "Error: " + snap.Error
	}
	if snap.Connection.LastError != "" && snap.Connection.Phase != domain.ConnectionPhaseOpen {
		return "Connection error: " + snap.Connection.LastError
	}

	switch snap.Connection.Phase {
	case domain.ConnectionPhaseConnecting:
		return "Connecting to agent..."
	case domain.ConnectionPhaseClosed, domain.ConnectionPhaseErrored:
		return "Disconnected"
	}

	switch snap.Recording {
	case domain.RecordingPhaseAcquiring:
		return "Requesting microphone..."
	case domain.RecordingPhaseRecording:
		return "Recording..."
	case domain.RecordingPhaseStopped:
		return "Processing recording..."
	case domain.RecordingPhaseUploading:
		return "Sending recording..."
	case domain.RecordingPhaseFailed:
		if snap.RecordingError != "" {
			return "Recording failed: " + snap.RecordingError
		}
		return "Recording failed"
	}

	if n := len(snap.Actions); n > 0 {
		return describeAction(snap.Actions[n-1])
	}
	if snap.Transcript != "" {
		return fmt.Sprintf("You said: %s", snap.Transcript)
	}
	if snap.StatusMessage != "" {
		return snap.StatusMessage
	}
	return StatusReady
}

func describeAction(entry domain.ActionLogEntry) string {
	switch entry.Kind {
	case domain.ActionKindToolCall:
		return fmt.Sprintf("Calling %s...", entry.Tool)
	case domain.ActionKindToolResult:
		if entry.Result != "" {
			return fmt.Sprintf("%s: %s", entry.Tool, entry.Result)
		}
		return fmt.Sprintf("%s completed", entry.Tool)
	case domain.ActionKindAgentResponse:
		return entry.Response
	default:
		return StatusReady
	}
}
