package agent

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"opconsole/internal/domain"
)

// Protocol selects which frame vocabulary is folded.
type Protocol string

const (
	ProtocolToolCalls Protocol = "tool_calls"
	ProtocolStatus    Protocol = "status"
)

func ParseProtocol(value string) (Protocol, error) {
	switch Protocol(value) {
	case "", ProtocolToolCalls:
		return ProtocolToolCalls, nil
	case ProtocolStatus:
		return ProtocolStatus, nil
	default:
		return "", fmt.Errorf("unknown protocol %q (expected %q or %q)", value, ProtocolToolCalls, ProtocolStatus)
	}
}

// State is the folded view of the agent's activity.
type State struct {
	Actions       []domain.ActionLogEntry `json:"actions"`
	Transcript    string                  `json:"transcript"`
	Error         string                  `json:"error,omitempty"`
	StatusMessage string                  `json:"statusMessage,omitempty"`
}

// Effect is a side-channel command produced by a frame instead of a state change.
type Effect struct {
	Hidden bool
}

// Reducer folds events into State. NewID and Now are injectable so a replay is deterministic.
type Reducer struct {
	Protocol Protocol
	NewID    func() string
	Now      func() time.Time
}

func NewReducer(protocol Protocol) Reducer {
	return Reducer{Protocol: protocol, NewID: uuid.NewString, Now: time.Now}
}

// Fold applies one event. The input state is never modified.
func (r Reducer) Fold(state State, event Event) (State, []Effect) {
	if r.Protocol == ProtocolStatus {
		return r.foldStatus(state, event)
	}

	switch ev := event.(type) {
	case SttStart, AgentStart:
		state.Actions = nil
		state.Transcript = ""
		state.Error = ""
	case Transcript:
		state.Transcript = ev.Text
	case ToolCallStart:
		id := ev.ID
		if id == "" {
			id = r.newID()
		}
		state.Actions = r.appendAction(state.Actions, domain.ActionLogEntry{
			ID:   id,
			Kind: domain.ActionKindToolCall,
			Tool: ev.Tool,
			Args: ev.Args,
		})
	case ToolCallEnd:
		state.Actions = r.appendAction(state.Actions, domain.ActionLogEntry{
			ID:     r.newID(),
			Kind:   domain.ActionKindToolResult,
			Tool:   ev.Tool,
			Result: domain.RawText(ev.Output),
		})
	case AgentComplete:
		state.Actions = r.appendAction(state.Actions, domain.ActionLogEntry{
			ID:       r.newID(),
			Kind:     domain.ActionKindAgentResponse,
			Response: ev.Response,
		})
	case AgentError:
		state.Error = ev.Message
	default:
		// Unknown frames and the other vocabulary are ignored.
	}
	return state, nil
}

func (r Reducer) foldStatus(state State, event Event) (State, []Effect) {
	switch ev := event.(type) {
	case Status:
		state.StatusMessage = ev.Message
	case SetHidden:
		return state, []Effect{{Hidden: ev.Value}}
	}
	return state, nil
}

// Replay folds a sequence from the empty state, dropping effects.
func (r Reducer) Replay(events []Event) State {
	var state State
	for _, ev := range events {
		state, _ = r.Fold(state, ev)
	}
	return state
}

func (r Reducer) appendAction(actions []domain.ActionLogEntry, entry domain.ActionLogEntry) []domain.ActionLogEntry {
	entry.Timestamp = r.now()
	return append(slices.Clip(actions), entry)
}

func (r Reducer) newID() string {
	if r.NewID == nil {
		return uuid.NewString()
	}
	return r.NewID()
}

func (r Reducer) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
