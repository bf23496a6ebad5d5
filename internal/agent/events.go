package agent

import (
	"encoding/json"
	"fmt"
)

// Event is one decoded frame from the agent service. The set of variants is closed.
type Event interface {
	eventType() string
}

type SttStart struct{}

type Transcript struct {
	Text string `json:"text"`
}

type AgentStart struct{}

type ToolCallStart struct {
	ID   string          `json:"id"`
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

type ToolCallEnd struct {
	Tool   string          `json:"tool"`
	Output json.RawMessage `json:"output"`
}

type AgentComplete struct {
	Response string `json:"response"`
}

// AgentError is the server-reported "error" frame.
type AgentError struct {
	Message string `json:"message"`
}

// Status and SetHidden belong to the legacy status vocabulary.
type Status struct {
	Message string `json:"message"`
}

type SetHidden struct {
	Value bool `json:"value"`
}

// Unknown is a well-formed frame whose type is not recognized.
type Unknown struct {
	Type string
}

func (SttStart) eventType() string      { return "stt_start" }
func (Transcript) eventType() string    { return "transcript" }
func (AgentStart) eventType() string    { return "agent_start" }
func (ToolCallStart) eventType() string { return "tool_call_start" }
func (ToolCallEnd) eventType() string   { return "tool_call_end" }
func (AgentComplete) eventType() string { return "agent_complete" }
func (AgentError) eventType() string    { return "error" }
func (Status) eventType() string        { return "status" }
func (SetHidden) eventType() string     { return "set_hidden" }
func (u Unknown) eventType() string     { return u.Type }

// ParseError reports a frame that could not be decoded.
type ParseError struct {
	Type string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("malformed frame: %v", e.Err)
	}
	return fmt.Sprintf("malformed %q frame: %v", e.Type, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode parses a text frame of the form {"type": ..., "data": {...}}.
func Decode(frame []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, &ParseError{Err: err}
	}

	switch env.Type {
	case "stt_start":
		return SttStart{}, nil
	case "agent_start":
		return AgentStart{}, nil
	case "transcript":
		return decodeData[Transcript](env)
	case "tool_call_start":
		return decodeData[ToolCallStart](env)
	case "tool_call_end":
		return decodeData[ToolCallEnd](env)
	case "agent_complete":
		return decodeData[AgentComplete](env)
	case "error":
		return decodeData[AgentError](env)
	case "status":
		return decodeData[Status](env)
	case "set_hidden":
		return decodeData[SetHidden](env)
	default:
		return Unknown{Type: env.Type}, nil
	}
}

func decodeData[T Event](env envelope) (Event, error) {
	var data T
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &ParseError{Type: env.Type, Err: fmt.Errorf("missing data")}
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &ParseError{Type: env.Type, Err: err}
	}
	return data, nil
}
