package agent

import (
	"errors"
	"testing"
)

func TestDecodeKnownFrames(t *testing.T) {
	t.Parallel()

	ev, err := Decode([]byte(`{"type":"tool_call_start","data":{"id":"c1","tool":"search","args":{"q":"x"}}}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	call, ok := ev.(ToolCallStart)
	if !ok || call.ID != "c1" || call.Tool != "search" || string(call.Args) != `{"q":"x"}` {
		t.Fatalf("unexpected event: %#v", ev)
	}

	ev, err = Decode([]byte(`{"type":"stt_start"}`))
	if err != nil {
		t.Fatalf("decode stt_start failed: %v", err)
	}
	if _, ok := ev.(SttStart); !ok {
		t.Fatalf("expected SttStart, got %#v", ev)
	}

	ev, err = Decode([]byte(`{"type":"set_hidden","data":{"value":true}}`))
	if err != nil {
		t.Fatalf("decode set_hidden failed: %v", err)
	}
	if hidden, ok := ev.(SetHidden); !ok || !hidden.Value {
		t.Fatalf("unexpected set_hidden: %#v", ev)
	}
}

func TestDecodeMalformedFrames(t *testing.T) {
	t.Parallel()

	for _, frame := range []string{
		`not json`,
		`[1,2]`,
		`{"type":"transcript"}`,
		`{"type":"transcript","data":{"text":42}}`,
		`{"type":"agent_complete","data":null}`,
	} {
		_, err := Decode([]byte(frame))
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("frame %s: expected ParseError, got %v", frame, err)
		}
	}
}

func TestDecodeUnknownType(t *testing.T) {
	t.Parallel()

	ev, err := Decode([]byte(`{"type":"agent_thinking","data":{"x":1}}`))
	if err != nil {
		t.Fatalf("unknown frames must not be errors: %v", err)
	}
	if unknown, ok := ev.(Unknown); !ok || unknown.Type != "agent_thinking" {
		t.Fatalf("expected Unknown, got %#v", ev)
	}
}
