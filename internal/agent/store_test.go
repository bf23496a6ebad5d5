package agent

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"opconsole/internal/domain"
)

func TestStoreMalformedFrameOnlyCountsError(t *testing.T) {
	t.Parallel()

	clean := NewStore(deterministicReducer(ProtocolToolCalls), nil, zerolog.Nop())
	noisy := NewStore(deterministicReducer(ProtocolToolCalls), nil, zerolog.Nop())

	frames := []string{
		`{"type":"stt_start"}`,
		`{"type":"tool_call_start","data":{"tool":"search"}}`,
		`{"type":"agent_complete","data":{"response":"done"}}`,
	}
	for i, frame := range frames {
		clean.HandleFrame([]byte(frame))
		noisy.HandleFrame([]byte(frame))
		if i == 1 {
			noisy.HandleFrame([]byte(`{"type":"tool_call_end","data":`))
		}
	}

	got := noisy.Snapshot()
	if got.ParseErrors != 1 || got.LastParseError == "" {
		t.Fatalf("expected one recorded parse error, got %+v", got)
	}
	if !reflect.DeepEqual(got.State, clean.Snapshot().State) {
		t.Fatalf("malformed frame altered the fold:\n%+v\n%+v", got.State, clean.Snapshot().State)
	}
}

func TestStoreUnknownFrameIsNoop(t *testing.T) {
	t.Parallel()

	store := NewStore(deterministicReducer(ProtocolToolCalls), nil, zerolog.Nop())
	store.HandleFrame([]byte(`{"type":"transcript","data":{"text":"hi"}}`))
	before := store.Snapshot()

	var notified int
	unsubscribe := store.Subscribe(func(Snapshot) { notified++ })
	defer unsubscribe()

	store.HandleFrame([]byte(`{"type":"agent_thinking","data":{}}`))
	if !reflect.DeepEqual(store.Snapshot(), before) {
		t.Fatalf("unknown frame changed observable state")
	}
	if notified != 0 {
		t.Fatalf("unknown frame must not notify subscribers")
	}
}

func TestStoreSubscribeAndUnsubscribe(t *testing.T) {
	t.Parallel()

	store := NewStore(deterministicReducer(ProtocolToolCalls), nil, zerolog.Nop())

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := store.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	})

	store.ConnectionChanged(domain.ConnectionState{Phase: domain.ConnectionPhaseOpen})
	store.RecordingPhaseChanged(domain.RecordingPhaseRecording, domain.RecordingReasonRecordingStarted)
	store.HandleFrame([]byte(`{"type":"transcript","data":{"text":"hi"}}`))
	unsubscribe()
	unsubscribe()
	store.HandleFrame([]byte(`{"type":"transcript","data":{"text":"ignored"}}`))

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(seen))
	}
	if seen[0].Connection.Phase != domain.ConnectionPhaseOpen {
		t.Fatalf("unexpected first snapshot: %+v", seen[0])
	}
	if seen[1].Recording != domain.RecordingPhaseRecording {
		t.Fatalf("unexpected second snapshot: %+v", seen[1])
	}
	if seen[2].Transcript != "hi" {
		t.Fatalf("unexpected third snapshot: %+v", seen[2])
	}
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	store := NewStore(deterministicReducer(ProtocolToolCalls), nil, zerolog.Nop())
	store.Dispatch(ToolCallStart{Tool: "a"})

	snap := store.Snapshot()
	snap.Actions[0].Tool = "mutated"
	if store.Snapshot().Actions[0].Tool != "a" {
		t.Fatalf("snapshot shares storage with the store")
	}
}

func TestStoreSetHiddenRunsWindowCommand(t *testing.T) {
	t.Parallel()

	window := &fakeWindow{}
	store := NewStore(deterministicReducer(ProtocolStatus), window, zerolog.Nop())

	store.HandleFrame([]byte(`{"type":"set_hidden","data":{"value":true}}`))
	store.HandleFrame([]byte(`{"type":"set_hidden","data":{"value":true}}`))
	store.HandleFrame([]byte(`{"type":"status","data":{"message":"Working"}}`))
	store.HandleFrame([]byte(`{"type":"set_hidden","data":{"value":false}}`))

	if !reflect.DeepEqual(window.calls, []bool{true, true, false}) {
		t.Fatalf("unexpected window calls: %v", window.calls)
	}
	snap := store.Snapshot()
	if snap.Hidden || snap.StatusMessage != "Working" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestStoreWindowFailureIsLoggedOnly(t *testing.T) {
	t.Parallel()

	window := &fakeWindow{err: errors.New("no window")}
	store := NewStore(deterministicReducer(ProtocolStatus), window, zerolog.Nop())
	store.HandleFrame([]byte(`{"type":"set_hidden","data":{"value":true}}`))

	if !store.Snapshot().Hidden {
		t.Fatalf("expected hidden flag to be recorded")
	}
}

func TestStoreConnectionCloseShowsDisconnected(t *testing.T) {
	t.Parallel()

	store := NewStore(deterministicReducer(ProtocolToolCalls), nil, zerolog.Nop())
	store.ConnectionChanged(domain.ConnectionState{Phase: domain.ConnectionPhaseOpen})
	store.HandleFrame([]byte(`{"type":"agent_complete","data":{"response":"done"}}`))
	if got := StatusText(store.Snapshot()); got != "done" {
		t.Fatalf("unexpected status while open: %q", got)
	}

	store.ConnectionChanged(domain.ConnectionState{Phase: domain.ConnectionPhaseClosed})
	if got := StatusText(store.Snapshot()); got != "Disconnected" {
		t.Fatalf("expected disconnected status, got %q", got)
	}
}

func TestStoreRecordingErrorClearsOnNextAttempt(t *testing.T) {
	t.Parallel()

	store := NewStore(deterministicReducer(ProtocolToolCalls), nil, zerolog.Nop())
	store.RecordingError(domain.ErrorCodeUpload, "upload failed: 500")
	store.RecordingPhaseChanged(domain.RecordingPhaseFailed, domain.RecordingReasonUploadFailed)
	if store.Snapshot().RecordingError == "" {
		t.Fatalf("expected recording error")
	}

	store.RecordingPhaseChanged(domain.RecordingPhaseAcquiring, domain.RecordingReasonMicRequested)
	if store.Snapshot().RecordingError != "" {
		t.Fatalf("expected recording error to clear on new attempt")
	}
}

type fakeWindow struct {
	mu    sync.Mutex
	calls []bool
	err   error
}

func (f *fakeWindow) SetHidden(hidden bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, hidden)
	return f.err
}
