package agent

import (
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"opconsole/internal/domain"
	"opconsole/internal/ports"
)

// Snapshot is everything the status projection and the shells render.
type Snapshot struct {
	State

	Connection      domain.ConnectionState `json:"connection"`
	Recording       domain.RecordingPhase  `json:"recording"`
	RecordingReason domain.RecordingReason `json:"recordingReason,omitempty"`
	RecordingError  string                 `json:"recordingError,omitempty"`
	Hidden          bool                   `json:"hidden"`
	ParseErrors     int                    `json:"parseErrors"`
	LastParseError  string                 `json:"lastParseError,omitempty"`
}

// Store owns the folded agent state together with the connection and recording
// phases. It is the realtime frame handler and the recorder's event sink.
// Subscribers are notified in mutation order and must not call back into the
// store's mutating methods.
type Store struct {
	reducer Reducer
	window  ports.WindowController
	logger  zerolog.Logger

	// emitMu orders mutation + delivery; mu guards the fields below.
	emitMu sync.Mutex

	mu     sync.Mutex
	snap   Snapshot
	subs   map[int]func(Snapshot)
	nextID int
}

func NewStore(reducer Reducer, window ports.WindowController, logger zerolog.Logger) *Store {
	return &Store{
		reducer: reducer,
		window:  window,
		logger:  logger.With().Str("component", "agent").Logger(),
		snap: Snapshot{
			Connection: domain.ConnectionState{Phase: domain.ConnectionPhaseConnecting},
			Recording:  domain.RecordingPhaseIdle,
		},
		subs: make(map[int]func(Snapshot)),
	}
}

// HandleFrame decodes and folds one inbound text frame.
func (s *Store) HandleFrame(payload []byte) {
	event, err := Decode(payload)
	if err != nil {
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			parseErr = &ParseError{Err: err}
		}
		s.logger.Warn().Err(parseErr).Msg("dropping malformed frame")
		s.update(func(snap *Snapshot) {
			snap.ParseErrors++
			snap.LastParseError = parseErr.Error()
		})
		return
	}
	if unknown, ok := event.(Unknown); ok {
		s.logger.Debug().Str("type", unknown.Type).Msg("ignoring unknown frame")
		return
	}
	s.Dispatch(event)
}

// Dispatch folds an already decoded event and runs any resulting window effect.
func (s *Store) Dispatch(event Event) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	next, effects := s.reducer.Fold(s.snap.State, event)
	s.snap.State = next
	s.mu.Unlock()

	for _, effect := range effects {
		s.applyWindowEffect(effect)
	}
	s.deliver()
}

func (s *Store) applyWindowEffect(effect Effect) {
	s.mu.Lock()
	s.snap.Hidden = effect.Hidden
	s.mu.Unlock()

	if s.window == nil {
		return
	}
	if err := s.window.SetHidden(effect.Hidden); err != nil {
		s.logger.Warn().Err(err).Bool("hidden", effect.Hidden).Msg("window visibility change failed")
	}
}

func (s *Store) ConnectionChanged(state domain.ConnectionState) {
	s.update(func(snap *Snapshot) {
		snap.Connection = state
	})
}

func (s *Store) RecordingPhaseChanged(phase domain.RecordingPhase, reason domain.RecordingReason) {
	s.update(func(snap *Snapshot) {
		if phase == domain.RecordingPhaseAcquiring {
			snap.RecordingError = ""
		}
		snap.Recording = phase
		snap.RecordingReason = reason
	})
}

func (s *Store) RecordingError(code domain.ErrorCode, detail string) {
	s.logger.Warn().Str("code", string(code)).Str("detail", detail).Msg("recording error")
	s.update(func(snap *Snapshot) {
		snap.RecordingError = detail
	})
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Subscribe registers fn for every subsequent change and returns its cancel func.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) update(mutate func(*Snapshot)) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	mutate(&s.snap)
	s.mu.Unlock()

	s.deliver()
}

// deliver notifies subscribers. Callers hold emitMu.
func (s *Store) deliver() {
	s.mu.Lock()
	snap := s.copyLocked()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) copyLocked() Snapshot {
	snap := s.snap
	snap.Actions = slices.Clone(s.snap.Actions)
	return snap
}
