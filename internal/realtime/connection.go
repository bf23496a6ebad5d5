package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"opconsole/internal/domain"
	"opconsole/internal/ports"
)

const (
	DefaultURL = "ws://localhost:8000/ws"

	maxFrameBytes     = 4 << 20
	closeWriteTimeout = time.Second
)

var (
	ErrAlreadyOpened = errors.New("realtime connection was already opened")
	ErrClosed        = errors.New("realtime connection is closed")
)

// ConnectionError records why the realtime connection failed.
type ConnectionError struct {
	Op  string
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("realtime %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Manager owns the single websocket connection to the agent service. It only
// reads: every inbound text frame is handed to the observer in arrival order.
type Manager struct {
	url      string
	dialer   *websocket.Dialer
	observer ports.ConnectionObserver
	logger   zerolog.Logger

	// frameMu serializes state transitions with frame delivery.
	frameMu sync.Mutex

	mu         sync.Mutex
	state      domain.ConnectionState
	opened     bool
	closed     bool
	conn       *websocket.Conn
	dialCancel context.CancelFunc
	readDone   chan struct{}
}

func NewManager(url string, observer ports.ConnectionObserver, logger zerolog.Logger) *Manager {
	if url == "" {
		url = DefaultURL
	}
	return &Manager{
		url:      url,
		dialer:   websocket.DefaultDialer,
		observer: observer,
		logger:   logger.With().Str("component", "realtime").Str("url", url).Logger(),
		state:    domain.ConnectionState{Phase: domain.ConnectionPhaseConnecting},
	}
}

// Open dials the agent service and starts delivering frames. It may be called once.
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return ErrClosed
	case m.opened:
		m.mu.Unlock()
		return ErrAlreadyOpened
	}
	m.opened = true
	dialCtx, cancel := context.WithCancel(ctx)
	m.dialCancel = cancel
	m.mu.Unlock()
	defer cancel()

	m.frameMu.Lock()
	m.transition(domain.ConnectionState{Phase: domain.ConnectionPhaseConnecting})
	m.frameMu.Unlock()

	conn, _, err := m.dialer.DialContext(dialCtx, m.url, nil)
	if err != nil {
		connErr := &ConnectionError{Op: "dial", URL: m.url, Err: err}

		m.frameMu.Lock()
		defer m.frameMu.Unlock()
		if m.isClosed() {
			return connErr
		}
		m.logger.Error().Err(err).Msg("connection failed")
		m.fail(connErr)
		return connErr
	}
	conn.SetReadLimit(maxFrameBytes)

	m.frameMu.Lock()
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.frameMu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	m.conn = conn
	m.readDone = make(chan struct{})
	readDone := m.readDone
	m.mu.Unlock()
	m.transition(domain.ConnectionState{Phase: domain.ConnectionPhaseOpen})
	m.frameMu.Unlock()

	m.logger.Info().Msg("connection open")
	go m.readLoop(conn, readDone)
	return nil
}

// Close tears the connection down. It is idempotent; once it returns no further
// frames are delivered.
func (m *Manager) Close() error {
	m.frameMu.Lock()
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.frameMu.Unlock()
		return nil
	}
	m.closed = true
	conn := m.conn
	readDone := m.readDone
	if m.dialCancel != nil {
		m.dialCancel()
	}
	m.mu.Unlock()
	m.frameMu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(closeWriteTimeout)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}
	if readDone != nil {
		<-readDone
	}

	m.frameMu.Lock()
	defer m.frameMu.Unlock()
	if m.State().Phase != domain.ConnectionPhaseClosed {
		m.transition(domain.ConnectionState{Phase: domain.ConnectionPhaseClosed, LastError: m.State().LastError})
	}
	m.logger.Info().Msg("connection closed")
	return nil
}

// State returns the current connection state.
func (m *Manager) State() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			m.handleReadError(err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		m.frameMu.Lock()
		if !m.isClosed() && m.observer != nil {
			m.observer.HandleFrame(payload)
		}
		m.frameMu.Unlock()
	}
}

func (m *Manager) handleReadError(err error) {
	m.frameMu.Lock()
	defer m.frameMu.Unlock()

	if m.isClosed() {
		return
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		m.logger.Info().Msg("connection closed by server")
		m.transition(domain.ConnectionState{Phase: domain.ConnectionPhaseClosed})
		return
	}

	m.logger.Error().Err(err).Msg("connection lost")
	m.fail(&ConnectionError{Op: "read", URL: m.url, Err: err})
}

// fail records the error and then closes. Callers hold frameMu.
func (m *Manager) fail(err error) {
	m.transition(domain.ConnectionState{Phase: domain.ConnectionPhaseErrored, LastError: err.Error()})
	m.transition(domain.ConnectionState{Phase: domain.ConnectionPhaseClosed, LastError: err.Error()})
}

// transition publishes a new state. Callers hold frameMu.
func (m *Manager) transition(state domain.ConnectionState) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
	if m.observer != nil {
		m.observer.ConnectionChanged(state)
	}
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
