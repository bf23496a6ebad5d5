package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"opconsole/internal/agent"
	"opconsole/internal/domain"
	"opconsole/internal/usecase"
)

// recorder is the slice of usecase.Recorder the terminal drives.
type recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (domain.UploadResult, error)
	Abort() error
}

type snapshotMsg agent.Snapshot

type commandErrMsg struct {
	op  string
	err error
}

type uploadDoneMsg struct {
	result domain.UploadResult
}

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)
	recordingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	openStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
)

const maxVisibleActions = 12

type tuiModel struct {
	ctx      context.Context
	recorder recorder

	snap    agent.Snapshot
	lastErr string
	width   int
}

func newModel(ctx context.Context, rec recorder, initial agent.Snapshot) tuiModel {
	return tuiModel{ctx: ctx, recorder: rec, snap: initial}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case snapshotMsg:
		m.snap = agent.Snapshot(msg)
		return m, nil

	case commandErrMsg:
		m.lastErr = fmt.Sprintf("%s: %v", msg.op, msg.err)
		return m, nil

	case uploadDoneMsg:
		m.lastErr = ""
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ":
			m.lastErr = ""
			if m.snap.Recording.HoldsMicrophone() {
				return m, m.stopCmd()
			}
			return m, m.startCmd()
		case "a", "esc":
			m.lastErr = ""
			return m, m.abortCmd()
		}
	}
	return m, nil
}

func (m tuiModel) startCmd() tea.Cmd {
	rec, ctx := m.recorder, m.ctx
	return func() tea.Msg {
		if err := rec.Start(ctx); err != nil {
			return commandErrMsg{op: "start", err: err}
		}
		return nil
	}
}

func (m tuiModel) stopCmd() tea.Cmd {
	rec, ctx := m.recorder, m.ctx
	return func() tea.Msg {
		result, err := rec.Stop(ctx)
		if errors.Is(err, usecase.ErrNotRecording) {
			return nil
		}
		if err != nil {
			return commandErrMsg{op: "send", err: err}
		}
		return uploadDoneMsg{result: result}
	}
}

func (m tuiModel) abortCmd() tea.Cmd {
	rec := m.recorder
	return func() tea.Msg {
		if err := rec.Abort(); err != nil && !errors.Is(err, usecase.ErrNotRecording) {
			return commandErrMsg{op: "discard", err: err}
		}
		return nil
	}
}

func (m tuiModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("opconsole"))
	b.WriteString("  ")
	b.WriteString(connectionBadge(m.snap.Connection))
	b.WriteString("\n\n")

	status := agent.StatusText(m.snap)
	if m.snap.Recording == domain.RecordingPhaseRecording {
		b.WriteString(recordingStyle.Render("● " + status))
	} else {
		b.WriteString(status)
	}
	b.WriteString("\n")

	if m.lastErr != "" {
		b.WriteString(errStyle.Render(m.lastErr))
		b.WriteString("\n")
	}
	if m.snap.ParseErrors > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d malformed frame(s), last: %s", m.snap.ParseErrors, m.snap.LastParseError)))
		b.WriteString("\n")
	}

	actions := m.snap.Actions
	if len(actions) > maxVisibleActions {
		actions = actions[len(actions)-maxVisibleActions:]
	}
	if len(actions) > 0 {
		b.WriteString("\n")
	}
	for _, entry := range actions {
		b.WriteString(m.truncate(renderAction(entry)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space record/send · a discard · q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m tuiModel) truncate(line string) string {
	if m.width <= 0 {
		return line
	}
	return ansi.Truncate(line, m.width, "…")
}

func connectionBadge(conn domain.ConnectionState) string {
	switch conn.Phase {
	case domain.ConnectionPhaseOpen:
		return openStyle.Render("connected")
	case domain.ConnectionPhaseConnecting:
		return dimStyle.Render("connecting")
	default:
		return errStyle.Render("disconnected")
	}
}

func renderAction(entry domain.ActionLogEntry) string {
	switch entry.Kind {
	case domain.ActionKindToolCall:
		line := "→ " + entry.Tool
		if len(entry.Args) > 0 {
			line += " " + dimStyle.Render(string(entry.Args))
		}
		return line
	case domain.ActionKindToolResult:
		result := entry.Result
		if result == "" {
			result = "completed"
		}
		return "✓ " + entry.Tool + ": " + result
	default:
		return "» " + entry.Response
	}
}
