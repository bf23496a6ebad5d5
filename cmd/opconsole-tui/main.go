// Command opconsole-tui is the terminal shell for the agent console.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"opconsole/internal/agent"
	"opconsole/internal/bootstrap"
	"opconsole/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "opconsole-tui: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// The alt screen owns the terminal, so diagnostics always go to a file.
	logDir, err := logging.DefaultDir("opconsole")
	if err != nil {
		logDir = filepath.Join(os.TempDir(), "opconsole")
	}

	window := &logWindow{}
	services, err := bootstrap.Build(bootstrap.Options{Window: window, DefaultLogDir: logDir})
	if err != nil {
		return err
	}
	window.logger = services.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	program := tea.NewProgram(newModel(ctx, services.Recorder, services.Store.Snapshot()), tea.WithAltScreen())

	unsubscribe := services.Store.Subscribe(func(snap agent.Snapshot) {
		program.Send(snapshotMsg(snap))
	})

	go func() {
		if err := services.Connection.Open(ctx); err != nil {
			services.Logger.Warn().Err(err).Msg("agent connection unavailable")
		}
	}()

	_, runErr := program.Run()
	unsubscribe()
	cancel()

	if err := services.Close(); err != nil {
		services.Logger.Warn().Err(err).Msg("shutdown incomplete")
	}
	return runErr
}

// logWindow records set_hidden commands; a terminal has no window to hide.
type logWindow struct {
	logger zerolog.Logger
}

func (w *logWindow) SetHidden(hidden bool) error {
	w.logger.Info().Bool("hidden", hidden).Msg("window visibility requested")
	return nil
}
