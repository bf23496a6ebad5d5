package notify

import (
	"context"
	"runtime"

	"opconsole/internal/ports"
)

type Config struct {
	Enabled bool
	// Command, when set, is run with the title and body as its two arguments.
	Command string
	AppName string
}

// New picks a notifier for the current platform.
func New(cfg Config) ports.Notifier {
	if !cfg.Enabled {
		return Nop{}
	}
	if cfg.Command != "" {
		return NewScriptNotifier(cfg.Command)
	}
	switch runtime.GOOS {
	case "darwin":
		return NewScriptNotifier("")
	case "linux", "freebsd", "openbsd", "netbsd":
		return NewDBusNotifier(cfg.AppName)
	default:
		return Nop{}
	}
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, string, string) error { return nil }
