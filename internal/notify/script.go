package notify

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ScriptNotifier raises notifications through an external command. Without a
// command it uses osascript.
type ScriptNotifier struct {
	command string
}

func NewScriptNotifier(command string) *ScriptNotifier {
	return &ScriptNotifier{command: command}
}

func (n *ScriptNotifier) Notify(ctx context.Context, title string, body string) error {
	var cmd *exec.Cmd
	if n.command == "" {
		script := fmt.Sprintf("display notification %s with title %s", appleScriptString(body), appleScriptString(title))
		cmd = exec.CommandContext(ctx, "osascript", "-e", script)
	} else {
		cmd = exec.CommandContext(ctx, n.command, title, body)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return fmt.Errorf("notification command failed: %w: %s", err, detail)
		}
		return fmt.Errorf("notification command failed: %w", err)
	}
	return nil
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
