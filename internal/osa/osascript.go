package osa

import (
	"context"
	"time"

	"safe-apple-bridge/internal/config"
)

// Interpreter runs script text through the osascript binary. The AppleScript
// path returns loosely formatted text; the JXA path is the object-automation
// alternative that emits JSON.
type Interpreter struct {
	path    string
	invoker *Invoker
	timeout time.Duration
}

func NewInterpreter(cfg config.BridgeConfig, invoker *Invoker) *Interpreter {
	path := cfg.OsascriptPath
	if path == "" {
		path = "osascript"
	}
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Interpreter{path: path, invoker: invoker, timeout: timeout}
}

// RunAppleScript executes AppleScript source, passed on stdin so the script
// text never appears in the process argument list.
func (i *Interpreter) RunAppleScript(ctx context.Context, source string) (string, error) {
	out, err := i.invoker.Run(ctx, i.path, []string{"-"}, source, i.timeout)
	if err != nil {
		return "", err
	}
	return out.Stdout, nil
}

// RunJXA executes JavaScript for Automation source and returns its stdout,
// which by convention is a JSON.stringify'd value.
func (i *Interpreter) RunJXA(ctx context.Context, source string) (string, error) {
	out, err := i.invoker.Run(ctx, i.path, []string{"-l", "JavaScript", "-"}, source, i.timeout)
	if err != nil {
		return "", err
	}
	return out.Stdout, nil
}
