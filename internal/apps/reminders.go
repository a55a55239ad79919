package apps

import (
	"context"

	"safe-apple-bridge/internal/config"
	"safe-apple-bridge/internal/executor"
	"safe-apple-bridge/internal/osa"
	"safe-apple-bridge/internal/script"
	"safe-apple-bridge/internal/security"
)

// Reminders exposes Reminders.app operations.
type Reminders struct {
	exec *executor.Executor
	osa  *osa.Interpreter
	cfg  *config.Config
}

func NewReminders(exec *executor.Executor, interp *osa.Interpreter, cfg *config.Config) *Reminders {
	return &Reminders{exec: exec, osa: interp, cfg: cfg}
}

// Create adds a reminder, optionally into a named list. Write class; no
// secondary path since a retry could create a duplicate.
func (r *Reminders) Create(ctx context.Context, rawName, rawList string) executor.Outcome {
	var name, list security.Input

	return r.exec.Run(ctx, executor.Operation{
		Name:  "reminders.create",
		Class: security.ClassWrite,
		Validate: func() error {
			n, err := security.ValidateMessageContent(rawName, 500)
			if err != nil {
				return err
			}
			name = n
			if rawList != "" {
				l, err := security.ValidateFolderName(rawList)
				if err != nil {
					return err
				}
				list = l
			}
			return nil
		},
		Primary: func(ctx context.Context) (string, error) {
			return r.osa.RunAppleScript(ctx, reminderCreateScript(name, list))
		},
		RequiredKeys: []string{"status", "name"},
		Details: map[string]string{
			"name": rawName,
			"list": rawList,
		},
	})
}

func reminderCreateScript(name, list security.Input) string {
	n := script.Escape(name.String())
	b := script.NewBuilder()
	b.Tell("Reminders")
	if list.String() != "" {
		l := script.Escape(list.String())
		b.Linef("set theList to list ", script.Quote(l))
		b.Linef("tell theList to make new reminder with properties {name:", script.Quote(n), "}")
	} else {
		b.Linef("make new reminder with properties {name:", script.Quote(n), "}")
	}
	b.EndTell()
	b.Linef(`return "{status:\"created\", name:\"`, n, `\"}"`)
	return b.Build()
}
