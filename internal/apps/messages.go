package apps

import (
	"context"

	"safe-apple-bridge/internal/config"
	"safe-apple-bridge/internal/executor"
	"safe-apple-bridge/internal/osa"
	"safe-apple-bridge/internal/script"
	"safe-apple-bridge/internal/security"
)

var (
	messageRequiredKeys = []string{"text", "sender", "date"}
	messageDefaults     = map[string]string{
		"text":       "",
		"sender":     "unknown",
		"date":       "",
		"is_from_me": "0",
	}
)

// recentMessagesQuery reads the Messages store directly. The date column is
// Apple epoch nanoseconds; conversion to unixepoch happens in SQL.
const recentMessagesQuery = `SELECT message.text AS text,
	datetime(message.date/1000000000 + strftime('%s','2001-01-01'), 'unixepoch') AS date,
	handle.id AS sender,
	message.is_from_me AS is_from_me
FROM message
JOIN handle ON message.handle_id = handle.rowid
WHERE handle.id = ? AND message.text IS NOT NULL
ORDER BY message.date DESC
LIMIT ?`

// Messages exposes Messages.app operations.
type Messages struct {
	exec   *executor.Executor
	osa    *osa.Interpreter
	engine *osa.QueryEngine
	cfg    *config.Config
}

func NewMessages(exec *executor.Executor, interp *osa.Interpreter, engine *osa.QueryEngine, cfg *config.Config) *Messages {
	return &Messages{exec: exec, osa: interp, engine: engine, cfg: cfg}
}

// Send delivers an iMessage/SMS to the given number. No secondary path: a
// retry after an ambiguous primary failure could deliver the message twice.
func (m *Messages) Send(ctx context.Context, rawPhone, rawText string) executor.Outcome {
	var phone, text security.Input

	return m.exec.Run(ctx, executor.Operation{
		Name:  "messages.send",
		Class: security.ClassMessages,
		Validate: func() error {
			p, err := security.ValidatePhoneNumber(rawPhone)
			if err != nil {
				return err
			}
			phone = p
			t, err := security.ValidateMessageContent(rawText, m.cfg.Security.MaxMessageLength)
			if err != nil {
				return err
			}
			text = t
			return nil
		},
		Primary: func(ctx context.Context) (string, error) {
			return m.osa.RunAppleScript(ctx, messageSendScript(phone, text))
		},
		RequiredKeys: []string{"status", "recipient"},
		Details: map[string]string{
			"recipient": rawPhone,
			"text":      rawText,
		},
	})
}

// Recent returns the latest messages exchanged with the given number, read
// from chat.db through the external query engine. The primary output is the
// engine's JSON, which the structural cascade rule consumes; a dedicated
// secondary path does not exist because the Messages scripting dictionary
// exposes no conversation history.
func (m *Messages) Recent(ctx context.Context, rawPhone string, limit float64) executor.Outcome {
	var phone security.Input
	n := security.SanitizeLimit(limit, m.cfg.Security.MaxSearchResults)

	return m.exec.Run(ctx, executor.Operation{
		Name:  "messages.recent",
		Class: security.ClassSearch,
		Validate: func() error {
			p, err := security.ValidatePhoneNumber(rawPhone)
			if err != nil {
				return err
			}
			phone = p
			if _, err := security.ValidateFilePath(m.cfg.Bridge.ChatDBPath); err != nil {
				return err
			}
			return nil
		},
		Primary: func(ctx context.Context) (string, error) {
			query, err := osa.BindQuery(recentMessagesQuery, phone.String(), n)
			if err != nil {
				return "", err
			}
			return m.engine.Query(ctx, m.cfg.Bridge.ChatDBPath, query)
		},
		RequiredKeys: messageRequiredKeys,
		Defaults:     messageDefaults,
		Limit:        n,
		Details: map[string]string{
			"recipient": rawPhone,
		},
	})
}

func messageSendScript(phone, text security.Input) string {
	p := script.Escape(phone.String())
	t := script.Escape(text.String())
	b := script.NewBuilder()
	b.Tell("Messages")
	b.Line("set targetService to 1st account whose service type = iMessage")
	b.Linef("set targetBuddy to participant ", script.Quote(p), " of targetService")
	b.Linef("send ", script.Quote(t), " to targetBuddy")
	b.EndTell()
	b.Linef(`return "{status:\"sent\", recipient:\"`, p, `\"}"`)
	return b.Build()
}
