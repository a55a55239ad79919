// Package apps is the per-application operation catalog. Each operation is
// thin: it validates its inputs, builds script text, and hands control to the
// executor, which owns rate limiting, parsing, fallback, and auditing.
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
	mailRequiredKeys = []string{"subject", "sender", "date"}
	mailDefaults     = map[string]string{
		"subject": "(no subject)",
		"sender":  "unknown sender",
		"date":    "",
		"snippet": "",
	}
)

// Mail exposes Mail.app operations.
type Mail struct {
	exec *executor.Executor
	osa  *osa.Interpreter
	cfg  *config.Config
}

func NewMail(exec *executor.Executor, interp *osa.Interpreter, cfg *config.Config) *Mail {
	return &Mail{exec: exec, osa: interp, cfg: cfg}
}

// Search finds messages matching the query, optionally within one mailbox.
func (m *Mail) Search(ctx context.Context, rawQuery, rawMailbox string, limit float64) executor.Outcome {
	var query, mailbox security.Input
	n := security.SanitizeLimit(limit, m.cfg.Security.MaxSearchResults)

	return m.exec.Run(ctx, executor.Operation{
		Name:  "mail.search",
		Class: security.ClassSearch,
		Validate: func() error {
			q, err := security.ValidateSearchQuery(rawQuery)
			if err != nil {
				return err
			}
			query = q
			if rawMailbox != "" {
				mb, err := security.ValidateFolderName(rawMailbox)
				if err != nil {
					return err
				}
				mailbox = mb
			}
			return nil
		},
		Primary: func(ctx context.Context) (string, error) {
			return m.osa.RunAppleScript(ctx, mailSearchScript(query, mailbox, n))
		},
		Secondary: func(ctx context.Context) ([]executor.Record, error) {
			return runJXARecords(ctx, m.osa, mailSearchJXA(query, n))
		},
		RequiredKeys: mailRequiredKeys,
		Defaults:     mailDefaults,
		Limit:        n,
		Details: map[string]string{
			"query":   rawQuery,
			"mailbox": rawMailbox,
		},
	})
}

// Unread lists unread messages across the inbox.
func (m *Mail) Unread(ctx context.Context, limit float64) executor.Outcome {
	n := security.SanitizeLimit(limit, m.cfg.Security.MaxSearchResults)

	return m.exec.Run(ctx, executor.Operation{
		Name:  "mail.unread",
		Class: security.ClassSearch,
		Primary: func(ctx context.Context) (string, error) {
			return m.osa.RunAppleScript(ctx, mailUnreadScript(n))
		},
		Secondary: func(ctx context.Context) ([]executor.Record, error) {
			return runJXARecords(ctx, m.osa, mailUnreadJXA(n))
		},
		RequiredKeys: mailRequiredKeys,
		Defaults:     mailDefaults,
		Limit:        n,
	})
}

// Send composes and sends a message. Write operations carry no secondary
// path: retrying a send that may already have gone out could deliver twice.
func (m *Mail) Send(ctx context.Context, rawTo, rawSubject, rawBody string) executor.Outcome {
	var to, subject, body security.Input

	return m.exec.Run(ctx, executor.Operation{
		Name:  "mail.send",
		Class: security.ClassEmails,
		Validate: func() error {
			t, err := security.ValidateEmail(rawTo)
			if err != nil {
				return err
			}
			to = t
			s, err := security.ValidateMessageContent(rawSubject, 500)
			if err != nil {
				return err
			}
			subject = s
			b, err := security.ValidateMessageContent(rawBody, m.cfg.Security.MaxMessageLength)
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		Primary: func(ctx context.Context) (string, error) {
			return m.osa.RunAppleScript(ctx, mailSendScript(to, subject, body))
		},
		RequiredKeys: []string{"status", "recipient"},
		Details: map[string]string{
			"to":      rawTo,
			"subject": rawSubject,
			"body":    rawBody,
		},
	})
}

// mailSearchScript returns AppleScript that emits one brace-delimited record
// per matching message.
func mailSearchScript(query, mailbox security.Input, limit int) string {
	q := script.Escape(query.String())
	b := script.NewBuilder()
	b.Line("set output to \"\"")
	b.Tell("Mail")
	if mailbox.String() != "" {
		mb := script.Escape(mailbox.String())
		b.Linef("set theBox to mailbox ", script.Quote(mb), " of first account")
	} else {
		b.Line("set theBox to inbox")
	}
	b.Linef("set theMessages to (messages of theBox whose subject contains ", script.Quote(q), " or sender contains ", script.Quote(q), ")")
	b.Line(intLiteral("set maxCount to ", limit))
	b.Line("set n to count of theMessages")
	b.Line("if n > maxCount then set n to maxCount")
	b.Line("repeat with i from 1 to n")
	b.Line("	set msg to item i of theMessages")
	b.Line(`	set output to output & "{subject:\"" & subject of msg & "\", sender:\"" & sender of msg & "\", date:\"" & (date received of msg as string) & "\"}, "`)
	b.Line("end repeat")
	b.EndTell()
	b.Line("return output")
	return b.Build()
}

func mailUnreadScript(limit int) string {
	b := script.NewBuilder()
	b.Line("set output to \"\"")
	b.Tell("Mail")
	b.Line("set theMessages to (messages of inbox whose read status is false)")
	b.Line(intLiteral("set maxCount to ", limit))
	b.Line("set n to count of theMessages")
	b.Line("if n > maxCount then set n to maxCount")
	b.Line("repeat with i from 1 to n")
	b.Line("	set msg to item i of theMessages")
	b.Line(`	set output to output & "{subject:\"" & subject of msg & "\", sender:\"" & sender of msg & "\", date:\"" & (date received of msg as string) & "\"}, "`)
	b.Line("end repeat")
	b.EndTell()
	b.Line("return output")
	return b.Build()
}

func mailSendScript(to, subject, body security.Input) string {
	t := script.Escape(to.String())
	s := script.Escape(subject.String())
	bd := script.Escape(body.String())
	b := script.NewBuilder()
	b.Tell("Mail")
	b.Linef("set newMessage to make new outgoing message with properties {subject:", script.Quote(s), ", content:", script.Quote(bd), ", visible:false}")
	b.Line("tell newMessage")
	b.Linef("	make new to recipient at end of to recipients with properties {address:", script.Quote(t), "}")
	b.Line("end tell")
	b.Line("send newMessage")
	b.EndTell()
	b.Linef(`return "{status:\"sent\", recipient:\"`, t, `\"}"`)
	return b.Build()
}

// mailSearchJXA is the object-automation fallback: it returns JSON directly.
func mailSearchJXA(query security.Input, limit int) string {
	q := jsEscape(query.String())
	return `
const Mail = Application("Mail");
const box = Mail.inbox();
const out = [];
const msgs = box.messages();
for (let i = 0; i < msgs.length && out.length < ` + itoa(limit) + `; i++) {
	const m = msgs[i];
	const subj = m.subject() || "";
	const from = m.sender() || "";
	if (subj.indexOf("` + q + `") === -1 && from.indexOf("` + q + `") === -1) continue;
	out.push({subject: subj, sender: from, date: String(m.dateReceived())});
}
JSON.stringify(out);`
}

func mailUnreadJXA(limit int) string {
	return `
const Mail = Application("Mail");
const out = [];
const msgs = Mail.inbox().messages.whose({readStatus: false})();
for (let i = 0; i < msgs.length && i < ` + itoa(limit) + `; i++) {
	const m = msgs[i];
	out.push({subject: m.subject() || "", sender: m.sender() || "", date: String(m.dateReceived())});
}
JSON.stringify(out);`
}
