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
	contactRequiredKeys = []string{"name", "phones"}
	contactDefaults     = map[string]string{
		"name":   "(no name)",
		"phones": "",
		"emails": "",
	}
)

// Contacts exposes Contacts.app operations.
type Contacts struct {
	exec *executor.Executor
	osa  *osa.Interpreter
	cfg  *config.Config
}

func NewContacts(exec *executor.Executor, interp *osa.Interpreter, cfg *config.Config) *Contacts {
	return &Contacts{exec: exec, osa: interp, cfg: cfg}
}

// Search finds contacts whose name contains the query.
func (c *Contacts) Search(ctx context.Context, rawName string, limit float64) executor.Outcome {
	var name security.Input
	n := security.SanitizeLimit(limit, c.cfg.Security.MaxSearchResults)

	return c.exec.Run(ctx, executor.Operation{
		Name:  "contacts.search",
		Class: security.ClassSearch,
		Validate: func() error {
			q, err := security.ValidateSearchQuery(rawName)
			if err != nil {
				return err
			}
			name = q
			return nil
		},
		Primary: func(ctx context.Context) (string, error) {
			return c.osa.RunAppleScript(ctx, contactSearchScript(name, n))
		},
		Secondary: func(ctx context.Context) ([]executor.Record, error) {
			return runJXARecords(ctx, c.osa, contactSearchJXA(name, n))
		},
		RequiredKeys: contactRequiredKeys,
		Defaults:     contactDefaults,
		Limit:        n,
		Details: map[string]string{
			"query": rawName,
		},
	})
}

func contactSearchScript(name security.Input, limit int) string {
	q := script.Escape(name.String())
	b := script.NewBuilder()
	b.Line("set output to \"\"")
	b.Tell("Contacts")
	b.Linef("set thePeople to (people whose name contains ", script.Quote(q), ")")
	b.Line(intLiteral("set maxCount to ", limit))
	b.Line("set n to count of thePeople")
	b.Line("if n > maxCount then set n to maxCount")
	b.Line("repeat with i from 1 to n")
	b.Line("	set p to item i of thePeople")
	b.Line("	set phoneList to \"\"")
	b.Line("	repeat with ph in phones of p")
	b.Line(`		set phoneList to phoneList & (value of ph) & " "`)
	b.Line("	end repeat")
	b.Line(`	set output to output & "{name:\"" & name of p & "\", phones:\"" & phoneList & "\"}, "`)
	b.Line("end repeat")
	b.EndTell()
	b.Line("return output")
	return b.Build()
}

func contactSearchJXA(name security.Input, limit int) string {
	q := jsEscape(name.String())
	return `
const Contacts = Application("Contacts");
const out = [];
const people = Contacts.people.whose({name: {_contains: "` + q + `"}})();
for (let i = 0; i < people.length && i < ` + itoa(limit) + `; i++) {
	const p = people[i];
	const phones = p.phones().map(ph => ph.value()).join(" ");
	const emails = p.emails().map(e => e.value()).join(" ");
	out.push({name: p.name() || "", phones: phones, emails: emails});
}
JSON.stringify(out);`
}
