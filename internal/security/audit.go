package security

import (
	"sync"
	"time"
	"unicode/utf8"
)

// AuditEntry records the outcome of one security-relevant operation.
// Entries are never mutated after append.
type AuditEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Operation string            `json:"operation"`
	User      string            `json:"user,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
}

// AuditSink receives a copy of every logged entry. Sinks must not block;
// the Postgres mirror buffers internally.
type AuditSink interface {
	WriteAudit(AuditEntry)
}

// AuditLogger is an append-only, in-process record of operation outcomes.
// Log never fails and never drops an entry. Enablement is the caller's
// responsibility: when audit logging is disabled in config, callers skip the
// Log call entirely.
type AuditLogger struct {
	mu      sync.Mutex
	entries []AuditEntry
	sinks   []AuditSink
}

func NewAuditLogger(sinks ...AuditSink) *AuditLogger {
	return &AuditLogger{sinks: sinks}
}

// Log appends the entry with the current time attached.
func (a *AuditLogger) Log(e AuditEntry) {
	e.Timestamp = time.Now()

	a.mu.Lock()
	a.entries = append(a.entries, e)
	a.mu.Unlock()

	for _, s := range a.sinks {
		s.WriteAudit(e)
	}
}

// Recent returns the last n entries in insertion order.
func (a *AuditLogger) Recent(n int) []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n <= 0 || n > len(a.entries) {
		n = len(a.entries)
	}
	out := make([]AuditEntry, n)
	copy(out, a.entries[len(a.entries)-n:])
	return out
}

// Len returns the number of logged entries.
func (a *AuditLogger) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// previewLength caps content fields recorded in audit details.
const previewLength = 50

// Preview truncates a content value to the fixed audit preview length. The
// cut backs up to a rune boundary so the result stays valid UTF-8.
func Preview(s string) string {
	if len(s) <= previewLength {
		return s
	}
	cut := previewLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
