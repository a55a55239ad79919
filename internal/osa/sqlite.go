package osa

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"safe-apple-bridge/internal/config"
	"safe-apple-bridge/internal/script"
)

// QueryEngine invokes the external sqlite3 binary as a one-shot process.
// There is no persistent connection, so there are no engine-level bound
// parameters: BindQuery substitutes operands textually, and callers must only
// pass trusted, already-validated values through it.
type QueryEngine struct {
	path    string
	invoker *Invoker
	timeout time.Duration
}

func NewQueryEngine(cfg config.BridgeConfig, invoker *Invoker) *QueryEngine {
	path := cfg.SqlitePath
	if path == "" {
		path = "sqlite3"
	}
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &QueryEngine{path: path, invoker: invoker, timeout: timeout}
}

// BindQuery replaces each ? placeholder left-to-right with a literal: numeric
// params verbatim, strings single-quote-escaped. The param count must match
// the placeholder count exactly.
func BindQuery(template string, params ...any) (string, error) {
	var b strings.Builder
	next := 0
	for i := 0; i < len(template); i++ {
		if template[i] != '?' {
			b.WriteByte(template[i])
			continue
		}
		if next >= len(params) {
			return "", fmt.Errorf("query has more placeholders than params (%d)", len(params))
		}
		lit, err := sqlLiteral(params[next])
		if err != nil {
			return "", err
		}
		b.WriteString(lit)
		next++
	}
	if next != len(params) {
		return "", fmt.Errorf("query has %d placeholders but %d params", next, len(params))
	}
	return b.String(), nil
}

func sqlLiteral(v any) (string, error) {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case string:
		return "'" + script.EscapeSQLString(t) + "'", nil
	default:
		return "", fmt.Errorf("unsupported query param type %T", v)
	}
}

// Query runs a read-only query against the database file and returns JSON
// output from the engine.
func (q *QueryEngine) Query(ctx context.Context, dbPath, query string) (string, error) {
	args := []string{"-json", "-readonly", dbPath, query}
	out, err := q.invoker.Run(ctx, q.path, args, "", q.timeout)
	if err != nil {
		return "", err
	}
	return out.Stdout, nil
}
