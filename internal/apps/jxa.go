package apps

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"safe-apple-bridge/internal/executor"
	"safe-apple-bridge/internal/osa"
	"safe-apple-bridge/internal/script"
)

// runJXARecords executes a JXA source that prints JSON and decodes it into
// flat records. JXA output is already structured, so there is no cascade
// here, only decoding; field defaulting happens in the executor.
func runJXARecords(ctx context.Context, interp *osa.Interpreter, source string) ([]executor.Record, error) {
	out, err := interp.RunJXA(ctx, source)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return nil, nil
	}

	var rawRecs []map[string]any
	if err := json.Unmarshal([]byte(trimmed), &rawRecs); err != nil {
		// A single object is also acceptable.
		var one map[string]any
		if err2 := json.Unmarshal([]byte(trimmed), &one); err2 != nil {
			return nil, fmt.Errorf("decoding object-automation output: %w", err)
		}
		rawRecs = []map[string]any{one}
	}

	recs := make([]executor.Record, 0, len(rawRecs))
	for _, m := range rawRecs {
		rec := executor.Record{}
		for k, v := range m {
			rec[strings.ToLower(k)] = stringify(v)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// jsEscape makes s safe inside a double-quoted JavaScript literal. The same
// five characters matter as for AppleScript literals.
func jsEscape(s string) string {
	return script.Escape(s).String()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func intLiteral(prefix string, n int) string {
	return prefix + strconv.Itoa(n)
}
