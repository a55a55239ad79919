package executor

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Record is the loose intermediate representation produced by parsing: a flat
// string-to-string map. Typed-default projection happens afterwards, as a
// separate step.
type Record map[string]string

// Rule names the parse cascade strategy that produced a result.
type Rule string

const (
	RuleStructured Rule = "structured"
	RuleRecordScan Rule = "record_scan"
	RuleRawDump    Rule = "raw_dump"
	RuleNone       Rule = "none"
)

// Keys of the diagnostic record emitted by the raw-dump fallback.
const (
	RawOutputKey  = "raw_output"
	RecordTypeKey = "record_type"
	RawRecordType = "raw_debug"
)

// parseCascade interprets raw interpreter output. Rules run in fixed order and
// the first success wins:
//
//  a. structural parse of JSON-shaped text,
//  b. brace-delimited record scan,
//  c. a single diagnostic record carrying the raw text when enough expected
//     field names appear in it (better a visible raw dump than silent loss),
//  d. nothing matched: RuleNone, caller falls back to the secondary path.
func parseCascade(raw string, requiredKeys []string) ([]Record, Rule) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, RuleNone
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		if recs := parseStructured(trimmed); len(recs) > 0 {
			return recs, RuleStructured
		}
	}

	if recs := parseRecordScan(trimmed, requiredKeys); len(recs) > 0 {
		return recs, RuleRecordScan
	}

	if countTokens(trimmed, requiredKeys) >= 2 {
		return []Record{{
			RawOutputKey:  raw,
			RecordTypeKey: RawRecordType,
		}}, RuleRawDump
	}

	return nil, RuleNone
}

// parseStructured handles well-formed JSON: an array of objects or a single
// object.
func parseStructured(trimmed string) []Record {
	if !gjson.Valid(trimmed) {
		return nil
	}
	parsed := gjson.Parse(trimmed)

	var recs []Record
	collect := func(v gjson.Result) {
		if !v.IsObject() {
			return
		}
		rec := Record{}
		v.ForEach(func(key, value gjson.Result) bool {
			rec[strings.ToLower(key.String())] = value.String()
			return true
		})
		if len(rec) > 0 {
			recs = append(recs, rec)
		}
	}

	if parsed.IsArray() {
		parsed.ForEach(func(_, v gjson.Result) bool {
			collect(v)
			return true
		})
	} else {
		collect(parsed)
	}
	return recs
}

// parseRecordScan extracts {...} groups from AppleScript-record-like text,
// splits each on top-level commas, then on the first colon. A group counts
// only if it yields at least one required key.
func parseRecordScan(text string, requiredKeys []string) []Record {
	var recs []Record
	for _, group := range braceGroups(text) {
		rec := Record{}
		for _, piece := range splitTopLevel(group, ',') {
			idx := strings.Index(piece, ":")
			if idx <= 0 {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(piece[:idx]))
			val := strings.Trim(strings.TrimSpace(piece[idx+1:]), `"`)
			if key != "" {
				rec[key] = val
			}
		}
		if hasAnyKey(rec, requiredKeys) {
			recs = append(recs, rec)
		}
	}
	return recs
}

// braceGroups returns the interior of every top-level {...} group.
func braceGroups(text string) []string {
	var groups []string
	depth := 0
	start := -1
	inString := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					groups = append(groups, text[start:i])
					start = -1
				}
			}
		}
	}
	return groups
}

// splitTopLevel splits on sep outside quotes and nested braces.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inString := false
	last := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts
}

func hasAnyKey(rec Record, keys []string) bool {
	for _, k := range keys {
		if _, ok := rec[k]; ok {
			return true
		}
	}
	return false
}

func countTokens(text string, tokens []string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, t := range tokens {
		if strings.Contains(lower, strings.ToLower(t)) {
			n++
		}
	}
	return n
}

// projectRecords applies per-field defaults to each record: a key present in
// defaults but absent (or empty) in the record gets its fallback value. The
// input records are not mutated.
func projectRecords(recs []Record, defaults map[string]string) []Record {
	if len(defaults) == 0 {
		return recs
	}
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if rec[RecordTypeKey] == RawRecordType {
			// Diagnostic records pass through untouched.
			out = append(out, rec)
			continue
		}
		projected := make(Record, len(rec)+len(defaults))
		for k, v := range rec {
			projected[k] = v
		}
		for k, fallback := range defaults {
			if projected[k] == "" {
				projected[k] = fallback
			}
		}
		out = append(out, projected)
	}
	return out
}
