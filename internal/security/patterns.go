package security

import "regexp"

// dangerousPattern flags input that resembles an automation-control escape or a
// destructive query. Matching input is rejected outright; this runs in addition
// to escaping at script-construction time, never instead of it.
type dangerousPattern struct {
	name  string
	regex *regexp.Regexp
}

var dangerousPatterns = []dangerousPattern{
	{"nested_app_control", regexp.MustCompile(`(?i)tell\s+application`)},
	{"shell_invocation", regexp.MustCompile(`(?i)do\s+shell\s+script`)},
	{"system_events", regexp.MustCompile(`(?i)system\s+events`)},
	{"keystroke_injection", regexp.MustCompile(`(?i)keystroke\s`)},
	{"interpreter_recursion", regexp.MustCompile(`(?i)osascript`)},
	{"command_substitution", regexp.MustCompile("[`]|\\$\\(")},
	{"sql_mutation", regexp.MustCompile(`(?i)\b(drop|delete|insert|update|alter|create|truncate)\s+(table|from|into|database|index|view)\b`)},
	{"sql_batch", regexp.MustCompile(`(?i);\s*(drop|delete|insert|update|alter)\b`)},
}

// scanDangerous returns the name of the first matching signature, or "".
func scanDangerous(s string) string {
	for _, p := range dangerousPatterns {
		if p.regex.MatchString(s) {
			return p.name
		}
	}
	return ""
}
