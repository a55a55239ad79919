// Package script builds AppleScript source text. All escaping rules live here
// so every script-construction call site is auditable and the unsafe
// operation, concatenating strings into interpreter source, stays on a single
// reviewed code path.
package script

import "strings"

// Fragment is an already-escaped string, safe for direct interpolation inside
// a double-quoted AppleScript literal. Only this package constructs one.
type Fragment struct {
	value string
}

func (f Fragment) String() string { return f.value }

// Escape makes s safe for a double-quoted AppleScript string literal.
// Backslash must be escaped first; escaping any other character first would
// double-escape its backslash.
func Escape(s string) Fragment {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return Fragment{value: r.Replace(s)}
}

// Unescape reverses Escape. It exists so the round-trip invariant is
// checkable; production code never feeds interpreter output through it.
func Unescape(f Fragment) string {
	var b strings.Builder
	s := f.value
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// EscapeIdentifier strips every character outside [A-Za-z0-9_] so the result
// is safe as a bare variable name.
func EscapeIdentifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EscapeSQLString doubles single quotes for a single-quoted SQL literal.
func EscapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
