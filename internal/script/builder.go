package script

import "strings"

// Builder accumulates lines of AppleScript source. It performs no escaping:
// every interpolated value must already be a Fragment or a fixed literal, so
// the escaping obligation sits with the caller at the point of insertion.
type Builder struct {
	lines []string
	depth int
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Tell opens a "tell application" block for the named app. The app name is a
// fixed literal chosen by the operation catalog, never caller input.
func (b *Builder) Tell(app string) *Builder {
	b.writeLine(`tell application "` + app + `"`)
	b.depth++
	return b
}

// EndTell closes the innermost tell block.
func (b *Builder) EndTell() *Builder {
	if b.depth > 0 {
		b.depth--
	}
	b.writeLine("end tell")
	return b
}

// Line appends one raw line of script at the current indentation.
func (b *Builder) Line(s string) *Builder {
	b.writeLine(s)
	return b
}

// Linef appends a line assembled from fixed text and fragments. Parts are
// concatenated verbatim.
func (b *Builder) Linef(parts ...any) *Builder {
	var sb strings.Builder
	for _, p := range parts {
		switch v := p.(type) {
		case Fragment:
			sb.WriteString(v.String())
		case string:
			sb.WriteString(v)
		}
	}
	b.writeLine(sb.String())
	return b
}

// Build returns the concatenated script text.
func (b *Builder) Build() string {
	return strings.Join(b.lines, "\n")
}

func (b *Builder) writeLine(s string) {
	b.lines = append(b.lines, strings.Repeat("\t", b.depth)+s)
}

// Quote wraps a fragment in double quotes for use as an AppleScript string
// literal.
func Quote(f Fragment) string {
	return `"` + f.String() + `"`
}
