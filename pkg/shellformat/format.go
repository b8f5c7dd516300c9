// Package shellformat renders shell one-liners for human review.
//
// It parses commands with mvdan.cc/sh/v3/syntax (the shfmt parser) and
// re-prints them in a canonical single-spaced form, so that the command a
// reviewer approves is exactly the command that was parsed, not whatever
// whitespace tricks the raw input carried.
package shellformat

import (
	"bytes"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

func newParser() *syntax.Parser {
	return syntax.NewParser(syntax.Variant(syntax.LangBash))
}

func printNode(node syntax.Node) string {
	printer := syntax.NewPrinter(syntax.SpaceRedirects(true))
	var buf bytes.Buffer
	_ = printer.Print(&buf, node)
	return strings.TrimRight(buf.String(), "\n")
}

// Normalize parses a one-liner and re-prints it in canonical form.
// On parse error the trimmed input is returned unchanged.
func Normalize(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	prog, err := newParser().Parse(strings.NewReader(input), "")
	if err != nil {
		return input
	}
	return printNode(prog)
}

// Statements splits a one-liner into its individual statements, each
// rendered canonically. ok is false when the input does not parse, in
// which case the trimmed input is returned as a single pseudo-statement.
func Statements(input string) (stmts []string, ok bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, true
	}
	prog, err := newParser().Parse(strings.NewReader(input), "")
	if err != nil {
		return []string{input}, false
	}
	out := make([]string, 0, len(prog.Stmts))
	for _, stmt := range prog.Stmts {
		out = append(out, printNode(stmt))
	}
	return out, true
}

// Summarize returns a single-line summary of a command capped at maxLen
// runes, eliding the tail with an ellipsis. Used for approval prompt titles
// where the full command body is shown separately.
func Summarize(input string, maxLen int) string {
	s := Normalize(input)
	s = strings.Join(strings.Fields(s), " ")
	if maxLen <= 0 || len([]rune(s)) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
