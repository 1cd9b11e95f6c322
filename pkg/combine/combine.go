// Package combine merges an HTML document, a stylesheet and a script into a
// single self-contained HTML document.
package combine

import (
	"fmt"
	"strings"
)

const (
	headIndent  = "    "     // Indentation for re-emitted head and body lines.
	blockIndent = "        " // Indentation for style and script lines.
)

// DefaultHead is used when no markup is supplied.
const DefaultHead = `    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Combined App</title>`

// DefaultBody is used when no markup is supplied.
const DefaultBody = `    <h1>Welcome to Combined App</h1>
    <p>This HTML was generated by combining your CSS and JavaScript files.</p>`

// Combine produces the combined document for set.
// The output is a pure function of the slot contents; file names do not affect it.
// The only failure is markup that cannot be parsed, reported as ErrParse.
func Combine(set SourceSet) (string, error) {
	headContent, bodyContent := DefaultHead, DefaultBody
	if set.Markup != nil {
		var err error
		headContent, bodyContent, err = ExtractHeadBody(set.Markup.Content)
		if err != nil {
			return "", fmt.Errorf("failed to extract head and body from %s: %w", set.Markup.Name, err)
		}
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")

	writeTrimmedLines(&b, headContent)

	if set.Style != nil {
		b.WriteString(headIndent + "<style>\n")
		writeVerbatimLines(&b, set.Style.Content)
		b.WriteString(headIndent + "</style>\n")
	}

	b.WriteString("</head>\n<body>\n")

	writeTrimmedLines(&b, bodyContent)

	// Script goes last in the body, separated by a blank line.
	if set.Script != nil {
		b.WriteString("\n" + headIndent + "<script>\n")
		writeVerbatimLines(&b, set.Script.Content)
		b.WriteString(headIndent + "</script>\n")
	}

	b.WriteString("</body>\n</html>")
	return b.String(), nil
}

// writeTrimmedLines re-indents every non-blank line of content at the head level.
// Surrounding whitespace is stripped from each line and blank lines are dropped.
func writeTrimmedLines(b *strings.Builder, content string) {
	if content == "" {
		return
	}
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		b.WriteString(headIndent)
		b.WriteString(trimmed)
		b.WriteByte('\n')
	}
}

// writeVerbatimLines indents every line of content at the block level, keeping blank lines.
func writeVerbatimLines(b *strings.Builder, content string) {
	for _, line := range strings.Split(content, "\n") {
		b.WriteString(blockIndent)
		b.WriteString(line)
		b.WriteByte('\n')
	}
}
