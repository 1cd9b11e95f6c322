// File: pkg/source/patterns.go
package source

import (
	"regexp"
	"strings"
)

// Precompiled expressions used to translate ignore patterns into regular expressions.
var (
	doubleStarMiddle   = regexp.MustCompile(`/\*\*/`)
	doubleStarTrailing = regexp.MustCompile(`/\*\*$`)
	doubleStarLeading  = regexp.MustCompile(`^\*\*/`)

	doubleStarExpander = strings.NewReplacer("\x00m", `(/|/.+/)`, "\x00t", `(/.*)?`, "\x00l", `(.*/)?`)
)

// compilePattern translates one gitignore-style line into a regular expression.
// It returns nil for blank lines and comments.
func compilePattern(line string) (*regexp.Regexp, bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, false, nil
	}

	negate := false
	if strings.HasPrefix(trimmed, "!") {
		negate = true
		trimmed = strings.TrimPrefix(trimmed, "!")
	}
	// A leading backslash escapes a literal '#' or '!'.
	if strings.HasPrefix(trimmed, `\#`) || strings.HasPrefix(trimmed, `\!`) {
		trimmed = trimmed[1:]
	}

	expr := escapeSpecialChars(trimmed)
	expr = strings.ReplaceAll(expr, "?", "[^/]")
	// '**' forms are parked behind placeholders so the single '*' rewrite
	// cannot touch them.
	expr = doubleStarMiddle.ReplaceAllString(expr, "\x00m")
	expr = doubleStarTrailing.ReplaceAllString(expr, "\x00t")
	expr = doubleStarLeading.ReplaceAllString(expr, "\x00l")
	expr = strings.ReplaceAll(expr, "*", `[^/]*`)
	expr = doubleStarExpander.Replace(expr)
	expr = anchor(expr, trimmed)

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, false, err
	}
	return re, negate, nil
}

// escapeSpecialChars escapes regex metacharacters except '*', '?' and '/'.
func escapeSpecialChars(pattern string) string {
	for _, char := range `.+()|^$[]{}` {
		pattern = strings.ReplaceAll(pattern, string(char), `\`+string(char))
	}
	return pattern
}

// anchor makes the expression match a whole relative path. Patterns with a
// leading slash only match from the root; others match at any depth.
func anchor(expr, original string) string {
	if strings.HasSuffix(original, "/") {
		expr = strings.TrimSuffix(expr, "/") + "(/.*)?$"
	} else {
		expr += "(/.*)?$"
	}
	if strings.HasPrefix(original, "/") {
		return "^" + strings.TrimPrefix(expr, "/")
	}
	return "^(.*/)?" + expr
}
