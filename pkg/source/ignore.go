// File: pkg/source/ignore.go
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// IgnoreFileName is the per-directory ignore file consulted while collecting sources.
const IgnoreFileName = ".joinignore"

// IgnoreParser defines the interface for matching paths against ignore patterns.
type IgnoreParser interface {
	MatchesPath(path string) bool
	MatchesPathWithPattern(path string) (bool, *IgnorePattern)
}

// IgnorePattern encapsulates a compiled regular expression pattern,
// a negation flag, and metadata about the pattern's origin.
type IgnorePattern struct {
	Pattern *regexp.Regexp // Compiled regular expression for the pattern.
	Negate  bool           // Indicates if the pattern is a negation (starts with '!').
	LineNo  int            // Line number in the source (1-based).
	Line    string         // Original pattern line.
	Origin  string         // File the pattern came from, empty for command-line patterns.
}

// Ignore represents a collection of ignore patterns. Later patterns win.
type Ignore struct {
	patterns []*IgnorePattern
	logger   *zap.Logger
}

// NewIgnore initializes an Ignore instance with a provided logger.
func NewIgnore(logger *zap.Logger) *Ignore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ignore{
		patterns: []*IgnorePattern{},
		logger:   logger,
	}
}

// LoadIgnoreFiles loads patterns from the global ignore file, then from every
// .joinignore between the filesystem root and startDir, root first, so that
// files closer to startDir take precedence.
func LoadIgnoreFiles(globalPath, startDir string, logger *zap.Logger) (*Ignore, error) {
	gi := NewIgnore(logger)

	if globalPath != "" {
		absGlobalPath, err := filepath.Abs(globalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve global ignore file: %w", err)
		}
		if err := gi.CompileIgnoreFile(absGlobalPath); err != nil {
			gi.logger.Warn("Failed to load global ignore file", zap.String("file", absGlobalPath), zap.Error(err))
		}
	}

	currentDir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve start directory: %w", err)
	}

	var ignoreFiles []string
	for {
		ignoreFilePath := filepath.Join(currentDir, IgnoreFileName)
		if _, err := os.Stat(ignoreFilePath); err == nil {
			ignoreFiles = append([]string{ignoreFilePath}, ignoreFiles...) // Prepend to ensure root patterns are loaded first
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	for _, file := range ignoreFiles {
		if err := gi.CompileIgnoreFile(file); err != nil {
			gi.logger.Warn("Failed to compile ignore file", zap.String("file", file), zap.Error(err))
			continue
		}
		gi.logger.Debug("Loaded ignore file", zap.String("file", file))
	}

	gi.logger.Debug("Finished loading ignore files",
		zap.Int("files", len(ignoreFiles)),
		zap.Int("totalPatterns", len(gi.patterns)))
	return gi, nil
}

// CompileIgnoreLines compiles command-line patterns into the Ignore instance.
func (gi *Ignore) CompileIgnoreLines(lines ...string) {
	gi.compile("", lines)
}

// CompileIgnoreFile reads an ignore file and compiles its lines. A missing file is not an error.
func (gi *Ignore) CompileIgnoreFile(filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			gi.logger.Debug("Ignore file does not exist and will be skipped", zap.String("filePath", filePath))
			return nil
		}
		return fmt.Errorf("failed to read ignore file %s: %w", filePath, err)
	}

	gi.compile(filePath, strings.Split(string(content), "\n"))
	return nil
}

func (gi *Ignore) compile(origin string, lines []string) {
	for i, line := range lines {
		pattern, negate, err := compilePattern(line)
		if err != nil {
			gi.logger.Error("Invalid ignore pattern",
				zap.String("pattern", line),
				zap.String("origin", origin),
				zap.Int("lineNo", i+1),
				zap.Error(err))
			continue
		}
		if pattern == nil {
			continue
		}

		ip := &IgnorePattern{
			Pattern: pattern,
			Negate:  negate,
			LineNo:  i + 1,
			Line:    line,
			Origin:  origin,
		}
		gi.patterns = append(gi.patterns, ip)
		gi.logger.Debug("Compiled ignore pattern",
			zap.String("origin", origin),
			zap.Int("lineNo", ip.LineNo),
			zap.String("pattern", ip.Line),
			zap.Bool("negate", ip.Negate))
	}
}

// Len returns the number of compiled patterns.
func (gi *Ignore) Len() int {
	return len(gi.patterns)
}

// MatchesPath checks if the given relative path matches any of the ignore patterns.
func (gi *Ignore) MatchesPath(path string) bool {
	matches, _ := gi.MatchesPathWithPattern(path)
	return matches
}

// MatchesPathWithPattern checks if the given relative path matches any ignore pattern.
// The last matching pattern decides; a negated pattern re-includes the path.
func (gi *Ignore) MatchesPathWithPattern(path string) (bool, *IgnorePattern) {
	normalizedPath := normalizePath(path)

	matched := false
	var matchedPattern *IgnorePattern
	for _, pattern := range gi.patterns {
		if pattern.Pattern.MatchString(normalizedPath) {
			matched = !pattern.Negate
			matchedPattern = pattern
		}
	}
	return matched, matchedPattern
}

// normalizePath converts a path to the slash-separated relative form patterns are matched against.
func normalizePath(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")
	return strings.TrimSuffix(path, "/")
}
