// Package source collects and decodes the local files that feed a combination.
package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"codejoiner/pkg/combine"
)

// ErrNoRecognizedFiles is returned when a batch contains nothing usable.
var ErrNoRecognizedFiles = errors.New("please upload only .html, .css, or .js files")

// Options holds the configuration for collecting source files.
type Options struct {
	GlobalIgnoreFile string   // Optional path to a global ignore file.
	IgnorePatterns   []string // Additional ignore patterns provided via command-line arguments.
	MaxFileSizeKB    int      // Files larger than this are skipped; zero disables the limit.
	MaxWorkers       int      // Number of concurrent decoders; zero means one per CPU.
	Verbose          bool     // If true, logs every skipped file.
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxWorkers: 4,
	}
}

// Collected contains categorized lists of files discovered during collection.
type Collected struct {
	Recognized  []string // Files with a recognized extension, in discovery order.
	Unsupported []string // Files whose extension is not .html, .css or .js.
	Binary      []string // Files detected as binary.
	Oversized   []string // Files above the size limit.
}

// Loaded is one decoded source file.
type Loaded struct {
	Path   string
	Kind   combine.Kind
	Source combine.Source
}

// UnsupportedError reports files that were rejected because of their extension.
type UnsupportedError struct {
	Files []string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%d unsupported file(s): %v", len(e.Files), e.Files)
}

// Unwrap lets callers treat an all-unsupported batch as an empty selection.
func (e *UnsupportedError) Unwrap() error {
	return ErrNoRecognizedFiles
}

// SkippedError reports a batch whose recognized files were all left out by
// the size limit or the binary content check.
type SkippedError struct {
	Oversized []string
	Binary    []string
	MaxSizeKB int
}

func (e *SkippedError) Error() string {
	reasons := make([]string, 0, len(e.Oversized)+len(e.Binary))
	for _, f := range e.Oversized {
		reasons = append(reasons, fmt.Sprintf("%s exceeds the %d KB limit", filepath.Base(f), e.MaxSizeKB))
	}
	for _, f := range e.Binary {
		reasons = append(reasons, fmt.Sprintf("%s is not a text file", filepath.Base(f)))
	}
	return strings.Join(reasons, "; ")
}

// Apply stores every loaded file in its slot, in order, so a later file of
// the same kind replaces an earlier one. It returns the number of files applied.
func Apply(set *combine.SourceSet, loaded []Loaded) int {
	for _, l := range loaded {
		set.Set(l.Kind, l.Source)
	}
	return len(loaded)
}
