// Package session owns the state of one joining session: the loaded sources,
// the last combined document, and every user action on them.
package session

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"

	"codejoiner/pkg/combine"
	"codejoiner/pkg/remote"
	"codejoiner/pkg/sink"
	"codejoiner/pkg/source"
	"codejoiner/pkg/status"

	"go.uber.org/zap"
)

var (
	// ErrNoCode is returned by export actions invoked before anything was joined.
	ErrNoCode = errors.New("no combined document, join files first")
	// ErrNoRemote is returned by remote actions when no storage is configured.
	ErrNoRemote = errors.New("remote storage is not configured")
)

// TextWriter receives text, typically the clipboard.
type TextWriter interface {
	WriteText(text string) error
}

// Previewer shows a document somewhere isolated and releases it on Close.
type Previewer interface {
	Open(doc string) (string, error)
	Close() error
}

// Option configures optional Session behavior.
type Option func(*Session)

// WithClipboard sets the clipboard sink.
func WithClipboard(c TextWriter) Option {
	return func(s *Session) {
		s.clipboard = c
	}
}

// WithPreviewer sets the preview sink.
func WithPreviewer(p Previewer) Option {
	return func(s *Session) {
		s.previewer = p
	}
}

// WithRemote sets the remote storage collaborators.
func WithRemote(b *remote.Backend) Option {
	return func(s *Session) {
		s.remote = b
	}
}

// WithSourceOptions sets how local files are collected.
func WithSourceOptions(opts source.Options) Option {
	return func(s *Session) {
		s.sourceOpts = opts
	}
}

// WithOutputName sets the file name used for downloads and remote saves.
func WithOutputName(name string) Option {
	return func(s *Session) {
		if name != "" {
			s.outputName = name
		}
	}
}

// Session is the controller for one user's sources and combined document.
// State changes are serialized by a mutex; collaborator calls run outside it.
type Session struct {
	mu  sync.Mutex
	set combine.SourceSet
	doc string

	reporter   status.Reporter
	logger     *zap.Logger
	clipboard  TextWriter
	previewer  Previewer
	remote     *remote.Backend
	sourceOpts source.Options
	outputName string
}

// New returns an empty Session.
func New(reporter status.Reporter, logger *zap.Logger, opts ...Option) *Session {
	if reporter == nil {
		reporter = status.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		reporter:   reporter,
		logger:     logger,
		sourceOpts: source.DefaultOptions(),
		outputName: sink.DefaultFileName,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FileInfo describes an occupied slot for display.
type FileInfo struct {
	Kind     combine.Kind
	Name     string
	Size     int64
	SizeText string
}

// Files lists the occupied slots in markup, style, script order.
func (s *Session) Files() []FileInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	var files []FileInfo
	for _, e := range s.set.Sources() {
		files = append(files, FileInfo{
			Kind:     e.Kind,
			Name:     e.Source.Name,
			Size:     e.Source.Size,
			SizeText: FormatFileSize(e.Source.Size),
		})
	}
	return files
}

// Sources returns a copy of the current SourceSet.
func (s *Session) Sources() combine.SourceSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySet(s.set)
}

// HasFiles reports whether any slot is occupied.
func (s *Session) HasFiles() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.set.Empty()
}

// Document returns the last combined document, empty if nothing was joined.
func (s *Session) Document() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// SetSource stores src in the slot for kind, replacing the previous occupant.
func (s *Session) SetSource(kind combine.Kind, src combine.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set.Set(kind, src)
}

// AddSource stores content under the slot matching name's extension.
func (s *Session) AddSource(name, content string) error {
	kind, ok := combine.KindFromName(name)
	if !ok {
		s.reporter.Report(status.Error, "Please upload only .html, .css, or .js files")
		return &source.UnsupportedError{Files: []string{name}}
	}
	s.SetSource(kind, combine.Source{Name: name, Content: content, Size: int64(len(content))})
	return nil
}

// Remove empties one slot.
func (s *Session) Remove(kind combine.Kind) {
	s.mu.Lock()
	removed := s.set.Get(kind)
	s.set.Remove(kind)
	s.mu.Unlock()

	if removed != nil {
		s.reporter.Report(status.Info, fmt.Sprintf("Removed %s.", removed.Name))
	}
}

// Clear empties every slot and drops the combined document.
func (s *Session) Clear() {
	s.mu.Lock()
	s.set.Clear()
	s.doc = ""
	s.mu.Unlock()

	s.reporter.Report(status.Info, "All files cleared.")
}

// Join combines the current sources and keeps the result as the session's document.
func (s *Session) Join() (string, error) {
	s.reporter.Report(status.Info, "Combining files...")

	set := s.Sources()
	doc, err := combine.Combine(set)
	if err != nil {
		s.logger.Error("Failed to combine files", zap.Error(err))
		s.reporter.Report(status.Error, "Error combining files: "+err.Error())
		return "", err
	}

	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	s.logger.Debug("Combined files", zap.Int("sources", len(set.Sources())), zap.Int("bytes", len(doc)))
	s.reporter.Report(status.Success, "Files successfully combined into single HTML file!")
	return doc, nil
}

// requireDocument reports the "no code" error for action when nothing was joined yet.
func (s *Session) requireDocument(action string) (string, error) {
	doc := s.Document()
	if doc == "" {
		s.reporter.Report(status.Error, fmt.Sprintf("No code to %s. Please join files first.", action))
		return "", ErrNoCode
	}
	return doc, nil
}

func copySet(set combine.SourceSet) combine.SourceSet {
	var out combine.SourceSet
	for _, e := range set.Sources() {
		out.Set(e.Kind, e.Source)
	}
	return out
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with 1024-based units and at most two decimals.
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	v := float64(bytes)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}
