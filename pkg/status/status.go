// Package status carries user-visible feedback from actions to whatever front-end is listening.
package status

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SuccessTTL is how long a success message stays visible.
const SuccessTTL = 5 * time.Second

// Level is the severity of a status message.
type Level int

const (
	Info Level = iota
	Success
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Message is one status update.
type Message struct {
	Text  string
	Level Level
	At    time.Time
}

// Reporter accepts status messages.
type Reporter interface {
	Report(level Level, text string)
}

// LogReporter writes every message to a zap logger.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter returns a Reporter that logs messages.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report logs errors at warn level and everything else at debug level, so
// front-ends that already show the message do not repeat it in production logs.
func (r *LogReporter) Report(level Level, text string) {
	switch level {
	case Error:
		r.logger.Warn(text, zap.Stringer("status", level))
	default:
		r.logger.Debug(text, zap.Stringer("status", level))
	}
}

// WriterReporter prints one line per message, for command-line use.
type WriterReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterReporter returns a Reporter that prints to w.
func NewWriterReporter(w io.Writer) *WriterReporter {
	return &WriterReporter{w: w}
}

// Report prints "level: text".
func (r *WriterReporter) Report(level Level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s: %s\n", level, text)
}

// Board keeps the latest message. Success messages expire after SuccessTTL;
// other messages persist until replaced.
type Board struct {
	mu      sync.Mutex
	current *Message
	now     func() time.Time
}

// NewBoard returns an empty Board using the wall clock.
func NewBoard() *Board {
	return &Board{now: time.Now}
}

// Report replaces the current message.
func (b *Board) Report(level Level, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = &Message{Text: text, Level: level, At: b.now()}
}

// Current returns the visible message, if any.
func (b *Board) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return Message{}, false
	}
	if b.current.Level == Success && b.now().Sub(b.current.At) >= SuccessTTL {
		b.current = nil
		return Message{}, false
	}
	return *b.current, true
}

// Multi fans a message out to several reporters.
type Multi []Reporter

// Report forwards the message to every reporter.
func (m Multi) Report(level Level, text string) {
	for _, r := range m {
		r.Report(level, text)
	}
}

// Discard drops every message.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Report(Level, string) {}
