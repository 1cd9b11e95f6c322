// Package sink holds the destinations a combined document can be sent to.
package sink

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// ErrClipboardUnavailable is returned when neither the system clipboard nor the
// terminal fallback can take the text.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// Clipboard writes text to the system clipboard, falling back to an OSC 52
// escape sequence on a terminal when no clipboard utility is present.
type Clipboard struct {
	write       func(string) error
	unsupported bool
	fallback    io.Writer
	fallbackOK  bool
	logger      *zap.Logger
}

// NewClipboard returns a Clipboard whose fallback writes to tty when it is a terminal.
func NewClipboard(tty *os.File, logger *zap.Logger) *Clipboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Clipboard{
		write:       clipboard.WriteAll,
		unsupported: clipboard.Unsupported,
		logger:      logger,
	}
	if tty != nil {
		c.fallback = tty
		c.fallbackOK = term.IsTerminal(int(tty.Fd()))
	}
	return c
}

// WriteText places text on the clipboard.
func (c *Clipboard) WriteText(text string) error {
	if !c.unsupported {
		err := c.write(text)
		if err == nil {
			c.logger.Debug("Copied to system clipboard", zap.Int("bytes", len(text)))
			return nil
		}
		c.logger.Warn("System clipboard write failed, trying terminal fallback", zap.Error(err))
	}

	if c.fallback == nil || !c.fallbackOK {
		return ErrClipboardUnavailable
	}
	if _, err := io.WriteString(c.fallback, osc52(text)); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
	}
	c.logger.Debug("Copied through terminal escape sequence", zap.Int("bytes", len(text)))
	return nil
}

// osc52 wraps text in the terminal clipboard escape sequence.
func osc52(text string) string {
	return "\x1b]52;c;" + base64.StdEncoding.EncodeToString([]byte(text)) + "\a"
}
