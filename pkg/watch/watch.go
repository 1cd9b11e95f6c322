// Package watch re-joins a session whenever one of its source files changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codejoiner/pkg/session"
	"codejoiner/pkg/source"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a file must stay quiet before it is reloaded.
const DefaultDebounce = 100 * time.Millisecond

// JoinFunc receives every document produced after a change.
type JoinFunc func(doc string) error

// Option configures optional Watcher behavior.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// Watcher reloads changed source files into a session and re-joins it.
// The session is only touched from Run's goroutine.
type Watcher struct {
	fsw      *fsnotify.Watcher
	sess     *session.Session
	onJoin   JoinFunc
	files    map[string]bool
	pending  map[string]time.Time
	debounce time.Duration
	logger   *zap.Logger
}

// New watches files, which must already be loaded into sess. Their parent
// directories are watched so editors that save by rename are followed.
func New(sess *session.Session, files []string, onJoin JoinFunc, logger *zap.Logger, opts ...Option) (*Watcher, error) {
	if len(files) == 0 {
		return nil, errors.New("no files to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		sess:     sess,
		onJoin:   onJoin,
		files:    make(map[string]bool, len(files)),
		pending:  make(map[string]time.Time),
		debounce: DefaultDebounce,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logger.Debug("Watching directory", zap.String("dir", dir))
	}
	return w, nil
}

// Run processes file events until ctx is done, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", zap.Error(err))

		case <-ticker.C:
			if err := w.flush(time.Now()); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if !w.files[path] {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	w.logger.Debug("Source changed", zap.String("path", path), zap.Stringer("op", event.Op))
	w.pending[path] = time.Now()
}

// flush reloads files that have been quiet for the debounce window and re-joins once.
func (w *Watcher) flush(now time.Time) error {
	reloaded := 0
	for path, at := range w.pending {
		if now.Sub(at) < w.debounce {
			continue
		}
		delete(w.pending, path)

		loaded, err := source.ReadSource(path, w.logger)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				w.logger.Debug("Changed file disappeared, keeping previous content", zap.String("path", path))
				continue
			}
			w.logger.Error("Failed to reload source", zap.String("path", path), zap.Error(err))
			continue
		}
		w.sess.SetSource(loaded.Kind, loaded.Source)
		reloaded++
	}
	if reloaded == 0 {
		return nil
	}

	doc, err := w.sess.Join()
	if err != nil {
		// The session already reported it; keep watching for a fix.
		return nil
	}
	if w.onJoin == nil {
		return nil
	}
	if err := w.onJoin(doc); err != nil {
		return fmt.Errorf("failed to publish joined document: %w", err)
	}
	return nil
}
