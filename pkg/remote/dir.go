// File: pkg/remote/dir.go
package remote

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// DirStore is a Storage rooted at a local directory. Paths cannot escape the root.
type DirStore struct {
	root   string
	logger *zap.Logger
}

// NewDirStore returns a DirStore rooted at root, creating the directory if needed.
func NewDirStore(root string, logger *zap.Logger) (*DirStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &DirStore{root: abs, logger: logger}, nil
}

func (s *DirStore) resolve(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(CleanPath(p)))
}

// ListFiles lists the direct children of folder, sorted by name.
func (s *DirStore) ListFiles(ctx context.Context, folder string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(s.resolve(folder))
	if err != nil {
		return nil, wrapFSError("list "+folder, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, d := range dirEntries {
		entry := Entry{
			Name:  d.Name(),
			Path:  Join(folder, d.Name()),
			IsDir: d.IsDir(),
		}
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				entry.Size = info.Size()
			}
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	s.logger.Debug("Listed folder", zap.String("folder", folder), zap.Int("entries", len(entries)))
	return entries, nil
}

// ReadFile returns the content of the file at p.
func (s *DirStore) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.resolve(p))
	if err != nil {
		return nil, wrapFSError("read "+p, err)
	}
	return data, nil
}

// WriteFile stores data at p, creating parent folders.
func (s *DirStore) WriteFile(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := s.resolve(p)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create folder for %s: %w", p, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	s.logger.Debug("Wrote file", zap.String("path", CleanPath(p)), zap.Int("bytes", len(data)))
	return nil
}

func wrapFSError(op string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
