// File: pkg/remote/sqlite.go
package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// SQLiteStore is a Storage kept in a single SQLite database file.
// Folders exist implicitly as prefixes of stored file paths.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens or creates the database at dsn and ensures the schema exists.
func OpenSQLite(dsn string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			file_id TEXT NOT NULL,
			content BLOB NOT NULL,
			size INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListFiles lists the files and implicit sub-folders directly inside folder.
func (s *SQLiteStore) ListFiles(ctx context.Context, folder string) ([]Entry, error) {
	folder = CleanPath(folder)
	prefix := strings.TrimSuffix(folder, "/") + "/"

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, size FROM files WHERE substr(path, 1, length(?)) = ? ORDER BY path`,
		prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folder, err)
	}
	defer rows.Close()

	seenDirs := map[string]bool{}
	var entries []Entry
	for rows.Next() {
		var p string
		var size int64
		if err := rows.Scan(&p, &size); err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}

		rest := strings.TrimPrefix(p, prefix)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			dir := rest[:i]
			if !seenDirs[dir] {
				seenDirs[dir] = true
				entries = append(entries, Entry{Name: dir, Path: Join(folder, dir), IsDir: true})
			}
			continue
		}
		entries = append(entries, Entry{Name: rest, Path: p, Size: size})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file rows: %w", err)
	}

	if len(entries) == 0 && folder != "/" {
		return nil, fmt.Errorf("list %s: %w", folder, ErrNotFound)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// ReadFile returns the content stored at p.
func (s *SQLiteStore) ReadFile(ctx context.Context, p string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx, `SELECT content FROM files WHERE path = ?`, CleanPath(p)).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read %s: %w", p, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return content, nil
}

// WriteFile upserts the file at p. An existing file keeps its id.
func (s *SQLiteStore) WriteFile(ctx context.Context, p string, data []byte) error {
	clean := CleanPath(p)
	if clean == "/" {
		return fmt.Errorf("write %s: path names a folder", p)
	}
	if data == nil {
		data = []byte{}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (path, file_id, content, size, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			content = excluded.content,
			size = excluded.size,
			updated_at = excluded.updated_at`,
		clean,
		ulid.Make().String(),
		data,
		len(data),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	s.logger.Debug("Stored file", zap.String("path", clean), zap.Int("bytes", len(data)))
	return nil
}

// FileID returns the stable id assigned to the file at p when it was first written.
func (s *SQLiteStore) FileID(ctx context.Context, p string) (ulid.ULID, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT file_id FROM files WHERE path = ?`, CleanPath(p)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ulid.ULID{}, fmt.Errorf("file id %s: %w", p, ErrNotFound)
	}
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("file id %s: %w", p, err)
	}
	return ulid.Parse(id)
}
