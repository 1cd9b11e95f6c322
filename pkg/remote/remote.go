// Package remote defines the folder storage collaborators used to load sources
// from, and save combined documents to, a storage the user signs in to.
package remote

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrCancelled marks a step the user aborted, such as sign-in or folder selection.
	ErrCancelled = errors.New("cancelled by user")
	// ErrNotFound is returned for paths that do not exist in the storage.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the storage rejects the credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// IsCancelled reports whether err represents a user cancellation rather than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// MarkCancelled wraps err in ErrCancelled when its message says the user
// cancelled. Sign-in and folder pickers outside our control signal
// cancellation only through text, so apply it to their errors before any
// paths are added to the message.
func MarkCancelled(err error) error {
	if err == nil || IsCancelled(err) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "canceled") || strings.Contains(msg, "cancelled") {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return err
}

// Entry describes one item in a folder listing.
type Entry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// Folder is a folder chosen by the user.
type Folder struct {
	Path string
	Name string
}

// Authenticator checks and establishes a signed-in session.
type Authenticator interface {
	IsAuthenticated() bool
	SignIn(ctx context.Context) error
}

// FolderPicker asks the user for a folder. It returns ErrCancelled when the user backs out.
type FolderPicker interface {
	PickFolder(ctx context.Context) (Folder, error)
}

// Storage reads and writes files by slash-separated path.
type Storage interface {
	ListFiles(ctx context.Context, folder string) ([]Entry, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
}

// Backend bundles the collaborators a session needs for remote load and save.
type Backend struct {
	Auth    Authenticator
	Picker  FolderPicker
	Storage Storage
}

// Open is an Authenticator for storages that need no sign-in.
type Open struct{}

// IsAuthenticated always reports true.
func (Open) IsAuthenticated() bool { return true }

// SignIn is a no-op.
func (Open) SignIn(context.Context) error { return nil }

// StaticPicker returns a fixed folder. An empty folder counts as a cancelled selection.
type StaticPicker struct {
	Folder string
}

// PickFolder returns the configured folder.
func (p StaticPicker) PickFolder(ctx context.Context) (Folder, error) {
	if err := ctx.Err(); err != nil {
		return Folder{}, err
	}
	if strings.TrimSpace(p.Folder) == "" {
		return Folder{}, ErrCancelled
	}
	return NewFolder(p.Folder), nil
}

// NewFolder builds a Folder from a user-supplied path.
func NewFolder(p string) Folder {
	clean := CleanPath(p)
	name := path.Base(clean)
	if clean == "/" {
		name = "/"
	}
	return Folder{Path: clean, Name: name}
}

// CleanPath normalizes p to an absolute slash-separated path without "..".
func CleanPath(p string) string {
	return path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
}

// Join returns the path of name inside folder.
func Join(folder, name string) string {
	return CleanPath(path.Join(folder, name))
}
