package session

import (
	"context"
	"errors"
	"fmt"

	"codejoiner/pkg/combine"
	"codejoiner/pkg/remote"
	"codejoiner/pkg/sink"
	"codejoiner/pkg/source"
	"codejoiner/pkg/status"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// remoteReadLimit bounds concurrent reads of a remote folder.
const remoteReadLimit = 4

// LoadFiles collects local files and directories and stores the recognized
// ones in their slots. It returns the files stored, in the order applied.
func (s *Session) LoadFiles(ctx context.Context, paths []string) ([]source.Loaded, error) {
	loaded, collected, err := source.LoadPaths(ctx, paths, s.sourceOpts, s.logger)
	if err != nil {
		if errors.Is(err, source.ErrNoRecognizedFiles) {
			s.reporter.Report(status.Error, "Please upload only .html, .css, or .js files")
		} else {
			s.reporter.Report(status.Error, "Error loading files: "+err.Error())
		}
		return nil, err
	}

	s.reporter.Report(status.Info, fmt.Sprintf("Processing %d file(s)...", len(collected.Recognized)))

	s.mu.Lock()
	n := source.Apply(&s.set, loaded)
	s.mu.Unlock()

	s.reporter.Report(status.Success, fmt.Sprintf("Loaded %d file(s)", n))
	return loaded, nil
}

// Copy places the combined document on the clipboard.
func (s *Session) Copy() error {
	doc, err := s.requireDocument("copy")
	if err != nil {
		return err
	}
	if s.clipboard == nil {
		s.reporter.Report(status.Error, "Failed to copy to clipboard")
		return sink.ErrClipboardUnavailable
	}
	if err := s.clipboard.WriteText(doc); err != nil {
		s.logger.Error("Failed to copy to clipboard", zap.Error(err))
		s.reporter.Report(status.Error, "Failed to copy to clipboard")
		return err
	}
	s.reporter.Report(status.Success, "Code copied to clipboard!")
	return nil
}

// Download writes the combined document into dir and returns the written path.
func (s *Session) Download(dir string) (string, error) {
	doc, err := s.requireDocument("download")
	if err != nil {
		return "", err
	}
	written, err := sink.Download(dir, s.outputName, doc, s.logger)
	if err != nil {
		s.reporter.Report(status.Error, "Error downloading file: "+err.Error())
		return "", err
	}
	s.reporter.Report(status.Success, fmt.Sprintf("%s downloaded successfully!", s.outputName))
	return written, nil
}

// Preview shows the combined document in the sandboxed previewer and returns its URL.
// Earlier previews stay reachable until ClosePreview.
func (s *Session) Preview() (string, error) {
	doc, err := s.requireDocument("preview")
	if err != nil {
		return "", err
	}
	if s.previewer == nil {
		err := errors.New("no previewer configured")
		s.reporter.Report(status.Error, "Error opening preview: "+err.Error())
		return "", err
	}
	url, err := s.previewer.Open(doc)
	if err != nil {
		s.reporter.Report(status.Error, "Error opening preview: "+err.Error())
		return "", err
	}
	s.reporter.Report(status.Success, "Preview opened! You can see your combined code running live.")
	return url, nil
}

// ClosePreview discards the preview, if any.
func (s *Session) ClosePreview() error {
	if s.previewer == nil {
		return nil
	}
	return s.previewer.Close()
}

// LoadRemote asks for a folder in remote storage and loads every recognized
// file in it. Cancellation is reported as information and returned as an
// error matching remote.IsCancelled.
func (s *Session) LoadRemote(ctx context.Context) (int, error) {
	if s.remote == nil {
		s.reporter.Report(status.Error, "Error loading folder: "+ErrNoRemote.Error())
		return 0, ErrNoRemote
	}

	n, err := s.loadRemote(ctx)
	switch {
	case err == nil:
		return n, nil
	case remote.IsCancelled(err):
		s.reporter.Report(status.Info, "Folder selection cancelled by user.")
	case errors.Is(err, source.ErrNoRecognizedFiles):
		s.reporter.Report(status.Error, "No .html, .css, or .js files found in the selected folder.")
	default:
		s.logger.Error("Failed to load remote folder", zap.Error(err))
		s.reporter.Report(status.Error, "Error loading folder: "+err.Error())
	}
	return 0, err
}

func (s *Session) loadRemote(ctx context.Context) (int, error) {
	if err := s.ensureSignedIn(ctx, "Authentication required. Please sign in to access remote folders."); err != nil {
		return 0, err
	}

	s.reporter.Report(status.Info, "Please select a folder to load files from...")
	folder, err := s.remote.Picker.PickFolder(ctx)
	if err != nil {
		return 0, remote.MarkCancelled(err)
	}

	s.reporter.Report(status.Info, "Loading files from selected folder...")
	entries, err := s.remote.Storage.ListFiles(ctx, folder.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", folder.Path, err)
	}

	var wanted []remote.Entry
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		if _, ok := combine.KindFromName(e.Name); ok {
			wanted = append(wanted, e)
		}
	}
	if len(wanted) == 0 {
		return 0, source.ErrNoRecognizedFiles
	}

	loaded := make([]source.Loaded, len(wanted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(remoteReadLimit)
	for i, e := range wanted {
		i, e := i, e
		g.Go(func() error {
			data, err := s.remote.Storage.ReadFile(gctx, e.Path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", e.Path, err)
			}
			kind, _ := combine.KindFromName(e.Name)
			loaded[i] = source.Loaded{
				Path: e.Path,
				Kind: kind,
				Source: combine.Source{
					Name:    e.Name,
					Content: combine.DecodeText(data),
					Size:    int64(len(data)),
				},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	n := source.Apply(&s.set, loaded)
	s.mu.Unlock()

	s.logger.Info("Loaded files from remote folder", zap.String("folder", folder.Path), zap.Int("files", n))
	s.reporter.Report(status.Success, fmt.Sprintf("Loaded %d file(s) from folder: %q", n, folder.Path))
	return n, nil
}

// SaveRemote writes the combined document into a folder chosen in remote
// storage and returns the saved path.
func (s *Session) SaveRemote(ctx context.Context) (string, error) {
	doc, err := s.requireDocument("save")
	if err != nil {
		return "", err
	}
	if s.remote == nil {
		s.reporter.Report(status.Error, "Error saving file: "+ErrNoRemote.Error())
		return "", ErrNoRemote
	}

	saved, err := s.saveRemote(ctx, doc)
	switch {
	case err == nil:
		return saved, nil
	case remote.IsCancelled(err):
		s.reporter.Report(status.Info, "File save cancelled by user.")
	default:
		s.logger.Error("Failed to save to remote folder", zap.Error(err))
		s.reporter.Report(status.Error, "Error saving file: "+err.Error())
	}
	return "", err
}

func (s *Session) saveRemote(ctx context.Context, doc string) (string, error) {
	if err := s.ensureSignedIn(ctx, "Authentication required. Please sign in to save files."); err != nil {
		return "", err
	}

	s.reporter.Report(status.Info, "Please select a folder to save the combined file...")
	folder, err := s.remote.Picker.PickFolder(ctx)
	if err != nil {
		return "", remote.MarkCancelled(err)
	}

	s.reporter.Report(status.Info, "Saving combined file...")
	target := remote.Join(folder.Path, s.outputName)
	if err := s.remote.Storage.WriteFile(ctx, target, []byte(doc)); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}

	s.logger.Info("Saved combined file to remote folder", zap.String("path", target))
	s.reporter.Report(status.Success, fmt.Sprintf("Combined file saved successfully to: %q", target))
	return target, nil
}

func (s *Session) ensureSignedIn(ctx context.Context, prompt string) error {
	if s.remote.Auth == nil || s.remote.Auth.IsAuthenticated() {
		return nil
	}
	s.reporter.Report(status.Info, prompt)
	if err := s.remote.Auth.SignIn(ctx); err != nil {
		return fmt.Errorf("sign-in failed: %w", remote.MarkCancelled(err))
	}
	return nil
}
