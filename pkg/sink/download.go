// File: pkg/sink/download.go
package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// DefaultFileName is the name a combined document is saved under.
const DefaultFileName = "index.html"

// Download writes text to dir/name and returns the written path.
// An empty name means DefaultFileName.
func Download(dir, name, text string, logger *zap.Logger) (string, error) {
	if name == "" {
		name = DefaultFileName
	}
	if dir == "" {
		dir = "."
	}

	if err := ensureDirectory(dir, logger); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	target := filepath.Join(dir, name)
	if err := writeToFile(target, []byte(text), 0o644, logger); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	return target, nil
}

// ensureDirectory ensures a directory exists, creating it if necessary.
func ensureDirectory(path string, logger *zap.Logger) error {
	if err := os.MkdirAll(path, os.ModePerm); err != nil {
		logger.Error("Failed to create directory", zap.String("path", path), zap.Error(err))
		return err
	}
	logger.Debug("Ensured directory exists", zap.String("path", path))
	return nil
}

// writeToFile writes data to a file and logs the operation.
func writeToFile(path string, data []byte, perm os.FileMode, logger *zap.Logger) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		logger.Error("Failed to write file", zap.String("path", path), zap.Error(err))
		return err
	}
	logger.Debug("Successfully wrote file", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}
