// File: pkg/source/execute.go
package source

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// LoadPaths runs the full local pipeline: ignore files, collection and decoding.
// When the batch contains nothing usable it fails with a SkippedError if
// recognized files were left out, and with ErrNoRecognizedFiles (possibly
// wrapped in an UnsupportedError) otherwise.
func LoadPaths(ctx context.Context, paths []string, opts Options, logger *zap.Logger) ([]Loaded, Collected, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, Collected{}, fmt.Errorf("failed to get current directory: %w", err)
	}

	gi, err := LoadIgnoreFiles(opts.GlobalIgnoreFile, wd, logger)
	if err != nil {
		return nil, Collected{}, fmt.Errorf("failed to load ignore patterns: %w", err)
	}
	if len(opts.IgnorePatterns) > 0 {
		gi.CompileIgnoreLines(opts.IgnorePatterns...)
		logger.Debug("Added command-line ignore patterns", zap.Int("count", len(opts.IgnorePatterns)))
	}

	collected, err := Collect(paths, gi, opts, logger)
	if err != nil {
		return nil, collected, fmt.Errorf("failed to collect files: %w", err)
	}

	if len(collected.Binary) > 0 {
		logger.Warn("Detected binary files. These files are not included.",
			zap.Int("binaryFileCount", len(collected.Binary)),
			zap.Strings("binaryFiles", collected.Binary))
	}
	if len(collected.Oversized) > 0 {
		logger.Warn("Skipped files above the size limit",
			zap.Int("maxSizeKB", opts.MaxFileSizeKB),
			zap.Strings("files", collected.Oversized))
	}

	if len(collected.Recognized) == 0 {
		if len(collected.Oversized) > 0 || len(collected.Binary) > 0 {
			return nil, collected, &SkippedError{
				Oversized: collected.Oversized,
				Binary:    collected.Binary,
				MaxSizeKB: opts.MaxFileSizeKB,
			}
		}
		if len(collected.Unsupported) > 0 {
			return nil, collected, &UnsupportedError{Files: collected.Unsupported}
		}
		return nil, collected, ErrNoRecognizedFiles
	}
	if len(collected.Unsupported) > 0 {
		logger.Warn("Ignoring unsupported files", zap.Strings("files", collected.Unsupported))
	}

	loaded, err := Load(ctx, collected.Recognized, opts.MaxWorkers, logger)
	if err != nil && len(loaded) == 0 {
		return nil, collected, fmt.Errorf("failed to read files: %w", err)
	}
	if err != nil {
		logger.Warn("Some files could not be read", zap.Error(err))
	}
	return loaded, collected, nil
}
