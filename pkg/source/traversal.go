// File: pkg/source/traversal.go
package source

import (
	"io/fs"
	"os"
	"path/filepath"

	"codejoiner/pkg/combine"

	"go.uber.org/zap"
)

// Collect sorts the provided paths into recognized, unsupported, binary and oversized files.
// Explicitly named files are only checked for extension, content and size. Directories
// are walked recursively; inside them ignore patterns apply and files with other
// extensions are skipped silently.
func Collect(paths []string, gi IgnoreParser, opts Options, logger *zap.Logger) (Collected, error) {
	var collected Collected
	logger.Debug("Starting file collection", zap.Int("pathCount", len(paths)))

	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			logger.Warn("Failed to get absolute path", zap.String("path", path), zap.Error(err))
			continue
		}

		info, err := os.Stat(absPath)
		if err != nil {
			logger.Warn("Path does not exist or cannot be accessed", zap.String("path", absPath), zap.Error(err))
			continue
		}

		if info.IsDir() {
			c, err := collectDir(absPath, gi, opts, logger)
			if err != nil {
				logger.Warn("Failed to traverse directory", zap.String("dir", absPath), zap.Error(err))
				continue
			}
			collected.Recognized = append(collected.Recognized, c.Recognized...)
			collected.Binary = append(collected.Binary, c.Binary...)
			collected.Oversized = append(collected.Oversized, c.Oversized...)
			continue
		}

		if _, ok := combine.KindFromName(absPath); !ok {
			collected.Unsupported = append(collected.Unsupported, absPath)
			continue
		}
		classify(&collected, absPath, info, opts, logger)
	}

	logger.Debug("Completed file collection",
		zap.Int("recognized", len(collected.Recognized)),
		zap.Int("unsupported", len(collected.Unsupported)),
		zap.Int("binary", len(collected.Binary)),
		zap.Int("oversized", len(collected.Oversized)))
	return collected, nil
}

// collectDir walks a directory and collects recognized files that are not ignored.
func collectDir(parentDir string, gi IgnoreParser, opts Options, logger *zap.Logger) (Collected, error) {
	var collected Collected

	err := filepath.WalkDir(parentDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Error accessing path during traversal", zap.String("path", path), zap.Error(err))
			return nil // Skip paths that cause errors
		}
		if path == parentDir {
			return nil
		}

		relPath, _ := filepath.Rel(parentDir, path)
		if gi != nil && gi.MatchesPath(relPath) {
			if opts.Verbose {
				logger.Debug("Skipping ignored path", zap.String("path", relPath))
			}
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := combine.KindFromName(path); !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logger.Warn("Failed to get file info during traversal", zap.String("filePath", path), zap.Error(err))
			return nil
		}
		classify(&collected, path, info, opts, logger)
		return nil
	})
	return collected, err
}

// classify places a recognized file into the right bucket after size and content checks.
func classify(collected *Collected, path string, info fs.FileInfo, opts Options, logger *zap.Logger) {
	if opts.MaxFileSizeKB > 0 && info.Size() > int64(opts.MaxFileSizeKB)*1024 {
		if opts.Verbose {
			logger.Debug("File exceeds size limit",
				zap.String("file", path),
				zap.Int64("sizeBytes", info.Size()),
				zap.Int("maxSizeKB", opts.MaxFileSizeKB))
		}
		collected.Oversized = append(collected.Oversized, path)
		return
	}

	isBinary, err := isBinaryFile(path)
	if err != nil {
		logger.Error("Failed to check if file is binary", zap.String("file", path), zap.Error(err))
		return
	}
	if isBinary {
		if opts.Verbose {
			logger.Debug("File is binary", zap.String("file", path))
		}
		collected.Binary = append(collected.Binary, path)
		return
	}

	collected.Recognized = append(collected.Recognized, path)
}
