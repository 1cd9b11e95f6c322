package source

import (
	"fmt"
	"os"
	"path/filepath"

	"codejoiner/pkg/combine"

	"go.uber.org/zap"
)

// ReadSource reads and decodes a single recognized file.
func ReadSource(filePath string, logger *zap.Logger) (Loaded, error) {
	kind, ok := combine.KindFromName(filePath)
	if !ok {
		return Loaded{}, &UnsupportedError{Files: []string{filePath}}
	}

	fileBytes, err := os.ReadFile(filePath)
	if err != nil {
		return Loaded{}, fmt.Errorf("error reading file %s: %w", filePath, err)
	}

	logger.Debug("Read source file",
		zap.String("filePath", filePath),
		zap.Stringer("kind", kind),
		zap.Int("contentSizeBytes", len(fileBytes)))

	return Loaded{
		Path: filePath,
		Kind: kind,
		Source: combine.Source{
			Name:    filepath.Base(filePath),
			Content: combine.DecodeText(fileBytes),
			Size:    int64(len(fileBytes)),
		},
	}, nil
}
