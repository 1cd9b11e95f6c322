package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"codejoiner/cmd"
	"codejoiner/pkg/logging"

	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	err := cmd.Execute()
	logger := logging.Logger
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		logger.Debug("codejoiner execution failed", zap.Error(err))
	}

	// Check if stderr is a terminal or a regular file before attempting to sync.
	if term.IsTerminal(int(os.Stderr.Fd())) || isRegularFile(os.Stderr) {
		if syncErr := logger.Sync(); syncErr != nil {
			lowerErr := strings.ToLower(syncErr.Error())
			if !strings.Contains(lowerErr, "invalid argument") {
				log.Printf("Logger sync failed: %v", syncErr)
			}
		}
	}

	if err != nil {
		os.Exit(1)
	}
}

// isRegularFile checks if the given file is a regular file.
func isRegularFile(f *os.File) bool {
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return fileInfo.Mode().IsRegular()
}
