// File: pkg/source/binary.go
package source

import (
	"bytes"
	"errors"
	"io"
	"os"
)

// isBinaryFile checks if a file is likely to be binary by reading its first few bytes
// and checking for null bytes or a high ratio of non-printable characters
func isBinaryFile(filePath string) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return isBinaryContent(buffer[:n]), nil
}

// isBinaryContent applies the binary heuristic to a content sample.
func isBinaryContent(sample []byte) bool {
	if len(sample) == 0 {
		return false // Empty files are text
	}
	if bytes.Contains(sample, []byte{0}) {
		return true
	}

	nonPrintable := 0
	for _, b := range sample {
		if !isPrintable(b) {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(sample)) > 0.3
}

// isPrintable checks if a byte is printable ASCII, whitespace, or part of a UTF-8 sequence
func isPrintable(b byte) bool {
	return (b >= 32 && b <= 126) || b == '\n' || b == '\r' || b == '\t' || b >= 0x80
}
