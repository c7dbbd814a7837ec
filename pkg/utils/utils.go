// Package utils provides small helpers shared across skillz: line-numbered
// content rendering, binary detection, home directory expansion and the
// allowed-domain filter used by the web skills.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ContentWithLineNumber formats a slice of strings by prefixing each line with its line number
// starting from the given offset, with padding for alignment.
func ContentWithLineNumber(lines []string, offset int) string {
	var result strings.Builder
	maxLineWidth := 1

	if len(lines) > 0 {
		maxLineNum := offset + len(lines) - 1
		maxLineWidth = len(strconv.Itoa(maxLineNum))
	}

	for i, line := range lines {
		fmt.Fprintf(&result, "%*d: %s\n", maxLineWidth, offset+i, line)
	}

	return result.String()
}

// IsBinaryFile checks if a file is binary by reading the first 512 bytes
// and looking for NULL bytes.
func IsBinaryFile(filePath string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil {
		return false
	}

	return IsBinaryContent(buf[:n])
}

// IsBinaryContent reports whether the sample contains a NULL byte.
func IsBinaryContent(sample []byte) bool {
	for _, b := range sample {
		if b == 0 {
			return true
		}
	}
	return false
}

// ExpandHome replaces a leading "~/" with the user's home directory.
// The path is returned unchanged if the home directory cannot be resolved.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
