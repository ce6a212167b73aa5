// Package fileutil provides file and path utility functions.
package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
)

// maxFilenameLength caps sanitized download names.
const maxFilenameLength = 180

// unsafeFilenameChars matches everything outside a conservative allow-list.
var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._ -]+`)

// ValidateExtension checks that the extension is safe for use in file names.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") || strings.Contains(extension, "..") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// Ext returns the lower-cased extension of name without the leading dot.
func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SanitizeFilename replaces characters that are unsafe in a
// Content-Disposition header or on common filesystems.
// Returns fallback when nothing usable remains.
func SanitizeFilename(name, fallback string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return fallback
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if len(name) > maxFilenameLength {
		name = name[:maxFilenameLength]
	}
	if strings.Trim(name, "._ ") == "" {
		return fallback
	}
	return name
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsFilePath returns true if the string looks like a file path rather than a name.
// A string containing path separators (/, \) is treated as a path.
//
// Examples:
//   - "production" -> false (name)
//   - "./office2pdf.yaml" -> true (relative path)
//   - "/etc/office2pdf/config.yaml" -> true (absolute)
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}
