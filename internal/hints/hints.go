// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-office2pdf/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForEngineNotFound returns hints for a missing LibreOffice binary.
func ForEngineNotFound() string {
	var hints []string

	if os.Getenv("OFFICE2PDF_ENGINE_BINARY") == "" {
		hints = append(hints, "set OFFICE2PDF_ENGINE_BINARY to the soffice path")
	}
	if IsInContainer() {
		hints = append(hints, "install libreoffice-impress, libreoffice-writer and libreoffice-calc in the image")
	} else {
		hints = append(hints, "install LibreOffice and make sure soffice is on PATH")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about raising the engine timeout.
func ForTimeout() string {
	return format("for large documents, raise --engine-timeout or OFFICE2PDF_ENGINE_TIMEOUT_SECONDS")
}

// ForOverloaded returns a hint for admission queue timeouts.
func ForOverloaded() string {
	return format("all engine slots are busy; retry later or raise --max-engines")
}

// ForScratchRoot returns hints for scratch directory failures.
func ForScratchRoot(root string) string {
	return format("check that " + root + " exists, is writable and has free space")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/office2pdf/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/office2pdf") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForUnsupportedFormat lists the accepted extensions.
func ForUnsupportedFormat(supported []string) string {
	if len(supported) == 0 {
		return ""
	}
	return format("supported: " + strings.Join(supported, ", "))
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
