package office2pdf

import (
	"os"
	"path/filepath"
	"runtime"
)

// Engine count constants.
const (
	// MinEngines ensures at least one engine can run.
	MinEngines = 1

	// MaxAutoEngines caps the automatic engine count. Each LibreOffice
	// process can take several hundred megabytes while rendering.
	MaxAutoEngines = 8

	// cpuDivisor leaves headroom for the engine's own helper threads.
	cpuDivisor = 2
)

// ResolveMaxEngines determines how many engines may run at once.
// Priority: explicit n > GOMAXPROCS-based calculation.
// Exported for use by servers and CLIs.
func ResolveMaxEngines(n int) int {
	if n > 0 {
		return n
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers.
	available := runtime.GOMAXPROCS(0)
	n = available / cpuDivisor

	if n < MinEngines {
		return MinEngines
	}
	if n > MaxAutoEngines {
		return MaxAutoEngines
	}
	return n
}

// defaultScratchRoot returns <tmp>/office2pdf.
func defaultScratchRoot() string {
	return filepath.Join(os.TempDir(), "office2pdf")
}
