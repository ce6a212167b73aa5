package main

import (
	"errors"
	"os"

	"github.com/alnah/go-office2pdf"
	"github.com/alnah/go-office2pdf/internal/config"
)

// Exit codes for the office2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess    = 0 // Successful conversion
	ExitGeneral    = 1 // General/unexpected error
	ExitUsage      = 2 // Invalid flags, config, or unsupported input format
	ExitIO         = 3 // File not found, permission denied, scratch space
	ExitEngine     = 4 // LibreOffice rejected the document or stalled
	ExitOverloaded = 5 // No engine slot freed up in time
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Engine errors (exit 4)
	if errors.Is(err, office2pdf.ErrRenderFailed) ||
		errors.Is(err, office2pdf.ErrConversionTimeout) {
		return ExitEngine
	}

	// Overload (exit 5)
	if errors.Is(err, office2pdf.ErrOverloaded) {
		return ExitOverloaded
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, office2pdf.ErrUnsupportedFormat) ||
		errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, office2pdf.ErrResource) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrWritePDF) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	return ExitGeneral
}
