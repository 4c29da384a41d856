package main

import (
	"context"
	"errors"
	"os"

	docx2html "github.com/alnah/go-docx2html"
	"github.com/alnah/go-docx2html/internal/config"
	"github.com/alnah/go-docx2html/internal/hints"
	"github.com/alnah/go-docx2html/internal/store"
)

// Exit codes for the docx2html CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful run
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or input document
	ExitIO      = 3 // File not found, permission denied, output not writable
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, docx2html.ErrBrowserConnect) ||
		errors.Is(err, docx2html.ErrPageCreate) ||
		errors.Is(err, docx2html.ErrPageLoad) ||
		errors.Is(err, docx2html.ErrPDFGeneration) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, docx2html.ErrNotFound) ||
		errors.Is(err, docx2html.ErrOutputDir) ||
		errors.Is(err, docx2html.ErrWriteHTML) ||
		errors.Is(err, docx2html.ErrWriteArchive) ||
		errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, ErrWriteOutput) {
		return ExitIO
	}

	// Usage/config/input errors (exit 2)
	if errors.Is(err, errUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, docx2html.ErrEmptyDocument) ||
		errors.Is(err, docx2html.ErrUnsupportedFormat) ||
		errors.Is(err, docx2html.ErrCorruptDocument) ||
		errors.Is(err, docx2html.ErrUnreadableDocument) ||
		errors.Is(err, docx2html.ErrUnsupportedImage) ||
		errors.Is(err, docx2html.ErrInvalidJobID) ||
		errors.Is(err, docx2html.ErrExportFormat) ||
		errors.Is(err, docx2html.ErrInvalidStyleMap) ||
		errors.Is(err, docx2html.ErrInvalidAssetPath) ||
		errors.Is(err, store.ErrUnsupportedURL) ||
		errors.Is(err, store.ErrInvalidSort) {
		return ExitUsage
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	switch {
	case errors.Is(err, docx2html.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, docx2html.ErrPageLoad):
		return hints.ForTimeout()
	case errors.Is(err, docx2html.ErrOutputDir):
		return hints.ForOutputDirectory()
	case errors.Is(err, docx2html.ErrNotFound):
		return hints.ForNotFound()
	case errors.Is(err, docx2html.ErrInvalidStyleMap):
		return hints.ForStyleMap()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(nil)
	case errors.Is(err, store.ErrDatabase), errors.Is(err, store.ErrUnsupportedURL):
		return hints.ForDatabase()
	}
	return ""
}
