package main

// Notes:
// - exitCodeFor: we test the sentinel errors of the library, config and
//   store packages, plus wrapped errors to verify the errors.Is chain.
// - hintFor: we check that the mapped families get a hint and others none.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	docx2html "github.com/alnah/go-docx2html"
	"github.com/alnah/go-docx2html/internal/config"
	"github.com/alnah/go-docx2html/internal/store"
)

// ---------------------------------------------------------------------------
// TestExitCodeFor - Error to exit code mapping
// ---------------------------------------------------------------------------

func TestExitCodeFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},

		// Browser errors (exit 4)
		{"browser connect", docx2html.ErrBrowserConnect, ExitBrowser},
		{"page create", docx2html.ErrPageCreate, ExitBrowser},
		{"page load", docx2html.ErrPageLoad, ExitBrowser},
		{"pdf generation", docx2html.ErrPDFGeneration, ExitBrowser},
		{"wrapped browser connect", fmt.Errorf("failed: %w", docx2html.ErrBrowserConnect), ExitBrowser},

		// I/O errors (exit 3)
		{"file not exist", os.ErrNotExist, ExitIO},
		{"permission denied", os.ErrPermission, ExitIO},
		{"output missing", docx2html.ErrNotFound, ExitIO},
		{"output dir", docx2html.ErrOutputDir, ExitIO},
		{"write html", docx2html.ErrWriteHTML, ExitIO},
		{"write archive", docx2html.ErrWriteArchive, ExitIO},
		{"upload not found", store.ErrNotFound, ExitIO},
		{"write output", ErrWriteOutput, ExitIO},
		{"wrapped file not exist", fmt.Errorf("reading: %w", os.ErrNotExist), ExitIO},

		// Usage/config/input errors (exit 2)
		{"usage", errUsage, ExitUsage},
		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"field too long", config.ErrFieldTooLong, ExitUsage},
		{"invalid value", config.ErrInvalidValue, ExitUsage},
		{"empty document", docx2html.ErrEmptyDocument, ExitUsage},
		{"unsupported format", docx2html.ErrUnsupportedFormat, ExitUsage},
		{"corrupt document", docx2html.ErrCorruptDocument, ExitUsage},
		{"unreadable document", fmt.Errorf("%w: open a.docx: no such file or directory", docx2html.ErrUnreadableDocument), ExitUsage},
		{"unsupported image", docx2html.ErrUnsupportedImage, ExitUsage},
		{"invalid job id", docx2html.ErrInvalidJobID, ExitUsage},
		{"export format", docx2html.ErrExportFormat, ExitUsage},
		{"invalid style map", docx2html.ErrInvalidStyleMap, ExitUsage},
		{"invalid asset path", docx2html.ErrInvalidAssetPath, ExitUsage},
		{"unsupported database url", store.ErrUnsupportedURL, ExitUsage},
		{"invalid sort", store.ErrInvalidSort, ExitUsage},
		{"wrapped usage", usageError(errors.New("bad flag")), ExitUsage},

		// General errors (exit 1)
		{"unknown error", errors.New("boom"), ExitGeneral},
		{"database", store.ErrDatabase, ExitGeneral},
		{"markdown export", docx2html.ErrMarkdownExport, ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestExitCodeConstants - Unix conventions
// ---------------------------------------------------------------------------

func TestExitCodeConstants(t *testing.T) {
	t.Parallel()

	if ExitSuccess != 0 || ExitGeneral != 1 || ExitUsage != 2 {
		t.Errorf("standard exit codes changed: %d %d %d", ExitSuccess, ExitGeneral, ExitUsage)
	}
	for _, code := range []int{ExitIO, ExitBrowser} {
		if code <= ExitUsage || code >= 126 {
			t.Errorf("custom exit code %d must be in (2, 126)", code)
		}
	}
}

// ---------------------------------------------------------------------------
// TestHintFor - Actionable hints
// ---------------------------------------------------------------------------

func TestHintFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"timeout", context.DeadlineExceeded, "--timeout"},
		{"output dir", fmt.Errorf("x: %w", docx2html.ErrOutputDir), "--media-root"},
		{"not found", docx2html.ErrNotFound, "convert the document again"},
		{"style map", docx2html.ErrInvalidStyleMap, "style-name"},
		{"config", config.ErrConfigNotFound, "--config"},
		{"database", store.ErrDatabase, "--database"},
		{"database url", store.ErrUnsupportedURL, "--database"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := hintFor(tt.err)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("hintFor(%v) = %q, want it to contain %q", tt.err, got, tt.contains)
			}
		})
	}

	if got := hintFor(errors.New("boom")); got != "" {
		t.Errorf("hintFor(unknown) = %q, want empty", got)
	}
}
