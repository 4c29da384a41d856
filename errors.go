package docx2html

import (
	"errors"

	"github.com/alnah/go-docx2html/internal/docx"
	"github.com/alnah/go-docx2html/internal/pipeline"
)

// Sentinel errors for library operations.
var (
	// Input errors: the uploaded document cannot be processed.
	ErrEmptyDocument      = errors.New("document is empty")
	ErrUnsupportedFormat  = errors.New("unsupported document format")
	ErrCorruptDocument    = errors.New("corrupt document")
	ErrUnreadableDocument = errors.New("document cannot be read")
	ErrUnsupportedImage   = pipeline.ErrUnsupportedImage
	ErrInvalidStyleMap    = docx.ErrInvalidStyleMap
	ErrInvalidJobID       = errors.New("invalid job id")

	// IO errors while writing job output.
	ErrOutputDir    = pipeline.ErrOutputDir
	ErrWriteHTML    = pipeline.ErrWriteHTML
	ErrWriteArchive = pipeline.ErrWriteArchive

	// ErrNotFound reports job output that no longer exists on disk.
	ErrNotFound = errors.New("not found")

	// PDF export errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrInvalidPDF     = errors.New("generated PDF is invalid")

	// Export errors.
	ErrExportFormat     = errors.New("unsupported export format")
	ErrMarkdownExport   = errors.New("markdown export failed")
	ErrInvalidAssetPath = errors.New("invalid asset path")
)
