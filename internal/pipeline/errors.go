package pipeline

import "errors"

// Sentinel errors for pipeline stages.
var (
	ErrHTMLConversion   = errors.New("HTML conversion failed")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrOutputDir        = errors.New("output directory not writable")
	ErrWriteHTML        = errors.New("failed to write HTML file")
	ErrWriteArchive     = errors.New("failed to write image archive")
)
