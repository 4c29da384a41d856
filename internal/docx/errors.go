package docx

import "errors"

// Sentinel errors for DOCX reading.
var (
	ErrNotDocx         = errors.New("not a DOCX package")
	ErrMissingPart     = errors.New("missing document part")
	ErrMalformedPart   = errors.New("malformed document part")
	ErrInvalidStyleMap = errors.New("invalid style map")
)
