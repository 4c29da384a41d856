package store

import "errors"

// Sentinel errors for the upload store.
var (
	ErrNotFound       = errors.New("upload not found")
	ErrUnsupportedURL = errors.New("unsupported database URL")
	ErrInvalidSort    = errors.New("invalid sort column")
	ErrDatabase       = errors.New("database error")
)
