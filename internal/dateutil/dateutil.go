// Package dateutil formats dates with user-friendly tokens. It renders upload
// dates in the archive listing and builds the dated directory uploaded
// documents are stored under.
package dateutil

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// ErrInvalidDateFormat indicates an invalid date format string.
var ErrInvalidDateFormat = errors.New("invalid date format")

// MaxDateFormatLength limits format string length.
const MaxDateFormatLength = 50

// DefaultDateFormat is the archive listing default.
const DefaultDateFormat = "YYYY-MM-DD HH:mm"

// DefaultPathFormat is the upload directory default.
const DefaultPathFormat = "YYYY/MM/DD"

// dateTokens maps tokens to Go time layout components, longest first.
// Tokens are case sensitive: MM is the month, mm the minute.
var dateTokens = []struct {
	token string
	goFmt string
}{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"HH", "15"},
	{"mm", "04"},
	{"ss", "05"},
	{"M", "1"},
	{"D", "2"},
}

// DatePresets provides named shortcuts for common formats.
var DatePresets = map[string]string{
	"iso":      "YYYY-MM-DD",
	"european": "DD/MM/YYYY",
	"us":       "MM/DD/YYYY",
	"long":     "MMMM D, YYYY",
	"datetime": "YYYY-MM-DD HH:mm",
}

// ParseDateFormat converts a token format or preset name to a Go layout.
// Tokens: YYYY, YY, MMMM, MMM, MM, M, DD, D, HH, mm, ss.
// Brackets escape literal text: [at] stays "at".
func ParseDateFormat(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("%w: format cannot be empty", ErrInvalidDateFormat)
	}
	if len(format) > MaxDateFormatLength {
		return "", fmt.Errorf("%w: format exceeds %d characters", ErrInvalidDateFormat, MaxDateFormatLength)
	}
	if preset, ok := DatePresets[strings.ToLower(format)]; ok {
		format = preset
	}

	var out strings.Builder
	out.Grow(len(format) + 10)

	for i := 0; i < len(format); {
		if format[i] == '[' {
			end := strings.Index(format[i+1:], "]")
			if end == -1 {
				return "", fmt.Errorf("%w: unclosed bracket at position %d", ErrInvalidDateFormat, i)
			}
			out.WriteString(format[i+1 : i+1+end])
			i += end + 2
			continue
		}

		matched := false
		for _, t := range dateTokens {
			if strings.HasPrefix(format[i:], t.token) {
				out.WriteString(t.goFmt)
				i += len(t.token)
				matched = true
				break
			}
		}
		if !matched {
			out.WriteByte(format[i])
			i++
		}
	}
	return out.String(), nil
}

// Format renders t with a token format, falling back to DefaultDateFormat
// when format is empty.
func Format(format string, t time.Time) (string, error) {
	if format == "" {
		format = DefaultDateFormat
	}
	layout, err := ParseDateFormat(format)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}

// UploadDir returns the slash-separated directory uploads received at t are
// stored under, e.g. "uploads/2026/10/17". Formats that would escape the
// uploads directory are rejected.
func UploadDir(format string, t time.Time) (string, error) {
	if format == "" {
		format = DefaultPathFormat
	}
	sub, err := Format(format, t)
	if err != nil {
		return "", err
	}

	dir := path.Join("uploads", sub)
	if dir != "uploads" && !strings.HasPrefix(dir, "uploads/") {
		return "", fmt.Errorf("%w: %q escapes the uploads directory", ErrInvalidDateFormat, format)
	}
	return dir, nil
}
