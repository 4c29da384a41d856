package dateutil

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var uploadedAt = time.Date(2026, time.March, 7, 9, 5, 42, 0, time.UTC)

func TestParseDateFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		format  string
		want    string
		wantErr error
	}{
		{name: "year", format: "YYYY", want: "2006"},
		{name: "short year", format: "YY", want: "06"},
		{name: "full month", format: "MMMM", want: "January"},
		{name: "short month", format: "MMM", want: "Jan"},
		{name: "padded month", format: "MM", want: "01"},
		{name: "month", format: "M", want: "1"},
		{name: "padded day", format: "DD", want: "02"},
		{name: "day", format: "D", want: "2"},
		{name: "hour minute second", format: "HH:mm:ss", want: "15:04:05"},
		{name: "month and minute differ by case", format: "MM mm", want: "01 04"},
		{name: "path format", format: "YYYY/MM/DD", want: "2006/01/02"},
		{name: "preset", format: "iso", want: "2006-01-02"},
		{name: "preset case insensitive", format: "DateTime", want: "2006-01-02 15:04"},
		{name: "bracket literal", format: "[Day] D", want: "Day 2"},
		{name: "empty", format: "", wantErr: ErrInvalidDateFormat},
		{name: "unclosed bracket", format: "[oops", wantErr: ErrInvalidDateFormat},
		{name: "too long", format: strings.Repeat("Y", MaxDateFormatLength+1), wantErr: ErrInvalidDateFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseDateFormat(tt.format)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseDateFormat(%q) error = %v, want %v", tt.format, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDateFormat(%q) error = %v", tt.format, err)
			}
			if got != tt.want {
				t.Errorf("ParseDateFormat(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   string
	}{
		{"", "2026-03-07 09:05"},
		{"european", "07/03/2026"},
		{"MMMM D, YYYY [at] HH:mm", "March 7, 2026 at 09:05"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			got, err := Format(tt.format, uploadedAt)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestUploadDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		format  string
		want    string
		wantErr bool
	}{
		{name: "default", format: "", want: "uploads/2026/03/07"},
		{name: "monthly", format: "YYYY-MM", want: "uploads/2026-03"},
		{name: "escape rejected", format: "[../../etc]", wantErr: true},
		{name: "invalid format", format: "[x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := UploadDir(tt.format, uploadedAt)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDateFormat) {
					t.Errorf("UploadDir(%q) error = %v, want ErrInvalidDateFormat", tt.format, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("UploadDir() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("UploadDir(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}
