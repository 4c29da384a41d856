package main

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	flag "github.com/spf13/pflag"

	"github.com/alnah/go-docx2html/internal/config"
)

// ---------------------------------------------------------------------------
// TestParseConvertFlags
// ---------------------------------------------------------------------------

func TestParseConvertFlags(t *testing.T) {
	t.Parallel()

	f, args, err := parseConvertFlags([]string{
		"--job-id", "abc", "--style-map", "rules.txt",
		"-c", "work", "--media-root", "/m", "--database", "sqlite://x.db",
		"-q", "guide.docx",
	}, io.Discard)
	if err != nil {
		t.Fatalf("parseConvertFlags() error = %v", err)
	}

	if f.jobID != "abc" || f.styleMap != "rules.txt" {
		t.Errorf("convert flags = %+v", f)
	}
	wantCommon := commonFlags{config: "work", mediaRoot: "/m", database: "sqlite://x.db", quiet: true}
	if diff := cmp.Diff(wantCommon, f.common, cmp.AllowUnexported(commonFlags{})); diff != "" {
		t.Errorf("common flags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"guide.docx"}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFlags_Help(t *testing.T) {
	t.Parallel()

	parsers := map[string]func() error{
		"convert": func() error { _, _, err := parseConvertFlags([]string{"-h"}, io.Discard); return err },
		"edit": func() error {
			_, _, err := parseEditFlags([]string{"-h"}, io.Discard)
			return err
		},
		"export": func() error { _, _, err := parseExportFlags([]string{"-h"}, io.Discard); return err },
		"pdf":    func() error { _, _, err := parsePDFFlags([]string{"-h"}, io.Discard); return err },
		"list":   func() error { _, _, err := parseListFlags([]string{"-h"}, io.Discard); return err },
		"serve":  func() error { _, _, err := parseServeFlags([]string{"-h"}, io.Discard); return err },
		"doctor": func() error { _, _, err := parseDoctorFlags([]string{"-h"}, io.Discard); return err },
	}
	for name, parse := range parsers {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if err := parse(); !errors.Is(err, flag.ErrHelp) {
				t.Errorf("-h error = %v, want flag.ErrHelp", err)
			}
		})
	}
}

func TestParseExportFlags_Defaults(t *testing.T) {
	t.Parallel()

	f, _, err := parseExportFlags([]string{"job"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if f.format != "html" || f.output != "" {
		t.Errorf("defaults = format %q output %q", f.format, f.output)
	}
}

func TestParseServeAndListFlags(t *testing.T) {
	t.Parallel()

	s, _, err := parseServeFlags([]string{"-a", ":9000", "-w", "2", "--static-root", "static"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if s.addr != ":9000" || s.workers != 2 || s.staticRoot != "static" {
		t.Errorf("serve flags = %+v", s)
	}

	l, _, err := parseListFlags([]string{"--query", "report", "--sort", "-original_name", "--limit", "5"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if l.query != "report" || l.sort != "-original_name" || l.limit != 5 {
		t.Errorf("list flags = %+v", l)
	}
}

// ---------------------------------------------------------------------------
// TestMergeCommonFlags
// ---------------------------------------------------------------------------

func TestMergeCommonFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		flags     commonFlags
		wantLevel string
		wantRoot  string
	}{
		{"no flags keep config", commonFlags{}, "info", "media"},
		{"log level", commonFlags{logLevel: "warn"}, "warn", "media"},
		{"quiet", commonFlags{logLevel: "debug", quiet: true}, "error", "media"},
		{"verbose wins over quiet", commonFlags{quiet: true, verbose: true}, "debug", "media"},
		{"media root", commonFlags{mediaRoot: "/srv"}, "info", "/srv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.DefaultConfig()
			cfg.Log.Level = "info"
			mergeCommonFlags(&tt.flags, cfg)
			if cfg.Log.Level != tt.wantLevel {
				t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, tt.wantLevel)
			}
			if cfg.Media.Root != tt.wantRoot {
				t.Errorf("Media.Root = %q, want %q", cfg.Media.Root, tt.wantRoot)
			}
		})
	}
}
