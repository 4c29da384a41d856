package main

// Notes:
// - runMain: we test exit codes and output for the dispatch paths, then run
//   convert, list, export and edit end to end on a Markdown document with a
//   temporary media root and SQLite file.
// - pdf and serve need Chrome or a listening socket; their flag handling is
//   covered here, the rendering paths by the library and server tests.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Test Infrastructure
// ---------------------------------------------------------------------------

func testEnv() (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Environment{
		Now:    func() time.Time { return time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC) },
		Stdout: &stdout,
		Stderr: &stderr,
	}, &stdout, &stderr
}

// workspace returns flags pointing the CLI at a fresh media root and
// database.
func workspace(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	return dir, []string{
		"--media-root", filepath.Join(dir, "media"),
		"--database", "sqlite://" + filepath.Join(dir, "uploads.db"),
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	env, stdout, stderr := testEnv()
	code := runMain(append([]string{"docx2html"}, args...), env)
	return code, stdout.String(), stderr.String()
}

const guideMarkdown = "# Guide\n\nHello world.\n\n```go\nfmt.Println(1)\n```\n"

// ---------------------------------------------------------------------------
// TestRunMain_Dispatch - Commands without side effects
// ---------------------------------------------------------------------------

func TestRunMain_Dispatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"no command", nil, ExitUsage, "", "Usage: docx2html"},
		{"unknown command", []string{"frobnicate"}, ExitUsage, "", "unknown command: frobnicate"},
		{"version", []string{"version"}, ExitSuccess, "docx2html dev", ""},
		{"version flag", []string{"--version"}, ExitSuccess, "docx2html dev", ""},
		{"help", []string{"help"}, ExitSuccess, "Usage: docx2html", ""},
		{"help convert", []string{"help", "convert"}, ExitSuccess, "docx2html convert", ""},
		{"help unknown", []string{"help", "nope"}, ExitUsage, "", "unknown command: nope"},
		{"convert help flag", []string{"convert", "--help"}, ExitSuccess, "", "docx2html convert"},
		{"convert without file", []string{"convert"}, ExitUsage, "", "exactly one document"},
		{"convert unknown flag", []string{"convert", "--bogus", "a.md"}, ExitUsage, "", "invalid usage"},
		{"edit without args", []string{"edit", "job"}, ExitUsage, "", "job ID and an HTML file"},
		{"export without id", []string{"export"}, ExitUsage, "", "exactly one job ID"},
		{"pdf without id", []string{"pdf"}, ExitUsage, "", "exactly one job ID"},
		{"pdf bad timeout", []string{"pdf", "--timeout", "soon", "job"}, ExitUsage, "", "invalid timeout"},
		{"list with args", []string{"list", "extra"}, ExitUsage, "", "takes no arguments"},
		{"serve with args", []string{"serve", "extra"}, ExitUsage, "", "takes no arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, stdout, stderr := run(t, tt.args...)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr)
			}
			if tt.wantStdout != "" && !strings.Contains(stdout, tt.wantStdout) {
				t.Errorf("stdout = %q, want it to contain %q", stdout, tt.wantStdout)
			}
			if tt.wantStderr != "" && !strings.Contains(stderr, tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tt.wantStderr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRunMain_ConvertWorkflow - convert, list, export, edit
// ---------------------------------------------------------------------------

func TestRunMain_ConvertWorkflow(t *testing.T) {
	t.Parallel()

	dir, common := workspace(t)
	input := writeFile(t, dir, "guide.md", guideMarkdown)

	code, stdout, stderr := run(t, append([]string{"convert", "-q", input}, common...)...)
	if code != ExitSuccess {
		t.Fatalf("convert exit code = %d, stderr: %s", code, stderr)
	}
	id := strings.TrimSpace(stdout)
	if id == "" {
		t.Fatal("convert -q should print the job ID")
	}

	htmlPath := filepath.Join(dir, "media", "output", id, "guide.html")
	html, err := os.ReadFile(htmlPath)
	if err != nil {
		t.Fatalf("reading converted document: %v", err)
	}
	if !strings.Contains(string(html), "Hello world.") {
		t.Errorf("converted document missing text:\n%s", html)
	}
	if _, err := os.Stat(filepath.Join(dir, "media", "output", id, "guide_images.zip")); err != nil {
		t.Errorf("archive not written: %v", err)
	}

	t.Run("list", func(t *testing.T) {
		code, stdout, stderr := run(t, append([]string{"list", "--query", "guide"}, common...)...)
		if code != ExitSuccess {
			t.Fatalf("list exit code = %d, stderr: %s", code, stderr)
		}
		if !strings.Contains(stdout, id) || !strings.Contains(stdout, "guide.md") {
			t.Errorf("list output = %q, want job %s", stdout, id)
		}
	})

	t.Run("export markdown", func(t *testing.T) {
		out := filepath.Join(dir, "guide-export.md")
		code, _, stderr := run(t, append([]string{"export", "-f", "md", "-o", out, id}, common...)...)
		if code != ExitSuccess {
			t.Fatalf("export exit code = %d, stderr: %s", code, stderr)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "Hello world.") {
			t.Errorf("markdown export = %q", data)
		}
	})

	t.Run("export unknown format", func(t *testing.T) {
		code, _, _ := run(t, append([]string{"export", "-f", "odt", "-o", filepath.Join(dir, "x.odt"), id}, common...)...)
		if code != ExitUsage {
			t.Errorf("exit code = %d, want %d", code, ExitUsage)
		}
	})

	t.Run("edit", func(t *testing.T) {
		edited := writeFile(t, dir, "edited.html", "<h1>Guide</h1><p>Edited text.</p>")
		code, _, stderr := run(t, append([]string{"edit", id, edited}, common...)...)
		if code != ExitSuccess {
			t.Fatalf("edit exit code = %d, stderr: %s", code, stderr)
		}
		data, err := os.ReadFile(htmlPath)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "Edited text.") {
			t.Errorf("edited document = %s", data)
		}
		if !strings.Contains(string(data), "<!DOCTYPE html>") {
			t.Errorf("edited document should be reassembled:\n%s", data)
		}
	})
}

// ---------------------------------------------------------------------------
// TestRunMain_ConvertFailures - Failed conversions leave nothing behind
// ---------------------------------------------------------------------------

func TestRunMain_ConvertFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		file     string
		content  string
		extra    []string
		wantCode int
	}{
		{"missing file", "", "", nil, ExitIO},
		{"unsupported extension", "notes.txt", "plain", nil, ExitUsage},
		{"empty document", "empty.md", "", nil, ExitUsage},
		{"corrupt docx", "broken.docx", "not a zip", nil, ExitUsage},
		{"invalid job id", "guide.md", guideMarkdown, []string{"--job-id", "../escape"}, ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir, common := workspace(t)
			input := filepath.Join(dir, "missing.md")
			if tt.file != "" {
				input = writeFile(t, dir, tt.file, tt.content)
			}

			args := append([]string{"convert", input}, common...)
			code, _, stderr := run(t, append(args, tt.extra...)...)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr)
			}

			_, stdout, _ := run(t, append([]string{"list"}, common...)...)
			if strings.TrimSpace(stdout) != "" {
				t.Errorf("failed conversion left a record: %q", stdout)
			}
			if entries, err := os.ReadDir(filepath.Join(dir, "media", "output")); err == nil && len(entries) > 0 {
				t.Errorf("failed conversion left %d output directories", len(entries))
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRunMain_ConvertJobID - Explicit job IDs
// ---------------------------------------------------------------------------

func TestRunMain_ConvertJobID(t *testing.T) {
	t.Parallel()

	dir, common := workspace(t)
	input := writeFile(t, dir, "guide.md", guideMarkdown)

	args := append([]string{"convert", "--job-id", "guide-1", input}, common...)
	code, stdout, stderr := run(t, args...)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "guide-1") {
		t.Errorf("stdout = %q, want job guide-1", stdout)
	}

	code, _, stderr = run(t, args...)
	if code != ExitUsage {
		t.Errorf("reusing a job ID: exit code = %d, want %d", code, ExitUsage)
	}
	if !strings.Contains(stderr, "already exists") {
		t.Errorf("stderr = %q", stderr)
	}
}

// ---------------------------------------------------------------------------
// TestRunMain_UnknownJob - Commands on a job that does not exist
// ---------------------------------------------------------------------------

func TestRunMain_UnknownJob(t *testing.T) {
	t.Parallel()

	dir, common := workspace(t)
	edited := writeFile(t, dir, "edited.html", "<p>x</p>")

	tests := []struct {
		name string
		args []string
	}{
		{"export", []string{"export", "-o", filepath.Join(dir, "out.html"), "nope"}},
		{"edit", []string{"edit", "nope", edited}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := run(t, append(tt.args, common...)...)
			if code != ExitIO {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, ExitIO, stderr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestParseTimeout
// ---------------------------------------------------------------------------

func TestParseTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"30s", 30 * time.Second, false},
		{"2m", 2 * time.Minute, false},
		{"0s", 0, true},
		{"-1s", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := parseTimeout(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTimeout(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseTimeout(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestDocumentStem
// ---------------------------------------------------------------------------

func TestDocumentStem(t *testing.T) {
	t.Parallel()

	if got := documentStem("/media/output/abc/guide.html"); got != "guide" {
		t.Errorf("documentStem() = %q, want guide", got)
	}
}
