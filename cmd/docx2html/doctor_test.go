package main

// Notes:
// - runDoctorCmd: black-box tests through its JSON and text output. Chrome
//   detection depends on the host, so only the storage section is asserted
//   exactly.
// - redactDatabaseURL: we test credential masking.

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_JSONOutput
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_JSONOutput(t *testing.T) {
	t.Parallel()

	dir, common := workspace(t)
	env, stdout, stderr := testEnv()

	code := runDoctorCmd(context.Background(), append([]string{"--json"}, common...), env)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s\n%s", code, stderr, stdout)
	}

	var result doctorResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout)
	}
	if result.Status != statusReady && result.Status != statusWarnings {
		t.Errorf("status = %q, want ready or warnings", result.Status)
	}
	if result.Env.OS == "" || result.Env.Arch == "" {
		t.Error("JSON should contain OS and Arch")
	}

	s := result.Storage
	if s.MediaRoot != filepath.Join(dir, "media") || !s.MediaWritable {
		t.Errorf("media check = %+v", s)
	}
	if !s.DatabaseReachable || !s.StyleMapValid {
		t.Errorf("storage checks = %+v", s)
	}
	if _, err := os.Stat(filepath.Join(dir, "media", ".docx2html-doctor")); !os.IsNotExist(err) {
		t.Error("probe file should be removed")
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_Errors
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unreachable database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		env, stdout, _ := testEnv()
		code := runDoctorCmd(context.Background(), []string{
			"--media-root", filepath.Join(dir, "media"),
			"--database", "mysql://nope",
		}, env)

		if code != ExitGeneral {
			t.Errorf("exit code = %d, want %d", code, ExitGeneral)
		}
		out := stdout.String()
		if !strings.Contains(out, "Database:") || !strings.Contains(out, "Not ready") {
			t.Errorf("text output missing database error:\n%s", out)
		}
	})

	t.Run("media root is a file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		file := filepath.Join(dir, "media")
		if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
		env, stdout, _ := testEnv()
		code := runDoctorCmd(context.Background(), []string{
			"--json",
			"--media-root", file,
			"--database", "sqlite::memory:",
		}, env)

		if code != ExitGeneral {
			t.Errorf("exit code = %d, want %d", code, ExitGeneral)
		}
		var result doctorResult
		if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
			t.Fatal(err)
		}
		if result.Storage.MediaWritable {
			t.Error("media root should not be writable")
		}
		if !result.Storage.DatabaseReachable {
			t.Error("in-memory database should be reachable")
		}
	})

	t.Run("usage", func(t *testing.T) {
		t.Parallel()

		env, _, stderr := testEnv()
		if code := runDoctorCmd(context.Background(), []string{"extra"}, env); code != ExitUsage {
			t.Errorf("exit code = %d, want %d", code, ExitUsage)
		}
		if !strings.Contains(stderr.String(), "no arguments") {
			t.Errorf("stderr = %q", stderr)
		}
	})
}

// ---------------------------------------------------------------------------
// TestPrintDoctorResult
// ---------------------------------------------------------------------------

func TestPrintDoctorResult(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printDoctorResult(&buf, &doctorResult{
		Status: statusWarnings,
		Chrome: chromeInfo{Found: true, Path: "/usr/bin/chromium", Version: "Chromium 120", Sandbox: false},
		Env:    envInfo{OS: "linux", Arch: "amd64", Container: true, ContainerHint: "/.dockerenv"},
		Storage: storageInfo{
			MediaRoot: "/srv/media", MediaWritable: true,
			Database: "sqlite://db", DatabaseReachable: true, StyleMapValid: true,
		},
		Warnings: []string{"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1"},
	})

	out := buf.String()
	for _, want := range []string{
		"docx2html doctor",
		"[OK] Found at /usr/bin/chromium",
		"Sandbox: disabled",
		"Container: detected (/.dockerenv)",
		"[OK] Media root: /srv/media",
		"[OK] Database: sqlite://db",
		"[WARN] Container/CI detected",
		"Status: Ready with warnings",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// ---------------------------------------------------------------------------
// TestRedactDatabaseURL
// ---------------------------------------------------------------------------

func TestRedactDatabaseURL(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"postgres://app:secret@db:5432/app": "postgres://app:***@db:5432/app",
		"postgres://app@db/app":             "postgres://app@db/app",
		"sqlite://data/app.db":              "sqlite://data/app.db",
		"app.db":                            "app.db",
	}
	for in, want := range tests {
		if got := redactDatabaseURL(in); got != want {
			t.Errorf("redactDatabaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}
