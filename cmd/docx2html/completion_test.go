package main

// Notes:
// - GenerateCompletion: we test that scripts carry the expected markers. We
//   do not run them in the target shells.
// - getCommands: we test that the registry matches the dispatched commands
//   and that flags come from the real FlagSets.
// These are acceptable gaps: we test observable behavior, not runtime shell behavior.

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestGenerateCompletion_SupportedShells
// ---------------------------------------------------------------------------

func TestGenerateCompletion_SupportedShells(t *testing.T) {
	t.Parallel()

	tests := []struct {
		shell        Shell
		wantContains []string
	}{
		{ShellBash, []string{"_docx2html_completions", "complete -F", "compgen", "convert", "--media-root", "docx|md|markdown", "html md"}},
		{ShellZsh, []string{"#compdef docx2html", "_arguments", "_describe", "--style-map", "*.(docx|md|markdown)"}},
		{ShellFish, []string{"complete -c docx2html", "__fish_docx2html_using_command", "-l job-id", "-a 'debug info warn error'"}},
		{ShellPowerShell, []string{"Register-ArgumentCompleter", "'serve' = @(", "'--addr'"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.shell), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := GenerateCompletion(&buf, tt.shell); err != nil {
				t.Fatalf("GenerateCompletion(%s) error = %v", tt.shell, err)
			}
			out := buf.String()
			for _, want := range tt.wantContains {
				if !strings.Contains(out, want) {
					t.Errorf("%s script missing %q", tt.shell, want)
				}
			}
		})
	}
}

func TestGenerateCompletion_UnsupportedShell(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := GenerateCompletion(&buf, "tcsh")
	if !errors.Is(err, ErrUnsupportedShell) {
		t.Errorf("error = %v, want ErrUnsupportedShell", err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written, got %q", buf.String())
	}
}

// ---------------------------------------------------------------------------
// TestGetCommands
// ---------------------------------------------------------------------------

func TestGetCommands(t *testing.T) {
	t.Parallel()

	byName := make(map[string]commandDef)
	for _, c := range getCommands() {
		byName[c.Name] = c
	}

	for _, name := range []string{"convert", "edit", "export", "pdf", "list", "serve", "doctor", "version", "help", "completion"} {
		if _, ok := byName[name]; !ok {
			t.Errorf("command %q missing from completion registry", name)
		}
	}

	flags := make(map[string]flagDef)
	for _, f := range byName["export"].Flags {
		flags[f.Long] = f
	}
	if f := flags["format"]; f.Type != flagEnum || f.Short != "f" {
		t.Errorf("export --format = %+v, want enum with -f", f)
	}
	if f := flags["media-root"]; f.Type != flagDir {
		t.Errorf("--media-root type = %v, want dir", f.Type)
	}
	if f := flags["quiet"]; f.Type != flagBool {
		t.Errorf("--quiet type = %v, want bool", f.Type)
	}
}

// ---------------------------------------------------------------------------
// TestRunCompletion
// ---------------------------------------------------------------------------

func TestRunCompletion(t *testing.T) {
	t.Parallel()

	code, stdout, _ := run(t, "completion")
	if code != ExitSuccess || !strings.Contains(stdout, "Usage: docx2html completion") {
		t.Errorf("completion without shell: code %d, stdout %q", code, stdout)
	}

	code, stdout, _ = run(t, "completion", "bash")
	if code != ExitSuccess || !strings.Contains(stdout, "complete -F _docx2html_completions docx2html") {
		t.Errorf("completion bash: code %d", code)
	}

	code, _, stderr := run(t, "completion", "tcsh")
	if code != ExitUsage || !strings.Contains(stderr, "unsupported shell") {
		t.Errorf("completion tcsh: code %d, stderr %q", code, stderr)
	}
}
