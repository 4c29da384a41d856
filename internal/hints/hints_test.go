package hints

// Tests here use t.Setenv and swap IsInContainer, so none run in parallel.

import (
	"strings"
	"testing"
)

func TestForBrowserConnect(t *testing.T) {
	tests := []struct {
		name       string
		container  bool
		env        map[string]string
		want       []string
		wantAbsent []string
	}{
		{
			name: "CI without sandbox setting",
			env:  map[string]string{"GITHUB_ACTIONS": "true"},
			want: []string{"ROD_NO_SANDBOX=1", "ROD_BROWSER_BIN", "docx2html doctor"},
		},
		{
			name:      "container",
			container: true,
			want:      []string{"ROD_NO_SANDBOX=1"},
		},
		{
			name:       "container with sandbox disabled",
			container:  true,
			env:        map[string]string{"ROD_NO_SANDBOX": "1"},
			wantAbsent: []string{"ROD_NO_SANDBOX"},
		},
		{
			name:       "workstation with browser configured",
			env:        map[string]string{"ROD_BROWSER_BIN": "/usr/bin/chromium"},
			want:       []string{"docx2html doctor"},
			wantAbsent: []string{"ROD_NO_SANDBOX", "ROD_BROWSER_BIN"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := IsInContainer
			defer func() { IsInContainer = orig }()
			IsInContainer = func() bool { return tt.container }

			for _, v := range append(ciVars, "ROD_NO_SANDBOX", "ROD_BROWSER_BIN") {
				t.Setenv(v, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			hint := ForBrowserConnect()
			if !strings.HasPrefix(hint, "\n  hint: ") {
				t.Errorf("hint format = %q", hint)
			}
			for _, w := range tt.want {
				if !strings.Contains(hint, w) {
					t.Errorf("hint %q missing %q", hint, w)
				}
			}
			for _, w := range tt.wantAbsent {
				if strings.Contains(hint, w) {
					t.Errorf("hint %q should not mention %q", hint, w)
				}
			}
		})
	}
}

func TestForConfigNotFound(t *testing.T) {
	tests := []struct {
		name     string
		paths    []string
		contains string
	}{
		{"no paths", nil, "--config"},
		{"user config dir", []string{"./site.yaml", "/home/u/.config/go-docx2html/site.yaml"}, "or create /home/u/.config/go-docx2html/site.yaml"},
		{"windows paths", []string{`C:\Users\u\AppData\.config\go-docx2html\site.yaml`}, "or create"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if hint := ForConfigNotFound(tt.paths); !strings.Contains(hint, tt.contains) {
				t.Errorf("ForConfigNotFound() = %q, want it to contain %q", hint, tt.contains)
			}
		})
	}
}

func TestStaticHints(t *testing.T) {
	tests := []struct {
		name     string
		hint     string
		contains string
	}{
		{"timeout", ForTimeout(), "--timeout"},
		{"output directory", ForOutputDirectory(), "DOCX2HTML_MEDIA_ROOT"},
		{"not found", ForNotFound(), "convert the document again"},
		{"style map", ForStyleMap(), "=> pre.code"},
		{"database", ForDatabase(), "DATABASE_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasPrefix(tt.hint, "\n  hint: ") {
				t.Errorf("hint format inconsistent: %q", tt.hint)
			}
			if !strings.Contains(tt.hint, tt.contains) {
				t.Errorf("hint %q missing %q", tt.hint, tt.contains)
			}
		})
	}
}

func TestFormatHints_Empty(t *testing.T) {
	if got := formatHints(nil); got != "" {
		t.Errorf("formatHints(nil) = %q, want empty", got)
	}
	if got := format(""); got != "" {
		t.Errorf("format(\"\") = %q, want empty", got)
	}
}
