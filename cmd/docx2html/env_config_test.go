package main

// Notes:
// - loadEnvConfig: we test every DOCX2HTML_* variable, the DATABASE_URL
//   fallback, and that malformed numbers and durations are ignored.
// - warnUnknownEnvVars: we test typo detection and that known vars don't warn.
// - applyEnvConfig / loadSettings: we test priority
//   (flags > env > config file > defaults).
// - Tests use t.Setenv() which prevents t.Parallel().
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-docx2html/internal/config"
)

// ---------------------------------------------------------------------------
// TestLoadEnvConfig - Environment variable loading
// ---------------------------------------------------------------------------

func TestLoadEnvConfig(t *testing.T) {
	t.Run("all variables", func(t *testing.T) {
		t.Setenv("DOCX2HTML_CONFIG", "/etc/docx2html.yaml")
		t.Setenv("DOCX2HTML_MEDIA_ROOT", "/srv/media")
		t.Setenv("DOCX2HTML_MEDIA_URL", "/files/")
		t.Setenv("DOCX2HTML_STATIC_ROOT", "/srv/static")
		t.Setenv("DOCX2HTML_DATABASE_URL", "sqlite:///srv/db.sqlite")
		t.Setenv("DOCX2HTML_ADDR", ":9000")
		t.Setenv("DOCX2HTML_LOG_LEVEL", "debug")
		t.Setenv("DOCX2HTML_LOG_FORMAT", "json")
		t.Setenv("DOCX2HTML_TIMEOUT", "2m")
		t.Setenv("DOCX2HTML_WORKERS", "3")
		t.Setenv("DOCX2HTML_MAX_UPLOAD_MB", "10")

		cfg := loadEnvConfig()

		want := envConfig{
			ConfigPath:  "/etc/docx2html.yaml",
			MediaRoot:   "/srv/media",
			MediaURL:    "/files/",
			StaticRoot:  "/srv/static",
			DatabaseURL: "sqlite:///srv/db.sqlite",
			Addr:        ":9000",
			LogLevel:    "debug",
			LogFormat:   "json",
			Timeout:     2 * time.Minute,
			Workers:     3,
			MaxUploadMB: 10,
		}
		if *cfg != want {
			t.Errorf("loadEnvConfig() = %+v, want %+v", *cfg, want)
		}
	})

	t.Run("DATABASE_URL fallback", func(t *testing.T) {
		t.Setenv("DOCX2HTML_DATABASE_URL", "")
		t.Setenv("DATABASE_URL", "postgres://u@db/app")

		if got := loadEnvConfig().DatabaseURL; got != "postgres://u@db/app" {
			t.Errorf("DatabaseURL = %q, want postgres://u@db/app", got)
		}
	})

	t.Run("prefixed URL wins over DATABASE_URL", func(t *testing.T) {
		t.Setenv("DOCX2HTML_DATABASE_URL", "sqlite://a.db")
		t.Setenv("DATABASE_URL", "postgres://u@db/app")

		if got := loadEnvConfig().DatabaseURL; got != "sqlite://a.db" {
			t.Errorf("DatabaseURL = %q, want sqlite://a.db", got)
		}
	})

	t.Run("malformed values ignored", func(t *testing.T) {
		t.Setenv("DOCX2HTML_TIMEOUT", "soon")
		t.Setenv("DOCX2HTML_WORKERS", "-2")
		t.Setenv("DOCX2HTML_MAX_UPLOAD_MB", "lots")

		cfg := loadEnvConfig()
		if cfg.Timeout != 0 || cfg.Workers != 0 || cfg.MaxUploadMB != 0 {
			t.Errorf("malformed values should be ignored, got %+v", *cfg)
		}
	})
}

// ---------------------------------------------------------------------------
// TestWarnUnknownEnvVars - Typo detection
// ---------------------------------------------------------------------------

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Setenv("DOCX2HTML_MEDIA_ROT", "/typo")
	t.Setenv("DOCX2HTML_MEDIA_ROOT", "/srv/media")

	var buf bytes.Buffer
	warnUnknownEnvVars(&buf)

	out := buf.String()
	if !strings.Contains(out, "DOCX2HTML_MEDIA_ROT") {
		t.Errorf("expected warning for DOCX2HTML_MEDIA_ROT, got %q", out)
	}
	if strings.Contains(out, "DOCX2HTML_MEDIA_ROOT ") {
		t.Errorf("known variable should not warn, got %q", out)
	}
}

// ---------------------------------------------------------------------------
// TestApplyEnvConfig - Env overrides config values
// ---------------------------------------------------------------------------

func TestApplyEnvConfig(t *testing.T) {
	t.Parallel()

	t.Run("set values override", func(t *testing.T) {
		t.Parallel()
		cfg := config.DefaultConfig()
		applyEnvConfig(&envConfig{
			MediaRoot:   "/srv/media",
			DatabaseURL: "sqlite://x.db",
			Timeout:     time.Minute,
			Workers:     4,
			MaxUploadMB: 5,
		}, cfg)

		if cfg.Media.Root != "/srv/media" {
			t.Errorf("Media.Root = %q", cfg.Media.Root)
		}
		if cfg.Database.URL != "sqlite://x.db" {
			t.Errorf("Database.URL = %q", cfg.Database.URL)
		}
		if cfg.PDF.Timeout != time.Minute || cfg.PDF.Workers != 4 || cfg.Server.MaxUploadMB != 5 {
			t.Errorf("numeric overrides not applied: %+v %+v", cfg.PDF, cfg.Server)
		}
	})

	t.Run("unset values keep config", func(t *testing.T) {
		t.Parallel()
		cfg := config.DefaultConfig()
		want := *cfg
		applyEnvConfig(&envConfig{}, cfg)

		if cfg.Media != want.Media || cfg.Database != want.Database || cfg.Server != want.Server {
			t.Errorf("empty env changed config: %+v", cfg)
		}
	})
}

// ---------------------------------------------------------------------------
// TestLoadSettings - Priority chain
// ---------------------------------------------------------------------------

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "docx2html.yaml")
	yaml := "media:\n  root: from-file\n  url: /media/\nlog:\n  level: warn\nserver:\n  addr: \":7000\"\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DOCX2HTML_MEDIA_ROOT", "from-env")
	t.Setenv("DOCX2HTML_ADDR", ":7500")

	env, _, _ := testEnv()
	cfg, err := loadSettings(&commonFlags{config: cfgPath, mediaRoot: "from-flag", verbose: true}, env)
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}

	if cfg.Media.Root != "from-flag" {
		t.Errorf("Media.Root = %q, want flag value", cfg.Media.Root)
	}
	if cfg.Server.Addr != ":7500" {
		t.Errorf("Server.Addr = %q, want env value", cfg.Server.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug from --verbose", cfg.Log.Level)
	}
}

func TestLoadSettings_Errors(t *testing.T) {
	env, _, _ := testEnv()

	t.Run("missing config", func(t *testing.T) {
		_, err := loadSettings(&commonFlags{config: filepath.Join(t.TempDir(), "nope.yaml")}, env)
		if exitCodeFor(err) != ExitUsage {
			t.Errorf("missing config: err = %v, exit = %d", err, exitCodeFor(err))
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := loadSettings(&commonFlags{logLevel: "loud"}, env)
		if exitCodeFor(err) != ExitUsage {
			t.Errorf("invalid log level: err = %v, exit = %d", err, exitCodeFor(err))
		}
	})
}
