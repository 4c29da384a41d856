package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-docx2html/internal/config"
)

const envPrefix = "DOCX2HTML_"

// envConfig holds configuration from environment variables.
// Provides container-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath  string        // DOCX2HTML_CONFIG: config file name or path
	MediaRoot   string        // DOCX2HTML_MEDIA_ROOT: media root directory
	MediaURL    string        // DOCX2HTML_MEDIA_URL: public media prefix
	StaticRoot  string        // DOCX2HTML_STATIC_ROOT: static directory
	DatabaseURL string        // DOCX2HTML_DATABASE_URL, or DATABASE_URL
	Addr        string        // DOCX2HTML_ADDR: listen address
	LogLevel    string        // DOCX2HTML_LOG_LEVEL: debug, info, warn, error
	LogFormat   string        // DOCX2HTML_LOG_FORMAT: text, json
	Timeout     time.Duration // DOCX2HTML_TIMEOUT: PDF export timeout
	Workers     int           // DOCX2HTML_WORKERS: browser pool size
	MaxUploadMB int           // DOCX2HTML_MAX_UPLOAD_MB: upload size limit
}

// knownEnvVars lists valid DOCX2HTML_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"DOCX2HTML_CONFIG":        true,
	"DOCX2HTML_MEDIA_ROOT":    true,
	"DOCX2HTML_MEDIA_URL":     true,
	"DOCX2HTML_STATIC_ROOT":   true,
	"DOCX2HTML_DATABASE_URL":  true,
	"DOCX2HTML_ADDR":          true,
	"DOCX2HTML_LOG_LEVEL":     true,
	"DOCX2HTML_LOG_FORMAT":    true,
	"DOCX2HTML_TIMEOUT":       true,
	"DOCX2HTML_WORKERS":       true,
	"DOCX2HTML_MAX_UPLOAD_MB": true,
}

// loadEnvConfig reads configuration from environment variables.
// Malformed numbers and durations are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath:  os.Getenv("DOCX2HTML_CONFIG"),
		MediaRoot:   os.Getenv("DOCX2HTML_MEDIA_ROOT"),
		MediaURL:    os.Getenv("DOCX2HTML_MEDIA_URL"),
		StaticRoot:  os.Getenv("DOCX2HTML_STATIC_ROOT"),
		DatabaseURL: os.Getenv("DOCX2HTML_DATABASE_URL"),
		Addr:        os.Getenv("DOCX2HTML_ADDR"),
		LogLevel:    os.Getenv("DOCX2HTML_LOG_LEVEL"),
		LogFormat:   os.Getenv("DOCX2HTML_LOG_FORMAT"),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if timeout := os.Getenv("DOCX2HTML_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	if workers := os.Getenv("DOCX2HTML_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}
	if mb := os.Getenv("DOCX2HTML_MAX_UPLOAD_MB"); mb != "" {
		if n, err := strconv.Atoi(mb); err == nil && n > 0 {
			cfg.MaxUploadMB = n
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized DOCX2HTML_* variables.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig overrides config values with the environment variables
// that are set. CLI flags are applied afterwards, giving
// CLI flags > env vars > config file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.MediaRoot != "" {
		cfg.Media.Root = env.MediaRoot
	}
	if env.MediaURL != "" {
		cfg.Media.URL = env.MediaURL
	}
	if env.StaticRoot != "" {
		cfg.Static.Root = env.StaticRoot
	}
	if env.DatabaseURL != "" {
		cfg.Database.URL = env.DatabaseURL
	}
	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
	if env.Timeout > 0 {
		cfg.PDF.Timeout = env.Timeout
	}
	if env.Workers > 0 {
		cfg.PDF.Workers = env.Workers
	}
	if env.MaxUploadMB > 0 {
		cfg.Server.MaxUploadMB = env.MaxUploadMB
	}
}
