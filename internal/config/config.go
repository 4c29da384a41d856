package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-docx2html/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength     = 4096
	MaxURLLength      = 2048
	MaxVersionLength  = 50
	MaxFormatLength   = 100
	MaxStyleMapLength = 64 << 10
	MaxAddrLength     = 255
	MaxStyleLength    = 50
)

// Limits on numeric settings.
const (
	MaxUploadMB   = 512
	MaxPDFWorkers = 32
)

// Config holds all settings of the converter, the CLI and the server.
type Config struct {
	Media    MediaConfig    `yaml:"media"`
	Static   StaticConfig   `yaml:"static"`
	Assets   AssetsConfig   `yaml:"assets"`
	StyleMap string         `yaml:"styleMap"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	PDF      PDFConfig      `yaml:"pdf"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Log      LogConfig      `yaml:"log"`
}

// MediaConfig locates converted output on disk and on the web.
type MediaConfig struct {
	Root string `yaml:"root"` // filesystem root for uploads and output
	URL  string `yaml:"url"`  // public prefix, e.g. "/media/"
}

// StaticConfig locates the project stylesheet.
type StaticConfig struct {
	Root string `yaml:"root"` // filesystem root holding css/styles.css; empty = embedded
	URL  string `yaml:"url"`  // public prefix, e.g. "/static/"
}

// AssetsConfig selects the highlighter assets linked from every document.
type AssetsConfig struct {
	BasePath          string   `yaml:"basePath"` // CDN base with {version}
	Version           string   `yaml:"version"`
	Stylesheets       []string `yaml:"stylesheets"`
	Scripts           []string `yaml:"scripts"`
	ProjectStylesheet string   `yaml:"projectStylesheet"`
}

// DatabaseConfig selects the upload store.
type DatabaseConfig struct {
	URL string `yaml:"url"` // sqlite://path, file path or postgres://...
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr        string        `yaml:"addr"`
	MaxUploadMB int           `yaml:"maxUploadMB"`
	ReadTimeout time.Duration `yaml:"readTimeout"`
}

// PDFConfig holds PDF export settings.
type PDFConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	Highlight   bool          `yaml:"highlight"`
	ChromaStyle string        `yaml:"chromaStyle"`
	Workers     int           `yaml:"workers"`
}

// UploadsConfig controls where uploaded documents are stored.
type UploadsConfig struct {
	PathFormat string `yaml:"pathFormat"` // dateutil path format, e.g. "YYYY/MM/DD"
}

// ArchiveConfig controls the archive listing.
type ArchiveConfig struct {
	DateFormat string `yaml:"dateFormat"` // dateutil format for upload dates
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Validate checks field lengths and enumerations. Called by LoadConfig and
// available to callers that build a Config by hand.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"media.root", c.Media.Root, MaxPathLength},
		{"media.url", c.Media.URL, MaxURLLength},
		{"static.root", c.Static.Root, MaxPathLength},
		{"static.url", c.Static.URL, MaxURLLength},
		{"assets.basePath", c.Assets.BasePath, MaxURLLength},
		{"assets.version", c.Assets.Version, MaxVersionLength},
		{"assets.projectStylesheet", c.Assets.ProjectStylesheet, MaxURLLength},
		{"styleMap", c.StyleMap, MaxStyleMapLength},
		{"database.url", c.Database.URL, MaxURLLength},
		{"server.addr", c.Server.Addr, MaxAddrLength},
		{"pdf.chromaStyle", c.PDF.ChromaStyle, MaxStyleLength},
		{"uploads.pathFormat", c.Uploads.PathFormat, MaxFormatLength},
		{"archive.dateFormat", c.Archive.DateFormat, MaxFormatLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}
	for i, s := range c.Assets.Stylesheets {
		if err := validateFieldLength(fmt.Sprintf("assets.stylesheets[%d]", i), s, MaxURLLength); err != nil {
			return err
		}
	}
	for i, s := range c.Assets.Scripts {
		if err := validateFieldLength(fmt.Sprintf("assets.scripts[%d]", i), s, MaxURLLength); err != nil {
			return err
		}
	}

	if c.Media.URL != "" && !strings.HasSuffix(c.Media.URL, "/") {
		return fmt.Errorf("%w: media.url must end with '/', got %q", ErrInvalidValue, c.Media.URL)
	}
	if c.Server.MaxUploadMB < 0 || c.Server.MaxUploadMB > MaxUploadMB {
		return fmt.Errorf("%w: server.maxUploadMB must be between 0 and %d, got %d", ErrInvalidValue, MaxUploadMB, c.Server.MaxUploadMB)
	}
	if c.PDF.Workers < 0 || c.PDF.Workers > MaxPDFWorkers {
		return fmt.Errorf("%w: pdf.workers must be between 0 and %d, got %d", ErrInvalidValue, MaxPDFWorkers, c.PDF.Workers)
	}
	if c.PDF.Timeout < 0 {
		return fmt.Errorf("%w: pdf.timeout must not be negative", ErrInvalidValue)
	}
	if c.Log.Level != "" {
		switch strings.ToLower(c.Log.Level) {
		case "debug", "info", "warn", "warning", "error":
		default:
			return fmt.Errorf("%w: log.level %q (must be debug, info, warn or error)", ErrInvalidValue, c.Log.Level)
		}
	}
	if c.Log.Format != "" {
		switch strings.ToLower(c.Log.Format) {
		case "text", "json":
		default:
			return fmt.Errorf("%w: log.format %q (must be text or json)", ErrInvalidValue, c.Log.Format)
		}
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns the settings used when no config file is given.
// Empty asset fields fall back to the library's default asset set.
func DefaultConfig() *Config {
	return &Config{
		Media:    MediaConfig{Root: "media", URL: "/media/"},
		Static:   StaticConfig{URL: "/static/"},
		Database: DatabaseConfig{URL: "sqlite://docx2html.db"},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8000",
			MaxUploadMB: 50,
			ReadTimeout: 30 * time.Second,
		},
		PDF: PDFConfig{
			Timeout:     60 * time.Second,
			Highlight:   true,
			ChromaStyle: "friendly",
			Workers:     0,
		},
		Uploads: UploadsConfig{PathFormat: "YYYY/MM/DD"},
		Archive: ArchiveConfig{DateFormat: "YYYY-MM-DD HH:mm"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's searched in the current directory then the user config
// directory. Keys absent from the file keep their DefaultConfig values.
// Returns an error if the file is not found.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !isFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := yamlutil.ReadFileStrict(configPath, cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name.
// Extensions: .yaml, .yml. Locations: current directory, then
// <user config dir>/go-docx2html/.
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	tried := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		local := name + ext
		if fileExists(local) {
			return local, nil
		}
		tried = append(tried, local)
	}

	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(dir, "go-docx2html", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			tried = append(tried, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
