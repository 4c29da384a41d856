package docx2html

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/alnah/go-docx2html/internal/metrics"
	"github.com/alnah/go-docx2html/internal/pipeline"
)

// Job identifies one conversion. Its output lives in
// <media root>/output/<ID>/.
type Job struct {
	ID               string
	SourcePath       string // document on disk, read when Data is nil
	OriginalFilename string // decides the output names and the input format
	Data             []byte
}

// NewJob creates a job with a fresh random ID for the document at path.
func NewJob(path, originalFilename string) Job {
	if originalFilename == "" {
		originalFilename = filepath.Base(path)
	}
	return Job{
		ID:               uuid.NewString(),
		SourcePath:       path,
		OriginalFilename: originalFilename,
	}
}

// Format reports the input format by file extension.
func (j Job) Format() Format {
	name := j.OriginalFilename
	if name == "" {
		name = j.SourcePath
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx":
		return FormatDOCX
	case ".md", ".markdown":
		return FormatMarkdown
	}
	return ""
}

// Format names an accepted input format.
type Format string

// Accepted input formats.
const (
	FormatDOCX     Format = "docx"
	FormatMarkdown Format = "markdown"
)

// Result describes the files a conversion produced.
type Result struct {
	Job Job

	// Absolute paths of the written files.
	HTMLPath    string
	ArchivePath string

	// Paths relative to the media root, slash separated.
	HTMLRel    string
	ArchiveRel string

	HTMLFilename    string
	ArchiveFilename string

	HTML   string
	Images int
	Stats  Stats
}

// Stats counts what normalization changed.
type Stats struct {
	Images     int
	CodeBlocks int
	Merged     int
	Tables     int
	Cells      int
	Unwrapped  int
}

func toStats(s pipeline.Stats) Stats {
	return Stats(s)
}

// AssetSet lists the head assets of assembled documents. Every URL may
// contain {version}, replaced by Version.
type AssetSet = pipeline.AssetSet

// DefaultAssetSet returns the Prism 1.29.0 assets and the project stylesheet.
func DefaultAssetSet() AssetSet {
	return pipeline.DefaultAssetSet()
}

// RawConverter turns document bytes into raw body HTML.
type RawConverter = pipeline.RawConverter

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	mediaRoot        string
	mediaURL         string
	styleMap         string
	assetPath        string
	uploadPathFormat string
	assets           AssetSet
	now              func() time.Time
}

// Defaults for a Converter built without options.
const (
	DefaultMediaRoot = "media"
	DefaultMediaURL  = "/media/"
)

// WithMediaRoot sets the directory job output is written under.
func WithMediaRoot(dir string) Option {
	return func(c *Converter) {
		c.cfg.mediaRoot = dir
	}
}

// WithMediaURL sets the URL prefix the media root is served under.
// A missing trailing slash is added.
func WithMediaURL(u string) Option {
	return func(c *Converter) {
		if u != "" && !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.cfg.mediaURL = u
	}
}

// WithAssetSet sets the head assets of assembled documents.
func WithAssetSet(a AssetSet) Option {
	return func(c *Converter) {
		c.cfg.assets = a
	}
}

// WithAssetPath loads stylesheets and page templates from dir, falling back
// to the embedded ones for names dir does not provide.
func WithAssetPath(dir string) Option {
	return func(c *Converter) {
		c.cfg.assetPath = dir
	}
}

// WithStyleMap sets the style map rules handed to the raw converter.
// An empty map selects the built-in rules.
func WithStyleMap(rules string) Option {
	return func(c *Converter) {
		c.cfg.styleMap = rules
	}
}

// WithUploadPathFormat sets the date format of the uploads/<date>/
// directory documents are stored under.
func WithUploadPathFormat(format string) Option {
	return func(c *Converter) {
		c.cfg.uploadPathFormat = format
	}
}

// WithRawConverter replaces the raw converter used for format.
func WithRawConverter(format Format, rc RawConverter) Option {
	return func(c *Converter) {
		c.converters[format] = rc
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Converter) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics records conversion metrics.
func WithMetrics(m metrics.Metrics) Option {
	return func(c *Converter) {
		c.metrics = m
	}
}

// WithNow sets the clock used for upload paths.
func WithNow(now func() time.Time) Option {
	return func(c *Converter) {
		if now != nil {
			c.cfg.now = now
		}
	}
}
