package main

import (
	"io"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-docx2html/internal/config"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config    string
	mediaRoot string
	database  string
	logLevel  string
	logFormat string
	quiet     bool
	verbose   bool
}

// convertFlags holds flags for the convert command.
type convertFlags struct {
	common   commonFlags
	jobID    string
	styleMap string // path to a style map file
}

// pdfFlags holds flags for the pdf command.
type pdfFlags struct {
	common      commonFlags
	output      string
	timeout     string
	noHighlight bool
	chromaStyle string
}

// exportFlags holds flags for the export command.
type exportFlags struct {
	common commonFlags
	format string
	output string
}

// listFlags holds flags for the list command.
type listFlags struct {
	common commonFlags
	query  string
	sort   string
	limit  uint64
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common     commonFlags
	addr       string
	workers    int
	staticRoot string
}

// doctorFlags holds flags for the doctor command.
type doctorFlags struct {
	common commonFlags
	json   bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVar(&f.mediaRoot, "media-root", "", "directory for uploads and converted output")
	fs.StringVar(&f.database, "database", "", "database URL (sqlite://path or postgres://...)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: text, json")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
}

// newFlagSet creates a FlagSet that reports parse errors to the caller
// and prints usage to w.
func newFlagSet(name string, w io.Writer, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() { usage(w) }
	return fs
}

// Flag set builders register a command's flags on a fresh FlagSet. The
// parsers and the completion generator share them.

func convertFlagSet(f *convertFlags, w io.Writer) *flag.FlagSet {
	fs := newFlagSet("convert", w, printConvertUsage)
	fs.StringVar(&f.jobID, "job-id", "", "job ID (default: random UUID)")
	fs.StringVar(&f.styleMap, "style-map", "", "file with extra DOCX style map rules")
	addCommonFlags(fs, &f.common)
	return fs
}

func editFlagSet(f *commonFlags, w io.Writer) *flag.FlagSet {
	fs := newFlagSet("edit", w, printEditUsage)
	addCommonFlags(fs, f)
	return fs
}

func pdfFlagSet(f *pdfFlags, w io.Writer) *flag.FlagSet {
	fs := newFlagSet("pdf", w, printPDFUsage)
	fs.StringVarP(&f.output, "output", "o", "", "output PDF path (default: <name>.pdf)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "PDF generation timeout (e.g., 30s, 2m)")
	fs.BoolVar(&f.noHighlight, "no-highlight", false, "disable code highlighting")
	fs.StringVar(&f.chromaStyle, "chroma-style", "", "highlighting style name")
	addCommonFlags(fs, &f.common)
	return fs
}

func exportFlagSet(f *exportFlags, w io.Writer) *flag.FlagSet {
	fs := newFlagSet("export", w, printExportUsage)
	fs.StringVarP(&f.format, "format", "f", "html", "export format: html, md")
	fs.StringVarP(&f.output, "output", "o", "", "output path (default: <name>.<ext>)")
	addCommonFlags(fs, &f.common)
	return fs
}

func listFlagSet(f *listFlags, w io.Writer) *flag.FlagSet {
	fs := newFlagSet("list", w, printListUsage)
	fs.StringVar(&f.query, "query", "", "filter by name")
	fs.StringVar(&f.sort, "sort", "", "sort key: uploaded_at, original_name (prefix - for descending)")
	fs.Uint64Var(&f.limit, "limit", 0, "maximum rows (0 = all)")
	addCommonFlags(fs, &f.common)
	return fs
}

func serveFlagSet(f *serveFlags, w io.Writer) *flag.FlagSet {
	fs := newFlagSet("serve", w, printServeUsage)
	fs.StringVarP(&f.addr, "addr", "a", "", "listen address")
	fs.IntVarP(&f.workers, "workers", "w", 0, "PDF browser pool size (0 = auto)")
	fs.StringVar(&f.staticRoot, "static-root", "", "directory served under /static/")
	addCommonFlags(fs, &f.common)
	return fs
}

func doctorFlagSet(f *doctorFlags, w io.Writer) *flag.FlagSet {
	fs := newFlagSet("doctor", w, printDoctorUsage)
	fs.BoolVar(&f.json, "json", false, "print results as JSON")
	addCommonFlags(fs, &f.common)
	return fs
}

func parseConvertFlags(args []string, w io.Writer) (*convertFlags, []string, error) {
	f := &convertFlags{}
	fs := convertFlagSet(f, w)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

func parseEditFlags(args []string, w io.Writer) (*commonFlags, []string, error) {
	f := &commonFlags{}
	fs := editFlagSet(f, w)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

func parsePDFFlags(args []string, w io.Writer) (*pdfFlags, []string, error) {
	f := &pdfFlags{}
	fs := pdfFlagSet(f, w)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

func parseExportFlags(args []string, w io.Writer) (*exportFlags, []string, error) {
	f := &exportFlags{}
	fs := exportFlagSet(f, w)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

func parseListFlags(args []string, w io.Writer) (*listFlags, []string, error) {
	f := &listFlags{}
	fs := listFlagSet(f, w)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

func parseServeFlags(args []string, w io.Writer) (*serveFlags, []string, error) {
	f := &serveFlags{}
	fs := serveFlagSet(f, w)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

func parseDoctorFlags(args []string, w io.Writer) (*doctorFlags, []string, error) {
	f := &doctorFlags{}
	fs := doctorFlagSet(f, w)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// mergeCommonFlags merges CLI flags into config. CLI values override
// config and environment values.
func mergeCommonFlags(f *commonFlags, cfg *config.Config) {
	if f.mediaRoot != "" {
		cfg.Media.Root = f.mediaRoot
	}
	if f.database != "" {
		cfg.Database.URL = f.database
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
	if f.quiet {
		cfg.Log.Level = "error"
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
}
