package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	docx2html "github.com/alnah/go-docx2html"
	"github.com/alnah/go-docx2html/internal/config"
	"github.com/alnah/go-docx2html/internal/docx"
	"github.com/alnah/go-docx2html/internal/fileutil"
	"github.com/alnah/go-docx2html/internal/metrics"
	"github.com/alnah/go-docx2html/internal/store"
)

// Sentinel errors for CLI operations.
var (
	errUsage       = errors.New("invalid usage")
	ErrWriteOutput = errors.New("failed to write output file")
)

// File permission constants.
const (
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// runMain dispatches to a command and returns the process exit code.
func runMain(args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	cmd, rest := args[1], args[2:]
	var err error
	switch cmd {
	case "convert":
		err = runConvert(ctx, rest, env)
	case "edit":
		err = runEdit(ctx, rest, env)
	case "export":
		err = runExport(ctx, rest, env)
	case "pdf":
		err = runPDF(ctx, rest, env)
	case "list":
		err = runList(ctx, rest, env)
	case "serve":
		err = runServe(ctx, rest, env)
	case "doctor":
		return runDoctorCmd(ctx, rest, env)
	case "completion":
		err = runCompletion(rest, env)
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "docx2html %s\n", Version)
		return ExitSuccess
	case "help", "-h", "--help":
		return runHelp(rest, env)
	default:
		fmt.Fprintf(env.Stderr, "unknown command: %s\n", cmd)
		printUsage(env.Stderr)
		return ExitUsage
	}

	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// usageError wraps a flag parse failure or a wrong argument count.
func usageError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %v", errUsage, err)
}

// loadSettings resolves the configuration:
// CLI flags > env vars > config file > defaults.
func loadSettings(f *commonFlags, env *Environment) (*config.Config, error) {
	envCfg := loadEnvConfig()
	warnUnknownEnvVars(env.Stderr)

	name := f.config
	if name == "" {
		name = envCfg.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		var err error
		cfg, err = config.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	applyEnvConfig(envCfg, cfg)
	mergeCommonFlags(f, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from the log settings.
func newLogger(cfg config.LogConfig, w io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(w)

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidValue, err)
	}
	log.SetLevel(lvl)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

// assetSetFor builds the document head assets from the config. Unset
// fields keep the library defaults.
func assetSetFor(cfg *config.Config) docx2html.AssetSet {
	set := docx2html.DefaultAssetSet()
	a := cfg.Assets

	if a.Version != "" {
		set.Version = a.Version
	}
	if len(a.Stylesheets) > 0 {
		set.Stylesheets = joinBase(a.BasePath, a.Stylesheets)
	}
	if len(a.Scripts) > 0 {
		set.Scripts = joinBase(a.BasePath, a.Scripts)
	}

	switch {
	case a.ProjectStylesheet != "":
		set.ProjectStylesheet = a.ProjectStylesheet
	case cfg.Static.URL != "" && cfg.Static.URL != "/static/":
		set.ProjectStylesheet = strings.TrimSuffix(cfg.Static.URL, "/") + "/css/styles.css"
	}
	return set
}

// joinBase prefixes relative asset entries with base.
func joinBase(base string, entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if base == "" || fileutil.IsURL(e) || strings.HasPrefix(e, "/") {
			out = append(out, e)
			continue
		}
		out = append(out, strings.TrimSuffix(base, "/")+"/"+e)
	}
	return out
}

// newConverter builds the library converter from the config. extraRules,
// when set, is appended to the configured style map.
func newConverter(cfg *config.Config, log logrus.FieldLogger, m metrics.Metrics, extraRules string) (*docx2html.Converter, error) {
	styleMap := cfg.StyleMap
	if strings.TrimSpace(extraRules) != "" {
		if strings.TrimSpace(styleMap) == "" {
			styleMap = docx.DefaultStyleMap
		}
		styleMap += "\n" + extraRules
	}

	opts := []docx2html.Option{
		docx2html.WithMediaRoot(cfg.Media.Root),
		docx2html.WithMediaURL(cfg.Media.URL),
		docx2html.WithAssetSet(assetSetFor(cfg)),
		docx2html.WithAssetPath(cfg.Static.Root),
		docx2html.WithStyleMap(styleMap),
		docx2html.WithUploadPathFormat(cfg.Uploads.PathFormat),
		docx2html.WithLogger(log),
	}
	if m != nil {
		opts = append(opts, docx2html.WithMetrics(m))
	}
	return docx2html.NewConverter(opts...)
}

// app bundles what most commands need.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	conv  *docx2html.Converter
	store *store.Store
}

// openApp loads the settings and opens the converter and the store.
// Call close when done.
func openApp(ctx context.Context, f *commonFlags, env *Environment, extraRules string) (*app, error) {
	cfg, err := loadSettings(f, env)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg.Log, env.Stderr)
	if err != nil {
		return nil, err
	}
	conv, err := newConverter(cfg, log, nil, extraRules)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, conv: conv, store: st}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("closing store")
	}
}

// document loads a job's record and its current HTML.
func (a *app) document(ctx context.Context, id string) (*store.Upload, string, string, error) {
	u, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, "", "", err
	}
	if u.HTMLPath == "" {
		return nil, "", "", fmt.Errorf("%w: job %s has no output", docx2html.ErrNotFound, id)
	}
	p, err := a.conv.Resolve(u.HTMLPath)
	if err != nil {
		return nil, "", "", err
	}
	content, err := a.conv.ReadHTML(p)
	if err != nil {
		return nil, "", "", err
	}
	return u, p, content, nil
}

// writeOutput writes data to path.
func writeOutput(path string, data []byte) error {
	if err := os.WriteFile(path, data, filePermissions); err != nil { // #nosec G306 -- exported documents are meant to be shared
		return fmt.Errorf("%w: %v", ErrWriteOutput, err)
	}
	return nil
}
