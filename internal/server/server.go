// Package server is the web interface: upload a document, review and edit
// the converted HTML, download it in several formats and browse earlier
// uploads.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	docx2html "github.com/alnah/go-docx2html"
	"github.com/alnah/go-docx2html/internal/assets"
	"github.com/alnah/go-docx2html/internal/dateutil"
	"github.com/alnah/go-docx2html/internal/metrics"
	"github.com/alnah/go-docx2html/internal/store"
)

// Server defaults.
const (
	DefaultAddr           = ":8000"
	DefaultMaxUploadBytes = 20 << 20
	DefaultReadTimeout    = 30 * time.Second
	shutdownTimeout       = 10 * time.Second
)

// Store persists uploads.
type Store interface {
	Create(ctx context.Context, u *store.Upload) error
	Get(ctx context.Context, id string) (*store.Upload, error)
	List(ctx context.Context, opts store.ListOptions) ([]store.Upload, error)
	SetOutput(ctx context.Context, id, htmlPath, archivePath string) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// PDFExporter prints an assembled document to PDF.
type PDFExporter interface {
	Export(ctx context.Context, html string) ([]byte, error)
}

// Compile-time interface checks.
var (
	_ Store       = (*store.Store)(nil)
	_ PDFExporter = (*docx2html.ExporterPool)(nil)
	_ PDFExporter = (*docx2html.PDFExporter)(nil)
)

// Config holds the HTTP settings.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	BootstrapURL   string
	StaticRoot     string // served under /static/; embedded stylesheets when empty
	DateFormat     string // dateutil format for upload dates
}

// Option configures a Server.
type Option func(*Server)

// WithPDFExporter enables GET /download/{id}/pdf.
func WithPDFExporter(p PDFExporter) Option {
	return func(s *Server) {
		s.pdf = p
	}
}

// WithLogger sets the request and error logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics records request durations and serves /metrics.
func WithMetrics(m metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithAssetLoader loads page templates from loader instead of the
// embedded set.
func WithAssetLoader(loader assets.AssetLoader) Option {
	return func(s *Server) {
		if loader != nil {
			s.loader = loader
		}
	}
}

// WithClock sets the upload timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// Server serves the web interface.
type Server struct {
	cfg     Config
	conv    *docx2html.Converter
	store   Store
	pdf     PDFExporter
	loader  assets.AssetLoader
	log     logrus.FieldLogger
	metrics metrics.Metrics
	now     func() time.Time
	pages   map[string]*template.Template
	router  chi.Router
}

// New builds a Server on conv and st. Page templates are parsed up front
// so a broken template fails here rather than on the first request.
func New(cfg Config, conv *docx2html.Converter, st Store, opts ...Option) (*Server, error) {
	if conv == nil || st == nil {
		return nil, errors.New("server: converter and store are required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.BootstrapURL == "" {
		cfg.BootstrapURL = docx2html.DefaultBootstrapURL
	}
	if cfg.DateFormat == "" {
		cfg.DateFormat = dateutil.DefaultDateFormat
	}
	if _, err := dateutil.ParseDateFormat(cfg.DateFormat); err != nil {
		return nil, err
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Server{
		cfg:    cfg,
		conv:   conv,
		store:  st,
		loader: assets.NewEmbeddedLoader(),
		log:    discard,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.pages = make(map[string]*template.Template)
	for _, name := range []string{
		assets.UploadTemplateName,
		assets.ResultTemplateName,
		assets.EditTemplateName,
		assets.ArchiveTemplateName,
	} {
		src, err := s.loader.LoadTemplate(name)
		if err != nil {
			return nil, err
		}
		tmpl, err := template.New(name).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parsing template %q: %w", name, err)
		}
		s.pages[name] = tmpl
	}

	s.router = s.routes()
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	r.Get("/", s.handleUploadForm)
	r.Post("/upload", s.handleUpload)
	r.Get("/result/{id}", s.handleResult)
	r.Get("/edit/{id}", s.handleEditForm)
	r.Post("/edit/{id}", s.handleEdit)
	r.Get("/download/{id}/{format}", s.handleDownload)
	r.Post("/upload-image", s.handleUploadImage)
	r.Get("/archive", s.handleArchive)
	r.Post("/delete/{id}", s.handleDelete)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	// Media is only served locally when the media URL is a path.
	if prefix := mediaPrefix(s.conv.MediaURL()); prefix != "" {
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(noListing{http.Dir(s.conv.MediaRoot())})))
	}

	static := http.FS(assets.StaticFS())
	if s.cfg.StaticRoot != "" {
		static = http.Dir(s.cfg.StaticRoot)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(noListing{static})))

	return r
}

func mediaPrefix(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err != nil || u.Host != "" || !strings.HasPrefix(u.Path, "/") || u.Path == "/" {
		return ""
	}
	return strings.TrimSuffix(u.Path, "/") + "/"
}

// noListing hides directory indexes from the file servers.
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}
