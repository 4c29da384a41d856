package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	docx2html "github.com/alnah/go-docx2html"
	"github.com/alnah/go-docx2html/internal/assets"
	"github.com/alnah/go-docx2html/internal/metrics"
	"github.com/alnah/go-docx2html/internal/server"
	"github.com/alnah/go-docx2html/internal/store"
)

// runServe starts the web interface and blocks until interrupted.
func runServe(ctx context.Context, rest []string, env *Environment) error {
	f, args, err := parseServeFlags(rest, env.Stderr)
	if err != nil {
		return usageError(err)
	}
	if len(args) != 0 {
		return usageError(errors.New("serve takes no arguments"))
	}

	cfg, err := loadSettings(&f.common, env)
	if err != nil {
		return err
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.workers != 0 {
		cfg.PDF.Workers = f.workers
	}
	if f.staticRoot != "" {
		cfg.Static.Root = f.staticRoot
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg.Log, env.Stderr)
	if err != nil {
		return err
	}
	m := metrics.NewMetrics(Version)

	conv, err := newConverter(cfg, log, m, "")
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.WithError(err).Warn("closing store")
		}
	}()

	// Browsers start on first use, so a host without Chrome still serves
	// everything but PDF downloads.
	pdfOpts := pdfOptions(cfg.PDF.Timeout, cfg.PDF.Highlight, cfg.PDF.ChromaStyle)
	pool := docx2html.NewExporterPool(docx2html.ResolvePoolSize(cfg.PDF.Workers), func() (*docx2html.PDFExporter, error) {
		return docx2html.NewPDFExporter(conv, pdfOpts...)
	})
	defer func() {
		if err := pool.Close(); err != nil {
			log.WithError(err).Warn("closing browser pool")
		}
	}()

	opts := []server.Option{
		server.WithPDFExporter(pool),
		server.WithLogger(log),
		server.WithMetrics(m),
		server.WithClock(env.Now),
	}
	if cfg.Static.Root != "" {
		loader, err := assets.NewAssetResolver(cfg.Static.Root)
		if err != nil {
			return fmt.Errorf("loading page templates: %w", err)
		}
		opts = append(opts, server.WithAssetLoader(loader))
	}

	srv, err := server.New(server.Config{
		Addr:           cfg.Server.Addr,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		ReadTimeout:    cfg.Server.ReadTimeout,
		StaticRoot:     cfg.Static.Root,
		DateFormat:     cfg.Archive.DateFormat,
	}, conv, st, opts...)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"addr":       cfg.Server.Addr,
		"media_root": conv.MediaRoot(),
		"pdf_pool":   pool.Size(),
	}).Info("serving")
	return srv.ListenAndServe(ctx)
}
