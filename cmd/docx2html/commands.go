package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	docx2html "github.com/alnah/go-docx2html"
	"github.com/alnah/go-docx2html/internal/store"
)

// ---------------------------------------------------------------------------
// convert
// ---------------------------------------------------------------------------

// runConvert stores a document under the media root, records it and
// converts it. On failure nothing is left behind.
func runConvert(ctx context.Context, rest []string, env *Environment) error {
	f, args, err := parseConvertFlags(rest, env.Stderr)
	if err != nil {
		return usageError(err)
	}
	if len(args) != 1 {
		return usageError(errors.New("convert takes exactly one document"))
	}
	input := args[0]

	var rules string
	if f.styleMap != "" {
		data, err := os.ReadFile(f.styleMap) // #nosec G304 -- user-provided path
		if err != nil {
			return fmt.Errorf("reading style map: %w", err)
		}
		rules = string(data)
	}

	a, err := openApp(ctx, &f.common, env, rules)
	if err != nil {
		return err
	}
	defer a.close()

	if f.jobID != "" {
		if _, err := a.store.Get(ctx, f.jobID); err == nil {
			return fmt.Errorf("%w: job %s already exists", errUsage, f.jobID)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	data, err := os.ReadFile(input) // #nosec G304 -- user-provided path
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}

	start := time.Now()
	job, err := a.conv.SaveUpload(filepath.Base(input), data)
	if err != nil {
		return err
	}
	if f.jobID != "" {
		job.ID = f.jobID
	}

	rel, err := filepath.Rel(a.conv.MediaRoot(), job.SourcePath)
	if err != nil {
		rel = job.SourcePath
	}
	upload := &store.Upload{
		ID:           job.ID,
		DocumentPath: filepath.ToSlash(rel),
		OriginalName: job.OriginalFilename,
		UploadedAt:   env.Now(),
	}
	if err := a.store.Create(ctx, upload); err != nil {
		_ = os.Remove(job.SourcePath)
		return err
	}

	res, err := a.conv.Convert(ctx, job)
	if err == nil {
		err = a.store.SetOutput(ctx, job.ID, res.HTMLRel, res.ArchiveRel)
	}
	if err != nil {
		a.discard(upload)
		return err
	}

	if f.common.quiet {
		fmt.Fprintln(env.Stdout, job.ID)
		return nil
	}
	fmt.Fprintf(env.Stdout, "converted %s (%v)\n", input, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(env.Stdout, "  job:     %s\n", job.ID)
	fmt.Fprintf(env.Stdout, "  html:    %s\n", res.HTMLPath)
	fmt.Fprintf(env.Stdout, "  archive: %s (%d images)\n", res.ArchivePath, res.Images)
	if res.Stats.CodeBlocks > 0 || res.Stats.Tables > 0 {
		fmt.Fprintf(env.Stdout, "  blocks:  %d code, %d merged, %d tables\n", res.Stats.CodeBlocks, res.Stats.Merged, res.Stats.Tables)
	}
	return nil
}

// discard removes a failed upload's files and record.
func (a *app) discard(u *store.Upload) {
	log := a.log.WithField("job_id", u.ID)
	if err := a.conv.RemoveJob(u.ID); err != nil {
		log.WithError(err).Warn("removing job output")
	}
	if p, err := a.conv.Resolve(u.DocumentPath); err == nil {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Warn("removing stored document")
		}
	}
	// The command context may already be canceled.
	if err := a.store.Delete(context.Background(), u.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.WithError(err).Warn("removing upload record")
	}
}

// ---------------------------------------------------------------------------
// edit
// ---------------------------------------------------------------------------

func runEdit(ctx context.Context, rest []string, env *Environment) error {
	f, args, err := parseEditFlags(rest, env.Stderr)
	if err != nil {
		return usageError(err)
	}
	if len(args) != 2 {
		return usageError(errors.New("edit takes a job ID and an HTML file"))
	}
	id, input := args[0], args[1]

	edited, err := os.ReadFile(input) // #nosec G304 -- user-provided path
	if err != nil {
		return fmt.Errorf("reading edited document: %w", err)
	}

	a, err := openApp(ctx, f, env, "")
	if err != nil {
		return err
	}
	defer a.close()

	u, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if u.HTMLPath == "" {
		return fmt.Errorf("%w: job %s has no output", docx2html.ErrNotFound, id)
	}
	p, err := a.conv.Resolve(u.HTMLPath)
	if err != nil {
		return err
	}
	stats, err := a.conv.SaveEdited(ctx, p, string(edited))
	if err != nil {
		return err
	}

	if !f.quiet {
		fmt.Fprintf(env.Stdout, "saved %s (%d code blocks, %d merged)\n", p, stats.CodeBlocks, stats.Merged)
	}
	return nil
}

// ---------------------------------------------------------------------------
// export
// ---------------------------------------------------------------------------

func runExport(ctx context.Context, rest []string, env *Environment) error {
	f, args, err := parseExportFlags(rest, env.Stderr)
	if err != nil {
		return usageError(err)
	}
	if len(args) != 1 {
		return usageError(errors.New("export takes exactly one job ID"))
	}

	a, err := openApp(ctx, &f.common, env, "")
	if err != nil {
		return err
	}
	defer a.close()

	_, p, content, err := a.document(ctx, args[0])
	if err != nil {
		return err
	}
	out, ext, err := a.conv.Export(content, docx2html.ExportFormat(f.format))
	if err != nil {
		return err
	}

	dest := f.output
	if dest == "" {
		dest = documentStem(p) + ext
	}
	if err := writeOutput(dest, []byte(out)); err != nil {
		return err
	}
	if !f.common.quiet {
		fmt.Fprintf(env.Stdout, "wrote %s\n", dest)
	}
	return nil
}

func documentStem(htmlPath string) string {
	return strings.TrimSuffix(filepath.Base(htmlPath), filepath.Ext(htmlPath))
}

// ---------------------------------------------------------------------------
// pdf
// ---------------------------------------------------------------------------

func runPDF(ctx context.Context, rest []string, env *Environment) error {
	f, args, err := parsePDFFlags(rest, env.Stderr)
	if err != nil {
		return usageError(err)
	}
	if len(args) != 1 {
		return usageError(errors.New("pdf takes exactly one job ID"))
	}
	timeout, err := parseTimeout(f.timeout)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, &f.common, env, "")
	if err != nil {
		return err
	}
	defer a.close()

	_, p, content, err := a.document(ctx, args[0])
	if err != nil {
		return err
	}

	if timeout > 0 {
		a.cfg.PDF.Timeout = timeout
	}
	if f.chromaStyle != "" {
		a.cfg.PDF.ChromaStyle = f.chromaStyle
	}
	if f.noHighlight {
		a.cfg.PDF.Highlight = false
	}

	exporter, err := docx2html.NewPDFExporter(a.conv, pdfOptions(a.cfg.PDF.Timeout, a.cfg.PDF.Highlight, a.cfg.PDF.ChromaStyle)...)
	if err != nil {
		return err
	}
	defer func() {
		if err := exporter.Close(); err != nil {
			a.log.WithError(err).Warn("closing browser")
		}
	}()

	start := time.Now()
	data, err := exporter.Export(ctx, content)
	if err != nil {
		return err
	}

	dest := f.output
	if dest == "" {
		dest = documentStem(p) + ".pdf"
	}
	if err := writeOutput(dest, data); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{"path": dest, "bytes": len(data)}).Debug("PDF written")
	if !f.common.quiet {
		fmt.Fprintf(env.Stdout, "wrote %s (%v)\n", dest, time.Since(start).Round(time.Millisecond))
	}
	return nil
}

// parseTimeout parses a --timeout value. Empty means unset.
func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: invalid timeout %q (use e.g. 30s, 2m)", errUsage, s)
	}
	return d, nil
}

func pdfOptions(timeout time.Duration, highlight bool, style string) []docx2html.PDFOption {
	opts := []docx2html.PDFOption{docx2html.WithHighlight(highlight, style)}
	if timeout > 0 {
		opts = append(opts, docx2html.WithPDFTimeout(timeout))
	}
	return opts
}

// ---------------------------------------------------------------------------
// list
// ---------------------------------------------------------------------------

func runList(ctx context.Context, rest []string, env *Environment) error {
	f, args, err := parseListFlags(rest, env.Stderr)
	if err != nil {
		return usageError(err)
	}
	if len(args) != 0 {
		return usageError(errors.New("list takes no arguments"))
	}

	a, err := openApp(ctx, &f.common, env, "")
	if err != nil {
		return err
	}
	defer a.close()

	uploads, err := a.store.List(ctx, store.ListOptions{Query: f.query, Sort: f.sort, Limit: f.limit})
	if err != nil {
		return err
	}
	for _, u := range uploads {
		fmt.Fprintf(env.Stdout, "%-36s  %s  %s\n", u.ID, u.UploadedAt.Local().Format("2006-01-02 15:04"), u.OriginalName)
	}
	return nil
}
