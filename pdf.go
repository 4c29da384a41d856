package docx2html

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"

	"github.com/alnah/go-docx2html/internal/assets"
	"github.com/alnah/go-docx2html/internal/fileutil"
	"github.com/alnah/go-docx2html/internal/pipeline"
	"github.com/alnah/go-docx2html/internal/process"
)

// Defaults for PDF export.
const (
	DefaultPDFTimeout  = 60 * time.Second
	DefaultChromaStyle = "friendly"
)

// languagePrefix marks the Prism language class of a code block.
const languagePrefix = "language-"

// prismToChroma maps Prism language names chroma knows under another name.
var prismToChroma = map[string]string{
	"markup": "html",
	"shell":  "bash",
	"js":     "javascript",
}

// pdfRenderer renders an HTML file to PDF bytes. Abstracted to allow
// testing without a browser.
type pdfRenderer interface {
	RenderFromFile(ctx context.Context, filePath string) ([]byte, error)
	Close() error
}

// Compile-time interface check.
var _ pdfRenderer = (*rodRenderer)(nil)

// PDFExporter prints converted documents to PDF with headless Chrome.
// It owns one browser, started on first use; it is not safe for
// concurrent use. Use ExporterPool for parallel exports.
type PDFExporter struct {
	renderer  pdfRenderer
	injector  pipeline.StyleInjector
	mediaRoot string
	mediaURL  string
	sheets    []string
	highlight bool
	style     string
	log       logrus.FieldLogger
}

// PDFOption configures a PDFExporter.
type PDFOption func(*pdfExportConfig)

type pdfExportConfig struct {
	timeout   time.Duration
	highlight bool
	style     string
}

// WithPDFTimeout sets how long a page may take to load.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithPDFTimeout(d time.Duration) PDFOption {
	if d <= 0 {
		panic("docx2html: WithPDFTimeout duration must be positive")
	}
	return func(cfg *pdfExportConfig) {
		cfg.timeout = d
	}
}

// WithHighlight turns server-side highlighting of code blocks on or off and
// selects the chroma style. An empty or unknown style uses chroma's fallback.
func WithHighlight(enabled bool, style string) PDFOption {
	return func(cfg *pdfExportConfig) {
		cfg.highlight = enabled
		cfg.style = style
	}
}

// NewPDFExporter creates an exporter reading media and stylesheets through
// conv. Chrome is not started until the first export.
func NewPDFExporter(conv *Converter, opts ...PDFOption) (*PDFExporter, error) {
	cfg := pdfExportConfig{timeout: DefaultPDFTimeout, highlight: true, style: DefaultChromaStyle}
	for _, opt := range opts {
		opt(&cfg)
	}

	var sheets []string
	for _, name := range []string{assets.ProjectStyleName, assets.PrintStyleName} {
		css, err := conv.loader.LoadStyle(name)
		if err != nil {
			return nil, fmt.Errorf("loading %s stylesheet: %w", name, err)
		}
		sheets = append(sheets, css)
	}

	return &PDFExporter{
		renderer:  newRodRenderer(cfg.timeout),
		injector:  &pipeline.StyleInjection{},
		mediaRoot: conv.cfg.mediaRoot,
		mediaURL:  conv.cfg.mediaURL,
		sheets:    sheets,
		highlight: cfg.highlight,
		style:     cfg.style,
		log:       conv.log,
	}, nil
}

// Export prints a converted document. Head assets are dropped in favor of
// inlined stylesheets, media URLs point at files under the media root and
// code blocks are highlighted server-side. The result is checked with
// pdfcpu before it is returned.
func (e *PDFExporter) Export(ctx context.Context, htmlContent string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prepared, err := e.Prepare(ctx, htmlContent)
	if err != nil {
		return nil, err
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(prepared, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pdf, err := e.renderer.RenderFromFile(ctx, tmpPath)
	if err != nil {
		return nil, err
	}

	pages, err := ValidatePDF(pdf)
	if err != nil {
		return nil, err
	}
	e.log.WithFields(logrus.Fields{"pages": pages, "bytes": len(pdf)}).Debug("PDF rendered")
	return pdf, nil
}

// Prepare returns the page handed to the browser.
func (e *PDFExporter) Prepare(ctx context.Context, htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	doc.Find("link, script").Remove()

	sheets := e.sheets
	if e.highlight {
		css, err := highlightCode(doc, e.style)
		if err != nil {
			return "", fmt.Errorf("%w: highlighting: %v", ErrPDFGeneration, err)
		}
		sheets = append(sheets[:len(sheets):len(sheets)], css)
	}

	out, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	out, err = pipeline.RewriteMediaPaths(out, e.mediaURL, e.mediaRoot)
	if err != nil {
		return "", fmt.Errorf("%w: rewriting media paths: %v", ErrPDFGeneration, err)
	}
	return e.injector.InjectStyles(ctx, out, sheets...), nil
}

// Close releases browser resources.
func (e *PDFExporter) Close() error {
	if e.renderer != nil {
		return e.renderer.Close()
	}
	return nil
}

// highlightCode replaces every pre carrying a Prism language class by
// chroma's class-based markup and returns the stylesheet for it.
func highlightCode(doc *goquery.Document, styleName string) (string, error) {
	style := styles.Get(styleName)
	formatter := chromahtml.New(chromahtml.WithClasses(true))

	var firstErr error
	doc.Find(`pre[class*="` + languagePrefix + `"]`).Each(func(_ int, s *goquery.Selection) {
		if firstErr != nil {
			return
		}
		lexer := lexers.Get(codeLanguage(s))
		if lexer == nil {
			lexer = lexers.Fallback
		}
		it, err := chroma.Coalesce(lexer).Tokenise(nil, s.Text())
		if err != nil {
			firstErr = err
			return
		}
		var buf strings.Builder
		if err := formatter.Format(&buf, style, it); err != nil {
			firstErr = err
			return
		}
		s.ReplaceWithHtml(buf.String())
	})
	if firstErr != nil {
		return "", firstErr
	}

	var css strings.Builder
	if err := formatter.WriteCSS(&css, style); err != nil {
		return "", err
	}
	return css.String(), nil
}

// codeLanguage reads the language from the first language-* class of the
// pre element or its code child.
func codeLanguage(pre *goquery.Selection) string {
	for _, sel := range []*goquery.Selection{pre, pre.Children().Filter("code")} {
		class, _ := sel.Attr("class")
		for _, c := range strings.Fields(class) {
			if lang, ok := strings.CutPrefix(c, languagePrefix); ok {
				if mapped, ok := prismToChroma[lang]; ok {
					return mapped
				}
				return lang
			}
		}
	}
	return ""
}

// ValidatePDF parses and validates a PDF with pdfcpu and returns its page
// count.
func ValidatePDF(data []byte) (int, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if ctx.PageCount < 1 {
		return 0, fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}
	return ctx.PageCount, nil
}

// ---------------------------------------------------------------------------
// Rod renderer
// ---------------------------------------------------------------------------

// A4 page dimensions in inches; print.css sets the margins.
const (
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
)

// rodRenderer implements pdfRenderer using go-rod.
// Rod automatically downloads Chromium on first run if not found.
type rodRenderer struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	timeout  time.Duration
}

// newRodRenderer creates a rodRenderer with the given timeout.
func newRodRenderer(timeout time.Duration) *rodRenderer {
	return &rodRenderer{timeout: timeout}
}

// ensureBrowser lazily connects to the browser.
func (r *rodRenderer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		l.Kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	r.launcher = l

	r.browser = rod.New().ControlURL(u)
	if err := r.browser.Connect(); err != nil {
		r.browser = nil
		r.kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// Close releases browser resources. Chrome's renderer processes are killed
// with the browser's process group.
func (r *rodRenderer) Close() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	r.kill()
	return err
}

func (r *rodRenderer) kill() {
	if r.launcher == nil {
		return
	}
	process.KillProcessGroup(r.launcher.PID())
	r.launcher.Kill()
	r.launcher = nil
}

// RenderFromFile opens a local HTML file in headless Chrome and renders it to PDF.
// Returns explicit errors instead of panicking when browser operations fail.
func (r *rodRenderer) RenderFromFile(ctx context.Context, filePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: "file://" + filePath})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PaperWidth:        floatPtr(paperWidthInches),
		PaperHeight:       floatPtr(paperHeightInches),
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdfBuf, nil
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
