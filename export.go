package docx2html

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"

	"github.com/alnah/go-docx2html/internal/assets"
)

// DefaultBootstrapURL styles the standalone download page.
const DefaultBootstrapURL = "https://cdn.jsdelivr.net/npm/bootstrap@5.3.0/dist/css/bootstrap.min.css"

// standaloneTitle is the title of every downloaded page.
const standaloneTitle = "Converted Document"

// ExportFormat names a download representation of a converted document.
type ExportFormat string

// Supported export formats.
const (
	ExportHTML     ExportFormat = "html"
	ExportMarkdown ExportFormat = "md"
)

// downloadPage is the data of the download template.
type downloadPage struct {
	Title        string
	BootstrapURL string
	Stylesheets  []string
	CSS          template.CSS
	Body         template.HTML
	Scripts      []string
}

// Export renders a converted document into format. It returns the content
// and the file extension to download it with.
func (c *Converter) Export(htmlContent string, format ExportFormat) (content, ext string, err error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			status := "ok"
			if err != nil {
				status = "error"
			}
			c.metrics.ObserveExport(string(format), status, time.Since(start).Seconds())
		}
	}()

	switch format {
	case ExportHTML:
		content, err = c.StandaloneHTML(htmlContent)
		return content, ".html", err
	case ExportMarkdown:
		content, err = ToMarkdown(htmlContent)
		return content, ".md", err
	}
	return "", "", fmt.Errorf("%w: %q", ErrExportFormat, format)
}

// StandaloneHTML wraps the body of a converted document in a page that
// renders without the server: Bootstrap and the Prism assets from the CDN,
// the project stylesheet inlined, the body inside a centered container.
func (c *Converter) StandaloneHTML(htmlContent string) (string, error) {
	body, err := bodyHTML(htmlContent)
	if err != nil {
		return "", err
	}

	css, err := c.loader.LoadStyle(assets.ProjectStyleName)
	if err != nil {
		return "", fmt.Errorf("loading project stylesheet: %w", err)
	}
	src, err := c.loader.LoadTemplate(assets.DownloadTemplateName)
	if err != nil {
		return "", fmt.Errorf("loading download template: %w", err)
	}
	tmpl, err := template.New(assets.DownloadTemplateName).Parse(src)
	if err != nil {
		return "", fmt.Errorf("parsing download template: %w", err)
	}

	// The project stylesheet is inlined, so only CDN sheets are linked.
	sheets := c.cfg.assets.StylesheetURLs()
	if n := len(sheets); n > 0 && c.cfg.assets.ProjectStylesheet != "" {
		sheets = sheets[:n-1]
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, downloadPage{
		Title:        standaloneTitle,
		BootstrapURL: DefaultBootstrapURL,
		Stylesheets:  sheets,
		CSS:          template.CSS(css),   // #nosec G203 -- project stylesheet
		Body:         template.HTML(body), // #nosec G203 -- document body
		Scripts:      c.cfg.assets.ScriptURLs(),
	})
	if err != nil {
		return "", fmt.Errorf("rendering download template: %w", err)
	}
	return buf.String(), nil
}

// ToMarkdown converts the body of a converted document to CommonMark with
// GFM tables.
func ToMarkdown(htmlContent string) (string, error) {
	body, err := bodyHTML(htmlContent)
	if err != nil {
		return "", err
	}
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	md, err := conv.ConvertString(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMarkdownExport, err)
	}
	return strings.TrimSpace(md) + "\n", nil
}

// bodyHTML returns the inner HTML of the body element.
func bodyHTML(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	body, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	return strings.TrimSpace(body), nil
}
