package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/alnah/go-docx2html/internal/htmltree"
)

// RawConverter turns document bytes into raw body HTML. Each embedded image
// is passed to onImage before ToHTML returns; the string it returns is used
// as the img src.
type RawConverter interface {
	ToHTML(ctx context.Context, doc []byte, styleMap string, onImage ImageHandler) (string, error)
}

var (
	crlfOrCR           = regexp.MustCompile(`\r\n?`)
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
)

// GoldmarkConverter converts Markdown uploads to raw HTML using goldmark.
// The style map does not apply to Markdown and is ignored.
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// Compile-time interface check.
var _ RawConverter = (*GoldmarkConverter)(nil)

// NewGoldmarkConverter creates a GoldmarkConverter with GFM extensions.
func NewGoldmarkConverter() *GoldmarkConverter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,      // Tables, strikethrough, autolinks, task lists
			extension.Footnote, // [^1] footnotes
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(), // Each source line stays a line, as in a word processor
			html.WithXHTML(),
			// Raw HTML in Markdown is omitted rather than passed through.
		),
	)
	return &GoldmarkConverter{md: md}
}

// ToHTML converts Markdown to a body fragment. Inline data: images are
// decoded and handed to onImage. Goldmark has no context support, so the
// conversion runs in a goroutine raced against ctx.
func (c *GoldmarkConverter) ToHTML(ctx context.Context, doc []byte, _ string, onImage ImageHandler) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		src := preprocessMarkdown(string(doc))
		if err := c.md.Convert([]byte(src), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		out, err := extractDataImages(buf.String(), onImage)
		done <- result{html: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// preprocessMarkdown normalizes line endings and compresses blank lines.
func preprocessMarkdown(content string) string {
	content = crlfOrCR.ReplaceAllString(content, "\n")
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

// extractDataImages passes every img carrying a base64 data: URI to onImage
// and substitutes the returned src. Without a handler the HTML is returned
// unchanged.
func extractDataImages(content string, onImage ImageHandler) (string, error) {
	if onImage == nil || !strings.Contains(content, "data:") {
		return content, nil
	}

	root, err := htmltree.ParseBody(content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}
	for _, img := range htmltree.FindAll(root, "img") {
		src, _ := img.Attr("src")
		ct, data, ok := decodeDataURI(src)
		if !ok {
			continue
		}
		u, err := onImage(&ExtractedImage{Key: src, Data: data, ContentType: ct})
		if err != nil {
			return "", err
		}
		img.SetAttr("src", u)
	}

	var sb strings.Builder
	if err := htmltree.RenderChildren(&sb, root); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}
	return sb.String(), nil
}

// decodeDataURI decodes data:<type>;base64,<payload>. Goldmark percent-encodes
// some URL characters, so the payload is unescaped first.
func decodeDataURI(src string) (contentType string, data []byte, ok bool) {
	rest, found := strings.CutPrefix(src, "data:")
	if !found {
		return "", nil, false
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found || !strings.HasSuffix(meta, ";base64") {
		return "", nil, false
	}
	if unescaped, err := url.PathUnescape(payload); err == nil {
		payload = unescaped
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return strings.TrimSuffix(meta, ";base64"), data, true
}
