package pipeline

import (
	"context"
	"strings"
)

// StyleInjector inlines stylesheets into an HTML document.
type StyleInjector interface {
	InjectStyles(ctx context.Context, htmlContent string, sheets ...string) string
}

// StyleInjection inlines stylesheets as one <style> block.
type StyleInjection struct{}

// Compile-time interface check.
var _ StyleInjector = (*StyleInjection)(nil)

// InjectStyles joins the non-empty sheets into a single <style> block and
// inserts it before </head>, else right after <body>, else at the start.
// Closing-tag sequences in CSS are escaped so they cannot end the block.
func (s *StyleInjection) InjectStyles(ctx context.Context, htmlContent string, sheets ...string) string {
	css := joinSheets(sheets)
	if css == "" || ctx.Err() != nil {
		return htmlContent
	}

	styleBlock := "<style>\n" + sanitizeCSS(css) + "\n</style>\n"
	lowerHTML := strings.ToLower(htmlContent)

	if idx := strings.Index(lowerHTML, "</head>"); idx != -1 {
		return htmlContent[:idx] + styleBlock + htmlContent[idx:]
	}

	if idx := strings.Index(lowerHTML, "<body"); idx != -1 {
		if closeIdx := strings.Index(htmlContent[idx:], ">"); closeIdx != -1 {
			insertPos := idx + closeIdx + 1
			return htmlContent[:insertPos] + styleBlock + htmlContent[insertPos:]
		}
	}

	return styleBlock + htmlContent
}

func joinSheets(sheets []string) string {
	var parts []string
	for _, s := range sheets {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
