package pipeline

import (
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/alnah/go-docx2html/internal/htmltree"
)

// versionPlaceholder is replaced by AssetSet.Version in asset URLs.
const versionPlaceholder = "{version}"

// Default client-side highlighting assets.
const (
	DefaultAssetVersion      = "1.29.0"
	DefaultProjectStylesheet = "/static/css/styles.css"
	prismBase                = "https://cdnjs.cloudflare.com/ajax/libs/prism/" + versionPlaceholder
)

// AssetSet is the versioned list of head assets written into every
// assembled document. The same set serves the convert and edit paths.
type AssetSet struct {
	Version           string
	Stylesheets       []string
	Scripts           []string
	ProjectStylesheet string
}

// DefaultAssetSet returns the Prism assets for markup, Java, Bash and JSON
// highlighting plus the project stylesheet.
func DefaultAssetSet() AssetSet {
	return AssetSet{
		Version: DefaultAssetVersion,
		Stylesheets: []string{
			prismBase + "/themes/prism.min.css",
		},
		Scripts: []string{
			prismBase + "/prism.min.js",
			prismBase + "/components/prism-markup.min.js",
			prismBase + "/components/prism-java.min.js",
			prismBase + "/components/prism-bash.min.js",
			prismBase + "/components/prism-json.min.js",
		},
		ProjectStylesheet: DefaultProjectStylesheet,
	}
}

// StylesheetURLs returns stylesheet URLs with the version substituted,
// project stylesheet last.
func (a AssetSet) StylesheetURLs() []string {
	urls := a.expand(a.Stylesheets)
	if a.ProjectStylesheet != "" {
		urls = append(urls, a.ProjectStylesheet)
	}
	return urls
}

// ScriptURLs returns script URLs with the version substituted.
func (a AssetSet) ScriptURLs() []string {
	return a.expand(a.Scripts)
}

func (a AssetSet) expand(in []string) []string {
	out := make([]string, 0, len(in)+1)
	for _, u := range in {
		out = append(out, strings.ReplaceAll(u, versionPlaceholder, a.Version))
	}
	return out
}

// Assembler wraps a normalized body in a complete HTML document.
type Assembler struct {
	Assets AssetSet
}

// NewAssembler creates an Assembler with the given assets.
func NewAssembler(assets AssetSet) *Assembler {
	return &Assembler{Assets: assets}
}

// Assemble renders the children of body into a full document. Output is
// deterministic: one head asset per line and one body block per line.
func (a *Assembler) Assemble(body *htmltree.Element) (string, error) {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("<meta charset=\"utf-8\">\n")
	for _, u := range a.Assets.StylesheetURLs() {
		fmt.Fprintf(&sb, "<link rel=\"stylesheet\" href=\"%s\">\n", html.EscapeString(u))
	}
	for _, u := range a.Assets.ScriptURLs() {
		fmt.Fprintf(&sb, "<script src=\"%s\"></script>\n", html.EscapeString(u))
	}
	sb.WriteString("</head>\n<body>\n")
	if err := htmltree.RenderChildren(&sb, body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteHTML, err)
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}

// WriteFile writes doc to path, replacing any previous version.
// The write is not atomic.
func WriteFile(path, doc string) error {
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil { // #nosec G306 -- served as static media
		return fmt.Errorf("%w: %v", ErrWriteHTML, err)
	}
	return nil
}
