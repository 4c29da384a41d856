package pipeline

import (
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RewriteMediaPaths converts served media URLs into file:// URLs so a
// headless browser can load images straight from disk.
// If mediaURL or mediaRoot is empty, returns the HTML unchanged.
//
// Rewrites img[src] and a[href] values starting with mediaURL. Paths that
// would escape mediaRoot are left as they are.
func RewriteMediaPaths(htmlContent, mediaURL, mediaRoot string) (string, error) {
	if mediaURL == "" || mediaRoot == "" {
		return htmlContent, nil
	}

	absRoot, err := filepath.Abs(mediaRoot)
	if err != nil {
		return "", err
	}

	doc, isFragment, err := parseHTML(htmlContent)
	if err != nil {
		return "", err
	}

	rewriteNode(doc, ensureSlash(mediaURL), absRoot)

	return renderHTML(doc, isFragment)
}

// parseHTML parses HTML content, handling both full documents and fragments.
// Returns the parsed node, whether it was a fragment, and any error.
func parseHTML(content string) (*html.Node, bool, error) {
	trimmed := strings.ToLower(strings.TrimSpace(content))

	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		doc, err := html.Parse(strings.NewReader(content))
		return doc, false, err
	}

	// Fragment: parse with body context to avoid wrapping
	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), context)
	if err != nil {
		return nil, true, err
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, true, nil
}

// renderHTML renders the document back to string.
// For fragments, only renders the children (avoids adding <html><body> wrapper).
func renderHTML(doc *html.Node, isFragment bool) (string, error) {
	var buf strings.Builder

	if isFragment {
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}

	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func rewriteNode(n *html.Node, mediaURL, root string) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Img:
			rewriteAttr(n, "src", mediaURL, root)
		case atom.A:
			rewriteAttr(n, "href", mediaURL, root)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewriteNode(c, mediaURL, root)
	}
}

func rewriteAttr(n *html.Node, attrName, mediaURL, root string) {
	for i, attr := range n.Attr {
		if attr.Key != attrName {
			continue
		}
		rel, ok := strings.CutPrefix(attr.Val, mediaURL)
		if !ok {
			continue
		}
		if unescaped, err := url.PathUnescape(rel); err == nil {
			rel = unescaped
		}

		absPath := filepath.Join(root, filepath.FromSlash(rel))

		// Security: validate path is under root (prevent traversal)
		if !isPathUnderDir(absPath, root) {
			continue
		}
		n.Attr[i].Val = pathToFileURL(absPath)
	}
}

func ensureSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

// isPathUnderDir checks if absPath is under dir (prevents path traversal).
func isPathUnderDir(absPath, dir string) bool {
	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(dir)

	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}

	return strings.HasPrefix(cleanPath+string(filepath.Separator), cleanDir)
}

// pathToFileURL converts an absolute path to a file:// URL.
// Handles both Unix and Windows paths correctly.
func pathToFileURL(absPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(absPath),
	}
	return u.String()
}
