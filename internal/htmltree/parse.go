package htmltree

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// BodyName is the element name of the root returned by ParseBody.
const BodyName = "body"

// ParseBody parses content as the body of an HTML document and returns a
// detached root element named "body" holding the parsed nodes.
//
// Full documents (doctype, html or body markup) are parsed with the HTML5
// algorithm and their body is taken; fragments are parsed in body context so
// no wrapper is added. Broken markup is repaired by the parser. Whitespace-only
// text directly under the root is dropped so that rendering a root one child
// per line and parsing it again yields the same children.
func ParseBody(content string) (*Element, error) {
	nodes, err := parseNodes(content)
	if err != nil {
		return nil, err
	}

	root := NewElement(BodyName)
	for _, n := range nodes {
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) == "" {
			continue
		}
		if c := fromHTML(n); c != nil {
			root.AppendChild(c)
		}
	}
	return root, nil
}

// parseNodes returns the top-level body nodes of content.
func parseNodes(content string) ([]*html.Node, error) {
	if isFullDocument(content) {
		doc, err := html.Parse(strings.NewReader(content))
		if err != nil {
			return nil, err
		}
		body := findBody(doc)
		if body == nil {
			return nil, nil
		}
		var out []*html.Node
		for c := body.FirstChild; c != nil; c = c.NextSibling {
			out = append(out, c)
		}
		return out, nil
	}

	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	return html.ParseFragment(strings.NewReader(content), context)
}

// isFullDocument reports whether content carries document-level markup.
func isFullDocument(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, "<!doctype") ||
		strings.Contains(lower, "<html") ||
		strings.Contains(lower, "<body")
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// fromHTML converts an x/net/html node into a detached tree node.
// Doctype and other node kinds yield nil.
func fromHTML(n *html.Node) Node {
	switch n.Type {
	case html.TextNode:
		return NewText(n.Data)
	case html.CommentNode:
		return NewComment(n.Data)
	case html.ElementNode:
		e := NewElement(n.Data)
		for _, a := range n.Attr {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + a.Key
			}
			e.Attrs = append(e.Attrs, Attr{Key: key, Val: a.Val})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if k := fromHTML(c); k != nil {
				e.AppendChild(k)
			}
		}
		return e
	default:
		return nil
	}
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

// Render writes n as HTML. Text is escaped by the serializer.
func Render(w io.Writer, n Node) error {
	return html.Render(w, toHTML(n))
}

// RenderString renders n to a string.
func RenderString(n Node) (string, error) {
	var sb strings.Builder
	if err := Render(&sb, n); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderChildren renders each child of e followed by a newline.
func RenderChildren(w io.Writer, e *Element) error {
	for _, c := range e.Children {
		if err := Render(w, c); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func toHTML(n Node) *html.Node {
	switch v := n.(type) {
	case *Text:
		return &html.Node{Type: html.TextNode, Data: v.Content}
	case *Comment:
		return &html.Node{Type: html.CommentNode, Data: v.Content}
	case *Element:
		out := &html.Node{
			Type:     html.ElementNode,
			Data:     v.Name,
			DataAtom: atom.Lookup([]byte(v.Name)),
		}
		for _, a := range v.Attrs {
			out.Attr = append(out.Attr, html.Attribute{Key: a.Key, Val: a.Val})
		}
		for _, c := range v.Children {
			out.AppendChild(toHTML(c))
		}
		return out
	default:
		return nil
	}
}
