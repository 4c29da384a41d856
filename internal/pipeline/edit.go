package pipeline

import (
	"regexp"
	"slices"

	"github.com/alnah/go-docx2html/internal/htmltree"
)

var headPattern = regexp.MustCompile(`(?is)<head\b[^>]*>.*?</head\s*>`)

// headAssets are element names dropped when they sit directly in the body.
var headAssets = []string{"link", "script", "meta", "title", "style"}

// Renormalize turns user-edited HTML back into a canonical body. Any head
// element is stripped, the rest is parsed best-effort, stray head assets at
// the body root are dropped and the normalizer runs without image
// rewriting. It never fails: markup the parser cannot make sense of yields
// an empty body.
func Renormalize(edited string) (*htmltree.Element, Stats) {
	stripped := headPattern.ReplaceAllString(edited, "")
	root, err := htmltree.ParseBody(stripped)
	if err != nil {
		return htmltree.NewElement(htmltree.BodyName), Stats{}
	}
	for _, c := range slices.Clone(root.Children) {
		if e, ok := c.(*htmltree.Element); ok && slices.Contains(headAssets, e.Name) {
			root.RemoveChild(e)
		}
	}
	return root, Normalize(root)
}
