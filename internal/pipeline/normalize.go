package pipeline

import (
	"slices"
	"strings"

	"github.com/alnah/go-docx2html/internal/htmltree"
)

// Class names written by the normalizer.
const (
	CodeClass        = "code"
	MarkupClass      = "language-markup"
	HeaderCellClass  = "table-header"
	TableClass       = "table"
	BorderedClass    = "table-bordered"
	codeBlockClasses = CodeClass + " " + MarkupClass
)

// BlockKind is the derived role of a node in the document tree.
// It is recomputed on demand and never stored.
type BlockKind int

const (
	BlockOther BlockKind = iota
	BlockProse
	BlockCode
	BlockTable
	BlockCell
	BlockImage
)

// KindOf classifies n as a block.
func KindOf(n htmltree.Node) BlockKind {
	e, ok := n.(*htmltree.Element)
	if !ok {
		return BlockOther
	}
	switch {
	case isCodeBlock(e):
		return BlockCode
	case e.Name == "p":
		return BlockProse
	case e.Name == "table":
		return BlockTable
	case e.Name == "td" || e.Name == "th":
		return BlockCell
	case e.Name == "img":
		return BlockImage
	default:
		return BlockOther
	}
}

// NewCodeBlock returns a detached canonical code block holding text.
func NewCodeBlock(text string) *htmltree.Element {
	pre := htmltree.NewElement("pre", htmltree.Attr{Key: "class", Val: codeBlockClasses})
	code := htmltree.NewElement("code", htmltree.Attr{Key: "class", Val: codeBlockClasses})
	if text != "" {
		code.AppendChild(htmltree.NewText(text))
	}
	pre.AppendChild(code)
	return pre
}

// isCodeBlock reports whether e is a canonical pre > code block.
func isCodeBlock(e *htmltree.Element) bool {
	return codeOf(e) != nil
}

// codeOf returns the inner code element of a canonical code block, or nil.
// Whitespace text around the code element is tolerated.
func codeOf(e *htmltree.Element) *htmltree.Element {
	if e.Name != "pre" || !hasCodeClasses(e) {
		return nil
	}
	var code *htmltree.Element
	for _, c := range e.Children {
		switch v := c.(type) {
		case *htmltree.Element:
			if code != nil || v.Name != "code" || !hasCodeClasses(v) {
				return nil
			}
			code = v
		case *htmltree.Text:
			if strings.TrimSpace(v.Content) != "" {
				return nil
			}
		default:
			return nil
		}
	}
	return code
}

func hasCodeClasses(e *htmltree.Element) bool {
	return e.HasClass(CodeClass) && e.HasClass(MarkupClass)
}

// ---------------------------------------------------------------------------
// Normalizer
// ---------------------------------------------------------------------------

// Stats counts what one normalization run changed.
type Stats struct {
	Images     int // img sources rewritten
	CodeBlocks int // p/pre elements turned into canonical code blocks
	Merged     int // code blocks folded into a preceding block
	Tables     int // tables normalized
	Cells      int // table cells rebuilt around a code block
	Unwrapped  int // nested paragraphs unwrapped
}

// Normalizer rewrites a document tree into its canonical form.
//
// The zero value is ready to use. Images maps raw image reference keys to
// served URLs; it may be nil (the edit path never rewrites images).
type Normalizer struct {
	Images map[string]string
}

// Normalize mutates root in place: image sources are rewritten first, then
// paragraphs are reclassified (pass A), adjacent code blocks merged (pass B),
// tables restructured (pass C) and nested paragraphs unwrapped (pass D).
// Running it on its own output changes nothing.
func (n *Normalizer) Normalize(root *htmltree.Element) Stats {
	var st Stats
	st.Images = RewriteImageSources(root, n.Images)
	st.CodeBlocks = reclassifyBlocks(root)
	st.Merged = mergeCodeRuns(root)
	for _, table := range htmltree.FindAll(root, "table") {
		st.Cells += normalizeTable(table)
		st.Tables++
	}
	st.Unwrapped = denest(root, false)
	return st
}

// Normalize runs a zero Normalizer over root.
func Normalize(root *htmltree.Element) Stats {
	var n Normalizer
	return n.Normalize(root)
}

// ---------------------------------------------------------------------------
// Pass A: paragraph and pre reclassification
// ---------------------------------------------------------------------------

func reclassifyBlocks(root *htmltree.Element) int {
	count := 0
	for _, e := range htmltree.FindAll(root, "p", "pre") {
		if !attachedTo(e, root) {
			continue // replaced together with an enclosing block
		}
		switch e.Name {
		case "pre":
			if isCodeBlock(e) {
				continue
			}
		case "p":
			// A paragraph wrapping images or block content is left to its children.
			if e.Contains("img", "pre", "table") {
				continue
			}
			if !IsCodeLike(htmltree.TextContent(e)) {
				continue
			}
		}
		text := strings.TrimSpace(htmltree.TextContent(e))
		e.Parent().ReplaceChild(e, NewCodeBlock(text))
		count++
	}
	return count
}

// attachedTo reports whether root is an ancestor of n.
func attachedTo(n htmltree.Node, root *htmltree.Element) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p == root {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Pass B: adjacent code block merging
// ---------------------------------------------------------------------------

// mergeCodeRuns folds runs of sibling code blocks separated only by
// insignificant nodes into the first block of each run. Tables are skipped.
func mergeCodeRuns(e *htmltree.Element) int {
	merged := 0
	for i := 0; i < len(e.Children); i++ {
		first, ok := e.Children[i].(*htmltree.Element)
		if !ok {
			continue
		}
		if !isCodeBlock(first) {
			if first.Name != "table" {
				merged += mergeCodeRuns(first)
			}
			continue
		}
		for {
			j := i + 1
			for j < len(e.Children) && isInsignificant(e.Children[j]) {
				j++
			}
			if j >= len(e.Children) {
				break
			}
			next, ok := e.Children[j].(*htmltree.Element)
			if !ok || !isCodeBlock(next) {
				break
			}
			appendCodeBlock(first, next)
			for _, gone := range slices.Clone(e.Children[i+1 : j+1]) {
				e.RemoveChild(gone)
			}
			merged++
		}
	}
	return merged
}

// isInsignificant reports whether n may sit between two mergeable code
// blocks: a line break, an empty paragraph or whitespace text.
func isInsignificant(n htmltree.Node) bool {
	switch v := n.(type) {
	case *htmltree.Text:
		return strings.TrimSpace(v.Content) == ""
	case *htmltree.Element:
		switch v.Name {
		case "br":
			return true
		case "p":
			return !v.Contains("img") && strings.TrimSpace(htmltree.TextContent(v)) == ""
		}
	}
	return false
}

// appendCodeBlock moves src's code content to the end of dst's code element,
// separated by a newline.
func appendCodeBlock(dst, src *htmltree.Element) {
	dstCode, srcCode := codeOf(dst), codeOf(src)
	dstCode.AppendChild(htmltree.NewText("\n"))
	for _, c := range srcCode.RemoveChildren() {
		dstCode.AppendChild(c)
	}
	coalesceText(dstCode)
}

// coalesceText joins adjacent text children of e.
func coalesceText(e *htmltree.Element) {
	for i := 1; i < len(e.Children); {
		prev, ok1 := e.Children[i-1].(*htmltree.Text)
		cur, ok2 := e.Children[i].(*htmltree.Text)
		if ok1 && ok2 {
			prev.Content += cur.Content
			e.RemoveChild(cur)
			continue
		}
		i++
	}
}

// ---------------------------------------------------------------------------
// Pass C: table normalization
// ---------------------------------------------------------------------------

// normalizeTable canonicalizes table classes, infers a header row and
// rebuilds cells holding code. Returns the number of rebuilt cells.
func normalizeTable(table *htmltree.Element) int {
	classes := slices.DeleteFunc(table.Classes(), isConverterClass)
	table.SetClasses(classes)
	table.AddClass(TableClass, BorderedClass)

	rows := ownRows(table)
	if len(rows) > 0 && !hasHeaderCell(rows) {
		for _, cell := range cellsOf(rows[0]) {
			cell.AddClass(HeaderCellClass)
		}
	}

	rebuilt := 0
	for _, row := range rows {
		for _, cell := range cellsOf(row) {
			if cell.Name == "td" && rebuildCell(cell) {
				rebuilt++
			}
		}
	}
	return rebuilt
}

// isConverterClass matches classes emitted by word processors and converters.
func isConverterClass(c string) bool {
	return strings.HasPrefix(c, "docx-") ||
		strings.HasPrefix(c, "Mso") ||
		c == "TableGrid"
}

// ownRows returns the rows of table, excluding rows of nested tables.
func ownRows(table *htmltree.Element) []*htmltree.Element {
	var rows []*htmltree.Element
	for _, c := range table.Children {
		e, ok := c.(*htmltree.Element)
		if !ok {
			continue
		}
		switch e.Name {
		case "tr":
			rows = append(rows, e)
		case "thead", "tbody", "tfoot":
			for _, r := range e.Children {
				if re, ok := r.(*htmltree.Element); ok && re.Name == "tr" {
					rows = append(rows, re)
				}
			}
		}
	}
	return rows
}

func cellsOf(row *htmltree.Element) []*htmltree.Element {
	var cells []*htmltree.Element
	for _, c := range row.Children {
		if e, ok := c.(*htmltree.Element); ok && (e.Name == "td" || e.Name == "th") {
			cells = append(cells, e)
		}
	}
	return cells
}

func hasHeaderCell(rows []*htmltree.Element) bool {
	for _, row := range rows {
		for _, cell := range cellsOf(row) {
			if cell.Name == "th" {
				return true
			}
		}
	}
	return false
}

type fragmentKind int

const (
	fragCode fragmentKind = iota
	fragSeparator
	fragProse
)

// fragment is one piece of a cell's content. Code and separator fragments
// carry trimmed text; prose fragments carry the original node.
type fragment struct {
	kind fragmentKind
	text string
	node htmltree.Node
}

// rebuildCell partitions the cell's children into code, separator and prose
// fragments. When code or separators are present the cell is rewritten as a
// single code block followed by the prose in its original order.
//
// Adjacent inline prose fragments (text, b, a, ...) share one <p> instead of
// getting one paragraph each, so a sentence with bold words stays a single
// sentence. Block-level prose (p, ul, table, ...) is kept as is.
func rebuildCell(cell *htmltree.Element) bool {
	frags, found := cellFragments(cell)
	if !found {
		return false
	}

	cell.RemoveChildren()

	pre := NewCodeBlock("")
	code := codeOf(pre)
	var pending strings.Builder
	flush := func() {
		if pending.Len() > 0 {
			code.AppendChild(htmltree.NewText(pending.String()))
			pending.Reset()
		}
	}
	n := 0
	for _, f := range frags {
		if f.kind == fragProse {
			continue
		}
		if n > 0 {
			pending.WriteByte('\n')
		}
		n++
		if f.kind == fragCode {
			pending.WriteString(f.text)
			continue
		}
		flush()
		code.AppendChild(htmltree.NewComment(" " + f.text + " "))
	}
	flush()
	cell.AppendChild(pre)

	var para *htmltree.Element
	for _, f := range frags {
		if f.kind != fragProse {
			para = nil
			continue
		}
		if standsAlone(f.node) {
			cell.AppendChild(f.node)
			para = nil
			continue
		}
		if para == nil {
			para = htmltree.NewElement("p")
			cell.AppendChild(para)
		}
		para.AppendChild(f.node)
	}
	return true
}

// cellFragments splits a cell's children into fragments. found reports
// whether any code or separator content exists. Prose nodes are detached.
func cellFragments(cell *htmltree.Element) (frags []fragment, found bool) {
	for _, c := range slices.Clone(cell.Children) {
		switch v := c.(type) {
		case *htmltree.Text:
			text := strings.TrimSpace(v.Content)
			switch {
			case text == "":
				continue
			case IsSeparator(text):
				frags = append(frags, fragment{kind: fragSeparator, text: text})
				found = true
			case IsCodeLike(text):
				frags = append(frags, fragment{kind: fragCode, text: text})
				found = true
			default:
				frags = append(frags, fragment{kind: fragProse, node: v})
			}

		case *htmltree.Comment:
			frags = append(frags, fragment{kind: fragProse, node: v})

		case *htmltree.Element:
			if code := codeOf(v); code != nil {
				frags = append(frags, codeFragments(code)...)
				found = true
				continue
			}
			if v.Name == "img" || v.Contains("img", "table", "ul", "ol") || v.Name == "table" {
				frags = append(frags, fragment{kind: fragProse, node: v})
				continue
			}
			text := strings.TrimSpace(htmltree.TextContent(v))
			switch {
			case text == "":
				continue
			case IsSeparator(text):
				frags = append(frags, fragment{kind: fragSeparator, text: text})
				found = true
			case IsCodeLike(text):
				frags = append(frags, fragment{kind: fragCode, text: text})
				found = true
			default:
				frags = append(frags, fragment{kind: fragProse, node: v})
			}
		}
	}
	if !found {
		return nil, false
	}
	for _, f := range frags {
		if f.node != nil {
			htmltree.Detach(f.node)
		}
	}
	return frags, true
}

// codeFragments reads back a canonical code element: text runs are code,
// comments are separators.
func codeFragments(code *htmltree.Element) []fragment {
	var frags []fragment
	for _, c := range code.Children {
		switch v := c.(type) {
		case *htmltree.Text:
			if text := strings.TrimSpace(v.Content); text != "" {
				frags = append(frags, fragment{kind: fragCode, text: text})
			}
		case *htmltree.Comment:
			if text := strings.TrimSpace(v.Content); text != "" {
				frags = append(frags, fragment{kind: fragSeparator, text: text})
			}
		case *htmltree.Element:
			if text := strings.TrimSpace(htmltree.TextContent(v)); text != "" {
				frags = append(frags, fragment{kind: fragCode, text: text})
			}
		}
	}
	return frags
}

var blockElements = []string{
	"p", "div", "ul", "ol", "table", "blockquote", "pre",
	"h1", "h2", "h3", "h4", "h5", "h6",
}

// standsAlone reports whether a prose node is kept as-is rather than
// wrapped in a paragraph.
func standsAlone(n htmltree.Node) bool {
	switch v := n.(type) {
	case *htmltree.Comment:
		return true
	case *htmltree.Element:
		return slices.Contains(blockElements, v.Name)
	}
	return false
}

// ---------------------------------------------------------------------------
// Pass D: de-nesting
// ---------------------------------------------------------------------------

// denest unwraps every p found inside another p. Returns the unwrap count.
func denest(e *htmltree.Element, insideP bool) int {
	count := 0
	for i := 0; i < len(e.Children); {
		c, ok := e.Children[i].(*htmltree.Element)
		if !ok {
			i++
			continue
		}
		if c.Name == "p" && insideP {
			htmltree.Unwrap(c)
			count++
			continue // re-examine the promoted children at i
		}
		count += denest(c, insideP || c.Name == "p")
		i++
	}
	return count
}
