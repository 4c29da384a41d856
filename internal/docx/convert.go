// Package docx is a raw DOCX-to-HTML converter.
//
// It reads the OOXML package (word/document.xml plus relationships, styles
// and numbering) with a streaming XML decoder and emits plain HTML:
// paragraphs, headings, bold/italic/underline runs, line breaks, lists,
// tables, hyperlinks and images. Paragraph styles are mapped through a
// StyleMap. Embedded images are passed to a callback that decides the img
// src. The output is raw: markup-like text and code classification are left
// to the normalization pipeline.
package docx

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alnah/go-docx2html/internal/htmltree"
	"github.com/alnah/go-docx2html/internal/pipeline"
)

// ctxCheckEvery is how many XML tokens pass between context checks.
const ctxCheckEvery = 4096

// Converter converts DOCX bytes to raw HTML.
type Converter struct{}

// Compile-time interface check.
var _ pipeline.RawConverter = (*Converter)(nil)

// NewConverter creates a Converter.
func NewConverter() *Converter {
	return &Converter{}
}

// ToHTML converts doc to a body fragment, one block per line. styleMap uses
// the StyleMap syntax; an empty string selects DefaultStyleMap. onImage may
// be nil, in which case img src is the image's relationship id.
func (c *Converter) ToHTML(ctx context.Context, doc []byte, styleMap string, onImage pipeline.ImageHandler) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(styleMap) == "" {
		styleMap = DefaultStyleMap
	}
	sm, err := ParseStyleMap(styleMap)
	if err != nil {
		return "", err
	}

	pkg, err := Open(doc)
	if err != nil {
		return "", err
	}
	body, err := pkg.ReadPart(documentPart)
	if err != nil {
		return "", err
	}

	b := newBuilder(pkg, sm, onImage)
	if err := b.decode(ctx, body); err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := htmltree.RenderChildren(&sb, b.root); err != nil {
		return "", fmt.Errorf("%w: %v", pipeline.ErrHTMLConversion, err)
	}
	return sb.String(), nil
}

// ---------------------------------------------------------------------------
// Tree builder
// ---------------------------------------------------------------------------

// listLevel is one open list in a container.
type listLevel struct {
	el      *htmltree.Element
	level   int
	ordered bool
}

// frame is a block container: the body or a table cell.
type frame struct {
	el    *htmltree.Element
	lists []listLevel

	// last mapped container, for merging consecutive same-style paragraphs
	lastBlock *htmltree.Element
	lastKey   string
}

// tableState tracks one open table.
type tableState struct {
	el       *htmltree.Element
	row      *htmltree.Element
	header   bool
	col      int
	vmerge   map[int]*htmltree.Element // column -> cell a vertical merge started in
	cell     *htmltree.Element
	span     int
	mergeVal string // "" none, "restart", "continue"
}

// paragraph collects one w:p before its element is known.
type paragraph struct {
	styleID string
	numID   string
	ilvl    string
	content *htmltree.Element // temporary holder
	target  *htmltree.Element // where runs go: content or an open hyperlink
}

// run holds the formatting of the current w:r.
type run struct {
	bold, italic, underline, strike bool
	vertAlign                       string
}

func (r run) signature() string {
	return fmt.Sprintf("%t%t%t%t%s", r.bold, r.italic, r.underline, r.strike, r.vertAlign)
}

// drawing collects one w:drawing or w:pict image.
type drawing struct {
	relID    string
	external bool
	alt      string
}

type builder struct {
	pkg     *Package
	sm      StyleMap
	onImage pipeline.ImageHandler
	seen    map[string]string // relationship id -> src

	root   *htmltree.Element
	frames []*frame
	tables []*tableState
	stack  []string // open element local names
	skip   int      // depth inside ignored content

	para *paragraph
	run  run
	draw *drawing

	// last formatted wrapper in the paragraph, for joining runs with
	// identical formatting
	lastWrap *htmltree.Element
	lastSig  string
}

// Elements whose whole subtree is ignored: field instructions, deleted and
// moved-away text, fallback renditions and text boxes.
var skipped = map[string]bool{
	"instrText":     true,
	"delText":       true,
	"del":           true,
	"moveFrom":      true,
	"Fallback":      true,
	"txbxContent":   true,
	"footnoteRef":   true,
	"commentRef":    true,
	"sectPr":        true,
	"bookmarkStart": true,
}

func newBuilder(pkg *Package, sm StyleMap, onImage pipeline.ImageHandler) *builder {
	root := htmltree.NewElement(htmltree.BodyName)
	return &builder{
		pkg:     pkg,
		sm:      sm,
		onImage: onImage,
		seen:    make(map[string]string),
		root:    root,
		frames:  []*frame{{el: root}},
	}
}

func (b *builder) decode(ctx context.Context, data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedPart, documentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if b.skip > 0 || skipped[t.Name.Local] {
				b.skip++
				continue
			}
			b.stack = append(b.stack, t.Name.Local)
			if err := b.start(t); err != nil {
				return err
			}
		case xml.EndElement:
			if b.skip > 0 {
				b.skip--
				continue
			}
			if err := b.end(t.Name.Local); err != nil {
				return err
			}
			if len(b.stack) > 0 {
				b.stack = b.stack[:len(b.stack)-1]
			}
		case xml.CharData:
			if b.skip == 0 && b.top() == "t" && b.para != nil {
				b.appendText(string(t))
			}
		}
	}
}

func (b *builder) top() string {
	if len(b.stack) == 0 {
		return ""
	}
	return b.stack[len(b.stack)-1]
}

// parent returns the element name enclosing the current one.
func (b *builder) parent() string {
	if len(b.stack) < 2 {
		return ""
	}
	return b.stack[len(b.stack)-2]
}

func (b *builder) frame() *frame { return b.frames[len(b.frames)-1] }

func (b *builder) table() *tableState {
	if len(b.tables) == 0 {
		return nil
	}
	return b.tables[len(b.tables)-1]
}

func (b *builder) start(t xml.StartElement) error {
	switch t.Name.Local {

	// --- tables ---
	case "tbl":
		f := b.frame()
		f.lists = nil
		f.lastBlock = nil
		el := htmltree.NewElement("table")
		f.el.AppendChild(el)
		b.tables = append(b.tables, &tableState{el: el, vmerge: make(map[int]*htmltree.Element)})
	case "tr":
		if ts := b.table(); ts != nil {
			ts.row = htmltree.NewElement("tr")
			ts.el.AppendChild(ts.row)
			ts.header = false
			ts.col = 0
		}
	case "tblHeader":
		if ts := b.table(); ts != nil && b.parent() == "trPr" && attrVal(t, "val") != "0" {
			ts.header = true
		}
	case "tc":
		if ts := b.table(); ts != nil && ts.row != nil {
			name := "td"
			if ts.header {
				name = "th"
			}
			ts.cell = htmltree.NewElement(name)
			ts.span = 1
			ts.mergeVal = ""
			ts.row.AppendChild(ts.cell)
			b.frames = append(b.frames, &frame{el: ts.cell})
		}
	case "gridSpan":
		if ts := b.table(); ts != nil && b.parent() == "tcPr" {
			if n, err := strconv.Atoi(attrVal(t, "val")); err == nil && n > 1 {
				ts.span = n
			}
		}
	case "vMerge":
		if ts := b.table(); ts != nil && b.parent() == "tcPr" {
			if attrVal(t, "val") == "restart" {
				ts.mergeVal = "restart"
			} else {
				ts.mergeVal = "continue"
			}
		}

	// --- paragraphs ---
	case "p":
		content := htmltree.NewElement("p")
		b.para = &paragraph{content: content, target: content}
		b.lastWrap = nil
	case "pStyle":
		if b.para != nil && b.parent() == "pPr" {
			b.para.styleID = attrVal(t, "val")
		}
	case "numId":
		if b.para != nil && b.parent() == "numPr" {
			b.para.numID = attrVal(t, "val")
		}
	case "ilvl":
		if b.para != nil && b.parent() == "numPr" {
			b.para.ilvl = attrVal(t, "val")
		}
	case "hyperlink":
		if b.para != nil {
			a := htmltree.NewElement("a")
			if href := b.hyperlinkHref(t); href != "" {
				a.SetAttr("href", href)
			}
			b.para.target.AppendChild(a)
			b.para.target = a
			b.lastWrap = nil
		}

	// --- runs ---
	case "r":
		b.run = run{}
	case "b", "i", "u", "strike", "dstrike", "vertAlign":
		if b.parent() == "rPr" {
			b.runProperty(t)
		}
	case "tab":
		if b.para != nil && b.parent() == "r" {
			b.appendText("\t")
		}
	case "br", "cr":
		if b.para != nil && b.parent() == "r" && attrVal(t, "type") != "page" {
			b.para.target.AppendChild(htmltree.NewElement("br"))
			b.lastWrap = nil
		}

	// --- images ---
	case "drawing", "pict":
		b.draw = &drawing{}
	case "docPr":
		if b.draw != nil {
			b.draw.alt = attrVal(t, "descr")
		}
	case "blip":
		if b.draw != nil {
			if id := attrVal(t, "embed"); id != "" {
				b.draw.relID = id
			} else if id := attrVal(t, "link"); id != "" {
				b.draw.relID = id
				b.draw.external = true
			}
		}
	case "imagedata":
		if b.draw != nil && b.draw.relID == "" {
			b.draw.relID = attrVal(t, "id")
			if b.draw.alt == "" {
				b.draw.alt = attrVal(t, "title")
			}
		}
	}
	return nil
}

func (b *builder) end(local string) error {
	switch local {
	case "tc":
		if ts := b.table(); ts != nil && ts.cell != nil {
			b.frames = b.frames[:len(b.frames)-1]
			b.finishCell(ts)
		}
	case "tr":
		if ts := b.table(); ts != nil {
			ts.row = nil
		}
	case "tbl":
		if len(b.tables) > 0 {
			b.tables = b.tables[:len(b.tables)-1]
			b.frame().lastBlock = nil
		}
	case "hyperlink":
		if b.para != nil {
			if p := b.para.target.Parent(); p != nil {
				b.para.target = p
			}
			b.lastWrap = nil
		}
	case "p":
		if b.para != nil {
			b.finishParagraph()
			b.para = nil
		}
	case "drawing", "pict":
		if b.draw != nil && b.para != nil {
			if err := b.finishDrawing(); err != nil {
				return err
			}
		}
		b.draw = nil
	}
	return nil
}

// ---------------------------------------------------------------------------
// Runs and text
// ---------------------------------------------------------------------------

func (b *builder) runProperty(t xml.StartElement) {
	on := attrVal(t, "val")
	enabled := on != "0" && on != "false" && on != "none"
	switch t.Name.Local {
	case "b":
		b.run.bold = enabled
	case "i":
		b.run.italic = enabled
	case "u":
		b.run.underline = enabled
	case "strike", "dstrike":
		b.run.strike = enabled
	case "vertAlign":
		switch on {
		case "superscript":
			b.run.vertAlign = "sup"
		case "subscript":
			b.run.vertAlign = "sub"
		default:
			b.run.vertAlign = ""
		}
	}
}

// appendText adds text under the current run's formatting, joining it with
// the previous run when the formatting is the same.
func (b *builder) appendText(text string) {
	if text == "" {
		return
	}
	sig := b.run.signature()
	if b.lastWrap != nil && b.lastSig == sig && b.lastWrap.Parent() != nil {
		appendOrJoin(b.lastWrap, text)
		return
	}

	wrappers := b.wrappers()
	if len(wrappers) == 0 {
		appendOrJoin(b.para.target, text)
		b.lastWrap = b.para.target
		b.lastSig = sig
		return
	}

	outer := htmltree.NewElement(wrappers[0])
	inner := outer
	for _, w := range wrappers[1:] {
		el := htmltree.NewElement(w)
		inner.AppendChild(el)
		inner = el
	}
	inner.AppendChild(htmltree.NewText(text))
	b.para.target.AppendChild(outer)
	b.lastWrap = inner
	b.lastSig = sig
}

func (b *builder) wrappers() []string {
	var w []string
	if b.run.bold {
		w = append(w, "strong")
	}
	if b.run.italic {
		w = append(w, "em")
	}
	if b.run.underline {
		w = append(w, "u")
	}
	if b.run.strike {
		w = append(w, "s")
	}
	if b.run.vertAlign != "" {
		w = append(w, b.run.vertAlign)
	}
	return w
}

// appendOrJoin adds text to e, extending a trailing text node if present.
func appendOrJoin(e *htmltree.Element, text string) {
	if n := len(e.Children); n > 0 {
		if last, ok := e.Children[n-1].(*htmltree.Text); ok {
			last.Content += text
			return
		}
	}
	e.AppendChild(htmltree.NewText(text))
}

func (b *builder) hyperlinkHref(t xml.StartElement) string {
	if id := attrVal(t, "id"); id != "" {
		if rel, ok := b.pkg.Relationship(id); ok {
			return rel.Target
		}
	}
	if anchor := attrVal(t, "anchor"); anchor != "" {
		return "#" + anchor
	}
	return ""
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

func (b *builder) finishDrawing() error {
	d := b.draw
	if d.relID == "" {
		return nil
	}
	src, err := b.imageSource(d)
	if err != nil {
		return err
	}
	if src == "" {
		return nil
	}

	img := htmltree.NewElement("img", htmltree.Attr{Key: "src", Val: src})
	if d.alt != "" {
		img.SetAttr("alt", d.alt)
	}
	b.para.target.AppendChild(img)
	b.lastWrap = nil
	return nil
}

// imageSource resolves the src for an image relationship. Embedded images
// go through the image handler once per relationship id.
func (b *builder) imageSource(d *drawing) (string, error) {
	if src, ok := b.seen[d.relID]; ok {
		return src, nil
	}
	rel, ok := b.pkg.Relationship(d.relID)
	if !ok {
		return "", nil
	}
	if d.external || rel.External() {
		return rel.Target, nil
	}

	src := d.relID
	if b.onImage != nil {
		part := ResolveTarget(rel.Target)
		data, err := b.pkg.ReadPart(part)
		if err != nil {
			return "", err
		}
		src, err = b.onImage(&pipeline.ExtractedImage{
			Key:         d.relID,
			Data:        data,
			ContentType: imageContentType(part),
		})
		if err != nil {
			return "", err
		}
	}
	b.seen[d.relID] = src
	return src, nil
}

// ---------------------------------------------------------------------------
// Blocks
// ---------------------------------------------------------------------------

// finishParagraph places the collected paragraph as a block, a list item or
// a continuation of the previous same-style block.
func (b *builder) finishParagraph() {
	p := b.para
	f := b.frame()
	if isEmpty(p.content) {
		return
	}

	if p.numID != "" && p.numID != "0" {
		f.lastBlock = nil
		b.appendListItem(f, p)
		return
	}
	f.lists = nil

	target := b.sm.Resolve(p.styleID, b.pkg.StyleName(p.styleID))
	kids := p.content.RemoveChildren()

	mergeable := target.Tag == "pre" || target.Tag == "div" || target.Tag == "blockquote"
	if mergeable && f.lastBlock != nil && f.lastKey == target.key() && f.lastBlock.Parent() == f.el &&
		f.el.Children[len(f.el.Children)-1] == f.lastBlock {
		if target.Tag == "pre" {
			appendOrJoin(f.lastBlock, "\n")
		} else {
			f.lastBlock.AppendChild(htmltree.NewElement("br"))
		}
		appendAll(f.lastBlock, kids)
		return
	}

	el := htmltree.NewElement(target.Tag)
	if len(target.Classes) > 0 {
		el.SetClasses(target.Classes)
	}
	appendAll(el, kids)
	f.el.AppendChild(el)

	if mergeable {
		f.lastBlock, f.lastKey = el, target.key()
	} else {
		f.lastBlock = nil
	}
}

func (b *builder) appendListItem(f *frame, p *paragraph) {
	level, _ := strconv.Atoi(p.ilvl)
	ordered := b.pkg.Ordered(p.numID, p.ilvl)

	for len(f.lists) > 0 && f.lists[len(f.lists)-1].level > level {
		f.lists = f.lists[:len(f.lists)-1]
	}
	if n := len(f.lists); n > 0 && f.lists[n-1].level == level && f.lists[n-1].ordered != ordered {
		f.lists = f.lists[:n-1]
	}

	if n := len(f.lists); n == 0 || f.lists[n-1].level < level {
		tag := "ul"
		if ordered {
			tag = "ol"
		}
		list := htmltree.NewElement(tag)
		if n == 0 {
			f.el.AppendChild(list)
		} else {
			parentList := f.lists[n-1].el
			if len(parentList.Children) == 0 {
				parentList.AppendChild(htmltree.NewElement("li"))
			}
			lastItem := parentList.Children[len(parentList.Children)-1].(*htmltree.Element)
			lastItem.AppendChild(list)
		}
		f.lists = append(f.lists, listLevel{el: list, level: level, ordered: ordered})
	}

	li := htmltree.NewElement("li")
	appendAll(li, p.content.RemoveChildren())
	f.lists[len(f.lists)-1].el.AppendChild(li)
}

func (b *builder) finishCell(ts *tableState) {
	cell := ts.cell
	ts.cell = nil
	col := ts.col
	ts.col += ts.span

	if ts.span > 1 {
		cell.SetAttr("colspan", strconv.Itoa(ts.span))
	}

	switch ts.mergeVal {
	case "restart":
		ts.vmerge[col] = cell
	case "continue":
		if first, ok := ts.vmerge[col]; ok {
			rows := 1
			if v, ok := first.Attr("rowspan"); ok {
				rows, _ = strconv.Atoi(v)
			}
			first.SetAttr("rowspan", strconv.Itoa(rows+1))
			htmltree.Detach(cell)
			return
		}
	default:
		delete(ts.vmerge, col)
	}
}

func appendAll(dst *htmltree.Element, kids []htmltree.Node) {
	for _, k := range kids {
		dst.AppendChild(k)
	}
}

// isEmpty reports whether a collected paragraph has no visible content.
func isEmpty(e *htmltree.Element) bool {
	if e.Contains("img", "br") {
		return false
	}
	return strings.TrimSpace(htmltree.TextContent(e)) == ""
}

func attrVal(t xml.StartElement, localName string) string {
	for _, a := range t.Attr {
		if a.Name.Local == localName {
			return a.Value
		}
	}
	return ""
}
