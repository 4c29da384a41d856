package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Package part names.
const (
	documentPart  = "word/document.xml"
	relsPart      = "word/_rels/document.xml.rels"
	stylesPart    = "word/styles.xml"
	numberingPart = "word/numbering.xml"
)

// maxPartSize caps a single decompressed part.
const maxPartSize = 256 << 20

// Relationship is one entry of the document relationships part.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// External reports whether the target lives outside the package.
func (r Relationship) External() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

// Package is an opened DOCX file.
type Package struct {
	files     map[string]*zip.File
	rels      map[string]Relationship
	styles    map[string]string // styleId -> name
	numbering numbering
}

// Open reads the package structure of a DOCX held in memory.
func Open(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}

	p := &Package{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		p.files[strings.TrimPrefix(f.Name, "/")] = f
	}
	if _, ok := p.files[documentPart]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingPart, documentPart)
	}

	if err := p.loadRels(); err != nil {
		return nil, err
	}
	if err := p.loadStyles(); err != nil {
		return nil, err
	}
	if err := p.loadNumbering(); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadPart returns the decompressed content of a package part.
func (p *Package) ReadPart(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingPart, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPart, name, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPart, name, err)
	}
	if len(data) > maxPartSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrMalformedPart, name, maxPartSize)
	}
	return data, nil
}

// Relationship looks up a relationship by id.
func (p *Package) Relationship(id string) (Relationship, bool) {
	r, ok := p.rels[id]
	return r, ok
}

// StyleName returns the display name of a style id, or "" when unknown.
func (p *Package) StyleName(id string) string {
	return p.styles[id]
}

// ResolveTarget turns a relationship target into a package part name.
func ResolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return path.Clean(strings.TrimPrefix(target, "/"))
	}
	return path.Join("word", target)
}

// readOptional reads a part that may be absent.
func (p *Package) readOptional(name string) ([]byte, error) {
	data, err := p.ReadPart(name)
	if errors.Is(err, ErrMissingPart) {
		return nil, nil
	}
	return data, err
}

func (p *Package) loadRels() error {
	p.rels = make(map[string]Relationship)
	data, err := p.readOptional(relsPart)
	if err != nil || data == nil {
		return err
	}

	var doc struct {
		Relationships []Relationship `xml:"Relationship"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPart, relsPart, err)
	}
	for _, r := range doc.Relationships {
		p.rels[r.ID] = r
	}
	return nil
}

func (p *Package) loadStyles() error {
	p.styles = make(map[string]string)
	data, err := p.readOptional(stylesPart)
	if err != nil || data == nil {
		return err
	}

	var doc struct {
		Styles []struct {
			ID   string `xml:"styleId,attr"`
			Name struct {
				Val string `xml:"val,attr"`
			} `xml:"name"`
		} `xml:"style"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPart, stylesPart, err)
	}
	for _, s := range doc.Styles {
		p.styles[s.ID] = s.Name.Val
	}
	return nil
}

// ---------------------------------------------------------------------------
// Numbering
// ---------------------------------------------------------------------------

// numbering records which list levels are bulleted.
type numbering struct {
	abstractOf map[string]string          // numId -> abstractNumId
	bullets    map[string]map[string]bool // abstractNumId -> ilvl -> bullet
}

// Ordered reports whether level ilvl of list numID is numbered rather than
// bulleted. Unknown lists are treated as bulleted.
func (p *Package) Ordered(numID, ilvl string) bool {
	abs, ok := p.numbering.abstractOf[numID]
	if !ok {
		return false
	}
	bullet, ok := p.numbering.bullets[abs][ilvl]
	if !ok {
		return false
	}
	return !bullet
}

func (p *Package) loadNumbering() error {
	p.numbering = numbering{
		abstractOf: make(map[string]string),
		bullets:    make(map[string]map[string]bool),
	}
	data, err := p.readOptional(numberingPart)
	if err != nil || data == nil {
		return err
	}

	type val struct {
		Val string `xml:"val,attr"`
	}
	var doc struct {
		Abstracts []struct {
			ID     string `xml:"abstractNumId,attr"`
			Levels []struct {
				Ilvl   string `xml:"ilvl,attr"`
				NumFmt val    `xml:"numFmt"`
			} `xml:"lvl"`
		} `xml:"abstractNum"`
		Nums []struct {
			ID       string `xml:"numId,attr"`
			Abstract val    `xml:"abstractNumId"`
		} `xml:"num"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedPart, numberingPart, err)
	}

	for _, a := range doc.Abstracts {
		levels := make(map[string]bool, len(a.Levels))
		for _, l := range a.Levels {
			levels[l.Ilvl] = l.NumFmt.Val == "bullet" || l.NumFmt.Val == "none" || l.NumFmt.Val == ""
		}
		p.numbering.bullets[a.ID] = levels
	}
	for _, n := range doc.Nums {
		p.numbering.abstractOf[n.ID] = n.Abstract.Val
	}
	return nil
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

var imageContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".jpe":  "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".emf":  "image/x-emf",
	".wmf":  "image/x-wmf",
}

// imageContentType guesses a content type from a part name. Unknown
// extensions return "" so the caller sniffs the bytes.
func imageContentType(name string) string {
	return imageContentTypes[strings.ToLower(path.Ext(name))]
}
