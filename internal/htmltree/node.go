// Package htmltree provides an owned, mutable HTML tree used by the
// normalization pipeline.
//
// A Node is exactly one of *Element, *Text or *Comment. Each node has at most
// one parent: attaching a node that already belongs to another element panics,
// so every mutation keeps the structure a tree rooted at a single element.
package htmltree

import (
	"slices"
	"strings"
)

// Node is an element, a text run or a comment.
type Node interface {
	Parent() *Element
	setParent(p *Element)
}

type link struct {
	parent *Element
}

// Parent returns the element holding this node, or nil for a detached node.
func (l *link) Parent() *Element { return l.parent }

func (l *link) setParent(p *Element) { l.parent = p }

// Attr is a single attribute. Order is preserved as parsed.
type Attr struct {
	Key string
	Val string
}

// Element is an HTML element with owned children.
type Element struct {
	link
	Name     string
	Attrs    []Attr
	Children []Node
}

// Text is a run of character data. Content is stored unescaped.
type Text struct {
	link
	Content string
}

// Comment is an HTML comment. Content excludes the <!-- --> delimiters.
type Comment struct {
	link
	Content string
}

// Compile-time interface checks.
var (
	_ Node = (*Element)(nil)
	_ Node = (*Text)(nil)
	_ Node = (*Comment)(nil)
)

// NewElement creates a detached element.
func NewElement(name string, attrs ...Attr) *Element {
	return &Element{Name: name, Attrs: attrs}
}

// NewText creates a detached text node.
func NewText(content string) *Text {
	return &Text{Content: content}
}

// NewComment creates a detached comment node.
func NewComment(content string) *Comment {
	return &Comment{Content: content}
}

// ---------------------------------------------------------------------------
// Child list mutation
// ---------------------------------------------------------------------------

// AppendChild attaches n as the last child of e.
// Panics if n is already attached to an element.
func (e *Element) AppendChild(n Node) {
	e.InsertChild(len(e.Children), n)
}

// InsertChild attaches n at index i of e's children.
// Panics if n is already attached to an element.
func (e *Element) InsertChild(i int, n Node) {
	if n.Parent() != nil {
		panic("htmltree: node already has a parent")
	}
	if i < 0 || i > len(e.Children) {
		panic("htmltree: child index out of range")
	}
	n.setParent(e)
	e.Children = slices.Insert(e.Children, i, n)
}

// RemoveChild detaches n from e. It is a no-op when n is not a child of e.
func (e *Element) RemoveChild(n Node) {
	i := e.IndexOf(n)
	if i < 0 {
		return
	}
	e.Children = slices.Delete(e.Children, i, i+1)
	n.setParent(nil)
}

// ReplaceChild puts repl where old was and detaches old.
// Panics if repl is already attached.
func (e *Element) ReplaceChild(old, repl Node) {
	i := e.IndexOf(old)
	if i < 0 {
		return
	}
	if repl.Parent() != nil {
		panic("htmltree: node already has a parent")
	}
	old.setParent(nil)
	repl.setParent(e)
	e.Children[i] = repl
}

// RemoveChildren detaches and returns all of e's children.
func (e *Element) RemoveChildren() []Node {
	kids := e.Children
	e.Children = nil
	for _, c := range kids {
		c.setParent(nil)
	}
	return kids
}

// IndexOf returns the position of n among e's children, or -1.
func (e *Element) IndexOf(n Node) int {
	for i, c := range e.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// Detach removes n from its parent, if any.
func Detach(n Node) {
	if p := n.Parent(); p != nil {
		p.RemoveChild(n)
	}
}

// Unwrap replaces e in its parent with e's children.
func Unwrap(e *Element) {
	p := e.Parent()
	if p == nil {
		return
	}
	at := p.IndexOf(e)
	kids := e.RemoveChildren()
	p.RemoveChild(e)
	for i, c := range kids {
		p.InsertChild(at+i, c)
	}
}

// ---------------------------------------------------------------------------
// Attributes
// ---------------------------------------------------------------------------

// Attr returns the value of the named attribute.
func (e *Element) Attr(key string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces the named attribute.
func (e *Element) SetAttr(key, val string) {
	for i, a := range e.Attrs {
		if a.Key == key {
			e.Attrs[i].Val = val
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Key: key, Val: val})
}

// DelAttr removes the named attribute.
func (e *Element) DelAttr(key string) {
	e.Attrs = slices.DeleteFunc(e.Attrs, func(a Attr) bool { return a.Key == key })
}

// Classes returns the element's class list.
func (e *Element) Classes() []string {
	v, _ := e.Attr("class")
	return strings.Fields(v)
}

// HasClass reports whether the element carries class c.
func (e *Element) HasClass(c string) bool {
	return slices.Contains(e.Classes(), c)
}

// SetClasses replaces the class list. An empty list removes the attribute.
func (e *Element) SetClasses(classes []string) {
	if len(classes) == 0 {
		e.DelAttr("class")
		return
	}
	e.SetAttr("class", strings.Join(classes, " "))
}

// AddClass appends classes not already present.
func (e *Element) AddClass(classes ...string) {
	cur := e.Classes()
	for _, c := range classes {
		if !slices.Contains(cur, c) {
			cur = append(cur, c)
		}
	}
	e.SetClasses(cur)
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Walk visits n and its descendants in document order. Returning false from
// fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	if e, ok := n.(*Element); ok {
		// Copy: fn may detach the node it is visiting.
		for _, c := range slices.Clone(e.Children) {
			Walk(c, fn)
		}
	}
}

// FindAll returns every descendant element (root excluded) with one of the
// given names, in document order.
func FindAll(root *Element, names ...string) []*Element {
	var out []*Element
	for _, c := range root.Children {
		Walk(c, func(n Node) bool {
			if e, ok := n.(*Element); ok && slices.Contains(names, e.Name) {
				out = append(out, e)
			}
			return true
		})
	}
	return out
}

// Contains reports whether any descendant of e is an element with one of the
// given names.
func (e *Element) Contains(names ...string) bool {
	return len(FindAll(e, names...)) > 0
}

// HasAncestor reports whether any ancestor of n is named name.
func HasAncestor(n Node, name string) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Name == name {
			return true
		}
	}
	return false
}

// TextContent returns the concatenated text of n. A br element contributes a
// newline; comments contribute nothing.
func TextContent(n Node) string {
	var sb strings.Builder
	Walk(n, func(n Node) bool {
		switch v := n.(type) {
		case *Text:
			sb.WriteString(v.Content)
		case *Element:
			if v.Name == "br" {
				sb.WriteByte('\n')
			}
		}
		return true
	})
	return sb.String()
}
