// Package xmltree is a small typed XML builder on top of etree. Children and
// attributes render in insertion order and empty leaves are pruned.
package xmltree

import (
	"fmt"

	"github.com/beevik/etree"
)

// Attr is one attribute. Attributes with an empty value are not rendered.
type Attr struct {
	Key   string
	Value string
}

func A(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// Node is an element of the tree under construction.
type Node struct {
	name     string
	attrs    []Attr
	text     string
	children []*Node
	keep     bool
	leaf     bool
}

// E creates an element with children. Nil children are ignored.
func E(name string, children ...*Node) *Node {
	n := &Node{name: name}
	return n.Add(children...)
}

// T creates a text leaf.
func T(name, text string, attrs ...Attr) *Node {
	n := &Node{name: name, text: text, leaf: true}
	return n.Attrs(attrs...)
}

// Add appends children in order.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c != nil {
			n.children = append(n.children, c)
		}
	}
	return n
}

// Attrs appends attributes in order.
func (n *Node) Attrs(attrs ...Attr) *Node {
	for _, a := range attrs {
		if a.Value != "" {
			n.attrs = append(n.attrs, a)
		}
	}
	return n
}

// Keep marks the element to be rendered even when it ends up empty.
func (n *Node) Keep() *Node {
	n.keep = true
	return n
}

func (n *Node) Name() string { return n.name }

// SetName renames the element.
func (n *Node) SetName(name string) *Node {
	n.name = name
	return n
}

// Text returns the text of a leaf.
func (n *Node) Text() string { return n.text }

// Children returns the direct children, before pruning.
func (n *Node) Children() []*Node { return n.children }

// Find returns the first descendant named name, depth first.
func (n *Node) Find(name string) *Node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// build converts the node into an etree element, or nil when it prunes away. A text
// leaf without text is pruned even when it carries attributes; an element made with
// E survives when it has attributes or any surviving child.
func (n *Node) build() *etree.Element {
	el := etree.NewElement(n.name)
	for _, a := range n.attrs {
		el.CreateAttr(a.Key, a.Value)
	}
	hasChild := false
	for _, c := range n.children {
		if child := c.build(); child != nil {
			el.AddChild(child)
			hasChild = true
		}
	}
	if n.text != "" {
		el.SetText(n.text)
	}
	switch {
	case n.keep, n.text != "", hasChild:
		return el
	case !n.leaf && len(n.attrs) > 0:
		return el
	}
	return nil
}

// Options controls rendering.
type Options struct {
	Indent      int  // spaces per level, 0 for a single line
	Canonical   bool // canonical end tags, text and attribute escaping
	Declaration bool
}

// Pretty is the default rendering: declaration and two space indentation.
var Pretty = Options{Indent: 2, Declaration: true}

// Render serializes root to UTF-8 XML.
func Render(root *Node, opts Options) ([]byte, error) {
	el := root.build()
	if el == nil {
		return nil, fmt.Errorf("root element %s is empty", root.name)
	}
	doc := etree.NewDocument()
	if opts.Declaration {
		doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	}
	doc.SetRoot(el)
	if opts.Canonical {
		doc.WriteSettings.CanonicalEndTags = true
		doc.WriteSettings.CanonicalText = true
		doc.WriteSettings.CanonicalAttrVal = true
	}
	if opts.Indent > 0 {
		doc.Indent(opts.Indent)
	}
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render xml: %w", err)
	}
	return out, nil
}

// Reindent parses data and renders it again with indentation, for human inspection.
func Reindent(data []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse xml: %w", err)
	}
	doc.Indent(2)
	return doc.WriteToBytes()
}
