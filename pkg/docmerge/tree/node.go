package tree

// Node is a text leaf or a tagged element. The set of implementations is
// closed: *Text and *Element.
type Node interface {
	// Parent returns the element that owns this node, or nil for a root.
	Parent() *Element
	setParent(p *Element)
	isNode()
}

// Text is a text leaf.
type Text struct {
	Value  string
	parent *Element
}

// Element is a tagged node with attributes and an ordered child list.
type Element struct {
	Tag      string
	Attrs    map[string]string
	children []Node
	parent   *Element
}

func (t *Text) Parent() *Element     { return t.parent }
func (t *Text) setParent(p *Element) { t.parent = p }
func (*Text) isNode()                {}

func (e *Element) Parent() *Element     { return e.parent }
func (e *Element) setParent(p *Element) { e.parent = p }
func (*Element) isNode()                {}

// NewText creates a detached text leaf.
func NewText(text string) *Text {
	return &Text{Value: text}
}

// NewElement creates an element and adopts the supplied children. A child
// that already belongs to another element is rejected.
func NewElement(tag string, attrs map[string]string, children ...Node) (*Element, error) {
	if attrs == nil {
		attrs = make(map[string]string)
	}
	e := &Element{Tag: tag, Attrs: attrs, children: make([]Node, 0, len(children))}
	seen := make(map[Node]bool, len(children))
	for _, child := range children {
		if child == nil {
			return nil, NewInvalidTreeError("create", "nil child for <"+tag+">")
		}
		if seen[child] {
			return nil, NewInvalidTreeError("create", "child supplied twice to <"+tag+">")
		}
		if child.Parent() != nil {
			return nil, NewInvalidTreeError("create", "child already has a parent <"+child.Parent().Tag+">")
		}
		seen[child] = true
	}
	for _, child := range children {
		child.setParent(e)
		e.children = append(e.children, child)
	}
	return e, nil
}

// MustElement is like NewElement but panics on error. Intended for literal
// trees in tests and examples.
func MustElement(tag string, attrs map[string]string, children ...Node) *Element {
	e, err := NewElement(tag, attrs, children...)
	if err != nil {
		panic(err)
	}
	return e
}

// AppendChild appends child to parent and returns child.
func AppendChild(parent *Element, child Node) (Node, error) {
	if err := parent.InsertChildAt(len(parent.children), child); err != nil {
		return nil, err
	}
	return child, nil
}

// Children returns the child list. The slice must not be modified.
func (e *Element) Children() []Node { return e.children }

// Len returns the number of children.
func (e *Element) Len() int { return len(e.children) }

// Child returns the i-th child or nil when i is out of range.
func (e *Element) Child(i int) Node {
	if i < 0 || i >= len(e.children) {
		return nil
	}
	return e.children[i]
}

// IndexOf returns the position of child among e's children, or -1.
func (e *Element) IndexOf(child Node) int {
	for i, c := range e.children {
		if c == child {
			return i
		}
	}
	return -1
}

// InsertChildAt inserts child at position i (0 <= i <= Len()).
func (e *Element) InsertChildAt(i int, child Node) error {
	if child == nil {
		return NewInvalidTreeError("insert", "nil child")
	}
	if i < 0 || i > len(e.children) {
		return NewInvalidTreeError("insert", "index out of range")
	}
	if child.Parent() != nil {
		return NewInvalidTreeError("insert", "child already has a parent <"+child.Parent().Tag+">")
	}
	if ce, ok := child.(*Element); ok {
		for a := e; a != nil; a = a.parent {
			if a == ce {
				return NewInvalidTreeError("insert", "cannot insert an ancestor into its own subtree")
			}
		}
	}
	e.children = append(e.children, nil)
	copy(e.children[i+1:], e.children[i:])
	e.children[i] = child
	child.setParent(e)
	return nil
}

// RemoveChildAt detaches and returns the i-th child.
func (e *Element) RemoveChildAt(i int) Node {
	if i < 0 || i >= len(e.children) {
		return nil
	}
	child := e.children[i]
	copy(e.children[i:], e.children[i+1:])
	e.children[len(e.children)-1] = nil
	e.children = e.children[:len(e.children)-1]
	child.setParent(nil)
	return child
}

// RemoveChild detaches child from e. It reports whether child was found.
func (e *Element) RemoveChild(child Node) bool {
	i := e.IndexOf(child)
	if i < 0 {
		return false
	}
	e.RemoveChildAt(i)
	return true
}

// Detach removes n from its parent, if any.
func Detach(n Node) {
	if p := n.Parent(); p != nil {
		p.RemoveChild(n)
	}
}

// CloneShallow copies n without its children and without a parent.
func CloneShallow(n Node) Node {
	switch v := n.(type) {
	case *Text:
		return &Text{Value: v.Value}
	case *Element:
		attrs := make(map[string]string, len(v.Attrs))
		for k, val := range v.Attrs {
			attrs[k] = val
		}
		return &Element{Tag: v.Tag, Attrs: attrs}
	}
	return nil
}

// NextSibling returns the node following n in its parent, or nil.
func NextSibling(n Node) Node {
	p := n.Parent()
	if p == nil {
		return nil
	}
	i := p.IndexOf(n)
	if i < 0 || i >= len(p.children)-1 {
		return nil
	}
	return p.children[i+1]
}

// Root returns the parentless ancestor of n.
func Root(n Node) Node {
	for n.Parent() != nil {
		n = n.Parent()
	}
	return n
}

// TextContent concatenates every text leaf under n in document order.
func TextContent(n Node) string {
	var b []byte
	_ = Traverse(n, func(ev Event) error {
		if ev.Kind == EventText {
			b = append(b, ev.Node.(*Text).Value...)
		}
		return nil
	})
	return string(b)
}
