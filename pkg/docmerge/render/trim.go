package render

import (
	"strings"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

// CommonAncestor returns the deepest element containing both a and b, with
// the positions of its children that lead to a and to b.
func CommonAncestor(a, b tree.Node) (parent *tree.Element, ia, ib int, ok bool) {
	onPath := make(map[*tree.Element]int)
	child := a
	for p := a.Parent(); p != nil; p = p.Parent() {
		onPath[p] = p.IndexOf(child)
		child = p
	}
	child = b
	for p := b.Parent(); p != nil; p = p.Parent() {
		if i, found := onPath[p]; found {
			return p, i, p.IndexOf(child), true
		}
		child = p
	}
	return nil, -1, -1, false
}

// Side selects which part of a subtree Cut removes
type Side int

const (
	// CutBefore removes the marker and everything before it
	CutBefore Side = iota
	// CutAfter removes the marker and everything after it
	CutAfter
)

// Trimmer cuts subtrees at command markers and cleans up the block
// elements left without content, e.g. a paragraph that only held a loop
// command.
type Trimmer struct {
	ContainerTag string
	Removable    map[string]bool
	// Keep holds property elements such as w:pPr. Cut never removes them
	// and they do not count as content.
	Keep map[string]bool
}

// NewTrimmer creates a trimmer for the given run-text container tag,
// removable block tags and property tags
func NewTrimmer(containerTag string, removable, keep []string) *Trimmer {
	tr := &Trimmer{
		ContainerTag: containerTag,
		Removable:    make(map[string]bool, len(removable)),
		Keep:         make(map[string]bool, len(keep)),
	}
	for _, tag := range removable {
		tr.Removable[tag] = true
	}
	for _, tag := range keep {
		tr.Keep[tag] = true
	}
	return tr
}

// Cut removes marker and every node on one side of it in document order,
// whatever its kind, from the subtree at root. The marker's ancestors stay,
// minus their children on the cut side, except those in Keep. Afterwards
// each ancestor up to root is dropped when it is a run-text container or a
// removable element left without content. Cut returns false when root
// itself should be dropped by the caller.
func (tr *Trimmer) Cut(root tree.Node, marker *tree.Text, side Side) bool {
	if tree.Node(marker) == root {
		return false
	}
	if _, ok := tree.PathOf(root, marker); !ok {
		return true
	}

	var path []*tree.Element
	child := tree.Node(marker)
	for p := marker.Parent(); p != nil; p = p.Parent() {
		i := p.IndexOf(child)
		var drop []tree.Node
		for j, c := range p.Children() {
			if (side == CutBefore && j >= i) || (side == CutAfter && j <= i) {
				continue
			}
			if el, ok := c.(*tree.Element); ok && tr.Keep[el.Tag] {
				continue
			}
			drop = append(drop, c)
		}
		for _, c := range drop {
			p.RemoveChild(c)
		}
		path = append(path, p)
		if tree.Node(p) == root {
			break
		}
		child = p
	}
	tree.Detach(marker)

	// ancestors left without content by the cut are hollow: a cell that
	// only held the marker does not keep its row
	hollow := make(map[*tree.Element]bool)
	for _, el := range path {
		if tr.hasContent(el, hollow) {
			continue
		}
		hollow[el] = true
		if el.Tag != tr.ContainerTag && !tr.Removable[el.Tag] {
			continue
		}
		if tree.Node(el) == root {
			return false
		}
		tree.Detach(el)
	}
	return true
}

// HasContent reports whether n holds anything worth keeping: non-blank
// text, or an element that is neither removable, a property element nor a
// run-text container. Empty removable elements and property elements are
// not content.
func (tr *Trimmer) HasContent(n tree.Node) bool {
	return tr.hasContent(n, nil)
}

func (tr *Trimmer) hasContent(n tree.Node, hollow map[*tree.Element]bool) bool {
	switch v := n.(type) {
	case *tree.Text:
		return strings.TrimSpace(v.Value) != ""
	case *tree.Element:
		if tr.Keep[v.Tag] || hollow[v] {
			return false
		}
		if v.Len() == 0 {
			return v.Tag != tr.ContainerTag && !tr.Removable[v.Tag]
		}
		for _, c := range v.Children() {
			if tr.hasContent(c, hollow) {
				return true
			}
		}
	}
	return false
}

// EnsureRequiredChildren adds an empty child element wherever a container
// lost all children of a required tag. For WordprocessingML a table cell
// must end with a paragraph: {"w:tc": "w:p"}.
func EnsureRequiredChildren(root tree.Node, required map[string]string) {
	if len(required) == 0 {
		return
	}
	var missing []*tree.Element
	_ = tree.Traverse(root, func(ev tree.Event) error {
		if ev.Kind != tree.EventExit {
			return nil
		}
		el := ev.Node.(*tree.Element)
		want, ok := required[el.Tag]
		if !ok {
			return nil
		}
		for _, c := range el.Children() {
			if ce, isEl := c.(*tree.Element); isEl && ce.Tag == want {
				return nil
			}
		}
		missing = append(missing, el)
		return nil
	})
	for _, el := range missing {
		tree.AppendChild(el, tree.MustElement(required[el.Tag], nil))
	}
}
