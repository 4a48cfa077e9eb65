package docmerge

import (
	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/render"
	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

// sentinelTag marks the end of one iteration pass in the output. It never
// survives an expansion.
const sentinelTag = "docmerge:iteration"

// bodyTemplate is a detached loop body. Marker positions are stored as
// paths so they can be found again in every clone.
type bodyTemplate struct {
	parent    *tree.Element
	nodes     []tree.Node
	openPath  []int
	closePath []int
}

// detachBody removes the body range from the output. Whatever precedes the
// open marker in the first node, text or not, is put back once as a prefix,
// and whatever follows the close marker in the last node once as a suffix. The returned index is
// where iterations are inserted, between the two.
func (x *executor) detachBody(b *Body) (*bodyTemplate, int, error) {
	p := b.Parent
	nodes := append([]tree.Node(nil), p.Children()[b.From:b.To+1]...)
	first, last := nodes[0], nodes[len(nodes)-1]

	openPath, ok := tree.PathOf(first, b.Open)
	if !ok {
		return nil, 0, tree.NewInvalidTreeError("detach", "open marker is not under the body")
	}
	closePath, ok := tree.PathOf(last, b.Close)
	if !ok {
		return nil, 0, tree.NewInvalidTreeError("detach", "close marker is not under the body")
	}

	prefix := tree.Clone(first)
	prefixMarker, err := followText(prefix, openPath)
	if err != nil {
		return nil, 0, err
	}
	keepPrefix := x.trimmer.Cut(prefix, prefixMarker, render.CutAfter)

	suffix := tree.Clone(last)
	suffixMarker, err := followText(suffix, closePath)
	if err != nil {
		return nil, 0, err
	}
	keepSuffix := x.trimmer.Cut(suffix, suffixMarker, render.CutBefore)

	for range nodes {
		p.RemoveChildAt(b.From)
	}

	at := b.From
	if keepPrefix {
		if err := p.InsertChildAt(at, prefix); err != nil {
			return nil, 0, err
		}
		at++
	}
	if keepSuffix {
		if err := p.InsertChildAt(at, suffix); err != nil {
			return nil, 0, err
		}
	}

	return &bodyTemplate{parent: p, nodes: nodes, openPath: openPath, closePath: closePath}, at, nil
}

// emitIteration inserts a pruned clone of the body for the frame's current
// item at index at, followed by a sentinel, and moves the walker into it.
func (x *executor) emitIteration(f *LoopFrame, at int) error {
	tmpl := f.tmpl
	nodes := tree.CloneRange(tmpl.nodes)
	first, last := nodes[0], nodes[len(nodes)-1]

	open, err := followText(first, tmpl.openPath)
	if err != nil {
		return err
	}
	closeMarker, err := followText(last, tmpl.closePath)
	if err != nil {
		return err
	}

	kept := make([]tree.Node, 0, len(nodes))
	if x.trimmer.Cut(first, open, render.CutBefore) {
		kept = append(kept, first)
	}
	kept = append(kept, nodes[1:len(nodes)-1]...)
	if x.trimmer.Cut(last, closeMarker, render.CutAfter) {
		kept = append(kept, last)
	}

	for i, n := range kept {
		if err := tmpl.parent.InsertChildAt(at+i, n); err != nil {
			return err
		}
	}
	f.sentinel = tree.MustElement(sentinelTag, nil)
	if err := tmpl.parent.InsertChildAt(at+len(kept), f.sentinel); err != nil {
		return err
	}

	if len(kept) == 0 {
		return x.walker.Jump(f.sentinel)
	}
	return x.walker.Jump(kept[0])
}

// endIteration is called when the walker reaches a sentinel: the pass over
// the current item is complete.
func (x *executor) endIteration(sentinel *tree.Element) error {
	f := x.loops.current()
	if f == nil || f.sentinel != sentinel {
		return tree.NewInvalidTreeError("iterate", "iteration marker out of place")
	}
	p := sentinel.Parent()
	at := p.IndexOf(sentinel)
	p.RemoveChildAt(at)
	f.sentinel = nil

	f.Index++
	if f.Index < len(f.Items) {
		x.transition(f, FrameIterating)
		return x.emitIteration(f, at)
	}
	return x.finish(f, p, at)
}

// finish pops the frame and continues the walk with whatever follows the
// emitted iterations.
func (x *executor) finish(f *LoopFrame, p *tree.Element, at int) error {
	x.transition(f, FrameDone)
	x.loops.pop()
	return x.walker.ResumeAt(p, at)
}

func followText(root tree.Node, path []int) (*tree.Text, error) {
	t, ok := tree.Follow(root, path).(*tree.Text)
	if !ok {
		return nil, tree.NewInvalidTreeError("clone", "marker not found in body clone")
	}
	return t, nil
}
