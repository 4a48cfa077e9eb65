package tree

// EventKind identifies a traversal event
type EventKind int

const (
	EventEnter EventKind = iota
	EventText
	EventExit
)

func (k EventKind) String() string {
	switch k {
	case EventEnter:
		return "enter"
	case EventText:
		return "text"
	case EventExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Event is emitted once per element entry, text leaf and element exit.
type Event struct {
	Kind EventKind
	Node Node
}

type walkState int

const (
	stateDescend  walkState = iota // cur has not been visited yet
	stateChildren                  // cur was entered, move to its first child
	stateAdvance                   // cur is finished, move to its next sibling
	stateAscend                    // the element on top of the stack is finished
	stateDone
)

type walkFrame struct {
	el    *Element
	index int // position of el in its parent
}

// Walker performs an iterative pre/post-order walk over a tree. All of its
// state lives in the struct, so a caller can stop between two events for as
// long as it likes, mutate the tree, reposition with Jump or ResumeAt, and
// carry on.
//
// Moves are computed lazily: after an event for node n, the walker only
// decides where to go next on the following call to Next, so changes made
// to n's children or later siblings in between are observed.
type Walker struct {
	root  Node
	stack []walkFrame
	cur   Node
	index int // position of cur in the element on top of the stack
	state walkState
	err   error
}

// NewWalker returns a walker positioned before root's first event.
func NewWalker(root Node) *Walker {
	w := &Walker{root: root, cur: root}
	if root == nil {
		w.state = stateDone
	}
	return w
}

// Root returns the node the walker was created for.
func (w *Walker) Root() Node { return w.root }

// Depth returns the number of open elements.
func (w *Walker) Depth() int { return len(w.stack) }

// Err returns the error that stopped the walk, if any.
func (w *Walker) Err() error { return w.err }

// Next returns the next event. It returns false when the walk is complete or
// the walker hit an inconsistent tree (see Err).
func (w *Walker) Next() (Event, bool) {
	for w.err == nil {
		switch w.state {
		case stateDone:
			return Event{}, false
		case stateAdvance:
			w.advance()
		case stateChildren:
			el := w.stack[len(w.stack)-1].el
			if len(el.children) > 0 {
				w.cur, w.index, w.state = el.children[0], 0, stateDescend
			} else {
				w.state = stateAscend
			}
		case stateAscend:
			top := w.stack[len(w.stack)-1]
			w.stack = w.stack[:len(w.stack)-1]
			w.cur, w.index, w.state = top.el, top.index, stateAdvance
			return Event{Kind: EventExit, Node: top.el}, true
		case stateDescend:
			switch n := w.cur.(type) {
			case *Text:
				w.state = stateAdvance
				return Event{Kind: EventText, Node: n}, true
			case *Element:
				w.stack = append(w.stack, walkFrame{el: n, index: w.index})
				w.state = stateChildren
				return Event{Kind: EventEnter, Node: n}, true
			default:
				w.err = NewInvalidTreeError("walk", "unknown node type")
			}
		}
	}
	return Event{}, false
}

// advance moves from the finished node cur to its next sibling, or to the
// pending exit of its parent.
func (w *Walker) advance() {
	if len(w.stack) == 0 {
		w.cur, w.state = nil, stateDone
		return
	}
	parent := w.stack[len(w.stack)-1].el
	if w.index >= len(parent.children) || parent.children[w.index] != w.cur {
		i := parent.IndexOf(w.cur)
		if i < 0 {
			w.err = NewInvalidTreeError("walk", "node detached from <"+parent.Tag+"> during traversal")
			return
		}
		w.index = i
	}
	if w.index+1 < len(parent.children) {
		w.index++
		w.cur, w.state = parent.children[w.index], stateDescend
		return
	}
	w.cur, w.state = parent, stateAscend
}

// Jump repositions the walker so that the next event is n's first event.
// The stack is rebuilt from parent links; n must lie under the walker root.
func (w *Walker) Jump(n Node) error {
	var path []Node
	for c := n; ; c = c.Parent() {
		path = append(path, c)
		if c == w.root {
			break
		}
		if c.Parent() == nil {
			return NewInvalidTreeError("jump", "node is not under the walker root")
		}
	}

	stack := make([]walkFrame, 0, len(path)-1)
	for i := len(path) - 1; i >= 1; i-- {
		el := path[i].(*Element)
		idx, err := w.positionOf(el)
		if err != nil {
			return err
		}
		stack = append(stack, walkFrame{el: el, index: idx})
	}
	idx, err := w.positionOf(n)
	if err != nil {
		return err
	}

	w.stack, w.cur, w.index, w.state, w.err = stack, n, idx, stateDescend, nil
	return nil
}

// ResumeAt positions the walker on parent's child at index. When index equals
// parent.Len() the next event is parent's exit.
func (w *Walker) ResumeAt(parent *Element, index int) error {
	if index < 0 || index > len(parent.children) {
		return NewInvalidTreeError("resume", "index out of range")
	}
	if index < len(parent.children) {
		return w.Jump(parent.children[index])
	}
	if err := w.Jump(parent); err != nil {
		return err
	}
	w.stack = append(w.stack, walkFrame{el: parent, index: w.index})
	w.state = stateAscend
	return nil
}

func (w *Walker) positionOf(n Node) (int, error) {
	if n == w.root {
		return 0, nil
	}
	i := n.Parent().IndexOf(n)
	if i < 0 {
		return 0, NewInvalidTreeError("jump", "parent link of <"+n.Parent().Tag+"> child is stale")
	}
	return i, nil
}

// Traverse walks root and calls fn for every event. fn may modify the tree
// at or after the current node, but must not detach the node it was handed
// or any of its ancestors. A non-nil error from fn stops the walk.
func Traverse(root Node, fn func(Event) error) error {
	w := NewWalker(root)
	for {
		ev, ok := w.Next()
		if !ok {
			return w.Err()
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

// Clone returns a deep copy of n without a parent.
func Clone(n Node) Node {
	var out Node
	var open []*Element
	attach := func(c Node) {
		if len(open) == 0 {
			out = c
			return
		}
		top := open[len(open)-1]
		c.setParent(top)
		top.children = append(top.children, c)
	}
	_ = Traverse(n, func(ev Event) error {
		switch ev.Kind {
		case EventEnter:
			c := CloneShallow(ev.Node).(*Element)
			attach(c)
			open = append(open, c)
		case EventText:
			attach(CloneShallow(ev.Node))
		case EventExit:
			open = open[:len(open)-1]
		}
		return nil
	})
	return out
}

// CloneRange deep copies a run of nodes, typically consecutive siblings.
func CloneRange(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Clone(n)
	}
	return out
}

// PathOf returns the child indexes leading from ancestor down to n, or nil
// and false if n is not under ancestor.
func PathOf(ancestor, n Node) ([]int, bool) {
	var rev []int
	for c := n; c != ancestor; c = c.Parent() {
		p := c.Parent()
		if p == nil {
			return nil, false
		}
		i := p.IndexOf(c)
		if i < 0 {
			return nil, false
		}
		rev = append(rev, i)
	}
	path := make([]int, len(rev))
	for i := range rev {
		path[i] = rev[len(rev)-1-i]
	}
	return path, true
}

// Follow resolves a path produced by PathOf against another (cloned) root.
func Follow(root Node, path []int) Node {
	n := root
	for _, i := range path {
		el, ok := n.(*Element)
		if !ok {
			return nil
		}
		n = el.Child(i)
		if n == nil {
			return nil
		}
	}
	return n
}
