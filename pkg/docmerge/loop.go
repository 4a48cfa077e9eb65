package docmerge

import (
	"fmt"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/render"
	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

// FrameState is the phase of a loop or conditional frame
type FrameState int

const (
	// FrameExploring: the body is being delimited, no query is resolved
	FrameExploring FrameState = iota
	// FrameIterating: a pass over one item is in progress
	FrameIterating
	// FrameDone: every item was emitted and the frame was popped
	FrameDone
)

func (s FrameState) String() string {
	switch s {
	case FrameExploring:
		return "Exploring"
	case FrameIterating:
		return "Iterating"
	case FrameDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// LoopFrame is the runtime state of one open loop or conditional
type LoopFrame struct {
	// VarName is the loop binding, or a synthetic "__if_N" for conditionals
	VarName  string
	IndexVar string
	Expr     string
	Items    []any
	// Index is -1 while exploring and the current item otherwise
	Index         int
	IsConditional bool

	body     *Body
	tmpl     *bodyTemplate
	sentinel *tree.Element
}

// State derives the frame phase from Index
func (f *LoopFrame) State() FrameState {
	switch {
	case f.Index < 0:
		return FrameExploring
	case f.Index >= len(f.Items):
		return FrameDone
	default:
		return FrameIterating
	}
}

func (f *LoopFrame) kind() render.CommandKind {
	if f.IsConditional {
		return render.CmdIf
	}
	return render.CmdFor
}

// FrameEvent reports a frame transition to a FrameObserver
type FrameEvent struct {
	Depth         int
	VarName       string
	Expr          string
	IsConditional bool
	State         FrameState
	// Index is the item being emitted while Iterating
	Index int
	Total int
}

func (e FrameEvent) String() string {
	if e.State == FrameIterating {
		return fmt.Sprintf("%s(%d)", e.State, e.Index)
	}
	return e.State.String()
}

// FrameObserver is notified of every frame transition of an expansion
type FrameObserver func(FrameEvent)

// loopStack holds the open frames, outermost first
type loopStack struct {
	frames []*LoopFrame
}

func (s *loopStack) depth() int { return len(s.frames) }

// current returns the innermost frame
func (s *loopStack) current() *LoopFrame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// exploring reports whether the innermost frame is still delimiting its body
func (s *loopStack) exploring() bool {
	cur := s.current()
	return cur != nil && cur.Index < 0
}

func (s *loopStack) push(f *LoopFrame) { s.frames = append(s.frames, f) }

func (s *loopStack) pop() *LoopFrame {
	cur := s.current()
	if cur != nil {
		s.frames = s.frames[:len(s.frames)-1]
	}
	return cur
}

// scope exposes the bindings of every iterating loop, innermost last
func (s *loopStack) scope() *Scope {
	sc := &Scope{}
	for _, f := range s.frames {
		if f.IsConditional || f.State() != FrameIterating {
			continue
		}
		if f.IndexVar != "" {
			sc.bindings = append(sc.bindings, Binding{Name: f.IndexVar, Value: f.Index})
		}
		sc.bindings = append(sc.bindings, Binding{Name: f.VarName, Value: f.Items[f.Index]})
	}
	return sc
}

// describe renders the innermost frame as "FOR loop on 0:item 2/3" or
// "IF loop on 1:__if_0 EXPLORATION/0"
func (s *loopStack) describe() string {
	cur := s.current()
	if cur == nil {
		return "no loop"
	}
	kind := "FOR"
	if cur.IsConditional {
		kind = "IF"
	}
	idx := "EXPLORATION"
	if cur.Index >= 0 {
		idx = fmt.Sprintf("%d", cur.Index+1)
	}
	return fmt.Sprintf("%s loop on %d:%s %s/%d", kind, len(s.frames)-1, cur.VarName, idx, len(cur.Items))
}

func (s *loopStack) event(f *LoopFrame, state FrameState) FrameEvent {
	return FrameEvent{
		Depth:         len(s.frames) - 1,
		VarName:       f.VarName,
		Expr:          f.Expr,
		IsConditional: f.IsConditional,
		State:         state,
		Index:         f.Index,
		Total:         len(f.Items),
	}
}
