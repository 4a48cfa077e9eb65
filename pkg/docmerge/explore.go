package docmerge

import (
	"fmt"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/render"
	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

// Body delimits the template of a loop or conditional: the children
// From..To of Parent, which contain the Open and Close markers.
type Body struct {
	Parent *tree.Element
	From   int
	To     int
	Open   *tree.Text
	Close  *tree.Text
}

// explore scans forward from the open marker to its matching close. Nested
// opens and closes are only counted; nothing is resolved or modified.
func (x *executor) explore(open *tree.Text, cmd render.Command, frame *LoopFrame) (*Body, error) {
	w := tree.NewWalker(x.root)
	if err := w.Jump(open); err != nil {
		return nil, err
	}
	if _, ok := w.Next(); !ok {
		return nil, w.Err()
	}

	depth := 0
	for {
		ev, ok := w.Next()
		if !ok {
			if err := w.Err(); err != nil {
				return nil, err
			}
			return nil, &tree.TemplateSyntaxError{Message: "missing end for " + cmd.Kind.String(), Command: cmd.Raw}
		}
		if ev.Kind != tree.EventText {
			continue
		}
		t := ev.Node.(*tree.Text)
		if !x.isCommand(t) {
			continue
		}
		inner, err := render.ParseCommand(t.Value, x.delims)
		if err != nil {
			return nil, err
		}
		switch {
		case inner.Opens():
			depth++
		case inner.Kind == render.CmdEnd && depth > 0:
			depth--
		case inner.Kind == render.CmdEnd:
			if err := matchClose(frame, inner); err != nil {
				return nil, err
			}
			parent, from, to, ok := render.CommonAncestor(open, t)
			if !ok {
				return nil, tree.NewInvalidTreeError("explore", "markers do not share an ancestor")
			}
			return &Body{Parent: parent, From: from, To: to, Open: open, Close: t}, nil
		}
	}
}

// matchClose checks that a named or kinded close fits the innermost frame
func matchClose(frame *LoopFrame, end render.Command) error {
	if end.Closes != render.CmdEnd && end.Closes != frame.kind() {
		return &tree.TemplateSyntaxError{
			Message: fmt.Sprintf("%s closes a %s block", end.Raw, frame.kind()),
			Command: end.Raw,
		}
	}
	if end.Closes == render.CmdFor && end.Var != "" && end.Var != frame.VarName {
		return &tree.TemplateSyntaxError{
			Message: fmt.Sprintf("%s does not match loop variable '%s'", end.Raw, frame.VarName),
			Command: end.Raw,
		}
	}
	return nil
}
