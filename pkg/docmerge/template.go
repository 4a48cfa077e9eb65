package docmerge

import (
	"context"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/render"
	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

// Template is a normalized template tree. It is never modified after
// Prepare and may be expanded any number of times, concurrently.
type Template struct {
	// Prolog holds the processing instructions and comments to write before
	// the root element, as returned by markup.ParseDocument
	Prolog []string

	root   tree.Node
	delims render.Delimiters
	runTag string
}

// Prepare clones root and merges commands split across runs. Expanding the
// result skips that work on every call.
func (e *Engine) Prepare(root tree.Node) (*Template, error) {
	if root == nil {
		return nil, tree.NewInvalidTreeError("prepare", "nil root")
	}
	doc := tree.Clone(root)
	delims := e.config.delimiters()
	if err := render.NormalizeCommands(doc, delims, e.config.RunTextTag); err != nil {
		return nil, err
	}
	return &Template{root: doc, delims: delims, runTag: e.config.RunTextTag}, nil
}

// Commands returns the template's commands in document order, including
// those inside bodies an expansion may skip
func (t *Template) Commands() ([]render.Command, error) {
	return render.ListCommands(t.root, t.delims, t.runTag)
}

// Root returns a copy of the normalized tree
func (t *Template) Root() tree.Node {
	return tree.Clone(t.root)
}

// ExpandTemplate expands a prepared template. A template prepared with
// other delimiters or run-text tag is normalized again for this engine.
func (e *Engine) ExpandTemplate(ctx context.Context, t *Template) (out tree.Node, err error) {
	if t == nil {
		return nil, tree.NewInvalidTreeError("expand", "nil template")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, RecoverError(r)
		}
	}()

	doc := tree.Clone(t.root)
	if t.delims != e.config.delimiters() || t.runTag != e.config.RunTextTag {
		if err := render.NormalizeCommands(doc, e.config.delimiters(), e.config.RunTextTag); err != nil {
			return nil, err
		}
	}

	x := e.newExecutor(ctx, doc)
	if err := x.run(); err != nil {
		e.logger.Debug("expansion failed: %v", err)
		return nil, err
	}
	return doc, nil
}
