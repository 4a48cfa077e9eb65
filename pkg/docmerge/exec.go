package docmerge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/render"
	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

// executor runs one expansion. It owns the output tree, the main walker and
// the loop stack; nothing in it is shared between Expand calls.
type executor struct {
	ctx      context.Context
	cfg      *Config
	delims   render.Delimiters
	resolver Resolver
	hooks    map[string]Hook
	logger   *Logger
	observer FrameObserver
	trimmer  *render.Trimmer

	root     tree.Node
	walker   *tree.Walker
	loops    loopStack
	errs     *MultiError
	ifCount  int
	produced map[*tree.Text]bool
}

func (e *Engine) newExecutor(ctx context.Context, root tree.Node) *executor {
	return &executor{
		ctx:      ctx,
		cfg:      e.config,
		delims:   e.config.delimiters(),
		resolver: e.resolver,
		hooks:    e.hooks,
		logger:   e.logger,
		observer: e.observer,
		trimmer:  render.NewTrimmer(e.config.RunTextTag, e.config.RemovableTags, e.config.KeepTags),
		root:     root,
		errs:     NewMultiError(),
		produced: make(map[*tree.Text]bool),
	}
}

// run walks the output tree once, executing commands as they are reached
func (x *executor) run() error {
	x.walker = tree.NewWalker(x.root)
	for {
		if err := x.ctx.Err(); err != nil {
			return err
		}
		ev, ok := x.walker.Next()
		if !ok {
			if err := x.walker.Err(); err != nil {
				return err
			}
			break
		}

		switch ev.Kind {
		case tree.EventEnter:
			if el := ev.Node.(*tree.Element); el.Tag == sentinelTag {
				if err := x.endIteration(el); err != nil {
					return err
				}
			}
		case tree.EventText:
			t := ev.Node.(*tree.Text)
			if !x.isCommand(t) {
				continue
			}
			if err := x.execute(t); err != nil {
				return err
			}
		}
	}

	if cur := x.loops.current(); cur != nil {
		return tree.NewInvalidTreeError("expand", "walk ended inside "+x.loops.describe())
	}
	render.EnsureRequiredChildren(x.root, x.cfg.RequiredChildren)
	return x.errs.Err()
}

func (x *executor) isCommand(t *tree.Text) bool {
	if x.produced[t] {
		return false
	}
	p := t.Parent()
	return p != nil && p.Tag == x.cfg.RunTextTag && render.IsCommandText(t.Value, x.delims)
}

func (x *executor) execute(t *tree.Text) error {
	cmd, err := render.ParseCommand(t.Value, x.delims)
	if err != nil {
		return err
	}
	switch cmd.Kind {
	case render.CmdFor, render.CmdIf:
		return x.open(t, cmd)
	case render.CmdEnd:
		return &tree.TemplateSyntaxError{Message: "end without matching for or if", Command: cmd.Raw}
	case render.CmdHook:
		return x.hook(t, cmd)
	default:
		return x.query(t, cmd)
	}
}

// open handles a for or if command: the frame is pushed, its body explored
// and its data resolved, then the first iteration is emitted.
func (x *executor) open(t *tree.Text, cmd render.Command) error {
	if x.loops.depth() >= x.cfg.MaxLoopDepth {
		return &tree.TemplateSyntaxError{
			Message: fmt.Sprintf("loops nested deeper than %d", x.cfg.MaxLoopDepth),
			Command: cmd.Raw,
		}
	}

	f := &LoopFrame{
		VarName:       cmd.Var,
		IndexVar:      cmd.IndexVar,
		Expr:          cmd.Expr,
		Index:         -1,
		IsConditional: cmd.Kind == render.CmdIf,
	}
	if f.IsConditional {
		f.VarName = fmt.Sprintf("__if_%d", x.ifCount)
		x.ifCount++
	}
	x.loops.push(f)
	x.transition(f, FrameExploring)

	body, err := x.explore(t, cmd, f)
	if err != nil {
		return err
	}
	f.body = body

	items, err := x.bind(f)
	if err != nil {
		return err
	}
	f.Items = items

	tmpl, at, err := x.detachBody(body)
	if err != nil {
		return err
	}
	f.tmpl = tmpl

	if len(items) == 0 {
		return x.finish(f, tmpl.parent, at)
	}
	f.Index = 0
	x.transition(f, FrameIterating)
	return x.emitIteration(f, at)
}

// bind resolves the frame's expression once. A loop needs a sequence; a
// conditional becomes one item when truthy and none otherwise.
func (x *executor) bind(f *LoopFrame) ([]any, error) {
	v, err := x.resolver.Resolve(x.ctx, Query{
		Expr:        f.Expr,
		Scope:       x.loops.scope(),
		Loop:        !f.IsConditional,
		Conditional: f.IsConditional,
	})

	if f.IsConditional {
		if err != nil {
			if errors.Is(err, ErrAbsent) {
				return nil, nil
			}
			return nil, x.resolutionError(f.Expr, err)
		}
		if isTruthy(v) {
			return []any{v}, nil
		}
		return nil, nil
	}

	if err != nil {
		if errors.Is(err, ErrAbsent) {
			return nil, NewResolutionError(f.Expr, &AbsentValueError{Expr: f.Expr})
		}
		return nil, x.resolutionError(f.Expr, err)
	}
	if v == nil {
		return nil, NewResolutionError(f.Expr, &AbsentValueError{Expr: f.Expr})
	}
	items, ok := toSlice(v)
	if !ok {
		return nil, NewResolutionError(f.Expr, fmt.Errorf("value of type %T is not a sequence", v))
	}
	return items, nil
}

// query replaces a placeholder with the resolved value
func (x *executor) query(t *tree.Text, cmd render.Command) error {
	v, err := x.resolver.Resolve(x.ctx, Query{Expr: cmd.Expr, Scope: x.loops.scope()})
	if err != nil {
		err = x.resolutionError(cmd.Expr, err)
		if x.cfg.FailFast || x.ctx.Err() != nil {
			return err
		}
		x.logger.Warn("query %s failed: %v", cmd.Expr, err)
		x.errs.Add(err)
		t.Value = ""
		return nil
	}
	return x.writeText(t, FormatValue(v))
}

// writeText stores s in t. With line break processing, every further line
// goes to a new run-text container preceded by a line break element.
func (x *executor) writeText(t *tree.Text, s string) error {
	if x.cfg.NormalizeUnicode {
		s = norm.NFC.String(s)
	}
	if !x.cfg.ProcessLineBreaks {
		t.Value = s
		render.PreserveSpace(t)
		return nil
	}

	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	t.Value = lines[0]
	render.PreserveSpace(t)
	cur := t
	for _, line := range lines[1:] {
		next, err := tree.SplitTextRun(cur, x.cfg.RunTextTag)
		if err != nil {
			return err
		}
		container := next.Parent()
		host := container.Parent()
		if err := host.InsertChildAt(host.IndexOf(container), tree.MustElement(x.cfg.LineBreakTag, nil)); err != nil {
			return err
		}
		next.Value = line
		render.PreserveSpace(next)
		x.produced[next] = true
		cur = next
	}
	return nil
}

// hook splices the nodes returned by a registered hook after the run that
// holds the command
func (x *executor) hook(t *tree.Text, cmd render.Command) error {
	t.Value = ""

	nodes, err := x.callHook(t, cmd)
	if err != nil {
		if x.cfg.FailFast || x.ctx.Err() != nil {
			return err
		}
		x.logger.Warn("hook %s failed: %v", cmd.HookName, err)
		x.errs.Add(err)
		return nil
	}

	var anchor tree.Node = t.Parent()
	if run := t.Parent().Parent(); run != nil && run.Parent() != nil {
		anchor = run
	}
	host := anchor.Parent()
	if host == nil {
		return &HookError{Name: cmd.HookName, Cause: tree.NewInvalidTreeError("hook", "command has no enclosing run")}
	}
	at := host.IndexOf(anchor) + 1
	for i, n := range nodes {
		if err := host.InsertChildAt(at+i, n); err != nil {
			return &HookError{Name: cmd.HookName, Cause: err}
		}
	}
	return nil
}

func (x *executor) callHook(t *tree.Text, cmd render.Command) ([]tree.Node, error) {
	h, ok := x.hooks[cmd.HookName]
	if !ok {
		return nil, &HookError{Name: cmd.HookName, Cause: errors.New("hook not registered")}
	}
	nodes, err := h.Insert(x.ctx, HookCall{
		Name:  cmd.HookName,
		Args:  cmd.HookArgs,
		Scope: x.loops.scope(),
		At:    t,
	})
	if err != nil {
		if ctxErr := x.ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &HookError{Name: cmd.HookName, Cause: err}
	}
	return nodes, nil
}

// resolutionError wraps resolver failures, leaving context errors and
// errors that are already typed untouched
func (x *executor) resolutionError(expr string, err error) error {
	if ctxErr := x.ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var rerr *ResolutionError
	if errors.As(err, &rerr) {
		return err
	}
	return NewResolutionError(expr, err)
}

// transition logs a frame state change and notifies the observer
func (x *executor) transition(f *LoopFrame, state FrameState) {
	if x.logger.IsDebugMode() {
		x.logger.WithFields(Fields{"depth": x.loops.depth() - 1, "expr": f.Expr}).Debug("%s %s", x.loops.describe(), state)
	}
	if x.observer != nil {
		x.observer(x.loops.event(f, state))
	}
}
