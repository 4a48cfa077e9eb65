package docmerge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/markup"
	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/render"
	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

// p builds a single-run paragraph
func p(text string) string {
	return "<w:p><w:r><w:t>" + text + "</w:t></w:r></w:p>"
}

func docBody(parts ...string) string {
	return "<w:body>" + strings.Join(parts, "") + "</w:body>"
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithConfig(DefaultConfig())}, opts...)
	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func expand(t *testing.T, e *Engine, src string) (tree.Node, error) {
	t.Helper()
	root, err := markup.ParseString(src)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	return e.Expand(context.Background(), root)
}

func mustExpand(t *testing.T, e *Engine, src string) tree.Node {
	t.Helper()
	out, err := expand(t, e, src)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	return out
}

// paragraphs returns the text of every paragraph in document order
func paragraphs(root tree.Node) []string {
	var out []string
	_ = tree.Traverse(root, func(ev tree.Event) error {
		if ev.Kind == tree.EventEnter && ev.Node.(*tree.Element).Tag == "w:p" {
			out = append(out, tree.TextContent(ev.Node))
		}
		return nil
	})
	return out
}

func countTag(root tree.Node, tag string) int {
	n := 0
	_ = tree.Traverse(root, func(ev tree.Event) error {
		if ev.Kind == tree.EventEnter && ev.Node.(*tree.Element).Tag == tag {
			n++
		}
		return nil
	})
	return n
}

func recordFrames(events *[]string) Option {
	return WithFrameObserver(func(ev FrameEvent) {
		*events = append(*events, ev.String())
	})
}

func TestLoopUnroll(t *testing.T) {
	var states []string
	e := newTestEngine(t,
		WithData(TemplateData{"items": []string{"a", "b", "c"}}),
		recordFrames(&states),
	)

	out := mustExpand(t, e, docBody(
		p("{{for item in items}}"),
		p("Item: {{item}}"),
		p("{{end}}"),
		p("After"),
	))

	want := []string{"Item: a", "Item: b", "Item: c", "After"}
	if diff := cmp.Diff(want, paragraphs(out)); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}
	wantStates := []string{"Exploring", "Iterating(0)", "Iterating(1)", "Iterating(2)", "Done"}
	if diff := cmp.Diff(wantStates, states); diff != "" {
		t.Errorf("frame states mismatch (-want +got):\n%s", diff)
	}
	if n := countTag(out, sentinelTag); n != 0 {
		t.Errorf("%d iteration markers left in output", n)
	}
}

func TestLoopZeroIterations(t *testing.T) {
	var states []string
	e := newTestEngine(t,
		WithData(TemplateData{"items": []any{}}),
		recordFrames(&states),
	)

	out := mustExpand(t, e, docBody(
		p("Before"),
		p("{{for item in items}}"),
		p("Item: {{item}}"),
		p("{{end}}"),
		p("After"),
	))

	if diff := cmp.Diff([]string{"Before", "After"}, paragraphs(out)); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Exploring", "Done"}, states); diff != "" {
		t.Errorf("frame states mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopDoesNotModifyTemplate(t *testing.T) {
	e := newTestEngine(t, WithData(TemplateData{"items": []int{1, 2}}))
	src := docBody(p("{{for item in items}}"), p("{{item}}"), p("{{end}}"))
	root, err := markup.ParseString(src)
	if err != nil {
		t.Fatal(err)
	}
	before := markup.String(root)

	if _, err := e.Expand(context.Background(), root); err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if after := markup.String(root); after != before {
		t.Errorf("template modified:\nbefore %s\nafter  %s", before, after)
	}
}

func TestAbsentValues(t *testing.T) {
	tests := []struct {
		name       string
		template   string
		want       []string
		wantAbsent bool
	}{
		{
			name:     "absent conditional is false",
			template: docBody(p("{{if missing}}"), p("Hidden"), p("{{end}}"), p("Shown")),
			want:     []string{"Shown"},
		},
		{
			name:       "absent loop collection is an error",
			template:   docBody(p("{{for x in missing}}"), p("{{x}}"), p("{{end}}")),
			wantAbsent: true,
		},
		{
			name:       "nil loop collection is an error",
			template:   docBody(p("{{for x in nothing}}"), p("{{x}}"), p("{{end}}")),
			wantAbsent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, WithData(TemplateData{"nothing": nil}))
			out, err := expand(t, e, tt.template)
			if tt.wantAbsent {
				if !IsAbsentValueError(err) {
					t.Fatalf("Expand() error = %v, want AbsentValueError", err)
				}
				if !IsResolutionError(err) {
					t.Errorf("Expand() error = %v, want ResolutionError", err)
				}
				if !errors.Is(err, ErrAbsent) {
					t.Error("AbsentValueError does not unwrap to ErrAbsent")
				}
				if out != nil {
					t.Error("Expand() returned a tree on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, paragraphs(out)); diff != "" {
				t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConditionals(t *testing.T) {
	tests := []struct {
		name     string
		data     TemplateData
		template string
		want     []string
	}{
		{
			name:     "true block kept once",
			data:     TemplateData{"show": true},
			template: docBody(p("{{if show}}"), p("Visible"), p("{{end-if}}")),
			want:     []string{"Visible"},
		},
		{
			name:     "false block removed",
			data:     TemplateData{"show": false},
			template: docBody(p("{{if show}}"), p("Visible"), p("{{end}}"), p("Tail")),
			want:     []string{"Tail"},
		},
		{
			name:     "inline true",
			data:     TemplateData{"show": "yes"},
			template: docBody(p("A{{if show}}B{{end}}C")),
			want:     []string{"ABC"},
		},
		{
			name:     "inline false",
			data:     TemplateData{"show": 0},
			template: docBody(p("A{{if show}}B{{end}}C")),
			want:     []string{"AC"},
		},
		{
			name:     "empty slice is false",
			data:     TemplateData{"list": []string{}},
			template: docBody(p("{{if list}}has items{{end}}")),
			want:     []string{""},
		},
		{
			name:     "text around block markers survives",
			data:     TemplateData{"show": true, "name": "Ada"},
			template: docBody(p("Dear {{if show}}"), p("{{name}}"), p("{{end}}, welcome")),
			want:     []string{"Dear ", "Ada", ", welcome"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, WithData(tt.data))
			out := mustExpand(t, e, tt.template)
			if diff := cmp.Diff(tt.want, paragraphs(out)); diff != "" {
				t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInlineLoop(t *testing.T) {
	e := newTestEngine(t, WithData(TemplateData{"names": []string{"x", "y"}}))
	out := mustExpand(t, e, docBody(p("Names: {{for n in names}}{{n}}, {{end}}done")))

	if diff := cmp.Diff([]string{"Names: x, y, done"}, paragraphs(out)); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexedLoop(t *testing.T) {
	e := newTestEngine(t, WithData(TemplateData{"items": []string{"a", "b"}}))
	out := mustExpand(t, e, docBody(p("{{for i, item in items}}[{{i}}:{{item}}]{{end-for item}}")))

	if diff := cmp.Diff([]string{"[0:a][1:b]"}, paragraphs(out)); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}
}

func TestNestedLoops(t *testing.T) {
	data := TemplateData{
		"groups": []any{
			map[string]any{"name": "A", "members": []string{"a1", "a2"}},
			map[string]any{"name": "B", "members": []string{}},
			map[string]any{"name": "C", "members": []string{"c1"}},
		},
	}
	var states []string
	e := newTestEngine(t, WithData(data), recordFrames(&states))

	out := mustExpand(t, e, docBody(
		p("{{for g in groups}}"),
		p("Group {{g.name}}"),
		p("{{for m in g.members}}"),
		p("- {{m}}"),
		p("{{end}}"),
		p("{{end}}"),
	))

	want := []string{"Group A", "- a1", "- a2", "Group B", "Group C", "- c1"}
	if diff := cmp.Diff(want, paragraphs(out)); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}

	wantStates := []string{
		"Exploring", "Iterating(0)",
		"Exploring", "Iterating(0)", "Iterating(1)", "Done",
		"Iterating(1)",
		"Exploring", "Done",
		"Iterating(2)",
		"Exploring", "Iterating(0)", "Done",
		"Done",
	}
	if diff := cmp.Diff(wantStates, states); diff != "" {
		t.Errorf("frame states mismatch (-want +got):\n%s", diff)
	}
}

func TestInnerBindingShadowsOuter(t *testing.T) {
	var scopes [][]Binding
	resolver := ResolverFunc(func(ctx context.Context, q Query) (any, error) {
		switch q.Expr {
		case "outer":
			return []string{"o"}, nil
		case "inner":
			return []string{"i"}, nil
		}
		scopes = append(scopes, q.Scope.Bindings())
		v, ok := q.Scope.Lookup(q.Expr)
		if !ok {
			return nil, ErrAbsent
		}
		return v, nil
	})
	e := newTestEngine(t, WithResolver(resolver))

	out := mustExpand(t, e, docBody(p("{{for x in outer}}{{for x in inner}}{{x}}{{end}}{{x}}{{end}}")))

	if diff := cmp.Diff([]string{"io"}, paragraphs(out)); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}
	wantScopes := [][]Binding{
		{{Name: "x", Value: "o"}, {Name: "x", Value: "i"}},
		{{Name: "x", Value: "o"}},
	}
	if diff := cmp.Diff(wantScopes, scopes); diff != "" {
		t.Errorf("scopes mismatch (-want +got):\n%s", diff)
	}
}

func TestTableRowLoop(t *testing.T) {
	faker := gofakeit.New(7)
	var rows []any
	for i := 0; i < 4; i++ {
		rows = append(rows, map[string]any{
			"product": faker.ProductName(),
			"qty":     faker.Number(1, 50),
		})
	}
	e := newTestEngine(t, WithData(TemplateData{"rows": rows}))

	cell := func(text string) string { return "<w:tc>" + p(text) + "</w:tc>" }
	out := mustExpand(t, e, docBody(
		"<w:tbl>",
		"<w:tr>"+cell("Product")+cell("Qty")+"</w:tr>",
		"<w:tr>"+cell("{{for row in rows}}")+"</w:tr>",
		"<w:tr>"+cell("{{row.product}}")+cell("{{row.qty}}")+"</w:tr>",
		"<w:tr>"+cell("{{end}}")+"</w:tr>",
		"</w:tbl>",
	))

	if n := countTag(out, "w:tr"); n != len(rows)+1 {
		t.Fatalf("got %d rows, want %d", n, len(rows)+1)
	}
	got := paragraphs(out)
	want := []string{"Product", "Qty"}
	for _, r := range rows {
		m := r.(map[string]any)
		want = append(want, m["product"].(string), FormatValue(m["qty"]))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopKeepsNonTextContent(t *testing.T) {
	const drawing = "<w:r><w:drawing><wp:inline/></w:drawing></w:r>"
	marker := func(cmd string) string { return "<w:r><w:t>" + cmd + "</w:t></w:r>" }
	open, end := marker("{{for x in xs}}"), marker("{{end}}")

	tests := []struct {
		name         string
		template     string
		wantDrawings int
		want         []string
	}{
		{
			name:         "drawing after open is part of the body",
			template:     docBody("<w:p>"+open+drawing+"</w:p>", p("{{x}}"), p("{{end}}")),
			wantDrawings: 2,
			want:         []string{"", "a", "", "b"},
		},
		{
			name:         "drawing before open is kept once",
			template:     docBody("<w:p>"+drawing+open+"</w:p>", p("{{x}}"), p("{{end}}")),
			wantDrawings: 1,
			want:         []string{"", "a", "b"},
		},
		{
			name:         "drawing before end is part of the body",
			template:     docBody(p("{{for x in xs}}"), p("{{x}}"), "<w:p>"+drawing+end+"</w:p>"),
			wantDrawings: 2,
			want:         []string{"a", "", "b", ""},
		},
		{
			name:         "drawing after end is kept once",
			template:     docBody(p("{{for x in xs}}"), p("{{x}}"), "<w:p>"+end+drawing+"</w:p>"),
			wantDrawings: 1,
			want:         []string{"a", "b", ""},
		},
		{
			name: "proofing marks do not keep a command paragraph",
			template: docBody(
				`<w:p><w:proofErr w:type="spellStart"/>`+open+`<w:proofErr w:type="spellEnd"/></w:p>`,
				p("{{x}}"), p("{{end}}"),
			),
			want: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, WithData(TemplateData{"xs": []string{"a", "b"}}))
			out := mustExpand(t, e, tt.template)
			if n := countTag(out, "w:drawing"); n != tt.wantDrawings {
				t.Errorf("got %d drawings, want %d: %s", n, tt.wantDrawings, markup.String(out))
			}
			if diff := cmp.Diff(tt.want, paragraphs(out)); diff != "" {
				t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRequiredChildrenRestored(t *testing.T) {
	e := newTestEngine(t)
	out := mustExpand(t, e, docBody(
		"<w:tbl><w:tr><w:tc>",
		p("{{if missing}}"), p("Only content"), p("{{end}}"),
		"</w:tc></w:tr></w:tbl>",
	))

	want := "<w:body><w:tbl><w:tr><w:tc><w:p/></w:tc></w:tr></w:tbl></w:body>"
	if got := markup.String(out); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestLineBreaks(t *testing.T) {
	tests := []struct {
		name   string
		enable bool
		want   string
	}{
		{
			name:   "newlines become breaks",
			enable: true,
			want:   "<w:body><w:p><w:r><w:t>Line 1</w:t><w:br/><w:t>Line 2</w:t></w:r></w:p></w:body>",
		},
		{
			name:   "newlines kept as text",
			enable: false,
			want:   "<w:body><w:p><w:r><w:t>Line 1\nLine 2</w:t></w:r></w:p></w:body>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ProcessLineBreaks = tt.enable
			e := newTestEngine(t, WithConfig(cfg), WithData(TemplateData{"addr": "Line 1\nLine 2"}))
			out := mustExpand(t, e, docBody(p("{{addr}}")))
			if got := markup.String(out); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolvedTextIsNotExecuted(t *testing.T) {
	e := newTestEngine(t, WithData(TemplateData{"v": "{{x}}\n{{for a in b}}"}))
	out := mustExpand(t, e, docBody(p("{{v}}")))
	if diff := cmp.Diff([]string{"{{x}}{{for a in b}}"}, paragraphs(out)); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeUnicode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NormalizeUnicode = true
	e := newTestEngine(t, WithConfig(cfg), WithData(TemplateData{"name": "Jose\u0301"}))
	out := mustExpand(t, e, docBody(p("{{name}}")))
	if got := paragraphs(out)[0]; got != "Jos\u00e9" {
		t.Errorf("got %q, want NFC form", got)
	}
}

func TestSplitCommandAcrossRuns(t *testing.T) {
	e := newTestEngine(t, WithData(TemplateData{"customer": map[string]any{"name": "Ada"}}))
	out := mustExpand(t, e, docBody(
		`<w:p><w:r><w:t>Hello {{cust</w:t></w:r><w:r><w:rPr><w:b/></w:rPr><w:t>omer.na</w:t></w:r><w:r><w:t>me}}!</w:t></w:r></w:p>`,
	))
	if diff := cmp.Diff([]string{"Hello Ada!"}, paragraphs(out)); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}
}

func TestHooks(t *testing.T) {
	var calls []HookCall
	logo := HookFunc(func(ctx context.Context, call HookCall) ([]tree.Node, error) {
		calls = append(calls, call)
		return []tree.Node{
			tree.MustElement("w:r", nil, tree.MustElement("w:drawing", map[string]string{"name": call.Args})),
		}, nil
	})
	e := newTestEngine(t, WithHook("image", logo))

	out := mustExpand(t, e, docBody(p("{{hook image logo.png}}")))

	want := `<w:body><w:p><w:r><w:t></w:t></w:r><w:r><w:drawing name="logo.png"/></w:r></w:p></w:body>`
	if got := markup.String(out); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if len(calls) != 1 || calls[0].Name != "image" || calls[0].At == nil {
		t.Errorf("unexpected hook calls: %+v", calls)
	}
}

func TestHookErrors(t *testing.T) {
	failing := HookFunc(func(ctx context.Context, call HookCall) ([]tree.Node, error) {
		return nil, errors.New("boom")
	})
	e := newTestEngine(t, WithHook("fail", failing))

	if _, err := expand(t, e, docBody(p("{{hook fail}}"))); !IsHookError(err) {
		t.Errorf("failing hook: error = %v, want HookError", err)
	}
	if _, err := expand(t, e, docBody(p("{{hook unknown}}"))); !IsHookError(err) {
		t.Errorf("unknown hook: error = %v, want HookError", err)
	}
}

func TestQueryErrors(t *testing.T) {
	src := docBody(p("{{first}}"), p("ok"), p("{{second}}"))

	t.Run("fail fast", func(t *testing.T) {
		e := newTestEngine(t)
		_, err := expand(t, e, src)
		if !IsResolutionError(err) {
			t.Fatalf("error = %v, want ResolutionError", err)
		}
		if !strings.Contains(err.Error(), "first") || strings.Contains(err.Error(), "second") {
			t.Errorf("unexpected error text %q", err.Error())
		}
	})

	t.Run("collect", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.FailFast = false
		e := newTestEngine(t, WithConfig(cfg))
		out, err := expand(t, e, src)
		if out != nil {
			t.Error("Expand() returned a tree on error")
		}
		var multi *MultiError
		if !errors.As(err, &multi) {
			t.Fatalf("error = %v, want MultiError", err)
		}
		if multi.Len() != 2 {
			t.Errorf("collected %d errors, want 2", multi.Len())
		}
		if !errors.Is(err, ErrAbsent) {
			t.Error("collected errors do not unwrap to ErrAbsent")
		}
	})
}

func TestTemplateSyntaxErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
	}{
		{"unmatched end", docBody(p("text"), p("{{end}}"))},
		{"missing end", docBody(p("{{for x in xs}}"), p("{{x}}"))},
		{"kind mismatch", docBody(p("{{for x in xs}}"), p("{{end-if}}"))},
		{"name mismatch", docBody(p("{{for x in xs}}"), p("{{end-for y}}"))},
		{"unterminated command", docBody(p("{{for x in xs"))},
		{"malformed for", docBody(p("{{for xs}}"), p("{{end}}"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, WithData(TemplateData{"xs": []int{1}}))
			_, err := expand(t, e, tt.template)
			if !IsTemplateSyntaxError(err) {
				t.Errorf("error = %v, want TemplateSyntaxError", err)
			}
		})
	}
}

func TestLoopOverNonSequence(t *testing.T) {
	e := newTestEngine(t, WithData(TemplateData{"n": 5}))
	_, err := expand(t, e, docBody(p("{{for x in n}}"), p("{{end}}")))
	if !IsResolutionError(err) {
		t.Errorf("error = %v, want ResolutionError", err)
	}
}

func TestMaxLoopDepth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLoopDepth = 1
	e := newTestEngine(t, WithConfig(cfg), WithData(TemplateData{"xs": []int{1}}))

	_, err := expand(t, e, docBody(p("{{for a in xs}}{{for b in xs}}{{b}}{{end}}{{end}}")))
	if !IsTemplateSyntaxError(err) {
		t.Errorf("error = %v, want TemplateSyntaxError", err)
	}
}

func TestContextCancellation(t *testing.T) {
	e := newTestEngine(t, WithData(TemplateData{"name": "x"}))
	root, err := markup.ParseString(docBody(p("{{name}}")))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := e.Expand(ctx, root)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if out != nil {
		t.Error("Expand() returned a tree after cancellation")
	}
}

func TestExplorationIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	root, err := markup.ParseString(docBody(
		p("{{for a in xs}}"), p("{{if a}}"), p("{{a}}"), p("{{end}}"), p("{{end}}"),
	))
	if err != nil {
		t.Fatal(err)
	}
	if err := render.NormalizeCommands(root, render.DefaultDelimiters, tree.RunTextTag); err != nil {
		t.Fatal(err)
	}
	before := markup.String(root)

	x := e.newExecutor(context.Background(), root)
	open := root.Child(0).(*tree.Element).Child(0).(*tree.Element).Child(0).(*tree.Element).Child(0).(*tree.Text)
	cmd, err := render.ParseCommand(open.Value, render.DefaultDelimiters)
	if err != nil {
		t.Fatal(err)
	}
	frame := &LoopFrame{VarName: cmd.Var, Expr: cmd.Expr, Index: -1}

	first, err := x.explore(open, cmd, frame)
	if err != nil {
		t.Fatalf("explore() error = %v", err)
	}
	second, err := x.explore(open, cmd, frame)
	if err != nil {
		t.Fatalf("explore() error = %v", err)
	}

	if *first != *second {
		t.Errorf("explore() not idempotent: %+v vs %+v", first, second)
	}
	if first.Parent != root || first.From != 0 || first.To != 4 {
		t.Errorf("body = parent %p [%d..%d], want root [0..4]", first.Parent, first.From, first.To)
	}
	if after := markup.String(root); after != before {
		t.Error("explore() modified the tree")
	}
}

func TestDebugLogging(t *testing.T) {
	var buf strings.Builder
	e := newTestEngine(t,
		WithData(TemplateData{"items": []int{1, 2, 3}}),
		WithLogger(NewLogger(&buf, LogDebug)),
	)
	mustExpand(t, e, docBody(p("{{for item in items}}{{item}}{{end}}")))

	for _, want := range []string{
		"FOR loop on 0:item EXPLORATION/0",
		"FOR loop on 0:item 2/3",
		"depth=0",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log missing %q:\n%s", want, buf.String())
		}
	}
}

func TestListCommands(t *testing.T) {
	root, err := markup.ParseString(docBody(p("{{for i, x in xs}}"), p("{{= x.name}} {{hook img a b}}"), p("{{end}}")))
	if err != nil {
		t.Fatal(err)
	}
	cmds, err := ListCommands(root)
	if err != nil {
		t.Fatalf("ListCommands() error = %v", err)
	}
	var got []string
	for _, c := range cmds {
		got = append(got, c.String())
	}
	want := []string{"For(i, x in xs)", "Query(x.name)", "Hook(img a b)", "End"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentExpand(t *testing.T) {
	e := newTestEngine(t, WithData(TemplateData{"items": []string{"a", "b"}}))
	root, err := markup.ParseString(docBody(p("{{for item in items}}{{item}}{{end}}")))
	if err != nil {
		t.Fatal(err)
	}

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			out, err := e.Expand(context.Background(), root)
			if err == nil && paragraphs(out)[0] != "ab" {
				err = errors.New("unexpected output " + paragraphs(out)[0])
			}
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-errs; err != nil {
			t.Error(err)
		}
	}
}
