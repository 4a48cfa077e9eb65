// Package docmerge expands document-markup templates: loops are unrolled,
// conditionals pruned and placeholders replaced by resolved text.
//
// # Quick Start
//
//	engine, err := docmerge.New(docmerge.WithData(docmerge.TemplateData{
//	    "customer": map[string]any{"name": "Ada"},
//	    "items":    []any{"Widget", "Gadget"},
//	}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	in, _ := os.ReadFile("invoice.docx")
//	out, _ := os.Create("invoice-out.docx")
//	defer out.Close()
//	err = engine.ExpandDocx(ctx, bytes.NewReader(in), int64(len(in)), out)
//
// A tree that is expanded repeatedly can be prepared once:
//
//	tmpl, err := engine.Prepare(root)
//	out, err := engine.ExpandTemplate(ctx, tmpl)
//
// TemplateCache keeps prepared templates by key.
//
// # Template Syntax
//
// Commands are delimited by {{ and }} (see Config.Delimiters):
//
//	{{customer.name}}            - Placeholder, also {{= customer.name}}
//	{{items[0]}}                 - Index access
//	{{for item in items}}...{{end}}      - Loop
//	{{for i, item in items}}...{{end-for item}} - Indexed loop with named close
//	{{if customer.vip}}...{{end-if}}     - Conditional
//	{{hook image logo.png}}      - Nodes supplied by a registered Hook
//
// A loop body may span paragraphs, table rows or stay inside one paragraph.
// Paragraphs and rows that only held a loop command are removed from the
// output.
//
// # Resolvers
//
// Values come from a Resolver. DataResolver, used by WithData, walks maps,
// slices and structs along dotted and bracket paths. A custom Resolver may
// evaluate any expression language; it returns ErrAbsent for missing values.
// For loops an absent collection is a ResolutionError wrapping an
// AbsentValueError, while an empty slice produces no output; a conditional
// treats absence as false.
//
// # Architecture
//
//   - tree: node model, resumable traversal, text-run splitting
//   - render: command parsing, normalization of commands split across runs,
//     range pruning
//   - markup: XML parsing and serialization. Processing instructions and
//     comments before the root element (the prolog) survive expansion;
//     those inside the root element are dropped.
//
// The main package holds the loop/conditional state machine, configuration,
// logging and DOCX package handling.
//
// # Thread Safety
//
// An Engine is immutable after New and may be shared. Each Expand call owns
// its copy of the template and its loop state.
package docmerge
