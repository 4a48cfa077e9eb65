package docmerge

import (
	"bytes"
	"context"
	"io"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/markup"
	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/render"
	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

// ExpandXML parses an XML template from r, expands it and writes the result
// to w. Processing instructions and comments before the root element are
// written back; those inside it are dropped. Output is minified when the
// configuration asks for it.
func (e *Engine) ExpandXML(ctx context.Context, r io.Reader, w io.Writer) error {
	doc, err := markup.ParseDocument(r)
	if err != nil {
		return err
	}
	out, err := e.Expand(ctx, doc.Root)
	if err != nil {
		return err
	}
	return markup.Write(w, out, markup.WriteOptions{Header: true, Prolog: doc.Prolog, Minify: e.config.Minify})
}

// ExpandDocx expands the document, header, footer and note parts of a DOCX
// package and writes the new package to w. All other parts are copied
// unchanged.
func (e *Engine) ExpandDocx(ctx context.Context, r io.ReaderAt, size int64, w io.Writer) error {
	dr, err := NewDocxReader(r, size)
	if err != nil {
		return err
	}

	replaced := make(map[string][]byte)
	for _, name := range dr.TemplateParts() {
		content, err := dr.GetPart(name)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		e.logger.WithField("part", name).Debug("expanding part")
		if err := e.ExpandXML(ctx, bytes.NewReader(content), &buf); err != nil {
			if IsDocumentError(err) {
				return err
			}
			return NewDocumentError("expand", name, err)
		}
		replaced[name] = buf.Bytes()
	}
	return dr.writePackage(w, replaced)
}

// ListCommands lists the commands of root with the default configuration
func ListCommands(root tree.Node) ([]render.Command, error) {
	e, err := New(WithConfig(DefaultConfig()))
	if err != nil {
		return nil, err
	}
	return e.ListCommands(root)
}

// ListDocxCommands lists the commands of every template part of a DOCX
// package, keyed by part name
func (e *Engine) ListDocxCommands(r io.ReaderAt, size int64) (map[string][]render.Command, error) {
	dr, err := NewDocxReader(r, size)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]render.Command)
	for _, name := range dr.TemplateParts() {
		content, err := dr.GetPart(name)
		if err != nil {
			return nil, err
		}
		root, err := markup.Parse(bytes.NewReader(content))
		if err != nil {
			return nil, NewDocumentError("parse", name, err)
		}
		cmds, err := e.ListCommands(root)
		if err != nil {
			return nil, NewDocumentError("list", name, err)
		}
		if len(cmds) > 0 {
			out[name] = cmds
		}
	}
	return out, nil
}
