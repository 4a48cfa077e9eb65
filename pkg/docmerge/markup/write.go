package markup

import (
	"bufio"
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

// Header is the XML declaration Word writes at the top of every part
const Header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// WriteOptions controls serialization
type WriteOptions struct {
	// Header prepends the XML declaration
	Header bool
	// Prolog is written after the header and before the root element
	Prolog []string
	// Minify compacts the output
	Minify bool
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\n", "&#xA;", "\r", "&#xD;", "\t", "&#x9;")
)

// Write serializes root. Attributes are written sorted by name so the
// output is stable; elements without children are self-closed.
func Write(w io.Writer, root tree.Node, opts WriteOptions) error {
	if opts.Minify {
		var buf bytes.Buffer
		if err := write(&buf, root, opts); err != nil {
			return err
		}
		out, err := Minify(buf.Bytes())
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}
	return write(w, root, opts)
}

// String serializes root without a header
func String(root tree.Node) string {
	var sb strings.Builder
	_ = write(&sb, root, WriteOptions{})
	return sb.String()
}

func write(w io.Writer, root tree.Node, opts WriteOptions) error {
	bw := bufio.NewWriter(w)
	if opts.Header {
		bw.WriteString(Header)
	}
	for _, p := range opts.Prolog {
		bw.WriteString(p)
		bw.WriteByte('\n')
	}
	err := tree.Traverse(root, func(ev tree.Event) error {
		switch ev.Kind {
		case tree.EventEnter:
			el := ev.Node.(*tree.Element)
			bw.WriteByte('<')
			bw.WriteString(el.Tag)
			writeAttrs(bw, el.Attrs)
			if el.Len() == 0 {
				bw.WriteString("/>")
			} else {
				bw.WriteByte('>')
			}
		case tree.EventText:
			textEscaper.WriteString(bw, ev.Node.(*tree.Text).Value)
		case tree.EventExit:
			el := ev.Node.(*tree.Element)
			if el.Len() > 0 {
				bw.WriteString("</")
				bw.WriteString(el.Tag)
				bw.WriteByte('>')
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

func writeAttrs(bw *bufio.Writer, attrs map[string]string) {
	if len(attrs) == 0 {
		return
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		bw.WriteByte(' ')
		bw.WriteString(k)
		bw.WriteString(`="`)
		attrEscaper.WriteString(bw, attrs[k])
		bw.WriteByte('"')
	}
}
