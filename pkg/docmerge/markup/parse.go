package markup

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

// Document is a parsed XML document: the root element and the processing
// instructions and comments found before it, such as Word's
// <?mso-application progid="Word.Document"?>. The XML declaration is not
// part of the prolog.
type Document struct {
	Prolog []string
	Root   *tree.Element
}

// Parse reads an XML document into a tree. Prefixed names are kept
// literally ("w:p", "xmlns:w") so that writing the tree back produces the
// same names. Comments, processing instructions and directives are dropped;
// use ParseDocument to keep the ones before the root element.
func Parse(r io.Reader) (*tree.Element, error) {
	doc, err := ParseDocument(r)
	if err != nil {
		return nil, err
	}
	return doc.Root, nil
}

// ParseDocument is like Parse but also returns the prolog. Comments and
// processing instructions inside the root element are still dropped.
func ParseDocument(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	var root *tree.Element
	var stack []*tree.Element
	var prolog []string

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Line: line(dec), Message: err.Error()}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el, err := tree.NewElement(qualifiedName(t.Name), attributes(t.Attr))
			if err != nil {
				return nil, err
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, &ParseError{Line: line(dec), Message: "multiple root elements"}
				}
				root = el
			} else if _, err := tree.AppendChild(stack[len(stack)-1], el); err != nil {
				return nil, err
			}
			stack = append(stack, el)

		case xml.EndElement:
			name := qualifiedName(t.Name)
			if len(stack) == 0 || stack[len(stack)-1].Tag != name {
				return nil, &ParseError{Line: line(dec), Message: fmt.Sprintf("unexpected end element </%s>", name)}
			}
			stack = stack[:len(stack)-1]

		case xml.ProcInst:
			if root == nil && t.Target != "xml" {
				prolog = append(prolog, "<?"+t.Target+" "+string(t.Inst)+"?>")
			}

		case xml.Comment:
			if root == nil {
				prolog = append(prolog, "<!--"+string(t)+"-->")
			}

		case xml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(t)) != "" {
					return nil, &ParseError{Line: line(dec), Message: "text outside root element"}
				}
				continue
			}
			parent := stack[len(stack)-1]
			if n := parent.Len(); n > 0 {
				if prev, ok := parent.Child(n - 1).(*tree.Text); ok {
					prev.Value += string(t)
					continue
				}
			}
			if _, err := tree.AppendChild(parent, tree.NewText(string(t))); err != nil {
				return nil, err
			}
		}
	}

	if len(stack) > 0 {
		return nil, &ParseError{Line: line(dec), Message: fmt.Sprintf("unclosed element <%s>", stack[len(stack)-1].Tag)}
	}
	if root == nil {
		return nil, &ParseError{Message: "no root element"}
	}
	return &Document{Prolog: prolog, Root: root}, nil
}

// ParseString is a convenience wrapper around Parse
func ParseString(s string) (*tree.Element, error) {
	return Parse(strings.NewReader(s))
}

// ParseError reports malformed markup
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("markup: line %d: %s", e.Line, e.Message)
	}
	return "markup: " + e.Message
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func attributes(attrs []xml.Attr) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[qualifiedName(a.Name)] = a.Value
	}
	return m
}

func line(dec *xml.Decoder) int {
	l, _ := dec.InputPos()
	return l
}
