package render

import (
	"strings"
	"unicode"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

type span struct {
	start, end int
}

type piece struct {
	text string
	cmd  bool
}

// NormalizeCommands rewrites the run-text leaves of root so that every
// command sits alone in its own run-text container.
//
// Word splits text into runs at formatting, spell-check and revision
// boundaries, so "{{customer.name}}" may arrive as "{{cust", "omer.na",
// "me}}" across three runs, delimiters included. The text of all run-text
// leaves is read as one stream; each command is moved into the leaf where
// it starts (keeping that run's formatting) and split out of surrounding
// text with tree.SplitTextRun.
func NormalizeCommands(root tree.Node, d Delimiters, containerTag string) error {
	var leaves []*tree.Text
	var full strings.Builder
	err := tree.Traverse(root, func(ev tree.Event) error {
		if ev.Kind != tree.EventText {
			return nil
		}
		t := ev.Node.(*tree.Text)
		if p := t.Parent(); p != nil && p.Tag == containerTag {
			leaves = append(leaves, t)
			full.WriteString(t.Value)
		}
		return nil
	})
	if err != nil {
		return err
	}

	stream := full.String()
	spans, err := findSpans(stream, d)
	if err != nil {
		return err
	}
	if len(spans) == 0 {
		return nil
	}

	var emptied []*tree.Text
	si := 0
	offset := 0
	for _, leaf := range leaves {
		ls, le := offset, offset+len(leaf.Value)
		offset = le

		for si < len(spans) && spans[si].end <= ls {
			si++
		}
		// Leaves that no command touches are left alone.
		if si >= len(spans) || spans[si].start >= le {
			continue
		}

		var pieces []piece
		pos := ls
		for j := si; j < len(spans) && spans[j].start < le; j++ {
			sp := spans[j]
			if sp.start > pos {
				pieces = append(pieces, piece{text: stream[pos:sp.start]})
			}
			if sp.start >= ls {
				pieces = append(pieces, piece{text: stream[sp.start:sp.end], cmd: true})
			}
			if e := min(sp.end, le); e > pos {
				pos = e
			}
		}
		if pos < le {
			pieces = append(pieces, piece{text: stream[pos:le]})
		}

		if len(pieces) == 0 {
			if leaf.Value != "" {
				emptied = append(emptied, leaf)
			}
			leaf.Value = ""
			continue
		}
		cur := leaf
		cur.Value = pieces[0].text
		PreserveSpace(cur)
		for _, p := range pieces[1:] {
			next, err := tree.SplitTextRun(cur, containerTag)
			if err != nil {
				return err
			}
			next.Value = p.text
			PreserveSpace(next)
			cur = next
		}
	}

	// Containers whose whole text moved into an earlier leaf.
	for _, leaf := range emptied {
		container := leaf.Parent()
		if container.Len() == 1 {
			tree.Detach(container)
		}
	}
	return nil
}

// findSpans locates every delimited command in s. Nested openings are not
// allowed: the first closing delimiter after an opening ends the command.
func findSpans(s string, d Delimiters) ([]span, error) {
	var spans []span
	pos := 0
	for {
		i := strings.Index(s[pos:], d.Open)
		if i < 0 {
			return spans, nil
		}
		start := pos + i
		j := strings.Index(s[start+len(d.Open):], d.Close)
		if j < 0 {
			snippet := s[start:]
			if len(snippet) > 40 {
				snippet = snippet[:40] + "..."
			}
			return nil, &tree.TemplateSyntaxError{Message: "unterminated command", Command: snippet}
		}
		end := start + len(d.Open) + j + len(d.Close)
		spans = append(spans, span{start: start, end: end})
		pos = end
	}
}

// PreserveSpace marks t's container with xml:space="preserve" when t has
// leading or trailing whitespace, which Word would otherwise drop.
func PreserveSpace(t *tree.Text) {
	if t.Value == "" {
		return
	}
	first := rune(t.Value[0])
	last := rune(t.Value[len(t.Value)-1])
	if !unicode.IsSpace(first) && !unicode.IsSpace(last) {
		return
	}
	if p := t.Parent(); p != nil {
		if p.Attrs == nil {
			p.Attrs = make(map[string]string)
		}
		p.Attrs["xml:space"] = "preserve"
	}
}
