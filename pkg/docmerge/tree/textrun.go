package tree

// RunTextTag is the WordprocessingML element that must directly wrap text.
const RunTextTag = "w:t"

// SplitTextRun inserts a new run-text container right after the one holding
// t and returns the empty text leaf inside it. The new container is a
// shallow clone of the original, so formatting attributes carry over.
func SplitTextRun(t *Text, containerTag string) (*Text, error) {
	container := t.Parent()
	if container == nil {
		return nil, &TemplateSyntaxError{Message: "text node has no parent", Expected: containerTag}
	}
	if container.Tag != containerTag {
		return nil, &TemplateSyntaxError{Message: "text node not within run-text container", Tag: container.Tag, Expected: containerTag}
	}
	host := container.Parent()
	if host == nil {
		return nil, &TemplateSyntaxError{Message: "run-text container has no parent", Tag: container.Tag}
	}
	idx := host.IndexOf(container)
	if idx < 0 {
		return nil, &TemplateSyntaxError{Message: "run-text container missing from its parent", Tag: container.Tag}
	}

	clone := CloneShallow(container).(*Element)
	text := NewText("")
	text.setParent(clone)
	clone.children = []Node{text}
	if err := host.InsertChildAt(idx+1, clone); err != nil {
		return nil, err
	}
	return text, nil
}

// InsertTextSiblingAfter splits a WordprocessingML run after t's w:t.
func InsertTextSiblingAfter(t *Text) (*Text, error) {
	return SplitTextRun(t, RunTextTag)
}
