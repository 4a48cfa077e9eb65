// Package tree provides the document node model used by docmerge.
//
// A document is a tree of *Element and *Text nodes. Elements own their
// children exclusively; every node keeps a back-pointer to its parent for
// sibling and ancestor lookups. All structural edits go through Element
// methods (InsertChildAt, RemoveChildAt, ...) so the parent links stay
// consistent with the child lists.
//
// # Traversal
//
// Walker walks a tree without recursion, emitting enter/text/exit events:
//
//	w := tree.NewWalker(root)
//	for {
//	    ev, ok := w.Next()
//	    if !ok {
//	        break
//	    }
//	    // ev.Kind is EventEnter, EventText or EventExit
//	}
//	if err := w.Err(); err != nil {
//	    // inconsistent tree
//	}
//
// Traverse wraps the same loop around a callback. Clone builds deep copies
// from CloneShallow and Traverse.
//
// # Runs
//
// Word stores text in runs: <w:r><w:rPr/><w:t>text</w:t></w:r>. SplitTextRun
// adds a fresh w:t next to an existing one so synthetic text can be placed
// beside template text without touching the original run.
package tree
