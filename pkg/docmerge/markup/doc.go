// Package markup converts between XML documents and docmerge trees.
//
// Parse keeps qualified names exactly as written and Write emits them back
// the same way, so a WordprocessingML part survives a round trip without
// namespace rewriting:
//
//	root, err := markup.Parse(r)
//	...
//	err = markup.Write(w, root, markup.WriteOptions{Header: true})
//
// The tree holds only elements and text. ParseDocument returns the
// processing instructions and comments before the root element so Write can
// emit them again through WriteOptions.Prolog; those inside the root element
// are dropped.
package markup
