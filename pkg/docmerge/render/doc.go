// Package render provides helper functions for template expansion.
//
// This package contains pure helpers used by the docmerge engine. They work
// on tree nodes directly and do not call back into the docmerge package,
// avoiding circular dependencies.
//
// # Structure Organization
//
//   - command.go: command parsing ({{for}}, {{if}}, {{end}}, {{hook}}, queries)
//   - normalize.go: gathering commands that Word split across runs
//   - trim.go: removing template text around loop bodies and cleaning up
//     the block elements left empty
//
// # Key Functions
//
// NormalizeCommands: Must run once on a parsed template before expansion.
// After it, every command is the only text of its own run-text container,
// so the engine can treat command leaves as markers.
//
// ParseCommand: Turns "{{for i, item in items}}" into a Command value.
//
// CommonAncestor: Finds the element whose children span a loop body, given
// its opening and closing command leaves.
//
// Example of normalizing a split command:
//
//	// <w:r><w:t>Hello {{na</w:t></w:r><w:r><w:t>me}}!</w:t></w:r>
//	err := render.NormalizeCommands(root, render.DefaultDelimiters, tree.RunTextTag)
//	// <w:r><w:t>Hello </w:t><w:t>{{name}}</w:t></w:r><w:r><w:t>!</w:t></w:r>
package render
