package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

// Delimiters mark the start and end of a template command
type Delimiters struct {
	Open  string
	Close string
}

// DefaultDelimiters are the delimiters used when none are configured
var DefaultDelimiters = Delimiters{Open: "{{", Close: "}}"}

// Valid reports whether both delimiters are set
func (d Delimiters) Valid() bool {
	return d.Open != "" && d.Close != ""
}

// CommandKind identifies a template command
type CommandKind int

const (
	CmdQuery CommandKind = iota
	CmdFor
	CmdIf
	CmdEnd
	CmdHook
)

func (k CommandKind) String() string {
	switch k {
	case CmdQuery:
		return "query"
	case CmdFor:
		return "for"
	case CmdIf:
		return "if"
	case CmdEnd:
		return "end"
	case CmdHook:
		return "hook"
	default:
		return "unknown"
	}
}

// Command is a parsed template command
type Command struct {
	Kind CommandKind
	Raw  string // text including delimiters

	// Expr is the query, the loop collection or the if condition
	Expr string

	// Var and IndexVar are the loop bindings. On an end command Var holds
	// the optional loop name ({{end-for item}}).
	Var      string
	IndexVar string

	// Closes is set on end commands: CmdFor or CmdIf when the command names
	// what it closes, CmdEnd for a plain {{end}}.
	Closes CommandKind

	HookName string
	HookArgs string
}

func (c Command) String() string {
	switch c.Kind {
	case CmdFor:
		if c.IndexVar != "" {
			return fmt.Sprintf("For(%s, %s in %s)", c.IndexVar, c.Var, c.Expr)
		}
		return fmt.Sprintf("For(%s in %s)", c.Var, c.Expr)
	case CmdIf:
		return fmt.Sprintf("If(%s)", c.Expr)
	case CmdEnd:
		if c.Closes == CmdEnd {
			return "End"
		}
		return fmt.Sprintf("End(%s)", c.Closes)
	case CmdHook:
		return fmt.Sprintf("Hook(%s %s)", c.HookName, c.HookArgs)
	default:
		return fmt.Sprintf("Query(%s)", c.Expr)
	}
}

// Opens reports whether the command starts a loop or conditional
func (c Command) Opens() bool {
	return c.Kind == CmdFor || c.Kind == CmdIf
}

var forRegex = regexp.MustCompile(`(?i)^(?:([\p{L}_][\p{L}\p{N}_]*)\s*,\s*)?([\p{L}_][\p{L}\p{N}_]*)\s+in\s+(.+)$`)

// IsCommandText reports whether text is exactly one delimited command
func IsCommandText(text string, d Delimiters) bool {
	return len(text) >= len(d.Open)+len(d.Close) &&
		strings.HasPrefix(text, d.Open) &&
		strings.HasSuffix(text, d.Close) &&
		!strings.Contains(text[len(d.Open):len(text)-len(d.Close)], d.Close)
}

// ParseCommand parses a delimited command such as "{{for item in items}}".
func ParseCommand(text string, d Delimiters) (Command, error) {
	if !IsCommandText(text, d) {
		return Command{}, &tree.TemplateSyntaxError{Message: "not a delimited command", Command: text}
	}
	cmd := Command{Raw: text}
	inner := strings.TrimSpace(text[len(d.Open) : len(text)-len(d.Close)])
	if inner == "" {
		return cmd, &tree.TemplateSyntaxError{Message: "empty command", Command: text}
	}

	if strings.HasPrefix(inner, "=") {
		cmd.Kind = CmdQuery
		cmd.Expr = strings.TrimSpace(inner[1:])
		if cmd.Expr == "" {
			return cmd, &tree.TemplateSyntaxError{Message: "missing expression", Command: text}
		}
		return cmd, nil
	}

	keyword, rest := splitKeyword(inner)
	switch strings.ToLower(keyword) {
	case "for":
		m := forRegex.FindStringSubmatch(rest)
		if m == nil {
			return cmd, &tree.TemplateSyntaxError{Message: "expected 'for item in collection'", Command: text}
		}
		cmd.Kind = CmdFor
		cmd.IndexVar, cmd.Var, cmd.Expr = m[1], m[2], strings.TrimSpace(m[3])
	case "if":
		if rest == "" {
			return cmd, &tree.TemplateSyntaxError{Message: "missing condition", Command: text}
		}
		cmd.Kind = CmdIf
		cmd.Expr = rest
	case "end":
		if rest != "" {
			return cmd, &tree.TemplateSyntaxError{Message: "unexpected text after end", Command: text}
		}
		cmd.Kind, cmd.Closes = CmdEnd, CmdEnd
	case "end-for", "endfor":
		cmd.Kind, cmd.Closes, cmd.Var = CmdEnd, CmdFor, rest
	case "end-if", "endif":
		if rest != "" {
			return cmd, &tree.TemplateSyntaxError{Message: "unexpected text after end-if", Command: text}
		}
		cmd.Kind, cmd.Closes = CmdEnd, CmdIf
	case "hook":
		if rest == "" {
			return cmd, &tree.TemplateSyntaxError{Message: "missing hook name", Command: text}
		}
		cmd.Kind = CmdHook
		cmd.HookName, cmd.HookArgs = splitKeyword(rest)
	default:
		cmd.Kind = CmdQuery
		cmd.Expr = inner
	}
	return cmd, nil
}

func splitKeyword(s string) (string, string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexFunc(s, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' })
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}

// ListCommands returns every command found in run-text leaves of root, in
// document order. The tree must have been normalized.
func ListCommands(root tree.Node, d Delimiters, containerTag string) ([]Command, error) {
	var cmds []Command
	err := tree.Traverse(root, func(ev tree.Event) error {
		if ev.Kind != tree.EventText {
			return nil
		}
		t := ev.Node.(*tree.Text)
		if p := t.Parent(); p == nil || p.Tag != containerTag || !IsCommandText(t.Value, d) {
			return nil
		}
		cmd, err := ParseCommand(t.Value, d)
		if err != nil {
			return err
		}
		cmds = append(cmds, cmd)
		return nil
	})
	return cmds, err
}
