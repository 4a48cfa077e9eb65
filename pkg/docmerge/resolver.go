package docmerge

import (
	"context"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

// Query is handed to a Resolver for every expression the engine needs a
// value for
type Query struct {
	// Expr is the expression text, e.g. "customer.name" or "order.lines"
	Expr string
	// Scope exposes the loop bindings active at the query site
	Scope *Scope
	// Loop is set when the value will drive a for loop
	Loop bool
	// Conditional is set when the value is an if condition
	Conditional bool
}

// Resolver maps an expression to a value. It returns ErrAbsent (possibly
// wrapped) when the value does not exist. For loops, an empty slice means
// zero iterations while ErrAbsent is an error. Resolve may block; it is
// called synchronously and ctx is the context passed to Expand.
type Resolver interface {
	Resolve(ctx context.Context, q Query) (any, error)
}

// ResolverFunc adapts a function to the Resolver interface
type ResolverFunc func(ctx context.Context, q Query) (any, error)

func (f ResolverFunc) Resolve(ctx context.Context, q Query) (any, error) {
	return f(ctx, q)
}

// HookCall describes one {{hook name args}} site
type HookCall struct {
	Name  string
	Args  string
	Scope *Scope
	// At is the command's text leaf; the returned nodes are inserted after
	// the run that holds it
	At *tree.Text
}

// Hook supplies ready-made nodes for content a resolver cannot express as
// text, such as images or raw XML fragments. Returned nodes must be detached.
type Hook interface {
	Insert(ctx context.Context, call HookCall) ([]tree.Node, error)
}

// HookFunc adapts a function to the Hook interface
type HookFunc func(ctx context.Context, call HookCall) ([]tree.Node, error)

func (f HookFunc) Insert(ctx context.Context, call HookCall) ([]tree.Node, error) {
	return f(ctx, call)
}

// Binding is a single loop variable
type Binding struct {
	Name  string
	Value any
}

// Scope is the chain of loop bindings visible at a point of the template,
// innermost last
type Scope struct {
	bindings []Binding
}

// Lookup returns the innermost binding for name
func (s *Scope) Lookup(name string) (any, bool) {
	if s == nil {
		return nil, false
	}
	for i := len(s.bindings) - 1; i >= 0; i-- {
		if s.bindings[i].Name == name {
			return s.bindings[i].Value, true
		}
	}
	return nil, false
}

// Bindings returns the bindings, outermost first
func (s *Scope) Bindings() []Binding {
	if s == nil {
		return nil
	}
	return append([]Binding(nil), s.bindings...)
}

// Len returns the number of bindings
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.bindings)
}
