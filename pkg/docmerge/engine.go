package docmerge

import (
	"context"

	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/render"
	"github.com/benjaminschreck/go-docmerge/pkg/docmerge/tree"
)

// Engine expands templates. It is immutable after New and safe for
// concurrent use; every Expand call works on its own copy of the template.
type Engine struct {
	config   *Config
	resolver Resolver
	hooks    map[string]Hook
	logger   *Logger
	observer FrameObserver
}

// Option represents a configuration option for the engine.
type Option func(*Engine)

// WithConfig returns an option that sets the engine configuration.
// Unset fields take their default values.
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		e.config = NewConfigWithDefaults(config)
	}
}

// WithResolver returns an option that sets the value resolver.
func WithResolver(r Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithData returns an option that resolves values from data.
func WithData(data TemplateData) Option {
	return WithResolver(NewDataResolver(data))
}

// WithHook returns an option that registers a hook for {{hook name ...}}.
func WithHook(name string, h Hook) Option {
	return func(e *Engine) {
		e.hooks[name] = h
	}
}

// WithLogger returns an option that sets the diagnostic logger.
func WithLogger(l *Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithFrameObserver returns an option that reports loop and conditional
// state transitions.
func WithFrameObserver(fn FrameObserver) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// New creates an engine. Without WithConfig it uses the global
// configuration; without a resolver every value is absent.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		config: GetGlobalConfig(),
		hooks:  make(map[string]Hook),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	if e.resolver == nil {
		e.resolver = NewDataResolver(nil)
	}
	if e.logger == nil {
		e.logger = GetLogger()
	}
	return e, nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	return *e.config
}

// Expand returns an expanded copy of root. The template is normalized first
// so that commands split across runs are recognized. On error no tree is
// returned.
func (e *Engine) Expand(ctx context.Context, root tree.Node) (tree.Node, error) {
	t, err := e.Prepare(root)
	if err != nil {
		return nil, err
	}
	return e.ExpandTemplate(ctx, t)
}

// ListCommands returns every command of root in document order. root is
// not modified.
func (e *Engine) ListCommands(root tree.Node) ([]render.Command, error) {
	t, err := e.Prepare(root)
	if err != nil {
		return nil, err
	}
	return t.Commands()
}
