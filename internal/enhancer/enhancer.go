// Package enhancer rewrites parsed queries for the user and collection they
// run in. Enhancers are registered by name and resolved into an ordered
// Pipeline once at startup.
package enhancer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"harshagw/recsearch/internal/ast"
	"harshagw/recsearch/internal/auth"
	"harshagw/recsearch/internal/logging"
)

// Enhancer returns node rewritten for user and collection. It must not
// mutate node. Returning node itself means "no change".
type Enhancer func(ctx context.Context, node ast.Node, user auth.User, collection string) (ast.Node, error)

// Registry is a name-addressed, ordered set of enhancers. It is built at
// startup and only read afterwards.
type Registry struct {
	names []string
	fns   map[string]Enhancer
}

func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]Enhancer)}
}

// Register adds e under name. Names are unique.
func (r *Registry) Register(name string, e Enhancer) error {
	if name == "" || e == nil {
		return fmt.Errorf("enhancer: name and function are required")
	}
	if _, ok := r.fns[name]; ok {
		return fmt.Errorf("enhancer %q already registered", name)
	}
	r.names = append(r.names, name)
	r.fns[name] = e
	return nil
}

// Names lists registered enhancers in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Pipeline resolves names, in the given order, into a Pipeline.
func (r *Registry) Pipeline(logger *slog.Logger, names ...string) (*Pipeline, error) {
	p := &Pipeline{logger: logging.Default(logger).With("component", "enhancer")}
	for _, name := range names {
		fn, ok := r.fns[name]
		if !ok {
			return nil, fmt.Errorf("unknown enhancer %q (registered: %v)", name, r.names)
		}
		p.steps = append(p.steps, step{name: name, fn: fn})
	}
	return p, nil
}

type step struct {
	name string
	fn   Enhancer
}

// Pipeline applies enhancers strictly in order, each to the output of the
// previous one.
type Pipeline struct {
	steps  []step
	logger *slog.Logger
}

// Names lists the enhancers in application order.
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.name
	}
	return out
}

func (p *Pipeline) Apply(ctx context.Context, node ast.Node, user auth.User, collection string) (ast.Node, error) {
	if p == nil {
		return node, nil
	}
	for _, s := range p.steps {
		out, err := s.fn(ctx, node, user, collection)
		if err != nil {
			return nil, fmt.Errorf("enhancer %s: %w", s.name, err)
		}
		if out == nil {
			return nil, fmt.Errorf("enhancer %s: returned no tree", s.name)
		}
		if p.logger.Enabled(ctx, slog.LevelDebug) && !ast.Equal(out, node) {
			p.logger.DebugContext(ctx, "tree rewritten", "enhancer", s.name, "tree", out.String())
		}
		node = out
	}
	return node, nil
}
