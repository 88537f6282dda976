// Package search compiles user queries and hands them to a backend.
//
// An Engine holds the process-wide pieces: grammar, query walkers, enhancer
// pipeline, structured chain and index client. Each Query it creates owns
// one raw string and memoises its trees; Search turns a Query into Results,
// which run the compiled body lazily.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"harshagw/recsearch/internal/ast"
	"harshagw/recsearch/internal/backend"
	"harshagw/recsearch/internal/config"
	"harshagw/recsearch/internal/enhancer"
	"harshagw/recsearch/internal/grammar"
	"harshagw/recsearch/internal/logging"
	"harshagw/recsearch/internal/walkers"
)

// Record is a JSON-like source document.
type Record = map[string]any

// RecordFunc turns one hit into the record handed to callers.
type RecordFunc func(hit backend.Hit) (Record, error)

// SourceRecord returns the hit's source document.
func SourceRecord(hit backend.Hit) (Record, error) {
	if hit.Source == nil {
		return Record{}, nil
	}
	return hit.Source, nil
}

type Engine struct {
	cfg          config.Search
	grammar      grammar.Grammar
	queryWalkers []ast.Walker[ast.Node]
	walkersSet   bool
	pipeline     *enhancer.Pipeline
	chain        walkers.Chain
	client       backend.Client
	recordFunc   RecordFunc
	logger       *slog.Logger
}

type Option func(*Engine)

func WithGrammar(g grammar.Grammar) Option {
	return func(e *Engine) { e.grammar = g }
}

// WithQueryWalkers replaces the rewrites run right after parsing.
func WithQueryWalkers(ws ...ast.Walker[ast.Node]) Option {
	return func(e *Engine) {
		e.queryWalkers = ws
		e.walkersSet = true
	}
}

// WithPipeline replaces the enhancer pipeline built from configuration.
func WithPipeline(p *enhancer.Pipeline) Option {
	return func(e *Engine) { e.pipeline = p }
}

func WithChain(c walkers.Chain) Option {
	return func(e *Engine) { e.chain = c }
}

func WithRecordFunc(f RecordFunc) Option {
	return func(e *Engine) { e.recordFunc = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New builds an engine. Unset pieces default to the built-in grammar, the
// keyword alias walker, the configured built-in enhancers, the ElasticDSL
// chain and SourceRecord.
func New(cfg config.Search, client backend.Client, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("search config: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("search: client is required")
	}

	e := &Engine{cfg: cfg, client: client}
	for _, opt := range opts {
		opt(e)
	}

	e.logger = logging.Default(e.logger).With("component", "search")
	if e.grammar == nil {
		e.grammar = grammar.Default()
	}
	if !e.walkersSet && len(cfg.KeywordAliases) > 0 {
		e.queryWalkers = []ast.Walker[ast.Node]{walkers.NewKeywordAliases(cfg.KeywordAliases)}
	}
	if e.pipeline == nil {
		p, err := enhancer.Builtin(cfg).Pipeline(e.logger, cfg.Enhancers...)
		if err != nil {
			return nil, err
		}
		e.pipeline = p
	}
	if e.chain.Emit == nil {
		e.chain = walkers.DefaultChain()
	}
	if e.recordFunc == nil {
		e.recordFunc = SourceRecord
	}
	return e, nil
}

// Config returns the search configuration the engine was built with.
func (e *Engine) Config() config.Search { return e.cfg }

// NewQuery wraps raw without parsing it.
func (e *Engine) NewQuery(raw string) *Query {
	return newQuery(e, raw)
}

// defect logs walker configuration errors. err is returned unchanged.
func (e *Engine) defect(ctx context.Context, q *Query, stage string, err error) error {
	if errors.Is(err, ast.ErrUnsupportedNode) {
		e.logger.ErrorContext(ctx, "walker cannot handle tree",
			"query_id", q.id, "stage", stage, "error", err)
	}
	return err
}
