package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"harshagw/recsearch/internal/ast"
	"harshagw/recsearch/internal/auth"
	"harshagw/recsearch/internal/dsl"
	"harshagw/recsearch/internal/grammar"
	"harshagw/recsearch/internal/walkers"
)

// Query is one user query. Its parsed tree is computed once; enhanced trees
// are computed once per (user, collection). All methods are safe for
// concurrent use.
type Query struct {
	engine *Engine
	raw    string
	id     string

	parseOnce sync.Once
	parsed    ast.Node
	parseErr  error

	mu       sync.Mutex
	enhanced map[enhancedKey]ast.Node
}

type enhancedKey struct {
	user       string
	collection string
}

func newQuery(e *Engine, raw string) *Query {
	return &Query{
		engine:   e,
		raw:      grammar.Normalize(raw),
		id:       uuid.NewString(),
		enhanced: make(map[enhancedKey]ast.Node),
	}
}

// Raw returns the normalised query string.
func (q *Query) Raw() string { return q.raw }

// ID identifies the query in logs.
func (q *Query) ID() string { return q.id }

// Parsed returns the tree after parsing and the query walkers, before any
// enhancer ran. Syntax errors never surface here: they yield MalformedQuery.
func (q *Query) Parsed() (ast.Node, error) {
	q.parseOnce.Do(func() {
		q.parsed, q.parseErr = q.parse()
	})
	return q.parsed, q.parseErr
}

func (q *Query) parse() (ast.Node, error) {
	e := q.engine
	ctx := context.Background()

	node := grammar.Parse(e.grammar, q.raw)
	if ast.IsMalformed(node) {
		e.logger.Debug("query rejected by grammar", "query_id", q.id, "query", q.raw)
	}
	for _, w := range e.queryWalkers {
		out, err := ast.Accept[ast.Node](node, w)
		if err != nil {
			return nil, e.defect(ctx, q, "query walkers", fmt.Errorf("query walker %T: %w", w, err))
		}
		node = out
	}
	e.logger.Debug("query parsed", "query_id", q.id, "tree", node.String())
	return node, nil
}

// Enhanced returns the parsed tree run through the enhancer pipeline for
// user and collection. Failed enhancements are not cached.
func (q *Query) Enhanced(ctx context.Context, user auth.User, collection string) (ast.Node, error) {
	key := enhancedKey{user: user.Key(), collection: collection}

	q.mu.Lock()
	defer q.mu.Unlock()

	if node, ok := q.enhanced[key]; ok {
		return node, nil
	}

	parsed, err := q.Parsed()
	if err != nil {
		return nil, err
	}
	node, err := q.engine.pipeline.Apply(ctx, parsed, user, collection)
	if err != nil {
		return nil, q.engine.defect(ctx, q, "enhancers", err)
	}
	q.enhanced[key] = node
	return node, nil
}

// Tree returns the enhanced tree for the user on ctx and no collection.
func (q *Query) Tree(ctx context.Context) (ast.Node, error) {
	return q.Enhanced(ctx, auth.FromContext(ctx), "")
}

type SearchOptions struct {
	// User overrides the user on the context.
	User *auth.User
	// Collection scopes the query and selects the index.
	Collection string
	// Enhance defaults to true. When false the parsed tree is compiled as is.
	Enhance *bool
	// Params are merged over the body, e.g. from, size or sort.
	Params map[string]any
}

// Search compiles the query into Results. Nothing is sent to the backend
// until the Results are read.
func (q *Query) Search(ctx context.Context, opts SearchOptions) (*Results, error) {
	e := q.engine

	user := auth.FromContext(ctx)
	if opts.User != nil {
		user = *opts.User
	}

	var (
		tree ast.Node
		err  error
	)
	if opts.Enhance == nil || *opts.Enhance {
		tree, err = q.Enhanced(ctx, user, opts.Collection)
	} else {
		tree, err = q.Parsed()
	}
	if err != nil {
		return nil, err
	}

	structured, err := walkers.HasKeywords(tree)
	if err != nil {
		return nil, e.defect(ctx, q, "detect", err)
	}

	var (
		clause   dsl.Query
		strategy Strategy
	)
	if structured {
		strategy = StrategyStructured
		clause, err = e.chain.Compile(tree)
	} else {
		strategy = StrategyFullText
		clause, err = ast.Accept[dsl.Query](tree, walkers.NewFullText(e.cfg.FullTextFields, q.raw))
	}
	if err != nil {
		return nil, e.defect(ctx, q, strategy.String(), err)
	}

	index := e.cfg.ResolveIndex(opts.Collection)
	body := dsl.Merge(dsl.NewBody(clause, 0, e.cfg.PageSize), opts.Params)

	e.logger.DebugContext(ctx, "query compiled",
		"query_id", q.id,
		"strategy", strategy.String(),
		"index", index,
		"collection", opts.Collection,
		"tree", tree.String())

	return &Results{
		client:     e.client,
		index:      index,
		docType:    e.cfg.DocType,
		body:       body,
		strategy:   strategy,
		recordFunc: e.recordFunc,
	}, nil
}

// Match reports whether record satisfies the enhanced tree for the user on
// ctx. No index is involved.
func (q *Query) Match(ctx context.Context, record Record) (bool, error) {
	tree, err := q.Tree(ctx)
	if err != nil {
		return false, err
	}
	ok, err := walkers.Match(tree, record)
	if err != nil {
		return false, q.engine.defect(ctx, q, "match", err)
	}
	return ok, nil
}

// Terms extracts the positive search terms the user typed, limited to
// keywords when any are given. Clauses added by enhancers are not terms.
func (q *Query) Terms(ctx context.Context, keywords ...string) ([]string, error) {
	tree, err := q.Parsed()
	if err != nil {
		return nil, err
	}
	terms, err := walkers.ExtractTerms(tree, keywords...)
	if err != nil {
		return nil, q.engine.defect(ctx, q, "terms", err)
	}
	return terms, nil
}
