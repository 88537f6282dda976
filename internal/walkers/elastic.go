package walkers

import (
	"fmt"

	"harshagw/recsearch/internal/ast"
	"harshagw/recsearch/internal/dsl"
)

// ElasticDSL emits a structured query clause for every query variant.
//
//	keyword:value      match
//	keyword:"phrase"   match_phrase
//	keyword:'exact'    term
//	keyword:/re/       regexp
//	value              multi_match over _all
//	k:lo->hi           range gte/lte
//	k:>v k:<=v ...     range gt|gte / lt|lte
//	AND / OR / NOT     bool must / should (minimum 1) / must_not
//	empty              match_all
//	malformed          match_none
//
// Leaf values are only meaningful under a query node and are rejected on
// their own.
type ElasticDSL struct {
	ast.Unsupported[dsl.Query]
}

var _ ast.Walker[dsl.Query] = ElasticDSL{}

func NewElasticDSL() ElasticDSL {
	return ElasticDSL{Unsupported: ast.Unsupported[dsl.Query]{Name: "elastic"}}
}

func (e ElasticDSL) VisitKeywordQuery(q *ast.KeywordQuery) (dsl.Query, error) {
	return e.valueClause(q.Keyword.Name, q.Value, false)
}

func (e ElasticDSL) VisitValueQuery(q *ast.ValueQuery) (dsl.Query, error) {
	return e.valueClause(dsl.AllField, q.Value, true)
}

func (e ElasticDSL) valueClause(field string, v ast.Node, all bool) (dsl.Query, error) {
	switch v := v.(type) {
	case *ast.Value:
		if all {
			return dsl.MultiMatch(v.Text, []string{dsl.AllField}, ""), nil
		}
		return dsl.Match(field, v.Text), nil
	case *ast.DoubleQuotedValue:
		return dsl.MatchPhrase(field, v.Text), nil
	case *ast.SingleQuotedValue:
		return dsl.Term(field, v.Text), nil
	case *ast.RegexValue:
		return dsl.Regexp(field, v.Pattern), nil
	default:
		// Let the leaf's own visit method report it.
		return ast.Accept[dsl.Query](v, e)
	}
}

func (e ElasticDSL) VisitRangeQuery(q *ast.RangeQuery) (dsl.Query, error) {
	return dsl.Range(q.Keyword.Name, map[string]string{"gte": q.Low, "lte": q.High}), nil
}

func (e ElasticDSL) VisitGreaterQuery(q *ast.GreaterQuery) (dsl.Query, error) {
	op := "gt"
	if q.Inclusive {
		op = "gte"
	}
	return dsl.Range(q.Keyword.Name, map[string]string{op: q.Value}), nil
}

func (e ElasticDSL) VisitLowerQuery(q *ast.LowerQuery) (dsl.Query, error) {
	op := "lt"
	if q.Inclusive {
		op = "lte"
	}
	return dsl.Range(q.Keyword.Name, map[string]string{op: q.Value}), nil
}

// Chains of the same operator are flattened into one bool clause.
func (e ElasticDSL) VisitAndQuery(q *ast.AndQuery) (dsl.Query, error) {
	clauses, err := e.operands(q, func(n ast.Node) (ast.Node, ast.Node, bool) {
		and, ok := n.(*ast.AndQuery)
		if !ok {
			return nil, nil, false
		}
		return and.Left, and.Right, true
	})
	if err != nil {
		return nil, err
	}
	return dsl.Bool{Must: clauses}.Query(), nil
}

func (e ElasticDSL) VisitOrQuery(q *ast.OrQuery) (dsl.Query, error) {
	clauses, err := e.operands(q, func(n ast.Node) (ast.Node, ast.Node, bool) {
		or, ok := n.(*ast.OrQuery)
		if !ok {
			return nil, nil, false
		}
		return or.Left, or.Right, true
	})
	if err != nil {
		return nil, err
	}
	return dsl.Bool{Should: clauses, MinimumShouldMatch: 1}.Query(), nil
}

func (e ElasticDSL) VisitNotQuery(q *ast.NotQuery) (dsl.Query, error) {
	inner, err := ast.Accept[dsl.Query](q.Op, e)
	if err != nil {
		return nil, err
	}
	return dsl.Bool{MustNot: []dsl.Query{inner}}.Query(), nil
}

func (e ElasticDSL) VisitEmptyQuery(*ast.EmptyQuery) (dsl.Query, error) {
	return dsl.MatchAll(), nil
}

func (e ElasticDSL) VisitMalformedQuery(*ast.MalformedQuery) (dsl.Query, error) {
	return dsl.MatchNone(), nil
}

// operands emits the leaves of a left-to-right chain of one operator.
func (e ElasticDSL) operands(n ast.Node, split func(ast.Node) (ast.Node, ast.Node, bool)) ([]dsl.Query, error) {
	var out []dsl.Query
	var walk func(ast.Node) error
	walk = func(n ast.Node) error {
		if l, r, ok := split(n); ok {
			if err := walk(l); err != nil {
				return err
			}
			return walk(r)
		}
		q, err := ast.Accept[dsl.Query](n, e)
		if err != nil {
			return err
		}
		out = append(out, q)
		return nil
	}
	if err := walk(n); err != nil {
		return nil, err
	}
	return out, nil
}

// Chain runs rewrite walkers in order and hands the result to Emit.
type Chain struct {
	Rewrites []ast.Walker[ast.Node]
	Emit     ast.Walker[dsl.Query]
}

// DefaultChain emits ElasticDSL with no rewrites.
func DefaultChain() Chain {
	return Chain{Emit: NewElasticDSL()}
}

func (c Chain) Compile(n ast.Node) (dsl.Query, error) {
	if c.Emit == nil {
		return nil, fmt.Errorf("structured chain has no emitter")
	}
	for _, w := range c.Rewrites {
		out, err := ast.Accept[ast.Node](n, w)
		if err != nil {
			return nil, err
		}
		n = out
	}
	return ast.Accept[dsl.Query](n, c.Emit)
}
