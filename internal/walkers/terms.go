package walkers

import (
	"harshagw/recsearch/internal/ast"
)

// Terms collects the positive search terms of a tree in query order.
// Negated subtrees contribute nothing. With Keywords set, only keyword,
// range and comparison nodes on those names contribute; otherwise bare
// values do too.
type Terms struct {
	Keywords map[string]bool
}

var _ ast.Walker[[]string] = Terms{}

func NewTerms(keywords ...string) Terms {
	t := Terms{}
	if len(keywords) > 0 {
		t.Keywords = make(map[string]bool, len(keywords))
		for _, k := range keywords {
			t.Keywords[k] = true
		}
	}
	return t
}

// ExtractTerms runs a Terms walker over n. The result is never nil.
func ExtractTerms(n ast.Node, keywords ...string) ([]string, error) {
	out, err := ast.Accept[[]string](n, NewTerms(keywords...))
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (t Terms) wants(keyword string) bool {
	return t.Keywords == nil || t.Keywords[keyword]
}

func (t Terms) unfiltered() bool { return t.Keywords == nil }

func (t Terms) VisitKeyword(*ast.Keyword) ([]string, error) { return nil, nil }

func (t Terms) VisitValue(n *ast.Value) ([]string, error) { return []string{n.Text}, nil }

func (t Terms) VisitSingleQuotedValue(n *ast.SingleQuotedValue) ([]string, error) {
	return []string{n.Text}, nil
}

func (t Terms) VisitDoubleQuotedValue(n *ast.DoubleQuotedValue) ([]string, error) {
	return []string{n.Text}, nil
}

func (t Terms) VisitRegexValue(n *ast.RegexValue) ([]string, error) { return []string{n.Pattern}, nil }

func (t Terms) VisitKeywordQuery(q *ast.KeywordQuery) ([]string, error) {
	if !t.wants(q.Keyword.Name) {
		return nil, nil
	}
	return ast.Accept[[]string](q.Value, t)
}

func (t Terms) VisitValueQuery(q *ast.ValueQuery) ([]string, error) {
	if !t.unfiltered() {
		return nil, nil
	}
	return ast.Accept[[]string](q.Value, t)
}

func (t Terms) VisitRangeQuery(q *ast.RangeQuery) ([]string, error) {
	if !t.wants(q.Keyword.Name) {
		return nil, nil
	}
	return []string{q.Low, q.High}, nil
}

func (t Terms) VisitGreaterQuery(q *ast.GreaterQuery) ([]string, error) {
	if !t.wants(q.Keyword.Name) {
		return nil, nil
	}
	return []string{q.Value}, nil
}

func (t Terms) VisitLowerQuery(q *ast.LowerQuery) ([]string, error) {
	if !t.wants(q.Keyword.Name) {
		return nil, nil
	}
	return []string{q.Value}, nil
}

func (t Terms) VisitAndQuery(q *ast.AndQuery) ([]string, error) { return t.both(q.Left, q.Right) }
func (t Terms) VisitOrQuery(q *ast.OrQuery) ([]string, error)   { return t.both(q.Left, q.Right) }

func (t Terms) VisitNotQuery(*ast.NotQuery) ([]string, error)             { return nil, nil }
func (t Terms) VisitEmptyQuery(*ast.EmptyQuery) ([]string, error)         { return nil, nil }
func (t Terms) VisitMalformedQuery(*ast.MalformedQuery) ([]string, error) { return nil, nil }

func (t Terms) both(l, r ast.Node) ([]string, error) {
	left, err := ast.Accept[[]string](l, t)
	if err != nil {
		return nil, err
	}
	right, err := ast.Accept[[]string](r, t)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}
