package walkers

import (
	"strings"

	"harshagw/recsearch/internal/ast"
)

// KeywordAliases rewrites short keyword names to their canonical field,
// e.g. t:higgs to title:higgs. Lookup ignores case; unknown keywords are
// kept as typed.
type KeywordAliases struct {
	ast.Rewriter
	aliases map[string]string
}

func NewKeywordAliases(aliases map[string]string) *KeywordAliases {
	w := &KeywordAliases{aliases: make(map[string]string, len(aliases))}
	for k, v := range aliases {
		w.aliases[strings.ToLower(k)] = v
	}
	w.Self = w
	return w
}

func (w *KeywordAliases) rename(k *ast.Keyword) (*ast.Keyword, bool) {
	name, ok := w.aliases[strings.ToLower(k.Name)]
	if !ok || name == k.Name {
		return k, false
	}
	return &ast.Keyword{Name: name}, true
}

func (w *KeywordAliases) VisitKeywordQuery(q *ast.KeywordQuery) (ast.Node, error) {
	k, changed := w.rename(q.Keyword)
	if !changed {
		return q, nil
	}
	return &ast.KeywordQuery{Keyword: k, Value: q.Value}, nil
}

func (w *KeywordAliases) VisitRangeQuery(q *ast.RangeQuery) (ast.Node, error) {
	k, changed := w.rename(q.Keyword)
	if !changed {
		return q, nil
	}
	return &ast.RangeQuery{Keyword: k, Low: q.Low, High: q.High}, nil
}

func (w *KeywordAliases) VisitGreaterQuery(q *ast.GreaterQuery) (ast.Node, error) {
	k, changed := w.rename(q.Keyword)
	if !changed {
		return q, nil
	}
	return &ast.GreaterQuery{Keyword: k, Value: q.Value, Inclusive: q.Inclusive}, nil
}

func (w *KeywordAliases) VisitLowerQuery(q *ast.LowerQuery) (ast.Node, error) {
	k, changed := w.rename(q.Keyword)
	if !changed {
		return q, nil
	}
	return &ast.LowerQuery{Keyword: k, Value: q.Value, Inclusive: q.Inclusive}, nil
}
