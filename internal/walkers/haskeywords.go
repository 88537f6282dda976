// Package walkers holds the translation and rewrite walkers run over query
// trees: strategy detection, the full-text and structured DSL emitters, the
// in-memory record matcher, term extraction and keyword aliasing.
package walkers

import (
	"harshagw/recsearch/internal/ast"
)

// KeywordDetector reports whether a tree uses any structured construct:
// a keyword, a range or comparison, a boolean operator, or a quoted or regex
// value. Only plain bare-word text is free text.
type KeywordDetector struct{}

var _ ast.Walker[bool] = KeywordDetector{}

// HasKeywords runs KeywordDetector over n.
func HasKeywords(n ast.Node) (bool, error) {
	return ast.Accept[bool](n, KeywordDetector{})
}

func (KeywordDetector) VisitKeyword(*ast.Keyword) (bool, error)                     { return true, nil }
func (KeywordDetector) VisitValue(*ast.Value) (bool, error)                         { return false, nil }
func (KeywordDetector) VisitSingleQuotedValue(*ast.SingleQuotedValue) (bool, error) { return true, nil }
func (KeywordDetector) VisitDoubleQuotedValue(*ast.DoubleQuotedValue) (bool, error) { return true, nil }
func (KeywordDetector) VisitRegexValue(*ast.RegexValue) (bool, error)               { return true, nil }
func (KeywordDetector) VisitKeywordQuery(*ast.KeywordQuery) (bool, error)           { return true, nil }
func (KeywordDetector) VisitRangeQuery(*ast.RangeQuery) (bool, error)               { return true, nil }
func (KeywordDetector) VisitGreaterQuery(*ast.GreaterQuery) (bool, error)           { return true, nil }
func (KeywordDetector) VisitLowerQuery(*ast.LowerQuery) (bool, error)               { return true, nil }
func (KeywordDetector) VisitAndQuery(*ast.AndQuery) (bool, error)                   { return true, nil }
func (KeywordDetector) VisitOrQuery(*ast.OrQuery) (bool, error)                     { return true, nil }
func (KeywordDetector) VisitNotQuery(*ast.NotQuery) (bool, error)                   { return true, nil }
func (KeywordDetector) VisitEmptyQuery(*ast.EmptyQuery) (bool, error)               { return false, nil }
func (KeywordDetector) VisitMalformedQuery(*ast.MalformedQuery) (bool, error)       { return false, nil }

func (d KeywordDetector) VisitValueQuery(q *ast.ValueQuery) (bool, error) {
	return ast.Accept[bool](q.Value, d)
}
