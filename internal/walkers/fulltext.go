package walkers

import (
	"harshagw/recsearch/internal/ast"
	"harshagw/recsearch/internal/dsl"
)

// FullText renders a free-text tree as one multi_match over weighted fields.
// The query text is the raw input rather than anything rebuilt from the
// tree. Term-less trees search for "" and fall back on dsl.ZeroTermsQuery.
//
// Structured constructs are rejected with an UnsupportedNodeError; callers
// check HasKeywords first.
type FullText struct {
	ast.Unsupported[dsl.Query]
	Fields []string
	Raw    string
}

var _ ast.Walker[dsl.Query] = FullText{}

func NewFullText(fields []string, raw string) FullText {
	return FullText{
		Unsupported: ast.Unsupported[dsl.Query]{Name: "fulltext"},
		Fields:      fields,
		Raw:         raw,
	}
}

func (f FullText) query(text string) dsl.Query {
	return dsl.MultiMatch(text, f.Fields, dsl.ZeroTermsQuery)
}

func (f FullText) VisitValueQuery(q *ast.ValueQuery) (dsl.Query, error) {
	if _, ok := q.Value.(*ast.Value); !ok {
		return f.Unsupported.VisitValueQuery(q)
	}
	return f.query(f.Raw), nil
}

func (f FullText) VisitEmptyQuery(*ast.EmptyQuery) (dsl.Query, error) {
	return f.query(""), nil
}

func (f FullText) VisitMalformedQuery(*ast.MalformedQuery) (dsl.Query, error) {
	return f.query(""), nil
}
