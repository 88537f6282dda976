// Package dsl builds Elasticsearch-style query bodies.
//
// Bodies are plain JSON-shaped maps so they can be marshalled as-is for a
// remote cluster or interpreted in process by the local backend.
package dsl

// Query is one query clause, e.g. {"match": {"title": {"query": "higgs"}}}.
type Query = map[string]any

// Body is a complete search request body.
type Body = map[string]any

// ZeroTermsQuery is the policy a full-text query applies when its text
// analyses to no terms at all. "all" makes an empty or malformed query match
// every document; the alternative "none" would return nothing.
const ZeroTermsQuery = "all"

// AllField is the catch-all field searched by unqualified values.
const AllField = "_all"

// Field names a field with an optional boost, rendered as "name^boost".
type Field struct {
	Name  string
	Boost float64
}

func (f Field) String() string {
	if f.Boost == 0 || f.Boost == 1 {
		return f.Name
	}
	return f.Name + "^" + formatBoost(f.Boost)
}

func MatchAll() Query  { return Query{"match_all": map[string]any{}} }
func MatchNone() Query { return Query{"match_none": map[string]any{}} }

// MultiMatch searches text across fields.
func MultiMatch(text string, fields []string, zeroTerms string) Query {
	params := map[string]any{
		"query":  text,
		"fields": stringsToAny(fields),
	}
	if zeroTerms != "" {
		params["zero_terms_query"] = zeroTerms
	}
	return Query{"multi_match": params}
}

func Match(field, text string) Query {
	return Query{"match": map[string]any{field: map[string]any{"query": text}}}
}

func MatchPhrase(field, text string) Query {
	return Query{"match_phrase": map[string]any{field: map[string]any{"query": text}}}
}

func Term(field, value string) Query {
	return Query{"term": map[string]any{field: map[string]any{"value": value}}}
}

func Prefix(field, value string) Query {
	return Query{"prefix": map[string]any{field: map[string]any{"value": value}}}
}

func Regexp(field, pattern string) Query {
	return Query{"regexp": map[string]any{field: map[string]any{"value": pattern}}}
}

// Range builds a range clause. Keys of bounds are gt, gte, lt or lte.
func Range(field string, bounds map[string]string) Query {
	params := make(map[string]any, len(bounds))
	for k, v := range bounds {
		params[k] = v
	}
	return Query{"range": map[string]any{field: params}}
}

// Bool collects boolean clauses. The zero value is an empty bool query.
type Bool struct {
	Must               []Query
	Should             []Query
	MustNot            []Query
	Filter             []Query
	MinimumShouldMatch int
}

func (b Bool) Query() Query {
	params := map[string]any{}
	if len(b.Must) > 0 {
		params["must"] = queriesToAny(b.Must)
	}
	if len(b.Should) > 0 {
		params["should"] = queriesToAny(b.Should)
	}
	if len(b.MustNot) > 0 {
		params["must_not"] = queriesToAny(b.MustNot)
	}
	if len(b.Filter) > 0 {
		params["filter"] = queriesToAny(b.Filter)
	}
	if b.MinimumShouldMatch > 0 {
		params["minimum_should_match"] = b.MinimumShouldMatch
	}
	return Query{"bool": params}
}

// NewBody wraps a query with pagination.
func NewBody(q Query, from, size int) Body {
	return Body{"from": from, "size": size, "query": q}
}

// Merge returns a copy of b with params laid over it.
func Merge(b Body, params map[string]any) Body {
	out := make(Body, len(b)+len(params))
	for k, v := range b {
		out[k] = v
	}
	for k, v := range params {
		out[k] = v
	}
	return out
}

func queriesToAny(qs []Query) []any {
	out := make([]any, len(qs))
	for i, q := range qs {
		out[i] = q
	}
	return out
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
