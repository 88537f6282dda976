package local

import (
	"strings"

	"harshagw/recsearch/internal/dsl"
	"harshagw/recsearch/internal/segment"
)

// termQuery matches documents with a field value equal to the whole value.
func (s *searcher) termQuery(body any) (*hits, error) {
	field, params, err := fieldParams(body, "value")
	if err != nil {
		return nil, err
	}
	value, err := stringParam(params, "value")
	if err != nil {
		return nil, err
	}
	boost, err := floatParam(params, "boost", 1)
	if err != nil {
		return nil, err
	}
	return s.overFields(s.rawFields(field), func(f string) (*hits, error) {
		return s.termHits(value, f, boost), nil
	})
}

// matchOptions are the parameters shared by match and multi_match.
type matchOptions struct {
	and       bool
	zeroTerms string
	boost     float64
}

func readMatchOptions(params map[string]any) (matchOptions, error) {
	opts := matchOptions{}
	operator, err := optionalString(params, "operator", "or")
	if err != nil {
		return opts, err
	}
	switch strings.ToLower(operator) {
	case "or":
	case "and":
		opts.and = true
	default:
		return opts, malformed("operator must be and or or, got %q", operator)
	}
	opts.zeroTerms, err = optionalString(params, "zero_terms_query", "none")
	if err != nil {
		return opts, err
	}
	if opts.zeroTerms != "none" && opts.zeroTerms != "all" {
		return opts, malformed("zero_terms_query must be none or all, got %q", opts.zeroTerms)
	}
	opts.boost, err = floatParam(params, "boost", 1)
	return opts, err
}

// matchQuery analyses the text and matches its terms in one field.
func (s *searcher) matchQuery(body any) (*hits, error) {
	field, params, err := fieldParams(body, "query")
	if err != nil {
		return nil, err
	}
	text, err := stringParam(params, "query")
	if err != nil {
		return nil, err
	}
	opts, err := readMatchOptions(params)
	if err != nil {
		return nil, err
	}
	if len(s.analyze(text)) == 0 {
		return s.zeroTerms(opts), nil
	}
	return s.matchText(field, text, opts), nil
}

func (s *searcher) zeroTerms(opts matchOptions) *hits {
	if opts.zeroTerms == "all" {
		return s.allHits(opts.boost)
	}
	return newHits(s.snapshot)
}

// analyze returns the distinct terms of text in order of appearance.
func (s *searcher) analyze(text string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, tp := range s.snapshot.Analyzer().Analyze(text) {
		if !seen[tp.Token] {
			seen[tp.Token] = true
			terms = append(terms, tp.Token)
		}
	}
	return terms
}

// matchText scores text in field. Verbatim fields take the text whole.
func (s *searcher) matchText(field, text string, opts matchOptions) *hits {
	if strings.HasSuffix(field, segment.RawSuffix) {
		return s.termHits(text, field, opts.boost)
	}

	terms := s.analyze(text)
	if len(terms) == 0 {
		return newHits(s.snapshot)
	}
	sets := make([]*hits, len(terms))
	for i, term := range terms {
		sets[i] = s.termHits(term, field, opts.boost)
	}
	if opts.and {
		scored := make([]bool, len(sets))
		for i := range scored {
			scored[i] = true
		}
		return intersectHits(sets, scored)
	}
	return unionHits(s.snapshot, sets, sum)
}

// multiMatchQuery runs match over weighted fields and keeps the best field
// score per document. Type phrase runs match_phrase instead, most_fields
// sums the field scores. An empty field list searches the catch-all field.
func (s *searcher) multiMatchQuery(body any) (*hits, error) {
	params, ok := body.(map[string]any)
	if !ok {
		return nil, malformed("multi_match expects an object, got %T", body)
	}
	text, err := stringParam(params, "query")
	if err != nil {
		return nil, err
	}
	opts, err := readMatchOptions(params)
	if err != nil {
		return nil, err
	}
	kind, err := optionalString(params, "type", "best_fields")
	if err != nil {
		return nil, err
	}

	fields := []dsl.Field{{Name: dsl.AllField, Boost: 1}}
	if raw, ok := params["fields"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, malformed("fields must be a list, got %T", raw)
		}
		if len(list) > 0 {
			fields = fields[:0]
		}
		for _, item := range list {
			name, ok := item.(string)
			if !ok {
				return nil, malformed("field names must be strings, got %T", item)
			}
			f, err := dsl.ParseField(name)
			if err != nil {
				return nil, malformed("%v", err)
			}
			fields = append(fields, f)
		}
	}

	if len(s.analyze(text)) == 0 {
		return s.zeroTerms(opts), nil
	}

	combine := maxScore
	switch kind {
	case "best_fields", "phrase":
	case "most_fields":
		combine = sum
	default:
		return nil, malformed("multi_match type %q", kind)
	}

	sets := make([]*hits, 0, len(fields))
	for _, f := range fields {
		fieldOpts := opts
		fieldOpts.boost = opts.boost * f.Boost
		var h *hits
		if kind == "phrase" {
			h = s.phraseText(f.Name, text, fieldOpts.boost)
		} else {
			h = s.matchText(f.Name, text, fieldOpts)
		}
		if !h.IsEmpty() {
			sets = append(sets, h)
		}
	}
	return unionHits(s.snapshot, sets, combine), nil
}
