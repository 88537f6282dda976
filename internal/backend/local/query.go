package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"harshagw/recsearch/internal/analysis"
	"harshagw/recsearch/internal/segment"
)

var (
	// ErrUnsupportedClause is returned for query clauses the local index
	// does not implement.
	ErrUnsupportedClause = errors.New("unsupported query clause")
	// ErrMalformedClause is returned for clauses with a bad shape or value.
	ErrMalformedClause = errors.New("malformed query clause")
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedClause, fmt.Sprintf(format, args...))
}

// eval runs one query clause, e.g. {"term": {"title": {"value": "x"}}}.
func (s *searcher) eval(q any) (*hits, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}

	name, body, err := singleKey(q)
	if err != nil {
		return nil, err
	}

	switch name {
	case "match_all":
		params, _ := body.(map[string]any)
		boost, err := floatParam(params, "boost", 1)
		if err != nil {
			return nil, err
		}
		return s.allHits(boost), nil
	case "match_none":
		return newHits(s.snapshot), nil
	case "match":
		return s.matchQuery(body)
	case "match_phrase":
		return s.matchPhraseQuery(body)
	case "multi_match":
		return s.multiMatchQuery(body)
	case "term":
		return s.termQuery(body)
	case "prefix":
		return s.prefixQuery(body)
	case "regexp":
		return s.regexpQuery(body)
	case "range":
		return s.rangeQuery(body)
	case "bool":
		return s.boolQuery(body)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedClause, name)
	}
}

// singleKey unpacks a one-entry object.
func singleKey(v any) (string, any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", nil, malformed("expected an object, got %T", v)
	}
	if len(m) != 1 {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return "", nil, malformed("expected exactly one key, got %v", keys)
	}
	var key string
	var val any
	for k, v := range m {
		key, val = k, v
	}
	return key, val, nil
}

// fieldParams unpacks {field: {...params}} or the short form {field: value},
// which stands for {field: {short: value}}.
func fieldParams(body any, short string) (string, map[string]any, error) {
	field, v, err := singleKey(body)
	if err != nil {
		return "", nil, err
	}
	if params, ok := v.(map[string]any); ok {
		return field, params, nil
	}
	return field, map[string]any{short: v}, nil
}

func stringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", malformed("missing %q", key)
	}
	s, ok := analysis.Scalar(v)
	if !ok {
		return "", malformed("%q must be a scalar, got %T", key, v)
	}
	return s, nil
}

func optionalString(params map[string]any, key, def string) (string, error) {
	if _, ok := params[key]; !ok {
		return def, nil
	}
	return stringParam(params, key)
}

func floatParam(params map[string]any, key string, def float64) (float64, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	s, ok := analysis.Scalar(v)
	if !ok {
		return 0, malformed("%q must be a number, got %T", key, v)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, malformed("%q must be a number, got %q", key, s)
	}
	return f, nil
}

// intValue accepts the integer shapes a body can carry: Go ints, JSON
// float64 and json.Number.
func intValue(v any) (int, error) {
	switch v := v.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, malformed("expected an integer, got %v", v)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, malformed("expected an integer, got %q", v.String())
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, malformed("expected an integer, got %q", v)
		}
		return n, nil
	default:
		return 0, malformed("expected an integer, got %T", v)
	}
}

// rawFields returns the verbatim fields an exact-value clause on field
// looks at. The catch-all field stands for every verbatim field.
func (s *searcher) rawFields(field string) []string {
	if field != segment.AllField {
		return []string{rawField(field)}
	}
	seen := make(map[string]bool)
	for _, segSnap := range s.snapshot.Segments() {
		for _, f := range segSnap.Segment().Fields() {
			if strings.HasSuffix(f, segment.RawSuffix) {
				seen[f] = true
			}
		}
	}
	if builder := s.snapshot.Builder(); builder != nil {
		for f := range builder.Fields {
			if strings.HasSuffix(f, segment.RawSuffix) {
				seen[f] = true
			}
		}
	}
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return fields
}

// overFields runs fn for each field and keeps the best score per document.
func (s *searcher) overFields(fields []string, fn func(field string) (*hits, error)) (*hits, error) {
	sets := make([]*hits, 0, len(fields))
	for _, f := range fields {
		h, err := fn(f)
		if err != nil {
			return nil, err
		}
		if !h.IsEmpty() {
			sets = append(sets, h)
		}
	}
	return unionHits(s.snapshot, sets, maxScore), nil
}
