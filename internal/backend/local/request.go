package local

import (
	"slices"
	"strings"

	"harshagw/recsearch/internal/analysis"
	"harshagw/recsearch/internal/dsl"
)

// request is a parsed search body.
type request struct {
	query  any
	from   int
	size   int
	fields []string
	source bool
	sort   []sortKey
}

type sortKey struct {
	field string
	desc  bool
}

func parseRequest(body dsl.Body) (*request, error) {
	req := &request{query: dsl.MatchAll(), size: defaultSize, source: true}

	for key, v := range body {
		var err error
		switch key {
		case "query":
			req.query = v
		case "from":
			req.from, err = intValue(v)
		case "size":
			req.size, err = intValue(v)
		case "fields":
			req.fields, err = stringList(v)
			req.source = false
		case "sort":
			req.sort, err = parseSort(v)
		case "_source":
		default:
			return nil, malformed("unknown body parameter %q", key)
		}
		if err != nil {
			return nil, err
		}
	}
	if v, ok := body["_source"]; ok {
		source, ok := v.(bool)
		if !ok {
			return nil, malformed("_source must be a boolean, got %T", v)
		}
		req.source = source
	}
	if req.from < 0 || req.size < 0 {
		return nil, malformed("from and size must not be negative")
	}
	return req, nil
}

func stringList(v any) ([]string, error) {
	switch v := v.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, malformed("expected a string, got %T", item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, malformed("expected a list of strings, got %T", v)
	}
}

// parseSort reads "field", {"field": "desc"} or {"field": {"order": "desc"}},
// alone or in a list. Fields sort ascending and _score descending by default.
func parseSort(v any) ([]sortKey, error) {
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	keys := make([]sortKey, 0, len(list))
	for _, item := range list {
		if name, ok := item.(string); ok {
			keys = append(keys, sortKey{field: name, desc: name == "_score"})
			continue
		}
		name, opts, err := singleKey(item)
		if err != nil {
			return nil, err
		}
		if params, ok := opts.(map[string]any); ok {
			opts = params["order"]
		}
		order, ok := opts.(string)
		if !ok {
			return nil, malformed("sort order for %q must be asc or desc", name)
		}
		switch strings.ToLower(order) {
		case "asc":
			keys = append(keys, sortKey{field: name})
		case "desc":
			keys = append(keys, sortKey{field: name, desc: true})
		default:
			return nil, malformed("sort order for %q must be asc or desc, got %q", name, order)
		}
	}
	return keys, nil
}

// sortResults orders results by the sort keys, then by ID. Documents without
// a value for a field sort after those with one.
func sortResults(results []Result, keys []sortKey, load func(docKey) (map[string]any, error)) error {
	values := make(map[docKey][]string, len(results))
	for _, r := range results {
		doc, err := load(r.key)
		if err != nil {
			return err
		}
		vals := make([]string, len(keys))
		for i, k := range keys {
			if k.field == "_score" {
				continue
			}
			for _, v := range fieldValues(doc, k.field) {
				if s, ok := analysis.Scalar(v); ok {
					vals[i] = s
					break
				}
			}
		}
		values[r.key] = vals
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		for i, k := range keys {
			var c int
			if k.field == "_score" {
				switch {
				case a.Score < b.Score:
					c = -1
				case a.Score > b.Score:
					c = 1
				}
			} else {
				va, vb := values[a.key][i], values[b.key][i]
				switch {
				case va == vb:
				case va == "":
					return 1
				case vb == "":
					return -1
				default:
					c = compareValues(va, vb)
				}
			}
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return strings.Compare(a.DocID, b.DocID)
	})
	return nil
}

// selectFields returns the values of the requested dotted paths. Paths with
// no value are left out.
func selectFields(doc map[string]any, fields []string) map[string][]any {
	out := make(map[string][]any, len(fields))
	for _, f := range fields {
		if vals := fieldValues(doc, f); len(vals) > 0 {
			out[f] = vals
		}
	}
	return out
}

// fieldValues collects the leaf values at a dotted path. Arrays along the
// way are walked element by element.
func fieldValues(v any, path string) []any {
	if path == "" {
		switch v := v.(type) {
		case nil:
			return nil
		case []any:
			var out []any
			for _, item := range v {
				out = append(out, fieldValues(item, "")...)
			}
			return out
		default:
			return []any{v}
		}
	}

	head, rest, _ := strings.Cut(path, ".")
	switch v := v.(type) {
	case map[string]any:
		return fieldValues(v[head], rest)
	case []any:
		var out []any
		for _, item := range v {
			out = append(out, fieldValues(item, path)...)
		}
		return out
	default:
		return nil
	}
}
