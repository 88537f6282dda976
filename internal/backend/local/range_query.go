package local

import (
	"strconv"
	"strings"

	"harshagw/recsearch/internal/segment"
)

// bound is one side of a range.
type bound struct {
	value     string
	inclusive bool
	set       bool
}

// rangeQuery matches documents holding a verbatim value inside the bounds.
// Values compare as numbers when both sides parse as numbers, as strings
// otherwise.
func (s *searcher) rangeQuery(body any) (*hits, error) {
	field, v, err := singleKey(body)
	if err != nil {
		return nil, err
	}
	params, ok := v.(map[string]any)
	if !ok {
		return nil, malformed("range on %q expects an object, got %T", field, v)
	}

	var lower, upper bound
	for key, val := range params {
		switch key {
		case "gt", "gte", "lt", "lte":
			str, err := stringParam(params, key)
			if err != nil {
				return nil, err
			}
			b := bound{value: str, inclusive: strings.HasSuffix(key, "e"), set: true}
			if strings.HasPrefix(key, "g") {
				lower = b
			} else {
				upper = b
			}
		case "boost", "format", "time_zone":
		default:
			return nil, malformed("range parameter %q on %v", key, val)
		}
	}
	boost, err := floatParam(params, "boost", 1)
	if err != nil {
		return nil, err
	}

	keep := func(term string) bool {
		if lower.set {
			c := compareValues(term, lower.value)
			if c < 0 || c == 0 && !lower.inclusive {
				return false
			}
		}
		if upper.set {
			c := compareValues(term, upper.value)
			if c > 0 || c == 0 && !upper.inclusive {
				return false
			}
		}
		return true
	}

	return s.overFields(s.rawFields(field), func(f string) (*hits, error) {
		terms, err := s.fieldTerms(f, func(seg *segment.Segment) ([]string, error) {
			return seg.Terms(f)
		}, keep)
		if err != nil {
			return nil, err
		}
		return s.multiTermHits(terms, f, boost), nil
	})
}

func compareValues(a, b string) int {
	x, errA := strconv.ParseFloat(a, 64)
	y, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}
