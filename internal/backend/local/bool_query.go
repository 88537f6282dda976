package local

import (
	"math"
	"strconv"
	"strings"
)

// boolQuery combines clauses. must and filter documents have to match every
// clause, only must clauses score. should clauses add their scores and, when
// there is no must or filter, at least one of them has to match unless
// minimum_should_match says otherwise. must_not documents are removed.
func (s *searcher) boolQuery(body any) (*hits, error) {
	params, ok := body.(map[string]any)
	if !ok {
		return nil, malformed("bool expects an object, got %T", body)
	}

	clauses := make(map[string][]*hits, 4)
	for _, occur := range []string{"must", "filter", "should", "must_not"} {
		sets, err := s.evalClauses(params[occur])
		if err != nil {
			return nil, err
		}
		clauses[occur] = sets
	}
	for key := range params {
		switch key {
		case "must", "filter", "should", "must_not", "minimum_should_match", "boost":
		default:
			return nil, malformed("bool parameter %q", key)
		}
	}

	must, filter, should, mustNot := clauses["must"], clauses["filter"], clauses["should"], clauses["must_not"]

	minShould := 0
	if len(must) == 0 && len(filter) == 0 && len(should) > 0 {
		minShould = 1
	}
	if raw, ok := params["minimum_should_match"]; ok {
		n, err := minimumShouldMatch(raw, len(should))
		if err != nil {
			return nil, err
		}
		minShould = n
	}
	boost, err := floatParam(params, "boost", 1)
	if err != nil {
		return nil, err
	}

	var base *hits
	if required := append(append([]*hits{}, must...), filter...); len(required) > 0 {
		scored := make([]bool, len(required))
		for i := range must {
			scored[i] = true
		}
		base = intersectHits(required, scored)
	}

	if minShould > 0 {
		counts := make(map[docKey]int)
		for _, h := range should {
			h.docs.ForEach(func(k docKey) { counts[k]++ })
		}
		ds := newDocSet(s.snapshot)
		for k, n := range counts {
			if n >= minShould {
				ds.Add(k)
			}
		}
		if base == nil {
			base = constantHits(ds, 0)
		} else {
			base = base.restrict(base.docs.Intersect(ds))
		}
	}

	if base == nil {
		base = s.allHits(1)
	}

	if len(mustNot) > 0 {
		excluded := make([]*docSet, len(mustNot))
		for i, h := range mustNot {
			excluded[i] = h.docs
		}
		base = base.restrict(base.docs.Subtract(unionAll(s.snapshot, excluded)))
	}

	out := &hits{docs: base.docs, scores: make(map[docKey]float64, len(base.scores))}
	base.docs.ForEach(func(k docKey) {
		score := base.scores[k]
		for _, h := range should {
			score += h.scores[k]
		}
		out.scores[k] = score * boost
	})
	return out, nil
}

// evalClauses runs a single clause or a list of clauses.
func (s *searcher) evalClauses(v any) ([]*hits, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	sets := make([]*hits, 0, len(list))
	for _, q := range list {
		h, err := s.eval(q)
		if err != nil {
			return nil, err
		}
		sets = append(sets, h)
	}
	return sets, nil
}

// minimumShouldMatch resolves an absolute count, a negative count of
// clauses allowed to miss or a percentage of the should clauses.
func minimumShouldMatch(v any, clauses int) (int, error) {
	if str, ok := v.(string); ok && strings.HasSuffix(str, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(str, "%"), 64)
		if err != nil {
			return 0, malformed("minimum_should_match %q", str)
		}
		n := int(math.Trunc(float64(clauses) * math.Abs(pct) / 100))
		if pct < 0 {
			n = clauses - n
		}
		return n, nil
	}
	n, err := intValue(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		n += clauses
		if n < 0 {
			n = 0
		}
	}
	return n, nil
}
