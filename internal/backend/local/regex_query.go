package local

import (
	"regexp"

	"harshagw/recsearch/internal/segment"
)

// regexpQuery matches documents holding a verbatim value matched as a whole
// by the pattern. Every match scores the boost.
func (s *searcher) regexpQuery(body any) (*hits, error) {
	field, params, err := fieldParams(body, "value")
	if err != nil {
		return nil, err
	}
	pattern, err := stringParam(params, "value")
	if err != nil {
		return nil, err
	}
	boost, err := floatParam(params, "boost", 1)
	if err != nil {
		return nil, err
	}

	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, malformed("regexp %q: %v", pattern, err)
	}

	return s.overFields(s.rawFields(field), func(f string) (*hits, error) {
		terms, err := s.fieldTerms(f,
			func(seg *segment.Segment) ([]string, error) {
				terms, err := seg.MatchingTerms(pattern, f)
				if err != nil {
					return nil, malformed("regexp %q: %v", pattern, err)
				}
				return terms, nil
			},
			re.MatchString,
		)
		if err != nil {
			return nil, err
		}
		return s.multiTermHits(terms, f, boost), nil
	})
}
