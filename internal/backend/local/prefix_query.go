package local

import (
	"strings"
)

// prefixQuery matches documents holding a verbatim value that starts with
// the prefix. Every match scores the boost.
func (s *searcher) prefixQuery(body any) (*hits, error) {
	field, params, err := fieldParams(body, "value")
	if err != nil {
		return nil, err
	}
	prefix, err := stringParam(params, "value")
	if err != nil {
		return nil, err
	}
	boost, err := floatParam(params, "boost", 1)
	if err != nil {
		return nil, err
	}
	return s.overFields(s.rawFields(field), func(f string) (*hits, error) {
		return s.prefixHits(prefix, f, boost)
	})
}

func (s *searcher) prefixHits(prefix, field string, boost float64) (*hits, error) {
	ds := newDocSet(s.snapshot)
	for i, segSnap := range s.snapshot.Segments() {
		seg := segSnap.Segment()
		if !seg.HasField(field) {
			continue
		}
		postings, err := seg.PrefixPostings(prefix, field, segSnap.Deleted())
		if err != nil {
			return nil, err
		}
		for _, p := range postings {
			ds.Add(docKey{seg: i, doc: uint32(p.DocNum)})
		}
	}
	if builder := s.snapshot.Builder(); builder != nil {
		for term, postings := range builder.Fields[field] {
			if !strings.HasPrefix(term, prefix) {
				continue
			}
			for _, p := range postings {
				if !builder.IsDeleted(p.DocNum) {
					ds.Add(docKey{seg: builderSeg, doc: uint32(p.DocNum)})
				}
			}
		}
	}
	return constantHits(ds, boost), nil
}
