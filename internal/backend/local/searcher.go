package local

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"harshagw/recsearch/internal/index"
	"harshagw/recsearch/internal/segment"
)

// searcher evaluates query clauses over one index snapshot.
type searcher struct {
	ctx      context.Context
	snapshot *index.IndexSnapshot
}

func newSearcher(ctx context.Context, snapshot *index.IndexSnapshot) *searcher {
	return &searcher{ctx: ctx, snapshot: snapshot}
}

// match is one posting of a term, before scoring.
type match struct {
	key         docKey
	tf          float64
	fieldLength uint64
}

// termMatches returns the live postings of term in field across the
// snapshot. A field unknown to a segment simply yields nothing there.
func (s *searcher) termMatches(term, field string) []match {
	var matches []match
	for i, segSnap := range s.snapshot.Segments() {
		seg := segSnap.Segment()
		if !seg.HasField(field) {
			continue
		}
		postings, err := segSnap.Search(term, field)
		if err != nil {
			continue
		}
		for _, p := range postings {
			matches = append(matches, match{
				key:         docKey{seg: i, doc: uint32(p.DocNum)},
				tf:          float64(p.Frequency),
				fieldLength: seg.FieldLength(field, p.DocNum),
			})
		}
	}

	if builder := s.snapshot.Builder(); builder != nil {
		for _, p := range builder.Fields[field][term] {
			if builder.IsDeleted(p.DocNum) {
				continue
			}
			matches = append(matches, match{
				key:         docKey{seg: builderSeg, doc: uint32(p.DocNum)},
				tf:          float64(p.Frequency),
				fieldLength: builder.FieldLength(field, p.DocNum),
			})
		}
	}
	return matches
}

// termDocs returns the documents holding term in field, without postings.
func (s *searcher) termDocs(term, field string) *docSet {
	ds := newDocSet(s.snapshot)
	for i, segSnap := range s.snapshot.Segments() {
		seg := segSnap.Segment()
		if !seg.HasField(field) {
			continue
		}
		bm, err := seg.SearchBitmap(term, field, segSnap.Deleted())
		if err != nil {
			continue
		}
		ds.segmentDocs[i].Or(bm)
	}
	if builder := s.snapshot.Builder(); builder != nil {
		for _, p := range builder.Fields[field][term] {
			if !builder.IsDeleted(p.DocNum) {
				ds.builderDocs.Add(uint32(p.DocNum))
			}
		}
	}
	return ds
}

// termHits scores every document holding term in field.
func (s *searcher) termHits(term, field string, boost float64) *hits {
	h := newHits(s.snapshot)
	s.scoreMatches(h, s.termMatches(term, field), field, boost)
	return h
}

// allHits matches every live document with a constant score.
func (s *searcher) allHits(boost float64) *hits {
	h := newHits(s.snapshot)
	for i, segSnap := range s.snapshot.Segments() {
		deleted := segSnap.Deleted()
		for doc := uint64(0); doc < segSnap.Segment().NumDocs(); doc++ {
			if deleted != nil && deleted.Contains(uint32(doc)) {
				continue
			}
			h.add(docKey{seg: i, doc: uint32(doc)}, boost)
		}
	}
	if builder := s.snapshot.Builder(); builder != nil {
		for doc := uint64(0); doc < builder.TotalDocs(); doc++ {
			if !builder.IsDeleted(doc) {
				h.add(docKey{seg: builderSeg, doc: uint32(doc)}, boost)
			}
		}
	}
	return h
}

// constantHits gives every document of ds the same score.
func constantHits(ds *docSet, score float64) *hits {
	h := &hits{docs: ds, scores: make(map[docKey]float64, ds.Count())}
	ds.ForEach(func(k docKey) { h.scores[k] = score })
	return h
}

// fieldTerms lists the distinct terms of a field that satisfy keep.
func (s *searcher) fieldTerms(field string, fromSegment func(*segment.Segment) ([]string, error), keep func(string) bool) ([]string, error) {
	seen := make(map[string]bool)
	for _, segSnap := range s.snapshot.Segments() {
		seg := segSnap.Segment()
		if !seg.HasField(field) {
			continue
		}
		terms, err := fromSegment(seg)
		if err != nil {
			return nil, err
		}
		for _, term := range terms {
			if keep(term) {
				seen[term] = true
			}
		}
	}
	if builder := s.snapshot.Builder(); builder != nil {
		for term := range builder.Fields[field] {
			if keep(term) {
				seen[term] = true
			}
		}
	}
	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	slices.Sort(terms)
	return terms, nil
}

// multiTermHits matches documents holding any of terms with a constant score.
func (s *searcher) multiTermHits(terms []string, field string, boost float64) *hits {
	sets := make([]*docSet, 0, len(terms))
	for _, term := range terms {
		if ds := s.termDocs(term, field); !ds.IsEmpty() {
			sets = append(sets, ds)
		}
	}
	return constantHits(unionAll(s.snapshot, sets), boost)
}

// rawField returns the verbatim sub-field of field.
func rawField(field string) string {
	if strings.HasSuffix(field, segment.RawSuffix) || strings.HasPrefix(field, "_") {
		return field
	}
	return field + segment.RawSuffix
}

// Result is one scored document.
type Result struct {
	DocID string
	Score float64
	key   docKey
}

// results orders hits by descending score, ties broken by ID.
func (s *searcher) results(h *hits) []Result {
	seen := make(map[string]bool)
	out := make([]Result, 0, h.docs.Count())
	h.docs.ForEach(func(k docKey) {
		id, ok := s.externalID(k)
		if !ok || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, Result{DocID: id, Score: h.scores[k], key: k})
	})
	sortByScore(out)
	return out
}

func sortByScore(results []Result) {
	slices.SortStableFunc(results, func(a, b Result) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return strings.Compare(a.DocID, b.DocID)
	})
}

func (s *searcher) externalID(k docKey) (string, bool) {
	if k.seg == builderSeg {
		builder := s.snapshot.Builder()
		if builder == nil || int(k.doc) >= len(builder.DocIDs) {
			return "", false
		}
		return builder.DocIDs[k.doc], true
	}
	return s.snapshot.Segments()[k.seg].Segment().ExternalID(uint64(k.doc))
}

func (s *searcher) loadDoc(k docKey) (map[string]any, error) {
	if k.seg == builderSeg {
		doc, ok := s.snapshot.Builder().LoadDoc(uint64(k.doc))
		if !ok {
			return nil, fmt.Errorf("document %d not in builder", k.doc)
		}
		return doc, nil
	}
	return s.snapshot.Segments()[k.seg].Segment().LoadDoc(uint64(k.doc))
}

// typeDocs returns the documents indexed under docType.
func (s *searcher) typeDocs(docType string) *docSet {
	return s.termDocs(docType, segment.TypeField)
}
