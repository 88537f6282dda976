package local

import (
	"math"

	"harshagw/recsearch/internal/index"
)

// BM25 scoring constants.
const (
	BM25_k1 = 1.2
	BM25_b  = 0.75
)

// scoreMatches adds the postings of one term in one field to h. df is the
// number of documents holding the term.
func (s *searcher) scoreMatches(h *hits, matches []match, field string, boost float64) {
	if len(matches) == 0 {
		return
	}
	totalDocs := s.snapshot.TotalDocs()
	df := uint64(len(matches))

	if s.snapshot.ScoringMode() != index.ScoringBM25 {
		idf := math.Log(float64(totalDocs+1)/float64(df+1)) + 1.0
		for _, m := range matches {
			var tf float64
			if m.tf > 0 {
				tf = 1.0 + math.Log(m.tf)
			}
			h.add(m.key, boost*tf*idf)
		}
		return
	}

	avgFieldLength := s.snapshot.AvgFieldLength(field)
	if avgFieldLength == 0 {
		avgFieldLength = 1
	}
	idf := math.Log(1 + (float64(totalDocs)-float64(df)+0.5)/(float64(df)+0.5))

	for _, m := range matches {
		fieldLen := float64(m.fieldLength)
		if fieldLen == 0 {
			fieldLen = avgFieldLength
		}
		tf := m.tf
		score := idf * (tf * (BM25_k1 + 1)) / (tf + BM25_k1*(1-BM25_b+BM25_b*fieldLen/avgFieldLength))
		h.add(m.key, boost*score)
	}
}
