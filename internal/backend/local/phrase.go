package local

import (
	"slices"
	"strings"

	"harshagw/recsearch/internal/segment"
)

// matchPhraseQuery matches documents holding the analysed terms of the text
// at consecutive positions.
func (s *searcher) matchPhraseQuery(body any) (*hits, error) {
	field, params, err := fieldParams(body, "query")
	if err != nil {
		return nil, err
	}
	text, err := stringParam(params, "query")
	if err != nil {
		return nil, err
	}
	boost, err := floatParam(params, "boost", 1)
	if err != nil {
		return nil, err
	}
	zeroTerms, err := optionalString(params, "zero_terms_query", "none")
	if err != nil {
		return nil, err
	}
	if len(s.analyze(text)) == 0 {
		return s.zeroTerms(matchOptions{zeroTerms: zeroTerms, boost: boost}), nil
	}
	return s.phraseText(field, text, boost), nil
}

// phraseText scores the phrase occurrences of text in field. The term
// frequency of a document is its number of occurrences.
func (s *searcher) phraseText(field, text string, boost float64) *hits {
	if strings.HasSuffix(field, segment.RawSuffix) {
		return s.termHits(text, field, boost)
	}

	tokens := s.snapshot.Analyzer().Analyze(text)
	h := newHits(s.snapshot)
	if len(tokens) == 0 {
		return h
	}
	if len(tokens) == 1 {
		return s.termHits(tokens[0].Token, field, boost)
	}

	terms := make([]string, len(tokens))
	offsets := make([]uint64, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Token
		offsets[i] = uint64(t.Position - tokens[0].Position)
	}

	var matches []match
	for i, segSnap := range s.snapshot.Segments() {
		seg := segSnap.Segment()
		if !seg.HasField(field) {
			continue
		}
		postings := make([][]segment.Posting, len(terms))
		for j, term := range terms {
			p, err := segSnap.Search(term, field)
			if err != nil || len(p) == 0 {
				postings = nil
				break
			}
			postings[j] = p
		}
		for docNum, count := range phraseCounts(postings, offsets, nil) {
			matches = append(matches, match{
				key:         docKey{seg: i, doc: uint32(docNum)},
				tf:          float64(count),
				fieldLength: seg.FieldLength(field, docNum),
			})
		}
	}

	if builder := s.snapshot.Builder(); builder != nil {
		postings := make([][]segment.Posting, len(terms))
		for j, term := range terms {
			p := builder.Fields[field][term]
			if len(p) == 0 {
				postings = nil
				break
			}
			postings[j] = p
		}
		for docNum, count := range phraseCounts(postings, offsets, builder.IsDeleted) {
			matches = append(matches, match{
				key:         docKey{seg: builderSeg, doc: uint32(docNum)},
				tf:          float64(count),
				fieldLength: builder.FieldLength(field, docNum),
			})
		}
	}

	slices.SortFunc(matches, func(a, b match) int {
		if a.key.seg != b.key.seg {
			return a.key.seg - b.key.seg
		}
		return int(a.key.doc) - int(b.key.doc)
	})
	s.scoreMatches(h, matches, field, boost)
	return h
}

// phraseCounts returns, per document, how often the terms occur at the given
// offsets from each other. postings holds one list per term.
func phraseCounts(postings [][]segment.Posting, offsets []uint64, deleted func(uint64) bool) map[uint64]int {
	if len(postings) == 0 {
		return nil
	}

	positions := make(map[uint64][][]uint64)
	for _, p := range postings[0] {
		if deleted != nil && deleted(p.DocNum) {
			continue
		}
		positions[p.DocNum] = make([][]uint64, len(postings))
	}
	for i, list := range postings {
		for _, p := range list {
			if pos, ok := positions[p.DocNum]; ok {
				pos[i] = p.Positions
			}
		}
	}

	counts := make(map[uint64]int)
	for docNum, pos := range positions {
		if n := phraseMatch(pos, offsets); n > 0 {
			counts[docNum] = n
		}
	}
	return counts
}

// phraseMatch counts the start positions of the first term from which every
// other term sits at its offset.
func phraseMatch(positions [][]uint64, offsets []uint64) int {
	for _, pos := range positions {
		if len(pos) == 0 {
			return 0
		}
	}

	n := 0
	for _, start := range positions[0] {
		ok := true
		for i := 1; i < len(positions); i++ {
			if !slices.Contains(positions[i], start+offsets[i]) {
				ok = false
				break
			}
		}
		if ok {
			n++
		}
	}
	return n
}
