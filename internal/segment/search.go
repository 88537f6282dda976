package segment

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring"
	"github.com/couchbase/vellum"
	"github.com/couchbase/vellum/regexp"
)

// HasField reports whether any document indexed the field.
func (s *Segment) HasField(field string) bool {
	return s.fields[field] != nil
}

// getFST loads the term dictionary of a field on first use.
func (s *Segment) getFST(field string) (*vellum.FST, error) {
	s.fstsMu.RLock()
	fst, ok := s.fsts[field]
	s.fstsMu.RUnlock()
	if ok {
		return fst, nil
	}

	s.fstsMu.Lock()
	defer s.fstsMu.Unlock()
	if fst, ok := s.fsts[field]; ok {
		return fst, nil
	}

	meta := s.fields[field]
	if meta == nil {
		return nil, fmt.Errorf("field not found: %s", field)
	}
	dict, err := s.lengthPrefixed(meta.DictOffset)
	if err != nil {
		return nil, fmt.Errorf("dictionary of %s: %w", field, err)
	}
	fst, err = vellum.Load(dict)
	if err != nil {
		return nil, fmt.Errorf("%w: dictionary of %s: %v", ErrCorrupt, field, err)
	}
	s.fsts[field] = fst
	return fst, nil
}

// lengthPrefixed returns the bytes after the u64 length at offset.
func (s *Segment) lengthPrefixed(offset uint64) ([]byte, error) {
	size := uint64(len(s.data))
	if offset > size || size-offset < 8 {
		return nil, fmt.Errorf("%w: offset %d out of range", ErrCorrupt, offset)
	}
	start := offset + 8
	n := binary.BigEndian.Uint64(s.data[offset:])
	if n > size-start {
		return nil, fmt.Errorf("%w: %d bytes at %d out of range", ErrCorrupt, n, start)
	}
	return s.data[start : start+n], nil
}

// termRef locates the postings of one term: either a single inlined docNum
// or encoded postings.
type termRef struct {
	inline bool
	docNum uint64
	data   []byte
}

func (s *Segment) resolve(term, field string) (termRef, bool, error) {
	fst, err := s.getFST(field)
	if err != nil {
		return termRef{}, false, err
	}
	val, ok, err := fst.Get([]byte(term))
	if err != nil || !ok {
		return termRef{}, false, err
	}
	if isInline(val) {
		return termRef{inline: true, docNum: inlineDocNum(val)}, true, nil
	}
	offset := s.fields[field].PostingsOffset + val
	if offset >= uint64(len(s.data)) {
		return termRef{}, false, fmt.Errorf("%w: postings of %q in %s out of range", ErrCorrupt, term, field)
	}
	return termRef{data: s.data[offset:]}, true, nil
}

func isDeleted(deleted *roaring.Bitmap, docNum uint64) bool {
	return deleted != nil && deleted.Contains(uint32(docNum))
}

// Search returns the live postings of a term in a field.
func (s *Segment) Search(term, field string, deleted *roaring.Bitmap) ([]Posting, error) {
	ref, ok, err := s.resolve(term, field)
	if err != nil || !ok {
		return nil, err
	}
	if ref.inline {
		if isDeleted(deleted, ref.docNum) {
			return nil, nil
		}
		return []Posting{{DocNum: ref.docNum, Frequency: 1, Positions: []uint64{0}}}, nil
	}

	postings, err := DecodePostings(ref.data)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(postings, func(p Posting) bool {
		return isDeleted(deleted, p.DocNum)
	}), nil
}

// SearchBitmap returns the live docNums holding a term without decoding
// frequencies or positions.
func (s *Segment) SearchBitmap(term, field string, deleted *roaring.Bitmap) (*roaring.Bitmap, error) {
	ref, ok, err := s.resolve(term, field)
	if err != nil {
		return nil, err
	}
	switch {
	case !ok:
		return roaring.New(), nil
	case ref.inline:
		bm := roaring.New()
		if !isDeleted(deleted, ref.docNum) {
			bm.Add(uint32(ref.docNum))
		}
		return bm, nil
	}
	return DecodePostingsBitmap(ref.data, deleted)
}

func collectKeys(iter vellum.Iterator, err error) ([]string, error) {
	var terms []string
	for err == nil {
		key, _ := iter.Current()
		terms = append(terms, string(key))
		err = iter.Next()
	}
	if !errors.Is(err, vellum.ErrIteratorDone) {
		return nil, err
	}
	return terms, nil
}

// MatchingTerms returns the terms of a field matched in full by pattern.
func (s *Segment) MatchingTerms(pattern, field string) ([]string, error) {
	aut, err := regexp.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	fst, err := s.getFST(field)
	if err != nil {
		return nil, err
	}
	return collectKeys(fst.Search(aut, nil, nil))
}

func (s *Segment) PrefixTerms(prefix, field string) ([]string, error) {
	start := []byte(prefix)
	return s.rangeTerms(field, start, prefixSuccessor(start))
}

// Terms returns every term of a field in lexical order.
func (s *Segment) Terms(field string) ([]string, error) {
	return s.rangeTerms(field, nil, nil)
}

func (s *Segment) rangeTerms(field string, start, end []byte) ([]string, error) {
	fst, err := s.getFST(field)
	if err != nil {
		return nil, err
	}
	return collectKeys(fst.Iterator(start, end))
}

// PrefixPostings sums, per live document, the frequencies of every term
// starting with prefix. Positions are dropped.
func (s *Segment) PrefixPostings(prefix, field string, deleted *roaring.Bitmap) ([]Posting, error) {
	terms, err := s.PrefixTerms(prefix, field)
	if err != nil {
		return nil, err
	}
	freqs := make(map[uint64]uint64)
	for _, term := range terms {
		postings, err := s.Search(term, field, deleted)
		if err != nil {
			return nil, err
		}
		for _, p := range postings {
			freqs[p.DocNum] += p.Frequency
		}
	}

	out := make([]Posting, 0, len(freqs))
	for docNum, freq := range freqs {
		out = append(out, Posting{DocNum: docNum, Frequency: freq})
	}
	slices.SortFunc(out, func(a, b Posting) int { return cmp.Compare(a.DocNum, b.DocNum) })
	return out, nil
}

// prefixSuccessor returns the smallest key greater than every key starting
// with prefix, or nil when there is none.
func prefixSuccessor(prefix []byte) []byte {
	succ := bytes.Clone(prefix)
	for i := len(succ) - 1; i >= 0; i-- {
		if succ[i] < 0xff {
			succ[i]++
			return succ[:i+1]
		}
	}
	return nil
}
