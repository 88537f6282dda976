package local

import (
	"github.com/RoaringBitmap/roaring"

	"harshagw/recsearch/internal/index"
)

// builderSeg is the segment number used for documents still in the builder.
const builderSeg = -1

// docKey addresses one document inside a snapshot.
type docKey struct {
	seg int
	doc uint32
}

// docSet holds matching documents across all segments and the builder.
// Each bitmap contains docNums local to that segment/builder.
type docSet struct {
	segmentDocs []*roaring.Bitmap
	builderDocs *roaring.Bitmap
}

func newDocSet(snapshot *index.IndexSnapshot) *docSet {
	ds := &docSet{
		segmentDocs: make([]*roaring.Bitmap, len(snapshot.Segments())),
		builderDocs: roaring.New(),
	}
	for i := range ds.segmentDocs {
		ds.segmentDocs[i] = roaring.New()
	}
	return ds
}

func (ds *docSet) bitmap(seg int) *roaring.Bitmap {
	if seg == builderSeg {
		return ds.builderDocs
	}
	return ds.segmentDocs[seg]
}

func (ds *docSet) Add(k docKey) { ds.bitmap(k.seg).Add(k.doc) }

func (ds *docSet) Contains(k docKey) bool { return ds.bitmap(k.seg).Contains(k.doc) }

// IsEmpty returns true if all bitmaps are empty.
func (ds *docSet) IsEmpty() bool {
	for _, bm := range ds.segmentDocs {
		if !bm.IsEmpty() {
			return false
		}
	}
	return ds.builderDocs.IsEmpty()
}

// Count returns the total number of documents across all segments.
func (ds *docSet) Count() uint64 {
	count := ds.builderDocs.GetCardinality()
	for _, bm := range ds.segmentDocs {
		count += bm.GetCardinality()
	}
	return count
}

// ForEach visits every document, segments first in order, then the builder.
func (ds *docSet) ForEach(fn func(docKey)) {
	for i, bm := range ds.segmentDocs {
		it := bm.Iterator()
		for it.HasNext() {
			fn(docKey{seg: i, doc: it.Next()})
		}
	}
	it := ds.builderDocs.Iterator()
	for it.HasNext() {
		fn(docKey{seg: builderSeg, doc: it.Next()})
	}
}

func (ds *docSet) combine(other *docSet, op func(a, b *roaring.Bitmap) *roaring.Bitmap) *docSet {
	result := &docSet{
		segmentDocs: make([]*roaring.Bitmap, len(ds.segmentDocs)),
		builderDocs: op(ds.builderDocs, other.builderDocs),
	}
	for i := range ds.segmentDocs {
		result.segmentDocs[i] = op(ds.segmentDocs[i], other.segmentDocs[i])
	}
	return result
}

func (ds *docSet) Intersect(other *docSet) *docSet { return ds.combine(other, roaring.And) }

// Subtract removes documents that are in the other docSet.
func (ds *docSet) Subtract(other *docSet) *docSet { return ds.combine(other, roaring.AndNot) }

// unionAll performs a fast union of docSets from one snapshot.
func unionAll(snapshot *index.IndexSnapshot, sets []*docSet) *docSet {
	result := newDocSet(snapshot)
	if len(sets) == 0 {
		return result
	}

	collect := func(pick func(*docSet) *roaring.Bitmap) *roaring.Bitmap {
		bms := make([]*roaring.Bitmap, 0, len(sets))
		for _, ds := range sets {
			if bm := pick(ds); !bm.IsEmpty() {
				bms = append(bms, bm)
			}
		}
		if len(bms) == 0 {
			return roaring.New()
		}
		return roaring.FastOr(bms...)
	}

	result.builderDocs = collect(func(ds *docSet) *roaring.Bitmap { return ds.builderDocs })
	for i := range result.segmentDocs {
		result.segmentDocs[i] = collect(func(ds *docSet) *roaring.Bitmap { return ds.segmentDocs[i] })
	}
	return result
}

// hits is a docSet with a score for every member.
type hits struct {
	docs   *docSet
	scores map[docKey]float64
}

func newHits(snapshot *index.IndexSnapshot) *hits {
	return &hits{docs: newDocSet(snapshot), scores: make(map[docKey]float64)}
}

// add records a match, summing scores when the document is already present.
func (h *hits) add(k docKey, score float64) {
	h.docs.Add(k)
	h.scores[k] += score
}

func (h *hits) IsEmpty() bool { return h.docs.IsEmpty() }

// restrict keeps the scores of documents present in docs.
func (h *hits) restrict(docs *docSet) *hits {
	out := &hits{docs: docs, scores: make(map[docKey]float64, docs.Count())}
	docs.ForEach(func(k docKey) { out.scores[k] = h.scores[k] })
	return out
}

// intersectHits keeps documents matched by every set and sums their scores.
// scored selects which sets contribute to the score.
func intersectHits(sets []*hits, scored []bool) *hits {
	docs := sets[0].docs
	for _, h := range sets[1:] {
		docs = docs.Intersect(h.docs)
	}
	out := &hits{docs: docs, scores: make(map[docKey]float64, docs.Count())}
	docs.ForEach(func(k docKey) {
		var score float64
		for i, h := range sets {
			if scored[i] {
				score += h.scores[k]
			}
		}
		out.scores[k] = score
	})
	return out
}

// unionHits merges sets. combine folds the scores of a document matched by
// more than one set.
func unionHits(snapshot *index.IndexSnapshot, sets []*hits, combine func(a, b float64) float64) *hits {
	docSets := make([]*docSet, len(sets))
	for i, h := range sets {
		docSets[i] = h.docs
	}
	out := &hits{docs: unionAll(snapshot, docSets), scores: make(map[docKey]float64)}
	for _, h := range sets {
		for k, score := range h.scores {
			if prev, ok := out.scores[k]; ok {
				out.scores[k] = combine(prev, score)
				continue
			}
			out.scores[k] = score
		}
	}
	return out
}

func sum(a, b float64) float64 { return a + b }

func maxScore(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
