package index

import (
	"github.com/RoaringBitmap/roaring"

	"harshagw/recsearch/internal/analysis"
	"harshagw/recsearch/internal/segment"
)

// SegmentSnapshot pairs a segment with its deletions at snapshot time.
type SegmentSnapshot struct {
	seg     *segment.Segment
	deleted *roaring.Bitmap
}

func (s *SegmentSnapshot) Segment() *segment.Segment { return s.seg }

// Deleted is never nil.
func (s *SegmentSnapshot) Deleted() *roaring.Bitmap { return s.deleted }

func (s *SegmentSnapshot) ID() string { return s.seg.ID() }

// Search returns the live postings of term in field.
func (s *SegmentSnapshot) Search(term, field string) ([]segment.Posting, error) {
	return s.seg.Search(term, field, s.deleted)
}

// LiveDocs counts the documents not deleted.
func (s *SegmentSnapshot) LiveDocs() uint64 {
	return s.seg.NumDocs() - s.deleted.GetCardinality()
}

// IndexSnapshot is a point-in-time view used by one search. The zero value
// is an empty index.
type IndexSnapshot struct {
	segments    []*SegmentSnapshot
	builder     *segment.Builder
	epoch       uint64
	analyzer    analysis.Analyzer
	scoringMode ScoringMode
}

func (s *IndexSnapshot) Segments() []*SegmentSnapshot { return s.segments }

// Builder returns the in-memory documents, or nil.
func (s *IndexSnapshot) Builder() *segment.Builder { return s.builder }

func (s *IndexSnapshot) Analyzer() analysis.Analyzer {
	if s.analyzer == nil {
		return analysis.NewSimple()
	}
	return s.analyzer
}

func (s *IndexSnapshot) ScoringMode() ScoringMode { return s.scoringMode }

// Epoch is the commit the snapshot was taken at.
func (s *IndexSnapshot) Epoch() uint64 { return s.epoch }

// TotalDocs counts live documents.
func (s *IndexSnapshot) TotalDocs() uint64 {
	var total uint64
	for _, ss := range s.segments {
		total += ss.LiveDocs()
	}
	if s.builder != nil {
		total += s.builder.NumDocs()
	}
	return total
}

// AvgFieldLength weights each segment's average by its live documents.
func (s *IndexSnapshot) AvgFieldLength(field string) float64 {
	var tokens float64
	var docs uint64

	add := func(avg float64, n uint64) {
		if avg > 0 && n > 0 {
			tokens += avg * float64(n)
			docs += n
		}
	}
	for _, ss := range s.segments {
		add(ss.seg.AvgFieldLength(field), ss.LiveDocs())
	}
	if s.builder != nil {
		add(s.builder.AvgFieldLength(field), s.builder.NumDocs())
	}

	if docs == 0 {
		return 0
	}
	return tokens / float64(docs)
}
