// Package index is one local, segment-based index: an in-memory builder
// in front of immutable segment files, with the list of live segments and
// their deletions kept in a metadata store.
package index

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring"

	"harshagw/recsearch/internal/analysis"
	"harshagw/recsearch/internal/logging"
	"harshagw/recsearch/internal/segment"
	"harshagw/recsearch/internal/store"
)

// ErrClosed is returned by every operation on a closed index.
var ErrClosed = errors.New("index is closed")

type ScoringMode int

const (
	ScoringTFIDF ScoringMode = iota
	ScoringBM25
)

func (m ScoringMode) String() string {
	if m == ScoringBM25 {
		return "bm25"
	}
	return "tfidf"
}

func parseScoringMode(s string) (ScoringMode, error) {
	switch s {
	case "bm25":
		return ScoringBM25, nil
	case "tfidf":
		return ScoringTFIDF, nil
	}
	return 0, fmt.Errorf("unknown scoring mode %q", s)
}

type Index struct {
	mu sync.RWMutex

	dir      string
	meta     *store.Metadata
	segments []*segment.Segment
	builder  *segment.Builder
	epoch    uint64

	// Deletions of documents in persisted segments, stored on the next
	// commit.
	pending map[string]*roaring.Bitmap

	analyzer       analysis.Analyzer
	flushThreshold int
	scoringMode    ScoringMode
	logger         *slog.Logger

	closed bool
}

type Config struct {
	Dir            string
	FlushThreshold int
	Analyzer       analysis.Analyzer
	// ScoringMode applies to new indexes only. An existing index keeps the
	// mode it was created with.
	ScoringMode ScoringMode
	Logger      *slog.Logger
}

func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		FlushThreshold: 1000,
		Analyzer:       analysis.NewSimple(),
		ScoringMode:    ScoringBM25,
	}
}

// New opens the index in config.Dir, creating it if needed.
func New(config Config) (*Index, error) {
	if config.FlushThreshold <= 0 {
		config.FlushThreshold = 1000
	}
	if config.Analyzer == nil {
		config.Analyzer = analysis.NewSimple()
	}
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	meta, err := store.Open(config.Dir)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		dir:            config.Dir,
		meta:           meta,
		pending:        make(map[string]*roaring.Bitmap),
		analyzer:       config.Analyzer,
		flushThreshold: config.FlushThreshold,
		scoringMode:    config.ScoringMode,
		logger:         logging.Default(config.Logger),
	}
	idx.builder = segment.NewBuilder(idx.analyzer)

	if err := idx.load(); err != nil {
		idx.closeSegments()
		meta.Close()
		return nil, err
	}
	return idx, nil
}

// load restores the settings, epoch and segments of an existing index, or
// records the settings of a new one.
func (idx *Index) load() error {
	settings, ok, err := idx.meta.Settings()
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	if !ok {
		return idx.meta.Update(func(tx *store.Tx) error {
			return tx.PutSettings(store.Settings{Scoring: idx.scoringMode.String(), Created: time.Now().UTC()})
		})
	}
	if idx.scoringMode, err = parseScoringMode(settings.Scoring); err != nil {
		return err
	}

	if idx.epoch, err = idx.meta.Epoch(); err != nil {
		return err
	}
	ids, err := idx.meta.Segments()
	if err != nil {
		return err
	}
	for _, id := range ids {
		seg, err := segment.Open(idx.segmentPath(id), id)
		if err != nil {
			return err
		}
		idx.segments = append(idx.segments, seg)
	}
	idx.logger.Debug("index loaded", "segments", len(ids), "epoch", idx.epoch, "scoring", idx.scoringMode)
	return nil
}

func (idx *Index) segmentPath(id string) string {
	return filepath.Join(idx.dir, id+".seg")
}

// Index stores doc under docID, replacing any earlier version. The builder
// is flushed once it holds FlushThreshold live documents.
func (idx *Index) Index(docID, docType string, doc map[string]any) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return ErrClosed
	}

	idx.remove(docID)
	idx.builder.Add(docID, docType, doc)

	if idx.builder.NumDocs() >= uint64(idx.flushThreshold) {
		return idx.flush()
	}
	return nil
}

// Delete removes docID. Deleting an unknown ID is not an error.
func (idx *Index) Delete(docID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return ErrClosed
	}
	idx.remove(docID)
	return nil
}

func (idx *Index) remove(docID string) {
	idx.builder.Delete(docID)
	for _, seg := range idx.segments {
		docNum, ok := seg.DocNum(docID)
		if !ok {
			continue
		}
		bm := idx.pending[seg.ID()]
		if bm == nil {
			bm = roaring.New()
			idx.pending[seg.ID()] = bm
		}
		bm.Add(uint32(docNum))
	}
}
