package index

import (
	"errors"
	"fmt"
	"os"

	"github.com/RoaringBitmap/roaring"

	"harshagw/recsearch/internal/segment"
	"harshagw/recsearch/internal/store"
)

// deletions merges the stored and pending deletions of a segment.
func (idx *Index) deletions(segID string) (*roaring.Bitmap, error) {
	bm, err := idx.meta.Deletions(segID)
	if err != nil {
		return nil, err
	}
	if pending := idx.pending[segID]; pending != nil {
		bm.Or(pending)
	}
	return bm, nil
}

// nextSegmentID names the segment written by the next commit.
func (idx *Index) nextSegmentID() string {
	return fmt.Sprintf("%012d", idx.epoch+1)
}

// commit stores the pending deletions together with a new segment list in
// one transaction, then advances the in-memory epoch.
func (idx *Index) commit(update func(tx *store.Tx, ids []string) ([]string, error)) error {
	var epoch uint64
	err := idx.meta.Update(func(tx *store.Tx) error {
		var err error
		if epoch, err = tx.NextEpoch(); err != nil {
			return err
		}
		for segID, bm := range idx.pending {
			if err := tx.AddDeletions(segID, bm); err != nil {
				return err
			}
		}
		ids, err := tx.Segments()
		if err != nil {
			return err
		}
		if ids, err = update(tx, ids); err != nil {
			return err
		}
		return tx.PutSegments(ids)
	})
	if err != nil {
		return err
	}
	idx.epoch = epoch
	idx.pending = make(map[string]*roaring.Bitmap)
	return nil
}

func (idx *Index) Flush() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return ErrClosed
	}
	return idx.flush()
}

// flush writes the builder to a new segment. Pending deletions are stored
// even when the builder holds no live documents.
func (idx *Index) flush() error {
	if idx.builder.NumDocs() == 0 {
		if len(idx.pending) == 0 {
			return nil
		}
		return idx.commit(func(_ *store.Tx, ids []string) ([]string, error) { return ids, nil })
	}

	id := idx.nextSegmentID()
	path, err := idx.builder.Build(idx.dir, id)
	if err != nil {
		return err
	}

	deleted := idx.builder.Deleted
	err = idx.commit(func(tx *store.Tx, ids []string) ([]string, error) {
		if err := tx.AddDeletions(id, deleted); err != nil {
			return nil, err
		}
		return append(ids, id), nil
	})
	if err != nil {
		os.Remove(path)
		return err
	}

	seg, err := segment.Open(path, id)
	if err != nil {
		return err
	}
	idx.logger.Debug("segment flushed", "segment", id, "docs", idx.builder.NumDocs(), "bytes", seg.Size())
	idx.segments = append(idx.segments, seg)
	idx.builder = segment.NewBuilder(idx.analyzer)
	return nil
}

// View runs fn over a snapshot while holding the read lock, so the
// in-memory builder cannot change underneath it.
func (idx *Index) View(fn func(*IndexSnapshot) error) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return ErrClosed
	}
	snap, err := idx.snapshot()
	if err != nil {
		return err
	}
	return fn(snap)
}

func (idx *Index) snapshot() (*IndexSnapshot, error) {
	segs := make([]*SegmentSnapshot, len(idx.segments))
	for i, seg := range idx.segments {
		deleted, err := idx.deletions(seg.ID())
		if err != nil {
			return nil, err
		}
		segs[i] = &SegmentSnapshot{seg: seg, deleted: deleted}
	}
	return &IndexSnapshot{
		segments:    segs,
		builder:     idx.builder,
		epoch:       idx.epoch,
		analyzer:    idx.analyzer,
		scoringMode: idx.scoringMode,
	}, nil
}

// Close releases the segments and the metadata store. Buffered documents
// that were never flushed are lost.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil
	}
	idx.closed = true
	idx.pending = nil
	idx.builder = nil

	err := idx.closeSegments()
	return errors.Join(err, idx.meta.Close())
}

func (idx *Index) closeSegments() error {
	var errs []error
	for _, seg := range idx.segments {
		errs = append(errs, seg.Close())
	}
	idx.segments = nil
	return errors.Join(errs...)
}

func (idx *Index) NumSegments() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.segments)
}

type SegmentInfo struct {
	ID      string
	Path    string
	NumDocs uint64
	Deleted uint64
	Size    int64
}

// Segments describes the persisted segments in commit order.
func (idx *Index) Segments() ([]SegmentInfo, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, ErrClosed
	}
	info := make([]SegmentInfo, len(idx.segments))
	for i, seg := range idx.segments {
		deleted, err := idx.deletions(seg.ID())
		if err != nil {
			return nil, err
		}
		info[i] = SegmentInfo{
			ID:      seg.ID(),
			Path:    seg.Path(),
			NumDocs: seg.NumDocs(),
			Deleted: deleted.GetCardinality(),
			Size:    seg.Size(),
		}
	}
	return info, nil
}

// NumDocs counts live documents, buffered ones included.
func (idx *Index) NumDocs() (uint64, error) {
	var n uint64
	err := idx.View(func(snap *IndexSnapshot) error {
		n = snap.TotalDocs()
		return nil
	})
	return n, err
}

// ForceMerge flushes the builder and merges every segment into one.
func (idx *Index) ForceMerge() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return ErrClosed
	}
	if err := idx.flush(); err != nil {
		return err
	}
	if len(idx.segments) < 2 {
		return nil
	}
	ids := make([]string, len(idx.segments))
	for i, seg := range idx.segments {
		ids[i] = seg.ID()
	}
	return idx.merge(ids)
}
