package index

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"harshagw/recsearch/internal/segment"
	"harshagw/recsearch/internal/store"
)

var errMergeTooFew = errors.New("merge needs at least two segments")

// Merge rewrites the live documents of the given segments into one new
// segment placed after the remaining ones, and removes the old files.
func (idx *Index) Merge(segmentIDs []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return ErrClosed
	}
	return idx.merge(segmentIDs)
}

func (idx *Index) merge(ids []string) error {
	if len(ids) < 2 {
		return errMergeTooFew
	}

	var merged, kept []*segment.Segment
	for _, seg := range idx.segments {
		if slices.Contains(ids, seg.ID()) {
			merged = append(merged, seg)
		} else {
			kept = append(kept, seg)
		}
	}
	if len(merged) != len(ids) {
		return fmt.Errorf("merge: %d of %d segments not found", len(ids)-len(merged), len(ids))
	}

	builder := segment.NewBuilder(idx.analyzer)
	for _, seg := range merged {
		deleted, err := idx.deletions(seg.ID())
		if err != nil {
			return err
		}
		for docNum := range seg.NumDocs() {
			if deleted.Contains(uint32(docNum)) {
				continue
			}
			doc, err := seg.LoadDoc(docNum)
			if err != nil {
				return fmt.Errorf("merge: %w", err)
			}
			id, _ := seg.ExternalID(docNum)
			builder.Add(id, seg.DocType(docNum), doc)
		}
	}

	newID := idx.nextSegmentID()
	path, err := builder.Build(idx.dir, newID)
	if err != nil {
		return err
	}
	newSeg, err := segment.Open(path, newID)
	if err != nil {
		os.Remove(path)
		return err
	}

	err = idx.commit(func(tx *store.Tx, current []string) ([]string, error) {
		for _, id := range ids {
			if err := tx.DropDeletions(id); err != nil {
				return nil, err
			}
		}
		current = slices.DeleteFunc(current, func(id string) bool { return slices.Contains(ids, id) })
		return append(current, newID), nil
	})
	if err != nil {
		newSeg.Close()
		os.Remove(path)
		return err
	}

	for _, seg := range merged {
		seg.Close()
		if err := os.Remove(seg.Path()); err != nil {
			idx.logger.Warn("remove merged segment", "segment", seg.ID(), "error", err)
		}
	}
	idx.segments = append(kept, newSeg)
	idx.logger.Debug("segments merged", "from", ids, "into", newID, "docs", newSeg.NumDocs())
	return nil
}
