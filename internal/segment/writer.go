package segment

import (
	"bufio"
	"bytes"
	"cmp"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/couchbase/vellum"
	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack/v5"
)

// writer tracks the file offset so the layout can be written in one
// sequential pass.
type writer struct {
	w   *bufio.Writer
	off uint64
	err error
}

func (w *writer) write(p []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(p)
	w.off += uint64(n)
	w.err = err
}

func (w *writer) putUint32(v uint32) { w.write(binary.BigEndian.AppendUint32(nil, v)) }
func (w *writer) putUint64(v uint64) { w.write(binary.BigEndian.AppendUint64(nil, v)) }

// Build writes the builder's documents to dir/<segmentID>.seg and returns the
// path. The file is written under a temporary name and renamed when
// complete, so a crash never leaves a partial segment behind.
func (b *Builder) Build(dir, segmentID string) (string, error) {
	segPath := filepath.Join(dir, segmentID+".seg")
	tmpPath := segPath + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return "", err
	}
	if err := b.writeTo(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("segment %s: %w", segmentID, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, segPath); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return segPath, nil
}

func (b *Builder) writeTo(file *os.File) error {
	w := &writer{w: bufio.NewWriter(file)}

	w.write([]byte(Magic))
	w.putUint32(Version)
	w.putUint64(b.TotalDocs())

	footer := Footer{
		DocIDs:       b.DocIDs,
		DocTypes:     b.DocTypes,
		NumDocs:      b.TotalDocs(),
		FieldLengths: b.FieldLengths,
	}

	var err error
	if footer.ChunkOffsets, err = b.writeStored(w); err != nil {
		return err
	}
	if footer.FieldsMeta, err = b.writeFields(w); err != nil {
		return err
	}

	footerData, err := msgpack.Marshal(&footer)
	if err != nil {
		return err
	}
	footerOffset := w.off
	w.write(footerData)
	w.putUint64(footerOffset)
	w.putUint64(uint64(len(footerData)))

	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

// writeStored writes the records in chunks of ChunkSize.
func (b *Builder) writeStored(w *writer) ([]uint64, error) {
	var offsets []uint64
	for chunk := range slices.Chunk(b.Docs, ChunkSize) {
		data, err := msgpack.Marshal(chunk)
		if err != nil {
			return nil, err
		}
		compressed := snappy.Encode(nil, data)

		offsets = append(offsets, w.off)
		w.putUint32(uint32(len(compressed)))
		w.write(compressed)
	}
	return offsets, w.err
}

func (b *Builder) writeFields(w *writer) ([]FieldMeta, error) {
	names := make([]string, 0, len(b.Fields))
	for name := range b.Fields {
		names = append(names, name)
	}
	slices.Sort(names)

	metas := make([]FieldMeta, 0, len(names))
	for _, name := range names {
		meta, err := b.writeField(w, name)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// writeField writes the postings lists of one field followed by its term
// dictionary. Dictionary values are offsets relative to PostingsOffset, or
// inline docNums.
func (b *Builder) writeField(w *writer, name string) (FieldMeta, error) {
	terms := b.Fields[name]
	meta := FieldMeta{Name: name, PostingsOffset: w.off}
	meta.TotalTokens, meta.DocCount = b.liveLengths(name)

	sorted := make([]string, 0, len(terms))
	for term := range terms {
		sorted = append(sorted, term)
	}
	slices.Sort(sorted)

	values := make([]uint64, len(sorted))
	for i, term := range sorted {
		postings := terms[term]
		if name == IDField && len(postings) == 1 {
			values[i] = inlineDoc(postings[0].DocNum)
			continue
		}
		slices.SortFunc(postings, func(p, q Posting) int {
			return cmp.Compare(p.DocNum, q.DocNum)
		})
		values[i] = w.off - meta.PostingsOffset
		w.write(EncodePostings(postings))
	}

	var dict bytes.Buffer
	fst, err := vellum.New(&dict, nil)
	if err != nil {
		return meta, err
	}
	for i, term := range sorted {
		if err := fst.Insert([]byte(term), values[i]); err != nil {
			return meta, err
		}
	}
	if err := fst.Close(); err != nil {
		return meta, err
	}

	meta.DictOffset = w.off
	w.putUint64(uint64(dict.Len()))
	w.write(dict.Bytes())
	return meta, w.err
}

// liveLengths sums the token counts of a field over live documents.
func (b *Builder) liveLengths(field string) (total, docs uint64) {
	for docNum, l := range b.FieldLengths[field] {
		if l > 0 && !b.IsDeleted(uint64(docNum)) {
			total += l
			docs++
		}
	}
	return total, docs
}
