package segment

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/couchbase/vellum"
	"github.com/edsrzf/mmap-go"
	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrCorrupt is wrapped by every error caused by an unreadable segment file.
var ErrCorrupt = errors.New("corrupt segment")

// Segment is an immutable, memory-mapped segment file. It is safe for
// concurrent use.
type Segment struct {
	id     string
	path   string
	file   *os.File
	data   mmap.MMap
	footer Footer
	fields map[string]*FieldMeta

	fstsMu sync.RWMutex
	fsts   map[string]*vellum.FST

	// Result pages usually read neighbouring records, so the last
	// decompressed chunk is kept.
	chunkMu  sync.Mutex
	chunkIdx int
	chunk    []byte
}

// Open maps the segment file at path.
func Open(path, segmentID string) (*Segment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("segment %s: mmap: %w", segmentID, err)
	}

	footer, err := readFooter(data)
	if err != nil {
		data.Unmap()
		file.Close()
		return nil, fmt.Errorf("segment %s: %w", segmentID, err)
	}

	fields := make(map[string]*FieldMeta, len(footer.FieldsMeta))
	for i := range footer.FieldsMeta {
		fields[footer.FieldsMeta[i].Name] = &footer.FieldsMeta[i]
	}

	return &Segment{
		id:       segmentID,
		path:     path,
		file:     file,
		data:     data,
		footer:   footer,
		fields:   fields,
		fsts:     make(map[string]*vellum.FST),
		chunkIdx: -1,
	}, nil
}

func readFooter(data []byte) (Footer, error) {
	var footer Footer
	if len(data) < headerSize+trailerSize {
		return footer, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}
	if string(data[:len(Magic)]) != Magic {
		return footer, fmt.Errorf("%w: bad magic %q", ErrCorrupt, data[:len(Magic)])
	}
	if v := binary.BigEndian.Uint32(data[len(Magic):]); v != Version {
		return footer, fmt.Errorf("%w: version %d, want %d", ErrCorrupt, v, Version)
	}

	trailer := data[len(data)-trailerSize:]
	offset := binary.BigEndian.Uint64(trailer)
	size := binary.BigEndian.Uint64(trailer[8:])
	if offset < uint64(headerSize) || offset+size > uint64(len(data)-trailerSize) {
		return footer, fmt.Errorf("%w: footer out of range", ErrCorrupt)
	}
	if err := msgpack.Unmarshal(data[offset:offset+size], &footer); err != nil {
		return footer, fmt.Errorf("%w: footer: %v", ErrCorrupt, err)
	}
	if uint64(len(footer.DocIDs)) != footer.NumDocs {
		return footer, fmt.Errorf("%w: %d ids for %d documents", ErrCorrupt, len(footer.DocIDs), footer.NumDocs)
	}
	return footer, nil
}

func (s *Segment) ID() string { return s.id }

func (s *Segment) Path() string { return s.path }

// Size is the file size in bytes.
func (s *Segment) Size() int64 { return int64(len(s.data)) }

// NumDocs counts deleted documents too; deletions live outside the file.
func (s *Segment) NumDocs() uint64 { return s.footer.NumDocs }

func (s *Segment) ExternalID(docNum uint64) (string, bool) {
	if docNum >= s.footer.NumDocs {
		return "", false
	}
	return s.footer.DocIDs[docNum], true
}

// DocType returns the type a document was indexed with.
func (s *Segment) DocType(docNum uint64) string {
	if docNum >= uint64(len(s.footer.DocTypes)) {
		return ""
	}
	return s.footer.DocTypes[docNum]
}

// DocNumbers returns the docNums holding any of the external IDs.
func (s *Segment) DocNumbers(externalIDs []string) *roaring.Bitmap {
	bm := roaring.New()
	fst, err := s.getFST(IDField)
	if err != nil {
		return bm
	}
	for _, id := range externalIDs {
		val, ok, err := fst.Get([]byte(id))
		if err != nil || !ok || !isInline(val) {
			continue
		}
		bm.Add(uint32(inlineDocNum(val)))
	}
	return bm
}

// DocNum returns the docNum holding an external ID.
func (s *Segment) DocNum(externalID string) (uint64, bool) {
	bm := s.DocNumbers([]string{externalID})
	if bm.IsEmpty() {
		return 0, false
	}
	return uint64(bm.Minimum()), true
}

// Fields lists the indexed field names in lexical order.
func (s *Segment) Fields() []string {
	names := make([]string, len(s.footer.FieldsMeta))
	for i, fm := range s.footer.FieldsMeta {
		names[i] = fm.Name
	}
	return names
}

func (s *Segment) FieldLength(field string, docNum uint64) uint64 {
	lengths := s.footer.FieldLengths[field]
	if docNum >= uint64(len(lengths)) {
		return 0
	}
	return lengths[docNum]
}

// AvgFieldLength is the mean token count of a field over the documents that
// were live when the segment was written.
func (s *Segment) AvgFieldLength(field string) float64 {
	meta, ok := s.fields[field]
	if !ok || meta.DocCount == 0 {
		return 0
	}
	return float64(meta.TotalTokens) / float64(meta.DocCount)
}

// LoadDoc decodes the stored record for docNum. Every call returns a fresh
// map.
func (s *Segment) LoadDoc(docNum uint64) (map[string]any, error) {
	if docNum >= s.footer.NumDocs {
		return nil, fmt.Errorf("segment %s: docNum %d out of range", s.id, docNum)
	}
	raw, err := s.loadChunk(int(docNum / ChunkSize))
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", s.id, err)
	}

	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w: %v", s.id, ErrCorrupt, err)
	}
	i := int(docNum % ChunkSize)
	if i >= n {
		return nil, fmt.Errorf("segment %s: %w: chunk too short for docNum %d", s.id, ErrCorrupt, docNum)
	}
	for range i {
		if err := dec.Skip(); err != nil {
			return nil, fmt.Errorf("segment %s: %w: %v", s.id, ErrCorrupt, err)
		}
	}
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("segment %s: %w: %v", s.id, ErrCorrupt, err)
	}
	return doc, nil
}

// loadChunk returns the decompressed msgpack array of one chunk.
func (s *Segment) loadChunk(idx int) ([]byte, error) {
	s.chunkMu.Lock()
	defer s.chunkMu.Unlock()

	if idx == s.chunkIdx {
		return s.chunk, nil
	}
	if idx >= len(s.footer.ChunkOffsets) {
		return nil, fmt.Errorf("%w: no chunk %d", ErrCorrupt, idx)
	}

	offset := s.footer.ChunkOffsets[idx]
	if offset+4 > uint64(len(s.data)) {
		return nil, fmt.Errorf("%w: chunk %d out of range", ErrCorrupt, idx)
	}
	end := offset + 4 + uint64(binary.BigEndian.Uint32(s.data[offset:]))
	if end > uint64(len(s.data)) {
		return nil, fmt.Errorf("%w: chunk %d out of range", ErrCorrupt, idx)
	}

	raw, err := snappy.Decode(nil, s.data[offset+4:end])
	if err != nil {
		return nil, fmt.Errorf("%w: chunk %d: %v", ErrCorrupt, idx, err)
	}
	s.chunkIdx, s.chunk = idx, raw
	return raw, nil
}

// Close unmaps the file. The segment must not be used afterwards.
func (s *Segment) Close() error {
	s.fstsMu.Lock()
	for _, fst := range s.fsts {
		fst.Close()
	}
	s.fsts = nil
	s.fstsMu.Unlock()

	s.chunkMu.Lock()
	s.chunk, s.chunkIdx = nil, -1
	s.chunkMu.Unlock()

	var errs []error
	if s.data != nil {
		errs = append(errs, s.data.Unmap())
	}
	if s.file != nil {
		errs = append(errs, s.file.Close())
	}
	return errors.Join(errs...)
}
