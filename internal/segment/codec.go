package segment

import (
	"encoding/binary"
	"errors"

	"github.com/RoaringBitmap/roaring"
)

// On-disk layout:
//
//	header   magic | version u32 | numDocs u64
//	stored   chunks of ChunkSize records: len u32 | snappy(msgpack([]record))
//	fields   per field: postings lists, then len u64 | FST(term -> offset)
//	footer   msgpack(Footer)
//	trailer  footerOffset u64 | footerSize u64
const (
	Magic     = "RSEG"
	Version   = uint32(2)
	ChunkSize = 1024

	headerSize  = len(Magic) + 4 + 8
	trailerSize = 16
)

// A dictionary value with inlineFlag set is the docNum of the only posting,
// with frequency 1 and no stored positions. _id terms always use it.
const inlineFlag = uint64(1 << 63)

func inlineDoc(docNum uint64) uint64 { return inlineFlag | docNum }

func isInline(val uint64) bool { return val&inlineFlag != 0 }

func inlineDocNum(val uint64) uint64 { return val &^ inlineFlag }

var errTruncated = errors.New("truncated postings list")

type Posting struct {
	DocNum    uint64
	Frequency uint64
	Positions []uint64
}

type Footer struct {
	ChunkOffsets []uint64            `msgpack:"chunks"`
	FieldsMeta   []FieldMeta         `msgpack:"fields"`
	DocIDs       []string            `msgpack:"doc_ids"`
	DocTypes     []string            `msgpack:"doc_types"`
	NumDocs      uint64              `msgpack:"num_docs"`
	FieldLengths map[string][]uint64 `msgpack:"field_lengths,omitempty"`
}

type FieldMeta struct {
	Name           string `msgpack:"name"`
	DictOffset     uint64 `msgpack:"dict_offset"`
	PostingsOffset uint64 `msgpack:"postings_offset"`
	// TotalTokens and DocCount cover live documents only.
	TotalTokens uint64 `msgpack:"total_tokens,omitempty"`
	DocCount    uint64 `msgpack:"doc_count,omitempty"`
}

// EncodePostings writes a list sorted by DocNum as three uvarint blocks:
// count and docNum deltas, frequencies, then per posting the position count
// and position deltas. Searches that only need documents stop after the
// first block.
func EncodePostings(postings []Posting) []byte {
	buf := make([]byte, 0, len(postings)*8)
	buf = binary.AppendUvarint(buf, uint64(len(postings)))

	var prev uint64
	for _, p := range postings {
		buf = binary.AppendUvarint(buf, p.DocNum-prev)
		prev = p.DocNum
	}
	for _, p := range postings {
		buf = binary.AppendUvarint(buf, p.Frequency)
	}
	for _, p := range postings {
		buf = binary.AppendUvarint(buf, uint64(len(p.Positions)))
		var last uint64
		for _, pos := range p.Positions {
			buf = binary.AppendUvarint(buf, pos-last)
			last = pos
		}
	}
	return buf
}

// postingsReader decodes uvarints from a mapped slice without copying.
type postingsReader struct {
	data []byte
	pos  int
}

func (r *postingsReader) next() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		return 0, errTruncated
	}
	r.pos += n
	return v, nil
}

// docNums reads the count and the docNum block, calling fn in order.
func (r *postingsReader) docNums(fn func(docNum uint64)) error {
	count, err := r.next()
	if err != nil {
		return err
	}
	// Every docNum takes at least one byte.
	if count > uint64(len(r.data)-r.pos) {
		return errTruncated
	}
	var docNum uint64
	for range count {
		delta, err := r.next()
		if err != nil {
			return err
		}
		docNum += delta
		fn(docNum)
	}
	return nil
}

func DecodePostings(data []byte) ([]Posting, error) {
	r := &postingsReader{data: data}

	var postings []Posting
	err := r.docNums(func(docNum uint64) {
		postings = append(postings, Posting{DocNum: docNum})
	})
	if err != nil {
		return nil, err
	}

	for i := range postings {
		if postings[i].Frequency, err = r.next(); err != nil {
			return nil, err
		}
	}
	for i := range postings {
		n, err := r.next()
		if err != nil {
			return nil, err
		}
		if n > uint64(len(r.data)-r.pos) {
			return nil, errTruncated
		}
		positions := make([]uint64, n)
		var pos uint64
		for j := range positions {
			delta, err := r.next()
			if err != nil {
				return nil, err
			}
			pos += delta
			positions[j] = pos
		}
		postings[i].Positions = positions
	}
	return postings, nil
}

// DecodePostingsBitmap reads only the documents of a list, leaving out the
// deleted ones.
func DecodePostingsBitmap(data []byte, deleted *roaring.Bitmap) (*roaring.Bitmap, error) {
	r := &postingsReader{data: data}
	bm := roaring.New()
	err := r.docNums(func(docNum uint64) {
		if deleted == nil || !deleted.Contains(uint32(docNum)) {
			bm.Add(uint32(docNum))
		}
	})
	if err != nil {
		return nil, err
	}
	return bm, nil
}
