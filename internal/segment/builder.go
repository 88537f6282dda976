package segment

import (
	"sort"

	"github.com/RoaringBitmap/roaring"

	"harshagw/recsearch/internal/analysis"
)

// Reserved field names. Every text leaf of a record is indexed twice: analysed
// under its dotted path and verbatim under path+RawSuffix. AllField collects
// the analysed text of every leaf.
const (
	IDField   = "_id"
	TypeField = "_type"
	AllField  = "_all"
	RawSuffix = ".raw"
)

// positionGap keeps phrases from matching across two values of one field.
const positionGap = 100

// Builder accumulates documents before flushing to an immutable segment.
type Builder struct {
	Fields       map[string]map[string][]Posting // field -> term -> postings
	FieldLengths map[string][]uint64             // field -> docNum -> token count
	Docs         []map[string]any                // stored documents
	DocIDs       []string                        // external IDs by docNum
	DocTypes     []string                        // document types by docNum
	Deleted      *roaring.Bitmap                 // deleted docNums
	numDocs      uint64
	analyzer     analysis.Analyzer
}

// NewBuilder creates a new segment builder.
func NewBuilder(analyzer analysis.Analyzer) *Builder {
	return &Builder{
		Fields:       make(map[string]map[string][]Posting),
		FieldLengths: make(map[string][]uint64),
		Docs:         make([]map[string]any, 0),
		DocIDs:       make([]string, 0),
		DocTypes:     make([]string, 0),
		Deleted:      roaring.New(),
		analyzer:     analyzer,
	}
}

// Add adds a document of the given type and returns its docNum.
func (b *Builder) Add(externalID, docType string, doc map[string]any) uint64 {
	docNum := b.numDocs
	b.numDocs++

	b.Docs = append(b.Docs, doc)
	b.DocIDs = append(b.DocIDs, externalID)
	b.DocTypes = append(b.DocTypes, docType)

	b.addTerms(IDField, docNum, []analysis.TokenPosition{{Token: externalID}}, false)
	if docType != "" {
		b.addTerms(TypeField, docNum, []analysis.TokenPosition{{Token: docType}}, false)
	}

	leaves := analysis.Flatten(doc)
	paths := make([]string, 0, len(leaves))
	for path := range leaves {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var all []analysis.TokenPosition
	var allPos uint64
	for _, path := range paths {
		var analysed, raw []analysis.TokenPosition
		var pos uint64
		for _, text := range leaves[path] {
			tps := b.analyzer.Analyze(text)
			for _, tp := range tps {
				analysed = append(analysed, analysis.TokenPosition{Token: tp.Token, Position: pos + tp.Position})
				all = append(all, analysis.TokenPosition{Token: tp.Token, Position: allPos + tp.Position})
			}
			n := uint64(len(tps))
			pos += n + positionGap
			allPos += n + positionGap
			raw = append(raw, analysis.Keyword{}.Analyze(text)...)
		}
		b.addTerms(path, docNum, analysed, true)
		b.addTerms(path+RawSuffix, docNum, raw, false)
	}
	b.addTerms(AllField, docNum, all, true)

	return docNum
}

func (b *Builder) addTerms(field string, docNum uint64, tokens []analysis.TokenPosition, counted bool) {
	if len(tokens) == 0 {
		return
	}
	if b.Fields[field] == nil {
		b.Fields[field] = make(map[string][]Posting)
	}

	if counted {
		lengths := b.FieldLengths[field]
		for len(lengths) <= int(docNum) {
			lengths = append(lengths, 0)
		}
		lengths[docNum] = uint64(len(tokens))
		b.FieldLengths[field] = lengths
	}

	termPositions := make(map[string][]uint64)
	for _, tp := range tokens {
		termPositions[tp.Token] = append(termPositions[tp.Token], tp.Position)
	}
	for term, positions := range termPositions {
		if field == IDField {
			// The newest document with an ID owns it.
			b.Fields[field][term] = nil
		}
		b.Fields[field][term] = append(b.Fields[field][term], Posting{
			DocNum:    docNum,
			Frequency: uint64(len(positions)),
			Positions: positions,
		})
	}
}

// Delete marks every live document with the ID as deleted. Returns true if
// any was found.
func (b *Builder) Delete(externalID string) bool {
	found := false
	for i, id := range b.DocIDs {
		if id == externalID && !b.Deleted.Contains(uint32(i)) {
			b.Deleted.Add(uint32(i))
			found = true
		}
	}
	return found
}

// IsDeleted checks if a docNum is deleted.
func (b *Builder) IsDeleted(docNum uint64) bool {
	return b.Deleted.Contains(uint32(docNum))
}

// NumDocs returns the number of non-deleted documents in the builder.
func (b *Builder) NumDocs() uint64 {
	return b.numDocs - b.Deleted.GetCardinality()
}

// TotalDocs returns the total number of documents (including deleted) for persistence.
func (b *Builder) TotalDocs() uint64 {
	return b.numDocs
}

// FieldLength returns the length of a field in a document.
func (b *Builder) FieldLength(field string, docNum uint64) uint64 {
	if lengths, ok := b.FieldLengths[field]; ok && docNum < uint64(len(lengths)) {
		return lengths[docNum]
	}
	return 0
}

// AvgFieldLength returns the average length of a field over live documents.
func (b *Builder) AvgFieldLength(field string) float64 {
	total, docs := b.liveLengths(field)
	if docs == 0 {
		return 0
	}
	return float64(total) / float64(docs)
}

// LoadDoc returns a stored document by docNum.
func (b *Builder) LoadDoc(docNum uint64) (map[string]any, bool) {
	if docNum >= uint64(len(b.Docs)) || b.IsDeleted(docNum) {
		return nil, false
	}
	return b.Docs[docNum], true
}
