package search

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"harshagw/recsearch/internal/backend"
	"harshagw/recsearch/internal/dsl"
)

// MaxResultWindow is the page size used to fetch every recid at once.
const MaxResultWindow = 9999999

// RecidField is the stored field holding a record's numeric id.
const RecidField = "control_number"

// Strategy names the translation chosen for a query.
type Strategy int

const (
	StrategyFullText Strategy = iota
	StrategyStructured
)

func (s Strategy) String() string {
	switch s {
	case StrategyFullText:
		return "fulltext"
	case StrategyStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// Results is a compiled query bound to an index. The search itself runs on
// the first call to Records or Len and its response is kept; a failed call
// is retried next time. Recids always runs its own request.
type Results struct {
	client     backend.Client
	index      string
	docType    string
	body       dsl.Body
	strategy   Strategy
	recordFunc RecordFunc

	mu   sync.Mutex
	resp *backend.Response
}

// Body returns a copy of the compiled search body.
func (r *Results) Body() dsl.Body { return dsl.Merge(r.body, nil) }

func (r *Results) Index() string      { return r.index }
func (r *Results) DocType() string    { return r.docType }
func (r *Results) Strategy() Strategy { return r.strategy }

func (r *Results) response(ctx context.Context) (*backend.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resp != nil {
		return r.resp, nil
	}
	resp, err := r.client.Search(ctx, r.index, r.docType, r.body)
	if err != nil {
		return nil, err
	}
	r.resp = resp
	return resp, nil
}

// Records returns the page of matching records.
func (r *Results) Records(ctx context.Context) ([]Record, error) {
	resp, err := r.response(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		rec, err := r.recordFunc(hit)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", hit.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Len returns the total number of matches, not the page size.
func (r *Results) Len(ctx context.Context) (int, error) {
	resp, err := r.response(ctx)
	if err != nil {
		return 0, err
	}
	return resp.Total, nil
}

// Recids fetches the ids of every match in one request.
func (r *Results) Recids(ctx context.Context) (*roaring.Bitmap, error) {
	body := dsl.Body{
		"size":   MaxResultWindow,
		"fields": []any{RecidField},
		"query":  r.body["query"],
	}
	resp, err := r.client.Search(ctx, r.index, r.docType, body)
	if err != nil {
		return nil, err
	}

	recids := roaring.New()
	for _, hit := range resp.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("recid %q: %w", hit.ID, err)
		}
		recids.Add(uint32(id))
	}
	return recids, nil
}
