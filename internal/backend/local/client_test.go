package local

import (
	"context"
	"errors"
	"slices"
	"testing"

	"harshagw/recsearch/internal/backend"
	"harshagw/recsearch/internal/config"
	"harshagw/recsearch/internal/dsl"
)

var testDocs = []struct {
	id  string
	doc map[string]any
}{
	{"1", map[string]any{
		"control_number": "1",
		"title":          "Higgs boson discovery",
		"author":         []any{"Ellis, John", "Smith, Jane"},
		"citations":      float64(5),
		"collection":     "Published",
	}},
	{"2", map[string]any{
		"control_number": "2",
		"title":          "Dark matter review",
		"author":         []any{"Smith, Jane"},
		"citations":      float64(40),
		"collection":     "Preprint",
	}},
	{"3", map[string]any{
		"control_number": "3",
		"title":          "The Higgs mechanism and the boson mass",
		"author":         "Ellis, John",
		"citations":      float64(300),
		"collection":     "Published",
	}},
}

// newTestClient indexes testDocs. With flushed set every document ends up
// in its own segment, otherwise all of them stay in the builder.
func newTestClient(t *testing.T, flushed bool) *Client {
	t.Helper()
	threshold := 10000
	if flushed {
		threshold = 1
	}
	c, err := Open(config.Local{Dir: t.TempDir(), FlushThreshold: threshold}, nil)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	for _, d := range testDocs {
		if err := c.Index(ctx, "records", "record", d.id, d.doc); err != nil {
			t.Fatalf("Index error: %v", err)
		}
	}
	return c
}

// forEachLayout runs fn against an in-memory and a flushed index.
func forEachLayout(t *testing.T, fn func(t *testing.T, c *Client)) {
	t.Run("builder", func(t *testing.T) { fn(t, newTestClient(t, false)) })
	t.Run("segments", func(t *testing.T) { fn(t, newTestClient(t, true)) })
}

func searchIDs(t *testing.T, c *Client, q dsl.Query) []string {
	t.Helper()
	resp, err := c.Search(context.Background(), "records", "record", dsl.NewBody(q, 0, 10))
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	return hitIDs(resp)
}

func hitIDs(resp *backend.Response) []string {
	ids := make([]string, len(resp.Hits))
	for i, h := range resp.Hits {
		ids[i] = h.ID
	}
	return ids
}

func sorted(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}

func expectIDs(t *testing.T, got []string, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSearch_Clauses(t *testing.T) {
	forEachLayout(t, func(t *testing.T, c *Client) {
		tests := []struct {
			name   string
			query  dsl.Query
			want   []string
			sorted bool
		}{
			{"match_all", dsl.MatchAll(), []string{"1", "2", "3"}, true},
			{"match_none", dsl.MatchNone(), []string{}, false},
			{"match shorter field first", dsl.Match("title", "HIGGS"), []string{"1", "3"}, false},
			{"match more terms first", dsl.Match("title", "higgs mass"), []string{"3", "1"}, false},
			{"match nested value", dsl.Match("author", "jane"), []string{"1", "2"}, true},
			{"match on raw field", dsl.Match("author.raw", "Ellis, John"), []string{"1", "3"}, true},
			{"phrase", dsl.MatchPhrase("title", "higgs boson"), []string{"1"}, false},
			{"phrase across values", dsl.MatchPhrase("author", "john smith"), []string{}, false},
			{"term", dsl.Term("author", "Smith, Jane"), []string{"1", "2"}, true},
			{"term keeps case", dsl.Term("author", "smith, jane"), []string{}, false},
			{"term on every field", dsl.Term(dsl.AllField, "Published"), []string{"1", "3"}, true},
			{"prefix", dsl.Prefix("author", "Ell"), []string{"1", "3"}, true},
			{"regexp", dsl.Regexp("author", "S.*"), []string{"1", "2"}, true},
			{"regexp whole value", dsl.Regexp("author", "Smith"), []string{}, false},
			{"numeric range", dsl.Range("citations", map[string]string{"gte": "10"}), []string{"2", "3"}, true},
			{"open range", dsl.Range("citations", map[string]string{"gt": "40", "lte": "300"}), []string{"3"}, false},
			{"string range", dsl.Range("collection", map[string]string{"lt": "Q"}), []string{"1", "2", "3"}, true},
			{"multi_match", dsl.MultiMatch("smith", []string{"title^2", "author"}, ""), []string{"1", "2"}, true},
			{"multi_match catch-all", dsl.MultiMatch("dark", nil, ""), []string{"2"}, false},
			{"multi_match no terms", dsl.MultiMatch("...", []string{"title"}, dsl.ZeroTermsQuery), []string{"1", "2", "3"}, true},
			{"multi_match no terms none", dsl.MultiMatch("...", []string{"title"}, "none"), []string{}, false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := searchIDs(t, c, tt.query)
				if tt.sorted {
					got = sorted(got)
				}
				expectIDs(t, got, tt.want...)
			})
		}
	})
}

func TestSearch_Bool(t *testing.T) {
	forEachLayout(t, func(t *testing.T, c *Client) {
		tests := []struct {
			name  string
			query dsl.Query
			want  []string
		}{
			{
				name: "must and must_not",
				query: dsl.Bool{
					Must:    []dsl.Query{dsl.Match("title", "higgs")},
					MustNot: []dsl.Query{dsl.Term("author", "Smith, Jane")},
				}.Query(),
				want: []string{"3"},
			},
			{
				name: "should alone needs one match",
				query: dsl.Bool{
					Should: []dsl.Query{dsl.Match("title", "dark"), dsl.Match("title", "mass")},
				}.Query(),
				want: []string{"2", "3"},
			},
			{
				name: "should is optional next to must",
				query: dsl.Bool{
					Must:   []dsl.Query{dsl.Term("collection", "Published")},
					Should: []dsl.Query{dsl.Match("title", "dark")},
				}.Query(),
				want: []string{"1", "3"},
			},
			{
				name: "minimum_should_match",
				query: dsl.Bool{
					Should: []dsl.Query{
						dsl.Match("title", "higgs"),
						dsl.Match("title", "boson"),
						dsl.Match("title", "mass"),
					},
					MinimumShouldMatch: 3,
				}.Query(),
				want: []string{"3"},
			},
			{
				name: "filter",
				query: dsl.Bool{
					Filter: []dsl.Query{dsl.Range("citations", map[string]string{"lt": "100"})},
				}.Query(),
				want: []string{"1", "2"},
			},
			{
				name: "must_not alone",
				query: dsl.Bool{
					MustNot: []dsl.Query{dsl.Term("collection", "Published")},
				}.Query(),
				want: []string{"2"},
			},
			{
				name:  "empty",
				query: dsl.Bool{}.Query(),
				want:  []string{"1", "2", "3"},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				expectIDs(t, sorted(searchIDs(t, c, tt.query)), tt.want...)
			})
		}
	})
}

func TestSearch_ShouldAddsScore(t *testing.T) {
	c := newTestClient(t, false)
	q := dsl.Bool{
		Must:   []dsl.Query{dsl.Term("collection", "Published")},
		Should: []dsl.Query{dsl.Match("title", "mass")},
	}.Query()
	expectIDs(t, searchIDs(t, c, q), "3", "1")
}

func TestSearch_Errors(t *testing.T) {
	c := newTestClient(t, false)
	ctx := context.Background()

	tests := []struct {
		name  string
		index string
		body  dsl.Body
		want  error
	}{
		{"unsupported clause", "records", dsl.Body{"query": map[string]any{"fuzzy": map[string]any{}}}, ErrUnsupportedClause},
		{"bad regexp", "records", dsl.NewBody(dsl.Regexp("author", "("), 0, 10), ErrMalformedClause},
		{"bad operator", "records", dsl.NewBody(dsl.Query{"match": map[string]any{"title": map[string]any{"query": "x", "operator": "xor"}}}, 0, 10), ErrMalformedClause},
		{"two clauses in one", "records", dsl.Body{"query": map[string]any{"match_all": map[string]any{}, "match_none": map[string]any{}}}, ErrMalformedClause},
		{"unknown body key", "records", dsl.Body{"aggs": map[string]any{}}, ErrMalformedClause},
		{"negative size", "records", dsl.Body{"size": -1}, ErrMalformedClause},
		{"missing index", "nope", dsl.Body{}, ErrIndexNotFound},
		{"bad index name", "../records", dsl.Body{}, ErrInvalidIndexName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Search(ctx, tt.index, "record", tt.body)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var be *backend.Error
			if !errors.As(err, &be) {
				t.Fatalf("expected *backend.Error, got %T", err)
			}
			if be.Index != tt.index {
				t.Errorf("expected index %q, got %q", tt.index, be.Index)
			}
		})
	}
}

func TestSearch_Cancelled(t *testing.T) {
	c := newTestClient(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Search(ctx, "records", "record", dsl.Body{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSearch_DocType(t *testing.T) {
	forEachLayout(t, func(t *testing.T, c *Client) {
		ctx := context.Background()
		if err := c.Index(ctx, "records", "author", "a1", map[string]any{"title": "Higgs"}); err != nil {
			t.Fatalf("Index error: %v", err)
		}

		expectIDs(t, searchIDs(t, c, dsl.Match("title", "higgs")), "1", "3")

		resp, err := c.Search(ctx, "records", "author", dsl.Body{})
		if err != nil {
			t.Fatalf("Search error: %v", err)
		}
		expectIDs(t, hitIDs(resp), "a1")

		resp, err = c.Search(ctx, "records", "", dsl.Body{})
		if err != nil {
			t.Fatalf("Search error: %v", err)
		}
		if resp.Total != 4 {
			t.Errorf("expected 4 documents of any type, got %d", resp.Total)
		}
	})
}

func TestSearch_Paging(t *testing.T) {
	c := newTestClient(t, false)
	ctx := context.Background()

	resp, err := c.Search(ctx, "records", "record", dsl.NewBody(dsl.MatchAll(), 1, 1))
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("expected total 3, got %d", resp.Total)
	}
	expectIDs(t, hitIDs(resp), "2")

	resp, err = c.Search(ctx, "records", "record", dsl.NewBody(dsl.MatchAll(), 5, 10))
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if resp.Total != 3 || len(resp.Hits) != 0 {
		t.Errorf("expected total 3 and no hits past the end, got %d and %d", resp.Total, len(resp.Hits))
	}
}

func TestSearch_FieldsAndSource(t *testing.T) {
	forEachLayout(t, func(t *testing.T, c *Client) {
		ctx := context.Background()

		resp, err := c.Search(ctx, "records", "record", dsl.Body{
			"query":  dsl.Term("control_number", "2"),
			"fields": []any{"control_number", "author", "missing"},
		})
		if err != nil {
			t.Fatalf("Search error: %v", err)
		}
		if len(resp.Hits) != 1 {
			t.Fatalf("expected 1 hit, got %d", len(resp.Hits))
		}
		hit := resp.Hits[0]
		if hit.Source != nil {
			t.Errorf("expected no source when fields are requested, got %v", hit.Source)
		}
		if got := hit.Fields["control_number"]; len(got) != 1 || got[0] != "2" {
			t.Errorf("expected control_number [2], got %v", got)
		}
		if got := hit.Fields["author"]; len(got) != 1 || got[0] != "Smith, Jane" {
			t.Errorf("expected author [Smith, Jane], got %v", got)
		}
		if _, ok := hit.Fields["missing"]; ok {
			t.Errorf("expected missing field to be left out")
		}

		resp, err = c.Search(ctx, "records", "record", dsl.NewBody(dsl.Term("control_number", "3"), 0, 10))
		if err != nil {
			t.Fatalf("Search error: %v", err)
		}
		if got := resp.Hits[0].Source["title"]; got != "The Higgs mechanism and the boson mass" {
			t.Errorf("unexpected source title %v", got)
		}
	})
}

func TestSearch_Sort(t *testing.T) {
	forEachLayout(t, func(t *testing.T, c *Client) {
		ctx := context.Background()
		resp, err := c.Search(ctx, "records", "record", dsl.Body{
			"sort": []any{map[string]any{"citations": map[string]any{"order": "desc"}}},
		})
		if err != nil {
			t.Fatalf("Search error: %v", err)
		}
		expectIDs(t, hitIDs(resp), "3", "2", "1")

		resp, err = c.Search(ctx, "records", "record", dsl.Body{"sort": "title"})
		if err != nil {
			t.Fatalf("Search error: %v", err)
		}
		expectIDs(t, hitIDs(resp), "2", "1", "3")
	})
}

func TestClient_ReplaceAndDelete(t *testing.T) {
	forEachLayout(t, func(t *testing.T, c *Client) {
		ctx := context.Background()

		err := c.Index(ctx, "records", "record", "1", map[string]any{"title": "Neutrino oscillations"})
		if err != nil {
			t.Fatalf("Index error: %v", err)
		}
		expectIDs(t, searchIDs(t, c, dsl.Match("title", "higgs")), "3")
		expectIDs(t, searchIDs(t, c, dsl.Match("title", "neutrino")), "1")

		if err := c.Delete(ctx, "records", "3"); err != nil {
			t.Fatalf("Delete error: %v", err)
		}
		expectIDs(t, searchIDs(t, c, dsl.Match("title", "higgs")))
		expectIDs(t, sorted(searchIDs(t, c, dsl.MatchAll())), "1", "2")
	})
}

func TestClient_CompactKeepsResults(t *testing.T) {
	c := newTestClient(t, true)
	if err := c.Delete(context.Background(), "records", "2"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	before := searchIDs(t, c, dsl.Match("title", "higgs mass"))

	if err := c.Compact(); err != nil {
		t.Fatalf("Compact error: %v", err)
	}
	idx, err := c.index("records", false)
	if err != nil {
		t.Fatalf("index error: %v", err)
	}
	if n := idx.NumSegments(); n != 1 {
		t.Errorf("expected 1 segment after compaction, got %d", n)
	}

	expectIDs(t, searchIDs(t, c, dsl.Match("title", "higgs mass")), before...)
	expectIDs(t, sorted(searchIDs(t, c, dsl.MatchAll())), "1", "3")
	expectIDs(t, searchIDs(t, c, dsl.Term("control_number", "2")))
}

func TestClient_Reopen(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Local{Dir: dir, FlushThreshold: 100}
	ctx := context.Background()

	c, err := Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	for _, d := range testDocs {
		if err := c.Index(ctx, "records", "record", d.id, d.doc); err != nil {
			t.Fatalf("Index error: %v", err)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if _, err := c.Search(ctx, "records", "record", dsl.Body{}); err == nil {
		t.Fatal("expected error searching a closed client")
	}

	c, err = Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer c.Close()

	expectIDs(t, searchIDs(t, c, dsl.MatchPhrase("title", "higgs boson")), "1")
	expectIDs(t, sorted(searchIDs(t, c, dsl.Term("author", "Ellis, John"))), "1", "3")
}

func TestIntValue(t *testing.T) {
	tests := []struct {
		in      any
		want    int
		wantErr bool
	}{
		{3, 3, false},
		{float64(10), 10, false},
		{float64(1.5), 0, true},
		{"7", 7, false},
		{"x", 0, true},
		{true, 0, true},
	}
	for _, tt := range tests {
		got, err := intValue(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("intValue(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("intValue(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMinimumShouldMatch(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{2, 2},
		{-1, 3},
		{"50%", 2},
		{"-25%", 3},
	}
	for _, tt := range tests {
		got, err := minimumShouldMatch(tt.in, 4)
		if err != nil {
			t.Fatalf("minimumShouldMatch(%v) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("minimumShouldMatch(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
