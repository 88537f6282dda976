package segment

import (
	"maps"
	"path/filepath"
	"slices"
	"testing"

	"harshagw/recsearch/internal/analysis"
)

func newTestBuilder(docs ...map[string]any) *Builder {
	b := NewBuilder(analysis.NewSimple())
	for i, doc := range docs {
		b.Add(string(rune('a'+i)), "record", doc)
	}
	return b
}

func hasTerm(b *Builder, field, term string) bool {
	_, ok := b.Fields[field][term]
	return ok
}

func TestBuilder_Add(t *testing.T) {
	b := NewBuilder(analysis.NewSimple())
	if got := b.Add("1", "record", records[0]); got != 0 {
		t.Errorf("first docNum: got %d", got)
	}
	if got := b.Add("2", "", records[1]); got != 1 {
		t.Errorf("second docNum: got %d", got)
	}

	tests := []struct {
		field, term string
	}{
		{"title", "higgs"},
		{"title", "discovery"},
		{"authors", "ellis"},
		{"authors" + RawSuffix, "Ellis, John"},
		{"year", "2012"},
		{"year" + RawSuffix, "1999"},
		{"refereed", "true"},
		{AllField, "halo"},
		{IDField, "2"},
		{TypeField, "record"},
	}
	for _, tt := range tests {
		if !hasTerm(b, tt.field, tt.term) {
			t.Errorf("%s: missing term %q", tt.field, tt.term)
		}
	}

	if postings := b.Fields[TypeField]["record"]; len(postings) != 1 || postings[0].DocNum != 0 {
		t.Errorf("untyped records must not get a type term, got %v", postings)
	}
}

func TestBuilder_NestedPaths(t *testing.T) {
	b := newTestBuilder(map[string]any{
		"titles": []any{map[string]any{"title": "Dark matter"}},
	})
	if !hasTerm(b, "titles.title", "dark") || !hasTerm(b, "titles.title"+RawSuffix, "Dark matter") {
		t.Errorf("expected titles.title to be indexed, got %v", slices.Sorted(maps.Keys(b.Fields)))
	}
}

func TestBuilder_Positions(t *testing.T) {
	b := newTestBuilder(map[string]any{
		"title":    []any{"dark matter", "matter"},
		"abstract": "halo",
	})

	matter := b.Fields["title"]["matter"][0]
	if matter.Frequency != 2 {
		t.Errorf("frequency: got %d, want 2", matter.Frequency)
	}
	// The second value starts after a gap, so phrases cannot span values.
	if want := []uint64{1, 2 + positionGap}; !slices.Equal(matter.Positions, want) {
		t.Errorf("positions: got %v, want %v", matter.Positions, want)
	}
	if got := b.FieldLength("title", 0); got != 3 {
		t.Errorf("title length: got %d, want 3", got)
	}
	if got := b.FieldLength(AllField, 0); got != 4 {
		t.Errorf("_all length: got %d, want 4", got)
	}
	if got := b.FieldLength("title"+RawSuffix, 0); got != 0 {
		t.Errorf("raw fields are not counted, got %d", got)
	}
}

func TestBuilder_Delete(t *testing.T) {
	b := newTestBuilder(
		map[string]any{"title": "dark matter"},
		map[string]any{"title": "higgs boson decays"},
	)

	if b.Delete("missing") {
		t.Error("Delete of an unknown id reported true")
	}
	if !b.Delete("b") {
		t.Fatal("Delete reported false")
	}
	if b.Delete("b") {
		t.Error("second Delete reported true")
	}
	if !b.IsDeleted(1) || b.IsDeleted(0) {
		t.Error("wrong docNum marked deleted")
	}
	if b.NumDocs() != 1 || b.TotalDocs() != 2 {
		t.Errorf("NumDocs %d TotalDocs %d", b.NumDocs(), b.TotalDocs())
	}
	if got := b.AvgFieldLength("title"); got != 2.0 {
		t.Errorf("deleted records are not averaged, got %.2f", got)
	}
	if _, ok := b.LoadDoc(1); ok {
		t.Error("deleted record loaded")
	}
	if doc, ok := b.LoadDoc(0); !ok || doc["title"] != "dark matter" {
		t.Errorf("LoadDoc(0): got %v, %v", doc, ok)
	}
	if _, ok := b.LoadDoc(9); ok {
		t.Error("out of range record loaded")
	}
}

func TestBuilder_ReplacedIDPointsAtNewest(t *testing.T) {
	b := NewBuilder(analysis.NewSimple())
	b.Add("1", "record", map[string]any{"title": "old"})
	b.Delete("1")
	b.Add("1", "record", map[string]any{"title": "new"})

	postings := b.Fields[IDField]["1"]
	if len(postings) != 1 || postings[0].DocNum != 1 {
		t.Errorf("expected the id to map to docNum 1, got %v", postings)
	}
}

func TestBuilder_Build(t *testing.T) {
	dir := t.TempDir()
	b := newTestBuilder(records...)
	b.Delete("a")

	path, err := b.Build(dir, "000000000001")
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if want := filepath.Join(dir, "000000000001.seg"); path != want {
		t.Errorf("path: got %s, want %s", path, want)
	}
	if matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp")); len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}

	seg, err := Open(path, "000000000001")
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer seg.Close()

	// Deleted records are still written; deletions are tracked outside the
	// segment file.
	if seg.NumDocs() != 3 {
		t.Errorf("NumDocs: got %d, want 3", seg.NumDocs())
	}
	if got := seg.AvgFieldLength("title"); got != 5.0 {
		t.Errorf("AvgFieldLength over live records: got %.2f, want 5.0", got)
	}
}
