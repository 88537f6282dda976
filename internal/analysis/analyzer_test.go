package analysis

import (
	"encoding/json"
	"slices"
	"testing"
)

func tokens(tps []TokenPosition) []string {
	out := make([]string, len(tps))
	for i, tp := range tps {
		out[i] = tp.Token
	}
	return out
}

func TestSimpleAnalyze(t *testing.T) {
	a := NewSimple()

	got := a.Analyze("Higgs-Boson decays, 2012!")
	want := []string{"higgs", "boson", "decays", "2012"}
	if !slices.Equal(tokens(got), want) {
		t.Fatalf("expected %v, got %v", want, tokens(got))
	}
	for i, tp := range got {
		if tp.Position != uint64(i) {
			t.Errorf("token %q: expected position %d, got %d", tp.Token, i, tp.Position)
		}
	}
}

func TestSimpleAnalyzeFoldsCase(t *testing.T) {
	got := tokens(NewSimple().Analyze("HIGGS Higgs"))
	if len(got) != 2 || got[0] != got[1] {
		t.Fatalf("expected both spellings to fold alike, got %v", got)
	}
}

func TestSimpleAnalyzeEmpty(t *testing.T) {
	if got := NewSimple().Analyze(" -- "); len(got) != 0 {
		t.Fatalf("expected no tokens, got %v", got)
	}
}

func TestKeywordAnalyze(t *testing.T) {
	got := tokens(Keyword{}.Analyze("Ellis, J."))
	if !slices.Equal(got, []string{"Ellis, J."}) {
		t.Fatalf("expected the whole value, got %v", got)
	}
	if got := (Keyword{}).Analyze(""); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
}

func TestFlatten(t *testing.T) {
	doc := map[string]any{
		"title": "Higgs",
		"year":  float64(2012),
		"authors": []any{
			map[string]any{"name": "Ellis"},
			map[string]any{"name": "Witten"},
		},
		"refereed": true,
		"count":    json.Number("7"),
		"missing":  nil,
	}
	got := Flatten(doc)

	if !slices.Equal(got["title"], []string{"Higgs"}) {
		t.Errorf("title: got %v", got["title"])
	}
	if !slices.Equal(got["year"], []string{"2012"}) {
		t.Errorf("year: got %v", got["year"])
	}
	if !slices.Equal(got["authors.name"], []string{"Ellis", "Witten"}) {
		t.Errorf("authors.name: got %v", got["authors.name"])
	}
	if !slices.Equal(got["refereed"], []string{"true"}) {
		t.Errorf("refereed: got %v", got["refereed"])
	}
	if !slices.Equal(got["count"], []string{"7"}) {
		t.Errorf("count: got %v", got["count"])
	}
	if _, ok := got["missing"]; ok {
		t.Errorf("nil leaves should be skipped")
	}
}
