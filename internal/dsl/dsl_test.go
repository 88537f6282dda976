package dsl

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	f, err := ParseField("title.raw^10")
	require.NoError(t, err)
	assert.Equal(t, Field{Name: "title.raw", Boost: 10}, f)
	assert.Equal(t, "title.raw^10", f.String())

	f, err = ParseField("abstract")
	require.NoError(t, err)
	assert.Equal(t, 1.0, f.Boost)
	assert.Equal(t, "abstract", f.String())

	f, err = ParseField("doi^2.5")
	require.NoError(t, err)
	assert.Equal(t, "doi^2.5", f.String())

	for _, bad := range []string{"", "^3", "title^", "title^x", "title^-1"} {
		_, err := ParseField(bad)
		assert.Error(t, err, bad)
	}
}

func TestBoolOmitsEmptyClauses(t *testing.T) {
	q := Bool{Should: []Query{Match("title", "a"), Match("title", "b")}, MinimumShouldMatch: 1}.Query()

	raw, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bool":{"should":[
		{"match":{"title":{"query":"a"}}},
		{"match":{"title":{"query":"b"}}}
	],"minimum_should_match":1}}`, string(raw))

	raw, err = json.Marshal(Bool{}.Query())
	require.NoError(t, err)
	assert.JSONEq(t, `{"bool":{}}`, string(raw))
}

func TestMultiMatchZeroTerms(t *testing.T) {
	raw, err := json.Marshal(MultiMatch("", []string{"title^3"}, ZeroTermsQuery))
	require.NoError(t, err)
	assert.JSONEq(t, `{"multi_match":{"query":"","fields":["title^3"],"zero_terms_query":"all"}}`, string(raw))
}

func TestMergeCopies(t *testing.T) {
	b := NewBody(MatchAll(), 0, 10)
	m := Merge(b, map[string]any{"size": 25, "sort": "mostrecent"})

	assert.Equal(t, 10, b["size"])
	assert.Equal(t, 25, m["size"])
	assert.Equal(t, "mostrecent", m["sort"])
	assert.Equal(t, 0, m["from"])
}
