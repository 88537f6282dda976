package enhancer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harshagw/recsearch/internal/ast"
	"harshagw/recsearch/internal/auth"
	"harshagw/recsearch/internal/config"
	"harshagw/recsearch/internal/grammar"
)

func parse(t *testing.T, s string) ast.Node {
	t.Helper()
	n, err := grammar.Default().Parse(s)
	require.NoError(t, err)
	return n
}

// tag appends a value query so the order of application shows in the tree.
func tag(label string) Enhancer {
	return func(_ context.Context, node ast.Node, _ auth.User, _ string) (ast.Node, error) {
		return ast.And(node, &ast.ValueQuery{Value: &ast.Value{Text: label}}), nil
	}
}

func TestPipelineAppliesInOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("first", tag("1")))
	require.NoError(t, r.Register("second", tag("2")))
	assert.Equal(t, []string{"first", "second"}, r.Names())

	p, err := r.Pipeline(nil, "second", "first")
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, p.Names())

	out, err := p.Apply(context.Background(), parse(t, "x"), auth.Anonymous, "")
	require.NoError(t, err)
	assert.Equal(t, "AND(AND(value(x), value(2)), value(1))", out.String())
}

func TestRegistryErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", tag("a")))
	assert.Error(t, r.Register("a", tag("a")))
	assert.Error(t, r.Register("", tag("a")))

	_, err := r.Pipeline(nil, "a", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"missing"`)
}

func TestPipelineStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	called := false

	r := NewRegistry()
	require.NoError(t, r.Register("fail", func(context.Context, ast.Node, auth.User, string) (ast.Node, error) {
		return nil, boom
	}))
	require.NoError(t, r.Register("after", func(_ context.Context, n ast.Node, _ auth.User, _ string) (ast.Node, error) {
		called = true
		return n, nil
	}))

	p, err := r.Pipeline(nil, "fail", "after")
	require.NoError(t, err)

	_, err = p.Apply(context.Background(), parse(t, "x"), auth.Anonymous, "")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "enhancer fail")
	assert.False(t, called)
}

func TestNilPipelineIsIdentity(t *testing.T) {
	var p *Pipeline
	in := parse(t, "x")
	out, err := p.Apply(context.Background(), in, auth.Anonymous, "HEP")
	require.NoError(t, err)
	assert.Same(t, in, out)
}

func TestCollectionScope(t *testing.T) {
	e := CollectionScope("collection")
	ctx := context.Background()
	in := parse(t, "title:higgs")

	out, err := e(ctx, in, auth.Anonymous, "")
	require.NoError(t, err)
	assert.Same(t, in, out)

	out, err = e(ctx, in, auth.Anonymous, "HEP")
	require.NoError(t, err)
	assert.Equal(t, "AND(title:value(higgs), collection:exact('HEP'))", out.String())
	assert.Same(t, in, out.(*ast.AndQuery).Left, "unchanged subtree is shared")

	out, err = e(ctx, &ast.EmptyQuery{}, auth.Anonymous, "HEP")
	require.NoError(t, err)
	assert.Equal(t, "collection:exact('HEP')", out.String())
}

func TestRestrictedCollections(t *testing.T) {
	e := RestrictedCollections("collection", map[string][]string{
		"HERMES Internal Notes": {"hermes-collaboration"},
		"CDS Hidden":            {"cds-admins", "superusers"},
	})
	ctx := context.Background()
	in := parse(t, "higgs")

	out, err := e(ctx, in, auth.Anonymous, "")
	require.NoError(t, err)
	assert.Equal(t,
		"AND(AND(value(higgs), NOT(collection:exact('CDS Hidden'))), NOT(collection:exact('HERMES Internal Notes')))",
		out.String())

	out, err = e(ctx, in, auth.User{ID: "jdoe", Groups: []string{"superusers"}}, "")
	require.NoError(t, err)
	assert.Equal(t, "AND(value(higgs), NOT(collection:exact('HERMES Internal Notes')))", out.String())

	out, err = e(ctx, in, auth.User{ID: "root", Groups: []string{"superusers", "hermes-collaboration"}}, "")
	require.NoError(t, err)
	assert.Same(t, in, out)
}

func TestDefaultFilters(t *testing.T) {
	e := DefaultFilters(config.Search{DefaultFilters: []config.Filter{
		{Keyword: "deleted", Value: "false"},
		{Collection: "CDS/*", Keyword: "experiment", Value: "CMS"},
	}})
	ctx := context.Background()

	out, err := e(ctx, parse(t, "higgs"), auth.Anonymous, "HEP")
	require.NoError(t, err)
	assert.Equal(t, "AND(value(higgs), deleted:exact('false'))", out.String())

	out, err = e(ctx, parse(t, "higgs"), auth.Anonymous, "CDS/Notes")
	require.NoError(t, err)
	assert.Equal(t, "AND(AND(value(higgs), deleted:exact('false')), experiment:exact('CMS'))", out.String())
}

func TestBuiltin(t *testing.T) {
	s := config.Default().Search
	s.RestrictedCollections = map[string][]string{"Hidden": {"admins"}}

	r := Builtin(s)
	assert.Equal(t, []string{NameCollectionScope, NameRestrictedCollections, NameDefaultFilters}, r.Names())

	p, err := r.Pipeline(nil, s.Enhancers...)
	require.NoError(t, err)

	out, err := p.Apply(context.Background(), parse(t, "higgs"), auth.Anonymous, "HEP")
	require.NoError(t, err)
	assert.Equal(t, "AND(AND(value(higgs), collection:exact('HEP')), NOT(collection:exact('Hidden')))", out.String())
}
