package ast

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countLeaves only understands value queries and conjunctions.
type countLeaves struct {
	Unsupported[int]
}

func (c countLeaves) VisitValueQuery(*ValueQuery) (int, error) { return 1, nil }

func (c countLeaves) VisitAndQuery(n *AndQuery) (int, error) {
	l, err := Accept[int](n.Left, c)
	if err != nil {
		return 0, err
	}
	r, err := Accept[int](n.Right, c)
	if err != nil {
		return 0, err
	}
	return l + r, nil
}

func TestAccept_DispatchesOnVariant(t *testing.T) {
	tree := And(
		&ValueQuery{Value: &Value{Text: "higgs"}},
		&ValueQuery{Value: &Value{Text: "boson"}},
		&ValueQuery{Value: &Value{Text: "decay"}},
	)

	n, err := Accept[int](tree, countLeaves{Unsupported: Unsupported[int]{Name: "count"}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAccept_UnsupportedVariantFailsExplicitly(t *testing.T) {
	tree := &OrQuery{
		Left:  &ValueQuery{Value: &Value{Text: "a"}},
		Right: &ValueQuery{Value: &Value{Text: "b"}},
	}

	_, err := Accept[int](tree, countLeaves{Unsupported: Unsupported[int]{Name: "count"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedNode))

	var unsupported *UnsupportedNodeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "count", unsupported.Walker)
	assert.IsType(t, &OrQuery{}, unsupported.Node)
}

func TestAccept_NilNode(t *testing.T) {
	_, err := Accept[int](nil, countLeaves{})
	require.ErrorIs(t, err, ErrUnsupportedNode)
	assert.Contains(t, err.Error(), "<nil>")
}

// upperValues rewrites bare values to upper case.
type upperValues struct {
	Rewriter
}

func newUpperValues() *upperValues {
	w := &upperValues{}
	w.Self = w
	return w
}

func (w *upperValues) VisitValue(n *Value) (Node, error) {
	return &Value{Text: strings.ToUpper(n.Text)}, nil
}

func TestRewriter_RebuildsOnlyChangedSubtrees(t *testing.T) {
	untouched := &RangeQuery{Keyword: &Keyword{Name: "year"}, Low: "2000", High: "2012"}
	tree := &AndQuery{
		Left:  &NotQuery{Op: &KeywordQuery{Keyword: &Keyword{Name: "title"}, Value: &Value{Text: "boson"}}},
		Right: untouched,
	}

	out, err := Accept[Node](tree, newUpperValues())
	require.NoError(t, err)

	and, ok := out.(*AndQuery)
	require.True(t, ok)
	assert.NotSame(t, tree, and)
	assert.Same(t, untouched, and.Right)

	want := &AndQuery{
		Left:  &NotQuery{Op: &KeywordQuery{Keyword: &Keyword{Name: "title"}, Value: &Value{Text: "BOSON"}}},
		Right: untouched,
	}
	assert.True(t, Equal(want, out), "got %s", out)

	// The input tree is never mutated.
	assert.Equal(t, "boson", tree.Left.(*NotQuery).Op.(*KeywordQuery).Value.(*Value).Text)
}

func TestRewriter_IdentityKeepsTree(t *testing.T) {
	tree := &OrQuery{
		Left:  &ValueQuery{Value: &DoubleQuotedValue{Text: "dark matter"}},
		Right: &GreaterQuery{Keyword: &Keyword{Name: "year"}, Value: "2010"},
	}
	out, err := Accept[Node](tree, Rewriter{})
	require.NoError(t, err)
	assert.Same(t, tree, out)
}

func TestAndOr_SkipNil(t *testing.T) {
	a := &ValueQuery{Value: &Value{Text: "a"}}
	b := &ValueQuery{Value: &Value{Text: "b"}}

	assert.Nil(t, And())
	assert.Same(t, a, And(nil, a, nil))
	assert.Equal(t, "AND(value(a), value(b))", And(a, b).String())
	assert.Equal(t, "OR(OR(value(a), value(b)), value(a))", Or(a, b, a).String())
}

func TestEqual(t *testing.T) {
	mk := func(v string) Node {
		return &KeywordQuery{Keyword: &Keyword{Name: "author"}, Value: &SingleQuotedValue{Text: v}}
	}
	assert.True(t, Equal(mk("Ellis, J"), mk("Ellis, J")))
	assert.False(t, Equal(mk("Ellis, J"), mk("Ellis, R")))
	assert.False(t, Equal(&EmptyQuery{}, &MalformedQuery{}))
	assert.True(t, Equal(&MalformedQuery{Input: "title:"}, &MalformedQuery{Input: "title:"}))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, &EmptyQuery{}))
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(&EmptyQuery{}))
	assert.True(t, IsEmpty(&MalformedQuery{Input: "("}))
	assert.False(t, IsEmpty(&ValueQuery{Value: &Value{Text: "x"}}))
	assert.True(t, IsMalformed(&MalformedQuery{}))
	assert.False(t, IsMalformed(&EmptyQuery{}))
}

func TestString(t *testing.T) {
	tests := []struct {
		node Node
		want string
	}{
		{&KeywordQuery{Keyword: &Keyword{Name: "title"}, Value: &Value{Text: "collider"}}, "title:value(collider)"},
		{&ValueQuery{Value: &RegexValue{Pattern: "hig+s"}}, "regex(/hig+s/)"},
		{&LowerQuery{Keyword: &Keyword{Name: "year"}, Value: "1990", Inclusive: true}, "year<=1990"},
		{&GreaterQuery{Keyword: &Keyword{Name: "year"}, Value: "1990"}, "year>1990"},
		{&RangeQuery{Keyword: &Keyword{Name: "year"}, Low: "1", High: "2"}, "range(year:1->2)"},
		{&NotQuery{Op: &ValueQuery{Value: &SingleQuotedValue{Text: "x"}}}, "NOT(exact('x'))"},
		{&MalformedQuery{Input: "title:"}, `malformed("title:")`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.node.String())
	}
}
