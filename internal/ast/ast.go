// Package ast defines the query syntax tree produced by the grammar and
// consumed by every walker.
//
// Nodes are immutable. Rewrites build new nodes and share unchanged children.
// No node points at its parent, so traversal is strictly top-down.
package ast

import (
	"fmt"
	"strings"
)

// Node is the interface for all AST nodes.
// The marker method seals the set of variants to this package.
type Node interface {
	node()
	String() string
}

// Keyword names a record field, e.g. "title" in title:higgs.
type Keyword struct {
	Name string
}

func (*Keyword) node() {}

func (k *Keyword) String() string { return fmt.Sprintf("keyword(%s)", k.Name) }

// Value is a bare word or a run of bare words.
type Value struct {
	Text string
}

func (*Value) node() {}

func (v *Value) String() string { return fmt.Sprintf("value(%s)", v.Text) }

// SingleQuotedValue is an exact value: 'CERN-TH-2012'.
type SingleQuotedValue struct {
	Text string
}

func (*SingleQuotedValue) node() {}

func (v *SingleQuotedValue) String() string { return fmt.Sprintf("exact('%s')", v.Text) }

// DoubleQuotedValue is a phrase: "higgs boson".
type DoubleQuotedValue struct {
	Text string
}

func (*DoubleQuotedValue) node() {}

func (v *DoubleQuotedValue) String() string { return fmt.Sprintf("phrase(\"%s\")", v.Text) }

// RegexValue is a regular expression: /hig+s/.
type RegexValue struct {
	Pattern string
}

func (*RegexValue) node() {}

func (v *RegexValue) String() string { return fmt.Sprintf("regex(/%s/)", v.Pattern) }

// KeywordQuery restricts a value to one field.
type KeywordQuery struct {
	Keyword *Keyword
	Value   Node // *Value, *SingleQuotedValue, *DoubleQuotedValue or *RegexValue
}

func (*KeywordQuery) node() {}

func (q *KeywordQuery) String() string {
	return fmt.Sprintf("%s:%s", q.Keyword.Name, q.Value)
}

// ValueQuery searches a value across all fields.
type ValueQuery struct {
	Value Node
}

func (*ValueQuery) node() {}

func (q *ValueQuery) String() string { return q.Value.String() }

// RangeQuery is an inclusive range on a field: year:2000->2012.
type RangeQuery struct {
	Keyword *Keyword
	Low     string
	High    string
}

func (*RangeQuery) node() {}

func (q *RangeQuery) String() string {
	return fmt.Sprintf("range(%s:%s->%s)", q.Keyword.Name, q.Low, q.High)
}

// GreaterQuery is year:>2000 or year:>=2000 when Inclusive.
type GreaterQuery struct {
	Keyword   *Keyword
	Value     string
	Inclusive bool
}

func (*GreaterQuery) node() {}

func (q *GreaterQuery) String() string {
	op := ">"
	if q.Inclusive {
		op = ">="
	}
	return fmt.Sprintf("%s%s%s", q.Keyword.Name, op, q.Value)
}

// LowerQuery is year:<2000 or year:<=2000 when Inclusive.
type LowerQuery struct {
	Keyword   *Keyword
	Value     string
	Inclusive bool
}

func (*LowerQuery) node() {}

func (q *LowerQuery) String() string {
	op := "<"
	if q.Inclusive {
		op = "<="
	}
	return fmt.Sprintf("%s%s%s", q.Keyword.Name, op, q.Value)
}

// AndQuery is a conjunction.
type AndQuery struct {
	Left  Node
	Right Node
}

func (*AndQuery) node() {}

func (q *AndQuery) String() string { return binaryString("AND", q.Left, q.Right) }

// OrQuery is a disjunction.
type OrQuery struct {
	Left  Node
	Right Node
}

func (*OrQuery) node() {}

func (q *OrQuery) String() string { return binaryString("OR", q.Left, q.Right) }

// NotQuery negates Op.
type NotQuery struct {
	Op Node
}

func (*NotQuery) node() {}

func (q *NotQuery) String() string { return "NOT(" + q.Op.String() + ")" }

// EmptyQuery is the tree for blank input.
type EmptyQuery struct{}

func (*EmptyQuery) node() {}

func (*EmptyQuery) String() string { return "empty" }

// MalformedQuery is the terminal sentinel for input the grammar rejected.
// It signals "no valid query", not an error.
type MalformedQuery struct {
	Input string
}

func (*MalformedQuery) node() {}

func (q *MalformedQuery) String() string { return fmt.Sprintf("malformed(%q)", q.Input) }

func binaryString(op string, left, right Node) string {
	var b strings.Builder
	b.WriteString(op)
	b.WriteByte('(')
	b.WriteString(left.String())
	b.WriteString(", ")
	b.WriteString(right.String())
	b.WriteByte(')')
	return b.String()
}

// And joins nodes left to right with AndQuery. Nil entries are skipped.
func And(nodes ...Node) Node {
	var out Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if out == nil {
			out = n
			continue
		}
		out = &AndQuery{Left: out, Right: n}
	}
	return out
}

// Or joins nodes left to right with OrQuery. Nil entries are skipped.
func Or(nodes ...Node) Node {
	var out Node
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if out == nil {
			out = n
			continue
		}
		out = &OrQuery{Left: out, Right: n}
	}
	return out
}

// IsMalformed reports whether n is the MalformedQuery sentinel.
func IsMalformed(n Node) bool {
	_, ok := n.(*MalformedQuery)
	return ok
}

// IsEmpty reports whether n carries no terms: EmptyQuery or MalformedQuery.
func IsEmpty(n Node) bool {
	switch n.(type) {
	case *EmptyQuery, *MalformedQuery:
		return true
	}
	return false
}

// Equal reports whether two trees are structurally identical.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Keyword:
		y, ok := b.(*Keyword)
		return ok && x.Name == y.Name
	case *Value:
		y, ok := b.(*Value)
		return ok && x.Text == y.Text
	case *SingleQuotedValue:
		y, ok := b.(*SingleQuotedValue)
		return ok && x.Text == y.Text
	case *DoubleQuotedValue:
		y, ok := b.(*DoubleQuotedValue)
		return ok && x.Text == y.Text
	case *RegexValue:
		y, ok := b.(*RegexValue)
		return ok && x.Pattern == y.Pattern
	case *KeywordQuery:
		y, ok := b.(*KeywordQuery)
		return ok && Equal(x.Keyword, y.Keyword) && Equal(x.Value, y.Value)
	case *ValueQuery:
		y, ok := b.(*ValueQuery)
		return ok && Equal(x.Value, y.Value)
	case *RangeQuery:
		y, ok := b.(*RangeQuery)
		return ok && Equal(x.Keyword, y.Keyword) && x.Low == y.Low && x.High == y.High
	case *GreaterQuery:
		y, ok := b.(*GreaterQuery)
		return ok && Equal(x.Keyword, y.Keyword) && x.Value == y.Value && x.Inclusive == y.Inclusive
	case *LowerQuery:
		y, ok := b.(*LowerQuery)
		return ok && Equal(x.Keyword, y.Keyword) && x.Value == y.Value && x.Inclusive == y.Inclusive
	case *AndQuery:
		y, ok := b.(*AndQuery)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *OrQuery:
		y, ok := b.(*OrQuery)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *NotQuery:
		y, ok := b.(*NotQuery)
		return ok && Equal(x.Op, y.Op)
	case *EmptyQuery:
		_, ok := b.(*EmptyQuery)
		return ok
	case *MalformedQuery:
		y, ok := b.(*MalformedQuery)
		return ok && x.Input == y.Input
	}
	return false
}
