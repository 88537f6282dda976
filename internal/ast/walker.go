package ast

import (
	"errors"
	"fmt"
)

// ErrUnsupportedNode is matched by every UnsupportedNodeError.
var ErrUnsupportedNode = errors.New("unsupported node")

// UnsupportedNodeError reports a walker invoked on a variant it has no
// handler for. It is a configuration defect, never a user input error.
type UnsupportedNodeError struct {
	Walker string
	Node   Node
}

func (e *UnsupportedNodeError) Error() string {
	if e.Node == nil {
		return fmt.Sprintf("%s: unsupported construct <nil>", e.Walker)
	}
	return fmt.Sprintf("%s: unsupported construct %T (%s)", e.Walker, e.Node, e.Node)
}

func (e *UnsupportedNodeError) Unwrap() error { return ErrUnsupportedNode }

// Walker computes an R over a tree, one method per node variant.
type Walker[R any] interface {
	VisitKeyword(*Keyword) (R, error)
	VisitValue(*Value) (R, error)
	VisitSingleQuotedValue(*SingleQuotedValue) (R, error)
	VisitDoubleQuotedValue(*DoubleQuotedValue) (R, error)
	VisitRegexValue(*RegexValue) (R, error)
	VisitKeywordQuery(*KeywordQuery) (R, error)
	VisitValueQuery(*ValueQuery) (R, error)
	VisitRangeQuery(*RangeQuery) (R, error)
	VisitGreaterQuery(*GreaterQuery) (R, error)
	VisitLowerQuery(*LowerQuery) (R, error)
	VisitAndQuery(*AndQuery) (R, error)
	VisitOrQuery(*OrQuery) (R, error)
	VisitNotQuery(*NotQuery) (R, error)
	VisitEmptyQuery(*EmptyQuery) (R, error)
	VisitMalformedQuery(*MalformedQuery) (R, error)
}

// Accept dispatches n to the walker method for its concrete variant.
func Accept[R any](n Node, w Walker[R]) (R, error) {
	switch x := n.(type) {
	case *Keyword:
		return w.VisitKeyword(x)
	case *Value:
		return w.VisitValue(x)
	case *SingleQuotedValue:
		return w.VisitSingleQuotedValue(x)
	case *DoubleQuotedValue:
		return w.VisitDoubleQuotedValue(x)
	case *RegexValue:
		return w.VisitRegexValue(x)
	case *KeywordQuery:
		return w.VisitKeywordQuery(x)
	case *ValueQuery:
		return w.VisitValueQuery(x)
	case *RangeQuery:
		return w.VisitRangeQuery(x)
	case *GreaterQuery:
		return w.VisitGreaterQuery(x)
	case *LowerQuery:
		return w.VisitLowerQuery(x)
	case *AndQuery:
		return w.VisitAndQuery(x)
	case *OrQuery:
		return w.VisitOrQuery(x)
	case *NotQuery:
		return w.VisitNotQuery(x)
	case *EmptyQuery:
		return w.VisitEmptyQuery(x)
	case *MalformedQuery:
		return w.VisitMalformedQuery(x)
	default:
		var zero R
		return zero, &UnsupportedNodeError{Walker: fmt.Sprintf("%T", w), Node: n}
	}
}

// Unsupported is an embeddable Walker whose every method fails with
// UnsupportedNodeError. Walkers covering a subset of the variants embed it
// so that anything they don't handle fails loudly.
type Unsupported[R any] struct {
	Name string
}

func (u Unsupported[R]) fail(n Node) (R, error) {
	var zero R
	name := u.Name
	if name == "" {
		name = "walker"
	}
	return zero, &UnsupportedNodeError{Walker: name, Node: n}
}

func (u Unsupported[R]) VisitKeyword(n *Keyword) (R, error)           { return u.fail(n) }
func (u Unsupported[R]) VisitValue(n *Value) (R, error)               { return u.fail(n) }
func (u Unsupported[R]) VisitRegexValue(n *RegexValue) (R, error)     { return u.fail(n) }
func (u Unsupported[R]) VisitKeywordQuery(n *KeywordQuery) (R, error) { return u.fail(n) }
func (u Unsupported[R]) VisitValueQuery(n *ValueQuery) (R, error)     { return u.fail(n) }
func (u Unsupported[R]) VisitRangeQuery(n *RangeQuery) (R, error)     { return u.fail(n) }
func (u Unsupported[R]) VisitGreaterQuery(n *GreaterQuery) (R, error) { return u.fail(n) }
func (u Unsupported[R]) VisitLowerQuery(n *LowerQuery) (R, error)     { return u.fail(n) }
func (u Unsupported[R]) VisitAndQuery(n *AndQuery) (R, error)         { return u.fail(n) }
func (u Unsupported[R]) VisitOrQuery(n *OrQuery) (R, error)           { return u.fail(n) }
func (u Unsupported[R]) VisitNotQuery(n *NotQuery) (R, error)         { return u.fail(n) }
func (u Unsupported[R]) VisitEmptyQuery(n *EmptyQuery) (R, error)     { return u.fail(n) }

func (u Unsupported[R]) VisitSingleQuotedValue(n *SingleQuotedValue) (R, error) {
	return u.fail(n)
}

func (u Unsupported[R]) VisitDoubleQuotedValue(n *DoubleQuotedValue) (R, error) {
	return u.fail(n)
}

func (u Unsupported[R]) VisitMalformedQuery(n *MalformedQuery) (R, error) {
	return u.fail(n)
}

// Rewriter is the identity Walker[Node]. Rewrite walkers embed it, override
// the variants they change, and set Self to themselves so that recursion
// into children dispatches back to the overriding methods.
//
// Subtrees are rebuilt only when a child actually changed.
type Rewriter struct {
	Self Walker[Node]
}

func (r Rewriter) self() Walker[Node] {
	if r.Self != nil {
		return r.Self
	}
	return r
}

func (r Rewriter) VisitKeyword(n *Keyword) (Node, error)               { return n, nil }
func (r Rewriter) VisitValue(n *Value) (Node, error)                   { return n, nil }
func (r Rewriter) VisitRegexValue(n *RegexValue) (Node, error)         { return n, nil }
func (r Rewriter) VisitRangeQuery(n *RangeQuery) (Node, error)         { return n, nil }
func (r Rewriter) VisitGreaterQuery(n *GreaterQuery) (Node, error)     { return n, nil }
func (r Rewriter) VisitLowerQuery(n *LowerQuery) (Node, error)         { return n, nil }
func (r Rewriter) VisitEmptyQuery(n *EmptyQuery) (Node, error)         { return n, nil }
func (r Rewriter) VisitMalformedQuery(n *MalformedQuery) (Node, error) { return n, nil }

func (r Rewriter) VisitSingleQuotedValue(n *SingleQuotedValue) (Node, error) { return n, nil }
func (r Rewriter) VisitDoubleQuotedValue(n *DoubleQuotedValue) (Node, error) { return n, nil }

func (r Rewriter) VisitKeywordQuery(n *KeywordQuery) (Node, error) {
	v, err := Accept(n.Value, r.self())
	if err != nil {
		return nil, err
	}
	if v == n.Value {
		return n, nil
	}
	return &KeywordQuery{Keyword: n.Keyword, Value: v}, nil
}

func (r Rewriter) VisitValueQuery(n *ValueQuery) (Node, error) {
	v, err := Accept(n.Value, r.self())
	if err != nil {
		return nil, err
	}
	if v == n.Value {
		return n, nil
	}
	return &ValueQuery{Value: v}, nil
}

func (r Rewriter) VisitAndQuery(n *AndQuery) (Node, error) {
	left, right, changed, err := r.pair(n.Left, n.Right)
	if err != nil {
		return nil, err
	}
	if !changed {
		return n, nil
	}
	return &AndQuery{Left: left, Right: right}, nil
}

func (r Rewriter) VisitOrQuery(n *OrQuery) (Node, error) {
	left, right, changed, err := r.pair(n.Left, n.Right)
	if err != nil {
		return nil, err
	}
	if !changed {
		return n, nil
	}
	return &OrQuery{Left: left, Right: right}, nil
}

func (r Rewriter) VisitNotQuery(n *NotQuery) (Node, error) {
	op, err := Accept(n.Op, r.self())
	if err != nil {
		return nil, err
	}
	if op == n.Op {
		return n, nil
	}
	return &NotQuery{Op: op}, nil
}

func (r Rewriter) pair(l, rt Node) (Node, Node, bool, error) {
	left, err := Accept(l, r.self())
	if err != nil {
		return nil, nil, false, err
	}
	right, err := Accept(rt, r.self())
	if err != nil {
		return nil, nil, false, err
	}
	return left, right, left != l || right != rt, nil
}
