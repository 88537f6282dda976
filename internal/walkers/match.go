package walkers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/theory/jsonpath"
	"golang.org/x/text/cases"

	"harshagw/recsearch/internal/ast"
	"harshagw/recsearch/internal/dsl"
)

// MatchUnit decides whether one in-memory record satisfies a tree.
//
// A keyword selects every value stored under that name at any depth of the
// record, so "title" finds both {"title": ...} and {"titles": [{"title": ...}]}.
// Dotted keywords select nested names. A query holds if any selected value
// satisfies it:
//
//	value      case-folded substring
//	"phrase"   case-folded substring
//	'exact'    equality
//	/re/       RE2 match of the whole value
//	ranges     numeric when both sides are numbers, lexical otherwise
//
// Term-less trees follow dsl.ZeroTermsQuery.
type MatchUnit struct {
	record map[string]any
	fold   cases.Caser
}

var _ ast.Walker[bool] = (*MatchUnit)(nil)

// NewMatchUnit returns a matcher for record. It is not safe for concurrent use.
func NewMatchUnit(record map[string]any) *MatchUnit {
	return &MatchUnit{record: record, fold: cases.Fold()}
}

// Match runs a fresh MatchUnit for record over n.
func Match(n ast.Node, record map[string]any) (bool, error) {
	return ast.Accept[bool](n, NewMatchUnit(record))
}

func (m *MatchUnit) VisitKeyword(n *ast.Keyword) (bool, error) {
	vals, err := m.values(n.Name)
	return len(vals) > 0, err
}

func (m *MatchUnit) VisitValue(n *ast.Value) (bool, error) {
	return m.any(m.all(), func(s string) (bool, error) { return m.contains(s, n.Text), nil })
}

func (m *MatchUnit) VisitSingleQuotedValue(n *ast.SingleQuotedValue) (bool, error) {
	return m.any(m.all(), func(s string) (bool, error) { return s == n.Text, nil })
}

func (m *MatchUnit) VisitDoubleQuotedValue(n *ast.DoubleQuotedValue) (bool, error) {
	return m.any(m.all(), func(s string) (bool, error) { return m.contains(s, n.Text), nil })
}

func (m *MatchUnit) VisitRegexValue(n *ast.RegexValue) (bool, error) {
	re, err := compileWhole(n.Pattern)
	if err != nil {
		return false, err
	}
	return m.any(m.all(), func(s string) (bool, error) { return re.MatchString(s), nil })
}

func (m *MatchUnit) VisitKeywordQuery(q *ast.KeywordQuery) (bool, error) {
	vals, err := m.values(q.Keyword.Name)
	if err != nil {
		return false, err
	}
	pred, err := m.predicate(q.Value)
	if err != nil {
		return false, err
	}
	return m.any(vals, pred)
}

func (m *MatchUnit) VisitValueQuery(q *ast.ValueQuery) (bool, error) {
	return ast.Accept[bool](q.Value, m)
}

func (m *MatchUnit) VisitRangeQuery(q *ast.RangeQuery) (bool, error) {
	return m.compareField(q.Keyword.Name, func(s string) bool {
		return compare(s, q.Low) >= 0 && compare(s, q.High) <= 0
	})
}

func (m *MatchUnit) VisitGreaterQuery(q *ast.GreaterQuery) (bool, error) {
	return m.compareField(q.Keyword.Name, func(s string) bool {
		c := compare(s, q.Value)
		return c > 0 || (q.Inclusive && c == 0)
	})
}

func (m *MatchUnit) VisitLowerQuery(q *ast.LowerQuery) (bool, error) {
	return m.compareField(q.Keyword.Name, func(s string) bool {
		c := compare(s, q.Value)
		return c < 0 || (q.Inclusive && c == 0)
	})
}

func (m *MatchUnit) VisitAndQuery(q *ast.AndQuery) (bool, error) {
	l, err := ast.Accept[bool](q.Left, m)
	if err != nil || !l {
		return false, err
	}
	return ast.Accept[bool](q.Right, m)
}

func (m *MatchUnit) VisitOrQuery(q *ast.OrQuery) (bool, error) {
	l, err := ast.Accept[bool](q.Left, m)
	if err != nil || l {
		return l, err
	}
	return ast.Accept[bool](q.Right, m)
}

func (m *MatchUnit) VisitNotQuery(q *ast.NotQuery) (bool, error) {
	v, err := ast.Accept[bool](q.Op, m)
	return !v && err == nil, err
}

func (m *MatchUnit) VisitEmptyQuery(*ast.EmptyQuery) (bool, error) {
	return dsl.ZeroTermsQuery == "all", nil
}

func (m *MatchUnit) VisitMalformedQuery(*ast.MalformedQuery) (bool, error) {
	return dsl.ZeroTermsQuery == "all", nil
}

func (m *MatchUnit) predicate(v ast.Node) (func(string) (bool, error), error) {
	switch v := v.(type) {
	case *ast.Value:
		return func(s string) (bool, error) { return m.contains(s, v.Text), nil }, nil
	case *ast.DoubleQuotedValue:
		return func(s string) (bool, error) { return m.contains(s, v.Text), nil }, nil
	case *ast.SingleQuotedValue:
		return func(s string) (bool, error) { return s == v.Text, nil }, nil
	case *ast.RegexValue:
		re, err := compileWhole(v.Pattern)
		if err != nil {
			return nil, err
		}
		return func(s string) (bool, error) { return re.MatchString(s), nil }, nil
	default:
		return nil, &ast.UnsupportedNodeError{Walker: "match", Node: v}
	}
}

// compileWhole anchors pattern so it must match a whole value, as the
// regexp query of an index does.
func compileWhole(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("regex /%s/: %w", pattern, err)
	}
	return re, nil
}

func (m *MatchUnit) contains(haystack, needle string) bool {
	return strings.Contains(m.fold.String(haystack), m.fold.String(needle))
}

func (m *MatchUnit) compareField(name string, ok func(string) bool) (bool, error) {
	vals, err := m.values(name)
	if err != nil {
		return false, err
	}
	return m.any(vals, func(s string) (bool, error) { return ok(s), nil })
}

func (m *MatchUnit) any(vals []string, pred func(string) (bool, error)) (bool, error) {
	for _, v := range vals {
		ok, err := pred(v)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// values selects the scalars stored under a possibly dotted field name.
func (m *MatchUnit) values(field string) ([]string, error) {
	p, err := jsonpath.Parse(fieldPath(field))
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	var out []string
	for _, node := range p.Select(any(m.record)) {
		out = appendScalars(out, node)
	}
	return out, nil
}

// all returns every scalar in the record.
func (m *MatchUnit) all() []string {
	return appendScalars(nil, m.record)
}

func fieldPath(field string) string {
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range strings.Split(field, ".") {
		b.WriteString("..['")
		b.WriteString(strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(seg))
		b.WriteString("']")
	}
	return b.String()
}

func appendScalars(out []string, v any) []string {
	switch v := v.(type) {
	case nil:
		return out
	case map[string]any:
		for _, x := range v {
			out = appendScalars(out, x)
		}
		return out
	case []any:
		for _, x := range v {
			out = appendScalars(out, x)
		}
		return out
	case []string:
		return append(out, v...)
	}
	if s, ok := scalarString(v); ok {
		out = append(out, s)
	}
	return out
}

func scalarString(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case int:
		return strconv.Itoa(v), true
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", v), true
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), true
	case json.Number:
		return v.String(), true
	}
	return "", false
}

// compare orders a and b numerically when both parse as numbers.
func compare(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}
