package analysis

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

type TokenPosition struct {
	Token    string
	Position uint64
}

// Analyzer defines the interface for text analysis.
type Analyzer interface {
	Analyze(text string) []TokenPosition
}

// Simple case folds text and splits it on anything that is not a letter or
// a digit.
type Simple struct{}

func NewSimple() *Simple {
	return &Simple{}
}

// Analyze tokenizes text into tokens with positions.
func (a *Simple) Analyze(text string) []TokenPosition {
	var tokens []TokenPosition
	var currentToken strings.Builder
	var position uint64

	// Casers keep state, so each call gets its own.
	text = cases.Fold().String(text)

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			currentToken.WriteRune(r)
			continue
		}
		if currentToken.Len() > 0 {
			tokens = append(tokens, TokenPosition{
				Token:    currentToken.String(),
				Position: position,
			})
			position++
			currentToken.Reset()
		}
	}

	if currentToken.Len() > 0 {
		tokens = append(tokens, TokenPosition{
			Token:    currentToken.String(),
			Position: position,
		})
	}

	return tokens
}

// Keyword keeps the whole value as a single token.
type Keyword struct{}

func (Keyword) Analyze(text string) []TokenPosition {
	if text == "" {
		return nil
	}
	return []TokenPosition{{Token: text}}
}

// Flatten walks a JSON-like document and returns the text of every scalar
// leaf keyed by its dotted path. Array elements share their parent's path.
func Flatten(doc map[string]any) map[string][]string {
	out := make(map[string][]string)
	for k, v := range doc {
		flatten(out, k, v)
	}
	return out
}

func flatten(out map[string][]string, path string, v any) {
	switch v := v.(type) {
	case map[string]any:
		for k, child := range v {
			flatten(out, path+"."+k, child)
		}
	case []any:
		for _, child := range v {
			flatten(out, path, child)
		}
	default:
		if s, ok := Scalar(v); ok {
			out[path] = append(out[path], s)
		}
	}
}

// Scalar renders a scalar value as text. Maps, slices and nil report false.
func Scalar(v any) (string, bool) {
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
	case int8:
		return strconv.FormatInt(int64(v), 10), true
	case int16:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint8:
		return strconv.FormatUint(uint64(v), 10), true
	case uint16:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case interface{ String() string }:
		return v.String(), true
	default:
		return "", false
	}
}
