// Package grammar turns raw query strings into ast trees.
//
// The compilation pipeline only depends on the Grammar interface. Default
// returns the grammar shipped with this module; Parse wraps any Grammar with
// Unicode normalisation and the malformed-query fallback.
package grammar

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"harshagw/recsearch/internal/ast"
)

// Grammar converts a normalised query string into a tree. Syntax errors are
// returned as errors; Parse decides what to do with them.
type Grammar interface {
	Parse(input string) (ast.Node, error)
}

// Func adapts a plain function to Grammar.
type Func func(input string) (ast.Node, error)

func (f Func) Parse(input string) (ast.Node, error) { return f(input) }

type defaultGrammar struct{}

// Default returns the built-in keyword/boolean grammar.
func Default() Grammar { return defaultGrammar{} }

func (defaultGrammar) Parse(input string) (ast.Node, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	return NewParser(tokens).Parse()
}

// Normalize applies the canonical form queries are parsed and stored in.
func Normalize(input string) string {
	return norm.NFC.String(input)
}

// Parse normalises input and runs g over it. It never fails: blank input
// yields EmptyQuery and rejected input yields MalformedQuery carrying the
// normalised text.
func Parse(g Grammar, input string) ast.Node {
	input = Normalize(input)
	if strings.TrimSpace(input) == "" {
		return &ast.EmptyQuery{}
	}

	node, err := g.Parse(input)
	if err != nil || node == nil {
		return &ast.MalformedQuery{Input: input}
	}
	return node
}
