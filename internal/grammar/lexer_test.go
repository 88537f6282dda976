package grammar

import (
	"errors"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "single word",
			input: "higgs",
			expected: []Token{
				{Type: TokenWord, Value: "higgs", Pos: 0},
				{Type: TokenEOF, Pos: 5},
			},
		},
		{
			name:  "whitespace is a token",
			input: "higgs  boson",
			expected: []Token{
				{Type: TokenWord, Value: "higgs", Pos: 0},
				{Type: TokenSpace, Value: " ", Pos: 5},
				{Type: TokenWord, Value: "boson", Pos: 7},
				{Type: TokenEOF, Pos: 12},
			},
		},
		{
			name:  "keyword value",
			input: "title:higgs",
			expected: []Token{
				{Type: TokenWord, Value: "title", Pos: 0},
				{Type: TokenColon, Value: ":", Pos: 5},
				{Type: TokenWord, Value: "higgs", Pos: 6},
				{Type: TokenEOF, Pos: 11},
			},
		},
		{
			name:  "range",
			input: "year:2000->2012",
			expected: []Token{
				{Type: TokenWord, Value: "year", Pos: 0},
				{Type: TokenColon, Value: ":", Pos: 4},
				{Type: TokenWord, Value: "2000", Pos: 5},
				{Type: TokenArrow, Value: "->", Pos: 9},
				{Type: TokenWord, Value: "2012", Pos: 11},
				{Type: TokenEOF, Pos: 15},
			},
		},
		{
			name:  "comparison",
			input: "year:>=2000",
			expected: []Token{
				{Type: TokenWord, Value: "year", Pos: 0},
				{Type: TokenColon, Value: ":", Pos: 4},
				{Type: TokenGTE, Value: ">=", Pos: 5},
				{Type: TokenWord, Value: "2000", Pos: 7},
				{Type: TokenEOF, Pos: 11},
			},
		},
		{
			name:  "quoted literals",
			input: `"dark matter" 'CERN-TH' /hig+s/`,
			expected: []Token{
				{Type: TokenPhrase, Value: "dark matter", Pos: 0},
				{Type: TokenSpace, Value: " ", Pos: 13},
				{Type: TokenExact, Value: "CERN-TH", Pos: 14},
				{Type: TokenSpace, Value: " ", Pos: 23},
				{Type: TokenRegex, Value: "hig+s", Pos: 24},
				{Type: TokenEOF, Pos: 31},
			},
		},
		{
			name:  "escaped quote",
			input: `"say \"hi\""`,
			expected: []Token{
				{Type: TokenPhrase, Value: `say "hi"`, Pos: 0},
				{Type: TokenEOF, Pos: 12},
			},
		},
		{
			name:  "operators are case insensitive",
			input: "a and b Or NOT c",
			expected: []Token{
				{Type: TokenWord, Value: "a", Pos: 0},
				{Type: TokenSpace, Value: " ", Pos: 1},
				{Type: TokenAnd, Value: "and", Pos: 2},
				{Type: TokenSpace, Value: " ", Pos: 5},
				{Type: TokenWord, Value: "b", Pos: 6},
				{Type: TokenSpace, Value: " ", Pos: 7},
				{Type: TokenOr, Value: "Or", Pos: 8},
				{Type: TokenSpace, Value: " ", Pos: 10},
				{Type: TokenNot, Value: "NOT", Pos: 11},
				{Type: TokenSpace, Value: " ", Pos: 14},
				{Type: TokenWord, Value: "c", Pos: 15},
				{Type: TokenEOF, Pos: 16},
			},
		},
		{
			name:  "symbol operators",
			input: "+a|-b",
			expected: []Token{
				{Type: TokenAnd, Value: "+", Pos: 0},
				{Type: TokenWord, Value: "a", Pos: 1},
				{Type: TokenOr, Value: "|", Pos: 2},
				{Type: TokenNot, Value: "-", Pos: 3},
				{Type: TokenWord, Value: "b", Pos: 4},
				{Type: TokenEOF, Pos: 5},
			},
		},
		{
			name:  "hyphen inside a word",
			input: "hep-th/9901001",
			expected: []Token{
				{Type: TokenWord, Value: "hep-th/9901001", Pos: 0},
				{Type: TokenEOF, Pos: 14},
			},
		},
		{
			name:  "parentheses",
			input: "(a)",
			expected: []Token{
				{Type: TokenLParen, Value: "(", Pos: 0},
				{Type: TokenWord, Value: "a", Pos: 1},
				{Type: TokenRParen, Value: ")", Pos: 2},
				{Type: TokenEOF, Pos: 3},
			},
		},
		{
			name:     "empty",
			input:    "",
			expected: []Token{{Type: TokenEOF, Pos: 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(tokens) != len(tt.expected) {
				t.Fatalf("got %d tokens %v, want %d %v", len(tokens), tokens, len(tt.expected), tt.expected)
			}
			for i, tok := range tokens {
				if tok != tt.expected[i] {
					t.Errorf("token %d: got %+v, want %+v", i, tok, tt.expected[i])
				}
			}
		})
	}
}

func TestTokenize_Unterminated(t *testing.T) {
	for _, input := range []string{`"dark matter`, `title:'CERN`, `/hig+s`} {
		_, err := Tokenize(input)
		if err == nil {
			t.Fatalf("%q: expected error", input)
		}
		if !errors.Is(err, ErrUnterminated) {
			t.Errorf("%q: got %v, want ErrUnterminated", input, err)
		}
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("%q: expected *SyntaxError, got %T", input, err)
		}
	}
}
