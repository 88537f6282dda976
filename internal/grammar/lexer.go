package grammar

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type TokenType int

const (
	TokenWord   TokenType = iota
	TokenPhrase           // "double quoted"
	TokenExact            // 'single quoted'
	TokenRegex            // /pattern/
	TokenColon
	TokenArrow // ->
	TokenGT
	TokenGTE
	TokenLT
	TokenLTE
	TokenAnd
	TokenOr
	TokenNot
	TokenLParen
	TokenRParen
	TokenSpace
	TokenEOF
)

func (t TokenType) String() string {
	switch t {
	case TokenWord:
		return "WORD"
	case TokenPhrase:
		return "PHRASE"
	case TokenExact:
		return "EXACT"
	case TokenRegex:
		return "REGEX"
	case TokenColon:
		return "COLON"
	case TokenArrow:
		return "ARROW"
	case TokenGT:
		return "GT"
	case TokenGTE:
		return "GTE"
	case TokenLT:
		return "LT"
	case TokenLTE:
		return "LTE"
	case TokenAnd:
		return "AND"
	case TokenOr:
		return "OR"
	case TokenNot:
		return "NOT"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	case TokenSpace:
		return "SPACE"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token. Pos is the byte offset of its first
// character in the input.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

func (t Token) String() string {
	if t.Value != "" && t.Type != TokenSpace {
		return fmt.Sprintf("%s(%s)", t.Type, t.Value)
	}
	return t.Type.String()
}

// Lexer tokenizes a query string. Whitespace is not skipped: every run of
// blanks becomes a TokenSpace so the parser decides where it is legal.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new lexer.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, pos: 0}
}

// Tokenize tokenizes a query string into tokens.
func Tokenize(query string) ([]Token, error) {
	lexer := NewLexer(query)
	return lexer.TokenizeAll()
}

// TokenizeAll returns all tokens from the input.
func (l *Lexer) TokenizeAll() ([]Token, error) {
	var tokens []Token
	for {
		token, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
		if token.Type == TokenEOF {
			break
		}
	}
	return tokens, nil
}

// NextToken returns the next token.
func (l *Lexer) NextToken() (Token, error) {
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	start := l.pos
	if l.spaceAt(l.pos) {
		for l.pos < len(l.input) && l.spaceAt(l.pos) {
			_, size := utf8.DecodeRuneInString(l.input[l.pos:])
			l.pos += size
		}
		return Token{Type: TokenSpace, Value: " ", Pos: start}, nil
	}

	ch := l.input[l.pos]

	switch ch {
	case '(':
		l.pos++
		return Token{Type: TokenLParen, Value: "(", Pos: start}, nil
	case ')':
		l.pos++
		return Token{Type: TokenRParen, Value: ")", Pos: start}, nil
	case ':':
		l.pos++
		return Token{Type: TokenColon, Value: ":", Pos: start}, nil
	case '+':
		l.pos++
		return Token{Type: TokenAnd, Value: "+", Pos: start}, nil
	case '|':
		l.pos++
		return Token{Type: TokenOr, Value: "|", Pos: start}, nil
	case '>', '<':
		return l.readComparison(), nil
	case '-':
		if l.peekByte(1) == '>' {
			l.pos += 2
			return Token{Type: TokenArrow, Value: "->", Pos: start}, nil
		}
		if l.pos+1 < len(l.input) && !l.spaceAt(l.pos+1) {
			l.pos++
			return Token{Type: TokenNot, Value: "-", Pos: start}, nil
		}
		return l.readWord()
	case '"':
		return l.readQuoted('"', TokenPhrase)
	case '\'':
		return l.readQuoted('\'', TokenExact)
	case '/':
		return l.readQuoted('/', TokenRegex)
	}

	return l.readWord()
}

func (l *Lexer) spaceAt(pos int) bool {
	r, _ := utf8.DecodeRuneInString(l.input[pos:])
	return unicode.IsSpace(r)
}

func (l *Lexer) peekByte(offset int) byte {
	if l.pos+offset < len(l.input) {
		return l.input[l.pos+offset]
	}
	return 0
}

func (l *Lexer) readComparison() Token {
	start := l.pos
	ch := l.input[l.pos]
	l.pos++
	if l.pos < len(l.input) && l.input[l.pos] == '=' {
		l.pos++
		if ch == '>' {
			return Token{Type: TokenGTE, Value: ">=", Pos: start}
		}
		return Token{Type: TokenLTE, Value: "<=", Pos: start}
	}
	if ch == '>' {
		return Token{Type: TokenGT, Value: ">", Pos: start}
	}
	return Token{Type: TokenLT, Value: "<", Pos: start}
}

// readQuoted reads a literal delimited by quote. A backslash escapes the
// delimiter.
func (l *Lexer) readQuoted(quote byte, typ TokenType) (Token, error) {
	open := l.pos
	l.pos++
	start := l.pos

	for l.pos < len(l.input) && l.input[l.pos] != quote {
		if l.input[l.pos] == '\\' && l.pos+1 < len(l.input) && l.input[l.pos+1] == quote {
			l.pos += 2
			continue
		}
		l.pos++
	}

	if l.pos >= len(l.input) {
		return Token{}, newSyntaxError(open, ErrUnterminated, "unterminated %s starting at position %d", strings.ToLower(typ.String()), open)
	}

	value := l.input[start:l.pos]
	value = strings.ReplaceAll(value, `\`+string(quote), string(quote))
	l.pos++

	return Token{Type: typ, Value: value, Pos: open}, nil
}

func (l *Lexer) readWord() (Token, error) {
	start := l.pos

	for l.pos < len(l.input) {
		if l.spaceAt(l.pos) {
			break
		}
		ch := l.input[l.pos]
		if ch == '(' || ch == ')' || ch == '"' || ch == ':' || ch == '|' || ch == '<' || ch == '>' {
			break
		}
		if ch == '-' && l.peekByte(1) == '>' && l.pos > start {
			break
		}
		l.pos++
	}

	word := l.input[start:l.pos]
	if word == "" {
		return Token{}, newSyntaxError(l.pos, ErrUnexpectedToken, "unexpected character %q", l.input[l.pos])
	}

	switch {
	case strings.EqualFold(word, "AND"):
		return Token{Type: TokenAnd, Value: word, Pos: start}, nil
	case strings.EqualFold(word, "OR"):
		return Token{Type: TokenOr, Value: word, Pos: start}, nil
	case strings.EqualFold(word, "NOT"):
		return Token{Type: TokenNot, Value: word, Pos: start}, nil
	}

	return Token{Type: TokenWord, Value: word, Pos: start}, nil
}
