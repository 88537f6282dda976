package grammar

import (
	"strings"

	"harshagw/recsearch/internal/ast"
)

// Parser parses tokens into an AST.
//
//	query   := space? or space? EOF
//	or      := and (space? OR space? and)*
//	and     := unary ((space? AND space?)? unary)*
//	unary   := NOT space? unary | primary
//	primary := '(' space? or space? ')' | keyword | value
//	keyword := WORD ':' (cmp WORD | WORD '->' WORD | value)
//	value   := PHRASE | EXACT | REGEX | WORD (space WORD)*
//
// Whitespace is legal only where the productions say so; in particular
// nothing may separate a keyword, its colon and its value.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a new parser.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens, pos: 0}
}

// Parse parses the tokens into an AST. An input with no tokens other than
// whitespace yields EmptyQuery.
func (p *Parser) Parse() (ast.Node, error) {
	p.skipSpace()
	if p.current().Type == TokenEOF {
		return &ast.EmptyQuery{}, nil
	}

	node, err := p.parseOrExpr()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	switch tok := p.current(); tok.Type {
	case TokenEOF:
		return node, nil
	case TokenRParen:
		return nil, newSyntaxError(tok.Pos, ErrUnmatchedParen, "unmatched ')'")
	default:
		return nil, newSyntaxError(tok.Pos, ErrUnexpectedToken, "unexpected %s", tok)
	}
}

func (p *Parser) current() Token {
	return p.at(0)
}

func (p *Parser) at(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		pos := 0
		if n := len(p.tokens); n > 0 {
			pos = p.tokens[n-1].Pos
		}
		return Token{Type: TokenEOF, Pos: pos}
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) advance() Token {
	token := p.current()
	p.pos++
	return token
}

func (p *Parser) skipSpace() {
	for p.current().Type == TokenSpace {
		p.pos++
	}
}

func (p *Parser) parseOrExpr() (ast.Node, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}

	for {
		save := p.pos
		p.skipSpace()
		if p.current().Type != TokenOr {
			p.pos = save
			return left, nil
		}
		p.advance()
		p.skipSpace()

		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.OrQuery{Left: left, Right: right}
	}
}

func (p *Parser) parseAndExpr() (ast.Node, error) {
	left, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}

	for {
		save := p.pos
		p.skipSpace()

		next := p.current()
		if next.Type == TokenAnd {
			p.advance()
			p.skipSpace()
		} else if !startsOperand(next.Type) {
			p.pos = save
			return left, nil
		}

		right, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.AndQuery{Left: left, Right: right}
	}
}

func startsOperand(t TokenType) bool {
	switch t {
	case TokenWord, TokenPhrase, TokenExact, TokenRegex, TokenLParen, TokenNot:
		return true
	}
	return false
}

func (p *Parser) parseUnaryExpr() (ast.Node, error) {
	if p.current().Type != TokenNot {
		return p.parsePrimary()
	}

	p.advance()
	p.skipSpace()
	op, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	return &ast.NotQuery{Op: op}, nil
}

func (p *Parser) parsePrimary() (ast.Node, error) {
	token := p.current()

	switch token.Type {
	case TokenLParen:
		return p.parseGrouped()
	case TokenWord:
		if p.at(1).Type == TokenColon {
			return p.parseKeywordExpr()
		}
		return &ast.ValueQuery{Value: p.parseWords()}, nil
	case TokenPhrase, TokenExact, TokenRegex:
		p.advance()
		return &ast.ValueQuery{Value: literal(token)}, nil
	case TokenEOF:
		return nil, newSyntaxError(token.Pos, ErrUnexpectedEOF, "unexpected end of query")
	case TokenRParen:
		return nil, newSyntaxError(token.Pos, ErrUnmatchedParen, "unmatched ')'")
	default:
		return nil, newSyntaxError(token.Pos, ErrUnexpectedToken, "unexpected %s", token)
	}
}

func (p *Parser) parseGrouped() (ast.Node, error) {
	open := p.advance()
	p.skipSpace()

	if tok := p.current(); tok.Type == TokenRParen {
		return nil, newSyntaxError(tok.Pos, ErrUnexpectedToken, "empty group")
	}

	expr, err := p.parseOrExpr()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	switch tok := p.current(); tok.Type {
	case TokenRParen:
		p.advance()
		return expr, nil
	case TokenEOF:
		return nil, newSyntaxError(open.Pos, ErrUnmatchedParen, "unclosed '('")
	default:
		return nil, newSyntaxError(tok.Pos, ErrUnexpectedToken, "expected ')', got %s", tok)
	}
}

func (p *Parser) parseKeywordExpr() (ast.Node, error) {
	name := p.advance()
	p.advance() // ':'
	keyword := &ast.Keyword{Name: name.Value}

	valueToken := p.current()

	switch valueToken.Type {
	case TokenPhrase, TokenExact, TokenRegex:
		p.advance()
		return &ast.KeywordQuery{Keyword: keyword, Value: literal(valueToken)}, nil
	case TokenGT, TokenGTE, TokenLT, TokenLTE:
		p.advance()
		bound := p.current()
		if bound.Type != TokenWord {
			return nil, p.expectedValue(name.Value+":"+valueToken.Value, bound)
		}
		p.advance()
		inclusive := valueToken.Type == TokenGTE || valueToken.Type == TokenLTE
		if valueToken.Type == TokenGT || valueToken.Type == TokenGTE {
			return &ast.GreaterQuery{Keyword: keyword, Value: bound.Value, Inclusive: inclusive}, nil
		}
		return &ast.LowerQuery{Keyword: keyword, Value: bound.Value, Inclusive: inclusive}, nil
	case TokenWord:
		if p.at(1).Type == TokenArrow {
			low := p.advance()
			p.advance() // '->'
			high := p.current()
			if high.Type != TokenWord {
				return nil, p.expectedValue(name.Value+":"+low.Value+"->", high)
			}
			p.advance()
			return &ast.RangeQuery{Keyword: keyword, Low: low.Value, High: high.Value}, nil
		}
		return &ast.KeywordQuery{Keyword: keyword, Value: p.parseWords()}, nil
	default:
		return nil, p.expectedValue(name.Value+":", valueToken)
	}
}

func (p *Parser) expectedValue(after string, got Token) error {
	switch got.Type {
	case TokenEOF:
		return newSyntaxError(got.Pos, ErrUnexpectedEOF, "expected value after '%s'", after)
	case TokenSpace:
		return newSyntaxError(got.Pos, ErrUnexpectedToken, "unexpected whitespace after '%s'", after)
	default:
		return newSyntaxError(got.Pos, ErrUnexpectedToken, "expected value after '%s', got %s", after, got)
	}
}

// parseWords folds a run of bare words into one Value. A word that opens a
// keyword expression ends the run.
func (p *Parser) parseWords() *ast.Value {
	words := []string{p.advance().Value}
	for p.current().Type == TokenSpace && p.at(1).Type == TokenWord && p.at(2).Type != TokenColon {
		p.advance()
		words = append(words, p.advance().Value)
	}
	return &ast.Value{Text: strings.Join(words, " ")}
}

func literal(tok Token) ast.Node {
	switch tok.Type {
	case TokenPhrase:
		return &ast.DoubleQuotedValue{Text: tok.Value}
	case TokenExact:
		return &ast.SingleQuotedValue{Text: tok.Value}
	default:
		return &ast.RegexValue{Pattern: tok.Value}
	}
}
