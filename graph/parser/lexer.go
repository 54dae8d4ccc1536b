package parser

import (
	"unicode"

	"github.com/leiyuou/lance-graph/graph"
)

// Lexer tokenizes Cypher query text
type Lexer struct {
	input  string
	pos    int
	line   int
	col    int
	tokens []Token
}

// NewLexer creates a new lexer for the given input
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		pos:    0,
		line:   1,
		col:    1,
		tokens: []Token{},
	}
}

// Lex tokenizes the entire input
func (l *Lexer) Lex() error {
	for l.pos < len(l.input) {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			break
		}

		startLine := l.line
		startCol := l.col

		ch := l.peek()
		switch {
		case ch == '\'' || ch == '"':
			str, err := l.readString(ch)
			if err != nil {
				return err
			}
			l.emit(Token{Type: TokenString, Value: str, Line: startLine, Col: startCol})

		case ch == '$':
			l.advance()
			name := l.readIdent()
			if name == "" {
				return graph.Errorf(graph.ParseError,
					"expected parameter name after '$' at %d:%d", startLine, startCol)
			}
			l.emit(Token{Type: TokenParameter, Value: name, Line: startLine, Col: startCol})

		case unicode.IsDigit(rune(ch)):
			num := l.readNumber()
			l.emit(Token{Type: TokenNumber, Value: num, Line: startLine, Col: startCol})

		case isIdentStart(ch):
			ident := l.readIdent()
			l.emit(Token{Type: TokenIdent, Value: ident, Line: startLine, Col: startCol})

		default:
			tokType, ok := l.readSymbol()
			if !ok {
				return graph.Errorf(graph.ParseError,
					"unexpected character %q at %d:%d", ch, startLine, startCol)
			}
			l.emit(Token{Type: tokType, Line: startLine, Col: startCol})
		}
	}

	l.emit(Token{Type: TokenEOF, Line: l.line, Col: l.col})
	return nil
}

// Tokens returns the lexed tokens
func (l *Lexer) Tokens() []Token {
	return l.tokens
}

func (l *Lexer) emit(tok Token) {
	l.tokens = append(l.tokens, tok)
}

func (l *Lexer) peek() byte {
	return l.input[l.pos]
}

func (l *Lexer) peekAt(offset int) (byte, bool) {
	if l.pos+offset < len(l.input) {
		return l.input[l.pos+offset], true
	}
	return 0, false
}

func (l *Lexer) advance() {
	if l.input[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.advance()
	}
}

// readString reads a quoted string literal with backslash escapes
func (l *Lexer) readString(quote byte) (string, error) {
	startLine, startCol := l.line, l.col
	l.advance() // opening quote

	var out []byte
	for l.pos < len(l.input) {
		ch := l.peek()
		if ch == quote {
			l.advance()
			return string(out), nil
		}
		if ch == '\\' {
			l.advance()
			if l.pos >= len(l.input) {
				break
			}
			esc := l.peek()
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, esc)
			}
			l.advance()
			continue
		}
		out = append(out, ch)
		l.advance()
	}
	return "", graph.Errorf(graph.ParseError,
		"unterminated string starting at %d:%d", startLine, startCol)
}

// readNumber reads an integer or float literal
func (l *Lexer) readNumber() string {
	start := l.pos
	for l.pos < len(l.input) && unicode.IsDigit(rune(l.peek())) {
		l.advance()
	}
	// fractional part only when a digit follows the dot, so p.name lexes
	// as ident-dot-ident
	if l.pos < len(l.input) && l.peek() == '.' {
		if next, ok := l.peekAt(1); ok && unicode.IsDigit(rune(next)) {
			l.advance()
			for l.pos < len(l.input) && unicode.IsDigit(rune(l.peek())) {
				l.advance()
			}
		}
	}
	return l.input[start:l.pos]
}

// readIdent reads an identifier or keyword
func (l *Lexer) readIdent() string {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.peek()) {
		l.advance()
	}
	return l.input[start:l.pos]
}

// readSymbol reads a punctuation or operator token
func (l *Lexer) readSymbol() (TokenType, bool) {
	ch := l.peek()
	switch ch {
	case '(':
		l.advance()
		return TokenLeftParen, true
	case ')':
		l.advance()
		return TokenRightParen, true
	case '[':
		l.advance()
		return TokenLeftBracket, true
	case ']':
		l.advance()
		return TokenRightBracket, true
	case '{':
		l.advance()
		return TokenLeftBrace, true
	case '}':
		l.advance()
		return TokenRightBrace, true
	case ',':
		l.advance()
		return TokenComma, true
	case ':':
		l.advance()
		return TokenColon, true
	case '.':
		l.advance()
		return TokenDot, true
	case '=':
		l.advance()
		return TokenEq, true
	case '<':
		l.advance()
		if l.pos < len(l.input) {
			switch l.peek() {
			case '>':
				l.advance()
				return TokenNe, true
			case '=':
				l.advance()
				return TokenLe, true
			}
		}
		return TokenLt, true
	case '>':
		l.advance()
		if l.pos < len(l.input) && l.peek() == '=' {
			l.advance()
			return TokenGe, true
		}
		return TokenGt, true
	case '+':
		l.advance()
		return TokenPlus, true
	case '-':
		l.advance()
		return TokenMinus, true
	case '*':
		l.advance()
		return TokenStar, true
	case '/':
		l.advance()
		return TokenSlash, true
	}
	return TokenEOF, false
}

func isIdentStart(ch byte) bool {
	return ch == '_' || unicode.IsLetter(rune(ch))
}

func isIdentPart(ch byte) bool {
	return ch == '_' || unicode.IsLetter(rune(ch)) || unicode.IsDigit(rune(ch))
}
