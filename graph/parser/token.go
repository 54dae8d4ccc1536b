package parser

import "fmt"

// TokenType represents the type of a query token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent            // identifiers and keywords (MATCH, p, Person)
	TokenNumber           // integer or float literal
	TokenString           // quoted string literal
	TokenParameter        // $name
	TokenLeftParen        // (
	TokenRightParen       // )
	TokenLeftBracket      // [
	TokenRightBracket     // ]
	TokenLeftBrace        // {
	TokenRightBrace       // }
	TokenComma            // ,
	TokenColon            // :
	TokenDot              // .
	TokenEq               // =
	TokenNe               // <>
	TokenLt               // <
	TokenLe               // <=
	TokenGt               // >
	TokenGe               // >=
	TokenPlus             // +
	TokenMinus            // -
	TokenStar             // *
	TokenSlash            // /
)

// Token represents a lexical token in query text
type Token struct {
	Type  TokenType
	Value string
	Line  int
	Col   int
}

// String returns a string representation of the token
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return fmt.Sprintf("EOF[%d:%d]", t.Line, t.Col)
	case TokenIdent:
		return fmt.Sprintf("Ident[%d:%d]:%s", t.Line, t.Col, t.Value)
	case TokenNumber:
		return fmt.Sprintf("Number[%d:%d]:%s", t.Line, t.Col, t.Value)
	case TokenString:
		return fmt.Sprintf("String[%d:%d]:%q", t.Line, t.Col, t.Value)
	case TokenParameter:
		return fmt.Sprintf("Parameter[%d:%d]:$%s", t.Line, t.Col, t.Value)
	default:
		return fmt.Sprintf("%s[%d:%d]", t.symbol(), t.Line, t.Col)
	}
}

func (t Token) symbol() string {
	switch t.Type {
	case TokenLeftParen:
		return "("
	case TokenRightParen:
		return ")"
	case TokenLeftBracket:
		return "["
	case TokenRightBracket:
		return "]"
	case TokenLeftBrace:
		return "{"
	case TokenRightBrace:
		return "}"
	case TokenComma:
		return ","
	case TokenColon:
		return ":"
	case TokenDot:
		return "."
	case TokenEq:
		return "="
	case TokenNe:
		return "<>"
	case TokenLt:
		return "<"
	case TokenLe:
		return "<="
	case TokenGt:
		return ">"
	case TokenGe:
		return ">="
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	default:
		return fmt.Sprintf("Token(%d)", t.Type)
	}
}
