// Package parser turns Cypher-subset query text into the AST consumed by
// the pattern compiler. The supported surface is MATCH patterns with
// inline properties, WHERE, RETURN with aliases and aggregates, ORDER BY
// and LIMIT. Anything else is a ParseError.
package parser

import (
	"strconv"
	"strings"

	"github.com/leiyuou/lance-graph/graph"
	"github.com/leiyuou/lance-graph/graph/ast"
)

// ParseQuery parses Cypher-subset query text into an AST
func ParseQuery(input string) (*ast.Query, error) {
	if strings.TrimSpace(input) == "" {
		return nil, graph.Errorf(graph.ParseError, "empty query")
	}

	lexer := NewLexer(input)
	if err := lexer.Lex(); err != nil {
		return nil, err
	}

	p := &parser{tokens: lexer.Tokens()}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != TokenEOF {
		return nil, p.errorf("unexpected %s after end of query", p.peek())
	}
	return q, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(t TokenType, what string) (Token, error) {
	tok := p.next()
	if tok.Type != t {
		return tok, p.errorf("expected %s, got %s", what, tok)
	}
	return tok, nil
}

// peekKeyword reports whether the current token is the given keyword,
// matched case-insensitively.
func (p *parser) peekKeyword(word string) bool {
	tok := p.peek()
	return tok.Type == TokenIdent && strings.EqualFold(tok.Value, word)
}

// acceptKeyword consumes the current token when it is the given keyword.
func (p *parser) acceptKeyword(word string) bool {
	if p.peekKeyword(word) {
		p.next()
		return true
	}
	return false
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return graph.Errorf(graph.ParseError, format, args...)
}

// parseQuery parses: MATCH ... [WHERE ...] RETURN ... [ORDER BY ...] [LIMIT n]
func (p *parser) parseQuery() (*ast.Query, error) {
	q := &ast.Query{}

	if !p.acceptKeyword("MATCH") {
		return nil, p.errorf("query must start with MATCH, got %s", p.peek())
	}

	for {
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		q.Match = append(q.Match, path)
		if p.peek().Type != TokenComma {
			break
		}
		p.next()
	}

	if p.acceptKeyword("WHERE") {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		q.Where = expr
	}

	if !p.acceptKeyword("RETURN") {
		return nil, p.errorf("expected RETURN, got %s", p.peek())
	}
	for {
		item, err := p.parseReturnItem()
		if err != nil {
			return nil, err
		}
		q.Return = append(q.Return, item)
		if p.peek().Type != TokenComma {
			break
		}
		p.next()
	}

	if p.acceptKeyword("ORDER") {
		if !p.acceptKeyword("BY") {
			return nil, p.errorf("expected BY after ORDER, got %s", p.peek())
		}
		for {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			item := ast.OrderItem{Expr: expr}
			if p.acceptKeyword("DESC") {
				item.Descending = true
			} else {
				p.acceptKeyword("ASC")
			}
			q.OrderBy = append(q.OrderBy, item)
			if p.peek().Type != TokenComma {
				break
			}
			p.next()
		}
	}

	if p.acceptKeyword("LIMIT") {
		tok, err := p.expect(TokenNumber, "row count after LIMIT")
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil || n < 0 {
			return nil, p.errorf("LIMIT must be a non-negative integer, got %s", tok.Value)
		}
		q.Limit = &n
	}

	return q, nil
}

// parsePath parses: node (relationship node)*
func (p *parser) parsePath() (ast.PathPattern, error) {
	var path ast.PathPattern

	node, err := p.parseNodePattern()
	if err != nil {
		return path, err
	}
	path.Nodes = append(path.Nodes, node)

	for {
		tok := p.peek()
		if tok.Type != TokenMinus && tok.Type != TokenLt {
			break
		}
		rel, err := p.parseRelationshipPattern()
		if err != nil {
			return path, err
		}
		node, err := p.parseNodePattern()
		if err != nil {
			return path, err
		}
		path.Relationships = append(path.Relationships, rel)
		path.Nodes = append(path.Nodes, node)
	}

	return path, nil
}

// parseNodePattern parses: '(' [var] [':' Label] [{props}] ')'
func (p *parser) parseNodePattern() (ast.NodePattern, error) {
	var node ast.NodePattern

	if _, err := p.expect(TokenLeftParen, "'(' starting a node pattern"); err != nil {
		return node, err
	}

	if p.peek().Type == TokenIdent {
		node.Variable = p.next().Value
	}
	if p.peek().Type == TokenColon {
		p.next()
		tok, err := p.expect(TokenIdent, "node label after ':'")
		if err != nil {
			return node, err
		}
		node.Label = tok.Value
	}
	if p.peek().Type == TokenLeftBrace {
		props, err := p.parseProperties()
		if err != nil {
			return node, err
		}
		node.Properties = props
	}

	if _, err := p.expect(TokenRightParen, "')' closing a node pattern"); err != nil {
		return node, err
	}
	return node, nil
}

// parseProperties parses: '{' key ':' value (',' key ':' value)* '}'
func (p *parser) parseProperties() ([]ast.PropertyPredicate, error) {
	if _, err := p.expect(TokenLeftBrace, "'{'"); err != nil {
		return nil, err
	}

	var props []ast.PropertyPredicate
	for {
		if p.peek().Type == TokenRightBrace {
			p.next()
			return props, nil
		}
		key, err := p.expect(TokenIdent, "property name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenColon, "':' after property name"); err != nil {
			return nil, err
		}
		value, err := p.parsePropertyValue()
		if err != nil {
			return nil, err
		}
		props = append(props, ast.PropertyPredicate{Key: key.Value, Value: value})

		if p.peek().Type == TokenComma {
			p.next()
			continue
		}
		if _, err := p.expect(TokenRightBrace, "'}' closing properties"); err != nil {
			return nil, err
		}
		return props, nil
	}
}

// parsePropertyValue parses a literal or parameter inline property value
func (p *parser) parsePropertyValue() (ast.Expression, error) {
	tok := p.peek()
	switch tok.Type {
	case TokenString:
		p.next()
		return &ast.Literal{Value: tok.Value}, nil
	case TokenNumber:
		p.next()
		return numberLiteral(tok.Value)
	case TokenParameter:
		p.next()
		return &ast.Parameter{Name: tok.Value}, nil
	case TokenMinus:
		p.next()
		num, err := p.expect(TokenNumber, "number after '-'")
		if err != nil {
			return nil, err
		}
		lit, err := numberLiteral(num.Value)
		if err != nil {
			return nil, err
		}
		return negateLiteral(lit), nil
	case TokenIdent:
		if strings.EqualFold(tok.Value, "true") {
			p.next()
			return &ast.Literal{Value: true}, nil
		}
		if strings.EqualFold(tok.Value, "false") {
			p.next()
			return &ast.Literal{Value: false}, nil
		}
		if strings.EqualFold(tok.Value, "null") {
			p.next()
			return &ast.Literal{Value: nil}, nil
		}
	}
	return nil, p.errorf("expected literal property value, got %s", tok)
}

// parseRelationshipPattern parses -[v:TYPE]->, <-[v:TYPE]- and -[v:TYPE]-
func (p *parser) parseRelationshipPattern() (ast.RelationshipPattern, error) {
	var rel ast.RelationshipPattern

	incoming := false
	if p.peek().Type == TokenLt {
		p.next()
		incoming = true
	}
	if _, err := p.expect(TokenMinus, "'-' in relationship pattern"); err != nil {
		return rel, err
	}
	if _, err := p.expect(TokenLeftBracket, "'[' in relationship pattern"); err != nil {
		return rel, err
	}

	if p.peek().Type == TokenIdent {
		rel.Variable = p.next().Value
	}
	if p.peek().Type == TokenColon {
		p.next()
		tok, err := p.expect(TokenIdent, "relationship type after ':'")
		if err != nil {
			return rel, err
		}
		rel.Type = tok.Value
	}

	if _, err := p.expect(TokenRightBracket, "']' in relationship pattern"); err != nil {
		return rel, err
	}
	if _, err := p.expect(TokenMinus, "'-' after ']'"); err != nil {
		return rel, err
	}

	switch {
	case incoming:
		rel.Direction = ast.DirectionIncoming
	case p.peek().Type == TokenGt:
		p.next()
		rel.Direction = ast.DirectionOutgoing
	default:
		rel.Direction = ast.DirectionEither
	}
	return rel, nil
}

// parseReturnItem parses: expr [AS alias]
func (p *parser) parseReturnItem() (ast.ReturnItem, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return ast.ReturnItem{}, err
	}
	item := ast.ReturnItem{Expr: expr}
	if p.acceptKeyword("AS") {
		tok, err := p.expect(TokenIdent, "alias after AS")
		if err != nil {
			return item, err
		}
		item.Alias = tok.Value
	}
	return item, nil
}

// Expression grammar, loosest to tightest binding:
// OR < AND < NOT < comparison/string-match < additive < multiplicative < unary

func (p *parser) parseExpression() (ast.Expression, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (ast.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Boolean{Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.Boolean{Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (ast.Expression, error) {
	if p.acceptKeyword("NOT") {
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Not{Expr: inner}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (ast.Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	var op ast.ComparisonOp
	switch p.peek().Type {
	case TokenEq:
		op = ast.OpEq
	case TokenNe:
		op = ast.OpNe
	case TokenLt:
		op = ast.OpLt
	case TokenLe:
		op = ast.OpLe
	case TokenGt:
		op = ast.OpGt
	case TokenGe:
		op = ast.OpGe
	default:
		return p.parseStringMatch(left)
	}
	p.next()

	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &ast.Comparison{Op: op, Left: left, Right: right}, nil
}

// parseStringMatch handles CONTAINS, STARTS WITH and ENDS WITH after a
// parsed left operand.
func (p *parser) parseStringMatch(left ast.Expression) (ast.Expression, error) {
	var kind ast.StringMatchKind
	switch {
	case p.acceptKeyword("CONTAINS"):
		kind = ast.MatchContains
	case p.peekKeyword("STARTS"):
		p.next()
		if !p.acceptKeyword("WITH") {
			return nil, p.errorf("expected WITH after STARTS, got %s", p.peek())
		}
		kind = ast.MatchStartsWith
	case p.peekKeyword("ENDS"):
		p.next()
		if !p.acceptKeyword("WITH") {
			return nil, p.errorf("expected WITH after ENDS, got %s", p.peek())
		}
		kind = ast.MatchEndsWith
	default:
		return left, nil
	}

	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &ast.StringMatch{Kind: kind, Left: left, Right: right}, nil
}

func (p *parser) parseAdditive() (ast.Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.ArithmeticOp
		switch p.peek().Type {
		case TokenPlus:
			op = ast.OpAdd
		case TokenMinus:
			op = ast.OpSub
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Arithmetic{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.ArithmeticOp
		switch p.peek().Type {
		case TokenStar:
			op = ast.OpMul
		case TokenSlash:
			op = ast.OpDiv
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Arithmetic{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (ast.Expression, error) {
	if p.peek().Type == TokenMinus {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := inner.(*ast.Literal); ok {
			return negateLiteral(lit), nil
		}
		// -expr as 0 - expr
		return &ast.Arithmetic{Op: ast.OpSub, Left: &ast.Literal{Value: int64(0)}, Right: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ast.Expression, error) {
	tok := p.peek()
	switch tok.Type {
	case TokenNumber:
		p.next()
		return numberLiteral(tok.Value)

	case TokenString:
		p.next()
		return &ast.Literal{Value: tok.Value}, nil

	case TokenParameter:
		p.next()
		return &ast.Parameter{Name: tok.Value}, nil

	case TokenLeftParen:
		p.next()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRightParen, "')'"); err != nil {
			return nil, err
		}
		return expr, nil

	case TokenIdent:
		switch {
		case strings.EqualFold(tok.Value, "true"):
			p.next()
			return &ast.Literal{Value: true}, nil
		case strings.EqualFold(tok.Value, "false"):
			p.next()
			return &ast.Literal{Value: false}, nil
		case strings.EqualFold(tok.Value, "null"):
			p.next()
			return &ast.Literal{Value: nil}, nil
		}
		return p.parseIdentExpression()
	}
	return nil, p.errorf("unexpected %s in expression", tok)
}

// parseIdentExpression parses variable.property access and aggregate
// function calls. A bare identifier is only valid as a function name;
// function validity itself is checked by the compiler.
func (p *parser) parseIdentExpression() (ast.Expression, error) {
	name, err := p.expect(TokenIdent, "identifier")
	if err != nil {
		return nil, err
	}

	switch p.peek().Type {
	case TokenDot:
		p.next()
		prop, err := p.expect(TokenIdent, "property name after '.'")
		if err != nil {
			return nil, err
		}
		return &ast.Property{Variable: name.Value, Name: prop.Value}, nil

	case TokenLeftParen:
		p.next()
		agg := &ast.Aggregate{Func: strings.ToLower(name.Value)}
		if p.peek().Type == TokenStar {
			p.next()
		} else {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			agg.Arg = arg
		}
		if _, err := p.expect(TokenRightParen, "')' closing function call"); err != nil {
			return nil, err
		}
		return agg, nil
	}
	return nil, p.errorf("expected '.' or '(' after identifier %q", name.Value)
}

// numberLiteral converts lexed digits to an int64 or float64 literal
func numberLiteral(text string) (*ast.Literal, error) {
	if strings.Contains(text, ".") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, graph.Errorf(graph.ParseError, "invalid number %q", text)
		}
		return &ast.Literal{Value: f}, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, graph.Errorf(graph.ParseError, "invalid number %q", text)
	}
	return &ast.Literal{Value: n}, nil
}

// negateLiteral flips the sign of a numeric literal
func negateLiteral(lit *ast.Literal) *ast.Literal {
	switch v := lit.Value.(type) {
	case int64:
		return &ast.Literal{Value: -v}
	case float64:
		return &ast.Literal{Value: -v}
	}
	return lit
}
