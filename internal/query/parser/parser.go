// Package parser implements the restricted recursive-descent parser of spec
// §4.5 (component J): `MATCH <pattern> [WHERE <expr>] RETURN <items>
// [ORDER BY <expr> [ASC|DESC]] [LIMIT <int>]`.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
	"github.com/qilbeedb/qilbeedb/internal/query/ast"
	"github.com/qilbeedb/qilbeedb/internal/query/lexer"
)

// Parser consumes a token stream and builds a Statement.
type Parser struct {
	toks []lexer.Token
	pos  int
}

// Parse tokenizes and parses src in one call.
func Parse(src string) (*ast.Statement, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseStatement()
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k lexer.Kind) (lexer.Token, error) {
	if p.cur().Kind != k {
		return lexer.Token{}, p.errf("expected token kind %v, got %q", k, p.cur().Text)
	}
	return p.advance(), nil
}

func (p *Parser) errf(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return qerrors.Wrap("parser.Parse", fmt.Errorf("%w: %s at position %d", qerrors.ErrParse, msg, p.cur().Pos))
}

func (p *Parser) parseStatement() (*ast.Statement, error) {
	stmt := &ast.Statement{}

	if p.cur().Kind == lexer.OPTIONAL {
		p.advance()
	}
	if _, err := p.expect(lexer.MATCH); err != nil {
		return nil, err
	}
	pattern, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	stmt.Match = &ast.MatchClause{Pattern: pattern}

	if p.cur().Kind == lexer.WHERE {
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = expr
	}

	if _, err := p.expect(lexer.RETURN); err != nil {
		return nil, err
	}
	ret, err := p.parseReturnClause()
	if err != nil {
		return nil, err
	}
	stmt.Return = ret

	if p.cur().Kind == lexer.ORDER {
		p.advance()
		if _, err := p.expect(lexer.BY); err != nil {
			return nil, err
		}
		items, err := p.parseOrderItems()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = items
	}

	if p.cur().Kind == lexer.SKIP {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Skip = &n
	}

	if p.cur().Kind == lexer.LIMIT {
		p.advance()
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Limit = &n
	}

	if p.cur().Kind != lexer.EOF {
		return nil, p.errf("unexpected trailing token %q", p.cur().Text)
	}
	return stmt, nil
}

func (p *Parser) parseIntLiteral() (int64, error) {
	tok, err := p.expect(lexer.IntLiteral)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(tok.Text, 10, 64)
	if err != nil {
		return 0, p.errf("invalid integer literal %q", tok.Text)
	}
	return n, nil
}

// parseNodePattern parses `(var:Label {props})`; var and Label and the
// properties map are each optional.
func (p *Parser) parseNodePattern() (ast.NodePattern, error) {
	if _, err := p.expect(lexer.LParen); err != nil {
		return ast.NodePattern{}, err
	}
	var np ast.NodePattern
	if p.cur().Kind == lexer.Identifier {
		np.Variable = p.advance().Text
	}
	if p.cur().Kind == lexer.Colon {
		p.advance()
		label, err := p.expect(lexer.Identifier)
		if err != nil {
			return ast.NodePattern{}, err
		}
		np.Label = label.Text
	}
	if p.cur().Kind == lexer.LBrace {
		props, err := p.parsePropertiesLiteral()
		if err != nil {
			return ast.NodePattern{}, err
		}
		np.Properties = props
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return ast.NodePattern{}, err
	}
	return np, nil
}

func (p *Parser) parsePropertiesLiteral() (map[string]ast.Expr, error) {
	if _, err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	props := make(map[string]ast.Expr)
	for p.cur().Kind != lexer.RBrace {
		key, err := p.expect(lexer.Identifier)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		props[key.Text] = val
		if p.cur().Kind == lexer.Comma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBrace); err != nil {
		return nil, err
	}
	return props, nil
}

func (p *Parser) parseReturnClause() (*ast.ReturnClause, error) {
	rc := &ast.ReturnClause{}
	if p.cur().Kind == lexer.DISTINCT {
		p.advance()
		rc.Distinct = true
	}
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := ast.ReturnItem{Expr: expr}
		if p.cur().Kind == lexer.AS {
			p.advance()
			alias, err := p.expect(lexer.Identifier)
			if err != nil {
				return nil, err
			}
			item.Alias = alias.Text
		}
		rc.Items = append(rc.Items, item)
		if p.cur().Kind == lexer.Comma {
			p.advance()
			continue
		}
		break
	}
	return rc, nil
}

func (p *Parser) parseOrderItems() ([]ast.OrderItem, error) {
	var items []ast.OrderItem
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := ast.OrderItem{Expr: expr}
		switch p.cur().Kind {
		case lexer.ASC:
			p.advance()
		case lexer.DESC:
			p.advance()
			item.Descending = true
		}
		items = append(items, item)
		if p.cur().Kind == lexer.Comma {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

// --- expression grammar, lowest to highest precedence ---
// or -> xor -> and -> not -> comparison -> additive -> multiplicative -> unary -> primary

func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseXor()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.OR {
		p.advance()
		right, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseXor() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.XOR {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: ast.OpXor, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.AND {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Expr, error) {
	if p.cur().Kind == lexer.NOT {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return ast.UnaryNot{Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	op, ok := comparisonOp(p.cur().Kind)
	if !ok {
		if p.cur().Kind == lexer.IS {
			p.advance()
			negated := false
			if p.cur().Kind == lexer.NOT {
				p.advance()
				negated = true
			}
			if _, err := p.expect(lexer.NULL); err != nil {
				return nil, err
			}
			return ast.IsNullExpr{Operand: left, Negated: negated}, nil
		}
		return left, nil
	}
	p.advance()
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return ast.BinaryExpr{Op: op, Left: left, Right: right}, nil
}

func comparisonOp(k lexer.Kind) (ast.BinaryOp, bool) {
	switch k {
	case lexer.Equal:
		return ast.OpEqual, true
	case lexer.NotEqual:
		return ast.OpNotEqual, true
	case lexer.Less:
		return ast.OpLess, true
	case lexer.LessEqual:
		return ast.OpLessEqual, true
	case lexer.Greater:
		return ast.OpGreater, true
	case lexer.GreaterEqual:
		return ast.OpGreaterEqual, true
	default:
		return 0, false
	}
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.Plus || p.cur().Kind == lexer.Minus {
		op := ast.OpPlus
		if p.cur().Kind == lexer.Minus {
			op = ast.OpMinus
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.Star || p.cur().Kind == lexer.Slash || p.cur().Kind == lexer.Percent {
		var op ast.BinaryOp
		switch p.cur().Kind {
		case lexer.Star:
			op = ast.OpMultiply
		case lexer.Slash:
			op = ast.OpDivide
		case lexer.Percent:
			op = ast.OpModulo
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.cur().Kind == lexer.Minus {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.BinaryExpr{Op: ast.OpMinus, Left: ast.Literal{Value: property.Int(0)}, Right: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.IntLiteral:
		p.advance()
		n, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return nil, p.errf("invalid integer literal %q", tok.Text)
		}
		return ast.Literal{Value: property.Int(n)}, nil
	case lexer.FloatLiteral:
		p.advance()
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, p.errf("invalid float literal %q", tok.Text)
		}
		return ast.Literal{Value: property.Float(f)}, nil
	case lexer.StringLiteral:
		p.advance()
		return ast.Literal{Value: property.String(tok.Text)}, nil
	case lexer.TRUE:
		p.advance()
		return ast.Literal{Value: property.Bool(true)}, nil
	case lexer.FALSE:
		p.advance()
		return ast.Literal{Value: property.Bool(false)}, nil
	case lexer.NULL:
		p.advance()
		return ast.Literal{Value: property.Null()}, nil
	case lexer.Parameter:
		p.advance()
		return ast.ParameterRef{Name: tok.Text}, nil
	case lexer.Identifier:
		p.advance()
		if p.cur().Kind == lexer.Dot {
			p.advance()
			prop, err := p.expect(lexer.Identifier)
			if err != nil {
				return nil, err
			}
			return ast.PropertyAccess{Entity: tok.Text, Property: prop.Text}, nil
		}
		return ast.Variable{Name: tok.Text}, nil
	case lexer.LParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, p.errf("unexpected token %q", strings.TrimSpace(tok.Text))
	}
}
