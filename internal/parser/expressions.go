package parser

import (
	"strconv"
	"strings"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/lexer"
)

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// parseExpression is the Pratt entry point. The current token is the
// first token of the expression; on return the current token is the one
// following it.
func (p *Parser) parseExpression(precedence int) ast.Expression {
	left := p.parsePrefix()
	if left == nil {
		left = &ast.EmptyExpression{NodeBase: p.base()}
		p.synchronize()
		return left
	}

	for precedence < p.peekPrecedence() {
		left = p.parseInfix(left)
	}
	return left
}

// parsePrefix parses literals, names, unary operators and grouping.
func (p *Parser) parsePrefix() ast.Expression {
	switch p.curToken.Type {
	case lexer.IDENT:
		expr := &ast.Identifier{NodeBase: p.base(), Value: p.curToken.Literal}
		p.nextToken()
		return expr
	case lexer.INT:
		return p.parseIntegerLiteral()
	case lexer.REAL:
		return p.parseRealLiteral()
	case lexer.STRING:
		expr := &ast.StringLiteral{NodeBase: p.base(), Value: p.curToken.Literal}
		p.nextToken()
		return expr
	case lexer.WSTRING:
		expr := &ast.StringLiteral{NodeBase: p.base(), Value: p.curToken.Literal, Wide: true}
		p.nextToken()
		return expr
	case lexer.KwTrue:
		expr := &ast.BoolLiteral{NodeBase: p.base(), Value: true}
		p.nextToken()
		return expr
	case lexer.KwFalse:
		expr := &ast.BoolLiteral{NodeBase: p.base()}
		p.nextToken()
		return expr
	case lexer.KwNull:
		expr := &ast.NullLiteral{NodeBase: p.base()}
		p.nextToken()
		return expr
	case lexer.TIME_LIT:
		return p.parseTimeLiteral()
	case lexer.DATE_LIT:
		return p.parseDateLiteral()
	case lexer.TOD_LIT:
		return p.parseTimeOfDayLiteral()
	case lexer.DATETIME_LIT:
		return p.parseDateAndTimeLiteral()
	case lexer.TYPE_PREFIX:
		return p.parseCastExpression()
	case lexer.DIRECT_ADDRESS:
		expr := &ast.HardwareAccessExpression{NodeBase: p.base(), Address: p.curToken.Literal}
		p.nextToken()
		return expr
	case lexer.MINUS:
		base := p.base()
		p.nextToken()
		return &ast.UnaryExpression{NodeBase: base, Operator: ast.OpMinus, Operand: p.parseExpression(PREFIX)}
	case lexer.PLUS:
		p.nextToken()
		return p.parseExpression(PREFIX)
	case lexer.KwNot:
		base := p.base()
		p.nextToken()
		return &ast.UnaryExpression{NodeBase: base, Operator: ast.OpNot, Operand: p.parseExpression(PREFIX)}
	case lexer.AMPERSAND:
		base := p.base()
		p.nextToken()
		return &ast.UnaryExpression{NodeBase: base, Operator: ast.OpAddress, Operand: p.parseExpression(PREFIX)}
	case lexer.LPAREN:
		return p.parseGroupedExpression()
	default:
		p.syntaxErrorf("unexpected token %q in expression", p.curToken.Literal)
		return nil
	}
}

// parseInfix extends left with the operator at the current token.
func (p *Parser) parseInfix(left ast.Expression) ast.Expression {
	switch p.curToken.Type {
	case lexer.LPAREN:
		return p.parseCallExpression(left)
	case lexer.LBRACK:
		return p.parseIndexExpression(left)
	case lexer.DOT:
		return p.parseMemberExpression(left)
	case lexer.CARET:
		expr := &ast.DerefExpression{NodeBase: p.base(), Base: left}
		p.nextToken()
		return expr
	default:
		op, ok := binaryOperators[p.curToken.Type]
		if !ok {
			p.syntaxErrorf("unexpected operator %q", p.curToken.Literal)
			p.nextToken()
			return left
		}
		base := p.base()
		precedence := p.peekPrecedence()
		p.nextToken()
		return &ast.BinaryExpression{
			NodeBase: base,
			Operator: op,
			Left:     left,
			Right:    p.parseExpression(precedence),
		}
	}
}

// parseCallExpression parses `callee(arg, name := arg, out => target)`.
func (p *Parser) parseCallExpression(callee ast.Expression) ast.Expression {
	call := &ast.CallExpression{NodeBase: p.base(), Callee: callee}
	p.nextToken() // consume (
	for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
		call.Arguments = append(call.Arguments, p.parseCallArgument())
		if !p.accept(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RPAREN)
	return call
}

// parseCallArgument handles the named-parameter forms inside calls.
func (p *Parser) parseCallArgument() ast.Expression {
	if p.curTokenIs(lexer.IDENT) &&
		(p.peekTokenIs(lexer.ASSIGN) || p.peekTokenIs(lexer.ARROW_OUT)) {
		name := &ast.Identifier{NodeBase: p.base(), Value: p.curToken.Literal}
		p.nextToken()
		output := p.curTokenIs(lexer.ARROW_OUT)
		base := p.base()
		p.nextToken()
		return &ast.ParamAssignment{
			NodeBase: base,
			Name:     name,
			Value:    p.parseExpression(LOWEST),
			Output:   output,
		}
	}
	return p.parseExpression(LOWEST)
}

// parseIndexExpression parses `base[i, j]`.
func (p *Parser) parseIndexExpression(base ast.Expression) ast.Expression {
	expr := &ast.IndexExpression{NodeBase: p.base(), Base: base}
	p.nextToken() // consume [
	for !p.curTokenIs(lexer.RBRACK) && !p.curTokenIs(lexer.EOF) {
		expr.Indices = append(expr.Indices, p.parseExpression(LOWEST))
		if !p.accept(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RBRACK)
	return expr
}

// parseMemberExpression parses `base.member` where member is a name or a
// partial access such as %X1.
func (p *Parser) parseMemberExpression(base ast.Expression) ast.Expression {
	expr := &ast.MemberExpression{NodeBase: p.base(), Base: base}
	p.nextToken() // consume .
	switch p.curToken.Type {
	case lexer.IDENT:
		expr.Member = &ast.Identifier{NodeBase: p.base(), Value: p.curToken.Literal}
		p.nextToken()
	case lexer.INT:
		// bit access shorthand: x.3
		expr.Member = p.parseDirectAccessFromInt()
	case lexer.DIRECT_ADDRESS:
		expr.Member = p.parseDirectAccessMember()
	default:
		p.syntaxErrorf("expected member name, found %q", p.curToken.Literal)
		expr.Member = &ast.Identifier{NodeBase: p.base(), Value: "__error__"}
	}
	return expr
}

// parseDirectAccessFromInt handles the `x.3` bit-access shorthand.
func (p *Parser) parseDirectAccessFromInt() ast.Expression {
	base := p.base()
	value, _ := strconv.ParseInt(p.curToken.Literal, 10, 64)
	index := &ast.IntegerLiteral{NodeBase: p.base(), Value: value}
	p.nextToken()
	return &ast.DirectAccessExpression{NodeBase: base, Width: ast.AccessBit, Index: index}
}

// directAccessWidths maps the accessor letter of a partial access to its
// width.
var directAccessWidths = map[byte]ast.DirectAccessWidth{
	'X': ast.AccessBit,
	'B': ast.AccessByte,
	'W': ast.AccessWord,
	'D': ast.AccessDWord,
	'L': ast.AccessLWord,
}

// parseDirectAccessMember parses the %X1 member of `a.%X1`. The lexer
// hands the address without the leading '%'.
func (p *Parser) parseDirectAccessMember() ast.Expression {
	base := p.base()
	literal := p.curToken.Literal
	p.nextToken()
	if literal == "" {
		p.syntaxErrorf("invalid partial access")
		return &ast.Identifier{NodeBase: base, Value: "__error__"}
	}
	width, ok := directAccessWidths[literal[0]&^0x20] // fold to upper case
	if !ok {
		p.syntaxErrorf("invalid access width %q", string(literal[0]))
		return &ast.Identifier{NodeBase: base, Value: "__error__"}
	}
	index := int64(0)
	if len(literal) > 1 {
		index, _ = strconv.ParseInt(literal[1:], 10, 64)
	}
	return &ast.DirectAccessExpression{
		NodeBase: base,
		Width:    width,
		Index:    &ast.IntegerLiteral{NodeBase: p.baseAt(base.Location), Value: index},
	}
}

// parseGroupedExpression parses `( ... )`: a grouped expression, or an
// aggregate initializer when it contains commas or `field :=` entries.
func (p *Parser) parseGroupedExpression() ast.Expression {
	base := p.base()
	p.nextToken() // consume (

	var elements []ast.Expression
	sawAggregate := false
	for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
		elements = append(elements, p.parseAggregateElement(&sawAggregate))
		if p.accept(lexer.COMMA) {
			sawAggregate = true
			continue
		}
		break
	}
	p.expect(lexer.RPAREN)

	if len(elements) == 1 && !sawAggregate {
		return &ast.ParenExpression{NodeBase: base, Inner: elements[0]}
	}
	return &ast.InitializerList{NodeBase: base, Elements: elements, Bracketed: true}
}

// parseAggregateElement parses one element of a parenthesized list,
// recognizing `field := value` entries.
func (p *Parser) parseAggregateElement(sawAggregate *bool) ast.Expression {
	if p.curTokenIs(lexer.IDENT) && p.peekTokenIs(lexer.ASSIGN) {
		*sawAggregate = true
		key := &ast.Identifier{NodeBase: p.base(), Value: p.curToken.Literal}
		p.nextToken()
		base := p.base()
		p.nextToken() // consume :=
		var value ast.Expression
		if p.curTokenIs(lexer.LPAREN) {
			value = p.parseGroupedExpression()
		} else if p.curTokenIs(lexer.LBRACK) {
			value = p.parseBracketInitializer()
		} else {
			value = p.parseExpression(LOWEST)
		}
		return &ast.KeyValueExpression{NodeBase: base, Key: key, Value: value}
	}
	return p.parseExpression(LOWEST)
}

// parseIntegerLiteral decodes decimal and based (base#digits) literals.
func (p *Parser) parseIntegerLiteral() ast.Expression {
	base := p.base()
	literal := strings.ReplaceAll(p.curToken.Literal, "_", "")
	p.nextToken()

	radix := 10
	digits := literal
	if idx := strings.IndexByte(literal, '#'); idx >= 0 {
		parsedRadix, err := strconv.Atoi(literal[:idx])
		if err != nil || (parsedRadix != 2 && parsedRadix != 8 && parsedRadix != 16) {
			p.syntaxErrorf("unsupported literal base %q", literal[:idx])
			return &ast.IntegerLiteral{NodeBase: base}
		}
		radix = parsedRadix
		digits = literal[idx+1:]
	}

	value, err := strconv.ParseUint(digits, radix, 64)
	if err != nil {
		p.syntaxErrorf("invalid integer literal %q", literal)
		return &ast.IntegerLiteral{NodeBase: base}
	}
	return &ast.IntegerLiteral{NodeBase: base, Value: int64(value)}
}

// parseRealLiteral decodes a floating-point literal.
func (p *Parser) parseRealLiteral() ast.Expression {
	base := p.base()
	literal := strings.ReplaceAll(p.curToken.Literal, "_", "")
	p.nextToken()
	value, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		p.syntaxErrorf("invalid real literal %q", literal)
		return &ast.RealLiteral{NodeBase: base}
	}
	return &ast.RealLiteral{NodeBase: base, Value: value}
}

// parseCastExpression parses a typed literal: INT#42, BOOL#TRUE,
// WSTRING#"abc". The prefix token carries the type name.
func (p *Parser) parseCastExpression() ast.Expression {
	base := p.base()
	typeName := p.curToken.Literal
	p.nextToken()
	return &ast.CastExpression{
		NodeBase: base,
		TypeName: typeName,
		Expr:     p.parseExpression(PREFIX),
	}
}
