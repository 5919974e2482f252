package parser

import (
	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/lexer"
)

// statementTerminators end a statement list without being consumed.
var statementTerminators = map[lexer.TokenType]bool{
	lexer.KwEndProgram:       true,
	lexer.KwEndFunction:      true,
	lexer.KwEndFunctionBlock: true,
	lexer.KwEndAction:        true,
	lexer.KwEndActions:       true,
	lexer.KwEndMethod:        true,
	lexer.KwEndClass:         true,
	lexer.KwEndIf:            true,
	lexer.KwEndCase:          true,
	lexer.KwEndFor:           true,
	lexer.KwEndWhile:         true,
	lexer.KwEndRepeat:        true,
	lexer.KwElse:             true,
	lexer.KwElsif:            true,
	lexer.KwUntil:            true,
	lexer.EOF:                true,
}

// parseStatementsUntil parses statements until the given terminator (or
// any statement-list terminator) is reached. The terminator is left for
// the caller to consume.
func (p *Parser) parseStatementsUntil(end lexer.TokenType) []ast.Statement {
	var stmts []ast.Statement
	for !p.curTokenIs(end) && !statementTerminators[p.curToken.Type] {
		stmts = append(stmts, p.parseStatement())
	}
	return stmts
}

// parseStatement parses a single statement including its terminating
// semicolon.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case lexer.SEMICOLON:
		stmt := &ast.EmptyStatement{NodeBase: p.base()}
		p.nextToken()
		return stmt
	case lexer.KwIf:
		return p.parseIfStatement()
	case lexer.KwCase:
		return p.parseCaseStatement()
	case lexer.KwFor:
		return p.parseForStatement()
	case lexer.KwWhile:
		return p.parseWhileStatement()
	case lexer.KwRepeat:
		return p.parseRepeatStatement()
	case lexer.KwReturn:
		stmt := &ast.ReturnStatement{NodeBase: p.base()}
		p.nextToken()
		p.expect(lexer.SEMICOLON)
		return stmt
	case lexer.KwExit:
		stmt := &ast.ExitStatement{NodeBase: p.base()}
		p.nextToken()
		p.expect(lexer.SEMICOLON)
		return stmt
	case lexer.KwContinue:
		stmt := &ast.ContinueStatement{NodeBase: p.base()}
		p.nextToken()
		p.expect(lexer.SEMICOLON)
		return stmt
	default:
		return p.parseAssignmentOrExpression()
	}
}

// parseAssignmentOrExpression parses `target := value;` or a call
// statement.
func (p *Parser) parseAssignmentOrExpression() ast.Statement {
	startPos := p.curToken.Pos
	expr := p.parseExpression(LOWEST)

	if p.curTokenIs(lexer.ASSIGN) {
		stmt := &ast.AssignmentStatement{NodeBase: p.baseAt(startPos), Target: expr}
		p.nextToken()
		stmt.Value = p.parseInitializer()
		p.expect(lexer.SEMICOLON)
		return stmt
	}

	stmt := &ast.ExpressionStatement{NodeBase: p.baseAt(startPos), Expr: expr}
	p.expect(lexer.SEMICOLON)
	return stmt
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{NodeBase: p.base()}
	p.nextToken() // consume IF
	stmt.Condition = p.parseExpression(LOWEST)
	p.expect(lexer.KwThen)
	stmt.Then = p.parseStatementsUntil(lexer.KwEndIf)

	for p.curTokenIs(lexer.KwElsif) {
		p.nextToken()
		branch := ast.ElsifBranch{Condition: p.parseExpression(LOWEST)}
		p.expect(lexer.KwThen)
		branch.Body = p.parseStatementsUntil(lexer.KwEndIf)
		stmt.Elsifs = append(stmt.Elsifs, branch)
	}
	if p.accept(lexer.KwElse) {
		stmt.Else = p.parseStatementsUntil(lexer.KwEndIf)
	}
	p.expect(lexer.KwEndIf)
	p.accept(lexer.SEMICOLON)
	return stmt
}

// caseLabelAhead reports whether the current position starts a new case
// label (`expr :` or `lo..hi :`).
func (p *Parser) caseLabelAhead() bool {
	switch p.curToken.Type {
	case lexer.INT, lexer.IDENT, lexer.TYPE_PREFIX, lexer.MINUS:
		return p.peekTokenIs(lexer.COLON) || p.peekTokenIs(lexer.DOTDOT) ||
			p.peekTokenIs(lexer.COMMA)
	}
	return false
}

func (p *Parser) parseCaseStatement() ast.Statement {
	stmt := &ast.CaseStatement{NodeBase: p.base()}
	p.nextToken() // consume CASE
	stmt.Selector = p.parseExpression(LOWEST)
	p.expect(lexer.KwOf)

	for !p.curTokenIs(lexer.KwEndCase) && !p.curTokenIs(lexer.KwElse) && !p.curTokenIs(lexer.EOF) {
		branch := ast.CaseBranch{}
		for {
			label := p.parseExpression(LOWEST)
			if p.curTokenIs(lexer.DOTDOT) {
				r := &ast.RangeExpression{NodeBase: p.base(), Start: label}
				p.nextToken()
				r.End = p.parseExpression(LOWEST)
				label = r
			}
			branch.Labels = append(branch.Labels, label)
			if !p.accept(lexer.COMMA) {
				break
			}
		}
		p.expect(lexer.COLON)
		for !p.caseLabelAhead() &&
			!p.curTokenIs(lexer.KwEndCase) && !p.curTokenIs(lexer.KwElse) && !p.curTokenIs(lexer.EOF) {
			branch.Body = append(branch.Body, p.parseStatement())
		}
		stmt.Branches = append(stmt.Branches, branch)
	}

	if p.accept(lexer.KwElse) {
		stmt.Else = p.parseStatementsUntil(lexer.KwEndCase)
	}
	p.expect(lexer.KwEndCase)
	p.accept(lexer.SEMICOLON)
	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.ForStatement{NodeBase: p.base()}
	p.nextToken() // consume FOR
	stmt.Counter = p.parseExpression(LOWEST)
	p.expect(lexer.ASSIGN)
	stmt.Start = p.parseExpression(LOWEST)
	p.expect(lexer.KwTo)
	stmt.End = p.parseExpression(LOWEST)
	if p.accept(lexer.KwBy) {
		stmt.By = p.parseExpression(LOWEST)
	}
	p.expect(lexer.KwDo)
	stmt.Body = p.parseStatementsUntil(lexer.KwEndFor)
	p.expect(lexer.KwEndFor)
	p.accept(lexer.SEMICOLON)
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{NodeBase: p.base()}
	p.nextToken() // consume WHILE
	stmt.Condition = p.parseExpression(LOWEST)
	p.expect(lexer.KwDo)
	stmt.Body = p.parseStatementsUntil(lexer.KwEndWhile)
	p.expect(lexer.KwEndWhile)
	p.accept(lexer.SEMICOLON)
	return stmt
}

func (p *Parser) parseRepeatStatement() ast.Statement {
	stmt := &ast.RepeatStatement{NodeBase: p.base()}
	p.nextToken() // consume REPEAT
	stmt.Body = p.parseStatementsUntil(lexer.KwUntil)
	p.expect(lexer.KwUntil)
	stmt.Condition = p.parseExpression(LOWEST)
	p.expect(lexer.KwEndRepeat)
	p.accept(lexer.SEMICOLON)
	return stmt
}
