// Package parser implements the recursive-descent parser for Structured
// Text. Expressions use Pratt parsing with a precedence table; statement
// and declaration parsing is plain recursive descent.
//
// The parser is recoverable: unexpected tokens produce a diagnostic, the
// token stream synchronizes at the next section keyword, and parsing
// continues. ParseFile always returns a best-effort CompilationUnit.
package parser

import (
	"fmt"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/diagnostic"
	"github.com/plc-foundry/go-stc/internal/lexer"
)

// Precedence levels for operators, lowest to highest.
const (
	_ int = iota
	LOWEST
	OR          // OR
	XOR         // XOR
	AND         // AND
	EQUALS      // = <>
	LESSGREATER // < > <= >=
	SUM         // + -
	PRODUCT     // * / MOD
	POWER       // **
	PREFIX      // -x, NOT x, &x
	CALL        // f(args)
	INDEX       // a[i]
	MEMBER      // a.b
	DEREF       // p^
)

// precedences maps token types to their binding power.
var precedences = map[lexer.TokenType]int{
	lexer.KwOr:       OR,
	lexer.KwXor:      XOR,
	lexer.KwAnd:      AND,
	lexer.EQ:         EQUALS,
	lexer.NOT_EQ:     EQUALS,
	lexer.LESS:       LESSGREATER,
	lexer.GREATER:    LESSGREATER,
	lexer.LESS_EQ:    LESSGREATER,
	lexer.GREATER_EQ: LESSGREATER,
	lexer.PLUS:       SUM,
	lexer.MINUS:      SUM,
	lexer.ASTERISK:   PRODUCT,
	lexer.SLASH:      PRODUCT,
	lexer.KwMod:      PRODUCT,
	lexer.POWER:      POWER,
	lexer.LPAREN:     CALL,
	lexer.LBRACK:     INDEX,
	lexer.DOT:        MEMBER,
	lexer.CARET:      DEREF,
}

// binaryOperators maps operator tokens to AST operators.
var binaryOperators = map[lexer.TokenType]ast.Operator{
	lexer.PLUS:       ast.OpPlus,
	lexer.MINUS:      ast.OpMinus,
	lexer.ASTERISK:   ast.OpMultiply,
	lexer.SLASH:      ast.OpDivide,
	lexer.KwMod:      ast.OpModulo,
	lexer.POWER:      ast.OpPower,
	lexer.EQ:         ast.OpEqual,
	lexer.NOT_EQ:     ast.OpNotEqual,
	lexer.LESS:       ast.OpLess,
	lexer.LESS_EQ:    ast.OpLessEqual,
	lexer.GREATER:    ast.OpGreater,
	lexer.GREATER_EQ: ast.OpGreaterEqual,
	lexer.KwAnd:      ast.OpAnd,
	lexer.KwOr:       ast.OpOr,
	lexer.KwXor:      ast.OpXor,
}

// Parser parses one compilation unit.
type Parser struct {
	l           *lexer.Lexer
	ids         ast.IdProvider
	fileName    string
	linkage     ast.LinkageType
	curToken    lexer.Token
	peekToken   lexer.Token
	diagnostics []diagnostic.Diagnostic
}

// ParseFile parses a source text into a CompilationUnit, returning the
// unit and all recoverable syntax diagnostics.
func ParseFile(source, fileName string, linkage ast.LinkageType, ids ast.IdProvider) (*ast.CompilationUnit, []diagnostic.Diagnostic) {
	p := &Parser{
		l:        lexer.New(source),
		ids:      ids,
		fileName: fileName,
		linkage:  linkage,
	}
	// Prime curToken and peekToken.
	p.nextToken()
	p.nextToken()

	unit := p.parseUnit()
	unit.FileName = fileName
	unit.Linkage = linkage

	for _, lexErr := range p.l.Errors() {
		p.diagnostics = append(p.diagnostics, diagnostic.Error(
			diagnostic.SyntaxError, lexErr.Message, p.locationAt(lexErr.Pos)))
	}
	return unit, p.diagnostics
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

// expect consumes the current token when it matches, or reports a syntax
// error and synchronizes.
func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.syntaxErrorf("expected %s, found %q", t, p.curToken.Literal)
	return false
}

// accept consumes the current token when it matches.
func (p *Parser) accept(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) base() ast.NodeBase {
	return ast.NewNodeBase(p.ids.Next(), p.curToken.Pos)
}

func (p *Parser) baseAt(pos lexer.Position) ast.NodeBase {
	return ast.NewNodeBase(p.ids.Next(), pos)
}

func (p *Parser) location() diagnostic.Location {
	return p.locationAt(p.curToken.Pos)
}

func (p *Parser) locationAt(pos lexer.Position) diagnostic.Location {
	return diagnostic.Location{File: p.fileName, Pos: pos}
}

func (p *Parser) syntaxErrorf(format string, args ...any) {
	p.diagnostics = append(p.diagnostics, diagnostic.Error(
		diagnostic.SyntaxError, fmt.Sprintf(format, args...), p.location()))
}

// syncTokens are the keywords the parser skips to after an error.
var syncTokens = map[lexer.TokenType]bool{
	lexer.KwEndVar:           true,
	lexer.KwEndIf:            true,
	lexer.KwEndFunction:      true,
	lexer.KwEndProgram:       true,
	lexer.KwEndFunctionBlock: true,
	lexer.KwEndType:          true,
	lexer.SEMICOLON:          true,
	lexer.EOF:                true,
}

// synchronize discards tokens until a synchronizing keyword, consuming a
// terminating semicolon so parsing resumes on fresh input.
func (p *Parser) synchronize() {
	for !syncTokens[p.curToken.Type] {
		p.nextToken()
	}
	p.accept(lexer.SEMICOLON)
}

// parseUnit parses the top-level structure of a source file.
func (p *Parser) parseUnit() *ast.CompilationUnit {
	unit := &ast.CompilationUnit{}

	pragmas := []string{}
	for !p.curTokenIs(lexer.EOF) {
		switch p.curToken.Type {
		case lexer.PRAGMA:
			pragmas = append(pragmas, p.curToken.Literal)
			p.nextToken()
			continue
		case lexer.KwType:
			unit.Types = append(unit.Types, p.parseTypeSection()...)
		case lexer.KwVarGlobal:
			unit.Globals = append(unit.Globals, p.parseVariableBlock())
		case lexer.KwProgram:
			unit.Pous = append(unit.Pous, p.parsePou(ast.PouProgram, pragmas, unit))
		case lexer.KwFunction:
			unit.Pous = append(unit.Pous, p.parsePou(ast.PouFunction, pragmas, unit))
		case lexer.KwFunctionBlock:
			unit.Pous = append(unit.Pous, p.parseFunctionBlock(pragmas, unit))
		case lexer.KwClass:
			unit.Pous = append(unit.Pous, p.parseClass(pragmas, unit)...)
		case lexer.KwAction:
			unit.Pous = append(unit.Pous, p.parseStandaloneAction())
		case lexer.KwActions:
			unit.Pous = append(unit.Pous, p.parseActionsBlock()...)
		default:
			p.syntaxErrorf("unexpected token %q at top level", p.curToken.Literal)
			p.synchronize()
		}
		pragmas = pragmas[:0]
	}
	return unit
}

// hasPragma reports whether a pragma list contains the given attribute.
func hasPragma(pragmas []string, name string) bool {
	for _, pr := range pragmas {
		if pr == name {
			return true
		}
	}
	return false
}
