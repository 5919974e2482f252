package parser

import (
	"strings"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/lexer"
)

// parsePou parses PROGRAM and FUNCTION declarations (the shared shape);
// function blocks and classes have their own entry points for members.
// Programs may nest ACTION declarations inside their body; those are
// appended to the unit directly.
func (p *Parser) parsePou(kind ast.PouKind, pragmas []string, unit *ast.CompilationUnit) *ast.POU {
	pou := &ast.POU{
		NodeBase: p.base(),
		Kind:     kind,
		Linkage:  p.linkage,
	}
	if hasPragma(pragmas, "external") {
		pou.Linkage = ast.LinkageExternal
	}
	p.nextToken() // consume PROGRAM / FUNCTION

	if !p.curTokenIs(lexer.IDENT) {
		p.syntaxErrorf("expected POU name, found %q", p.curToken.Literal)
		p.synchronize()
		return pou
	}
	pou.Name = p.curToken.Literal
	p.nextToken()

	// Generic type parameters: FUNCTION name<T: ANY_INT, U: ANY_NUM>
	if p.curTokenIs(lexer.LESS) {
		pou.Generics = p.parseGenericBindings()
	}

	// Return type: FUNCTION name : INT
	if p.accept(lexer.COLON) {
		pou.ReturnType = p.parseTypeDecl()
	}

	pou.Blocks = p.parseVariableBlocks()

	end := endTokenFor(kind)
	var body []ast.Statement
	for !p.curTokenIs(end) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.KwAction) && kind == ast.PouProgram {
			unit.Pous = append(unit.Pous, p.parseNestedAction(pou.Name))
			continue
		}
		if statementTerminators[p.curToken.Type] {
			break
		}
		body = append(body, p.parseStatement())
	}
	pou.Body = body
	p.accept(end)
	return pou
}

func endTokenFor(kind ast.PouKind) lexer.TokenType {
	switch kind {
	case ast.PouProgram:
		return lexer.KwEndProgram
	case ast.PouFunction:
		return lexer.KwEndFunction
	case ast.PouFunctionBlock:
		return lexer.KwEndFunctionBlock
	case ast.PouClass:
		return lexer.KwEndClass
	case ast.PouMethod:
		return lexer.KwEndMethod
	default:
		return lexer.KwEndAction
	}
}

// parseGenericBindings parses <T: ANY_INT, U: ANY>.
func (p *Parser) parseGenericBindings() []ast.GenericBinding {
	var bindings []ast.GenericBinding
	p.nextToken() // consume <
	for !p.curTokenIs(lexer.GREATER) && !p.curTokenIs(lexer.EOF) {
		if !p.curTokenIs(lexer.IDENT) {
			p.syntaxErrorf("expected type parameter name, found %q", p.curToken.Literal)
			p.synchronize()
			return bindings
		}
		binding := ast.GenericBinding{Name: p.curToken.Literal, Nature: "ANY"}
		p.nextToken()
		if p.accept(lexer.COLON) {
			if p.curTokenIs(lexer.IDENT) {
				binding.Nature = strings.ToUpper(p.curToken.Literal)
				p.nextToken()
			} else {
				p.syntaxErrorf("expected nature constraint, found %q", p.curToken.Literal)
			}
		}
		bindings = append(bindings, binding)
		if !p.accept(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.GREATER)
	return bindings
}

// parseFunctionBlock parses FUNCTION_BLOCK with nested actions and
// methods; the nested POUs are appended to the unit directly.
func (p *Parser) parseFunctionBlock(pragmas []string, unit *ast.CompilationUnit) *ast.POU {
	pou := &ast.POU{
		NodeBase: p.base(),
		Kind:     ast.PouFunctionBlock,
		Linkage:  p.linkage,
	}
	if hasPragma(pragmas, "external") {
		pou.Linkage = ast.LinkageExternal
	}
	p.nextToken()

	if !p.curTokenIs(lexer.IDENT) {
		p.syntaxErrorf("expected function block name, found %q", p.curToken.Literal)
		p.synchronize()
		return pou
	}
	pou.Name = p.curToken.Literal
	p.nextToken()

	pou.Blocks = p.parseVariableBlocks()

	// Body statements, with nested ACTION / METHOD declarations.
	var body []ast.Statement
	for !p.curTokenIs(lexer.KwEndFunctionBlock) && !p.curTokenIs(lexer.EOF) {
		switch p.curToken.Type {
		case lexer.KwAction:
			unit.Pous = append(unit.Pous, p.parseNestedAction(pou.Name))
		case lexer.KwMethod:
			unit.Pous = append(unit.Pous, p.parseMethod(pou.Name))
		default:
			body = append(body, p.parseStatement())
		}
	}
	pou.Body = body
	p.accept(lexer.KwEndFunctionBlock)
	return pou
}

// parseClass parses CLASS declarations. The class POU comes first in the
// returned slice, followed by its methods.
func (p *Parser) parseClass(pragmas []string, unit *ast.CompilationUnit) []*ast.POU {
	pou := &ast.POU{
		NodeBase: p.base(),
		Kind:     ast.PouClass,
		Linkage:  p.linkage,
	}
	if hasPragma(pragmas, "external") {
		pou.Linkage = ast.LinkageExternal
	}
	p.nextToken()

	if !p.curTokenIs(lexer.IDENT) {
		p.syntaxErrorf("expected class name, found %q", p.curToken.Literal)
		p.synchronize()
		return []*ast.POU{pou}
	}
	pou.Name = p.curToken.Literal
	p.nextToken()

	// EXTENDS is spelled as an identifier to keep the keyword set small.
	if p.curTokenIs(lexer.IDENT) && strings.EqualFold(p.curToken.Literal, "extends") {
		p.nextToken()
		if p.curTokenIs(lexer.IDENT) {
			pou.SuperClass = p.curToken.Literal
			p.nextToken()
		}
	}

	pou.Blocks = p.parseVariableBlocks()

	pous := []*ast.POU{pou}
	for !p.curTokenIs(lexer.KwEndClass) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.KwMethod) {
			pous = append(pous, p.parseMethod(pou.Name))
		} else {
			p.syntaxErrorf("unexpected token %q in class body", p.curToken.Literal)
			p.synchronize()
		}
	}
	p.accept(lexer.KwEndClass)
	return pous
}

// parseMethod parses METHOD name [: type] ... END_METHOD inside a class
// or function block.
func (p *Parser) parseMethod(parent string) *ast.POU {
	pou := &ast.POU{
		NodeBase:   p.base(),
		Kind:       ast.PouMethod,
		ParentName: parent,
		Linkage:    p.linkage,
	}
	p.nextToken()
	if p.curTokenIs(lexer.IDENT) {
		pou.Name = p.curToken.Literal
		p.nextToken()
	} else {
		p.syntaxErrorf("expected method name, found %q", p.curToken.Literal)
	}
	if p.accept(lexer.COLON) {
		pou.ReturnType = p.parseTypeDecl()
	}
	pou.Blocks = p.parseVariableBlocks()
	pou.Body = p.parseStatementsUntil(lexer.KwEndMethod)
	p.accept(lexer.KwEndMethod)
	return pou
}

// parseNestedAction parses ACTION name ... END_ACTION inside a POU body.
func (p *Parser) parseNestedAction(parent string) *ast.POU {
	pou := &ast.POU{
		NodeBase:   p.base(),
		Kind:       ast.PouAction,
		ParentName: parent,
		Linkage:    p.linkage,
	}
	p.nextToken()
	if p.curTokenIs(lexer.IDENT) {
		pou.Name = p.curToken.Literal
		p.nextToken()
	} else {
		p.syntaxErrorf("expected action name, found %q", p.curToken.Literal)
	}
	pou.Body = p.parseStatementsUntil(lexer.KwEndAction)
	p.accept(lexer.KwEndAction)
	return pou
}

// parseStandaloneAction parses ACTION container.name ... END_ACTION at
// the top level. A missing container qualification leaves the parent
// unresolvable and is reported by validation.
func (p *Parser) parseStandaloneAction() *ast.POU {
	pou := &ast.POU{
		NodeBase:   p.base(),
		Kind:       ast.PouAction,
		ParentName: "__unknown__",
		Linkage:    p.linkage,
	}
	p.nextToken()
	if p.curTokenIs(lexer.IDENT) {
		first := p.curToken.Literal
		p.nextToken()
		if p.accept(lexer.DOT) {
			pou.ParentName = first
			if p.curTokenIs(lexer.IDENT) {
				pou.Name = p.curToken.Literal
				p.nextToken()
			} else {
				p.syntaxErrorf("expected action name after %q.", first)
			}
		} else {
			pou.Name = first
		}
	} else {
		p.syntaxErrorf("expected action name, found %q", p.curToken.Literal)
	}
	pou.Body = p.parseStatementsUntil(lexer.KwEndAction)
	p.accept(lexer.KwEndAction)
	return pou
}

// parseActionsBlock parses ACTIONS container ACTION .. END_ACTION ...
// END_ACTIONS.
func (p *Parser) parseActionsBlock() []*ast.POU {
	p.nextToken() // consume ACTIONS
	container := "__unknown__"
	if p.curTokenIs(lexer.IDENT) {
		container = p.curToken.Literal
		p.nextToken()
	}
	var pous []*ast.POU
	for !p.curTokenIs(lexer.KwEndActions) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.KwAction) {
			pous = append(pous, p.parseNestedAction(container))
		} else {
			p.syntaxErrorf("unexpected token %q in ACTIONS block", p.curToken.Literal)
			p.synchronize()
		}
	}
	p.accept(lexer.KwEndActions)
	return pous
}

// blockKinds maps the opening keyword of a variable block to its kind.
var blockKinds = map[lexer.TokenType]ast.VariableBlockKind{
	lexer.KwVar:         ast.BlockLocal,
	lexer.KwVarTemp:     ast.BlockTemp,
	lexer.KwVarInput:    ast.BlockInput,
	lexer.KwVarOutput:   ast.BlockOutput,
	lexer.KwVarInOut:    ast.BlockInOut,
	lexer.KwVarGlobal:   ast.BlockGlobal,
	lexer.KwVarExternal: ast.BlockExternal,
}

// parseVariableBlocks parses consecutive VAR.. END_VAR sections.
func (p *Parser) parseVariableBlocks() []*ast.VariableBlock {
	var blocks []*ast.VariableBlock
	for {
		if _, ok := blockKinds[p.curToken.Type]; !ok {
			return blocks
		}
		blocks = append(blocks, p.parseVariableBlock())
	}
}

// parseVariableBlock parses one VAR.. END_VAR section, including its
// CONSTANT / RETAIN / {ref} modifiers.
func (p *Parser) parseVariableBlock() *ast.VariableBlock {
	block := &ast.VariableBlock{
		NodeBase: p.base(),
		Kind:     blockKinds[p.curToken.Type],
	}
	p.nextToken()

	for {
		switch {
		case p.curTokenIs(lexer.KwConstant):
			block.Constant = true
			p.nextToken()
		case p.curTokenIs(lexer.KwRetain):
			block.Retain = true
			p.nextToken()
		case p.curTokenIs(lexer.KwNonRetain):
			p.nextToken()
		case p.curTokenIs(lexer.PRAGMA):
			if p.curToken.Literal == "ref" {
				block.RefInput = true
			}
			p.nextToken()
		default:
			goto vars
		}
	}

vars:
	for !p.curTokenIs(lexer.KwEndVar) && !p.curTokenIs(lexer.EOF) {
		p.parseVariableLine(block)
	}
	p.accept(lexer.KwEndVar)
	return block
}

// parseVariableLine parses `a, b : TYPE [:= init];` and appends one
// Variable per declared name.
func (p *Parser) parseVariableLine(block *ast.VariableBlock) {
	type namedPos struct {
		name    string
		pos     lexer.Position
		address string
	}
	var names []namedPos

	for {
		if !p.curTokenIs(lexer.IDENT) {
			p.syntaxErrorf("expected variable name, found %q", p.curToken.Literal)
			p.synchronize()
			return
		}
		entry := namedPos{name: p.curToken.Literal, pos: p.curToken.Pos}
		p.nextToken()
		if p.accept(lexer.KwAt) {
			if p.curTokenIs(lexer.DIRECT_ADDRESS) {
				entry.address = p.curToken.Literal
				p.nextToken()
			} else {
				p.syntaxErrorf("expected hardware address after AT, found %q", p.curToken.Literal)
			}
		}
		names = append(names, entry)
		if !p.accept(lexer.COMMA) {
			break
		}
	}

	if !p.expect(lexer.COLON) {
		p.synchronize()
		return
	}

	typeDecl := p.parseTypeDecl()

	var initializer ast.Expression
	if p.accept(lexer.ASSIGN) {
		initializer = p.parseInitializer()
	}
	p.expect(lexer.SEMICOLON)

	for i, n := range names {
		varInit := initializer
		if i > 0 && initializer != nil {
			varInit = ast.CloneExpression(initializer, p.ids)
		}
		varType := typeDecl
		if i > 0 {
			varType = ast.CloneTypeDecl(typeDecl, p.ids)
		}
		block.Variables = append(block.Variables, &ast.Variable{
			NodeBase:    p.baseAt(n.pos),
			Name:        n.name,
			Type:        varType,
			Initializer: varInit,
			Address:     n.address,
		})
	}
}

// parseTypeSection parses TYPE name : decl [:= init]; ... END_TYPE.
func (p *Parser) parseTypeSection() []*ast.UserTypeDeclaration {
	p.nextToken() // consume TYPE
	var decls []*ast.UserTypeDeclaration
	for !p.curTokenIs(lexer.KwEndType) && !p.curTokenIs(lexer.EOF) {
		if !p.curTokenIs(lexer.IDENT) {
			p.syntaxErrorf("expected type name, found %q", p.curToken.Literal)
			p.synchronize()
			continue
		}
		decl := &ast.UserTypeDeclaration{
			NodeBase: p.base(),
			Name:     p.curToken.Literal,
		}
		p.nextToken()
		if !p.expect(lexer.COLON) {
			p.synchronize()
			continue
		}
		decl.Type = p.parseTypeDecl()
		if p.accept(lexer.ASSIGN) {
			decl.Initializer = p.parseInitializer()
		}
		p.expect(lexer.SEMICOLON)
		decls = append(decls, decl)
	}
	p.accept(lexer.KwEndType)
	return decls
}

// parseTypeDecl parses the declaration-side type syntax.
func (p *Parser) parseTypeDecl() ast.TypeDecl {
	switch p.curToken.Type {
	case lexer.KwArray:
		return p.parseArrayTypeDecl()
	case lexer.KwStruct:
		return p.parseStructTypeDecl()
	case lexer.KwRefTo:
		base := p.base()
		p.nextToken()
		return &ast.PointerTypeDecl{NodeBase: base, Referenced: p.parseTypeDecl()}
	case lexer.KwPointer:
		base := p.base()
		p.nextToken()
		p.expect(lexer.KwTo)
		return &ast.PointerTypeDecl{NodeBase: base, Referenced: p.parseTypeDecl()}
	case lexer.LPAREN:
		return p.parseEnumTypeDecl()
	case lexer.PRAGMA:
		// {ref} on an inline declaration: pointer marker
		isRef := p.curToken.Literal == "ref"
		base := p.base()
		p.nextToken()
		inner := p.parseTypeDecl()
		if isRef {
			return &ast.PointerTypeDecl{NodeBase: base, Referenced: inner, AutoDeref: true}
		}
		return inner
	case lexer.IDENT:
		return p.parseNamedTypeDecl()
	default:
		p.syntaxErrorf("expected type, found %q", p.curToken.Literal)
		p.synchronize()
		return &ast.TypeReference{NodeBase: p.base(), Name: "__unknown__"}
	}
}

// parseNamedTypeDecl parses a type reference, STRING[n], or a sub-range
// `base (low..high)`.
func (p *Parser) parseNamedTypeDecl() ast.TypeDecl {
	base := p.base()
	name := p.curToken.Literal
	p.nextToken()

	upper := strings.ToUpper(name)
	if upper == "STRING" || upper == "WSTRING" {
		decl := &ast.StringTypeDecl{NodeBase: base, Wide: upper == "WSTRING"}
		if p.accept(lexer.LBRACK) {
			decl.Length = p.parseExpression(LOWEST)
			p.expect(lexer.RBRACK)
		}
		return decl
	}

	// Sub-range: INT (1..10)
	if p.curTokenIs(lexer.LPAREN) {
		p.nextToken()
		bounds := &ast.RangeExpression{NodeBase: p.base()}
		bounds.Start = p.parseExpression(LOWEST)
		p.expect(lexer.DOTDOT)
		bounds.End = p.parseExpression(LOWEST)
		p.expect(lexer.RPAREN)
		return &ast.SubRangeTypeDecl{NodeBase: base, BaseName: name, Bounds: bounds}
	}

	return &ast.TypeReference{NodeBase: base, Name: name}
}

// parseArrayTypeDecl parses ARRAY[dim {, dim}] OF type where dim is a
// range or `*`.
func (p *Parser) parseArrayTypeDecl() ast.TypeDecl {
	decl := &ast.ArrayTypeDecl{NodeBase: p.base()}
	p.nextToken() // consume ARRAY
	if !p.expect(lexer.LBRACK) {
		p.synchronize()
		return decl
	}
	for {
		if p.curTokenIs(lexer.ASTERISK) {
			decl.Dimensions = append(decl.Dimensions, ast.Dimension{Star: true})
			p.nextToken()
		} else {
			r := &ast.RangeExpression{NodeBase: p.base()}
			r.Start = p.parseExpression(LOWEST)
			p.expect(lexer.DOTDOT)
			r.End = p.parseExpression(LOWEST)
			decl.Dimensions = append(decl.Dimensions, ast.Dimension{Range: r})
		}
		if !p.accept(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RBRACK)
	p.expect(lexer.KwOf)
	decl.Element = p.parseTypeDecl()
	return decl
}

// parseStructTypeDecl parses STRUCT member; ... END_STRUCT.
func (p *Parser) parseStructTypeDecl() ast.TypeDecl {
	decl := &ast.StructTypeDecl{NodeBase: p.base()}
	p.nextToken() // consume STRUCT
	block := &ast.VariableBlock{NodeBase: decl.NodeBase, Kind: ast.BlockLocal}
	for !p.curTokenIs(lexer.KwEndStruct) && !p.curTokenIs(lexer.EOF) {
		p.parseVariableLine(block)
	}
	p.accept(lexer.KwEndStruct)
	decl.Members = block.Variables
	return decl
}

// parseEnumTypeDecl parses (red, green, blue).
func (p *Parser) parseEnumTypeDecl() ast.TypeDecl {
	decl := &ast.EnumTypeDecl{NodeBase: p.base()}
	p.nextToken() // consume (
	for !p.curTokenIs(lexer.RPAREN) && !p.curTokenIs(lexer.EOF) {
		if !p.curTokenIs(lexer.IDENT) {
			p.syntaxErrorf("expected enum element, found %q", p.curToken.Literal)
			p.synchronize()
			return decl
		}
		decl.Elements = append(decl.Elements, &ast.Identifier{
			NodeBase: p.base(),
			Value:    p.curToken.Literal,
		})
		p.nextToken()
		if !p.accept(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RPAREN)
	return decl
}

// parseInitializer parses the right-hand side of `:=` in declarations.
// Unparenthesized lists (`arr := 1, 2`) are gathered into a non-bracketed
// InitializerList for validation to flag.
func (p *Parser) parseInitializer() ast.Expression {
	if p.curTokenIs(lexer.LBRACK) {
		return p.parseBracketInitializer()
	}
	first := p.parseExpression(LOWEST)
	if !p.curTokenIs(lexer.COMMA) {
		return first
	}
	list := &ast.InitializerList{NodeBase: ast.NewNodeBase(p.ids.Next(), first.Pos())}
	list.Elements = append(list.Elements, first)
	for p.accept(lexer.COMMA) {
		list.Elements = append(list.Elements, p.parseExpression(LOWEST))
	}
	return list
}

// parseBracketInitializer parses [e, n(e), ...].
func (p *Parser) parseBracketInitializer() ast.Expression {
	list := &ast.InitializerList{NodeBase: p.base(), Bracketed: true}
	p.nextToken() // consume [
	for !p.curTokenIs(lexer.RBRACK) && !p.curTokenIs(lexer.EOF) {
		list.Elements = append(list.Elements, p.parseInitializerElement())
		if !p.accept(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RBRACK)
	return list
}

// parseInitializerElement parses one element of a bracket initializer,
// including the `n(expr)` repetition form.
func (p *Parser) parseInitializerElement() ast.Expression {
	expr := p.parseExpression(LOWEST)
	if call, ok := expr.(*ast.CallExpression); ok {
		if _, isLit := call.Callee.(*ast.IntegerLiteral); isLit && len(call.Arguments) == 1 {
			return &ast.MultipliedInitializer{
				NodeBase: ast.NewNodeBase(p.ids.Next(), call.Pos()),
				Count:    call.Callee,
				Element:  call.Arguments[0],
			}
		}
	}
	return expr
}
