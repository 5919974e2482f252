package validation

import (
	"fmt"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/diagnostic"
	"github.com/plc-foundry/go-stc/internal/index"
	"github.com/plc-foundry/go-stc/internal/resolver"
	"github.com/plc-foundry/go-stc/internal/typesys"
)

// Validator walks annotated units and accumulates diagnostics. The
// orchestrator flushes the buffer to the diagnostician after each stage.
type Validator struct {
	idx         *index.Index
	annotations *resolver.AnnotationMap
	fileName    string
	currentPou  *ast.POU
	diagnostics []diagnostic.Diagnostic
}

// NewValidator creates a validator over the merged index and the frozen
// annotations.
func NewValidator(idx *index.Index, annotations *resolver.AstAnnotations) *Validator {
	return &Validator{idx: idx, annotations: annotations.Map}
}

// Diagnostics drains the accumulated diagnostics.
func (v *Validator) Diagnostics() []diagnostic.Diagnostic {
	out := v.diagnostics
	v.diagnostics = nil
	return out
}

func (v *Validator) errorf(kind diagnostic.Kind, node ast.Node, format string, args ...any) {
	v.diagnostics = append(v.diagnostics, diagnostic.Error(kind,
		fmt.Sprintf(format, args...),
		diagnostic.Location{File: v.fileName, Pos: node.Pos()}))
}

// ValidateUnit runs all per-unit checks.
func (v *Validator) ValidateUnit(unit *ast.CompilationUnit) {
	v.fileName = unit.FileName

	for _, block := range unit.Globals {
		v.validateVariableBlock(nil, block)
	}
	for _, pou := range unit.Pous {
		v.validatePou(pou)
	}
}

func (v *Validator) validatePou(pou *ast.POU) {
	v.currentPou = pou

	if pou.Kind == ast.PouFunction && pou.ReturnType == nil {
		v.errorf(diagnostic.FunctionReturnMissing, pou,
			"function %q must declare a return type", pou.Name)
	}

	if pou.Kind == ast.PouAction {
		if pou.ParentName == index.UnknownContainer || v.idx.FindPou(pou.ParentName) == nil {
			v.errorf(diagnostic.MissingActionContainer, pou,
				"action %q has no resolvable container", pou.Name)
		}
	}

	for _, block := range pou.Blocks {
		v.validateVariableBlock(pou, block)
	}
	v.validateStatements(pou.Body)
	v.currentPou = nil
}

// validateVariableBlock checks variable-length array placement: an
// ARRAY[*] may only be a by-ref parameter of a function or method.
func (v *Validator) validateVariableBlock(pou *ast.POU, block *ast.VariableBlock) {
	for _, variable := range block.Variables {
		typeName := declaredTypeName(variable.Type)
		declared := v.idx.FindEffectiveType(typeName)
		if declared == nil || !declared.IsVariableLengthArray() {
			continue
		}

		allowed := false
		if pou != nil && (pou.Kind == ast.PouFunction || pou.Kind == ast.PouMethod) {
			switch block.Kind {
			case ast.BlockInOut, ast.BlockOutput:
				allowed = true
			case ast.BlockInput:
				allowed = block.RefInput
			}
		}
		if !allowed {
			v.errorf(diagnostic.InvalidVariableLengthArrayPlacement, variable,
				"variable-length arrays are only allowed as VAR_INPUT {ref}, VAR_OUTPUT or VAR_IN_OUT of a function")
		}
	}
}

func declaredTypeName(decl ast.TypeDecl) string {
	switch t := decl.(type) {
	case *ast.TypeReference:
		return t.Name
	case *ast.StringTypeDecl:
		if t.Wide {
			return typesys.WstringType
		}
		return typesys.StringType
	default:
		return ""
	}
}

func (v *Validator) validateStatements(stmts []ast.Statement) {
	for _, stmt := range stmts {
		v.validateStatement(stmt)
	}
}

func (v *Validator) validateStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.AssignmentStatement:
		v.validateExpression(s.Target)
		v.validateExpression(s.Value)
		v.validateAssignment(s)
	case *ast.ExpressionStatement:
		v.validateExpression(s.Expr)
	case *ast.IfStatement:
		v.validateExpression(s.Condition)
		v.validateStatements(s.Then)
		for _, e := range s.Elsifs {
			v.validateExpression(e.Condition)
			v.validateStatements(e.Body)
		}
		v.validateStatements(s.Else)
	case *ast.CaseStatement:
		v.validateExpression(s.Selector)
		for _, br := range s.Branches {
			for _, label := range br.Labels {
				v.validateExpression(label)
			}
			v.validateStatements(br.Body)
		}
		v.validateStatements(s.Else)
	case *ast.ForStatement:
		v.validateExpression(s.Counter)
		v.validateExpression(s.Start)
		v.validateExpression(s.End)
		if s.By != nil {
			v.validateExpression(s.By)
		}
		v.validateStatements(s.Body)
	case *ast.WhileStatement:
		v.validateExpression(s.Condition)
		v.validateStatements(s.Body)
	case *ast.RepeatStatement:
		v.validateStatements(s.Body)
		v.validateExpression(s.Condition)
	}
}

func (v *Validator) validateExpression(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.BinaryExpression:
		v.validateExpression(e.Left)
		v.validateExpression(e.Right)
		v.validatePointerArithmetic(e)
	case *ast.UnaryExpression:
		v.validateExpression(e.Operand)
	case *ast.DerefExpression:
		v.validateExpression(e.Base)
	case *ast.ParenExpression:
		v.validateExpression(e.Inner)
	case *ast.MemberExpression:
		v.validateExpression(e.Base)
		v.validateDirectAccess(e)
	case *ast.IndexExpression:
		v.validateExpression(e.Base)
		for _, idx := range e.Indices {
			v.validateExpression(idx)
		}
		v.validateArrayAccess(e)
	case *ast.CallExpression:
		v.validateExpression(e.Callee)
		for _, arg := range e.Arguments {
			v.validateExpression(arg)
		}
		v.validateCallRanks(e)
	case *ast.ParamAssignment:
		v.validateExpression(e.Value)
	case *ast.CastExpression:
		v.validateExpression(e.Expr)
	case *ast.InitializerList:
		for _, el := range e.Elements {
			v.validateExpression(el)
		}
	case *ast.KeyValueExpression:
		v.validateExpression(e.Value)
	}
}

// effectiveTypeOf returns the intrinsic type behind a node's annotation.
func (v *Validator) effectiveTypeOf(node ast.Node) *typesys.DataType {
	typeName := v.annotations.TypeName(node)
	if typeName == "" {
		return nil
	}
	return v.idx.FindEffectiveType(typeName)
}
