package resolver

import (
	"fmt"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/diagnostic"
	"github.com/plc-foundry/go-stc/internal/index"
	"github.com/plc-foundry/go-stc/internal/typesys"
)

// GeneratedUnitName is the synthetic compilation unit that receives POUs
// synthesized during annotation (generic instances).
const GeneratedUnitName = "__generated"

// Result is the annotator's output: the frozen annotations, the collected
// string literals, a synthetic unit holding generated POUs (nil when no
// generics were instantiated), and the annotation diagnostics.
type Result struct {
	Annotations   *AstAnnotations
	Literals      *StringLiterals
	GeneratedUnit *ast.CompilationUnit
	Diagnostics   []diagnostic.Diagnostic
}

// Annotate walks every unit, assigning a type to each expression and a
// referent to each name. POUs and types discovered during annotation
// (generic instances, pointer and literal-string types) land in a side
// index that is merged into the global index before returning.
func Annotate(units []*ast.CompilationUnit, idx *index.Index, ids ast.IdProvider) Result {
	a := &annotator{
		idx:      idx,
		ids:      ids,
		amap:     NewAnnotationMap(),
		literals: NewStringLiterals(),
		newIndex: index.NewIndex(),
		pous:     make(map[string]*ast.POU),
	}

	// The generic instantiator needs every POU's AST by name.
	for _, unit := range units {
		for _, pou := range unit.Pous {
			a.pous[pouIndexName(pou)] = pou
		}
	}

	for _, unit := range units {
		a.currentUnit = unit
		for _, pou := range unit.Pous {
			a.annotatePou(pou)
		}
		for _, block := range unit.Globals {
			a.annotateVariableBlock("", block)
		}
	}

	// Generic instances synthesized above get their bodies annotated too;
	// instantiation during this walk may discover further instances.
	for len(a.pending) > 0 {
		pending := a.pending
		a.pending = nil
		for _, pou := range pending {
			a.currentUnit = a.generatedUnit()
			a.annotatePou(pou)
		}
	}

	idx.Import(a.newIndex)

	return Result{
		Annotations:   &AstAnnotations{Map: a.amap, Ids: a.ids},
		Literals:      a.literals,
		GeneratedUnit: a.generated,
		Diagnostics:   a.diagnostics,
	}
}

func pouIndexName(pou *ast.POU) string {
	if pou.Kind == ast.PouAction || pou.Kind == ast.PouMethod {
		return fold(pou.ParentName + "." + pou.Name)
	}
	return fold(pou.Name)
}

type annotator struct {
	idx         *index.Index
	newIndex    *index.Index
	ids         ast.IdProvider
	amap        *AnnotationMap
	literals    *StringLiterals
	diagnostics []diagnostic.Diagnostic

	pous        map[string]*ast.POU // all POU ASTs by folded name
	currentUnit *ast.CompilationUnit
	currentPou  *ast.POU
	scopeName   string // index container of the current POU
	parentScope string // enclosing POU for actions and methods

	generated *ast.CompilationUnit
	pending   []*ast.POU
}

func (a *annotator) generatedUnit() *ast.CompilationUnit {
	if a.generated == nil {
		a.generated = &ast.CompilationUnit{
			FileName: GeneratedUnitName,
			Linkage:  ast.LinkageInternal,
		}
	}
	return a.generated
}

func (a *annotator) errorf(kind diagnostic.Kind, node ast.Node, format string, args ...any) {
	file := ""
	if a.currentUnit != nil {
		file = a.currentUnit.FileName
	}
	a.diagnostics = append(a.diagnostics, diagnostic.Error(kind,
		fmt.Sprintf(format, args...),
		diagnostic.Location{File: file, Pos: node.Pos()}))
}

// findType looks a type up in the global index first, then in the side
// index holding types registered during annotation.
func (a *annotator) findType(name string) *typesys.DataType {
	if t := a.idx.FindType(name); t != nil {
		return t
	}
	return a.newIndex.FindType(name)
}

// findEffectiveType follows aliases and sub-ranges across both indexes.
func (a *annotator) findEffectiveType(name string) *typesys.DataType {
	current := a.findType(name)
	for depth := 0; current != nil && depth < 64; depth++ {
		switch def := current.Definition.(type) {
		case typesys.AliasDef:
			current = a.findType(def.ReferencedTypeName)
		case typesys.SubRangeDef:
			current = a.findType(def.UnderlyingTypeName)
		default:
			return current
		}
	}
	return nil
}

// lookup implements typesys.TypeLookup over both indexes.
type combinedLookup struct{ a *annotator }

func (c combinedLookup) FindType(name string) *typesys.DataType { return c.a.findType(name) }
func (c combinedLookup) FindEffectiveType(name string) *typesys.DataType {
	return c.a.findEffectiveType(name)
}
func (c combinedLookup) GetConstantInt(id typesys.ConstId) (int64, bool) {
	return c.a.idx.GetConstantInt(id)
}

func (a *annotator) lookup() typesys.TypeLookup { return combinedLookup{a} }

// annotatePou annotates one POU's interface defaults and body.
func (a *annotator) annotatePou(pou *ast.POU) {
	if pou.HasGenerics() {
		// Generic templates are not annotated; their instances are.
		return
	}
	a.currentPou = pou
	a.scopeName = pou.Name
	a.parentScope = ""
	if pou.Kind == ast.PouAction || pou.Kind == ast.PouMethod {
		a.scopeName = pou.ParentName + "." + pou.Name
		a.parentScope = pou.ParentName
	}
	if pou.Kind == ast.PouAction {
		// Actions share the parent's variables; their own scope has none.
		a.scopeName = pou.ParentName + "." + pou.Name
	}

	for _, block := range pou.Blocks {
		a.annotateVariableBlock(a.scopeName, block)
	}
	for _, stmt := range pou.Body {
		a.annotateStatement(stmt)
	}
	a.currentPou = nil
}

// annotateVariableBlock annotates declaration initializers with the
// declared type as hint.
func (a *annotator) annotateVariableBlock(container string, block *ast.VariableBlock) {
	for _, variable := range block.Variables {
		if variable.Initializer == nil {
			continue
		}
		typeName := ""
		if ref, ok := variable.Type.(*ast.TypeReference); ok {
			typeName = ref.Name
		}
		a.annotateExpression(variable.Initializer, typeName)
	}
}

func (a *annotator) annotateStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.AssignmentStatement:
		targetType := a.annotateExpression(s.Target, "")
		valueType := a.annotateExpression(s.Value, targetType)
		if targetType != "" && valueType != targetType {
			a.amap.AnnotateHint(s.Value, targetType)
		}
		a.annotateRangeCheck(s, targetType)
	case *ast.ExpressionStatement:
		a.annotateExpression(s.Expr, "")
	case *ast.IfStatement:
		a.annotateCondition(s.Condition)
		a.annotateStatements(s.Then)
		for _, e := range s.Elsifs {
			a.annotateCondition(e.Condition)
			a.annotateStatements(e.Body)
		}
		a.annotateStatements(s.Else)
	case *ast.CaseStatement:
		selectorType := a.annotateExpression(s.Selector, "")
		for _, br := range s.Branches {
			for _, label := range br.Labels {
				a.annotateExpression(label, selectorType)
			}
			a.annotateStatements(br.Body)
		}
		a.annotateStatements(s.Else)
	case *ast.ForStatement:
		counterType := a.annotateExpression(s.Counter, "")
		a.annotateExpression(s.Start, counterType)
		a.annotateExpression(s.End, counterType)
		if s.By != nil {
			a.annotateExpression(s.By, counterType)
		}
		a.annotateStatements(s.Body)
	case *ast.WhileStatement:
		a.annotateCondition(s.Condition)
		a.annotateStatements(s.Body)
	case *ast.RepeatStatement:
		a.annotateStatements(s.Body)
		a.annotateCondition(s.Condition)
	}
}

func (a *annotator) annotateStatements(stmts []ast.Statement) {
	for _, s := range stmts {
		a.annotateStatement(s)
	}
}

func (a *annotator) annotateCondition(expr ast.Expression) {
	a.annotateExpression(expr, typesys.BoolType)
}

// annotateRangeCheck attaches the runtime range-check call to assignments
// whose destination is a sub-range type. The check functions live in the
// link set (CheckRangeSigned and friends).
func (a *annotator) annotateRangeCheck(stmt *ast.AssignmentStatement, targetType string) {
	declared := a.findType(targetType)
	if declared == nil || !declared.IsSubRange() {
		return
	}
	effective := a.findEffectiveType(targetType)
	if effective == nil {
		return
	}
	def, ok := effective.Definition.(typesys.IntegerDef)
	if !ok {
		return
	}

	checkName := typesys.RangeCheckSigned
	switch {
	case def.Signed && def.StorageBits == 64:
		checkName = typesys.RangeCheckLSigned
	case !def.Signed && def.StorageBits == 64:
		checkName = typesys.RangeCheckLUnsigned
	case !def.Signed:
		checkName = typesys.RangeCheckUnsigned
	}
	a.amap.Annotate(stmt, Annotation{
		Kind:     AnnotationFunction,
		TypeName: targetType,
		CallName: checkName,
	})
}
