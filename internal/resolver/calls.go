package resolver

import (
	"strings"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/diagnostic"
	"github.com/plc-foundry/go-stc/internal/index"
	"github.com/plc-foundry/go-stc/internal/typesys"
)

// annotateCall resolves the callee to a POU, propagates parameter types
// as hints onto the arguments, and performs generic instantiation.
func (a *annotator) annotateCall(call *ast.CallExpression) string {
	// ADR and REF are compiler-known operators rather than POUs.
	if ident, ok := call.Callee.(*ast.Identifier); ok {
		switch strings.ToUpper(ident.Value) {
		case "ADR":
			return a.annotateAddressBuiltin(call, ident, typesys.LwordType)
		case "REF":
			return a.annotateAddressBuiltin(call, ident, "")
		}
	}

	pou := a.resolveCallee(call)
	if pou == nil {
		for _, arg := range call.Arguments {
			a.annotateExpression(arg, "")
		}
		a.amap.Annotate(call, Annotation{Kind: AnnotationValue, TypeName: typesys.VoidType})
		return typesys.VoidType
	}

	if pou.IsGeneric() {
		pou = a.instantiateGeneric(pou, call)
	}

	a.annotateArguments(call, pou)

	returnType := pou.ReturnTypeName
	if returnType == "" {
		returnType = typesys.VoidType
	}
	a.amap.Annotate(call, Annotation{
		Kind:          AnnotationValue,
		TypeName:      returnType,
		QualifiedName: pou.Name,
		CallName:      pou.Name,
	})

	// Re-point the callee at the concrete (possibly instantiated) POU.
	a.amap.Annotate(call.Callee, Annotation{
		Kind:          AnnotationFunction,
		TypeName:      returnType,
		QualifiedName: pou.Name,
		ReturnType:    pou.ReturnTypeName,
		CallName:      pou.Name,
	})
	return returnType
}

// annotateAddressBuiltin handles ADR(x) and REF(x). ADR yields LWORD;
// REF yields the registered pointer type of its argument.
func (a *annotator) annotateAddressBuiltin(call *ast.CallExpression, callee *ast.Identifier, fixedResult string) string {
	argType := typesys.VoidType
	for i, arg := range call.Arguments {
		t := a.annotateExpression(arg, "")
		if i == 0 {
			argType = t
		}
	}
	if len(call.Arguments) != 1 {
		a.errorf(diagnostic.ParamError, call, "%s expects exactly one argument", callee.Value)
	}
	result := fixedResult
	if result == "" {
		result = a.registerPointerType(argType)
	}
	a.amap.Annotate(callee, Annotation{Kind: AnnotationFunction, TypeName: result, QualifiedName: callee.Value, CallName: callee.Value})
	a.amap.Annotate(call, Annotation{Kind: AnnotationValue, TypeName: result})
	return result
}

// resolveCallee finds the called POU: a function or program by name, a
// function-block instance variable, or a qualified action/method.
func (a *annotator) resolveCallee(call *ast.CallExpression) *index.PouIndexEntry {
	switch callee := call.Callee.(type) {
	case *ast.Identifier:
		// An unqualified name can be an FB instance variable...
		typeName := a.annotateName(callee)
		if annotation, ok := a.amap.Get(callee); ok {
			switch annotation.Kind {
			case AnnotationVariable:
				if pou := a.pouForInstanceType(typeName); pou != nil {
					return pou
				}
			case AnnotationFunction, AnnotationProgram:
				return a.findPou(annotation.QualifiedName)
			}
		}
		// ...or an action of the enclosing POU.
		if a.parentScope != "" {
			if pou := a.findPou(a.parentScope + "." + callee.Value); pou != nil {
				return pou
			}
		}
		if a.currentPou != nil {
			if pou := a.findPou(a.currentPou.Name + "." + callee.Value); pou != nil {
				return pou
			}
		}
		a.errorf(diagnostic.UnresolvedReference, callee, "cannot resolve call target %q", callee.Value)
		return nil
	case *ast.MemberExpression:
		a.annotateMember(callee)
		if annotation, ok := a.amap.Get(callee); ok {
			switch annotation.Kind {
			case AnnotationFunction:
				return a.findPou(annotation.QualifiedName)
			case AnnotationVariable:
				if pou := a.pouForInstanceType(annotation.TypeName); pou != nil {
					return pou
				}
			}
		}
		a.errorf(diagnostic.UnresolvedReference, callee, "cannot resolve call target %q", callee.String())
		return nil
	default:
		a.errorf(diagnostic.UnresolvedReference, call, "expression is not callable")
		return nil
	}
}

// pouForInstanceType maps an instance variable's type to its POU when the
// type is a POU-backed struct (function block or class).
func (a *annotator) pouForInstanceType(typeName string) *index.PouIndexEntry {
	effective := a.findEffectiveType(typeName)
	if effective == nil {
		return nil
	}
	def, ok := effective.Definition.(typesys.StructDef)
	if !ok || def.Source != typesys.StructPou {
		return nil
	}
	return a.findPou(def.ContainerName)
}

// annotateArguments hints each argument with its parameter's declared
// type: positional arguments by declaration order, named ones by lookup.
func (a *annotator) annotateArguments(call *ast.CallExpression, pou *index.PouIndexEntry) {
	params := a.declaredParameters(pou.Name)

	position := 0
	for _, arg := range call.Arguments {
		if named, ok := arg.(*ast.ParamAssignment); ok {
			paramType := ""
			if param := a.findMember(pou.Name, named.Name.Value); param != nil {
				paramType = param.TypeName
				a.amap.Annotate(named.Name, Annotation{
					Kind:          AnnotationVariable,
					TypeName:      param.TypeName,
					QualifiedName: param.QualifiedName,
				})
			} else {
				a.errorf(diagnostic.ParamError, named.Name, "%q has no parameter %q", pou.Name, named.Name.Value)
				a.amap.Annotate(named.Name, Annotation{Kind: AnnotationValue, TypeName: typesys.VoidType})
			}
			valueType := a.annotateExpression(named.Value, paramType)
			if paramType != "" && !strings.EqualFold(valueType, paramType) {
				a.amap.AnnotateHint(named.Value, paramType)
			}
			a.amap.Annotate(named, Annotation{Kind: AnnotationValue, TypeName: paramType})
			continue
		}

		paramType := ""
		if position < len(params) {
			paramType = params[position].TypeName
		}
		position++
		argType := a.annotateExpression(arg, paramType)
		if paramType != "" && argType != "" && !strings.EqualFold(argType, paramType) {
			if !a.isGenericTypeName(paramType) {
				a.amap.AnnotateHint(arg, paramType)
			}
		}
	}
}

func (a *annotator) declaredParameters(pou string) []*index.VariableIndexEntry {
	if params := a.idx.DeclaredParameters(pou); len(params) > 0 {
		return params
	}
	return a.newIndex.DeclaredParameters(pou)
}

func (a *annotator) isGenericTypeName(name string) bool {
	t := a.findType(name)
	return t != nil && t.IsGeneric()
}
