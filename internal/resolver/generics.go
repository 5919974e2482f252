package resolver

import (
	"strings"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/diagnostic"
	"github.com/plc-foundry/go-stc/internal/index"
	"github.com/plc-foundry/go-stc/internal/typesys"
)

// instantiateGeneric infers the type arguments of a generic call and
// resolves it to a concrete implementation, synthesizing one when the
// mangled name does not exist yet. Identical inferences from any number
// of call sites share one implementation, keyed on the mangled name.
func (a *annotator) instantiateGeneric(generic *index.PouIndexEntry, call *ast.CallExpression) *index.PouIndexEntry {
	bindings := a.inferTypeArguments(generic, call)

	mangled := MangleGenericName(generic.Name, generic.Generics, bindings)
	if existing := a.findPou(mangled); existing != nil {
		return existing
	}

	template := a.pous[fold(generic.Name)]
	if template == nil {
		a.errorf(diagnostic.InvalidGenericInstantiation, call,
			"no declaration available to instantiate %q", generic.Name)
		return generic
	}

	instance := ast.ClonePOU(template, a.ids)
	instance.Name = mangled
	instance.Generics = nil
	instance.GenericInstOf = generic.Name
	substituteGenericTypes(instance, bindings)

	// Index the instance through a synthetic unit and fold it into the
	// side index; the instance body is annotated in a later round.
	unit := a.generatedUnit()
	unit.Pous = append(unit.Pous, instance)
	a.pous[fold(mangled)] = instance
	a.newIndex.Import(index.VisitUnit(&ast.CompilationUnit{
		FileName: GeneratedUnitName,
		Linkage:  ast.LinkageInternal,
		Pous:     []*ast.POU{instance},
	}, a.ids))
	a.pending = append(a.pending, instance)

	if resolved := a.findPou(mangled); resolved != nil {
		return resolved
	}
	return generic
}

// inferTypeArguments unifies, per type parameter, the types of all
// arguments declared with that parameter. The nature constraint must hold
// for the unified type.
func (a *annotator) inferTypeArguments(generic *index.PouIndexEntry, call *ast.CallExpression) map[string]string {
	params := a.declaredParameters(generic.Name)
	bindings := make(map[string]string)

	position := 0
	for _, arg := range call.Arguments {
		var paramType string
		var value ast.Expression = arg
		if named, ok := arg.(*ast.ParamAssignment); ok {
			if param := a.findMember(generic.Name, named.Name.Value); param != nil {
				paramType = param.TypeName
			}
			value = named.Value
		} else {
			if position < len(params) {
				paramType = params[position].TypeName
			}
			position++
		}

		genericType := a.findType(paramType)
		if genericType == nil || !genericType.IsGeneric() {
			continue
		}
		def := genericType.Definition.(typesys.GenericDef)

		argTypeName := a.annotateExpression(value, "")
		argType := a.findEffectiveType(argTypeName)
		if argType == nil {
			continue
		}

		if !argType.HasNature(def.NatureConstraint) {
			a.errorf(diagnostic.InvalidGenericInstantiation, value,
				"type %s does not satisfy constraint %s of type parameter %s",
				argType.Name, def.NatureConstraint, def.TypeParameterName)
			continue
		}

		key := fold(def.TypeParameterName)
		if existing, ok := bindings[key]; ok {
			left := a.findEffectiveType(existing)
			unified := typesys.GetBiggerType(left, argType, a.lookup())
			bindings[key] = unified.Name
		} else {
			bindings[key] = argType.Name
		}
	}
	return bindings
}

// MangleGenericName builds the deterministic name of a concrete generic
// instance: base__T1 for one parameter, base__T1__T2... in declaration
// order for several.
func MangleGenericName(base string, generics []ast.GenericBinding, bindings map[string]string) string {
	var sb strings.Builder
	sb.WriteString(base)
	for _, g := range generics {
		concrete, ok := bindings[fold(g.Name)]
		if !ok {
			concrete = typesys.VoidType
		}
		sb.WriteString("__")
		sb.WriteString(strings.ToUpper(concrete))
	}
	return sb.String()
}

// substituteGenericTypes rewrites every reference to a type parameter in
// the instance's interface with its concrete binding.
func substituteGenericTypes(pou *ast.POU, bindings map[string]string) {
	substitute := func(decl ast.TypeDecl) ast.TypeDecl {
		ref, ok := decl.(*ast.TypeReference)
		if !ok {
			return decl
		}
		if concrete, found := bindings[fold(ref.Name)]; found {
			ref.Name = concrete
		}
		return decl
	}

	pou.ReturnType = substituteTypeDecl(pou.ReturnType, substitute)
	for _, block := range pou.Blocks {
		for _, variable := range block.Variables {
			variable.Type = substituteTypeDecl(variable.Type, substitute)
		}
	}
}

// substituteTypeDecl applies the substitution through nested declarations.
func substituteTypeDecl(decl ast.TypeDecl, substitute func(ast.TypeDecl) ast.TypeDecl) ast.TypeDecl {
	switch t := decl.(type) {
	case nil:
		return nil
	case *ast.TypeReference:
		return substitute(t)
	case *ast.ArrayTypeDecl:
		t.Element = substituteTypeDecl(t.Element, substitute)
		return t
	case *ast.PointerTypeDecl:
		t.Referenced = substituteTypeDecl(t.Referenced, substitute)
		return t
	default:
		return decl
	}
}
