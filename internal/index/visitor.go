package index

import (
	"strings"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/typesys"
)

// UnknownContainer is the parent name the parser assigns to actions whose
// containing POU could not be determined.
const UnknownContainer = "__unknown__"

// VisitUnit indexes one pre-processed compilation unit. The returned
// per-unit index is later merged into the global one with Import.
func VisitUnit(unit *ast.CompilationUnit, ids ast.IdProvider) *Index {
	v := &visitor{
		index: NewIndex(),
		unit:  unit,
		ids:   ids,
	}
	for _, decl := range unit.Types {
		v.visitTypeDeclaration(decl)
	}
	for _, block := range unit.Globals {
		v.visitGlobalBlock(block)
	}
	for _, pou := range unit.Pous {
		v.visitPou(pou)
	}
	return v.index
}

type visitor struct {
	index *Index
	unit  *ast.CompilationUnit
	ids   ast.IdProvider
}

func (v *visitor) location(pos ast.NodeBase) ast.SourceLocation {
	return ast.SourceLocation{FileName: v.unit.FileName, Pos: pos.Location}
}

// sizeFromExpression turns a dimension or length expression into a
// TypeSize: literal integers resolve immediately, everything else goes
// through the constant store.
func (v *visitor) sizeFromExpression(expr ast.Expression, scope string) typesys.TypeSize {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return typesys.LiteralSize(e.Value)
	case *ast.UnaryExpression:
		if lit, ok := e.Operand.(*ast.IntegerLiteral); ok && e.Operator == ast.OpMinus {
			return typesys.LiteralSize(-lit.Value)
		}
	}
	id := v.index.constants.Add(expr, typesys.DintType, scope)
	return typesys.ConstSize(id)
}

func (v *visitor) visitTypeDeclaration(decl *ast.UserTypeDeclaration) {
	dt := v.typeFromDecl(decl.Name, decl.Type, "")
	if dt == nil {
		return
	}
	dt.Location = ast.SourceLocation{FileName: v.unit.FileName, Pos: decl.Location}
	if decl.Initializer != nil {
		id := v.index.constants.Add(decl.Initializer, decl.Name, "")
		dt.InitialValue = &id
	}
	v.index.RegisterType(dt)
}

// typeFromDecl converts a declaration-side type into a DataType. The
// container scopes constant expressions referenced from sizes.
func (v *visitor) typeFromDecl(name string, decl ast.TypeDecl, container string) *typesys.DataType {
	switch t := decl.(type) {
	case *ast.TypeReference:
		return &typesys.DataType{
			Name:       name,
			Definition: typesys.AliasDef{ReferencedTypeName: t.Name},
			Nature:     typesys.NatureDerived,
			AliasOf:    t.Name,
		}
	case *ast.StringTypeDecl:
		encoding := typesys.EncodingUtf8
		typeName := typesys.StringType
		if t.Wide {
			encoding = typesys.EncodingUtf16
			typeName = typesys.WstringType
		}
		if t.Length == nil {
			return &typesys.DataType{
				Name:       name,
				Definition: typesys.AliasDef{ReferencedTypeName: typeName},
				Nature:     typesys.NatureString,
				AliasOf:    typeName,
			}
		}
		return &typesys.DataType{
			Name:       name,
			Definition: typesys.StringDef{Length: v.sizeFromExpression(t.Length, container), Encoding: encoding},
			Nature:     typesys.NatureString,
		}
	case *ast.ArrayTypeDecl:
		elementName := v.elementTypeName(name, t.Element)
		dims := make([]typesys.ArrayDimension, 0, len(t.Dimensions))
		for _, d := range t.Dimensions {
			if d.Star {
				dims = append(dims, typesys.ArrayDimension{Star: true})
				continue
			}
			dims = append(dims, typesys.ArrayDimension{
				StartOffset: v.sizeFromExpression(d.Range.Start, container),
				EndOffset:   v.sizeFromExpression(d.Range.End, container),
			})
		}
		return &typesys.DataType{
			Name:       name,
			Definition: typesys.ArrayDef{InnerTypeName: elementName, Dimensions: dims},
			Nature:     typesys.NatureDerived,
		}
	case *ast.PointerTypeDecl:
		return &typesys.DataType{
			Name: name,
			Definition: typesys.PointerDef{
				InnerTypeName: v.elementTypeName(name, t.Referenced),
				AutoDeref:     t.AutoDeref,
			},
			Nature: typesys.NatureAny,
		}
	case *ast.StructTypeDecl:
		members := make([]string, 0, len(t.Members))
		for _, m := range t.Members {
			members = append(members, m.Name)
			entry := &VariableIndexEntry{
				Name:             m.Name,
				QualifiedName:    name + "." + m.Name,
				TypeName:         v.elementTypeName(name, m.Type),
				Linkage:          v.unit.Linkage,
				BlockKind:        ast.BlockLocal,
				Location:         ast.SourceLocation{FileName: v.unit.FileName, Pos: m.Location},
				ArgumentPosition: -1,
			}
			if m.Initializer != nil {
				id := v.index.constants.Add(m.Initializer, entry.TypeName, name)
				entry.InitialValue = &id
			}
			v.index.RegisterMember(name, entry)
		}
		return &typesys.DataType{
			Name:       name,
			Definition: typesys.StructDef{ContainerName: name, Members: members, Source: typesys.StructDeclared},
			Nature:     typesys.NatureDerived,
		}
	case *ast.EnumTypeDecl:
		elements := make([]string, 0, len(t.Elements))
		for i, el := range t.Elements {
			elements = append(elements, el.Value)
			lit := &ast.IntegerLiteral{
				NodeBase: ast.NewNodeBase(v.ids.Next(), el.Location),
				Value:    int64(i),
			}
			value := v.index.constants.Add(lit, typesys.DintType, "")
			v.index.RegisterEnumElement(&EnumElementEntry{
				Name:         el.Value,
				EnumTypeName: name,
				Value:        value,
				Location:     ast.SourceLocation{FileName: v.unit.FileName, Pos: el.Location},
			})
		}
		return &typesys.DataType{
			Name:       name,
			Definition: typesys.EnumDef{UnderlyingTypeName: typesys.DintType, Elements: elements},
			Nature:     typesys.NatureInt,
		}
	case *ast.SubRangeTypeDecl:
		return &typesys.DataType{
			Name:       name,
			Definition: typesys.SubRangeDef{UnderlyingTypeName: t.BaseName},
			Nature:     typesys.NatureInt,
			SubRange:   t.Bounds,
		}
	default:
		return nil
	}
}

// elementTypeName resolves the name of a nested type reference. After
// pre-processing only TypeReference and unsized strings remain nested.
func (v *visitor) elementTypeName(container string, decl ast.TypeDecl) string {
	switch t := decl.(type) {
	case *ast.TypeReference:
		return t.Name
	case *ast.StringTypeDecl:
		if t.Wide {
			return typesys.WstringType
		}
		return typesys.StringType
	default:
		return typesys.VoidType
	}
}

func (v *visitor) visitGlobalBlock(block *ast.VariableBlock) {
	for _, variable := range block.Variables {
		entry := &VariableIndexEntry{
			Name:             variable.Name,
			QualifiedName:    variable.Name,
			TypeName:         v.elementTypeName("global", variable.Type),
			Constant:         block.Constant,
			Linkage:          v.unit.Linkage,
			BlockKind:        block.Kind,
			Location:         v.location(variable.NodeBase),
			ArgumentPosition: -1,
		}
		if variable.Initializer != nil {
			id := v.index.constants.Add(variable.Initializer, entry.TypeName, "")
			entry.InitialValue = &id
		}
		v.index.RegisterGlobal(entry)
	}
}

func (v *visitor) visitPou(pou *ast.POU) {
	name := pou.Name
	if pou.Kind == ast.PouAction || pou.Kind == ast.PouMethod {
		name = pou.ParentName + "." + pou.Name
	}

	returnTypeName := ""
	if pou.ReturnType != nil {
		returnTypeName = v.elementTypeName(name, pou.ReturnType)
		returnTypeName = v.genericParamName(pou, name, returnTypeName)
	}

	entry := &PouIndexEntry{
		Name:           name,
		Kind:           pou.Kind,
		ParentName:     pou.ParentName,
		ReturnTypeName: returnTypeName,
		InstanceStruct: name,
		Linkage:        pou.Linkage,
		Location:       v.location(pou.NodeBase),
		Generics:       pou.Generics,
	}
	v.index.RegisterPou(entry)

	// Generic type parameters become internal generic types so that
	// find_effective_type stays total during annotation.
	for _, g := range pou.Generics {
		v.index.RegisterType(&typesys.DataType{
			Name: genericTypeName(name, g.Name),
			Definition: typesys.GenericDef{
				TypeParameterName: g.Name,
				NatureConstraint:  typesys.NatureByName(g.Nature),
			},
			Nature: typesys.NatureByName(g.Nature),
		})
	}

	argPos := 0
	var memberNames []string
	for _, block := range pou.Blocks {
		for _, variable := range block.Variables {
			typeName := v.elementTypeName(name, variable.Type)
			typeName = v.genericParamName(pou, name, typeName)

			// Parameters passed by reference get an implicit auto-deref
			// pointer type registered alongside.
			if block.Kind == ast.BlockInOut || block.Kind == ast.BlockOutput ||
				(block.Kind == ast.BlockInput && block.RefInput) {
				v.registerAutoPointer(typeName)
			}

			entry := &VariableIndexEntry{
				Name:             variable.Name,
				QualifiedName:    name + "." + variable.Name,
				TypeName:         typeName,
				Constant:         block.Constant,
				Linkage:          pou.Linkage,
				BlockKind:        block.Kind,
				Location:         v.location(variable.NodeBase),
				ArgumentPosition: -1,
			}
			if entry.IsParameter() {
				entry.ArgumentPosition = argPos
				argPos++
			}
			if variable.Initializer != nil {
				id := v.index.constants.Add(variable.Initializer, typeName, name)
				entry.InitialValue = &id
			}
			v.index.RegisterMember(name, entry)
			memberNames = append(memberNames, variable.Name)
		}
	}

	// The POU's state becomes a struct type under its own name, so that
	// instances (`fb : MyFB;`) and member access resolve uniformly.
	if pou.Kind != ast.PouAction {
		v.index.RegisterType(&typesys.DataType{
			Name: name,
			Definition: typesys.StructDef{
				ContainerName: name,
				Members:       memberNames,
				Source:        typesys.StructPou,
				PouKind:       pou.Kind.String(),
			},
			Nature:   typesys.NatureDerived,
			Location: v.location(pou.NodeBase),
		})
	}

	if pou.Linkage == ast.LinkageInternal {
		v.index.RegisterImplementation(&ImplementationIndexEntry{
			CallName:      name,
			ContainerName: pou.ParentName,
			Location:      v.location(pou.NodeBase),
			Generic:       pou.HasGenerics(),
		})
	}
}

// genericParamName maps a type spelling that names one of the POU's type
// parameters to the internal generic type registered for it.
func (v *visitor) genericParamName(pou *ast.POU, pouName, typeName string) string {
	for _, g := range pou.Generics {
		if strings.EqualFold(g.Name, typeName) {
			return genericTypeName(pouName, g.Name)
		}
	}
	return typeName
}

func genericTypeName(pou, param string) string {
	return "__" + pou + "__" + param
}

// registerAutoPointer registers the implicit auto-deref pointer type used
// to pass a by-ref parameter of the given type.
func (v *visitor) registerAutoPointer(inner string) {
	name := typesys.InternalTypeName("auto_pointer_to_", inner)
	v.index.RegisterType(&typesys.DataType{
		Name:       name,
		Definition: typesys.PointerDef{InnerTypeName: inner, AutoDeref: true},
		Nature:     typesys.NatureAny,
	})
}
