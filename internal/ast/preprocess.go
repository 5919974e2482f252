package ast

import "fmt"

// PreProcess normalizes a freshly parsed unit so later stages only see
// named top-level types: anonymous type declarations on variables are
// lifted to synthetic TYPE entries named __<container>_<var> and the
// variable is rewritten to reference them. Running it twice is a no-op,
// since lifted variables carry plain TypeReferences afterwards.
func PreProcess(unit *CompilationUnit, ids IdProvider) {
	for _, pou := range unit.Pous {
		for _, block := range pou.Blocks {
			liftBlockTypes(unit, pou.Name, block, ids)
		}
	}
	for _, block := range unit.Globals {
		liftBlockTypes(unit, "global", block, ids)
	}
	for _, decl := range unit.Types {
		liftNestedTypes(unit, decl.Name, decl.Type, ids)
	}
}

func liftBlockTypes(unit *CompilationUnit, container string, block *VariableBlock, ids IdProvider) {
	for _, v := range block.Variables {
		if needsLifting(v.Type) {
			name := InternalTypeName(container, v.Name)
			liftNestedTypes(unit, name, v.Type, ids)
			unit.Types = append(unit.Types, &UserTypeDeclaration{
				NodeBase: NewNodeBase(ids.Next(), v.Type.Pos()),
				Name:     name,
				Type:     v.Type,
			})
			v.Type = &TypeReference{
				NodeBase: NewNodeBase(ids.Next(), v.Type.Pos()),
				Name:     name,
			}
		}
	}
}

// liftNestedTypes lifts anonymous member and element types inside an
// already-named declaration (struct members, array elements).
func liftNestedTypes(unit *CompilationUnit, container string, decl TypeDecl, ids IdProvider) {
	switch t := decl.(type) {
	case *StructTypeDecl:
		for _, m := range t.Members {
			if needsLifting(m.Type) {
				name := InternalTypeName(container, m.Name)
				liftNestedTypes(unit, name, m.Type, ids)
				unit.Types = append(unit.Types, &UserTypeDeclaration{
					NodeBase: NewNodeBase(ids.Next(), m.Type.Pos()),
					Name:     name,
					Type:     m.Type,
				})
				m.Type = &TypeReference{
					NodeBase: NewNodeBase(ids.Next(), m.Type.Pos()),
					Name:     name,
				}
			}
		}
	case *ArrayTypeDecl:
		if needsLifting(t.Element) {
			name := InternalTypeName(container, "")
			liftNestedTypes(unit, name, t.Element, ids)
			unit.Types = append(unit.Types, &UserTypeDeclaration{
				NodeBase: NewNodeBase(ids.Next(), t.Element.Pos()),
				Name:     name,
				Type:     t.Element,
			})
			t.Element = &TypeReference{
				NodeBase: NewNodeBase(ids.Next(), t.Element.Pos()),
				Name:     name,
			}
		}
	case *PointerTypeDecl:
		if needsLifting(t.Referenced) {
			name := InternalTypeName(container, "")
			liftNestedTypes(unit, name, t.Referenced, ids)
			unit.Types = append(unit.Types, &UserTypeDeclaration{
				NodeBase: NewNodeBase(ids.Next(), t.Referenced.Pos()),
				Name:     name,
				Type:     t.Referenced,
			})
			t.Referenced = &TypeReference{
				NodeBase: NewNodeBase(ids.Next(), t.Referenced.Pos()),
				Name:     name,
			}
		}
	}
}

// needsLifting reports whether a declaration-side type must be replaced
// by a named reference. Unsized STRING/WSTRING collapse to the built-in
// type name instead of producing a synthetic declaration.
func needsLifting(decl TypeDecl) bool {
	switch t := decl.(type) {
	case *TypeReference:
		return false
	case *StringTypeDecl:
		return t.Length != nil
	default:
		return true
	}
}

// InternalTypeName builds a name in the compiler-reserved `__` namespace.
func InternalTypeName(container, member string) string {
	if member == "" {
		return fmt.Sprintf("__%s_", container)
	}
	return fmt.Sprintf("__%s_%s", container, member)
}
