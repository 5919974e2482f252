// Package index builds and holds the global symbol table: every declared
// type, POU, variable and implementation, plus the constant-expression
// store. Names live in a single flat, case-insensitive namespace.
package index

import (
	"strings"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/typesys"
)

// VariableIndexEntry describes one indexed variable: a global, a POU
// member, or a struct member.
type VariableIndexEntry struct {
	Name          string
	QualifiedName string // e.g. "myProg.x", or just "g" for globals
	TypeName      string
	Constant      bool
	Linkage       ast.LinkageType
	BlockKind     ast.VariableBlockKind
	Location      ast.SourceLocation
	InitialValue  *typesys.ConstId
	// ArgumentPosition orders declared parameters; -1 for non-parameters.
	ArgumentPosition int
}

// IsParameter reports whether the variable is part of a POU's call
// interface.
func (v *VariableIndexEntry) IsParameter() bool {
	switch v.BlockKind {
	case ast.BlockInput, ast.BlockOutput, ast.BlockInOut:
		return true
	}
	return false
}

// PouIndexEntry describes one indexed POU.
type PouIndexEntry struct {
	Name           string
	Kind           ast.PouKind
	ParentName     string
	ReturnTypeName string
	InstanceStruct string // name of the struct type carrying the POU's state
	Linkage        ast.LinkageType
	Location       ast.SourceLocation
	Generics       []ast.GenericBinding
}

// IsGeneric reports whether the POU declares type parameters.
func (p *PouIndexEntry) IsGeneric() bool { return len(p.Generics) > 0 }

// ImplementationIndexEntry describes an emittable implementation: a POU
// body, an action, or a synthesized generic instance.
type ImplementationIndexEntry struct {
	CallName      string // mangled name for generic instances
	ContainerName string // owning POU for actions and methods
	Location      ast.SourceLocation
	Generic       bool
}

// EnumElementEntry is a globally visible enumeration element.
type EnumElementEntry struct {
	Name         string
	EnumTypeName string
	Value        typesys.ConstId
	Location     ast.SourceLocation
}

// Index is the symbol table of one unit, or — after merging — of the
// whole build. Lookup is case-insensitive; the first registration of a
// name stays canonical and later duplicates are retained only so global
// validation can report collisions.
type Index struct {
	types           map[string]*typesys.DataType
	typeDups        map[string][]*typesys.DataType
	pous            map[string]*PouIndexEntry
	pouDups         map[string][]*PouIndexEntry
	globals         map[string]*VariableIndexEntry
	globalDups      map[string][]*VariableIndexEntry
	members         map[string][]*VariableIndexEntry // container -> ordered members
	implementations map[string]*ImplementationIndexEntry
	enumElements    map[string]*EnumElementEntry
	constants       *ConstExpressions

	// orderedTypeNames keeps registration order for deterministic walks.
	orderedTypeNames []string
	orderedPouNames  []string
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		types:           make(map[string]*typesys.DataType),
		typeDups:        make(map[string][]*typesys.DataType),
		pous:            make(map[string]*PouIndexEntry),
		pouDups:         make(map[string][]*PouIndexEntry),
		globals:         make(map[string]*VariableIndexEntry),
		globalDups:      make(map[string][]*VariableIndexEntry),
		members:         make(map[string][]*VariableIndexEntry),
		implementations: make(map[string]*ImplementationIndexEntry),
		enumElements:    make(map[string]*EnumElementEntry),
		constants:       NewConstExpressions(),
	}
}

func fold(name string) string { return strings.ToLower(name) }

// RegisterType adds a type declaration. The first registration under a
// name wins; later ones are kept for duplicate diagnostics only.
func (idx *Index) RegisterType(dt *typesys.DataType) {
	key := fold(dt.Name)
	if _, exists := idx.types[key]; exists {
		idx.typeDups[key] = append(idx.typeDups[key], dt)
		return
	}
	idx.types[key] = dt
	idx.orderedTypeNames = append(idx.orderedTypeNames, dt.Name)
}

// RegisterPou adds a POU entry, keeping the first as canonical.
func (idx *Index) RegisterPou(entry *PouIndexEntry) {
	key := fold(entry.Name)
	if _, exists := idx.pous[key]; exists {
		idx.pouDups[key] = append(idx.pouDups[key], entry)
		return
	}
	idx.pous[key] = entry
	idx.orderedPouNames = append(idx.orderedPouNames, entry.Name)
}

// RegisterGlobal adds a global variable entry.
func (idx *Index) RegisterGlobal(entry *VariableIndexEntry) {
	key := fold(entry.Name)
	if _, exists := idx.globals[key]; exists {
		idx.globalDups[key] = append(idx.globalDups[key], entry)
		return
	}
	idx.globals[key] = entry
}

// RegisterMember adds a member variable under its container.
func (idx *Index) RegisterMember(container string, entry *VariableIndexEntry) {
	idx.members[fold(container)] = append(idx.members[fold(container)], entry)
}

// RegisterImplementation adds an implementation entry.
func (idx *Index) RegisterImplementation(entry *ImplementationIndexEntry) {
	key := fold(entry.CallName)
	if _, exists := idx.implementations[key]; !exists {
		idx.implementations[key] = entry
	}
}

// RegisterEnumElement adds an enumeration element to the flat namespace.
func (idx *Index) RegisterEnumElement(entry *EnumElementEntry) {
	key := fold(entry.Name)
	if _, exists := idx.enumElements[key]; !exists {
		idx.enumElements[key] = entry
	}
}

// RegisterBuiltins registers the built-in type table. Must run exactly
// once per build, before any user unit is imported.
func (idx *Index) RegisterBuiltins() {
	builtins := typesys.GetBuiltinTypes()
	for i := range builtins {
		idx.RegisterType(&builtins[i])
	}
}

// FindType returns the canonical type registered under name, or nil.
func (idx *Index) FindType(name string) *typesys.DataType {
	return idx.types[fold(name)]
}

// FindEffectiveType follows aliases and sub-ranges to the intrinsic type.
// Returns nil for unknown names. Alias chains in a well-formed index are
// short; a visited set guards against declaration cycles.
func (idx *Index) FindEffectiveType(name string) *typesys.DataType {
	visited := make(map[string]bool)
	current := idx.FindType(name)
	for current != nil {
		key := fold(current.Name)
		if visited[key] {
			return nil
		}
		visited[key] = true
		switch def := current.Definition.(type) {
		case typesys.AliasDef:
			current = idx.FindType(def.ReferencedTypeName)
		case typesys.SubRangeDef:
			current = idx.FindType(def.UnderlyingTypeName)
		default:
			return current
		}
	}
	return nil
}

// GetConstantInt implements typesys.TypeLookup for type-size queries.
func (idx *Index) GetConstantInt(id typesys.ConstId) (int64, bool) {
	v, ok := idx.constants.ResolvedValue(id)
	if !ok || v.Kind != ValueInt {
		return 0, false
	}
	return v.Int, true
}

// FindPou returns the POU entry for name, or nil.
func (idx *Index) FindPou(name string) *PouIndexEntry {
	return idx.pous[fold(name)]
}

// FindGlobal returns the global variable entry for name, or nil.
func (idx *Index) FindGlobal(name string) *VariableIndexEntry {
	return idx.globals[fold(name)]
}

// FindMember looks up a member inside a container's member list.
func (idx *Index) FindMember(container, member string) *VariableIndexEntry {
	target := fold(member)
	for _, m := range idx.members[fold(container)] {
		if fold(m.Name) == target {
			return m
		}
	}
	return nil
}

// Members returns a container's ordered member list.
func (idx *Index) Members(container string) []*VariableIndexEntry {
	return idx.members[fold(container)]
}

// DeclaredParameters returns a POU's parameters in declaration order.
func (idx *Index) DeclaredParameters(pou string) []*VariableIndexEntry {
	var params []*VariableIndexEntry
	for _, m := range idx.members[fold(pou)] {
		if m.IsParameter() {
			params = append(params, m)
		}
	}
	return params
}

// FindReturnType returns the declared return type of a POU, or nil.
func (idx *Index) FindReturnType(pou string) *typesys.DataType {
	entry := idx.FindPou(pou)
	if entry == nil || entry.ReturnTypeName == "" {
		return nil
	}
	return idx.FindType(entry.ReturnTypeName)
}

// FindImplementation returns the implementation entry for a call name.
func (idx *Index) FindImplementation(name string) *ImplementationIndexEntry {
	return idx.implementations[fold(name)]
}

// FindEnumElement returns the enum element registered under name, or nil.
func (idx *Index) FindEnumElement(name string) *EnumElementEntry {
	return idx.enumElements[fold(name)]
}

// GetConstExpressions exposes the constant-expression store.
func (idx *Index) GetConstExpressions() *ConstExpressions {
	return idx.constants
}

// TypeNames returns the canonical type names in registration order.
func (idx *Index) TypeNames() []string { return idx.orderedTypeNames }

// PouNames returns the canonical POU names in registration order.
func (idx *Index) PouNames() []string { return idx.orderedPouNames }

// Implementations returns all registered implementations.
func (idx *Index) Implementations() map[string]*ImplementationIndexEntry {
	return idx.implementations
}

// DuplicateTypes returns, per name, all type declarations beyond the
// canonical one.
func (idx *Index) DuplicateTypes() map[string][]*typesys.DataType { return idx.typeDups }

// DuplicatePous returns the non-canonical POU registrations.
func (idx *Index) DuplicatePous() map[string][]*PouIndexEntry { return idx.pouDups }

// DuplicateGlobals returns the non-canonical global registrations.
func (idx *Index) DuplicateGlobals() map[string][]*VariableIndexEntry { return idx.globalDups }

// Globals returns the canonical global table.
func (idx *Index) Globals() map[string]*VariableIndexEntry { return idx.globals }

// Import merges another per-unit index into this one. Entries concatenate
// without deduplication beyond first-wins; collision diagnostics come from
// global validation. Constant-expression references are rebased onto the
// combined store.
func (idx *Index) Import(other *Index) {
	offset := idx.constants.Import(other.constants)

	for _, name := range other.orderedTypeNames {
		dt := other.types[fold(name)]
		idx.RegisterType(rebaseType(dt, offset))
	}
	for key, dups := range other.typeDups {
		for _, dt := range dups {
			rebased := rebaseType(dt, offset)
			if _, exists := idx.types[key]; exists {
				idx.typeDups[key] = append(idx.typeDups[key], rebased)
			} else {
				idx.RegisterType(rebased)
			}
		}
	}

	for _, name := range other.orderedPouNames {
		idx.RegisterPou(other.pous[fold(name)])
	}
	for key, dups := range other.pouDups {
		for _, p := range dups {
			if _, exists := idx.pous[key]; exists {
				idx.pouDups[key] = append(idx.pouDups[key], p)
			} else {
				idx.RegisterPou(p)
			}
		}
	}

	for _, g := range other.globals {
		idx.RegisterGlobal(rebaseVariable(g, offset))
	}
	for _, dups := range other.globalDups {
		for _, g := range dups {
			idx.RegisterGlobal(rebaseVariable(g, offset))
		}
	}

	for container, members := range other.members {
		for _, m := range members {
			idx.members[container] = append(idx.members[container], rebaseVariable(m, offset))
		}
	}

	for _, impl := range other.implementations {
		idx.RegisterImplementation(impl)
	}
	for _, el := range other.enumElements {
		rebased := *el
		rebased.Value = el.Value + offset
		idx.RegisterEnumElement(&rebased)
	}
}

func rebaseType(dt *typesys.DataType, offset typesys.ConstId) *typesys.DataType {
	if offset == 0 {
		return dt
	}
	clone := *dt
	if dt.InitialValue != nil {
		v := *dt.InitialValue + offset
		clone.InitialValue = &v
	}
	switch def := dt.Definition.(type) {
	case typesys.StringDef:
		def.Length = def.Length.Rebased(offset)
		clone.Definition = def
	case typesys.ArrayDef:
		dims := make([]typesys.ArrayDimension, len(def.Dimensions))
		for i, d := range def.Dimensions {
			dims[i] = typesys.ArrayDimension{
				StartOffset: d.StartOffset.Rebased(offset),
				EndOffset:   d.EndOffset.Rebased(offset),
				Star:        d.Star,
			}
		}
		def.Dimensions = dims
		clone.Definition = def
	}
	return &clone
}

func rebaseVariable(v *VariableIndexEntry, offset typesys.ConstId) *VariableIndexEntry {
	if offset == 0 || v.InitialValue == nil {
		return v
	}
	clone := *v
	value := *v.InitialValue + offset
	clone.InitialValue = &value
	return &clone
}
