package ast

import (
	"strings"

	"github.com/plc-foundry/go-stc/internal/lexer"
)

// LinkageType categorizes how a compilation unit participates in the build.
type LinkageType int

const (
	// LinkageInternal units are compiled and emitted.
	LinkageInternal LinkageType = iota
	// LinkageExternal units contribute declarations only (header files,
	// library includes); no code is emitted for them.
	LinkageExternal
)

func (l LinkageType) String() string {
	if l == LinkageExternal {
		return "External"
	}
	return "Internal"
}

// PouKind is the variant of a Program Organization Unit.
type PouKind int

const (
	PouProgram PouKind = iota
	PouFunction
	PouFunctionBlock
	PouAction
	PouClass
	PouMethod
)

func (k PouKind) String() string {
	switch k {
	case PouProgram:
		return "Program"
	case PouFunction:
		return "Function"
	case PouFunctionBlock:
		return "FunctionBlock"
	case PouAction:
		return "Action"
	case PouClass:
		return "Class"
	default:
		return "Method"
	}
}

// VariableBlockKind is the declaration section a variable belongs to.
type VariableBlockKind int

const (
	BlockLocal VariableBlockKind = iota
	BlockTemp
	BlockInput
	BlockOutput
	BlockInOut
	BlockGlobal
	BlockExternal
)

func (k VariableBlockKind) String() string {
	switch k {
	case BlockLocal:
		return "VAR"
	case BlockTemp:
		return "VAR_TEMP"
	case BlockInput:
		return "VAR_INPUT"
	case BlockOutput:
		return "VAR_OUTPUT"
	case BlockInOut:
		return "VAR_IN_OUT"
	case BlockGlobal:
		return "VAR_GLOBAL"
	default:
		return "VAR_EXTERNAL"
	}
}

// Variable is a single declared variable (or struct member).
type Variable struct {
	NodeBase
	Name        string
	Type        TypeDecl
	Initializer Expression // nil when absent
	Address     string     // hardware address from an AT clause, "" when absent
}

func (v *Variable) String() string {
	var sb strings.Builder
	sb.WriteString(v.Name)
	if v.Address != "" {
		sb.WriteString(" AT %" + v.Address)
	}
	sb.WriteString(" : ")
	sb.WriteString(v.Type.String())
	if v.Initializer != nil {
		sb.WriteString(" := " + v.Initializer.String())
	}
	return sb.String()
}

// VariableBlock is one VAR.. END_VAR section.
type VariableBlock struct {
	NodeBase
	Kind      VariableBlockKind
	Constant  bool // VAR_GLOBAL CONSTANT / VAR CONSTANT
	Retain    bool
	RefInput  bool // VAR_INPUT {ref}
	Variables []*Variable
}

func (vb *VariableBlock) String() string {
	var sb strings.Builder
	sb.WriteString(vb.Kind.String())
	if vb.Constant {
		sb.WriteString(" CONSTANT")
	}
	if vb.RefInput {
		sb.WriteString(" {ref}")
	}
	sb.WriteString(" ")
	for _, v := range vb.Variables {
		sb.WriteString(v.String() + "; ")
	}
	sb.WriteString("END_VAR ")
	return sb.String()
}

// GenericBinding is one type parameter of a generic POU with its
// nature constraint, e.g. `T: ANY_INT`.
type GenericBinding struct {
	Name   string
	Nature string // nature constraint spelling, e.g. ANY, ANY_INT, ANY_NUM
}

// POU is a Program Organization Unit: a named callable together with its
// interface and body. Actions carry their parent in ParentName.
type POU struct {
	NodeBase
	Kind           PouKind
	Name           string
	ParentName     string // parent POU for actions and methods
	Blocks         []*VariableBlock
	ReturnType     TypeDecl // nil for programs, actions, function blocks
	Generics       []GenericBinding
	Body           []Statement
	Linkage        LinkageType
	SuperClass     string // for classes
	GenericInstOf  string // base name when this POU was synthesized from a generic
}

func (p *POU) String() string {
	var sb strings.Builder
	switch p.Kind {
	case PouProgram:
		sb.WriteString("PROGRAM " + p.Name + " ")
	case PouFunction:
		sb.WriteString("FUNCTION " + p.Name)
		if len(p.Generics) > 0 {
			sb.WriteString("<")
			for i, g := range p.Generics {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(g.Name + ": " + g.Nature)
			}
			sb.WriteString(">")
		}
		if p.ReturnType != nil {
			sb.WriteString(" : " + p.ReturnType.String())
		}
		sb.WriteString(" ")
	case PouFunctionBlock:
		sb.WriteString("FUNCTION_BLOCK " + p.Name + " ")
	case PouAction:
		sb.WriteString("ACTION " + p.ParentName + "." + p.Name + " ")
	case PouClass:
		sb.WriteString("CLASS " + p.Name + " ")
	case PouMethod:
		sb.WriteString("METHOD " + p.ParentName + "." + p.Name + " ")
	}
	for _, b := range p.Blocks {
		sb.WriteString(b.String())
	}
	for _, s := range p.Body {
		sb.WriteString(s.String() + " ")
	}
	switch p.Kind {
	case PouProgram:
		sb.WriteString("END_PROGRAM")
	case PouFunction:
		sb.WriteString("END_FUNCTION")
	case PouFunctionBlock:
		sb.WriteString("END_FUNCTION_BLOCK")
	case PouAction:
		sb.WriteString("END_ACTION")
	case PouClass:
		sb.WriteString("END_CLASS")
	case PouMethod:
		sb.WriteString("END_METHOD")
	}
	return sb.String()
}

// HasGenerics reports whether the POU declares type parameters.
func (p *POU) HasGenerics() bool { return len(p.Generics) > 0 }

// Block returns the first block of the given kind, or nil.
func (p *POU) Block(kind VariableBlockKind) *VariableBlock {
	for _, b := range p.Blocks {
		if b.Kind == kind {
			return b
		}
	}
	return nil
}

// UserTypeDeclaration is one entry of a TYPE .. END_TYPE section.
type UserTypeDeclaration struct {
	NodeBase
	Name        string
	Type        TypeDecl
	Initializer Expression // default initial value, nil when absent
}

func (u *UserTypeDeclaration) String() string {
	var sb strings.Builder
	sb.WriteString("TYPE " + u.Name + " : " + u.Type.String())
	if u.Initializer != nil {
		sb.WriteString(" := " + u.Initializer.String())
	}
	sb.WriteString("; END_TYPE")
	return sb.String()
}

// CompilationUnit is the parsed contents of one source file.
type CompilationUnit struct {
	FileName string
	Linkage  LinkageType
	Pous     []*POU
	Types    []*UserTypeDeclaration
	Globals  []*VariableBlock
}

// String renders the whole unit in canonical Structured Text.
func (cu *CompilationUnit) String() string {
	var sb strings.Builder
	for _, t := range cu.Types {
		sb.WriteString(t.String() + "\n")
	}
	for _, g := range cu.Globals {
		sb.WriteString(g.String() + "\n")
	}
	for _, p := range cu.Pous {
		sb.WriteString(p.String() + "\n")
	}
	return sb.String()
}

// TypeDecl is the declaration-side type syntax attached to variables and
// TYPE entries. The pre-processor lowers anonymous declarations to named
// references, so after pre-processing only TypeReference and unsized
// STRING/WSTRING declarations survive on variables.
type TypeDecl interface {
	Node
	typeDeclNode()
}

// TypeReference names an existing type.
type TypeReference struct {
	NodeBase
	Name string
}

func (t *TypeReference) typeDeclNode() {}
func (t *TypeReference) String() string { return t.Name }

// Dimension is one array dimension: a range, or `*` for variable-length.
type Dimension struct {
	Range *RangeExpression // nil when Star
	Star  bool
}

func (d Dimension) String() string {
	if d.Star {
		return "*"
	}
	return d.Range.String()
}

// ArrayTypeDecl is ARRAY[dims] OF element.
type ArrayTypeDecl struct {
	NodeBase
	Dimensions []Dimension
	Element    TypeDecl
}

func (a *ArrayTypeDecl) typeDeclNode() {}
func (a *ArrayTypeDecl) String() string {
	dims := make([]string, len(a.Dimensions))
	for i, d := range a.Dimensions {
		dims[i] = d.String()
	}
	return "ARRAY[" + strings.Join(dims, ", ") + "] OF " + a.Element.String()
}

// IsVariableLength reports whether any dimension is `*`.
func (a *ArrayTypeDecl) IsVariableLength() bool {
	for _, d := range a.Dimensions {
		if d.Star {
			return true
		}
	}
	return false
}

// PointerTypeDecl is REF_TO T / POINTER TO T. AutoDeref pointers are
// created implicitly for VAR_IN_OUT, VAR_OUTPUT and {ref} VAR_INPUT.
type PointerTypeDecl struct {
	NodeBase
	Referenced TypeDecl
	AutoDeref  bool
}

func (p *PointerTypeDecl) typeDeclNode() {}
func (p *PointerTypeDecl) String() string { return "REF_TO " + p.Referenced.String() }

// StructTypeDecl is STRUCT .. END_STRUCT.
type StructTypeDecl struct {
	NodeBase
	Members []*Variable
}

func (s *StructTypeDecl) typeDeclNode() {}
func (s *StructTypeDecl) String() string {
	var sb strings.Builder
	sb.WriteString("STRUCT ")
	for _, m := range s.Members {
		sb.WriteString(m.String() + "; ")
	}
	sb.WriteString("END_STRUCT")
	return sb.String()
}

// EnumTypeDecl is a parenthesized element list: (red, green, blue).
type EnumTypeDecl struct {
	NodeBase
	Elements []*Identifier
}

func (e *EnumTypeDecl) typeDeclNode() {}
func (e *EnumTypeDecl) String() string {
	elems := make([]string, len(e.Elements))
	for i, el := range e.Elements {
		elems[i] = el.String()
	}
	return "(" + strings.Join(elems, ", ") + ")"
}

// SubRangeTypeDecl is `base (low..high)`.
type SubRangeTypeDecl struct {
	NodeBase
	BaseName string
	Bounds   *RangeExpression
}

func (s *SubRangeTypeDecl) typeDeclNode() {}
func (s *SubRangeTypeDecl) String() string {
	return s.BaseName + " (" + s.Bounds.String() + ")"
}

// StringTypeDecl is STRING[n] / WSTRING[n]. Length nil means the default.
type StringTypeDecl struct {
	NodeBase
	Wide   bool
	Length Expression
}

func (s *StringTypeDecl) typeDeclNode() {}
func (s *StringTypeDecl) String() string {
	name := "STRING"
	if s.Wide {
		name = "WSTRING"
	}
	if s.Length != nil {
		return name + "[" + s.Length.String() + "]"
	}
	return name
}

// SourceLocation pairs a position with the file it came from; the index
// stores it for every registered symbol.
type SourceLocation struct {
	FileName string
	Pos      lexer.Position
}
