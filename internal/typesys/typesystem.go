// Package typesys holds the catalog of built-in and derived data types,
// their sizes, natures and promotion relations.
package typesys

import (
	"fmt"

	"github.com/plc-foundry/go-stc/internal/ast"
)

// DefaultStringLen is the character capacity of STRING and WSTRING when no
// explicit length is declared. The terminator is not included.
const DefaultStringLen = 80

// Names of the runtime range-check functions the annotator attaches to
// assignments to sub-range typed destinations. They are provided by the
// link set, not defined by the compiler.
const (
	RangeCheckSigned    = "CheckRangeSigned"
	RangeCheckLSigned   = "CheckLRangeSigned"
	RangeCheckUnsigned  = "CheckRangeUnsigned"
	RangeCheckLUnsigned = "CheckLRangeUnsigned"
)

// ConstId references an entry of the constant-expression store.
// Sizes and initial values that depend on constants hold a ConstId until
// the evaluator folds them.
type ConstId int32

// TypeSize is either a literal bit/character count or a reference into the
// constant-expression store.
type TypeSize struct {
	value   int64
	constId ConstId
	isConst bool
}

// LiteralSize creates a resolved TypeSize.
func LiteralSize(v int64) TypeSize { return TypeSize{value: v} }

// ConstSize creates a TypeSize that must be resolved via the const store.
func ConstSize(id ConstId) TypeSize { return TypeSize{constId: id, isConst: true} }

// Resolve returns the concrete value, consulting the lookup for
// const-expression references. The second result is false when the
// referenced constant is unresolvable.
func (s TypeSize) Resolve(lookup TypeLookup) (int64, bool) {
	if !s.isConst {
		return s.value, true
	}
	return lookup.GetConstantInt(s.constId)
}

// IsConstReference reports whether the size depends on a constant.
func (s TypeSize) IsConstReference() bool { return s.isConst }

// Rebased shifts a const-expression reference by the given offset; used
// when one index imports another and their constant stores concatenate.
func (s TypeSize) Rebased(offset ConstId) TypeSize {
	if !s.isConst {
		return s
	}
	return TypeSize{constId: s.constId + offset, isConst: true}
}

// ConstRef returns the referenced ConstId; only meaningful when
// IsConstReference is true.
func (s TypeSize) ConstRef() ConstId { return s.constId }

// TypeLookup is the read surface the type system needs from the index.
// Defined here so typesys does not depend on the index package.
type TypeLookup interface {
	// FindEffectiveType follows aliases and sub-ranges to the intrinsic type.
	FindEffectiveType(name string) *DataType

	// FindType returns the type registered under name, or nil.
	FindType(name string) *DataType

	// GetConstantInt returns the folded integer value of a constant
	// expression, or false when it is not (yet) resolvable.
	GetConstantInt(id ConstId) (int64, bool)
}

// StringEncoding distinguishes the two string families.
type StringEncoding int

const (
	EncodingUtf8 StringEncoding = iota
	EncodingUtf16
)

func (e StringEncoding) String() string {
	if e == EncodingUtf16 {
		return "UTF-16"
	}
	return "UTF-8"
}

// StructSource records where a struct definition came from: a TYPE
// declaration, or the variable interface of a POU.
type StructSource int

const (
	StructDeclared StructSource = iota
	StructPou
)

// DataTypeDefinition is the tagged variant describing a type's inner
// structure. Exactly one concrete struct per kind.
type DataTypeDefinition interface {
	definitionKind() string
}

// IntegerDef covers all integer and bit types. SemanticBits differs from
// StorageBits only for BOOL (1 semantic bit stored in 8).
type IntegerDef struct {
	Signed       bool
	StorageBits  uint32
	SemanticBits uint32
}

func (IntegerDef) definitionKind() string { return "Integer" }

// FloatDef covers REAL (32) and LREAL (64).
type FloatDef struct {
	Bits uint32
}

func (FloatDef) definitionKind() string { return "Float" }

// StringDef covers STRING and WSTRING; Length counts characters without
// the terminator.
type StringDef struct {
	Length   TypeSize
	Encoding StringEncoding
}

func (StringDef) definitionKind() string { return "String" }

// ArrayDimension is one dimension with inclusive offsets. Start may be
// negative. A Star dimension belongs to a variable-length array.
type ArrayDimension struct {
	StartOffset TypeSize
	EndOffset   TypeSize
	Star        bool
}

// Length returns end - start + 1.
func (d ArrayDimension) Length(lookup TypeLookup) (int64, bool) {
	if d.Star {
		return 0, false
	}
	start, okS := d.StartOffset.Resolve(lookup)
	end, okE := d.EndOffset.Resolve(lookup)
	if !okS || !okE {
		return 0, false
	}
	return end - start + 1, true
}

// ArrayDef is a (possibly multi-dimensional) array over a named inner type.
type ArrayDef struct {
	InnerTypeName string
	Dimensions    []ArrayDimension
}

func (ArrayDef) definitionKind() string { return "Array" }

// IsVariableLength reports whether any dimension is `*`.
func (a ArrayDef) IsVariableLength() bool {
	for _, d := range a.Dimensions {
		if d.Star {
			return true
		}
	}
	return false
}

// StructDef is a record of named members; member types are resolved
// through the index's member table under ContainerName.
type StructDef struct {
	ContainerName string
	Members       []string
	Source        StructSource
	PouKind       string // set when Source == StructPou
}

func (StructDef) definitionKind() string { return "Struct" }

// PointerDef is a typed pointer. AutoDeref pointers are implicitly loaded
// on read; they back VAR_IN_OUT, VAR_OUTPUT and {ref} VAR_INPUT parameters.
type PointerDef struct {
	InnerTypeName string
	AutoDeref     bool
}

func (PointerDef) definitionKind() string { return "Pointer" }

// EnumDef is an enumeration over a named underlying integer type.
type EnumDef struct {
	UnderlyingTypeName string
	Elements           []string
}

func (EnumDef) definitionKind() string { return "Enum" }

// SubRangeDef constrains a named underlying integer type to the bounds
// stored on the owning DataType.
type SubRangeDef struct {
	UnderlyingTypeName string
}

func (SubRangeDef) definitionKind() string { return "SubRange" }

// AliasDef renames another type.
type AliasDef struct {
	ReferencedTypeName string
}

func (AliasDef) definitionKind() string { return "Alias" }

// GenericDef is a type parameter inside a generic POU's interface.
type GenericDef struct {
	TypeParameterName string
	NatureConstraint  TypeNature
}

func (GenericDef) definitionKind() string { return "Generic" }

// VoidDef is the unit type of procedures and unresolved references.
type VoidDef struct{}

func (VoidDef) definitionKind() string { return "Void" }

// DataType is the declaration of a named type.
type DataType struct {
	Name         string
	InitialValue *ConstId
	Definition   DataTypeDefinition
	Nature       TypeNature
	Location     ast.SourceLocation
	AliasOf      string
	SubRange     *ast.RangeExpression
}

func (dt *DataType) String() string {
	return fmt.Sprintf("%s(%s)", dt.Name, dt.Definition.definitionKind())
}

// HasNature reports whether the type's nature derives from the given one.
func (dt *DataType) HasNature(nature TypeNature) bool {
	return dt.Nature.Derives(nature)
}

// IsNumerical reports whether the type is an INT or REAL family member.
// CHAR types reuse IntegerDef storage but are not numerical.
func (dt *DataType) IsNumerical() bool { return dt.Nature.IsNumerical() }

// IsInt reports whether the definition is an integer.
func (dt *DataType) IsInt() bool {
	_, ok := dt.Definition.(IntegerDef)
	return ok && dt.Nature.Derives(NatureInt)
}

// IsReal reports whether the definition is a float.
func (dt *DataType) IsReal() bool {
	_, ok := dt.Definition.(FloatDef)
	return ok
}

// IsBool reports whether this is the BOOL type (1 semantic bit).
func (dt *DataType) IsBool() bool {
	def, ok := dt.Definition.(IntegerDef)
	return ok && def.SemanticBits == 1
}

// IsString reports whether the definition is a string.
func (dt *DataType) IsString() bool {
	_, ok := dt.Definition.(StringDef)
	return ok
}

// IsArray reports whether the definition is an array.
func (dt *DataType) IsArray() bool {
	_, ok := dt.Definition.(ArrayDef)
	return ok
}

// IsPointer reports whether the definition is a pointer.
func (dt *DataType) IsPointer() bool {
	_, ok := dt.Definition.(PointerDef)
	return ok
}

// IsAutoDerefPointer reports whether the type is a pointer loaded
// implicitly on read.
func (dt *DataType) IsAutoDerefPointer() bool {
	def, ok := dt.Definition.(PointerDef)
	return ok && def.AutoDeref
}

// IsEnum reports whether the definition is an enumeration.
func (dt *DataType) IsEnum() bool {
	_, ok := dt.Definition.(EnumDef)
	return ok
}

// IsStruct reports whether the definition is a struct.
func (dt *DataType) IsStruct() bool {
	_, ok := dt.Definition.(StructDef)
	return ok
}

// IsVoid reports whether this is the VOID type.
func (dt *DataType) IsVoid() bool {
	_, ok := dt.Definition.(VoidDef)
	return ok
}

// IsAlias reports whether the definition is an alias.
func (dt *DataType) IsAlias() bool {
	_, ok := dt.Definition.(AliasDef)
	return ok
}

// IsSubRange reports whether the definition is a sub-range.
func (dt *DataType) IsSubRange() bool {
	_, ok := dt.Definition.(SubRangeDef)
	return ok
}

// IsGeneric reports whether the definition is a generic type parameter.
func (dt *DataType) IsGeneric() bool {
	_, ok := dt.Definition.(GenericDef)
	return ok
}

// IsVariableLengthArray reports whether the type is an ARRAY[*].
func (dt *DataType) IsVariableLengthArray() bool {
	def, ok := dt.Definition.(ArrayDef)
	return ok && def.IsVariableLength()
}

// SizeInBits computes the storage size of the type in bits. An array is
// its element count times its element size; no padding or alignment is
// added. Returns false when a size depends on an unresolvable constant.
func (dt *DataType) SizeInBits(lookup TypeLookup) (uint32, bool) {
	switch def := dt.Definition.(type) {
	case IntegerDef:
		return def.StorageBits, true
	case FloatDef:
		return def.Bits, true
	case StringDef:
		length, ok := def.Length.Resolve(lookup)
		if !ok {
			return 0, false
		}
		charBits := uint32(8)
		if def.Encoding == EncodingUtf16 {
			charBits = 16
		}
		// +1 for the terminator
		return uint32(length+1) * charBits, true
	case ArrayDef:
		inner := lookup.FindEffectiveType(def.InnerTypeName)
		if inner == nil {
			return 0, false
		}
		innerSize, ok := inner.SizeInBits(lookup)
		if !ok {
			return 0, false
		}
		count := int64(1)
		for _, d := range def.Dimensions {
			length, ok := d.Length(lookup)
			if !ok {
				return 0, false
			}
			count *= length
		}
		return uint32(count) * innerSize, true
	case PointerDef:
		return 64, true
	case EnumDef:
		underlying := lookup.FindEffectiveType(def.UnderlyingTypeName)
		if underlying == nil {
			return 32, true
		}
		return underlying.SizeInBits(lookup)
	case SubRangeDef:
		underlying := lookup.FindEffectiveType(def.UnderlyingTypeName)
		if underlying == nil {
			return 0, false
		}
		return underlying.SizeInBits(lookup)
	case AliasDef:
		referenced := lookup.FindEffectiveType(def.ReferencedTypeName)
		if referenced == nil {
			return 0, false
		}
		return referenced.SizeInBits(lookup)
	case VoidDef, GenericDef:
		return 0, true
	default:
		return 0, false
	}
}

// ElementCount returns the total number of array elements across all
// dimensions.
func (dt *DataType) ElementCount(lookup TypeLookup) (int64, bool) {
	def, ok := dt.Definition.(ArrayDef)
	if !ok {
		return 0, false
	}
	count := int64(1)
	for _, d := range def.Dimensions {
		length, ok := d.Length(lookup)
		if !ok {
			return 0, false
		}
		count *= length
	}
	return count, true
}

// InternalTypeName builds a compiler-reserved type name with the given
// prefix, e.g. InternalTypeName("POINTER_TO_", "INT") -> "__POINTER_TO_INT".
func InternalTypeName(prefix, original string) string {
	return "__" + prefix + original
}
