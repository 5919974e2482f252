package typesys

// Rank orders types within a class for promotion. Integer rank is the
// storage width plus one when signed; float ranks sit above every integer
// at bits + 1000; enums take the rank of their underlying integer.
func Rank(dt *DataType, lookup TypeLookup) uint32 {
	switch def := dt.Definition.(type) {
	case IntegerDef:
		if def.Signed {
			return def.StorageBits + 1
		}
		return def.StorageBits
	case FloatDef:
		return def.Bits + 1000
	case StringDef:
		length, ok := def.Length.Resolve(lookup)
		if !ok {
			return 0
		}
		return uint32(length)
	case EnumDef:
		if underlying := lookup.FindEffectiveType(def.UnderlyingTypeName); underlying != nil {
			return Rank(underlying, lookup)
		}
		return 32
	default:
		size, _ := dt.SizeInBits(lookup)
		return size
	}
}

// SameTypeClass reports whether both types belong to a common promotion
// class: both integers (enums count through their underlying type), both
// floats, or both strings of the same encoding.
func SameTypeClass(left, right *DataType, lookup TypeLookup) bool {
	l := classOf(left, lookup)
	r := classOf(right, lookup)
	if l == classString {
		ls := left.Definition.(StringDef)
		rs, ok := right.Definition.(StringDef)
		return ok && ls.Encoding == rs.Encoding
	}
	return l != classOther && l == r
}

type typeClass int

const (
	classOther typeClass = iota
	classInt
	classFloat
	classString
)

func classOf(dt *DataType, lookup TypeLookup) typeClass {
	switch def := dt.Definition.(type) {
	case IntegerDef:
		return classInt
	case FloatDef:
		return classFloat
	case StringDef:
		return classString
	case EnumDef:
		if underlying := lookup.FindEffectiveType(def.UnderlyingTypeName); underlying != nil {
			return classOf(underlying, lookup)
		}
		return classInt
	default:
		return classOther
	}
}

// GetBiggerType returns the larger of two types: within one class the one
// of higher rank wins; for mixed int/float arithmetic REAL is returned when
// both operands fit into 32 bits, LREAL otherwise. All remaining pairs are
// left-biased.
func GetBiggerType(left, right *DataType, lookup TypeLookup) *DataType {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}

	if SameTypeClass(left, right, lookup) {
		if Rank(left, lookup) < Rank(right, lookup) {
			return right
		}
		return left
	}

	if left.IsNumerical() && right.IsNumerical() && (left.IsReal() || right.IsReal()) {
		realType := lookup.FindType(RealType)
		if realType == nil {
			return left
		}
		realSize, _ := realType.SizeInBits(lookup)
		leftSize, _ := left.SizeInBits(lookup)
		rightSize, _ := right.SizeInBits(lookup)
		if leftSize > realSize || rightSize > realSize {
			if lreal := lookup.FindType(LrealType); lreal != nil {
				return lreal
			}
		}
		return realType
	}

	return left
}

// PointerIntCompatible reports whether an integer type may mix with a
// pointer in arithmetic or comparison: only the pointer-width LWORD
// qualifies (the result type of ADR()).
func PointerIntCompatible(intType *DataType) bool {
	def, ok := intType.Definition.(IntegerDef)
	return ok && def.StorageBits == 64 && !def.Signed
}
