package typesys

// Built-in type names. Lookup is case-insensitive; these are the canonical
// spellings registered in the index.
const (
	BoolType    = "BOOL"
	ByteType    = "BYTE"
	SintType    = "SINT"
	UsintType   = "USINT"
	WordType    = "WORD"
	IntType     = "INT"
	UintType    = "UINT"
	DwordType   = "DWORD"
	DintType    = "DINT"
	UdintType   = "UDINT"
	LwordType   = "LWORD"
	LintType    = "LINT"
	UlintType   = "ULINT"
	RealType    = "REAL"
	LrealType   = "LREAL"
	StringType  = "STRING"
	WstringType = "WSTRING"
	CharType    = "CHAR"
	WcharType   = "WCHAR"
	TimeType    = "TIME"
	LtimeType   = "LTIME"
	DateType    = "DATE"
	LdateType   = "LDATE"
	DateAndTimeType     = "DATE_AND_TIME"
	LongDateAndTimeType = "LDATE_AND_TIME"
	TimeOfDayType       = "TIME_OF_DAY"
	LongTimeOfDayType   = "LTIME_OF_DAY"
	VoidType            = "VOID"
)

func builtin(name string, def DataTypeDefinition, nature TypeNature) DataType {
	return DataType{Name: name, Definition: def, Nature: nature}
}

func alias(name, referenced string, nature TypeNature) DataType {
	return DataType{
		Name:       name,
		Definition: AliasDef{ReferencedTypeName: referenced},
		Nature:     nature,
		AliasOf:    referenced,
	}
}

// GetBuiltinTypes returns the unconditional built-in type table, including
// the short date/time alias spellings (T, LT, D, LD, DT, LDT, TOD, LTOD).
// The caller registers them into the global index exactly once per build.
func GetBuiltinTypes() []DataType {
	return []DataType{
		builtin(BoolType, IntegerDef{Signed: false, StorageBits: 8, SemanticBits: 1}, NatureBit),
		builtin(ByteType, IntegerDef{Signed: false, StorageBits: 8, SemanticBits: 8}, NatureBit),
		builtin(SintType, IntegerDef{Signed: true, StorageBits: 8, SemanticBits: 8}, NatureSigned),
		builtin(UsintType, IntegerDef{Signed: false, StorageBits: 8, SemanticBits: 8}, NatureUnsigned),
		builtin(WordType, IntegerDef{Signed: false, StorageBits: 16, SemanticBits: 16}, NatureBit),
		builtin(IntType, IntegerDef{Signed: true, StorageBits: 16, SemanticBits: 16}, NatureSigned),
		builtin(UintType, IntegerDef{Signed: false, StorageBits: 16, SemanticBits: 16}, NatureUnsigned),
		builtin(DwordType, IntegerDef{Signed: false, StorageBits: 32, SemanticBits: 32}, NatureBit),
		builtin(DintType, IntegerDef{Signed: true, StorageBits: 32, SemanticBits: 32}, NatureSigned),
		builtin(UdintType, IntegerDef{Signed: false, StorageBits: 32, SemanticBits: 32}, NatureUnsigned),
		builtin(LwordType, IntegerDef{Signed: false, StorageBits: 64, SemanticBits: 64}, NatureBit),
		builtin(LintType, IntegerDef{Signed: true, StorageBits: 64, SemanticBits: 64}, NatureSigned),
		builtin(UlintType, IntegerDef{Signed: false, StorageBits: 64, SemanticBits: 64}, NatureUnsigned),
		builtin(RealType, FloatDef{Bits: 32}, NatureReal),
		builtin(LrealType, FloatDef{Bits: 64}, NatureReal),
		builtin(StringType, StringDef{Length: LiteralSize(DefaultStringLen), Encoding: EncodingUtf8}, NatureString),
		builtin(WstringType, StringDef{Length: LiteralSize(DefaultStringLen), Encoding: EncodingUtf16}, NatureString),
		builtin(CharType, IntegerDef{Signed: false, StorageBits: 8, SemanticBits: 8}, NatureChar),
		builtin(WcharType, IntegerDef{Signed: false, StorageBits: 16, SemanticBits: 16}, NatureChar),
		builtin(TimeType, IntegerDef{Signed: true, StorageBits: 64, SemanticBits: 64}, NatureDuration),
		builtin(LtimeType, IntegerDef{Signed: true, StorageBits: 64, SemanticBits: 64}, NatureDuration),
		builtin(DateType, IntegerDef{Signed: true, StorageBits: 64, SemanticBits: 64}, NatureDate),
		builtin(LdateType, IntegerDef{Signed: true, StorageBits: 64, SemanticBits: 64}, NatureDate),
		builtin(DateAndTimeType, IntegerDef{Signed: true, StorageBits: 64, SemanticBits: 64}, NatureDate),
		builtin(LongDateAndTimeType, IntegerDef{Signed: true, StorageBits: 64, SemanticBits: 64}, NatureDate),
		builtin(TimeOfDayType, IntegerDef{Signed: true, StorageBits: 64, SemanticBits: 64}, NatureDate),
		builtin(LongTimeOfDayType, IntegerDef{Signed: true, StorageBits: 64, SemanticBits: 64}, NatureDate),
		builtin(VoidType, VoidDef{}, NatureVoid),

		alias("T", TimeType, NatureDuration),
		alias("LT", LtimeType, NatureDuration),
		alias("D", DateType, NatureDate),
		alias("LD", LdateType, NatureDate),
		alias("DT", DateAndTimeType, NatureDate),
		alias("LDT", LongDateAndTimeType, NatureDate),
		alias("TOD", TimeOfDayType, NatureDate),
		alias("LTOD", LongTimeOfDayType, NatureDate),
	}
}

// signedCounterparts maps each unsigned or bit integer type to the signed
// type of the same width.
var signedCounterparts = map[string]string{
	ByteType:  SintType,
	UsintType: SintType,
	WordType:  IntType,
	UintType:  IntType,
	DwordType: DintType,
	UdintType: DintType,
	LwordType: LintType,
	UlintType: LintType,
}

// GetSignedType returns the signed variant of an integer type, or the type
// itself when it is already signed or not an integer.
func GetSignedType(dataType *DataType, lookup TypeLookup) *DataType {
	if dataType == nil || !dataType.IsInt() && !dataType.HasNature(NatureBit) {
		return dataType
	}
	if signed, ok := signedCounterparts[dataType.Name]; ok {
		if t := lookup.FindType(signed); t != nil {
			return t
		}
	}
	return dataType
}
