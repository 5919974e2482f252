package typesys

import (
	"strings"
	"testing"
)

// tableLookup is a minimal TypeLookup over the built-in table.
type tableLookup struct {
	types     map[string]*DataType
	constants map[ConstId]int64
}

func newTableLookup() *tableLookup {
	l := &tableLookup{
		types:     make(map[string]*DataType),
		constants: make(map[ConstId]int64),
	}
	builtins := GetBuiltinTypes()
	for i := range builtins {
		l.types[strings.ToLower(builtins[i].Name)] = &builtins[i]
	}
	return l
}

func (l *tableLookup) add(dt *DataType) { l.types[strings.ToLower(dt.Name)] = dt }

func (l *tableLookup) FindType(name string) *DataType {
	return l.types[strings.ToLower(name)]
}

func (l *tableLookup) FindEffectiveType(name string) *DataType {
	current := l.FindType(name)
	for current != nil {
		switch def := current.Definition.(type) {
		case AliasDef:
			current = l.FindType(def.ReferencedTypeName)
		case SubRangeDef:
			current = l.FindType(def.UnderlyingTypeName)
		default:
			return current
		}
	}
	return nil
}

func (l *tableLookup) GetConstantInt(id ConstId) (int64, bool) {
	v, ok := l.constants[id]
	return v, ok
}

func TestBuiltinTypeTable(t *testing.T) {
	lookup := newTableLookup()

	tests := []struct {
		name   string
		bits   uint32
		nature TypeNature
	}{
		{"BOOL", 8, NatureBit},
		{"BYTE", 8, NatureBit},
		{"SINT", 8, NatureSigned},
		{"USINT", 8, NatureUnsigned},
		{"WORD", 16, NatureBit},
		{"INT", 16, NatureSigned},
		{"UINT", 16, NatureUnsigned},
		{"DWORD", 32, NatureBit},
		{"DINT", 32, NatureSigned},
		{"UDINT", 32, NatureUnsigned},
		{"LWORD", 64, NatureBit},
		{"LINT", 64, NatureSigned},
		{"ULINT", 64, NatureUnsigned},
		{"REAL", 32, NatureReal},
		{"LREAL", 64, NatureReal},
		{"CHAR", 8, NatureChar},
		{"WCHAR", 16, NatureChar},
		{"TIME", 64, NatureDuration},
		{"DATE", 64, NatureDate},
	}
	for _, tt := range tests {
		dt := lookup.FindType(tt.name)
		if dt == nil {
			t.Fatalf("built-in %s not registered", tt.name)
		}
		size, ok := dt.SizeInBits(lookup)
		if !ok || size != tt.bits {
			t.Errorf("%s: size = %d (ok=%v), want %d", tt.name, size, ok, tt.bits)
		}
		if dt.Nature != tt.nature {
			t.Errorf("%s: nature = %v, want %v", tt.name, dt.Nature, tt.nature)
		}
	}
}

func TestShortDateTimeAliases(t *testing.T) {
	lookup := newTableLookup()
	aliases := map[string]string{
		"T": "TIME", "LT": "LTIME",
		"D": "DATE", "LD": "LDATE",
		"DT": "DATE_AND_TIME", "LDT": "LDATE_AND_TIME",
		"TOD": "TIME_OF_DAY", "LTOD": "LTIME_OF_DAY",
	}
	for short, full := range aliases {
		effective := lookup.FindEffectiveType(short)
		want := lookup.FindEffectiveType(full)
		if effective == nil || effective != want {
			t.Errorf("alias %s should resolve to %s", short, full)
		}
	}
}

func TestStringDefaultSize(t *testing.T) {
	lookup := newTableLookup()
	size, ok := lookup.FindType("STRING").SizeInBits(lookup)
	if !ok || size != (DefaultStringLen+1)*8 {
		t.Fatalf("STRING size = %d, want %d", size, (DefaultStringLen+1)*8)
	}
	size, ok = lookup.FindType("WSTRING").SizeInBits(lookup)
	if !ok || size != (DefaultStringLen+1)*16 {
		t.Fatalf("WSTRING size = %d, want %d", size, (DefaultStringLen+1)*16)
	}
}

func TestNatureDerives(t *testing.T) {
	tests := []struct {
		child, parent TypeNature
		want          bool
	}{
		{NatureSigned, NatureInt, true},
		{NatureSigned, NatureNum, true},
		{NatureSigned, NatureAny, true},
		{NatureUnsigned, NatureInt, true},
		{NatureReal, NatureNum, true},
		{NatureReal, NatureInt, false},
		{NatureInt, NatureReal, false},
		{NatureDuration, NatureMagnitude, true},
		{NatureString, NatureChars, true},
		{NatureChar, NatureChars, true},
		{NatureBit, NatureNum, false},
		{NatureAny, NatureAny, true},
	}
	for _, tt := range tests {
		if got := tt.child.Derives(tt.parent); got != tt.want {
			t.Errorf("%v.Derives(%v) = %v, want %v", tt.child, tt.parent, got, tt.want)
		}
	}
}

func TestIntegerRanks(t *testing.T) {
	lookup := newTableLookup()
	// signed ranks one above the unsigned type of the same width
	pairs := [][2]string{{"USINT", "SINT"}, {"UINT", "INT"}, {"UDINT", "DINT"}, {"ULINT", "LINT"}}
	for _, pair := range pairs {
		unsigned := Rank(lookup.FindType(pair[0]), lookup)
		signed := Rank(lookup.FindType(pair[1]), lookup)
		if signed != unsigned+1 {
			t.Errorf("rank(%s)=%d, rank(%s)=%d; want signed = unsigned+1",
				pair[0], unsigned, pair[1], signed)
		}
	}
	// floats rank above all integers
	if Rank(lookup.FindType("REAL"), lookup) <= Rank(lookup.FindType("LINT"), lookup) {
		t.Error("REAL must rank above LINT")
	}
}

func TestGetBiggerTypeSameClass(t *testing.T) {
	lookup := newTableLookup()
	tests := []struct {
		left, right, want string
	}{
		{"SINT", "INT", "INT"},
		{"INT", "SINT", "INT"},
		{"INT", "DINT", "DINT"},
		{"DINT", "LINT", "LINT"},
		{"REAL", "LREAL", "LREAL"},
		{"BYTE", "SINT", "SINT"}, // signed outranks unsigned at same width
	}
	for _, tt := range tests {
		got := GetBiggerType(lookup.FindType(tt.left), lookup.FindType(tt.right), lookup)
		if got.Name != tt.want {
			t.Errorf("GetBiggerType(%s, %s) = %s, want %s", tt.left, tt.right, got.Name, tt.want)
		}
	}
}

// Within one class the function is symmetric; across classes it is
// left-biased, which callers observe and depend on.
func TestGetBiggerTypeSymmetryAndBias(t *testing.T) {
	lookup := newTableLookup()
	sameClass := []string{"SINT", "INT", "DINT", "LINT", "USINT", "UINT"}
	for _, a := range sameClass {
		for _, b := range sameClass {
			x := GetBiggerType(lookup.FindType(a), lookup.FindType(b), lookup)
			y := GetBiggerType(lookup.FindType(b), lookup.FindType(a), lookup)
			if x.Name != y.Name {
				t.Errorf("GetBiggerType not symmetric for %s, %s: %s vs %s", a, b, x.Name, y.Name)
			}
		}
	}

	// int x float: widens to REAL while both fit 32 bits, else LREAL
	if got := GetBiggerType(lookup.FindType("INT"), lookup.FindType("REAL"), lookup); got.Name != "REAL" {
		t.Errorf("INT x REAL = %s, want REAL", got.Name)
	}
	if got := GetBiggerType(lookup.FindType("LINT"), lookup.FindType("REAL"), lookup); got.Name != "LREAL" {
		t.Errorf("LINT x REAL = %s, want LREAL", got.Name)
	}
	if got := GetBiggerType(lookup.FindType("REAL"), lookup.FindType("LINT"), lookup); got.Name != "LREAL" {
		t.Errorf("REAL x LINT = %s, want LREAL", got.Name)
	}

	// non-numeric cross-class pairs are left-biased
	if got := GetBiggerType(lookup.FindType("TIME"), lookup.FindType("STRING"), lookup); got.Name != "TIME" {
		t.Errorf("TIME x STRING = %s, want left operand TIME", got.Name)
	}
	if got := GetBiggerType(lookup.FindType("STRING"), lookup.FindType("TIME"), lookup); got.Name != "STRING" {
		t.Errorf("STRING x TIME = %s, want left operand STRING", got.Name)
	}
}

func TestGetSignedType(t *testing.T) {
	lookup := newTableLookup()
	tests := map[string]string{
		"BYTE": "SINT", "USINT": "SINT",
		"WORD": "INT", "UINT": "INT",
		"DWORD": "DINT", "UDINT": "DINT",
		"LWORD": "LINT", "ULINT": "LINT",
		"INT": "INT", "DINT": "DINT",
	}
	for from, want := range tests {
		got := GetSignedType(lookup.FindType(from), lookup)
		if got.Name != want {
			t.Errorf("GetSignedType(%s) = %s, want %s", from, got.Name, want)
		}
	}
}

func TestArraySizeAndElementCount(t *testing.T) {
	lookup := newTableLookup()
	array := &DataType{
		Name: "arr",
		Definition: ArrayDef{
			InnerTypeName: "INT",
			Dimensions: []ArrayDimension{
				{StartOffset: LiteralSize(0), EndOffset: LiteralSize(4)},
				{StartOffset: LiteralSize(-2), EndOffset: LiteralSize(2)},
			},
		},
		Nature: NatureDerived,
	}
	lookup.add(array)

	count, ok := array.ElementCount(lookup)
	if !ok || count != 25 {
		t.Fatalf("element count = %d (ok=%v), want 25", count, ok)
	}
	size, ok := array.SizeInBits(lookup)
	if !ok || size != 25*16 {
		t.Fatalf("size = %d, want %d", size, 25*16)
	}
}

func TestTypeSizeConstReference(t *testing.T) {
	lookup := newTableLookup()
	lookup.constants[ConstId(7)] = 10

	size := ConstSize(ConstId(7))
	value, ok := size.Resolve(lookup)
	if !ok || value != 10 {
		t.Fatalf("Resolve = %d (ok=%v)", value, ok)
	}
	if _, ok := ConstSize(ConstId(99)).Resolve(lookup); ok {
		t.Fatal("unresolved constant must not resolve")
	}
	if v, ok := LiteralSize(3).Resolve(lookup); !ok || v != 3 {
		t.Fatalf("literal size = %d (ok=%v)", v, ok)
	}

	rebased := ConstSize(ConstId(2)).Rebased(5)
	if got, _ := rebased.Resolve(lookup); got != 10 {
		t.Fatalf("rebased const should read id 7, got %d", got)
	}
}

func TestSubRangeAndAliasResolveToIntrinsic(t *testing.T) {
	lookup := newTableLookup()
	lookup.add(&DataType{
		Name:       "MyInt",
		Definition: AliasDef{ReferencedTypeName: "INT"},
		Nature:     NatureDerived,
	})
	lookup.add(&DataType{
		Name:       "Small",
		Definition: SubRangeDef{UnderlyingTypeName: "MyInt"},
		Nature:     NatureInt,
	})

	effective := lookup.FindEffectiveType("Small")
	if effective == nil || effective.Name != "INT" {
		t.Fatalf("effective type of Small = %v, want INT", effective)
	}
}

func TestPointerIntCompatible(t *testing.T) {
	lookup := newTableLookup()
	if !PointerIntCompatible(lookup.FindType("LWORD")) {
		t.Error("LWORD must be pointer-compatible")
	}
	for _, name := range []string{"DWORD", "LINT", "INT"} {
		if PointerIntCompatible(lookup.FindType(name)) {
			t.Errorf("%s must not be pointer-compatible", name)
		}
	}
}
