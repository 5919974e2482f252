package typesys

import "strings"

// TypeNature is the IEC 61131-3 type-classification lattice position of a
// data type. Natures double as the constraints of generic type parameters
// (ANY, ANY_INT, ANY_NUM, ...).
type TypeNature int

const (
	NatureAny TypeNature = iota
	NatureDerived
	NatureElementary
	NatureMagnitude
	NatureNum
	NatureReal
	NatureInt
	NatureSigned
	NatureUnsigned
	NatureDuration
	NatureBit
	NatureChars
	NatureString
	NatureChar
	NatureDate
	NatureVoid
)

var natureNames = map[TypeNature]string{
	NatureAny:        "ANY",
	NatureDerived:    "ANY_DERIVED",
	NatureElementary: "ANY_ELEMENTARY",
	NatureMagnitude:  "ANY_MAGNITUDE",
	NatureNum:        "ANY_NUM",
	NatureReal:       "ANY_REAL",
	NatureInt:        "ANY_INT",
	NatureSigned:     "ANY_SIGNED",
	NatureUnsigned:   "ANY_UNSIGNED",
	NatureDuration:   "ANY_DURATION",
	NatureBit:        "ANY_BIT",
	NatureChars:      "ANY_CHARS",
	NatureString:     "ANY_STRING",
	NatureChar:       "ANY_CHAR",
	NatureDate:       "ANY_DATE",
	NatureVoid:       "VOID",
}

func (n TypeNature) String() string { return natureNames[n] }

// natureParents is the static derives-relation of the lattice: each nature
// lists its ancestors up to ANY. A fixed table avoids graph walks.
var natureParents = map[TypeNature][]TypeNature{
	NatureAny:        {},
	NatureDerived:    {NatureAny},
	NatureElementary: {NatureAny},
	NatureMagnitude:  {NatureElementary, NatureAny},
	NatureNum:        {NatureMagnitude, NatureElementary, NatureAny},
	NatureReal:       {NatureNum, NatureMagnitude, NatureElementary, NatureAny},
	NatureInt:        {NatureNum, NatureMagnitude, NatureElementary, NatureAny},
	NatureSigned:     {NatureInt, NatureNum, NatureMagnitude, NatureElementary, NatureAny},
	NatureUnsigned:   {NatureInt, NatureNum, NatureMagnitude, NatureElementary, NatureAny},
	NatureDuration:   {NatureMagnitude, NatureElementary, NatureAny},
	NatureBit:        {NatureElementary, NatureAny},
	NatureChars:      {NatureElementary, NatureAny},
	NatureString:     {NatureChars, NatureElementary, NatureAny},
	NatureChar:       {NatureChars, NatureElementary, NatureAny},
	NatureDate:       {NatureElementary, NatureAny},
	NatureVoid:       {},
}

// Derives reports whether n is parent itself or lies below it in the lattice.
func (n TypeNature) Derives(parent TypeNature) bool {
	if n == parent {
		return true
	}
	for _, p := range natureParents[n] {
		if p == parent {
			return true
		}
	}
	return false
}

// IsNumerical reports whether the nature derives from ANY_NUM.
func (n TypeNature) IsNumerical() bool { return n.Derives(NatureNum) }

// NatureByName resolves a generic constraint spelling (case-insensitive)
// to its nature. Unknown spellings resolve to ANY.
func NatureByName(name string) TypeNature {
	upper := strings.ToUpper(name)
	for nature, spelling := range natureNames {
		if spelling == upper {
			return nature
		}
	}
	return NatureAny
}
