package validation

import (
	"strings"
	"testing"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/consteval"
	"github.com/plc-foundry/go-stc/internal/diagnostic"
	"github.com/plc-foundry/go-stc/internal/index"
	"github.com/plc-foundry/go-stc/internal/parser"
	"github.com/plc-foundry/go-stc/internal/resolver"
)

// validateSources runs the full semantic pipeline over the sources and
// returns every validation diagnostic.
func validateSources(t *testing.T, sources ...string) []diagnostic.Diagnostic {
	t.Helper()
	ids := ast.NewIdProvider()
	idx := index.NewIndex()
	idx.RegisterBuiltins()

	var units []*ast.CompilationUnit
	for i, source := range sources {
		unit, parseDiagnostics := parser.ParseFile(source, files[i], ast.LinkageInternal, ids)
		if len(parseDiagnostics) > 0 {
			t.Fatalf("parse diagnostics in source %d: %v", i, parseDiagnostics)
		}
		ast.PreProcess(unit, ids)
		idx.Import(index.VisitUnit(unit, ids))
		units = append(units, unit)
	}
	consteval.Evaluate(idx)
	result := resolver.Annotate(units, idx, ids)
	if result.GeneratedUnit != nil {
		units = append(units, result.GeneratedUnit)
	}

	diagnostics := ValidateGlobal(idx)
	validator := NewValidator(idx, result.Annotations)
	for _, unit := range units {
		validator.ValidateUnit(unit)
		diagnostics = append(diagnostics, validator.Diagnostics()...)
	}
	return diagnostics
}

var files = []string{"a.st", "b.st", "c.st", "d.st"}

func ofKind(diagnostics []diagnostic.Diagnostic, kind diagnostic.Kind) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for _, d := range diagnostics {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

func TestCleanTwoFileProgram(t *testing.T) {
	diagnostics := validateSources(t,
		`FUNCTION main : INT
		VAR_INPUT END_VAR
		VAR END_VAR
		mainProg();
		END_FUNCTION`,
		`PROGRAM mainProg
		VAR_TEMP END_VAR
		END_PROGRAM`,
	)
	if len(diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", diagnostics)
	}
}

func TestArrayAccessOutOfRange(t *testing.T) {
	diagnostics := validateSources(t, `
		PROGRAM p
		VAR arr : ARRAY[0..1] OF INT; x : INT; END_VAR
		x := arr[3];
		END_PROGRAM
	`)
	ranged := ofKind(diagnostics, diagnostic.IncompatibleArrayAccessRange)
	if len(ranged) != 1 {
		t.Fatalf("expected 1 range diagnostic, got %v", diagnostics)
	}
	if !strings.Contains(ranged[0].Message, "0..1") {
		t.Fatalf("message should cite the range 0..1: %q", ranged[0].Message)
	}
}

func TestArrayAccessWrongIndexType(t *testing.T) {
	diagnostics := validateSources(t, `
		PROGRAM p
		VAR arr : ARRAY[0..1] OF INT; s : STRING; x : INT; END_VAR
		x := arr[s];
		END_PROGRAM
	`)
	wrongType := ofKind(diagnostics, diagnostic.IncompatibleArrayAccessType)
	if len(wrongType) != 1 {
		t.Fatalf("expected 1 index-type diagnostic, got %v", diagnostics)
	}
	if !strings.Contains(wrongType[0].Message, "STRING") {
		t.Fatalf("message should cite STRING: %q", wrongType[0].Message)
	}
}

func TestArrayAccessOnNonArray(t *testing.T) {
	diagnostics := validateSources(t, `
		PROGRAM p
		VAR int_var : INT; x : INT; END_VAR
		x := int_var[1];
		END_PROGRAM
	`)
	wrongVar := ofKind(diagnostics, diagnostic.IncompatibleArrayAccessVariable)
	if len(wrongVar) != 1 {
		t.Fatalf("expected 1 variable diagnostic, got %v", diagnostics)
	}
	if !strings.Contains(wrongVar[0].Message, "INT") {
		t.Fatalf("message should cite INT: %q", wrongVar[0].Message)
	}
}

// Duplicate POUs: a function, a program and a function block named foo
// produce two ambiguous-callable diagnostics (function x program) and
// three name conflicts (one per declaration).
func TestDuplicatePous(t *testing.T) {
	diagnostics := validateSources(t, `
		FUNCTION foo : INT END_FUNCTION
		PROGRAM foo END_PROGRAM
		FUNCTION_BLOCK foo END_FUNCTION_BLOCK
	`)
	callable := ofKind(diagnostics, diagnostic.AmbiguousCallableSymbol)
	if len(callable) != 2 {
		t.Fatalf("expected 2 ambiguous-callable diagnostics, got %d: %v", len(callable), diagnostics)
	}
	conflicts := ofKind(diagnostics, diagnostic.GlobalNameConflict)
	if len(conflicts) != 3 {
		t.Fatalf("expected 3 global name conflicts, got %d: %v", len(conflicts), diagnostics)
	}
	if len(diagnostics) != 5 {
		t.Fatalf("expected 5 diagnostics total, got %d", len(diagnostics))
	}
	// each conflict cites the sibling declarations
	for _, d := range conflicts {
		if len(d.Secondary) != 2 {
			t.Fatalf("conflict should cite 2 siblings, got %d", len(d.Secondary))
		}
	}
}

func TestDuplicateDataTypes(t *testing.T) {
	diagnostics := validateSources(t, `
		TYPE Dup : INT; END_TYPE
		TYPE Dup : DINT; END_TYPE
	`)
	ambiguous := ofKind(diagnostics, diagnostic.AmbiguousDatatype)
	if len(ambiguous) != 2 {
		t.Fatalf("expected 2 ambiguous-datatype diagnostics, got %v", diagnostics)
	}
}

func TestDuplicateGlobals(t *testing.T) {
	diagnostics := validateSources(t,
		`VAR_GLOBAL g : INT; END_VAR`,
		`VAR_GLOBAL g : DINT; END_VAR`,
	)
	ambiguous := ofKind(diagnostics, diagnostic.AmbiguousGlobalVariable)
	if len(ambiguous) != 2 {
		t.Fatalf("expected 2 ambiguous-global diagnostics, got %v", diagnostics)
	}
}

func TestVariableLengthArrayPlacement(t *testing.T) {
	diagnostics := validateSources(t, `
		VAR_GLOBAL arr : ARRAY[*] OF DINT; END_VAR
	`)
	if len(ofKind(diagnostics, diagnostic.InvalidVariableLengthArrayPlacement)) != 1 {
		t.Fatalf("global VLA: got %v", diagnostics)
	}

	diagnostics = validateSources(t, `
		FUNCTION f : DINT
		VAR_INPUT arr : ARRAY[*] OF DINT; END_VAR
		END_FUNCTION
	`)
	if len(ofKind(diagnostics, diagnostic.InvalidVariableLengthArrayPlacement)) != 1 {
		t.Fatalf("plain VAR_INPUT VLA: got %v", diagnostics)
	}

	diagnostics = validateSources(t, `
		FUNCTION f : DINT
		VAR_INPUT {ref} arr : ARRAY[*] OF DINT; END_VAR
		VAR_IN_OUT arr2 : ARRAY[*] OF DINT; END_VAR
		END_FUNCTION
	`)
	if len(ofKind(diagnostics, diagnostic.InvalidVariableLengthArrayPlacement)) != 0 {
		t.Fatalf("by-ref VLA must be legal: %v", diagnostics)
	}
}

func TestVariableLengthArrayRankMismatch(t *testing.T) {
	diagnostics := validateSources(t, `
		FUNCTION sum : DINT
		VAR_INPUT {ref} arr : ARRAY[*] OF DINT; END_VAR
		END_FUNCTION
		PROGRAM p
		VAR
			flat : ARRAY[0..5] OF DINT;
			grid : ARRAY[0..1, 0..1] OF DINT;
			r : DINT;
		END_VAR
		r := sum(flat);
		r := sum(grid);
		END_PROGRAM
	`)
	mismatches := ofKind(diagnostics, diagnostic.InvalidVariableLengthArrayRankMismatch)
	if len(mismatches) != 1 {
		t.Fatalf("expected 1 rank mismatch, got %v", diagnostics)
	}
}

func TestFunctionReturnMissing(t *testing.T) {
	diagnostics := validateSources(t, `
		FUNCTION noret
		END_FUNCTION
	`)
	if len(ofKind(diagnostics, diagnostic.FunctionReturnMissing)) != 1 {
		t.Fatalf("got %v", diagnostics)
	}
}

func TestActionWithoutContainer(t *testing.T) {
	diagnostics := validateSources(t, `
		ACTION orphan
		END_ACTION
	`)
	if len(ofKind(diagnostics, diagnostic.MissingActionContainer)) != 1 {
		t.Fatalf("got %v", diagnostics)
	}
}

func TestActionWithContainerIsClean(t *testing.T) {
	diagnostics := validateSources(t, `
		PROGRAM prg
		VAR x : INT; END_VAR
		END_PROGRAM
		ACTIONS prg
		ACTION inc
			x := x + 1;
		END_ACTION
		END_ACTIONS
	`)
	if len(ofKind(diagnostics, diagnostic.MissingActionContainer)) != 0 {
		t.Fatalf("got %v", diagnostics)
	}
}

func TestArrayInitializerShapes(t *testing.T) {
	diagnostics := validateSources(t, `
		PROGRAM p
		VAR
			a : ARRAY[0..2] OF INT;
			b : ARRAY[0..2] OF INT;
		END_VAR
		a := b;
		a := 3;
		a := 1, 2;
		END_PROGRAM
	`)
	if len(ofKind(diagnostics, diagnostic.ArrayExpectedInitializerList)) != 1 {
		t.Fatalf("scalar-into-array: got %v", diagnostics)
	}
	if len(ofKind(diagnostics, diagnostic.ArrayExpectedIdentifierOrRoundBracket)) != 1 {
		t.Fatalf("naked list: got %v", diagnostics)
	}
}

func TestStructInitializerRequiresNestedList(t *testing.T) {
	diagnostics := validateSources(t, `
		TYPE Pair : STRUCT
			values : ARRAY[0..1] OF INT;
			tag : INT;
		END_STRUCT;
		END_TYPE
		PROGRAM p
		VAR pt : Pair; END_VAR
		pt := (values := 3, tag := 1);
		END_PROGRAM
	`)
	if len(ofKind(diagnostics, diagnostic.ArrayExpectedInitializerList)) != 1 {
		t.Fatalf("got %v", diagnostics)
	}
}

func TestStringNarrowing(t *testing.T) {
	diagnostics := validateSources(t, `
		PROGRAM p
		VAR
			narrow : STRING[3];
			wide : WSTRING;
			s : STRING;
		END_VAR
		narrow := 'toolong';
		s := wide;
		s := 'ok';
		END_PROGRAM
	`)
	incompatible := ofKind(diagnostics, diagnostic.IncompatibleType)
	if len(incompatible) != 2 {
		t.Fatalf("expected 2 string diagnostics, got %v", diagnostics)
	}
}

func TestSubRangeLiteralOutOfBounds(t *testing.T) {
	diagnostics := validateSources(t, `
		TYPE Small : INT (1..10); END_TYPE
		PROGRAM p
		VAR s : Small; END_VAR
		s := 11;
		s := 5;
		END_PROGRAM
	`)
	if len(ofKind(diagnostics, diagnostic.InvalidRangeAssignment)) != 1 {
		t.Fatalf("got %v", diagnostics)
	}
}

func TestSubRangeWithConstantBoundsArrayAccess(t *testing.T) {
	diagnostics := validateSources(t, `
		VAR_GLOBAL CONSTANT
			first : INT := 1;
			last : INT := 2;
		END_VAR
		PROGRAM p
		VAR arr : ARRAY[first..last] OF INT; x : INT; END_VAR
		x := arr[3];
		END_PROGRAM
	`)
	ranged := ofKind(diagnostics, diagnostic.IncompatibleArrayAccessRange)
	if len(ranged) != 1 {
		t.Fatalf("expected 1 range diagnostic, got %v", diagnostics)
	}
	if !strings.Contains(ranged[0].Message, "1..2") {
		t.Fatalf("message should cite the resolved range 1..2: %q", ranged[0].Message)
	}
}

func TestPointerArithmeticRestrictions(t *testing.T) {
	diagnostics := validateSources(t, `
		PROGRAM p
		VAR
			x : INT;
			ok : BOOL;
			r : LWORD;
		END_VAR
		r := ADR(x) + 1;
		ok := &x = &x;
		r := &x * 2;
		END_PROGRAM
	`)
	invalid := ofKind(diagnostics, diagnostic.InvalidPointerArithmetic)
	if len(invalid) != 1 {
		t.Fatalf("expected exactly the multiplication to be rejected, got %v", diagnostics)
	}
}
