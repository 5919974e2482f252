package index

import (
	"testing"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/parser"
	"github.com/plc-foundry/go-stc/internal/typesys"
)

func indexSource(t *testing.T, source string) (*Index, ast.IdProvider) {
	t.Helper()
	ids := ast.NewIdProvider()
	unit, diagnostics := parser.ParseFile(source, "test.st", ast.LinkageInternal, ids)
	if len(diagnostics) > 0 {
		t.Fatalf("unexpected parse diagnostics: %v", diagnostics)
	}
	ast.PreProcess(unit, ids)

	global := NewIndex()
	global.RegisterBuiltins()
	global.Import(VisitUnit(unit, ids))
	return global, ids
}

func TestBuiltinsRegisteredOnce(t *testing.T) {
	idx := NewIndex()
	idx.RegisterBuiltins()
	if idx.FindType("INT") == nil || idx.FindType("int") == nil {
		t.Fatal("INT must be registered case-insensitively")
	}
	if idx.FindType("WSTRING") == nil || idx.FindType("ldt") == nil {
		t.Fatal("WSTRING and LDT must be registered")
	}
	if len(idx.DuplicateTypes()) != 0 {
		t.Fatal("built-in registration must not produce duplicates")
	}
}

func TestVisitRegistersPouAndMembers(t *testing.T) {
	idx, _ := indexSource(t, `
		PROGRAM prg
		VAR_INPUT a : INT; END_VAR
		VAR_OUTPUT b : DINT; END_VAR
		VAR x : BOOL; END_VAR
		END_PROGRAM
	`)

	pou := idx.FindPou("PRG")
	if pou == nil || pou.Kind != ast.PouProgram {
		t.Fatalf("POU lookup failed: %+v", pou)
	}

	member := idx.FindMember("prg", "A")
	if member == nil || member.TypeName != "INT" {
		t.Fatalf("member lookup: %+v", member)
	}
	if member.QualifiedName != "prg.a" {
		t.Fatalf("qualified name = %q", member.QualifiedName)
	}

	params := idx.DeclaredParameters("prg")
	if len(params) != 2 {
		t.Fatalf("expected 2 parameters, got %d", len(params))
	}
	if params[0].Name != "a" || params[0].ArgumentPosition != 0 {
		t.Fatalf("param 0: %+v", params[0])
	}
	if params[1].Name != "b" || params[1].ArgumentPosition != 1 {
		t.Fatalf("param 1: %+v", params[1])
	}

	// the POU's state is a struct type under its own name
	instance := idx.FindType("prg")
	if instance == nil {
		t.Fatal("instance struct type missing")
	}
	def, ok := instance.Definition.(typesys.StructDef)
	if !ok || def.Source != typesys.StructPou {
		t.Fatalf("instance type: %+v", instance.Definition)
	}
}

func TestVisitRegistersTypes(t *testing.T) {
	idx, _ := indexSource(t, `
		TYPE
			Color : (red, green, blue);
			Small : INT (1..10);
			MyInt : INT;
			Row : ARRAY[0..9] OF INT;
		END_TYPE
	`)

	enum := idx.FindType("Color")
	if enum == nil || !enum.IsEnum() {
		t.Fatalf("enum: %+v", enum)
	}
	if element := idx.FindEnumElement("GREEN"); element == nil || element.EnumTypeName != "Color" {
		t.Fatalf("enum element: %+v", element)
	}

	sub := idx.FindType("Small")
	if sub == nil || !sub.IsSubRange() || sub.SubRange == nil {
		t.Fatalf("sub-range: %+v", sub)
	}

	alias := idx.FindType("MyInt")
	if alias == nil || !alias.IsAlias() {
		t.Fatalf("alias: %+v", alias)
	}

	row := idx.FindType("Row")
	if row == nil || !row.IsArray() {
		t.Fatalf("array: %+v", row)
	}
}

// find_effective_type terminates and never returns an alias or sub-range.
func TestFindEffectiveTypeTerminates(t *testing.T) {
	idx, _ := indexSource(t, `
		TYPE
			A : INT;
			B : A;
			C : B (1..5);
		END_TYPE
	`)
	for _, name := range idx.TypeNames() {
		effective := idx.FindEffectiveType(name)
		if effective == nil {
			continue // unresolvable references surface elsewhere
		}
		if effective.IsAlias() || effective.IsSubRange() {
			t.Errorf("effective type of %s is still %T", name, effective.Definition)
		}
	}
	if got := idx.FindEffectiveType("C"); got == nil || got.Name != "INT" {
		t.Fatalf("effective of C = %v", got)
	}
}

func TestFindEffectiveTypeBreaksCycles(t *testing.T) {
	idx := NewIndex()
	idx.RegisterType(&typesys.DataType{
		Name: "A", Definition: typesys.AliasDef{ReferencedTypeName: "B"},
	})
	idx.RegisterType(&typesys.DataType{
		Name: "B", Definition: typesys.AliasDef{ReferencedTypeName: "A"},
	})
	if got := idx.FindEffectiveType("A"); got != nil {
		t.Fatalf("cyclic alias must resolve to nil, got %v", got)
	}
}

func TestDuplicatesKeepFirstRegistration(t *testing.T) {
	idx, ids := indexSource(t, `
		FUNCTION foo : INT END_FUNCTION
	`)
	second, diagnostics := parser.ParseFile(
		`PROGRAM foo END_PROGRAM`, "second.st", ast.LinkageInternal, ids)
	if len(diagnostics) > 0 {
		t.Fatal(diagnostics)
	}
	ast.PreProcess(second, ids)
	idx.Import(VisitUnit(second, ids))

	canonical := idx.FindPou("foo")
	if canonical == nil || canonical.Kind != ast.PouFunction {
		t.Fatalf("first registration must stay canonical: %+v", canonical)
	}
	if len(idx.DuplicatePous()["foo"]) != 1 {
		t.Fatalf("duplicate not recorded: %+v", idx.DuplicatePous())
	}
}

func TestInlineTypesAreLifted(t *testing.T) {
	idx, _ := indexSource(t, `
		PROGRAM prg
		VAR
			arr : ARRAY[0..1] OF INT;
		END_VAR
		END_PROGRAM
	`)
	member := idx.FindMember("prg", "arr")
	if member == nil {
		t.Fatal("member missing")
	}
	lifted := idx.FindType(member.TypeName)
	if lifted == nil || !lifted.IsArray() {
		t.Fatalf("lifted type %q: %+v", member.TypeName, lifted)
	}
	if member.TypeName != "__prg_arr" {
		t.Fatalf("lifted name = %q, want __prg_arr", member.TypeName)
	}
}

func TestConstStoreLifecycle(t *testing.T) {
	store := NewConstExpressions()
	expr := &ast.IntegerLiteral{Value: 42}
	id := store.Add(expr, "INT", "")
	if store.State(id) != ConstUnevaluated {
		t.Fatal("fresh entry must be unevaluated")
	}
	if !store.BeginEvaluation(id) {
		t.Fatal("BeginEvaluation must succeed on a fresh entry")
	}
	if store.BeginEvaluation(id) {
		t.Fatal("re-entering an in-progress entry must fail (cycle marker)")
	}
	store.MarkResolved(id, IntValue(42))
	value, ok := store.ResolvedValue(id)
	if !ok || value.Int != 42 {
		t.Fatalf("resolved = %+v (ok=%v)", value, ok)
	}
	if len(store.Unresolved()) != 0 {
		t.Fatal("no unresolved entries expected")
	}
}

func TestConstStoreImportRebasesIds(t *testing.T) {
	a := NewConstExpressions()
	a.Add(&ast.IntegerLiteral{Value: 1}, "INT", "")

	b := NewConstExpressions()
	idInB := b.Add(&ast.IntegerLiteral{Value: 7}, "INT", "")

	offset := a.Import(b)
	if offset != 1 {
		t.Fatalf("offset = %d", offset)
	}
	expr := a.Expression(idInB + offset)
	lit, ok := expr.(*ast.IntegerLiteral)
	if !ok || lit.Value != 7 {
		t.Fatalf("rebased expression = %v", expr)
	}
}

func TestGlobalVariables(t *testing.T) {
	idx, _ := indexSource(t, `
		VAR_GLOBAL CONSTANT
			limit : INT := 99;
		END_VAR
		VAR_GLOBAL
			counter : DINT;
		END_VAR
	`)
	limit := idx.FindGlobal("LIMIT")
	if limit == nil || !limit.Constant || limit.InitialValue == nil {
		t.Fatalf("limit: %+v", limit)
	}
	counter := idx.FindGlobal("counter")
	if counter == nil || counter.Constant {
		t.Fatalf("counter: %+v", counter)
	}
}
