package resolver

import (
	"testing"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/consteval"
	"github.com/plc-foundry/go-stc/internal/diagnostic"
	"github.com/plc-foundry/go-stc/internal/index"
	"github.com/plc-foundry/go-stc/internal/parser"
	"github.com/plc-foundry/go-stc/internal/typesys"
)

// annotateSources runs parse, index, constant evaluation and annotation
// over the given sources, mirroring the pipeline stages.
func annotateSources(t *testing.T, sources ...string) ([]*ast.CompilationUnit, *index.Index, Result) {
	t.Helper()
	ids := ast.NewIdProvider()
	idx := index.NewIndex()
	idx.RegisterBuiltins()

	var units []*ast.CompilationUnit
	for i, source := range sources {
		unit, diagnostics := parser.ParseFile(source, fileName(i), ast.LinkageInternal, ids)
		if len(diagnostics) > 0 {
			t.Fatalf("parse diagnostics in source %d: %v", i, diagnostics)
		}
		ast.PreProcess(unit, ids)
		idx.Import(index.VisitUnit(unit, ids))
		units = append(units, unit)
	}
	consteval.Evaluate(idx)
	result := Annotate(units, idx, ids)
	return units, idx, result
}

func fileName(i int) string {
	return []string{"a.st", "b.st", "c.st", "d.st"}[i]
}

func firstAssignment(t *testing.T, pou *ast.POU) *ast.AssignmentStatement {
	t.Helper()
	for _, stmt := range pou.Body {
		if assign, ok := stmt.(*ast.AssignmentStatement); ok {
			return assign
		}
	}
	t.Fatal("no assignment in POU body")
	return nil
}

func TestIntegerLiteralTyping(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"5", typesys.SintType},
		{"200", typesys.IntType},
		{"40000", typesys.DintType},
		{"3000000000", typesys.LintType},
	}
	for _, tt := range tests {
		units, _, result := annotateSources(t, `
			PROGRAM p
			VAR x : LINT; END_VAR
			x := `+tt.value+` + `+tt.value+`;
			END_PROGRAM
		`)
		assign := firstAssignment(t, units[0].Pous[0])
		binary := assign.Value.(*ast.BinaryExpression)
		got := result.Annotations.Map.TypeName(binary.Left)
		if got != tt.want {
			t.Errorf("literal %s typed %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestBoolHintForZeroOne(t *testing.T) {
	units, _, result := annotateSources(t, `
		PROGRAM p
		VAR b : BOOL; END_VAR
		b := 1;
		END_PROGRAM
	`)
	assign := firstAssignment(t, units[0].Pous[0])
	if got := result.Annotations.Map.TypeName(assign.Value); got != typesys.BoolType {
		t.Fatalf("literal 1 with BOOL hint typed %s", got)
	}
}

func TestRealLiteralTyping(t *testing.T) {
	units, _, result := annotateSources(t, `
		PROGRAM p
		VAR r : REAL; l : LREAL; END_VAR
		r := 1.5;
		l := 1.5;
		END_PROGRAM
	`)
	body := units[0].Pous[0].Body
	first := body[0].(*ast.AssignmentStatement)
	if got := result.Annotations.Map.TypeName(first.Value); got != typesys.RealType {
		t.Fatalf("REAL-hinted literal typed %s", got)
	}
	second := body[1].(*ast.AssignmentStatement)
	if got := result.Annotations.Map.TypeName(second.Value); got != typesys.LrealType {
		t.Fatalf("unhinted real literal typed %s", got)
	}
}

func TestBinaryPromotionAndHints(t *testing.T) {
	units, _, result := annotateSources(t, `
		PROGRAM p
		VAR a : INT; b : DINT; c : DINT; END_VAR
		c := a + b;
		END_PROGRAM
	`)
	assign := firstAssignment(t, units[0].Pous[0])
	binary := assign.Value.(*ast.BinaryExpression)
	amap := result.Annotations.Map

	if got := amap.TypeName(binary); got != typesys.DintType {
		t.Fatalf("a + b typed %s, want DINT", got)
	}
	if hint := amap.Hint(binary.Left); hint != typesys.DintType {
		t.Fatalf("left operand hint = %q, want DINT", hint)
	}
	if hint := amap.Hint(binary.Right); hint != "" {
		t.Fatalf("right operand needs no hint, got %q", hint)
	}
}

func TestComparisonYieldsBool(t *testing.T) {
	units, _, result := annotateSources(t, `
		PROGRAM p
		VAR a : INT; ok : BOOL; END_VAR
		ok := a < 10;
		END_PROGRAM
	`)
	assign := firstAssignment(t, units[0].Pous[0])
	if got := result.Annotations.Map.TypeName(assign.Value); got != typesys.BoolType {
		t.Fatalf("comparison typed %s", got)
	}
}

func TestMixedIntFloatPromotion(t *testing.T) {
	units, _, result := annotateSources(t, `
		PROGRAM p
		VAR a : INT; big : LINT; r : LREAL; END_VAR
		r := a + 1.5;
		r := big + 1.5;
		END_PROGRAM
	`)
	body := units[0].Pous[0].Body
	small := body[0].(*ast.AssignmentStatement).Value.(*ast.BinaryExpression)
	if got := result.Annotations.Map.TypeName(small); got != typesys.LrealType {
		// 1.5 is LREAL (64 bit) so the pair exceeds REAL width
		t.Fatalf("INT + 1.5 typed %s, want LREAL", got)
	}
	large := body[1].(*ast.AssignmentStatement).Value.(*ast.BinaryExpression)
	if got := result.Annotations.Map.TypeName(large); got != typesys.LrealType {
		t.Fatalf("LINT + 1.5 typed %s, want LREAL", got)
	}
}

func TestUnresolvedReferenceAnnotatesVoid(t *testing.T) {
	units, _, result := annotateSources(t, `
		PROGRAM p
		VAR x : INT; END_VAR
		x := missing;
		END_PROGRAM
	`)
	assign := firstAssignment(t, units[0].Pous[0])
	if got := result.Annotations.Map.TypeName(assign.Value); got != typesys.VoidType {
		t.Fatalf("unresolved name typed %s, want VOID", got)
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.Kind == diagnostic.UnresolvedReference {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an UnresolvedReference diagnostic")
	}
}

func TestProgramCallResolvesQualifiedName(t *testing.T) {
	units, _, result := annotateSources(t,
		`FUNCTION main : INT
		VAR_INPUT END_VAR
		VAR END_VAR
		mainProg();
		END_FUNCTION`,
		`PROGRAM mainProg
		VAR_TEMP END_VAR
		END_PROGRAM`,
	)
	stmt := units[0].Pous[0].Body[0].(*ast.ExpressionStatement)
	call := stmt.Expr.(*ast.CallExpression)
	annotation, ok := result.Annotations.Map.Get(call.Callee)
	if !ok || annotation.QualifiedName != "mainProg" {
		t.Fatalf("callee annotation: %+v", annotation)
	}
	if len(result.Diagnostics) != 0 {
		t.Fatalf("diagnostics: %v", result.Diagnostics)
	}
}

func TestFunctionReturnVariable(t *testing.T) {
	units, _, result := annotateSources(t, `
		FUNCTION main : INT
		main := 7;
		END_FUNCTION
	`)
	assign := firstAssignment(t, units[0].Pous[0])
	annotation, _ := result.Annotations.Map.Get(assign.Target)
	if annotation.Kind != AnnotationVariable || annotation.TypeName != typesys.IntType {
		t.Fatalf("return variable annotation: %+v", annotation)
	}
}

func TestFunctionBlockMemberAccess(t *testing.T) {
	units, _, result := annotateSources(t, `
		FUNCTION_BLOCK Counter
		VAR_INPUT step : INT; END_VAR
		VAR value : DINT; END_VAR
		END_FUNCTION_BLOCK
		PROGRAM p
		VAR c : Counter; x : DINT; END_VAR
		c(step := 1);
		x := c.value;
		END_PROGRAM
	`)
	prog := units[0].Pous[1]
	var memberAssign *ast.AssignmentStatement
	for _, stmt := range prog.Body {
		if assign, ok := stmt.(*ast.AssignmentStatement); ok {
			memberAssign = assign
		}
	}
	annotation, _ := result.Annotations.Map.Get(memberAssign.Value)
	if annotation.QualifiedName != "Counter.value" || annotation.TypeName != typesys.DintType {
		t.Fatalf("member annotation: %+v", annotation)
	}
	if len(result.Diagnostics) != 0 {
		t.Fatalf("diagnostics: %v", result.Diagnostics)
	}
}

func TestAddressOfRegistersPointerType(t *testing.T) {
	units, idx, result := annotateSources(t, `
		PROGRAM p
		VAR x : INT; addr : LWORD; END_VAR
		addr := ADR(x);
		ptr := &x;
		END_PROGRAM
	`)
	_ = units
	pointer := idx.FindType("__POINTER_TO_INT")
	if pointer == nil || !pointer.IsPointer() {
		t.Fatalf("&x must register __POINTER_TO_INT, got %v", pointer)
	}
	// ADR yields LWORD
	stmt := units[0].Pous[0].Body[0].(*ast.AssignmentStatement)
	if got := result.Annotations.Map.TypeName(stmt.Value); got != typesys.LwordType {
		t.Fatalf("ADR(x) typed %s", got)
	}
}

func TestStringLiteralCollection(t *testing.T) {
	_, idx, result := annotateSources(t, `
		PROGRAM p
		VAR s : STRING; w : WSTRING; END_VAR
		s := 'hello';
		w := "world";
		END_PROGRAM
	`)
	if _, ok := result.Literals.Utf8["hello"]; !ok {
		t.Fatal("utf8 literal not collected")
	}
	if _, ok := result.Literals.Utf16["world"]; !ok {
		t.Fatal("utf16 literal not collected")
	}
	if idx.FindType("__STRING_5") == nil {
		t.Fatal("literal string type __STRING_5 not registered")
	}
	if idx.FindType("__WSTRING_5") == nil {
		t.Fatal("literal string type __WSTRING_5 not registered")
	}
}

func TestArrayAccessAnnotation(t *testing.T) {
	units, _, result := annotateSources(t, `
		PROGRAM p
		VAR
			arr : ARRAY[0..9] OF INT;
			m : ARRAY[0..1, 0..1] OF DINT;
			x : INT;
			y : DINT;
		END_VAR
		x := arr[3];
		y := m[1, 0];
		y := m[1][0];
		END_PROGRAM
	`)
	body := units[0].Pous[0].Body
	amap := result.Annotations.Map

	single := body[0].(*ast.AssignmentStatement).Value
	if got := amap.TypeName(single); got != typesys.IntType {
		t.Fatalf("arr[3] typed %s", got)
	}
	multi := body[1].(*ast.AssignmentStatement).Value
	chained := body[2].(*ast.AssignmentStatement).Value
	if amap.TypeName(multi) != typesys.DintType || amap.TypeName(chained) != typesys.DintType {
		t.Fatalf("multi = %s, chained = %s; both should be DINT",
			amap.TypeName(multi), amap.TypeName(chained))
	}
}

func TestEnumElementAnnotation(t *testing.T) {
	units, _, result := annotateSources(t, `
		TYPE Color : (red, green, blue); END_TYPE
		PROGRAM p
		VAR c : Color; END_VAR
		c := green;
		END_PROGRAM
	`)
	assign := firstAssignment(t, units[0].Pous[0])
	annotation, _ := result.Annotations.Map.Get(assign.Value)
	if annotation.TypeName != "Color" || !annotation.Constant {
		t.Fatalf("enum annotation: %+v", annotation)
	}
}

// Every expression node reachable from a unit body carries exactly one
// annotation after annotation.
func TestEveryExpressionAnnotated(t *testing.T) {
	units, _, result := annotateSources(t, `
		TYPE Color : (red, green, blue); END_TYPE
		PROGRAM p
		VAR
			arr : ARRAY[0..9] OF INT;
			c : Color;
			i : INT;
			s : STRING;
		END_VAR
		i := arr[2] + 1;
		c := blue;
		s := 'x';
		IF i > 3 THEN i := 0; END_IF
		END_PROGRAM
	`)
	amap := result.Annotations.Map
	var check func(expr ast.Expression)
	check = func(expr ast.Expression) {
		if expr == nil {
			return
		}
		if _, ok := amap.Get(expr); !ok {
			t.Errorf("expression %T %q has no annotation", expr, expr.String())
		}
		switch e := expr.(type) {
		case *ast.BinaryExpression:
			check(e.Left)
			check(e.Right)
		case *ast.UnaryExpression:
			check(e.Operand)
		case *ast.IndexExpression:
			check(e.Base)
			for _, i := range e.Indices {
				check(i)
			}
		case *ast.MemberExpression:
			check(e.Base)
			check(e.Member)
		case *ast.CallExpression:
			check(e.Callee)
			for _, a := range e.Arguments {
				check(a)
			}
		}
	}
	var walkStmts func(stmts []ast.Statement)
	walkStmts = func(stmts []ast.Statement) {
		for _, stmt := range stmts {
			switch s := stmt.(type) {
			case *ast.AssignmentStatement:
				check(s.Target)
				check(s.Value)
			case *ast.ExpressionStatement:
				check(s.Expr)
			case *ast.IfStatement:
				check(s.Condition)
				walkStmts(s.Then)
				walkStmts(s.Else)
			}
		}
	}
	for _, unit := range units {
		for _, pou := range unit.Pous {
			walkStmts(pou.Body)
		}
	}
}

func TestSubRangeAssignmentGetsRangeCheck(t *testing.T) {
	units, _, result := annotateSources(t, `
		TYPE Small : INT (1..10); END_TYPE
		PROGRAM p
		VAR s : Small; x : INT; END_VAR
		s := x;
		END_PROGRAM
	`)
	assign := firstAssignment(t, units[0].Pous[0])
	annotation, ok := result.Annotations.Map.Get(assign)
	if !ok || annotation.CallName != typesys.RangeCheckSigned {
		t.Fatalf("range check annotation: %+v (ok=%v)", annotation, ok)
	}
}
