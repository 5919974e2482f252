package resolver

import (
	"testing"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/diagnostic"
)

const genericDecl = `
	{external}
	FUNCTION CONCAT_DATE<T: ANY_INT> : DATE
	VAR_INPUT
		year, month, day : T;
	END_VAR
	END_FUNCTION
`

func TestGenericInstantiation(t *testing.T) {
	_, idx, result := annotateSources(t,
		genericDecl,
		`FUNCTION b : DATE
		b := CONCAT_DATE(INT#1, SINT#2, SINT#3);
		END_FUNCTION`,
		`FUNCTION c : DATE
		c := CONCAT_DATE(DINT#1, DINT#2, DINT#3);
		END_FUNCTION`,
	)
	if len(result.Diagnostics) != 0 {
		t.Fatalf("diagnostics: %v", result.Diagnostics)
	}

	intInstance := idx.FindPou("CONCAT_DATE__INT")
	if intInstance == nil {
		t.Fatal("CONCAT_DATE__INT missing from the merged index")
	}
	if intInstance.ReturnTypeName != "DATE" {
		t.Fatalf("instance return type = %q", intInstance.ReturnTypeName)
	}
	if idx.FindPou("CONCAT_DATE__DINT") == nil {
		t.Fatal("CONCAT_DATE__DINT missing from the merged index")
	}

	// the instance's parameters are concrete
	params := idx.DeclaredParameters("CONCAT_DATE__INT")
	if len(params) != 3 {
		t.Fatalf("instance parameters: %d", len(params))
	}
	for _, p := range params {
		if p.TypeName != "INT" {
			t.Fatalf("parameter %s has type %s, want INT", p.Name, p.TypeName)
		}
	}
}

// The same inference from any number of call sites across units shares
// one implementation; no duplicate-name collisions appear.
func TestGenericInstantiationIsIdempotent(t *testing.T) {
	_, idx, result := annotateSources(t,
		genericDecl,
		`FUNCTION b : DATE
		b := CONCAT_DATE(INT#1, SINT#2, SINT#3);
		b := CONCAT_DATE(INT#4, INT#5, INT#6);
		END_FUNCTION`,
		`FUNCTION c : DATE
		c := CONCAT_DATE(INT#7, INT#8, INT#9);
		END_FUNCTION`,
	)
	if len(result.Diagnostics) != 0 {
		t.Fatalf("diagnostics: %v", result.Diagnostics)
	}
	if idx.FindPou("CONCAT_DATE__INT") == nil {
		t.Fatal("instance missing")
	}
	if dups := idx.DuplicatePous()["concat_date__int"]; len(dups) != 0 {
		t.Fatalf("duplicate instances registered: %d", len(dups))
	}
	if result.GeneratedUnit == nil {
		t.Fatal("generated unit missing")
	}
	count := 0
	for _, pou := range result.GeneratedUnit.Pous {
		if pou.Name == "CONCAT_DATE__INT" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("generated unit holds %d copies of CONCAT_DATE__INT", count)
	}
}

func TestGenericCallAnnotatesMangledName(t *testing.T) {
	units, _, result := annotateSources(t,
		genericDecl,
		`FUNCTION b : DATE
		b := CONCAT_DATE(INT#1, INT#2, INT#3);
		END_FUNCTION`,
	)
	assign := firstAssignment(t, units[1].Pous[0])
	call := assign.Value.(*ast.CallExpression)
	annotation, _ := result.Annotations.Map.Get(call.Callee)
	if annotation.CallName != "CONCAT_DATE__INT" {
		t.Fatalf("call name = %q", annotation.CallName)
	}
}

func TestGenericNatureConstraintViolation(t *testing.T) {
	_, _, result := annotateSources(t,
		genericDecl,
		`FUNCTION b : DATE
		b := CONCAT_DATE(1.5, 2.5, 3.5);
		END_FUNCTION`,
	)
	found := false
	for _, d := range result.Diagnostics {
		if d.Kind == diagnostic.InvalidGenericInstantiation {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected InvalidGenericInstantiation, got %v", result.Diagnostics)
	}
}

func TestMangledNameRule(t *testing.T) {
	generics := []ast.GenericBinding{{Name: "T", Nature: "ANY_INT"}, {Name: "U", Nature: "ANY"}}
	got := MangleGenericName("FN", generics, map[string]string{"t": "INT", "u": "REAL"})
	if got != "FN__INT__REAL" {
		t.Fatalf("mangled = %q", got)
	}
	single := MangleGenericName("FN", generics[:1], map[string]string{"t": "DInt"})
	if single != "FN__DINT" {
		t.Fatalf("mangled = %q", single)
	}
}
