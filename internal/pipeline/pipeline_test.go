package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/diagnostic"
	"github.com/plc-foundry/go-stc/internal/project"
)

func containers(sources map[string]string) []project.SourceContainer {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]project.SourceContainer, 0, len(names))
	for _, name := range names {
		out = append(out, project.InMemoryContainer{Name: name, Text: sources[name]})
	}
	return out
}

// runPipeline drives parse through validate and returns the annotated
// project with the collected diagnostics.
func runPipeline(t *testing.T, sources map[string]string, includes map[string]string) (*AnnotatedProject, *diagnostic.BufferedDiagnostician, int) {
	t.Helper()
	ids := ast.NewIdProvider()
	diagnostician := diagnostic.NewBufferedDiagnostician()

	parsed, err := Parse(containers(sources), containers(includes), ParseOptions{}, ids, diagnostician)
	if err != nil {
		t.Fatal(err)
	}
	indexed, err := parsed.Index(ids)
	if err != nil {
		t.Fatal(err)
	}
	annotated, err := indexed.Annotate(ids, diagnostician)
	if err != nil {
		t.Fatal(err)
	}
	errors := annotated.Validate(diagnostician)
	return annotated, diagnostician, errors
}

// Two-file program: a function calling a program across units compiles
// clean and emits one module per unit.
func TestTwoFileProgramEmitsPerUnit(t *testing.T) {
	annotated, diagnostician, errors := runPipeline(t, map[string]string{
		"main.st": `FUNCTION main : INT
			VAR_INPUT END_VAR
			VAR END_VAR
			mainProg();
			END_FUNCTION`,
		"prog.st": `PROGRAM mainProg
			VAR_TEMP END_VAR
			END_PROGRAM`,
	}, nil)

	if errors != 0 || len(diagnostician.Diagnostics) != 0 {
		t.Fatalf("expected a clean build, got %v", diagnostician.Diagnostics)
	}

	outDir := t.TempDir()
	plan, err := annotated.Plan(nil, outDir, project.FormatIR)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Tasks) != 2 {
		t.Fatalf("expected 2 emission tasks, got %d", len(plan.Tasks))
	}

	paths, err := plan.Emit(TextBackend{}, EmitOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 outputs, got %v", paths)
	}
	sort.Strings(paths)
	if filepath.Base(paths[0]) != "main.ll" || filepath.Base(paths[1]) != "prog.ll" {
		t.Fatalf("outputs = %v", paths)
	}

	content, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "implementation main") {
		t.Fatalf("missing implementation marker:\n%s", content)
	}
}

func TestExternalUnitsAreNotEmitted(t *testing.T) {
	annotated, _, errors := runPipeline(t, map[string]string{
		"main.st": `FUNCTION main : INT
			ext();
			END_FUNCTION`,
	}, map[string]string{
		"header.st": `FUNCTION ext : INT
			END_FUNCTION`,
	})
	if errors != 0 {
		t.Fatal("expected a clean build")
	}

	plan, err := annotated.Plan(nil, t.TempDir(), project.FormatObject)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Tasks) != 1 {
		t.Fatalf("external units must not be planned, got %d tasks", len(plan.Tasks))
	}
	if plan.Tasks[0].UnitName != "main" {
		t.Fatalf("task = %+v", plan.Tasks[0])
	}
}

func TestMultiTargetPlanCreatesSubdirectories(t *testing.T) {
	annotated, _, errors := runPipeline(t, map[string]string{
		"main.st": `PROGRAM p END_PROGRAM`,
	}, nil)
	if errors != 0 {
		t.Fatal("expected a clean build")
	}

	outDir := t.TempDir()
	targets := []Target{
		{Triple: "x86_64-linux-gnu"},
		{Triple: "aarch64-linux-gnu"},
	}
	plan, err := annotated.Plan(targets, outDir, project.FormatObject)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Tasks) != 2 {
		t.Fatalf("expected one task per target, got %d", len(plan.Tasks))
	}
	for _, triple := range []string{"x86_64-linux-gnu", "aarch64-linux-gnu"} {
		info, err := os.Stat(filepath.Join(outDir, triple))
		if err != nil || !info.IsDir() {
			t.Fatalf("missing per-target directory %s", triple)
		}
	}

	paths, err := plan.Emit(TextBackend{}, EmitOptions{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("outputs = %v", paths)
	}
}

func TestPipelineStopsOnMissingFile(t *testing.T) {
	ids := ast.NewIdProvider()
	diagnostician := diagnostic.NewBufferedDiagnostician()
	_, err := Parse(
		[]project.SourceContainer{project.FileContainer{Path: "/nonexistent/missing.st"}},
		nil, ParseOptions{}, ids, diagnostician)
	if err == nil {
		t.Fatal("expected a fatal I/O error")
	}
	if !strings.Contains(err.Error(), string(diagnostic.IoReadError)) {
		t.Fatalf("error = %v", err)
	}
}

func TestValidationErrorsBlockEmission(t *testing.T) {
	_, diagnostician, errors := runPipeline(t, map[string]string{
		"bad.st": `PROGRAM p
			VAR arr : ARRAY[0..1] OF INT; x : INT; END_VAR
			x := arr[5];
			END_PROGRAM`,
	}, nil)
	if errors == 0 {
		t.Fatal("expected validation errors")
	}
	if !diagnostician.HasErrors() {
		t.Fatal("diagnostician must have received the errors")
	}
}

// The diagnostic stream for a representative broken build is pinned as a
// snapshot, keeping messages and ordering stable.
func TestDiagnosticsSnapshot(t *testing.T) {
	_, diagnostician, _ := runPipeline(t, map[string]string{
		"dup.st": `FUNCTION foo : INT END_FUNCTION
			PROGRAM foo END_PROGRAM`,
		"range.st": `PROGRAM p
			VAR arr : ARRAY[0..1] OF INT; x : INT; END_VAR
			x := arr[3];
			END_PROGRAM`,
	}, nil)

	var lines []string
	for _, d := range diagnostician.Diagnostics {
		lines = append(lines, d.String())
	}
	sort.Strings(lines)
	snaps.MatchSnapshot(t, strings.Join(lines, "\n"))
}

func TestGenericsAcrossUnitsEndToEnd(t *testing.T) {
	annotated, diagnostician, errors := runPipeline(t, map[string]string{
		"a.st": `{external}
			FUNCTION CONCAT_DATE<T: ANY_INT> : DATE
			VAR_INPUT year, month, day : T; END_VAR
			END_FUNCTION`,
		"b.st": `FUNCTION b : DATE
			b := CONCAT_DATE(INT#1, SINT#2, SINT#3);
			END_FUNCTION`,
		"c.st": `FUNCTION c : DATE
			c := CONCAT_DATE(DINT#1, DINT#2, DINT#3);
			c := CONCAT_DATE(DINT#4, DINT#5, DINT#6);
			END_FUNCTION`,
	}, nil)
	if errors != 0 {
		t.Fatalf("diagnostics: %v", diagnostician.Diagnostics)
	}
	if annotated.Index.FindPou("CONCAT_DATE__INT") == nil ||
		annotated.Index.FindPou("CONCAT_DATE__DINT") == nil {
		t.Fatal("generic instances missing after merge")
	}
}
