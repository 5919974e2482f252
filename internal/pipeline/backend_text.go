package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/index"
	"github.com/plc-foundry/go-stc/internal/project"
	"github.com/plc-foundry/go-stc/internal/resolver"
)

// TextBackend is a reference backend emitting a textual listing of the
// annotated unit: the canonical source, the string-literal pool, and the
// implementations selected for the unit. The production machine-code
// backend is an external library satisfying the same interface.
type TextBackend struct{}

// Generate implements CodegenBackend.
func (TextBackend) Generate(
	unit *ast.CompilationUnit,
	idx *index.Index,
	annotations *resolver.AstAnnotations,
	literals *resolver.StringLiterals,
	rootPath string,
	fileName string,
	optimizationLevel int,
	debugLevel int,
) (Module, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; unit: %s\n", fileName)
	fmt.Fprintf(&sb, "; opt: %d, debug: %d\n", optimizationLevel, debugLevel)

	for _, pou := range unit.Pous {
		if impl := idx.FindImplementation(implementationName(pou)); impl != nil {
			fmt.Fprintf(&sb, "; implementation %s\n", impl.CallName)
		}
	}

	for _, value := range sortedKeys(literals.Utf8) {
		fmt.Fprintf(&sb, "; string utf8 %q\n", value)
	}
	for _, value := range sortedKeys(literals.Utf16) {
		fmt.Fprintf(&sb, "; string utf16 %q\n", value)
	}

	sb.WriteString(unit.String())
	return &textModule{content: sb.String()}, nil
}

func implementationName(pou *ast.POU) string {
	if pou.Kind == ast.PouAction || pou.Kind == ast.PouMethod {
		return pou.ParentName + "." + pou.Name
	}
	return pou.Name
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type textModule struct {
	content string
}

// Persist implements Module.
func (m *textModule) Persist(outputDir, name string, format project.FormatOption, target Target, optimization int) (string, error) {
	extension := format.OutputExtension()
	if extension == "" {
		extension = ".out"
	}
	path := filepath.Join(outputDir, name+extension)
	if err := os.WriteFile(path, []byte(m.content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Merge implements Module.
func (m *textModule) Merge(other Module) (Module, error) {
	text, ok := other.(*textModule)
	if !ok {
		return nil, fmt.Errorf("cannot merge incompatible module types")
	}
	return &textModule{content: m.content + text.content}, nil
}
