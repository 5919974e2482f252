// Package validation emits the user-visible semantic diagnostics against
// the fully annotated program. It never mutates the IR.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/diagnostic"
	"github.com/plc-foundry/go-stc/internal/index"
	"github.com/plc-foundry/go-stc/internal/typesys"
)

// ValidateGlobal checks the merged index for name collisions. Compiler
// generated helper types (the `__` namespace: auto pointers, literal
// string types, lowered inline types) are exempt.
func ValidateGlobal(idx *index.Index) []diagnostic.Diagnostic {
	var diagnostics []diagnostic.Diagnostic
	diagnostics = append(diagnostics, validateDuplicatePous(idx)...)
	diagnostics = append(diagnostics, validateDuplicateTypes(idx)...)
	diagnostics = append(diagnostics, validateDuplicateGlobals(idx)...)
	return diagnostics
}

func isExemptName(name string) bool {
	return strings.HasPrefix(name, "__")
}

// sortedKeys orders duplicate groups by name so collision diagnostics
// come out in a deterministic order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func location(loc ast.SourceLocation) diagnostic.Location {
	return diagnostic.Location{File: loc.FileName, Pos: loc.Pos}
}

// isCallable reports whether a POU participates in the callable-symbol
// namespace. Function blocks are instantiated, not called by name.
func isCallable(kind ast.PouKind) bool {
	switch kind {
	case ast.PouProgram, ast.PouFunction, ast.PouMethod:
		return true
	}
	return false
}

// validateDuplicatePous reports ambiguous callable symbols: one
// diagnostic per callable participant, citing the other locations.
func validateDuplicatePous(idx *index.Index) []diagnostic.Diagnostic {
	var diagnostics []diagnostic.Diagnostic
	for _, key := range sortedKeys(idx.DuplicatePous()) {
		dups := idx.DuplicatePous()[key]
		canonical := idx.FindPou(key)
		if canonical == nil || isExemptName(canonical.Name) {
			continue
		}
		group := append([]*index.PouIndexEntry{canonical}, dups...)

		var callables []*index.PouIndexEntry
		for _, entry := range group {
			if isCallable(entry.Kind) {
				callables = append(callables, entry)
			}
		}
		if len(callables) < 2 {
			continue
		}
		for _, entry := range callables {
			d := diagnostic.Error(diagnostic.AmbiguousCallableSymbol,
				fmt.Sprintf("ambiguous callable symbol: %s is declared more than once", entry.Name),
				location(entry.Location))
			for _, other := range callables {
				if other != entry {
					d = d.WithSecondary(location(other.Location))
				}
			}
			diagnostics = append(diagnostics, d)
		}
	}
	return diagnostics
}

// validateDuplicateTypes reports colliding type declarations. Groups made
// up purely of POU instance structs are name conflicts between POUs;
// groups involving a declared TYPE are ambiguous datatypes.
func validateDuplicateTypes(idx *index.Index) []diagnostic.Diagnostic {
	var diagnostics []diagnostic.Diagnostic
	for _, key := range sortedKeys(idx.DuplicateTypes()) {
		dups := idx.DuplicateTypes()[key]
		canonical := idx.FindType(key)
		if canonical == nil || isExemptName(canonical.Name) {
			continue
		}
		group := append([]*typesys.DataType{canonical}, dups...)

		declaredType := false
		for _, dt := range group {
			if def, ok := dt.Definition.(typesys.StructDef); !ok || def.Source != typesys.StructPou {
				declaredType = true
			}
		}

		kind := diagnostic.GlobalNameConflict
		message := "global name conflict"
		if declaredType {
			kind = diagnostic.AmbiguousDatatype
			message = "ambiguous datatype"
		}

		for _, dt := range group {
			d := diagnostic.Error(kind,
				fmt.Sprintf("%s: %s is declared more than once", message, dt.Name),
				location(dt.Location))
			for _, other := range group {
				if other != dt {
					d = d.WithSecondary(location(other.Location))
				}
			}
			diagnostics = append(diagnostics, d)
		}
	}
	return diagnostics
}

// validateDuplicateGlobals reports ambiguous global variables.
func validateDuplicateGlobals(idx *index.Index) []diagnostic.Diagnostic {
	var diagnostics []diagnostic.Diagnostic
	for _, key := range sortedKeys(idx.DuplicateGlobals()) {
		dups := idx.DuplicateGlobals()[key]
		canonical := idx.FindGlobal(key)
		if canonical == nil || isExemptName(canonical.Name) {
			continue
		}
		group := append([]*index.VariableIndexEntry{canonical}, dups...)
		for _, entry := range group {
			d := diagnostic.Error(diagnostic.AmbiguousGlobalVariable,
				fmt.Sprintf("ambiguous global variable: %s is declared more than once", entry.Name),
				location(entry.Location))
			for _, other := range group {
				if other != entry {
					d = d.WithSecondary(location(other.Location))
				}
			}
			diagnostics = append(diagnostics, d)
		}
	}
	return diagnostics
}
