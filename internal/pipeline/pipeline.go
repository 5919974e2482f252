// Package pipeline wires the compiler stages together as a sequence of
// immutable artifacts: Parsed -> Indexed -> Annotated -> Validated ->
// Emittable. Each transition is fallible; recoverable findings flow to
// the diagnostician without aborting the stage.
package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/consteval"
	"github.com/plc-foundry/go-stc/internal/diagnostic"
	"github.com/plc-foundry/go-stc/internal/index"
	"github.com/plc-foundry/go-stc/internal/parser"
	"github.com/plc-foundry/go-stc/internal/project"
	"github.com/plc-foundry/go-stc/internal/resolver"
	"github.com/plc-foundry/go-stc/internal/validation"
)

// ParsedProject holds every parsed compilation unit of a build.
type ParsedProject struct {
	Units []*ast.CompilationUnit
}

// ParseOptions configures the parse stage.
type ParseOptions struct {
	// EncodingHint forces a source encoding; empty means BOM detection.
	EncodingHint string
}

// Parse loads and parses all sources and includes. Sources compile and
// emit; includes (and library includes) contribute declarations only.
// An unreadable file is a fatal IoReadError.
func Parse(
	sources []project.SourceContainer,
	includes []project.SourceContainer,
	options ParseOptions,
	ids ast.IdProvider,
	diagnostician diagnostic.Diagnostician,
) (*ParsedProject, error) {
	parsed := &ParsedProject{}

	parse := func(container project.SourceContainer, linkage ast.LinkageType) error {
		source, err := container.LoadSource(options.EncodingHint)
		if err != nil {
			return fmt.Errorf("%s: %s: %w", diagnostic.IoReadError, container.Location(), err)
		}
		diagnostician.Register(source.Path, source.Text)
		unit, diagnostics := parser.ParseFile(source.Text, source.Path, linkage, ids)
		if len(diagnostics) > 0 {
			diagnostician.Report(diagnostics)
		}
		parsed.Units = append(parsed.Units, unit)
		return nil
	}

	for _, container := range sources {
		if err := parse(container, ast.LinkageInternal); err != nil {
			return nil, err
		}
	}
	for _, container := range includes {
		if err := parse(container, ast.LinkageExternal); err != nil {
			return nil, err
		}
	}

	logrus.WithField("units", len(parsed.Units)).Debug("parse stage complete")
	return parsed, nil
}

// IndexedProject pairs the units with the merged global index.
type IndexedProject struct {
	Units []*ast.CompilationUnit
	Index *index.Index
}

// Index pre-processes every unit, indexes it, and merges the per-unit
// indexes in source order. Built-in types register exactly once, before
// any user unit is imported.
func (p *ParsedProject) Index(ids ast.IdProvider) (*IndexedProject, error) {
	global := index.NewIndex()
	global.RegisterBuiltins()

	for _, unit := range p.Units {
		ast.PreProcess(unit, ids)
		global.Import(index.VisitUnit(unit, ids))
	}

	logrus.WithFields(logrus.Fields{
		"types": len(global.TypeNames()),
		"pous":  len(global.PouNames()),
	}).Debug("index stage complete")
	return &IndexedProject{Units: p.Units, Index: global}, nil
}

// AnnotatedProject is the fully annotated build, ready for validation
// and emission.
type AnnotatedProject struct {
	Units       []*ast.CompilationUnit
	Index       *index.Index
	Annotations *resolver.AstAnnotations
	Literals    *resolver.StringLiterals
}

// Annotate evaluates constants to their fixed point, then resolves and
// types every unit. Constant and annotation diagnostics flow to the
// diagnostician.
func (p *IndexedProject) Annotate(ids ast.IdProvider, diagnostician diagnostic.Diagnostician) (*AnnotatedProject, error) {
	constResult := consteval.Evaluate(p.Index)
	if len(constResult.Diagnostics) > 0 {
		diagnostician.Report(constResult.Diagnostics)
	}
	if len(constResult.Unresolvables) > 0 {
		logrus.WithField("count", len(constResult.Unresolvables)).
			Debug("constants left unresolved after fixed point")
	}

	result := resolver.Annotate(p.Units, p.Index, ids)
	if len(result.Diagnostics) > 0 {
		diagnostician.Report(result.Diagnostics)
	}

	units := p.Units
	if result.GeneratedUnit != nil {
		units = append(units, result.GeneratedUnit)
	}

	logrus.WithField("annotations", result.Annotations.Map.Len()).Debug("annotation stage complete")
	return &AnnotatedProject{
		Units:       units,
		Index:       p.Index,
		Annotations: result.Annotations,
		Literals:    result.Literals,
	}, nil
}

// Validate runs global and per-unit validation, reporting everything to
// the diagnostician. It returns the number of error-severity findings;
// any error terminates the pipeline before emission.
func (p *AnnotatedProject) Validate(diagnostician diagnostic.Diagnostician) int {
	validator := validation.NewValidator(p.Index, p.Annotations)

	diagnostics := validation.ValidateGlobal(p.Index)
	for _, unit := range p.Units {
		validator.ValidateUnit(unit)
		diagnostics = append(diagnostics, validator.Diagnostics()...)
	}

	errors := 0
	for _, d := range diagnostics {
		if d.Severity == diagnostic.SeverityError {
			errors++
		}
	}
	if len(diagnostics) > 0 {
		diagnostician.Report(diagnostics)
	}
	logrus.WithFields(logrus.Fields{
		"diagnostics": len(diagnostics),
		"errors":      errors,
	}).Debug("validation stage complete")
	return errors
}
