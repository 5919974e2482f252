// Package resolver assigns a type to every expression and a referent to
// every name, discovers generic instantiations, and collects string
// literals for emission.
package resolver

import (
	"github.com/plc-foundry/go-stc/internal/ast"
)

// AnnotationKind tags what a node resolved to.
type AnnotationKind int

const (
	// AnnotationValue is a plain expression with a result type.
	AnnotationValue AnnotationKind = iota
	// AnnotationVariable is a name that resolved to a variable.
	AnnotationVariable
	// AnnotationType is a name that resolved to a data type.
	AnnotationType
	// AnnotationFunction is a name that resolved to a callable.
	AnnotationFunction
	// AnnotationProgram is a name that resolved to a program instance.
	AnnotationProgram
)

// Annotation describes what one AST node means. TypeName is the node's
// result type for every kind.
type Annotation struct {
	Kind          AnnotationKind
	TypeName      string
	QualifiedName string // for variables, functions and programs
	Constant      bool   // for variables
	ReturnType    string // for functions
	CallName      string // mangled name for generic instances
}

// AnnotationMap is the side table from node id to annotation, plus the
// hint types recorded where an implicit conversion is required.
type AnnotationMap struct {
	annotations map[ast.NodeId]Annotation
	hints       map[ast.NodeId]string
}

// NewAnnotationMap creates an empty map.
func NewAnnotationMap() *AnnotationMap {
	return &AnnotationMap{
		annotations: make(map[ast.NodeId]Annotation),
		hints:       make(map[ast.NodeId]string),
	}
}

// Annotate records the annotation for a node.
func (m *AnnotationMap) Annotate(node ast.Node, annotation Annotation) {
	m.annotations[node.ID()] = annotation
}

// AnnotateHint records the hint type for a node where an implicit cast is
// required (e.g. literal widening at an assignment).
func (m *AnnotationMap) AnnotateHint(node ast.Node, typeName string) {
	m.hints[node.ID()] = typeName
}

// Get returns the annotation for a node.
func (m *AnnotationMap) Get(node ast.Node) (Annotation, bool) {
	a, ok := m.annotations[node.ID()]
	return a, ok
}

// GetById returns the annotation for a node id.
func (m *AnnotationMap) GetById(id ast.NodeId) (Annotation, bool) {
	a, ok := m.annotations[id]
	return a, ok
}

// TypeName returns the annotated result type of a node, or "" when the
// node carries no annotation.
func (m *AnnotationMap) TypeName(node ast.Node) string {
	return m.annotations[node.ID()].TypeName
}

// Hint returns the hint type recorded for a node, or "".
func (m *AnnotationMap) Hint(node ast.Node) string {
	return m.hints[node.ID()]
}

// EffectiveTypeName returns the hint when present, the annotated type
// otherwise: the type the node will have after implicit conversion.
func (m *AnnotationMap) EffectiveTypeName(node ast.Node) string {
	if hint, ok := m.hints[node.ID()]; ok {
		return hint
	}
	return m.annotations[node.ID()].TypeName
}

// Len returns the number of annotated nodes.
func (m *AnnotationMap) Len() int { return len(m.annotations) }

// AstAnnotations is the frozen annotation table handed to validation and
// codegen, together with the id provider whose counter covers the nodes
// synthesized during annotation.
type AstAnnotations struct {
	Map *AnnotationMap
	Ids ast.IdProvider
}

// StringLiterals collects the literal contents encountered during
// annotation, split by encoding, so emission can pre-allocate constant
// storage.
type StringLiterals struct {
	Utf8  map[string]struct{}
	Utf16 map[string]struct{}
}

// NewStringLiterals creates empty literal sets.
func NewStringLiterals() *StringLiterals {
	return &StringLiterals{
		Utf8:  make(map[string]struct{}),
		Utf16: make(map[string]struct{}),
	}
}

func (s *StringLiterals) add(value string, wide bool) {
	if wide {
		s.Utf16[value] = struct{}{}
	} else {
		s.Utf8[value] = struct{}{}
	}
}
