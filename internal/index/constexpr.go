package index

import (
	"fmt"
	"sync"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/typesys"
)

// ConstState is the lifecycle of one stored constant expression.
type ConstState int

const (
	ConstUnevaluated ConstState = iota
	ConstInProgress
	ConstLiteral
	ConstUnresolvable
)

// ValueKind tags the payload of a folded constant value.
type ValueKind int

const (
	ValueInt ValueKind = iota
	ValueReal
	ValueBool
	ValueString
)

// Value is a folded compile-time constant.
type Value struct {
	Kind ValueKind
	Int  int64
	Real float64
	Bool bool
	Str  string
}

func (v Value) String() string {
	switch v.Kind {
	case ValueInt:
		return fmt.Sprintf("%d", v.Int)
	case ValueReal:
		return fmt.Sprintf("%g", v.Real)
	case ValueBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	default:
		return v.Str
	}
}

// IntValue creates an integer constant value.
func IntValue(i int64) Value { return Value{Kind: ValueInt, Int: i} }

// RealValue creates a float constant value.
func RealValue(f float64) Value { return Value{Kind: ValueReal, Real: f} }

// BoolValue creates a boolean constant value.
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// StringValue creates a string constant value.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

type constEntry struct {
	expr           ast.Expression
	state          ConstState
	value          Value
	targetTypeName string
	scope          string // qualifying POU for local constants, "" for global
}

// ConstExpressions is the constant-expression store. Expressions referenced
// from type sizes, array dimensions and initializers are registered once
// and addressed by ConstId. The resolution cache interior-mutates behind a
// mutex because the annotator triggers lazy folding during type-size
// queries; the InProgress marker detects evaluation cycles.
type ConstExpressions struct {
	mu      sync.Mutex
	entries []constEntry
}

// NewConstExpressions creates an empty store.
func NewConstExpressions() *ConstExpressions {
	return &ConstExpressions{}
}

// Add registers an expression and returns its id. targetTypeName is the
// declared type the folded value must fit, "" when unconstrained.
func (c *ConstExpressions) Add(expr ast.Expression, targetTypeName, scope string) typesys.ConstId {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, constEntry{
		expr:           expr,
		state:          ConstUnevaluated,
		targetTypeName: targetTypeName,
		scope:          scope,
	})
	return typesys.ConstId(len(c.entries) - 1)
}

// Len returns the number of stored expressions.
func (c *ConstExpressions) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Expression returns the stored AST expression for an id.
func (c *ConstExpressions) Expression(id typesys.ConstId) ast.Expression {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(id) >= len(c.entries) {
		return nil
	}
	return c.entries[id].expr
}

// TargetType returns the declared type name constraining the value.
func (c *ConstExpressions) TargetType(id typesys.ConstId) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(id) >= len(c.entries) {
		return ""
	}
	return c.entries[id].targetTypeName
}

// Scope returns the POU qualifier the expression was declared in.
func (c *ConstExpressions) Scope(id typesys.ConstId) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(id) >= len(c.entries) {
		return ""
	}
	return c.entries[id].scope
}

// State returns the entry's resolution state.
func (c *ConstExpressions) State(id typesys.ConstId) ConstState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(id) >= len(c.entries) {
		return ConstUnresolvable
	}
	return c.entries[id].state
}

// ResolvedValue returns the folded value, if any.
func (c *ConstExpressions) ResolvedValue(id typesys.ConstId) (Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(id) >= len(c.entries) || c.entries[id].state != ConstLiteral {
		return Value{}, false
	}
	return c.entries[id].value, true
}

// BeginEvaluation transitions an entry to InProgress. Returns false when
// the entry is already being evaluated (a cycle) or is finished.
func (c *ConstExpressions) BeginEvaluation(id typesys.ConstId) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(id) >= len(c.entries) {
		return false
	}
	if c.entries[id].state != ConstUnevaluated {
		return false
	}
	c.entries[id].state = ConstInProgress
	return true
}

// MarkResolved stores the folded value.
func (c *ConstExpressions) MarkResolved(id typesys.ConstId, v Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(id) < len(c.entries) {
		c.entries[id].state = ConstLiteral
		c.entries[id].value = v
	}
}

// MarkUnresolvable freezes an entry as permanently unresolvable.
func (c *ConstExpressions) MarkUnresolvable(id typesys.ConstId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(id) < len(c.entries) {
		c.entries[id].state = ConstUnresolvable
	}
}

// Reset returns an InProgress entry to Unevaluated so a later fixed-point
// iteration can retry it.
func (c *ConstExpressions) Reset(id typesys.ConstId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(id) < len(c.entries) && c.entries[id].state == ConstInProgress {
		c.entries[id].state = ConstUnevaluated
	}
}

// Unresolved returns the ids of all entries not yet folded.
func (c *ConstExpressions) Unresolved() []typesys.ConstId {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []typesys.ConstId
	for i, e := range c.entries {
		if e.state == ConstUnevaluated || e.state == ConstInProgress {
			out = append(out, typesys.ConstId(i))
		}
	}
	return out
}

// Import appends another store's entries, returning the id offset that
// must be added to every ConstId imported alongside.
func (c *ConstExpressions) Import(other *ConstExpressions) typesys.ConstId {
	c.mu.Lock()
	defer c.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()
	offset := typesys.ConstId(len(c.entries))
	c.entries = append(c.entries, other.entries...)
	return offset
}
