// Package consteval reduces compile-time constant expressions to literal
// values. Resolution runs as an iterative fixed point: an iteration that
// makes no progress leaves the remaining ids as unresolvables, which is
// not an error by itself — type-size queries depending on them fail later
// with a localized diagnostic.
package consteval

import (
	"fmt"
	"math"
	"strings"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/diagnostic"
	"github.com/plc-foundry/go-stc/internal/index"
	"github.com/plc-foundry/go-stc/internal/typesys"
)

// Result is the outcome of the fixed-point evaluation.
type Result struct {
	// Unresolvables are the const ids that could not be folded.
	Unresolvables []typesys.ConstId
	// Diagnostics carries folding errors (overflow, division by zero).
	// Constants that reference each other in a cycle never fold and end
	// up among the Unresolvables without a diagnostic of their own.
	Diagnostics []diagnostic.Diagnostic
}

// Evaluate folds every constant expression in the index's store.
func Evaluate(idx *index.Index) Result {
	e := &evaluator{idx: idx, store: idx.GetConstExpressions()}

	for {
		progress := false
		for _, id := range e.store.Unresolved() {
			if e.evaluateId(id) {
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	result := Result{Diagnostics: e.diagnostics, Unresolvables: e.failed}
	for _, id := range e.store.Unresolved() {
		e.store.MarkUnresolvable(id)
		result.Unresolvables = append(result.Unresolvables, id)
	}
	return result
}

type evaluator struct {
	idx         *index.Index
	store       *index.ConstExpressions
	diagnostics []diagnostic.Diagnostic
	failed      []typesys.ConstId // ids frozen by a hard folding error
}

func (e *evaluator) errorf(kind diagnostic.Kind, expr ast.Expression, format string, args ...any) {
	e.diagnostics = append(e.diagnostics, diagnostic.Error(kind,
		fmt.Sprintf(format, args...),
		diagnostic.Location{Pos: expr.Pos()}))
}

// evaluateId attempts to fold one stored expression. Returns true when
// the entry transitioned to a literal.
func (e *evaluator) evaluateId(id typesys.ConstId) bool {
	if !e.store.BeginEvaluation(id) {
		return false
	}
	expr := e.store.Expression(id)
	scope := e.store.Scope(id)

	errorsBefore := len(e.diagnostics)
	value, ok := e.fold(expr, scope)
	if !ok {
		if len(e.diagnostics) > errorsBefore {
			// A hard folding error (overflow, division by zero) will not
			// go away on a later iteration.
			e.store.MarkUnresolvable(id)
			e.failed = append(e.failed, id)
		} else {
			// Not resolvable this round; retry next iteration.
			e.store.Reset(id)
		}
		return false
	}
	e.store.MarkResolved(id, value)
	return true
}

// fold attempts to reduce an expression to a value. Returns false when a
// referenced constant is not yet resolved.
func (e *evaluator) fold(expr ast.Expression, scope string) (index.Value, bool) {
	switch ex := expr.(type) {
	case *ast.IntegerLiteral:
		return index.IntValue(ex.Value), true
	case *ast.RealLiteral:
		return index.RealValue(ex.Value), true
	case *ast.BoolLiteral:
		return index.BoolValue(ex.Value), true
	case *ast.StringLiteral:
		return index.StringValue(ex.Value), true
	case *ast.TimeLiteral:
		return index.IntValue(ex.Nanos), true
	case *ast.ParenExpression:
		return e.fold(ex.Inner, scope)
	case *ast.CastExpression:
		return e.foldCast(ex, scope)
	case *ast.Identifier:
		return e.foldReference(ex, scope)
	case *ast.MemberExpression:
		return e.foldMember(ex)
	case *ast.UnaryExpression:
		return e.foldUnary(ex, scope)
	case *ast.BinaryExpression:
		return e.foldBinary(ex, scope)
	default:
		return index.Value{}, false
	}
}

// foldCast applies a typed-literal cast, range-checking the value against
// the target type.
func (e *evaluator) foldCast(cast *ast.CastExpression, scope string) (index.Value, bool) {
	value, ok := e.fold(cast.Expr, scope)
	if !ok {
		return index.Value{}, false
	}
	target := e.idx.FindEffectiveType(cast.TypeName)
	if target == nil {
		return value, true
	}
	if def, isInt := target.Definition.(typesys.IntegerDef); isInt && value.Kind == index.ValueInt {
		if !intFits(value.Int, def) {
			e.errorf(diagnostic.ConstantEvaluationOverflow, cast,
				"value %d is out of range for %s", value.Int, target.Name)
		}
	}
	return value, true
}

// foldReference resolves a name against local constants of the scope POU,
// global constants, and enum elements.
func (e *evaluator) foldReference(ident *ast.Identifier, scope string) (index.Value, bool) {
	if scope != "" {
		if member := e.idx.FindMember(scope, ident.Value); member != nil && member.Constant {
			return e.valueOf(member.InitialValue)
		}
	}
	if global := e.idx.FindGlobal(ident.Value); global != nil && global.Constant {
		return e.valueOf(global.InitialValue)
	}
	if element := e.idx.FindEnumElement(ident.Value); element != nil {
		return e.store.ResolvedValue(element.Value)
	}
	return index.Value{}, false
}

// foldMember resolves qualified enum access: Color.red.
func (e *evaluator) foldMember(member *ast.MemberExpression) (index.Value, bool) {
	enumName, okBase := member.Base.(*ast.Identifier)
	elementName, okMember := member.Member.(*ast.Identifier)
	if !okBase || !okMember {
		return index.Value{}, false
	}
	element := e.idx.FindEnumElement(elementName.Value)
	if element == nil || !strings.EqualFold(element.EnumTypeName, enumName.Value) {
		return index.Value{}, false
	}
	return e.store.ResolvedValue(element.Value)
}

func (e *evaluator) valueOf(id *typesys.ConstId) (index.Value, bool) {
	if id == nil {
		return index.Value{}, false
	}
	return e.store.ResolvedValue(*id)
}

func (e *evaluator) foldUnary(unary *ast.UnaryExpression, scope string) (index.Value, bool) {
	operand, ok := e.fold(unary.Operand, scope)
	if !ok {
		return index.Value{}, false
	}
	switch unary.Operator {
	case ast.OpMinus:
		switch operand.Kind {
		case index.ValueInt:
			if operand.Int == math.MinInt64 {
				e.errorf(diagnostic.ConstantEvaluationOverflow, unary, "integer negation overflow")
				return index.Value{}, false
			}
			return index.IntValue(-operand.Int), true
		case index.ValueReal:
			return index.RealValue(-operand.Real), true
		}
	case ast.OpNot:
		if operand.Kind == index.ValueBool {
			return index.BoolValue(!operand.Bool), true
		}
		if operand.Kind == index.ValueInt {
			return index.IntValue(^operand.Int), true
		}
	}
	return index.Value{}, false
}

func (e *evaluator) foldBinary(binary *ast.BinaryExpression, scope string) (index.Value, bool) {
	left, okL := e.fold(binary.Left, scope)
	if !okL {
		return index.Value{}, false
	}
	right, okR := e.fold(binary.Right, scope)
	if !okR {
		return index.Value{}, false
	}

	// String concatenation
	if left.Kind == index.ValueString && right.Kind == index.ValueString && binary.Operator == ast.OpPlus {
		return index.StringValue(left.Str + right.Str), true
	}

	// Boolean operations
	if left.Kind == index.ValueBool && right.Kind == index.ValueBool {
		switch binary.Operator {
		case ast.OpAnd:
			return index.BoolValue(left.Bool && right.Bool), true
		case ast.OpOr:
			return index.BoolValue(left.Bool || right.Bool), true
		case ast.OpXor:
			return index.BoolValue(left.Bool != right.Bool), true
		case ast.OpEqual:
			return index.BoolValue(left.Bool == right.Bool), true
		case ast.OpNotEqual:
			return index.BoolValue(left.Bool != right.Bool), true
		}
		return index.Value{}, false
	}

	// Mixed arithmetic promotes to float when either side is real.
	if left.Kind == index.ValueReal || right.Kind == index.ValueReal {
		return e.foldFloatOp(binary, toReal(left), toReal(right))
	}
	if left.Kind == index.ValueInt && right.Kind == index.ValueInt {
		return e.foldIntOp(binary, left.Int, right.Int)
	}
	return index.Value{}, false
}

func toReal(v index.Value) float64 {
	if v.Kind == index.ValueInt {
		return float64(v.Int)
	}
	return v.Real
}

func (e *evaluator) foldIntOp(binary *ast.BinaryExpression, l, r int64) (index.Value, bool) {
	switch binary.Operator {
	case ast.OpPlus:
		result := l + r
		if (l > 0 && r > 0 && result < 0) || (l < 0 && r < 0 && result > 0) {
			e.errorf(diagnostic.ConstantEvaluationOverflow, binary, "integer addition overflow")
			return index.Value{}, false
		}
		return index.IntValue(result), true
	case ast.OpMinus:
		result := l - r
		if (l >= 0 && r < 0 && result < 0) || (l < 0 && r > 0 && result > 0) {
			e.errorf(diagnostic.ConstantEvaluationOverflow, binary, "integer subtraction overflow")
			return index.Value{}, false
		}
		return index.IntValue(result), true
	case ast.OpMultiply:
		if l != 0 && r != 0 {
			result := l * r
			if result/l != r {
				e.errorf(diagnostic.ConstantEvaluationOverflow, binary, "integer multiplication overflow")
				return index.Value{}, false
			}
			return index.IntValue(result), true
		}
		return index.IntValue(0), true
	case ast.OpDivide:
		if r == 0 {
			e.errorf(diagnostic.ConstantEvaluationOverflow, binary, "division by zero")
			return index.Value{}, false
		}
		return index.IntValue(l / r), true
	case ast.OpModulo:
		if r == 0 {
			e.errorf(diagnostic.ConstantEvaluationOverflow, binary, "division by zero in MOD")
			return index.Value{}, false
		}
		return index.IntValue(l % r), true
	case ast.OpPower:
		return index.RealValue(math.Pow(float64(l), float64(r))), true
	case ast.OpAnd:
		return index.IntValue(l & r), true
	case ast.OpOr:
		return index.IntValue(l | r), true
	case ast.OpXor:
		return index.IntValue(l ^ r), true
	case ast.OpEqual:
		return index.BoolValue(l == r), true
	case ast.OpNotEqual:
		return index.BoolValue(l != r), true
	case ast.OpLess:
		return index.BoolValue(l < r), true
	case ast.OpLessEqual:
		return index.BoolValue(l <= r), true
	case ast.OpGreater:
		return index.BoolValue(l > r), true
	case ast.OpGreaterEqual:
		return index.BoolValue(l >= r), true
	}
	return index.Value{}, false
}

func (e *evaluator) foldFloatOp(binary *ast.BinaryExpression, l, r float64) (index.Value, bool) {
	switch binary.Operator {
	case ast.OpPlus:
		return index.RealValue(l + r), true
	case ast.OpMinus:
		return index.RealValue(l - r), true
	case ast.OpMultiply:
		return index.RealValue(l * r), true
	case ast.OpDivide:
		if r == 0 {
			e.errorf(diagnostic.ConstantEvaluationOverflow, binary, "division by zero")
			return index.Value{}, false
		}
		return index.RealValue(l / r), true
	case ast.OpPower:
		return index.RealValue(math.Pow(l, r)), true
	case ast.OpEqual:
		return index.BoolValue(l == r), true
	case ast.OpNotEqual:
		return index.BoolValue(l != r), true
	case ast.OpLess:
		return index.BoolValue(l < r), true
	case ast.OpLessEqual:
		return index.BoolValue(l <= r), true
	case ast.OpGreater:
		return index.BoolValue(l > r), true
	case ast.OpGreaterEqual:
		return index.BoolValue(l >= r), true
	}
	return index.Value{}, false
}

// intFits reports whether a value is representable by an integer type.
func intFits(value int64, def typesys.IntegerDef) bool {
	bits := def.SemanticBits
	if bits >= 64 {
		return true
	}
	if def.Signed {
		min := -(int64(1) << (bits - 1))
		max := (int64(1) << (bits - 1)) - 1
		return value >= min && value <= max
	}
	max := (int64(1) << bits) - 1
	return value >= 0 && value <= max
}
