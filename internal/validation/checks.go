package validation

import (
	"strings"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/diagnostic"
	"github.com/plc-foundry/go-stc/internal/typesys"
)

// validateArrayAccess checks an index expression: the base must be an
// array, every index must be an integer, and literal indices must lie
// within the declared dimension ranges.
func (v *Validator) validateArrayAccess(expr *ast.IndexExpression) {
	base := v.effectiveTypeOf(expr.Base)
	if base == nil {
		return
	}

	def, isArray := base.Definition.(typesys.ArrayDef)
	if !isArray {
		v.errorf(diagnostic.IncompatibleArrayAccessVariable, expr,
			"invalid type %q for array access, must be an array", base.Name)
		return
	}

	// Chained accesses (a[i][j]) consume dimensions left to right; count
	// the indices already consumed by inner accesses of the same array.
	dimOffset := 0
	for inner, ok := expr.Base.(*ast.IndexExpression); ok; inner, ok = inner.Base.(*ast.IndexExpression) {
		if innerBase := v.effectiveTypeOf(inner); innerBase == nil || innerBase.Name != base.Name {
			break
		}
		dimOffset += len(inner.Indices)
	}

	for i, idxExpr := range expr.Indices {
		indexType := v.effectiveTypeOf(idxExpr)
		if indexType != nil && !isIntegerClass(indexType) {
			v.errorf(diagnostic.IncompatibleArrayAccessType, idxExpr,
				"invalid type %q for array access, must be an integer", indexType.Name)
			continue
		}

		dim := dimOffset + i
		if dim >= len(def.Dimensions) || def.Dimensions[dim].Star {
			continue
		}
		literal, isLiteral := literalIntValue(idxExpr)
		if !isLiteral {
			continue
		}
		start, okS := def.Dimensions[dim].StartOffset.Resolve(v.idx)
		end, okE := def.Dimensions[dim].EndOffset.Resolve(v.idx)
		if !okS || !okE {
			continue
		}
		if literal < start || literal > end {
			v.errorf(diagnostic.IncompatibleArrayAccessRange, idxExpr,
				"array access must be in the range %d..%d", start, end)
		}
	}
}

func isIntegerClass(dt *typesys.DataType) bool {
	switch dt.Definition.(type) {
	case typesys.IntegerDef, typesys.EnumDef:
		return true
	}
	return false
}

// literalIntValue extracts the value of a literal index, including a
// negated literal.
func literalIntValue(expr ast.Expression) (int64, bool) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return e.Value, true
	case *ast.CastExpression:
		return literalIntValue(e.Expr)
	case *ast.UnaryExpression:
		if inner, ok := e.Operand.(*ast.IntegerLiteral); ok && e.Operator == ast.OpMinus {
			return -inner.Value, true
		}
	}
	return 0, false
}

// validateCallRanks checks variable-length array parameters: the actual
// argument's dimension count must match the formal's `*` count.
func (v *Validator) validateCallRanks(call *ast.CallExpression) {
	annotation, ok := v.annotations.Get(call.Callee)
	if !ok || annotation.QualifiedName == "" {
		return
	}
	params := v.idx.DeclaredParameters(annotation.QualifiedName)

	position := 0
	for _, arg := range call.Arguments {
		var formalType string
		value := arg
		if named, isNamed := arg.(*ast.ParamAssignment); isNamed {
			if param := v.idx.FindMember(annotation.QualifiedName, named.Name.Value); param != nil {
				formalType = param.TypeName
			}
			value = named.Value
		} else {
			if position < len(params) {
				formalType = params[position].TypeName
			}
			position++
		}

		formal := v.idx.FindEffectiveType(formalType)
		if formal == nil || !formal.IsVariableLengthArray() {
			continue
		}
		formalDef := formal.Definition.(typesys.ArrayDef)

		actual := v.effectiveTypeOf(value)
		if actual == nil {
			continue
		}
		actualDef, isArray := actual.Definition.(typesys.ArrayDef)
		if !isArray {
			continue
		}
		if len(actualDef.Dimensions) != len(formalDef.Dimensions) {
			v.errorf(diagnostic.InvalidVariableLengthArrayRankMismatch, value,
				"array of rank %d cannot be passed to a variable-length array of rank %d",
				len(actualDef.Dimensions), len(formalDef.Dimensions))
		}
	}
}

// validateAssignment covers aggregate initializers, string narrowing and
// sub-range bounds.
func (v *Validator) validateAssignment(stmt *ast.AssignmentStatement) {
	target := v.effectiveTypeOf(stmt.Target)
	if target == nil {
		return
	}

	switch target.Definition.(type) {
	case typesys.ArrayDef:
		v.validateArrayAssignment(stmt, target)
	case typesys.StructDef:
		v.validateStructAssignment(stmt, target)
	case typesys.StringDef:
		v.validateStringAssignment(stmt, target)
	}

	v.validateSubRangeAssignment(stmt)
}

func (v *Validator) validateArrayAssignment(stmt *ast.AssignmentStatement, target *typesys.DataType) {
	switch value := stmt.Value.(type) {
	case *ast.InitializerList:
		if !value.Bracketed {
			v.errorf(diagnostic.ArrayExpectedIdentifierOrRoundBracket, value,
				"expected identifier or round bracket in array initializer")
		}
	default:
		source := v.effectiveTypeOf(stmt.Value)
		if source != nil && source.Name == target.Name {
			return // array-to-array copy of the same type
		}
		if source != nil && source.IsArray() {
			return // structural copies are checked by type compatibility
		}
		v.errorf(diagnostic.ArrayExpectedInitializerList, stmt.Value,
			"expected initializer list for array assignment")
	}
}

// validateStructAssignment requires parenthesized nested initializers for
// aggregate fields of structural literals.
func (v *Validator) validateStructAssignment(stmt *ast.AssignmentStatement, target *typesys.DataType) {
	list, ok := stmt.Value.(*ast.InitializerList)
	if !ok {
		return
	}
	structDef := target.Definition.(typesys.StructDef)
	for _, element := range list.Elements {
		kv, isKv := element.(*ast.KeyValueExpression)
		if !isKv {
			continue
		}
		field := v.idx.FindMember(structDef.ContainerName, kv.Key.Value)
		if field == nil {
			v.errorf(diagnostic.UnresolvedReference, kv.Key,
				"%q has no member %q", target.Name, kv.Key.Value)
			continue
		}
		fieldType := v.idx.FindEffectiveType(field.TypeName)
		if fieldType == nil {
			continue
		}
		if fieldType.IsArray() || fieldType.IsStruct() {
			if _, nested := kv.Value.(*ast.InitializerList); !nested {
				v.errorf(diagnostic.ArrayExpectedInitializerList, kv.Value,
					"expected initializer list for aggregate member %q", kv.Key.Value)
			}
		}
	}
}

// validateStringAssignment rejects narrowing: mixed encodings, or a
// target shorter than the source.
func (v *Validator) validateStringAssignment(stmt *ast.AssignmentStatement, target *typesys.DataType) {
	source := v.effectiveTypeOf(stmt.Value)
	if source == nil {
		return
	}
	sourceDef, isString := source.Definition.(typesys.StringDef)
	if !isString {
		return
	}
	targetDef := target.Definition.(typesys.StringDef)

	if sourceDef.Encoding != targetDef.Encoding {
		v.errorf(diagnostic.IncompatibleType, stmt.Value,
			"cannot assign %s string to %s string", sourceDef.Encoding, targetDef.Encoding)
		return
	}

	targetLen, okT := targetDef.Length.Resolve(v.idx)
	sourceLen, okS := sourceDef.Length.Resolve(v.idx)
	if okT && okS && sourceLen > targetLen {
		v.errorf(diagnostic.IncompatibleType, stmt.Value,
			"string of length %d does not fit into target of length %d", sourceLen, targetLen)
	}
}

// validateSubRangeAssignment reports literal values outside a sub-range
// destination's declared bounds. The runtime check call for non-literal
// values is recorded on the statement's annotation.
func (v *Validator) validateSubRangeAssignment(stmt *ast.AssignmentStatement) {
	typeName := v.annotations.TypeName(stmt.Target)
	declared := v.idx.FindType(typeName)
	if declared == nil || !declared.IsSubRange() || declared.SubRange == nil {
		return
	}

	value, isLiteral := literalIntValue(stmt.Value)
	if !isLiteral {
		return
	}
	low, okL := v.resolveBound(declared.SubRange.Start)
	high, okH := v.resolveBound(declared.SubRange.End)
	if !okL || !okH {
		return
	}
	if value < low || value > high {
		v.errorf(diagnostic.InvalidRangeAssignment, stmt.Value,
			"value %d is outside the range %d..%d of %s", value, low, high, declared.Name)
	}
}

// resolveBound folds a sub-range bound: a literal, or a reference to a
// resolved constant.
func (v *Validator) resolveBound(expr ast.Expression) (int64, bool) {
	if value, ok := literalIntValue(expr); ok {
		return value, true
	}
	if ident, ok := expr.(*ast.Identifier); ok {
		if global := v.idx.FindGlobal(ident.Value); global != nil && global.Constant && global.InitialValue != nil {
			return v.idx.GetConstantInt(*global.InitialValue)
		}
	}
	return 0, false
}

// validatePointerArithmetic restricts pointer operands to ptr +/- int and
// pointer comparison.
func (v *Validator) validatePointerArithmetic(expr *ast.BinaryExpression) {
	left := v.effectiveTypeOf(expr.Left)
	right := v.effectiveTypeOf(expr.Right)
	if left == nil || right == nil {
		return
	}
	if !left.IsPointer() && !right.IsPointer() {
		return
	}

	if expr.Operator.IsComparison() {
		if left.IsPointer() && right.IsPointer() {
			return
		}
		other := left
		if left.IsPointer() {
			other = right
		}
		if typesys.PointerIntCompatible(other) {
			return
		}
		v.errorf(diagnostic.InvalidPointerArithmetic, expr,
			"pointers can only be compared with pointers or LWORD values")
		return
	}

	if expr.Operator == ast.OpPlus || expr.Operator == ast.OpMinus {
		other := left
		if left.IsPointer() {
			other = right
		}
		if left.IsPointer() && right.IsPointer() {
			v.errorf(diagnostic.InvalidPointerArithmetic, expr,
				"cannot apply %s to two pointers", expr.Operator)
			return
		}
		if isIntegerClass(other) {
			return
		}
	}
	v.errorf(diagnostic.InvalidPointerArithmetic, expr,
		"operator %s is not allowed on pointer operands", expr.Operator)
}

// validateDirectAccess checks a partial access against the base type's
// bit width: the accessor must be narrower than the base, and a literal
// index must select a slice inside it.
func (v *Validator) validateDirectAccess(member *ast.MemberExpression) {
	direct, ok := member.Member.(*ast.DirectAccessExpression)
	if !ok {
		return
	}
	base := v.effectiveTypeOf(member.Base)
	if base == nil {
		return
	}
	baseBits, okBits := base.SizeInBits(v.idx)
	if !okBits {
		return
	}
	accessBits := direct.Width.BitWidth()
	if accessBits >= baseBits {
		v.errorf(diagnostic.IncompatibleType, direct,
			"%%%s access is too wide for type %s", strings.ToUpper(direct.Width.String()), base.Name)
		return
	}
	if literal, isLit := literalIntValue(direct.Index); isLit {
		slots := int64(baseBits / accessBits)
		if literal < 0 || literal >= slots {
			v.errorf(diagnostic.IncompatibleArrayAccessRange, direct,
				"direct access must be in the range 0..%d", slots-1)
		}
	}
}
