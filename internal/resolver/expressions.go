package resolver

import (
	"fmt"
	"strings"

	"github.com/plc-foundry/go-stc/internal/ast"
	"github.com/plc-foundry/go-stc/internal/diagnostic"
	"github.com/plc-foundry/go-stc/internal/index"
	"github.com/plc-foundry/go-stc/internal/typesys"
)

func fold(name string) string { return strings.ToLower(name) }

// findMember looks up a container member across both indexes.
func (a *annotator) findMember(container, member string) *index.VariableIndexEntry {
	if m := a.idx.FindMember(container, member); m != nil {
		return m
	}
	return a.newIndex.FindMember(container, member)
}

// findPou looks up a POU entry across both indexes.
func (a *annotator) findPou(name string) *index.PouIndexEntry {
	if p := a.idx.FindPou(name); p != nil {
		return p
	}
	return a.newIndex.FindPou(name)
}

// annotateExpression assigns a type to the expression and all its
// children, returning the result type name. The hint is the consumer's
// expected type; it steers literal typing and implicit conversions.
func (a *annotator) annotateExpression(expr ast.Expression, hint string) string {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return a.annotateIntegerLiteral(e, hint)
	case *ast.RealLiteral:
		typeName := typesys.LrealType
		if strings.EqualFold(hint, typesys.RealType) {
			typeName = typesys.RealType
		}
		a.amap.Annotate(e, Annotation{Kind: AnnotationValue, TypeName: typeName})
		return typeName
	case *ast.BoolLiteral:
		a.amap.Annotate(e, Annotation{Kind: AnnotationValue, TypeName: typesys.BoolType})
		return typesys.BoolType
	case *ast.StringLiteral:
		return a.annotateStringLiteral(e, hint)
	case *ast.TimeLiteral:
		typeName := typesys.TimeType
		if e.Long {
			typeName = typesys.LtimeType
		}
		a.amap.Annotate(e, Annotation{Kind: AnnotationValue, TypeName: typeName})
		return typeName
	case *ast.DateLiteral:
		typeName := typesys.DateType
		if e.Long {
			typeName = typesys.LdateType
		}
		a.amap.Annotate(e, Annotation{Kind: AnnotationValue, TypeName: typeName})
		return typeName
	case *ast.TimeOfDayLiteral:
		typeName := typesys.TimeOfDayType
		if e.Long {
			typeName = typesys.LongTimeOfDayType
		}
		a.amap.Annotate(e, Annotation{Kind: AnnotationValue, TypeName: typeName})
		return typeName
	case *ast.DateAndTimeLiteral:
		typeName := typesys.DateAndTimeType
		if e.Long {
			typeName = typesys.LongDateAndTimeType
		}
		a.amap.Annotate(e, Annotation{Kind: AnnotationValue, TypeName: typeName})
		return typeName
	case *ast.NullLiteral:
		typeName := hint
		if typeName == "" {
			typeName = typesys.LwordType
		}
		a.amap.Annotate(e, Annotation{Kind: AnnotationValue, TypeName: typeName})
		return typeName
	case *ast.Identifier:
		return a.annotateName(e)
	case *ast.MemberExpression:
		return a.annotateMember(e)
	case *ast.BinaryExpression:
		return a.annotateBinary(e)
	case *ast.UnaryExpression:
		return a.annotateUnary(e)
	case *ast.DerefExpression:
		return a.annotateDeref(e)
	case *ast.CallExpression:
		return a.annotateCall(e)
	case *ast.IndexExpression:
		return a.annotateIndex(e)
	case *ast.CastExpression:
		inner := a.annotateExpression(e.Expr, e.TypeName)
		if inner != "" && !strings.EqualFold(inner, e.TypeName) {
			a.amap.AnnotateHint(e.Expr, e.TypeName)
		}
		a.amap.Annotate(e, Annotation{Kind: AnnotationValue, TypeName: e.TypeName})
		return e.TypeName
	case *ast.ParenExpression:
		typeName := a.annotateExpression(e.Inner, hint)
		a.amap.Annotate(e, Annotation{Kind: AnnotationValue, TypeName: typeName})
		return typeName
	case *ast.RangeExpression:
		a.annotateExpression(e.Start, hint)
		a.annotateExpression(e.End, hint)
		a.amap.Annotate(e, Annotation{Kind: AnnotationValue, TypeName: hint})
		return hint
	case *ast.HardwareAccessExpression:
		return a.annotateHardwareAccess(e)
	case *ast.DirectAccessExpression:
		typeName := directAccessType(e.Width)
		a.annotateExpression(e.Index, typesys.DintType)
		a.amap.Annotate(e, Annotation{Kind: AnnotationValue, TypeName: typeName})
		return typeName
	case *ast.InitializerList:
		return a.annotateInitializerList(e, hint)
	case *ast.KeyValueExpression:
		typeName := a.annotateExpression(e.Value, hint)
		a.amap.Annotate(e, Annotation{Kind: AnnotationValue, TypeName: typeName})
		return typeName
	case *ast.MultipliedInitializer:
		a.annotateExpression(e.Count, typesys.DintType)
		typeName := a.annotateExpression(e.Element, hint)
		a.amap.Annotate(e, Annotation{Kind: AnnotationValue, TypeName: typeName})
		return typeName
	case *ast.ParamAssignment:
		// reached for parameter forms outside a resolvable call; the
		// resolved-call path annotates these in annotateArguments.
		if _, annotated := a.amap.Get(e.Name); !annotated {
			a.amap.Annotate(e.Name, Annotation{Kind: AnnotationValue, TypeName: typesys.VoidType})
		}
		typeName := a.annotateExpression(e.Value, hint)
		a.amap.Annotate(e, Annotation{Kind: AnnotationValue, TypeName: typeName})
		return typeName
	default:
		a.amap.Annotate(expr, Annotation{Kind: AnnotationValue, TypeName: typesys.VoidType})
		return typesys.VoidType
	}
}

// annotateIntegerLiteral picks the smallest signed type containing the
// value; the hint can force BOOL (for 0/1), an unsigned family member, or
// a wider type.
func (a *annotator) annotateIntegerLiteral(lit *ast.IntegerLiteral, hint string) string {
	typeName := smallestSignedType(lit.Value)

	if hint != "" {
		hintType := a.findEffectiveType(hint)
		if hintType != nil {
			if hintType.IsBool() && (lit.Value == 0 || lit.Value == 1) {
				typeName = typesys.BoolType
			} else if def, ok := hintType.Definition.(typesys.IntegerDef); ok {
				intrinsic := a.findEffectiveType(typeName)
				if intrinsic != nil {
					intrinsicDef := intrinsic.Definition.(typesys.IntegerDef)
					if !def.Signed || def.StorageBits > intrinsicDef.StorageBits {
						typeName = hintType.Name
					}
				}
			}
		}
	}

	a.amap.Annotate(lit, Annotation{Kind: AnnotationValue, TypeName: typeName})
	return typeName
}

func smallestSignedType(value int64) string {
	switch {
	case value >= -128 && value <= 127:
		return typesys.SintType
	case value >= -32768 && value <= 32767:
		return typesys.IntType
	case value >= -2147483648 && value <= 2147483647:
		return typesys.DintType
	default:
		return typesys.LintType
	}
}

// annotateStringLiteral records the literal for emission and registers
// the exact-length internal string type it requires.
func (a *annotator) annotateStringLiteral(lit *ast.StringLiteral, hint string) string {
	a.literals.add(lit.Value, lit.Wide)

	length := len([]rune(lit.Value))
	prefix := "STRING_"
	encoding := typesys.EncodingUtf8
	if lit.Wide {
		prefix = "WSTRING_"
		encoding = typesys.EncodingUtf16
	}
	typeName := typesys.InternalTypeName(prefix, fmt.Sprintf("%d", length))
	if a.findType(typeName) == nil {
		a.newIndex.RegisterType(&typesys.DataType{
			Name:       typeName,
			Definition: typesys.StringDef{Length: typesys.LiteralSize(int64(length)), Encoding: encoding},
			Nature:     typesys.NatureString,
		})
	}

	a.amap.Annotate(lit, Annotation{Kind: AnnotationValue, TypeName: typeName})
	return typeName
}

// annotateName resolves an identifier through the scope stack:
// POU-local, enclosing POU (actions and methods), global, enum elements,
// POUs, types. Unresolved names annotate as VOID.
func (a *annotator) annotateName(ident *ast.Identifier) string {
	name := ident.Value

	// Function return variable: `main := 5;` inside FUNCTION main.
	if a.currentPou != nil && strings.EqualFold(name, a.currentPou.Name) {
		if entry := a.findPou(a.currentPou.Name); entry != nil && entry.ReturnTypeName != "" {
			a.amap.Annotate(ident, Annotation{
				Kind:          AnnotationVariable,
				TypeName:      entry.ReturnTypeName,
				QualifiedName: entry.Name,
			})
			return entry.ReturnTypeName
		}
	}

	scopes := []string{}
	if a.scopeName != "" {
		scopes = append(scopes, a.scopeName)
	}
	if a.parentScope != "" {
		scopes = append(scopes, a.parentScope)
	}
	for _, scope := range scopes {
		if member := a.findMember(scope, name); member != nil {
			a.amap.Annotate(ident, Annotation{
				Kind:          AnnotationVariable,
				TypeName:      member.TypeName,
				QualifiedName: member.QualifiedName,
				Constant:      member.Constant,
			})
			return member.TypeName
		}
	}

	if global := a.idx.FindGlobal(name); global != nil {
		a.amap.Annotate(ident, Annotation{
			Kind:          AnnotationVariable,
			TypeName:      global.TypeName,
			QualifiedName: global.QualifiedName,
			Constant:      global.Constant,
		})
		return global.TypeName
	}

	if element := a.idx.FindEnumElement(name); element != nil {
		a.amap.Annotate(ident, Annotation{
			Kind:          AnnotationValue,
			TypeName:      element.EnumTypeName,
			QualifiedName: element.EnumTypeName + "." + element.Name,
			Constant:      true,
		})
		return element.EnumTypeName
	}

	if pou := a.findPou(name); pou != nil {
		if pou.Kind == ast.PouProgram {
			a.amap.Annotate(ident, Annotation{
				Kind:          AnnotationProgram,
				TypeName:      pou.InstanceStruct,
				QualifiedName: pou.Name,
			})
			return pou.InstanceStruct
		}
		a.amap.Annotate(ident, Annotation{
			Kind:          AnnotationFunction,
			TypeName:      pou.ReturnTypeName,
			QualifiedName: pou.Name,
			ReturnType:    pou.ReturnTypeName,
			CallName:      pou.Name,
		})
		return pou.ReturnTypeName
	}

	if t := a.findType(name); t != nil {
		a.amap.Annotate(ident, Annotation{Kind: AnnotationType, TypeName: t.Name})
		return t.Name
	}

	a.errorf(diagnostic.UnresolvedReference, ident, "unresolved reference %q", name)
	a.amap.Annotate(ident, Annotation{Kind: AnnotationValue, TypeName: typesys.VoidType})
	return typesys.VoidType
}

// annotateMember resolves a.b: struct members, FB instance variables,
// qualified enum elements, actions, and partial accesses.
func (a *annotator) annotateMember(member *ast.MemberExpression) string {
	baseType := a.annotateExpression(member.Base, "")

	// Partial access a.%X1: result depends only on the accessor width.
	if direct, ok := member.Member.(*ast.DirectAccessExpression); ok {
		typeName := a.annotateExpression(direct, "")
		a.amap.Annotate(member, Annotation{Kind: AnnotationValue, TypeName: typeName})
		return typeName
	}

	memberIdent, ok := member.Member.(*ast.Identifier)
	if !ok {
		a.amap.Annotate(member, Annotation{Kind: AnnotationValue, TypeName: typesys.VoidType})
		return typesys.VoidType
	}

	// Qualified enum element: Color.red.
	if baseAnn, ok := a.amap.Get(member.Base); ok && baseAnn.Kind == AnnotationType {
		if element := a.idx.FindEnumElement(memberIdent.Value); element != nil &&
			strings.EqualFold(element.EnumTypeName, baseAnn.TypeName) {
			annotation := Annotation{
				Kind:          AnnotationValue,
				TypeName:      element.EnumTypeName,
				QualifiedName: element.EnumTypeName + "." + element.Name,
				Constant:      true,
			}
			a.amap.Annotate(memberIdent, annotation)
			a.amap.Annotate(member, annotation)
			return element.EnumTypeName
		}
	}

	effective := a.findEffectiveType(baseType)
	if effective == nil {
		a.errorf(diagnostic.UnresolvedReference, member, "cannot resolve member %q on unknown type %q",
			memberIdent.Value, baseType)
		a.amap.Annotate(memberIdent, Annotation{Kind: AnnotationValue, TypeName: typesys.VoidType})
		a.amap.Annotate(member, Annotation{Kind: AnnotationValue, TypeName: typesys.VoidType})
		return typesys.VoidType
	}

	// Auto-deref pointers load implicitly before member access.
	if def, ok := effective.Definition.(typesys.PointerDef); ok && def.AutoDeref {
		effective = a.findEffectiveType(def.InnerTypeName)
		if effective == nil {
			a.amap.Annotate(member, Annotation{Kind: AnnotationValue, TypeName: typesys.VoidType})
			return typesys.VoidType
		}
	}

	container := effective.Name
	if structDef, ok := effective.Definition.(typesys.StructDef); ok {
		container = structDef.ContainerName
	}

	if entry := a.findMember(container, memberIdent.Value); entry != nil {
		annotation := Annotation{
			Kind:          AnnotationVariable,
			TypeName:      entry.TypeName,
			QualifiedName: entry.QualifiedName,
			Constant:      entry.Constant,
		}
		a.amap.Annotate(memberIdent, annotation)
		a.amap.Annotate(member, annotation)
		return entry.TypeName
	}

	// Action of the container: prog.myAction.
	if pou := a.findPou(container + "." + memberIdent.Value); pou != nil {
		annotation := Annotation{
			Kind:          AnnotationFunction,
			TypeName:      pou.ReturnTypeName,
			QualifiedName: pou.Name,
			ReturnType:    pou.ReturnTypeName,
			CallName:      pou.Name,
		}
		a.amap.Annotate(memberIdent, annotation)
		a.amap.Annotate(member, annotation)
		return pou.ReturnTypeName
	}

	a.errorf(diagnostic.UnresolvedReference, member, "%q has no member %q", effective.Name, memberIdent.Value)
	a.amap.Annotate(memberIdent, Annotation{Kind: AnnotationValue, TypeName: typesys.VoidType})
	a.amap.Annotate(member, Annotation{Kind: AnnotationValue, TypeName: typesys.VoidType})
	return typesys.VoidType
}

// annotateBinary computes the common type of both operands, sets it as a
// hint on operands that need converting, and derives the result type from
// the operator.
func (a *annotator) annotateBinary(binary *ast.BinaryExpression) string {
	leftName := a.annotateExpression(binary.Left, "")
	rightName := a.annotateExpression(binary.Right, "")

	left := a.findEffectiveType(leftName)
	right := a.findEffectiveType(rightName)

	resultName := leftName
	if left != nil && right != nil {
		// Enums promote through their underlying integer type first.
		left = a.enumUnderlying(left)
		right = a.enumUnderlying(right)

		switch {
		case left.IsPointer() || right.IsPointer():
			resultName = a.annotatePointerArithmetic(binary, left, right)
		default:
			bigger := typesys.GetBiggerType(left, right, a.lookup())
			resultName = bigger.Name
			if !strings.EqualFold(left.Name, bigger.Name) {
				a.amap.AnnotateHint(binary.Left, bigger.Name)
			}
			if !strings.EqualFold(right.Name, bigger.Name) {
				a.amap.AnnotateHint(binary.Right, bigger.Name)
			}
		}
	}

	if binary.Operator.IsComparison() {
		resultName = typesys.BoolType
	}
	a.amap.Annotate(binary, Annotation{Kind: AnnotationValue, TypeName: resultName})
	return resultName
}

func (a *annotator) enumUnderlying(dt *typesys.DataType) *typesys.DataType {
	if def, ok := dt.Definition.(typesys.EnumDef); ok {
		if underlying := a.findEffectiveType(def.UnderlyingTypeName); underlying != nil {
			return underlying
		}
	}
	return dt
}

// annotatePointerArithmetic types ptr +/- int and pointer comparisons;
// anything else is reported by validation against the same annotation.
func (a *annotator) annotatePointerArithmetic(binary *ast.BinaryExpression, left, right *typesys.DataType) string {
	if left.IsPointer() && right.IsPointer() {
		return left.Name
	}
	if left.IsPointer() {
		return left.Name
	}
	return right.Name
}

func (a *annotator) annotateUnary(unary *ast.UnaryExpression) string {
	switch unary.Operator {
	case ast.OpAddress:
		// &ptr^ folds to ptr.
		if deref, ok := unary.Operand.(*ast.DerefExpression); ok {
			typeName := a.annotateExpression(deref.Base, "")
			a.annotateExpression(deref, "")
			a.amap.Annotate(unary, Annotation{Kind: AnnotationValue, TypeName: typeName})
			return typeName
		}
		innerName := a.annotateExpression(unary.Operand, "")
		pointerName := a.registerPointerType(innerName)
		a.amap.Annotate(unary, Annotation{Kind: AnnotationValue, TypeName: pointerName})
		return pointerName
	case ast.OpMinus:
		operandName := a.annotateExpression(unary.Operand, "")
		if operand := a.findEffectiveType(operandName); operand != nil {
			signed := typesys.GetSignedType(operand, a.lookup())
			a.amap.Annotate(unary, Annotation{Kind: AnnotationValue, TypeName: signed.Name})
			return signed.Name
		}
		a.amap.Annotate(unary, Annotation{Kind: AnnotationValue, TypeName: operandName})
		return operandName
	default: // NOT
		operandName := a.annotateExpression(unary.Operand, typesys.BoolType)
		a.amap.Annotate(unary, Annotation{Kind: AnnotationValue, TypeName: operandName})
		return operandName
	}
}

// registerPointerType registers (once) and names the pointer type for
// &x / REF() results.
func (a *annotator) registerPointerType(inner string) string {
	name := typesys.InternalTypeName("POINTER_TO_", inner)
	if a.findType(name) == nil {
		a.newIndex.RegisterType(&typesys.DataType{
			Name:       name,
			Definition: typesys.PointerDef{InnerTypeName: inner},
			Nature:     typesys.NatureAny,
		})
	}
	return name
}

func (a *annotator) annotateDeref(deref *ast.DerefExpression) string {
	baseName := a.annotateExpression(deref.Base, "")
	if base := a.findEffectiveType(baseName); base != nil {
		if def, ok := base.Definition.(typesys.PointerDef); ok {
			a.amap.Annotate(deref, Annotation{Kind: AnnotationValue, TypeName: def.InnerTypeName})
			return def.InnerTypeName
		}
	}
	a.errorf(diagnostic.IncompatibleType, deref, "cannot dereference non-pointer type %q", baseName)
	a.amap.Annotate(deref, Annotation{Kind: AnnotationValue, TypeName: typesys.VoidType})
	return typesys.VoidType
}

// annotateIndex types an array access. Multi-index a[i, j] and chained
// a[i][j] produce equivalent annotations: an access that does not consume
// all dimensions keeps the array type.
func (a *annotator) annotateIndex(indexExpr *ast.IndexExpression) string {
	baseName := a.annotateExpression(indexExpr.Base, "")
	for _, idxExpr := range indexExpr.Indices {
		a.annotateExpression(idxExpr, typesys.DintType)
	}

	base := a.findEffectiveType(baseName)
	if base == nil {
		a.amap.Annotate(indexExpr, Annotation{Kind: AnnotationValue, TypeName: typesys.VoidType})
		return typesys.VoidType
	}
	def, ok := base.Definition.(typesys.ArrayDef)
	if !ok {
		// Not an array; validation reports IncompatibleArrayAccessVariable.
		a.amap.Annotate(indexExpr, Annotation{Kind: AnnotationValue, TypeName: base.Name})
		return base.Name
	}

	// A chained access a[i][j] continues an inner partial access of the
	// same array; count the dimensions the inner accesses already consumed.
	consumed := len(indexExpr.Indices)
	for inner, ok := indexExpr.Base.(*ast.IndexExpression); ok; inner, ok = inner.Base.(*ast.IndexExpression) {
		innerBase := a.findEffectiveType(a.amap.TypeName(inner.Base))
		if innerBase == nil || innerBase.Name != base.Name {
			break
		}
		consumed += len(inner.Indices)
	}

	resultName := def.InnerTypeName
	if consumed < len(def.Dimensions) {
		resultName = base.Name
	}
	a.amap.Annotate(indexExpr, Annotation{Kind: AnnotationValue, TypeName: resultName})
	return resultName
}

// directAccessType maps an accessor width to its result type.
func directAccessType(width ast.DirectAccessWidth) string {
	switch width {
	case ast.AccessBit:
		return typesys.BoolType
	case ast.AccessByte:
		return typesys.ByteType
	case ast.AccessWord:
		return typesys.WordType
	case ast.AccessDWord:
		return typesys.DwordType
	default:
		return typesys.LwordType
	}
}

// annotateHardwareAccess types %IX1.0 by its size letter.
func (a *annotator) annotateHardwareAccess(hw *ast.HardwareAccessExpression) string {
	typeName := typesys.BoolType
	if len(hw.Address) >= 2 {
		switch hw.Address[1] &^ 0x20 {
		case 'X':
			typeName = typesys.BoolType
		case 'B':
			typeName = typesys.ByteType
		case 'W':
			typeName = typesys.WordType
		case 'D':
			typeName = typesys.DwordType
		case 'L':
			typeName = typesys.LwordType
		}
	}
	a.amap.Annotate(hw, Annotation{Kind: AnnotationValue, TypeName: typeName})
	return typeName
}

// annotateInitializerList annotates aggregate initializers, propagating
// element and field types from the hinted aggregate type.
func (a *annotator) annotateInitializerList(list *ast.InitializerList, hint string) string {
	hintType := a.findEffectiveType(hint)

	elementHint := ""
	if hintType != nil {
		if def, ok := hintType.Definition.(typesys.ArrayDef); ok {
			elementHint = def.InnerTypeName
		}
	}

	for _, element := range list.Elements {
		switch el := element.(type) {
		case *ast.KeyValueExpression:
			fieldHint := ""
			if hintType != nil {
				if structDef, ok := hintType.Definition.(typesys.StructDef); ok {
					if field := a.findMember(structDef.ContainerName, el.Key.Value); field != nil {
						fieldHint = field.TypeName
						a.amap.Annotate(el.Key, Annotation{
							Kind:          AnnotationVariable,
							TypeName:      field.TypeName,
							QualifiedName: field.QualifiedName,
						})
					}
				}
			}
			if _, annotated := a.amap.Get(el.Key); !annotated {
				a.amap.Annotate(el.Key, Annotation{Kind: AnnotationValue, TypeName: typesys.VoidType})
			}
			a.annotateExpression(el, fieldHint)
		default:
			a.annotateExpression(element, elementHint)
		}
	}

	typeName := hint
	if typeName == "" {
		typeName = typesys.VoidType
	}
	a.amap.Annotate(list, Annotation{Kind: AnnotationValue, TypeName: typeName})
	return typeName
}
