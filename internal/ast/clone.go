package ast

// ClonePOU deep-copies a POU, assigning fresh node ids from the provider.
// Used by generic instantiation, which clones the generic declaration
// before substituting its type parameters.
func ClonePOU(p *POU, ids IdProvider) *POU {
	clone := &POU{
		NodeBase:      NewNodeBase(ids.Next(), p.Location),
		Kind:          p.Kind,
		Name:          p.Name,
		ParentName:    p.ParentName,
		ReturnType:    CloneTypeDecl(p.ReturnType, ids),
		Linkage:       p.Linkage,
		SuperClass:    p.SuperClass,
		GenericInstOf: p.GenericInstOf,
	}
	clone.Generics = append(clone.Generics, p.Generics...)
	for _, b := range p.Blocks {
		clone.Blocks = append(clone.Blocks, cloneBlock(b, ids))
	}
	for _, s := range p.Body {
		clone.Body = append(clone.Body, CloneStatement(s, ids))
	}
	return clone
}

func cloneBlock(b *VariableBlock, ids IdProvider) *VariableBlock {
	clone := &VariableBlock{
		NodeBase: NewNodeBase(ids.Next(), b.Location),
		Kind:     b.Kind,
		Constant: b.Constant,
		Retain:   b.Retain,
		RefInput: b.RefInput,
	}
	for _, v := range b.Variables {
		clone.Variables = append(clone.Variables, &Variable{
			NodeBase:    NewNodeBase(ids.Next(), v.Location),
			Name:        v.Name,
			Type:        CloneTypeDecl(v.Type, ids),
			Initializer: CloneExpression(v.Initializer, ids),
			Address:     v.Address,
		})
	}
	return clone
}

// CloneTypeDecl deep-copies a declaration-side type. Returns nil for nil.
func CloneTypeDecl(t TypeDecl, ids IdProvider) TypeDecl {
	switch t := t.(type) {
	case nil:
		return nil
	case *TypeReference:
		return &TypeReference{NodeBase: NewNodeBase(ids.Next(), t.Location), Name: t.Name}
	case *ArrayTypeDecl:
		clone := &ArrayTypeDecl{
			NodeBase: NewNodeBase(ids.Next(), t.Location),
			Element:  CloneTypeDecl(t.Element, ids),
		}
		for _, d := range t.Dimensions {
			dim := Dimension{Star: d.Star}
			if d.Range != nil {
				dim.Range = cloneRange(d.Range, ids)
			}
			clone.Dimensions = append(clone.Dimensions, dim)
		}
		return clone
	case *PointerTypeDecl:
		return &PointerTypeDecl{
			NodeBase:   NewNodeBase(ids.Next(), t.Location),
			Referenced: CloneTypeDecl(t.Referenced, ids),
			AutoDeref:  t.AutoDeref,
		}
	case *StructTypeDecl:
		clone := &StructTypeDecl{NodeBase: NewNodeBase(ids.Next(), t.Location)}
		for _, m := range t.Members {
			clone.Members = append(clone.Members, &Variable{
				NodeBase:    NewNodeBase(ids.Next(), m.Location),
				Name:        m.Name,
				Type:        CloneTypeDecl(m.Type, ids),
				Initializer: CloneExpression(m.Initializer, ids),
			})
		}
		return clone
	case *EnumTypeDecl:
		clone := &EnumTypeDecl{NodeBase: NewNodeBase(ids.Next(), t.Location)}
		for _, e := range t.Elements {
			clone.Elements = append(clone.Elements, &Identifier{
				NodeBase: NewNodeBase(ids.Next(), e.Location),
				Value:    e.Value,
			})
		}
		return clone
	case *SubRangeTypeDecl:
		return &SubRangeTypeDecl{
			NodeBase: NewNodeBase(ids.Next(), t.Location),
			BaseName: t.BaseName,
			Bounds:   cloneRange(t.Bounds, ids),
		}
	case *StringTypeDecl:
		return &StringTypeDecl{
			NodeBase: NewNodeBase(ids.Next(), t.Location),
			Wide:     t.Wide,
			Length:   CloneExpression(t.Length, ids),
		}
	default:
		return t
	}
}

func cloneRange(r *RangeExpression, ids IdProvider) *RangeExpression {
	if r == nil {
		return nil
	}
	return &RangeExpression{
		NodeBase: NewNodeBase(ids.Next(), r.Location),
		Start:    CloneExpression(r.Start, ids),
		End:      CloneExpression(r.End, ids),
	}
}

// CloneExpression deep-copies an expression. Returns nil for nil.
func CloneExpression(e Expression, ids IdProvider) Expression {
	switch e := e.(type) {
	case nil:
		return nil
	case *Identifier:
		return &Identifier{NodeBase: NewNodeBase(ids.Next(), e.Location), Value: e.Value}
	case *IntegerLiteral:
		return &IntegerLiteral{NodeBase: NewNodeBase(ids.Next(), e.Location), Value: e.Value}
	case *RealLiteral:
		return &RealLiteral{NodeBase: NewNodeBase(ids.Next(), e.Location), Value: e.Value}
	case *BoolLiteral:
		return &BoolLiteral{NodeBase: NewNodeBase(ids.Next(), e.Location), Value: e.Value}
	case *StringLiteral:
		return &StringLiteral{NodeBase: NewNodeBase(ids.Next(), e.Location), Value: e.Value, Wide: e.Wide}
	case *TimeLiteral:
		return &TimeLiteral{NodeBase: NewNodeBase(ids.Next(), e.Location), Nanos: e.Nanos, Long: e.Long}
	case *DateLiteral:
		return &DateLiteral{NodeBase: NewNodeBase(ids.Next(), e.Location), Year: e.Year, Month: e.Month, Day: e.Day, Long: e.Long}
	case *TimeOfDayLiteral:
		return &TimeOfDayLiteral{NodeBase: NewNodeBase(ids.Next(), e.Location), Hour: e.Hour, Minute: e.Minute, Second: e.Second, Nanos: e.Nanos, Long: e.Long}
	case *DateAndTimeLiteral:
		clone := *e
		clone.NodeBase = NewNodeBase(ids.Next(), e.Location)
		return &clone
	case *NullLiteral:
		return &NullLiteral{NodeBase: NewNodeBase(ids.Next(), e.Location)}
	case *MemberExpression:
		return &MemberExpression{
			NodeBase: NewNodeBase(ids.Next(), e.Location),
			Base:     CloneExpression(e.Base, ids),
			Member:   CloneExpression(e.Member, ids),
		}
	case *BinaryExpression:
		return &BinaryExpression{
			NodeBase: NewNodeBase(ids.Next(), e.Location),
			Operator: e.Operator,
			Left:     CloneExpression(e.Left, ids),
			Right:    CloneExpression(e.Right, ids),
		}
	case *UnaryExpression:
		return &UnaryExpression{
			NodeBase: NewNodeBase(ids.Next(), e.Location),
			Operator: e.Operator,
			Operand:  CloneExpression(e.Operand, ids),
		}
	case *DerefExpression:
		return &DerefExpression{NodeBase: NewNodeBase(ids.Next(), e.Location), Base: CloneExpression(e.Base, ids)}
	case *CallExpression:
		clone := &CallExpression{
			NodeBase: NewNodeBase(ids.Next(), e.Location),
			Callee:   CloneExpression(e.Callee, ids),
		}
		for _, a := range e.Arguments {
			clone.Arguments = append(clone.Arguments, CloneExpression(a, ids))
		}
		return clone
	case *ParamAssignment:
		return &ParamAssignment{
			NodeBase: NewNodeBase(ids.Next(), e.Location),
			Name:     CloneExpression(e.Name, ids).(*Identifier),
			Value:    CloneExpression(e.Value, ids),
			Output:   e.Output,
		}
	case *IndexExpression:
		clone := &IndexExpression{
			NodeBase: NewNodeBase(ids.Next(), e.Location),
			Base:     CloneExpression(e.Base, ids),
		}
		for _, i := range e.Indices {
			clone.Indices = append(clone.Indices, CloneExpression(i, ids))
		}
		return clone
	case *CastExpression:
		return &CastExpression{
			NodeBase: NewNodeBase(ids.Next(), e.Location),
			TypeName: e.TypeName,
			Expr:     CloneExpression(e.Expr, ids),
		}
	case *RangeExpression:
		return cloneRange(e, ids)
	case *DirectAccessExpression:
		return &DirectAccessExpression{
			NodeBase: NewNodeBase(ids.Next(), e.Location),
			Width:    e.Width,
			Index:    CloneExpression(e.Index, ids),
		}
	case *HardwareAccessExpression:
		return &HardwareAccessExpression{NodeBase: NewNodeBase(ids.Next(), e.Location), Address: e.Address}
	case *ParenExpression:
		return &ParenExpression{NodeBase: NewNodeBase(ids.Next(), e.Location), Inner: CloneExpression(e.Inner, ids)}
	case *InitializerList:
		clone := &InitializerList{NodeBase: NewNodeBase(ids.Next(), e.Location)}
		for _, el := range e.Elements {
			clone.Elements = append(clone.Elements, CloneExpression(el, ids))
		}
		return clone
	case *KeyValueExpression:
		return &KeyValueExpression{
			NodeBase: NewNodeBase(ids.Next(), e.Location),
			Key:      CloneExpression(e.Key, ids).(*Identifier),
			Value:    CloneExpression(e.Value, ids),
		}
	case *MultipliedInitializer:
		return &MultipliedInitializer{
			NodeBase: NewNodeBase(ids.Next(), e.Location),
			Count:    CloneExpression(e.Count, ids),
			Element:  CloneExpression(e.Element, ids),
		}
	default:
		return &EmptyExpression{NodeBase: NewNodeBase(ids.Next(), e.Pos())}
	}
}

// CloneStatement deep-copies a statement.
func CloneStatement(s Statement, ids IdProvider) Statement {
	switch s := s.(type) {
	case *AssignmentStatement:
		return &AssignmentStatement{
			NodeBase: NewNodeBase(ids.Next(), s.Location),
			Target:   CloneExpression(s.Target, ids),
			Value:    CloneExpression(s.Value, ids),
		}
	case *ExpressionStatement:
		return &ExpressionStatement{NodeBase: NewNodeBase(ids.Next(), s.Location), Expr: CloneExpression(s.Expr, ids)}
	case *IfStatement:
		clone := &IfStatement{
			NodeBase:  NewNodeBase(ids.Next(), s.Location),
			Condition: CloneExpression(s.Condition, ids),
			Then:      cloneStatements(s.Then, ids),
		}
		for _, e := range s.Elsifs {
			clone.Elsifs = append(clone.Elsifs, ElsifBranch{
				Condition: CloneExpression(e.Condition, ids),
				Body:      cloneStatements(e.Body, ids),
			})
		}
		if s.Else != nil {
			clone.Else = cloneStatements(s.Else, ids)
		}
		return clone
	case *CaseStatement:
		clone := &CaseStatement{
			NodeBase: NewNodeBase(ids.Next(), s.Location),
			Selector: CloneExpression(s.Selector, ids),
		}
		for _, br := range s.Branches {
			branch := CaseBranch{Body: cloneStatements(br.Body, ids)}
			for _, l := range br.Labels {
				branch.Labels = append(branch.Labels, CloneExpression(l, ids))
			}
			clone.Branches = append(clone.Branches, branch)
		}
		if s.Else != nil {
			clone.Else = cloneStatements(s.Else, ids)
		}
		return clone
	case *ForStatement:
		return &ForStatement{
			NodeBase: NewNodeBase(ids.Next(), s.Location),
			Counter:  CloneExpression(s.Counter, ids),
			Start:    CloneExpression(s.Start, ids),
			End:      CloneExpression(s.End, ids),
			By:       CloneExpression(s.By, ids),
			Body:     cloneStatements(s.Body, ids),
		}
	case *WhileStatement:
		return &WhileStatement{
			NodeBase:  NewNodeBase(ids.Next(), s.Location),
			Condition: CloneExpression(s.Condition, ids),
			Body:      cloneStatements(s.Body, ids),
		}
	case *RepeatStatement:
		return &RepeatStatement{
			NodeBase:  NewNodeBase(ids.Next(), s.Location),
			Body:      cloneStatements(s.Body, ids),
			Condition: CloneExpression(s.Condition, ids),
		}
	case *ReturnStatement:
		return &ReturnStatement{NodeBase: NewNodeBase(ids.Next(), s.Location)}
	case *ExitStatement:
		return &ExitStatement{NodeBase: NewNodeBase(ids.Next(), s.Location)}
	case *ContinueStatement:
		return &ContinueStatement{NodeBase: NewNodeBase(ids.Next(), s.Location)}
	default:
		return &EmptyStatement{NodeBase: NewNodeBase(ids.Next(), s.Pos())}
	}
}

func cloneStatements(stmts []Statement, ids IdProvider) []Statement {
	out := make([]Statement, len(stmts))
	for i, s := range stmts {
		out[i] = CloneStatement(s, ids)
	}
	return out
}
