package internal

import (
	"strconv"
)

// Binary operators and their priority, a higher priority binds tighter.
var binaryOpTokenMap = map[TokenType]struct {
	op       Operator
	priority int
}{
	OrOrTP:         {OpOr, 1},
	AndAndTP:       {OpAnd, 2},
	EqualEqualTP:   {OpEqual, 3},
	NotEqualTP:     {OpNotEqual, 3},
	LessTP:         {OpLess, 4},
	GreaterTP:      {OpGreater, 4},
	LessEqualTP:    {OpLessEqual, 4},
	GreaterEqualTP: {OpGreaterEqual, 4},
	AddTP:          {OpAdd, 5},
	MinusTP:        {OpSub, 5},
	MultiplyTP:     {OpMul, 6},
	DivideTP:       {OpDiv, 6},
	ModTP:          {OpMod, 6},
}

type opToken struct {
	op       Operator
	priority int
}

// buildExpressionsTree folds terms and the operators between them into a left associative tree.
func buildExpressionsTree(ops []opToken, exprTerms []Expr) Expr {
	ret, _ := buildExpressionsTree0(ops, exprTerms, 0, 0)
	return ret
}

func buildExpressionsTree0(ops []opToken, exprTerms []Expr, loc int, minPriority int) (Expr, int) {
	lhs := exprTerms[loc]
	i := loc
	for i < len(ops) && ops[i].priority >= minPriority {
		op := ops[i]
		rhs := exprTerms[i+1]
		j := i + 1
		for j < len(ops) && ops[j].priority > op.priority {
			rhs, j = buildExpressionsTree0(ops, exprTerms, j, ops[j].priority)
		}
		lhs = &BinaryOp{Pos: lhs.Position(), Op: op.op, Left: lhs, Right: rhs}
		exprTerms[j] = lhs
		i = j
	}
	return lhs, i
}

func (parser *Parser) parseExpression() (Expr, error) {
	leftExprTerm, err := parser.parseExpressionTerm()
	if err != nil {
		return nil, err
	}
	var ops []opToken
	exprTerms := []Expr{leftExprTerm}
	for parser.hasRemainTokens() {
		token, _ := parser.getCurrentToken()
		binaryOp, isOp := binaryOpTokenMap[token.tp]
		if !isOp {
			break
		}
		parser.stepForward()
		exprTerm, err := parser.parseExpressionTerm()
		if err != nil {
			return nil, err
		}
		ops = append(ops, opToken{op: binaryOp.op, priority: binaryOp.priority})
		exprTerms = append(exprTerms, exprTerm)
	}
	return buildExpressionsTree(ops, exprTerms), nil
}

func (parser *Parser) parseExpressionTerm() (Expr, error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	switch token.tp {
	case IntegerTP:
		value, err := strconv.ParseInt(token.content, 10, 64)
		if err != nil {
			return nil, parser.makeError(true, "integer out of range")
		}
		parser.stepForward()
		return &IntegerLiteral{Pos: token.Pos(), Value: value}, nil
	case TrueTP, FalseTP:
		parser.stepForward()
		return &BooleanLiteral{Pos: token.Pos(), Value: token.tp == TrueTP}, nil
	// When it's identifier, it can be a function call or a variable.
	case IdentifierTP:
		if next := parser.peekToken(1); next != nil && next.tp == LeftParentThesesTP {
			return parser.parseFuncCall()
		}
		parser.stepForward()
		return &Identifier{Pos: token.Pos(), Name: token.content}, nil
	case LeftParentThesesTP:
		parser.stepForward()
		inner, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		if !parser.expectTokens(RightParentThesesTP) {
			return nil, parser.makeError(true, "expect )")
		}
		return &ParenBlock{Pos: token.Pos(), Inner: inner}, nil
	// An unary operation binds tighter than any binary one.
	case MinusTP, NotTP:
		parser.stepForward()
		operand, err := parser.parseExpressionTerm()
		if err != nil {
			return nil, err
		}
		op := OpNeg
		if token.tp == NotTP {
			op = OpNot
		}
		return &UnaryOp{Pos: token.Pos(), Op: op, Operand: operand}, nil
	}
	return nil, parser.makeError(true, "expect an expression")
}

// name ( [expression [, expression]*] )
func (parser *Parser) parseFuncCall() (Expr, error) {
	nameToken, _ := parser.expectToken(IdentifierTP, true)
	leftToken, _ := parser.expectToken(LeftParentThesesTP, true)
	args := &ArgumentList{Pos: leftToken.Pos()}
	if _, match := parser.expectToken(RightParentThesesTP, true); match {
		return &FunctionCall{Pos: nameToken.Pos(), Name: nameToken.content, Args: args}, nil
	}
	for {
		arg, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		args.Args = append(args.Args, arg)
		if _, match := parser.expectToken(CommaTP, true); !match {
			break
		}
	}
	if !parser.expectTokens(RightParentThesesTP) {
		return nil, parser.makeError(true, "expect )")
	}
	return &FunctionCall{Pos: nameToken.Pos(), Name: nameToken.content, Args: args}, nil
}
