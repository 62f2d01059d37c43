package internal

import (
	"io"
)

// A recursive descent parser for trac42:
//
// Program := Decl*
// Decl     := (int|bool|void) ID '(' Params? ')' '{' Stmt* '}'
// Params   := Type ID (',' Type ID)*
// Stmt     := '{' Stmt* '}' | Type ID ';' | ID '=' Expr ';' | Expr ';' | return Expr? ';'
//           | if '(' Expr ')' Stmt (else Stmt)? | while '(' Expr ')' Stmt
// Type     := int | bool

type Parser struct {
	currentTokenPos int
	currentTokens   []*Token
}

// ParseProgram tokenizes and parses a whole source file.
func ParseProgram(rd io.Reader) (*Program, error) {
	tokenizer := &Tokenizer{}
	tokens, err := tokenizer.Tokenize(rd)
	if err != nil {
		return nil, err
	}
	parser := &Parser{currentTokens: tokens}
	return parser.parseProgram()
}

func (parser *Parser) reset() {
	parser.currentTokenPos, parser.currentTokens = 0, nil
}

func (parser *Parser) parseProgram() (*Program, error) {
	prog := &Program{}
	for parser.hasRemainTokens() {
		fn, err := parser.parseFunctionDeclaration()
		if err != nil {
			return nil, err
		}
		prog.Funcs = append(prog.Funcs, fn)
	}
	return prog, nil
}

// (int|bool|void) name ( params ) { statements }
func (parser *Parser) parseFunctionDeclaration() (*FunctionDecl, error) {
	typeToken, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	retTP, err := parser.parseType(true)
	if err != nil {
		return nil, err
	}
	nameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(true, "expect function name")
	}
	params, err := parser.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := parser.parseBlock()
	if err != nil {
		return nil, err
	}
	return &FunctionDecl{
		Pos:        typeToken.Pos(),
		Name:       nameToken.content,
		ReturnType: retTP,
		Params:     params,
		Body:       body,
	}, nil
}

func (parser *Parser) parseType(allowVoid bool) (Type, error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return 0, err
	}
	switch {
	case token.tp == IntTP:
		parser.stepForward()
		return TypeInt, nil
	case token.tp == BoolTP:
		parser.stepForward()
		return TypeBool, nil
	case token.tp == VoidTP && allowVoid:
		parser.stepForward()
		return TypeVoid, nil
	}
	return 0, parser.makeError(true, "expect a type")
}

// ( [type name [, type name]*] )
func (parser *Parser) parseParamList() (*ParameterList, error) {
	leftToken, match := parser.expectToken(LeftParentThesesTP, true)
	if !match {
		return nil, parser.makeError(true, "expect (")
	}
	params := &ParameterList{Pos: leftToken.Pos()}
	if _, match = parser.expectToken(RightParentThesesTP, true); match {
		return params, nil
	}
	for {
		typeToken, err := parser.getCurrentToken()
		if err != nil {
			return nil, err
		}
		paramTP, err := parser.parseType(false)
		if err != nil {
			return nil, err
		}
		nameToken, match := parser.expectToken(IdentifierTP, true)
		if !match {
			return nil, parser.makeError(true, "expect parameter name")
		}
		params.Params = append(params.Params, &Param{Pos: typeToken.Pos(), Type: paramTP, Name: nameToken.content})
		if _, match = parser.expectToken(CommaTP, true); !match {
			break
		}
	}
	if _, match = parser.expectToken(RightParentThesesTP, true); !match {
		return nil, parser.makeError(true, "expect )")
	}
	return params, nil
}

// { statements }
func (parser *Parser) parseBlock() (*Block, error) {
	leftToken, match := parser.expectToken(LeftBraceTP, true)
	if !match {
		return nil, parser.makeError(true, "expect {")
	}
	var stmts []Stmt
	for {
		if _, match = parser.expectToken(RightBraceTP, true); match {
			break
		}
		if !parser.hasRemainTokens() {
			return nil, parser.makeError(false, "expect }")
		}
		stmt, err := parser.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return &Block{Pos: leftToken.Pos(), Body: Seq(leftToken.Pos(), stmts...)}, nil
}

func (parser *Parser) parseStatement() (Stmt, error) {
	token, err := parser.getCurrentToken()
	if err != nil {
		return nil, err
	}
	switch token.tp {
	case LeftBraceTP:
		return parser.parseBlock()
	case IntTP, BoolTP:
		return parser.parseVarDeclareStatement()
	case ReturnTP:
		return parser.parseReturnStatement()
	case IfTP:
		return parser.parseIfStatement()
	case WhileTP:
		return parser.parseWhileStatement()
	case IdentifierTP:
		if next := parser.peekToken(1); next != nil && next.tp == AssignTP {
			return parser.parseAssignStatement()
		}
	}
	return parser.parseExpressionStatement()
}

// type name ;
func (parser *Parser) parseVarDeclareStatement() (Stmt, error) {
	typeToken, _ := parser.getCurrentToken()
	varTP, err := parser.parseType(false)
	if err != nil {
		return nil, err
	}
	nameToken, match := parser.expectToken(IdentifierTP, true)
	if !match {
		return nil, parser.makeError(true, "expect variable name")
	}
	if !parser.expectTokens(SemiColonTP) {
		return nil, parser.makeError(true, "expect ;")
	}
	return &VarDecl{Pos: typeToken.Pos(), Type: varTP, Name: nameToken.content, Origin: nameToken.content}, nil
}

// name = expression ;
func (parser *Parser) parseAssignStatement() (Stmt, error) {
	nameToken, _ := parser.expectToken(IdentifierTP, true)
	parser.stepForward()
	value, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	if !parser.expectTokens(SemiColonTP) {
		return nil, parser.makeError(true, "expect ;")
	}
	return &Assignment{Pos: nameToken.Pos(), Name: nameToken.content, Value: value}, nil
}

// expression ;
func (parser *Parser) parseExpressionStatement() (Stmt, error) {
	expr, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, match := parser.expectToken(AssignTP, false); match {
		return nil, parser.makeError(true, "only a variable can be assigned")
	}
	if !parser.expectTokens(SemiColonTP) {
		return nil, parser.makeError(true, "expect ;")
	}
	return &ExpressionStatement{Pos: expr.Position(), X: expr}, nil
}

// return [expression] ;
func (parser *Parser) parseReturnStatement() (Stmt, error) {
	returnToken, _ := parser.expectToken(ReturnTP, true)
	stmt := &Return{Pos: returnToken.Pos()}
	if _, match := parser.expectToken(SemiColonTP, true); match {
		return stmt, nil
	}
	value, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	if !parser.expectTokens(SemiColonTP) {
		return nil, parser.makeError(true, "expect ;")
	}
	stmt.Value = value
	return stmt, nil
}

// if ( expression ) statement [else statement]
func (parser *Parser) parseIfStatement() (Stmt, error) {
	ifToken, _ := parser.expectToken(IfTP, true)
	cond, err := parser.parseCondition()
	if err != nil {
		return nil, err
	}
	then, err := parser.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &If{Pos: ifToken.Pos(), Cond: cond, Then: then}
	if _, match := parser.expectToken(ElseTP, true); match {
		if stmt.Else, err = parser.parseStatement(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// while ( expression ) statement
func (parser *Parser) parseWhileStatement() (Stmt, error) {
	whileToken, _ := parser.expectToken(WhileTP, true)
	cond, err := parser.parseCondition()
	if err != nil {
		return nil, err
	}
	body, err := parser.parseStatement()
	if err != nil {
		return nil, err
	}
	return &While{Pos: whileToken.Pos(), Cond: cond, Body: body}, nil
}

func (parser *Parser) parseCondition() (Expr, error) {
	if !parser.expectTokens(LeftParentThesesTP) {
		return nil, parser.makeError(true, "expect (")
	}
	cond, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	if !parser.expectTokens(RightParentThesesTP) {
		return nil, parser.makeError(true, "expect )")
	}
	return cond, nil
}

func (parser *Parser) getCurrentToken() (*Token, error) {
	if !parser.hasRemainTokens() {
		return nil, parser.makeError(false, "unexpected end of file")
	}
	return parser.currentTokens[parser.currentTokenPos], nil
}

func (parser *Parser) peekToken(offset int) *Token {
	if parser.currentTokenPos+offset >= len(parser.currentTokens) {
		return nil
	}
	return parser.currentTokens[parser.currentTokenPos+offset]
}

func (parser *Parser) stepForward() {
	parser.currentTokenPos++
}

func (parser *Parser) hasRemainTokens() bool {
	return parser.currentTokenPos < len(parser.currentTokens)
}

func (parser *Parser) expectTokens(expectedTokenTPs ...TokenType) bool {
	for _, tokenType := range expectedTokenTPs {
		_, ok := parser.expectToken(tokenType, true)
		if !ok {
			return false
		}
	}
	return true
}

func (parser *Parser) expectToken(expectedTokenTp TokenType, walk bool) (*Token, bool) {
	if parser.currentTokenPos >= len(parser.currentTokens) || parser.currentTokens[parser.currentTokenPos].tp !=
		expectedTokenTp {
		return nil, false
	}
	token := parser.currentTokens[parser.currentTokenPos]
	if walk {
		parser.currentTokenPos++
	}
	return token, true
}

// makeError reports a syntax error near the current token, or near the previous one when
// useCurrentPos is false or the tokens ran out.
func (parser *Parser) makeError(useCurrentPos bool, msg string) error {
	currentPos := parser.currentTokenPos
	if !useCurrentPos || currentPos >= len(parser.currentTokens) {
		currentPos--
	}
	if currentPos < 0 || currentPos >= len(parser.currentTokens) {
		return &SyntaxError{Pos: Pos{Line: 1, Column: 1}, Msg: msg}
	}
	currentToken := parser.currentTokens[currentPos]
	return &SyntaxError{Pos: currentToken.Pos(), Near: currentToken.content, Msg: msg}
}
