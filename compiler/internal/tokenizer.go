package internal

import (
	"bufio"
	"io"
	"unicode"

	"github.com/xiaobogaga/trac42/util"
)

// A simple Tokenizer for trac42.

// Trac42 language has those elements:
// * KeyWord: int, bool, void, true, false, if, else, while, return.
// * Symbol: {, }, (, ), ,, ;, +, -, *, /, %, <, >, <=, >=, ==, !=, &&, ||, !, =.
// * Constant: integer.
// * Identifier: letters, digits, underscore, not starting with a digit.
// * Comment: /**/, //.

type TokenType int

const (
	IntTP               TokenType = iota // int
	BoolTP                               // bool
	VoidTP                               // void
	TrueTP                               // true
	FalseTP                              // false
	IfTP                                 // if
	ElseTP                               // else
	WhileTP                              // while
	ReturnTP                             // return
	LeftBraceTP                          // {
	RightBraceTP                         // }
	LeftParentThesesTP                   // (
	RightParentThesesTP                  // )
	CommaTP                              // ,
	SemiColonTP                          // ;
	AddTP                                // +
	MinusTP                              // -
	MultiplyTP                           // *
	DivideTP                             // /
	ModTP                                // %
	LessTP                               // <
	GreaterTP                            // >
	LessEqualTP                          // <=
	GreaterEqualTP                       // >=
	EqualEqualTP                         // ==
	NotEqualTP                           // !=
	AndAndTP                             // &&
	OrOrTP                               // ||
	NotTP                                // !
	AssignTP                             // =
	IntegerTP                            // 1010
	IdentifierTP                         // varA
)

// keyWordTokenTPMap is the mapping from identifier to the corresponding TokenTP.
var keyWordTokenTPMap = map[string]TokenType{
	"int":    IntTP,
	"bool":   BoolTP,
	"void":   VoidTP,
	"true":   TrueTP,
	"false":  FalseTP,
	"if":     IfTP,
	"else":   ElseTP,
	"while":  WhileTP,
	"return": ReturnTP,
}

// simpleSymbolTokenTPMap holds the symbols made of a single character that never start a longer
// symbol.
var simpleSymbolTokenTPMap = map[byte]TokenType{
	'{': LeftBraceTP,
	'}': RightBraceTP,
	'(': LeftParentThesesTP,
	')': RightParentThesesTP,
	',': CommaTP,
	';': SemiColonTP,
	'+': AddTP,
	'-': MinusTP,
	'*': MultiplyTP,
	'%': ModTP,
}

// doubleSymbolTokenTPMap holds the symbols which may be one or two characters long. The first
// entry is the token when the character stands alone, the second when it is followed by second.
var doubleSymbolTokenTPMap = map[byte]struct {
	single    TokenType
	second    byte
	double    TokenType
	allowLone bool
}{
	'<': {LessTP, '=', LessEqualTP, true},
	'>': {GreaterTP, '=', GreaterEqualTP, true},
	'=': {AssignTP, '=', EqualEqualTP, true},
	'!': {NotTP, '=', NotEqualTP, true},
	'&': {0, '&', AndAndTP, false},
	'|': {0, '|', OrOrTP, false},
}

type Token struct {
	content  string
	line     int
	startPos int
	endPos   int
	tp       TokenType
}

// Pos returns the 1-based position of the first character of the token.
func (t *Token) Pos() Pos {
	return Pos{Line: t.line, Column: t.startPos + 1}
}

type Tokenizer struct {
	currentPos   int
	currentLine  int
	inComment    bool
	commentStart Pos
	tokens       []*Token
}

// getNextToken returns the next token from line, or nil when the line has no more tokens.
func (tokenizer *Tokenizer) getNextToken(line []byte) (*Token, error) {
	if tokenizer.inComment {
		tokenizer.skipMultipleLineComment(line)
	}
	tokenizer.trimSpace(line)
	if tokenizer.inComment || !tokenizer.hasRemainCharacters(line) {
		return nil, nil
	}
	c := line[tokenizer.currentPos]
	switch {
	case c == '/':
		return tokenizer.tokenCommentOrDivide(line)
	case util.IsNumber(c):
		return tokenizer.tokenNumber(line)
	case util.IsLetterOrUnderscore(c):
		return tokenizer.toKeywordOrIdentifier(line)
	}
	if _, ok := simpleSymbolTokenTPMap[c]; ok {
		return tokenizer.tokenSimpleSymbol(line)
	}
	if _, ok := doubleSymbolTokenTPMap[c]; ok {
		return tokenizer.tokenDoubleSymbol(line)
	}
	return nil, tokenizer.makeError(string(c), "unexpected character")
}

// trimSpace will step forward through line and skip all continuous space.
func (tokenizer *Tokenizer) trimSpace(line []byte) {
	for tokenizer.currentPos < len(line) && unicode.IsSpace(rune(line[tokenizer.currentPos])) {
		tokenizer.currentPos++
	}
}

func (tokenizer *Tokenizer) hasRemainCharacters(line []byte) bool {
	return tokenizer.currentPos < len(line)
}

func (tokenizer *Tokenizer) makeToken(line []byte, tp TokenType, length int) *Token {
	token := &Token{
		content:  string(line[tokenizer.currentPos : tokenizer.currentPos+length]),
		line:     tokenizer.currentLine,
		tp:       tp,
		startPos: tokenizer.currentPos,
		endPos:   tokenizer.currentPos + length,
	}
	tokenizer.currentPos += length
	return token
}

func (tokenizer *Tokenizer) tokenSimpleSymbol(line []byte) (*Token, error) {
	return tokenizer.makeToken(line, simpleSymbolTokenTPMap[line[tokenizer.currentPos]], 1), nil
}

func (tokenizer *Tokenizer) tokenDoubleSymbol(line []byte) (*Token, error) {
	c := line[tokenizer.currentPos]
	symbol := doubleSymbolTokenTPMap[c]
	if tokenizer.currentPos+1 < len(line) && line[tokenizer.currentPos+1] == symbol.second {
		return tokenizer.makeToken(line, symbol.double, 2), nil
	}
	if !symbol.allowLone {
		return nil, tokenizer.makeError(string(c), "expect "+string([]byte{c, symbol.second}))
	}
	return tokenizer.makeToken(line, symbol.single, 1), nil
}

func (tokenizer *Tokenizer) tokenCommentOrDivide(line []byte) (*Token, error) {
	// If / is not followed by * or /, then it's not a comment.
	next := byte(0)
	if tokenizer.currentPos+1 < len(line) {
		next = line[tokenizer.currentPos+1]
	}
	switch next {
	case '/':
		tokenizer.currentPos = len(line)
		return nil, nil
	case '*':
		tokenizer.inComment = true
		tokenizer.commentStart = Pos{Line: tokenizer.currentLine, Column: tokenizer.currentPos + 1}
		tokenizer.currentPos += 2
		return tokenizer.getNextToken(line)
	}
	return tokenizer.makeToken(line, DivideTP, 1), nil
}

// skipMultipleLineComment steps forward to the character after the closing */, or to the end of
// line when the comment goes on.
func (tokenizer *Tokenizer) skipMultipleLineComment(line []byte) {
	for tokenizer.currentPos < len(line) {
		if tokenizer.currentPos+1 < len(line) && line[tokenizer.currentPos] == '*' &&
			line[tokenizer.currentPos+1] == '/' {
			tokenizer.currentPos += 2
			tokenizer.inComment = false
			return
		}
		tokenizer.currentPos++
	}
}

func (tokenizer *Tokenizer) tokenNumber(line []byte) (*Token, error) {
	// Look forward to find a continuous number
	length := 1
	for tokenizer.currentPos+length < len(line) && util.IsNumber(line[tokenizer.currentPos+length]) {
		length++
	}
	if end := tokenizer.currentPos + length; end < len(line) && util.IsLetterOrUnderscore(line[end]) {
		return nil, tokenizer.makeError(string(line[tokenizer.currentPos:end+1]), "incorrect identifier format")
	}
	return tokenizer.makeToken(line, IntegerTP, length), nil
}

func (tokenizer *Tokenizer) toKeywordOrIdentifier(line []byte) (*Token, error) {
	// Look forward to find a continuous characters.
	length := 1
	for tokenizer.currentPos+length < len(line) && util.IsLetterOrUnderscoreOrNumber(line[tokenizer.currentPos+length]) {
		length++
	}
	word := string(line[tokenizer.currentPos : tokenizer.currentPos+length])
	if keyWordTP, isKeyWord := keyWordTokenTPMap[word]; isKeyWord {
		return tokenizer.makeToken(line, keyWordTP, length), nil
	}
	return tokenizer.makeToken(line, IdentifierTP, length), nil
}

func (tokenizer *Tokenizer) makeError(near string, msg string) error {
	return &SyntaxError{
		Pos:  Pos{Line: tokenizer.currentLine, Column: tokenizer.currentPos + 1},
		Near: near,
		Msg:  msg,
	}
}

// Tokenize accepts a source `rd` and tokenizes its content according to trac42 language rules.
func (tokenizer *Tokenizer) Tokenize(rd io.Reader) (tokens []*Token, err error) {
	bfReader := bufio.NewReader(rd)
	tokenizer.currentLine = 0
	for {
		tokenizer.currentLine++
		tokenizer.currentPos = 0
		line, readErr := bfReader.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, readErr
		}
		if err := tokenizer.parseLine(line); err != nil {
			return nil, err
		}
		if readErr == io.EOF {
			break
		}
	}
	if tokenizer.inComment {
		return nil, &SyntaxError{Pos: tokenizer.commentStart, Near: "/*", Msg: "unterminated comment"}
	}
	return tokenizer.tokens, nil
}

func (tokenizer *Tokenizer) parseLine(line []byte) error {
	for tokenizer.hasRemainCharacters(line) {
		token, err := tokenizer.getNextToken(line)
		if err != nil {
			return err
		}
		if token == nil {
			continue
		}
		tokenizer.tokens = append(tokenizer.tokens, token)
	}
	return nil
}

func (tokenizer *Tokenizer) Reset() {
	tokenizer.currentPos, tokenizer.currentLine = 0, 0
	tokenizer.inComment = false
	tokenizer.tokens = nil
}
