package basic

import (
	"strconv"
	"strings"
)

// Lexer turns the text of one statement into tokens.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
}

// NewLexer erstellt einen neuen Lexer
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize lexes src completely. The result always ends with a TokEOF token.
func Tokenize(src string) ([]Token, error) {
	return NewLexer(src).Tokens()
}

// Tokens runs the lexer to the end of its input.
func (l *Lexer) Tokens() ([]Token, error) {
	for {
		l.skipSpace()
		if l.pos >= len(l.input) {
			l.tokens = append(l.tokens, Token{Kind: TokEOF, Pos: l.pos})
			return l.tokens, nil
		}
		start := l.pos
		ch := l.input[l.pos]
		switch {
		case ch == '"':
			if err := l.lexString(); err != nil {
				return nil, err
			}
		case isDigit(ch) || ch == '.' && l.peekDigit(1):
			l.lexNumber(start, false)
		case ch == '-' && !l.lastIsOperand() && (l.peekDigit(1) || l.peekAt(1) == '.' && l.peekDigit(2)):
			l.pos++
			l.lexNumber(start, true)
		case isAlpha(ch):
			if l.lexWord() {
				// REM: Rest der Zeile ist Kommentar
				l.skipSpace()
				l.tokens = append(l.tokens, Token{Kind: TokString, Text: l.input[l.pos:], Pos: l.pos})
				l.pos = len(l.input)
			}
		default:
			l.lexPunct()
		}
	}
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) peekAt(offset int) byte {
	if l.pos+offset < len(l.input) {
		return l.input[l.pos+offset]
	}
	return 0
}

func (l *Lexer) peekDigit(offset int) bool {
	return isDigit(l.peekAt(offset))
}

// lastIsOperand reports whether the previous token ends a value, in which
// case a following '-' is binary subtraction.
func (l *Lexer) lastIsOperand() bool {
	if len(l.tokens) == 0 {
		return false
	}
	switch l.tokens[len(l.tokens)-1].Kind {
	case TokNumber, TokString, TokIdent, TokRParen:
		return true
	}
	return false
}

func (l *Lexer) lexString() error {
	start := l.pos
	l.pos++ // opening quote
	end := strings.IndexByte(l.input[l.pos:], '"')
	if end < 0 {
		return &BASICError{Kind: KindLex, Detail: l.input[start:]}
	}
	l.tokens = append(l.tokens, Token{Kind: TokString, Text: l.input[l.pos : l.pos+end], Pos: start})
	l.pos += end + 1
	return nil
}

// lexNumber reads digits with at most one decimal point. negative is set
// when a leading '-' has already been consumed.
func (l *Lexer) lexNumber(start int, negative bool) {
	digitsStart := l.pos
	seenDot := false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if isDigit(ch) {
			l.pos++
			continue
		}
		if ch == '.' && !seenDot {
			seenDot = true
			l.pos++
			continue
		}
		break
	}
	value, _ := strconv.ParseFloat(l.input[digitsStart:l.pos], 64)
	if negative {
		value = -value
	}
	l.tokens = append(l.tokens, Token{Kind: TokNumber, Num: value, Text: l.input[start:l.pos], Pos: start})
}

// lexWord reads an identifier or keyword. It returns true for REM.
func (l *Lexer) lexWord() bool {
	start := l.pos
	for l.pos < len(l.input) && isAlnum(l.input[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '$' {
		l.pos++
	}
	word := strings.ToUpper(l.input[start:l.pos])
	if kw, ok := keywords[word]; ok {
		l.tokens = append(l.tokens, Token{Kind: TokKeyword, Keyword: kw, Text: word, Pos: start})
		return kw == KwRem
	}
	l.tokens = append(l.tokens, Token{Kind: TokIdent, Text: word, Pos: start})
	return false
}

func (l *Lexer) lexPunct() {
	start := l.pos
	ch := l.input[l.pos]
	l.pos++
	tok := Token{Kind: TokOperator, Text: string(ch), Pos: start}
	switch ch {
	case ',':
		tok.Kind = TokComma
	case ';':
		tok.Kind = TokSemicolon
	case '(':
		tok.Kind = TokLParen
	case ')':
		tok.Kind = TokRParen
	case '?':
		tok = Token{Kind: TokKeyword, Keyword: KwPrint, Text: "?", Pos: start}
	case '+':
		tok.Op = OpPlus
	case '-':
		tok.Op = OpMinus
	case '*':
		tok.Op = OpMul
	case '/':
		tok.Op = OpDiv
	case '=':
		tok.Op = OpEq
	case '<':
		switch l.peekAt(0) {
		case '>':
			tok.Op, tok.Text = OpNe, "<>"
			l.pos++
		case '=':
			tok.Op, tok.Text = OpLe, "<="
			l.pos++
		default:
			tok.Op = OpLt
		}
	case '>':
		if l.peekAt(0) == '=' {
			tok.Op, tok.Text = OpGe, ">="
			l.pos++
		} else {
			tok.Op = OpGt
		}
	default:
		tok.Op = OpUnknown
	}
	l.tokens = append(l.tokens, tok)
}

// isSpace überprüft, ob ein Zeichen ein Leerzeichen ist
func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

// isDigit überprüft, ob ein Zeichen eine Ziffer ist
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch byte) bool {
	return ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z'
}

func isAlnum(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}
