package basic

import "fmt"

// TokenKind tags a Token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokNumber
	TokString
	TokIdent
	TokOperator
	TokKeyword
	TokComma
	TokSemicolon
	TokLParen
	TokRParen
)

// Operator identifies an operator token. OpUnknown carries any character
// the lexer does not understand; the parser rejects it.
type Operator int

const (
	OpUnknown Operator = iota
	OpPlus
	OpMinus
	OpMul
	OpDiv
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
)

var operatorText = map[Operator]string{
	OpPlus:  "+",
	OpMinus: "-",
	OpMul:   "*",
	OpDiv:   "/",
	OpEq:    "=",
	OpNe:    "<>",
	OpLt:    "<",
	OpGt:    ">",
	OpLe:    "<=",
	OpGe:    ">=",
}

func (o Operator) String() string {
	if s, ok := operatorText[o]; ok {
		return s
	}
	return "?"
}

// isComparison reports whether o is one of = <> < > <= >=.
func (o Operator) isComparison() bool {
	return o >= OpEq && o <= OpGe
}

// Keyword identifies a reserved word.
type Keyword int

const (
	KwNone Keyword = iota
	KwPrint
	KwInput
	KwLet
	KwIf
	KwThen
	KwFor
	KwTo
	KwStep
	KwNext
	KwGoto
	KwGosub
	KwReturn
	KwRem
	KwRun
	KwList
	KwNew
	KwEnd
	KwStop
	KwClr
	KwCls
	KwWait
	KwPoke
	KwSys
	KwLoad
	KwSave
	KwColor
	KwScreen
	KwOn
)

// keywords maps upper-case source text to its keyword.
var keywords = map[string]Keyword{
	"PRINT":  KwPrint,
	"INPUT":  KwInput,
	"LET":    KwLet,
	"IF":     KwIf,
	"THEN":   KwThen,
	"FOR":    KwFor,
	"TO":     KwTo,
	"STEP":   KwStep,
	"NEXT":   KwNext,
	"GOTO":   KwGoto,
	"GOSUB":  KwGosub,
	"RETURN": KwReturn,
	"REM":    KwRem,
	"RUN":    KwRun,
	"LIST":   KwList,
	"NEW":    KwNew,
	"END":    KwEnd,
	"STOP":   KwStop,
	"CLR":    KwClr,
	"CLS":    KwCls,
	"WAIT":   KwWait,
	"POKE":   KwPoke,
	"SYS":    KwSys,
	"LOAD":   KwLoad,
	"SAVE":   KwSave,
	"COLOR":  KwColor,
	"SCREEN": KwScreen,
	"ON":     KwOn,
}

var keywordText = func() map[Keyword]string {
	m := make(map[Keyword]string, len(keywords))
	for text, kw := range keywords {
		m[kw] = text
	}
	return m
}()

func (k Keyword) String() string {
	if s, ok := keywordText[k]; ok {
		return s
	}
	return "?"
}

// Token is one lexical unit of a statement.
type Token struct {
	Kind    TokenKind
	Num     float64  // TokNumber
	Text    string   // TokString, TokIdent (upper case), raw text of TokOperator
	Op      Operator // TokOperator
	Keyword Keyword  // TokKeyword
	Pos     int      // byte offset in the statement
}

func (t Token) String() string {
	switch t.Kind {
	case TokEOF:
		return "end of statement"
	case TokNumber:
		return formatNumber(t.Num)
	case TokString:
		return `"` + t.Text + `"`
	case TokIdent:
		return t.Text
	case TokOperator:
		if t.Op == OpUnknown {
			return t.Text
		}
		return t.Op.String()
	case TokKeyword:
		return t.Keyword.String()
	case TokComma:
		return ","
	case TokSemicolon:
		return ";"
	case TokLParen:
		return "("
	case TokRParen:
		return ")"
	}
	return fmt.Sprintf("token(%d)", t.Kind)
}

func (t Token) is(kind TokenKind) bool { return t.Kind == kind }

func (t Token) isKeyword(kw Keyword) bool { return t.Kind == TokKeyword && t.Keyword == kw }

func (t Token) isOp(op Operator) bool { return t.Kind == TokOperator && t.Op == op }
