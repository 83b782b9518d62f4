package basic

import (
	"math/rand"
	"strings"
)

// EvalContext is everything expression evaluation may read.
type EvalContext struct {
	Vars   VarReader
	Rand   func() float64 // RND source, math/rand when nil
	Memory *Memory        // PEEK source, nil means all zero
}

func (c *EvalContext) random() float64 {
	if c.Rand != nil {
		return c.Rand()
	}
	return rand.Float64()
}

func (c *EvalContext) peek(addr float64) (int, error) {
	if c.Memory == nil {
		if addr < 0 || addr >= MemorySize {
			return 0, newError(KindIllegalQuantity, "PEEK(%s)", formatNumber(addr))
		}
		return 0, nil
	}
	return c.Memory.Peek(addr)
}

// EvalExpression lexes and evaluates src against vars.
func EvalExpression(src string, vars VarReader) (Value, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return Value{}, err
	}
	ctx := &EvalContext{Vars: vars}
	return ctx.Eval(toks)
}

// Eval evaluates a complete token sequence as one expression.
func (c *EvalContext) Eval(toks []Token) (Value, error) {
	p := newParser(toks, c)
	v, err := p.parseExpression()
	if err != nil {
		return Value{}, err
	}
	if err := p.expectEnd(); err != nil {
		return Value{}, err
	}
	return v, nil
}

// parser is a cursor over one statement's tokens. Expressions are evaluated
// while they are parsed.
type parser struct {
	toks []Token
	pos  int
	ctx  *EvalContext
}

func newParser(toks []Token, ctx *EvalContext) *parser {
	return &parser{toks: toks, ctx: ctx}
}

func (p *parser) peek() Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return Token{Kind: TokEOF}
}

func (p *parser) next() Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) atEnd() bool {
	return p.peek().is(TokEOF)
}

func (p *parser) expectEnd() error {
	if t := p.peek(); !t.is(TokEOF) {
		return syntaxError("UNEXPECTED %s", t)
	}
	return nil
}

// acceptKeyword consumes kw if it is next.
func (p *parser) acceptKeyword(kw Keyword) bool {
	if p.peek().isKeyword(kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) accept(kind TokenKind) bool {
	if p.peek().is(kind) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw Keyword) error {
	if !p.acceptKeyword(kw) {
		return syntaxError("MISSING %s", kw)
	}
	return nil
}

func (p *parser) expectOp(op Operator) error {
	if t := p.peek(); t.isOp(op) {
		p.pos++
		return nil
	}
	return syntaxError("MISSING %s", op)
}

// rest returns the remaining tokens, including EOF.
func (p *parser) rest() []Token {
	return p.toks[p.pos:]
}

// parseExpression is the grammar entry point.
//
//	comparison := sum (relop sum)?
//	sum        := term (("+" | "-") term)*
//	term       := unary (("*" | "/") unary)*
//	unary      := "-"? primary
//	primary    := number | string | ident | ident "(" args? ")" | "(" comparison ")"
func (p *parser) parseExpression() (Value, error) {
	left, err := p.parseSum()
	if err != nil {
		return Value{}, err
	}
	t := p.peek()
	if !(t.is(TokOperator) && t.Op.isComparison()) {
		return left, nil
	}
	p.pos++
	right, err := p.parseSum()
	if err != nil {
		return Value{}, err
	}
	return compare(t.Op, left, right)
}

func compare(op Operator, left, right Value) (Value, error) {
	if left.Kind() != right.Kind() {
		return Value{}, typeMismatch("CANNOT COMPARE %s WITH %s", left.Kind(), right.Kind())
	}
	var c int
	if left.IsString() {
		c = strings.Compare(left.Text(), right.Text())
	} else {
		switch {
		case left.Num() < right.Num():
			c = -1
		case left.Num() > right.Num():
			c = 1
		}
	}
	switch op {
	case OpEq:
		return Bool(c == 0), nil
	case OpNe:
		return Bool(c != 0), nil
	case OpLt:
		return Bool(c < 0), nil
	case OpGt:
		return Bool(c > 0), nil
	case OpLe:
		return Bool(c <= 0), nil
	default:
		return Bool(c >= 0), nil
	}
}

// parseSum handles + and -. The kind of the left operand decides what +
// means: a string concatenates (numbers on the right become their text),
// a number adds and rejects a string on the right.
func (p *parser) parseSum() (Value, error) {
	left, err := p.parseTerm()
	if err != nil {
		return Value{}, err
	}
	for {
		t := p.peek()
		if !t.isOp(OpPlus) && !t.isOp(OpMinus) {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return Value{}, err
		}
		switch {
		case t.Op == OpPlus && left.IsString():
			left = Str(left.Text() + right.String())
		case left.IsString() || right.IsString():
			return Value{}, typeMismatch("%s %s %s", left.Kind(), t.Op, right.Kind())
		case t.Op == OpPlus:
			left = Number(left.Num() + right.Num())
		default:
			left = Number(left.Num() - right.Num())
		}
	}
}

func (p *parser) parseTerm() (Value, error) {
	left, err := p.parseUnary()
	if err != nil {
		return Value{}, err
	}
	for {
		t := p.peek()
		if !t.isOp(OpMul) && !t.isOp(OpDiv) {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return Value{}, err
		}
		if left.IsString() || right.IsString() {
			return Value{}, typeMismatch("%s %s %s", left.Kind(), t.Op, right.Kind())
		}
		if t.Op == OpMul {
			left = Number(left.Num() * right.Num())
			continue
		}
		if right.Num() == 0 {
			return Value{}, newError(KindDivisionByZero, "")
		}
		left = Number(left.Num() / right.Num())
	}
}

func (p *parser) parseUnary() (Value, error) {
	if !p.peek().isOp(OpMinus) {
		return p.parsePrimary()
	}
	p.pos++
	v, err := p.parsePrimary()
	if err != nil {
		return Value{}, err
	}
	if v.IsString() {
		return Value{}, typeMismatch("CANNOT NEGATE A STRING")
	}
	return Number(-v.Num()), nil
}

func (p *parser) parsePrimary() (Value, error) {
	t := p.next()
	switch t.Kind {
	case TokNumber:
		return Number(t.Num), nil
	case TokString:
		return Str(t.Text), nil
	case TokIdent:
		if p.peek().is(TokLParen) {
			return p.parseCall(t.Text)
		}
		return p.ctx.Vars.Get(t.Text), nil
	case TokLParen:
		v, err := p.parseExpression()
		if err != nil {
			return Value{}, err
		}
		if !p.accept(TokRParen) {
			return Value{}, syntaxError("MISSING )")
		}
		return v, nil
	case TokEOF:
		return Value{}, syntaxError("EXPRESSION EXPECTED")
	}
	return Value{}, syntaxError("UNEXPECTED %s", t)
}

// parseCall evaluates name(args). The opening parenthesis is next.
func (p *parser) parseCall(name string) (Value, error) {
	b, ok := LookupBuiltin(name)
	if !ok {
		return Value{}, newError(KindUndefinedFunction, "%s", name)
	}
	p.pos++ // (
	var args []Value
	if !p.accept(TokRParen) {
		for {
			v, err := p.parseExpression()
			if err != nil {
				return Value{}, err
			}
			args = append(args, v)
			if p.accept(TokComma) {
				continue
			}
			if p.accept(TokRParen) {
				break
			}
			return Value{}, syntaxError("MISSING ) AFTER %s ARGUMENTS", name)
		}
	}
	if err := b.check(args); err != nil {
		return Value{}, err
	}
	return b.call(args, p.ctx)
}

// parseNumber evaluates an expression that has to be numeric.
func (p *parser) parseNumber() (float64, error) {
	v, err := p.parseExpression()
	if err != nil {
		return 0, err
	}
	if v.IsString() {
		return 0, typeMismatch("NUMBER EXPECTED")
	}
	return v.Num(), nil
}
