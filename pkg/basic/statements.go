package basic

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// execute runs the statement at the parser position. nested is set for the
// action of an IF.
func (in *Interpreter) execute(ctx context.Context, p *parser, st *step, nested bool) error {
	t := p.peek()
	switch t.Kind {
	case TokEOF:
		return nil
	case TokIdent:
		return in.cmdLet(p)
	case TokKeyword:
	default:
		return syntaxError("UNEXPECTED %s", t)
	}
	p.next()

	switch t.Keyword {
	case KwPrint:
		return in.cmdPrint(p)
	case KwInput:
		return in.cmdInput(ctx, p)
	case KwLet:
		return in.cmdLet(p)
	case KwIf:
		if nested {
			return syntaxError("NESTED IF")
		}
		return in.cmdIf(ctx, p, st)
	case KwFor:
		return in.cmdFor(p, st)
	case KwNext:
		return in.cmdNext(p, st)
	case KwGoto:
		return in.cmdGoto(p, st)
	case KwGosub:
		return in.cmdGosub(p, st)
	case KwReturn:
		return in.cmdReturn(p, st)
	case KwOn:
		return in.cmdOn(p, st)
	case KwRem:
		return nil
	case KwRun:
		return in.cmdRun(p, st)
	case KwList:
		return in.cmdList(p)
	case KwNew:
		if err := p.expectEnd(); err != nil {
			return err
		}
		in.New()
		st.halt = true
		return nil
	case KwEnd:
		if err := p.expectEnd(); err != nil {
			return err
		}
		st.halt = true
		return nil
	case KwStop:
		if err := p.expectEnd(); err != nil {
			return err
		}
		return &BreakError{LineNumber: st.line}
	case KwClr:
		if err := p.expectEnd(); err != nil {
			return err
		}
		in.env.Clear()
		in.seedVariables()
		in.flow.Reset()
		return nil
	case KwCls:
		if err := p.expectEnd(); err != nil {
			return err
		}
		if screen, ok := in.console.(Screen); ok {
			screen.Clear()
		}
		in.column = 0
		return nil
	case KwWait:
		return in.cmdWait(ctx, p, st)
	case KwPoke:
		return in.cmdPoke(p)
	case KwSys:
		return in.cmdSys(p)
	case KwLoad:
		return in.cmdLoad(ctx, p, st)
	case KwSave:
		return in.cmdSave(ctx, p)
	case KwColor:
		return in.cmdColor(p)
	case KwScreen:
		return in.cmdScreen(p)
	}
	return syntaxError("UNEXPECTED %s", t)
}

// assign stores v honouring the system variables.
func (in *Interpreter) assign(name string, v Value) error {
	switch name {
	case "TI":
		return syntaxError("TI IS READ-ONLY")
	case "TI$":
		if !v.IsString() {
			return typeMismatch("CANNOT ASSIGN %s TO %s", v.Kind(), name)
		}
		return in.setTimeString(v.Text())
	}
	return in.env.Set(name, v)
}

// cmdLet: [LET] name = expr
func (in *Interpreter) cmdLet(p *parser) error {
	t := p.next()
	if !t.is(TokIdent) {
		return syntaxError("VARIABLE EXPECTED")
	}
	if err := p.expectOp(OpEq); err != nil {
		return err
	}
	v, err := p.parseExpression()
	if err != nil {
		return err
	}
	if err := p.expectEnd(); err != nil {
		return err
	}
	return in.assign(t.Text, v)
}

// cmdPrint renders the whole item list before emitting it, so a failing
// item prints nothing.
func (in *Interpreter) cmdPrint(p *parser) error {
	var out strings.Builder
	newline := true
	zone := in.opts.PrintZoneWidth
	for !p.atEnd() {
		switch {
		case p.accept(TokSemicolon):
			newline = false
		case p.accept(TokComma):
			col := columnAfter(in.column, out.String())
			out.WriteString(strings.Repeat(" ", zone-col%zone))
			newline = false
		default:
			v, err := p.parseExpression()
			if err != nil {
				return err
			}
			out.WriteString(v.String())
			newline = true
		}
	}
	if newline {
		out.WriteByte('\n')
	}
	in.emit(out.String())
	return nil
}

// cmdInput: INPUT ["prompt";] var[, var...]
func (in *Interpreter) cmdInput(ctx context.Context, p *parser) error {
	prompt := "? "
	if t := p.peek(); t.is(TokString) {
		p.next()
		if !p.accept(TokSemicolon) && !p.accept(TokComma) {
			return syntaxError("MISSING ; AFTER PROMPT")
		}
		prompt = t.Text
	}
	var names []string
	for {
		t := p.next()
		if !t.is(TokIdent) {
			return syntaxError("VARIABLE EXPECTED")
		}
		names = append(names, t.Text)
		if !p.accept(TokComma) {
			break
		}
	}
	if err := p.expectEnd(); err != nil {
		return err
	}

	values, err := in.readAnswers(ctx, prompt, names)
	if err != nil {
		return err
	}
	for i, name := range names {
		if err := in.assign(name, values[i]); err != nil {
			return err
		}
	}
	return nil
}

// readAnswers collects one value per name. Several names take comma
// separated answers; missing ones are asked for with "?? ".
func (in *Interpreter) readAnswers(ctx context.Context, prompt string, names []string) ([]Value, error) {
	values := make([]Value, 0, len(names))
	ask := prompt
	for len(values) < len(names) {
		line, err := in.readLine(ctx, ask)
		if err != nil {
			return nil, err
		}
		fields := []string{line}
		if len(names) > 1 {
			fields = strings.Split(line, ",")
		}
		redo := false
		for _, field := range fields {
			if len(values) == len(names) {
				in.emit("?EXTRA IGNORED\n")
				break
			}
			v, ok := answerValue(names[len(values)], field, len(names) > 1)
			if !ok {
				redo = true
				break
			}
			values = append(values, v)
		}
		if redo {
			in.emit("?REDO FROM START\n")
			values = values[:0]
			ask = prompt
			continue
		}
		ask = "?? "
	}
	return values, nil
}

func answerValue(name, field string, trim bool) (Value, bool) {
	if IsStringName(name) {
		if trim {
			field = strings.TrimSpace(field)
		}
		return Str(field), true
	}
	f, ok := parseInputNumber(field)
	if !ok {
		return Value{}, false
	}
	return Number(f), true
}

// cmdIf: IF cond THEN stmt | IF cond THEN n | IF cond GOTO n
func (in *Interpreter) cmdIf(ctx context.Context, p *parser, st *step) error {
	cond, err := p.parseExpression()
	if err != nil {
		return err
	}
	if cond.IsString() {
		return typeMismatch("CONDITION MUST BE NUMERIC")
	}
	switch {
	case p.acceptKeyword(KwThen):
		if !cond.Truthy() {
			return nil
		}
		if p.peek().is(TokNumber) {
			return in.cmdGoto(p, st)
		}
		return in.execute(ctx, p, st, true)
	case p.acceptKeyword(KwGoto):
		if !cond.Truthy() {
			return nil
		}
		return in.cmdGoto(p, st)
	}
	return syntaxError("MISSING THEN")
}

// cmdFor: FOR v = start TO end [STEP s]
func (in *Interpreter) cmdFor(p *parser, st *step) error {
	t := p.next()
	if !t.is(TokIdent) {
		return syntaxError("VARIABLE EXPECTED")
	}
	if IsStringName(t.Text) {
		return typeMismatch("FOR NEEDS A NUMERIC VARIABLE")
	}
	if err := p.expectOp(OpEq); err != nil {
		return err
	}
	start, err := p.parseNumber()
	if err != nil {
		return err
	}
	if err := p.expectKeyword(KwTo); err != nil {
		return err
	}
	end, err := p.parseNumber()
	if err != nil {
		return err
	}
	stepBy := 1.0
	if p.acceptKeyword(KwStep) {
		if stepBy, err = p.parseNumber(); err != nil {
			return err
		}
	}
	if err := p.expectEnd(); err != nil {
		return err
	}
	// Der Rumpf beginnt mit der nächsten Zeile
	frame := ForFrame{Variable: t.Text, Start: start, End: end, Step: stepBy, ResumeLine: st.next}
	if err := in.flow.PushFor(frame); err != nil {
		return err
	}
	return in.assign(t.Text, Number(start))
}

// cmdNext: NEXT [v[, v...]]
func (in *Interpreter) cmdNext(p *parser, st *step) error {
	names := []string{""}
	if !p.atEnd() {
		names = names[:0]
		for {
			t := p.next()
			if !t.is(TokIdent) {
				return syntaxError("VARIABLE EXPECTED")
			}
			names = append(names, t.Text)
			if !p.accept(TokComma) {
				break
			}
		}
		if err := p.expectEnd(); err != nil {
			return err
		}
	}
	for _, name := range names {
		resume, again, err := in.flow.Next(in.env, name)
		if err != nil {
			return err
		}
		if again {
			st.goTo(resume)
			return nil
		}
	}
	return nil
}

// lineNumber evaluates a jump target.
func lineNumber(p *parser) (int, error) {
	f, err := p.parseNumber()
	if err != nil {
		return 0, err
	}
	if f < 0 || f > math.MaxInt32 {
		return 0, newError(KindUndefinedLine, "%s", formatNumber(f))
	}
	return int(f), nil
}

func (in *Interpreter) jump(st *step, target int) error {
	if !in.program.Has(target) {
		return newError(KindUndefinedLine, "%d", target)
	}
	st.goTo(target)
	return nil
}

func (in *Interpreter) cmdGoto(p *parser, st *step) error {
	target, err := lineNumber(p)
	if err != nil {
		return err
	}
	if err := p.expectEnd(); err != nil {
		return err
	}
	return in.jump(st, target)
}

func (in *Interpreter) cmdGosub(p *parser, st *step) error {
	target, err := lineNumber(p)
	if err != nil {
		return err
	}
	if err := p.expectEnd(); err != nil {
		return err
	}
	return in.gosub(st, target)
}

func (in *Interpreter) gosub(st *step, target int) error {
	if !in.program.Has(target) {
		return newError(KindUndefinedLine, "%d", target)
	}
	if err := in.flow.PushGosub(st.next); err != nil {
		return err
	}
	st.goTo(target)
	return nil
}

func (in *Interpreter) cmdReturn(p *parser, st *step) error {
	if err := p.expectEnd(); err != nil {
		return err
	}
	line, err := in.flow.PopGosub()
	if err != nil {
		return err
	}
	st.goTo(line)
	return nil
}

// cmdOn: ON expr GOTO|GOSUB n1[, n2...]. An index outside the list falls through.
func (in *Interpreter) cmdOn(p *parser, st *step) error {
	idx, err := p.parseNumber()
	if err != nil {
		return err
	}
	gosub := p.acceptKeyword(KwGosub)
	if !gosub && !p.acceptKeyword(KwGoto) {
		return syntaxError("MISSING GOTO")
	}
	var targets []int
	for {
		t := p.next()
		if !t.is(TokNumber) || t.Num < 0 {
			return syntaxError("LINE NUMBER EXPECTED")
		}
		targets = append(targets, int(t.Num))
		if !p.accept(TokComma) {
			break
		}
	}
	if err := p.expectEnd(); err != nil {
		return err
	}
	if idx < 0 || idx > 255 {
		return newError(KindIllegalQuantity, "ON %s", formatNumber(idx))
	}
	n := int(idx)
	if n < 1 || n > len(targets) {
		return nil
	}
	if gosub {
		return in.gosub(st, targets[n-1])
	}
	return in.jump(st, targets[n-1])
}

// cmdRun: RUN [n]. Variables survive; the stacks do not.
func (in *Interpreter) cmdRun(p *parser, st *step) error {
	start, ok := in.program.First()
	if !p.atEnd() {
		n, err := lineNumber(p)
		if err != nil {
			return err
		}
		if !in.program.Has(n) {
			return newError(KindUndefinedLine, "%d", n)
		}
		start, ok = n, true
	}
	if err := p.expectEnd(); err != nil {
		return err
	}
	in.flow.Reset()
	if !ok {
		st.halt = true
		return nil
	}
	st.goTo(start)
	return nil
}

// cmdList: LIST [a][-[b]]
func (in *Interpreter) cmdList(p *parser) error {
	from, to := 0, math.MaxInt
	if t := p.peek(); t.is(TokNumber) {
		p.next()
		if t.Num < 0 {
			// "LIST -50" wird als negative Zahl gelesen
			to = int(-t.Num)
		} else {
			from, to = int(t.Num), int(t.Num)
			if p.peek().isOp(OpMinus) {
				p.next()
				to = math.MaxInt
				if n := p.peek(); n.is(TokNumber) {
					p.next()
					to = int(n.Num)
				}
			}
		}
	} else if t.isOp(OpMinus) {
		p.next()
		if n := p.peek(); n.is(TokNumber) {
			p.next()
			to = int(n.Num)
		}
	}
	if err := p.expectEnd(); err != nil {
		return err
	}
	var out strings.Builder
	for _, l := range in.program.Range(from, to) {
		out.WriteString(l.String())
		out.WriteByte('\n')
	}
	in.emit(out.String())
	return nil
}

// cmdWait: WAIT seconds, bounded by MaxWait and interruptible.
func (in *Interpreter) cmdWait(ctx context.Context, p *parser, st *step) error {
	secs, err := p.parseNumber()
	if err != nil {
		return err
	}
	if err := p.expectEnd(); err != nil {
		return err
	}
	if secs < 0 {
		return newError(KindIllegalQuantity, "WAIT %s", formatNumber(secs))
	}
	d := time.Duration(secs * float64(time.Second))
	if d > in.opts.MaxWait {
		d = in.opts.MaxWait
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return &BreakError{LineNumber: st.line, cause: ctx.Err()}
	case <-timer.C:
		return nil
	}
}

// cmdPoke: POKE addr, value. 53281 also sets the background colour.
func (in *Interpreter) cmdPoke(p *parser) error {
	addr, err := p.parseNumber()
	if err != nil {
		return err
	}
	if !p.accept(TokComma) {
		return syntaxError("MISSING ,")
	}
	value, err := p.parseNumber()
	if err != nil {
		return err
	}
	if err := p.expectEnd(); err != nil {
		return err
	}
	if err := in.memory.Poke(addr, value); err != nil {
		return err
	}
	switch int(addr) {
	case addrBorderColor:
		in.notifyBorder(int(value) & 15)
	case addrBackgroundColor:
		if err := in.env.Set("BG", Number(float64(int(value)&15))); err != nil {
			return err
		}
		in.notifyColors()
	}
	return nil
}

func (in *Interpreter) cmdSys(p *parser) error {
	addr, err := p.parseNumber()
	if err != nil {
		return err
	}
	if err := p.expectEnd(); err != nil {
		return err
	}
	a, err := checkAddress(addr)
	if err != nil {
		return err
	}
	in.emit(fmt.Sprintf("SYS %d: MACHINE LANGUAGE CALL SIMULATED\n", a))
	return nil
}

func programName(p *parser) (string, error) {
	v, err := p.parseExpression()
	if err != nil {
		return "", err
	}
	if !v.IsString() {
		return "", typeMismatch("FILE NAME MUST BE A STRING")
	}
	if err := p.expectEnd(); err != nil {
		return "", err
	}
	name := strings.TrimSpace(v.Text())
	if name == "" {
		return "", syntaxError("MISSING FILE NAME")
	}
	return name, nil
}

// cmdLoad replaces the program; inside a run it ends the run.
func (in *Interpreter) cmdLoad(ctx context.Context, p *parser, st *step) error {
	name, err := programName(p)
	if err != nil {
		return err
	}
	if err := in.Load(ctx, name); err != nil {
		return err
	}
	in.emit(fmt.Sprintf("LOADING %q\n", name))
	st.halt = true
	return nil
}

func (in *Interpreter) cmdSave(ctx context.Context, p *parser) error {
	name, err := programName(p)
	if err != nil {
		return err
	}
	if err := in.Save(ctx, name); err != nil {
		return err
	}
	in.emit(fmt.Sprintf("SAVING %q\n", name))
	return nil
}

func colorArg(p *parser) (int, error) {
	f, err := p.parseNumber()
	if err != nil {
		return 0, err
	}
	if f < 0 || f > 15 {
		return 0, newError(KindIllegalQuantity, "COLOR %s", formatNumber(f))
	}
	return int(f), nil
}

// cmdColor: COLOR fg[, bg]
func (in *Interpreter) cmdColor(p *parser) error {
	fg, err := colorArg(p)
	if err != nil {
		return err
	}
	bg := int(in.env.Get("BG").Num()) & 15
	if p.accept(TokComma) {
		if bg, err = colorArg(p); err != nil {
			return err
		}
	}
	if err := p.expectEnd(); err != nil {
		return err
	}
	if err := in.env.Set("CO", Number(float64(fg))); err != nil {
		return err
	}
	return in.setBackground(bg)
}

// cmdScreen: SCREEN bg
func (in *Interpreter) cmdScreen(p *parser) error {
	bg, err := colorArg(p)
	if err != nil {
		return err
	}
	if err := p.expectEnd(); err != nil {
		return err
	}
	return in.setBackground(bg)
}

// setBackground keeps BG and register 53281 in step and notifies the screen.
func (in *Interpreter) setBackground(bg int) error {
	if err := in.env.Set("BG", Number(float64(bg))); err != nil {
		return err
	}
	if err := in.memory.Poke(addrBackgroundColor, float64(bg)); err != nil {
		return err
	}
	in.notifyColors()
	return nil
}
