package basic

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestForNextCountsUp(t *testing.T) {
	in, console := newTestInterpreter(t,
		"10 FOR I=1 TO 3",
		"20 PRINT I",
		"30 NEXT I",
	)
	if err := in.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := console.out.String(); got != "1\n2\n3\n" {
		t.Errorf("output = %q, want 1 2 3", got)
	}
	if frames := in.Snapshot().ForFrames; len(frames) != 0 {
		t.Errorf("live frames after loop: %v", frames)
	}
	if got := in.Variable("I").Num(); got != 4 {
		t.Errorf("I = %v after loop, want 4", got)
	}
}

func TestForNextNegativeStep(t *testing.T) {
	out, err := runProgram(t,
		"10 FOR I=3 TO 1 STEP -1",
		"20 PRINT I",
		"30 NEXT",
	)
	if err != nil {
		t.Fatal(err)
	}
	if out != "3\n2\n1\n" {
		t.Errorf("output = %q", out)
	}
}

func TestForNextNested(t *testing.T) {
	out, err := runProgram(t,
		"10 FOR I=1 TO 2",
		"20 FOR J=1 TO 2",
		`30 PRINT I;J`,
		"40 NEXT J",
		"50 NEXT I",
	)
	if err != nil {
		t.Fatal(err)
	}
	if out != "11\n12\n21\n22\n" {
		t.Errorf("output = %q", out)
	}
}

func TestGosubReturnNested(t *testing.T) {
	in, console := newTestInterpreter(t,
		"10 GOSUB 100",
		`20 PRINT "BACK"`,
		"30 END",
		`100 PRINT "A"`,
		"110 GOSUB 200",
		`120 PRINT "C"`,
		"130 RETURN",
		`200 PRINT "B"`,
		"210 RETURN",
	)
	if err := in.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := console.out.String(); got != "A\nB\nC\nBACK\n" {
		t.Errorf("output = %q", got)
	}
	if stack := in.Snapshot().GosubStack; len(stack) != 0 {
		t.Errorf("return stack not empty: %v", stack)
	}
}

func TestControlFlowErrors(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		kind  ErrorKind
		line  int
	}{
		{"next without for", []string{"10 PRINT 1", "20 NEXT I"}, KindNextWithoutFor, 20},
		{"return without gosub", []string{"10 RETURN"}, KindReturnWithoutGosub, 10},
		{"goto missing line", []string{"10 GOTO 99"}, KindUndefinedLine, 10},
		{"gosub missing line", []string{"10 GOSUB 99"}, KindUndefinedLine, 10},
		{"division", []string{"10 A=1", "20 B=A/0"}, KindDivisionByZero, 20},
		{"assign kind", []string{`10 A="X"`}, KindTypeMismatch, 10},
		{"missing then", []string{"10 IF 1 PRINT 2"}, KindSyntax, 10},
		{"missing to", []string{"10 FOR I=1 3"}, KindSyntax, 10},
		{"missing equals", []string{"10 LET A 1"}, KindSyntax, 10},
		{"unknown keyword", []string{"10 THEN"}, KindSyntax, 10},
		{"nested if", []string{"10 IF 1 THEN IF 1 THEN PRINT 2"}, KindSyntax, 10},
		{"unterminated", []string{`10 PRINT "X`}, KindLex, 10},
		{"gosub depth", []string{"10 GOSUB 10"}, KindOutOfMemory, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runProgram(t, tt.lines...)
			wantKind(t, err, tt.kind)
			var be *BASICError
			if !errors.As(err, &be) {
				t.Fatalf("not a BASICError: %v", err)
			}
			if be.LineNumber != tt.line || be.DirectMode {
				t.Errorf("line = %d, direct = %v; want line %d", be.LineNumber, be.DirectMode, tt.line)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	_, err := runProgram(t, "10 PRINT 1", "20 PRINT 1/0")
	if got := err.Error(); got != "?DIVISION BY ZERO ERROR IN 20" {
		t.Errorf("message = %q", got)
	}
	if !errors.Is(err, ErrDivisionByZero) {
		t.Error("errors.Is should match the sentinel")
	}

	_, err = runProgram(t, "0 PRINT 1/0")
	if got := err.Error(); got != "?DIVISION BY ZERO ERROR IN 0" {
		t.Errorf("line 0 message = %q", got)
	}

	in, _ := newTestInterpreter(t)
	err = in.ExecuteImmediate(context.Background(), "NEXT")
	if got := err.Error(); got != "?NEXT WITHOUT FOR ERROR" {
		t.Errorf("immediate message = %q", got)
	}
}

func TestStringConcatAssignment(t *testing.T) {
	in, _ := newTestInterpreter(t)
	if err := in.ExecuteImmediate(context.Background(), `A$="HI"+" THERE"`); err != nil {
		t.Fatal(err)
	}
	if got := in.Variable("A$").Text(); got != "HI THERE" {
		t.Errorf("A$ = %q", got)
	}
}

func TestPrintTypeMismatchPrintsNothing(t *testing.T) {
	in, console := newTestInterpreter(t)
	err := in.ExecuteImmediate(context.Background(), `PRINT 1+"X"`)
	wantKind(t, err, KindTypeMismatch)
	if console.out.Len() != 0 {
		t.Errorf("output = %q, want none", console.out.String())
	}
}

func TestVariableDefaults(t *testing.T) {
	in, console := newTestInterpreter(t)
	ctx := context.Background()
	in.ExecuteImmediate(ctx, "PRINT X")
	in.ExecuteImmediate(ctx, `PRINT "["+Y$+"]"`)
	if got := console.out.String(); got != "0\n[]\n" {
		t.Errorf("output = %q", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	in, console := newTestInterpreter(t,
		`10 PRINT "HELLO"`,
		"20 FOR I=1 TO 2",
		"30 NEXT I",
	)
	ctx := context.Background()
	before := in.List()

	if err := in.ExecuteImmediate(ctx, `SAVE "DEMO"`); err != nil {
		t.Fatal(err)
	}
	in.New()
	if len(in.List()) != 0 {
		t.Fatal("NEW left lines behind")
	}
	if err := in.ExecuteImmediate(ctx, `LOAD "DEMO"`); err != nil {
		t.Fatal(err)
	}
	after := in.List()
	if len(after) != len(before) {
		t.Fatalf("lines after load = %v, want %v", after, before)
	}
	for i := range before {
		if after[i] != before[i] {
			t.Errorf("line %d = %v, want %v", i, after[i], before[i])
		}
	}
	if !strings.Contains(console.out.String(), `SAVING "DEMO"`) ||
		!strings.Contains(console.out.String(), `LOADING "DEMO"`) {
		t.Errorf("output = %q", console.out.String())
	}
}

func TestPersistenceError(t *testing.T) {
	store := newMemStore()
	in := New(&fakeConsole{}, store, testOptions())
	ctx := context.Background()

	err := in.ExecuteImmediate(ctx, `LOAD "MISSING"`)
	wantKind(t, err, KindPersistence)

	cause := errors.New("disk full")
	store.fail = cause
	err = in.ExecuteImmediate(ctx, `SAVE "X"`)
	wantKind(t, err, KindPersistence)
	if !errors.Is(err, cause) {
		t.Error("collaborator error should be wrapped")
	}

	noStore := New(nil, nil, testOptions())
	wantKind(t, noStore.ExecuteImmediate(ctx, `SAVE "X"`), KindPersistence)
}

func TestLoadHaltsRun(t *testing.T) {
	in, console := newTestInterpreter(t)
	store := newMemStore()
	store.programs["NEXTPART"] = []Line{{10, `PRINT "LOADED"`}}
	in.SetPersistence(store)

	in.AddOrReplaceLine(`10 LOAD "NEXTPART"`)
	in.AddOrReplaceLine(`20 PRINT "NOT REACHED"`)
	if err := in.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(console.out.String(), "NOT REACHED") {
		t.Error("run continued after LOAD")
	}
	if lines := in.List(); len(lines) != 1 || lines[0].Text != `PRINT "LOADED"` {
		t.Errorf("program = %v", lines)
	}
}

func TestIfThen(t *testing.T) {
	out, err := runProgram(t,
		"10 A=5",
		`20 IF A>3 THEN PRINT "BIG"`,
		`30 IF A<3 THEN PRINT "SMALL"`,
		"40 IF A=5 THEN 60",
		`50 PRINT "SKIPPED"`,
		"60 IF A=5 GOTO 80",
		`70 PRINT "SKIPPED"`,
		`80 IF A THEN B=A*2`,
		`90 PRINT B`,
	)
	if err != nil {
		t.Fatal(err)
	}
	if out != "BIG\n10\n" {
		t.Errorf("output = %q", out)
	}
}

func TestIfStringCondition(t *testing.T) {
	_, err := runProgram(t, `10 IF "X" THEN PRINT 1`)
	wantKind(t, err, KindTypeMismatch)
}

func TestEndStopsRun(t *testing.T) {
	out, err := runProgram(t, "10 PRINT 1", "20 END", "30 PRINT 2")
	if err != nil {
		t.Fatal(err)
	}
	if out != "1\n" {
		t.Errorf("output = %q", out)
	}
}

func TestStop(t *testing.T) {
	_, err := runProgram(t, "10 PRINT 1", "20 STOP", "30 PRINT 2")
	var be *BreakError
	if !errors.As(err, &be) || be.LineNumber != 20 {
		t.Fatalf("got %v, want BREAK IN 20", err)
	}
	if err.Error() != "BREAK IN 20" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestCancelRun(t *testing.T) {
	in, _ := newTestInterpreter(t, "10 GOTO 10")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := in.Run(ctx)
	var be *BreakError
	if !errors.As(err, &be) {
		t.Fatalf("got %v, want BreakError", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("break should wrap the context error")
	}
	if in.IsRunning() {
		t.Error("interpreter still running after break")
	}
}

func TestWaitIsInterruptible(t *testing.T) {
	console := &fakeConsole{}
	opts := testOptions()
	opts.MaxWait = time.Minute
	in := New(console, nil, opts)
	in.AddOrReplaceLine("10 WAIT 30")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := in.Run(ctx)
	var be *BreakError
	if !errors.As(err, &be) || be.LineNumber != 10 {
		t.Fatalf("got %v, want BREAK IN 10", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("WAIT ignored cancellation")
	}
}

func TestWaitIsBounded(t *testing.T) {
	out, err := runProgram(t, "10 WAIT 1000", "20 PRINT 1")
	if err != nil {
		t.Fatal(err)
	}
	if out != "1\n" {
		t.Errorf("output = %q", out)
	}
}

func TestImmediateGotoRunsProgram(t *testing.T) {
	in, console := newTestInterpreter(t, "10 PRINT 1", "20 PRINT 2")
	if err := in.ExecuteImmediate(context.Background(), "GOTO 20"); err != nil {
		t.Fatal(err)
	}
	if got := console.out.String(); got != "2\n" {
		t.Errorf("output = %q", got)
	}
}

func TestImmediateRunKeepsVariables(t *testing.T) {
	in, console := newTestInterpreter(t, "10 PRINT A")
	ctx := context.Background()
	in.ExecuteImmediate(ctx, "A=5")
	if err := in.ExecuteImmediate(ctx, "RUN"); err != nil {
		t.Fatal(err)
	}
	if got := console.out.String(); got != "5\n" {
		t.Errorf("output = %q", got)
	}
	wantKind(t, in.ExecuteImmediate(ctx, "RUN 99"), KindUndefinedLine)
}

func TestRunEmptyProgram(t *testing.T) {
	in, _ := newTestInterpreter(t)
	if err := in.Run(context.Background()); err != nil {
		t.Errorf("Run on empty program: %v", err)
	}
	if err := in.ExecuteImmediate(context.Background(), "RUN"); err != nil {
		t.Errorf("RUN on empty program: %v", err)
	}
}

func TestEnterDispatch(t *testing.T) {
	in, console := newTestInterpreter(t)
	ctx := context.Background()
	in.Enter(ctx, "10 PRINT 1")
	in.Enter(ctx, "20 PRINT 2")
	in.Enter(ctx, "20")
	in.Enter(ctx, "RUN")
	if got := console.out.String(); got != "1\n" {
		t.Errorf("output = %q", got)
	}
	if in.Snapshot().Lines != 1 {
		t.Errorf("line 20 was not deleted")
	}
}

func TestAddOrReplaceLineNeedsNumber(t *testing.T) {
	in, _ := newTestInterpreter(t)
	wantKind(t, in.AddOrReplaceLine("PRINT 1"), KindSyntax)
}

func TestList(t *testing.T) {
	in, console := newTestInterpreter(t, "10 REM A", "20 REM B", "30 REM C")
	ctx := context.Background()
	tests := []struct {
		cmd  string
		want string
	}{
		{"LIST", "10 REM A\n20 REM B\n30 REM C\n"},
		{"LIST 20", "20 REM B\n"},
		{"LIST 20-", "20 REM B\n30 REM C\n"},
		{"LIST -20", "10 REM A\n20 REM B\n"},
		{"LIST 10-20", "10 REM A\n20 REM B\n"},
	}
	for _, tt := range tests {
		console.out.Reset()
		if err := in.ExecuteImmediate(ctx, tt.cmd); err != nil {
			t.Fatalf("%s: %v", tt.cmd, err)
		}
		if got := console.out.String(); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func TestNewClearsEverything(t *testing.T) {
	in, _ := newTestInterpreter(t, "10 PRINT 1")
	ctx := context.Background()
	in.ExecuteImmediate(ctx, "A=1")
	in.ExecuteImmediate(ctx, "POKE 1024,7")
	if err := in.ExecuteImmediate(ctx, "NEW"); err != nil {
		t.Fatal(err)
	}
	if len(in.List()) != 0 || in.Variable("A").Num() != 0 {
		t.Error("NEW left program or variables")
	}
	if in.Variable("BG").Num() != DefaultBackground {
		t.Error("BG not re-seeded")
	}
	if peek, _ := in.memory.Peek(1024); peek != 0 {
		t.Error("memory not cleared")
	}
}

func TestClr(t *testing.T) {
	in, _ := newTestInterpreter(t, "10 PRINT 1")
	ctx := context.Background()
	in.ExecuteImmediate(ctx, "A=1")
	in.ExecuteImmediate(ctx, "CLR")
	if in.Variable("A").Num() != 0 {
		t.Error("CLR kept A")
	}
	if len(in.List()) != 1 {
		t.Error("CLR must keep the program")
	}
}

func TestPrintZonesAndSeparators(t *testing.T) {
	in, console := newTestInterpreter(t)
	ctx := context.Background()
	in.ExecuteImmediate(ctx, `PRINT "A","B"`)
	in.ExecuteImmediate(ctx, `PRINT "X";`)
	in.ExecuteImmediate(ctx, `PRINT "Y"`)
	in.ExecuteImmediate(ctx, `PRINT 1;2`)
	in.ExecuteImmediate(ctx, `PRINT`)

	want := "A" + strings.Repeat(" ", 15) + "B\n" + "XY\n" + "12\n" + "\n"
	if got := console.out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestPrintQuestionMark(t *testing.T) {
	in, console := newTestInterpreter(t)
	in.ExecuteImmediate(context.Background(), "? 2*21")
	if got := console.out.String(); got != "42\n" {
		t.Errorf("output = %q", got)
	}
}

func TestInput(t *testing.T) {
	in, console := newTestInterpreter(t,
		`10 INPUT "NAME";N$`,
		"20 INPUT A",
		`30 PRINT N$;A`,
	)
	console.inputs = []string{"BOB", "42"}
	if err := in.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := console.out.String(); got != "BOB42\n" {
		t.Errorf("output = %q", got)
	}
	if len(console.prompts) != 2 || console.prompts[0] != "NAME" || console.prompts[1] != "? " {
		t.Errorf("prompts = %q", console.prompts)
	}
}

func TestInputMultipleAndRedo(t *testing.T) {
	in, console := newTestInterpreter(t, "10 INPUT A,B", "20 PRINT A+B")
	console.inputs = []string{"X,1", "1", "2,3"}
	if err := in.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	out := console.out.String()
	if !strings.Contains(out, "?REDO FROM START\n") || !strings.Contains(out, "?EXTRA IGNORED\n") {
		t.Errorf("output = %q", out)
	}
	if !strings.HasSuffix(out, "3\n") {
		t.Errorf("A+B printed %q, want 3", out)
	}
	if len(console.prompts) != 3 || console.prompts[1] != "? " || console.prompts[2] != "?? " {
		t.Errorf("prompts = %q", console.prompts)
	}
}

func TestInputRejectsNonDecimal(t *testing.T) {
	for _, answer := range []string{"NAN", "INF", "-Infinity", "0x10", "1.5.2", "1E"} {
		t.Run(answer, func(t *testing.T) {
			in, console := newTestInterpreter(t, "10 INPUT A", "20 PRINT A")
			console.inputs = []string{answer, "7"}
			if err := in.Run(context.Background()); err != nil {
				t.Fatal(err)
			}
			if got := console.out.String(); got != "?REDO FROM START\n7\n" {
				t.Errorf("output = %q", got)
			}
		})
	}
}

func TestParseInputNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{" -3.5 ", -3.5, true},
		{"+.5", 0.5, true},
		{"1E3", 1000, true},
		{"5.", 5, true},
		{"", 0, true},
		{"NAN", 0, false},
		{"inf", 0, false},
		{"12ABC", 0, false},
		{"1E999", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseInputNumber(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("parseInputNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInputEOF(t *testing.T) {
	_, err := runProgram(t, "10 INPUT A")
	if !errors.Is(err, io.EOF) {
		t.Errorf("got %v, want io.EOF", err)
	}
}

func TestBusyInterpreterRejectsCommands(t *testing.T) {
	in, console := newTestInterpreter(t, "10 INPUT A")
	var running bool
	var nested error
	console.onRead = func() {
		running = in.IsRunning()
		nested = in.ExecuteImmediate(context.Background(), "PRINT 1")
	}
	console.inputs = []string{"1"}
	if err := in.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !running {
		t.Error("IsRunning false during INPUT")
	}
	if !errors.Is(nested, ErrProgramRunning) {
		t.Errorf("nested command = %v, want ErrProgramRunning", nested)
	}
}

func TestOnGotoGosub(t *testing.T) {
	out, err := runProgram(t,
		"10 X=2",
		"20 ON X GOTO 100,200",
		`30 PRINT "FELL"`,
		"40 ON 5 GOSUB 100",
		"50 ON 1 GOSUB 300",
		"60 END",
		`100 PRINT "ONE"`,
		"110 END",
		`200 PRINT "TWO"`,
		"210 GOTO 40",
		`300 PRINT "SUB"`,
		"310 RETURN",
	)
	if err != nil {
		t.Fatal(err)
	}
	if out != "TWO\nSUB\n" {
		t.Errorf("output = %q", out)
	}
}

func TestPokePeekAndColors(t *testing.T) {
	in, console := newTestInterpreter(t)
	ctx := context.Background()
	if err := in.ExecuteImmediate(ctx, "POKE 53281,2"); err != nil {
		t.Fatal(err)
	}
	if in.Variable("BG").Num() != 2 || console.bg != 2 {
		t.Errorf("BG = %v, screen bg = %d", in.Variable("BG"), console.bg)
	}
	in.ExecuteImmediate(ctx, "PRINT PEEK(53281)")
	if got := console.out.String(); got != "2\n" {
		t.Errorf("PEEK output = %q", got)
	}

	in.ExecuteImmediate(ctx, "COLOR 5,0")
	if console.fg != 5 || console.bg != 0 || in.Variable("CO").Num() != 5 {
		t.Errorf("COLOR: fg=%d bg=%d", console.fg, console.bg)
	}
	in.ExecuteImmediate(ctx, "SCREEN 3")
	if console.bg != 3 {
		t.Errorf("SCREEN: bg=%d", console.bg)
	}
	wantKind(t, in.ExecuteImmediate(ctx, "COLOR 16"), KindIllegalQuantity)
	wantKind(t, in.ExecuteImmediate(ctx, "POKE 1,256"), KindIllegalQuantity)
	wantKind(t, in.ExecuteImmediate(ctx, "POKE 70000,1"), KindIllegalQuantity)

	in.ExecuteImmediate(ctx, "CLS")
	if console.cleared != 1 {
		t.Error("CLS did not clear the screen")
	}
}

func TestBorderAndBackgroundRegisters(t *testing.T) {
	in, console := newTestInterpreter(t)
	ctx := context.Background()
	if err := in.ExecuteImmediate(ctx, "POKE 53280,18"); err != nil {
		t.Fatal(err)
	}
	if console.border != 2 {
		t.Errorf("border = %d, want 2", console.border)
	}

	// BG out of range before COLOR without a background argument
	if err := in.ExecuteImmediate(ctx, "BG=300"); err != nil {
		t.Fatal(err)
	}
	if err := in.ExecuteImmediate(ctx, "COLOR 1"); err != nil {
		t.Fatal(err)
	}
	if in.Variable("BG").Num() != 12 || console.bg != 12 {
		t.Errorf("BG = %v, screen bg = %d, want 12", in.Variable("BG"), console.bg)
	}
	in.ExecuteImmediate(ctx, "PRINT PEEK(53281)")
	if got := console.out.String(); got != "12\n" {
		t.Errorf("PEEK(53281) = %q, want 12", got)
	}
}

func TestSys(t *testing.T) {
	in, console := newTestInterpreter(t)
	in.ExecuteImmediate(context.Background(), "SYS 64738")
	if got := console.out.String(); got != "SYS 64738: MACHINE LANGUAGE CALL SIMULATED\n" {
		t.Errorf("output = %q", got)
	}
}

func TestClockVariables(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	in, _ := newTestInterpreter(t)
	in.SetClock(func() time.Time { return now })
	ctx := context.Background()

	now = now.Add(2 * time.Second)
	if got := in.Variable("TI").Num(); got != 120 {
		t.Errorf("TI = %v, want 120", got)
	}
	if got := in.Variable("TI$").Text(); got != "000002" {
		t.Errorf("TI$ = %q", got)
	}

	if err := in.ExecuteImmediate(ctx, `TI$="123000"`); err != nil {
		t.Fatal(err)
	}
	if got := in.Variable("TI$").Text(); got != "123000" {
		t.Errorf("TI$ after set = %q", got)
	}
	wantKind(t, in.ExecuteImmediate(ctx, "TI=5"), KindSyntax)
	wantKind(t, in.ExecuteImmediate(ctx, `TI$="99"`), KindIllegalQuantity)
}

func TestIndependentInstances(t *testing.T) {
	a, _ := newTestInterpreter(t)
	b, _ := newTestInterpreter(t)
	ctx := context.Background()
	a.ExecuteImmediate(ctx, "X=1")
	if b.Variable("X").Num() != 0 {
		t.Error("variables leak between interpreters")
	}
	if a.ID() == b.ID() {
		t.Error("instances share an id")
	}
}

func TestSnapshotAndStats(t *testing.T) {
	in, _ := newTestInterpreter(t, "10 FOR I=1 TO 3", "20 NEXT I")
	in.Run(context.Background())
	in.ExecuteImmediate(context.Background(), `N$="A"`)

	snap := in.Snapshot()
	if snap.Lines != 2 || snap.Runs != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Variables["I"] != float64(4) || snap.Variables["N$"] != "A" {
		t.Errorf("variables = %v", snap.Variables)
	}
	stats, statements := in.Stats()
	if statements == 0 || stats.Hits == 0 {
		t.Errorf("stats = %+v, statements = %d", stats, statements)
	}
}
